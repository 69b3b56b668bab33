// Command footballgpt starts the request-governance and response-caching
// fabric: the HTTP/WS surface (C10) plus the vector-ingestion sweep loop
// (C9), sharing a single Redis-backed kvstore and Postgres-backed article
// store. Grounded on the teacher's cmd/orchestrator/main.go (config load,
// logger init, signal.NotifyContext graceful shutdown, deferred resource
// close, background worker goroutine started alongside the main server).
package main

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/segmentio/kafka-go"

	"github.com/jamesfry/footballgpt/internal/articles"
	"github.com/jamesfry/footballgpt/internal/cache"
	"github.com/jamesfry/footballgpt/internal/config"
	"github.com/jamesfry/footballgpt/internal/httpapi"
	"github.com/jamesfry/footballgpt/internal/ingest"
	"github.com/jamesfry/footballgpt/internal/kvstore"
	"github.com/jamesfry/footballgpt/internal/llm"
	"github.com/jamesfry/footballgpt/internal/llm/anthropic"
	"github.com/jamesfry/footballgpt/internal/llm/openai"
	"github.com/jamesfry/footballgpt/internal/observability"
	"github.com/jamesfry/footballgpt/internal/orchestrator"
	"github.com/jamesfry/footballgpt/internal/ranker"
	"github.com/jamesfry/footballgpt/internal/ratelimit"
	"github.com/jamesfry/footballgpt/internal/tools"
	"github.com/jamesfry/footballgpt/internal/vectorstore"
)

func main() {
	if err := run(); err != nil {
		log.Fatal().Err(err).Msg("footballgpt")
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	observability.InitLogger(cfg.LogPath, cfg.LogLevel)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	kv, err := kvstore.NewRedisStore(cfg.Redis)
	if err != nil {
		return fmt.Errorf("connect redis: %w", err)
	}
	defer kv.Close()

	pool, err := articles.OpenPool(ctx, cfg.Database.DSN)
	if err != nil {
		return fmt.Errorf("connect postgres: %w", err)
	}
	defer pool.Close()
	articleStore := articles.NewPostgresStore(pool)
	if err := articleStore.Init(ctx); err != nil {
		return fmt.Errorf("init article schema: %w", err)
	}
	defer articleStore.Close()

	vectors, err := vectorstore.New(cfg.Qdrant)
	if err != nil {
		return fmt.Errorf("connect qdrant: %w", err)
	}
	defer vectors.Close()

	httpClient := &http.Client{
		Timeout: 30 * time.Second,
		Transport: &http.Transport{
			DialContext:         (&net.Dialer{Timeout: 7 * time.Second, KeepAlive: 30 * time.Second}).DialContext,
			MaxIdleConnsPerHost: 50,
			IdleConnTimeout:     90 * time.Second,
		},
	}

	anthropicClient := anthropic.New(cfg.Anthropic, httpClient)
	openaiClient := openai.New(cfg.OpenAI, httpClient)
	provider, chatModel := selectProvider(anthropicClient, openaiClient, cfg)

	rk := ranker.New(cfg.Ranker)
	c := cache.New(kv, cfg.CacheTTL)
	limiter := ratelimit.New(kv, cfg.RateLimit)

	metrics := observability.NewMetrics(cfg.OTelEnabled)
	c.SetMetrics(metrics)
	limiter.SetMetrics(metrics)

	fplClient := tools.NewHTTPFPLClient(cfg.FPLAPIBaseURL, httpClient)
	newsSearch := tools.NewNewsSearchTool(openaiClient, vectors, articleStore, rk, nil)
	registry := tools.NewRegistry(
		newsSearch,
		tools.NewFPLAnalysisTool(openaiClient, vectors, articleStore, rk),
		tools.NewPlayerStatsTool(articleStore, newsSearch, fplClient),
	)

	orch := orchestrator.New(provider, chatModel, kv, c, registry, cfg)

	worker := ingest.New(articleStore, vectors, openaiClient, cfg.Ingestion)
	if n, err := worker.ResetProcessing(ctx); err != nil {
		log.Warn().Err(err).Msg("reset_stuck_processing_failed")
	} else if n > 0 {
		log.Info().Int("count", n).Msg("reset_stuck_processing")
	}
	go runSweepLoop(ctx, worker, cfg.Ingestion.SweepInterval)

	if len(cfg.Ingestion.KafkaBrokers) > 0 {
		dlqWriter := &kafka.Writer{
			Addr:     kafka.TCP(cfg.Ingestion.KafkaBrokers...),
			Balancer: &kafka.LeastBytes{},
		}
		defer dlqWriter.Close()
		queue := ingest.NewQueue(worker, cfg.Ingestion)
		go func() {
			if err := queue.Run(ctx, dlqWriter, 4); err != nil && ctx.Err() == nil {
				log.Warn().Err(err).Msg("ingest_queue_stopped")
			}
		}()
	} else {
		log.Info().Msg("ingest_queue_disabled_no_kafka_brokers")
	}

	srv := httpapi.NewServer(orch, limiter, c, articleStore, vectors, openaiClient, rk, cfg.AdminToken)
	httpSrv := &http.Server{
		Addr:              fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Handler:           srv,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", httpSrv.Addr).Msg("http_server_starting")
		if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
	case err := <-errCh:
		return fmt.Errorf("http server: %w", err)
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutdownCancel()
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		log.Warn().Err(err).Msg("http_server_shutdown_error")
	}

	log.Info().Msg("footballgpt stopped")
	return nil
}

// selectProvider prefers Anthropic when an API key is configured,
// matching the original's primary-chat-model choice; it falls back to
// OpenAI so the process can still start against an OpenAI-only
// deployment.
func selectProvider(anthropicClient *anthropic.Client, openaiClient *openai.Client, cfg config.Config) (llm.Provider, string) {
	if cfg.Anthropic.APIKey != "" {
		return anthropicClient, cfg.Anthropic.Model
	}
	return openaiClient, cfg.OpenAI.ChatModel
}

// runSweepLoop periodically drains pending/failed articles through the
// ingestion worker until ctx is canceled, matching the original's
// background vector-ingestion scheduler cadence.
func runSweepLoop(ctx context.Context, worker *ingest.Worker, interval time.Duration) {
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			stats, err := worker.Sweep(ctx)
			if err != nil {
				log.Warn().Err(err).Msg("ingest_sweep_error")
				continue
			}
			if stats.Processed > 0 {
				log.Info().Int("processed", stats.Processed).Int("succeeded", stats.Succeeded).Int("failed", stats.Failed).Msg("ingest_sweep_complete")
			}
		}
	}
}
