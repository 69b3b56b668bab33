// Package ingest is the vector-ingestion worker (C9): it turns pending
// articles into vector-store entries, grounded on
// original_source/src/db/services/vector_service.py's VectorService
// (content-hash idempotence, processing-state machine, simple lexicon
// sentiment scoring, exponential-backoff embedding retry, sequential batch
// processing), re-expressed over this module's articles.Store and
// vectorstore.Store instead of SQLAlchemy/Pinecone.
package ingest

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/jamesfry/footballgpt/internal/apperrors"
	"github.com/jamesfry/footballgpt/internal/articles"
	"github.com/jamesfry/footballgpt/internal/config"
	"github.com/jamesfry/footballgpt/internal/observability"
	"github.com/jamesfry/footballgpt/internal/vectorstore"
)

// maxEmbedTextRunes truncates embedding input, matching the original's
// 8000-character cutoff for text-embedding-3-small.
const maxEmbedTextRunes = 8000

// Embedder generates one embedding vector per input text. The worker sends
// a single text per call. Implemented by internal/llm/openai.Client.
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
}

// Result reports the outcome of processing one article.
type Result struct {
	ArticleID int64
	Succeeded bool
	Message   string
}

// BatchStats summarises a processed batch, mirroring the original's
// process_batch return shape.
type BatchStats struct {
	Processed int
	Succeeded int
	Failed    int
	Results   []Result
}

// Worker drives the per-article embedding lifecycle and batch sweeps.
type Worker struct {
	articles articles.Store
	vectors  vectorstore.Store
	embedder Embedder
	cfg      config.IngestionConfig
}

// New builds a Worker from its collaborators and ingestion config.
func New(articleStore articles.Store, vectorStore vectorstore.Store, embedder Embedder, cfg config.IngestionConfig) *Worker {
	return &Worker{articles: articleStore, vectors: vectorStore, embedder: embedder, cfg: cfg}
}

func contentHash(title, content string) string {
	sum := sha256.Sum256([]byte(title + "\n\n" + content))
	return hex.EncodeToString(sum[:])
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}

// ProcessArticle runs the full lifecycle for one article: fetch, hash
// short-circuit, mark processing, embed (with backoff retry), score
// sentiment, upsert to the vector store, persist the completed state.
func (w *Worker) ProcessArticle(ctx context.Context, articleID int64) Result {
	log := observability.LoggerFromContext(ctx)

	art, ok, err := w.articles.GetByID(ctx, articleID)
	if err != nil {
		return Result{ArticleID: articleID, Message: fmt.Sprintf("lookup failed: %v", err)}
	}
	if !ok {
		return Result{ArticleID: articleID, Message: "article not found"}
	}
	if art.EmbeddingStatus == articles.EmbeddingProcessing {
		return Result{ArticleID: articleID, Message: "already being processed"}
	}

	text := art.Title + "\n\n" + art.Content
	hash := contentHash(art.Title, art.Content)

	if art.ContentHash == hash && art.EmbeddingStatus == articles.EmbeddingCompleted && len(art.VectorEmbedding) > 0 {
		return Result{ArticleID: articleID, Succeeded: true, Message: "already processed with same content"}
	}

	if err := w.articles.MarkProcessing(ctx, articleID); err != nil {
		log.Warn().Err(err).Int64("article_id", articleID).Msg("ingest_mark_processing_failed")
	}

	embedInput := truncate(text, maxEmbedTextRunes)
	embedding, err := w.embedWithRetry(ctx, embedInput)
	if err != nil {
		_ = w.articles.MarkFailed(ctx, articleID)
		return Result{ArticleID: articleID, Message: fmt.Sprintf("failed to generate embedding: %v", err)}
	}

	sentiment := simpleSentiment(text)
	vectorID := "article_" + strconv.FormatInt(articleID, 10)

	metadata := map[string]string{
		"title":        truncate(art.Title, 512),
		"source":       art.Source,
		"url":          truncate(art.URL, 512),
		"sentiment":    strconv.FormatFloat(sentiment, 'f', -1, 64),
		"content_hash": hash,
		"article_id":   strconv.FormatInt(articleID, 10),
	}
	if art.PublishedAt != nil {
		metadata["published_date"] = art.PublishedAt.UTC().Format(time.RFC3339)
	}

	if err := w.vectors.Upsert(ctx, vectorID, embedding, metadata); err != nil {
		_ = w.articles.MarkFailed(ctx, articleID)
		return Result{ArticleID: articleID, Message: fmt.Sprintf("failed to upsert vector: %v", err)}
	}

	if err := w.articles.CompleteEmbedding(ctx, articleID, embedding, vectorID, hash, sentiment); err != nil {
		return Result{ArticleID: articleID, Message: fmt.Sprintf("failed to persist embedding: %v", err)}
	}

	return Result{ArticleID: articleID, Succeeded: true, Message: fmt.Sprintf("processed article %d: %s", articleID, truncate(art.Title, 50))}
}

// embedWithRetry generates an embedding, retrying with exponential backoff
// (2^attempt seconds, matching the original) on a rate-limit signal up to
// MaxRetries.
func (w *Worker) embedWithRetry(ctx context.Context, text string) ([]float32, error) {
	var lastErr error
	for attempt := 0; attempt <= w.cfg.MaxRetries; attempt++ {
		vecs, err := w.embedder.Embed(ctx, []string{text})
		if err == nil && len(vecs) == 1 {
			return vecs[0], nil
		}
		if err == nil {
			err = errors.New("embedder returned no vectors")
		}
		lastErr = err
		if !errors.Is(err, apperrors.ErrEmbeddingRateLimited) || attempt == w.cfg.MaxRetries {
			return nil, lastErr
		}

		wait := time.Duration(1<<uint(attempt)) * time.Second
		timer := time.NewTimer(wait)
		select {
		case <-timer.C:
		case <-ctx.Done():
			timer.Stop()
			return nil, ctx.Err()
		}
	}
	return nil, lastErr
}

// ProcessBatch processes articleIDs sequentially (concurrency of 1, as in
// the original, to avoid store write conflicts), pausing
// cfg.ProcessingPause between items.
func (w *Worker) ProcessBatch(ctx context.Context, articleIDs []int64) BatchStats {
	stats := BatchStats{Results: make([]Result, 0, len(articleIDs))}
	for i, id := range articleIDs {
		if ctx.Err() != nil {
			break
		}
		res := w.ProcessArticle(ctx, id)
		stats.Processed++
		if res.Succeeded {
			stats.Succeeded++
		} else {
			stats.Failed++
		}
		stats.Results = append(stats.Results, res)

		if i < len(articleIDs)-1 && w.cfg.ProcessingPause > 0 {
			timer := time.NewTimer(w.cfg.ProcessingPause)
			select {
			case <-timer.C:
			case <-ctx.Done():
				timer.Stop()
				return stats
			}
		}
	}
	return stats
}

// Sweep loads up to cfg.BatchSize pending/failed articles and processes
// them as one batch.
func (w *Worker) Sweep(ctx context.Context) (BatchStats, error) {
	pending, err := w.articles.PendingOrFailed(ctx, w.cfg.BatchSize)
	if err != nil {
		return BatchStats{}, err
	}
	if len(pending) == 0 {
		return BatchStats{}, nil
	}
	ids := make([]int64, len(pending))
	for i, a := range pending {
		ids[i] = a.ID
	}
	return w.ProcessBatch(ctx, ids), nil
}

// ResetProcessing resets any article stuck in the processing state back to
// pending, for crash recovery on startup.
func (w *Worker) ResetProcessing(ctx context.Context) (int, error) {
	return w.articles.ResetStuckProcessing(ctx)
}
