package ingest

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/segmentio/kafka-go"

	"github.com/jamesfry/footballgpt/internal/config"
	"github.com/jamesfry/footballgpt/internal/observability"
)

// Task is the message body published to the ingestion topic: one article
// id to embed.
type Task struct {
	ArticleID int64 `json:"article_id"`
}

// Queue drives a Kafka-backed worker pool over the ingestion topic,
// grounded on the teacher's internal/orchestrator/kafka.go
// StartKafkaConsumer (bounded worker pool, per-message retry with
// exponential backoff, DLQ publication after retries exhausted), adapted
// from a command-message envelope to a single article-id task.
type Queue struct {
	worker *Worker
	cfg    config.IngestionConfig
}

// NewQueue builds a Queue bound to a Worker and its Kafka topology config.
func NewQueue(worker *Worker, cfg config.IngestionConfig) *Queue {
	return &Queue{worker: worker, cfg: cfg}
}

// Enqueue publishes a single ingestion task.
func (q *Queue) Enqueue(ctx context.Context, producer *kafka.Writer, articleID int64) error {
	payload, err := json.Marshal(Task{ArticleID: articleID})
	if err != nil {
		return err
	}
	return producer.WriteMessages(ctx, kafka.Message{
		Topic: q.cfg.KafkaTopic,
		Key:   []byte(strconv.FormatInt(articleID, 10)),
		Value: payload,
	})
}

// Run starts workerCount consumer goroutines reading from the ingestion
// topic and processing tasks through the Worker, retrying transient
// failures up to 3 attempts with a 200ms*2^(attempt-1) backoff before
// publishing to the topic's ".dlq" suffix, matching the teacher's retry
// shape. Run blocks until ctx is canceled and all in-flight work drains.
func (q *Queue) Run(ctx context.Context, producer *kafka.Writer, workerCount int) error {
	if workerCount <= 0 {
		workerCount = 1
	}
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:  q.cfg.KafkaBrokers,
		GroupID:  q.cfg.KafkaGroupID,
		Topic:    q.cfg.KafkaTopic,
		MinBytes: 1,
		MaxBytes: 10e6,
	})
	defer reader.Close()

	log := observability.LoggerFromContext(ctx)
	jobs := make(chan kafka.Message, workerCount*4)

	var wg sync.WaitGroup
	wg.Add(workerCount)
	for i := 0; i < workerCount; i++ {
		go func() {
			defer wg.Done()
			for msg := range jobs {
				q.handle(ctx, producer, msg, log)
				if err := reader.CommitMessages(ctx, msg); err != nil {
					log.Warn().Err(err).Msg("ingest_commit_failed")
				}
			}
		}()
	}

	go func() {
		defer close(jobs)
		for {
			if ctx.Err() != nil {
				return
			}
			msg, err := reader.FetchMessage(ctx)
			if err != nil {
				if ctx.Err() != nil {
					return
				}
				log.Warn().Err(err).Msg("ingest_fetch_error")
				time.Sleep(500 * time.Millisecond)
				continue
			}
			select {
			case jobs <- msg:
			case <-ctx.Done():
				return
			}
		}
	}()

	wg.Wait()
	return ctx.Err()
}

const maxQueueAttempts = 3

// handle processes one message with bounded retries and exponential
// backoff, publishing to the DLQ topic on persistent failure.
func (q *Queue) handle(ctx context.Context, producer *kafka.Writer, msg kafka.Message, log *zerolog.Logger) {
	var task Task
	if err := json.Unmarshal(msg.Value, &task); err != nil {
		log.Error().Err(err).Msg("ingest_task_decode_failed")
		q.publishDLQ(ctx, producer, msg, 0, err)
		return
	}

	var lastErr error
	for attempt := 1; attempt <= maxQueueAttempts; attempt++ {
		res := q.worker.ProcessArticle(ctx, task.ArticleID)
		if res.Succeeded {
			return
		}
		lastErr = fmt.Errorf("%s", res.Message)
		if attempt == maxQueueAttempts || ctx.Err() != nil {
			break
		}
		backoff := time.Duration(200*(1<<uint(attempt-1))) * time.Millisecond
		log.Warn().Int64("article_id", task.ArticleID).Int("attempt", attempt).Dur("backoff", backoff).Err(lastErr).Msg("ingest_retry")
		timer := time.NewTimer(backoff)
		select {
		case <-timer.C:
		case <-ctx.Done():
			timer.Stop()
			return
		}
	}

	q.publishDLQ(ctx, producer, msg, maxQueueAttempts, lastErr)
}

func (q *Queue) publishDLQ(ctx context.Context, producer *kafka.Writer, msg kafka.Message, attempts int, cause error) {
	dlqTopic := q.cfg.KafkaTopic + ".dlq"
	payload, _ := json.Marshal(map[string]any{
		"article_key": string(msg.Key),
		"attempts":    attempts,
		"error":       fmt.Sprint(cause),
	})
	_ = producer.WriteMessages(ctx, kafka.Message{Topic: dlqTopic, Key: msg.Key, Value: payload})
}
