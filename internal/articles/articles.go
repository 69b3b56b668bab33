// Package articles is the core's read/write contract with the relational
// article store (out of scope per spec.md §1 beyond the fields the core
// reads/writes). Grounded on the teacher's
// internal/persistence/databases/chat_store_postgres.go (pgxpool-backed
// store struct, Init-creates-schema convention, pgx.Row scan helpers) and
// original_source's Article SQLAlchemy model
// (src/db/models.py, where present) for the field set C6/C9 require.
package articles

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/jamesfry/footballgpt/internal/apperrors"
)

// EmbeddingStatus is the vector-ingestion lifecycle state (spec.md §3).
type EmbeddingStatus string

const (
	EmbeddingPending    EmbeddingStatus = "pending"
	EmbeddingProcessing EmbeddingStatus = "processing"
	EmbeddingCompleted  EmbeddingStatus = "completed"
	EmbeddingFailed     EmbeddingStatus = "failed"
)

// Article is the subset of the relational article row the core reads or
// writes. Fields irrelevant to C6/C8/C9 (crawl metadata, raw HTML, etc.)
// are not modeled here — out of scope per spec.md §1.
type Article struct {
	ID              int64
	Title           string
	URL             string
	Content         string
	Source          string
	PublishedAt     *time.Time
	SentimentScore  *float64
	VectorEmbedding []float32
	ContentHash     string
	EmbeddingStatus EmbeddingStatus
	VectorID        string
	Deleted         bool
}

// Store is the relational article/player persistence contract.
type Store interface {
	// Init creates the backing schema if absent.
	Init(ctx context.Context) error

	// GetByID returns the article, or ok=false if missing or soft-deleted.
	GetByID(ctx context.Context, id int64) (Article, bool, error)

	// PendingOrFailed returns up to limit articles whose embedding_status
	// is pending or failed, oldest first, for the ingestion sweep.
	PendingOrFailed(ctx context.Context, limit int) ([]Article, error)

	// MarkProcessing transitions an article to the processing state.
	MarkProcessing(ctx context.Context, id int64) error

	// MarkFailed transitions an article to the failed state.
	MarkFailed(ctx context.Context, id int64) error

	// CompleteEmbedding persists the embedding outcome and marks the
	// article completed.
	CompleteEmbedding(ctx context.Context, id int64, embedding []float32, vectorID, contentHash string, sentiment float64) error

	// ResetStuckProcessing resets every article stuck in the processing
	// state (e.g. after a crash) back to pending, returning the count
	// reset.
	ResetStuckProcessing(ctx context.Context) (int, error)

	// SearchByTitleSubstring resolves player_stats-style lookups: a
	// case-insensitive substring match against title, most recent first.
	SearchByTitleSubstring(ctx context.Context, substr string, limit int) ([]Article, error)

	// RecentByIDs loads the non-deleted articles among ids, used by the
	// ranker candidate assembly. The order of the returned articles is not
	// defined.
	RecentByIDs(ctx context.Context, ids []int64) ([]Article, error)

	Close()
}

// OpenPool creates a Postgres connection pool with conservative pooling
// defaults, verified with a ping.
func OpenPool(ctx context.Context, dsn string) (*pgxpool.Pool, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, err
	}
	cfg.MaxConns = 8
	cfg.MinConns = 0
	cfg.MaxConnLifetime = time.Hour
	cfg.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, err
	}
	pctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := pool.Ping(pctx); err != nil {
		pool.Close()
		return nil, err
	}
	return pool, nil
}

// NewPostgresStore returns a Postgres-backed Store.
func NewPostgresStore(pool *pgxpool.Pool) Store {
	return &pgStore{pool: pool}
}

type pgStore struct {
	pool *pgxpool.Pool
}

func (s *pgStore) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}

// Init creates the articles table if absent. Out-of-scope crawl columns
// are intentionally not modeled (spec.md §1: "the relational article store
// schema beyond the fields the core reads/writes").
func (s *pgStore) Init(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, `
CREATE TABLE IF NOT EXISTS articles (
    id BIGSERIAL PRIMARY KEY,
    title TEXT NOT NULL,
    url TEXT NOT NULL,
    content TEXT NOT NULL,
    source TEXT NOT NULL DEFAULT '',
    published_at TIMESTAMPTZ,
    sentiment_score DOUBLE PRECISION,
    vector_embedding DOUBLE PRECISION[],
    content_hash TEXT NOT NULL DEFAULT '',
    embedding_status TEXT NOT NULL DEFAULT 'pending',
    vector_id TEXT NOT NULL DEFAULT '',
    deleted BOOLEAN NOT NULL DEFAULT FALSE
);

CREATE INDEX IF NOT EXISTS articles_embedding_status_idx ON articles(embedding_status) WHERE NOT deleted;
CREATE INDEX IF NOT EXISTS articles_title_idx ON articles (lower(title));
`)
	return err
}

func (s *pgStore) scanArticle(row pgx.Row) (Article, error) {
	var a Article
	var embedding []float64
	if err := row.Scan(
		&a.ID, &a.Title, &a.URL, &a.Content, &a.Source, &a.PublishedAt,
		&a.SentimentScore, &embedding, &a.ContentHash, &a.EmbeddingStatus,
		&a.VectorID, &a.Deleted,
	); err != nil {
		return Article{}, err
	}
	if embedding != nil {
		a.VectorEmbedding = make([]float32, len(embedding))
		for i, v := range embedding {
			a.VectorEmbedding[i] = float32(v)
		}
	}
	return a, nil
}

const articleColumns = `id, title, url, content, source, published_at, sentiment_score, vector_embedding, content_hash, embedding_status, vector_id, deleted`

func (s *pgStore) GetByID(ctx context.Context, id int64) (Article, bool, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+articleColumns+` FROM articles WHERE id = $1 AND NOT deleted`, id)
	a, err := s.scanArticle(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return Article{}, false, nil
	}
	if err != nil {
		return Article{}, false, apperrors.ErrStoreUnavailable
	}
	return a, true, nil
}

func (s *pgStore) PendingOrFailed(ctx context.Context, limit int) ([]Article, error) {
	rows, err := s.pool.Query(ctx, `
SELECT `+articleColumns+` FROM articles
WHERE NOT deleted AND embedding_status IN ('pending', 'failed')
ORDER BY id ASC
LIMIT $1`, limit)
	if err != nil {
		return nil, apperrors.ErrStoreUnavailable
	}
	defer rows.Close()

	var out []Article
	for rows.Next() {
		a, err := s.scanArticle(rows)
		if err != nil {
			return nil, apperrors.ErrStoreUnavailable
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func (s *pgStore) MarkProcessing(ctx context.Context, id int64) error {
	_, err := s.pool.Exec(ctx, `UPDATE articles SET embedding_status = $1 WHERE id = $2`, EmbeddingProcessing, id)
	return err
}

func (s *pgStore) MarkFailed(ctx context.Context, id int64) error {
	_, err := s.pool.Exec(ctx, `UPDATE articles SET embedding_status = $1 WHERE id = $2`, EmbeddingFailed, id)
	return err
}

func (s *pgStore) CompleteEmbedding(ctx context.Context, id int64, embedding []float32, vectorID, contentHash string, sentiment float64) error {
	emb := make([]float64, len(embedding))
	for i, v := range embedding {
		emb[i] = float64(v)
	}
	_, err := s.pool.Exec(ctx, `
UPDATE articles
SET vector_embedding = $1, vector_id = $2, content_hash = $3, sentiment_score = $4, embedding_status = $5
WHERE id = $6`,
		emb, vectorID, contentHash, sentiment, EmbeddingCompleted, id)
	return err
}

func (s *pgStore) ResetStuckProcessing(ctx context.Context) (int, error) {
	tag, err := s.pool.Exec(ctx, `UPDATE articles SET embedding_status = $1 WHERE embedding_status = $2`, EmbeddingPending, EmbeddingProcessing)
	if err != nil {
		return 0, err
	}
	return int(tag.RowsAffected()), nil
}

func (s *pgStore) SearchByTitleSubstring(ctx context.Context, substr string, limit int) ([]Article, error) {
	rows, err := s.pool.Query(ctx, `
SELECT `+articleColumns+` FROM articles
WHERE NOT deleted AND title ILIKE '%' || $1 || '%'
ORDER BY published_at DESC NULLS LAST
LIMIT $2`, substr, limit)
	if err != nil {
		return nil, apperrors.ErrStoreUnavailable
	}
	defer rows.Close()

	var out []Article
	for rows.Next() {
		a, err := s.scanArticle(rows)
		if err != nil {
			return nil, apperrors.ErrStoreUnavailable
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func (s *pgStore) RecentByIDs(ctx context.Context, ids []int64) ([]Article, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	rows, err := s.pool.Query(ctx, `SELECT `+articleColumns+` FROM articles WHERE id = ANY($1) AND NOT deleted`, ids)
	if err != nil {
		return nil, apperrors.ErrStoreUnavailable
	}
	defer rows.Close()

	var out []Article
	for rows.Next() {
		a, err := s.scanArticle(rows)
		if err != nil {
			return nil, apperrors.ErrStoreUnavailable
		}
		out = append(out, a)
	}
	return out, rows.Err()
}
