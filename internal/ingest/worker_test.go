package ingest

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/jamesfry/footballgpt/internal/apperrors"
	"github.com/jamesfry/footballgpt/internal/articles"
	"github.com/jamesfry/footballgpt/internal/config"
	"github.com/jamesfry/footballgpt/internal/vectorstore"
)

type fakeArticleStore struct {
	mu    sync.Mutex
	byID  map[int64]articles.Article
	reset int
}

func newFakeArticleStore(arts ...articles.Article) *fakeArticleStore {
	s := &fakeArticleStore{byID: make(map[int64]articles.Article)}
	for _, a := range arts {
		s.byID[a.ID] = a
	}
	return s
}

func (s *fakeArticleStore) Init(context.Context) error { return nil }

func (s *fakeArticleStore) GetByID(_ context.Context, id int64) (articles.Article, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.byID[id]
	return a, ok, nil
}

func (s *fakeArticleStore) PendingOrFailed(_ context.Context, limit int) ([]articles.Article, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []articles.Article
	for _, a := range s.byID {
		if a.EmbeddingStatus == articles.EmbeddingPending || a.EmbeddingStatus == articles.EmbeddingFailed {
			out = append(out, a)
			if len(out) == limit {
				break
			}
		}
	}
	return out, nil
}

func (s *fakeArticleStore) MarkProcessing(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	a := s.byID[id]
	a.EmbeddingStatus = articles.EmbeddingProcessing
	s.byID[id] = a
	return nil
}

func (s *fakeArticleStore) MarkFailed(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	a := s.byID[id]
	a.EmbeddingStatus = articles.EmbeddingFailed
	s.byID[id] = a
	return nil
}

func (s *fakeArticleStore) CompleteEmbedding(_ context.Context, id int64, embedding []float32, vectorID, hash string, sentiment float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	a := s.byID[id]
	a.VectorEmbedding = embedding
	a.VectorID = vectorID
	a.ContentHash = hash
	a.SentimentScore = &sentiment
	a.EmbeddingStatus = articles.EmbeddingCompleted
	s.byID[id] = a
	return nil
}

func (s *fakeArticleStore) ResetStuckProcessing(_ context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for id, a := range s.byID {
		if a.EmbeddingStatus == articles.EmbeddingProcessing {
			a.EmbeddingStatus = articles.EmbeddingPending
			s.byID[id] = a
			n++
		}
	}
	s.reset = n
	return n, nil
}

func (s *fakeArticleStore) SearchByTitleSubstring(context.Context, string, int) ([]articles.Article, error) {
	return nil, nil
}

func (s *fakeArticleStore) RecentByIDs(context.Context, []int64) ([]articles.Article, error) {
	return nil, nil
}

func (s *fakeArticleStore) Close() {}

var _ articles.Store = (*fakeArticleStore)(nil)

type fakeVectorStoreAdapter struct {
	mu      sync.Mutex
	upserts map[string][]float32
	fail    bool
}

func (v *fakeVectorStoreAdapter) Upsert(_ context.Context, id string, vector []float32, _ map[string]string) error {
	if v.fail {
		return apperrors.ErrVectorUpsertFailed
	}
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.upserts == nil {
		v.upserts = make(map[string][]float32)
	}
	v.upserts[id] = vector
	return nil
}
func (v *fakeVectorStoreAdapter) Delete(context.Context, string) error { return nil }
func (v *fakeVectorStoreAdapter) SimilaritySearch(context.Context, []float32, int, map[string]string) ([]vectorstore.Result, error) {
	return nil, nil
}
func (v *fakeVectorStoreAdapter) Dimension() int { return 4 }
func (v *fakeVectorStoreAdapter) Close() error   { return nil }

var _ vectorstore.Store = (*fakeVectorStoreAdapter)(nil)

type fakeEmbedder struct {
	vec  []float32
	fail bool
	rate bool
	hits int
}

func (e *fakeEmbedder) Embed(_ context.Context, texts []string) ([][]float32, error) {
	e.hits++
	if e.rate {
		e.rate = false // succeed on the retry
		return nil, apperrors.ErrEmbeddingRateLimited
	}
	if e.fail {
		return nil, apperrors.ErrLLMFailure
	}
	out := make([][]float32, len(texts))
	for i := range texts {
		out[i] = e.vec
	}
	return out, nil
}

func testCfg() config.IngestionConfig {
	return config.IngestionConfig{BatchSize: 10, ProcessingPause: 0, MaxRetries: 2, RetryBackoff: time.Millisecond}
}

func TestProcessArticleSucceeds(t *testing.T) {
	store := newFakeArticleStore(articles.Article{ID: 1, Title: "Win", Content: "A great victory", EmbeddingStatus: articles.EmbeddingPending})
	vecs := &fakeVectorStoreAdapter{}
	emb := &fakeEmbedder{vec: []float32{1, 2, 3, 4}}
	w := New(store, vecs, emb, testCfg())

	res := w.ProcessArticle(context.Background(), 1)
	require.True(t, res.Succeeded)

	updated, ok, _ := store.GetByID(context.Background(), 1)
	require.True(t, ok)
	require.Equal(t, articles.EmbeddingCompleted, updated.EmbeddingStatus)
	require.Equal(t, "article_1", updated.VectorID)
}

func TestProcessArticleShortCircuitsOnUnchangedHash(t *testing.T) {
	hash := contentHash("Win", "A great victory")
	existing := articles.Article{
		ID: 1, Title: "Win", Content: "A great victory",
		EmbeddingStatus: articles.EmbeddingCompleted,
		ContentHash:     hash,
		VectorEmbedding: []float32{1, 2, 3},
	}
	store := newFakeArticleStore(existing)
	emb := &fakeEmbedder{}
	w := New(store, &fakeVectorStoreAdapter{}, emb, testCfg())

	res := w.ProcessArticle(context.Background(), 1)
	require.True(t, res.Succeeded)
	require.Equal(t, 0, emb.hits, "embedder should not be called when content is unchanged")
}

func TestProcessArticleMarksFailedOnEmbeddingError(t *testing.T) {
	store := newFakeArticleStore(articles.Article{ID: 2, Title: "T", Content: "C", EmbeddingStatus: articles.EmbeddingPending})
	emb := &fakeEmbedder{fail: true}
	w := New(store, &fakeVectorStoreAdapter{}, emb, testCfg())

	res := w.ProcessArticle(context.Background(), 2)
	require.False(t, res.Succeeded)

	updated, _, _ := store.GetByID(context.Background(), 2)
	require.Equal(t, articles.EmbeddingFailed, updated.EmbeddingStatus)
}

func TestProcessArticleRetriesOnRateLimit(t *testing.T) {
	store := newFakeArticleStore(articles.Article{ID: 3, Title: "T", Content: "C", EmbeddingStatus: articles.EmbeddingPending})
	emb := &fakeEmbedder{vec: []float32{1}, rate: true}
	w := New(store, &fakeVectorStoreAdapter{}, emb, testCfg())

	res := w.ProcessArticle(context.Background(), 3)
	require.True(t, res.Succeeded)
	require.Equal(t, 2, emb.hits)
}

func TestProcessBatchProcessesSequentiallyWithStats(t *testing.T) {
	store := newFakeArticleStore(
		articles.Article{ID: 1, Title: "Win", Content: "great win", EmbeddingStatus: articles.EmbeddingPending},
		articles.Article{ID: 2, Title: "T", Content: "C", EmbeddingStatus: articles.EmbeddingPending},
	)
	emb := &fakeEmbedder{vec: []float32{1, 2}}
	w := New(store, &fakeVectorStoreAdapter{}, emb, testCfg())

	stats := w.ProcessBatch(context.Background(), []int64{1, 2})
	require.Equal(t, 2, stats.Processed)
	require.Equal(t, 2, stats.Succeeded)
}

func TestResetProcessingDelegatesToStore(t *testing.T) {
	store := newFakeArticleStore(articles.Article{ID: 1, EmbeddingStatus: articles.EmbeddingProcessing})
	w := New(store, &fakeVectorStoreAdapter{}, &fakeEmbedder{}, testCfg())

	n, err := w.ResetProcessing(context.Background())
	require.NoError(t, err)
	require.Equal(t, 1, n)
}
