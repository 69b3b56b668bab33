package tools

import (
	"context"
	"strings"

	"github.com/jamesfry/footballgpt/internal/articles"
	"github.com/jamesfry/footballgpt/internal/config"
	"github.com/jamesfry/footballgpt/internal/vectorstore"
)

func testRankerWeights() config.RankerWeights {
	return config.RankerWeights{
		Semantic: 0.5, Temporal: 0.1, Source: 0.1, Text: 0.1, Quality: 0.1, Sentiment: 0.1,
		LambdaTemp: 0.05, LambdaHyb: 0.05,
	}
}

type fakeEmbedder struct {
	vec []float32
	err error
}

func (e *fakeEmbedder) Embed(_ context.Context, texts []string) ([][]float32, error) {
	if e.err != nil {
		return nil, e.err
	}
	out := make([][]float32, len(texts))
	for i := range texts {
		out[i] = e.vec
	}
	return out, nil
}

type fakeVectorStore struct {
	hits []vectorstore.Result
	err  error
}

func (v *fakeVectorStore) Upsert(context.Context, string, []float32, map[string]string) error {
	return nil
}
func (v *fakeVectorStore) Delete(context.Context, string) error { return nil }
func (v *fakeVectorStore) SimilaritySearch(context.Context, []float32, int, map[string]string) ([]vectorstore.Result, error) {
	if v.err != nil {
		return nil, v.err
	}
	return v.hits, nil
}
func (v *fakeVectorStore) Dimension() int { return 4 }
func (v *fakeVectorStore) Close() error   { return nil }

var _ vectorstore.Store = (*fakeVectorStore)(nil)

type fakeArticleStore struct {
	byID      map[int64]articles.Article
	titleHits []articles.Article
	err       error
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
	a, ok := s.byID[id]
	return a, ok, nil
}

func (s *fakeArticleStore) PendingOrFailed(context.Context, int) ([]articles.Article, error) {
	return nil, nil
}
func (s *fakeArticleStore) MarkProcessing(context.Context, int64) error { return nil }
func (s *fakeArticleStore) MarkFailed(context.Context, int64) error     { return nil }
func (s *fakeArticleStore) CompleteEmbedding(context.Context, int64, []float32, string, string, float64) error {
	return nil
}
func (s *fakeArticleStore) ResetStuckProcessing(context.Context) (int, error) { return 0, nil }

func (s *fakeArticleStore) SearchByTitleSubstring(_ context.Context, substr string, limit int) ([]articles.Article, error) {
	if s.err != nil {
		return nil, s.err
	}
	if s.titleHits != nil {
		return s.titleHits, nil
	}
	var out []articles.Article
	needle := strings.ToLower(substr)
	for _, a := range s.byID {
		if strings.Contains(strings.ToLower(a.Title), needle) {
			out = append(out, a)
			if len(out) == limit {
				break
			}
		}
	}
	return out, nil
}

func (s *fakeArticleStore) RecentByIDs(_ context.Context, ids []int64) ([]articles.Article, error) {
	out := make([]articles.Article, 0, len(ids))
	for _, id := range ids {
		if a, ok := s.byID[id]; ok {
			out = append(out, a)
		}
	}
	return out, nil
}

func (s *fakeArticleStore) Close() {}

var _ articles.Store = (*fakeArticleStore)(nil)
