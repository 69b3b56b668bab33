package httpapi

import (
	"context"

	"github.com/jamesfry/footballgpt/internal/articles"
	"github.com/jamesfry/footballgpt/internal/llm"
	"github.com/jamesfry/footballgpt/internal/vectorstore"
)

// scriptedProvider replies with a single fixed text and no tool calls,
// matching the orchestrator test package's pattern.
type scriptedProvider struct {
	text string
}

func (p *scriptedProvider) Chat(context.Context, []llm.Message, []llm.ToolSchema, string) (llm.Message, error) {
	return llm.Message{Role: "assistant", Content: p.text}, nil
}

func (p *scriptedProvider) ChatStream(_ context.Context, _ []llm.Message, _ []llm.ToolSchema, _ string, h llm.StreamHandler) error {
	h.OnDelta(p.text)
	return nil
}

var _ llm.Provider = (*scriptedProvider)(nil)

type fakeEmbedder struct {
	vec []float32
	err error
}

func (f *fakeEmbedder) Embed(context.Context, []string) ([][]float32, error) {
	if f.err != nil {
		return nil, f.err
	}
	return [][]float32{f.vec}, nil
}

type fakeVectorStore struct {
	hits []vectorstore.Result
	err  error
}

func (f *fakeVectorStore) Upsert(context.Context, string, []float32, map[string]string) error { return nil }
func (f *fakeVectorStore) Delete(context.Context, string) error                               { return nil }
func (f *fakeVectorStore) SimilaritySearch(context.Context, []float32, int, map[string]string) ([]vectorstore.Result, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.hits, nil
}
func (f *fakeVectorStore) Dimension() int { return 1 }
func (f *fakeVectorStore) Close() error   { return nil }

var _ vectorstore.Store = (*fakeVectorStore)(nil)

type fakeArticleStore struct {
	byID map[int64]articles.Article
}

func newFakeArticleStore(arts ...articles.Article) *fakeArticleStore {
	s := &fakeArticleStore{byID: make(map[int64]articles.Article, len(arts))}
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
func (s *fakeArticleStore) SearchByTitleSubstring(context.Context, string, int) ([]articles.Article, error) {
	return nil, nil
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
