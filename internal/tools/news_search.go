package tools

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/jamesfry/footballgpt/internal/articles"
	"github.com/jamesfry/footballgpt/internal/ranker"
	"github.com/jamesfry/footballgpt/internal/vectorstore"
)

// Embedder generates a single embedding vector for a query string.
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
}

const defaultTopK = 5

// NewsSearchTool is the news_search tool: embeds the query, performs a
// similarity search against the vector index, hydrates the resulting
// article ids from the relational store, and reranks with C8's hybrid
// strategy (spec.md §4.6).
type NewsSearchTool struct {
	embedder Embedder
	vectors  vectorstore.Store
	articles articles.Store
	ranker   *ranker.Ranker
	topK     int
	filter   map[string]string
}

// NewNewsSearchTool builds the news_search tool. A non-nil filter narrows
// the vector-index query by metadata equality; every caller in this
// module, FPLAnalysisTool included, passes nil.
func NewNewsSearchTool(embedder Embedder, vectors vectorstore.Store, articleStore articles.Store, rk *ranker.Ranker, filter map[string]string) *NewsSearchTool {
	return &NewsSearchTool{embedder: embedder, vectors: vectors, articles: articleStore, ranker: rk, topK: defaultTopK, filter: filter}
}

func (t *NewsSearchTool) Name() string        { return "news_search" }
func (t *NewsSearchTool) ParamName() string    { return "query" }
func (t *NewsSearchTool) Description() string {
	return "Search recent football news and return the most relevant articles for a query."
}

func (t *NewsSearchTool) Execute(ctx context.Context, query string) string {
	query = strings.TrimSpace(query)
	if query == "" {
		return "news_search requires a non-empty query"
	}

	candidates, err := t.candidates(ctx, query)
	if err != nil {
		return fmt.Sprintf("news_search failed: %v", err)
	}
	if len(candidates) == 0 {
		return "no matching news articles found"
	}

	ranked := t.ranker.Rank(query, candidates, ranker.StrategyHybrid, t.topK)
	return formatCandidates(ranked)
}

// candidates runs the embed → similarity-search → hydrate pipeline shared
// by news_search and fpl_analysis.
func (t *NewsSearchTool) candidates(ctx context.Context, query string) ([]ranker.Candidate, error) {
	vecs, err := t.embedder.Embed(ctx, []string{query})
	if err != nil || len(vecs) == 0 {
		return nil, fmt.Errorf("embed query: %w", err)
	}

	hits, err := t.vectors.SimilaritySearch(ctx, vecs[0], t.topK*4, t.filter)
	if err != nil {
		return nil, fmt.Errorf("similarity search: %w", err)
	}
	if len(hits) == 0 {
		return nil, nil
	}

	ids := make([]int64, 0, len(hits))
	scoreByID := make(map[int64]float64, len(hits))
	for _, h := range hits {
		id, ok := articleIDFromMetadata(h)
		if !ok {
			continue
		}
		ids = append(ids, id)
		scoreByID[id] = h.Score
	}

	arts, err := t.articles.RecentByIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("hydrate articles: %w", err)
	}

	out := make([]ranker.Candidate, 0, len(arts))
	for _, a := range arts {
		if a.Deleted {
			continue
		}
		out = append(out, ranker.Candidate{
			ArticleID:      a.ID,
			Title:          a.Title,
			Content:        a.Content,
			Source:         a.Source,
			URL:            a.URL,
			PublishedAt:    a.PublishedAt,
			SentimentScore: a.SentimentScore,
			Semantic:       scoreByID[a.ID],
		})
	}
	return out, nil
}

func articleIDFromMetadata(hit vectorstore.Result) (int64, bool) {
	raw, ok := hit.Metadata["article_id"]
	if !ok {
		return 0, false
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, false
	}
	return id, true
}

// formatCandidates renders ranked candidates as the compact list spec.md
// §4.6 describes: title, source, date, relevance, 200-char excerpt, url.
func formatCandidates(ranked []ranker.Candidate) string {
	var sb strings.Builder
	for i, c := range ranked {
		date := "unknown date"
		if c.PublishedAt != nil {
			date = c.PublishedAt.UTC().Format(time.DateOnly)
		}
		excerpt := excerpt(c.Content, 200)
		fmt.Fprintf(&sb, "%d. %s (%s, %s, relevance=%.2f)\n   %s\n   %s\n",
			i+1, c.Title, c.Source, date, c.FinalScore, excerpt, c.URL)
	}
	return strings.TrimRight(sb.String(), "\n")
}

func excerpt(s string, n int) string {
	r := []rune(strings.TrimSpace(s))
	if len(r) <= n {
		return string(r)
	}
	return string(r[:n]) + "..."
}
