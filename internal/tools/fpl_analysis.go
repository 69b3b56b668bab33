package tools

import (
	"context"
	"strings"

	"github.com/jamesfry/footballgpt/internal/articles"
	"github.com/jamesfry/footballgpt/internal/ranker"
	"github.com/jamesfry/footballgpt/internal/vectorstore"
)

// fantasyKeywords are the terms that mark a candidate as fantasy-league
// relevant. C9 does not tag articles by category at ingestion time, so
// fpl_analysis narrows the news_search result set itself rather than
// filtering the vector-index query.
var fantasyKeywords = []string{
	"fpl", "fantasy", "gameweek", "captain", "differential",
	"transfer", "price rise", "price fall", "bonus points", "bps",
}

// FPLAnalysisTool is the fpl_analysis tool: C8 narrowed to fantasy-league
// relevant content (spec.md §4.6).
type FPLAnalysisTool struct {
	search *NewsSearchTool
}

// NewFPLAnalysisTool builds the fpl_analysis tool, reusing the same
// embed → similarity-search → rerank pipeline as news_search, then
// keeping only candidates that mention fantasy-football terms.
func NewFPLAnalysisTool(embedder Embedder, vectors vectorstore.Store, articleStore articles.Store, rk *ranker.Ranker) *FPLAnalysisTool {
	return &FPLAnalysisTool{search: NewNewsSearchTool(embedder, vectors, articleStore, rk, nil)}
}

func (t *FPLAnalysisTool) Name() string     { return "fpl_analysis" }
func (t *FPLAnalysisTool) ParamName() string { return "query" }
func (t *FPLAnalysisTool) Description() string {
	return "Analyze fantasy football (FPL) relevant news and statistics for a query."
}

func (t *FPLAnalysisTool) Execute(ctx context.Context, query string) string {
	query = strings.TrimSpace(query)
	if query == "" {
		return "fpl_analysis requires a non-empty query"
	}

	candidates, err := t.search.candidates(ctx, query)
	if err != nil {
		return "fpl_analysis failed: " + err.Error()
	}

	fantasy := make([]ranker.Candidate, 0, len(candidates))
	for _, c := range candidates {
		if isFantasyRelevant(c) {
			fantasy = append(fantasy, c)
		}
	}
	if len(fantasy) == 0 {
		// Fall back to the unfiltered result set: a query that already
		// names fantasy terms (e.g. "captain picks gameweek 5") is
		// itself the signal when no article happens to repeat them.
		fantasy = candidates
	}
	if len(fantasy) == 0 {
		return "no fantasy-relevant news articles found"
	}

	ranked := t.search.ranker.Rank(query, fantasy, ranker.StrategyHybrid, t.search.topK)
	return formatCandidates(ranked)
}

func isFantasyRelevant(c ranker.Candidate) bool {
	haystack := strings.ToLower(c.Title + " " + c.Content)
	for _, kw := range fantasyKeywords {
		if strings.Contains(haystack, kw) {
			return true
		}
	}
	return false
}
