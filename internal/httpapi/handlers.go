package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/jamesfry/footballgpt/internal/apperrors"
	"github.com/jamesfry/footballgpt/internal/orchestrator"
	"github.com/jamesfry/footballgpt/internal/ranker"
	"github.com/jamesfry/footballgpt/internal/vectorstore"
)

// --- POST /chat ---------------------------------------------------------

type chatRequest struct {
	Message        string `json:"message"`
	ConversationID string `json:"conversation_id"`
}

type chatResponse struct {
	Response       string `json:"response"`
	ConversationID string `json:"conversation_id"`
	Timestamp      string `json:"timestamp"`
}

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Message == "" {
		writeJSONError(w, http.StatusBadRequest, apperrors.ErrValidation, map[string]any{"field": "message"})
		return
	}

	convID := req.ConversationID
	if convID == "" {
		convID = identityFor(r)
	}

	reply := s.orch.Respond(r.Context(), req.Message, convID, orchestrator.DiscardSink{})

	writeJSON(w, http.StatusOK, chatResponse{
		Response:       reply,
		ConversationID: convID,
		Timestamp:      time.Now().UTC().Format(time.RFC3339),
	})
}

// --- GET /chat/stream (SSE) ---------------------------------------------

func (s *Server) handleChatStream(w http.ResponseWriter, r *http.Request) {
	message := r.URL.Query().Get("message")
	if message == "" {
		writeJSONError(w, http.StatusBadRequest, apperrors.ErrValidation, map[string]any{"field": "message"})
		return
	}
	convID := r.URL.Query().Get("conversation_id")
	if convID == "" {
		convID = identityFor(r)
	}

	writer, ok := newSSEWriter(w)
	if !ok {
		writeJSONError(w, http.StatusInternalServerError, apperrors.ErrLLMFailure, map[string]any{"reason": "streaming unsupported"})
		return
	}
	sink := newSSESink(writer, convID)
	s.orch.Respond(r.Context(), message, convID, sink)
}

// --- POST /search/enhanced-search ---------------------------------------

type enhancedSearchRequest struct {
	Query             string            `json:"query"`
	TopK              int               `json:"top_k"`
	RankingStrategy   string            `json:"ranking_strategy"`
	Filters           map[string]string `json:"filters"`
	DateFrom          *time.Time        `json:"date_from"`
	DateTo            *time.Time        `json:"date_to"`
	MinSentiment      *float64          `json:"min_sentiment"`
	MaxSentiment      *float64          `json:"max_sentiment"`
	MinRelevanceScore float64           `json:"min_relevance_score"`
}

type enhancedSearchResult struct {
	ArticleID   int64              `json:"article_id"`
	Title       string             `json:"title"`
	URL         string             `json:"url"`
	Source      string             `json:"source"`
	PublishedAt *time.Time         `json:"published_at"`
	Score       float64            `json:"relevance_score"`
	Breakdown   map[string]float64 `json:"score_breakdown"`
}

// handleEnhancedSearch runs the embed -> similarity-search -> hydrate ->
// rerank pipeline C8 defines, directly (not through internal/tools, to
// avoid the HTTP surface depending on the tool-registry package) and then
// applies the request's date/sentiment/min-score filters to the ranked
// output. Grounded on internal/tools/news_search.go's candidates()
// pipeline, generalised with the strategy/filter knobs spec.md §6's route
// table names.
func (s *Server) handleEnhancedSearch(w http.ResponseWriter, r *http.Request) {
	if s.embedder == nil || s.vectors == nil || s.articles == nil || s.ranker == nil {
		writeJSONError(w, http.StatusServiceUnavailable, apperrors.ErrLLMFailure, map[string]any{"reason": "search not configured"})
		return
	}

	var req enhancedSearchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Query == "" {
		writeJSONError(w, http.StatusBadRequest, apperrors.ErrValidation, map[string]any{"field": "query"})
		return
	}
	topK := req.TopK
	if topK <= 0 {
		topK = 10
	}
	if topK > 50 {
		topK = 50
	}
	strategy := ranker.Strategy(req.RankingStrategy)
	switch strategy {
	case ranker.StrategySemantic, ranker.StrategyTemporal, ranker.StrategyEngagement, ranker.StrategyHybrid:
	default:
		strategy = ranker.StrategyHybrid
	}

	ctx := r.Context()
	vecs, err := s.embedder.Embed(ctx, []string{req.Query})
	if err != nil || len(vecs) == 0 {
		writeJSONError(w, http.StatusBadGateway, apperrors.ErrLLMFailure, map[string]any{"reason": "embedding failed"})
		return
	}

	hits, err := s.vectors.SimilaritySearch(ctx, vecs[0], topK*4, req.Filters)
	if err != nil {
		writeJSONError(w, http.StatusBadGateway, apperrors.ErrLLMFailure, map[string]any{"reason": "similarity search failed"})
		return
	}

	candidates, err := s.hydrate(ctx, hits)
	if err != nil {
		writeJSONError(w, http.StatusInternalServerError, apperrors.ErrLLMFailure, map[string]any{"reason": "hydration failed"})
		return
	}

	ranked := s.ranker.Rank(req.Query, candidates, strategy, topK)
	out := make([]enhancedSearchResult, 0, len(ranked))
	for _, c := range ranked {
		if c.FinalScore < req.MinRelevanceScore {
			continue
		}
		if req.DateFrom != nil && (c.PublishedAt == nil || c.PublishedAt.Before(*req.DateFrom)) {
			continue
		}
		if req.DateTo != nil && (c.PublishedAt == nil || c.PublishedAt.After(*req.DateTo)) {
			continue
		}
		if req.MinSentiment != nil && (c.SentimentScore == nil || *c.SentimentScore < *req.MinSentiment) {
			continue
		}
		if req.MaxSentiment != nil && (c.SentimentScore == nil || *c.SentimentScore > *req.MaxSentiment) {
			continue
		}
		out = append(out, enhancedSearchResult{
			ArticleID:   c.ArticleID,
			Title:       c.Title,
			URL:         c.URL,
			Source:      c.Source,
			PublishedAt: c.PublishedAt,
			Score:       c.FinalScore,
			Breakdown:   c.ScoreBreakdown,
		})
	}

	writeJSON(w, http.StatusOK, map[string]any{"results": out, "count": len(out)})
}

func (s *Server) hydrate(ctx context.Context, hits []vectorstore.Result) ([]ranker.Candidate, error) {
	ids := make([]int64, 0, len(hits))
	scoreByID := make(map[int64]float64, len(hits))
	for _, h := range hits {
		raw, ok := h.Metadata["article_id"]
		if !ok {
			continue
		}
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			continue
		}
		ids = append(ids, id)
		scoreByID[id] = h.Score
	}

	arts, err := s.articles.RecentByIDs(ctx, ids)
	if err != nil {
		return nil, err
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

// --- GET /rate-limit/config ----------------------------------------------

func (s *Server) handleRateLimitConfig(w http.ResponseWriter, r *http.Request) {
	if identity := r.URL.Query().Get("identity"); identity != "" {
		usage, err := s.limiter.Inspect(r.Context(), identity)
		if err != nil {
			writeJSONError(w, http.StatusInternalServerError, apperrors.ErrStoreUnavailable, nil)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"identity": identity, "sub_windows": usage})
		return
	}
	writeJSON(w, http.StatusOK, s.limiter.Statistics())
}

// --- GET/POST /users/{id}/tier -------------------------------------------

func (s *Server) handleGetTier(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	tier := s.limiter.Tier(r.Context(), id)
	writeJSON(w, http.StatusOK, map[string]any{"id": id, "tier": tier})
}

type setTierRequest struct {
	Tier string `json:"tier"`
}

func (s *Server) handleSetTier(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	var req setTierRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Tier == "" {
		writeJSONError(w, http.StatusBadRequest, apperrors.ErrValidation, map[string]any{"field": "tier"})
		return
	}
	if err := s.limiter.SetTier(r.Context(), id, req.Tier); err != nil {
		writeJSONError(w, http.StatusInternalServerError, apperrors.ErrStoreUnavailable, nil)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"id": id, "tier": req.Tier})
}

// --- GET /stats ------------------------------------------------------------

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"rate_limit": s.limiter.Statistics(),
		"cache":      s.cache.Statistics(),
	})
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}
