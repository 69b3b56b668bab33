// Package httpapi is the HTTP/WS surface (C10): route bindings, rate-limit
// enforcement and headers, SSE/WebSocket streaming of the orchestrator's
// output, enhanced search, and admin-gated management endpoints. Grounded
// on the teacher's internal/httpapi/server.go (http.ServeMux, Go 1.22
// method-pattern routing, Server{service, mux}/NewServer/registerRoutes
// shape).
package httpapi

import (
	"crypto/sha256"
	"encoding/hex"
	"net/http"
	"strings"

	"github.com/jamesfry/footballgpt/internal/articles"
	"github.com/jamesfry/footballgpt/internal/cache"
	"github.com/jamesfry/footballgpt/internal/orchestrator"
	"github.com/jamesfry/footballgpt/internal/ranker"
	"github.com/jamesfry/footballgpt/internal/ratelimit"
	"github.com/jamesfry/footballgpt/internal/tools"
	"github.com/jamesfry/footballgpt/internal/vectorstore"
)

// Server binds the request-governance and response-caching fabric to
// stdlib net/http.
type Server struct {
	orch     *orchestrator.Orchestrator
	limiter  *ratelimit.Limiter
	cache    *cache.Cache
	articles articles.Store
	vectors  vectorstore.Store
	embedder tools.Embedder
	ranker   *ranker.Ranker
	adminTok string
	mux      *http.ServeMux
}

// NewServer wires the fabric's components into route handlers. embedder
// and the search dependencies may be nil if the deployment does not expose
// /search/enhanced-search (handleEnhancedSearch reports 503 in that case).
func NewServer(
	orch *orchestrator.Orchestrator,
	limiter *ratelimit.Limiter,
	c *cache.Cache,
	articleStore articles.Store,
	vectors vectorstore.Store,
	embedder tools.Embedder,
	rk *ranker.Ranker,
	adminToken string,
) *Server {
	s := &Server{
		orch:     orch,
		limiter:  limiter,
		cache:    c,
		articles: articleStore,
		vectors:  vectors,
		embedder: embedder,
		ranker:   rk,
		adminTok: adminToken,
		mux:      http.NewServeMux(),
	}
	s.registerRoutes()
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

func (s *Server) registerRoutes() {
	s.mux.Handle("POST /chat", s.rateLimited(http.HandlerFunc(s.handleChat)))
	s.mux.Handle("GET /chat/stream", s.rateLimited(http.HandlerFunc(s.handleChatStream)))
	s.mux.Handle("GET /ws/chat/{conn_id}", s.rateLimited(http.HandlerFunc(s.handleWSChat)))

	// Not rate-limited: neither consumes the LLM/tool budget the limiter
	// governs (spec.md §4.10(a)).
	s.mux.HandleFunc("POST /search/enhanced-search", s.handleEnhancedSearch)
	s.mux.HandleFunc("GET /stats", s.handleStats)

	s.mux.Handle("GET /rate-limit/config", s.adminOnly(http.HandlerFunc(s.handleRateLimitConfig)))
	s.mux.Handle("GET /users/{id}/tier", s.adminOnly(http.HandlerFunc(s.handleGetTier)))
	s.mux.Handle("POST /users/{id}/tier", s.adminOnly(http.HandlerFunc(s.handleSetTier)))

	s.mux.HandleFunc("GET /healthz", s.handleHealth)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status":"ok"}`))
}

// identityFor derives the rate-limit identity for a request by the first
// successful rule: (a) hash of bearer credential; (b) explicit user_id
// parameter; (c) explicit identity header; (d) first address of the
// forwarded-for chain; (e) peer network address. The derivation is pure:
// same inputs always yield the same identity string.
func identityFor(r *http.Request) string {
	if tok := bearerToken(r); tok != "" {
		return hashCredential(tok)
	}
	if uid := r.URL.Query().Get("user_id"); uid != "" {
		return uid
	}
	if hdr := r.Header.Get("X-Identity"); hdr != "" {
		return hdr
	}
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		if addr := strings.TrimSpace(strings.SplitN(xff, ",", 2)[0]); addr != "" {
			return addr
		}
	}
	return r.RemoteAddr
}

func bearerToken(r *http.Request) string {
	h := r.Header.Get("Authorization")
	const prefix = "Bearer "
	if strings.HasPrefix(h, prefix) {
		return strings.TrimPrefix(h, prefix)
	}
	return ""
}

// hashCredential fingerprints a bearer credential so the raw token never
// becomes a store key, matching the content-addressed hashing style of
// cache.DeriveKey.
func hashCredential(credential string) string {
	sum := sha256.Sum256([]byte(credential))
	return hex.EncodeToString(sum[:])
}
