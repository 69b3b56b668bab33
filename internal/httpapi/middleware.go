package httpapi

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/jamesfry/footballgpt/internal/apperrors"
	"github.com/jamesfry/footballgpt/internal/ratelimit"
)

// rateLimited enforces C3 admission for the chat surfaces and sets the
// X-RateLimit-* response headers on both allowed and denied requests
// (spec.md §4.10(b)).
func (s *Server) rateLimited(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		identity := identityFor(r)
		info := s.limiter.Check(r.Context(), identity)
		writeRateLimitHeaders(w, info)

		if !info.Allowed {
			w.Header().Set("Retry-After", strconv.Itoa(info.ResetInSeconds))
			writeJSONError(w, http.StatusTooManyRequests, apperrors.ErrQuotaExceeded, map[string]any{
				"rate_limit": rateLimitBody(info),
				"retry_after": info.ResetInSeconds,
			})
			return
		}
		next.ServeHTTP(w, r)
	})
}

func writeRateLimitHeaders(w http.ResponseWriter, info ratelimit.Info) {
	h := w.Header()
	h.Set("X-RateLimit-Limit", strconv.Itoa(info.Limit))
	h.Set("X-RateLimit-Remaining", strconv.Itoa(info.Remaining))
	h.Set("X-RateLimit-Reset", strconv.FormatInt(info.ResetTime.Unix(), 10))
	h.Set("X-RateLimit-Tier", info.Tier)
}

func rateLimitBody(info ratelimit.Info) map[string]any {
	return map[string]any{
		"tier":             info.Tier,
		"limit":            info.Limit,
		"current_usage":    info.CurrentUsage,
		"remaining":        info.Remaining,
		"reset_in_seconds": info.ResetInSeconds,
	}
}

// adminOnly gates a handler behind the configured admin bearer token
// (spec.md §4.10(c)). An empty configured token denies every request,
// since that means no admin token was provisioned.
func (s *Server) adminOnly(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		tok := bearerToken(r)
		if s.adminTok == "" || tok != s.adminTok {
			writeJSONError(w, http.StatusUnauthorized, apperrors.ErrAuth, nil)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func writeJSONError(w http.ResponseWriter, status int, err error, extra map[string]any) {
	body := map[string]any{
		"error":   http.StatusText(status),
		"message": err.Error(),
	}
	for k, v := range extra {
		body[k] = v
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}
