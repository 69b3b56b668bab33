package observability

import (
	"context"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

type ctxKey int

const requestIDKey ctxKey = iota

// WithRequestID attaches a request id to the context for later log
// enrichment. Adapted from the teacher's trace-id-bearing ctxlogger.go,
// keyed on a request id instead of an OpenTelemetry span context: this
// module carries the OTel metrics API (see metrics.go) but not tracing.
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey, id)
}

// RequestIDFromContext returns the request id previously attached with
// WithRequestID, or "" if none is set.
func RequestIDFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	id, _ := ctx.Value(requestIDKey).(string)
	return id
}

// LoggerFromContext returns a zerolog.Logger enriched with the request id
// from the context, if available.
func LoggerFromContext(ctx context.Context) *zerolog.Logger {
	l := log.Logger
	if id := RequestIDFromContext(ctx); id != "" {
		l = l.With().Str("request_id", id).Logger()
	}
	return &l
}
