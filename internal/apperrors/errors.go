// Package apperrors defines the sentinel error taxonomy shared across the
// request-governance and response-caching fabric.
package apperrors

import "errors"

var (
	// ErrStoreUnavailable is returned by internal/kvstore when the backing
	// store cannot be reached. Callers fail open or fail soft per component.
	ErrStoreUnavailable = errors.New("kvstore: store unavailable")

	// ErrLLMFailure wraps a failed call to an LLM provider.
	ErrLLMFailure = errors.New("orchestrator: llm call failed")

	// ErrToolFailure wraps a failed tool execution; never fatal to the
	// agent loop, always converted to a human-readable string.
	ErrToolFailure = errors.New("tools: execution failed")

	// ErrEmbeddingRateLimited is returned by the embeddings provider when
	// the upstream signals a rate limit; the ingestion worker retries with
	// backoff before giving up.
	ErrEmbeddingRateLimited = errors.New("ingest: embedding provider rate limited")

	// ErrVectorUpsertFailed is returned when the external vector index
	// rejects an upsert after the article's embedding was computed.
	ErrVectorUpsertFailed = errors.New("ingest: vector upsert failed")

	// ErrValidation marks a malformed or out-of-range request body or
	// query parameter.
	ErrValidation = errors.New("httpapi: validation failed")

	// ErrAuth marks a missing or invalid admin bearer token.
	ErrAuth = errors.New("httpapi: authentication failed")

	// ErrQuotaExceeded marks a rate-limit denial.
	ErrQuotaExceeded = errors.New("ratelimit: quota exceeded")

	// ErrNotFound marks a missing entity (article, conversation, tier).
	ErrNotFound = errors.New("not found")
)
