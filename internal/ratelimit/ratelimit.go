// Package ratelimit implements the sliding-window-over-sub-windows request
// governor (C3). Grounded on the original SlidingWindowRateLimiter
// (original_source/src/api/middleware/rate_limiter.py): sub-window bucket
// keyed by epoch-floor timestamp, stored as hash fields on a per-identity
// key, cleaned up lazily on each check, atomically incremented via
// hash-incr-by so admission stays linearisable per identity even under
// concurrent requests.
package ratelimit

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/jamesfry/footballgpt/internal/config"
	"github.com/jamesfry/footballgpt/internal/kvstore"
	"github.com/jamesfry/footballgpt/internal/observability"
)

// Info describes the outcome of a single admission check.
type Info struct {
	Allowed        bool
	Tier           string
	Limit          int
	CurrentUsage   int
	Remaining      int
	ResetTime      time.Time
	ResetInSeconds int
	WindowDuration time.Duration
	StoreError     bool
}

// Limiter is the C3 request governor: per-identity sliding-window
// admission over a shared kvstore.Store, with tier lookup and process-local
// statistics.
type Limiter struct {
	store kvstore.Store
	cfg   config.RateLimitConfig

	mu              sync.Mutex
	totalRequests   int64
	blockedRequests int64
	requestsByTier  map[string]int64
	blockedByTier   map[string]int64
	startedAt       time.Time

	metrics *observability.Metrics
}

// SetMetrics attaches an optional OTel metrics sink (nil is a valid,
// no-op sink), matching the teacher's WithMetrics injection pattern in
// internal/rag/service.
func (l *Limiter) SetMetrics(m *observability.Metrics) {
	l.metrics = m
}

// New constructs a Limiter bound to store, using cfg for tier quotas and
// window geometry.
func New(store kvstore.Store, cfg config.RateLimitConfig) *Limiter {
	return &Limiter{
		store:          store,
		cfg:            cfg,
		requestsByTier: make(map[string]int64),
		blockedByTier:  make(map[string]int64),
		startedAt:      time.Now(),
	}
}

func rateLimitKey(identity string) string {
	return "rl:" + identity
}

func userTierKey(identity string) string {
	return "user_tier:" + identity
}

func currentSubWindowStart(now time.Time, sub time.Duration) time.Time {
	secs := now.Unix()
	d := int64(sub.Seconds())
	if d <= 0 {
		d = 1
	}
	floor := secs - (secs % d)
	return time.Unix(floor, 0).UTC()
}

// Tier returns the identity's stored tier, defaulting to the configured
// default tier if unset or on store failure.
func (l *Limiter) Tier(ctx context.Context, identity string) string {
	v, ok, err := l.store.Get(ctx, userTierKey(identity))
	if err != nil || !ok {
		return l.defaultTier()
	}
	return v
}

// SetTier assigns identity to tier. The tier name is not validated against
// the quota table; an unrecognised tier resolves to the free quota via
// TierQuotas.Quota.
func (l *Limiter) SetTier(ctx context.Context, identity, tier string) error {
	return l.store.SetEX(ctx, userTierKey(identity), tier, 0)
}

func (l *Limiter) defaultTier() string {
	if l.cfg.DefaultTier != "" {
		return l.cfg.DefaultTier
	}
	return "free"
}

// Check performs the sliding-window admission decision for identity,
// failing open (allowed=true, StoreError=true) on any store error.
func (l *Limiter) Check(ctx context.Context, identity string) Info {
	tier := l.Tier(ctx, identity)
	limit := l.cfg.Tiers.Quota(tier)

	now := time.Now()
	window := l.cfg.WindowDuration
	sub := l.cfg.SubWindow
	if sub <= 0 {
		sub = time.Hour
	}
	if window <= 0 {
		window = 24 * time.Hour
	}

	w := currentSubWindowStart(now, sub)
	key := rateLimitKey(identity)

	info := Info{
		Tier:           tier,
		Limit:          limit,
		WindowDuration: window,
		ResetTime:      w.Add(sub),
	}
	info.ResetInSeconds = int(time.Until(info.ResetTime).Seconds())
	if info.ResetInSeconds < 0 {
		info.ResetInSeconds = 0
	}

	fields, err := l.store.HGetAll(ctx, key)
	if err != nil {
		return l.failOpen(tier, limit, window, w, sub, err)
	}

	cutoff := w.Add(-window + sub)
	var stale []string
	used := 0
	for fieldStr, valStr := range fields {
		fieldUnix, perr := strconv.ParseInt(fieldStr, 10, 64)
		if perr != nil {
			continue
		}
		fieldTime := time.Unix(fieldUnix, 0).UTC()
		if fieldTime.Before(cutoff) {
			stale = append(stale, fieldStr)
			continue
		}
		if !fieldTime.After(w) {
			n, _ := strconv.Atoi(valStr)
			used += n
		}
	}
	if len(stale) > 0 {
		if err := l.store.HDel(ctx, key, stale...); err != nil {
			observability.LoggerFromContext(ctx).Warn().Err(err).Str("identity", identity).Msg("ratelimit: stale field cleanup failed")
		}
	}

	allowed := used < limit
	info.CurrentUsage = used
	if allowed {
		wField := strconv.FormatInt(w.Unix(), 10)
		if _, err := l.store.HIncrBy(ctx, key, wField, 1); err != nil {
			return l.failOpen(tier, limit, window, w, sub, err)
		}
		if err := l.store.Expire(ctx, key, window+l.cfg.ExpireBuffer); err != nil {
			observability.LoggerFromContext(ctx).Warn().Err(err).Str("identity", identity).Msg("ratelimit: expire refresh failed")
		}
		info.CurrentUsage = used + 1
	}
	info.Allowed = allowed
	info.Remaining = limit - info.CurrentUsage
	if info.Remaining < 0 {
		info.Remaining = 0
	}

	l.record(tier, !allowed)
	return info
}

func (l *Limiter) failOpen(tier string, limit int, window time.Duration, w time.Time, sub time.Duration, err error) Info {
	log.Error().Err(err).Str("tier", tier).Msg("ratelimit: store error, failing open")
	info := Info{
		Allowed:        true,
		Tier:           tier,
		Limit:          limit,
		WindowDuration: window,
		ResetTime:      w.Add(sub),
		StoreError:     true,
	}
	info.ResetInSeconds = int(time.Until(info.ResetTime).Seconds())
	if info.ResetInSeconds < 0 {
		info.ResetInSeconds = 0
	}
	l.record(tier, false)
	return info
}

func (l *Limiter) record(tier string, blocked bool) {
	l.mu.Lock()
	l.totalRequests++
	l.requestsByTier[tier]++
	if blocked {
		l.blockedRequests++
		l.blockedByTier[tier]++
	}
	l.mu.Unlock()

	l.metrics.IncCounter("ratelimit_requests_total", map[string]string{"tier": tier})
	if blocked {
		l.metrics.IncCounter("ratelimit_blocked_total", map[string]string{"tier": tier})
	}
}

// Stats is the process-local rate-limiting statistics snapshot.
type Stats struct {
	TotalRequests   int64
	BlockedRequests int64
	BlockRate       float64
	RequestsByTier  map[string]int64
	BlockedByTier   map[string]int64
	UptimeHours     float64
}

// Statistics returns a snapshot of process-local counters.
func (l *Limiter) Statistics() Stats {
	l.mu.Lock()
	defer l.mu.Unlock()

	denom := l.totalRequests
	if denom == 0 {
		denom = 1
	}
	byTier := make(map[string]int64, len(l.requestsByTier))
	for k, v := range l.requestsByTier {
		byTier[k] = v
	}
	blockedByTier := make(map[string]int64, len(l.blockedByTier))
	for k, v := range l.blockedByTier {
		blockedByTier[k] = v
	}
	return Stats{
		TotalRequests:   l.totalRequests,
		BlockedRequests: l.blockedRequests,
		BlockRate:       float64(l.blockedRequests) / float64(denom),
		RequestsByTier:  byTier,
		BlockedByTier:   blockedByTier,
		UptimeHours:     time.Since(l.startedAt).Hours(),
	}
}

// SubWindowUsage is a single sub-window bucket within the sliding window,
// returned by Inspect for administrative/debugging surfaces.
type SubWindowUsage struct {
	WindowStart time.Time
	Count       int
}

// Inspect returns the current per-sub-window usage breakdown for identity
// without mutating any counters, mirroring the original project's
// debug_rate_limiter.py / manage_rate_limits.py administrative tooling.
func (l *Limiter) Inspect(ctx context.Context, identity string) ([]SubWindowUsage, error) {
	fields, err := l.store.HGetAll(ctx, rateLimitKey(identity))
	if err != nil {
		return nil, fmt.Errorf("ratelimit: inspect %s: %w", identity, err)
	}
	out := make([]SubWindowUsage, 0, len(fields))
	for fieldStr, valStr := range fields {
		fieldUnix, perr := strconv.ParseInt(fieldStr, 10, 64)
		if perr != nil {
			continue
		}
		n, _ := strconv.Atoi(valStr)
		out = append(out, SubWindowUsage{WindowStart: time.Unix(fieldUnix, 0).UTC(), Count: n})
	}
	return out, nil
}

// ResetTier clears an identity's tier assignment, falling back to the
// configured default tier on the next check.
func (l *Limiter) ResetTier(ctx context.Context, identity string) error {
	return l.store.Del(ctx, userTierKey(identity))
}
