package ratelimit

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/jamesfry/footballgpt/internal/config"
	"github.com/jamesfry/footballgpt/internal/kvstore"
)

func testConfig() config.RateLimitConfig {
	return config.RateLimitConfig{
		Tiers:          config.TierQuotas{Free: 3, Premium: 500, Admin: 10000},
		WindowDuration: 24 * time.Hour,
		SubWindow:      time.Hour,
		ExpireBuffer:   time.Hour,
		DefaultTier:    "free",
	}
}

func TestCheckAllowsUnderQuotaAndBlocksAtLimit(t *testing.T) {
	ctx := context.Background()
	store := kvstore.NewMemoryStore()
	lim := New(store, testConfig())

	for i := 0; i < 3; i++ {
		info := lim.Check(ctx, "user-a")
		require.True(t, info.Allowed)
		require.Equal(t, i+1, info.CurrentUsage)
		require.Equal(t, 3, info.Limit)
	}

	info := lim.Check(ctx, "user-a")
	require.False(t, info.Allowed)
	require.Equal(t, 3, info.CurrentUsage)
	require.Equal(t, 0, info.Remaining)
}

func TestCheckIsPerIdentity(t *testing.T) {
	ctx := context.Background()
	store := kvstore.NewMemoryStore()
	lim := New(store, testConfig())

	for i := 0; i < 3; i++ {
		require.True(t, lim.Check(ctx, "user-a").Allowed)
	}
	require.False(t, lim.Check(ctx, "user-a").Allowed)
	require.True(t, lim.Check(ctx, "user-b").Allowed)
}

func TestCheckUsesStoredTierQuota(t *testing.T) {
	ctx := context.Background()
	store := kvstore.NewMemoryStore()
	lim := New(store, testConfig())

	require.NoError(t, lim.SetTier(ctx, "vip", "premium"))
	info := lim.Check(ctx, "vip")
	require.Equal(t, "premium", info.Tier)
	require.Equal(t, 500, info.Limit)
}

func TestCheckFailsOpenOnStoreError(t *testing.T) {
	ctx := context.Background()
	lim := New(erroringStore{}, testConfig())

	info := lim.Check(ctx, "user-a")
	require.True(t, info.Allowed)
	require.True(t, info.StoreError)
}

func TestInspectReturnsSubWindowBreakdown(t *testing.T) {
	ctx := context.Background()
	store := kvstore.NewMemoryStore()
	lim := New(store, testConfig())

	require.True(t, lim.Check(ctx, "user-a").Allowed)
	usage, err := lim.Inspect(ctx, "user-a")
	require.NoError(t, err)
	require.Len(t, usage, 1)
	require.Equal(t, 1, usage[0].Count)
}

func TestResetTierFallsBackToDefault(t *testing.T) {
	ctx := context.Background()
	store := kvstore.NewMemoryStore()
	lim := New(store, testConfig())

	require.NoError(t, lim.SetTier(ctx, "u", "premium"))
	require.Equal(t, "premium", lim.Tier(ctx, "u"))
	require.NoError(t, lim.ResetTier(ctx, "u"))
	require.Equal(t, "free", lim.Tier(ctx, "u"))
}

func TestStatisticsTracksBlockRate(t *testing.T) {
	ctx := context.Background()
	store := kvstore.NewMemoryStore()
	lim := New(store, testConfig())

	for i := 0; i < 4; i++ {
		lim.Check(ctx, "user-a")
	}
	stats := lim.Statistics()
	require.EqualValues(t, 4, stats.TotalRequests)
	require.EqualValues(t, 1, stats.BlockedRequests)
	require.Equal(t, 0.25, stats.BlockRate)
}

// erroringStore implements kvstore.Store and fails every call, to exercise
// the fail-open path.
type erroringStore struct{}

func (erroringStore) Ping(ctx context.Context) error { return errors.New("down") }
func (erroringStore) Get(ctx context.Context, key string) (string, bool, error) {
	return "", false, errors.New("down")
}
func (erroringStore) SetEX(ctx context.Context, key, value string, ttl time.Duration) error {
	return errors.New("down")
}
func (erroringStore) Del(ctx context.Context, key string) error { return errors.New("down") }
func (erroringStore) Expire(ctx context.Context, key string, ttl time.Duration) error {
	return errors.New("down")
}
func (erroringStore) HIncrBy(ctx context.Context, key, field string, delta int64) (int64, error) {
	return 0, errors.New("down")
}
func (erroringStore) HGetAll(ctx context.Context, key string) (map[string]string, error) {
	return nil, errors.New("down")
}
func (erroringStore) HDel(ctx context.Context, key string, fields ...string) error {
	return errors.New("down")
}
func (erroringStore) Scan(ctx context.Context, cursor uint64, pattern string, batchSize int64) ([]string, uint64, error) {
	return nil, 0, errors.New("down")
}
func (erroringStore) Close() error { return nil }

var _ kvstore.Store = erroringStore{}
