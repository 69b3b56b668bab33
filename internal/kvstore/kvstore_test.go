package kvstore

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestMemoryStoreGetSetEX(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	_, ok, err := s.Get(ctx, "missing")
	require.NoError(t, err)
	require.False(t, ok)

	require.NoError(t, s.SetEX(ctx, "k", "v", 0))
	v, ok, err := s.Get(ctx, "k")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "v", v)

	require.NoError(t, s.SetEX(ctx, "k2", "v2", 10*time.Millisecond))
	time.Sleep(20 * time.Millisecond)
	_, ok, err = s.Get(ctx, "k2")
	require.NoError(t, err)
	require.False(t, ok)
}

func TestMemoryStoreDelAndExpire(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	require.NoError(t, s.SetEX(ctx, "k", "v", 0))
	require.NoError(t, s.Del(ctx, "k"))
	_, ok, err := s.Get(ctx, "k")
	require.NoError(t, err)
	require.False(t, ok)

	require.NoError(t, s.SetEX(ctx, "k", "v", time.Hour))
	require.NoError(t, s.Expire(ctx, "k", 10*time.Millisecond))
	time.Sleep(20 * time.Millisecond)
	_, ok, err = s.Get(ctx, "k")
	require.NoError(t, err)
	require.False(t, ok)
}

func TestMemoryStoreHIncrByAtomicity(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	n, err := s.HIncrBy(ctx, "rl:user1", "12", 1)
	require.NoError(t, err)
	require.EqualValues(t, 1, n)

	done := make(chan struct{})
	for i := 0; i < 50; i++ {
		go func() {
			_, _ = s.HIncrBy(ctx, "rl:user1", "12", 1)
			done <- struct{}{}
		}()
	}
	for i := 0; i < 50; i++ {
		<-done
	}

	all, err := s.HGetAll(ctx, "rl:user1")
	require.NoError(t, err)
	require.Equal(t, "51", all["12"])
}

func TestMemoryStoreHGetAllAndHDel(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	_, err := s.HIncrBy(ctx, "h", "a", 3)
	require.NoError(t, err)
	_, err = s.HIncrBy(ctx, "h", "b", 4)
	require.NoError(t, err)

	all, err := s.HGetAll(ctx, "h")
	require.NoError(t, err)
	require.Equal(t, map[string]string{"a": "3", "b": "4"}, all)

	require.NoError(t, s.HDel(ctx, "h", "a"))
	all, err = s.HGetAll(ctx, "h")
	require.NoError(t, err)
	require.Equal(t, map[string]string{"b": "4"}, all)
}

func TestMemoryStoreScanPagination(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	for _, k := range []string{"cache:factual:a", "cache:news:b", "cache:factual:c", "other:d"} {
		require.NoError(t, s.SetEX(ctx, k, "v", 0))
	}

	var gathered []string
	cursor := uint64(0)
	for {
		keys, next, err := s.Scan(ctx, cursor, "cache:*", 1)
		require.NoError(t, err)
		gathered = append(gathered, keys...)
		if next == 0 {
			break
		}
		cursor = next
	}
	require.ElementsMatch(t, []string{"cache:factual:a", "cache:news:b", "cache:factual:c"}, gathered)
}

func TestMemoryStorePingAndClose(t *testing.T) {
	s := NewMemoryStore()
	require.NoError(t, s.Ping(context.Background()))
	require.NoError(t, s.Close())
}

var _ Store = (*MemoryStore)(nil)
