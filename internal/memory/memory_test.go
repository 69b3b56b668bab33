package memory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/jamesfry/footballgpt/internal/kvstore"
)

func TestBufferAppendTrimsToK(t *testing.T) {
	store := kvstore.NewMemoryStore()
	b := New(store, "conv-1", 2, time.Hour)

	b.Append(Turn{Type: RoleHuman, Content: "one"})
	b.Append(Turn{Type: RoleAI, Content: "two"})
	b.Append(Turn{Type: RoleHuman, Content: "three"})

	recent := b.Recent(10)
	require.Len(t, recent, 2)
	require.Equal(t, "two", recent[0].Content)
	require.Equal(t, "three", recent[1].Content)
}

func TestBufferPersistAndLoad(t *testing.T) {
	ctx := context.Background()
	store := kvstore.NewMemoryStore()
	b := New(store, "conv-2", 10, time.Hour)
	b.Append(Turn{Type: RoleHuman, Content: "hello"})
	b.Append(Turn{Type: RoleAI, Content: "hi there"})
	require.NoError(t, b.Persist(ctx))

	b2 := New(store, "conv-2", 10, time.Hour)
	require.NoError(t, b2.Load(ctx))
	recent := b2.Recent(10)
	require.Len(t, recent, 2)
	require.Equal(t, "hello", recent[0].Content)
}

func TestBufferLoadMissingKeyYieldsEmptyBuffer(t *testing.T) {
	ctx := context.Background()
	store := kvstore.NewMemoryStore()
	b := New(store, "conv-missing", 10, time.Hour)
	require.NoError(t, b.Load(ctx))
	require.Empty(t, b.Recent(10))
}

func TestBufferClear(t *testing.T) {
	b := New(kvstore.NewMemoryStore(), "conv-3", 10, time.Hour)
	b.Append(Turn{Type: RoleHuman, Content: "hi"})
	b.Clear()
	require.Empty(t, b.Recent(10))
}

func TestContextStringFormatsTypeTagAndTruncates(t *testing.T) {
	long := make([]byte, 150)
	for i := range long {
		long[i] = 'x'
	}
	turns := []Turn{
		{Type: RoleHuman, Content: string(long)},
		{Type: RoleAI, Content: "short reply"},
	}
	ctxStr := ContextString(turns, 3)
	require.Contains(t, ctxStr, "H:"+string(long[:100]))
	require.Contains(t, ctxStr, "A:short reply")
	require.Contains(t, ctxStr, "|")
}

func TestContextStringLimitsToLastNTurns(t *testing.T) {
	turns := []Turn{
		{Type: RoleHuman, Content: "a"},
		{Type: RoleAI, Content: "b"},
		{Type: RoleHuman, Content: "c"},
		{Type: RoleAI, Content: "d"},
	}
	ctxStr := ContextString(turns, 3)
	require.Equal(t, "A:b|H:c|A:d", ctxStr)
}

func TestContextStringEmptyWhenNoTurns(t *testing.T) {
	require.Equal(t, "", ContextString(nil, 3))
}
