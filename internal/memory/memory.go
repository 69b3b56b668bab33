// Package memory implements the fixed-window conversation buffer (C5):
// the active in-process window of recent turns plus durable persistence
// through the shared kvstore. Grounded on the original project's
// ConversationBufferMemory usage in src/db/services/llm_service.py (a
// fixed-size deque rehydrated from a session store) and the teacher's
// interface/impl split for store-backed components.
package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/jamesfry/footballgpt/internal/kvstore"
)

// Role tags a turn's speaker.
type Role string

const (
	RoleHuman Role = "human"
	RoleAI    Role = "ai"
)

// Turn is a single conversational exchange entry.
type Turn struct {
	Type      Role      `json:"type"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

// Buffer is a fixed-window, store-backed conversation memory for a single
// conversation id. It is safe for concurrent use.
type Buffer struct {
	store kvstore.Store
	id    string
	k     int
	ttl   time.Duration

	mu     sync.Mutex
	window []Turn
}

// New constructs a Buffer for conversation id, keeping at most k turns
// active and persisting durably with the given TTL.
func New(store kvstore.Store, id string, k int, ttl time.Duration) *Buffer {
	if k <= 0 {
		k = 10
	}
	return &Buffer{store: store, id: id, k: k, ttl: ttl}
}

func conversationKey(id string) string {
	return "conversation:" + id
}

// Load rehydrates the active window from durable storage. A missing or
// expired key yields an empty buffer without error.
func (b *Buffer) Load(ctx context.Context) error {
	raw, ok, err := b.store.Get(ctx, conversationKey(b.id))
	if err != nil {
		return fmt.Errorf("memory: load %s: %w", b.id, err)
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if !ok {
		b.window = nil
		return nil
	}
	var turns []Turn
	if err := json.Unmarshal([]byte(raw), &turns); err != nil {
		b.window = nil
		return nil
	}
	b.window = trimToK(turns, b.k)
	return nil
}

// Append adds a turn to the active window, evicting the oldest entry past
// the K-turn limit.
func (b *Buffer) Append(turn Turn) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.window = append(b.window, turn)
	b.window = trimToK(b.window, b.k)
}

func trimToK(turns []Turn, k int) []Turn {
	if len(turns) <= k {
		return turns
	}
	return append([]Turn(nil), turns[len(turns)-k:]...)
}

// Recent returns the last n turns (or fewer if the window is shorter).
func (b *Buffer) Recent(n int) []Turn {
	b.mu.Lock()
	defer b.mu.Unlock()
	if n <= 0 || n > len(b.window) {
		n = len(b.window)
	}
	out := make([]Turn, n)
	copy(out, b.window[len(b.window)-n:])
	return out
}

// Clear empties the active window without touching durable storage.
func (b *Buffer) Clear() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.window = nil
}

// Serialise returns the active window as its durable JSON representation.
func (b *Buffer) Serialise() ([]byte, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return json.Marshal(b.window)
}

// Persist writes the full active window to durable storage with the
// configured TTL, called after each assistant response.
func (b *Buffer) Persist(ctx context.Context) error {
	data, err := b.Serialise()
	if err != nil {
		return fmt.Errorf("memory: serialise %s: %w", b.id, err)
	}
	if err := b.store.SetEX(ctx, conversationKey(b.id), string(data), b.ttl); err != nil {
		return fmt.Errorf("memory: persist %s: %w", b.id, err)
	}
	return nil
}

// ContextString builds the deterministic rolling-context serialisation C4
// uses in its cache-key derivation: up to the last `limit` turns, each
// rendered as "T:content[0:100]" (T is "H" for human, "A" for ai), joined
// with "|".
func (b *Buffer) ContextString(limit int) string {
	return ContextString(b.Recent(limit), limit)
}

// ContextString renders turns the same way Buffer.ContextString does, as a
// free function so callers holding a turn slice (rather than a live Buffer)
// can derive the identical context fingerprint.
func ContextString(turns []Turn, limit int) string {
	if limit <= 0 || limit > len(turns) {
		limit = len(turns)
	}
	start := len(turns) - limit
	parts := make([]string, 0, limit)
	for _, t := range turns[start:] {
		tag := "A"
		if t.Type == RoleHuman {
			tag = "H"
		}
		content := t.Content
		if len(content) > 100 {
			content = content[:100]
		}
		parts = append(parts, tag+":"+content)
	}
	out := ""
	for i, p := range parts {
		if i > 0 {
			out += "|"
		}
		out += p
	}
	return out
}
