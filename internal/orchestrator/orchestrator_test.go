package orchestrator

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/jamesfry/footballgpt/internal/cache"
	"github.com/jamesfry/footballgpt/internal/config"
	"github.com/jamesfry/footballgpt/internal/kvstore"
	"github.com/jamesfry/footballgpt/internal/llm"
	"github.com/jamesfry/footballgpt/internal/tools"
)

type recordingSink struct {
	tokens []string
	events []Event
}

func (s *recordingSink) Token(content string) { s.tokens = append(s.tokens, content) }
func (s *recordingSink) Emit(e Event)         { s.events = append(s.events, e) }

func (s *recordingSink) joined() string {
	out := ""
	for _, t := range s.tokens {
		out += t
	}
	return out
}

func (s *recordingSink) hasEvent(t EventType) bool {
	for _, e := range s.events {
		if e.Type == t {
			return true
		}
	}
	return false
}

type scriptedProvider struct {
	replies [][]llm.ToolCall // nil means plain text reply
	texts   []string
	calls   int
	err     error
}

func (p *scriptedProvider) Chat(context.Context, []llm.Message, []llm.ToolSchema, string) (llm.Message, error) {
	return llm.Message{}, errors.New("not used")
}

func (p *scriptedProvider) ChatStream(_ context.Context, _ []llm.Message, _ []llm.ToolSchema, _ string, h llm.StreamHandler) error {
	if p.err != nil {
		return p.err
	}
	idx := p.calls
	p.calls++
	if idx >= len(p.texts) {
		idx = len(p.texts) - 1
	}
	h.OnDelta(p.texts[idx])
	for _, tc := range p.replies[idx] {
		h.OnToolCall(tc)
	}
	return nil
}

var _ llm.Provider = (*scriptedProvider)(nil)

type echoTool struct{ calls int }

func (t *echoTool) Name() string        { return "echo" }
func (t *echoTool) Description() string { return "echoes input" }
func (t *echoTool) ParamName() string   { return "text" }
func (t *echoTool) Execute(_ context.Context, input string) string {
	t.calls++
	return "echoed:" + input
}

func testConfig() config.Config {
	return config.Config{
		MemoryWindow:    10,
		ConversationTTL: time.Hour,
		CacheTTL: config.CacheTTLConfig{
			Factual: 21600 * time.Second,
			News:    7200 * time.Second,
			Opinion: 86400 * time.Second,
		},
	}
}

func TestRespondCacheMissRunsAgentAndCaches(t *testing.T) {
	kv := kvstore.NewMemoryStore()
	c := cache.New(kv, testConfig().CacheTTL)
	provider := &scriptedProvider{texts: []string{"Arsenal are top of the league."}, replies: [][]llm.ToolCall{nil}}

	o := New(provider, "claude-sonnet-4-5", kv, c, nil, testConfig())
	sink := &recordingSink{}

	// Two independent (conversation-less) requests so the cache-key's
	// rolling context component stays empty on both turns.
	out := o.Respond(context.Background(), "what happened in the news today", "", sink)
	require.Equal(t, "Arsenal are top of the league.", out)
	require.True(t, sink.hasEvent(EventCacheMiss))
	require.True(t, sink.hasEvent(EventFinalResponse))

	// Second identical call should hit the cache.
	provider2 := &scriptedProvider{texts: []string{"should not be called"}, replies: [][]llm.ToolCall{nil}}
	o2 := New(provider2, "claude-sonnet-4-5", kv, c, nil, testConfig())
	sink2 := &recordingSink{}
	out2 := o2.Respond(context.Background(), "what happened in the news today", "", sink2)
	require.Equal(t, out, out2)
	require.True(t, sink2.hasEvent(EventCacheHit))
	require.Equal(t, 0, provider2.calls)
}

func TestRespondNoCacheForPersonalisedQueries(t *testing.T) {
	kv := kvstore.NewMemoryStore()
	c := cache.New(kv, testConfig().CacheTTL)
	provider := &scriptedProvider{texts: []string{"Consider transferring in a cheap differential."}, replies: [][]llm.ToolCall{nil}}

	o := New(provider, "claude-sonnet-4-5", kv, c, nil, testConfig())
	sink := &recordingSink{}
	o.Respond(context.Background(), "what should I do with my fpl team this week", "conv-2", sink)
	require.True(t, sink.hasEvent(EventNoCache))
}

func TestRespondExecutesToolCallsWithinBound(t *testing.T) {
	kv := kvstore.NewMemoryStore()
	c := cache.New(kv, testConfig().CacheTTL)
	tool := &echoTool{}
	reg := tools.NewRegistry(tool)

	provider := &scriptedProvider{
		texts: []string{"searching...", "final answer using the tool"},
		replies: [][]llm.ToolCall{
			{{Name: "echo", Args: []byte(`{"text":"hi"}`), ID: "1"}},
			nil,
		},
	}

	o := New(provider, "claude-sonnet-4-5", kv, c, reg, testConfig())
	sink := &recordingSink{}
	out := o.Respond(context.Background(), "find me the latest injury news", "conv-3", sink)

	require.Contains(t, out, "final answer using the tool")
	require.Equal(t, 1, tool.calls)
	require.Equal(t, 2, provider.calls)
}

func TestRespondStopsAfterMaxToolIterations(t *testing.T) {
	kv := kvstore.NewMemoryStore()
	c := cache.New(kv, testConfig().CacheTTL)
	tool := &echoTool{}
	reg := tools.NewRegistry(tool)

	alwaysCall := llm.ToolCall{Name: "echo", Args: []byte(`{"text":"x"}`), ID: "1"}
	provider := &scriptedProvider{
		texts:   []string{"a", "b", "c"},
		replies: [][]llm.ToolCall{{alwaysCall}, {alwaysCall}, {alwaysCall}},
	}

	o := New(provider, "claude-sonnet-4-5", kv, c, reg, testConfig())
	sink := &recordingSink{}
	o.Respond(context.Background(), "latest transfer rumors please", "conv-4", sink)

	require.Equal(t, maxToolIterations, provider.calls)
	require.Equal(t, maxToolIterations, tool.calls)
}

func TestRespondSurfacesProviderErrorWithoutCaching(t *testing.T) {
	kv := kvstore.NewMemoryStore()
	c := cache.New(kv, testConfig().CacheTTL)
	provider := &scriptedProvider{err: errors.New("provider unavailable")}

	o := New(provider, "claude-sonnet-4-5", kv, c, nil, testConfig())
	sink := &recordingSink{}
	out := o.Respond(context.Background(), "latest premier league news", "conv-5", sink)

	require.Contains(t, out, "I encountered an error")
	require.Contains(t, out, "provider unavailable")
	require.True(t, sink.hasEvent(EventError))
	require.False(t, sink.hasEvent(EventFinalResponse))

	// Cache must not have been written.
	_, hit, _ := c.Get(context.Background(), "latest premier league news", "")
	require.False(t, hit)
}

func TestRespondFallsBackToDirectCallWithoutTools(t *testing.T) {
	kv := kvstore.NewMemoryStore()
	c := cache.New(kv, testConfig().CacheTTL)
	provider := &scriptedProvider{texts: []string{"direct reply, no tools used"}, replies: [][]llm.ToolCall{nil}}

	o := New(provider, "claude-sonnet-4-5", kv, c, nil, testConfig())
	sink := &recordingSink{}
	out := o.Respond(context.Background(), "latest football news roundup", "conv-6", sink)

	require.Equal(t, "direct reply, no tools used", out)
	require.Equal(t, 1, provider.calls)
}
