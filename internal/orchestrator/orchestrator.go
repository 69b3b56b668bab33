// Package orchestrator implements the LLM Orchestrator (C7): the
// request-level procedure that ties the query classifier, response cache,
// conversation memory, tool registry, and chat provider into a single
// streamed reply. Grounded on original_source/src/db/services/
// llm_service.py's LLMChatService.chat (classify → cache-consult →
// agent-or-direct-call → cache-write → final_response/error events) and
// the teacher's internal/llm/anthropic/client.go streaming/tool-call
// accumulation pattern, generalized behind llm.Provider/llm.StreamHandler.
package orchestrator

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/jamesfry/footballgpt/internal/cache"
	"github.com/jamesfry/footballgpt/internal/classifier"
	"github.com/jamesfry/footballgpt/internal/config"
	"github.com/jamesfry/footballgpt/internal/kvstore"
	"github.com/jamesfry/footballgpt/internal/llm"
	"github.com/jamesfry/footballgpt/internal/memory"
	"github.com/jamesfry/footballgpt/internal/observability"
	"github.com/jamesfry/footballgpt/internal/tools"
)

// maxToolIterations bounds the tool-call loop, matching the original
// agent's max_iterations=3 with early_stopping_method="generate".
const maxToolIterations = 3

// cacheContextTurns is the number of prior turns folded into the cache-key
// fingerprint, fixed independently of C5's active-memory window
// (config.MemoryWindow): original_source/src/db/services/llm_service.py:230-251
// hardcodes messages[-3:] for this same purpose.
const cacheContextTurns = 3

const systemPrompt = `You are a knowledgeable football analyst and expert assistant. Use the available tools to search for up-to-date news, player information, and fantasy football analysis. Cite sources when you rely on a tool result. Be transparent when you lack current information.`

// EventType tags a control event emitted alongside streamed tokens.
type EventType string

const (
	EventCacheHit      EventType = "cache_hit"
	EventCacheMiss     EventType = "cache_miss"
	EventNoCache       EventType = "no_cache"
	EventFinalResponse EventType = "final_response"
	EventError         EventType = "error"
)

// Event is a control message the orchestrator emits to a Sink in addition
// to token chunks, carrying classification/cache metadata or the final
// outcome of a turn.
type Event struct {
	Type       EventType
	Category   string
	TTLSeconds float64
	Content    string
}

// Sink receives streamed output. Token is called once per chunk (word, in
// the cache-hit replay path; provider-defined deltas on a cache miss).
// Emit is called for control events. Both are optional no-ops from the
// caller's perspective — a nil Sink is never passed to Respond; callers
// that don't need streaming use a Sink that discards tokens.
type Sink interface {
	Token(content string)
	Emit(Event)
}

// DiscardSink implements Sink by dropping everything, for callers that
// only want the final accumulated string.
type DiscardSink struct{}

func (DiscardSink) Token(string)  {}
func (DiscardSink) Emit(Event) {}

// Orchestrator wires C2–C6 around a chat provider to answer one turn at a
// time. Tools may be nil, in which case every turn falls back to a direct
// LLM call with no tool use, matching spec.md §4.7's fallback clause.
type Orchestrator struct {
	provider llm.Provider
	model    string
	kv       kvstore.Store
	cache    *cache.Cache
	tools    *tools.Registry
	window   int
	convTTL  time.Duration
	cacheTTL config.CacheTTLConfig
}

// New builds an Orchestrator. tools may be nil (direct-call fallback).
func New(provider llm.Provider, model string, kv kvstore.Store, c *cache.Cache, reg *tools.Registry, cfg config.Config) *Orchestrator {
	window := cfg.MemoryWindow
	if window <= 0 {
		window = 10
	}
	return &Orchestrator{
		provider: provider,
		model:    model,
		kv:       kv,
		cache:    c,
		tools:    reg,
		window:   window,
		convTTL:  cfg.ConversationTTL,
		cacheTTL: cfg.CacheTTL,
	}
}

// streamCollector adapts a Sink to llm.StreamHandler while accumulating
// the full text and any requested tool calls.
type streamCollector struct {
	sink      Sink
	text      strings.Builder
	toolCalls []llm.ToolCall
}

func (c *streamCollector) OnDelta(content string) {
	c.text.WriteString(content)
	c.sink.Token(content)
}

func (c *streamCollector) OnToolCall(tc llm.ToolCall) {
	c.toolCalls = append(c.toolCalls, tc)
}

func (c *streamCollector) OnImage(llm.GeneratedImage) {}

// Respond runs the full C7 procedure for one turn and returns the
// complete reply text. conversationID may be empty, in which case a new
// id is minted and memory is not persisted across calls.
func (o *Orchestrator) Respond(ctx context.Context, message, conversationID string, sink Sink) string {
	log := observability.LoggerFromContext(ctx)
	if sink == nil {
		sink = DiscardSink{}
	}
	if conversationID == "" {
		conversationID = uuid.NewString()
	}

	buf := memory.New(o.kv, conversationID, o.window, o.convTTL)
	if err := buf.Load(ctx); err != nil {
		log.Warn().Err(err).Str("conversation_id", conversationID).Msg("memory load failed, starting empty")
	}
	convContext := buf.ContextString(cacheContextTurns)

	cached, hit, cat := o.cache.Get(ctx, message, convContext)
	o.emitCacheEvent(sink, cat, hit)

	if hit {
		replayCached(sink, cached)
		o.appendTurns(ctx, buf, message, cached)
		sink.Emit(Event{Type: EventFinalResponse, Content: cached})
		return cached
	}

	response, err := o.runAgent(ctx, message, buf, sink)
	if err != nil {
		errMsg := fmt.Sprintf("I encountered an error while processing your request: %s", err)
		sink.Token(errMsg)
		o.appendTurns(ctx, buf, message, errMsg)
		sink.Emit(Event{Type: EventError, Content: errMsg})
		return errMsg
	}

	o.appendTurns(ctx, buf, message, response)

	if err := o.cache.Set(ctx, message, convContext, response); err != nil {
		log.Warn().Err(err).Msg("cache write failed")
	}

	sink.Emit(Event{Type: EventFinalResponse, Content: response})
	return response
}

func (o *Orchestrator) emitCacheEvent(sink Sink, cat classifier.Category, hit bool) {
	if cat == classifier.CategoryNoCache {
		sink.Emit(Event{Type: EventNoCache, Category: string(cat)})
		return
	}
	if hit {
		sink.Emit(Event{Type: EventCacheHit, Category: string(cat)})
		return
	}
	sink.Emit(Event{Type: EventCacheMiss, Category: string(cat), TTLSeconds: o.cacheTTLSeconds(cat)})
}

func (o *Orchestrator) cacheTTLSeconds(cat classifier.Category) float64 {
	switch cat {
	case classifier.CategoryFactual:
		return o.cacheTTL.Factual.Seconds()
	case classifier.CategoryNews:
		return o.cacheTTL.News.Seconds()
	case classifier.CategoryOpinion:
		return o.cacheTTL.Opinion.Seconds()
	default:
		return 0
	}
}

// replayCached simulates streaming by splitting the cached reply on
// whitespace with a small inter-token delay (spec.md §4.7 step 2).
func replayCached(sink Sink, cached string) {
	words := strings.Fields(cached)
	for i, w := range words {
		chunk := w
		if i < len(words)-1 {
			chunk += " "
		}
		sink.Token(chunk)
		time.Sleep(10 * time.Millisecond)
	}
}

func (o *Orchestrator) appendTurns(ctx context.Context, buf *memory.Buffer, human, assistant string) {
	now := time.Now().UTC()
	buf.Append(memory.Turn{Type: memory.RoleHuman, Content: human, Timestamp: now})
	buf.Append(memory.Turn{Type: memory.RoleAI, Content: assistant, Timestamp: now})
	if err := buf.Persist(ctx); err != nil {
		observability.LoggerFromContext(ctx).Warn().Err(err).Msg("conversation persist failed")
	}
}

// runAgent invokes the provider with the prior memory window and (if
// configured) the tool registry, executing any requested tool calls up to
// maxToolIterations before returning the accumulated text.
func (o *Orchestrator) runAgent(ctx context.Context, message string, buf *memory.Buffer, sink Sink) (string, error) {
	msgs := []llm.Message{{Role: "system", Content: systemPrompt}}
	for _, t := range buf.Recent(o.window) {
		role := "assistant"
		if t.Type == memory.RoleHuman {
			role = "user"
		}
		msgs = append(msgs, llm.Message{Role: role, Content: t.Content})
	}
	msgs = append(msgs, llm.Message{Role: "user", Content: message})

	var schemas []llm.ToolSchema
	if o.tools != nil {
		schemas = o.tools.Schemas()
	}

	var final strings.Builder
	for iter := 0; iter < maxToolIterations; iter++ {
		collector := &streamCollector{sink: sink}
		if err := o.provider.ChatStream(ctx, msgs, schemas, o.model, collector); err != nil {
			return "", err
		}
		final.WriteString(collector.text.String())

		if len(collector.toolCalls) == 0 || o.tools == nil {
			break
		}

		msgs = append(msgs, llm.Message{Role: "assistant", Content: collector.text.String(), ToolCalls: collector.toolCalls})
		for _, tc := range collector.toolCalls {
			result := o.tools.Execute(ctx, tc.Name, tc.Args)
			msgs = append(msgs, llm.Message{Role: "tool", Content: result, ToolID: tc.ID})
		}
	}

	return final.String(), nil
}
