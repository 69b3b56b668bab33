// Package llm defines the provider-agnostic chat/streaming contract the
// orchestrator (C7) drives: a Provider implementation turns a message
// history plus tool schemas into either a single reply or a stream of
// deltas and tool calls.
package llm

import (
	"context"
	"encoding/json"
)

// ToolCall is a single function invocation requested by the model.
type ToolCall struct {
	Name string
	Args json.RawMessage
	ID   string
}

// GeneratedImage represents an image payload returned by the model. Data
// holds the raw bytes (already decoded from base64); MIMEType is a valid
// image MIME such as image/png.
type GeneratedImage struct {
	Data     []byte
	MIMEType string
}

// Message is one turn in the conversation sent to or received from the
// provider.
type Message struct {
	Role    string // "system" | "user" | "assistant" | "tool"
	Content string
	ToolID  string
	// ToolCalls are only set on assistant messages.
	ToolCalls []ToolCall
	// Images captures inline image payloads returned by the provider.
	Images []GeneratedImage
}

// ToolSchema describes a tool the model may call, translated from
// internal/tools' registry entries.
type ToolSchema struct {
	Name        string
	Description string
	Parameters  map[string]any
}

// StreamHandler receives incremental output during ChatStream.
type StreamHandler interface {
	OnDelta(content string)
	OnToolCall(tc ToolCall)
	OnImage(img GeneratedImage)
}

// Provider is a chat completion backend (Anthropic primary, OpenAI
// fallback).
type Provider interface {
	Chat(ctx context.Context, msgs []Message, tools []ToolSchema, model string) (Message, error)
	ChatStream(ctx context.Context, msgs []Message, tools []ToolSchema, model string, h StreamHandler) error
}
