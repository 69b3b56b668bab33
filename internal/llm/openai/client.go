// Package openai adapts the OpenAI chat and embeddings APIs to this
// module's contracts: llm.Provider for the fallback chat path, and Embedder
// for C9's vector-ingestion worker. Grounded on the teacher's
// internal/llm/embeddings.go (bounded-concurrency embedding fan-out),
// re-expressed over github.com/openai/openai-go/v2 instead of raw HTTP
// since the SDK is already part of this module's stack.
package openai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/openai/openai-go/v2"
	"github.com/openai/openai-go/v2/option"

	"github.com/jamesfry/footballgpt/internal/apperrors"
	"github.com/jamesfry/footballgpt/internal/config"
	"github.com/jamesfry/footballgpt/internal/llm"
	"github.com/jamesfry/footballgpt/internal/observability"
)

// maxEmbedConcurrency bounds simultaneous embedding requests, matching the
// teacher's embeddings.go semaphore of 5.
const maxEmbedConcurrency = 5

// Client is an llm.Provider and Embedder backed by the OpenAI API.
type Client struct {
	sdk            openai.Client
	chatModel      string
	embeddingModel string
}

// New builds a Client from the resolved OpenAI config.
func New(cfg config.OpenAIConfig, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	opts := []option.RequestOption{
		option.WithAPIKey(strings.TrimSpace(cfg.APIKey)),
		option.WithHTTPClient(httpClient),
	}
	if base := strings.TrimSpace(cfg.BaseURL); base != "" {
		opts = append(opts, option.WithBaseURL(strings.TrimSuffix(base, "/")))
	}

	chatModel := strings.TrimSpace(cfg.ChatModel)
	if chatModel == "" {
		chatModel = openai.ChatModelGPT4oMini
	}
	embeddingModel := strings.TrimSpace(cfg.EmbeddingModel)
	if embeddingModel == "" {
		embeddingModel = openai.EmbeddingModelTextEmbedding3Small
	}

	return &Client{
		sdk:            openai.NewClient(opts...),
		chatModel:      chatModel,
		embeddingModel: embeddingModel,
	}
}

func (c *Client) pickModel(model string) string {
	if m := strings.TrimSpace(model); m != "" {
		return m
	}
	return c.chatModel
}

func (c *Client) Chat(ctx context.Context, msgs []llm.Message, tools []llm.ToolSchema, model string) (llm.Message, error) {
	params := openai.ChatCompletionNewParams{
		Model:    c.pickModel(model),
		Messages: adaptMessages(msgs),
		Tools:    adaptTools(tools),
	}

	log := observability.LoggerFromContext(ctx)
	start := time.Now()
	resp, err := c.sdk.Chat.Completions.New(ctx, params)
	dur := time.Since(start)
	if err != nil {
		log.Error().Err(err).Str("model", params.Model).Dur("duration", dur).Msg("openai_chat_error")
		return llm.Message{}, err
	}
	if len(resp.Choices) == 0 {
		return llm.Message{}, fmt.Errorf("openai provider: empty choices")
	}

	out := messageFromChoice(resp.Choices[0])
	log.Debug().Str("model", params.Model).Dur("duration", dur).Msg("openai_chat_ok")
	return out, nil
}

func (c *Client) ChatStream(ctx context.Context, msgs []llm.Message, tools []llm.ToolSchema, model string, h llm.StreamHandler) error {
	params := openai.ChatCompletionNewParams{
		Model:    c.pickModel(model),
		Messages: adaptMessages(msgs),
		Tools:    adaptTools(tools),
	}

	log := observability.LoggerFromContext(ctx)
	stream := c.sdk.Chat.Completions.NewStreaming(ctx, params)
	defer stream.Close()

	toolBuffers := map[int64]*toolBuffer{}
	hasDelta := false

	for stream.Next() {
		chunk := stream.Current()
		if len(chunk.Choices) == 0 {
			continue
		}
		choice := chunk.Choices[0]
		if choice.Delta.Content != "" && h != nil {
			h.OnDelta(choice.Delta.Content)
			hasDelta = true
		}
		for _, tc := range choice.Delta.ToolCalls {
			tb := toolBuffers[tc.Index]
			if tb == nil {
				tb = &toolBuffer{id: tc.ID, name: tc.Function.Name}
				toolBuffers[tc.Index] = tb
			}
			if tc.ID != "" {
				tb.id = tc.ID
			}
			if tc.Function.Name != "" {
				tb.name = tc.Function.Name
			}
			tb.args.WriteString(tc.Function.Arguments)
		}
	}
	if err := stream.Err(); err != nil {
		log.Error().Err(err).Str("model", params.Model).Msg("openai_stream_error")
		return err
	}

	if h != nil {
		for i := int64(0); i < int64(len(toolBuffers)); i++ {
			if tb := toolBuffers[i]; tb != nil {
				h.OnToolCall(tb.toToolCall())
			}
		}
	}
	_ = hasDelta
	return nil
}

type toolBuffer struct {
	id   string
	name string
	args strings.Builder
}

func (tb *toolBuffer) toToolCall() llm.ToolCall {
	raw := strings.TrimSpace(tb.args.String())
	if raw == "" {
		raw = "{}"
	}
	if !json.Valid([]byte(raw)) {
		raw = "{}"
	}
	return llm.ToolCall{Name: tb.name, ID: tb.id, Args: json.RawMessage(raw)}
}

func adaptMessages(msgs []llm.Message) []openai.ChatCompletionMessageParamUnion {
	out := make([]openai.ChatCompletionMessageParamUnion, 0, len(msgs))
	for _, m := range msgs {
		switch strings.ToLower(strings.TrimSpace(m.Role)) {
		case "system":
			out = append(out, openai.SystemMessage(m.Content))
		case "user":
			out = append(out, openai.UserMessage(m.Content))
		case "assistant":
			if len(m.ToolCalls) == 0 {
				out = append(out, openai.AssistantMessage(m.Content))
				continue
			}
			calls := make([]openai.ChatCompletionMessageToolCallParam, 0, len(m.ToolCalls))
			for _, tc := range m.ToolCalls {
				calls = append(calls, openai.ChatCompletionMessageToolCallParam{
					ID: tc.ID,
					Function: openai.ChatCompletionMessageToolCallFunctionParam{
						Name:      tc.Name,
						Arguments: string(tc.Args),
					},
				})
			}
			asst := openai.ChatCompletionAssistantMessageParam{
				ToolCalls: calls,
			}
			if m.Content != "" {
				asst.Content.OfString = openai.String(m.Content)
			}
			out = append(out, openai.ChatCompletionMessageParamUnion{OfAssistant: &asst})
		case "tool":
			out = append(out, openai.ToolMessage(m.Content, m.ToolID))
		}
	}
	return out
}

func adaptTools(tools []llm.ToolSchema) []openai.ChatCompletionToolParam {
	if len(tools) == 0 {
		return nil
	}
	out := make([]openai.ChatCompletionToolParam, 0, len(tools))
	for _, t := range tools {
		out = append(out, openai.ChatCompletionToolParam{
			Function: openai.FunctionDefinitionParam{
				Name:        t.Name,
				Description: openai.String(t.Description),
				Parameters:  t.Parameters,
			},
		})
	}
	return out
}

func messageFromChoice(choice openai.ChatCompletionChoice) llm.Message {
	msg := llm.Message{Role: "assistant", Content: choice.Message.Content}
	if len(choice.Message.ToolCalls) > 0 {
		calls := make([]llm.ToolCall, 0, len(choice.Message.ToolCalls))
		for _, tc := range choice.Message.ToolCalls {
			calls = append(calls, llm.ToolCall{
				Name: tc.Function.Name,
				ID:   tc.ID,
				Args: json.RawMessage(tc.Function.Arguments),
			})
		}
		msg.ToolCalls = calls
	}
	return msg
}

// Embed generates one embedding vector per input text, matching the
// teacher's bounded-concurrency fan-out (5 simultaneous requests) but
// issuing single-item batches through the SDK's Embeddings endpoint rather
// than raw HTTP. A text shorter than 10 bytes after trimming is skipped and
// receives a zero vector, matching the original's treatment of
// too-short-to-embed chunks. If any request fails, Embed returns that
// error and no vectors; an HTTP 429 from the API is wrapped in
// apperrors.ErrEmbeddingRateLimited.
func (c *Client) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	dim := 1536
	results := make([][]float32, len(texts))
	var wg sync.WaitGroup
	var errOnce sync.Once
	var firstErr error
	sem := make(chan struct{}, maxEmbedConcurrency)
	log := observability.LoggerFromContext(ctx)

	for i, text := range texts {
		wg.Add(1)
		go func(i int, text string) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			if len(strings.TrimSpace(text)) < 10 {
				results[i] = make([]float32, dim)
				return
			}

			resp, err := c.sdk.Embeddings.New(ctx, openai.EmbeddingNewParams{
				Model: c.embeddingModel,
				Input: openai.EmbeddingNewParamsInputUnion{OfString: openai.String(text)},
			})
			if err != nil || len(resp.Data) == 0 {
				if err == nil {
					err = errors.New("openai provider: empty embedding response")
				}
				var apiErr *openai.Error
				if errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusTooManyRequests {
					err = fmt.Errorf("%w: %v", apperrors.ErrEmbeddingRateLimited, err)
				}
				log.Warn().Err(err).Int("index", i).Msg("openai_embed_error")
				errOnce.Do(func() { firstErr = err })
				return
			}

			vec := make([]float32, len(resp.Data[0].Embedding))
			for j, v := range resp.Data[0].Embedding {
				vec[j] = float32(v)
			}
			results[i] = vec
		}(i, text)
	}

	wg.Wait()
	if firstErr != nil {
		return nil, firstErr
	}
	return results, nil
}
