package providers

import (
	"context"
	"encoding/json"
	"log/slog"
)

const (
	dashscopeDefaultBase  = "https://dashscope-intl.aliyuncs.com/compatible-mode/v1"
	dashscopeDefaultModel = "qwen3-max"
)

// DashScopeProvider wraps OpenAIProvider for DashScope's compatible-mode
// endpoint. DashScope does not support tools and streaming simultaneously;
// when tools are bound, ChatStream falls back to a blocking Chat and
// synthesizes the chunk sequence.
type DashScopeProvider struct {
	*OpenAIProvider
}

func NewDashScopeProvider(apiKey, apiBase, defaultModel string) *DashScopeProvider {
	if apiBase == "" {
		apiBase = dashscopeDefaultBase
	}
	if defaultModel == "" {
		defaultModel = dashscopeDefaultModel
	}
	return &DashScopeProvider{
		OpenAIProvider: NewOpenAIProvider("dashscope", apiKey, apiBase, defaultModel),
	}
}

func (p *DashScopeProvider) Name() string { return "dashscope" }

func (p *DashScopeProvider) ChatStream(ctx context.Context, req ChatRequest, onChunk func(StreamChunk)) error {
	if len(req.Tools) == 0 {
		return p.OpenAIProvider.ChatStream(ctx, req, onChunk)
	}

	slog.Debug("dashscope: tools bound, falling back to blocking chat")
	resp, err := p.Chat(ctx, req)
	if err != nil {
		return err
	}
	if onChunk == nil {
		return nil
	}

	if resp.Content != "" {
		onChunk(StreamChunk{Content: resp.Content})
	}
	if len(resp.ToolCalls) > 0 {
		// Re-emit assembled calls as single-fragment deltas so the
		// consumer's accumulator sees a uniform stream shape.
		chunk := StreamChunk{}
		for i, tc := range resp.ToolCalls {
			args := []byte("{}")
			if len(tc.Arguments) > 0 {
				if raw, err := json.Marshal(tc.Arguments); err == nil {
					args = raw
				}
			}
			chunk.ToolCallDeltas = append(chunk.ToolCallDeltas, ToolCallDelta{
				Index:             i,
				ID:                tc.ID,
				Name:              tc.Name,
				ArgumentsFragment: string(args),
			})
		}
		onChunk(chunk)
	}
	onChunk(StreamChunk{FinishReason: resp.FinishReason, Done: true})
	return nil
}
