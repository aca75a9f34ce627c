// Package providers defines the provider-agnostic model boundary: the wire
// types an agent exchanges with a language model and the Provider interface
// concrete clients implement.
package providers

import "context"

// Message is one entry of the conversation sent to a provider.
type Message struct {
	Role       string     `json:"role"`
	Content    string     `json:"content"`
	ToolCalls  []ToolCall `json:"tool_calls,omitempty"`
	ToolCallID string     `json:"tool_call_id,omitempty"`
}

// ToolCall is a fully assembled request from the model to invoke a tool.
type ToolCall struct {
	ID        string                 `json:"id"`
	Name      string                 `json:"name"`
	Arguments map[string]interface{} `json:"arguments"`
}

// ToolCallDelta is a partial tool-call fragment carried by a stream chunk.
// Fragments with the same Index belong to the same call; ArgumentsFragment
// pieces concatenate into the call's JSON argument string.
type ToolCallDelta struct {
	Index             int
	ID                string
	Name              string
	ArgumentsFragment string
}

// ToolFunctionSchema describes a callable function to the model.
type ToolFunctionSchema struct {
	Name        string                 `json:"name"`
	Description string                 `json:"description"`
	Parameters  map[string]interface{} `json:"parameters"`
}

// ToolDefinition is the provider wire form of a bound tool.
type ToolDefinition struct {
	Type     string             `json:"type"`
	Function ToolFunctionSchema `json:"function"`
}

// ChatRequest carries the ordered conversation, bound tools, and completion
// configuration for one model invocation.
type ChatRequest struct {
	Messages []Message
	Tools    []ToolDefinition
	Model    string
	Options  map[string]interface{}
}

// Usage reports token accounting for a completed response.
type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
}

// ChatResponse is the standardized result of one model invocation. A
// response with a non-empty ToolCalls slice is a tool-call request; the
// agent dispatches the calls and loops.
type ChatResponse struct {
	Content      string
	ToolCalls    []ToolCall
	FinishReason string
	Usage        Usage
}

// StreamChunk is one element of a streaming response. The sequence is
// finite, single-producer, and not restartable; the consumer concatenates
// Content fragments and accumulates ToolCallDeltas until Done.
type StreamChunk struct {
	Content        string
	ToolCallDeltas []ToolCallDelta
	FinishReason   string
	Done           bool
}

// Provider is a model client. Implementations surface transport and parse
// failures as *Error and never retry internally; retry policy belongs to
// the caller.
type Provider interface {
	Name() string
	// Chat performs a blocking completion.
	Chat(ctx context.Context, req ChatRequest) (*ChatResponse, error)
	// ChatStream emits chunks through onChunk as they arrive. onChunk is
	// called from a single goroutine; the final chunk has Done set.
	ChatStream(ctx context.Context, req ChatRequest, onChunk func(StreamChunk)) error
}
