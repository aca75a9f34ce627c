package providers

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"golang.org/x/time/rate"
)

// OpenAIProvider speaks the OpenAI-compatible chat completions protocol,
// which most hosted and local providers expose. It never retries; transient
// failures surface as retryable *Error for the caller's policy.
type OpenAIProvider struct {
	name         string
	apiKey       string
	apiBase      string
	defaultModel string
	client       *http.Client
	limiter      *rate.Limiter // nil = no pacing
}

func NewOpenAIProvider(name, apiKey, apiBase, defaultModel string) *OpenAIProvider {
	return &OpenAIProvider{
		name:         name,
		apiKey:       apiKey,
		apiBase:      strings.TrimSuffix(apiBase, "/"),
		defaultModel: defaultModel,
		client:       &http.Client{Timeout: 5 * time.Minute},
	}
}

// SetRequestsPerMinute paces outgoing requests. 0 disables pacing.
func (p *OpenAIProvider) SetRequestsPerMinute(rpm int) {
	if rpm <= 0 {
		p.limiter = nil
		return
	}
	p.limiter = rate.NewLimiter(rate.Every(time.Minute/time.Duration(rpm)), 1)
}

func (p *OpenAIProvider) Name() string { return p.name }

// --- wire types ---

type oaiMessage struct {
	Role       string        `json:"role"`
	Content    string        `json:"content"`
	ToolCalls  []oaiToolCall `json:"tool_calls,omitempty"`
	ToolCallID string        `json:"tool_call_id,omitempty"`
}

type oaiToolCall struct {
	Index    *int   `json:"index,omitempty"`
	ID       string `json:"id,omitempty"`
	Type     string `json:"type,omitempty"`
	Function struct {
		Name      string `json:"name,omitempty"`
		Arguments string `json:"arguments,omitempty"`
	} `json:"function"`
}

type oaiRequest struct {
	Model    string                 `json:"model"`
	Messages []oaiMessage           `json:"messages"`
	Tools    []ToolDefinition       `json:"tools,omitempty"`
	Stream   bool                   `json:"stream,omitempty"`
	Extra    map[string]interface{} `json:"-"`
}

// MarshalJSON flattens Extra (sampling options) into the request object.
func (r oaiRequest) MarshalJSON() ([]byte, error) {
	type alias oaiRequest
	base, err := json.Marshal(alias(r))
	if err != nil {
		return nil, err
	}
	if len(r.Extra) == 0 {
		return base, nil
	}
	var m map[string]interface{}
	if err := json.Unmarshal(base, &m); err != nil {
		return nil, err
	}
	for k, v := range r.Extra {
		m[k] = v
	}
	return json.Marshal(m)
}

type oaiChoice struct {
	Message      oaiMessage `json:"message"`
	Delta        oaiMessage `json:"delta"`
	FinishReason string     `json:"finish_reason"`
}

type oaiResponse struct {
	Choices []oaiChoice `json:"choices"`
	Usage   Usage       `json:"usage"`
	Error   *struct {
		Message string `json:"message"`
		Code    string `json:"code"`
	} `json:"error"`
}

// --- blocking completion ---

func (p *OpenAIProvider) Chat(ctx context.Context, req ChatRequest) (*ChatResponse, error) {
	body, err := p.do(ctx, req, false)
	if err != nil {
		return nil, err
	}
	defer body.Close()

	var wire oaiResponse
	if err := json.NewDecoder(body).Decode(&wire); err != nil {
		return nil, p.malformed("decode response", err)
	}
	if len(wire.Choices) == 0 {
		return nil, p.malformed("response has no choices", nil)
	}

	choice := wire.Choices[0]
	resp := &ChatResponse{
		Content:      choice.Message.Content,
		FinishReason: choice.FinishReason,
		Usage:        wire.Usage,
	}
	for _, tc := range choice.Message.ToolCalls {
		args := map[string]interface{}{}
		if tc.Function.Arguments != "" {
			if err := json.Unmarshal([]byte(tc.Function.Arguments), &args); err != nil {
				return nil, p.malformed("tool call arguments: "+tc.Function.Arguments, err)
			}
		}
		resp.ToolCalls = append(resp.ToolCalls, ToolCall{
			ID:        tc.ID,
			Name:      tc.Function.Name,
			Arguments: args,
		})
	}
	return resp, nil
}

// --- streaming completion ---

func (p *OpenAIProvider) ChatStream(ctx context.Context, req ChatRequest, onChunk func(StreamChunk)) error {
	body, err := p.do(ctx, req, true)
	if err != nil {
		return err
	}
	defer body.Close()

	scanner := bufio.NewScanner(body)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	for scanner.Scan() {
		if err := ctx.Err(); err != nil {
			return err
		}

		line := strings.TrimSpace(scanner.Text())
		if !strings.HasPrefix(line, "data:") {
			continue
		}
		data := strings.TrimSpace(strings.TrimPrefix(line, "data:"))
		if data == "[DONE]" {
			break
		}

		var wire oaiResponse
		if err := json.Unmarshal([]byte(data), &wire); err != nil {
			return p.malformed("decode stream event", err)
		}
		if len(wire.Choices) == 0 {
			continue
		}

		choice := wire.Choices[0]
		chunk := StreamChunk{
			Content:      choice.Delta.Content,
			FinishReason: choice.FinishReason,
		}
		for i, tc := range choice.Delta.ToolCalls {
			idx := i
			if tc.Index != nil {
				idx = *tc.Index
			}
			chunk.ToolCallDeltas = append(chunk.ToolCallDeltas, ToolCallDelta{
				Index:             idx,
				ID:                tc.ID,
				Name:              tc.Function.Name,
				ArgumentsFragment: tc.Function.Arguments,
			})
		}
		if onChunk != nil {
			onChunk(chunk)
		}
	}
	if err := scanner.Err(); err != nil {
		return &Error{Provider: p.name, Message: "read stream", Err: err}
	}

	if onChunk != nil {
		onChunk(StreamChunk{Done: true})
	}
	return nil
}

// --- transport ---

func (p *OpenAIProvider) do(ctx context.Context, req ChatRequest, stream bool) (io.ReadCloser, error) {
	if p.limiter != nil {
		if err := p.limiter.Wait(ctx); err != nil {
			return nil, err
		}
	}

	model := req.Model
	if model == "" {
		model = p.defaultModel
	}

	wire := oaiRequest{
		Model:  model,
		Stream: stream,
		Tools:  CleanToolSchemas(p.name, req.Tools),
		Extra:  req.Options,
	}
	for _, m := range req.Messages {
		om := oaiMessage{Role: m.Role, Content: m.Content, ToolCallID: m.ToolCallID}
		for _, tc := range m.ToolCalls {
			args, err := json.Marshal(tc.Arguments)
			if err != nil {
				return nil, p.malformed("encode tool call arguments", err)
			}
			otc := oaiToolCall{ID: tc.ID, Type: "function"}
			otc.Function.Name = tc.Name
			otc.Function.Arguments = string(args)
			om.ToolCalls = append(om.ToolCalls, otc)
		}
		wire.Messages = append(wire.Messages, om)
	}

	payload, err := json.Marshal(wire)
	if err != nil {
		return nil, p.malformed("encode request", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost,
		p.apiBase+"/chat/completions", bytes.NewReader(payload))
	if err != nil {
		return nil, &Error{Provider: p.name, Message: "build request", Err: err}
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if p.apiKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+p.apiKey)
	}

	resp, err := p.client.Do(httpReq)
	if err != nil {
		return nil, &Error{Provider: p.name, Message: "request failed", Err: err}
	}

	if resp.StatusCode != http.StatusOK {
		defer resp.Body.Close()
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		msg := strings.TrimSpace(string(raw))
		var wireErr oaiResponse
		code := ""
		if json.Unmarshal(raw, &wireErr) == nil && wireErr.Error != nil {
			msg = wireErr.Error.Message
			code = wireErr.Error.Code
		}
		return nil, &Error{Provider: p.name, Status: resp.StatusCode, Code: code, Message: msg}
	}

	return resp.Body, nil
}

func (p *OpenAIProvider) malformed(msg string, err error) *Error {
	return &Error{
		Provider: p.name,
		Code:     codeMalformed,
		Message:  fmt.Sprintf("malformed response: %s", msg),
		Err:      err,
	}
}
