package agent

import (
	"encoding/json"

	"github.com/nextlevelbuilder/idearium/internal/idearium"
	"github.com/nextlevelbuilder/idearium/internal/providers"
)

// Tool-call requests and tool results live in the idearium as plain notions.
// To keep enough wire fidelity for OpenAI-style providers (which require
// tool_call_id threading), both are stored as small JSON payloads and decoded
// again at compose time. Notions whose content does not parse as a payload
// are passed through as ordinary text.

type toolCallsPayload struct {
	ToolCalls []providers.ToolCall `json:"tool_calls"`
	Text      string               `json:"text,omitempty"`
}

type toolResultPayload struct {
	ToolCallID string `json:"tool_call_id"`
	Name       string `json:"name"`
	Content    string `json:"content"`
	IsError    bool   `json:"is_error,omitempty"`
}

func encodeToolCalls(text string, calls []providers.ToolCall) string {
	b, _ := json.Marshal(toolCallsPayload{ToolCalls: calls, Text: text})
	return string(b)
}

func decodeToolCalls(content string) (toolCallsPayload, bool) {
	var p toolCallsPayload
	if err := json.Unmarshal([]byte(content), &p); err != nil || len(p.ToolCalls) == 0 {
		return toolCallsPayload{}, false
	}
	return p, true
}

func encodeToolResult(callID, name, content string, isError bool) string {
	b, _ := json.Marshal(toolResultPayload{
		ToolCallID: callID,
		Name:       name,
		Content:    content,
		IsError:    isError,
	})
	return string(b)
}

func decodeToolResult(content string) (toolResultPayload, bool) {
	var p toolResultPayload
	if err := json.Unmarshal([]byte(content), &p); err != nil || p.ToolCallID == "" {
		return toolResultPayload{}, false
	}
	return p, true
}

// composeMessages projects the idearium's notions into the provider wire
// format. Relation notions are surfaced as system messages so the model can
// see the structure without a dedicated wire role.
func composeMessages(notions []idearium.Notion) []providers.Message {
	msgs := make([]providers.Message, 0, len(notions))
	for _, n := range notions {
		switch n.Role {
		case idearium.RoleAssistant:
			if p, ok := decodeToolCalls(n.Content); ok {
				msgs = append(msgs, providers.Message{
					Role:      "assistant",
					Content:   p.Text,
					ToolCalls: p.ToolCalls,
				})
				continue
			}
			msgs = append(msgs, providers.Message{Role: "assistant", Content: n.Content})
		case idearium.RoleTool:
			if p, ok := decodeToolResult(n.Content); ok {
				msgs = append(msgs, providers.Message{
					Role:       "tool",
					Content:    p.Content,
					ToolCallID: p.ToolCallID,
				})
				continue
			}
			msgs = append(msgs, providers.Message{Role: "tool", Content: n.Content})
		case idearium.RoleRelation:
			msgs = append(msgs, providers.Message{Role: "system", Content: n.Content})
		default:
			msgs = append(msgs, providers.Message{Role: string(n.Role), Content: n.Content})
		}
	}
	return msgs
}
