package providers

import (
	"encoding/json"
	"sort"
	"strings"
)

// Accumulator folds a finite chunk stream back into a ChatResponse.
// Content fragments concatenate; tool-call fragments are grouped by index
// and their argument JSON assembled once the stream ends.
type Accumulator struct {
	provider string
	content  strings.Builder
	finish   string
	calls    map[int]*partialCall
}

type partialCall struct {
	id   string
	name string
	args strings.Builder
}

func NewAccumulator(provider string) *Accumulator {
	return &Accumulator{provider: provider, calls: make(map[int]*partialCall)}
}

// Add folds one chunk in.
func (a *Accumulator) Add(chunk StreamChunk) {
	a.content.WriteString(chunk.Content)
	if chunk.FinishReason != "" {
		a.finish = chunk.FinishReason
	}
	for _, d := range chunk.ToolCallDeltas {
		pc, ok := a.calls[d.Index]
		if !ok {
			pc = &partialCall{}
			a.calls[d.Index] = pc
		}
		if d.ID != "" {
			pc.id = d.ID
		}
		if d.Name != "" {
			pc.name = d.Name
		}
		pc.args.WriteString(d.ArgumentsFragment)
	}
}

// Response assembles the accumulated chunks. A tool-call fragment whose
// argument JSON never became valid yields a malformed-response error.
func (a *Accumulator) Response() (*ChatResponse, error) {
	resp := &ChatResponse{
		Content:      a.content.String(),
		FinishReason: a.finish,
	}

	if len(a.calls) == 0 {
		return resp, nil
	}

	indexes := make([]int, 0, len(a.calls))
	for i := range a.calls {
		indexes = append(indexes, i)
	}
	sort.Ints(indexes)

	for _, i := range indexes {
		pc := a.calls[i]
		args := map[string]interface{}{}
		if raw := pc.args.String(); raw != "" {
			if err := json.Unmarshal([]byte(raw), &args); err != nil {
				return nil, &Error{
					Provider: a.provider,
					Code:     codeMalformed,
					Message:  "tool call arguments are not valid JSON: " + raw,
					Err:      err,
				}
			}
		}
		resp.ToolCalls = append(resp.ToolCalls, ToolCall{
			ID:        pc.id,
			Name:      pc.name,
			Arguments: args,
		})
	}
	return resp, nil
}
