package tools

import (
	"context"
	"errors"
	"testing"
	"time"
)

// mockTool is a minimal tool for testing the registry.
type mockTool struct {
	name   string
	execFn func(ctx context.Context, args map[string]interface{}) *Result
}

func (m *mockTool) Name() string        { return m.name }
func (m *mockTool) Description() string { return "mock tool" }
func (m *mockTool) Parameters() map[string]interface{} {
	return map[string]interface{}{"type": "object", "properties": map[string]interface{}{}}
}
func (m *mockTool) Execute(ctx context.Context, args map[string]interface{}) *Result {
	if m.execFn != nil {
		return m.execFn(ctx, args)
	}
	return NewResult("ok")
}

func TestRegistry_RegisterAndGet(t *testing.T) {
	reg := NewRegistry()
	reg.Register(&mockTool{name: "add"})

	got, ok := reg.Get("add")
	if !ok || got.Name() != "add" {
		t.Fatalf("Get(add) = %v, %v", got, ok)
	}

	if _, ok := reg.Get("missing"); ok {
		t.Error("unexpected hit for unregistered tool")
	}

	reg.Unregister("add")
	if _, ok := reg.Get("add"); ok {
		t.Error("tool should be unregistered")
	}
}

func TestRegistry_ExecuteUnknownTool(t *testing.T) {
	reg := NewRegistry()
	result := reg.Execute(context.Background(), "nope", nil, "")

	if !result.IsError {
		t.Fatal("expected error result")
	}
	if !errors.Is(result.Err, ErrUnknownTool) {
		t.Errorf("err = %v, want ErrUnknownTool", result.Err)
	}
}

func TestRegistry_ExecuteRecoversPanic(t *testing.T) {
	reg := NewRegistry()
	reg.Register(&mockTool{
		name: "boom",
		execFn: func(ctx context.Context, args map[string]interface{}) *Result {
			panic("handler exploded")
		},
	})

	result := reg.Execute(context.Background(), "boom", nil, "")
	if !result.IsError || result.Err == nil {
		t.Fatalf("panic not converted to error result: %+v", result)
	}
}

func TestRegistry_RateLimit(t *testing.T) {
	reg := NewRegistry()
	reg.Register(&mockTool{name: "t"})
	reg.SetRateLimiter(NewRateLimiter(2, time.Minute))

	for i := 0; i < 2; i++ {
		if r := reg.Execute(context.Background(), "t", nil, "sess"); r.IsError {
			t.Fatalf("call %d rejected: %s", i, r.Output)
		}
	}
	if r := reg.Execute(context.Background(), "t", nil, "sess"); !r.IsError {
		t.Error("third call should hit the rate limit")
	}
	// Other sessions are unaffected.
	if r := reg.Execute(context.Background(), "t", nil, "other"); r.IsError {
		t.Errorf("other session rejected: %s", r.Output)
	}
}

func TestRegistry_ProviderDefsSorted(t *testing.T) {
	reg := NewRegistry()
	reg.Register(&mockTool{name: "zeta"})
	reg.Register(&mockTool{name: "alpha"})

	defs := reg.ProviderDefs()
	if len(defs) != 2 {
		t.Fatalf("got %d defs", len(defs))
	}
	if defs[0].Function.Name != "alpha" || defs[1].Function.Name != "zeta" {
		t.Errorf("defs out of order: %v", defs)
	}
	if defs[0].Type != "function" {
		t.Errorf("def type = %q", defs[0].Type)
	}
}

func TestRegistry_Clone(t *testing.T) {
	reg := NewRegistry()
	reg.Register(&mockTool{name: "shared"})

	clone := reg.Clone()
	clone.Register(&mockTool{name: "extra"})

	if reg.Count() != 1 {
		t.Errorf("parent registry grew: %d", reg.Count())
	}
	if clone.Count() != 2 {
		t.Errorf("clone count = %d", clone.Count())
	}
}

func TestFunc_Adapter(t *testing.T) {
	tool := Func{
		ToolName:        "echo",
		ToolDescription: "echoes input",
		Fn: func(ctx context.Context, args map[string]interface{}) *Result {
			s, _ := args["text"].(string)
			return NewResult(s)
		},
	}

	reg := NewRegistry()
	reg.Register(tool)

	r := reg.Execute(context.Background(), "echo", map[string]interface{}{"text": "hi"}, "")
	if r.Output != "hi" || r.IsError {
		t.Errorf("result = %+v", r)
	}
	if tool.Parameters()["type"] != "object" {
		t.Errorf("default schema = %v", tool.Parameters())
	}
}
