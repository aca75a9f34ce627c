// Package tools defines the named, schema-described capabilities an agent
// can dispatch, and the registry that resolves and executes them.
package tools

import (
	"context"

	"github.com/nextlevelbuilder/idearium/internal/providers"
)

// Tool is a named capability the model can request. Parameters returns a
// JSON Schema map describing the accepted arguments.
type Tool interface {
	Name() string
	Description() string
	Parameters() map[string]interface{}
	Execute(ctx context.Context, args map[string]interface{}) *Result
}

// Func adapts a plain function into a Tool.
type Func struct {
	ToolName        string
	ToolDescription string
	Schema          map[string]interface{}
	Fn              func(ctx context.Context, args map[string]interface{}) *Result
}

func (f Func) Name() string        { return f.ToolName }
func (f Func) Description() string { return f.ToolDescription }
func (f Func) Parameters() map[string]interface{} {
	if f.Schema == nil {
		return map[string]interface{}{"type": "object", "properties": map[string]interface{}{}}
	}
	return f.Schema
}
func (f Func) Execute(ctx context.Context, args map[string]interface{}) *Result {
	return f.Fn(ctx, args)
}

// ToProviderDef converts a Tool to the provider wire form.
func ToProviderDef(t Tool) providers.ToolDefinition {
	return providers.ToolDefinition{
		Type: "function",
		Function: providers.ToolFunctionSchema{
			Name:        t.Name(),
			Description: t.Description(),
			Parameters:  t.Parameters(),
		},
	}
}
