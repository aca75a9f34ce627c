package tools

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/nextlevelbuilder/idearium/internal/providers"
)

// ErrUnknownTool reports a requested tool name with no registered handler.
var ErrUnknownTool = errors.New("tools: unknown tool")

// Registry manages tool registration and execution. Safe for concurrent use.
type Registry struct {
	mu      sync.RWMutex
	tools   map[string]Tool
	limiter *RateLimiter // nil = no rate limiting
}

func NewRegistry() *Registry {
	return &Registry{tools: make(map[string]Tool)}
}

// SetRateLimiter enables per-session execution limiting.
func (r *Registry) SetRateLimiter(rl *RateLimiter) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.limiter = rl
}

func (r *Registry) Register(tool Tool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tools[tool.Name()] = tool
}

func (r *Registry) Unregister(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.tools, name)
}

func (r *Registry) Get(name string) (Tool, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.tools[name]
	return t, ok
}

// Execute runs a tool by name. An unregistered name yields an error Result
// wrapping ErrUnknownTool; handler panics are recovered into error Results
// so a misbehaving tool cannot take down the session.
func (r *Registry) Execute(ctx context.Context, name string, args map[string]interface{}, sessionKey string) *Result {
	r.mu.RLock()
	tool, ok := r.tools[name]
	limiter := r.limiter
	r.mu.RUnlock()

	if !ok {
		return ErrorResult("unknown tool: " + name).WithError(fmt.Errorf("%w: %s", ErrUnknownTool, name))
	}

	if limiter != nil && sessionKey != "" {
		if err := limiter.Allow(sessionKey); err != nil {
			return ErrorResult(err.Error()).WithError(err)
		}
	}

	start := time.Now()
	result := r.run(ctx, tool, args)
	slog.Debug("tool executed",
		"tool", name,
		"duration_ms", time.Since(start).Milliseconds(),
		"is_error", result.IsError,
	)
	return result
}

func (r *Registry) run(ctx context.Context, tool Tool, args map[string]interface{}) (result *Result) {
	defer func() {
		if rec := recover(); rec != nil {
			err := fmt.Errorf("tool %s panicked: %v", tool.Name(), rec)
			slog.Error("tool panic recovered", "tool", tool.Name(), "panic", rec)
			result = ErrorResult(err.Error()).WithError(err)
		}
	}()
	result = tool.Execute(ctx, args)
	if result == nil {
		result = ErrorResult("tool returned no result")
	}
	// Tool output goes straight back to the model; never let it carry
	// credentials picked up from the environment.
	result.Output = ScrubCredentials(result.Output)
	return result
}

// ProviderDefs returns the bound tools in provider wire form, sorted by
// name for a stable request shape.
func (r *Registry) ProviderDefs() []providers.ToolDefinition {
	r.mu.RLock()
	defer r.mu.RUnlock()

	defs := make([]providers.ToolDefinition, 0, len(r.tools))
	for _, tool := range r.tools {
		defs = append(defs, ToProviderDef(tool))
	}
	sort.Slice(defs, func(i, j int) bool { return defs[i].Function.Name < defs[j].Function.Name })
	return defs
}

func (r *Registry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.tools))
	for name := range r.tools {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.tools)
}

// Clone creates a shallow copy sharing the (thread-safe) rate limiter.
func (r *Registry) Clone() *Registry {
	r.mu.RLock()
	defer r.mu.RUnlock()
	clone := &Registry{tools: make(map[string]Tool, len(r.tools)), limiter: r.limiter}
	for name, tool := range r.tools {
		clone.tools[name] = tool
	}
	return clone
}
