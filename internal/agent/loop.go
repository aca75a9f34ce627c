// Package agent runs the conversational turn loop: compose the idearium
// into a provider request, generate, dispatch any requested tools, fold the
// results back into memory, and repeat until the model answers in text.
package agent

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/nextlevelbuilder/idearium/internal/idearium"
	"github.com/nextlevelbuilder/idearium/internal/providers"
	"github.com/nextlevelbuilder/idearium/internal/tools"
)

const (
	defaultMaxToolRounds = 8
	defaultMaxRetries    = 2
	defaultRetryBackoff  = 500 * time.Millisecond
)

// Config tunes one loop. Zero values take the package defaults.
type Config struct {
	// MaxToolRounds caps generate/dispatch cycles within a single Run.
	MaxToolRounds int
	// MaxRetries is the number of additional provider attempts after a
	// retryable failure. Non-retryable failures surface immediately.
	MaxRetries int
	// RetryBackoff is the base delay between attempts, scaled linearly.
	RetryBackoff time.Duration
	// ParallelTools dispatches a round's tool calls concurrently. Results
	// are still folded into the idearium in request order.
	ParallelTools bool
	// AbortOnToolError fails the turn on the first tool failure instead of
	// folding it back for the model to react to. The failure notion is
	// still recorded.
	AbortOnToolError bool
	// GuardAction controls the prompt-injection scan on user input:
	// "warn" (default) logs matches, "block" rejects the input, "off"
	// disables scanning.
	GuardAction string
	// Options is passed through to the provider (temperature, max_tokens).
	Options map[string]interface{}
}

func (c Config) withDefaults() Config {
	if c.MaxToolRounds <= 0 {
		c.MaxToolRounds = defaultMaxToolRounds
	}
	if c.MaxRetries < 0 {
		c.MaxRetries = defaultMaxRetries
	}
	if c.RetryBackoff <= 0 {
		c.RetryBackoff = defaultRetryBackoff
	}
	if c.GuardAction == "" {
		c.GuardAction = "warn"
	}
	return c
}

// Loop is one agent: a provider, a tool registry, and an idearium holding
// the conversation. A loop runs at most one turn at a time.
type Loop struct {
	id       string
	provider providers.Provider
	model    string
	memory   *idearium.Idearium
	registry *tools.Registry

	cfgMu sync.RWMutex
	cfg   Config

	running atomic.Bool
	state   atomic.Int32
	guard   *InputGuard
	tracer  trace.Tracer
	logger  *slog.Logger
}

func NewLoop(id string, provider providers.Provider, model string, memory *idearium.Idearium, registry *tools.Registry, cfg Config) *Loop {
	if registry == nil {
		registry = tools.NewRegistry()
	}
	return &Loop{
		id:       id,
		provider: provider,
		model:    model,
		memory:   memory,
		registry: registry,
		cfg:      cfg.withDefaults(),
		guard:    NewInputGuard(),
		tracer:   otel.Tracer("idearium/agent"),
		logger:   slog.Default().With("agent", id),
	}
}

func (l *Loop) ID() string                 { return l.id }
func (l *Loop) Model() string              { return l.model }
func (l *Loop) IsRunning() bool            { return l.running.Load() }
func (l *Loop) Memory() *idearium.Idearium { return l.memory }
func (l *Loop) Registry() *tools.Registry  { return l.registry }

// State reports the loop's current position in the turn state machine.
func (l *Loop) State() State { return State(l.state.Load()) }

// Config returns the loop's current tuning.
func (l *Loop) Config() Config {
	l.cfgMu.RLock()
	defer l.cfgMu.RUnlock()
	return l.cfg
}

// Reconfigure replaces the loop's tuning for subsequent turns. A turn
// already in flight keeps the settings it started with.
func (l *Loop) Reconfigure(cfg Config) {
	l.cfgMu.Lock()
	l.cfg = cfg.withDefaults()
	l.cfgMu.Unlock()
}

func (l *Loop) setState(s State) { l.state.Store(int32(s)) }

// RunResult summarizes a completed (or failed) turn.
type RunResult struct {
	Content string
	Rounds  int
	State   State
	Usage   providers.Usage
}

// StreamCallback receives chunks as the provider emits them. Only content
// produced while Generating is forwarded; tool dispatch is silent.
type StreamCallback func(chunk providers.StreamChunk)

// Run executes one blocking turn.
func (l *Loop) Run(ctx context.Context, input string) (*RunResult, error) {
	return l.run(ctx, input, nil)
}

// RunStream executes one turn, forwarding provider chunks to cb.
func (l *Loop) RunStream(ctx context.Context, input string, cb StreamCallback) (*RunResult, error) {
	return l.run(ctx, input, cb)
}

func (l *Loop) run(ctx context.Context, input string, cb StreamCallback) (*RunResult, error) {
	if !l.running.CompareAndSwap(false, true) {
		return nil, ErrAlreadyRunning
	}
	defer func() {
		l.running.Store(false)
	}()

	cfg := l.Config()

	res := &RunResult{}
	fail := func(err error) (*RunResult, error) {
		l.setState(StateErrored)
		res.State = StateErrored
		return res, err
	}

	l.setState(StateComposing)
	if cfg.GuardAction != "off" {
		if matches := l.guard.Scan(input); len(matches) > 0 {
			if cfg.GuardAction == "block" {
				return fail(fmt.Errorf("%w: %v", ErrInputBlocked, matches))
			}
			l.logger.Warn("input matched injection patterns", "patterns", matches)
		}
	}
	if err := l.memory.Append(ctx, idearium.New(input, idearium.RoleUser)); err != nil {
		return fail(fmt.Errorf("record input: %w", err))
	}

	for round := 0; ; round++ {
		if err := ctx.Err(); err != nil {
			return fail(err)
		}

		rctx, span := l.tracer.Start(ctx, "agent.round",
			trace.WithAttributes(
				attribute.String("agent.id", l.id),
				attribute.Int("agent.round", round),
			))

		l.setState(StateGenerating)
		resp, err := l.generate(rctx, cfg, cb)
		if err != nil {
			span.End()
			return fail(err)
		}
		res.Usage.PromptTokens += resp.Usage.PromptTokens
		res.Usage.CompletionTokens += resp.Usage.CompletionTokens

		if len(resp.ToolCalls) == 0 {
			span.End()
			if resp.Content != "" {
				if err := l.memory.Append(rctx, idearium.New(resp.Content, idearium.RoleAssistant)); err != nil {
					return fail(fmt.Errorf("record response: %w", err))
				}
			}
			l.setState(StateCompleted)
			res.Content = resp.Content
			res.Rounds = round
			res.State = StateCompleted
			return res, nil
		}

		if round >= cfg.MaxToolRounds {
			span.End()
			return fail(&RoundLimitError{Limit: cfg.MaxToolRounds})
		}

		l.setState(StateToolDispatch)
		req := idearium.New(encodeToolCalls(resp.Content, resp.ToolCalls), idearium.RoleAssistant)
		if err := l.memory.Append(rctx, req); err != nil {
			span.End()
			return fail(fmt.Errorf("record tool request: %w", err))
		}

		results, err := l.dispatch(rctx, cfg, resp.ToolCalls)
		if err != nil {
			span.End()
			return fail(err)
		}

		unresolved := 0
		var firstFailure error
		for i, call := range resp.ToolCalls {
			r := results[i]
			if r.IsError {
				l.logger.Warn("tool call failed", "tool", call.Name, "error", r.Output)
				if errorsIsUnknownTool(r) {
					unresolved++
				}
				if firstFailure == nil {
					firstFailure = fmt.Errorf("tool %s failed: %s", call.Name, r.Output)
				}
			}
			n := idearium.New(encodeToolResult(call.ID, call.Name, r.Output, r.IsError), idearium.RoleTool)
			if err := l.memory.Append(rctx, n); err != nil {
				span.End()
				return fail(fmt.Errorf("record tool result: %w", err))
			}
		}
		span.End()

		if cfg.AbortOnToolError && firstFailure != nil {
			return fail(firstFailure)
		}

		// A failed tool is folded back for the model to react to, but a
		// round where nothing could be resolved at all cannot make
		// progress.
		if unresolved == len(resp.ToolCalls) {
			return fail(fmt.Errorf("no requested tool could be resolved: %w", tools.ErrUnknownTool))
		}
		res.Rounds = round + 1
	}
}

// generate calls the provider with the composed conversation, retrying
// retryable failures up to the configured budget.
func (l *Loop) generate(ctx context.Context, cfg Config, cb StreamCallback) (*providers.ChatResponse, error) {
	req := providers.ChatRequest{
		Messages: composeMessages(l.memory.Notions()),
		Tools:    l.registry.ProviderDefs(),
		Model:    l.model,
		Options:  cfg.Options,
	}

	var lastErr error
	for attempt := 0; attempt <= cfg.MaxRetries; attempt++ {
		if attempt > 0 {
			l.logger.Debug("retrying provider call", "attempt", attempt, "error", lastErr)
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(cfg.RetryBackoff * time.Duration(attempt)):
			}
		}

		resp, err := l.invoke(ctx, req, cb)
		if err == nil {
			return resp, nil
		}
		if !providers.IsRetryable(err) {
			return nil, err
		}
		lastErr = err
	}
	return nil, fmt.Errorf("provider failed after %d attempts: %w", cfg.MaxRetries+1, lastErr)
}

func (l *Loop) invoke(ctx context.Context, req providers.ChatRequest, cb StreamCallback) (*providers.ChatResponse, error) {
	if cb == nil {
		return l.provider.Chat(ctx, req)
	}
	acc := providers.NewAccumulator(l.provider.Name())
	err := l.provider.ChatStream(ctx, req, func(chunk providers.StreamChunk) {
		cb(chunk)
		acc.Add(chunk)
	})
	if err != nil {
		return nil, err
	}
	return acc.Response()
}

// dispatch executes a round's tool calls, sequentially by default or
// concurrently when ParallelTools is set. The returned slice is indexed to
// match calls, so folding stays in request order either way.
func (l *Loop) dispatch(ctx context.Context, cfg Config, calls []providers.ToolCall) ([]*tools.Result, error) {
	results := make([]*tools.Result, len(calls))

	if !cfg.ParallelTools {
		for i, call := range calls {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			results[i] = l.registry.Execute(ctx, call.Name, call.Arguments, l.id)
		}
		return results, nil
	}

	g, gctx := errgroup.WithContext(ctx)
	for i, call := range calls {
		i, call := i, call
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			results[i] = l.registry.Execute(gctx, call.Name, call.Arguments, l.id)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

func errorsIsUnknownTool(r *tools.Result) bool {
	return r.Err != nil && errors.Is(r.Err, tools.ErrUnknownTool)
}
