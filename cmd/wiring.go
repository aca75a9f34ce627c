package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/nextlevelbuilder/idearium/internal/agent"
	"github.com/nextlevelbuilder/idearium/internal/archive"
	"github.com/nextlevelbuilder/idearium/internal/config"
	"github.com/nextlevelbuilder/idearium/internal/idearium"
	"github.com/nextlevelbuilder/idearium/internal/providers"
	"github.com/nextlevelbuilder/idearium/internal/tokenizer"
	"github.com/nextlevelbuilder/idearium/internal/tools"
)

// runtime bundles everything a chat session needs, built from one config.
type runtime struct {
	loop    *agent.Loop
	memory  *idearium.Idearium
	archive *archive.Store
}

func (r *runtime) Close() {
	if r.archive != nil {
		r.archive.Close()
	}
}

// buildRuntime wires provider, tokenizer, memory, strategy, and tools
// according to the config.
func buildRuntime(cfg *config.Config, sessionKey string) (*runtime, error) {
	tok := buildTokenizer(cfg.Memory)
	provider := buildProvider(cfg.Provider)

	rt := &runtime{}
	strategy, err := rt.buildStrategy(cfg, provider, sessionKey)
	if err != nil {
		return nil, err
	}

	mem, err := idearium.NewIdearium(tok, cfg.Memory.MaxTokens, idearium.WithStrategy(strategy))
	if err != nil {
		rt.Close()
		return nil, err
	}
	rt.memory = mem

	if cfg.Agent.SystemPrompt != "" {
		if err := mem.Append(context.Background(), idearium.NewPersistent(cfg.Agent.SystemPrompt, idearium.RoleSystem)); err != nil {
			rt.Close()
			return nil, fmt.Errorf("system prompt: %w", err)
		}
	}

	registry := tools.NewRegistry()
	registry.Register(tools.NewWebFetch(0))
	if cfg.Tools.RateLimitPerMinute > 0 {
		registry.SetRateLimiter(tools.NewRateLimiter(cfg.Tools.RateLimitPerMinute, time.Minute))
	}
	if rt.archive != nil {
		registry.Register(&tools.ArchiveSearch{Store: rt.archive, SessionKey: sessionKey})
	}

	rt.loop = agent.NewLoop(cfg.Agent.ID, provider, cfg.Provider.Model, mem, registry, agentConfig(cfg.Agent))
	return rt, nil
}

// agentConfig maps the file-level agent section onto loop tuning. Shared
// between initial wiring and hot reload.
func agentConfig(cfg config.AgentConfig) agent.Config {
	return agent.Config{
		MaxToolRounds:    cfg.MaxToolRounds,
		MaxRetries:       cfg.MaxRetries,
		RetryBackoff:     cfg.RetryBackoff(),
		ParallelTools:    cfg.ParallelTools,
		AbortOnToolError: cfg.AbortOnToolError,
		GuardAction:      cfg.GuardAction,
	}
}

func buildTokenizer(cfg config.MemoryConfig) tokenizer.Tokenizer {
	encoding := cfg.Encoding
	if encoding == "" {
		encoding = tokenizer.DefaultEncoding
	}
	tik, err := tokenizer.NewTiktoken(encoding)
	if err != nil {
		slog.Warn("tiktoken unavailable, falling back to word tokenizer", "encoding", encoding, "error", err)
		return tokenizer.NewCached(tokenizer.NewWords(), 0)
	}
	return tokenizer.NewCached(tik, 0)
}

func (rt *runtime) buildStrategy(cfg *config.Config, provider providers.Provider, sessionKey string) (idearium.Strategy, error) {
	switch cfg.Memory.Strategy {
	case "summarize":
		return idearium.Summarize{
			Summarizer: agent.NewSummarizer(provider, cfg.Provider.Model),
			KeepRecent: cfg.Memory.KeepRecent,
		}, nil
	case "archive":
		store, err := archive.Open(cfg.Memory.ArchivePath)
		if err != nil {
			return nil, fmt.Errorf("open archive: %w", err)
		}
		rt.archive = store
		return idearium.Archive{
			Archiver:  store.Session(sessionKey),
			AllowLoss: cfg.Memory.AllowLoss,
		}, nil
	default:
		return idearium.EvictOldest{}, nil
	}
}

func buildProvider(cfg config.ProviderConfig) providers.Provider {
	switch cfg.Name {
	case "dashscope":
		p := providers.NewDashScopeProvider(cfg.APIKey, cfg.APIBase, cfg.Model)
		if cfg.RequestsPerMinute > 0 {
			p.SetRequestsPerMinute(cfg.RequestsPerMinute)
		}
		return p
	default:
		p := providers.NewOpenAIProvider(cfg.Name, cfg.APIKey, cfg.APIBase, cfg.Model)
		if cfg.RequestsPerMinute > 0 {
			p.SetRequestsPerMinute(cfg.RequestsPerMinute)
		}
		return p
	}
}
