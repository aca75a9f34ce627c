package cmd

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/nextlevelbuilder/idearium/internal/agent"
	"github.com/nextlevelbuilder/idearium/internal/config"
	"github.com/nextlevelbuilder/idearium/internal/idearium"
	"github.com/nextlevelbuilder/idearium/internal/providers"
	"github.com/nextlevelbuilder/idearium/internal/tracing"
)

func chatCmd() *cobra.Command {
	var (
		message    string
		sessionKey string
		noStream   bool
	)

	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Chat with the agent interactively or send a one-shot message",
		Long: `Chat with the agent. Without -m an interactive REPL starts; memory is
trimmed to the configured token budget as the conversation grows. Each
session has its own memory; /session hops between them.

Examples:
  idearium chat                        # Interactive REPL
  idearium chat -m "What time is it?"  # One-shot message
  idearium chat -s my-session          # Name the session (scopes the archive)`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			setupLogging(cfg.Logging)

			if sessionKey == "" {
				sessionKey = uuid.NewString()
			}

			shell := newChatShell(cfg, !noStream)
			defer shell.Close()

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			if cfg.Tracing.Enabled {
				shutdown, err := tracing.Setup(ctx, tracing.Config{
					Endpoint:    cfg.Tracing.Endpoint,
					Protocol:    cfg.Tracing.Protocol,
					Insecure:    cfg.Tracing.Insecure,
					ServiceName: cfg.Tracing.ServiceName,
				})
				if err != nil {
					return err
				}
				defer shutdown(context.Background())
			}

			if message != "" {
				return shell.turn(ctx, sessionKey, message)
			}

			if path := resolveConfigPath(); fileExists(path) {
				if w, err := config.NewWatcher(path); err == nil {
					w.OnReload(shell.reload)
					if err := w.Start(); err != nil {
						slog.Warn("config watch unavailable", "error", err)
					} else {
						defer w.Stop()
					}
				}
			}
			return shell.repl(ctx, sessionKey)
		},
	}

	cmd.Flags().StringVarP(&message, "message", "m", "", "one-shot message (omit for interactive mode)")
	cmd.Flags().StringVarP(&sessionKey, "session", "s", "", "session key (default: auto-generated)")
	cmd.Flags().BoolVar(&noStream, "no-stream", false, "wait for the full response instead of streaming")
	return cmd
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// chatShell owns the session router behind the chat command. Loops are
// resolved lazily per session key, each with its own memory and archive
// scope, so /session hops between independent conversations.
type chatShell struct {
	router *agent.Router
	stream bool

	mu       sync.Mutex
	cfg      *config.Config
	runtimes map[string]*runtime
}

func newChatShell(cfg *config.Config, stream bool) *chatShell {
	s := &chatShell{
		router:   agent.NewRouter(),
		stream:   stream,
		cfg:      cfg,
		runtimes: make(map[string]*runtime),
	}
	s.router.SetResolver(func(key string) (agent.Agent, error) {
		s.mu.Lock()
		cfg := s.cfg
		s.mu.Unlock()

		rt, err := buildRuntime(cfg, key)
		if err != nil {
			return nil, err
		}
		s.mu.Lock()
		s.runtimes[key] = rt
		s.mu.Unlock()
		return rt.loop, nil
	})
	return s
}

func (s *chatShell) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, rt := range s.runtimes {
		rt.Close()
	}
}

// reload applies a changed config: new sessions are built from it, and
// loops that already exist pick up the new agent tuning. Provider and
// memory wiring of live sessions stay as built.
func (s *chatShell) reload(next *config.Config) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cfg = next
	for _, rt := range s.runtimes {
		rt.loop.Reconfigure(agentConfig(next.Agent))
	}
	slog.Info("agent tuning reloaded", "sessions", len(s.runtimes))
}

// memory returns the session's idearium, nil before its first turn.
func (s *chatShell) memory(key string) *idearium.Idearium {
	s.mu.Lock()
	defer s.mu.Unlock()
	if rt, ok := s.runtimes[key]; ok {
		return rt.memory
	}
	return nil
}

// turn runs one input through the session's loop, registering the run
// with the router so it is abortable by session.
func (s *chatShell) turn(ctx context.Context, key, input string) error {
	ag, err := s.router.Get(key)
	if err != nil {
		return err
	}

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	runID := uuid.NewString()
	s.router.RegisterRun(runID, key, ag.ID(), cancel)
	defer s.router.UnregisterRun(runID)

	var res *agent.RunResult
	if s.stream {
		res, err = ag.RunStream(runCtx, input, func(chunk providers.StreamChunk) {
			fmt.Print(chunk.Content)
		})
		fmt.Println()
	} else {
		res, err = ag.Run(runCtx, input)
		if err == nil {
			fmt.Println(res.Content)
		}
	}
	if err != nil {
		var rle *agent.RoundLimitError
		if errors.As(err, &rle) {
			return fmt.Errorf("the agent hit its tool round limit (%d); the conversation so far is kept", rle.Limit)
		}
		return err
	}
	return nil
}

func (s *chatShell) repl(ctx context.Context, session string) error {
	s.mu.Lock()
	budget := s.cfg.Memory.MaxTokens
	s.mu.Unlock()
	fmt.Printf("idearium chat (budget %d tokens). /help for commands, /exit to quit.\n", budget)

	scanner := bufio.NewScanner(os.Stdin)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	for {
		fmt.Print("> ")
		if !scanner.Scan() {
			fmt.Println()
			return scanner.Err()
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		if strings.HasPrefix(line, "/") {
			if done := s.command(line, &session); done {
				return nil
			}
			continue
		}

		if err := s.turn(ctx, session, line); err != nil {
			if errors.Is(err, context.Canceled) {
				return nil
			}
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
		}
	}
}

// command handles slash commands. Returns true when the REPL should exit.
func (s *chatShell) command(line string, session *string) bool {
	fields := strings.Fields(line)
	switch fields[0] {
	case "/exit", "/quit":
		return true
	case "/tokens":
		mem := s.memory(*session)
		if mem == nil {
			fmt.Println("no turns yet in this session")
			break
		}
		fmt.Printf("%d / %d tokens across %d notions\n",
			mem.TotalTokens(), mem.MaxTokens(), mem.Len())
	case "/notions":
		mem := s.memory(*session)
		if mem == nil {
			fmt.Println("no turns yet in this session")
			break
		}
		for i, n := range mem.Notions() {
			marker := " "
			if n.Persistent {
				marker = "*"
			}
			fmt.Printf("%3d%s [%s] %s\n", i, marker, n.Role, truncateLine(n.Content, 100))
		}
	case "/session":
		if len(fields) < 2 {
			fmt.Printf("current session: %s\n", *session)
			break
		}
		*session = fields[1]
		fmt.Printf("switched to session %s\n", *session)
	case "/sessions":
		keys := s.router.List()
		if len(keys) == 0 {
			fmt.Println("no sessions started yet")
		}
		for _, key := range keys {
			marker := " "
			if key == *session {
				marker = "*"
			}
			fmt.Printf("%s %s\n", marker, key)
		}
	case "/help":
		fmt.Println("/tokens          show budget usage")
		fmt.Println("/notions         dump the memory contents")
		fmt.Println("/session <key>   switch to another session")
		fmt.Println("/sessions        list started sessions")
		fmt.Println("/exit            quit")
	default:
		fmt.Printf("unknown command %q, try /help\n", fields[0])
	}
	return false
}

func truncateLine(s string, max int) string {
	s = strings.ReplaceAll(s, "\n", " ")
	if len(s) <= max {
		return s
	}
	return s[:max-3] + "..."
}
