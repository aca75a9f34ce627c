package agent

import (
	"context"
	"errors"
	"testing"
)

// stubAgent satisfies Agent without a provider behind it.
type stubAgent struct {
	id      string
	model   string
	running bool
}

func (s *stubAgent) ID() string      { return s.id }
func (s *stubAgent) Model() string   { return s.model }
func (s *stubAgent) IsRunning() bool { return s.running }
func (s *stubAgent) Run(ctx context.Context, input string) (*RunResult, error) {
	return &RunResult{Content: "stub", State: StateCompleted}, nil
}
func (s *stubAgent) RunStream(ctx context.Context, input string, cb StreamCallback) (*RunResult, error) {
	return s.Run(ctx, input)
}

func TestRouter_RegisterAndGet(t *testing.T) {
	r := NewRouter()
	r.Register(&stubAgent{id: "a1", model: "m1"})

	ag, err := r.Get("a1")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if ag.ID() != "a1" {
		t.Errorf("ID = %q", ag.ID())
	}

	if _, err := r.Get("missing"); err == nil {
		t.Error("expected error for unknown agent")
	}

	r.Remove("a1")
	if _, err := r.Get("a1"); err == nil {
		t.Error("agent should be removed")
	}
}

func TestRouter_Resolver(t *testing.T) {
	r := NewRouter()
	resolved := 0
	r.SetResolver(func(agentID string) (Agent, error) {
		if agentID == "bad" {
			return nil, errors.New("no such agent")
		}
		resolved++
		return &stubAgent{id: agentID, model: "m"}, nil
	})

	ag, err := r.Get("lazy")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if ag.ID() != "lazy" || resolved != 1 {
		t.Errorf("resolved = %d, id = %q", resolved, ag.ID())
	}

	// Cached on second access.
	if _, err := r.Get("lazy"); err != nil {
		t.Fatalf("Get cached: %v", err)
	}
	if resolved != 1 {
		t.Errorf("resolver re-invoked for cached agent: %d", resolved)
	}

	if _, err := r.Get("bad"); err == nil {
		t.Error("resolver error should propagate")
	}
}

func TestRouter_ListInfo(t *testing.T) {
	r := NewRouter()
	r.Register(&stubAgent{id: "a1", model: "m1", running: true})
	r.Register(&stubAgent{id: "a2", model: "m2"})

	infos := r.ListInfo()
	if len(infos) != 2 {
		t.Fatalf("infos = %d", len(infos))
	}
	byID := map[string]AgentInfo{}
	for _, info := range infos {
		byID[info.ID] = info
	}
	if !byID["a1"].IsRunning || byID["a2"].IsRunning {
		t.Errorf("running flags wrong: %+v", byID)
	}
}

func TestRouter_AbortRun(t *testing.T) {
	r := NewRouter()
	ctx, cancel := context.WithCancel(context.Background())
	r.RegisterRun("run-1", "sess-1", "a1", cancel)

	// Wrong session key is rejected.
	if r.AbortRun("run-1", "sess-other") {
		t.Error("abort honored with mismatched session key")
	}
	if ctx.Err() != nil {
		t.Fatal("run cancelled by unauthorized abort")
	}

	if !r.AbortRun("run-1", "sess-1") {
		t.Fatal("abort not honored")
	}
	if !errors.Is(ctx.Err(), context.Canceled) {
		t.Error("run context not cancelled")
	}

	// Already removed.
	if r.AbortRun("run-1", "sess-1") {
		t.Error("second abort should miss")
	}
}

func TestRouter_AbortRunsForSession(t *testing.T) {
	r := NewRouter()
	ctx1, cancel1 := context.WithCancel(context.Background())
	ctx2, cancel2 := context.WithCancel(context.Background())
	ctx3, cancel3 := context.WithCancel(context.Background())
	defer cancel3()
	r.RegisterRun("r1", "sess-a", "a1", cancel1)
	r.RegisterRun("r2", "sess-a", "a2", cancel2)
	r.RegisterRun("r3", "sess-b", "a3", cancel3)

	aborted := r.AbortRunsForSession("sess-a")
	if len(aborted) != 2 {
		t.Fatalf("aborted = %v", aborted)
	}
	if ctx1.Err() == nil || ctx2.Err() == nil {
		t.Error("session runs not cancelled")
	}
	if ctx3.Err() != nil {
		t.Error("other session's run was cancelled")
	}
}
