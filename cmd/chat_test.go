package cmd

import (
	"testing"

	"github.com/nextlevelbuilder/idearium/internal/agent"
	"github.com/nextlevelbuilder/idearium/internal/config"
)

func TestChatShell_SessionsAreIndependent(t *testing.T) {
	shell := newChatShell(config.Default(), false)
	defer shell.Close()

	a, err := shell.router.Get("alpha")
	if err != nil {
		t.Fatalf("Get alpha: %v", err)
	}
	again, err := shell.router.Get("alpha")
	if err != nil {
		t.Fatalf("Get alpha again: %v", err)
	}
	if a != again {
		t.Error("same session resolved to a different loop")
	}

	b, err := shell.router.Get("beta")
	if err != nil {
		t.Fatalf("Get beta: %v", err)
	}
	if a == b {
		t.Error("distinct sessions share a loop")
	}

	if shell.memory("alpha") == nil {
		t.Error("no memory recorded for a resolved session")
	}
	if shell.memory("gamma") != nil {
		t.Error("memory reported for a session never started")
	}
}

func TestChatShell_ReloadRetunesExistingLoops(t *testing.T) {
	shell := newChatShell(config.Default(), false)
	defer shell.Close()

	ag, err := shell.router.Get("alpha")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	loop := ag.(*agent.Loop)

	next := config.Default()
	next.Agent.MaxToolRounds = 3
	next.Agent.GuardAction = "block"
	shell.reload(next)

	got := loop.Config()
	if got.MaxToolRounds != 3 {
		t.Errorf("MaxToolRounds = %d, want the reloaded 3", got.MaxToolRounds)
	}
	if got.GuardAction != "block" {
		t.Errorf("GuardAction = %q, want the reloaded block", got.GuardAction)
	}

	shell.mu.Lock()
	current := shell.cfg
	shell.mu.Unlock()
	if current != next {
		t.Error("resolver still sees the old config")
	}
}
