package tools

import (
	"testing"
	"time"
)

func TestNewRateLimiter_Disabled(t *testing.T) {
	if rl := NewRateLimiter(0, time.Minute); rl != nil {
		t.Errorf("max 0 should disable limiting, got %v", rl)
	}
	if rl := NewRateLimiter(-5, time.Minute); rl != nil {
		t.Errorf("negative max should disable limiting, got %v", rl)
	}
}

func TestRateLimiter_AllowWithinLimit(t *testing.T) {
	rl := NewRateLimiter(3, time.Minute)
	for i := 0; i < 3; i++ {
		if err := rl.Allow("sess"); err != nil {
			t.Fatalf("call %d rejected: %v", i, err)
		}
	}
	if err := rl.Allow("sess"); err == nil {
		t.Error("fourth call should exceed the limit")
	}
}

func TestRateLimiter_KeysAreIndependent(t *testing.T) {
	rl := NewRateLimiter(1, time.Minute)
	if err := rl.Allow("a"); err != nil {
		t.Fatalf("first a: %v", err)
	}
	if err := rl.Allow("b"); err != nil {
		t.Errorf("b should not share a's window: %v", err)
	}
	if err := rl.Allow("a"); err == nil {
		t.Error("second a should be rejected")
	}
}

func TestRateLimiter_WindowSlides(t *testing.T) {
	rl := NewRateLimiter(1, 30*time.Millisecond)
	if err := rl.Allow("sess"); err != nil {
		t.Fatalf("first call: %v", err)
	}
	if err := rl.Allow("sess"); err == nil {
		t.Fatal("second immediate call should be rejected")
	}
	time.Sleep(40 * time.Millisecond)
	if err := rl.Allow("sess"); err != nil {
		t.Errorf("call after window should pass: %v", err)
	}
}

func TestRateLimiter_Cleanup(t *testing.T) {
	rl := NewRateLimiter(5, 10*time.Millisecond)
	rl.Allow("stale")
	time.Sleep(20 * time.Millisecond)
	rl.Cleanup()

	rl.mu.Lock()
	_, ok := rl.windows["stale"]
	rl.mu.Unlock()
	if ok {
		t.Error("expired key not dropped")
	}
}
