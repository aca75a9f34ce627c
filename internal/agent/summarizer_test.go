package agent

import (
	"context"
	"strings"
	"testing"

	"github.com/nextlevelbuilder/idearium/internal/idearium"
)

func TestSummarizer_BuildsTranscript(t *testing.T) {
	provider := &scriptedProvider{steps: []scriptedStep{textResp("they agreed on sqlite")}}
	s := NewSummarizer(provider, "m")

	summary, err := s.Summarize(context.Background(), []idearium.Notion{
		idearium.New("which database?", idearium.RoleUser),
		idearium.New("sqlite, it is embedded", idearium.RoleAssistant),
	})
	if err != nil {
		t.Fatalf("Summarize: %v", err)
	}
	if summary != "they agreed on sqlite" {
		t.Errorf("summary = %q", summary)
	}

	req := provider.requests[0]
	if len(req.Messages) != 2 {
		t.Fatalf("messages = %d", len(req.Messages))
	}
	if !strings.Contains(req.Messages[1].Content, "[user] which database?") {
		t.Errorf("transcript missing excerpt: %q", req.Messages[1].Content)
	}
}

func TestSummarizer_EmptySummaryIsError(t *testing.T) {
	provider := &scriptedProvider{steps: []scriptedStep{textResp("  ")}}
	s := NewSummarizer(provider, "m")

	if _, err := s.Summarize(context.Background(), []idearium.Notion{
		idearium.New("hello", idearium.RoleUser),
	}); err == nil {
		t.Fatal("expected error for empty summary")
	}
}
