package agent

import (
	"context"
	"fmt"
	"strings"

	"github.com/nextlevelbuilder/idearium/internal/idearium"
	"github.com/nextlevelbuilder/idearium/internal/providers"
)

const summarizePrompt = "Condense the following conversation excerpt into a short factual summary. " +
	"Keep decisions, names, numbers, and open questions. Reply with the summary only."

// Summarizer condenses evicted notions through a model call, for use with
// the summarizing trim strategy.
type Summarizer struct {
	provider providers.Provider
	model    string
}

func NewSummarizer(provider providers.Provider, model string) *Summarizer {
	return &Summarizer{provider: provider, model: model}
}

func (s *Summarizer) Summarize(ctx context.Context, notions []idearium.Notion) (string, error) {
	var b strings.Builder
	for _, n := range notions {
		fmt.Fprintf(&b, "[%s] %s\n", n.Role, n.Content)
	}

	resp, err := s.provider.Chat(ctx, providers.ChatRequest{
		Model: s.model,
		Messages: []providers.Message{
			{Role: "system", Content: summarizePrompt},
			{Role: "user", Content: b.String()},
		},
	})
	if err != nil {
		return "", fmt.Errorf("summarize: %w", err)
	}
	if strings.TrimSpace(resp.Content) == "" {
		return "", fmt.Errorf("summarize: model returned empty summary")
	}
	return resp.Content, nil
}
