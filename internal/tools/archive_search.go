package tools

import (
	"context"
	"fmt"
	"strings"

	"github.com/nextlevelbuilder/idearium/internal/archive"
)

// ArchiveSearch lets the model recall notions that trimming moved to the
// archive store. Results are formatted as plain text for the context window.
type ArchiveSearch struct {
	Store      *archive.Store
	SessionKey string // restrict recall to one session, "" = all
}

func (t *ArchiveSearch) Name() string { return "archive_search" }

func (t *ArchiveSearch) Description() string {
	return "Search previously archived conversation memory. Use when earlier context appears to be missing."
}

func (t *ArchiveSearch) Parameters() map[string]interface{} {
	return map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"query": map[string]interface{}{
				"type":        "string",
				"description": "Full-text search query over archived memory",
			},
			"max_results": map[string]interface{}{
				"type":        "integer",
				"description": "Maximum entries to return (default 5)",
			},
		},
		"required": []interface{}{"query"},
	}
}

func (t *ArchiveSearch) Execute(ctx context.Context, args map[string]interface{}) *Result {
	query, _ := args["query"].(string)
	if strings.TrimSpace(query) == "" {
		return ErrorResult("query is required")
	}

	maxResults := 5
	if v, ok := args["max_results"].(float64); ok && v > 0 {
		maxResults = int(v)
	}

	results, err := t.Store.Search(ctx, query, archive.SearchOptions{
		MaxResults: maxResults,
		SessionKey: t.SessionKey,
	})
	if err != nil {
		return ErrorResult("archive search failed: " + err.Error()).WithError(err)
	}
	if len(results) == 0 {
		return NewResult("No archived memory matched the query.")
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Found %d archived entries:\n", len(results))
	for i, r := range results {
		fmt.Fprintf(&b, "%d. [%s] %s\n", i+1, r.Role, r.Content)
	}
	return NewResult(b.String())
}
