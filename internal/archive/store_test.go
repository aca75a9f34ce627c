package archive

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/nextlevelbuilder/idearium/internal/idearium"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "archive.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestStore_PutAndSearch(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)

	notions := []idearium.Notion{
		idearium.New("we decided to use sqlite for the archive layer", idearium.RoleAssistant),
		idearium.New("what database should the archive use", idearium.RoleUser),
		idearium.New("unrelated chatter about the weather", idearium.RoleUser),
	}
	for _, n := range notions {
		if err := s.Put(ctx, "sess-1", n); err != nil {
			t.Fatalf("Put: %v", err)
		}
	}

	results, err := s.Search(ctx, "archive database", SearchOptions{SessionKey: "sess-1"})
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(results) == 0 {
		t.Fatal("no results")
	}
	for _, r := range results {
		if r.Content == "unrelated chatter about the weather" {
			t.Error("irrelevant entry ranked into results")
		}
	}

	n, err := s.Count(ctx, "sess-1")
	if err != nil {
		t.Fatalf("Count: %v", err)
	}
	if n != 3 {
		t.Errorf("count = %d, want 3", n)
	}
}

func TestStore_SessionScoping(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)

	if err := s.Put(ctx, "a", idearium.New("alpha payload", idearium.RoleUser)); err != nil {
		t.Fatalf("Put: %v", err)
	}
	if err := s.Put(ctx, "b", idearium.New("alpha payload", idearium.RoleUser)); err != nil {
		t.Fatalf("Put: %v", err)
	}

	results, err := s.Search(ctx, "alpha", SearchOptions{SessionKey: "a"})
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(results) != 1 || results[0].SessionKey != "a" {
		t.Errorf("results = %+v, want only session a", results)
	}
}

func TestStore_AsArchiver(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)

	var arch idearium.Archiver = s.Session("sess-2")
	n := idearium.New("evicted memory content", idearium.RoleTool)
	if err := arch.Archive(ctx, n); err != nil {
		t.Fatalf("Archive: %v", err)
	}

	count, err := s.Count(ctx, "sess-2")
	if err != nil {
		t.Fatalf("Count: %v", err)
	}
	if count != 1 {
		t.Errorf("count = %d, want 1", count)
	}
}

func TestStore_ReArchiveReplacesContent(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)

	n := idearium.New("glacier expedition first draft", idearium.RoleAssistant)
	if err := s.Put(ctx, "s", n); err != nil {
		t.Fatalf("Put: %v", err)
	}
	n.Content = "glacier expedition revised plan"
	if err := s.Put(ctx, "s", n); err != nil {
		t.Fatalf("re-Put: %v", err)
	}

	results, err := s.Search(ctx, "glacier", SearchOptions{SessionKey: "s"})
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(results) != 1 {
		t.Fatalf("results = %d, want 1 (stale FTS row kept)", len(results))
	}
	if results[0].Content != "glacier expedition revised plan" {
		t.Errorf("content = %q, want the revised text", results[0].Content)
	}
}

func TestStore_PutIdempotent(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)

	n := idearium.New("same notion twice", idearium.RoleUser)
	for i := 0; i < 2; i++ {
		if err := s.Put(ctx, "s", n); err != nil {
			t.Fatalf("Put %d: %v", i, err)
		}
	}

	count, err := s.Count(ctx, "s")
	if err != nil {
		t.Fatalf("Count: %v", err)
	}
	if count != 1 {
		t.Errorf("count = %d, want 1 (same ID upserted)", count)
	}
}
