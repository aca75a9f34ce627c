package idearium

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
)

// stubSummarizer returns a fixed summary and records what it was asked to
// summarize.
type stubSummarizer struct {
	summary string
	err     error
	got     []Notion
}

func (s *stubSummarizer) Summarize(ctx context.Context, notions []Notion) (string, error) {
	s.got = notions
	return s.summary, s.err
}

func TestSummarize_ReplacesBlock(t *testing.T) {
	ctx := context.Background()
	sum := &stubSummarizer{summary: "summary"}
	id := newTestIdearium(t, 10, WithStrategy(Summarize{Summarizer: sum, KeepRecent: 1}))

	if err := id.Extend(ctx,
		New("one two three", RoleUser),
		New("four five six", RoleAssistant),
		New("seven eight nine", RoleUser),
	); err != nil {
		t.Fatalf("extend: %v", err)
	}

	// 9 tokens so far; two more pushes it over and triggers summarization.
	if err := id.Append(ctx, New("ten eleven", RoleAssistant)); err != nil {
		t.Fatalf("append: %v", err)
	}

	if id.TotalTokens() > 10 {
		t.Fatalf("total %d over budget", id.TotalTokens())
	}

	got := id.Notions()
	if got[0].Content != "summary" || got[0].Role != RoleSystem {
		t.Errorf("head notion = %v, want synthesized summary", got[0])
	}
	if got[0].Persistent {
		t.Error("summary notion must stay evictable")
	}

	// KeepRecent=1 preserved the newest pre-append candidate verbatim.
	if sum.got[len(sum.got)-1].Content == "ten eleven" {
		t.Error("newest candidate was included in the summarized block")
	}
	if len(sum.got) != 3 {
		t.Errorf("summarized %d notions, want 3", len(sum.got))
	}
}

func TestSummarize_FailureRollsBack(t *testing.T) {
	ctx := context.Background()
	sum := &stubSummarizer{err: errors.New("model unavailable")}
	id := newTestIdearium(t, 6, WithStrategy(Summarize{Summarizer: sum}))

	if err := id.Append(ctx, New("one two three four", RoleUser)); err != nil {
		t.Fatalf("append: %v", err)
	}
	before := id.Notions()

	err := id.Append(ctx, New("five six seven", RoleUser))
	if err == nil {
		t.Fatal("expected summarize failure to surface")
	}

	after := id.Notions()
	if len(after) != len(before) || after[0].ID != before[0].ID {
		t.Error("failed trim mutated the idearium")
	}
}

func TestSummarize_OversizedSummaryIsCapacityError(t *testing.T) {
	ctx := context.Background()
	sum := &stubSummarizer{summary: strings.Repeat("big ", 50)}
	id := newTestIdearium(t, 6, WithStrategy(Summarize{Summarizer: sum}))

	if err := id.Append(ctx, New("one two three four", RoleUser)); err != nil {
		t.Fatalf("append: %v", err)
	}

	err := id.Append(ctx, New("five six seven", RoleUser))
	if !errors.Is(err, ErrCapacity) {
		t.Fatalf("err = %v, want ErrCapacity", err)
	}
	if id.TotalTokens() > id.MaxTokens() {
		t.Errorf("budget violated after failed summarize: %d", id.TotalTokens())
	}
}

// recordingArchiver captures archived notions; fails on demand.
type recordingArchiver struct {
	archived []Notion
	err      error
}

func (a *recordingArchiver) Archive(ctx context.Context, n Notion) error {
	if a.err != nil {
		return a.err
	}
	a.archived = append(a.archived, n)
	return nil
}

func TestArchive_WritesBeforeEvicting(t *testing.T) {
	ctx := context.Background()
	arch := &recordingArchiver{}
	id := newTestIdearium(t, 6, WithStrategy(Archive{Archiver: arch}))

	for n := 0; n < 5; n++ {
		if err := id.Append(ctx, New(fmt.Sprintf("note%d two", n), RoleUser)); err != nil {
			t.Fatalf("append %d: %v", n, err)
		}
	}

	if id.TotalTokens() > 6 {
		t.Fatalf("total %d over budget", id.TotalTokens())
	}
	if len(arch.archived) != 2 {
		t.Fatalf("archived %d notions, want 2", len(arch.archived))
	}
	// Archived in eviction (insertion) order.
	if arch.archived[0].Content != "note0 two" || arch.archived[1].Content != "note1 two" {
		t.Errorf("archive order wrong: %v", arch.archived)
	}
	// Archived notions are gone from the live sequence.
	for _, n := range arch.archived {
		if _, _, ok := id.ByID(n.ID); ok {
			t.Errorf("archived notion %s still live", n.ID)
		}
	}
}

func TestArchive_FailedWriteBlocksEviction(t *testing.T) {
	ctx := context.Background()
	arch := &recordingArchiver{err: errors.New("disk full")}
	id := newTestIdearium(t, 4, WithStrategy(Archive{Archiver: arch}))

	if err := id.Append(ctx, New("one two three", RoleUser)); err != nil {
		t.Fatalf("append: %v", err)
	}
	before := id.Notions()

	err := id.Append(ctx, New("four five", RoleUser))
	if err == nil {
		t.Fatal("expected archive failure to surface")
	}

	after := id.Notions()
	if len(after) != len(before) {
		t.Error("notion evicted despite failed archive write")
	}
}

func TestArchive_AllowLossEvictsAnyway(t *testing.T) {
	ctx := context.Background()
	arch := &recordingArchiver{err: errors.New("disk full")}
	id := newTestIdearium(t, 4, WithStrategy(Archive{Archiver: arch, AllowLoss: true}))

	if err := id.Append(ctx, New("one two three", RoleUser)); err != nil {
		t.Fatalf("append: %v", err)
	}
	if err := id.Append(ctx, New("four five", RoleUser)); err != nil {
		t.Fatalf("append with AllowLoss: %v", err)
	}
	if id.TotalTokens() > 4 {
		t.Errorf("budget violated: %d", id.TotalTokens())
	}
}
