package idearium

import (
	"context"
	"fmt"
	"log/slog"
)

// Strategy restores the token budget invariant after a mutation pushed the
// total over the ceiling. Implementations must only remove or shrink
// non-persistent notions (use TrimCandidates for the removal pool) and must
// never reorder survivors. The Idearium verifies the invariant after Trim
// returns and rolls the mutation back if it still does not hold.
type Strategy interface {
	Trim(ctx context.Context, id *Idearium) error
}

// EvictOldest is the default strategy: drop the oldest non-persistent notion
// until the total fits. When a single candidate remains, its content is
// truncated to the remaining budget instead of evicted, so the newest memory
// survives in part rather than vanishing.
type EvictOldest struct{}

func (EvictOldest) Trim(ctx context.Context, id *Idearium) error {
	for id.total > id.maxTokens {
		cands := id.TrimCandidates()
		if len(cands) == 0 {
			return fmt.Errorf("%w: persistent notions hold %d tokens of %d",
				ErrCapacity, id.total, id.maxTokens)
		}

		if len(cands) == 1 {
			c := cands[0]
			budget := id.maxTokens - (id.total - c.Notion.TokenCount())
			if budget > 0 {
				tokens := id.tok.Encode(c.Notion.Content)
				if budget < len(tokens) {
					if truncated := id.tok.Decode(tokens[:budget]); truncated != "" {
						n := c.Notion
						n.SetContent(truncated)
						id.removeAt(c.Index)
						id.insertAt(c.Index, n)
						if id.total <= id.maxTokens {
							slog.Debug("trim truncated last candidate",
								"id", n.ID, "tokens", n.TokenCount())
							return nil
						}
						// Re-encoding drifted; fall through to evict.
						id.removeAt(c.Index)
						continue
					}
				}
			}
			id.removeAt(c.Index)
			continue
		}

		evicted := id.removeAt(cands[0].Index)
		slog.Debug("trim evicted notion", "id", evicted.ID, "role", evicted.Role,
			"tokens", evicted.TokenCount())
	}
	return nil
}

// Summarizer synthesizes a single piece of text standing in for a block of
// notions. Typically backed by a model call; the idearium only requires that
// the result is smaller than what it replaces.
type Summarizer interface {
	Summarize(ctx context.Context, notions []Notion) (string, error)
}

// Summarize replaces the oldest contiguous block of trim candidates with one
// synthesized system-role notion. The summary stays non-persistent so later
// trims can evict or re-summarize it.
type Summarize struct {
	Summarizer Summarizer
	// KeepRecent excludes the newest N candidates from the summarized
	// block, preserving recent verbatim context.
	KeepRecent int
}

func (s Summarize) Trim(ctx context.Context, id *Idearium) error {
	if s.Summarizer == nil {
		return fmt.Errorf("idearium: summarize strategy has no summarizer")
	}

	cands := id.TrimCandidates()
	if len(cands) == 0 {
		return fmt.Errorf("%w: persistent notions hold %d tokens of %d",
			ErrCapacity, id.total, id.maxTokens)
	}

	block := cands
	if s.KeepRecent > 0 && len(cands) > s.KeepRecent {
		block = cands[:len(cands)-s.KeepRecent]
	}

	notions := make([]Notion, len(block))
	for i, c := range block {
		notions[i] = c.Notion
	}

	summary, err := s.Summarizer.Summarize(ctx, notions)
	if err != nil {
		return fmt.Errorf("summarize %d notions: %w", len(block), err)
	}
	if summary == "" {
		return fmt.Errorf("idearium: summarizer returned empty summary")
	}

	// Remove the block newest-first so earlier indexes stay valid, then
	// splice the summary in at the block's head.
	for i := len(block) - 1; i >= 0; i-- {
		id.removeAt(block[i].Index)
	}
	id.insertAt(block[0].Index, New(summary, RoleSystem))

	if id.total > id.maxTokens {
		// The summary did not buy enough room. Report capacity instead of
		// looping; the caller restores the pre-mutation state.
		return fmt.Errorf("%w: summary still leaves %d tokens over budget %d",
			ErrCapacity, id.total, id.maxTokens)
	}

	slog.Debug("trim summarized block", "notions", len(block), "total", id.total)
	return nil
}

// Archiver stores a notion out of band before it is evicted. The write must
// be durable when Archive returns nil; the strategy removes the notion only
// after a successful write.
type Archiver interface {
	Archive(ctx context.Context, n Notion) error
}

// Archive externalizes trim candidates to a side store before deletion.
// Archive-then-delete ordering is a correctness requirement: a notion is
// never removed until its archive write succeeded, unless AllowLoss is set.
type Archive struct {
	Archiver Archiver
	// AllowLoss evicts a notion even when its archive write fails.
	AllowLoss bool
}

func (a Archive) Trim(ctx context.Context, id *Idearium) error {
	if a.Archiver == nil {
		return fmt.Errorf("idearium: archive strategy has no archiver")
	}

	for id.total > id.maxTokens {
		cands := id.TrimCandidates()
		if len(cands) == 0 {
			return fmt.Errorf("%w: persistent notions hold %d tokens of %d",
				ErrCapacity, id.total, id.maxTokens)
		}

		c := cands[0]
		if err := a.Archiver.Archive(ctx, c.Notion); err != nil {
			if !a.AllowLoss {
				return fmt.Errorf("archive before evict %s: %w", c.Notion.ID, err)
			}
			slog.Warn("archive write failed, evicting anyway",
				"id", c.Notion.ID, "error", err)
		}
		id.removeAt(c.Index)
	}
	return nil
}
