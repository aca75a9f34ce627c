package idearium

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/nextlevelbuilder/idearium/internal/tokenizer"
)

// Idearium is an ordered, mutable collection of notions kept under a token
// budget. Insertion order is conversation order and is never reordered by
// trimming. An Idearium is owned by a single agent session; it is not safe
// for concurrent mutation.
type Idearium struct {
	tok       tokenizer.Tokenizer
	maxTokens int
	strategy  Strategy

	notions    []Notion
	links      map[string]Link     // link notion ID → link
	persistent map[string]struct{} // notion IDs exempt from eviction
	total      int
}

// Option configures an Idearium at construction time.
type Option func(*Idearium)

// WithStrategy injects the trimming strategy. Default is EvictOldest.
func WithStrategy(s Strategy) Option {
	return func(i *Idearium) { i.strategy = s }
}

// NewIdearium creates an empty idearium with the given tokenizer and budget.
func NewIdearium(tok tokenizer.Tokenizer, maxTokens int, opts ...Option) (*Idearium, error) {
	if tok == nil {
		return nil, fmt.Errorf("idearium: tokenizer is required")
	}
	if maxTokens <= 0 {
		return nil, fmt.Errorf("idearium: maxTokens must be positive, got %d", maxTokens)
	}
	i := &Idearium{
		tok:        tok,
		maxTokens:  maxTokens,
		strategy:   EvictOldest{},
		links:      make(map[string]Link),
		persistent: make(map[string]struct{}),
	}
	for _, opt := range opts {
		opt(i)
	}
	return i, nil
}

func (i *Idearium) Len() int          { return len(i.notions) }
func (i *Idearium) TotalTokens() int  { return i.total }
func (i *Idearium) MaxTokens() int    { return i.maxTokens }
func (i *Idearium) Tokenizer() tokenizer.Tokenizer { return i.tok }

// Notions returns a copy of the current ordered sequence.
func (i *Idearium) Notions() []Notion {
	out := make([]Notion, len(i.notions))
	copy(out, i.notions)
	return out
}

// At returns the notion at pos.
func (i *Idearium) At(pos int) (Notion, error) {
	if pos < 0 || pos >= len(i.notions) {
		return Notion{}, fmt.Errorf("%w: %d of %d", ErrOutOfRange, pos, len(i.notions))
	}
	return i.notions[pos], nil
}

// ByID returns the notion with the given ID and its position.
func (i *Idearium) ByID(id string) (Notion, int, bool) {
	for pos, n := range i.notions {
		if n.ID == id {
			return n, pos, true
		}
	}
	return Notion{}, -1, false
}

// Append adds a notion at the tail, trimming if the budget is exceeded.
func (i *Idearium) Append(ctx context.Context, n Notion) error {
	return i.Insert(ctx, len(i.notions), n)
}

// Extend appends each notion in order. Stops at the first error.
func (i *Idearium) Extend(ctx context.Context, notions ...Notion) error {
	for _, n := range notions {
		if err := i.Append(ctx, n); err != nil {
			return err
		}
	}
	return nil
}

// Insert places a notion at pos, trimming if the budget is exceeded.
func (i *Idearium) Insert(ctx context.Context, pos int, n Notion) error {
	if pos < 0 || pos > len(i.notions) {
		return fmt.Errorf("%w: %d of %d", ErrOutOfRange, pos, len(i.notions))
	}
	if err := i.validate(n); err != nil {
		return err
	}
	snap := i.snapshot()
	i.insertAt(pos, n)
	return i.settle(ctx, snap)
}

// Remove deletes and returns the notion at pos. Removal only lowers the
// total, so no trim runs.
func (i *Idearium) Remove(pos int) (Notion, error) {
	if pos < 0 || pos >= len(i.notions) {
		return Notion{}, fmt.Errorf("%w: %d of %d", ErrOutOfRange, pos, len(i.notions))
	}
	return i.removeAt(pos), nil
}

// Replace swaps the notion at pos, re-counting tokens and trimming if the
// budget is exceeded.
func (i *Idearium) Replace(ctx context.Context, pos int, n Notion) error {
	if pos < 0 || pos >= len(i.notions) {
		return fmt.Errorf("%w: %d of %d", ErrOutOfRange, pos, len(i.notions))
	}
	if err := i.validate(n); err != nil {
		return err
	}
	snap := i.snapshot()
	i.removeAt(pos)
	i.insertAt(pos, n)
	return i.settle(ctx, snap)
}

// Trim re-establishes the budget invariant through the configured strategy.
// A no-op when already within budget. On strategy failure the idearium is
// restored to its state before the call.
func (i *Idearium) Trim(ctx context.Context) error {
	if i.total <= i.maxTokens {
		return nil
	}
	snap := i.snapshot()
	return i.settle(ctx, snap)
}

// Candidate is a trim-eligible notion and its current position.
type Candidate struct {
	Index  int
	Notion Notion
}

// TrimCandidates returns the non-persistent notions oldest first — the
// default removal pool for any strategy.
func (i *Idearium) TrimCandidates() []Candidate {
	var out []Candidate
	for pos, n := range i.notions {
		if _, ok := i.persistent[n.ID]; !ok {
			out = append(out, Candidate{Index: pos, Notion: n})
		}
	}
	return out
}

// --- internals ---

func (i *Idearium) validate(n Notion) error {
	if n.Content == "" {
		return ErrEmptyContent
	}
	if !n.Role.Valid() {
		return fmt.Errorf("idearium: invalid role %q", n.Role)
	}
	return nil
}

// settle runs the trimming strategy and verifies the invariant, restoring
// snap and reporting an error when the budget cannot be met.
func (i *Idearium) settle(ctx context.Context, snap snapshot) error {
	if i.total <= i.maxTokens {
		return nil
	}
	if err := i.strategy.Trim(ctx, i); err != nil {
		i.restore(snap)
		return err
	}
	if i.total > i.maxTokens {
		// Strategy returned without restoring the invariant.
		i.restore(snap)
		return fmt.Errorf("%w: %d tokens over budget %d after trim", ErrCapacity, i.total, i.maxTokens)
	}
	return nil
}

// insertAt splices a notion in without invoking the strategy. Token count
// is computed here so it is always consistent with the owning tokenizer.
func (i *Idearium) insertAt(pos int, n Notion) {
	n.tokens = i.tok.Count(n.Content)
	i.notions = append(i.notions, Notion{})
	copy(i.notions[pos+1:], i.notions[pos:])
	i.notions[pos] = n
	i.total += n.tokens
	if n.Persistent {
		i.persistent[n.ID] = struct{}{}
	}
}

// removeAt splices a notion out without invoking the strategy.
func (i *Idearium) removeAt(pos int) Notion {
	n := i.notions[pos]
	i.notions = append(i.notions[:pos], i.notions[pos+1:]...)
	i.total -= n.tokens
	delete(i.persistent, n.ID)
	if n.Role == RoleRelation {
		delete(i.links, n.ID)
		slog.Debug("evicted link notion", "id", n.ID)
	}
	return n
}

type snapshot struct {
	notions    []Notion
	links      map[string]Link
	persistent map[string]struct{}
	total      int
}

func (i *Idearium) snapshot() snapshot {
	s := snapshot{
		notions:    make([]Notion, len(i.notions)),
		links:      make(map[string]Link, len(i.links)),
		persistent: make(map[string]struct{}, len(i.persistent)),
		total:      i.total,
	}
	copy(s.notions, i.notions)
	for k, v := range i.links {
		s.links[k] = v
	}
	for k := range i.persistent {
		s.persistent[k] = struct{}{}
	}
	return s
}

func (i *Idearium) restore(s snapshot) {
	i.notions = s.notions
	i.links = s.links
	i.persistent = s.persistent
	i.total = s.total
}
