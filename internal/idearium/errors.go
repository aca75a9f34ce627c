package idearium

import "errors"

var (
	// ErrCapacity reports that trimming cannot bring the total under the
	// budget because persistent notions alone exceed it (or a strategy's
	// replacement still does not fit). The triggering mutation is rolled
	// back; the prior valid state is preserved.
	ErrCapacity = errors.New("idearium: token budget cannot be satisfied")

	// ErrReferential reports a link whose endpoint does not exist in the
	// owning idearium. No partial link is created.
	ErrReferential = errors.New("idearium: link endpoint not found")

	// ErrEmptyContent reports an attempt to store a notion with no content.
	ErrEmptyContent = errors.New("idearium: notion content is empty")

	// ErrOutOfRange reports a positional operation outside the sequence.
	ErrOutOfRange = errors.New("idearium: position out of range")
)
