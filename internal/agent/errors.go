package agent

import (
	"errors"
	"fmt"
)

// ErrAlreadyRunning reports a Run started while another is in flight on the
// same loop. Each loop is a single logical thread of control.
var ErrAlreadyRunning = errors.New("agent: run already in progress")

// ErrInputBlocked reports user input rejected by the injection guard when
// the guard action is "block".
var ErrInputBlocked = errors.New("agent: input blocked by injection guard")

// RoundLimitError reports that the tool-dispatch loop exceeded its
// configured maximum. The idearium retains everything appended before the
// limit was hit.
type RoundLimitError struct {
	Limit int
}

func (e *RoundLimitError) Error() string {
	return fmt.Sprintf("agent: tool-dispatch round limit exceeded (%d)", e.Limit)
}
