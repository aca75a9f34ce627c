package tools

// Result is the unified return type from tool execution. Failures are
// recorded here rather than returned as Go errors so the agent can fold
// them back into the conversation instead of aborting the turn.
type Result struct {
	Output  string `json:"output"`   // content fed back to the model
	IsError bool   `json:"is_error"` // marks a recorded failure
	Err     error  `json:"-"`        // underlying error, not serialized
}

func NewResult(output string) *Result {
	return &Result{Output: output}
}

func ErrorResult(message string) *Result {
	return &Result{Output: message, IsError: true}
}

func (r *Result) WithError(err error) *Result {
	r.Err = err
	return r
}
