package agent

import "context"

// Agent is the execution-loop abstraction the router manages. Implemented
// by *Loop; extracted as an interface for testability and composability.
type Agent interface {
	ID() string
	Run(ctx context.Context, input string) (*RunResult, error)
	RunStream(ctx context.Context, input string, cb StreamCallback) (*RunResult, error)
	IsRunning() bool
	Model() string
}
