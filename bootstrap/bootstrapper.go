package bootstrap

import "context"

// Bootstrapper is one step of the kernel startup sequence. Steps run in
// order and an error from any step aborts the sequence.
type Bootstrapper interface {
	// Name identifies the step in logs and kernel events.
	Name() string
	Bootstrap(ctx context.Context) error
}

// StepFunc adapts a function to the Bootstrapper interface.
type StepFunc struct {
	StepName string
	Fn       func(ctx context.Context) error
}

func (s StepFunc) Name() string                        { return s.StepName }
func (s StepFunc) Bootstrap(ctx context.Context) error { return s.Fn(ctx) }
