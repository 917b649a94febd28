package core

import "context"

// ModelCaller sends one prompt to a language model and returns its free-text reply.
//
// Implementations must not retry internally; a returned error aborts the pipeline run.
type ModelCaller interface {
	Run(ctx context.Context, prompt string) (string, error)
}

// ModelCallerFunc adapts a function to the ModelCaller interface.
type ModelCallerFunc func(ctx context.Context, prompt string) (string, error)

func (f ModelCallerFunc) Run(ctx context.Context, prompt string) (string, error) {
	return f(ctx, prompt)
}

// Processor transforms one input item into one output item.
type Processor[In any, Out any] interface {
	Process(ctx context.Context, in In) (Out, error)
}

// ProcessFunc adapts a function to the Processor interface.
type ProcessFunc[In any, Out any] func(ctx context.Context, in In) (Out, error)

func (f ProcessFunc[In, Out]) Process(ctx context.Context, in In) (Out, error) {
	return f(ctx, in)
}

// TransientError marks an error as retryable by worker implementations.
type TransientError struct {
	Err error
}

func (e *TransientError) Error() string {
	if e == nil || e.Err == nil {
		return "transient error"
	}
	return e.Err.Error()
}

func (e *TransientError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// LimitedTransientError is a TransientError with its own cap on extra retries.
type LimitedTransientError struct {
	Err          error
	ExtraRetries int
}

func (e *LimitedTransientError) Error() string {
	if e == nil || e.Err == nil {
		return "transient error"
	}
	return e.Err.Error()
}

func (e *LimitedTransientError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// MaxExtraRetries reports how many retries this error allows beyond the first attempt.
func (e *LimitedTransientError) MaxExtraRetries() int {
	if e == nil {
		return 0
	}
	return e.ExtraRetries
}
