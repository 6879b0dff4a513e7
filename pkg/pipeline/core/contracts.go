package core

import "context"

// InputAdapter loads the items a run will process (profile URLs, for the scraper).
type InputAdapter[In any] interface {
	Load(ctx context.Context) ([]In, error)
}

// OutputAdapter persists the records produced by a run.
type OutputAdapter[Out any] interface {
	Store(ctx context.Context, rows []Out) error
}

// StoreFunc adapts a function to the OutputAdapter interface.
type StoreFunc[Out any] func(ctx context.Context, rows []Out) error

func (f StoreFunc[Out]) Store(ctx context.Context, rows []Out) error {
	return f(ctx, rows)
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

// LimitedTransientError is retryable, but caps the number of extra attempts below
// the worker's configured budget.
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

// MaxExtraRetries reports the retry cap carried by the error.
func (e *LimitedTransientError) MaxExtraRetries() int {
	if e == nil {
		return 0
	}
	return e.ExtraRetries
}
