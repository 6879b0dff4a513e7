package worker

import (
	"context"
	"errors"
	"math/rand/v2"
	"net"
	"time"

	"github.com/get-rishabh/AutoLeads-Assignment/pkg/pipeline/core"
	"golang.org/x/time/rate"
)

// SleepFunc blocks for d or until ctx is done.
type SleepFunc func(ctx context.Context, d time.Duration) error

// Options controls a sequential run.
type Options struct {
	// PauseMin and PauseMax bound the randomized pause inserted between consecutive
	// items. No pause follows the last item. Both zero disables pacing.
	PauseMin time.Duration
	PauseMax time.Duration

	// OnStart is invoked before each item with its 1-based index and the total count.
	OnStart func(index, total int)

	// Sleep overrides the pause implementation (tests).
	Sleep SleepFunc
}

// Result holds the output for one input item.
type Result[In any, Out any] struct {
	Input  In
	Output Out
	Err    error
}

func (o Options) withDefaults() Options {
	if o.PauseMin < 0 {
		o.PauseMin = 0
	}
	if o.PauseMax < o.PauseMin {
		o.PauseMax = o.PauseMin
	}
	if o.Sleep == nil {
		o.Sleep = Sleep
	}
	return o
}

// Sequential runs the processor over items one at a time, in input order.
//
// Every item yields exactly one Result. Processor errors are recorded per item and do
// not stop the run; only ctx cancellation does, in which case the results gathered so
// far are returned together with ctx.Err().
func Sequential[In any, Out any](
	ctx context.Context,
	items []In,
	processor func(context.Context, In) (Out, error),
	opts Options,
) ([]Result[In, Out], error) {
	opts = opts.withDefaults()

	out := make([]Result[In, Out], 0, len(items))
	total := len(items)
	for i, item := range items {
		if err := ctx.Err(); err != nil {
			return out, err
		}
		if opts.OnStart != nil {
			opts.OnStart(i+1, total)
		}

		res, err := processor(ctx, item)
		out = append(out, Result[In, Out]{Input: item, Output: res, Err: err})

		if i+1 < total {
			if err := opts.Sleep(ctx, Jitter(opts.PauseMin, opts.PauseMax)); err != nil {
				return out, err
			}
		}
	}
	return out, ctx.Err()
}

// RetryOptions controls Do.
type RetryOptions struct {
	// MaxRetries is the number of extra attempts for transient failures. Zero makes a
	// single attempt.
	MaxRetries int

	// RequestTimeout bounds each attempt. Zero leaves attempts unbounded.
	RequestTimeout time.Duration

	// Limiter, when set, is waited on before every attempt.
	Limiter *rate.Limiter

	// BackoffInitial is the initial sleep before retrying a transient failure.
	BackoffInitial time.Duration
	// BackoffMax caps exponential backoff.
	BackoffMax time.Duration
	// BackoffJitterFrac applies +/- jitter to backoff sleeps (0.2 = +/-20%).
	BackoffJitterFrac float64
}

func (o RetryOptions) withDefaults() RetryOptions {
	if o.MaxRetries < 0 {
		o.MaxRetries = 0
	}
	if o.RequestTimeout < 0 {
		o.RequestTimeout = 0
	}
	if o.BackoffInitial <= 0 {
		o.BackoffInitial = 500 * time.Millisecond
	}
	if o.BackoffMax <= 0 {
		o.BackoffMax = 8 * time.Second
	}
	if o.BackoffJitterFrac < 0 {
		o.BackoffJitterFrac = 0
	}
	return o
}

// NewLimiter returns a limiter for rps requests per second, or nil when rps <= 0.
func NewLimiter(rps float64) *rate.Limiter {
	if rps <= 0 {
		return nil
	}
	return rate.NewLimiter(rate.Limit(rps), 1)
}

// Do calls fn, retrying transient failures with exponential backoff.
func Do[Out any](ctx context.Context, fn func(context.Context) (Out, error), opts RetryOptions) (Out, error) {
	opts = opts.withDefaults()

	var lastOut Out
	for attempt := 0; ; attempt++ {
		if err := ctx.Err(); err != nil {
			return lastOut, err
		}

		if opts.Limiter != nil {
			if err := opts.Limiter.Wait(ctx); err != nil {
				return lastOut, err
			}
		}

		reqCtx := ctx
		var cancel context.CancelFunc
		if opts.RequestTimeout > 0 {
			reqCtx, cancel = context.WithTimeout(ctx, opts.RequestTimeout)
		}
		result, err := fn(reqCtx)
		lastOut = result
		if cancel != nil {
			cancel()
		}
		if err == nil {
			return result, nil
		}
		if errors.Is(err, context.Canceled) && ctx.Err() != nil {
			return lastOut, ctx.Err()
		}
		maxRetries := maxExtraRetries(opts.MaxRetries, err)
		if !IsTransient(err) || attempt >= maxRetries {
			return lastOut, err
		}

		if err := Sleep(ctx, backoffSleep(opts.BackoffInitial, opts.BackoffMax, opts.BackoffJitterFrac, attempt)); err != nil {
			return lastOut, err
		}
	}
}

type retryCap interface {
	MaxExtraRetries() int
}

func maxExtraRetries(defaultRetries int, err error) int {
	if defaultRetries < 0 {
		defaultRetries = 0
	}
	var capErr retryCap
	if errors.As(err, &capErr) {
		limited := capErr.MaxExtraRetries()
		if limited < 0 {
			limited = 0
		}
		if limited < defaultRetries {
			return limited
		}
	}
	return defaultRetries
}

// IsTransient reports whether err is worth retrying.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	var te *core.TransientError
	if errors.As(err, &te) {
		return true
	}
	var lte *core.LimitedTransientError
	if errors.As(err, &lte) {
		return true
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var ne net.Error
	if errors.As(err, &ne) {
		return ne.Timeout()
	}
	return false
}

// Sleep blocks for d, returning early with ctx.Err() if ctx is done first.
func Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Jitter returns a uniformly random duration in [min, max].
func Jitter(min, max time.Duration) time.Duration {
	if max <= min {
		return min
	}
	return min + time.Duration(rand.Int64N(int64(max-min)+1))
}

func backoffSleep(initial, max time.Duration, jitterFrac float64, attempt int) time.Duration {
	sleep := initial
	for i := 0; i < attempt && sleep < max; i++ {
		sleep *= 2
		if sleep > max {
			sleep = max
			break
		}
	}
	if jitterFrac <= 0 {
		return sleep
	}
	// Apply +/- jitterFrac.
	j := 1 + (rand.Float64()*2-1)*jitterFrac
	return time.Duration(float64(sleep) * j)
}
