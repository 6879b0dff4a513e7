package worker_test

import (
	"context"
	"errors"
	"slices"
	"testing"
	"time"

	"github.com/get-rishabh/AutoLeads-Assignment/pkg/pipeline/core"
	"github.com/get-rishabh/AutoLeads-Assignment/pkg/pipeline/worker"
)

func recordingSleep(into *[]time.Duration) worker.SleepFunc {
	return func(_ context.Context, d time.Duration) error {
		*into = append(*into, d)
		return nil
	}
}

func TestSequential_PreservesOrderAndPacesBetweenItems(t *testing.T) {
	t.Parallel()

	var starts []int
	var pauses []time.Duration
	items := []string{"a", "b", "c"}

	out, err := worker.Sequential(context.Background(), items, func(_ context.Context, in string) (string, error) {
		if in == "b" {
			return "", errors.New("boom")
		}
		return in + "!", nil
	}, worker.Options{
		PauseMin: 6 * time.Second,
		PauseMax: 10 * time.Second,
		OnStart: func(index, total int) {
			if total != 3 {
				t.Errorf("total=%d want 3", total)
			}
			starts = append(starts, index)
		},
		Sleep: recordingSleep(&pauses),
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(out) != 3 {
		t.Fatalf("expected 3 results, got %d", len(out))
	}
	for i, want := range items {
		if out[i].Input != want {
			t.Fatalf("out[%d].Input=%q want %q", i, out[i].Input, want)
		}
	}
	if out[0].Output != "a!" || out[2].Output != "c!" {
		t.Fatalf("unexpected outputs: %#v", out)
	}
	if out[1].Err == nil || out[1].Err.Error() != "boom" {
		t.Fatalf("expected per-item error on out[1], got %#v", out[1])
	}
	if !slices.Equal(starts, []int{1, 2, 3}) {
		t.Fatalf("unexpected OnStart indexes: %v", starts)
	}
	if len(pauses) != 2 {
		t.Fatalf("expected 2 pauses (none after last), got %d", len(pauses))
	}
	for _, p := range pauses {
		if p < 6*time.Second || p > 10*time.Second {
			t.Fatalf("pause %s outside [6s,10s]", p)
		}
	}
}

func TestSequential_SingleItemHasNoPause(t *testing.T) {
	t.Parallel()

	var pauses []time.Duration
	out, err := worker.Sequential(context.Background(), []int{1}, func(_ context.Context, in int) (int, error) {
		return in * 2, nil
	}, worker.Options{PauseMin: time.Second, PauseMax: time.Second, Sleep: recordingSleep(&pauses)})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(out) != 1 || out[0].Output != 2 {
		t.Fatalf("unexpected output: %#v", out)
	}
	if len(pauses) != 0 {
		t.Fatalf("expected no pauses, got %v", pauses)
	}
}

func TestSequential_StopsOnCancel(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	calls := 0
	out, err := worker.Sequential(ctx, []string{"a", "b", "c"}, func(_ context.Context, in string) (string, error) {
		calls++
		if in == "a" {
			cancel()
		}
		return in, nil
	}, worker.Options{})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if calls != 1 {
		t.Fatalf("expected 1 call, got %d", calls)
	}
	if len(out) != 1 || out[0].Input != "a" {
		t.Fatalf("expected the completed item to be returned, got %#v", out)
	}
}

func TestDo_RetriesTransient(t *testing.T) {
	t.Parallel()

	calls := 0
	got, err := worker.Do(context.Background(), func(context.Context) (string, error) {
		calls++
		if calls <= 2 {
			return "", &core.TransientError{Err: errors.New("try again")}
		}
		return "ok", nil
	}, worker.RetryOptions{
		MaxRetries:        3,
		RequestTimeout:    time.Second,
		BackoffInitial:    time.Millisecond,
		BackoffMax:        2 * time.Millisecond,
		BackoffJitterFrac: 0,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "ok" || calls != 3 {
		t.Fatalf("got=%q calls=%d, want ok after 3 calls", got, calls)
	}
}

func TestDo_ZeroRetriesMakesOneAttempt(t *testing.T) {
	t.Parallel()

	calls := 0
	_, err := worker.Do(context.Background(), func(context.Context) (string, error) {
		calls++
		return "", &core.TransientError{Err: errors.New("503")}
	}, worker.RetryOptions{})
	if err == nil {
		t.Fatal("expected error")
	}
	if calls != 1 {
		t.Fatalf("expected 1 call, got %d", calls)
	}
}

func TestDo_DoesNotRetryPermanent(t *testing.T) {
	t.Parallel()

	calls := 0
	_, err := worker.Do(context.Background(), func(context.Context) (string, error) {
		calls++
		return "", errors.New("permanent")
	}, worker.RetryOptions{MaxRetries: 10, BackoffInitial: time.Millisecond, BackoffMax: time.Millisecond})
	if err == nil || err.Error() != "permanent" {
		t.Fatalf("expected permanent error, got %v", err)
	}
	if calls != 1 {
		t.Fatalf("expected 1 call, got %d", calls)
	}
}

func TestDo_RespectsPerErrorRetryCap(t *testing.T) {
	t.Parallel()

	calls := 0
	_, err := worker.Do(context.Background(), func(context.Context) (string, error) {
		calls++
		return "", &core.LimitedTransientError{Err: errors.New("cancelled"), ExtraRetries: 1}
	}, worker.RetryOptions{MaxRetries: 10, BackoffInitial: time.Millisecond, BackoffMax: time.Millisecond})
	if err == nil {
		t.Fatal("expected error")
	}
	if calls != 2 {
		t.Fatalf("expected 2 calls (1 initial + 1 retry), got %d", calls)
	}
}

func TestJitter(t *testing.T) {
	t.Parallel()

	if got := worker.Jitter(time.Second, time.Second); got != time.Second {
		t.Fatalf("Jitter(1s,1s)=%s", got)
	}
	if got := worker.Jitter(2*time.Second, time.Second); got != 2*time.Second {
		t.Fatalf("inverted range should return min, got %s", got)
	}
	for i := 0; i < 100; i++ {
		got := worker.Jitter(4*time.Second, 6*time.Second)
		if got < 4*time.Second || got > 6*time.Second {
			t.Fatalf("Jitter out of range: %s", got)
		}
	}
}

func TestSleep_ReturnsOnCancel(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := worker.Sleep(ctx, time.Hour); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestNewLimiter(t *testing.T) {
	t.Parallel()

	if worker.NewLimiter(0) != nil {
		t.Fatal("expected nil limiter for rps=0")
	}
	if worker.NewLimiter(2) == nil {
		t.Fatal("expected limiter for rps=2")
	}
}
