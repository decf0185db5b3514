package retry

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestDoSucceedsAfterRetries(t *testing.T) {
	calls := 0
	err := Do(context.Background(), Constant(3, time.Millisecond), func() error {
		calls++
		if calls < 3 {
			return Retryable(errors.New("transient"))
		}
		return nil
	})
	if err != nil {
		t.Fatalf("Do() error = %v", err)
	}
	if calls != 3 {
		t.Errorf("calls = %d, want 3", calls)
	}
}

func TestDoNonRetryable(t *testing.T) {
	sentinel := errors.New("bad query")
	calls := 0
	err := Do(context.Background(), Constant(5, time.Millisecond), func() error {
		calls++
		return sentinel
	})
	if !errors.Is(err, sentinel) {
		t.Fatalf("Do() error = %v, want %v", err, sentinel)
	}
	if err != sentinel {
		t.Errorf("non-retryable error should be returned unwrapped, got %T", err)
	}
	if calls != 1 {
		t.Errorf("calls = %d, want 1", calls)
	}
}

func TestDoExhaustsAttempts(t *testing.T) {
	calls := 0
	err := Do(context.Background(), Exponential(4, time.Millisecond), func() error {
		calls++
		return Retryable(errors.New("still failing"))
	})
	if err == nil {
		t.Fatal("Do() should fail when every attempt fails")
	}
	if !IsRetryable(err) {
		t.Errorf("last error should be the retryable error, got %v", err)
	}
	if calls != 4 {
		t.Errorf("calls = %d, want 4", calls)
	}
}

func TestDoZeroAttemptsRunsOnce(t *testing.T) {
	calls := 0
	_ = Do(context.Background(), Policy{}, func() error {
		calls++
		return Retryable(errors.New("x"))
	})
	if calls != 1 {
		t.Errorf("calls = %d, want 1", calls)
	}
}

func TestDoCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	err := Do(ctx, Constant(10, time.Hour), func() error {
		calls++
		cancel()
		return Retryable(errors.New("transient"))
	})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("Do() error = %v, want context.Canceled", err)
	}
	if calls != 1 {
		t.Errorf("calls = %d, want 1", calls)
	}
}

func TestDoAlreadyCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	called := false
	err := Do(ctx, DefaultPolicy, func() error {
		called = true
		return nil
	})
	if !errors.Is(err, context.Canceled) {
		t.Errorf("Do() error = %v, want context.Canceled", err)
	}
	if called {
		t.Error("fn should not run with a cancelled context")
	}
}

func TestDoNotify(t *testing.T) {
	var waits []time.Duration
	calls := 0
	err := DoNotify(context.Background(), Constant(3, 2*time.Millisecond), func() error {
		calls++
		if calls < 3 {
			return Retryable(errors.New("throttled"))
		}
		return nil
	}, func(err error, next time.Duration) {
		waits = append(waits, next)
	})
	if err != nil {
		t.Fatalf("DoNotify() error = %v", err)
	}
	if len(waits) != 2 {
		t.Fatalf("notify called %d times, want 2", len(waits))
	}
	for _, w := range waits {
		if w != 2*time.Millisecond {
			t.Errorf("wait = %v, want 2ms", w)
		}
	}
}

func TestExponentialDelays(t *testing.T) {
	var waits []time.Duration
	_ = DoNotify(context.Background(), Exponential(4, time.Millisecond), func() error {
		return Retryable(errors.New("x"))
	}, func(_ error, next time.Duration) {
		waits = append(waits, next)
	})
	want := []time.Duration{time.Millisecond, 2 * time.Millisecond, 4 * time.Millisecond}
	if len(waits) != len(want) {
		t.Fatalf("waits = %v, want %v", waits, want)
	}
	for i := range want {
		if waits[i] != want[i] {
			t.Errorf("waits[%d] = %v, want %v", i, waits[i], want[i])
		}
	}
}

func TestRetryable(t *testing.T) {
	if Retryable(nil) != nil {
		t.Error("Retryable(nil) should be nil")
	}
	base := errors.New("boom")
	err := Retryable(base)
	if !IsRetryable(err) {
		t.Error("IsRetryable() = false, want true")
	}
	if !errors.Is(err, base) {
		t.Error("Retryable should preserve the cause")
	}
	if err.Error() != "boom" {
		t.Errorf("Error() = %q, want %q", err.Error(), "boom")
	}
	if IsRetryable(base) {
		t.Error("plain error should not be retryable")
	}
}
