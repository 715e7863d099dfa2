package resilience

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"
)

func testExecutor(policy Policy) *Executor {
	return NewExecutor(policy, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func fastPolicy() Policy {
	return Policy{
		RetryMaxAttempts:    3,
		RetryInitialBackoff: time.Millisecond,
		RetryMaxBackoff:     2 * time.Millisecond,
		RetryMultiplier:     2.0,
		BreakerEnabled:      false,
	}
}

func retryAll(error) Verdict {
	return Verdict{Retryable: true, RecordFailure: true}
}

func TestExecuteRetriesUntilSuccess(t *testing.T) {
	exec := testExecutor(fastPolicy())

	attempts := 0
	err := exec.Execute(context.Background(), "flaky", func(context.Context) error {
		attempts++
		if attempts < 3 {
			return errors.New("transient")
		}
		return nil
	}, retryAll)

	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if attempts != 3 {
		t.Fatalf("attempts = %d, want 3", attempts)
	}
}

func TestExecuteStopsOnNonRetryableError(t *testing.T) {
	exec := testExecutor(fastPolicy())
	permanent := errors.New("bad request")

	attempts := 0
	err := exec.Execute(context.Background(), "strict", func(context.Context) error {
		attempts++
		return permanent
	}, func(error) Verdict { return Verdict{Retryable: false, RecordFailure: true} })

	if !errors.Is(err, permanent) {
		t.Fatalf("err = %v, want the permanent error", err)
	}
	if attempts != 1 {
		t.Fatalf("attempts = %d, want 1", attempts)
	}
}

func TestExecuteExhaustsAttempts(t *testing.T) {
	exec := testExecutor(fastPolicy())
	transient := errors.New("still down")

	attempts := 0
	err := exec.Execute(context.Background(), "down", func(context.Context) error {
		attempts++
		return transient
	}, retryAll)

	if !errors.Is(err, transient) {
		t.Fatalf("err = %v, want the transient error", err)
	}
	if attempts != 3 {
		t.Fatalf("attempts = %d, want the configured 3", attempts)
	}
}

func TestExecuteHonorsContextCancellation(t *testing.T) {
	exec := testExecutor(fastPolicy())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	attempts := 0
	err := exec.Execute(ctx, "canceled", func(context.Context) error {
		attempts++
		return nil
	}, retryAll)

	if !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
	if attempts != 0 {
		t.Fatalf("attempts = %d, want 0 after pre-canceled context", attempts)
	}
}

func TestExecuteOpensBreakerAfterFailureRatio(t *testing.T) {
	policy := fastPolicy()
	policy.RetryMaxAttempts = 1
	policy.BreakerEnabled = true
	policy.BreakerMinRequests = 3
	policy.BreakerFailureRatio = 0.5
	policy.BreakerOpenTimeout = time.Minute
	exec := testExecutor(policy)

	failing := func(context.Context) error { return errors.New("dependency down") }
	for i := 0; i < 3; i++ {
		_ = exec.Execute(context.Background(), "breaker", failing, retryAll)
	}

	err := exec.Execute(context.Background(), "breaker", func(context.Context) error {
		t.Fatal("callback ran behind an open breaker")
		return nil
	}, retryAll)

	if !IsCircuitOpen(err) {
		t.Fatalf("err = %v, want an open-circuit error", err)
	}
}

func TestExecuteBreakerIgnoresUnrecordedFailures(t *testing.T) {
	policy := fastPolicy()
	policy.RetryMaxAttempts = 1
	policy.BreakerEnabled = true
	policy.BreakerMinRequests = 3
	policy.BreakerFailureRatio = 0.5
	exec := testExecutor(policy)

	noRecord := func(error) Verdict { return Verdict{Retryable: false, RecordFailure: false} }
	failing := func(context.Context) error { return errors.New("caller gave up") }
	for i := 0; i < 5; i++ {
		_ = exec.Execute(context.Background(), "lenient", failing, noRecord)
	}

	err := exec.Execute(context.Background(), "lenient", func(context.Context) error { return nil }, noRecord)
	if err != nil {
		t.Fatalf("breaker tripped on unrecorded failures: %v", err)
	}
}

func TestExecuteRejectsNilCallback(t *testing.T) {
	exec := testExecutor(fastPolicy())
	if err := exec.Execute(context.Background(), "nil", nil, nil); err == nil {
		t.Fatal("expected an error for a nil callback")
	}
}
