package resilience_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/boddenberg/onsite-analytics-go/internal/domain"
	"github.com/boddenberg/onsite-analytics-go/internal/infra/resilience"
)

func TestExecute_PassesThroughResult(t *testing.T) {
	cb := resilience.NewCircuitBreaker("test", resilience.Config{}, nil)

	n, err := resilience.Execute(cb, func() (int, error) { return 42, nil })
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if n != 42 {
		t.Errorf("expected 42, got %d", n)
	}
}

func TestExecute_DoesNotRetry(t *testing.T) {
	cb := resilience.NewCircuitBreaker("test", resilience.Config{}, nil)

	calls := 0
	_, err := resilience.Execute(cb, func() (int, error) {
		calls++
		return 0, errors.New("boom")
	})
	if err == nil {
		t.Fatal("expected error")
	}
	if calls != 1 {
		t.Errorf("expected 1 call, got %d", calls)
	}
}

func TestExecute_OpenBreakerReturnsErrCircuitOpen(t *testing.T) {
	cb := resilience.NewCircuitBreaker("store", resilience.Config{BreakerTimeout: time.Minute}, nil)

	for i := 0; i < 5; i++ {
		_, _ = resilience.Execute(cb, func() (int, error) { return 0, errors.New("down") })
	}

	calls := 0
	_, err := resilience.Execute(cb, func() (int, error) {
		calls++
		return 1, nil
	})

	var open *domain.ErrCircuitOpen
	if !errors.As(err, &open) {
		t.Fatalf("expected ErrCircuitOpen, got %v", err)
	}
	if open.Service != "store" {
		t.Errorf("expected service store, got %q", open.Service)
	}
	if calls != 0 {
		t.Errorf("expected fn not to run while open, ran %d times", calls)
	}
}

func TestExecute_CanceledContextDoesNotTrip(t *testing.T) {
	cb := resilience.NewCircuitBreaker("store", resilience.Config{}, nil)

	for i := 0; i < 10; i++ {
		_, _ = resilience.Execute(cb, func() (int, error) { return 0, context.Canceled })
	}

	if _, err := resilience.Execute(cb, func() (int, error) { return 1, nil }); err != nil {
		t.Fatalf("expected breaker to stay closed, got %v", err)
	}
}

func TestBulkhead_AcquireRelease(t *testing.T) {
	bh := resilience.NewBulkhead(2)

	if err := bh.Acquire(context.Background()); err != nil {
		t.Fatalf("expected acquire, got %v", err)
	}
	if err := bh.Acquire(context.Background()); err != nil {
		t.Fatalf("expected acquire, got %v", err)
	}
	if bh.InUse() != 2 {
		t.Errorf("expected 2 in use, got %d", bh.InUse())
	}

	// Third acquire should block, test with timeout context
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	err := bh.Acquire(ctx)
	if err == nil {
		t.Fatal("expected timeout on third acquire")
	}

	bh.Release()

	if err := bh.Acquire(context.Background()); err != nil {
		t.Fatalf("expected acquire after release, got %v", err)
	}
}

func TestBulkhead_ZeroConcurrencyStillAdmitsOne(t *testing.T) {
	bh := resilience.NewBulkhead(0)
	if err := bh.Acquire(context.Background()); err != nil {
		t.Fatalf("expected acquire, got %v", err)
	}
	bh.Release()
}
