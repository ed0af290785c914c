package ratelimit

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestWait_FirstCallImmediate(t *testing.T) {
	l := NewLimiter(time.Second)

	start := time.Now()
	if err := l.Wait(context.Background(), "predictions.get"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if elapsed := time.Since(start); elapsed > 100*time.Millisecond {
		t.Errorf("first call should not wait, took %v", elapsed)
	}
}

func TestWait_EnforcesMinDelay(t *testing.T) {
	l := NewLimiter(50 * time.Millisecond)
	ctx := context.Background()

	if err := l.Wait(ctx, "predictions.get"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	start := time.Now()
	if err := l.Wait(ctx, "predictions.get"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if elapsed := time.Since(start); elapsed < 40*time.Millisecond {
		t.Errorf("expected second call to wait ~50ms, waited %v", elapsed)
	}
}

func TestWait_OperationsIndependent(t *testing.T) {
	l := NewLimiter(time.Second)
	ctx := context.Background()

	if err := l.Wait(ctx, "predictions.get"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	start := time.Now()
	if err := l.Wait(ctx, "predictions.list"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if elapsed := time.Since(start); elapsed > 100*time.Millisecond {
		t.Errorf("different operation should not wait, took %v", elapsed)
	}
}

func TestWait_ContextCancelled(t *testing.T) {
	l := NewLimiter(time.Hour)
	ctx, cancel := context.WithCancel(context.Background())

	if err := l.Wait(ctx, "predictions.get"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	go func() {
		time.Sleep(10 * time.Millisecond)
		cancel()
	}()
	err := l.Wait(ctx, "predictions.get")
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context cancellation, got %v", err)
	}
}
