package retry

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/vidscribe/vidscribe/internal/model"
)

// flakyClient fails GetPrediction a fixed number of times before succeeding.
type flakyClient struct {
	failures int
	err      error
	calls    int
}

func (f *flakyClient) Upload(ctx context.Context, path, filename string) (model.FileRef, error) {
	return model.FileRef{ID: "file-1"}, nil
}

func (f *flakyClient) Generate(ctx context.Context, fileID string, opts model.GenerateOptions) (model.Prediction, error) {
	return model.Prediction{ID: "p1"}, nil
}

func (f *flakyClient) GetPrediction(ctx context.Context, predictionID string) (model.Prediction, error) {
	f.calls++
	if f.calls <= f.failures {
		return model.Prediction{}, f.err
	}
	return model.Prediction{ID: predictionID, Status: "completed"}, nil
}

func (f *flakyClient) ListPredictions(ctx context.Context, limit int) ([]model.Prediction, error) {
	f.calls++
	if f.calls <= f.failures {
		return nil, f.err
	}
	return []model.Prediction{{ID: "p1"}}, nil
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestGetPrediction_RetriesTransientError(t *testing.T) {
	inner := &flakyClient{failures: 2, err: &model.QueryError{StatusCode: 503, Err: errors.New("unavailable")}}
	c := NewClient(inner, 3, time.Millisecond, testLogger())

	pred, err := c.GetPrediction(context.Background(), "p1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if pred.Status != "completed" {
		t.Errorf("unexpected prediction: %+v", pred)
	}
	if inner.calls != 3 {
		t.Errorf("expected 3 calls, got %d", inner.calls)
	}
}

func TestGetPrediction_GivesUpAfterMaxRetries(t *testing.T) {
	inner := &flakyClient{failures: 10, err: &model.QueryError{StatusCode: 500, Err: errors.New("boom")}}
	c := NewClient(inner, 2, time.Millisecond, testLogger())

	_, err := c.GetPrediction(context.Background(), "p1")
	var qErr *model.QueryError
	if !errors.As(err, &qErr) {
		t.Fatalf("expected QueryError, got %v", err)
	}
	if inner.calls != 3 {
		t.Errorf("expected 3 calls (1 + 2 retries), got %d", inner.calls)
	}
}

func TestGetPrediction_NoRetryOnClientError(t *testing.T) {
	inner := &flakyClient{failures: 10, err: &model.QueryError{StatusCode: 404, Err: errors.New("gone")}}
	c := NewClient(inner, 3, time.Millisecond, testLogger())

	_, err := c.GetPrediction(context.Background(), "p1")
	if err == nil {
		t.Fatal("expected error")
	}
	if inner.calls != 1 {
		t.Errorf("expected a single call for a 404, got %d", inner.calls)
	}
}

func TestGetPrediction_RetriesNetworkError(t *testing.T) {
	inner := &flakyClient{failures: 1, err: &model.QueryError{Err: errors.New("connection refused")}}
	c := NewClient(inner, 2, time.Millisecond, testLogger())

	if _, err := c.GetPrediction(context.Background(), "p1"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if inner.calls != 2 {
		t.Errorf("expected 2 calls, got %d", inner.calls)
	}
}

func TestDo_ContextCancelledDuringBackoff(t *testing.T) {
	inner := &flakyClient{failures: 10, err: &model.QueryError{StatusCode: 500, Err: errors.New("boom")}}
	c := NewClient(inner, 3, time.Hour, testLogger())

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(10 * time.Millisecond)
		cancel()
	}()

	_, err := c.GetPrediction(ctx, "p1")
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context cancellation, got %v", err)
	}
}
