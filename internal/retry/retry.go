package retry

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"time"

	"github.com/vidscribe/vidscribe/internal/model"
)

// Ensure Client implements model.InferenceClient.
var _ model.InferenceClient = (*Client)(nil)

// Client is a decorator that retries transient failures of the read-only
// prediction queries with exponential backoff and jitter. Upload and
// Generate pass through untried: they are not idempotent, and a submission
// failure is terminal for the job by contract.
type Client struct {
	inner      model.InferenceClient
	maxRetries int
	baseDelay  time.Duration
	logger     *slog.Logger
}

// NewClient wraps an InferenceClient with retry logic for polling calls.
// maxRetries is the number of additional attempts after the first failure,
// baseDelay the delay before the first retry, doubled on each subsequent one.
func NewClient(inner model.InferenceClient, maxRetries int, baseDelay time.Duration, logger *slog.Logger) *Client {
	return &Client{
		inner:      inner,
		maxRetries: maxRetries,
		baseDelay:  baseDelay,
		logger:     logger,
	}
}

func (c *Client) Upload(ctx context.Context, path string, filename string) (model.FileRef, error) {
	return c.inner.Upload(ctx, path, filename)
}

func (c *Client) Generate(ctx context.Context, fileID string, opts model.GenerateOptions) (model.Prediction, error) {
	return c.inner.Generate(ctx, fileID, opts)
}

// GetPrediction polls the prediction, retrying on transient errors.
func (c *Client) GetPrediction(ctx context.Context, predictionID string) (model.Prediction, error) {
	var pred model.Prediction
	err := c.do(ctx, func() error {
		var err error
		pred, err = c.inner.GetPrediction(ctx, predictionID)
		return err
	})
	return pred, err
}

// ListPredictions lists recent predictions, retrying on transient errors.
func (c *Client) ListPredictions(ctx context.Context, limit int) ([]model.Prediction, error) {
	var preds []model.Prediction
	err := c.do(ctx, func() error {
		var err error
		preds, err = c.inner.ListPredictions(ctx, limit)
		return err
	})
	return preds, err
}

func (c *Client) do(ctx context.Context, call func() error) error {
	err := call()
	if err == nil || !isRetryable(err) {
		return err
	}

	lastErr := err
	for attempt := 1; attempt <= c.maxRetries; attempt++ {
		delay := c.backoffDelay(attempt)

		c.logger.Warn("retrying after transient error",
			"attempt", attempt,
			"max_retries", c.maxRetries,
			"delay", delay,
			"error", lastErr,
		)

		select {
		case <-ctx.Done():
			return fmt.Errorf("retry cancelled: %w", ctx.Err())
		case <-time.After(delay):
		}

		if err := call(); err == nil {
			return nil
		} else if !isRetryable(err) {
			return err
		} else {
			lastErr = err
		}
	}

	return lastErr
}

// backoffDelay computes the delay for a given attempt with ±30% jitter.
func (c *Client) backoffDelay(attempt int) time.Duration {
	// Exponential: baseDelay * 2^(attempt-1)
	delay := c.baseDelay
	for i := 1; i < attempt; i++ {
		delay *= 2
	}

	jitter := float64(delay) * 0.3
	return time.Duration(float64(delay) + (rand.Float64()*2-1)*jitter)
}

// isRetryable reports whether the error represents a transient failure.
func isRetryable(err error) bool {
	if err == nil {
		return false
	}

	// Context cancellation — never retry.
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}

	var qErr *model.QueryError
	if errors.As(err, &qErr) {
		switch {
		case qErr.StatusCode == 0:
			// Network-level failure, no HTTP response.
			return true
		case qErr.StatusCode == 429:
			return true
		case qErr.StatusCode >= 500:
			return true
		default:
			return false
		}
	}

	return false
}
