package ratelimit

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/vidscribe/vidscribe/internal/model"
)

// Limiter enforces a minimum delay between consecutive calls to the same
// remote operation. The background refresher shares one instance across all
// jobs so a large backlog cannot hammer the prediction endpoint.
type Limiter struct {
	mu       sync.Mutex
	lastCall map[string]time.Time // key: operation name
	minDelay time.Duration
}

// NewLimiter creates a limiter enforcing minDelay between consecutive calls
// to the same operation.
func NewLimiter(minDelay time.Duration) *Limiter {
	return &Limiter{
		lastCall: make(map[string]time.Time),
		minDelay: minDelay,
	}
}

// Wait blocks until enough time has passed since the last call to op.
// Returns an error if the context is cancelled while waiting.
func (l *Limiter) Wait(ctx context.Context, op string) error {
	l.mu.Lock()
	last, ok := l.lastCall[op]
	now := time.Now()

	if !ok || now.Sub(last) >= l.minDelay {
		l.lastCall[op] = now
		l.mu.Unlock()
		return nil
	}

	remaining := l.minDelay - now.Sub(last)
	l.mu.Unlock()

	select {
	case <-ctx.Done():
		return fmt.Errorf("rate limiter wait for %s: %w", op, ctx.Err())
	case <-time.After(remaining):
	}

	l.mu.Lock()
	l.lastCall[op] = time.Now()
	l.mu.Unlock()

	return nil
}

// Ensure Client implements model.InferenceClient.
var _ model.InferenceClient = (*Client)(nil)

// Client is a decorator that rate-limits calls to the remote service.
type Client struct {
	inner   model.InferenceClient
	limiter *Limiter
}

// NewClient wraps an InferenceClient with rate limiting. Clients sharing a
// credential should share the same limiter instance.
func NewClient(inner model.InferenceClient, limiter *Limiter) *Client {
	return &Client{inner: inner, limiter: limiter}
}

func (c *Client) Upload(ctx context.Context, path string, filename string) (model.FileRef, error) {
	if err := c.limiter.Wait(ctx, "upload"); err != nil {
		return model.FileRef{}, err
	}
	return c.inner.Upload(ctx, path, filename)
}

func (c *Client) Generate(ctx context.Context, fileID string, opts model.GenerateOptions) (model.Prediction, error) {
	if err := c.limiter.Wait(ctx, "generate"); err != nil {
		return model.Prediction{}, err
	}
	return c.inner.Generate(ctx, fileID, opts)
}

func (c *Client) GetPrediction(ctx context.Context, predictionID string) (model.Prediction, error) {
	if err := c.limiter.Wait(ctx, "predictions.get"); err != nil {
		return model.Prediction{}, err
	}
	return c.inner.GetPrediction(ctx, predictionID)
}

func (c *Client) ListPredictions(ctx context.Context, limit int) ([]model.Prediction, error) {
	if err := c.limiter.Wait(ctx, "predictions.list"); err != nil {
		return nil, err
	}
	return c.inner.ListPredictions(ctx, limit)
}
