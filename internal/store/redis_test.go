package store

import (
	"context"
	"errors"
	"sort"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"

	"github.com/vidscribe/vidscribe/internal/model"
)

func newTestRedisStore(t *testing.T) *RedisStore {
	t.Helper()
	mr := miniredis.RunT(t)
	s, err := NewRedisStore(context.Background(), mr.Addr(), 0)
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestRedisStore_RoundTrip(t *testing.T) {
	s := newTestRedisStore(t)
	ctx := context.Background()

	rec := model.JobRecord{
		JobID:        "job_1_abc",
		PredictionID: "pred-1",
		Status:       model.StatusProcessing,
		CreatedAt:    time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
	}
	if err := s.Set(ctx, rec.JobID, rec); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	got, err := s.Get(ctx, rec.JobID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.JobID != rec.JobID || got.PredictionID != rec.PredictionID || got.Status != rec.Status {
		t.Errorf("round trip mismatch: %+v", got)
	}
	if !got.CreatedAt.Equal(rec.CreatedAt) {
		t.Errorf("unexpected CreatedAt: %v", got.CreatedAt)
	}
}

func TestRedisStore_GetUnknownID(t *testing.T) {
	s := newTestRedisStore(t)

	_, err := s.Get(context.Background(), "job_never_submitted")
	if !errors.Is(err, model.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestRedisStore_KeysStripPrefix(t *testing.T) {
	s := newTestRedisStore(t)
	ctx := context.Background()

	want := []string{"job_1_a", "job_2_b"}
	for _, id := range want {
		rec := model.JobRecord{JobID: id, Status: model.StatusPending, CreatedAt: time.Now().UTC()}
		if err := s.Set(ctx, id, rec); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}

	keys, err := s.Keys(ctx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	sort.Strings(keys)
	if len(keys) != 2 || keys[0] != "job_1_a" || keys[1] != "job_2_b" {
		t.Errorf("unexpected keys: %v", keys)
	}
}
