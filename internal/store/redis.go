package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/redis/go-redis/v9"

	"github.com/vidscribe/vidscribe/internal/model"
)

// keyPrefix namespaces job records in the shared keyspace.
const keyPrefix = "transcription:"

// Ensure RedisStore implements model.JobStore.
var _ model.JobStore = (*RedisStore)(nil)

// RedisStore persists job records in Redis, one JSON value per job under
// the "transcription:" prefix.
type RedisStore struct {
	client *redis.Client
}

// NewRedisStore connects to Redis at addr and verifies the connection.
func NewRedisStore(ctx context.Context, addr string, db int) (*RedisStore, error) {
	client := redis.NewClient(&redis.Options{Addr: addr, DB: db})
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("pinging redis at %s: %w", addr, err)
	}
	return &RedisStore{client: client}, nil
}

func (s *RedisStore) Get(ctx context.Context, jobID string) (model.JobRecord, error) {
	raw, err := s.client.Get(ctx, keyPrefix+jobID).Result()
	if errors.Is(err, redis.Nil) {
		return model.JobRecord{}, model.ErrNotFound
	}
	if err != nil {
		return model.JobRecord{}, &model.StorageError{Op: "get", Key: jobID, Err: err}
	}

	var rec model.JobRecord
	if err := json.Unmarshal([]byte(raw), &rec); err != nil {
		return model.JobRecord{}, &model.StorageError{Op: "get", Key: jobID, Err: err}
	}
	return rec, nil
}

func (s *RedisStore) Set(ctx context.Context, jobID string, rec model.JobRecord) error {
	raw, err := json.Marshal(rec)
	if err != nil {
		return &model.StorageError{Op: "set", Key: jobID, Err: err}
	}
	// Records are kept indefinitely; retention is a deployment concern.
	if err := s.client.Set(ctx, keyPrefix+jobID, raw, 0).Err(); err != nil {
		return &model.StorageError{Op: "set", Key: jobID, Err: err}
	}
	return nil
}

func (s *RedisStore) Keys(ctx context.Context) ([]string, error) {
	var keys []string
	iter := s.client.Scan(ctx, 0, keyPrefix+"*", 0).Iterator()
	for iter.Next(ctx) {
		keys = append(keys, strings.TrimPrefix(iter.Val(), keyPrefix))
	}
	if err := iter.Err(); err != nil {
		return nil, &model.StorageError{Op: "keys", Err: err}
	}
	return keys, nil
}

// Close closes the underlying Redis connection.
func (s *RedisStore) Close() error {
	return s.client.Close()
}
