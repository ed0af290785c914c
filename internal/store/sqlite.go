package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	_ "modernc.org/sqlite"

	"github.com/vidscribe/vidscribe/internal/model"
)

// Ensure SQLiteStore implements model.JobStore.
var _ model.JobStore = (*SQLiteStore)(nil)

// SQLiteStore persists job records in a SQLite database. Records are stored
// as JSON under their job ID, keeping the store a plain key-value mapping.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens (or creates) a SQLite database at dbPath and ensures
// the jobs table exists.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("opening sqlite db: %w", err)
	}

	// Verify the connection is alive.
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("pinging sqlite db: %w", err)
	}

	createTable := `CREATE TABLE IF NOT EXISTS transcription_jobs (
		job_id TEXT PRIMARY KEY,
		record TEXT NOT NULL
	)`
	if _, err := db.Exec(createTable); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating transcription_jobs table: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) Get(ctx context.Context, jobID string) (model.JobRecord, error) {
	var raw string
	err := s.db.QueryRowContext(ctx,
		"SELECT record FROM transcription_jobs WHERE job_id = ?", jobID).Scan(&raw)
	if err == sql.ErrNoRows {
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

func (s *SQLiteStore) Set(ctx context.Context, jobID string, rec model.JobRecord) error {
	raw, err := json.Marshal(rec)
	if err != nil {
		return &model.StorageError{Op: "set", Key: jobID, Err: err}
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO transcription_jobs (job_id, record) VALUES (?, ?)
		 ON CONFLICT(job_id) DO UPDATE SET record = excluded.record`,
		jobID, string(raw))
	if err != nil {
		return &model.StorageError{Op: "set", Key: jobID, Err: err}
	}
	return nil
}

func (s *SQLiteStore) Keys(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT job_id FROM transcription_jobs")
	if err != nil {
		return nil, &model.StorageError{Op: "keys", Err: err}
	}
	defer rows.Close()

	var keys []string
	for rows.Next() {
		var k string
		if err := rows.Scan(&k); err != nil {
			return nil, &model.StorageError{Op: "keys", Err: err}
		}
		keys = append(keys, k)
	}
	if err := rows.Err(); err != nil {
		return nil, &model.StorageError{Op: "keys", Err: err}
	}
	return keys, nil
}

// Close closes the underlying database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
