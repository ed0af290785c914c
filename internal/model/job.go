package model

import (
	"context"
	"encoding/json"
	"time"
)

// JobStatus is the lifecycle state of a transcription job. The four values
// below are the ones this system assigns itself; any other string observed
// from the remote service is passed through unchanged.
type JobStatus string

const (
	StatusPending    JobStatus = "pending"
	StatusProcessing JobStatus = "processing"
	StatusCompleted  JobStatus = "completed"
	StatusError      JobStatus = "error"
)

// Terminal reports whether the status is a final state.
func (s JobStatus) Terminal() bool {
	return s == StatusCompleted || s == StatusError
}

// JobRecord is the stored state of a single transcription job. It is written
// as JSON under the job ID, so field names match the storage format.
type JobRecord struct {
	JobID        string          `json:"jobId"`
	PredictionID string          `json:"predictionId,omitempty"`
	Status       JobStatus       `json:"status"`
	Transcript   string          `json:"transcript,omitempty"`
	Error        string          `json:"error,omitempty"`
	CreatedAt    time.Time       `json:"createdAt"`
	CompletedAt  *time.Time      `json:"completedAt,omitempty"`
	FullResponse json.RawMessage `json:"fullResponse,omitempty"`
}

// FileRef identifies a file uploaded to the inference service.
type FileRef struct {
	ID       string
	Filename string
}

// Prediction is the remote service's view of one transcription job.
type Prediction struct {
	ID          string
	Status      string
	CreatedAt   time.Time
	CompletedAt *time.Time
	Response    json.RawMessage
	Message     string
	Usage       json.RawMessage
}

// GenerateOptions are the parameters for submitting an uploaded file.
type GenerateOptions struct {
	Domain      string
	Batch       bool
	CallbackURL string // empty disables the remote push callback
}

// JobStore is the durable keyed store for job records. Set is a full
// overwrite of the value at the key; Get returns ErrNotFound for unknown
// IDs. Implementations must be safe for concurrent use, but callers are
// responsible for serializing read-modify-write sequences per key.
type JobStore interface {
	Get(ctx context.Context, jobID string) (JobRecord, error)
	Set(ctx context.Context, jobID string, rec JobRecord) error
	Keys(ctx context.Context) ([]string, error)
	Close() error
}

// InferenceClient is the boundary to the remote transcription service.
type InferenceClient interface {
	Upload(ctx context.Context, path string, filename string) (FileRef, error)
	Generate(ctx context.Context, fileID string, opts GenerateOptions) (Prediction, error)
	GetPrediction(ctx context.Context, predictionID string) (Prediction, error)
	ListPredictions(ctx context.Context, limit int) ([]Prediction, error)
}

// ClientFactory builds an InferenceClient bound to a caller credential.
// Callers supply their API key per request, so clients are constructed on
// demand rather than shared.
type ClientFactory func(apiKey string) InferenceClient

// Notifier is told about jobs that reached a terminal state.
type Notifier interface {
	Notify(rec JobRecord) error
}
