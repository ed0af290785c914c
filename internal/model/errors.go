package model

import (
	"errors"
	"fmt"
)

// ErrNotFound is returned when a job ID has no stored record.
var ErrNotFound = errors.New("job not found")

// ValidationError reports missing or malformed caller input. It is surfaced
// immediately and never retried.
type ValidationError struct {
	Msg string
}

func (e *ValidationError) Error() string {
	return e.Msg
}

// UploadError wraps a failure while uploading a file to the inference service.
type UploadError struct {
	StatusCode int // zero when the failure happened before an HTTP response
	Err        error
}

func (e *UploadError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("upload failed (HTTP %d): %v", e.StatusCode, e.Err)
	}
	return fmt.Sprintf("upload failed: %v", e.Err)
}

func (e *UploadError) Unwrap() error {
	return e.Err
}

// SubmissionError wraps a failure while submitting an uploaded file for
// transcription.
type SubmissionError struct {
	StatusCode int
	Err        error
}

func (e *SubmissionError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("submission failed (HTTP %d): %v", e.StatusCode, e.Err)
	}
	return fmt.Sprintf("submission failed: %v", e.Err)
}

func (e *SubmissionError) Unwrap() error {
	return e.Err
}

// QueryError wraps a failure while polling or listing predictions. Callers
// treat it as transient: the local record is left untouched.
type QueryError struct {
	StatusCode int
	Err        error
}

func (e *QueryError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("prediction query failed (HTTP %d): %v", e.StatusCode, e.Err)
	}
	return fmt.Sprintf("prediction query failed: %v", e.Err)
}

func (e *QueryError) Unwrap() error {
	return e.Err
}

// StorageError wraps a durable-store failure. Always surfaced; never
// swallowed into a degraded read.
type StorageError struct {
	Op  string // "get", "set", "keys"
	Key string
	Err error
}

func (e *StorageError) Error() string {
	if e.Key != "" {
		return fmt.Sprintf("store %s %s: %v", e.Op, e.Key, e.Err)
	}
	return fmt.Sprintf("store %s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error {
	return e.Err
}
