package tracker

import (
	"encoding/json"
	"time"

	"github.com/vidscribe/vidscribe/internal/model"
)

// outcomeKind is the classification of a remote status observation.
type outcomeKind int

const (
	outcomeCompleted outcomeKind = iota
	outcomeFailed
	outcomeOther
)

// remoteOutcome is one reconciliation input: a remote status observation
// reduced to a tagged variant over the statuses this system understands,
// with an "other" passthrough for everything else.
type remoteOutcome struct {
	kind        outcomeKind
	status      model.JobStatus // passthrough status for outcomeOther
	transcript  string
	errMsg      string
	completedAt *time.Time      // remote-reported terminal time, if any
	payload     json.RawMessage // stored as fullResponse when non-empty
}

// classify reduces a remote status plus response body to a remoteOutcome.
// A "completed" status without a response body carries no transcript and is
// treated as a passthrough status, matching the callback contract.
func classify(status, message string, response, payload json.RawMessage) remoteOutcome {
	switch status {
	case "completed":
		if len(response) == 0 || string(response) == "null" {
			return remoteOutcome{kind: outcomeOther, status: model.StatusCompleted, payload: payload}
		}
		return remoteOutcome{
			kind:       outcomeCompleted,
			transcript: extractTranscript(response),
			payload:    payload,
		}
	case "failed", "error":
		if message == "" {
			message = "Transcription failed"
		}
		return remoteOutcome{kind: outcomeFailed, errMsg: message, payload: payload}
	case "":
		return remoteOutcome{kind: outcomeOther, status: "unknown", payload: payload}
	default:
		return remoteOutcome{kind: outcomeOther, status: model.JobStatus(status), payload: payload}
	}
}

// mergeMode selects which reconciliation path the merge serves. Callback
// merges stamp completedAt for every status and overwrite the transcript,
// matching the push contract. Sync merges (poll and listing) stamp
// completedAt only on terminal outcomes and never replace an existing
// transcript.
type mergeMode int

const (
	mergeCallback mergeMode = iota
	mergeSync
)

// apply merges a remote outcome into a stored record, updating only the
// fields the outcome determines. An already-set completedAt is never
// overwritten, so re-applying the same terminal observation leaves the
// record unchanged.
func apply(rec model.JobRecord, out remoteOutcome, mode mergeMode, now time.Time) model.JobRecord {
	switch out.kind {
	case outcomeCompleted:
		rec.Status = model.StatusCompleted
		if mode == mergeCallback || rec.Transcript == "" {
			rec.Transcript = out.transcript
		}
		stampCompleted(&rec, out.completedAt, now)
	case outcomeFailed:
		rec.Status = model.StatusError
		rec.Error = out.errMsg
		stampCompleted(&rec, out.completedAt, now)
	case outcomeOther:
		rec.Status = out.status
		if mode == mergeCallback {
			stampCompleted(&rec, out.completedAt, now)
		}
	}
	if len(out.payload) > 0 {
		rec.FullResponse = out.payload
	}
	return rec
}

func stampCompleted(rec *model.JobRecord, remote *time.Time, now time.Time) {
	if rec.CompletedAt != nil {
		return
	}
	if remote != nil {
		rec.CompletedAt = remote
		return
	}
	t := now
	rec.CompletedAt = &t
}
