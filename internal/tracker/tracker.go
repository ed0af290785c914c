package tracker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/vidscribe/vidscribe/internal/model"
)

// transcriptionDomain is the prediction domain submitted with every job.
const transcriptionDomain = "video.transcription"

// defaultListLimit bounds the recent-prediction window fetched during a
// listing sync.
const defaultListLimit = 50

// Tracker owns the lifecycle of transcription jobs: it creates records on
// submission and reconciles remote status observations (push callbacks and
// on-demand polls) into the store. All store mutations go through a per-key
// lock so a callback racing a poll for the same job cannot lose an update.
type Tracker struct {
	store       model.JobStore
	newClient   model.ClientFactory
	notifier    model.Notifier
	callbackURL string
	listLimit   int
	logger      *slog.Logger
	locks       keyLocks
}

// Options configures optional Tracker behavior.
type Options struct {
	CallbackURL string         // full callback route URL; empty disables push callbacks
	ListLimit   int            // recent-prediction window for listing sync (default 50)
	Notifier    model.Notifier // told about terminal transitions; nil disables
}

// New creates a Tracker backed by the given store and client factory.
func New(store model.JobStore, newClient model.ClientFactory, opts Options, logger *slog.Logger) *Tracker {
	limit := opts.ListLimit
	if limit <= 0 {
		limit = defaultListLimit
	}
	return &Tracker{
		store:       store,
		newClient:   newClient,
		notifier:    opts.Notifier,
		callbackURL: opts.CallbackURL,
		listLimit:   limit,
		logger:      logger,
	}
}

// newJobID builds a job identifier of the form job_<unixMilli>_<random>.
func newJobID() string {
	suffix := strings.ReplaceAll(uuid.NewString(), "-", "")[:7]
	return fmt.Sprintf("job_%d_%s", time.Now().UnixMilli(), suffix)
}

// update runs a read-modify-write sequence for one job under its key lock.
func (t *Tracker) update(ctx context.Context, jobID string, fn func(model.JobRecord) model.JobRecord) (model.JobRecord, error) {
	mu := t.locks.get(jobID)
	mu.Lock()
	defer mu.Unlock()

	rec, err := t.store.Get(ctx, jobID)
	if err != nil {
		return model.JobRecord{}, err
	}
	merged := fn(rec)
	if err := t.store.Set(ctx, jobID, merged); err != nil {
		return model.JobRecord{}, err
	}
	return merged, nil
}

// maybeNotify fires the notifier when a record just reached a terminal state.
func (t *Tracker) maybeNotify(prev model.JobStatus, rec model.JobRecord) {
	if t.notifier == nil || prev.Terminal() || !rec.Status.Terminal() {
		return
	}
	if err := t.notifier.Notify(rec); err != nil {
		t.logger.Warn("notification failed", "job_id", rec.JobID, "error", err)
	}
}

// Submit creates a job record, uploads the video, and submits it for
// transcription. The pending record is written before any remote call so a
// crash mid-submission leaves an observable record rather than nothing.
// Remote failures are recorded as a terminal error state and surfaced.
func (t *Tracker) Submit(ctx context.Context, data []byte, filename, apiKey string) (model.JobRecord, error) {
	if apiKey == "" {
		return model.JobRecord{}, &model.ValidationError{Msg: "API key required"}
	}
	if len(data) == 0 {
		return model.JobRecord{}, &model.ValidationError{Msg: "no video file provided"}
	}
	if filename == "" {
		filename = "video.mp4"
	}
	filename = filepath.Base(filename)

	jobID := newJobID()
	now := time.Now().UTC()
	rec := model.JobRecord{JobID: jobID, Status: model.StatusPending, CreatedAt: now}
	if err := t.store.Set(ctx, jobID, rec); err != nil {
		return model.JobRecord{}, err
	}

	// The client uploads by path, so materialize the bytes into a temp file
	// and remove it on every exit path.
	tmpPath := filepath.Join(os.TempDir(), jobID+"_"+filename)
	defer t.removeTemp(tmpPath)
	if err := os.WriteFile(tmpPath, data, 0o600); err != nil {
		return t.failSubmit(ctx, jobID, fmt.Errorf("writing temp file: %w", err))
	}

	t.logger.Info("uploading video file",
		"job_id", jobID,
		"filename", filename,
		"size", len(data),
	)

	client := t.newClient(apiKey)
	fileRef, err := client.Upload(ctx, tmpPath, filename)
	if err != nil {
		return t.failSubmit(ctx, jobID, err)
	}
	t.logger.Info("file uploaded", "job_id", jobID, "file_id", fileRef.ID)

	pred, err := client.Generate(ctx, fileRef.ID, model.GenerateOptions{
		Domain:      transcriptionDomain,
		Batch:       true,
		CallbackURL: t.callbackURLFor(jobID),
	})
	if err != nil {
		return t.failSubmit(ctx, jobID, err)
	}
	t.logger.Info("transcription job started", "job_id", jobID, "prediction_id", pred.ID)

	// A callback for this job may already have landed, so merge rather than
	// blindly overwrite.
	return t.update(ctx, jobID, func(cur model.JobRecord) model.JobRecord {
		cur.PredictionID = pred.ID
		if !cur.Status.Terminal() {
			cur.Status = model.StatusProcessing
		}
		return cur
	})
}

// failSubmit records a terminal error state for the job and surfaces cause.
func (t *Tracker) failSubmit(ctx context.Context, jobID string, cause error) (model.JobRecord, error) {
	now := time.Now().UTC()
	rec, err := t.update(ctx, jobID, func(cur model.JobRecord) model.JobRecord {
		cur.Status = model.StatusError
		cur.Error = cause.Error()
		if cur.CompletedAt == nil {
			cur.CompletedAt = &now
		}
		return cur
	})
	if err != nil {
		t.logger.Error("failed to record submission failure", "job_id", jobID, "error", err)
	}
	t.logger.Error("submission failed", "job_id", jobID, "error", cause)
	return rec, cause
}

func (t *Tracker) removeTemp(path string) {
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		t.logger.Warn("failed to delete temp file", "path", path, "error", err)
	}
}

func (t *Tracker) callbackURLFor(jobID string) string {
	if t.callbackURL == "" {
		return ""
	}
	return t.callbackURL + "?jobId=" + url.QueryEscape(jobID)
}

// callbackPayload is the push notification body from the remote service.
type callbackPayload struct {
	Status   string          `json:"status"`
	Message  string          `json:"message"`
	Response json.RawMessage `json:"response"`
}

// HandleCallback merges an asynchronous push notification into the job's
// stored record. Unknown job IDs return ErrNotFound so the remote side can
// stop retrying.
func (t *Tracker) HandleCallback(ctx context.Context, jobID string, payload []byte) (model.JobRecord, error) {
	if jobID == "" {
		return model.JobRecord{}, &model.ValidationError{Msg: "job ID not provided"}
	}

	var cb callbackPayload
	if err := json.Unmarshal(payload, &cb); err != nil {
		return model.JobRecord{}, &model.ValidationError{Msg: fmt.Sprintf("invalid callback payload: %v", err)}
	}

	out := classify(cb.Status, cb.Message, cb.Response, json.RawMessage(payload))

	var prev model.JobStatus
	merged, err := t.update(ctx, jobID, func(cur model.JobRecord) model.JobRecord {
		prev = cur.Status
		return apply(cur, out, mergeCallback, time.Now().UTC())
	})
	if err != nil {
		return model.JobRecord{}, err
	}

	t.logger.Info("callback reconciled", "job_id", jobID, "status", merged.Status)
	t.maybeNotify(prev, merged)
	return merged, nil
}

// Get returns the stored record without touching the remote service.
func (t *Tracker) Get(ctx context.Context, jobID string) (model.JobRecord, error) {
	if jobID == "" {
		return model.JobRecord{}, &model.ValidationError{Msg: "job ID not provided"}
	}
	return t.store.Get(ctx, jobID)
}

// Refresh polls the remote service for the job's current state and merges
// it into the stored record. A failed remote query degrades to the
// last-known local state; it never mutates the record.
func (t *Tracker) Refresh(ctx context.Context, jobID, apiKey string) (model.JobRecord, error) {
	if apiKey == "" {
		return model.JobRecord{}, &model.ValidationError{Msg: "API key required"}
	}
	if jobID == "" {
		return model.JobRecord{}, &model.ValidationError{Msg: "job ID not provided"}
	}

	rec, err := t.store.Get(ctx, jobID)
	if err != nil {
		return model.JobRecord{}, err
	}
	// Nothing to poll until submission assigned a prediction.
	if rec.PredictionID == "" {
		return rec, nil
	}

	pred, err := t.newClient(apiKey).GetPrediction(ctx, rec.PredictionID)
	if err != nil {
		t.logger.Warn("prediction query failed, returning local state",
			"job_id", jobID,
			"prediction_id", rec.PredictionID,
			"error", err,
		)
		return rec, nil
	}

	out := classify(pred.Status, pred.Message, pred.Response, predictionPayload(pred))
	out.completedAt = pred.CompletedAt

	var prev model.JobStatus
	merged, err := t.update(ctx, jobID, func(cur model.JobRecord) model.JobRecord {
		prev = cur.Status
		return apply(cur, out, mergeSync, time.Now().UTC())
	})
	if err != nil {
		return model.JobRecord{}, err
	}
	t.maybeNotify(prev, merged)
	return merged, nil
}

// ListAll loads every stored record, best-effort syncs them against the
// recent remote prediction window, and returns them newest first. Records
// without a valid creation time sort last.
func (t *Tracker) ListAll(ctx context.Context, apiKey string) ([]model.JobRecord, error) {
	keys, err := t.store.Keys(ctx)
	if err != nil {
		return nil, err
	}

	recs := make([]model.JobRecord, 0, len(keys))
	for _, id := range keys {
		rec, err := t.store.Get(ctx, id)
		if errors.Is(err, model.ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		recs = append(recs, rec)
	}

	if apiKey != "" {
		recs = t.syncRecent(ctx, apiKey, recs)
	}

	sort.SliceStable(recs, func(i, j int) bool {
		return recs[i].CreatedAt.After(recs[j].CreatedAt)
	})
	return recs, nil
}

// syncRecent merges the recent remote prediction window into the matching
// local records. Sync failures are logged and skipped; the read path never
// fails because the remote service is down.
func (t *Tracker) syncRecent(ctx context.Context, apiKey string, recs []model.JobRecord) []model.JobRecord {
	preds, err := t.newClient(apiKey).ListPredictions(ctx, t.listLimit)
	if err != nil {
		t.logger.Warn("prediction list sync failed, serving local data", "error", err)
		return recs
	}

	byPrediction := make(map[string]int, len(recs))
	for i, rec := range recs {
		if rec.PredictionID != "" {
			byPrediction[rec.PredictionID] = i
		}
	}

	for _, pred := range preds {
		i, ok := byPrediction[pred.ID]
		if !ok {
			continue
		}

		out := classify(pred.Status, pred.Message, pred.Response, predictionPayload(pred))
		out.completedAt = pred.CompletedAt

		var prev model.JobStatus
		merged, err := t.update(ctx, recs[i].JobID, func(cur model.JobRecord) model.JobRecord {
			prev = cur.Status
			return apply(cur, out, mergeSync, time.Now().UTC())
		})
		if err != nil {
			t.logger.Warn("listing sync merge failed", "job_id", recs[i].JobID, "error", err)
			continue
		}
		t.maybeNotify(prev, merged)
		recs[i] = merged
	}
	return recs
}

// importRequest is the body for registering an externally-submitted
// prediction as a local job record.
type importRequest struct {
	Status     string          `json:"status"`
	Transcript string          `json:"transcript"`
	Error      string          `json:"error"`
	Prediction json.RawMessage `json:"prediction"`
}

// ImportPrediction creates a local record for a prediction that was
// submitted outside this system, so it shows up in listings and can be
// reconciled like any other job.
func (t *Tracker) ImportPrediction(ctx context.Context, predictionID string, payload []byte) (model.JobRecord, error) {
	if predictionID == "" {
		return model.JobRecord{}, &model.ValidationError{Msg: "prediction ID is required"}
	}

	var req importRequest
	if err := json.Unmarshal(payload, &req); err != nil {
		return model.JobRecord{}, &model.ValidationError{Msg: fmt.Sprintf("invalid import payload: %v", err)}
	}

	now := time.Now().UTC()
	status := model.JobStatus(req.Status)
	if status == "" {
		status = "unknown"
	}

	rec := model.JobRecord{
		JobID:        fmt.Sprintf("job_%s_%d", predictionID, now.UnixMilli()),
		PredictionID: predictionID,
		Status:       status,
		Transcript:   req.Transcript,
		Error:        req.Error,
		CreatedAt:    now,
		FullResponse: req.Prediction,
	}
	if status.Terminal() {
		rec.CompletedAt = &now
	}

	if err := t.store.Set(ctx, rec.JobID, rec); err != nil {
		return model.JobRecord{}, err
	}
	t.logger.Info("prediction imported", "job_id", rec.JobID, "prediction_id", predictionID, "status", status)
	return rec, nil
}

// predictionPayload renders a polled prediction in the same shape the
// remote service uses on the wire, for the record's fullResponse field.
func predictionPayload(pred model.Prediction) json.RawMessage {
	envelope := struct {
		ID          string          `json:"id"`
		Status      string          `json:"status"`
		CreatedAt   *time.Time      `json:"created_at,omitempty"`
		CompletedAt *time.Time      `json:"completed_at,omitempty"`
		Response    json.RawMessage `json:"response,omitempty"`
		Message     string          `json:"message,omitempty"`
		Usage       json.RawMessage `json:"usage,omitempty"`
	}{
		ID:          pred.ID,
		Status:      pred.Status,
		CompletedAt: pred.CompletedAt,
		Response:    pred.Response,
		Message:     pred.Message,
		Usage:       pred.Usage,
	}
	if !pred.CreatedAt.IsZero() {
		created := pred.CreatedAt
		envelope.CreatedAt = &created
	}
	raw, err := json.Marshal(envelope)
	if err != nil {
		return nil
	}
	return raw
}
