package notifier

import (
	"log/slog"

	"github.com/vidscribe/vidscribe/internal/model"
)

// Ensure LogNotifier implements model.Notifier.
var _ model.Notifier = (*LogNotifier)(nil)

// LogNotifier writes terminal job transitions to the given logger.
type LogNotifier struct {
	logger *slog.Logger
}

// NewLogNotifier returns a notifier that logs each finished job via slog.
func NewLogNotifier(logger *slog.Logger) *LogNotifier {
	return &LogNotifier{logger: logger}
}

// Notify logs the finished job. Returns nil (stdout logging does not fail).
func (n *LogNotifier) Notify(rec model.JobRecord) error {
	args := []any{"job_id", rec.JobID, "status", rec.Status}
	if rec.PredictionID != "" {
		args = append(args, "prediction_id", rec.PredictionID)
	}
	if rec.Error != "" {
		args = append(args, "error", rec.Error)
	}
	if rec.CompletedAt != nil {
		args = append(args, "completed_at", *rec.CompletedAt)
	}
	n.logger.Info("transcription finished", args...)
	return nil
}
