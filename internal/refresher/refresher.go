package refresher

import (
	"context"
	"log/slog"
	"time"

	"github.com/vidscribe/vidscribe/internal/model"
)

// JobRefresher is the slice of the tracker the refresher needs: enumerate
// local records and poll one job against the remote service.
type JobRefresher interface {
	ListAll(ctx context.Context, apiKey string) ([]model.JobRecord, error)
	Refresh(ctx context.Context, jobID, apiKey string) (model.JobRecord, error)
}

// Refresher owns the background loop: on an interval, poll every job that
// has not reached a terminal state. It covers jobs whose callback never
// arrived, so they still converge without a user-triggered refresh.
type Refresher struct {
	jobs     JobRefresher
	apiKey   string
	interval time.Duration
	logger   *slog.Logger
}

// New creates a refresher polling all non-terminal jobs at the given interval.
func New(jobs JobRefresher, apiKey string, interval time.Duration, logger *slog.Logger) *Refresher {
	return &Refresher{
		jobs:     jobs,
		apiKey:   apiKey,
		interval: interval,
		logger:   logger,
	}
}

// Run starts the refresh loop. It runs one immediate cycle, then ticks on
// the configured interval. Returns nil when ctx is cancelled.
func (r *Refresher) Run(ctx context.Context) error {
	r.logger.Info("starting refresher", "interval", r.interval.String())

	r.RunOnce(ctx)

	for {
		select {
		case <-ctx.Done():
			r.logger.Info("shutting down refresher")
			return nil
		case <-time.After(r.interval):
			r.RunOnce(ctx)
		}
	}
}

// RunOnce refreshes every non-terminal job sequentially with a small pause
// between jobs. Individual failures are logged, never fatal.
func (r *Refresher) RunOnce(ctx context.Context) {
	// Local enumeration only; the per-job refresh does the remote work.
	recs, err := r.jobs.ListAll(ctx, "")
	if err != nil {
		r.logger.Error("listing jobs failed", "error", err)
		return
	}

	var pending []model.JobRecord
	for _, rec := range recs {
		if !rec.Status.Terminal() && rec.PredictionID != "" {
			pending = append(pending, rec)
		}
	}
	if len(pending) == 0 {
		return
	}
	r.logger.Debug("refreshing jobs", "count", len(pending))

	for i, rec := range pending {
		if ctx.Err() != nil {
			return
		}

		merged, err := r.jobs.Refresh(ctx, rec.JobID, r.apiKey)
		if err != nil {
			r.logger.Error("refresh failed", "job_id", rec.JobID, "error", err)
		} else if merged.Status != rec.Status {
			r.logger.Info("job advanced", "job_id", rec.JobID, "from", rec.Status, "to", merged.Status)
		}

		// Small pause between jobs to be polite, except after the last one.
		if i < len(pending)-1 {
			select {
			case <-ctx.Done():
				return
			case <-time.After(time.Second):
			}
		}
	}
}
