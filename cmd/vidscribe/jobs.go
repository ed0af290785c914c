package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/vidscribe/vidscribe/internal/model"
	"github.com/vidscribe/vidscribe/internal/tui"
)

var jobsCmd = &cobra.Command{
	Use:   "jobs",
	Short: "Browse transcription jobs interactively",
	Long:  "Open an interactive browser over all tracked jobs with transcript detail views.",
	RunE:  runJobs,
}

func init() {
	rootCmd.AddCommand(jobsCmd)
}

func runJobs(cmd *cobra.Command, args []string) error {
	logger := setupLogger(debug)

	cfg, err := loadConfig(cfgPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	jobStore, err := setupStore(cfg, logger)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer jobStore.Close()

	jobs := buildTracker(cfg, jobStore, logger)

	recs, err := tui.RunLoader("Loading transcription jobs", func(ctx context.Context) ([]model.JobRecord, error) {
		return jobs.ListAll(ctx, cfg.APIKey)
	})
	if err != nil {
		return err
	}

	// The refresh key only works with a configured credential.
	var refresh tui.RefreshFunc
	if cfg.APIKey != "" {
		refresh = func(ctx context.Context, jobID string) (model.JobRecord, error) {
			return jobs.Refresh(ctx, jobID, cfg.APIKey)
		}
	}

	return tui.RunJobsTUI(recs, refresh)
}
