package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/vidscribe/vidscribe/internal/model"
)

var statusRefresh bool

var statusCmd = &cobra.Command{
	Use:   "status <job-id>",
	Short: "Show the status of a transcription job",
	Long:  "Print the stored state of a job; with --refresh, poll the remote service first.",
	Args:  cobra.ExactArgs(1),
	RunE:  runStatus,
}

func init() {
	statusCmd.Flags().BoolVar(&statusRefresh, "refresh", false, "poll the remote service before printing")
	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, args []string) error {
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

	var rec model.JobRecord
	if statusRefresh {
		apiKey, err := requireAPIKey(cfg)
		if err != nil {
			return err
		}
		rec, err = jobs.Refresh(cmd.Context(), args[0], apiKey)
		if err != nil {
			return err
		}
	} else {
		rec, err = jobs.Get(cmd.Context(), args[0])
		if err != nil {
			return err
		}
	}

	printRecord(rec)
	return nil
}

func printRecord(rec model.JobRecord) {
	fmt.Printf("job ID:        %s\n", rec.JobID)
	fmt.Printf("prediction ID: %s\n", rec.PredictionID)
	fmt.Printf("status:        %s\n", rec.Status)
	if !rec.CreatedAt.IsZero() {
		fmt.Printf("created at:    %s\n", rec.CreatedAt.Local().Format("2006-01-02 15:04:05"))
	}
	if rec.CompletedAt != nil {
		fmt.Printf("completed at:  %s\n", rec.CompletedAt.Local().Format("2006-01-02 15:04:05"))
	}
	if rec.Error != "" {
		fmt.Printf("error:         %s\n", rec.Error)
	}
	if rec.Transcript != "" {
		fmt.Printf("\n%s\n", rec.Transcript)
	}
}
