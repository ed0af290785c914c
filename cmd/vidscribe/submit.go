package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
)

var submitCmd = &cobra.Command{
	Use:   "submit <video-file>",
	Short: "Submit a video for transcription",
	Long:  "Upload a video file and start a transcription job, printing the new job ID.",
	Args:  cobra.ExactArgs(1),
	RunE:  runSubmit,
}

func init() {
	rootCmd.AddCommand(submitCmd)
}

func runSubmit(cmd *cobra.Command, args []string) error {
	logger := setupLogger(debug)

	cfg, err := loadConfig(cfgPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	apiKey, err := requireAPIKey(cfg)
	if err != nil {
		return err
	}

	path := args[0]
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read video file: %w", err)
	}

	jobStore, err := setupStore(cfg, logger)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer jobStore.Close()

	jobs := buildTracker(cfg, jobStore, logger)
	rec, err := jobs.Submit(cmd.Context(), data, filepath.Base(path), apiKey)
	if err != nil {
		return err
	}

	fmt.Printf("job submitted\n")
	fmt.Printf("  job ID:        %s\n", rec.JobID)
	fmt.Printf("  prediction ID: %s\n", rec.PredictionID)
	fmt.Printf("  status:        %s\n", rec.Status)
	return nil
}
