package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var listSync bool

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List all transcription jobs",
	Long:  "Print every tracked job, newest first; with --sync, reconcile against recent remote predictions first.",
	RunE:  runList,
}

func init() {
	listCmd.Flags().BoolVar(&listSync, "sync", false, "sync against recent remote predictions before printing")
	rootCmd.AddCommand(listCmd)
}

func runList(cmd *cobra.Command, args []string) error {
	logger := setupLogger(debug)

	cfg, err := loadConfig(cfgPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	apiKey := ""
	if listSync {
		apiKey, err = requireAPIKey(cfg)
		if err != nil {
			return err
		}
	}

	jobStore, err := setupStore(cfg, logger)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer jobStore.Close()

	jobs := buildTracker(cfg, jobStore, logger)
	recs, err := jobs.ListAll(cmd.Context(), apiKey)
	if err != nil {
		return err
	}

	if len(recs) == 0 {
		fmt.Println("no jobs")
		return nil
	}

	fmt.Printf("%-28s %-12s %-18s %s\n", "JOB ID", "STATUS", "CREATED", "PREDICTION ID")
	for _, rec := range recs {
		created := "n/a"
		if !rec.CreatedAt.IsZero() {
			created = rec.CreatedAt.Local().Format("2006-01-02 15:04")
		}
		fmt.Printf("%-28s %-12s %-18s %s\n", rec.JobID, rec.Status, created, rec.PredictionID)
	}
	return nil
}
