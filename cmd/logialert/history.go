package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/deusflow/logistics-alert/internal/app"
	"github.com/deusflow/logistics-alert/internal/config"
)

var flagPruneDays int

// loadStorageConfig validates only the history settings; prune and stats push nothing.
func loadStorageConfig() (*config.Config, error) {
	cfg, err := config.Load(flagConfig)
	if err != nil {
		return nil, err
	}
	if err := cfg.ValidateStorage(); err != nil {
		return nil, err
	}
	return cfg, nil
}

var pruneCmd = &cobra.Command{
	Use:   "prune",
	Short: "Remove sent-news records older than the retention period",
	Long: `Delete sent-news records older than storage.max_history_days (default 30)
unless overridden with --days. --days 0 clears the history.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cmd.SilenceUsage = true

		cfg, err := loadStorageConfig()
		if err != nil {
			return err
		}
		days := cfg.RetentionDays()
		if cmd.Flags().Changed("days") {
			days = flagPruneDays
		}

		store, closeStore, err := app.OpenHistory(cfg)
		if err != nil {
			return err
		}
		defer closeStore()

		out := cmd.OutOrStdout()
		removed, err := store.Prune(days)
		if err != nil {
			return fmt.Errorf("pruning: %w", err)
		}
		if removed == 0 {
			fmt.Fprintln(out, "Nothing to prune.")
		} else {
			fmt.Fprintf(out, "Pruned %d record(s) older than %d day(s).\n", removed, days)
		}
		return nil
	},
}

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show sent-news history statistics",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cmd.SilenceUsage = true

		cfg, err := loadStorageConfig()
		if err != nil {
			return err
		}
		store, closeStore, err := app.OpenHistory(cfg)
		if err != nil {
			return err
		}
		defer closeStore()

		out := cmd.OutOrStdout()
		records := store.Records()
		fmt.Fprintf(out, "History: %s\n", store.Path())
		fmt.Fprintf(out, "Records: %d\n", len(records))
		fmt.Fprintf(out, "Retention: %d day(s)\n", cfg.RetentionDays())
		if len(records) > 0 {
			oldest, newest := records[0].SentTime(), records[0].SentTime()
			for _, r := range records[1:] {
				t := r.SentTime()
				if t.Before(oldest) {
					oldest = t
				}
				if t.After(newest) {
					newest = t
				}
			}
			fmt.Fprintf(out, "Oldest: %s\n", oldest.Format("2006-01-02 15:04"))
			fmt.Fprintf(out, "Newest: %s\n", newest.Format("2006-01-02 15:04"))
		}
		return nil
	},
}

func init() {
	pruneCmd.Flags().IntVar(&flagPruneDays, "days", 0, "override the retention period in days")
}
