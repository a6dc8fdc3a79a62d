package main

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/deusflow/logistics-alert/internal/app"
	"github.com/deusflow/logistics-alert/internal/config"
	"github.com/deusflow/logistics-alert/internal/search"
)

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Check the configuration without searching or pushing",
	Long: `Report missing or placeholder credentials, the Feishu delivery mode, the
monitoring settings and the sent-news history. Exits 1 when a run would fail.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cmd.SilenceUsage = true
		out := cmd.OutOrStdout()

		if _, err := os.Stat(flagConfig); errors.Is(err, fs.ErrNotExist) {
			fmt.Fprintf(out, "Config file: %s (not found, using environment and defaults)\n", flagConfig)
		} else {
			fmt.Fprintf(out, "Config file: %s\n", flagConfig)
		}

		cfg, err := config.Load(flagConfig)
		if err != nil {
			return err
		}

		var failed error
		report := func(section string, err error, detail string) {
			if err != nil {
				fmt.Fprintf(out, "[FAIL] %s: %v\n", section, err)
				if failed == nil {
					failed = err
				}
				return
			}
			fmt.Fprintf(out, "[ok]   %s: %s\n", section, detail)
		}

		report("search", cfg.ValidateSearch(), "provider "+cfg.Search.Provider)
		report("push", cfg.ValidatePush(), "feishu "+string(cfg.FeishuSender().Mode()))
		report("schedule", cfg.ValidateSchedule(), fmt.Sprintf("weather %s, news %s",
			cfg.Monitoring.WeatherCheckTime, cfg.Monitoring.NewsCheckTime))
		fmt.Fprintf(out, "       countries: %s\n", strings.Join(cfg.Monitoring.Countries, ", "))
		fmt.Fprintf(out, "       keywords: %d weather, %d news\n",
			len(cfg.Monitoring.WeatherKeywords), len(cfg.Monitoring.NewsKeywords))

		if err := cfg.ValidateStorage(); err != nil {
			report("storage", err, "")
		} else {
			store, closeStore, err := app.OpenHistory(cfg)
			if err != nil {
				return err
			}
			report("storage", nil, fmt.Sprintf("%s, %d record(s), retention %d day(s)",
				store.Path(), store.Len(), cfg.RetentionDays()))
			closeStore()
		}

		if cfg.GeminiAPIKey != "" {
			fmt.Fprintln(out, "       AI brief: enabled")
		}
		for _, w := range cfg.Warnings() {
			fmt.Fprintf(out, "[warn] %s\n", w)
		}

		if failed != nil {
			return failed
		}
		fmt.Fprintln(out, "Configuration OK.")
		return nil
	},
}

var testPushCmd = &cobra.Command{
	Use:   "test-push",
	Short: "Send a test message to Feishu",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cmd.SilenceUsage = true

		cfg, err := config.Load(flagConfig)
		if err != nil {
			return err
		}
		if err := cfg.ValidatePush(); err != nil {
			return err
		}

		pusher := app.NewPusher(cfg)
		content := fmt.Sprintf("**系统测试 | System test**\n\n"+
			"欧洲物流预警系统推送正常。\n\nEurope logistics alert delivery works.\n\n"+
			"_%s_", time.Now().Format("2006-01-02 15:04:05"))
		if err := pusher.Send(cmd.Context(), "系统测试", content); err != nil {
			return fmt.Errorf("test push failed: %w", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Test message sent (%s).\n", cfg.FeishuSender().Mode())
		return nil
	},
}

var flagTestQuery string

var testSearchCmd = &cobra.Command{
	Use:   "test-search",
	Short: "Run one search with the configured provider and print the results",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cmd.SilenceUsage = true

		cfg, err := config.Load(flagConfig)
		if err != nil {
			return err
		}
		if err := cfg.ValidateSearch(); err != nil {
			return err
		}
		provider, err := app.NewProvider(cfg)
		if err != nil {
			return err
		}

		results, err := provider.Search(cmd.Context(), search.Request{
			Query:      flagTestQuery,
			TimeRange:  search.Day,
			MaxResults: 5,
		})
		if err != nil {
			return fmt.Errorf("test search failed: %w", err)
		}
		printResults(cmd.OutOrStdout(), provider.Name(), results)
		return nil
	},
}

func printResults(out io.Writer, provider string, results []search.Result) {
	fmt.Fprintf(out, "%s returned %d result(s)\n", provider, len(results))
	for i, r := range results {
		fmt.Fprintf(out, "%d. %s (score %.2f)\n   %s\n", i+1, r.Title, r.Score, r.URL)
	}
}

func init() {
	testSearchCmd.Flags().StringVar(&flagTestQuery, "query", "Germany logistics weather", "search query")
}
