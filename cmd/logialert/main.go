package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/deusflow/logistics-alert/internal/app"
	"github.com/deusflow/logistics-alert/internal/config"
	"github.com/deusflow/logistics-alert/internal/logger"
)

var version = "dev"

var (
	flagConfig string
	flagDryRun bool
)

var rootCmd = &cobra.Command{
	Use:   "logialert weather|news|both",
	Short: "European logistics weather and incident alerts for Feishu",
	Long: `logialert searches for weather alerts and logistics incidents in the monitored
European countries and pushes bilingual reports to Feishu. Incidents already
pushed are remembered and never sent twice.`,
	ValidArgs:     []string{string(app.KindWeather), string(app.KindNews), string(app.KindBoth)},
	Args:          cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		envErr := godotenv.Load()
		logger.Init()
		if envErr != nil {
			logger.Debug("no .env file found, using environment variables")
		}
	},
	RunE: runChecks,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("logialert %s\n", version)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagConfig, "config", config.DefaultPath, "path to YAML or JSON config file")
	rootCmd.Flags().BoolVar(&flagDryRun, "dry-run", false, "print the reports instead of pushing them; history is left untouched")

	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(pruneCmd)
	rootCmd.AddCommand(statsCmd)
	rootCmd.AddCommand(checkCmd)
	rootCmd.AddCommand(testPushCmd)
	rootCmd.AddCommand(testSearchCmd)
}

// loadConfig loads and fully validates the configuration for commands that push.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(flagConfig)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func loadDryRunConfig() (*config.Config, error) {
	cfg, err := config.Load(flagConfig)
	if err != nil {
		return nil, err
	}
	if err := cfg.ValidateSearch(); err != nil {
		return nil, err
	}
	if err := cfg.ValidateStorage(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func runChecks(cmd *cobra.Command, args []string) error {
	kind, err := app.ParseKind(args[0])
	if err != nil {
		return err
	}
	cmd.SilenceUsage = true

	var (
		cfg   *config.Config
		extra []app.Option
	)
	if flagDryRun {
		// nothing is pushed, so Feishu settings are not required
		cfg, err = loadDryRunConfig()
		extra = append(extra, app.WithDryRun(cmd.OutOrStdout()))
	} else {
		cfg, err = loadConfig()
	}
	if err != nil {
		return err
	}

	pipeline, cleanup, err := app.Build(cmd.Context(), cfg, extra...)
	if err != nil {
		return err
	}
	defer cleanup()

	logger.Info("starting checks", "kind", kind, "provider", cfg.Search.Provider, "dry_run", flagDryRun)
	// failed searches or pushes are logged inside; the process still exits 0
	pipeline.Run(cmd.Context(), kind)
	return nil
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		var cfgErr *config.Error
		if errors.As(err, &cfgErr) {
			logger.Error("configuration error", "field", cfgErr.Field, "reason", cfgErr.Reason)
		} else {
			logger.Error("command failed", "error", err)
		}
		stop()
		os.Exit(1)
	}
}
