package main

import (
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"

	"github.com/deusflow/logistics-alert/internal/app"
)

var flagMonitorAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the daily weather and news checks on schedule",
	Long: `Run as a long-lived process. The weather check fires at
monitoring.weather_check_time and the news check at monitoring.news_check_time,
both local time. Stops on SIGINT or SIGTERM.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cmd.SilenceUsage = true

		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		fxApp := fx.New(
			fx.Supply(cfg, app.MonitorAddr(flagMonitorAddr)),
			app.ServeModule,
			fx.WithLogger(func() fxevent.Logger {
				return &fxevent.ConsoleLogger{W: os.Stderr}
			}),
		)
		if err := fxApp.Err(); err != nil {
			return err
		}

		// blocks until SIGINT or SIGTERM, then runs the stop hooks
		fxApp.Run()
		return nil
	},
}

func init() {
	serveCmd.Flags().StringVar(&flagMonitorAddr, "monitor-addr", "", "serve /health and /metrics on this address (e.g. :8080)")
}
