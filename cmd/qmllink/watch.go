package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"qmllink/internal/core/app"
	"qmllink/internal/core/ports"
	"qmllink/internal/output"

	"github.com/spf13/cobra"
)

func newWatchCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "watch",
		Short: "Relink on every change and report problems",
		Long: `Keep the project loaded, follow file changes and print the diagnostics
after each relink. The config file is reloaded when it changes. With
[observability] enabled, /metrics and /health are served.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			a, configFile, err := opts.openApp(ctx)
			if err != nil {
				return err
			}
			defer closeApp(context.Background(), a)

			obs := a.Config.Observability
			if obs.Enabled && obs.EnableMetrics {
				srv := app.NewObservabilityServer(obs.Address(), app.NewHealthService(a))
				if err := srv.Start(ctx); err != nil {
					return err
				}
				defer func() {
					shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
					defer cancel()
					if err := srv.Stop(shutdownCtx); err != nil {
						slog.Warn("failed to stop observability server", "error", err)
					}
				}()
			}
			if configFile != "" {
				if err := a.WatchConfig(ctx, configFile); err != nil {
					slog.Warn("config reload disabled", "error", err)
				}
			}

			report := func(res ports.CheckResult) {
				err := opts.render(cmd, a.Paths.ProjectRoot, func(w *output.Writer) error {
					return w.Diagnostics(res.Diagnostics)
				})
				if err != nil {
					slog.Error("failed to report diagnostics", "error", err)
				}
			}
			res, err := a.Check(ctx)
			if err != nil {
				return err
			}
			report(res)
			return a.Watch(ctx, report)
		},
	}
}
