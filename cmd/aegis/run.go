package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/spf13/cobra"

	"sentinel-hq/aegis/pkg/audit"
	"sentinel-hq/aegis/pkg/cli"
	"sentinel-hq/aegis/pkg/policy/rule"
)

var runFlags struct {
	logLevel string
	dryRun   bool
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Start the policy engine",
	Long: `Start the policy engine with the specified configuration.

The engine loads rules, restores the security level from the audit chain,
watches the rule file for changes, runs periodic audit maintenance, and
serves the Prometheus scrape endpoint when configured.

Examples:
  # Start with default config
  aegis run

  # Start with custom config
  aegis run --config /etc/aegis/aegis.yaml

  # Validate config and rules without starting
  aegis run --dry-run`,
	RunE: runEngine,
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().StringVar(&runFlags.logLevel, "log-level", "", "override log level (debug, info, warn, error)")
	runCmd.Flags().BoolVar(&runFlags.dryRun, "dry-run", false, "validate config and rules without starting")
}

func runEngine(cmd *cobra.Command, args []string) error {
	ctx := cli.SetupSignalHandler()

	// Flag overrides flow through the documented env override path.
	if runFlags.logLevel != "" {
		os.Setenv("AEGIS_LOGGING_LEVEL", runFlags.logLevel)
	}

	a, err := buildApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	logger := slog.Default().With("component", "main")
	logger.Info("engine assembled",
		"rules", len(a.store.List()),
		"level", a.levels.Level().String(),
		"audit_seq", a.auditLog.Seq(),
	)

	if runFlags.dryRun {
		fmt.Println("configuration and rules are valid")
		return nil
	}

	// Rule file hot reload.
	if a.cfg.Rules.Watch && a.cfg.Rules.FilePath != "" {
		w, err := rule.NewWatcher(a.store, a.cfg.Rules.FilePath, a.cfg.Rules.WatchDebounce)
		if err != nil {
			return cli.NewCommandError("run", err)
		}
		go func() {
			if err := w.Watch(ctx); err != nil && !errors.Is(err, context.Canceled) {
				logger.Error("rule watcher stopped", "error", err)
			}
		}()
	}

	// Periodic segment rotation and retention pruning.
	if a.cfg.Audit.MaintenanceSchedule != "" {
		sched := audit.NewScheduler(a.auditLog, a.cfg.Audit.MaintenanceSchedule)
		if err := sched.Start(ctx); err != nil {
			return cli.NewCommandError("run", err)
		}
		defer sched.Stop()
	}

	// Metrics endpoint plus periodic gauge publishing.
	if a.cfg.Metrics.Enabled && a.cfg.Metrics.ListenAddress != "" {
		mux := http.NewServeMux()
		mux.Handle(a.cfg.Metrics.Path, a.collector.Handler())
		srv := &http.Server{Addr: a.cfg.Metrics.ListenAddress, Handler: mux}
		go func() {
			logger.Info("metrics listener started",
				"address", a.cfg.Metrics.ListenAddress,
				"path", a.cfg.Metrics.Path,
			)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("metrics listener failed", "error", err)
			}
		}()
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			srv.Shutdown(shutdownCtx)
		}()

		go func() {
			ticker := time.NewTicker(10 * time.Second)
			defer ticker.Stop()
			for {
				select {
				case <-ctx.Done():
					return
				case <-ticker.C:
					a.publishMetrics()
				}
			}
		}()
	}

	logger.Info("engine running", "level", a.levels.Level().String())
	<-ctx.Done()
	logger.Info("shutting down")
	return nil
}
