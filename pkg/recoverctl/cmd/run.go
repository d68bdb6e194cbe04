package cmd

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"github.com/telekom/account-recovery/pkg/metrics"
	"github.com/telekom/account-recovery/pkg/recovery"
	"github.com/telekom/account-recovery/pkg/version"
)

func NewRunCommand() *cobra.Command {
	var csvPath string
	var metricsAddress string

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Update account emails from a CSV file and mail reset links",
		Long: `Reads (username, email, new_email) rows from the CSV file, updates each
matching account's email address and sends a password reset link to the
old address. Row failures are logged and collected into the summary; they
never abort the run or change the exit code.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			rt, err := getRuntime(cmd)
			if err != nil {
				return err
			}

			rows, err := recovery.LoadRows(csvPath)
			if err != nil {
				return err
			}

			deps, err := buildBatchDeps(cmd.Context(), rt)
			if err != nil {
				return err
			}
			defer deps.Close()

			if metricsAddress != "" {
				stop := serveMetrics(rt, metricsAddress)
				defer stop()
			}

			rt.log.Infow("Starting recoverctl",
				"version", version.GetBuildInfo().Short(),
				"runID", deps.runID,
				"rows", len(rows),
			)

			deps.runner.Run(cmd.Context(), csvPath, rows)
			return nil
		},
	}

	cmd.Flags().StringVar(&csvPath, "csv-file-path", "", "Path to the recovery CSV file (username,email,new_email)")
	cmd.Flags().StringVar(&metricsAddress, "metrics-address", "", "Serve Prometheus metrics on this address while the run executes")
	_ = cmd.MarkFlagRequired("csv-file-path")

	return cmd
}

// serveMetrics exposes the run's counters for scraping during long batches.
// Listener problems are logged, never fatal.
func serveMetrics(rt *runtimeState, address string) func() {
	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.MetricsHandler())
	srv := &http.Server{Addr: address, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			rt.log.Warnw("Metrics listener stopped", "address", address, "error", err)
		}
	}()
	rt.log.Infow("Serving metrics", "address", address)

	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctx)
	}
}
