// -- cmd/report.go --
package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/navlens/navlens-cli/internal/observability"
	"github.com/navlens/navlens-cli/internal/reporting"
	"github.com/navlens/navlens-cli/internal/store"
)

// newReportCmd creates and configures the `report` command.
func newReportCmd() *cobra.Command {
	var runID string

	reportCmd := &cobra.Command{
		Use:   "report",
		Short: "Generate a report for a stored audit run",
		Long: `Reads the findings of a completed audit run from the local
database and renders them in the requested format. Without --run-id the
most recent run is reported.`,
		PreRunE: func(cmd *cobra.Command, args []string) error {
			if err := viper.BindPFlag("report.format", cmd.Flags().Lookup("format")); err != nil {
				return err
			}
			return viper.BindPFlag("report.output", cmd.Flags().Lookup("output"))
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			logger := observability.GetLogger()

			cfg, err := resolveConfig()
			if err != nil {
				return err
			}

			dbPath, err := cfg.Store.DatabasePath()
			if err != nil {
				return fmt.Errorf("failed to resolve database path: %w", err)
			}
			st, err := store.Open(dbPath, logger)
			if err != nil {
				return fmt.Errorf("failed to open findings store: %w", err)
			}
			defer st.Close()

			if runID == "" {
				runID, err = st.LatestRunID(ctx)
				if err != nil {
					return fmt.Errorf("no run to report: %w", err)
				}
			}

			run, err := st.GetRun(ctx, runID)
			if err != nil {
				return err
			}
			logger.Info("Generating report",
				zap.String("run_id", runID),
				zap.String("format", cfg.Report.Format))

			// Region outlines are not persisted; stored runs report
			// findings only.
			reporter, err := reporting.New(cfg.Report.Format, cfg.Report.Output, nil)
			if err != nil {
				return err
			}
			if err := reporter.Write(run); err != nil {
				reporter.Close()
				return fmt.Errorf("failed to write report: %w", err)
			}
			return reporter.Close()
		},
	}

	reportCmd.Flags().StringVar(&runID, "run-id", "", "Run to report. Defaults to the most recent run.")
	reportCmd.Flags().StringP("output", "o", "", "Report output path. Empty writes to stdout.")
	reportCmd.Flags().StringP("format", "f", "markdown", "Report format ('markdown', 'json', 'junit').")

	return reportCmd
}
