// -- cmd/audit.go --
package cmd

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/navlens/navlens-cli/internal/audit"
	"github.com/navlens/navlens-cli/internal/browser"
	"github.com/navlens/navlens-cli/internal/observability"
	"github.com/navlens/navlens-cli/internal/reporting"
	"github.com/navlens/navlens-cli/internal/store"
)

// newAuditCmd creates and configures the `audit` command.
func newAuditCmd() *cobra.Command {
	auditCmd := &cobra.Command{
		Use:   "audit [targets...]",
		Short: "Audit storefront pages for navigation defects",
		Long: `Renders each target in a headless browser, locates the primary
navigation, footer and mobile drawer, and runs the navigation check suite
against them. Findings are persisted locally and reported.`,
		Args: cobra.ArbitraryArgs,
		PreRunE: func(cmd *cobra.Command, args []string) error {
			// Bind flags to their viper keys so command-line flags override
			// values from the config file and environment.
			if err := viper.BindPFlag("audit.concurrency", cmd.Flags().Lookup("concurrency")); err != nil {
				return err
			}
			if err := viper.BindPFlag("audit.targets_file", cmd.Flags().Lookup("targets-file")); err != nil {
				return err
			}
			if err := viper.BindPFlag("report.format", cmd.Flags().Lookup("format")); err != nil {
				return err
			}
			if err := viper.BindPFlag("report.output", cmd.Flags().Lookup("output")); err != nil {
				return err
			}
			return viper.BindPFlag("browser.headless", cmd.Flags().Lookup("headless"))
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			logger := observability.GetLogger()

			cfg, err := resolveConfig()
			if err != nil {
				return err
			}

			targets, err := audit.LoadTargets(cfg.Audit.TargetsFile, args)
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

			manager, err := browser.NewManager(ctx, logger, cfg)
			if err != nil {
				return err
			}
			defer func() {
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
				defer cancel()
				if err := manager.Shutdown(shutdownCtx); err != nil {
					logger.Warn("Browser shutdown failed", zap.Error(err))
				}
			}()

			factory := func(ctx context.Context) (audit.Session, error) {
				return manager.NewSession(ctx)
			}
			auditor := audit.NewAuditor(logger, cfg, factory, st)

			run, outlines, err := auditor.Run(ctx, targets)
			if err != nil {
				if errors.Is(err, context.Canceled) {
					logger.Warn("Audit aborted by signal")
					return fmt.Errorf("audit aborted by user signal")
				}
				return err
			}

			reporter, err := reporting.New(cfg.Report.Format, cfg.Report.Output, outlines)
			if err != nil {
				return err
			}
			if err := reporter.Write(run); err != nil {
				reporter.Close()
				return fmt.Errorf("failed to write report: %w", err)
			}
			if err := reporter.Close(); err != nil {
				return err
			}

			logger.Info("Audit complete",
				zap.String("run_id", run.ID),
				zap.Int("findings", len(run.Findings)))
			fmt.Fprintf(cmd.OutOrStdout(), "\nAudit complete. Run ID: %s\n", run.ID)
			return nil
		},
	}

	auditCmd.Flags().StringP("output", "o", "", "Report output path. Empty writes to stdout.")
	auditCmd.Flags().StringP("format", "f", "markdown", "Report format ('markdown', 'json', 'junit').")
	auditCmd.Flags().IntP("concurrency", "j", 0, "Pages audited in parallel. (Overrides config/env)")
	auditCmd.Flags().String("targets-file", "", "YAML file listing target URLs, merged with arguments.")
	auditCmd.Flags().Bool("headless", true, "Run the browser headless.")

	return auditCmd
}
