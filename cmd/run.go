// File: cmd/run.go
package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"go.uber.org/zap"

	"github.com/xkilldash9x/repairfill/internal/config"
	"github.com/xkilldash9x/repairfill/internal/observability"
	"github.com/xkilldash9x/repairfill/internal/workflow"
)

// addValueFlags registers one flag per operator reading.
func addValueFlags(fs *pflag.FlagSet, v *config.OperatorValues) {
	fs.StringVar(&v.HoursIn, "hours-in", "", "hours meter reading on arrival")
	fs.StringVar(&v.OxygenPurity, "oxygen-purity", "", "oxygen purity on arrival")
	fs.StringVar(&v.OxygenPurity2, "oxygen-purity-2", "", "oxygen purity at 2 LPM")
	fs.StringVar(&v.OxygenPurity5, "oxygen-purity-5", "", "oxygen purity at 5 LPM")
	fs.StringVar(&v.PSI, "psi", "", "outlet pressure")
	fs.StringVar(&v.HoursOut, "hours-out", "", "hours meter reading on departure")
}

// newRunCmd creates the `run` command.
func newRunCmd() *cobra.Command {
	var (
		url        string
		kind       string
		partNumber string
		junit      string
		values     config.OperatorValues
	)

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Fill the whole repair form in a live browser tab",
		Long: `Run fills every section of the form in order. Readings given as flags
override the stored ones; anything left blank falls back to the preference store.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			cfg, err := configFrom(ctx)
			if err != nil {
				return err
			}
			logger := observability.GetLogger()

			c, err := initializeComponents(ctx, cfg)
			if err != nil {
				return err
			}
			defer c.Shutdown()

			if err := c.openBrowser(ctx, url); err != nil {
				return err
			}
			c.connectEvents()
			o := c.orchestrator()

			var report *workflow.Report
			switch kind {
			case workflow.KindFull:
				report, err = o.Run(ctx, workflow.Input{Values: values, PartNumber: partNumber})
			case workflow.KindPartsAndSerial:
				report, err = o.RunPartsAndSerial(ctx, partNumber)
			default:
				return fmt.Errorf("unknown run kind %q", kind)
			}
			c.recordRun(ctx, report)

			if report != nil {
				if werr := writeJSON(cmd.OutOrStdout(), report); werr != nil {
					logger.Warn("Failed to print report.", zap.Error(werr))
				}
			}
			if jerr := writeJUnitFile(junit, report); jerr != nil {
				logger.Warn("Failed to save junit report.", zap.Error(jerr))
			}
			return err
		},
	}

	cmd.Flags().StringVar(&url, "url", "", "navigate the tab here before starting")
	cmd.Flags().StringVar(&kind, "kind", workflow.KindFull, "run kind: full or parts-and-serial")
	cmd.Flags().StringVar(&partNumber, "part-number", "", "serial/part number for the parts popup")
	cmd.Flags().StringVar(&junit, "junit", "", "also write the report as JUnit XML to this file")
	addValueFlags(cmd.Flags(), &values)
	return cmd
}
