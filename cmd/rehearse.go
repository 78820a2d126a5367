// File: cmd/rehearse.go
package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/xkilldash9x/repairfill/internal/browser/htmldom"
	"github.com/xkilldash9x/repairfill/internal/config"
	"github.com/xkilldash9x/repairfill/internal/observability"
	"github.com/xkilldash9x/repairfill/internal/workflow"
)

// rehearsal is what `rehearse` prints.
type rehearsal struct {
	Report   *workflow.Report  `json:"report"`
	Controls []htmldom.Control `json:"controls"`
	Globals  map[string]int    `json:"globalCalls,omitempty"`
}

// newRehearseCmd creates the `rehearse` command, which runs the workflow
// against a saved copy of the form instead of a live tab.
func newRehearseCmd() *cobra.Command {
	var (
		htmlFile   string
		kind       string
		partNumber string
		defineHook bool
		junit      string
		values     config.OperatorValues
	)

	cmd := &cobra.Command{
		Use:   "rehearse",
		Short: "Run the workflow against a saved HTML copy of the form",
		Long: `Rehearse parses a saved copy of the form into an in-memory DOM, runs the
workflow on it with the stored preferences, and prints the report together with
the final state of every form control. Scripts in the saved markup do not run;
inline handlers and the completion hook run in an embedded JavaScript runtime.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			cfg, err := configFrom(ctx)
			if err != nil {
				return err
			}

			f, err := os.Open(htmlFile)
			if err != nil {
				return fmt.Errorf("failed to open form: %w", err)
			}
			doc, err := htmldom.Parse(f, htmldom.WithLogger(observability.GetLogger()))
			f.Close()
			if err != nil {
				return fmt.Errorf("failed to parse form: %w", err)
			}
			hook := cfg.Automation().CompletionHook
			if defineHook && hook != "" {
				doc.DefineGlobal(hook, func(*htmldom.Document) {})
			}

			c, err := initializeComponents(ctx, cfg)
			if err != nil {
				return err
			}
			defer c.Shutdown()
			c.attach(doc)

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

			out := rehearsal{Report: report, Controls: doc.Controls()}
			if hook != "" {
				if n := doc.GlobalCalls(hook); n > 0 {
					out.Globals = map[string]int{hook: n}
				}
			}
			if werr := writeJSON(cmd.OutOrStdout(), out); werr != nil {
				return werr
			}
			if jerr := writeJUnitFile(junit, report); jerr != nil {
				return jerr
			}
			return err
		},
	}

	cmd.Flags().StringVar(&htmlFile, "html", "", "saved HTML of the repair form")
	cmd.Flags().StringVar(&kind, "kind", workflow.KindFull, "run kind: full or parts-and-serial")
	cmd.Flags().StringVar(&partNumber, "part-number", "", "serial/part number for the parts popup")
	cmd.Flags().BoolVar(&defineHook, "define-hook", false, "define the completion hook as a page global")
	cmd.Flags().StringVar(&junit, "junit", "", "also write the report as JUnit XML to this file")
	addValueFlags(cmd.Flags(), &values)
	_ = cmd.MarkFlagRequired("html")
	return cmd
}
