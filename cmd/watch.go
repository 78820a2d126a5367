// File: cmd/watch.go
package cmd

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/xkilldash9x/repairfill/internal/events"
	"github.com/xkilldash9x/repairfill/internal/observability"
	"github.com/xkilldash9x/repairfill/internal/workflow"
)

var watchEvents = events.Watch

// newWatchCmd creates the `watch` command, which follows status
// announcements other technicians' runs publish on NATS.
func newWatchCmd() *cobra.Command {
	var runID string

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Follow run status events from NATS",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			cfg, err := configFrom(ctx)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			return watchEvents(ctx, observability.GetLogger(), cfg.Events(), runID, func(s workflow.Status) {
				mark := "ok"
				if !s.OK {
					mark = "FAILED"
				}
				fmt.Fprintf(out, "%s %s %-24s %-6s %s\n", s.Time.Format("15:04:05"), s.RunID, s.Stage, mark, s.Message)
			})
		},
	}
	cmd.Flags().StringVar(&runID, "run", "", "follow a single run id")
	return cmd
}
