// File: cmd/logs.go
package cmd

import (
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/xkilldash9x/repairfill/internal/observability"
)

// newLogsCmd creates the `logs` command, which prints the rotating JSON log
// file written when logger.log_file is set.
func newLogsCmd() *cobra.Command {
	var (
		file   string
		follow bool
	)

	cmd := &cobra.Command{
		Use:   "logs",
		Short: "Print or follow the log file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			cfg, err := configFrom(ctx)
			if err != nil {
				return err
			}
			if file == "" {
				file = cfg.Logger().LogFile
			}
			if file == "" {
				return errors.New("no log file: set logger.log_file or pass --file")
			}
			out := cmd.OutOrStdout()
			return observability.TailLogFile(ctx, file, follow, func(line string) {
				fmt.Fprintln(out, line)
			})
		},
	}
	cmd.Flags().StringVar(&file, "file", "", "log file (defaults to logger.log_file)")
	cmd.Flags().BoolVarP(&follow, "follow", "f", false, "keep printing new lines")
	return cmd
}
