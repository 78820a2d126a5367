// File: cmd/step.go
package cmd

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/xkilldash9x/repairfill/internal/config"
	"github.com/xkilldash9x/repairfill/internal/protocol"
)

// newStepCmd creates the `step` command, which sends one message-contract
// action to the tab.
func newStepCmd() *cobra.Command {
	var (
		url    string
		value  string
		values config.OperatorValues
	)

	actions := protocol.Names()

	cmd := &cobra.Command{
		Use:       "step <action>",
		Short:     "Run a single form action",
		Long:      "Step runs one action and prints its {ok, results, error} envelope.\nActions: " + strings.Join(actions, ", "),
		Args:      cobra.ExactArgs(1),
		ValidArgs: actions,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			cfg, err := configFrom(ctx)
			if err != nil {
				return err
			}

			c, err := initializeComponents(ctx, cfg)
			if err != nil {
				return err
			}
			defer c.Shutdown()
			if err := c.openBrowser(ctx, url); err != nil {
				return err
			}

			req := protocol.StepRequest{Action: protocol.ParseAction(args[0]), Value: value}
			if values != (config.OperatorValues{}) {
				req.Values = &values
			}
			resp := c.Dispatcher.Dispatch(ctx, req)
			if err := writeJSON(cmd.OutOrStdout(), resp); err != nil {
				return err
			}
			if !resp.OK {
				return errors.New(resp.Error)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&url, "url", "", "navigate the tab here first")
	cmd.Flags().StringVar(&value, "value", "", "action value (the part number for run-serial-popup)")
	addValueFlags(cmd.Flags(), &values)
	return cmd
}

// newPartsCmd creates the `parts` command, a shortcut for get-parts-list.
func newPartsCmd() *cobra.Command {
	var url string

	cmd := &cobra.Command{
		Use:   "parts",
		Short: "List the part names in the form's parts table",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			cfg, err := configFrom(ctx)
			if err != nil {
				return err
			}

			c, err := initializeComponents(ctx, cfg)
			if err != nil {
				return err
			}
			defer c.Shutdown()
			if err := c.openBrowser(ctx, url); err != nil {
				return err
			}

			resp := c.Dispatcher.Dispatch(ctx, protocol.StepRequest{Action: protocol.ActionGetPartsList})
			if !resp.OK {
				return errors.New(resp.Error)
			}
			list, ok := resp.Results.(protocol.PartsList)
			if !ok {
				return fmt.Errorf("unexpected parts list result %T", resp.Results)
			}
			for _, p := range list.Parts {
				fmt.Fprintln(cmd.OutOrStdout(), p)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&url, "url", "", "navigate the tab here first")
	return cmd
}
