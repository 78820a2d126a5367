// File: cmd/prefs.go
package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/xkilldash9x/repairfill/internal/config"
	"github.com/xkilldash9x/repairfill/internal/observability"
	"github.com/xkilldash9x/repairfill/internal/store"
)

// withStore opens the configured store for the duration of fn.
func withStore(cmd *cobra.Command, fn func(ctx context.Context, s store.Store) error) error {
	ctx := cmd.Context()
	cfg, err := configFrom(ctx)
	if err != nil {
		return err
	}
	s, err := openStore(ctx, cfg.Store(), observability.GetLogger())
	if err != nil {
		return fmt.Errorf("failed to open preference store: %w", err)
	}
	defer s.Close()
	return fn(ctx, s)
}

// newPrefsCmd creates the `prefs` command group.
func newPrefsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "prefs",
		Short: "Inspect and edit the preference store",
	}
	cmd.AddCommand(newPrefsGetCmd(), newPrefsSetCmd(), newPrefsDeleteCmd(), newPrefsImportCmd(), newPrefsRunsCmd())
	return cmd
}

func newPrefsGetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "get [key...]",
		Short: "Print stored values; without keys, list every key",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(cmd, func(ctx context.Context, s store.Store) error {
				out := cmd.OutOrStdout()
				if len(args) == 0 {
					keys, err := s.Keys(ctx)
					if err != nil {
						return err
					}
					for _, k := range keys {
						fmt.Fprintln(out, k)
					}
					return nil
				}
				for _, k := range args {
					v, err := s.Get(ctx, k)
					if errors.Is(err, store.ErrNotFound) {
						return fmt.Errorf("%s: %w", k, err)
					}
					if err != nil {
						return err
					}
					if len(args) > 1 {
						fmt.Fprintf(out, "%s=%s\n", k, v)
					} else {
						fmt.Fprintln(out, string(v))
					}
				}
				return nil
			})
		},
	}
}

func newPrefsSetCmd() *cobra.Command {
	var prefs config.Preferences

	cmd := &cobra.Command{
		Use:   "set",
		Short: "Save operator values, part selections and the part number",
		Long: `Set persists the readings, selections and part number so that run works
without flags. Readings not given keep their stored value.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if prefs.Values == (config.OperatorValues{}) && len(prefs.Selections) == 0 && prefs.PartNumber == "" {
				return errors.New("nothing to save; pass at least one value flag")
			}
			return withStore(cmd, func(ctx context.Context, s store.Store) error {
				if err := store.SavePreferences(ctx, s, prefs); err != nil {
					return fmt.Errorf("failed to save preferences: %w", err)
				}
				fmt.Fprintln(cmd.OutOrStdout(), "Values saved")
				return nil
			})
		},
	}

	addValueFlags(cmd.Flags(), &prefs.Values)
	cmd.Flags().StringSliceVar(&prefs.Selections, "selections", nil, "part names to mark Yes, in priority order")
	cmd.Flags().StringVar(&prefs.PartNumber, "part-number", "", "serial/part number for the parts popup")
	return cmd
}

func newPrefsDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <key>",
		Short: "Remove a stored key",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(cmd, func(ctx context.Context, s store.Store) error {
				return s.Delete(ctx, args[0])
			})
		},
	}
}

func newPrefsImportCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "import <file>",
		Short: "Import a JSON object of keys (e.g. an exported extension storage dump)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("failed to read import file: %w", err)
			}
			return withStore(cmd, func(ctx context.Context, s store.Store) error {
				keys, err := store.Import(ctx, s, data)
				if err != nil {
					return err
				}
				for _, k := range keys {
					fmt.Fprintln(cmd.OutOrStdout(), "imported", k)
				}
				return nil
			})
		},
	}
}

func newPrefsRunsCmd() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "runs",
		Short: "List recorded workflow runs, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(cmd, func(ctx context.Context, s store.Store) error {
				runs, err := s.Runs(ctx, limit)
				if err != nil {
					return err
				}
				for _, r := range runs {
					state := "ok"
					if !r.OK {
						state = "failed"
					}
					fmt.Fprintf(cmd.OutOrStdout(), "%s  %s  %-16s %-6s %s\n",
						r.StartedAt.Format("2006-01-02 15:04:05"), r.ID, r.Kind, state, r.Status)
				}
				return nil
			})
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 20, "maximum number of runs")
	return cmd
}
