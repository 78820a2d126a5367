// -- cmd/root.go --
package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/xkilldash9x/repairfill/internal/config"
	"github.com/xkilldash9x/repairfill/internal/observability"
)

type contextKey string

const configKey contextKey = "config"

// flagBindings maps root persistent flags to their viper keys.
var flagBindings = map[string]string{
	"driver":     "browser.driver",
	"headless":   "browser.headless",
	"remote-url": "browser.remote_url",
	"target-id":  "browser.target_id",
	"store":      "store.backend",
	"dsn":        "store.dsn",
	"log-level":  "logger.level",
}

// NewRootCommand builds a fresh command tree. Every invocation gets its own
// instance so flag state never leaks between runs.
func NewRootCommand() *cobra.Command {
	var cfgFile string

	cmd := &cobra.Command{
		Use:   "repairfill",
		Short: "Repairfill fills the vendor repair form in a live browser tab.",
		Long: `Repairfill drives the multi-step repair form: hours and purity, problem
confirmation, failure reason, parts table, serial popup and final test results.
Operator values and selector overrides come from the preference store.`,
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			v := viper.New()
			config.SetDefaults(v)

			if err := initializeConfig(cmd, v, cfgFile); err != nil {
				return fmt.Errorf("failed to initialize configuration: %w", err)
			}

			cfg, err := config.NewConfigFromViper(v)
			if err != nil {
				observability.InitializeLogger(config.LoggerConfig{Level: "info", Format: "console", ServiceName: "repairfill"})
				return fmt.Errorf("failed to load or validate config: %w", err)
			}

			observability.InitializeLogger(cfg.Logger())
			observability.GetLogger().Debug("Configuration loaded.",
				zap.String("version", Version),
				zap.String("config_file", v.ConfigFileUsed()))

			cmd.SetContext(context.WithValue(cmd.Context(), configKey, cfg))
			return nil
		},
	}

	pf := cmd.PersistentFlags()
	pf.StringVarP(&cfgFile, "config", "c", "", "config file (default is ./config.yaml)")
	pf.String("driver", "", "browser driver: chromedp or rod")
	pf.Bool("headless", false, "run the browser headless")
	pf.String("remote-url", "", "attach to a running browser at this DevTools websocket URL")
	pf.String("target-id", "", "existing tab to attach to")
	pf.String("store", "", "preference store backend: memory, sqlite, mysql, postgres or redis")
	pf.String("dsn", "", "preference store DSN")
	pf.String("log-level", "", "log level")
	cmd.SetVersionTemplate(`{{printf "%s version %s\n" .Name .Version}}`)

	cmd.AddCommand(
		newRunCmd(),
		newStepCmd(),
		newPartsCmd(),
		newRehearseCmd(),
		newServeCmd(),
		newPrefsCmd(),
		newWatchCmd(),
		newTokenCmd(),
		newLogsCmd(),
		newVersionCmd(),
	)
	return cmd
}

// Execute runs the command tree with a signal-aware context.
func Execute(ctx context.Context) error {
	cmd := NewRootCommand()
	err := cmd.ExecuteContext(ctx)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			observability.GetLogger().Warn("Command aborted.")
		} else {
			fmt.Fprintln(os.Stderr, "Error:", err)
			observability.GetLogger().Debug("Command execution failed.", zap.Error(err))
		}
	}
	observability.Sync()
	return err
}

// initializeConfig reads the config file and environment, and binds the
// root flags over both.
func initializeConfig(cmd *cobra.Command, v *viper.Viper, cfgFile string) error {
	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.AddConfigPath(".")
		v.SetConfigName("config")
		v.SetConfigType("yaml")
	}

	v.SetEnvPrefix("REPAIRFILL")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return fmt.Errorf("error reading config file: %w", err)
		}
		// Config file not found; proceed with defaults/env vars
	}

	for name, key := range flagBindings {
		if f := cmd.Root().PersistentFlags().Lookup(name); f != nil && f.Changed {
			if err := v.BindPFlag(key, f); err != nil {
				return err
			}
		}
	}
	return nil
}

// configFrom returns the configuration PersistentPreRunE stored on ctx.
func configFrom(ctx context.Context) (config.Interface, error) {
	cfg, ok := ctx.Value(configKey).(config.Interface)
	if !ok || cfg == nil {
		return nil, errors.New("configuration not loaded")
	}
	return cfg, nil
}
