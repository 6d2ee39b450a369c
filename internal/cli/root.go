// Package cli wires the command-line surface: evaluate one save, backfill
// a history, and inspect the rule set.
package cli

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/venturelens/venturelens/pkg/config"
)

var (
	cfgFile  string
	dbPath   string
	rulePath string
	logLevel string
)

var rootCmd = &cobra.Command{
	Use:   "venturelens",
	Short: "Save-state analytics for your startup simulation",
	Long: `VentureLens ingests raw save-game snapshots, derives business health
metrics, and evaluates them against a declarative threshold rule set.

Each run produces a report of alerts and prioritized, concrete game
actions. State lives in a local time-series store so trends and cash
runway survive restarts.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initViper)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is zero-config)")
	rootCmd.PersistentFlags().StringVar(&dbPath, "db", "", "sqlite database file (default is in-memory)")
	rootCmd.PersistentFlags().StringVar(&rulePath, "rules", "", "rule set file (default is built-in rules)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level: debug, info, warn, error")

	viper.BindPFlag("store.path", rootCmd.PersistentFlags().Lookup("db"))
	viper.BindPFlag("rules.path", rootCmd.PersistentFlags().Lookup("rules"))
	viper.BindPFlag("log.level", rootCmd.PersistentFlags().Lookup("log-level"))

	rootCmd.AddCommand(evaluateCmd)
	rootCmd.AddCommand(backfillCmd)
	rootCmd.AddCommand(rulesCmd)
	rootCmd.AddCommand(versionCmd)
}

func initViper() {
	viper.SetEnvPrefix("VENTURELENS")
	viper.AutomaticEnv()
}

// loadConfig merges the optional config file with flag and environment
// overrides. Flags win.
func loadConfig() (*config.Config, error) {
	cfg := config.Default()
	if cfgFile != "" {
		loaded, err := config.Load(cfgFile)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}

	if v := viper.GetString("store.path"); v != "" {
		cfg.Store.Path = v
		cfg.Store.Backend = "sqlite"
	}
	if v := viper.GetString("rules.path"); v != "" {
		cfg.Rules.Path = v
	}
	if v := viper.GetString("log.level"); v != "" {
		cfg.Log.Level = v
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}
