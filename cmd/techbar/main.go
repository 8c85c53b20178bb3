// Package main is the entry point for the Tech Bar catalog service. The
// serve command runs the HTTP server; tree and watch are operator tools
// that reuse the same configuration.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"techbar/internal/config"
	"techbar/internal/logging"
)

var (
	// Loaded by the root command before any subcommand runs.
	cfg      *config.Config
	flushLog func()

	logLevel string
)

var rootCmd = &cobra.Command{
	Use:   "techbar",
	Short: "Service catalog and Tech Bar overhead display",
	Long: `techbar serves a kapp's category hierarchy as JSON and HTML, keeps
the Tech Bar overhead displays current, and lets confirmation pages wait
for submissions to be processed.

Configuration is read from the environment and an optional .env file.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.Load()
		if err != nil {
			return fmt.Errorf("load configuration: %w", err)
		}
		if logLevel != "" {
			cfg.LogLevel = logLevel
		}
		flushLog, err = logging.Install(cfg.Env, cfg.LogLevel)
		if err != nil {
			return fmt.Errorf("initialize logger: %w", err)
		}
		zap.S().Debugw("configuration loaded",
			"env", cfg.Env,
			"source", cfg.CatalogSource,
			"kapp", cfg.KappSlug,
		)
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if flushLog != nil {
			flushLog()
		}
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "override LOG_LEVEL (debug, info, warn, error)")
	rootCmd.AddCommand(serveCmd, treeCmd, watchCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
