package main

import (
	"fmt"
	"os"

	"github.com/hakim/vulntriage/internal/config"
	"github.com/hakim/vulntriage/internal/termui"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var (
	cfgFile string
	verbose bool
	noColor bool
	cfg     *config.Config
	logger  = logrus.New()
)

var rootCmd = &cobra.Command{
	Use:   "vulntriage",
	Short: "Triage dashboard for imported vulnerability scan reports",
	Long: `VulnTriage browses vulnerability scan reports stored by the report backend
and records triage decisions on them.

It serves a web dashboard (serve), prints the same views in the terminal
(dashboard, reports, report show), updates fix statuses one at a time or in
batches, imports new report files, exports and diffs reports, and exposes
the triage tools to agents over MCP (mcp).`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		setupLogging(cmd.Name())
		termui.Setup(os.Stdout, noColor)

		// Skip config loading for commands that don't need it
		skipConfig := map[string]bool{
			"init":    true,
			"help":    true,
			"version": true,
		}
		if skipConfig[cmd.Name()] {
			return nil
		}

		var err error
		cfg, err = config.Load(cfgFile)
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
		return nil
	},
}

// setupLogging configures the process logger. Long-running commands log
// JSON; everything else logs text to stderr so stdout stays clean.
func setupLogging(command string) {
	logger.SetOutput(os.Stderr)
	logger.SetLevel(logrus.WarnLevel)
	if verbose {
		logger.SetLevel(logrus.DebugLevel)
	}

	switch command {
	case "serve", "mcp":
		logger.SetFormatter(&logrus.JSONFormatter{})
		if !verbose {
			logger.SetLevel(logrus.InfoLevel)
		}
	default:
		logger.SetFormatter(&logrus.TextFormatter{DisableTimestamp: true})
	}
}

func init() {
	// Global flags
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file path (default: search vulntriage.yaml)")
	rootCmd.PersistentFlags().BoolVar(&verbose, "verbose", false, "verbose output")
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "disable colored output")

	// Version flag
	rootCmd.Version = version
}

// version is overridden at build time with -ldflags "-X main.version=...".
var version = "0.1.0-dev"

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}
