// Package cli implements the rtk command tree.
package cli

import (
	"errors"
	"fmt"
	"os"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/yoanbernabeu/rtk/config"
)

var verbosity int

var rootCmd = &cobra.Command{
	Use:   "rtk",
	Short: "Token-saving wrapper for developer tools",
	Long: `rtk runs common developer commands and compacts their output before it
reaches an LLM context window.

Every wrapped invocation is recorded locally together with the estimated
number of tokens it saved. Use "rtk gain" to review those savings.`,
	SilenceUsage:      true,
	SilenceErrors:     true,
	PersistentPreRunE: setupLogging,
}

func init() {
	rootCmd.PersistentFlags().CountVarP(&verbosity, "verbose", "v", "Increase log verbosity (-v info, -vv debug)")
}

// ExitError carries the exit status of a wrapped command up to main.
type ExitError struct {
	Code int
}

func (e *ExitError) Error() string {
	return fmt.Sprintf("exit status %d", e.Code)
}

// GetRootCmd returns the root command, for documentation generation.
func GetRootCmd() *cobra.Command {
	return rootCmd
}

// Execute runs the root command. Errors other than *ExitError are printed
// to stderr before being returned.
func Execute() error {
	err := rootCmd.Execute()
	var exitErr *ExitError
	if err != nil && !errors.As(err, &exitErr) {
		fmt.Fprintln(os.Stderr, "Error:", err)
	}
	return err
}

// setupLogging installs the process-wide logger on the command's stderr. The -v flag wins
// over the configured level.
func setupLogging(cmd *cobra.Command, args []string) error {
	level := log.WarnLevel
	cfg, cfgErr := config.Load()
	if cfgErr == nil {
		if parsed, err := log.ParseLevel(cfg.Log.Level); err == nil {
			level = parsed
		}
	}
	switch {
	case verbosity >= 2:
		level = log.DebugLevel
	case verbosity == 1:
		level = log.InfoLevel
	}

	logger := log.NewWithOptions(cmd.ErrOrStderr(), log.Options{
		Level:           level,
		ReportTimestamp: level == log.DebugLevel,
	})
	log.SetDefault(logger)
	if cfgErr != nil {
		logger.Warn("ignoring config file", "err", cfgErr)
	}
	return nil
}
