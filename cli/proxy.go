package cli

import (
	"errors"
	"fmt"
	"os/exec"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/yoanbernabeu/rtk/tracking"
)

var proxyCmd = &cobra.Command{
	Use:   "proxy <command> [args...]",
	Short: "Run a command unchanged and record its execution time",
	Long: `Run any command with its output passed straight through to the terminal.

The output is not captured, so no token savings are computed. The run is
still recorded (with zero tokens) so that its execution time shows up in
"rtk gain". The exit status of the command is preserved.`,
	Args:               cobra.MinimumNArgs(1),
	DisableFlagParsing: true,
	RunE:               runProxy,
}

func init() {
	rootCmd.AddCommand(proxyCmd)
}

func runProxy(cmd *cobra.Command, args []string) error {
	if args[0] == "-h" || args[0] == "--help" {
		return cmd.Help()
	}

	display := tracking.ArgsDisplay(args)
	timer := tracking.Start().WithLogger(log.Default().WithPrefix("tracking"))

	c := exec.CommandContext(cmd.Context(), args[0], args[1:]...)
	c.Stdin = cmd.InOrStdin()
	c.Stdout = cmd.OutOrStdout()
	c.Stderr = cmd.ErrOrStderr()

	runErr := c.Run()

	var exitErr *exec.ExitError
	if runErr != nil && !errors.As(runErr, &exitErr) {
		return fmt.Errorf("proxy: %s: %w", args[0], runErr)
	}

	timer.TrackPassthrough(cmd.Context(), display, "rtk proxy "+display+" (passthrough)")

	if exitErr != nil {
		code := exitErr.ExitCode()
		if code < 0 {
			// terminated by a signal
			code = 1
		}
		return &ExitError{Code: code}
	}
	return nil
}
