package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/felixgeelhaar/uikit/internal/logger"
)

type rootFlags struct {
	verbose   bool
	logFormat string
}

func newRootCmd() *cobra.Command {
	flags := &rootFlags{}

	cmd := &cobra.Command{
		Use:           "uikit",
		Short:         "uikit runs, replays and exports UI interaction state machines",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().BoolVarP(&flags.verbose, "verbose", "v", false, "Enable verbose logging")
	cmd.PersistentFlags().StringVar(&flags.logFormat, "log-format", "", "Log output format (console or json; default console on a terminal)")

	cmd.AddCommand(newExportCmd(flags))
	cmd.AddCommand(newRunCmd(flags))
	cmd.AddCommand(newPlayCmd())
	cmd.AddCommand(newVersionCmd())

	return cmd
}

// newLogger builds the command logger writing to w
func (f *rootFlags) newLogger(w io.Writer) (*logger.Logger, error) {
	var human bool
	switch f.logFormat {
	case "":
		human = term.IsTerminal(int(os.Stderr.Fd()))
	case "console":
		human = true
	case "json":
	default:
		return nil, fmt.Errorf("unknown log format %q (want console or json)", f.logFormat)
	}

	level := "info"
	if f.verbose {
		level = "debug"
	}
	return logger.New(logger.Options{Level: level, HumanReadable: human, Writer: w})
}
