package main

import (
	"errors"
	"os"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/felixgeelhaar/uikit/internal/catalog"
	"github.com/felixgeelhaar/uikit/internal/logger"
	"github.com/felixgeelhaar/uikit/internal/playground"
)

var errNotTerminal = errors.New("play requires an interactive terminal")

// isTerminal is replaced in tests
var isTerminal = func() bool {
	return term.IsTerminal(int(os.Stdout.Fd()))
}

func newPlayCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:       "play <machine>",
		Short:     "Drive a machine interactively in the terminal",
		Args:      cobra.ExactArgs(1),
		ValidArgs: catalog.Names(),
		RunE: func(cmd *cobra.Command, args []string) error {
			if !isTerminal() {
				return errNotTerminal
			}

			// the alternate screen owns the terminal, so actors stay silent
			driver, err := catalog.New(args[0], catalog.Config{Logger: logger.Nop().Zerolog()})
			if err != nil {
				return err
			}
			driver.Start()
			defer driver.Stop()

			return playground.Run(driver)
		},
	}

	return cmd
}
