package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/felixgeelhaar/uikit/internal/scenario"
)

func newRunCmd(root *rootFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run <scenario.yaml>...",
		Short: "Replay scenario files against their machines",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			log, err := root.newLogger(cmd.ErrOrStderr())
			if err != nil {
				return err
			}

			failed := 0
			for _, path := range args {
				sc, err := scenario.Load(path)
				if err != nil {
					return err
				}

				log.WithFields(map[string]any{"scenario": sc.Name, "path": path}).Debug("running scenario")
				report, err := scenario.Run(cmd.Context(), sc, scenario.WithLogger(log.Zerolog()))
				if report == nil {
					return err
				}

				printReport(cmd.OutOrStdout(), report)
				if !report.Passed() {
					failed++
					log.Error(err, "scenario failed")
					continue
				}
				log.WithFields(map[string]any{
					"scenario": sc.Name,
					"steps":    len(report.Steps),
					"elapsed":  report.Elapsed.String(),
				}).Info("scenario passed")
			}

			if failed > 0 {
				return fmt.Errorf("%d of %d scenarios failed", failed, len(args))
			}
			return nil
		},
	}

	return cmd
}

func printReport(w io.Writer, report *scenario.Report) {
	fmt.Fprintf(w, "%s (%s)\n", report.Scenario, report.Machine)
	for _, step := range report.Steps {
		mark := "✓"
		if !step.Passed() {
			mark = "✗"
		}
		fmt.Fprintf(w, "  %s %2d %-6s %-24s %s\n", mark, step.Index, step.Kind, step.Detail, step.State)
		if step.Err != nil {
			fmt.Fprintf(w, "       %v\n", step.Err)
		}
	}

	if report.Passed() {
		fmt.Fprintf(w, "PASS %d steps, %s virtual time\n", len(report.Steps), report.Elapsed)
		return
	}
	fmt.Fprintf(w, "FAIL %d of %d steps\n", len(report.Failures()), len(report.Steps))
}
