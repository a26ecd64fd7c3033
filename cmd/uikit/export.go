package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/felixgeelhaar/uikit/export"
	"github.com/felixgeelhaar/uikit/internal/catalog"
)

type exportFlags struct {
	format string
	pretty bool
	output string
}

func newExportCmd(root *rootFlags) *cobra.Command {
	flags := &exportFlags{}

	cmd := &cobra.Command{
		Use:   "export [machine...]",
		Short: "Export machine definitions as XState JSON or Graphviz DOT",
		Long: "Export writes the definition of every named machine, or of all machines\n" +
			"when none is named. Known machines: button, modal, player, ui.",
		RunE: func(cmd *cobra.Command, args []string) error {
			format, err := export.ParseFormat(flags.format)
			if err != nil {
				return err
			}

			exporters, err := catalog.Exporters()
			if err != nil {
				return err
			}
			selected, err := selectExporters(exporters, args)
			if err != nil {
				return err
			}

			opts := export.DefaultExportOptions()
			opts.Format = format
			opts.PrettyPrint = flags.pretty
			opts.Output = cmd.OutOrStdout()

			if flags.output != "" {
				log, err := root.newLogger(cmd.ErrOrStderr())
				if err != nil {
					return err
				}
				if _, err := os.Stat(flags.output); err == nil {
					log.WithFields(map[string]any{"path": flags.output}).Warn("overwriting existing output file")
				}

				f, err := os.Create(flags.output)
				if err != nil {
					return fmt.Errorf("create output: %w", err)
				}
				defer f.Close()
				opts.Output = f
			}

			if len(args) == 1 {
				return export.ExportMachine(selected[args[0]], opts)
			}
			return export.ExportAll(selected, opts)
		},
	}

	cmd.Flags().StringVarP(&flags.format, "format", "f", string(export.FormatXState), "Output format (xstate or dot)")
	cmd.Flags().BoolVar(&flags.pretty, "pretty", false, "Indent JSON output")
	cmd.Flags().StringVarP(&flags.output, "output", "o", "", "Write to file instead of stdout")

	return cmd
}

func selectExporters(all map[string]export.MachineExporter, names []string) (map[string]export.MachineExporter, error) {
	if len(names) == 0 {
		return all, nil
	}
	selected := make(map[string]export.MachineExporter, len(names))
	for _, name := range names {
		exporter, ok := all[name]
		if !ok {
			return nil, fmt.Errorf("unknown machine %q", name)
		}
		selected[name] = exporter
	}
	return selected, nil
}
