package export

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"

	"github.com/enetx/g"

	"github.com/felixgeelhaar/uikit/internal/ir"
)

// Format selects the output representation
type Format string

const (
	FormatXState Format = "xstate"
	FormatDOT    Format = "dot"
)

// Formats lists the supported formats
var Formats = []Format{FormatXState, FormatDOT}

// ParseFormat validates a format name
func ParseFormat(s string) (Format, error) {
	for _, f := range Formats {
		if string(f) == s {
			return f, nil
		}
	}
	return "", fmt.Errorf("unknown format %q (want xstate or dot)", s)
}

// MachineExporter is implemented by types that can export a machine in every format.
// The value returned by For implements this interface.
type MachineExporter interface {
	Export() (*XStateMachine, error)
	DOT() g.String
}

type machineExporter[C any] struct {
	xstate *XStateExporter[C]
	dot    *DOTExporter[C]
}

// For returns a MachineExporter for machine
func For[C any](machine *ir.MachineConfig[C]) MachineExporter {
	return &machineExporter[C]{
		xstate: NewXStateExporter(machine),
		dot:    NewDOTExporter(machine),
	}
}

func (m *machineExporter[C]) Export() (*XStateMachine, error) { return m.xstate.Export() }
func (m *machineExporter[C]) DOT() g.String                   { return m.dot.Export() }

// ExportOptions configures the export behavior.
type ExportOptions struct {
	// Format selects the output representation (default: xstate)
	Format Format

	// PrettyPrint enables indented JSON output
	PrettyPrint bool

	// Indent is the string used for indentation (default: "  ")
	Indent string

	// Output is where the export will be written (default: os.Stdout)
	Output io.Writer

	// MachineID filters to a specific machine ID (empty = export all)
	MachineID string
}

// DefaultExportOptions returns options with sensible defaults.
func DefaultExportOptions() ExportOptions {
	return ExportOptions{
		Format:      FormatXState,
		PrettyPrint: false,
		Indent:      "  ",
		Output:      os.Stdout,
		MachineID:   "",
	}
}

// ExportMachine exports a single machine.
func ExportMachine(exporter MachineExporter, opts ExportOptions) error {
	if opts.Format == FormatDOT {
		return writeText(exporter.DOT(), opts)
	}

	machine, err := exporter.Export()
	if err != nil {
		return fmt.Errorf("export failed: %w", err)
	}

	return writeJSON(machine, opts)
}

// ExportAll exports multiple machines.
// JSON output is an object keyed by machine ID; DOT output is one digraph
// per machine in ID order.
func ExportAll(machines map[string]MachineExporter, opts ExportOptions) error {
	// Filter to specific machine if requested
	if opts.MachineID != "" {
		exporter, ok := machines[opts.MachineID]
		if !ok {
			return fmt.Errorf("machine %q not found", opts.MachineID)
		}
		return ExportMachine(exporter, opts)
	}

	if opts.Format == FormatDOT {
		ids := make([]string, 0, len(machines))
		for id := range machines {
			ids = append(ids, id)
		}
		sort.Strings(ids)

		var graphs g.Slice[g.String]
		for _, id := range ids {
			graphs.Push(machines[id].DOT())
		}
		return writeText(graphs.Join("\n"), opts)
	}

	result := make(map[string]*XStateMachine)
	for id, exporter := range machines {
		machine, err := exporter.Export()
		if err != nil {
			return fmt.Errorf("export %q failed: %w", id, err)
		}
		result[id] = machine
	}

	return writeJSON(result, opts)
}

func output(opts ExportOptions) io.Writer {
	if opts.Output == nil {
		return os.Stdout
	}
	return opts.Output
}

func writeText(s g.String, opts ExportOptions) error {
	if _, err := io.WriteString(output(opts), string(s)); err != nil {
		return fmt.Errorf("write failed: %w", err)
	}
	return nil
}

// writeJSON writes a value as JSON to the configured output.
func writeJSON(v any, opts ExportOptions) error {
	out := output(opts)

	var data []byte
	var err error

	if opts.PrettyPrint {
		indent := opts.Indent
		if indent == "" {
			indent = "  "
		}
		data, err = json.MarshalIndent(v, "", indent)
	} else {
		data, err = json.Marshal(v)
	}

	if err != nil {
		return fmt.Errorf("JSON marshal failed: %w", err)
	}

	_, err = out.Write(data)
	if err != nil {
		return fmt.Errorf("write failed: %w", err)
	}

	// Add trailing newline for terminal output
	if _, err := out.Write([]byte("\n")); err != nil {
		return fmt.Errorf("write newline failed: %w", err)
	}

	return nil
}
