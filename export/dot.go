package export

import (
	"strings"

	"github.com/enetx/g"

	"github.com/felixgeelhaar/uikit/internal/ir"
)

// DOTExporter renders a machine as a Graphviz digraph. Compound and
// parallel states become clusters, and edges into or out of a cluster
// attach to a representative leaf clipped at the cluster border.
type DOTExporter[C any] struct {
	machine *ir.MachineConfig[C]
}

// NewDOTExporter creates a DOT exporter for machine
func NewDOTExporter[C any](machine *ir.MachineConfig[C]) *DOTExporter[C] {
	return &DOTExporter[C]{machine: machine}
}

// Export returns the DOT source
func (e *DOTExporter[C]) Export() g.String {
	b := g.NewBuilder()

	b.WriteString(g.Format("digraph \"{}\" ", e.machine.ID))
	b.WriteString("{\n")
	b.WriteString("  rankdir=LR;\n")
	b.WriteString("  compound=true;\n")
	b.WriteString(
		"  node [shape=box, style=\"rounded,filled\", fillcolor=\"#f8f8f8\", color=\"#444444\", fontname=\"Helvetica\"];\n",
	)
	b.WriteString("  edge [fontname=\"Helvetica\", fontsize=10];\n\n")

	var start g.Slice[g.String]
	if head := e.clusterRef("lhead", e.machine.Initial); head != "" {
		start.Push(head)
	}
	b.WriteString("  __start [shape=point];\n")
	b.WriteString(g.Format("  __start -> \"{}\" [{}];\n\n", e.anchor(e.machine.Initial), start.Join(", ")))

	for _, id := range e.machine.RootStates() {
		for _, line := range e.stateLines(id, 1) {
			b.WriteString(line)
		}
	}

	b.WriteByte('\n')

	for _, id := range e.machine.StatesInOrder() {
		state := e.machine.States[id]
		for _, t := range state.Transitions {
			b.WriteString(e.edgeLine(state, t))
		}
	}

	b.WriteString("}\n")

	return b.String()
}

func (e *DOTExporter[C]) stateLines(id ir.StateID, depth int) []g.String {
	state := e.machine.States[id]
	indent := g.String(strings.Repeat("  ", depth))

	if len(state.Children) == 0 {
		var attrs g.Slice[g.String]
		attrs.Push(g.Format("label=\"{}\"", id))
		if state.IsFinal() {
			attrs.Push("shape=doublecircle", "fillcolor=\"#d3d3d3\"")
		}
		if tooltip := actionTooltip(state); tooltip != "" {
			attrs.Push(g.Format("tooltip=\"{}\"", tooltip))
		}
		return []g.String{g.Format("{}\"{}\" [{}];\n", indent, id, attrs.Join(", "))}
	}

	label := g.String(id)
	style := g.String("rounded")
	if state.IsParallel() {
		label += " (parallel)"
		style = "dashed"
	}

	lines := []g.String{
		g.Format("{}subgraph \"cluster_{}\" ", indent, id) + "{\n",
		g.Format("{}  label=\"{}\";\n", indent, label),
		g.Format("{}  style={};\n", indent, style),
	}
	for _, child := range state.Children {
		lines = append(lines, e.stateLines(child, depth+1)...)
	}
	return append(lines, indent+"}\n")
}

func (e *DOTExporter[C]) edgeLine(state *ir.StateConfig, t *ir.TransitionConfig) g.String {
	from := e.anchor(state.ID)

	var label g.String
	if t.IsDelayed() {
		label = g.Format("after {}ms", t.Delay.Milliseconds())
	} else {
		label = g.String(t.Event)
	}
	if t.Guard != "" {
		label += g.Format(" [{}]", t.Guard)
	}
	if len(t.Actions) > 0 {
		label += " / " + joinActions(t.Actions)
	}

	var attrs g.Slice[g.String]
	attrs.Push(g.Format("label=\" {} \"", label))

	to := from
	if t.IsTargetless() {
		attrs.Push("style=dotted")
	} else {
		to = e.anchor(t.Target)
		if tail := e.clusterRef("ltail", state.ID); tail != "" {
			attrs.Push(tail)
		}
		if head := e.clusterRef("lhead", t.Target); head != "" {
			attrs.Push(head)
		}
	}

	switch {
	case t.Guard != "":
		attrs.Push("style=dashed", "color=red", "arrowhead=odiamond")
	case t.IsDelayed():
		attrs.Push("color=blue")
	}

	return g.Format("  \"{}\" -> \"{}\" [{}];\n", from, to, attrs.Join(", "))
}

// anchor is the leaf an edge attaches to: the state itself for leaves,
// otherwise the initial leaf of the first region.
func (e *DOTExporter[C]) anchor(id ir.StateID) ir.StateID {
	for {
		state := e.machine.States[id]
		if state == nil || len(state.Children) == 0 {
			return id
		}
		if state.IsParallel() || state.Initial == "" {
			id = state.Children[0]
		} else {
			id = state.Initial
		}
	}
}

// clusterRef returns name="cluster_id" when id is drawn as a cluster
func (e *DOTExporter[C]) clusterRef(name string, id ir.StateID) g.String {
	state := e.machine.States[id]
	if state == nil || len(state.Children) == 0 {
		return ""
	}
	return g.Format("{}=\"cluster_{}\"", name, id)
}

func actionTooltip(state *ir.StateConfig) g.String {
	var lines g.Slice[g.String]
	if len(state.Entry) > 0 {
		lines.Push("entry: " + joinActions(state.Entry))
	}
	if len(state.Exit) > 0 {
		lines.Push("exit: " + joinActions(state.Exit))
	}
	return lines.Join("\\n")
}

func joinActions(actions []ir.ActionType) g.String {
	var names g.Slice[g.String]
	for _, a := range actions {
		names.Push(g.String(a))
	}
	return names.Join(", ")
}
