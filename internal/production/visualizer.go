package production

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/comalice/trafficlight"
	"github.com/comalice/trafficlight/internal/core"
)

// Edge is a labelled arrow between two states, by name.
type Edge struct {
	From  string `json:"from"`
	To    string `json:"to"`
	Label string `json:"label"`
}

// LightEdges lists the transitions of the traffic-light hierarchy: the start
// from Initial, one expiry edge per color and Initialize from Base.
func LightEdges() []Edge {
	var edges []Edge
	for _, c := range trafficlight.Colors {
		edges = append(edges, Edge{From: "Initial", To: c.Title(), Label: "start"})
	}
	for _, c := range trafficlight.Colors {
		edges = append(edges, Edge{From: c.Title(), To: c.Next().Title(), Label: "expired"})
	}
	for _, c := range trafficlight.Colors {
		edges = append(edges, Edge{From: "Base", To: c.Title(), Label: "Initialize"})
	}
	return edges
}

// Visualizer renders a state snapshot.
type Visualizer struct{}

// ExportDOT generates Graphviz DOT source. States with children become
// clusters; active states are filled.
func (v *Visualizer) ExportDOT(views []core.StateView, edges []Edge) string {
	var buf bytes.Buffer
	buf.WriteString(`digraph HSM {
  rankdir=LR;
  node [shape=box, fontsize=10, style=rounded];
  edge [fontsize=9];
`)

	children := make(map[core.StateID][]core.StateView)
	var roots []core.StateView
	for _, s := range views {
		if s.Parent == core.NoState {
			roots = append(roots, s)
			continue
		}
		children[s.Parent] = append(children[s.Parent], s)
	}
	for _, root := range roots {
		renderState(&buf, root, children, "  ")
	}

	for _, e := range edges {
		fmt.Fprintf(&buf, "  %q -> %q [label=%q];\n", e.From, e.To, e.Label)
	}
	buf.WriteString("}\n")
	return buf.String()
}

// ExportJSON serializes the snapshot and edges.
func (v *Visualizer) ExportJSON(views []core.StateView, edges []Edge) ([]byte, error) {
	return json.MarshalIndent(struct {
		States []core.StateView `json:"states"`
		Edges  []Edge           `json:"edges"`
	}{views, edges}, "", "  ")
}

func renderState(buf *bytes.Buffer, s core.StateView, children map[core.StateID][]core.StateView, indent string) {
	style := ""
	if s.Active {
		style = " style=filled fillcolor=lightgreen"
	}
	kids := children[s.ID]
	if len(kids) == 0 {
		fmt.Fprintf(buf, "%s%q [label=%q%s];\n", indent, s.Name, s.Name, style)
		return
	}

	fmt.Fprintf(buf, "%ssubgraph \"cluster_%s\" {\n", indent, s.Name)
	fmt.Fprintf(buf, "%s  label=%q;\n", indent, s.Name)
	fmt.Fprintf(buf, "%s  %q [label=%q shape=ellipse%s];\n", indent, s.Name, s.Name, style)
	for _, k := range kids {
		renderState(buf, k, children, indent+"  ")
	}
	fmt.Fprintf(buf, "%s}\n", indent)
}
