package childtracker

import (
	"bytes"
	"fmt"
)

// DOT generates Graphviz DOT source for the chart, filling the active state.
func (m *Machine) DOT(title string) string {
	var buf bytes.Buffer
	fmt.Fprintf(&buf, "digraph %q {\n", title)
	buf.WriteString("  rankdir=LR;\n")
	buf.WriteString("  node [shape=box, fontsize=10, style=rounded];\n")
	buf.WriteString("  edge [fontsize=9];\n")

	for _, s := range m.order {
		style := ""
		if s == m.current {
			style = " style=filled fillcolor=lightgreen"
		}
		fmt.Fprintf(&buf, "  %q [label=%q%s];\n", s.ID.String(), s.ID.String(), style)
	}

	for _, s := range m.order {
		for _, t := range s.Transitions {
			fmt.Fprintf(&buf, "  %q -> %q [label=%q];\n", s.ID.String(), t.Target.ID.String(), t.Event.String())
		}
	}

	buf.WriteString("}\n")
	return buf.String()
}
