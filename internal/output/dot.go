package output

import (
	"fmt"
	"sort"
	"strings"
)

type DOTGenerator struct {
	edges []ImportEdge
}

func NewDOTGenerator(edges []ImportEdge) *DOTGenerator {
	return &DOTGenerator{edges: edges}
}

// Generate draws documents in one cluster and the directories and modules
// they import in another. Unresolved imports are red and dashed.
func (d *DOTGenerator) Generate() (string, error) {
	var buf strings.Builder

	buf.WriteString("digraph imports {\n")
	buf.WriteString("  rankdir=LR;\n")
	buf.WriteString("  node [shape=box, style=rounded, fontname=\"Helvetica\", fontsize=10];\n")
	buf.WriteString("  edge [fontname=\"Helvetica\", fontsize=8, penwidth=1.2];\n")
	buf.WriteString("  ranksep=1.5;\n")
	buf.WriteString("  nodesep=0.6;\n")
	buf.WriteString("  splines=polyline;\n")
	buf.WriteString("  overlap=false;\n\n")

	documents, targets := partitionNodes(d.edges)

	buf.WriteString("  subgraph cluster_documents {\n")
	buf.WriteString("    label=\"Documents\";\n")
	buf.WriteString("    style=filled;\n")
	buf.WriteString("    color=\"whitesmoke\";\n")
	buf.WriteString("    node [fillcolor=\"white\", style=\"rounded,filled\"];\n")
	for _, name := range documents {
		buf.WriteString(fmt.Sprintf("    %q;\n", name))
	}
	buf.WriteString("  }\n\n")

	if len(targets) > 0 {
		buf.WriteString("  subgraph cluster_imports {\n")
		buf.WriteString("    label=\"Imported\";\n")
		buf.WriteString("    style=dashed;\n")
		buf.WriteString("    color=\"gray\";\n")
		buf.WriteString("    node [shape=folder, fillcolor=\"lightyellow\", style=\"filled\"];\n")
		for _, name := range targets {
			buf.WriteString(fmt.Sprintf("    %q;\n", name))
		}
		buf.WriteString("  }\n\n")
	}

	for _, e := range sortedEdges(d.edges) {
		attrs := fmt.Sprintf("label=%q", e.Kind)
		if !e.Valid {
			attrs += ", color=red, fontcolor=red, style=dashed, xlabel=\"UNRESOLVED\""
		}
		buf.WriteString(fmt.Sprintf("  %q -> %q [%s];\n", e.From, e.To, attrs))
	}

	buf.WriteString("}\n")
	return buf.String(), nil
}

// partitionNodes splits node names into importing documents and import
// targets that are not documents themselves. Both lists are sorted.
func partitionNodes(edges []ImportEdge) ([]string, []string) {
	docs := make(map[string]bool)
	for _, e := range edges {
		docs[e.From] = true
	}
	others := make(map[string]bool)
	for _, e := range edges {
		if !docs[e.To] {
			others[e.To] = true
		}
	}
	return sortedKeys(docs), sortedKeys(others)
}

func sortedKeys(m map[string]bool) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func sortedEdges(edges []ImportEdge) []ImportEdge {
	out := append([]ImportEdge(nil), edges...)
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].From != out[j].From {
			return out[i].From < out[j].From
		}
		return out[i].To < out[j].To
	})
	return out
}
