package output

import (
	"fmt"
	"path"
	"strconv"
	"strings"
	"unicode"

	"qmllink/internal/shared/util"
)

// MermaidGenerator draws the import graph as a Mermaid flowchart. Documents
// are grouped into one subgraph per directory; import targets are shaped
// by kind: libraries as hexagons, directories as trapezoids and files as
// cylinders.
type MermaidGenerator struct {
	edges []ImportEdge
}

func NewMermaidGenerator(edges []ImportEdge) *MermaidGenerator {
	return &MermaidGenerator{edges: edges}
}

var mermaidTargetClasses = map[string]string{
	"library":   "classDef libraryNode fill:#fff7e6,stroke:#b37400,stroke-width:1px;",
	"directory": "classDef directoryNode fill:#eef7ee,stroke:#4a7f4a,stroke-width:1px;",
	"file":      "classDef fileNode fill:#efefef,stroke:#808080,stroke-dasharray:4 3;",
}

func (m *MermaidGenerator) Generate() (string, error) {
	var b strings.Builder
	b.WriteString("%%{init: {'flowchart': {'nodeSpacing': 80, 'rankSpacing': 110, 'curve': 'basis'}}}%%\n")
	b.WriteString("flowchart LR\n")

	documents, targets := partitionNodes(m.edges)
	ids := makeMermaidIDs(append(append([]string{}, documents...), targets...))

	byDir := make(map[string][]string)
	for _, name := range documents {
		dir := path.Dir(name)
		byDir[dir] = append(byDir[dir], name)
	}
	for _, dir := range util.SortedStringKeys(byDir) {
		indent := "  "
		if dir != "." {
			fmt.Fprintf(&b, "  subgraph %s [\"%s\"]\n", sanitizeMermaidID("dir_"+dir), escapeMermaidLabel(dir))
			indent = "    "
		}
		for _, name := range byDir[dir] {
			fmt.Fprintf(&b, "%s%s[\"%s\"]\n", indent, ids[name], escapeMermaidLabel(path.Base(name)))
		}
		if dir != "." {
			b.WriteString("  end\n")
		}
	}

	kinds := targetKinds(m.edges)
	byKind := make(map[string][]string)
	for _, name := range targets {
		kind := kinds[name]
		if _, ok := mermaidTargetClasses[kind]; !ok {
			kind = "file"
		}
		byKind[kind] = append(byKind[kind], ids[name])
		label := escapeMermaidLabel(name)
		switch kind {
		case "library":
			fmt.Fprintf(&b, "  %s{{\"%s\"}}\n", ids[name], label)
		case "directory":
			fmt.Fprintf(&b, "  %s[/\"%s\"\\]\n", ids[name], label)
		default:
			fmt.Fprintf(&b, "  %s[(\"%s\")]\n", ids[name], label)
		}
	}

	b.WriteString("\n")
	if len(documents) > 0 {
		b.WriteString("  classDef documentNode fill:#f7fbff,stroke:#4d6480,stroke-width:1px;\n")
		fmt.Fprintf(&b, "  class %s documentNode;\n", strings.Join(toIDs(documents, ids), ","))
	}
	for _, kind := range util.SortedStringKeys(byKind) {
		fmt.Fprintf(&b, "  %s\n  class %s %sNode;\n", mermaidTargetClasses[kind], strings.Join(byKind[kind], ","), kind)
	}

	b.WriteString("\n")
	var unresolved []int
	for i, e := range sortedEdges(m.edges) {
		label := escapeMermaidLabel(e.Kind)
		if !e.Valid {
			label = "UNRESOLVED " + label
			unresolved = append(unresolved, i)
		}
		fmt.Fprintf(&b, "  %s -->|%s| %s\n", ids[e.From], label, ids[e.To])
	}
	if len(unresolved) > 0 {
		fmt.Fprintf(&b, "\n  linkStyle %s stroke:#cc0000,stroke-width:2px,stroke-dasharray:5 3;\n", joinInts(unresolved))
	}
	return b.String(), nil
}

// targetKinds maps each import target to the kind of the first edge
// reaching it.
func targetKinds(edges []ImportEdge) map[string]string {
	kinds := make(map[string]string)
	for _, e := range sortedEdges(edges) {
		if _, ok := kinds[e.To]; !ok {
			kinds[e.To] = e.Kind
		}
	}
	return kinds
}

func sanitizeMermaidID(name string) string {
	var b strings.Builder
	for _, r := range name {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
			continue
		}
		b.WriteRune('_')
	}
	out := b.String()
	if out == "" {
		return "n"
	}
	if unicode.IsDigit(rune(out[0])) {
		return "n_" + out
	}
	return out
}

func makeMermaidIDs(names []string) map[string]string {
	ids := make(map[string]string, len(names))
	used := make(map[string]int, len(names))
	for _, name := range names {
		base := sanitizeMermaidID(name)
		idx := used[base]
		used[base] = idx + 1
		if idx == 0 {
			ids[name] = base
			continue
		}
		ids[name] = fmt.Sprintf("%s_%d", base, idx+1)
	}
	return ids
}

func escapeMermaidLabel(s string) string {
	return strings.ReplaceAll(s, "\"", "'")
}

func toIDs(names []string, ids map[string]string) []string {
	out := make([]string, 0, len(names))
	for _, name := range names {
		if id, ok := ids[name]; ok {
			out = append(out, id)
		}
	}
	return out
}

func joinInts(v []int) string {
	parts := make([]string, len(v))
	for i, n := range v {
		parts[i] = strconv.Itoa(n)
	}
	return strings.Join(parts, ",")
}
