package output

import (
	"encoding/json"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"qmllink/internal/core/errors"
	"qmllink/internal/data/history"
	"qmllink/internal/engine/qml/complete"
	"qmllink/internal/engine/qml/document"
	"qmllink/internal/engine/qml/usages"
)

// ImportEdge is one resolved import of a document. To is a file or
// directory path for local imports and a module URI for libraries.
type ImportEdge struct {
	From  string `json:"from"`
	To    string `json:"to"`
	Kind  string `json:"kind"`
	Valid bool   `json:"valid"`
}

// Writer renders results in one format. Paths below root are printed
// relative to it.
type Writer struct {
	w      io.Writer
	format Format
	root   string
}

func NewWriter(w io.Writer, format Format, root string) *Writer {
	if format == "" {
		format = Text
	}
	return &Writer{w: w, format: format, root: root}
}

func (w *Writer) Format() Format { return w.format }

func (w *Writer) rel(path string) string {
	if w.root == "" || !filepath.IsAbs(path) {
		return path
	}
	rel, err := filepath.Rel(w.root, path)
	if err != nil || strings.HasPrefix(rel, "..") {
		return path
	}
	return filepath.ToSlash(rel)
}

func (w *Writer) write(s string, err error) error {
	if err != nil {
		return err
	}
	if _, err := io.WriteString(w.w, s); err != nil {
		return errors.Wrap(err, errors.CodeInternal, "failed to write output")
	}
	return nil
}

func (w *Writer) writeJSON(v any) error {
	enc := json.NewEncoder(w.w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return errors.Wrap(err, errors.CodeInternal, "failed to encode json")
	}
	return nil
}

type diagnosticRow struct {
	Path     string `json:"path"`
	Line     int    `json:"line"`
	Column   int    `json:"column"`
	Severity string `json:"severity"`
	Message  string `json:"message"`
}

// Diagnostics renders link and parse problems.
func (w *Writer) Diagnostics(diags []document.Diagnostic) error {
	switch w.format {
	case Text:
		var b strings.Builder
		for _, d := range diags {
			fmt.Fprintf(&b, "%s:%d:%d: %s: %s\n", w.rel(d.Path), d.Loc.StartLine, d.Loc.StartColumn, d.Severity, d.Message)
		}
		if len(diags) == 0 {
			b.WriteString("no problems found\n")
		}
		return w.write(b.String(), nil)
	case TSV:
		return w.write(NewTSVGenerator(w.rel).Diagnostics(diags))
	case JSON:
		rows := make([]diagnosticRow, 0, len(diags))
		for _, d := range diags {
			rows = append(rows, diagnosticRow{
				Path:     w.rel(d.Path),
				Line:     d.Loc.StartLine,
				Column:   d.Loc.StartColumn,
				Severity: d.Severity.String(),
				Message:  d.Message,
			})
		}
		return w.writeJSON(rows)
	}
	return unsupported(w.format, "diagnostics")
}

// UsageReport is a finished search with its target.
type UsageReport struct {
	ID     string         `json:"id,omitempty"`
	Name   string         `json:"name"`
	Kind   string         `json:"kind"`
	Usages []usages.Usage `json:"usages"`
}

// Usages renders search results. Placeholder entries are skipped.
func (w *Writer) Usages(report UsageReport) error {
	found := make([]usages.Usage, 0, len(report.Usages))
	for _, u := range report.Usages {
		if u.IsPlaceholder() {
			continue
		}
		u.Path = w.rel(u.Path)
		found = append(found, u)
	}
	report.Usages = found

	switch w.format {
	case Text:
		var b strings.Builder
		if report.Name == "" {
			b.WriteString("no symbol at cursor\n")
			return w.write(b.String(), nil)
		}
		fmt.Fprintf(&b, "%s %q: %d usage(s)\n", report.Kind, report.Name, len(found))
		for _, u := range found {
			fmt.Fprintf(&b, "  %s:%d:%d  %s\n", u.Path, u.Line, u.Column+1, strings.TrimSpace(u.LineText))
		}
		return w.write(b.String(), nil)
	case TSV:
		return w.write(NewTSVGenerator(w.rel).Usages(found))
	case JSON:
		return w.writeJSON(report)
	}
	return unsupported(w.format, "usages")
}

// Completions renders completion candidates.
func (w *Writer) Completions(res complete.Result) error {
	switch w.format {
	case Text:
		var b strings.Builder
		for _, c := range res.Candidates {
			if c.Type != "" {
				fmt.Fprintf(&b, "%-8s %s: %s\n", c.Kind, c.Name, c.Type)
			} else {
				fmt.Fprintf(&b, "%-8s %s\n", c.Kind, c.Name)
			}
		}
		return w.write(b.String(), nil)
	case TSV:
		return w.write(NewTSVGenerator(w.rel).Completions(res.Candidates))
	case JSON:
		if res.Candidates == nil {
			res.Candidates = []complete.Candidate{}
		}
		return w.writeJSON(res)
	}
	return unsupported(w.format, "completions")
}

// ValueReport describes the value of the expression under a position.
type ValueReport struct {
	Found   bool     `json:"found"`
	Type    string   `json:"type,omitempty"`
	Members []string `json:"members,omitempty"`
}

// Value renders a resolved value.
func (w *Writer) Value(v ValueReport) error {
	switch w.format {
	case Text:
		if !v.Found {
			return w.write("no value at cursor\n", nil)
		}
		var b strings.Builder
		b.WriteString(v.Type)
		b.WriteString("\n")
		for _, m := range v.Members {
			fmt.Fprintf(&b, "  %s\n", m)
		}
		return w.write(b.String(), nil)
	case JSON:
		return w.writeJSON(v)
	}
	return unsupported(w.format, "values")
}

// Searches renders recorded search history.
func (w *Writer) Searches(rows []history.Search) error {
	switch w.format {
	case Text:
		var b strings.Builder
		for _, s := range rows {
			fmt.Fprintf(&b, "%s  %-10s %-20s %4d  %s:%d  %s",
				s.Timestamp.Format("2006-01-02 15:04:05"), s.Kind, s.Name, s.Usages, w.rel(s.Path), s.Offset, s.Duration)
			if s.Error != "" {
				fmt.Fprintf(&b, "  error: %s", s.Error)
			}
			b.WriteString("\n")
		}
		return w.write(b.String(), nil)
	case TSV:
		return w.write(NewTSVGenerator(w.rel).Searches(rows))
	case JSON:
		if rows == nil {
			rows = []history.Search{}
		}
		return w.writeJSON(rows)
	}
	return unsupported(w.format, "search history")
}

// Imports renders the import graph. Every format is supported.
func (w *Writer) Imports(edges []ImportEdge) error {
	local := make([]ImportEdge, len(edges))
	for i, e := range edges {
		e.From = w.rel(e.From)
		if e.Kind != "library" {
			e.To = w.rel(e.To)
		}
		local[i] = e
	}

	switch w.format {
	case Text:
		var b strings.Builder
		for _, e := range local {
			mark := ""
			if !e.Valid {
				mark = "  (unresolved)"
			}
			fmt.Fprintf(&b, "%s -> %s [%s]%s\n", e.From, e.To, e.Kind, mark)
		}
		return w.write(b.String(), nil)
	case TSV:
		return w.write(NewTSVGenerator(w.rel).Imports(local))
	case JSON:
		return w.writeJSON(local)
	case DOT:
		return w.write(NewDOTGenerator(local).Generate())
	case Mermaid:
		return w.write(NewMermaidGenerator(local).Generate())
	}
	return unsupported(w.format, "imports")
}
