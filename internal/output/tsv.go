package output

import (
	"fmt"
	"strings"

	"qmllink/internal/data/history"
	"qmllink/internal/engine/qml/complete"
	"qmllink/internal/engine/qml/document"
	"qmllink/internal/engine/qml/usages"
)

type TSVGenerator struct {
	path func(string) string
}

// NewTSVGenerator returns a generator that prints paths through path. A nil
// function prints them unchanged.
func NewTSVGenerator(path func(string) string) *TSVGenerator {
	if path == nil {
		path = func(s string) string { return s }
	}
	return &TSVGenerator{path: path}
}

func tsvField(s string) string {
	return strings.NewReplacer("\t", " ", "\n", " ", "\r", "").Replace(s)
}

func (t *TSVGenerator) Diagnostics(diags []document.Diagnostic) (string, error) {
	var buf strings.Builder

	buf.WriteString("File\tLine\tColumn\tSeverity\tMessage\n")
	for _, d := range diags {
		buf.WriteString(fmt.Sprintf("%s\t%d\t%d\t%s\t%s\n",
			t.path(d.Path), d.Loc.StartLine, d.Loc.StartColumn, d.Severity, tsvField(d.Message)))
	}

	return buf.String(), nil
}

func (t *TSVGenerator) Usages(found []usages.Usage) (string, error) {
	var buf strings.Builder

	buf.WriteString("File\tLine\tColumn\tLength\tText\n")
	for _, u := range found {
		buf.WriteString(fmt.Sprintf("%s\t%d\t%d\t%d\t%s\n",
			t.path(u.Path), u.Line, u.Column+1, u.Length, tsvField(strings.TrimSpace(u.LineText))))
	}

	return buf.String(), nil
}

func (t *TSVGenerator) Completions(candidates []complete.Candidate) (string, error) {
	var buf strings.Builder

	buf.WriteString("Name\tKind\tType\n")
	for _, c := range candidates {
		buf.WriteString(fmt.Sprintf("%s\t%s\t%s\n", c.Name, c.Kind, c.Type))
	}

	return buf.String(), nil
}

func (t *TSVGenerator) Searches(rows []history.Search) (string, error) {
	var buf strings.Builder

	buf.WriteString("ID\tTimestamp\tFile\tOffset\tName\tKind\tUsages\tDurationMS\tError\n")
	for _, s := range rows {
		buf.WriteString(fmt.Sprintf("%s\t%s\t%s\t%d\t%s\t%s\t%d\t%d\t%s\n",
			s.ID,
			s.Timestamp.UTC().Format("2006-01-02T15:04:05Z"),
			t.path(s.Path),
			s.Offset,
			s.Name,
			s.Kind,
			s.Usages,
			s.Duration.Milliseconds(),
			tsvField(s.Error),
		))
	}

	return buf.String(), nil
}

func (t *TSVGenerator) Imports(edges []ImportEdge) (string, error) {
	var buf strings.Builder

	buf.WriteString("From\tTo\tKind\tValid\n")
	for _, e := range edges {
		buf.WriteString(fmt.Sprintf("%s\t%s\t%s\t%t\n", e.From, e.To, e.Kind, e.Valid))
	}

	return buf.String(), nil
}
