package output

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"qmllink/internal/core/errors"
	"qmllink/internal/data/history"
	"qmllink/internal/engine/qml/ast"
	"qmllink/internal/engine/qml/complete"
	"qmllink/internal/engine/qml/document"
	"qmllink/internal/engine/qml/usages"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func render(t *testing.T, format Format, fn func(*Writer) error) string {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, fn(NewWriter(&buf, format, "/app")))
	return buf.String()
}

func TestParseFormat(t *testing.T) {
	f, err := ParseFormat(" JSON ")
	require.NoError(t, err)
	assert.Equal(t, JSON, f)

	f, err = ParseFormat("")
	require.NoError(t, err)
	assert.Equal(t, Text, f)

	_, err = ParseFormat("yaml")
	assert.True(t, errors.IsCode(err, errors.CodeValidationError))
}

func TestDiagnostics(t *testing.T) {
	diags := []document.Diagnostic{{
		Path:     "/app/Main.qml",
		Loc:      ast.SourceLocation{Offset: 10, Length: 3, StartLine: 2, StartColumn: 5},
		Severity: document.Error,
		Message:  "unknown component\tFoo",
	}}

	text := render(t, Text, func(w *Writer) error { return w.Diagnostics(diags) })
	assert.Equal(t, "Main.qml:2:5: error: unknown component\tFoo\n", text)

	tsv := render(t, TSV, func(w *Writer) error { return w.Diagnostics(diags) })
	assert.Equal(t, "File\tLine\tColumn\tSeverity\tMessage\nMain.qml\t2\t5\terror\tunknown component Foo\n", tsv)

	var rows []diagnosticRow
	require.NoError(t, json.Unmarshal([]byte(render(t, JSON, func(w *Writer) error { return w.Diagnostics(diags) })), &rows))
	require.Len(t, rows, 1)
	assert.Equal(t, "error", rows[0].Severity)

	empty := render(t, Text, func(w *Writer) error { return w.Diagnostics(nil) })
	assert.Equal(t, "no problems found\n", empty)

	err := NewWriter(&bytes.Buffer{}, DOT, "").Diagnostics(diags)
	assert.True(t, errors.IsCode(err, errors.CodeNotSupported))
}

func TestUsagesSkipsPlaceholder(t *testing.T) {
	report := UsageReport{
		Name: "count",
		Kind: "expression",
		Usages: []usages.Usage{
			{},
			{Path: "/app/Main.qml", LineText: "    text: count", Line: 3, Column: 10, Length: 5},
			{Path: "/elsewhere/Other.qml", LineText: "count", Line: 1, Column: 0, Length: 5},
		},
	}

	text := render(t, Text, func(w *Writer) error { return w.Usages(report) })
	assert.Equal(t, "expression \"count\": 2 usage(s)\n"+
		"  Main.qml:3:11  text: count\n"+
		"  /elsewhere/Other.qml:1:1  count\n", text)

	tsv := render(t, TSV, func(w *Writer) error { return w.Usages(report) })
	lines := strings.Split(strings.TrimSpace(tsv), "\n")
	assert.Len(t, lines, 3)
	assert.Equal(t, "Main.qml\t3\t11\t5\ttext: count", lines[1])

	var decoded UsageReport
	require.NoError(t, json.Unmarshal([]byte(render(t, JSON, func(w *Writer) error { return w.Usages(report) })), &decoded))
	assert.Len(t, decoded.Usages, 2)

	none := render(t, Text, func(w *Writer) error { return w.Usages(UsageReport{}) })
	assert.Equal(t, "no symbol at cursor\n", none)
}

func TestCompletions(t *testing.T) {
	res := complete.Result{
		Prefix: "wi",
		Candidates: []complete.Candidate{
			{Name: "width", Type: "real", Kind: complete.Member},
			{Name: "Window", Kind: complete.Type},
		},
	}

	text := render(t, Text, func(w *Writer) error { return w.Completions(res) })
	assert.Equal(t, "member   width: real\ntype     Window\n", text)

	tsv := render(t, TSV, func(w *Writer) error { return w.Completions(res) })
	assert.Contains(t, tsv, "width\tmember\treal\n")

	js := render(t, JSON, func(w *Writer) error { return w.Completions(complete.Result{}) })
	assert.Contains(t, js, `"candidates": []`)
}

func TestSearches(t *testing.T) {
	rows := []history.Search{{
		ID:        "abc",
		Timestamp: time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC),
		Path:      "/app/Main.qml",
		Offset:    42,
		Name:      "count",
		Kind:      "expression",
		Usages:    3,
		Duration:  1500 * time.Millisecond,
		Error:     "CANCELLED",
	}}

	tsv := render(t, TSV, func(w *Writer) error { return w.Searches(rows) })
	assert.Contains(t, tsv, "abc\t2026-03-01T10:00:00Z\tMain.qml\t42\tcount\texpression\t3\t1500\tCANCELLED\n")

	text := render(t, Text, func(w *Writer) error { return w.Searches(rows) })
	assert.Contains(t, text, "error: CANCELLED")

	js := render(t, JSON, func(w *Writer) error { return w.Searches(nil) })
	assert.Equal(t, "[]\n", js)

	err := NewWriter(&bytes.Buffer{}, Mermaid, "").Searches(rows)
	assert.True(t, errors.IsCode(err, errors.CodeNotSupported))
}

var graphEdges = []ImportEdge{
	{From: "/app/Main.qml", To: "/app/controls", Kind: "directory", Valid: true},
	{From: "/app/Main.qml", To: "Ui", Kind: "library", Valid: true},
	{From: "/app/controls/Button.qml", To: "/app/logic.js", Kind: "file", Valid: false},
}

func TestImportsDOT(t *testing.T) {
	dot := render(t, DOT, func(w *Writer) error { return w.Imports(graphEdges) })

	assert.Contains(t, dot, "digraph imports")
	assert.Contains(t, dot, `"Main.qml" -> "controls" [label="directory"];`)
	assert.Contains(t, dot, `"Main.qml" -> "Ui" [label="library"];`)
	assert.Contains(t, dot, "UNRESOLVED")
	assert.Contains(t, dot, "cluster_imports")
}

func TestImportsMermaid(t *testing.T) {
	out := render(t, Mermaid, func(w *Writer) error { return w.Imports(graphEdges) })

	assert.Contains(t, out, "flowchart LR")
	assert.Contains(t, out, `  Main_qml["Main.qml"]`)
	assert.Contains(t, out, `subgraph dir_controls ["controls"]`)
	assert.Contains(t, out, `    controls_Button_qml["Button.qml"]`)
	assert.Contains(t, out, `Ui{{"Ui"}}`)
	assert.Contains(t, out, `controls[/"controls"\]`)
	assert.Contains(t, out, `logic_js[("logic.js")]`)
	assert.Contains(t, out, "class Ui libraryNode;")
	assert.Contains(t, out, "controls_Button_qml -->|UNRESOLVED file| logic_js")
	assert.Contains(t, out, "linkStyle 2 ")
}

func TestImportsText(t *testing.T) {
	out := render(t, Text, func(w *Writer) error { return w.Imports(graphEdges) })
	assert.Contains(t, out, "controls/Button.qml -> logic.js [file]  (unresolved)\n")
}

func TestMermaidIDsAreUnique(t *testing.T) {
	ids := makeMermaidIDs([]string{"a.qml", "a_qml", "1x"})
	assert.Equal(t, "a_qml", ids["a.qml"])
	assert.Equal(t, "a_qml_2", ids["a_qml"])
	assert.Equal(t, "n_1x", ids["1x"])
}

func TestValue(t *testing.T) {
	out := render(t, Text, func(w *Writer) error {
		return w.Value(ValueReport{Found: true, Type: "Item", Members: []string{"height", "width"}})
	})
	assert.Equal(t, "Item\n  height\n  width\n", out)

	out = render(t, Text, func(w *Writer) error { return w.Value(ValueReport{}) })
	assert.Equal(t, "no value at cursor\n", out)

	out = render(t, JSON, func(w *Writer) error { return w.Value(ValueReport{Found: true, Type: "number"}) })
	var got ValueReport
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	assert.Equal(t, "number", got.Type)

	err := NewWriter(&bytes.Buffer{}, DOT, "/app").Value(ValueReport{})
	assert.True(t, errors.IsCode(err, errors.CodeNotSupported))
}
