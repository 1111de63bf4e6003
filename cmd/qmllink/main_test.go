package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"qmllink/internal/core/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const projectMain = `import QtQuick 1.0
import "widgets"
Item {
    property int count: 1
    width: count
    Label { }
}
`

func newProject(t *testing.T, files map[string]string) string {
	t.Helper()
	dir := t.TempDir()
	for name, content := range files {
		path := filepath.Join(dir, name)
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	}
	return dir
}

func runCLI(t *testing.T, dir string, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetIn(strings.NewReader(""))
	full := append([]string{"--config", filepath.Join(dir, "qmllink.toml"), "--env-file", ""}, args...)
	cmd.SetArgs(full)
	err := cmd.Execute()
	return out.String(), err
}

func cleanProject(t *testing.T, extra string) string {
	return newProject(t, map[string]string{
		"qmllink.toml":      "version = 1\n" + extra,
		"Main.qml":          projectMain,
		"widgets/Label.qml": "import QtQuick 1.0\nRectangle { }\n",
	})
}

func TestParsePosition(t *testing.T) {
	pos, err := parsePosition("Main.qml:12:9", -1)
	require.NoError(t, err)
	assert.True(t, filepath.IsAbs(pos.Path))
	assert.Equal(t, "Main.qml", filepath.Base(pos.Path))
	assert.Equal(t, 12, pos.Line)
	assert.Equal(t, 9, pos.Column)

	pos, err = parsePosition("Main.qml:3", -1)
	require.NoError(t, err)
	assert.Equal(t, 3, pos.Line)
	assert.Equal(t, 1, pos.Column)

	pos, err = parsePosition("Main.qml", 42)
	require.NoError(t, err)
	assert.Equal(t, 0, pos.Line)
	assert.Equal(t, 42, pos.Offset)

	_, err = parsePosition("Main.qml", -1)
	assert.True(t, errors.IsCode(err, errors.CodeValidationError))

	_, err = parsePosition("Main.qml:-2", -1)
	assert.True(t, errors.IsCode(err, errors.CodeValidationError))
}

func TestCheckClean(t *testing.T) {
	dir := cleanProject(t, "")
	out, err := runCLI(t, dir, "check")
	require.NoError(t, err)
	assert.Equal(t, "no problems found\n", out)
}

func TestCheckReportsProblems(t *testing.T) {
	dir := newProject(t, map[string]string{
		"qmllink.toml": "version = 1\n",
		"Main.qml":     "import QtQuick 1.0\nimport \"gone.js\" as Gone\nItem { }\n",
	})
	out, err := runCLI(t, dir, "check", "--format", "json")
	assert.ErrorIs(t, err, errProblems)

	var rows []map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &rows))
	var errs []map[string]any
	for _, r := range rows {
		if r["severity"] == "error" {
			errs = append(errs, r)
		}
	}
	require.Len(t, errs, 1)
	assert.Equal(t, "Main.qml", errs[0]["path"])
	assert.Contains(t, errs[0]["message"], "file not found")
}

func TestUsagesCommand(t *testing.T) {
	dir := cleanProject(t, "")
	out, err := runCLI(t, dir, "usages", filepath.Join(dir, "Main.qml")+":4:18")
	require.NoError(t, err)
	assert.Contains(t, out, `expression "count": 2 usage(s)`)
	assert.Contains(t, out, "Main.qml:5:12")
}

func TestCompleteCommand(t *testing.T) {
	dir := cleanProject(t, "")
	out, err := runCLI(t, dir, "complete", filepath.Join(dir, "Main.qml")+":5:14", "--format", "tsv")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "Name\tKind\tType\n"))
	assert.Contains(t, out, "count\t")
}

func TestCompleteValue(t *testing.T) {
	dir := cleanProject(t, "")
	out, err := runCLI(t, dir, "complete", filepath.Join(dir, "Main.qml")+":5:12", "--value")
	require.NoError(t, err)
	assert.Contains(t, out, "number")
}

func TestImportsWritesFile(t *testing.T) {
	dir := cleanProject(t, "")
	target := filepath.Join(dir, "build", "imports.dot")
	out, err := runCLI(t, dir, "imports", "--format", "dot", "--out", target)
	require.NoError(t, err)
	assert.Empty(t, out)

	data, err := os.ReadFile(target)
	require.NoError(t, err)
	assert.Contains(t, string(data), "digraph imports {")
	assert.Contains(t, string(data), `"Main.qml" -> "widgets"`)
}

func TestUnknownFormat(t *testing.T) {
	dir := cleanProject(t, "")
	_, err := runCLI(t, dir, "check", "--format", "yaml")
	assert.True(t, errors.IsCode(err, errors.CodeValidationError))
}

func TestHistoryCommand(t *testing.T) {
	dir := cleanProject(t, "[history]\nenabled = true\n")
	_, err := runCLI(t, dir, "usages", filepath.Join(dir, "Main.qml")+":4:18")
	require.NoError(t, err)

	out, err := runCLI(t, dir, "history", "--format", "json")
	require.NoError(t, err)
	var rows []map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &rows))
	require.Len(t, rows, 1)
	assert.Equal(t, "count", rows[0]["name"])
}

func TestHistoryDisabledCommand(t *testing.T) {
	dir := cleanProject(t, "")
	_, err := runCLI(t, dir, "history")
	assert.True(t, errors.IsCode(err, errors.CodeNotSupported))
}

func TestMissingExplicitConfig(t *testing.T) {
	cmd := newRootCmd()
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{"--config", filepath.Join(t.TempDir(), "nope.toml"), "--env-file", "", "check"})
	err := cmd.Execute()
	assert.True(t, errors.IsCode(err, errors.CodeNotFound))
}
