// Package qmltest builds in-memory snapshots and linked contexts for
// tests.
package qmltest

import (
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"testing"

	"qmllink/internal/engine/qml/document"
	"qmllink/internal/engine/qml/interp"
	"qmllink/internal/engine/qml/link"
	"qmllink/internal/engine/qml/parser"
	"qmllink/internal/engine/qml/scope"

	"github.com/stretchr/testify/require"
)

var (
	engineOnce sync.Once
	engine     *interp.Engine
	engineErr  error

	sharedParser = parser.New()
)

// Engine returns an engine built from the embedded catalogue. It is shared
// between tests since engines are read-only.
func Engine(t testing.TB) *interp.Engine {
	t.Helper()
	engineOnce.Do(func() {
		engine, engineErr = interp.NewEngine()
	})
	require.NoError(t, engineErr)
	return engine
}

// Parse parses one file the way the workspace would.
func Parse(path, source string) *document.Document {
	return document.Parse(sharedParser, path, []byte(source), 0)
}

// Snapshot parses files keyed by absolute path. Files named qmldir become
// library manifests of their directory.
func Snapshot(t testing.TB, files map[string]string) document.Snapshot {
	t.Helper()
	paths := make([]string, 0, len(files))
	for p := range files {
		paths = append(paths, p)
	}
	sort.Strings(paths)

	snap := document.NewSnapshot()
	var docs []*document.Document
	for _, p := range paths {
		if filepath.Base(p) == "qmldir" {
			info, diags := document.ParseLibraryInfo(filepath.Dir(p), []byte(files[p]))
			require.Empty(t, diags, "qmldir %s", p)
			snap = snap.WithLibrary(filepath.Dir(p), info)
			continue
		}
		docs = append(docs, Parse(p, files[p]))
	}
	return snap.With(docs...)
}

// Link links snap into a fresh context and returns the diagnostics by
// document path.
func Link(t testing.TB, snap document.Snapshot, importPaths ...string) (*scope.Context, map[string][]document.Diagnostic) {
	t.Helper()
	ctx := scope.NewContext(Engine(t), snap)
	diags := make(map[string][]document.Diagnostic)
	link.New(ctx, snap, importPaths).Run(func(d document.Diagnostic) {
		diags[d.Path] = append(diags[d.Path], d)
	})
	return ctx, diags
}

// Doc fetches a document that must exist.
func Doc(t testing.TB, snap document.Snapshot, path string) *document.Document {
	t.Helper()
	doc, ok := snap.Document(path)
	require.True(t, ok, "missing document %s", path)
	return doc
}

// Offset returns the byte offset of the n-th (0-based) occurrence of
// marker in the document source.
func Offset(t testing.TB, doc *document.Document, marker string, n int) int {
	t.Helper()
	src := string(doc.Source())
	base := 0
	for i := 0; ; i++ {
		idx := strings.Index(src[base:], marker)
		require.GreaterOrEqual(t, idx, 0, "marker %q #%d not found in %s", marker, n, doc.Path())
		if i == n {
			return base + idx
		}
		base += idx + len(marker)
	}
}
