package document

import (
	"testing"

	"qmllink/internal/engine/qml/interp"
	"qmllink/internal/engine/qml/parser"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDocument(t *testing.T) {
	p := parser.New()
	doc := Parse(p, "/proj/ui/Button.qml", []byte("import QtQuick 1.0\nRectangle {\n  id: btn\n}\n"), 3)

	assert.Equal(t, "/proj/ui/Button.qml", doc.Path())
	assert.Equal(t, "/proj/ui", doc.Dir())
	assert.Equal(t, QML, doc.Language())
	assert.Equal(t, "Button", doc.ComponentName())
	assert.Equal(t, 3, doc.Revision())
	assert.False(t, doc.HasErrors())
	require.NotNil(t, doc.QmlProgram())
	assert.Nil(t, doc.JSProgram())

	require.NotNil(t, doc.Bind().RootObject())
	assert.Equal(t, "Button", doc.Bind().RootObject().ClassName())

	assert.Equal(t, "Rectangle {", doc.LineText(2))
	assert.Equal(t, "", doc.LineText(99))
}

func TestParseJavaScriptDocument(t *testing.T) {
	doc := Parse(parser.New(), "/proj/logic.js", []byte("function f() { return 1 }\n"), 0)
	assert.Equal(t, JavaScript, doc.Language())
	assert.Equal(t, "", doc.ComponentName())
	require.NotNil(t, doc.JSProgram())
	_, ok := doc.Bind().RootObject().Member("f")
	assert.True(t, ok)
}

func TestParseDocumentReportsSyntaxErrors(t *testing.T) {
	doc := Parse(parser.New(), "/proj/Bad.qml", []byte("Item {\n  width: \n"), 0)
	require.True(t, doc.HasErrors())
	for _, d := range doc.Diagnostics() {
		assert.Equal(t, Error, d.Severity)
		assert.Equal(t, "/proj/Bad.qml", d.Path)
	}
}

func TestSnapshotIsCopyOnWrite(t *testing.T) {
	p := parser.New()
	a := Parse(p, "/p/A.qml", []byte("Item {}"), 0)
	b := Parse(p, "/p/B.qml", []byte("Item {}"), 0)

	empty := NewSnapshot()
	one := empty.Insert(a)
	two := one.Insert(b)

	assert.Equal(t, 0, empty.Len())
	assert.Equal(t, 1, one.Len())
	assert.Equal(t, 2, two.Len())

	removed := two.Remove("/p/A.qml")
	assert.Equal(t, 1, removed.Len())
	_, ok := two.Document("/p/A.qml")
	assert.True(t, ok, "removal must not affect the original snapshot")

	paths := func(s Snapshot) []string {
		var out []string
		for _, d := range s.Documents() {
			out = append(out, d.Path())
		}
		return out
	}
	assert.Equal(t, []string{"/p/A.qml", "/p/B.qml"}, paths(two))
	assert.Len(t, two.DocumentsInDirectory("/p"), 2)
	assert.Empty(t, two.DocumentsInDirectory("/other"))

	lib, _ := ParseLibraryInfo("/p", []byte("A 1.0 A.qml\n"))
	withLib := two.WithLibrary("/p", lib)
	_, ok = two.Library("/p")
	assert.False(t, ok)
	got, ok := withLib.Library("/p")
	require.True(t, ok)
	assert.Same(t, lib, got)
	assert.Equal(t, []string{"/p"}, withLib.LibraryPaths())
}

func TestSnapshotRefreshFromWorkingCopy(t *testing.T) {
	p := parser.New()
	orig := Parse(p, "/p/A.qml", []byte("Item {}"), 1)
	snap := NewSnapshot().Insert(orig)

	wc := NewWorkingCopy()
	wc.Set("/p/A.qml", []byte("Item {}"), 1)
	assert.Same(t, orig, mustDoc(t, snap.Refresh(p, wc), "/p/A.qml"), "same revision keeps the document")

	wc.Set("/p/A.qml", []byte("Rectangle { id: r }"), 2)
	wc.Set("/p/New.qml", []byte("Item {}"), 1)
	refreshed := snap.Refresh(p, wc)

	updated := mustDoc(t, refreshed, "/p/A.qml")
	assert.Equal(t, 2, updated.Revision())
	_, ok := updated.Bind().IDEnvironment().Member("r")
	assert.True(t, ok)
	mustDoc(t, refreshed, "/p/New.qml")

	assert.Equal(t, 1, mustDoc(t, snap, "/p/A.qml").Revision())
}

func mustDoc(t *testing.T, s Snapshot, path string) *Document {
	t.Helper()
	d, ok := s.Document(path)
	require.True(t, ok, "missing %s", path)
	return d
}

func TestParseLibraryInfo(t *testing.T) {
	data := []byte(`# widgets
module Acme.Widgets
plugin acmewidgets
typeinfo plugins.qmltypes
Button 1.0 Button.qml
Button 1.1 Button11.qml
Button 2.0 Button20.qml
internal Helper Helper.qml
singleton Theme 1.0 Theme.qml
Utils 1.0 utils.js
broken line here and more
Slider x.y Slider.qml
`)
	info, diags := ParseLibraryInfo("/libs/Acme/Widgets", data)
	require.Len(t, diags, 2)
	assert.Equal(t, 11, diags[0].Loc.StartLine)
	assert.Equal(t, Warning, diags[0].Severity)

	assert.Equal(t, "Acme.Widgets", info.Module)
	require.Len(t, info.Plugins, 1)
	assert.Equal(t, []string{"plugins.qmltypes"}, info.TypeInfos)

	v11 := info.ComponentsFor(interp.NewVersion(1, 1))
	require.Len(t, v11, 3)
	assert.Equal(t, "Button", v11[0].TypeName)
	assert.Equal(t, "Button11.qml", v11[0].FileName)
	assert.Equal(t, "Theme", v11[1].TypeName)
	assert.True(t, v11[1].Singleton)
	assert.True(t, v11[2].IsScript())

	all := info.ComponentsFor(interp.ComponentVersion{})
	assert.Equal(t, "Button20.qml", all[0].FileName)

	local := info.LocalComponents()
	var names []string
	for _, c := range local {
		names = append(names, c.TypeName)
	}
	assert.Equal(t, []string{"Button", "Helper", "Theme", "Utils"}, names)

	assert.True(t, info.ProvidesVersion(interp.NewVersion(1, 0)))
	assert.False(t, info.ProvidesVersion(interp.NewVersion(0, 9)))
}

func TestDiagnosticString(t *testing.T) {
	d := Diagnostic{Path: "A.qml", Severity: Error, Message: "boom"}
	d.Loc.StartLine = 3
	d.Loc.StartColumn = 7
	assert.Equal(t, "A.qml:3:7: error: boom", d.String())
}
