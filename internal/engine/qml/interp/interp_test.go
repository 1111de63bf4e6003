package interp

import (
	"os"
	"path/filepath"
	"testing"

	"qmllink/internal/core/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestArenaPointersAreStable(t *testing.T) {
	a := NewArena()
	first := a.New("First", KindPlain)
	first.SetMember("x", Number)

	var last *ObjectValue
	for i := 0; i < arenaBlockSize*3; i++ {
		last = a.New("Filler", KindPlain)
	}
	assert.Equal(t, 1+arenaBlockSize*3, a.Len())
	assert.Equal(t, "First", first.ClassName())
	v, ok := first.Member("x")
	require.True(t, ok)
	assert.Same(t, Number, v)
	assert.NotSame(t, first, last)
}

func TestMembersStayUniqueAndOrdered(t *testing.T) {
	a := NewArena()
	o := a.New("Obj", KindPlain)
	o.SetMember("b", Number)
	o.SetMember("a", String)
	o.SetMember("b", Boolean)

	assert.Equal(t, []string{"b", "a"}, o.MemberNames())
	v, _ := o.Member("b")
	assert.Same(t, Boolean, v)
}

type mapResolver map[string]*ObjectValue

func (m mapResolver) ResolvePrototype(ref TypeRef) *ObjectValue {
	return m[ref.String()]
}

func TestLookupMemberFollowsPrototypes(t *testing.T) {
	a := NewArena()
	base := a.New("Base", KindPlain)
	base.SetMember("width", Number)
	derived := a.New("Derived", KindQmlObject)
	derived.SetPrototypeRef(TypeRef{Names: []string{"Base"}})
	derived.SetMember("color", String)

	resolver := mapResolver{"Base": base}

	v, owner := derived.LookupMember("width", resolver)
	assert.Same(t, Number, v)
	assert.Same(t, base, owner)

	_, owner = derived.LookupMember("width", nil)
	assert.Nil(t, owner, "deferred prototype needs a resolver")

	assert.True(t, derived.HasPrototype(base, resolver))
	assert.False(t, base.HasPrototype(derived, resolver))
}

func TestPrototypeIteratorStopsOnCycles(t *testing.T) {
	a := NewArena()
	x := a.New("X", KindPlain)
	y := a.New("Y", KindPlain)
	x.SetPrototype(y)
	y.SetPrototype(x)

	chain := Prototypes(x, nil)
	assert.Equal(t, []*ObjectValue{x, y}, chain)

	v, owner := x.LookupMember("missing", nil)
	assert.Nil(t, v)
	assert.Nil(t, owner)
}

func TestParseVersion(t *testing.T) {
	tests := []struct {
		in    string
		want  string
		valid bool
		ok    bool
	}{
		{"1.0", "1.0", true, true},
		{"2", "2.0", true, true},
		{"2.15", "2.15", true, true},
		{"", "", false, true},
		{"x.1", "", false, false},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			v, ok := ParseVersion(tt.in)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.valid, v.IsValid())
			assert.Equal(t, tt.want, v.String())
		})
	}
	assert.True(t, NewVersion(1, 0).LessOrEqual(NewVersion(1, 1)))
	assert.False(t, NewVersion(2, 0).LessOrEqual(NewVersion(1, 9)))
}

func TestEngineBuiltins(t *testing.T) {
	e, err := NewEngine()
	require.NoError(t, err)

	rect, ok := e.MetaType("Rectangle")
	require.True(t, ok)
	assert.Equal(t, "Qt", rect.PackageName())

	item, _ := e.MetaType("Item")
	assert.Same(t, item, rect.Prototype(nil))

	v, owner := rect.LookupMember("width", nil)
	assert.Same(t, Number, v)
	assert.Same(t, item, owner)

	_, owner = rect.LookupMember("onColorChanged", nil)
	assert.Same(t, rect, owner)

	mouse, _ := e.MetaType("MouseArea")
	_, owner = mouse.LookupMember("onClicked", nil)
	assert.Same(t, mouse, owner)

	anchors, _ := item.Member("anchors")
	anchorsType, _ := e.MetaType("Anchors")
	assert.Same(t, anchorsType, anchors)

	console, ok := e.Global().Member("console")
	require.True(t, ok)
	_, owner = AsObject(console).LookupMember("log", nil)
	assert.NotNil(t, owner)
}

func TestEnginePackages(t *testing.T) {
	e, err := NewEngine()
	require.NoError(t, err)

	quick, ok := e.Package("QtQuick")
	require.True(t, ok)
	assert.True(t, quick.HasVersion(NewVersion(1, 0)))
	assert.True(t, quick.HasVersion(NewVersion(1, 1)))
	assert.False(t, quick.HasVersion(NewVersion(2, 0)))

	names := func(exports []Export) map[string]bool {
		out := make(map[string]bool)
		for _, ex := range exports {
			out[ex.Name] = true
		}
		return out
	}
	v10 := names(quick.Types(NewVersion(1, 0)))
	v11 := names(quick.Types(NewVersion(1, 1)))
	assert.True(t, v10["Rectangle"])
	assert.False(t, v10["Flow"])
	assert.True(t, v11["Flow"])

	def, ok := e.Package(DefaultPackage)
	require.True(t, ok)
	assert.True(t, names(def.Types(ComponentVersion{}))["Component"])

	listElement, _ := e.MetaType("ListElement")
	assert.True(t, IsLibraryType(listElement, "ListElement", "Qt", "QtQuick"))
	assert.False(t, IsLibraryType(listElement, "Connections", "Qt", "QtQuick"))
}

func TestEngineExtraCatalogue(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "extra.toml")
	require.NoError(t, os.WriteFile(path, []byte(`
[[package]]
name = "Acme.Widgets"
versions = ["2.0"]

[[type]]
name = "Gauge"
prototype = "Item"
exports = ["Acme.Widgets 2.0"]
[type.properties]
value = "real"
`), 0o644))

	cat, err := LoadCatalogueFile(path)
	require.NoError(t, err)

	e, err := NewEngine(cat)
	require.NoError(t, err)
	pkg, ok := e.Package("Acme.Widgets")
	require.True(t, ok)
	exports := pkg.Types(NewVersion(2, 0))
	require.Len(t, exports, 1)
	assert.Equal(t, "Gauge", exports[0].Name)
}

func TestCatalogueValidation(t *testing.T) {
	_, err := ParseCatalogue(`
[[type]]
name = "Broken"
exports = ["NoVersion"]
`)
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.CodeValidationError))

	_, err = ParseCatalogue("[[type]\n")
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.CodeParse))

	cat, err := ParseCatalogue(`
[[type]]
name = "Orphan"
prototype = "Missing"
`)
	require.NoError(t, err)
	_, err = NewEngine(cat)
	assert.True(t, errors.IsCode(err, errors.CodeValidationError))
}

func TestSignalHandlerName(t *testing.T) {
	assert.Equal(t, "onClicked", SignalHandlerName("clicked"))
	assert.Equal(t, "onWidthChanged", SignalHandlerName("widthChanged"))
	assert.Equal(t, "", SignalHandlerName(""))
}
