package scope_test

import (
	"testing"

	"qmllink/internal/engine/qml/ast"
	"qmllink/internal/engine/qml/document"
	"qmllink/internal/engine/qml/interp"
	"qmllink/internal/engine/qml/qmltest"
	"qmllink/internal/engine/qml/scope"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const panelQML = `import QtQuick 1.0
Item {
    id: root
    property int count: 0
    anchors { fill: parent }
    Rectangle {
        id: box
        PropertyChanges { target: root; count: 3 }
        function grow(step) {
            var next = count + step
            return next
        }
    }
    ListModel {
        ListElement { name: count }
    }
    Connections { onCountChanged: count }
}
`

func setup(t *testing.T, files map[string]string, path string) (*scope.Context, *document.Document) {
	t.Helper()
	snap := qmltest.Snapshot(t, files)
	ctx, _ := qmltest.Link(t, snap)
	return ctx, qmltest.Doc(t, snap, path)
}

// at builds the scope chain at the n-th occurrence of marker.
func at(t *testing.T, ctx *scope.Context, doc *document.Document, marker string, n int) *scope.Builder {
	t.Helper()
	b := scope.NewBuilder(ctx, doc)
	b.InitializeRootScope()
	b.PushAll(scope.PathAt(doc, qmltest.Offset(t, doc, marker, n)))
	return b
}

func idObject(t *testing.T, doc *document.Document, id string) *interp.ObjectValue {
	t.Helper()
	v, ok := doc.Bind().IDEnvironment().Member(id)
	require.True(t, ok, "id %s", id)
	return interp.AsObject(v)
}

func TestPushPopRestoresChain(t *testing.T) {
	ctx, doc := setup(t, map[string]string{"/p/Panel.qml": panelQML}, "/p/Panel.qml")
	b := scope.NewBuilder(ctx, doc)
	b.InitializeRootScope()

	chain := ctx.ScopeChain()
	beforeObjects := append([]*interp.ObjectValue(nil), chain.QmlScopeObjects...)
	beforeJS := append([]*interp.ObjectValue(nil), chain.JSScopes...)
	beforeAll := chain.All()

	path := scope.PathAt(doc, qmltest.Offset(t, doc, "next", 1))
	require.Len(t, path, 3, "Item, Rectangle, function")
	b.PushAll(path)
	assert.Equal(t, 3, b.Depth())
	assert.NotEqual(t, beforeAll, chain.All())

	for range path {
		b.Pop()
	}
	assert.Equal(t, 0, b.Depth())
	assert.Equal(t, beforeObjects, chain.QmlScopeObjects)
	assert.Equal(t, beforeJS, chain.JSScopes)
	assert.Equal(t, beforeAll, chain.All())

	b.Pop() // popping an empty builder is harmless
	assert.Equal(t, beforeAll, chain.All())
}

func TestScopedPopsOnPanic(t *testing.T) {
	ctx, doc := setup(t, map[string]string{"/p/Panel.qml": panelQML}, "/p/Panel.qml")
	b := scope.NewBuilder(ctx, doc)
	b.InitializeRootScope()
	root := doc.QmlProgram().Members[0]

	assert.Panics(t, func() {
		b.Scoped(root, func() {
			assert.Equal(t, 1, b.Depth())
			panic("boom")
		})
	})
	assert.Equal(t, 0, b.Depth())
}

func TestLookupInFunctionScope(t *testing.T) {
	ctx, doc := setup(t, map[string]string{"/p/Panel.qml": panelQML}, "/p/Panel.qml")
	at(t, ctx, doc, "next", 1)

	v, s := ctx.Lookup("step")
	assert.Same(t, interp.Undefined, v)
	require.NotNil(t, s)
	assert.Equal(t, interp.KindScope, s.Kind())

	_, s = ctx.Lookup("count")
	assert.Same(t, doc.Bind().RootObject(), s)

	v, s = ctx.Lookup("box")
	assert.Same(t, idObject(t, doc, "box"), v)
	assert.Same(t, doc.Bind().IDEnvironment(), s)

	v, _ = ctx.Lookup("Math")
	assert.NotNil(t, v)

	v, s = ctx.Lookup("doesNotExist")
	assert.Nil(t, v)
	assert.Nil(t, s)
}

func TestLookupIsDeterministic(t *testing.T) {
	ctx, doc := setup(t, map[string]string{"/p/Panel.qml": panelQML}, "/p/Panel.qml")
	at(t, ctx, doc, "next", 1)

	expr := &ast.FieldMemberExpression{Base: &ast.IdentifierExpression{Name: "box"}, Name: "width"}
	first := ctx.Evaluate(expr)
	require.NotNil(t, first)
	for i := 0; i < 3; i++ {
		assert.Same(t, first, ctx.Evaluate(expr))
		assert.Same(t, first, ctx.Clone().Evaluate(expr))
	}
}

func TestPropertyChangesTargetBecomesScope(t *testing.T) {
	ctx, doc := setup(t, map[string]string{"/p/Panel.qml": panelQML}, "/p/Panel.qml")
	at(t, ctx, doc, "count: 3", 0)

	objs := ctx.ScopeChain().QmlScopeObjects
	require.Len(t, objs, 2)
	assert.Same(t, idObject(t, doc, "root"), objs[0])
	assert.Equal(t, "PropertyChanges", objs[1].ClassName())

	_, s := ctx.Lookup("count")
	assert.Same(t, idObject(t, doc, "root"), s)
}

func TestPropertyChangesUnresolvedTargetClearsScope(t *testing.T) {
	ctx, doc := setup(t, map[string]string{"/p/A.qml": `import QtQuick 1.0
Item {
    PropertyChanges { target: nothingHere; x: 1 }
}
`}, "/p/A.qml")
	at(t, ctx, doc, "x: 1", 0)
	assert.Empty(t, ctx.ScopeChain().QmlScopeObjects)
}

func TestListElementAndConnectionsClearScope(t *testing.T) {
	ctx, doc := setup(t, map[string]string{"/p/Panel.qml": panelQML}, "/p/Panel.qml")

	b := at(t, ctx, doc, "name: count", 0)
	assert.Empty(t, ctx.ScopeChain().QmlScopeObjects)
	for b.Depth() > 0 {
		b.Pop()
	}

	at(t, ctx, doc, "onCountChanged", 0)
	assert.Empty(t, ctx.ScopeChain().QmlScopeObjects)
}

func TestGroupedBindingUsesPropertyType(t *testing.T) {
	ctx, doc := setup(t, map[string]string{"/p/Panel.qml": panelQML}, "/p/Panel.qml")
	b := at(t, ctx, doc, "fill", 0)

	anchors, ok := ctx.Engine().MetaType("Anchors")
	require.True(t, ok)
	assert.Equal(t, []*interp.ObjectValue{anchors}, ctx.ScopeChain().QmlScopeObjects)

	v := b.ScopeObjectLookup(ast.QualifiedID{{Name: "centerIn"}})
	assert.NotNil(t, v)
	assert.Nil(t, b.ScopeObjectLookup(ast.QualifiedID{{Name: "centerIn"}, {Name: "nope"}}))
}

func TestComponentChainStopsOnCycles(t *testing.T) {
	ctx, doc := setup(t, map[string]string{
		"/p/A.qml": "B { property int a }\n",
		"/p/B.qml": "A { property int b }\n",
	}, "/p/A.qml")
	b := scope.NewBuilder(ctx, doc)
	b.InitializeRootScope()

	top := ctx.ScopeChain().QmlComponentScope
	require.NotNil(t, top)
	assert.Same(t, doc, top.Document)
	require.Len(t, top.InstantiatingComponents, 1)
	child := top.InstantiatingComponents[0]
	assert.Equal(t, "/p/B.qml", child.Document.Path())
	assert.Empty(t, child.InstantiatingComponents)

	var walk func(c *scope.ComponentChain, seen map[*document.Document]bool)
	walk = func(c *scope.ComponentChain, seen map[*document.Document]bool) {
		require.False(t, seen[c.Document], "chain contains %s twice", c.Document.Path())
		seen[c.Document] = true
		for _, p := range c.InstantiatingComponents {
			walk(p, seen)
		}
	}
	walk(top, map[*document.Document]bool{})

	// lookups terminate on the cyclic prototype chain
	v, _ := ctx.Lookup("b")
	assert.Same(t, interp.Number, v)
}

func TestInitializeRootScopeIsIdempotent(t *testing.T) {
	ctx, doc := setup(t, map[string]string{"/p/Panel.qml": panelQML}, "/p/Panel.qml")
	b := scope.NewBuilder(ctx, doc)
	b.InitializeRootScope()
	first := ctx.ScopeChain().QmlComponentScope
	b.InitializeRootScope()
	assert.Same(t, first, ctx.ScopeChain().QmlComponentScope)
	assert.NotNil(t, ctx.ScopeChain().QmlTypes)
}

func TestJavaScriptDocumentSeesImportingComponents(t *testing.T) {
	ctx, doc := setup(t, map[string]string{
		"/p/Main.qml": "import QtQuick 1.0\nimport \"logic.js\" as Logic\nItem { id: main; property int size }\n",
		"/p/logic.js": "var top = size\nfunction f() { return size }\n",
	}, "/p/logic.js")

	b := scope.NewBuilder(ctx, doc)
	b.InitializeRootScope()
	chain := ctx.ScopeChain()
	require.Len(t, chain.JSScopes, 1)
	assert.Same(t, doc.Bind().RootObject(), chain.JSScopes[0])
	require.Len(t, chain.QmlComponentScope.InstantiatingComponents, 1)
	assert.Nil(t, chain.QmlComponentScope.Document)

	// the top level of a script does not see its importers
	v, _ := ctx.Lookup("size")
	assert.Nil(t, v)

	b.PushAll(scope.PathAt(doc, qmltest.Offset(t, doc, "size", 1)))
	v, s := ctx.Lookup("size")
	assert.Same(t, interp.Number, v)
	require.NotNil(t, s)
	assert.Equal(t, "Main", s.ClassName())
}
