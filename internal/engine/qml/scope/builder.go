package scope

import (
	"qmllink/internal/engine/qml/ast"
	"qmllink/internal/engine/qml/bind"
	"qmllink/internal/engine/qml/document"
	"qmllink/internal/engine/qml/interp"
)

// Builder pushes and pops syntax nodes onto the scope chain of a Context
// while a resolver walks one document. Pushes and pops are strictly LIFO
// and every Pop restores the chain saved by its Push.
type Builder struct {
	ctx   *Context
	doc   *document.Document
	nodes []ast.Node
	saved []ScopeChain
}

func NewBuilder(ctx *Context, doc *document.Document) *Builder {
	return &Builder{ctx: ctx, doc: doc}
}

// Depth is the number of pushed nodes.
func (b *Builder) Depth() int { return len(b.nodes) }

// InitializeRootScope sets up the chain for the top level of the
// document. It is a no-op when the chain already belongs to this QML
// document.
func (b *Builder) InitializeRootScope() {
	chain := b.ctx.ScopeChain()
	if chain.QmlComponentScope != nil && chain.QmlComponentScope.Document == b.doc {
		return
	}

	*chain = ScopeChain{
		GlobalScope:       b.ctx.Engine().Global(),
		QmlComponentScope: &ComponentChain{},
	}

	snapshot := b.ctx.Snapshot()
	if b.doc.QmlProgram() != nil {
		visited := map[*document.Document]bool{b.doc: true}
		b.makeComponentChain(b.doc, snapshot, chain.QmlComponentScope, visited)
		if imps, ok := b.ctx.Imports(b.doc.Path()); ok {
			chain.QmlTypes = imps.TypeScope()
			chain.JSImports = imps.JSImportScope()
		}
	} else {
		visited := map[*document.Document]bool{}
		for _, other := range snapshot.Documents() {
			for _, imp := range other.Bind().Imports() {
				if imp.Kind != bind.FileImport || imp.Name != b.doc.Path() || visited[other] {
					continue
				}
				visited[other] = true
				component := &ComponentChain{}
				chain.QmlComponentScope.InstantiatingComponents = append(chain.QmlComponentScope.InstantiatingComponents, component)
				b.makeComponentChain(other, snapshot, component, visited)
			}
		}
		if root := b.doc.Bind().RootObject(); root != nil {
			chain.JSScopes = append(chain.JSScopes, root)
		}
	}
	chain.Update()
}

// makeComponentChain records every document that instantiates doc's root
// component as a parent of target, recursively.
func (b *Builder) makeComponentChain(doc *document.Document, snapshot document.Snapshot, target *ComponentChain, visited map[*document.Document]bool) {
	if doc.QmlProgram() == nil {
		return
	}
	root := doc.Bind().RootObject()
	for _, other := range snapshot.Documents() {
		if other == doc || visited[other] {
			continue
		}
		if !other.Bind().UsesQmlPrototype(root, b.ctx) {
			continue
		}
		visited[other] = true
		component := &ComponentChain{}
		target.InstantiatingComponents = append(target.InstantiatingComponents, component)
		b.makeComponentChain(other, snapshot, component, visited)
	}
	target.Document = doc
}

// Push enters node. Object definitions and bindings replace the QML scope
// objects; script bindings, public members and functions add their
// attached JavaScript scope.
func (b *Builder) Push(node ast.Node) {
	chain := b.ctx.ScopeChain()
	b.nodes = append(b.nodes, node)
	b.saved = append(b.saved, chain.clone())

	switch node.(type) {
	case *ast.UiObjectDefinition, *ast.UiObjectBinding:
		b.setQmlScopeObject(node)
	}

	switch node.(type) {
	case *ast.UiScriptBinding, *ast.FunctionExpression, *ast.UiPublicMember:
		if s := b.doc.Bind().FindAttachedJSScope(node); s != nil {
			chain.JSScopes = append(chain.JSScopes, s)
		}
	}
	chain.Update()
}

// PushAll pushes nodes in order, outermost first.
func (b *Builder) PushAll(nodes []ast.Node) {
	for _, n := range nodes {
		b.Push(n)
	}
}

// Pop leaves the most recently pushed node.
func (b *Builder) Pop() {
	if len(b.nodes) == 0 {
		return
	}
	last := len(b.nodes) - 1
	*b.ctx.ScopeChain() = b.saved[last]
	b.nodes = b.nodes[:last]
	b.saved = b.saved[:last]
}

// Scoped runs fn with node pushed and pops it afterwards, also when fn
// panics.
func (b *Builder) Scoped(node ast.Node, fn func()) {
	b.Push(node)
	defer b.Pop()
	fn()
}

func (b *Builder) setQmlScopeObject(node ast.Node) {
	chain := b.ctx.ScopeChain()
	bd := b.doc.Bind()

	if bd.IsGroupedPropertyBinding(node) {
		def, ok := node.(*ast.UiObjectDefinition)
		if !ok {
			return
		}
		if obj := interp.AsObject(b.ScopeObjectLookup(def.QualifiedTypeNameID)); obj != nil {
			chain.QmlScopeObjects = []*interp.ObjectValue{obj}
		}
	}

	scopeObject := bd.FindQmlObject(node)
	if scopeObject == nil {
		// grouped binding, or a tree recovered from syntax errors
		return
	}
	chain.QmlScopeObjects = []*interp.ObjectValue{scopeObject}

	// ListElement and Connections do not expose their own properties to
	// the expressions inside them.
	it := interp.NewPrototypeIterator(scopeObject, b.ctx)
	it.Next()
	for it.Next() {
		proto := it.Value()
		if interp.IsLibraryType(proto, "ListElement", "Qt", "QtQuick") ||
			interp.IsLibraryType(proto, "Connections", "Qt", "QtQuick") {
			chain.QmlScopeObjects = nil
			break
		}
	}

	if !b.isPropertyChanges(scopeObject.Prototype(b.ctx)) {
		return
	}
	var init *ast.UiObjectInitializer
	switch n := node.(type) {
	case *ast.UiObjectDefinition:
		init = n.Initializer
	case *ast.UiObjectBinding:
		init = n.Initializer
	}
	if init == nil {
		return
	}
	for _, m := range init.Members {
		sb, ok := m.(*ast.UiScriptBinding)
		if !ok {
			continue
		}
		if name, ok := sb.QualifiedID.Single(); !ok || name != "target" {
			continue
		}
		if target := interp.AsObject(b.ctx.Evaluate(sb.Statement)); target != nil {
			chain.QmlScopeObjects = append([]*interp.ObjectValue{target}, chain.QmlScopeObjects...)
		} else {
			chain.QmlScopeObjects = nil
		}
	}
}

func (b *Builder) isPropertyChanges(proto *interp.ObjectValue) bool {
	if proto == nil {
		return false
	}
	it := interp.NewPrototypeIterator(proto, b.ctx)
	for it.Next() {
		if interp.IsLibraryType(it.Value(), "PropertyChanges", "Qt", "QtQuick") {
			return true
		}
	}
	return false
}

// ScopeObjectLookup resolves a possibly qualified name against the
// current QML scope objects. The first scope object that resolves every
// segment wins.
func (b *Builder) ScopeObjectLookup(id ast.QualifiedID) interp.Value {
	for _, scopeObject := range b.ctx.ScopeChain().QmlScopeObjects {
		if v := lookupPath(scopeObject, id.Names(), b.ctx); v != nil {
			return v
		}
	}
	return nil
}

func lookupPath(obj *interp.ObjectValue, names []string, r interp.PrototypeResolver) interp.Value {
	var result interp.Value
	for i, name := range names {
		if name == "" {
			return nil
		}
		v, _ := obj.LookupMember(name, r)
		if v == nil {
			return nil
		}
		result = v
		if i < len(names)-1 {
			if obj = interp.AsObject(v); obj == nil {
				return nil
			}
		}
	}
	return result
}
