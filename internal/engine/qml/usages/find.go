// Package usages finds every occurrence of a symbol or type across the
// documents of a snapshot.
package usages

import (
	"qmllink/internal/engine/qml/ast"
	"qmllink/internal/engine/qml/document"
	"qmllink/internal/engine/qml/interp"
	"qmllink/internal/engine/qml/scope"
)

// FindUsages collects the locations in one document that resolve to a
// given member of a given scope object. Matching is by identity of the
// defining object, never by name alone.
type FindUsages struct {
	doc     *document.Document
	ctx     *scope.Context
	builder *scope.Builder

	name  string
	scope *interp.ObjectValue
	out   []ast.SourceLocation
}

// NewFindUsages prepares a pass over doc. ctx must be linked and must not
// be shared with other goroutines.
func NewFindUsages(doc *document.Document, ctx *scope.Context) *FindUsages {
	b := scope.NewBuilder(ctx, doc)
	b.InitializeRootScope()
	return &FindUsages{doc: doc, ctx: ctx, builder: b}
}

// Find returns the locations where name resolves to a member defined by
// target.
func (f *FindUsages) Find(name string, target *interp.ObjectValue) []ast.SourceLocation {
	f.name = name
	f.scope = target
	f.out = nil
	if f.doc == nil || target == nil || name == "" {
		return nil
	}
	f.visit(f.doc.Root())
	return f.out
}

func (f *FindUsages) visitChildren(n ast.Node) {
	for _, c := range ast.Children(n) {
		f.visit(c)
	}
}

func (f *FindUsages) visit(n ast.Node) {
	switch n := n.(type) {
	case nil:
		return

	case *ast.UiPublicMember:
		if n.Name == f.name && containsObject(f.ctx.ScopeChain().QmlScopeObjects, f.scope) {
			f.out = append(f.out, n.IdentifierToken)
		}
		if block, ok := n.Statement.(*ast.Block); ok {
			f.builder.Scoped(n, func() { f.visit(block) })
			return
		}
		f.visitChildren(n)

	case *ast.UiObjectDefinition:
		f.builder.Scoped(n, func() { f.visit(n.Initializer) })

	case *ast.UiObjectBinding:
		f.checkBindingName(n.QualifiedID)
		f.builder.Scoped(n, func() { f.visit(n.Initializer) })

	case *ast.UiScriptBinding:
		f.checkBindingName(n.QualifiedID)
		if block, ok := n.Statement.(*ast.Block); ok {
			f.builder.Scoped(n, func() { f.visit(block) })
			return
		}
		f.visitChildren(n)

	case *ast.UiArrayBinding:
		f.checkBindingName(n.QualifiedID)
		f.visitChildren(n)

	case *ast.IdentifierExpression:
		if n.Name == f.name && f.identifierMatches() {
			f.out = append(f.out, n.IdentifierToken)
		}

	case *ast.FieldMemberExpression:
		if n.Name == f.name {
			base := f.ctx.Evaluate(n.Base)
			if base != nil && f.check(interp.AsObject(base)) {
				f.out = append(f.out, n.IdentifierToken)
			}
		}
		f.visitChildren(n)

	case *ast.FunctionExpression:
		if n.Name == f.name && f.checkLookup() {
			f.out = append(f.out, n.IdentifierToken)
		}
		f.builder.Scoped(n, func() { f.visit(n.Body) })

	case *ast.VariableDeclaration:
		if n.Name == f.name && f.checkLookup() {
			f.out = append(f.out, n.IdentifierToken)
		}
		f.visitChildren(n)

	default:
		f.visitChildren(n)
	}
}

func (f *FindUsages) checkBindingName(id ast.QualifiedID) {
	if name, ok := id.Single(); ok && name == f.name && f.checkQmlScope() {
		f.out = append(f.out, id[0].Token)
	}
}

func (f *FindUsages) identifierMatches() bool {
	_, s := f.ctx.Lookup(f.name)
	if s == nil {
		return false
	}
	if f.check(s) {
		return true
	}

	// The order of instantiating components is arbitrary, so a different
	// value found first may still hide a use through the component chain.
	// A hit in any other scope is definitive.
	chain := f.ctx.ScopeChain()
	if containsObject(chain.JSScopes, s) ||
		containsObject(chain.QmlScopeObjects, s) ||
		chain.QmlTypes == s ||
		chain.GlobalScope == s {
		return false
	}
	return f.contains(chain.QmlComponentScope)
}

func (f *FindUsages) contains(c *scope.ComponentChain) bool {
	if c == nil || c.Document == nil {
		return false
	}
	b := c.Document.Bind()
	if ids := b.IDEnvironment(); ids != nil {
		if v, _ := ids.LookupMember(f.name, f.ctx); v != nil {
			return ids == f.scope
		}
	}
	if root := b.RootObject(); root != nil {
		if v, _ := root.LookupMember(f.name, f.ctx); v != nil {
			return f.check(root)
		}
	}
	for _, parent := range c.InstantiatingComponents {
		if f.contains(parent) {
			return true
		}
	}
	return false
}

// check reports whether name, looked up on s, is defined by the target.
func (f *FindUsages) check(s *interp.ObjectValue) bool {
	if s == nil {
		return false
	}
	_, def := s.LookupMember(f.name, f.ctx)
	return def == f.scope
}

func (f *FindUsages) checkQmlScope() bool {
	for _, s := range f.ctx.ScopeChain().QmlScopeObjects {
		if f.check(s) {
			return true
		}
	}
	return false
}

func (f *FindUsages) checkLookup() bool {
	_, s := f.ctx.Lookup(f.name)
	return f.check(s)
}

// FindTypeUsages collects the locations in one document that name a
// given type object.
type FindTypeUsages struct {
	doc     *document.Document
	ctx     *scope.Context
	builder *scope.Builder

	name      string
	typeValue *interp.ObjectValue
	out       []ast.SourceLocation
}

func NewFindTypeUsages(doc *document.Document, ctx *scope.Context) *FindTypeUsages {
	b := scope.NewBuilder(ctx, doc)
	b.InitializeRootScope()
	return &FindTypeUsages{doc: doc, ctx: ctx, builder: b}
}

// Find returns the locations where name resolves to typeValue.
func (f *FindTypeUsages) Find(name string, typeValue *interp.ObjectValue) []ast.SourceLocation {
	f.name = name
	f.typeValue = typeValue
	f.out = nil
	if f.doc == nil || typeValue == nil || name == "" {
		return nil
	}
	f.visit(f.doc.Root())
	return f.out
}

func (f *FindTypeUsages) visitChildren(n ast.Node) {
	for _, c := range ast.Children(n) {
		f.visit(c)
	}
}

func (f *FindTypeUsages) visit(n ast.Node) {
	switch n := n.(type) {
	case nil:
		return

	case *ast.UiImport:
		if n.ImportID != "" && n.ImportID == f.name {
			if _, ok := f.ctx.Imports(f.doc.Path()); ok && f.ctx.LookupType(f.doc, []string{f.name}) == f.typeValue {
				f.out = append(f.out, n.ImportIDToken)
			}
		}

	case *ast.UiPublicMember:
		if n.MemberType == f.name && f.ctx.LookupType(f.doc, []string{f.name}) == f.typeValue {
			f.out = append(f.out, n.TypeToken)
		}
		if block, ok := n.Statement.(*ast.Block); ok {
			f.builder.Scoped(n, func() { f.visit(block) })
			return
		}
		f.visitChildren(n)

	case *ast.UiObjectDefinition:
		f.checkTypeName(n.QualifiedTypeNameID)
		f.builder.Scoped(n, func() { f.visit(n.Initializer) })

	case *ast.UiObjectBinding:
		f.checkTypeName(n.QualifiedTypeNameID)
		f.builder.Scoped(n, func() { f.visit(n.Initializer) })

	case *ast.UiScriptBinding:
		if block, ok := n.Statement.(*ast.Block); ok {
			f.builder.Scoped(n, func() { f.visit(block) })
			return
		}
		f.visitChildren(n)

	case *ast.IdentifierExpression:
		if n.Name == f.name {
			if v, _ := f.ctx.Lookup(f.name); interp.AsObject(v) == f.typeValue {
				f.out = append(f.out, n.IdentifierToken)
			}
		}

	case *ast.FieldMemberExpression:
		if n.Name == f.name {
			if base := interp.AsObject(f.ctx.Evaluate(n.Base)); base != nil {
				if v, _ := base.LookupMember(f.name, f.ctx); interp.AsObject(v) == f.typeValue {
					f.out = append(f.out, n.IdentifierToken)
				}
			}
		}
		f.visitChildren(n)

	case *ast.FunctionExpression:
		f.builder.Scoped(n, func() { f.visit(n.Body) })

	case *ast.VariableDeclaration:
		f.visit(n.Expression)

	default:
		f.visitChildren(n)
	}
}

// checkTypeName matches each segment of a dotted type name against the
// type its prefix resolves to.
func (f *FindTypeUsages) checkTypeName(id ast.QualifiedID) {
	names := id.Names()
	for i, part := range id {
		if part.Name != f.name {
			continue
		}
		if f.ctx.LookupType(f.doc, names[:i+1]) == f.typeValue {
			f.out = append(f.out, part.Token)
			return
		}
	}
}

func containsObject(list []*interp.ObjectValue, o *interp.ObjectValue) bool {
	for _, x := range list {
		if x == o {
			return true
		}
	}
	return false
}
