package usages

import (
	"unicode"
	"unicode/utf8"

	"qmllink/internal/engine/qml/ast"
	"qmllink/internal/engine/qml/document"
	"qmllink/internal/engine/qml/interp"
	"qmllink/internal/engine/qml/scope"
)

// TargetKind tells whether a target names a member or a type.
type TargetKind int

const (
	ExpressionTarget TargetKind = iota
	TypeTarget
)

func (k TargetKind) String() string {
	if k == TypeTarget {
		return "type"
	}
	return "expression"
}

// Target is the symbol under the cursor. Scope is the object expected to
// define Name; Value is set for type targets and for uppercase names.
type Target struct {
	Name  string
	Kind  TargetKind
	Scope *interp.ObjectValue
	Value interp.Value
}

// Found reports whether a name was identified.
func (t Target) Found() bool { return t.Name != "" }

// TypeObject is the type searched for by a type target.
func (t Target) TypeObject() *interp.ObjectValue { return interp.AsObject(t.Value) }

// resolveScope is Scope, or the chain scope that defines Name.
func (t Target) resolveScope(ctx *scope.Context) *interp.ObjectValue {
	if t.Scope != nil {
		return t.Scope
	}
	_, s := ctx.Lookup(t.Name)
	return s
}

// FindTargetExpression identifies the symbol at an offset. The scope
// chain of ctx must already be built for that offset.
type FindTargetExpression struct {
	doc *document.Document
	ctx *scope.Context

	offset     int
	objectNode ast.Node
	target     Target
}

func NewFindTargetExpression(doc *document.Document, ctx *scope.Context) *FindTargetExpression {
	return &FindTargetExpression{doc: doc, ctx: ctx}
}

// Find returns the target at offset. A target with an empty name means
// nothing searchable is there.
func (f *FindTargetExpression) Find(offset int) Target {
	f.offset = offset
	f.objectNode = nil
	f.target = Target{}
	if f.doc == nil || f.doc.Root() == nil {
		return Target{}
	}
	f.visit(f.doc.Root())
	if f.target.Name != "" && f.target.Kind == ExpressionTarget {
		f.target.Scope = f.target.resolveScope(f.ctx)
	}
	return f.target
}

func (f *FindTargetExpression) containsOffset(loc ast.SourceLocation) bool {
	return loc.IsValid() && f.offset >= loc.Begin() && f.offset <= loc.End()
}

func (f *FindTargetExpression) visitChildren(n ast.Node) {
	for _, c := range ast.Children(n) {
		f.visit(c)
	}
}

func (f *FindTargetExpression) visit(n ast.Node) {
	if n == nil || f.target.Name != "" {
		return
	}
	switch n.(type) {
	case *ast.UiProgram, *ast.Program, *ast.UiObjectInitializer:
	default:
		first, last := n.FirstSourceLocation(), n.LastSourceLocation()
		if f.offset < first.Begin() || f.offset > last.End() {
			return
		}
	}

	switch n := n.(type) {
	case *ast.IdentifierExpression:
		if f.containsOffset(n.IdentifierToken) {
			f.target.Name = n.Name
			if isUpper(n.Name) {
				v, s := f.ctx.Lookup(n.Name)
				f.target.Value, f.target.Scope = v, s
				if interp.AsObject(v) != nil {
					f.target.Kind = TypeTarget
				}
			}
		}

	case *ast.FieldMemberExpression:
		if !f.containsOffset(n.IdentifierToken) {
			f.visitChildren(n)
			return
		}
		base := interp.AsObject(f.ctx.Evaluate(n.Base))
		if base != nil {
			f.target.Scope = base
		}
		f.target.Name = n.Name
		if isUpper(n.Name) && base != nil {
			v, _ := base.LookupMember(n.Name, f.ctx)
			f.target.Value = v
			f.target.Kind = TypeTarget
		}

	case *ast.UiScriptBinding:
		if !f.checkBindingName(n.QualifiedID) {
			f.visitChildren(n)
		}

	case *ast.UiArrayBinding:
		if !f.checkBindingName(n.QualifiedID) {
			f.visitChildren(n)
		}

	case *ast.UiObjectBinding:
		if !f.checkTypeName(n.QualifiedTypeNameID) && !f.checkBindingName(n.QualifiedID) {
			f.withObject(n, n.Initializer)
		}

	case *ast.UiObjectDefinition:
		if !f.checkTypeName(n.QualifiedTypeNameID) {
			f.withObject(n, n.Initializer)
		}

	case *ast.UiPublicMember:
		switch {
		case f.containsOffset(n.TypeToken):
			f.target = Target{
				Name:  n.MemberType,
				Kind:  TypeTarget,
				Value: f.ctx.LookupType(f.doc, []string{n.MemberType}),
			}
		case f.containsOffset(n.IdentifierToken):
			f.target.Scope = f.doc.Bind().FindQmlObject(f.objectNode)
			f.target.Name = n.Name
		default:
			f.visitChildren(n)
		}

	case *ast.FunctionExpression:
		if f.containsOffset(n.IdentifierToken) {
			f.target.Name = n.Name
			return
		}
		f.visitChildren(n)

	case *ast.VariableDeclaration:
		if f.containsOffset(n.IdentifierToken) {
			f.target.Name = n.Name
			return
		}
		f.visitChildren(n)

	default:
		f.visitChildren(n)
	}
}

func (f *FindTargetExpression) withObject(node ast.Node, init *ast.UiObjectInitializer) {
	prev := f.objectNode
	f.objectNode = node
	if init != nil {
		f.visit(init)
	}
	f.objectNode = prev
}

func (f *FindTargetExpression) checkBindingName(id ast.QualifiedID) bool {
	name, ok := id.Single()
	if !ok || !f.containsOffset(id[0].Token) {
		return false
	}
	f.target.Scope = f.doc.Bind().FindQmlObject(f.objectNode)
	f.target.Name = name
	return true
}

func (f *FindTargetExpression) checkTypeName(id ast.QualifiedID) bool {
	names := id.Names()
	for i, part := range id {
		if !f.containsOffset(part.Token) {
			continue
		}
		f.target = Target{
			Name:  part.Name,
			Kind:  TypeTarget,
			Value: f.ctx.LookupType(f.doc, names[:i+1]),
		}
		return true
	}
	return false
}

func isUpper(name string) bool {
	r, _ := utf8.DecodeRuneInString(name)
	return unicode.IsUpper(r)
}
