package scope

import (
	"qmllink/internal/engine/qml/ast"
	"qmllink/internal/engine/qml/document"
)

// PathAt returns the scope-relevant nodes enclosing offset, outermost
// first: object definitions and bindings, script bindings, public
// members and functions. Pushing the result onto a Builder yields the
// scope chain at offset.
func PathAt(doc *document.Document, offset int) []ast.Node {
	if doc == nil || doc.Root() == nil {
		return nil
	}
	var path []ast.Node
	ast.Inspect(doc.Root(), func(n ast.Node) bool {
		if !spanContains(n, offset) {
			return false
		}
		switch n.(type) {
		case *ast.UiObjectDefinition, *ast.UiObjectBinding, *ast.UiScriptBinding,
			*ast.UiPublicMember, *ast.FunctionExpression:
			path = append(path, n)
		}
		return true
	})
	return path
}

// spanContains reports whether offset lies between the first and last
// token of n, both ends inclusive.
func spanContains(n ast.Node, offset int) bool {
	first, last := n.FirstSourceLocation(), n.LastSourceLocation()
	if _, ok := n.(*ast.UiProgram); ok {
		return true
	}
	if _, ok := n.(*ast.Program); ok {
		return true
	}
	return offset >= first.Begin() && offset <= last.End()
}
