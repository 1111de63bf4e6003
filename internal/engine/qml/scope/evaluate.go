package scope

import (
	"qmllink/internal/engine/qml/ast"
	"qmllink/internal/engine/qml/interp"
)

// Evaluate resolves the value of an expression in the current scope
// chain. Names that do not resolve yield nil; expressions the evaluator
// does not model yield interp.Undefined.
func (c *Context) Evaluate(n ast.Node) interp.Value {
	switch n := n.(type) {
	case nil:
		return nil
	case *ast.ExpressionStatement:
		return c.Evaluate(n.Expression)
	case *ast.IdentifierExpression:
		v, _ := c.Lookup(n.Name)
		return v
	case *ast.FieldMemberExpression:
		base := c.AsObject(c.Evaluate(n.Base))
		if base == nil {
			return nil
		}
		v, _ := base.LookupMember(n.Name, c)
		return v
	case *ast.CallExpression:
		if fn := interp.AsObject(c.Evaluate(n.Base)); fn != nil && fn.Kind() == interp.KindFunction {
			return fn.ReturnValue()
		}
		return interp.Undefined
	case *ast.ThisExpression:
		if objs := c.chain.QmlScopeObjects; len(objs) > 0 {
			return objs[0]
		}
		return interp.Undefined
	case *ast.StringLiteral:
		return interp.String
	case *ast.NumericLiteral:
		return interp.Number
	case *ast.BooleanLiteral:
		return interp.Boolean
	case *ast.NullExpression:
		return interp.Null
	}
	return interp.Undefined
}
