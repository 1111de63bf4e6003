package ast

// Children returns the direct child nodes of n in source order. Nil
// children are omitted.
func Children(n Node) []Node {
	var out []Node
	add := func(c Node) {
		if c != nil && !isNilNode(c) {
			out = append(out, c)
		}
	}
	switch n := n.(type) {
	case *UiProgram:
		for _, imp := range n.Imports {
			add(imp)
		}
		for _, m := range n.Members {
			add(m)
		}
	case *UiObjectDefinition:
		if n.Initializer != nil {
			add(n.Initializer)
		}
	case *UiObjectBinding:
		if n.Initializer != nil {
			add(n.Initializer)
		}
	case *UiObjectInitializer:
		for _, m := range n.Members {
			add(m)
		}
	case *UiScriptBinding:
		add(n.Statement)
	case *UiArrayBinding:
		for _, m := range n.Members {
			add(m)
		}
	case *UiPublicMember:
		add(n.Statement)
		if n.Binding != nil {
			add(n.Binding)
		}
	case *UiSourceElement:
		add(n.SourceElement)
	case *Program:
		for _, e := range n.Elements {
			add(e)
		}
	case *Block:
		for _, s := range n.Statements {
			add(s)
		}
	case *ExpressionStatement:
		add(n.Expression)
	case *VariableStatement:
		for _, d := range n.Declarations {
			add(d)
		}
	case *VariableDeclaration:
		add(n.Expression)
	case *FunctionExpression:
		add(n.Body)
	case *FieldMemberExpression:
		add(n.Base)
	case *CallExpression:
		add(n.Base)
		for _, a := range n.Arguments {
			add(a)
		}
	case *Generic:
		for _, c := range n.Children {
			add(c)
		}
	}
	return out
}

func isNilNode(n Node) bool {
	switch v := n.(type) {
	case *UiObjectDefinition:
		return v == nil
	case *UiObjectInitializer:
		return v == nil
	case *Block:
		return v == nil
	case *FunctionExpression:
		return v == nil
	case *VariableDeclaration:
		return v == nil
	case *UiImport:
		return v == nil
	}
	return false
}

// Visitor receives pre-order Visit and post-order EndVisit calls. Returning
// false from Visit skips the node's children; EndVisit is still called.
type Visitor interface {
	Visit(n Node) bool
	EndVisit(n Node)
}

// Walk traverses the tree rooted at n depth first.
func Walk(n Node, v Visitor) {
	if n == nil || isNilNode(n) {
		return
	}
	if v.Visit(n) {
		for _, c := range Children(n) {
			Walk(c, v)
		}
	}
	v.EndVisit(n)
}

// Inspect calls fn for every node in pre-order; returning false prunes.
func Inspect(n Node, fn func(Node) bool) {
	Walk(n, inspector(fn))
}

type inspector func(Node) bool

func (f inspector) Visit(n Node) bool { return f(n) }
func (f inspector) EndVisit(Node)     {}
