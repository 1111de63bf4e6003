package parser

import (
	"fmt"
	"strconv"
	"strings"

	"qmllink/internal/engine/qml/ast"

	sitter "github.com/tree-sitter/go-tree-sitter"
)

// scriptConverter turns a tree-sitter JavaScript tree into ast nodes. The
// parsed text is a slice of a larger document starting at base, so every
// location is shifted back into document coordinates.
type scriptConverter struct {
	src   []byte
	base  int
	lines *ast.LineIndex
	errs  []Error
}

// parseScript parses doc[begin:end] as a JavaScript program.
func (p *Parser) parseScript(doc []byte, lines *ast.LineIndex, begin, end int) (*ast.Program, []Error) {
	if begin < 0 {
		begin = 0
	}
	if end > len(doc) {
		end = len(doc)
	}
	if end < begin {
		end = begin
	}
	snippet := doc[begin:end]

	tree := p.pool.Parse(snippet)
	if tree == nil {
		return &ast.Program{Loc: lines.Span(begin, end)}, []Error{{
			Loc:     lines.Span(begin, end),
			Message: "script parse failed",
		}}
	}
	defer tree.Close()

	c := &scriptConverter{src: snippet, base: begin, lines: lines}
	root := tree.RootNode()
	if root.HasError() {
		c.collectErrors(root)
	}
	prog, _ := c.convert(root).(*ast.Program)
	if prog == nil {
		prog = &ast.Program{Loc: lines.Span(begin, end)}
	}
	return prog, c.errs
}

func (c *scriptConverter) span(n *sitter.Node) ast.SourceLocation {
	return c.lines.Span(c.base+int(n.StartByte()), c.base+int(n.EndByte()))
}

func (c *scriptConverter) text(n *sitter.Node) string {
	return string(c.src[n.StartByte():n.EndByte()])
}

func (c *scriptConverter) collectErrors(n *sitter.Node) {
	switch {
	case n.IsMissing():
		c.errs = append(c.errs, Error{Loc: c.span(n), Message: fmt.Sprintf("missing %s", n.Kind())})
		return
	case n.IsError():
		c.errs = append(c.errs, Error{Loc: c.span(n), Message: "unexpected token"})
		return
	}
	for i := uint(0); i < n.ChildCount(); i++ {
		if child := n.Child(i); child != nil && (child.HasError() || child.IsMissing()) {
			c.collectErrors(child)
		}
	}
}

func (c *scriptConverter) namedChildren(n *sitter.Node) []ast.Node {
	var out []ast.Node
	for i := uint(0); i < n.NamedChildCount(); i++ {
		child := n.NamedChild(i)
		if child == nil {
			continue
		}
		if conv := c.convert(child); conv != nil {
			out = append(out, conv)
		}
	}
	return out
}

func (c *scriptConverter) convert(n *sitter.Node) ast.Node {
	if n == nil {
		return nil
	}
	switch n.Kind() {
	case "comment", "hash_bang_line":
		return nil

	case "program":
		return &ast.Program{Elements: c.namedChildren(n), Loc: c.span(n)}

	case "statement_block", "class_body":
		block := &ast.Block{Statements: c.namedChildren(n)}
		block.LBraceToken = c.lines.Location(c.base+int(n.StartByte()), 1)
		block.RBraceToken = c.lines.Location(c.base+int(n.EndByte())-1, 1)
		return block

	case "expression_statement":
		var expr ast.Node
		if children := c.namedChildren(n); len(children) == 1 {
			expr = children[0]
		} else if len(children) > 1 {
			expr = &ast.Generic{Type: "sequence_expression", Children: children, Loc: c.span(n)}
		}
		return &ast.ExpressionStatement{Expression: expr, Loc: c.span(n)}

	case "parenthesized_expression":
		children := c.namedChildren(n)
		if len(children) == 1 {
			return children[0]
		}
		return &ast.Generic{Type: n.Kind(), Children: children, Loc: c.span(n)}

	case "identifier", "shorthand_property_identifier", "undefined":
		return &ast.IdentifierExpression{Name: c.text(n), IdentifierToken: c.span(n)}

	case "this":
		return &ast.ThisExpression{Loc: c.span(n)}

	case "member_expression":
		object := n.ChildByFieldName("object")
		property := n.ChildByFieldName("property")
		if property == nil || property.Kind() != "property_identifier" {
			return &ast.Generic{Type: n.Kind(), Children: c.namedChildren(n), Loc: c.span(n)}
		}
		return &ast.FieldMemberExpression{
			Base:            c.convert(object),
			Name:            c.text(property),
			IdentifierToken: c.span(property),
		}

	case "call_expression", "new_expression":
		call := &ast.CallExpression{Loc: c.span(n)}
		callee := n.ChildByFieldName("function")
		if callee == nil {
			callee = n.ChildByFieldName("constructor")
		}
		call.Base = c.convert(callee)
		if args := n.ChildByFieldName("arguments"); args != nil && args.Kind() == "arguments" {
			call.Arguments = c.namedChildren(args)
		} else if args != nil {
			// tagged template
			if conv := c.convert(args); conv != nil {
				call.Arguments = []ast.Node{conv}
			}
		}
		return call

	case "function_declaration", "generator_function_declaration":
		return c.function(n, true)

	case "function_expression", "function", "generator_function", "arrow_function":
		return c.function(n, false)

	case "variable_declaration", "lexical_declaration":
		stmt := &ast.VariableStatement{Loc: c.span(n)}
		for i := uint(0); i < n.NamedChildCount(); i++ {
			decl := n.NamedChild(i)
			if decl == nil || decl.Kind() != "variable_declarator" {
				continue
			}
			stmt.Declarations = append(stmt.Declarations, c.declarator(decl))
		}
		return stmt

	case "string":
		return &ast.StringLiteral{Value: unquote(c.text(n)), Loc: c.span(n)}

	case "number":
		return &ast.NumericLiteral{Value: parseNumber(c.text(n)), Loc: c.span(n)}

	case "true", "false":
		return &ast.BooleanLiteral{Value: n.Kind() == "true", Loc: c.span(n)}

	case "null":
		return &ast.NullExpression{Loc: c.span(n)}
	}

	return &ast.Generic{Type: n.Kind(), Children: c.namedChildren(n), Loc: c.span(n)}
}

func (c *scriptConverter) function(n *sitter.Node, declaration bool) *ast.FunctionExpression {
	fn := &ast.FunctionExpression{IsDeclaration: declaration, Loc: c.span(n)}
	if name := n.ChildByFieldName("name"); name != nil {
		fn.Name = c.text(name)
		fn.IdentifierToken = c.span(name)
	}
	if single := n.ChildByFieldName("parameter"); single != nil {
		fn.Formals = c.formals(single)
	}
	if params := n.ChildByFieldName("parameters"); params != nil {
		fn.Formals = c.formals(params)
	}
	if body := n.ChildByFieldName("body"); body != nil {
		fn.Body = c.convert(body)
	}
	return fn
}

func (c *scriptConverter) formals(n *sitter.Node) []ast.FormalParameter {
	if n.Kind() == "identifier" {
		return []ast.FormalParameter{{Name: c.text(n), IdentifierToken: c.span(n)}}
	}
	var out []ast.FormalParameter
	for i := uint(0); i < n.NamedChildCount(); i++ {
		param := n.NamedChild(i)
		if param == nil {
			continue
		}
		switch param.Kind() {
		case "assignment_pattern":
			param = param.ChildByFieldName("left")
		case "rest_pattern":
			param = param.NamedChild(0)
		}
		if param != nil && param.Kind() == "identifier" {
			out = append(out, ast.FormalParameter{Name: c.text(param), IdentifierToken: c.span(param)})
		}
	}
	return out
}

func (c *scriptConverter) declarator(n *sitter.Node) *ast.VariableDeclaration {
	decl := &ast.VariableDeclaration{Loc: c.span(n)}
	if name := n.ChildByFieldName("name"); name != nil && name.Kind() == "identifier" {
		decl.Name = c.text(name)
		decl.IdentifierToken = c.span(name)
	}
	if value := n.ChildByFieldName("value"); value != nil {
		decl.Expression = c.convert(value)
	}
	return decl
}

func parseNumber(text string) float64 {
	text = strings.ReplaceAll(text, "_", "")
	lower := strings.ToLower(text)
	if strings.HasPrefix(lower, "0x") || strings.HasPrefix(lower, "0o") || strings.HasPrefix(lower, "0b") {
		v, err := strconv.ParseInt(lower, 0, 64)
		if err != nil {
			return 0
		}
		return float64(v)
	}
	v, err := strconv.ParseFloat(text, 64)
	if err != nil {
		return 0
	}
	return v
}
