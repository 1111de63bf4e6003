package parser

import (
	"fmt"

	"qmllink/internal/engine/qml/ast"
)

type qmlParser struct {
	src    []byte
	toks   []token
	pos    int
	lines  *ast.LineIndex
	parser *Parser
	errs   []Error
	last   token
}

func (p *qmlParser) peek(k int) token {
	if p.pos+k < len(p.toks) {
		return p.toks[p.pos+k]
	}
	return p.toks[len(p.toks)-1]
}

func (p *qmlParser) next() token {
	t := p.peek(0)
	if t.kind != tokEOF {
		p.pos++
		p.last = t
	}
	return t
}

func (p *qmlParser) eof() bool { return p.peek(0).kind == tokEOF }

func (p *qmlParser) loc(t token) ast.SourceLocation {
	return p.lines.Span(t.begin, t.end)
}

func (p *qmlParser) errorAt(t token, format string, args ...any) {
	p.errs = append(p.errs, Error{Loc: p.loc(t), Message: fmt.Sprintf(format, args...)})
}

func (p *qmlParser) expect(text string) (token, bool) {
	t := p.peek(0)
	if t.is(text) {
		return p.next(), true
	}
	p.errorAt(t, "expected %q", text)
	return t, false
}

func (p *qmlParser) parseProgram() *ast.UiProgram {
	program := &ast.UiProgram{}
	for p.peek(0).isIdent("import") && !p.peek(1).is(":") {
		if imp := p.parseImport(); imp != nil {
			program.Imports = append(program.Imports, imp)
		}
	}
	for !p.eof() {
		before := p.pos
		if m := p.parseMember(); m != nil {
			program.Members = append(program.Members, m)
		}
		if p.pos == before {
			p.errorAt(p.peek(0), "unexpected %q", p.peek(0).text)
			p.next()
		}
	}
	return program
}

func (p *qmlParser) parseImport() *ast.UiImport {
	importTok := p.next()
	imp := &ast.UiImport{ImportToken: p.loc(importTok)}

	switch t := p.peek(0); t.kind {
	case tokString:
		p.next()
		imp.FileName = unquote(t.text)
		imp.FileNameToken = p.loc(t)
	case tokIdentifier:
		imp.ImportURI = p.parseQualifiedID()
	default:
		p.errorAt(t, "expected import path or module name")
		p.recover()
		imp.EndToken = p.loc(p.last)
		return imp
	}

	if t := p.peek(0); t.kind == tokNumber && !t.newlineBefore {
		p.next()
		imp.Version = t.text
		imp.VersionToken = p.loc(t)
	}
	if t := p.peek(0); t.isIdent("as") && !t.newlineBefore {
		p.next()
		id := p.peek(0)
		if id.kind != tokIdentifier {
			p.errorAt(id, "expected import qualifier")
		} else {
			p.next()
			imp.ImportID = id.text
			imp.ImportIDToken = p.loc(id)
		}
	}
	if p.peek(0).is(";") {
		p.next()
	}
	imp.EndToken = p.loc(p.last)
	return imp
}

func (p *qmlParser) parseQualifiedID() ast.QualifiedID {
	var id ast.QualifiedID
	t := p.peek(0)
	if t.kind != tokIdentifier {
		p.errorAt(t, "expected identifier")
		return id
	}
	p.next()
	id = append(id, ast.IDPart{Name: t.text, Token: p.loc(t)})
	for p.peek(0).is(".") && p.peek(1).kind == tokIdentifier {
		p.next()
		part := p.next()
		id = append(id, ast.IDPart{Name: part.text, Token: p.loc(part)})
	}
	return id
}

// objectStartsAt reports whether the tokens from pos k form a qualified
// type name followed by an initializer brace.
func (p *qmlParser) objectStartsAt(k int) bool {
	if p.peek(k).kind != tokIdentifier {
		return false
	}
	k++
	for p.peek(k).is(".") && p.peek(k+1).kind == tokIdentifier {
		k += 2
	}
	return p.peek(k).is("{")
}

func (p *qmlParser) parseMember() ast.UiObjectMember {
	t := p.peek(0)
	if t.kind != tokIdentifier {
		p.errorAt(t, "expected member")
		p.recover()
		return nil
	}

	if !p.peek(1).is(":") && !p.peek(1).is(".") && !p.peek(1).is("{") {
		switch t.text {
		case "property", "default", "readonly":
			if p.peek(1).kind == tokIdentifier {
				return p.parsePublicProperty()
			}
		case "signal":
			if p.peek(1).kind == tokIdentifier {
				return p.parseSignal()
			}
		case "function":
			return p.parseFunctionElement()
		case "var", "let", "const":
			if p.peek(1).kind == tokIdentifier {
				return p.parseVariableElement()
			}
		}
	}

	id := p.parseQualifiedID()
	switch next := p.peek(0); {
	case next.is("{"):
		return &ast.UiObjectDefinition{QualifiedTypeNameID: id, Initializer: p.parseInitializer()}
	case next.isIdent("on"):
		p.next()
		target := p.parseQualifiedID()
		return &ast.UiObjectBinding{
			QualifiedID:         target,
			QualifiedTypeNameID: id,
			HasOnToken:          true,
			Initializer:         p.parseInitializer(),
		}
	case next.is(":"):
		p.next()
		return p.parseBindingValue(id)
	default:
		p.errorAt(next, "expected ':' or '{' after %q", id.String())
		p.recover()
		return nil
	}
}

func (p *qmlParser) parseBindingValue(id ast.QualifiedID) ast.UiObjectMember {
	switch {
	case p.objectStartsAt(0):
		typeName := p.parseQualifiedID()
		return &ast.UiObjectBinding{
			QualifiedID:         id,
			QualifiedTypeNameID: typeName,
			Initializer:         p.parseInitializer(),
		}
	case p.peek(0).is("[") && p.objectStartsAt(1):
		return p.parseArrayBinding(id)
	}
	return &ast.UiScriptBinding{QualifiedID: id, Statement: p.parseScriptStatement()}
}

func (p *qmlParser) parseArrayBinding(id ast.QualifiedID) *ast.UiArrayBinding {
	p.next() // [
	binding := &ast.UiArrayBinding{QualifiedID: id}
	for !p.eof() && !p.peek(0).is("]") {
		if !p.objectStartsAt(0) {
			p.errorAt(p.peek(0), "expected object definition in list")
			for !p.eof() && !p.peek(0).is("]") && !p.peek(0).is("}") {
				p.next()
			}
			break
		}
		typeName := p.parseQualifiedID()
		binding.Members = append(binding.Members, &ast.UiObjectDefinition{
			QualifiedTypeNameID: typeName,
			Initializer:         p.parseInitializer(),
		})
		if p.peek(0).is(",") {
			p.next()
		}
	}
	rb, _ := p.expect("]")
	binding.RBracketToken = p.loc(rb)
	return binding
}

func (p *qmlParser) parseInitializer() *ast.UiObjectInitializer {
	lb, _ := p.expect("{")
	init := &ast.UiObjectInitializer{LBraceToken: p.loc(lb)}
	for !p.eof() && !p.peek(0).is("}") {
		before := p.pos
		if m := p.parseMember(); m != nil {
			init.Members = append(init.Members, m)
		}
		if p.pos == before {
			p.next()
		}
	}
	rb, ok := p.expect("}")
	if ok {
		init.RBraceToken = p.loc(rb)
	} else {
		init.RBraceToken = p.lines.Location(len(p.src), 0)
	}
	return init
}

func (p *qmlParser) parsePublicProperty() *ast.UiPublicMember {
	first := p.peek(0)
	member := &ast.UiPublicMember{Type: ast.PublicProperty, PropertyToken: p.loc(first)}
	for {
		t := p.peek(0)
		if t.isIdent("default") {
			member.IsDefault = true
		} else if t.isIdent("readonly") {
			member.IsReadonly = true
		} else {
			break
		}
		p.next()
	}
	if _, ok := p.expectIdent("property"); !ok {
		p.recover()
		return member
	}

	typeTok := p.peek(0)
	member.TypeToken = p.loc(typeTok)
	if typeTok.isIdent("list") && p.peek(1).is("<") {
		p.next()
		p.next()
		member.TypeModifier = "list"
		member.MemberType = p.parseQualifiedID().String()
		p.expect(">")
	} else {
		member.MemberType = p.parseQualifiedID().String()
	}

	name := p.peek(0)
	if name.kind != tokIdentifier {
		p.errorAt(name, "expected property name")
		p.recover()
		member.EndToken = p.loc(p.last)
		return member
	}
	p.next()
	member.Name = name.text
	member.IdentifierToken = p.loc(name)

	if p.peek(0).is(":") {
		p.next()
		if p.objectStartsAt(0) {
			typeName := p.parseQualifiedID()
			member.Binding = &ast.UiObjectDefinition{
				QualifiedTypeNameID: typeName,
				Initializer:         p.parseInitializer(),
			}
		} else {
			member.Statement = p.parseScriptStatement()
		}
	} else if p.peek(0).is(";") {
		p.next()
	}
	member.EndToken = p.loc(p.last)
	return member
}

func (p *qmlParser) parseSignal() *ast.UiPublicMember {
	signalTok := p.next()
	member := &ast.UiPublicMember{Type: ast.PublicSignal, PropertyToken: p.loc(signalTok)}
	name := p.next()
	member.Name = name.text
	member.IdentifierToken = p.loc(name)

	if p.peek(0).is("(") && !p.peek(0).newlineBefore {
		p.next()
		for !p.eof() && !p.peek(0).is(")") {
			typeTok := p.peek(0)
			if typeTok.kind != tokIdentifier {
				p.errorAt(typeTok, "expected parameter type")
				break
			}
			typeName := p.parseQualifiedID().String()
			param := ast.UiParameter{Type: typeName}
			if nameTok := p.peek(0); nameTok.kind == tokIdentifier {
				p.next()
				param.Name = nameTok.text
				param.IdentifierToken = p.loc(nameTok)
			}
			member.Parameters = append(member.Parameters, param)
			if !p.peek(0).is(",") {
				break
			}
			p.next()
		}
		p.expect(")")
	}
	if p.peek(0).is(";") {
		p.next()
	}
	member.EndToken = p.loc(p.last)
	return member
}

func (p *qmlParser) parseFunctionElement() ast.UiObjectMember {
	begin := p.next().begin
	if p.peek(0).kind == tokIdentifier {
		p.next()
	}
	if !p.peek(0).is("(") {
		p.errorAt(p.peek(0), "expected '(' after function name")
		p.recover()
		return nil
	}
	p.skipBalanced()
	if !p.peek(0).is("{") {
		p.errorAt(p.peek(0), "expected function body")
		p.recover()
		return nil
	}
	end := p.skipBalanced()
	return &ast.UiSourceElement{SourceElement: p.firstElement(begin, end)}
}

func (p *qmlParser) parseVariableElement() ast.UiObjectMember {
	begin := p.next().begin
	end := p.skipExpression()
	return &ast.UiSourceElement{SourceElement: p.firstElement(begin, end)}
}

func (p *qmlParser) expectIdent(text string) (token, bool) {
	t := p.peek(0)
	if t.isIdent(text) {
		return p.next(), true
	}
	p.errorAt(t, "expected %q", text)
	return t, false
}

// parseScriptStatement consumes the script on the right of a binding colon
// and hands its source range to the JavaScript parser.
func (p *qmlParser) parseScriptStatement() ast.Node {
	start := p.peek(0)
	if start.kind == tokEOF || start.is("}") {
		p.errorAt(start, "expected expression")
		return nil
	}
	var end int
	if start.is("{") {
		end = p.skipBalanced()
		if p.peek(0).is(";") && !p.peek(0).newlineBefore {
			p.next()
		}
	} else {
		end = p.skipExpression()
	}
	return p.firstElement(start.begin, end)
}

func (p *qmlParser) firstElement(begin, end int) ast.Node {
	program, errs := p.parser.parseScript(p.src, p.lines, begin, end)
	p.errs = append(p.errs, errs...)
	switch len(program.Elements) {
	case 0:
		return nil
	case 1:
		return program.Elements[0]
	}
	return &ast.Generic{Type: "statement_list", Children: program.Elements, Loc: program.Loc}
}

// skipBalanced consumes an opening bracket and everything up to its match,
// returning the byte offset after the closing bracket.
func (p *qmlParser) skipBalanced() int {
	open := p.next()
	depth := 1
	for !p.eof() {
		t := p.next()
		switch {
		case isOpen(t):
			depth++
		case isClose(t):
			depth--
			if depth == 0 {
				return t.end
			}
		}
	}
	p.errorAt(open, "unbalanced %q", open.text)
	return len(p.src)
}

// skipExpression consumes a script expression. It ends at a top-level ';'
// (consumed), a closing bracket of the enclosing construct, or a line break
// that cannot continue the expression.
func (p *qmlParser) skipExpression() int {
	depth := 0
	end := p.peek(0).begin
	first := true
	for !p.eof() {
		t := p.peek(0)
		if depth == 0 {
			if t.is(";") {
				p.next()
				return end
			}
			if isClose(t) {
				return end
			}
			if !first && t.newlineBefore && t.kind != tokPunct && !continuesExpression(p.last) {
				return end
			}
		}
		switch {
		case isOpen(t):
			depth++
		case isClose(t):
			depth--
		}
		p.next()
		end = t.end
		first = false
	}
	return end
}

func isOpen(t token) bool {
	return t.is("{") || t.is("(") || t.is("[")
}

func isClose(t token) bool {
	return t.is("}") || t.is(")") || t.is("]")
}

var continuingKeywords = map[string]bool{
	"new": true, "typeof": true, "instanceof": true, "in": true,
	"delete": true, "void": true, "return": true,
}

func continuesExpression(prev token) bool {
	switch prev.kind {
	case tokPunct:
		switch prev.text {
		case ")", "]", "}", "++", "--":
			return false
		}
		return true
	case tokIdentifier:
		return continuingKeywords[prev.text]
	}
	return false
}

// recover skips to the next token that can start a member: the first token
// on a new line, or the closing brace of the enclosing object.
func (p *qmlParser) recover() {
	depth := 0
	if t := p.peek(0); !t.is("}") {
		if isOpen(t) {
			depth++
		}
		p.next()
	}
	for !p.eof() {
		t := p.peek(0)
		if depth == 0 && (t.is("}") || (t.newlineBefore && t.kind == tokIdentifier)) {
			return
		}
		switch {
		case isOpen(t):
			depth++
		case isClose(t) && depth > 0:
			depth--
		}
		p.next()
	}
}
