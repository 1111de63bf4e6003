// Package parser builds ast trees from QML and JavaScript source. QML
// structure is parsed by hand; every embedded script (binding values,
// functions, JavaScript documents) goes through tree-sitter-javascript.
// Both paths recover from errors and report them instead of failing.
package parser

import (
	"bytes"

	"qmllink/internal/engine/qml/ast"
)

// Error is one syntax problem found while parsing.
type Error struct {
	Loc     ast.SourceLocation
	Message string
}

// Result is the outcome of a parse. Root is never nil: a *ast.UiProgram for
// QML input, a *ast.Program for JavaScript.
type Result struct {
	Root   ast.Node
	Errors []Error
	Lines  *ast.LineIndex
}

// Parser parses QML and JavaScript documents. It is safe for concurrent use.
type Parser struct {
	pool *ParserPool
}

// New creates a parser backed by a fresh tree-sitter parser pool.
func New() *Parser {
	return &Parser{pool: NewParserPool(JavaScriptLanguage())}
}

// ParseQML parses a .qml document.
func (p *Parser) ParseQML(src []byte) *Result {
	lines := ast.NewLineIndex(src)
	qp := &qmlParser{
		src:    src,
		toks:   lex(src),
		lines:  lines,
		parser: p,
	}
	program := qp.parseProgram()
	return &Result{Root: program, Errors: qp.errs, Lines: lines}
}

// ParseJavaScript parses a .js document. QML's `.pragma` and `.import`
// directive lines are blanked before parsing so offsets stay unchanged.
func (p *Parser) ParseJavaScript(src []byte) *Result {
	lines := ast.NewLineIndex(src)
	program, errs := p.parseScript(stripDirectives(src), lines, 0, len(src))
	return &Result{Root: program, Errors: errs, Lines: lines}
}

func stripDirectives(src []byte) []byte {
	if !bytes.Contains(src, []byte(".pragma")) && !bytes.Contains(src, []byte(".import")) {
		return src
	}
	out := append([]byte(nil), src...)
	start := 0
	for start < len(out) {
		end := bytes.IndexByte(out[start:], '\n')
		if end < 0 {
			end = len(out)
		} else {
			end += start
		}
		line := bytes.TrimSpace(out[start:end])
		if bytes.HasPrefix(line, []byte(".pragma")) || bytes.HasPrefix(line, []byte(".import")) {
			for i := start; i < end; i++ {
				out[i] = ' '
			}
		}
		start = end + 1
	}
	return out
}
