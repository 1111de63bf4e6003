// Package document holds parsed documents and the immutable snapshots that
// group them.
package document

import (
	"bytes"
	"fmt"
	"path/filepath"
	"strings"

	"qmllink/internal/engine/qml/ast"
	"qmllink/internal/engine/qml/bind"
	"qmllink/internal/engine/qml/interp"
	"qmllink/internal/engine/qml/parser"
)

// ComponentVersion is re-exported for qmldir and import handling.
type ComponentVersion = interp.ComponentVersion

type Language int

const (
	QML Language = iota
	JavaScript
)

func (l Language) String() string {
	if l == JavaScript {
		return "javascript"
	}
	return "qml"
}

// LanguageForPath classifies a file by extension.
func LanguageForPath(path string) (Language, bool) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".qml":
		return QML, true
	case ".js":
		return JavaScript, true
	}
	return QML, false
}

type Severity int

const (
	Warning Severity = iota
	Error
)

func (s Severity) String() string {
	if s == Error {
		return "error"
	}
	return "warning"
}

// Diagnostic is one message attached to a document location.
type Diagnostic struct {
	Path     string
	Loc      ast.SourceLocation
	Severity Severity
	Message  string
}

func (d Diagnostic) String() string {
	return fmt.Sprintf("%s:%d:%d: %s: %s", d.Path, d.Loc.StartLine, d.Loc.StartColumn, d.Severity, d.Message)
}

// Document is an immutable parsed file with its bind result.
type Document struct {
	path          string
	source        []byte
	language      Language
	root          ast.Node
	bind          *bind.Bind
	diagnostics   []Diagnostic
	lines         *ast.LineIndex
	revision      int
	componentName string
}

// Parse parses and binds source. The language is taken from the path's
// extension; anything but .js is parsed as QML.
func Parse(p *parser.Parser, path string, source []byte, revision int) *Document {
	path = filepath.Clean(path)
	lang, _ := LanguageForPath(path)

	var res *parser.Result
	if lang == JavaScript {
		res = p.ParseJavaScript(source)
	} else {
		res = p.ParseQML(source)
	}

	doc := &Document{
		path:     path,
		source:   source,
		language: lang,
		root:     res.Root,
		lines:    res.Lines,
		revision: revision,
	}
	if lang == QML {
		base := filepath.Base(path)
		doc.componentName = strings.TrimSuffix(base, filepath.Ext(base))
	}
	for _, e := range res.Errors {
		doc.diagnostics = append(doc.diagnostics, Diagnostic{
			Path:     path,
			Loc:      e.Loc,
			Severity: Error,
			Message:  e.Message,
		})
	}
	doc.bind = bind.New(path, doc.componentName, res.Root)
	return doc
}

func (d *Document) Path() string              { return d.path }
func (d *Document) Dir() string               { return filepath.Dir(d.path) }
func (d *Document) Source() []byte            { return d.source }
func (d *Document) Language() Language        { return d.language }
func (d *Document) Root() ast.Node            { return d.root }
func (d *Document) Bind() *bind.Bind          { return d.bind }
func (d *Document) Revision() int             { return d.revision }
func (d *Document) ComponentName() string     { return d.componentName }
func (d *Document) Lines() *ast.LineIndex     { return d.lines }
func (d *Document) Diagnostics() []Diagnostic { return append([]Diagnostic(nil), d.diagnostics...) }
func (d *Document) HasErrors() bool           { return len(d.diagnostics) > 0 }

// QmlProgram returns the QML root, or nil for JavaScript documents.
func (d *Document) QmlProgram() *ast.UiProgram {
	p, _ := d.root.(*ast.UiProgram)
	return p
}

// JSProgram returns the JavaScript root, or nil for QML documents.
func (d *Document) JSProgram() *ast.Program {
	p, _ := d.root.(*ast.Program)
	return p
}

// LineText returns the text of a 1-based line without its terminator.
func (d *Document) LineText(line int) string {
	if line < 1 {
		return ""
	}
	rest := d.source
	for i := 1; i < line; i++ {
		idx := bytes.IndexByte(rest, '\n')
		if idx < 0 {
			return ""
		}
		rest = rest[idx+1:]
	}
	if idx := bytes.IndexByte(rest, '\n'); idx >= 0 {
		rest = rest[:idx]
	}
	return strings.TrimSuffix(string(rest), "\r")
}

// Location builds a SourceLocation for a byte span in this document.
func (d *Document) Location(offset, length int) ast.SourceLocation {
	return d.lines.Location(offset, length)
}
