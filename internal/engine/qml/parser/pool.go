package parser

import (
	"sync"
	"sync/atomic"

	sitter "github.com/tree-sitter/go-tree-sitter"
	tree_sitter_javascript "github.com/tree-sitter/tree-sitter-javascript/bindings/go"
)

var (
	jsLanguageOnce sync.Once
	jsLanguage     *sitter.Language
)

// JavaScriptLanguage returns the shared JavaScript grammar.
func JavaScriptLanguage() *sitter.Language {
	jsLanguageOnce.Do(func() {
		jsLanguage = sitter.NewLanguage(tree_sitter_javascript.Language())
	})
	return jsLanguage
}

// ParserPool recycles tree-sitter parsers for one grammar. Script bodies
// are parsed one binding at a time, so a single QML document can take
// dozens of parses.
//
// Safe for concurrent use.
type ParserPool struct {
	lang   *sitter.Language
	pool   sync.Pool
	active atomic.Int64
	parses atomic.Int64
}

// NewParserPool creates a pool for lang, which must outlive the pool.
func NewParserPool(lang *sitter.Language) *ParserPool {
	p := &ParserPool{lang: lang}
	p.pool.New = func() any {
		sp := sitter.NewParser()
		_ = sp.SetLanguage(lang)
		return sp
	}
	return p
}

// Get leases a parser configured for the pool's grammar.
func (p *ParserPool) Get() *sitter.Parser {
	sp := p.pool.Get().(*sitter.Parser)
	_ = sp.SetLanguage(p.lang)
	p.active.Add(1)
	return sp
}

// Put resets sp and returns it. sp must not be used afterwards.
func (p *ParserPool) Put(sp *sitter.Parser) {
	if sp == nil {
		return
	}
	p.active.Add(-1)
	sp.Reset()
	p.pool.Put(sp)
}

// Parse parses src with a leased parser. The caller closes the tree; a
// nil tree means tree-sitter gave up.
func (p *ParserPool) Parse(src []byte) *sitter.Tree {
	sp := p.Get()
	defer p.Put(sp)
	p.parses.Add(1)
	return sp.Parse(src, nil)
}

// Stats returns the parsers currently leased and the parses run so far.
func (p *ParserPool) Stats() (active, parses int64) {
	return p.active.Load(), p.parses.Load()
}
