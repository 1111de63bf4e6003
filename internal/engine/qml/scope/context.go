// Package scope builds the scope chain at a program point and resolves
// names and expressions against it.
package scope

import (
	"qmllink/internal/engine/qml/document"
	"qmllink/internal/engine/qml/interp"
)

// Context carries the engine, the snapshot, the per-document imports
// produced by link and the current scope chain. A Context is used by one
// goroutine at a time; Clone gives each worker its own chain while
// sharing the linked imports.
type Context struct {
	engine   *interp.Engine
	snapshot document.Snapshot
	imports  map[string]*Imports
	chain    ScopeChain
}

func NewContext(engine *interp.Engine, snapshot document.Snapshot) *Context {
	return &Context{
		engine:   engine,
		snapshot: snapshot,
		imports:  make(map[string]*Imports),
	}
}

// Clone copies the scope chain. The imports table is shared and must not
// be modified after linking has finished.
func (c *Context) Clone() *Context {
	return &Context{
		engine:   c.engine,
		snapshot: c.snapshot,
		imports:  c.imports,
		chain:    c.chain.clone(),
	}
}

func (c *Context) Engine() *interp.Engine      { return c.engine }
func (c *Context) Snapshot() document.Snapshot { return c.snapshot }
func (c *Context) ScopeChain() *ScopeChain     { return &c.chain }

// SetImports records the linked imports of the document at path.
func (c *Context) SetImports(path string, imps *Imports) {
	c.imports[path] = imps
}

// Imports returns the linked imports of the document at path.
func (c *Context) Imports(path string) (*Imports, bool) {
	imps, ok := c.imports[path]
	return imps, ok
}

// Lookup searches the scope chain from the most specific scope outwards.
// It returns the value and the chain scope that produced it, or nils.
func (c *Context) Lookup(name string) (interp.Value, *interp.ObjectValue) {
	all := c.chain.all
	for i := len(all) - 1; i >= 0; i-- {
		if v, _ := all[i].LookupMember(name, c); v != nil {
			return v, all[i]
		}
	}
	return nil, nil
}

// LookupType resolves a possibly qualified type name through the type
// scope of doc, following direct members only.
func (c *Context) LookupType(doc *document.Document, names []string) *interp.ObjectValue {
	if doc == nil {
		return nil
	}
	return c.lookupTypeAt(doc.Path(), names)
}

func (c *Context) lookupTypeAt(path string, names []string) *interp.ObjectValue {
	if len(names) == 0 {
		return nil
	}
	imps, ok := c.imports[path]
	if !ok || imps.TypeScope() == nil {
		// Unlinked documents still see the built-in catalogue.
		if len(names) == 1 {
			if t, ok := c.engine.MetaType(names[0]); ok {
				return t
			}
		}
		return nil
	}
	obj := imps.TypeScope()
	for _, name := range names {
		v, ok := obj.Member(name)
		if !ok {
			return nil
		}
		if obj = interp.AsObject(v); obj == nil {
			return nil
		}
	}
	return obj
}

// ResolvePrototype implements interp.PrototypeResolver.
func (c *Context) ResolvePrototype(ref interp.TypeRef) *interp.ObjectValue {
	return c.lookupTypeAt(ref.Path, ref.Names)
}

// AsObject returns v as an object, boxing primitives into their engine
// prototype.
func (c *Context) AsObject(v interp.Value) *interp.ObjectValue {
	if v == nil {
		return nil
	}
	return c.engine.PrototypeFor(v)
}
