package scope

import (
	"qmllink/internal/engine/qml/document"
	"qmllink/internal/engine/qml/interp"
)

// ComponentChain links a QML document to the documents that instantiate
// it. The chain is acyclic: the builder never adds a document twice.
type ComponentChain struct {
	Document                *document.Document
	InstantiatingComponents []*ComponentChain
}

// Collect appends the scopes of every instantiating component, parents
// first, followed by this document's root object and id environment.
func (c *ComponentChain) Collect(out []*interp.ObjectValue) []*interp.ObjectValue {
	if c == nil {
		return out
	}
	for _, parent := range c.InstantiatingComponents {
		out = parent.Collect(out)
	}
	if c.Document == nil {
		return out
	}
	b := c.Document.Bind()
	if root := b.RootObject(); root != nil {
		out = append(out, root)
	}
	if ids := b.IDEnvironment(); ids != nil {
		out = append(out, ids)
	}
	return out
}

// ScopeChain is the ordered set of scopes visible at one program point.
// Callers edit the exported fields and then call Update to recompute the
// flat lookup order.
type ScopeChain struct {
	GlobalScope       *interp.ObjectValue
	QmlComponentScope *ComponentChain
	QmlScopeObjects   []*interp.ObjectValue
	QmlTypes          *interp.ObjectValue
	JSImports         *interp.ObjectValue
	JSScopes          []*interp.ObjectValue

	all []*interp.ObjectValue
}

// Update rebuilds the flattened scope list, least specific first.
func (c *ScopeChain) Update() {
	all := make([]*interp.ObjectValue, 0, len(c.all)+1)
	if c.GlobalScope != nil {
		all = append(all, c.GlobalScope)
	}

	// The top-level scope of a JavaScript file does not see the components
	// that import it.
	if len(c.JSScopes) != 1 || len(c.QmlScopeObjects) != 0 {
		if c.QmlComponentScope != nil {
			for _, parent := range c.QmlComponentScope.InstantiatingComponents {
				all = parent.Collect(all)
			}
		}
	}

	var root, ids *interp.ObjectValue
	if c.QmlComponentScope != nil && c.QmlComponentScope.Document != nil {
		b := c.QmlComponentScope.Document.Bind()
		root = b.RootObject()
		ids = b.IDEnvironment()
	}
	if root != nil && !containsObject(c.QmlScopeObjects, root) {
		all = append(all, root)
	}
	all = append(all, c.QmlScopeObjects...)
	if ids != nil {
		all = append(all, ids)
	}
	if c.QmlTypes != nil {
		all = append(all, c.QmlTypes)
	}
	if c.JSImports != nil {
		all = append(all, c.JSImports)
	}
	all = append(all, c.JSScopes...)
	c.all = all
}

// All returns the flattened scopes computed by the last Update.
func (c *ScopeChain) All() []*interp.ObjectValue {
	out := make([]*interp.ObjectValue, len(c.all))
	copy(out, c.all)
	return out
}

// clone copies the chain so that edits to either copy stay independent.
// Component chains are immutable once built and are shared.
func (c *ScopeChain) clone() ScopeChain {
	return ScopeChain{
		GlobalScope:       c.GlobalScope,
		QmlComponentScope: c.QmlComponentScope,
		QmlScopeObjects:   append([]*interp.ObjectValue(nil), c.QmlScopeObjects...),
		QmlTypes:          c.QmlTypes,
		JSImports:         c.JSImports,
		JSScopes:          append([]*interp.ObjectValue(nil), c.JSScopes...),
		all:               append([]*interp.ObjectValue(nil), c.all...),
	}
}

func containsObject(list []*interp.ObjectValue, o *interp.ObjectValue) bool {
	for _, x := range list {
		if x == o {
			return true
		}
	}
	return false
}
