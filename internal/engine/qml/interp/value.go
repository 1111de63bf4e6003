// Package interp holds the value model used by bind, link and the scope
// builder: primitive values, arena-allocated objects with single
// inheritance, and the Engine that owns the built-in type system.
package interp

import (
	"strings"

	"qmllink/internal/engine/qml/ast"
)

// Value is any value a name can resolve to.
type Value interface {
	valueTag() string
}

type (
	UndefinedValue struct{}
	NullValue      struct{}
	NumberValue    struct{}
	BooleanValue   struct{}
	StringValue    struct{}
)

func (*UndefinedValue) valueTag() string { return "undefined" }
func (*NullValue) valueTag() string      { return "null" }
func (*NumberValue) valueTag() string    { return "number" }
func (*BooleanValue) valueTag() string   { return "boolean" }
func (*StringValue) valueTag() string    { return "string" }

// Primitive values carry no state, so one instance of each is shared.
var (
	Undefined Value = &UndefinedValue{}
	Null      Value = &NullValue{}
	Number    Value = &NumberValue{}
	Boolean   Value = &BooleanValue{}
	String    Value = &StringValue{}
)

// ObjectKind distinguishes the roles an ObjectValue plays.
type ObjectKind int

const (
	KindPlain ObjectKind = iota
	// KindQmlObject is an object created by a QML object definition.
	KindQmlObject
	// KindMetaType is a built-in type from the engine catalogue.
	KindMetaType
	// KindScope is a synthetic lexical scope (function activation, block).
	KindScope
	KindFunction
	// KindNamespace groups imported names, e.g. `import "x.js" as X`.
	KindNamespace
)

// TypeRef names a type whose object is resolved lazily through the imports
// of the document at Path.
type TypeRef struct {
	Names []string
	Path  string
}

func (r TypeRef) String() string { return strings.Join(r.Names, ".") }

// PrototypeResolver resolves deferred prototypes. A link context
// implements it; passing nil leaves deferred prototypes unresolved.
type PrototypeResolver interface {
	ResolvePrototype(ref TypeRef) *ObjectValue
}

// ObjectValue is a symbol table node: ordered unique members plus an
// optional prototype. Objects are allocated from an Arena and never freed
// individually.
type ObjectValue struct {
	className   string
	kind        ObjectKind
	members     map[string]Value
	order       []string
	proto       *ObjectValue
	protoRef    *TypeRef
	node        ast.Node
	packageName string
	returns     Value
}

func (o *ObjectValue) valueTag() string { return "object" }

func (o *ObjectValue) ClassName() string        { return o.className }
func (o *ObjectValue) SetClassName(name string) { o.className = name }
func (o *ObjectValue) Kind() ObjectKind         { return o.kind }
func (o *ObjectValue) SetKind(k ObjectKind)     { o.kind = k }

// Node is the syntax node the object was created for, if any.
func (o *ObjectValue) Node() ast.Node          { return o.node }
func (o *ObjectValue) SetNode(n ast.Node)      { o.node = n }
func (o *ObjectValue) PackageName() string     { return o.packageName }
func (o *ObjectValue) SetPackageName(p string) { o.packageName = p }

// SetReturnValue records what calling a function object evaluates to.
func (o *ObjectValue) SetReturnValue(v Value) { o.returns = v }

// ReturnValue is the call result of a function object, Undefined if unset.
func (o *ObjectValue) ReturnValue() Value {
	if o.returns == nil {
		return Undefined
	}
	return o.returns
}

// SetMember adds or replaces a member. Replacing keeps the original position.
func (o *ObjectValue) SetMember(name string, v Value) {
	if o.members == nil {
		o.members = make(map[string]Value)
	}
	if _, exists := o.members[name]; !exists {
		o.order = append(o.order, name)
	}
	o.members[name] = v
}

// Member returns an own member, ignoring the prototype chain.
func (o *ObjectValue) Member(name string) (Value, bool) {
	v, ok := o.members[name]
	return v, ok
}

// MemberNames lists own members in insertion order.
func (o *ObjectValue) MemberNames() []string {
	out := make([]string, len(o.order))
	copy(out, o.order)
	return out
}

func (o *ObjectValue) MemberCount() int { return len(o.order) }

// SetPrototype sets a direct prototype and clears any deferred one.
func (o *ObjectValue) SetPrototype(p *ObjectValue) {
	o.proto = p
	o.protoRef = nil
}

// SetPrototypeRef defers the prototype to a type name resolved later.
func (o *ObjectValue) SetPrototypeRef(ref TypeRef) {
	o.proto = nil
	o.protoRef = &ref
}

// PrototypeRef returns the deferred prototype name, if any.
func (o *ObjectValue) PrototypeRef() (TypeRef, bool) {
	if o.protoRef == nil {
		return TypeRef{}, false
	}
	return *o.protoRef, true
}

// Prototype returns the direct prototype, resolving a deferred one through r.
func (o *ObjectValue) Prototype(r PrototypeResolver) *ObjectValue {
	if o.proto != nil {
		return o.proto
	}
	if o.protoRef != nil && r != nil {
		return r.ResolvePrototype(*o.protoRef)
	}
	return nil
}

// LookupMember finds name on o or its prototypes. It returns the value and
// the object that defines it, or nil, nil.
func (o *ObjectValue) LookupMember(name string, r PrototypeResolver) (Value, *ObjectValue) {
	it := NewPrototypeIterator(o, r)
	for it.Next() {
		cur := it.Value()
		if v, ok := cur.members[name]; ok {
			return v, cur
		}
	}
	return nil, nil
}

// HasPrototype reports whether proto appears on o's prototype chain,
// excluding o itself.
func (o *ObjectValue) HasPrototype(proto *ObjectValue, r PrototypeResolver) bool {
	if proto == nil {
		return false
	}
	it := NewPrototypeIterator(o.Prototype(r), r)
	for it.Next() {
		if it.Value() == proto {
			return true
		}
	}
	return false
}

// PrototypeIterator walks an object and its prototypes. A cyclic chain
// ends at the first repeated object.
type PrototypeIterator struct {
	next     *ObjectValue
	cur      *ObjectValue
	seen     map[*ObjectValue]struct{}
	resolver PrototypeResolver
}

func NewPrototypeIterator(start *ObjectValue, r PrototypeResolver) *PrototypeIterator {
	return &PrototypeIterator{
		next:     start,
		seen:     make(map[*ObjectValue]struct{}),
		resolver: r,
	}
}

// Next advances the iterator and reports whether a value is available.
func (it *PrototypeIterator) Next() bool {
	if it.next == nil {
		return false
	}
	if _, dup := it.seen[it.next]; dup {
		it.next = nil
		return false
	}
	it.cur = it.next
	it.seen[it.cur] = struct{}{}
	it.next = it.cur.Prototype(it.resolver)
	return true
}

func (it *PrototypeIterator) Value() *ObjectValue { return it.cur }

// Prototypes collects the chain starting at o, o included.
func Prototypes(o *ObjectValue, r PrototypeResolver) []*ObjectValue {
	var out []*ObjectValue
	it := NewPrototypeIterator(o, r)
	for it.Next() {
		out = append(out, it.Value())
	}
	return out
}

// AsObject returns v as an object, or nil.
func AsObject(v Value) *ObjectValue {
	o, _ := v.(*ObjectValue)
	return o
}

// TypeName is a short description used in completions and hover text.
func TypeName(v Value) string {
	if v == nil {
		return ""
	}
	if o, ok := v.(*ObjectValue); ok {
		if o.kind == KindFunction {
			return "function"
		}
		return o.className
	}
	return v.valueTag()
}
