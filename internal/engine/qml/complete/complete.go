// Package complete lists the names visible at a position and resolves the
// value of the expression under the cursor.
package complete

import (
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"

	"qmllink/internal/engine/qml/ast"
	"qmllink/internal/engine/qml/document"
	"qmllink/internal/engine/qml/interp"
	"qmllink/internal/engine/qml/scope"
)

// Kind groups candidates for display.
type Kind int

const (
	Member Kind = iota
	Variable
	Type
)

func (k Kind) String() string {
	switch k {
	case Variable:
		return "variable"
	case Type:
		return "type"
	}
	return "member"
}

// Candidate is one completion proposal.
type Candidate struct {
	Name string `json:"name"`
	Type string `json:"type"`
	Kind Kind   `json:"kind"`
}

// Result is the outcome of Complete. Prefix is the partial identifier
// before the cursor; Base is the dotted expression before it for member
// completion.
type Result struct {
	Prefix     string      `json:"prefix"`
	Base       string      `json:"base,omitempty"`
	Candidates []Candidate `json:"candidates"`
}

// at clones linked and builds the scope chain of doc at offset.
func at(linked *scope.Context, doc *document.Document, offset int) *scope.Context {
	ctx := linked.Clone()
	b := scope.NewBuilder(ctx, doc)
	b.InitializeRootScope()
	b.PushAll(scope.PathAt(doc, offset))
	return ctx
}

// Complete proposes names for the cursor at offset. After `base.` it lists
// the members of base including inherited ones; otherwise every name on
// the scope chain, most specific scope first, followed by type names.
// Candidates are filtered by the identifier prefix and de-duplicated.
func Complete(linked *scope.Context, doc *document.Document, offset int) Result {
	if doc == nil {
		return Result{}
	}
	src := doc.Source()
	if offset < 0 {
		offset = 0
	}
	if offset > len(src) {
		offset = len(src)
	}

	start := identifierStart(src, offset)
	res := Result{Prefix: string(src[start:offset])}
	ctx := at(linked, doc, offset)
	c := collector{prefix: res.Prefix, seen: map[string]bool{}}

	if start > 0 && src[start-1] == '.' {
		res.Base = dottedBefore(src, start-1)
		if res.Base == "" {
			return res
		}
		base := ctx.AsObject(evaluatePath(ctx, strings.Split(res.Base, ".")))
		if base == nil {
			return res
		}
		c.addObject(base, ctx, Member)
		res.Candidates = c.out
		return res
	}

	all := ctx.ScopeChain().All()
	for i := len(all) - 1; i >= 0; i-- {
		if all[i] == ctx.ScopeChain().QmlTypes {
			continue
		}
		kind := Variable
		if all[i].Kind() == interp.KindQmlObject || all[i].Kind() == interp.KindMetaType {
			kind = Member
		}
		c.addObject(all[i], ctx, kind)
	}
	if types := ctx.ScopeChain().QmlTypes; types != nil {
		c.addTypes(types)
	}
	res.Candidates = c.out
	return res
}

type collector struct {
	prefix string
	seen   map[string]bool
	out    []Candidate
}

func (c *collector) add(name string, v interp.Value, kind Kind) {
	if c.seen[name] || !strings.HasPrefix(name, c.prefix) {
		return
	}
	c.seen[name] = true
	c.out = append(c.out, Candidate{Name: name, Type: interp.TypeName(v), Kind: kind})
}

// addObject adds the members of o and its prototypes, nearest first.
// Names within one object are sorted.
func (c *collector) addObject(o *interp.ObjectValue, r interp.PrototypeResolver, kind Kind) {
	for _, proto := range interp.Prototypes(o, r) {
		names := proto.MemberNames()
		sort.Strings(names)
		for _, name := range names {
			v, _ := proto.Member(name)
			c.add(name, v, kind)
		}
	}
}

func (c *collector) addTypes(types *interp.ObjectValue) {
	names := types.MemberNames()
	sort.Strings(names)
	for _, name := range names {
		v, _ := types.Member(name)
		c.add(name, v, Type)
	}
}

func evaluatePath(ctx *scope.Context, names []string) interp.Value {
	if len(names) == 0 || names[0] == "" {
		return nil
	}
	v, _ := ctx.Lookup(names[0])
	for _, name := range names[1:] {
		obj := ctx.AsObject(v)
		if obj == nil || name == "" {
			return nil
		}
		v, _ = obj.LookupMember(name, ctx)
	}
	return v
}

// ValueAt resolves the identifier or member expression covering offset.
// It returns nil when nothing resolvable is there.
func ValueAt(linked *scope.Context, doc *document.Document, offset int) interp.Value {
	if doc == nil || doc.Root() == nil {
		return nil
	}
	var expr ast.Node
	ast.Inspect(doc.Root(), func(n ast.Node) bool {
		switch n := n.(type) {
		case *ast.IdentifierExpression:
			if n.IdentifierToken.Contains(offset) {
				expr = n
			}
		case *ast.FieldMemberExpression:
			if n.IdentifierToken.Contains(offset) {
				expr = n
				return false
			}
		}
		return true
	})
	if expr == nil {
		return nil
	}
	return at(linked, doc, offset).Evaluate(expr)
}

func isIdentRune(r rune) bool {
	return r == '_' || r == '$' || unicode.IsLetter(r) || unicode.IsDigit(r)
}

// identifierStart walks back from offset over identifier characters.
func identifierStart(src []byte, offset int) int {
	i := offset
	for i > 0 {
		r, size := utf8.DecodeLastRune(src[:i])
		if !isIdentRune(r) {
			break
		}
		i -= size
	}
	return i
}

// dottedBefore returns the `a.b.c` chain ending just before the dot at
// dot.
func dottedBefore(src []byte, dot int) string {
	i := dot
	for i > 0 {
		r, size := utf8.DecodeLastRune(src[:i])
		if !isIdentRune(r) && r != '.' {
			break
		}
		i -= size
	}
	return strings.Trim(string(src[i:dot]), ".")
}
