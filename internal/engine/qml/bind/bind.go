// Package bind runs the per-document pass that turns a syntax tree into
// object values: the QML object hierarchy, the id environment, grouped
// property bindings, lexical scopes attached to script nodes and the
// declared imports.
package bind

import (
	"path/filepath"
	"strings"
	"unicode"
	"unicode/utf8"

	"qmllink/internal/engine/qml/ast"
	"qmllink/internal/engine/qml/interp"
)

// ImportKind classifies a declared import.
type ImportKind int

const (
	// FileImport is `import "Other.qml"` or `import "logic.js" as L`.
	FileImport ImportKind = iota
	// DirectoryImport is `import "components"`.
	DirectoryImport
	// LibraryImport is `import QtQuick 1.0`.
	LibraryImport
)

func (k ImportKind) String() string {
	switch k {
	case FileImport:
		return "file"
	case DirectoryImport:
		return "directory"
	case LibraryImport:
		return "library"
	}
	return "unknown"
}

// ImportInfo is one import statement as written, with paths made absolute.
type ImportInfo struct {
	Kind ImportKind
	// Name is the absolute path for file and directory imports and the
	// dotted URI for library imports.
	Name        string
	Version     interp.ComponentVersion
	VersionText string
	As          string
	Node        *ast.UiImport
}

// Bind is the result of binding one document. It is immutable once New
// returns.
type Bind struct {
	path          string
	componentName string
	arena         *interp.Arena

	rootObject    *interp.ObjectValue
	idEnvironment *interp.ObjectValue

	qmlObjects      map[ast.Node]*interp.ObjectValue
	qmlObjectOrder  []*interp.ObjectValue
	groupedBindings map[ast.Node]struct{}
	attachedScopes  map[ast.Node]*interp.ObjectValue
	imports         []ImportInfo
}

// New binds the tree rooted at root. root is a *ast.UiProgram for QML and a
// *ast.Program for JavaScript; any other node yields an empty Bind.
func New(path, componentName string, root ast.Node) *Bind {
	b := &Bind{
		path:            path,
		componentName:   componentName,
		arena:           interp.NewArena(),
		qmlObjects:      make(map[ast.Node]*interp.ObjectValue),
		groupedBindings: make(map[ast.Node]struct{}),
		attachedScopes:  make(map[ast.Node]*interp.ObjectValue),
	}
	bd := &binder{b: b, dir: filepath.Dir(path)}
	switch root := root.(type) {
	case *ast.UiProgram:
		b.idEnvironment = b.arena.New("Ids", interp.KindScope)
		for _, imp := range root.Imports {
			bd.addImport(imp)
		}
		for _, m := range root.Members {
			bd.visit(m)
		}
	case *ast.Program:
		b.rootObject = b.arena.New("Program", interp.KindScope)
		bd.current = b.rootObject
		for _, e := range root.Elements {
			bd.visit(e)
		}
	}
	return b
}

func (b *Bind) Path() string          { return b.path }
func (b *Bind) ComponentName() string { return b.componentName }

// RootObject is the first QML object of a QML document, or the top-level
// scope of a JavaScript document. It may be nil after error recovery.
func (b *Bind) RootObject() *interp.ObjectValue { return b.rootObject }

// IDEnvironment maps `id:` names to objects. Nil for JavaScript documents.
func (b *Bind) IDEnvironment() *interp.ObjectValue { return b.idEnvironment }

// FindQmlObject returns the object created for a definition or binding node.
func (b *Bind) FindQmlObject(n ast.Node) *interp.ObjectValue { return b.qmlObjects[n] }

// QmlObjects lists every QML object in creation order.
func (b *Bind) QmlObjects() []*interp.ObjectValue {
	out := make([]*interp.ObjectValue, len(b.qmlObjectOrder))
	copy(out, b.qmlObjectOrder)
	return out
}

// IsGroupedPropertyBinding reports whether n is `anchors { ... }` style.
func (b *Bind) IsGroupedPropertyBinding(n ast.Node) bool {
	_, ok := b.groupedBindings[n]
	return ok
}

// FindAttachedJSScope returns the lexical scope attached to a script
// binding, public member or function node.
func (b *Bind) FindAttachedJSScope(n ast.Node) *interp.ObjectValue { return b.attachedScopes[n] }

// Imports lists the declared imports in source order.
func (b *Bind) Imports() []ImportInfo {
	out := make([]ImportInfo, len(b.imports))
	copy(out, b.imports)
	return out
}

// UsesQmlPrototype reports whether any QML object of the document has proto
// on its prototype chain.
func (b *Bind) UsesQmlPrototype(proto *interp.ObjectValue, r interp.PrototypeResolver) bool {
	if proto == nil {
		return false
	}
	for _, obj := range b.qmlObjectOrder {
		if obj.HasPrototype(proto, r) {
			return true
		}
	}
	return false
}

type binder struct {
	b       *Bind
	dir     string
	current *interp.ObjectValue
}

func (bd *binder) switchObject(o *interp.ObjectValue) *interp.ObjectValue {
	prev := bd.current
	bd.current = o
	return prev
}

func (bd *binder) addImport(imp *ast.UiImport) {
	info := ImportInfo{Node: imp, As: imp.ImportID, VersionText: imp.Version}
	info.Version, _ = interp.ParseVersion(imp.Version)
	switch {
	case imp.FileName != "":
		name := imp.FileName
		if !filepath.IsAbs(name) {
			name = filepath.Join(bd.dir, name)
		}
		info.Name = filepath.Clean(name)
		ext := strings.ToLower(filepath.Ext(name))
		if ext == ".qml" || ext == ".js" {
			info.Kind = FileImport
		} else {
			info.Kind = DirectoryImport
		}
	case len(imp.ImportURI) > 0:
		info.Kind = LibraryImport
		info.Name = imp.ImportURI.String()
	default:
		return
	}
	bd.b.imports = append(bd.b.imports, info)
}

func (bd *binder) visit(n ast.Node) {
	switch n := n.(type) {
	case nil:
		return
	case *ast.UiObjectDefinition:
		if isGroupedTypeName(n.QualifiedTypeNameID) {
			bd.b.groupedBindings[n] = struct{}{}
			prev := bd.switchObject(nil)
			bd.visitInitializer(n.Initializer)
			bd.switchObject(prev)
			return
		}
		bd.bindObject(n, n.QualifiedTypeNameID, n.Initializer)
	case *ast.UiObjectBinding:
		bd.bindObject(n, n.QualifiedTypeNameID, n.Initializer)
	case *ast.UiArrayBinding:
		for _, m := range n.Members {
			bd.visit(m)
		}
	case *ast.UiScriptBinding:
		bd.visitScriptBinding(n)
	case *ast.UiPublicMember:
		bd.visitPublicMember(n)
	case *ast.UiSourceElement:
		bd.visit(n.SourceElement)
	case *ast.FunctionExpression:
		bd.visitFunction(n)
	case *ast.VariableDeclaration:
		if bd.current != nil && n.Name != "" {
			bd.current.SetMember(n.Name, interp.Undefined)
		}
		bd.visit(n.Expression)
	default:
		for _, c := range ast.Children(n) {
			bd.visit(c)
		}
	}
}

func (bd *binder) visitInitializer(init *ast.UiObjectInitializer) {
	if init == nil {
		return
	}
	for _, m := range init.Members {
		bd.visit(m)
	}
}

func (bd *binder) bindObject(n ast.Node, typeName ast.QualifiedID, init *ast.UiObjectInitializer) {
	if len(typeName) == 0 {
		return
	}
	obj := bd.b.arena.New(typeName.String(), interp.KindQmlObject)
	obj.SetNode(n)
	obj.SetPrototypeRef(interp.TypeRef{Names: typeName.Names(), Path: bd.b.path})
	bd.b.qmlObjects[n] = obj
	bd.b.qmlObjectOrder = append(bd.b.qmlObjectOrder, obj)

	parent := bd.switchObject(obj)
	if parent != nil {
		obj.SetMember("parent", parent)
	} else if bd.b.rootObject == nil {
		bd.b.rootObject = obj
		if bd.b.componentName != "" {
			obj.SetClassName(bd.b.componentName)
		}
	}
	bd.visitInitializer(init)
	bd.switchObject(parent)
}

func (bd *binder) visitScriptBinding(n *ast.UiScriptBinding) {
	if name, ok := n.QualifiedID.Single(); ok && name == "id" {
		if stmt, ok := n.Statement.(*ast.ExpressionStatement); ok {
			if id, ok := stmt.Expression.(*ast.IdentifierExpression); ok && bd.current != nil {
				bd.b.idEnvironment.SetMember(id.Name, bd.current)
			}
		}
		return
	}
	if block, ok := n.Statement.(*ast.Block); ok {
		bd.visitBlockScope(n, block)
		return
	}
	bd.visit(n.Statement)
}

func (bd *binder) visitBlockScope(owner ast.Node, block *ast.Block) {
	scope := bd.b.arena.New("Block", interp.KindScope)
	scope.SetNode(owner)
	bd.b.attachedScopes[owner] = scope
	prev := bd.switchObject(scope)
	bd.visit(block)
	bd.switchObject(prev)
}

func (bd *binder) visitPublicMember(n *ast.UiPublicMember) {
	if bd.current != nil && n.Name != "" {
		switch n.Type {
		case ast.PublicSignal:
			signal := bd.b.arena.NewFunction(n.Name, interp.Undefined)
			signal.SetNode(n)
			bd.current.SetMember(n.Name, signal)
			bd.current.SetMember(interp.SignalHandlerName(n.Name), bd.b.arena.NewFunction(n.Name, interp.Undefined))
		case ast.PublicProperty:
			bd.current.SetMember(n.Name, bd.propertyValue(n))
			bd.current.SetMember(interp.SignalHandlerName(n.Name+"Changed"), bd.b.arena.NewFunction(n.Name+"Changed", interp.Undefined))
		}
	}

	if n.Binding != nil {
		bd.visit(n.Binding)
	}
	if block, ok := n.Statement.(*ast.Block); ok {
		bd.visitBlockScope(n, block)
		return
	}
	bd.visit(n.Statement)
}

// propertyValue is the value a declared property yields on lookup. Object
// typed properties get an instance whose prototype is the declared type.
func (bd *binder) propertyValue(n *ast.UiPublicMember) interp.Value {
	if n.TypeModifier == "list" {
		list := bd.b.arena.New("list", interp.KindPlain)
		list.SetMember("length", interp.Number)
		return list
	}
	if v, ok := interp.PrimitiveForType(n.MemberType); ok {
		return v
	}
	if n.MemberType == "" {
		return interp.Undefined
	}
	instance := bd.b.arena.New(n.MemberType, interp.KindPlain)
	instance.SetNode(n)
	instance.SetPrototypeRef(interp.TypeRef{Names: strings.Split(n.MemberType, "."), Path: bd.b.path})
	return instance
}

func (bd *binder) visitFunction(fn *ast.FunctionExpression) {
	function := bd.b.arena.NewFunction(fn.Name, interp.Undefined)
	function.SetNode(fn)
	if bd.current != nil && fn.Name != "" && fn.IsDeclaration {
		bd.current.SetMember(fn.Name, function)
	}

	scope := bd.b.arena.New("Function", interp.KindScope)
	scope.SetNode(fn)
	bd.b.attachedScopes[fn] = scope
	prev := bd.switchObject(scope)

	// Named function expressions can refer to themselves.
	if !fn.IsDeclaration && fn.Name != "" {
		scope.SetMember(fn.Name, function)
	}
	for _, formal := range fn.Formals {
		scope.SetMember(formal.Name, interp.Undefined)
	}
	arguments := bd.b.arena.New("Arguments", interp.KindPlain)
	arguments.SetMember("callee", function)
	arguments.SetMember("length", interp.Number)
	scope.SetMember("arguments", arguments)

	bd.visit(fn.Body)
	bd.switchObject(prev)
}

// isGroupedTypeName reports whether the last segment starts lowercase, as
// in `anchors { }` or `font { }`.
func isGroupedTypeName(id ast.QualifiedID) bool {
	if len(id) == 0 {
		return false
	}
	r, _ := utf8.DecodeRuneInString(id[len(id)-1].Name)
	return unicode.IsLower(r)
}
