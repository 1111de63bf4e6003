// Package ast defines the syntax tree shared by the QML and JavaScript
// front ends. Every node kind is its own Go type; callers dispatch with a
// type switch and enumerate children with Children.
package ast

// Kind identifies the concrete type of a Node.
type Kind int

const (
	KindUiProgram Kind = iota
	KindUiImport
	KindUiObjectDefinition
	KindUiObjectBinding
	KindUiObjectInitializer
	KindUiScriptBinding
	KindUiArrayBinding
	KindUiPublicMember
	KindUiSourceElement

	KindProgram
	KindBlock
	KindExpressionStatement
	KindVariableStatement
	KindVariableDeclaration
	KindFunctionDeclaration
	KindFunctionExpression
	KindIdentifierExpression
	KindFieldMemberExpression
	KindCallExpression
	KindThisExpression
	KindStringLiteral
	KindNumericLiteral
	KindBooleanLiteral
	KindNullExpression
	KindGeneric
)

var kindNames = map[Kind]string{
	KindUiProgram:             "UiProgram",
	KindUiImport:              "UiImport",
	KindUiObjectDefinition:    "UiObjectDefinition",
	KindUiObjectBinding:       "UiObjectBinding",
	KindUiObjectInitializer:   "UiObjectInitializer",
	KindUiScriptBinding:       "UiScriptBinding",
	KindUiArrayBinding:        "UiArrayBinding",
	KindUiPublicMember:        "UiPublicMember",
	KindUiSourceElement:       "UiSourceElement",
	KindProgram:               "Program",
	KindBlock:                 "Block",
	KindExpressionStatement:   "ExpressionStatement",
	KindVariableStatement:     "VariableStatement",
	KindVariableDeclaration:   "VariableDeclaration",
	KindFunctionDeclaration:   "FunctionDeclaration",
	KindFunctionExpression:    "FunctionExpression",
	KindIdentifierExpression:  "IdentifierExpression",
	KindFieldMemberExpression: "FieldMemberExpression",
	KindCallExpression:        "CallExpression",
	KindThisExpression:        "ThisExpression",
	KindStringLiteral:         "StringLiteral",
	KindNumericLiteral:        "NumericLiteral",
	KindBooleanLiteral:        "BooleanLiteral",
	KindNullExpression:        "NullExpression",
	KindGeneric:               "Generic",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return "Unknown"
}

// Node is implemented by every syntax tree node.
type Node interface {
	Kind() Kind
	FirstSourceLocation() SourceLocation
	LastSourceLocation() SourceLocation
}

// UiObjectMember is implemented by the nodes that may appear inside an
// object initializer.
type UiObjectMember interface {
	Node
	uiObjectMember()
}

// IDPart is one dotted segment of a qualified identifier.
type IDPart struct {
	Name  string
	Token SourceLocation
}

// QualifiedID is a dotted identifier such as `anchors.fill` or
// `QtQuick.Rectangle`.
type QualifiedID []IDPart

// Names returns the plain segment names.
func (q QualifiedID) Names() []string {
	out := make([]string, len(q))
	for i, part := range q {
		out[i] = part.Name
	}
	return out
}

// String joins the segments with dots.
func (q QualifiedID) String() string {
	out := ""
	for i, part := range q {
		if i > 0 {
			out += "."
		}
		out += part.Name
	}
	return out
}

// Single reports whether the identifier has exactly one segment and returns it.
func (q QualifiedID) Single() (string, bool) {
	if len(q) != 1 {
		return "", false
	}
	return q[0].Name, true
}

func (q QualifiedID) first() SourceLocation {
	if len(q) == 0 {
		return SourceLocation{}
	}
	return q[0].Token
}

func (q QualifiedID) last() SourceLocation {
	if len(q) == 0 {
		return SourceLocation{}
	}
	return q[len(q)-1].Token
}

// UiProgram is the root of a QML document.
type UiProgram struct {
	Imports []*UiImport
	Members []UiObjectMember
}

func (n *UiProgram) Kind() Kind { return KindUiProgram }
func (n *UiProgram) FirstSourceLocation() SourceLocation {
	if len(n.Imports) > 0 {
		return n.Imports[0].FirstSourceLocation()
	}
	if len(n.Members) > 0 {
		return n.Members[0].FirstSourceLocation()
	}
	return SourceLocation{}
}
func (n *UiProgram) LastSourceLocation() SourceLocation {
	if len(n.Members) > 0 {
		return n.Members[len(n.Members)-1].LastSourceLocation()
	}
	if len(n.Imports) > 0 {
		return n.Imports[len(n.Imports)-1].LastSourceLocation()
	}
	return SourceLocation{}
}

// UiImport is `import "path" [as X]` or `import A.B 1.0 [as X]`.
type UiImport struct {
	FileName      string
	FileNameToken SourceLocation
	ImportURI     QualifiedID
	Version       string
	VersionToken  SourceLocation
	ImportID      string
	ImportIDToken SourceLocation
	ImportToken   SourceLocation
	EndToken      SourceLocation
}

func (n *UiImport) Kind() Kind                          { return KindUiImport }
func (n *UiImport) FirstSourceLocation() SourceLocation { return n.ImportToken }
func (n *UiImport) LastSourceLocation() SourceLocation  { return n.EndToken }

// UiObjectInitializer is the braced member list of an object.
type UiObjectInitializer struct {
	LBraceToken SourceLocation
	Members     []UiObjectMember
	RBraceToken SourceLocation
}

func (n *UiObjectInitializer) Kind() Kind                          { return KindUiObjectInitializer }
func (n *UiObjectInitializer) FirstSourceLocation() SourceLocation { return n.LBraceToken }
func (n *UiObjectInitializer) LastSourceLocation() SourceLocation  { return n.RBraceToken }

// UiObjectDefinition is `Type { ... }`. A lowercase last segment marks a
// grouped property binding such as `anchors { fill: parent }`.
type UiObjectDefinition struct {
	QualifiedTypeNameID QualifiedID
	Initializer         *UiObjectInitializer
}

func (n *UiObjectDefinition) Kind() Kind { return KindUiObjectDefinition }
func (n *UiObjectDefinition) FirstSourceLocation() SourceLocation {
	return n.QualifiedTypeNameID.first()
}
func (n *UiObjectDefinition) LastSourceLocation() SourceLocation {
	if n.Initializer != nil {
		return n.Initializer.RBraceToken
	}
	return n.QualifiedTypeNameID.last()
}
func (*UiObjectDefinition) uiObjectMember() {}

// UiObjectBinding is `name: Type { ... }` or `Type on name { ... }`.
type UiObjectBinding struct {
	QualifiedID         QualifiedID
	QualifiedTypeNameID QualifiedID
	Initializer         *UiObjectInitializer
	HasOnToken          bool
}

func (n *UiObjectBinding) Kind() Kind { return KindUiObjectBinding }
func (n *UiObjectBinding) FirstSourceLocation() SourceLocation {
	if n.HasOnToken {
		return n.QualifiedTypeNameID.first()
	}
	return n.QualifiedID.first()
}
func (n *UiObjectBinding) LastSourceLocation() SourceLocation {
	if n.Initializer != nil {
		return n.Initializer.RBraceToken
	}
	return n.QualifiedTypeNameID.last()
}
func (*UiObjectBinding) uiObjectMember() {}

// UiScriptBinding is `name: <statement>`.
type UiScriptBinding struct {
	QualifiedID QualifiedID
	Statement   Node
}

func (n *UiScriptBinding) Kind() Kind                          { return KindUiScriptBinding }
func (n *UiScriptBinding) FirstSourceLocation() SourceLocation { return n.QualifiedID.first() }
func (n *UiScriptBinding) LastSourceLocation() SourceLocation {
	if n.Statement != nil {
		return n.Statement.LastSourceLocation()
	}
	return n.QualifiedID.last()
}
func (*UiScriptBinding) uiObjectMember() {}

// UiArrayBinding is `name: [ Type {}, Type {} ]`.
type UiArrayBinding struct {
	QualifiedID   QualifiedID
	Members       []UiObjectMember
	RBracketToken SourceLocation
}

func (n *UiArrayBinding) Kind() Kind                          { return KindUiArrayBinding }
func (n *UiArrayBinding) FirstSourceLocation() SourceLocation { return n.QualifiedID.first() }
func (n *UiArrayBinding) LastSourceLocation() SourceLocation  { return n.RBracketToken }
func (*UiArrayBinding) uiObjectMember()                       {}

// PublicMemberKind separates property from signal declarations.
type PublicMemberKind int

const (
	PublicProperty PublicMemberKind = iota
	PublicSignal
)

// UiParameter is one typed signal parameter.
type UiParameter struct {
	Type            string
	Name            string
	IdentifierToken SourceLocation
}

// UiPublicMember is a `property` or `signal` declaration.
type UiPublicMember struct {
	Type            PublicMemberKind
	MemberType      string
	TypeModifier    string
	Name            string
	IsDefault       bool
	IsReadonly      bool
	Parameters      []UiParameter
	Statement       Node
	Binding         *UiObjectDefinition
	PropertyToken   SourceLocation
	TypeToken       SourceLocation
	IdentifierToken SourceLocation
	EndToken        SourceLocation
}

func (n *UiPublicMember) Kind() Kind                          { return KindUiPublicMember }
func (n *UiPublicMember) FirstSourceLocation() SourceLocation { return n.PropertyToken }
func (n *UiPublicMember) LastSourceLocation() SourceLocation {
	switch {
	case n.Binding != nil:
		return n.Binding.LastSourceLocation()
	case n.Statement != nil:
		return n.Statement.LastSourceLocation()
	}
	return n.EndToken
}
func (*UiPublicMember) uiObjectMember() {}

// UiSourceElement wraps a JavaScript function or variable declaration that
// appears directly inside a QML object.
type UiSourceElement struct {
	SourceElement Node
}

func (n *UiSourceElement) Kind() Kind { return KindUiSourceElement }
func (n *UiSourceElement) FirstSourceLocation() SourceLocation {
	if n.SourceElement == nil {
		return SourceLocation{}
	}
	return n.SourceElement.FirstSourceLocation()
}
func (n *UiSourceElement) LastSourceLocation() SourceLocation {
	if n.SourceElement == nil {
		return SourceLocation{}
	}
	return n.SourceElement.LastSourceLocation()
}
func (*UiSourceElement) uiObjectMember() {}

// Program is the root of a JavaScript document.
type Program struct {
	Elements []Node
	Loc      SourceLocation
}

func (n *Program) Kind() Kind                          { return KindProgram }
func (n *Program) FirstSourceLocation() SourceLocation { return n.Loc }
func (n *Program) LastSourceLocation() SourceLocation  { return n.Loc.EndLocation() }

// Block is a braced statement list.
type Block struct {
	Statements  []Node
	LBraceToken SourceLocation
	RBraceToken SourceLocation
}

func (n *Block) Kind() Kind                          { return KindBlock }
func (n *Block) FirstSourceLocation() SourceLocation { return n.LBraceToken }
func (n *Block) LastSourceLocation() SourceLocation  { return n.RBraceToken }

// ExpressionStatement is an expression used as a statement.
type ExpressionStatement struct {
	Expression Node
	Loc        SourceLocation
}

func (n *ExpressionStatement) Kind() Kind                          { return KindExpressionStatement }
func (n *ExpressionStatement) FirstSourceLocation() SourceLocation { return n.Loc }
func (n *ExpressionStatement) LastSourceLocation() SourceLocation  { return n.Loc.EndLocation() }

// VariableStatement is `var a = 1, b` (also let/const).
type VariableStatement struct {
	Declarations []*VariableDeclaration
	Loc          SourceLocation
}

func (n *VariableStatement) Kind() Kind                          { return KindVariableStatement }
func (n *VariableStatement) FirstSourceLocation() SourceLocation { return n.Loc }
func (n *VariableStatement) LastSourceLocation() SourceLocation  { return n.Loc.EndLocation() }

// VariableDeclaration is one declarator of a variable statement.
type VariableDeclaration struct {
	Name            string
	IdentifierToken SourceLocation
	Expression      Node
	Loc             SourceLocation
}

func (n *VariableDeclaration) Kind() Kind                          { return KindVariableDeclaration }
func (n *VariableDeclaration) FirstSourceLocation() SourceLocation { return n.Loc }
func (n *VariableDeclaration) LastSourceLocation() SourceLocation  { return n.Loc.EndLocation() }

// FormalParameter is one named function parameter.
type FormalParameter struct {
	Name            string
	IdentifierToken SourceLocation
}

// FunctionExpression covers both function declarations and function
// expressions; IsDeclaration selects the kind.
type FunctionExpression struct {
	Name            string
	IdentifierToken SourceLocation
	Formals         []FormalParameter
	Body            Node
	IsDeclaration   bool
	Loc             SourceLocation
}

func (n *FunctionExpression) Kind() Kind {
	if n.IsDeclaration {
		return KindFunctionDeclaration
	}
	return KindFunctionExpression
}
func (n *FunctionExpression) FirstSourceLocation() SourceLocation { return n.Loc }
func (n *FunctionExpression) LastSourceLocation() SourceLocation  { return n.Loc.EndLocation() }

// IdentifierExpression is a bare name reference.
type IdentifierExpression struct {
	Name            string
	IdentifierToken SourceLocation
}

func (n *IdentifierExpression) Kind() Kind                          { return KindIdentifierExpression }
func (n *IdentifierExpression) FirstSourceLocation() SourceLocation { return n.IdentifierToken }
func (n *IdentifierExpression) LastSourceLocation() SourceLocation  { return n.IdentifierToken }

// FieldMemberExpression is `base.name`.
type FieldMemberExpression struct {
	Base            Node
	Name            string
	IdentifierToken SourceLocation
}

func (n *FieldMemberExpression) Kind() Kind { return KindFieldMemberExpression }
func (n *FieldMemberExpression) FirstSourceLocation() SourceLocation {
	if n.Base != nil {
		return n.Base.FirstSourceLocation()
	}
	return n.IdentifierToken
}
func (n *FieldMemberExpression) LastSourceLocation() SourceLocation { return n.IdentifierToken }

// CallExpression is `base(args...)`.
type CallExpression struct {
	Base      Node
	Arguments []Node
	Loc       SourceLocation
}

func (n *CallExpression) Kind() Kind                          { return KindCallExpression }
func (n *CallExpression) FirstSourceLocation() SourceLocation { return n.Loc }
func (n *CallExpression) LastSourceLocation() SourceLocation  { return n.Loc.EndLocation() }

// ThisExpression is `this`.
type ThisExpression struct {
	Loc SourceLocation
}

func (n *ThisExpression) Kind() Kind                          { return KindThisExpression }
func (n *ThisExpression) FirstSourceLocation() SourceLocation { return n.Loc }
func (n *ThisExpression) LastSourceLocation() SourceLocation  { return n.Loc }

// StringLiteral carries the unquoted value.
type StringLiteral struct {
	Value string
	Loc   SourceLocation
}

func (n *StringLiteral) Kind() Kind                          { return KindStringLiteral }
func (n *StringLiteral) FirstSourceLocation() SourceLocation { return n.Loc }
func (n *StringLiteral) LastSourceLocation() SourceLocation  { return n.Loc }

// NumericLiteral carries the parsed value.
type NumericLiteral struct {
	Value float64
	Loc   SourceLocation
}

func (n *NumericLiteral) Kind() Kind                          { return KindNumericLiteral }
func (n *NumericLiteral) FirstSourceLocation() SourceLocation { return n.Loc }
func (n *NumericLiteral) LastSourceLocation() SourceLocation  { return n.Loc }

// BooleanLiteral is `true` or `false`.
type BooleanLiteral struct {
	Value bool
	Loc   SourceLocation
}

func (n *BooleanLiteral) Kind() Kind                          { return KindBooleanLiteral }
func (n *BooleanLiteral) FirstSourceLocation() SourceLocation { return n.Loc }
func (n *BooleanLiteral) LastSourceLocation() SourceLocation  { return n.Loc }

// NullExpression is `null`.
type NullExpression struct {
	Loc SourceLocation
}

func (n *NullExpression) Kind() Kind                          { return KindNullExpression }
func (n *NullExpression) FirstSourceLocation() SourceLocation { return n.Loc }
func (n *NullExpression) LastSourceLocation() SourceLocation  { return n.Loc }

// Generic holds any construct the resolver does not model individually
// (operators, loops, object literals, error-recovery nodes). Its children are
// still traversed.
type Generic struct {
	Type     string
	Children []Node
	Loc      SourceLocation
}

func (n *Generic) Kind() Kind                          { return KindGeneric }
func (n *Generic) FirstSourceLocation() SourceLocation { return n.Loc }
func (n *Generic) LastSourceLocation() SourceLocation  { return n.Loc.EndLocation() }

// IsError reports whether the node stands in for unparseable input.
func (n *Generic) IsError() bool { return n.Type == "ERROR" }
