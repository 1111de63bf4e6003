package parser

import (
	"testing"

	"qmllink/internal/engine/qml/ast"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const mainQML = `import QtQuick 1.0
import "components"
import "logic.js" as Logic

Rectangle {
    id: root
    width: 200; height: parent.height / 2
    anchors { fill: parent }
    property int count: 3
    property list<Item> extras
    signal activated(int index, string label)

    Text {
        text: Logic.format(root.count,
                           "items")
        color: "red"
    }
    states: [
        State { name: "on" },
        State { name: "off" }
    ]
    NumberAnimation on x { to: 50 }
    function reset(a, b) {
        count = a + b
    }
    onActivated: {
        var x = index
        console.log(x)
    }
}
`

func TestParseQMLStructure(t *testing.T) {
	res := New().ParseQML([]byte(mainQML))
	require.Empty(t, res.Errors)

	program, ok := res.Root.(*ast.UiProgram)
	require.True(t, ok)
	require.Len(t, program.Imports, 3)

	assert.Equal(t, "QtQuick", program.Imports[0].ImportURI.String())
	assert.Equal(t, "1.0", program.Imports[0].Version)
	assert.Equal(t, "components", program.Imports[1].FileName)
	assert.Equal(t, "logic.js", program.Imports[2].FileName)
	assert.Equal(t, "Logic", program.Imports[2].ImportID)

	require.Len(t, program.Members, 1)
	root, ok := program.Members[0].(*ast.UiObjectDefinition)
	require.True(t, ok)
	assert.Equal(t, "Rectangle", root.QualifiedTypeNameID.String())

	var kinds []ast.Kind
	for _, m := range root.Initializer.Members {
		kinds = append(kinds, m.Kind())
	}
	assert.Equal(t, []ast.Kind{
		ast.KindUiScriptBinding,    // id
		ast.KindUiScriptBinding,    // width
		ast.KindUiScriptBinding,    // height
		ast.KindUiObjectDefinition, // anchors
		ast.KindUiPublicMember,     // count
		ast.KindUiPublicMember,     // extras
		ast.KindUiPublicMember,     // activated
		ast.KindUiObjectDefinition, // Text
		ast.KindUiArrayBinding,     // states
		ast.KindUiObjectBinding,    // NumberAnimation on x
		ast.KindUiSourceElement,    // reset
		ast.KindUiScriptBinding,    // onActivated
	}, kinds)

	height := root.Initializer.Members[2].(*ast.UiScriptBinding)
	stmt, ok := height.Statement.(*ast.ExpressionStatement)
	require.True(t, ok)
	generic, ok := stmt.Expression.(*ast.Generic)
	require.True(t, ok)
	assert.Equal(t, "binary_expression", generic.Type)

	extras := root.Initializer.Members[5].(*ast.UiPublicMember)
	assert.Equal(t, "list", extras.TypeModifier)
	assert.Equal(t, "Item", extras.MemberType)

	signal := root.Initializer.Members[6].(*ast.UiPublicMember)
	assert.Equal(t, ast.PublicSignal, signal.Type)
	require.Len(t, signal.Parameters, 2)
	assert.Equal(t, "index", signal.Parameters[0].Name)

	states := root.Initializer.Members[8].(*ast.UiArrayBinding)
	assert.Len(t, states.Members, 2)

	anim := root.Initializer.Members[9].(*ast.UiObjectBinding)
	assert.True(t, anim.HasOnToken)
	assert.Equal(t, "x", anim.QualifiedID.String())
	assert.Equal(t, "NumberAnimation", anim.QualifiedTypeNameID.String())

	reset := root.Initializer.Members[10].(*ast.UiSourceElement)
	fn, ok := reset.SourceElement.(*ast.FunctionExpression)
	require.True(t, ok)
	assert.True(t, fn.IsDeclaration)
	assert.Equal(t, "reset", fn.Name)
	require.Len(t, fn.Formals, 2)
	assert.Equal(t, "b", fn.Formals[1].Name)

	handler := root.Initializer.Members[11].(*ast.UiScriptBinding)
	_, ok = handler.Statement.(*ast.Block)
	assert.True(t, ok)
}

func TestParseQMLMultilineExpression(t *testing.T) {
	res := New().ParseQML([]byte(mainQML))
	program := res.Root.(*ast.UiProgram)
	root := program.Members[0].(*ast.UiObjectDefinition)
	text := root.Initializer.Members[7].(*ast.UiObjectDefinition)
	require.Len(t, text.Initializer.Members, 2)

	binding := text.Initializer.Members[0].(*ast.UiScriptBinding)
	stmt := binding.Statement.(*ast.ExpressionStatement)
	call, ok := stmt.Expression.(*ast.CallExpression)
	require.True(t, ok)
	require.Len(t, call.Arguments, 2)

	base, ok := call.Base.(*ast.FieldMemberExpression)
	require.True(t, ok)
	assert.Equal(t, "format", base.Name)
	logic, ok := base.Base.(*ast.IdentifierExpression)
	require.True(t, ok)
	assert.Equal(t, "Logic", logic.Name)
	assert.Equal(t, 14, logic.IdentifierToken.StartLine)
	assert.Equal(t, 15, logic.IdentifierToken.StartColumn)
}

func TestParseQMLIdentifierLocations(t *testing.T) {
	src := "Item {\n    width: foo\n}\n"
	res := New().ParseQML([]byte(src))
	require.Empty(t, res.Errors)

	var found *ast.IdentifierExpression
	ast.Inspect(res.Root, func(n ast.Node) bool {
		if id, ok := n.(*ast.IdentifierExpression); ok {
			found = id
		}
		return true
	})
	require.NotNil(t, found)
	assert.Equal(t, "foo", found.Name)
	assert.Equal(t, 18, found.IdentifierToken.Offset)
	assert.Equal(t, 3, found.IdentifierToken.Length)
	assert.Equal(t, 2, found.IdentifierToken.StartLine)
	assert.Equal(t, 12, found.IdentifierToken.StartColumn)
}

func TestParseQMLRecoversFromErrors(t *testing.T) {
	src := `Item {
    width: 10
    ) broken
    height: 20
    Text { text: "ok" }
}
`
	res := New().ParseQML([]byte(src))
	assert.NotEmpty(t, res.Errors)

	program := res.Root.(*ast.UiProgram)
	require.Len(t, program.Members, 1)
	item := program.Members[0].(*ast.UiObjectDefinition)

	var names []string
	for _, m := range item.Initializer.Members {
		switch m := m.(type) {
		case *ast.UiScriptBinding:
			names = append(names, m.QualifiedID.String())
		case *ast.UiObjectDefinition:
			names = append(names, m.QualifiedTypeNameID.String())
		}
	}
	assert.Equal(t, []string{"width", "height", "Text"}, names)
}

func TestParseQMLUnterminatedObject(t *testing.T) {
	res := New().ParseQML([]byte("Item {\n  width: 1\n"))
	assert.NotEmpty(t, res.Errors)
	program := res.Root.(*ast.UiProgram)
	require.Len(t, program.Members, 1)
}

func TestParseJavaScript(t *testing.T) {
	src := `.pragma library

var counter = 0
function bump(step) {
    counter += step
    return helper(counter)
}
const helper = (v) => v * 2
`
	res := New().ParseJavaScript([]byte(src))
	require.Empty(t, res.Errors)

	program, ok := res.Root.(*ast.Program)
	require.True(t, ok)
	require.Len(t, program.Elements, 3)

	vars := program.Elements[0].(*ast.VariableStatement)
	require.Len(t, vars.Declarations, 1)
	assert.Equal(t, "counter", vars.Declarations[0].Name)
	assert.Equal(t, 3, vars.Declarations[0].IdentifierToken.StartLine)

	fn := program.Elements[1].(*ast.FunctionExpression)
	assert.Equal(t, "bump", fn.Name)
	assert.Equal(t, ast.KindFunctionDeclaration, fn.Kind())

	helper := program.Elements[2].(*ast.VariableStatement)
	arrow, ok := helper.Declarations[0].Expression.(*ast.FunctionExpression)
	require.True(t, ok)
	require.Len(t, arrow.Formals, 1)
	assert.Equal(t, "v", arrow.Formals[0].Name)
}

func TestParseJavaScriptErrorsAreReported(t *testing.T) {
	res := New().ParseJavaScript([]byte("function (\n"))
	assert.NotEmpty(t, res.Errors)
	_, ok := res.Root.(*ast.Program)
	assert.True(t, ok)
}

func TestLexerSkipsComments(t *testing.T) {
	toks := lex([]byte("a /* b\n */ c // d\ne"))
	var texts []string
	for _, tok := range toks {
		if tok.kind != tokEOF {
			texts = append(texts, tok.text)
		}
	}
	assert.Equal(t, []string{"a", "c", "e"}, texts)
	assert.True(t, toks[1].newlineBefore)
	assert.True(t, toks[2].newlineBefore)
}
