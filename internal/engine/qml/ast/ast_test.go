package ast

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLineIndexLocation(t *testing.T) {
	src := []byte("import QtQuick 1.0\nItem {\n  ü: 1\n}\n")
	li := NewLineIndex(src)

	loc := li.Location(0, 6)
	assert.Equal(t, 1, loc.StartLine)
	assert.Equal(t, 1, loc.StartColumn)

	item := li.Location(19, 4)
	assert.Equal(t, 2, item.StartLine)
	assert.Equal(t, 1, item.StartColumn)

	// the column after a multi-byte rune counts runes, not bytes
	colon := li.Location(30, 1)
	assert.Equal(t, 3, colon.StartLine)
	assert.Equal(t, 4, colon.StartColumn)

	off, ok := li.Offset(3, 4)
	require.True(t, ok)
	assert.Equal(t, 30, off)

	off, ok = li.Offset(2, 99)
	require.True(t, ok)
	assert.Equal(t, 25, off, "clamped to the end of the line")

	_, ok = li.Offset(0, 1)
	assert.False(t, ok)
	_, ok = li.Offset(9, 1)
	assert.False(t, ok)
}

func TestSourceLocationContains(t *testing.T) {
	loc := SourceLocation{Offset: 10, Length: 5, StartLine: 1, StartColumn: 11}
	assert.True(t, loc.Contains(10))
	assert.True(t, loc.Contains(15))
	assert.False(t, loc.Contains(16))
	assert.False(t, SourceLocation{}.Contains(0))
}

func TestQualifiedID(t *testing.T) {
	q := QualifiedID{{Name: "anchors"}, {Name: "fill"}}
	assert.Equal(t, "anchors.fill", q.String())
	assert.Equal(t, []string{"anchors", "fill"}, q.Names())
	_, ok := q.Single()
	assert.False(t, ok)

	name, ok := QualifiedID{{Name: "id"}}.Single()
	require.True(t, ok)
	assert.Equal(t, "id", name)
}

type recordingVisitor struct {
	events []string
}

func (r *recordingVisitor) Visit(n Node) bool {
	r.events = append(r.events, "+"+n.Kind().String())
	return true
}

func (r *recordingVisitor) EndVisit(n Node) {
	r.events = append(r.events, "-"+n.Kind().String())
}

func TestWalkPairsVisitAndEndVisit(t *testing.T) {
	binding := &UiScriptBinding{
		QualifiedID: QualifiedID{{Name: "width"}},
		Statement: &ExpressionStatement{
			Expression: &IdentifierExpression{Name: "w"},
		},
	}
	program := &UiProgram{
		Members: []UiObjectMember{
			&UiObjectDefinition{
				QualifiedTypeNameID: QualifiedID{{Name: "Item"}},
				Initializer:         &UiObjectInitializer{Members: []UiObjectMember{binding}},
			},
		},
	}

	rec := &recordingVisitor{}
	Walk(program, rec)

	assert.Equal(t, []string{
		"+UiProgram",
		"+UiObjectDefinition",
		"+UiObjectInitializer",
		"+UiScriptBinding",
		"+ExpressionStatement",
		"+IdentifierExpression",
		"-IdentifierExpression",
		"-ExpressionStatement",
		"-UiScriptBinding",
		"-UiObjectInitializer",
		"-UiObjectDefinition",
		"-UiProgram",
	}, rec.events)
}

func TestInspectPrunes(t *testing.T) {
	call := &CallExpression{
		Base:      &IdentifierExpression{Name: "f"},
		Arguments: []Node{&IdentifierExpression{Name: "x"}},
	}
	var names []string
	Inspect(call, func(n Node) bool {
		if id, ok := n.(*IdentifierExpression); ok {
			names = append(names, id.Name)
		}
		return true
	})
	assert.Equal(t, []string{"f", "x"}, names)

	count := 0
	Inspect(call, func(n Node) bool {
		count++
		return false
	})
	assert.Equal(t, 1, count)
}
