package complete_test

import (
	"testing"

	"qmllink/internal/engine/qml/complete"
	"qmllink/internal/engine/qml/interp"
	"qmllink/internal/engine/qml/qmltest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const src = `import QtQuick 1.0
Item {
    id: root
    property int count: 0
    function grow(step) {
        var result = count + step
        return result
    }
    Rectangle {
        width: root.co
        height: root.count
    }
}
`

func names(cs []complete.Candidate) []string {
	out := make([]string, len(cs))
	for i, c := range cs {
		out[i] = c.Name
	}
	return out
}

func indexOf(list []string, s string) int {
	for i, x := range list {
		if x == s {
			return i
		}
	}
	return -1
}

func TestCompleteMembersAfterDot(t *testing.T) {
	snap := qmltest.Snapshot(t, map[string]string{"/p/Main.qml": src})
	ctx, _ := qmltest.Link(t, snap)
	doc := qmltest.Doc(t, snap, "/p/Main.qml")

	res := complete.Complete(ctx, doc, qmltest.Offset(t, doc, "root.co\n", 0)+len("root.co"))
	assert.Equal(t, "co", res.Prefix)
	assert.Equal(t, "root", res.Base)
	got := names(res.Candidates)
	assert.Contains(t, got, "count")
	assert.NotContains(t, got, "width")
	for _, c := range res.Candidates {
		assert.Equal(t, complete.Member, c.Kind)
		if c.Name == "count" {
			assert.Equal(t, "number", c.Type)
		}
	}
}

func TestCompleteScopeNamesMostSpecificFirst(t *testing.T) {
	snap := qmltest.Snapshot(t, map[string]string{"/p/Main.qml": src})
	ctx, _ := qmltest.Link(t, snap)
	doc := qmltest.Doc(t, snap, "/p/Main.qml")

	res := complete.Complete(ctx, doc, qmltest.Offset(t, doc, "return result", 0)+len("return "))
	assert.Empty(t, res.Prefix)
	got := names(res.Candidates)

	seen := map[string]bool{}
	for _, n := range got {
		require.False(t, seen[n], "duplicate candidate %s", n)
		seen[n] = true
	}

	for _, n := range []string{"result", "step", "count", "root", "Math", "Rectangle"} {
		require.NotEqual(t, -1, indexOf(got, n), "missing %s", n)
	}
	assert.Less(t, indexOf(got, "result"), indexOf(got, "count"))
	assert.Less(t, indexOf(got, "count"), indexOf(got, "Math"))
	assert.Equal(t, complete.Type, res.Candidates[indexOf(got, "Rectangle")].Kind)
	assert.Equal(t, complete.Variable, res.Candidates[indexOf(got, "result")].Kind)
}

func TestCompleteFiltersByPrefix(t *testing.T) {
	snap := qmltest.Snapshot(t, map[string]string{"/p/Main.qml": src})
	ctx, _ := qmltest.Link(t, snap)
	doc := qmltest.Doc(t, snap, "/p/Main.qml")

	res := complete.Complete(ctx, doc, qmltest.Offset(t, doc, "return result", 0)+len("return re"))
	assert.Equal(t, "re", res.Prefix)
	require.NotEmpty(t, res.Candidates)
	assert.Equal(t, "result", res.Candidates[0].Name)
	for _, c := range res.Candidates {
		assert.Regexp(t, "^re", c.Name)
	}
}

func TestCompleteUnknownBase(t *testing.T) {
	snap := qmltest.Snapshot(t, map[string]string{"/p/A.qml": "import QtQuick 1.0\nItem {\n    width: nothing.x\n}\n"})
	ctx, _ := qmltest.Link(t, snap)
	doc := qmltest.Doc(t, snap, "/p/A.qml")

	res := complete.Complete(ctx, doc, qmltest.Offset(t, doc, ".x", 0)+2)
	assert.Equal(t, "nothing", res.Base)
	assert.Empty(t, res.Candidates)
	assert.Empty(t, complete.Complete(ctx, nil, 0).Candidates)
}

func TestValueAt(t *testing.T) {
	snap := qmltest.Snapshot(t, map[string]string{"/p/Main.qml": src})
	ctx, _ := qmltest.Link(t, snap)
	doc := qmltest.Doc(t, snap, "/p/Main.qml")

	v := complete.ValueAt(ctx, doc, qmltest.Offset(t, doc, "count\n", 0))
	assert.Same(t, interp.Number, v)

	v = complete.ValueAt(ctx, doc, qmltest.Offset(t, doc, "root.count", 0))
	assert.Same(t, doc.Bind().RootObject(), v)

	v = complete.ValueAt(ctx, doc, qmltest.Offset(t, doc, "result\n", 0))
	assert.Same(t, interp.Undefined, v, "locals are declared but untyped")

	assert.Nil(t, complete.ValueAt(ctx, doc, 0))
}
