package scene

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ByLCY/lessoncanvas/layout"
)

func TestGroupTreeAndWalkOffsets(t *testing.T) {
	root := NewGroup("root")
	page := NewGroup("page")
	page.X, page.Y = 10, 100
	page.AddRegion(layout.Region{
		Texts: []layout.TextBox{{Content: "a"}},
		Lines: []layout.Line{{X2: 5}},
	})
	root.AddChild(page)
	require.Equal(t, root, page.Parent())
	assert.Equal(t, 2, root.Count())

	var offsets [][2]float64
	root.Walk(func(n Node, dx, dy float64) bool {
		if _, ok := n.(*Text); ok {
			offsets = append(offsets, [2]float64{dx, dy})
		}
		return true
	})
	assert.Equal(t, [][2]float64{{10, 100}}, offsets)

	page.Hidden = true
	assert.Equal(t, 0, root.Count())
}

func TestGroupReparentAndRemove(t *testing.T) {
	a, b := NewGroup("a"), NewGroup("b")
	child := NewGroup("child")
	a.AddChild(child)
	b.AddChild(child)
	assert.Equal(t, 0, a.Len())
	assert.Equal(t, 1, b.Len())
	assert.True(t, b.RemoveChild(child))
	assert.False(t, b.RemoveChild(child))
	assert.Nil(t, child.Parent())
}

func TestDestroyIsIdempotent(t *testing.T) {
	stage := NewStage()
	page := NewGroup("page")
	inner := NewGroup("inner")
	inner.AddChild(&Rect{})
	page.AddChild(inner)
	stage.Content.AddChild(page)

	page.Destroy()
	assert.True(t, page.Destroyed())
	assert.True(t, inner.Destroyed())
	assert.Equal(t, 0, stage.Content.Len())

	assert.NotPanics(t, func() {
		page.Destroy()
		stage.Destroy()
		stage.Destroy()
	})
	page.AddChild(&Rect{})
	assert.Equal(t, 0, page.Len(), "destroyed groups ignore new children")
}
