// Package scene 是渲染用的保留模式图元树：页面容器把排版结果挂到 Group 上，
// 渲染器按视口遍历整棵树绘制。
package scene

import "github.com/ByLCY/lessoncanvas/layout"

// Node 是树中的任意节点。
type Node interface {
	node()
}

// Text wraps a laid-out text box.
type Text struct{ Box layout.TextBox }

// Table wraps a laid-out table.
type Table struct{ Box layout.TableBox }

// Rect wraps a rectangle.
type Rect struct{ Shape layout.Rect }

// Line wraps a line segment.
type Line struct{ Shape layout.Line }

func (*Text) node()  {}
func (*Table) node() {}
func (*Rect) node()  {}
func (*Line) node()  {}
func (*Group) node() {}

// Group 是带偏移量的容器节点，子节点坐标相对于 Group 的 (X, Y)。
type Group struct {
	Name   string
	X, Y   float64
	Hidden bool

	parent    *Group
	children  []Node
	destroyed bool
}

// NewGroup creates an empty named group.
func NewGroup(name string) *Group {
	return &Group{Name: name}
}

// AddChild 追加子节点；已销毁的 Group 忽略该调用。
// 子 Group 若已挂在别处，会先从原父节点摘下。
func (g *Group) AddChild(n Node) {
	if g == nil || g.destroyed || n == nil {
		return
	}
	if child, ok := n.(*Group); ok {
		if child.destroyed || child == g {
			return
		}
		if child.parent != nil {
			child.parent.RemoveChild(child)
		}
		child.parent = g
	}
	g.children = append(g.children, n)
}

// RemoveChild detaches n and reports whether it was a child.
func (g *Group) RemoveChild(n Node) bool {
	if g == nil {
		return false
	}
	for i, c := range g.children {
		if c == n {
			g.children = append(g.children[:i:i], g.children[i+1:]...)
			if child, ok := n.(*Group); ok {
				child.parent = nil
			}
			return true
		}
	}
	return false
}

// RemoveChildren 清空并销毁全部子节点。
func (g *Group) RemoveChildren() {
	if g == nil {
		return
	}
	children := g.children
	g.children = nil
	for _, c := range children {
		if child, ok := c.(*Group); ok {
			child.parent = nil
			child.Destroy()
		}
	}
}

// Children returns a copy of the child list.
func (g *Group) Children() []Node {
	if g == nil {
		return nil
	}
	return append([]Node(nil), g.children...)
}

// Len returns the number of direct children.
func (g *Group) Len() int {
	if g == nil {
		return 0
	}
	return len(g.children)
}

// Parent returns the enclosing group, nil for roots and detached groups.
func (g *Group) Parent() *Group { return g.parent }

// Destroy 释放整棵子树并从父节点摘下。可重复调用。
func (g *Group) Destroy() {
	if g == nil || g.destroyed {
		return
	}
	g.destroyed = true
	if g.parent != nil {
		g.parent.RemoveChild(g)
	}
	g.RemoveChildren()
}

// Destroyed reports whether Destroy has run.
func (g *Group) Destroyed() bool { return g == nil || g.destroyed }

// Walk 深度优先遍历可见节点，回调拿到节点与其累计偏移。回调返回 false 时跳过子树。
func (g *Group) Walk(fn func(n Node, dx, dy float64) bool) {
	g.walk(fn, 0, 0)
}

func (g *Group) walk(fn func(n Node, dx, dy float64) bool, dx, dy float64) {
	if g == nil || g.Hidden {
		return
	}
	if !fn(g, dx, dy) {
		return
	}
	ox, oy := dx+g.X, dy+g.Y
	for _, c := range g.children {
		if child, ok := c.(*Group); ok {
			child.walk(fn, ox, oy)
			continue
		}
		fn(c, ox, oy)
	}
}

// Count 返回子树中叶子图元的数量。
func (g *Group) Count() int {
	n := 0
	g.Walk(func(node Node, _, _ float64) bool {
		if _, ok := node.(*Group); !ok {
			n++
		}
		return true
	})
	return n
}

// AddRegion 把区域中的图元按绘制顺序挂到 g 上：矩形、线、表格、文本。
func (g *Group) AddRegion(r layout.Region) {
	for _, rect := range r.Rects {
		g.AddChild(&Rect{Shape: rect})
	}
	for _, l := range r.Lines {
		g.AddChild(&Line{Shape: l})
	}
	for _, t := range r.Tables {
		g.AddChild(&Table{Box: t})
	}
	for _, tb := range r.Texts {
		g.AddChild(&Text{Box: tb})
	}
}

// Stage 是三层根节点：背景（页面底色）、内容（页面容器）、覆盖层（边距参考框）。
type Stage struct {
	Background *Group
	Content    *Group
	Overlay    *Group
}

// NewStage creates the three layers.
func NewStage() *Stage {
	return &Stage{
		Background: NewGroup("background"),
		Content:    NewGroup("content"),
		Overlay:    NewGroup("overlay"),
	}
}

// Layers returns the layers in paint order.
func (s *Stage) Layers() []*Group {
	return []*Group{s.Background, s.Content, s.Overlay}
}

// Destroy destroys every layer.
func (s *Stage) Destroy() {
	for _, l := range s.Layers() {
		l.Destroy()
	}
}
