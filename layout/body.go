package layout

import (
	"fmt"
	"strings"
)

const (
	bodyIndentStep = 24.0
	blockGap       = 28.0
	titleGap       = 10.0
	itemGap        = 6.0
	separatorWidth = 1.0
)

const defaultEmptyBodyMessage = "No lesson content yet. Add topics, objectives or a table to fill this page."

// bodyCursor 记录正文排版的当前位置。内容超出区域底部时 full 置位，后续内容不再输出。
type bodyCursor struct {
	region *Region
	x      float64
	width  float64
	y      float64
	bottom float64
	ts     Typesetter
	opts   RenderOptions
	full   bool
}

// place 排版一段文本；放不下时标记溢出并返回 false。
func (c *bodyCursor) place(content string, indent float64, style TextStyle) (bool, error) {
	if c.full {
		return false, nil
	}
	if indent > c.width/2 {
		indent = c.width / 2
	}
	tb, h, err := composeText(content, c.x+indent, c.y, c.width-indent, style, c.ts)
	if err != nil {
		return false, err
	}
	if c.y+h > c.bottom {
		c.overflow()
		return false, nil
	}
	c.region.appendText(tb)
	c.y += h
	return true, nil
}

func (c *bodyCursor) gap(h float64) {
	if !c.full {
		c.y += h
	}
}

func (c *bodyCursor) overflow() {
	if !c.full {
		c.opts.logger().Debug("正文内容超出页面区域", "y", c.y, "bottom", c.bottom)
	}
	c.full = true
	c.region.Overflow = true
}

// RenderBody 把页面的正文节点排版进 bounds。
// 没有可渲染内容时输出一条居中提示，区域永远不为空。
func RenderBody(meta *PageMetadata, bounds Bounds, opts RenderOptions) (Region, error) {
	region := Region{Bounds: bounds}
	if bounds.Width <= 0 || bounds.Height <= 0 {
		return region, nil
	}
	c := &bodyCursor{
		region: &region,
		x:      bounds.X,
		width:  bounds.Width,
		y:      bounds.Y,
		bottom: bounds.Bottom(),
		ts:     opts.typesetter(),
		opts:   opts,
	}

	var root *LayoutNode
	if meta != nil {
		root = meta.Layout
	}
	body := FindBody(root)
	if body != nil {
		rendered := 0
		for _, block := range body.Children {
			if block == nil {
				continue
			}
			if rendered > 0 {
				c.separator()
			}
			before := len(region.Texts) + len(region.Tables)
			if err := c.block(block); err != nil {
				return region, err
			}
			if len(region.Texts)+len(region.Tables) > before {
				rendered++
			}
			if c.full {
				break
			}
		}
	}

	if len(region.Texts) == 0 && len(region.Tables) == 0 {
		region.Lines = nil
		region.Overflow = false
		return region, renderEmptyBody(&region, opts)
	}
	return region, nil
}

func renderEmptyBody(region *Region, opts RenderOptions) error {
	msg := opts.label("emptyBody", defaultEmptyBodyMessage)
	b := region.Bounds
	width := b.Width * 0.8
	tb, h, err := composeText(msg, b.X+(b.Width-width)/2, 0, width, StylePlaceholder, opts.typesetter())
	if err != nil {
		return err
	}
	tb.Y = b.Y + (b.Height-h)/2
	if tb.Y < b.Y {
		tb.Y = b.Y
	}
	region.appendText(tb)
	return nil
}

func (c *bodyCursor) separator() {
	if c.full {
		return
	}
	mid := c.y + blockGap/2
	if mid > c.bottom {
		c.overflow()
		return
	}
	c.region.appendLine(Line{X1: c.x, Y1: mid, X2: c.x + c.width, Y2: mid, Color: ColorRule, Width: separatorWidth})
	c.y += blockGap
}

// block 渲染正文下的一个课时级块。
func (c *bodyCursor) block(node *LayoutNode) error {
	switch data := node.Data.(type) {
	case *BlockData:
		return c.blockData(node, data)
	case *MessageData:
		_, err := c.place(data.Text, 0, StyleMessage)
		return err
	case *ItemData:
		// 直接挂在正文下的主题/目标/任务按单节点子树处理。
		return c.tree([]*LayoutNode{node})
	case *FieldsData:
		return nil
	case nil:
		if len(node.Children) > 0 {
			return c.tree(node.Children)
		}
		return c.unsupported(node)
	default:
		return c.unsupported(node)
	}
}

func (c *bodyCursor) unsupported(node *LayoutNode) error {
	c.opts.logger().Warn("无法识别的正文节点，使用占位文本", "id", node.ID, "role", string(node.Role))
	_, err := c.place(c.opts.label("unsupported", "Unsupported content"), 0, StyleMessage)
	return err
}

func (c *bodyCursor) blockData(node *LayoutNode, data *BlockData) error {
	if title := strings.TrimSpace(data.Title); title != "" && !IsGenericTitle(title) && !IsPlaceholder(title) {
		if _, err := c.place(title, 0, StyleTitle); err != nil {
			return err
		}
		c.gap(titleGap / 2)
	}
	if data.Summary != nil && !data.Summary.empty() {
		if _, err := c.place(SummaryLine(*data.Summary), 0, StyleSummary); err != nil {
			return err
		}
		c.gap(titleGap)
	}

	switch {
	case data.Table.HasContent():
		return c.table(data.Table)
	case data.Program.HasContent():
		return c.program(data.Program)
	case hasTreeChildren(node):
		return c.tree(node.Children)
	case data.Table != nil:
		msg := strings.TrimSpace(data.Table.EmptyMessage)
		if msg == "" {
			msg = c.opts.label("emptyTable", "No entries yet")
		}
		_, err := c.place(msg, float64(max(data.Table.Depth, 0))*bodyIndentStep, StyleMessage)
		return err
	case strings.TrimSpace(data.Message) != "":
		_, err := c.place(data.Message, 0, StyleMessage)
		return err
	}
	return nil
}

func (c *bodyCursor) table(table *TableData) error {
	if c.full {
		return nil
	}
	box, h, ok, err := layoutTable(table, c.x, c.y, c.width, c.ts)
	if err != nil || !ok {
		return err
	}
	if c.y+h > c.bottom {
		c.overflow()
		return nil
	}
	c.region.appendTable(box)
	c.y += h
	return nil
}

func hasTreeChildren(node *LayoutNode) bool {
	for _, child := range node.Children {
		if child == nil {
			continue
		}
		switch child.Role {
		case RoleTopic, RoleObjective, RoleTask, RoleMessage:
			return true
		}
	}
	return false
}

// tree 渲染主题→目标→任务子树。主题位于基础缩进，目标缩进一级，任务缩进两级。
func (c *bodyCursor) tree(nodes []*LayoutNode) error {
	topicN := 0
	for _, node := range nodes {
		if node == nil || c.full {
			continue
		}
		switch node.Role {
		case RoleTopic:
			topicN++
			if err := c.item(node, "Topic", topicN, fmt.Sprintf("%d.", topicN), 0, StyleTopic); err != nil {
				return err
			}
			if err := c.objectives(node.Children, topicN); err != nil {
				return err
			}
		case RoleObjective:
			// 没有主题包裹的目标挂在虚拟主题 1 下。
			if err := c.objectives([]*LayoutNode{node}, max(topicN, 1)); err != nil {
				return err
			}
		case RoleTask:
			if err := c.tasks([]*LayoutNode{node}); err != nil {
				return err
			}
		case RoleMessage:
			if err := c.message(node, 0); err != nil {
				return err
			}
		default:
			if err := c.tree(node.Children); err != nil {
				return err
			}
		}
	}
	return nil
}

func (c *bodyCursor) objectives(nodes []*LayoutNode, topicN int) error {
	objN := 0
	for _, node := range nodes {
		if node == nil || c.full {
			continue
		}
		switch node.Role {
		case RoleObjective:
			objN++
			if err := c.item(node, "Objective", objN, fmt.Sprintf("%d.%d", topicN, objN), bodyIndentStep, StyleObjective); err != nil {
				return err
			}
			if err := c.tasks(node.Children); err != nil {
				return err
			}
		case RoleTask:
			if err := c.tasks([]*LayoutNode{node}); err != nil {
				return err
			}
		case RoleMessage:
			if err := c.message(node, bodyIndentStep); err != nil {
				return err
			}
		}
	}
	return nil
}

func (c *bodyCursor) tasks(nodes []*LayoutNode) error {
	taskN := 0
	for _, node := range nodes {
		if node == nil || c.full {
			continue
		}
		switch node.Role {
		case RoleTask:
			taskN++
			if err := c.item(node, "Task", taskN, letterMarker(taskN)+")", 2*bodyIndentStep, StyleTask); err != nil {
				return err
			}
		case RoleMessage:
			if err := c.message(node, 2*bodyIndentStep); err != nil {
				return err
			}
		}
	}
	return nil
}

func (c *bodyCursor) item(node *LayoutNode, kind string, n int, marker string, indent float64, style TextStyle) error {
	var title, description string
	if d, ok := node.Data.(*ItemData); ok {
		title, description = d.Title, d.Description
	}
	label := ResolveLabel(title, c.opts.label(strings.ToLower(kind), kind), n)
	if _, err := c.place(marker+" "+label, indent, style); err != nil {
		return err
	}
	if strings.TrimSpace(description) != "" {
		if _, err := c.place(description, indent+bodyIndentStep/2, StyleSummary); err != nil {
			return err
		}
	}
	c.gap(itemGap)
	return nil
}

func (c *bodyCursor) message(node *LayoutNode, indent float64) error {
	d, ok := node.Data.(*MessageData)
	if !ok || strings.TrimSpace(d.Text) == "" {
		return nil
	}
	_, err := c.place(d.Text, indent, StyleMessage)
	c.gap(itemGap)
	return err
}

// program 把能力→主题→目标→任务展开成带编号的列表。
func (c *bodyCursor) program(p *ProgramData) error {
	for ci, comp := range p.Competencies {
		if c.full {
			return nil
		}
		cn := ci + 1
		label := ResolveLabel(comp.Title, c.opts.label("competency", "Competency"), cn)
		if _, err := c.place(fmt.Sprintf("%d. %s", cn, label), 0, StyleTopic); err != nil {
			return err
		}
		c.gap(itemGap)
		for ti, topic := range comp.Topics {
			tn := ti + 1
			label := ResolveLabel(topic.Title, c.opts.label("topic", "Topic"), tn)
			if _, err := c.place(fmt.Sprintf("%d.%d %s", cn, tn, label), bodyIndentStep, StyleObjective); err != nil {
				return err
			}
			c.gap(itemGap)
			for oi, obj := range topic.Objectives {
				on := oi + 1
				label := ResolveLabel(obj.Title, c.opts.label("objective", "Objective"), on)
				if _, err := c.place(fmt.Sprintf("%d.%d.%d %s", cn, tn, on, label), 2*bodyIndentStep, StyleTask); err != nil {
					return err
				}
				c.gap(itemGap)
				for ki, task := range obj.Tasks {
					kn := ki + 1
					label := ResolveLabel(task, c.opts.label("task", "Task"), kn)
					if _, err := c.place(letterMarker(kn)+") "+label, 3*bodyIndentStep, StyleTask); err != nil {
						return err
					}
					c.gap(itemGap)
				}
			}
		}
	}
	return nil
}

// letterMarker 返回 a, b, …, z, aa, ab, … 形式的序号。
func letterMarker(n int) string {
	if n <= 0 {
		return "a"
	}
	var b []byte
	for n > 0 {
		n--
		b = append([]byte{byte('a' + n%26)}, b...)
		n /= 26
	}
	return string(b)
}

func (s StructureSummary) empty() bool {
	return s.Topics == 0 && s.Objectives == 0 && s.Tasks == 0
}

// SummaryLine 返回 "3 topics • 5 objectives • 8 tasks" 形式的结构摘要。
func SummaryLine(s StructureSummary) string {
	return fmt.Sprintf("%s • %s • %s",
		plural(s.Topics, "topic"), plural(s.Objectives, "objective"), plural(s.Tasks, "task"))
}

func plural(n int, word string) string {
	if n == 1 {
		return fmt.Sprintf("%d %s", n, word)
	}
	return fmt.Sprintf("%d %ss", n, word)
}
