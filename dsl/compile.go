package dsl

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/ByLCY/lessoncanvas/layout"
)

// 编译：course → module → lesson 的层级属性逐级继承，每个 lesson 生成一页。

// idNamespace 让同一份大纲每次编译出相同的节点 ID。
var idNamespace = uuid.MustParse("6f1d7a2e-4c0b-5b8e-9a55-3c1f2b7d9e10")

type scope struct {
	meta layout.PageMetadata
	path string
}

type compiler struct {
	pages []layout.PageMetadata
}

// Compile 把解析后的大纲转换成按顺序排列的页面元数据。
func Compile(outline *Outline) ([]layout.PageMetadata, error) {
	if outline == nil {
		return nil, nil
	}
	c := &compiler{}
	root := scope{path: "outline"}
	if err := c.statements(outline.Statements, &root); err != nil {
		return nil, err
	}
	total := len(c.pages)
	for i := range c.pages {
		c.pages[i].PageNumber = i + 1
		c.pages[i].TotalPages = total
	}
	return c.pages, nil
}

// CompileString 解析并编译大纲文本。
func CompileString(input string) ([]layout.PageMetadata, error) {
	outline, err := ParseString(input)
	if err != nil {
		return nil, fmt.Errorf("解析大纲失败: %w", err)
	}
	return Compile(outline)
}

func (c *compiler) statements(stmts []*Statement, s *scope) error {
	for _, st := range stmts {
		switch {
		case st.Assignment != nil:
			if err := assignMeta(&s.meta, st.Assignment); err != nil {
				return err
			}
		case st.Command != nil:
			if err := c.command(st.Command, s); err != nil {
				return err
			}
		case st.Text != nil:
			return fmt.Errorf("大纲顶层不允许裸文本 %q", string(st.Text.Value))
		}
	}
	return nil
}

func (c *compiler) command(cmd *Command, s *scope) error {
	switch cmd.Name {
	case "course":
		child := scope{meta: s.meta, path: s.path + "/course" + strconv.Itoa(len(c.pages))}
		child.meta.CourseTitle = firstArg(cmd)
		return c.statements(blockStatements(cmd), &child)
	case "module":
		child := scope{meta: s.meta, path: s.path + "/module" + strconv.Itoa(len(c.pages))}
		args := argValues(cmd)
		switch len(args) {
		case 0:
		case 1:
			child.meta.ModuleTitle = args[0]
		default:
			child.meta.ModuleID, child.meta.ModuleTitle = args[0], args[1]
		}
		return c.statements(blockStatements(cmd), &child)
	case "lesson":
		page, err := compileLesson(cmd, s.meta, fmt.Sprintf("%s/lesson%d", s.path, len(c.pages)))
		if err != nil {
			return err
		}
		c.pages = append(c.pages, page)
		return nil
	case "header", "footer":
		return setFieldConfig(&s.meta, cmd)
	default:
		return fmt.Errorf("%s: 未知指令 %q", cmd.Pos, cmd.Name)
	}
}

func assignMeta(meta *layout.PageMetadata, a *Assignment) error {
	value := strings.TrimSpace(a.Value.Text())
	switch a.Key {
	case "id":
		meta.LessonID = value
	case "title":
		meta.LessonTitle = value
	case "teacher":
		meta.Teacher = value
	case "institution":
		meta.Institution = value
	case "method":
		meta.Method = value
	case "socialForm", "social-form", "social_form":
		meta.SocialForm = value
	case "copyright":
		meta.Copyright = value
	case "course":
		meta.CourseTitle = value
	case "module":
		meta.ModuleTitle = value
	case "date":
		d, err := layout.ParseDate(value)
		if err != nil {
			return fmt.Errorf("%s: %w", a.Pos, err)
		}
		meta.Date = d
	case "duration":
		n, err := strconv.Atoi(strings.TrimSuffix(value, "min"))
		if err != nil || n < 0 {
			return fmt.Errorf("%s: duration 需要非负整数分钟，得到 %q", a.Pos, value)
		}
		meta.Duration = n
	default:
		return fmt.Errorf("%s: 未知属性 %q", a.Pos, a.Key)
	}
	return nil
}

// setFieldConfig 解析 header { field lesson "Label" "${course}" } 这样的字段配置。
func setFieldConfig(meta *layout.PageMetadata, cmd *Command) error {
	var specs []layout.FieldSpec
	for _, st := range blockStatements(cmd) {
		if st.Command == nil || st.Command.Name != "field" {
			return fmt.Errorf("%s: %s 中只允许 field 指令", cmd.Pos, cmd.Name)
		}
		args := argValues(st.Command)
		if len(args) == 0 {
			return fmt.Errorf("%s: field 缺少键名", st.Command.Pos)
		}
		spec := layout.FieldSpec{Key: args[0]}
		if len(args) > 1 {
			spec.Label = args[1]
		}
		if len(args) > 2 {
			spec.Value = args[2]
		}
		specs = append(specs, spec)
	}
	cfg := layout.FieldConfig{}
	if meta.FieldConfig != nil {
		cfg = *meta.FieldConfig
	}
	if cmd.Name == "header" {
		cfg.Header = specs
	} else {
		cfg.Footer = specs
	}
	meta.FieldConfig = &cfg
	return nil
}

type lessonBuilder struct {
	path      string
	counter   int
	structure layout.StructureSummary
}

func (b *lessonBuilder) id(kind string) string {
	b.counter++
	return uuid.NewSHA1(idNamespace, []byte(fmt.Sprintf("%s/%s%d", b.path, kind, b.counter))).String()
}

func compileLesson(cmd *Command, inherited layout.PageMetadata, path string) (layout.PageMetadata, error) {
	meta := inherited
	meta.LessonTitle = firstArg(cmd)
	b := &lessonBuilder{path: path}

	lessonBlock := &layout.LayoutNode{ID: b.id("block"), Role: layout.RoleLesson}
	var blocks []*layout.LayoutNode
	flushLesson := func() {
		if len(lessonBlock.Children) > 0 {
			blocks = append(blocks, lessonBlock)
			lessonBlock = &layout.LayoutNode{ID: b.id("block"), Role: layout.RoleLesson}
		}
	}

	for _, st := range blockStatements(cmd) {
		switch {
		case st.Assignment != nil:
			if err := assignMeta(&meta, st.Assignment); err != nil {
				return meta, err
			}
		case st.Text != nil:
			flushLesson()
			blocks = append(blocks, &layout.LayoutNode{ID: b.id("message"), Role: layout.RoleMessage, Data: &layout.MessageData{Text: string(st.Text.Value)}})
		case st.Command != nil:
			sub := st.Command
			switch sub.Name {
			case "topic":
				node, err := b.item(sub, layout.RoleTopic)
				if err != nil {
					return meta, err
				}
				lessonBlock.Children = append(lessonBlock.Children, node)
			case "content", "assignment":
				flushLesson()
				node, err := b.content(sub)
				if err != nil {
					return meta, err
				}
				blocks = append(blocks, node)
			case "table":
				flushLesson()
				node, err := b.table(sub)
				if err != nil {
					return meta, err
				}
				blocks = append(blocks, node)
			case "program":
				flushLesson()
				node, err := b.program(sub)
				if err != nil {
					return meta, err
				}
				blocks = append(blocks, node)
			case "message":
				flushLesson()
				blocks = append(blocks, &layout.LayoutNode{ID: b.id("message"), Role: layout.RoleMessage, Data: &layout.MessageData{Text: firstArg(sub)}})
			case "header", "footer":
				if err := setFieldConfig(&meta, sub); err != nil {
					return meta, err
				}
			default:
				return meta, fmt.Errorf("%s: lesson 中未知指令 %q", sub.Pos, sub.Name)
			}
		}
	}
	flushLesson()

	if len(blocks) > 0 && blocks[0].Role == layout.RoleLesson {
		blocks[0].Data = &layout.BlockData{Title: meta.LessonTitle, Kind: "lesson"}
	}
	if b.structure != (layout.StructureSummary{}) {
		summary := b.structure
		meta.Structure = &summary
		if len(blocks) > 0 {
			if bd, ok := blocks[0].Data.(*layout.BlockData); ok && bd.Summary == nil {
				bd.Summary = &summary
			}
		}
	}

	root := &layout.LayoutNode{ID: b.id("page"), Role: layout.RoleRoot}
	header := &layout.LayoutNode{ID: b.id("header"), Role: layout.RoleHeader}
	footer := &layout.LayoutNode{ID: b.id("footer"), Role: layout.RoleFooter}
	if meta.FieldConfig != nil {
		header.Data = &layout.FieldsData{Fields: meta.FieldConfig.Header}
		footer.Data = &layout.FieldsData{Fields: meta.FieldConfig.Footer}
	}
	body := &layout.LayoutNode{ID: layout.BodyNodeID, Role: layout.RoleBody, Children: blocks}
	root.Children = []*layout.LayoutNode{header, body, footer}
	meta.Layout = root
	return meta, nil
}

// item 编译 topic/objective/task 子树。
func (b *lessonBuilder) item(cmd *Command, role layout.Role) (*layout.LayoutNode, error) {
	node := &layout.LayoutNode{ID: b.id(string(role)), Role: role}
	data := &layout.ItemData{Title: firstArg(cmd)}
	node.Data = data
	switch role {
	case layout.RoleTopic:
		b.structure.Topics++
	case layout.RoleObjective:
		b.structure.Objectives++
	case layout.RoleTask:
		b.structure.Tasks++
	}
	for _, st := range blockStatements(cmd) {
		switch {
		case st.Assignment != nil:
			if st.Assignment.Key != "description" {
				return nil, fmt.Errorf("%s: %s 中未知属性 %q", st.Assignment.Pos, role, st.Assignment.Key)
			}
			data.Description = st.Assignment.Value.Text()
		case st.Text != nil:
			node.Children = append(node.Children, &layout.LayoutNode{ID: b.id("message"), Role: layout.RoleMessage, Data: &layout.MessageData{Text: string(st.Text.Value)}})
		case st.Command != nil:
			childRole, ok := childRoles[role]
			if !ok || st.Command.Name != string(childRole) {
				return nil, fmt.Errorf("%s: %s 中不允许 %q", st.Command.Pos, role, st.Command.Name)
			}
			child, err := b.item(st.Command, childRole)
			if err != nil {
				return nil, err
			}
			node.Children = append(node.Children, child)
		}
	}
	return node, nil
}

var childRoles = map[layout.Role]layout.Role{
	layout.RoleTopic:     layout.RoleObjective,
	layout.RoleObjective: layout.RoleTask,
}

func (b *lessonBuilder) content(cmd *Command) (*layout.LayoutNode, error) {
	role := layout.Role(cmd.Name)
	node := &layout.LayoutNode{ID: b.id(cmd.Name), Role: role}
	data := &layout.BlockData{Title: firstArg(cmd), Kind: cmd.Name}
	node.Data = data
	for _, st := range blockStatements(cmd) {
		switch {
		case st.Assignment != nil && st.Assignment.Key == "message":
			data.Message = st.Assignment.Value.Text()
		case st.Command != nil && st.Command.Name == "topic":
			child, err := b.item(st.Command, layout.RoleTopic)
			if err != nil {
				return nil, err
			}
			node.Children = append(node.Children, child)
		case st.Text != nil:
			node.Children = append(node.Children, &layout.LayoutNode{ID: b.id("message"), Role: layout.RoleMessage, Data: &layout.MessageData{Text: string(st.Text.Value)}})
		default:
			return nil, fmt.Errorf("%s: %s 中只允许 topic 指令", cmd.Pos, cmd.Name)
		}
	}
	return node, nil
}

// table 编译 table "Title" { column key "Label"; row { key: "v" }; empty: "…"; depth: 1 }。
func (b *lessonBuilder) table(cmd *Command) (*layout.LayoutNode, error) {
	td := &layout.TableData{}
	for _, st := range blockStatements(cmd) {
		switch {
		case st.Assignment != nil:
			switch st.Assignment.Key {
			case "empty":
				td.EmptyMessage = st.Assignment.Value.Text()
			case "depth":
				n, err := strconv.Atoi(st.Assignment.Value.Text())
				if err != nil {
					return nil, fmt.Errorf("%s: depth 需要整数", st.Assignment.Pos)
				}
				td.Depth = n
			default:
				return nil, fmt.Errorf("%s: table 中未知属性 %q", st.Assignment.Pos, st.Assignment.Key)
			}
		case st.Command != nil && st.Command.Name == "column":
			args := argValues(st.Command)
			if len(args) == 0 {
				return nil, fmt.Errorf("%s: column 缺少键名", st.Command.Pos)
			}
			col := layout.TableColumn{Key: args[0], Label: args[0]}
			if len(args) > 1 {
				col.Label = args[1]
			}
			td.Columns = append(td.Columns, col)
		case st.Command != nil && st.Command.Name == "row":
			row := map[string]string{}
			for _, cell := range blockStatements(st.Command) {
				if cell.Assignment == nil {
					return nil, fmt.Errorf("%s: row 中只允许 key: value", st.Command.Pos)
				}
				row[cell.Assignment.Key] = cell.Assignment.Value.Text()
			}
			td.Rows = append(td.Rows, row)
		default:
			return nil, fmt.Errorf("%s: table 中只允许 column/row", cmd.Pos)
		}
	}
	return &layout.LayoutNode{ID: b.id("table"), Role: layout.RoleTable, Data: &layout.BlockData{Title: firstArg(cmd), Kind: "table", Table: td}}, nil
}

// program 编译 program { competency "…" { topic "…" { objective "…" { task "…" } } } }。
func (b *lessonBuilder) program(cmd *Command) (*layout.LayoutNode, error) {
	pd := &layout.ProgramData{}
	for _, st := range blockStatements(cmd) {
		if st.Command == nil || st.Command.Name != "competency" {
			return nil, fmt.Errorf("%s: program 中只允许 competency", cmd.Pos)
		}
		comp := layout.Competency{Title: firstArg(st.Command)}
		for _, ts := range blockStatements(st.Command) {
			if ts.Command == nil || ts.Command.Name != "topic" {
				return nil, fmt.Errorf("%s: competency 中只允许 topic", st.Command.Pos)
			}
			topic := layout.ProgramTopic{Title: firstArg(ts.Command)}
			for _, ob := range blockStatements(ts.Command) {
				if ob.Command == nil || ob.Command.Name != "objective" {
					return nil, fmt.Errorf("%s: topic 中只允许 objective", ts.Command.Pos)
				}
				obj := layout.ProgramObjective{Title: firstArg(ob.Command)}
				for _, task := range blockStatements(ob.Command) {
					if task.Command == nil || task.Command.Name != "task" {
						return nil, fmt.Errorf("%s: objective 中只允许 task", ob.Command.Pos)
					}
					obj.Tasks = append(obj.Tasks, firstArg(task.Command))
				}
				topic.Objectives = append(topic.Objectives, obj)
			}
			comp.Topics = append(comp.Topics, topic)
		}
		pd.Competencies = append(pd.Competencies, comp)
	}
	return &layout.LayoutNode{ID: b.id("program"), Role: layout.RoleProgram, Data: &layout.BlockData{Title: firstArg(cmd), Kind: "program", Program: pd}}, nil
}

func blockStatements(cmd *Command) []*Statement {
	if cmd == nil || cmd.Block == nil {
		return nil
	}
	return cmd.Block.Statements
}

func argValues(cmd *Command) []string {
	out := make([]string, 0, len(cmd.Args))
	for _, a := range cmd.Args {
		out = append(out, string(a.Value))
	}
	return out
}

func firstArg(cmd *Command) string {
	if len(cmd.Args) == 0 {
		return ""
	}
	return string(cmd.Args[0].Value)
}
