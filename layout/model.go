package layout

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// 该文件定义引擎的输入模型：页面元数据与正文的 LayoutNode 树。

// PageMetadata 描述一页的全部内容。交给引擎后视为只读。
type PageMetadata struct {
	PageNumber  int               `json:"pageNumber"`
	TotalPages  int               `json:"totalPages"`
	LessonID    string            `json:"lessonId,omitempty"`
	LessonTitle string            `json:"lessonTitle,omitempty"`
	ModuleID    string            `json:"moduleId,omitempty"`
	ModuleTitle string            `json:"moduleTitle,omitempty"`
	CourseTitle string            `json:"courseTitle,omitempty"`
	Teacher     string            `json:"teacher,omitempty"`
	Institution string            `json:"institution,omitempty"`
	Date        Date              `json:"date,omitempty"`
	Method      string            `json:"method,omitempty"`
	SocialForm  string            `json:"socialForm,omitempty"`
	Duration    int               `json:"duration,omitempty"` // 分钟
	Structure   *StructureSummary `json:"structure,omitempty"`
	Copyright   string            `json:"copyright,omitempty"`
	FieldConfig *FieldConfig      `json:"fieldConfig,omitempty"`
	Layout      *LayoutNode       `json:"layout,omitempty"`
}

// StructureSummary 是课时的结构统计。
type StructureSummary struct {
	Topics     int `json:"topics"`
	Objectives int `json:"objectives"`
	Tasks      int `json:"tasks"`
}

// FieldConfig 为单页覆盖页眉/页脚字段顺序与取值。
type FieldConfig struct {
	Header []FieldSpec `json:"header,omitempty"`
	Footer []FieldSpec `json:"footer,omitempty"`
}

// FieldSpec 描述一个字段；Value 非空时覆盖元数据中的值，可包含 ${key} 模板。
type FieldSpec struct {
	Key   string `json:"key"`
	Label string `json:"label,omitempty"`
	Value string `json:"value,omitempty"`
}

// Role 是 LayoutNode 的类型标签。
type Role string

const (
	RoleRoot       Role = "page"
	RoleHeader     Role = "header"
	RoleBody       Role = "body"
	RoleFooter     Role = "footer"
	RoleLesson     Role = "lesson"
	RoleContent    Role = "content"
	RoleAssignment Role = "assignment"
	RoleProgram    Role = "program"
	RoleTable      Role = "table"
	RoleTopic      Role = "topic"
	RoleObjective  Role = "objective"
	RoleTask       Role = "task"
	RoleMessage    Role = "message"
)

// BodyNodeID 是正文节点的约定 ID。
const BodyNodeID = "lesson-body"

// LayoutNode 是带标签的树节点。
type LayoutNode struct {
	ID       string        `json:"id"`
	Role     Role          `json:"role"`
	Data     NodeData      `json:"data,omitempty"`
	Children []*LayoutNode `json:"children,omitempty"`
}

// NodeData 是节点负载的封闭联合类型，只能是本包定义的几种变体。
type NodeData interface {
	nodeData()
}

// FieldsData 是页眉/页脚节点携带的字段配置。
type FieldsData struct {
	Fields []FieldSpec `json:"fields,omitempty"`
}

// BlockData 是正文中课时级块的负载。
type BlockData struct {
	Title   string            `json:"title,omitempty"`
	Kind    string            `json:"kind,omitempty"`
	Summary *StructureSummary `json:"summary,omitempty"`
	Table   *TableData        `json:"table,omitempty"`
	Program *ProgramData      `json:"program,omitempty"`
	Message string            `json:"message,omitempty"`
}

// ItemData 是主题/目标/任务节点的负载。
type ItemData struct {
	Title       string `json:"title,omitempty"`
	Description string `json:"description,omitempty"`
}

// MessageData 是纯文本提示节点。
type MessageData struct {
	Text string `json:"text"`
}

func (*FieldsData) nodeData()  {}
func (*BlockData) nodeData()   {}
func (*ItemData) nodeData()    {}
func (*MessageData) nodeData() {}

// TableColumn 是表格列定义。
type TableColumn struct {
	Key   string `json:"key"`
	Label string `json:"label"`
}

// TableData 描述一张表格。
type TableData struct {
	Columns      []TableColumn       `json:"columns"`
	Rows         []map[string]string `json:"rows"`
	Depth        int                 `json:"depth,omitempty"`
	EmptyMessage string              `json:"emptyMessage,omitempty"`
}

// HasContent 判断表格是否有实际单元格内容。
func (t *TableData) HasContent() bool {
	if t == nil || len(t.Columns) == 0 {
		return false
	}
	for _, row := range t.Rows {
		for _, col := range t.Columns {
			if strings.TrimSpace(row[col.Key]) != "" {
				return true
			}
		}
	}
	return false
}

// ProgramData 描述能力→主题→目标→任务的教学计划。
type ProgramData struct {
	Competencies []Competency `json:"competencies"`
}

type Competency struct {
	Title  string         `json:"title"`
	Topics []ProgramTopic `json:"topics,omitempty"`
}

type ProgramTopic struct {
	Title      string             `json:"title"`
	Objectives []ProgramObjective `json:"objectives,omitempty"`
}

type ProgramObjective struct {
	Title string   `json:"title"`
	Tasks []string `json:"tasks,omitempty"`
}

// HasContent 判断计划中是否至少有一个能力。
func (p *ProgramData) HasContent() bool {
	return p != nil && len(p.Competencies) > 0
}

// FindBody 返回树中的正文节点（role "body" 或 id "lesson-body"），找不到时返回 nil。
func FindBody(root *LayoutNode) *LayoutNode {
	if root == nil {
		return nil
	}
	if root.Role == RoleBody || root.ID == BodyNodeID {
		return root
	}
	for _, child := range root.Children {
		if found := FindBody(child); found != nil {
			return found
		}
	}
	return nil
}

// FindRole 返回第一个直接或间接子节点中 role 匹配的节点。
func FindRole(root *LayoutNode, role Role) *LayoutNode {
	if root == nil {
		return nil
	}
	if root.Role == role {
		return root
	}
	for _, child := range root.Children {
		if found := FindRole(child, role); found != nil {
			return found
		}
	}
	return nil
}

type layoutNodeJSON struct {
	ID       string          `json:"id"`
	Role     Role            `json:"role"`
	Data     json.RawMessage `json:"data,omitempty"`
	Children []*LayoutNode   `json:"children,omitempty"`
}

// UnmarshalJSON 根据 role 选择 data 的具体类型。
func (n *LayoutNode) UnmarshalJSON(b []byte) error {
	var raw layoutNodeJSON
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	n.ID = raw.ID
	n.Role = Role(strings.ToLower(strings.TrimSpace(string(raw.Role))))
	n.Children = raw.Children
	n.Data = nil
	if len(raw.Data) == 0 || string(raw.Data) == "null" {
		return nil
	}
	data := newNodeData(n.Role)
	if err := json.Unmarshal(raw.Data, data); err != nil {
		return fmt.Errorf("节点 %s(%s) 的 data 无法解析: %w", n.ID, n.Role, err)
	}
	n.Data = data
	return nil
}

func newNodeData(role Role) NodeData {
	switch role {
	case RoleHeader, RoleFooter:
		return &FieldsData{}
	case RoleTopic, RoleObjective, RoleTask:
		return &ItemData{}
	case RoleMessage:
		return &MessageData{}
	default:
		return &BlockData{}
	}
}

// Date 是排课日期，JSON 中接受 "2006-01-02" 或 RFC3339。
type Date struct {
	time.Time
}

// DateLayout 是日期的规范文本格式。
const DateLayout = "2006-01-02"

// ParseDate parses either DateLayout or RFC3339.
func ParseDate(s string) (Date, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Date{}, nil
	}
	if t, err := time.Parse(DateLayout, s); err == nil {
		return Date{Time: t}, nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return Date{}, fmt.Errorf("无法解析日期 %q: %w", s, err)
	}
	return Date{Time: t}, nil
}

func (d Date) MarshalJSON() ([]byte, error) {
	if d.IsZero() {
		return []byte(`""`), nil
	}
	return json.Marshal(d.Format(DateLayout))
}

func (d *Date) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	v, err := ParseDate(s)
	if err != nil {
		return err
	}
	*d = v
	return nil
}
