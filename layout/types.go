package layout

// 该文件定义排版产物（可直接绘制的图元），供页面容器、渲染器与调试 JSON 共用。
// 所有坐标与尺寸均为世界像素（缩放 1.0 时的像素）。

// Bounds 表示一个轴对齐矩形区域。
type Bounds struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Right returns X+Width.
func (b Bounds) Right() float64 { return b.X + b.Width }

// Bottom returns Y+Height.
func (b Bounds) Bottom() float64 { return b.Y + b.Height }

// Inset 向内收缩，结果宽高不会为负。
func (b Bounds) Inset(m Margins) Bounds {
	out := Bounds{X: b.X + m.Left, Y: b.Y + m.Top, Width: b.Width - m.Left - m.Right, Height: b.Height - m.Top - m.Bottom}
	if out.Width < 0 {
		out.Width = 0
	}
	if out.Height < 0 {
		out.Height = 0
	}
	return out
}

// Color 采用 0-255 的 RGBA 数值，A 为 0 时按不透明处理。
type Color struct {
	R int `json:"r"`
	G int `json:"g"`
	B int `json:"b"`
	A int `json:"a,omitempty"`
}

// Alpha 返回 0-255 的不透明度。
func (c Color) Alpha() int {
	if c.A == 0 {
		return 255
	}
	return c.A
}

var (
	ColorText      = Color{R: 30, G: 30, B: 30}
	ColorMuted     = Color{R: 110, G: 110, B: 120}
	ColorRule      = Color{R: 200, G: 200, B: 200}
	ColorHeaderRow = Color{R: 248, G: 248, B: 248}
	ColorPage      = Color{R: 255, G: 255, B: 255}
)

// TextBox 表示一个已经排好坐标的文本块。
type TextBox struct {
	Content    string     `json:"content"`
	X          float64    `json:"x"`
	Y          float64    `json:"y"`
	Width      float64    `json:"width"`
	LineHeight float64    `json:"lineHeight"`
	Font       string     `json:"font"`
	FontSize   float64    `json:"fontSize"`
	Color      Color      `json:"color"`
	Lines      []TextLine `json:"lines"`
	Height     float64    `json:"height"`
	Align      string     `json:"align,omitempty"` // left/center/right（默认 left）
	Wrap       string     `json:"wrap,omitempty"`  // anywhere(默认)/break-word/nowrap
	Role       string     `json:"role,omitempty"`  // title/summary/topic/objective/task/label/value/placeholder 等
}

// TextLine 表示排版后的一行文本内容及其宽高。
type TextLine struct {
	Content   string  `json:"content"`
	Width     float64 `json:"width"`
	Height    float64 `json:"height"`
	GapBefore float64 `json:"gapBefore,omitempty"`
}

// TableBox 保存表格布局信息。
type TableBox struct {
	X            float64    `json:"x"`
	Y            float64    `json:"y"`
	Width        float64    `json:"width"`
	Height       float64    `json:"height"`
	ColumnWidths []float64  `json:"columnWidths"`
	Rows         []TableRow `json:"rows"`
	BorderColor  Color      `json:"borderColor"`
}

// TableRow 记录每一行的高度与单元格。
type TableRow struct {
	Y        float64     `json:"y"`
	Height   float64     `json:"height"`
	IsHeader bool        `json:"isHeader"`
	Cells    []TableCell `json:"cells"`
}

// TableCell 复用 TextBox 作为单元格内容。
type TableCell struct {
	Text TextBox `json:"text"`
}

// Line 表示一条线段。
type Line struct {
	X1    float64 `json:"x1"`
	Y1    float64 `json:"y1"`
	X2    float64 `json:"x2"`
	Y2    float64 `json:"y2"`
	Color Color   `json:"color"`
	Width float64 `json:"width"` // <=0 时由渲染器给默认值
}

// Rect 表示一个矩形（不包含圆角）。
type Rect struct {
	X           float64 `json:"x"`
	Y           float64 `json:"y"`
	Width       float64 `json:"width"`
	Height      float64 `json:"height"`
	StrokeColor Color   `json:"strokeColor"`
	StrokeWidth float64 `json:"strokeWidth"`
	FillColor   *Color  `json:"fillColor,omitempty"` // 为空表示不填充
}

// Region 收集某个区域（页眉/正文/页脚）排版出的图元。
type Region struct {
	Bounds   Bounds     `json:"bounds"`
	Texts    []TextBox  `json:"texts"`
	Tables   []TableBox `json:"tables"`
	Lines    []Line     `json:"lines,omitempty"`
	Rects    []Rect     `json:"rects,omitempty"`
	Overflow bool       `json:"overflow,omitempty"`
}

func (r *Region) appendText(tb TextBox) {
	r.Texts = append(r.Texts, tb)
}

func (r *Region) appendTable(t TableBox) {
	r.Tables = append(r.Tables, t)
}

func (r *Region) appendLine(l Line) {
	r.Lines = append(r.Lines, l)
}

// Empty reports whether nothing was laid out.
func (r *Region) Empty() bool {
	return len(r.Texts) == 0 && len(r.Tables) == 0 && len(r.Lines) == 0 && len(r.Rects) == 0
}
