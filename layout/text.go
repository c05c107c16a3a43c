package layout

import (
	"math"
	"strings"
)

// 字体名称，由渲染器映射到真实字体。
const (
	FontRegular = "Body"
	FontBold    = "Bold"
)

// TextStyle 描述文本的字体、字号与折行方式。
type TextStyle struct {
	Font       string
	Size       float64 // 像素
	LineHeight float64 // 相对字号的倍数
	Color      Color
	Align      string
	Wrap       string
	Role       string
}

var (
	StyleTitle       = TextStyle{Font: FontBold, Size: 26, LineHeight: 1.25, Color: ColorText, Role: "title"}
	StyleSummary     = TextStyle{Font: FontRegular, Size: 14, LineHeight: 1.4, Color: ColorMuted, Role: "summary"}
	StyleTopic       = TextStyle{Font: FontBold, Size: 18, LineHeight: 1.35, Color: ColorText, Role: "topic"}
	StyleObjective   = TextStyle{Font: FontRegular, Size: 16, LineHeight: 1.4, Color: ColorText, Role: "objective"}
	StyleTask        = TextStyle{Font: FontRegular, Size: 15, LineHeight: 1.4, Color: ColorText, Role: "task"}
	StyleFieldLabel  = TextStyle{Font: FontRegular, Size: 11, LineHeight: 1.3, Color: ColorMuted, Align: "center", Wrap: "nowrap", Role: "label"}
	StyleFieldValue  = TextStyle{Font: FontBold, Size: 14, LineHeight: 1.3, Color: ColorText, Align: "center", Role: "value"}
	StyleCell        = TextStyle{Font: FontRegular, Size: 13, LineHeight: 1.35, Color: ColorText, Role: "cell"}
	StyleHeaderCell  = TextStyle{Font: FontBold, Size: 13, LineHeight: 1.35, Color: ColorText, Wrap: "nowrap", Role: "header-cell"}
	StylePlaceholder = TextStyle{Font: FontRegular, Size: 18, LineHeight: 1.4, Color: ColorMuted, Align: "center", Role: "placeholder"}
	StyleMessage     = TextStyle{Font: FontRegular, Size: 15, LineHeight: 1.4, Color: ColorMuted, Role: "message"}
)

// WrapStyle 返回带指定折行策略的样式副本。
func WrapStyle(base TextStyle, wrap string) TextStyle {
	base.Wrap = NormalizeWrap(wrap)
	return base
}

// lineHeightPx 返回样式的绝对行高，未设置时按 1.4 倍。
func (s TextStyle) lineHeightPx() float64 {
	f := s.LineHeight
	if f <= 0 {
		f = 1.4
	}
	return s.Size * f
}

// composeText 在给定宽度内排版文本，返回文本框与总高度。
func composeText(content string, x, y, width float64, style TextStyle, ts Typesetter) (TextBox, float64, error) {
	size := style.Size
	if size <= 0 {
		size = 14
	}
	style.Size = size
	lineHeight := style.lineHeightPx()
	font := style.Font
	if font == "" {
		font = FontRegular
	}
	wrap := NormalizeWrap(style.Wrap)

	lines, err := ts.LayoutLines(content, width, font, size, lineHeight, wrap)
	if err != nil {
		return TextBox{}, 0, err
	}
	if len(lines) == 0 {
		lines = []TextLine{{Content: "", Height: size}}
	}

	total := 0.0
	leading := math.Max(lineHeight-size, 0)
	for i := range lines {
		if lines[i].Height <= 0 {
			lines[i].Height = size
		}
		if i == 0 {
			lines[i].GapBefore = 0
		} else if lines[i].GapBefore <= 0 {
			lines[i].GapBefore = leading
		}
		total += lines[i].GapBefore + lines[i].Height
	}

	align := strings.ToLower(strings.TrimSpace(style.Align))
	switch align {
	case "start":
		align = "left"
	case "end":
		align = "right"
	case "left", "center", "right":
	default:
		align = ""
	}

	tb := TextBox{
		Content:    content,
		X:          x,
		Y:          y,
		Width:      width,
		LineHeight: lineHeight,
		Font:       font,
		FontSize:   size,
		Color:      style.Color,
		Lines:      lines,
		Height:     total,
		Align:      align,
		Wrap:       wrap,
		Role:       style.Role,
	}
	return tb, total, nil
}
