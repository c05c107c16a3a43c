package layout

import (
	"math"
	"strings"
	"unicode"

	"github.com/mattn/go-runewidth"
)

// MeasureFunc 返回一段文本的宽度（世界像素）。
type MeasureFunc func(s string) float64

// NormalizeWrap 规范化折行策略名称。
func NormalizeWrap(v string) string {
	v = strings.ToLower(strings.TrimSpace(v))
	switch v {
	case "", "auto", "anywhere", "overflow-wrap:anywhere", "overflow-anywhere":
		return "anywhere"
	case "break-word", "word-break:break-word":
		return "break-word"
	case "nowrap", "no-wrap":
		return "nowrap"
	default:
		return "anywhere"
	}
}

// WrapText 是贪心折行：优先在空白处断行，单词超宽时在词内拆分。
// 返回的行只填写 Content 与 Width，行高由调用方回填。
func WrapText(content string, width float64, measure MeasureFunc, wrap string) []TextLine {
	limit := width
	if limit <= 0 {
		limit = math.MaxFloat64
	}
	wrap = NormalizeWrap(wrap)

	// nowrap：仅按显式换行划分
	if wrap == "nowrap" {
		parts := strings.Split(strings.ReplaceAll(content, "\r", ""), "\n")
		lines := make([]TextLine, 0, len(parts))
		for _, p := range parts {
			lines = append(lines, TextLine{Content: p, Width: measure(p)})
		}
		return lines
	}

	var lines []TextLine
	var builder strings.Builder
	current := 0.0
	emit := func(force bool) {
		if builder.Len() == 0 {
			if force {
				lines = append(lines, TextLine{})
			}
			return
		}
		// 行尾空白不计入宽度
		str := strings.TrimRightFunc(builder.String(), unicode.IsSpace)
		lines = append(lines, TextLine{Content: str, Width: measure(str)})
		builder.Reset()
		current = 0
	}

	// break-word：忽略空白机会，纯按宽度切分
	if wrap == "break-word" {
		for _, r := range content {
			if r == '\r' {
				continue
			}
			if r == '\n' {
				emit(true)
				continue
			}
			s := string(r)
			cw := measure(s)
			if current > 0 && current+cw > limit {
				emit(false)
			}
			builder.WriteString(s)
			current += cw
		}
		emit(true)
		return lines
	}

	for _, token := range tokenize(content) {
		if token == "\n" {
			emit(true)
			continue
		}
		isSpace := strings.TrimSpace(token) == ""
		if isSpace && builder.Len() == 0 && len(lines) > 0 {
			// 折行后的行首空白直接丢弃
			continue
		}
		tokenWidth := measure(token)
		if current > 0 && current+tokenWidth > limit {
			emit(false)
			if isSpace {
				continue
			}
		}
		if tokenWidth <= limit {
			builder.WriteString(token)
			current += tokenWidth
			continue
		}
		for _, chunk := range splitByWidth(token, limit, measure) {
			chunkWidth := measure(chunk)
			if current > 0 && current+chunkWidth > limit {
				emit(false)
			}
			builder.WriteString(chunk)
			current += chunkWidth
		}
	}
	emit(true)
	return lines
}

func tokenize(s string) []string {
	var tokens []string
	var builder strings.Builder
	lastWasSpace := false
	flush := func() {
		if builder.Len() == 0 {
			return
		}
		tokens = append(tokens, builder.String())
		builder.Reset()
	}
	for _, r := range s {
		if r == '\r' {
			continue
		}
		if r == '\n' {
			flush()
			tokens = append(tokens, "\n")
			lastWasSpace = false
			continue
		}
		isSpace := unicode.IsSpace(r)
		if builder.Len() == 0 {
			lastWasSpace = isSpace
		} else if lastWasSpace != isSpace {
			flush()
			lastWasSpace = isSpace
		}
		builder.WriteRune(r)
	}
	flush()
	return tokens
}

func splitByWidth(token string, limit float64, measure MeasureFunc) []string {
	if limit <= 0 || limit == math.MaxFloat64 {
		return []string{token}
	}
	var parts []string
	var runes []rune
	for _, r := range token {
		runes = append(runes, r)
		if len(runes) > 1 && measure(string(runes)) > limit {
			parts = append(parts, string(runes[:len(runes)-1]))
			runes = []rune{r}
		}
	}
	if len(runes) > 0 {
		parts = append(parts, string(runes))
	}
	return parts
}

// EstimateTypesetter 在没有真实字体时按字符显示宽度估算（东亚宽字符按两格计）。
type EstimateTypesetter struct {
	// AdvanceFactor 是单格字符宽度相对字号的比例，默认 0.55。
	AdvanceFactor float64
}

var _ Typesetter = EstimateTypesetter{}

// TextWidth estimates the rendered width of s.
func (e EstimateTypesetter) TextWidth(s string, fontSize float64) float64 {
	f := e.AdvanceFactor
	if f <= 0 {
		f = 0.55
	}
	return float64(runewidth.StringWidth(s)) * fontSize * f
}

// LayoutLines 实现 Typesetter。
func (e EstimateTypesetter) LayoutLines(content string, width float64, font string, fontSize float64, lineHeight float64, wrap string) ([]TextLine, error) {
	measure := func(s string) float64 { return e.TextWidth(s, fontSize) }
	lines := WrapText(content, width, measure, wrap)
	leading := math.Max(lineHeight-fontSize, 0)
	for i := range lines {
		lines[i].Height = fontSize
		if i > 0 {
			lines[i].GapBefore = leading
		}
	}
	return lines, nil
}
