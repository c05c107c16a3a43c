package canvasrenderer

import (
	"bytes"
	"fmt"
	"image/color"
	"io"
	"math"
	"strings"
	"sync"

	"github.com/tdewolff/canvas"
	"github.com/tdewolff/canvas/renderers/pdf"

	"github.com/ByLCY/lessoncanvas/fonts"
	"github.com/ByLCY/lessoncanvas/layout"
	"github.com/ByLCY/lessoncanvas/logger"
	"github.com/ByLCY/lessoncanvas/renderer"
)

const defaultStrokeWidth = 1.0 // 世界像素

// Renderer draws page layouts via github.com/tdewolff/canvas and measures text for the layout engine.
// 排版坐标是世界像素，canvas 内部以毫米为单位，边界处按 PixelsPerMM 换算。
type Renderer struct {
	fonts *fonts.Registry
	ppm   float64
	info  DocumentInfo
	log   *logger.Logger

	fontMu       sync.Mutex
	fontFamilies map[string]*fontFamilyEntry
}

var (
	_ renderer.Renderer = (*Renderer)(nil)
	_ layout.Typesetter = (*Renderer)(nil)
)

type fontFamilyEntry struct {
	family *canvas.FontFamily
	style  canvas.FontStyle
}

// DocumentInfo 写入 PDF 的文档信息。
type DocumentInfo struct {
	Title    string
	Subject  string
	Keywords []string
	Author   string
	Creator  string
}

// Options configures the canvas renderer.
type Options struct {
	Fonts       *fonts.Registry
	PixelsPerMM float64
	Info        DocumentInfo
	Logger      *logger.Logger
}

// NewRenderer creates a renderer that uses the built-in fonts.
func NewRenderer() *Renderer { return NewRendererWithOptions(Options{}) }

// NewRendererWithOptions creates a renderer with the given font registry and scale.
func NewRendererWithOptions(opts Options) *Renderer {
	if opts.PixelsPerMM <= 0 {
		opts.PixelsPerMM = layout.DefaultPixelsPerMM
	}
	if opts.Info.Creator == "" {
		opts.Info.Creator = "lessoncanvas"
	}
	return &Renderer{
		fonts:        opts.Fonts,
		ppm:          opts.PixelsPerMM,
		info:         opts.Info,
		log:          logger.OrNop(opts.Logger).With("component", "pdf"),
		fontFamilies: map[string]*fontFamilyEntry{},
	}
}

// Export 渲染 doc 并写入 w。
func (r *Renderer) Export(w io.Writer, doc *layout.Document) error {
	return renderer.Export(r, w, doc)
}

// Render renders every page into a PDF byte slice.
func (r *Renderer) Render(doc *layout.Document) ([]byte, error) {
	if doc == nil {
		return nil, fmt.Errorf("渲染结果为空")
	}
	if len(doc.Pages) == 0 {
		return nil, fmt.Errorf("缺少可渲染的页面")
	}
	ppm := r.ppm
	if doc.PixelsPerMM > 0 {
		ppm = doc.PixelsPerMM
	}

	var buf bytes.Buffer
	first := doc.Pages[0]
	writer := pdf.New(&buf, first.Width/ppm, first.Height/ppm, nil)
	writer.SetInfo(r.info.Title, r.info.Subject, strings.Join(r.info.Keywords, ", "), r.info.Author, r.info.Creator)
	for i, page := range doc.Pages {
		wmm, hmm := page.Width/ppm, page.Height/ppm
		if i > 0 {
			writer.NewPage(wmm, hmm)
		}
		c := canvas.New(wmm, hmm)
		ctx := canvas.NewContext(c)
		ctx.SetCoordSystem(canvas.CartesianIV) // 使坐标与布局保持左上角为原点

		p := pagePainter{r: r, ctx: ctx, ppm: ppm}
		if err := p.drawPage(page); err != nil {
			return nil, fmt.Errorf("绘制第 %d 页失败: %w", i+1, err)
		}
		c.RenderTo(writer)
	}

	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("写入 PDF 失败: %w", err)
	}
	r.log.Debug("PDF 已生成", "pages", len(doc.Pages), "bytes", buf.Len())
	return buf.Bytes(), nil
}

// LayoutLines 实现 layout.Typesetter，使用贪心换行。
// 约定：width/fontSize/lineHeight 入参均为世界像素；与字体系统交互时换算为 mm 与 pt。
func (r *Renderer) LayoutLines(content string, width float64, font string, fontSize, lineHeight float64, wrap string) ([]layout.TextLine, error) {
	face, err := r.fontFace(font, r.sizePt(fontSize, r.ppm), layout.ColorText)
	if err != nil {
		return nil, err
	}
	measure := func(s string) float64 { return face.TextWidth(s) * r.ppm }
	lines := layout.WrapText(content, width, measure, wrap)

	textHeight := face.Metrics().LineHeight * r.ppm
	if textHeight <= 0 {
		textHeight = fontSize
	}
	leading := math.Max(lineHeight-textHeight, 0)
	if len(lines) == 0 {
		lines = []layout.TextLine{{Height: textHeight}}
	}
	for i := range lines {
		lines[i].Height = textHeight
		if i == 0 {
			lines[i].GapBefore = 0
		} else {
			lines[i].GapBefore = leading
		}
	}
	return lines, nil
}

// sizePt 把世界像素字号换算成 pt。
func (r *Renderer) sizePt(px, ppm float64) float64 {
	return px / ppm * layout.MmToPt
}

// pagePainter 绘制单页；所有入参坐标为世界像素。
type pagePainter struct {
	r   *Renderer
	ctx *canvas.Context
	ppm float64
}

func (p pagePainter) mm(px float64) float64 { return px / p.ppm }

func (p pagePainter) drawPage(page layout.PageLayout) error {
	// 页面底色
	p.ctx.SetFillColor(colorFromLayout(layout.ColorPage))
	p.ctx.SetStrokeColor(color.RGBA{})
	p.ctx.SetStrokeWidth(0)
	p.ctx.DrawPath(0, 0, canvas.Rectangle(p.mm(page.Width), p.mm(page.Height)))

	for _, region := range []layout.Region{page.Header, page.Body, page.Footer} {
		if err := p.drawRegion(region); err != nil {
			return err
		}
	}
	return nil
}

// drawRegion 先画形状作为背景，再画表格与文本。
func (p pagePainter) drawRegion(region layout.Region) error {
	p.drawRects(region.Rects)
	p.drawLines(region.Lines)
	if err := p.drawTables(region.Tables); err != nil {
		return err
	}
	for _, tb := range region.Texts {
		if err := p.drawTextBox(tb); err != nil {
			return err
		}
	}
	return nil
}

func (p pagePainter) drawTextBox(tb layout.TextBox) error {
	face, err := p.r.fontFace(tb.Font, p.r.sizePt(tb.FontSize, p.ppm), tb.Color)
	if err != nil {
		return err
	}

	lines := tb.Lines
	if len(lines) == 0 {
		lines = []layout.TextLine{{Content: tb.Content, Width: tb.Width, Height: tb.LineHeight}}
	}

	// 处理水平对齐：left（默认）/center/right。
	var textAlign canvas.TextAlign
	var anchorX float64
	switch strings.ToLower(tb.Align) {
	case "center":
		textAlign = canvas.Center
		anchorX = tb.X + tb.Width/2
	case "right", "end":
		textAlign = canvas.Right
		anchorX = tb.X + tb.Width
	default:
		textAlign = canvas.Left
		anchorX = tb.X
	}

	ascent := face.Metrics().Ascent
	cursorY := p.mm(tb.Y)
	for _, line := range lines {
		cursorY += p.mm(line.GapBefore)
		lineHeight := line.Height
		if lineHeight <= 0 {
			lineHeight = tb.FontSize
		}
		if strings.TrimSpace(line.Content) != "" {
			p.ctx.DrawText(p.mm(anchorX), cursorY+ascent, canvas.NewTextLine(face, line.Content, textAlign))
		}
		cursorY += p.mm(lineHeight)
	}
	return nil
}

func (p pagePainter) drawTables(tables []layout.TableBox) error {
	for _, table := range tables {
		if len(table.ColumnWidths) == 0 {
			continue
		}
		for _, row := range table.Rows {
			x := table.X
			for idx, cell := range row.Cells {
				colIdx := min(idx, len(table.ColumnWidths)-1)
				colWidth := table.ColumnWidths[colIdx]
				fill := layout.ColorPage
				if row.IsHeader {
					fill = layout.ColorHeaderRow
				}
				p.ctx.SetFillColor(colorFromLayout(fill))
				p.ctx.SetStrokeColor(colorFromLayout(table.BorderColor))
				p.ctx.SetStrokeWidth(p.mm(defaultStrokeWidth))
				p.ctx.DrawPath(p.mm(x), p.mm(row.Y), canvas.Rectangle(p.mm(colWidth), p.mm(row.Height)))

				if err := p.drawTextBox(cell.Text); err != nil {
					return err
				}
				x += colWidth
			}
		}
	}
	return nil
}

func (p pagePainter) drawLines(lines []layout.Line) {
	for _, ln := range lines {
		w := ln.Width
		if w <= 0 {
			w = defaultStrokeWidth
		}
		p.ctx.SetStrokeColor(colorFromLayout(ln.Color))
		p.ctx.SetStrokeWidth(p.mm(w))
		path := &canvas.Path{}
		path.MoveTo(0, 0)
		path.LineTo(p.mm(ln.X2-ln.X1), p.mm(ln.Y2-ln.Y1))
		p.ctx.DrawPath(p.mm(ln.X1), p.mm(ln.Y1), path)
	}
}

func (p pagePainter) drawRects(rects []layout.Rect) {
	for _, rc := range rects {
		w := rc.StrokeWidth
		if w <= 0 {
			w = defaultStrokeWidth
		}
		if rc.FillColor != nil {
			p.ctx.SetFillColor(colorFromLayout(*rc.FillColor))
		} else {
			p.ctx.SetFillColor(color.RGBA{})
		}
		p.ctx.SetStrokeColor(colorFromLayout(rc.StrokeColor))
		p.ctx.SetStrokeWidth(p.mm(w))
		p.ctx.DrawPath(p.mm(rc.X), p.mm(rc.Y), canvas.Rectangle(p.mm(rc.Width), p.mm(rc.Height)))
	}
}

func (r *Renderer) fontFace(name string, sizePt float64, col layout.Color) (*canvas.FontFace, error) {
	family, style, err := r.ensureFontFamily(name)
	if err != nil {
		return nil, err
	}
	return family.Face(sizePt, colorFromLayout(col), style, canvas.FontNormal), nil
}

func (r *Renderer) ensureFontFamily(name string) (*canvas.FontFamily, canvas.FontStyle, error) {
	if name == "" {
		name = fonts.Regular
	}
	r.fontMu.Lock()
	defer r.fontMu.Unlock()

	if entry, ok := r.fontFamilies[name]; ok {
		return entry.family, entry.style, nil
	}

	style := parseFontStyle(name)
	family := canvas.NewFontFamily(name)
	data, err := r.fonts.Bytes(name)
	if err == nil {
		err = family.LoadFont(data, 0, style)
	}
	if err != nil {
		r.log.Warn("加载字体失败，使用内置字体", "font", name, "error", err)
		fb, fbErr := fonts.Load(fonts.Regular)
		if fbErr != nil {
			return nil, canvas.FontRegular, err
		}
		family = canvas.NewFontFamily("lessoncanvas-fallback")
		style = canvas.FontRegular
		if err := family.LoadFont(fb, 0, style); err != nil {
			return nil, canvas.FontRegular, err
		}
	}

	r.fontFamilies[name] = &fontFamilyEntry{family: family, style: style}
	return family, style, nil
}

func parseFontStyle(name string) canvas.FontStyle {
	s := strings.ToLower(name)
	result := canvas.FontRegular
	switch {
	case strings.Contains(s, "black"):
		result = canvas.FontBlack
	case strings.Contains(s, "extrabold"):
		result = canvas.FontExtraBold
	case strings.Contains(s, "semibold"), strings.Contains(s, "demibold"):
		result = canvas.FontSemiBold
	case strings.Contains(s, "bold"):
		result = canvas.FontBold
	case strings.Contains(s, "medium"):
		result = canvas.FontMedium
	case strings.Contains(s, "light"):
		result = canvas.FontLight
	}
	if strings.Contains(s, "italic") || strings.Contains(s, "oblique") {
		result |= canvas.FontItalic
	}
	return result
}

func colorFromLayout(c layout.Color) color.Color {
	return canvas.RGBA(float64(c.R)/255.0, float64(c.G)/255.0, float64(c.B)/255.0, float64(c.Alpha())/255.0)
}
