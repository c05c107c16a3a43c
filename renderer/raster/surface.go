// Package raster 用 fogleman/gg 把舞台按视口绘制成位图，供快照与无头预览使用。
package raster

import (
	"fmt"
	"image"
	"io"
	"math"
	"strings"
	"sync"

	"github.com/fogleman/gg"
	"github.com/golang/freetype/truetype"
	"golang.org/x/image/font"

	"github.com/ByLCY/lessoncanvas/fonts"
	"github.com/ByLCY/lessoncanvas/layout"
	"github.com/ByLCY/lessoncanvas/scene"
	"github.com/ByLCY/lessoncanvas/viewport"
)

// 屏幕上小于该像素高度的文字只画占位线。
const minReadablePX = 3.0

// Background 是画布外的底色。
var Background = layout.Color{R: 236, G: 238, B: 241}

// Surface 实现 viewport.Surface，每次 Draw 重画整个屏幕。
type Surface struct {
	fonts *fonts.Registry
	dc    *gg.Context

	mu      sync.Mutex
	parsed  map[string]*truetype.Font
	faces   map[faceKey]font.Face
	drawn   int
	skipped int
}

type faceKey struct {
	name string
	size float64
}

var _ viewport.Surface = (*Surface)(nil)

// New 创建 width×height 的表面；reg 为 nil 时使用内置字体。
func New(width, height int, reg *fonts.Registry) (*Surface, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("表面尺寸无效: %dx%d", width, height)
	}
	return &Surface{
		fonts:  reg,
		dc:     gg.NewContext(width, height),
		parsed: map[string]*truetype.Font{},
		faces:  map[faceKey]font.Face{},
	}, nil
}

// Factory 返回供 viewport.Controller 使用的表面构造函数。
func Factory(reg *fonts.Registry) viewport.SurfaceFactory {
	return func(width, height int) (viewport.Surface, error) {
		return New(width, height, reg)
	}
}

// Resize 重新分配位图。
func (s *Surface) Resize(width, height int) error {
	if width <= 0 || height <= 0 {
		return fmt.Errorf("表面尺寸无效: %dx%d", width, height)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.dc.Width() != width || s.dc.Height() != height {
		s.dc = gg.NewContext(width, height)
	}
	return nil
}

// Image returns the last drawn frame.
func (s *Surface) Image() image.Image {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.dc.Image()
}

// EncodePNG 把最近一帧编码为 PNG。
func (s *Surface) EncodePNG(w io.Writer) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.dc.EncodePNG(w)
}

// Stats 返回最近一帧绘制与因不可见而跳过的图元数量。
func (s *Surface) Stats() (drawn, skipped int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.drawn, s.skipped
}

// Draw 按图层顺序绘制舞台，只画与屏幕相交的图元。
func (s *Surface) Draw(stage *scene.Stage, view *viewport.Viewport) error {
	if stage == nil || view == nil {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	s.drawn, s.skipped = 0, 0
	setColor(s.dc, Background)
	s.dc.Clear()

	p := painter{s: s, view: view, scale: view.Scale(), screen: layout.Bounds{Width: float64(s.dc.Width()), Height: float64(s.dc.Height())}}
	var err error
	for _, l := range stage.Layers() {
		l.Walk(func(n scene.Node, dx, dy float64) bool {
			if err != nil {
				return false
			}
			switch v := n.(type) {
			case *scene.Group:
				return true
			case *scene.Rect:
				p.rect(v.Shape, dx, dy)
			case *scene.Line:
				p.line(v.Shape, dx, dy)
			case *scene.Table:
				err = p.table(v.Box, dx, dy)
			case *scene.Text:
				err = p.text(v.Box, dx, dy)
			}
			return true
		})
		if err != nil {
			return err
		}
	}
	return nil
}

type painter struct {
	s      *Surface
	view   *viewport.Viewport
	scale  float64
	screen layout.Bounds
}

// project 把世界矩形换算到屏幕；不可见时返回 false。
func (p painter) project(x, y, w, h float64) (layout.Bounds, bool) {
	tl := p.view.ToScreen(viewport.Point{X: x, Y: y})
	b := layout.Bounds{X: tl.X, Y: tl.Y, Width: w * p.scale, Height: h * p.scale}
	visible := b.X < p.screen.Right() && b.Right() > p.screen.X && b.Y < p.screen.Bottom() && b.Bottom() > p.screen.Y
	if !visible {
		p.s.skipped++
	}
	return b, visible
}

func (p painter) rect(r layout.Rect, dx, dy float64) {
	b, ok := p.project(r.X+dx, r.Y+dy, r.Width, r.Height)
	if !ok {
		return
	}
	p.s.drawn++
	dc := p.s.dc
	dc.DrawRectangle(b.X, b.Y, b.Width, b.Height)
	if r.FillColor != nil {
		setColor(dc, *r.FillColor)
		dc.FillPreserve()
	}
	setColor(dc, r.StrokeColor)
	dc.SetLineWidth(math.Max(r.StrokeWidth*p.scale, 0.5))
	dc.Stroke()
}

func (p painter) line(l layout.Line, dx, dy float64) {
	minX, minY := math.Min(l.X1, l.X2), math.Min(l.Y1, l.Y2)
	if _, ok := p.project(minX+dx, minY+dy, math.Abs(l.X2-l.X1)+1, math.Abs(l.Y2-l.Y1)+1); !ok {
		return
	}
	p.s.drawn++
	a := p.view.ToScreen(viewport.Point{X: l.X1 + dx, Y: l.Y1 + dy})
	b := p.view.ToScreen(viewport.Point{X: l.X2 + dx, Y: l.Y2 + dy})
	w := l.Width
	if w <= 0 {
		w = 1
	}
	setColor(p.s.dc, l.Color)
	p.s.dc.SetLineWidth(math.Max(w*p.scale, 0.5))
	p.s.dc.DrawLine(a.X, a.Y, b.X, b.Y)
	p.s.dc.Stroke()
}

func (p painter) table(t layout.TableBox, dx, dy float64) error {
	if _, ok := p.project(t.X+dx, t.Y+dy, t.Width, t.Height); !ok {
		return nil
	}
	for _, row := range t.Rows {
		x := t.X
		for i, cell := range row.Cells {
			if len(t.ColumnWidths) == 0 {
				break
			}
			w := t.ColumnWidths[min(i, len(t.ColumnWidths)-1)]
			fill := layout.ColorPage
			if row.IsHeader {
				fill = layout.ColorHeaderRow
			}
			p.rect(layout.Rect{X: x, Y: row.Y, Width: w, Height: row.Height, StrokeColor: t.BorderColor, StrokeWidth: 1, FillColor: &fill}, dx, dy)
			if err := p.text(cell.Text, dx, dy); err != nil {
				return err
			}
			x += w
		}
	}
	return nil
}

func (p painter) text(tb layout.TextBox, dx, dy float64) error {
	b, ok := p.project(tb.X+dx, tb.Y+dy, tb.Width, tb.Height)
	if !ok {
		return nil
	}
	p.s.drawn++
	dc := p.s.dc
	size := tb.FontSize * p.scale
	setColor(dc, tb.Color)

	lines := tb.Lines
	if len(lines) == 0 {
		lines = []layout.TextLine{{Content: tb.Content, Width: tb.Width, Height: tb.LineHeight}}
	}
	if size < minReadablePX {
		// 太小的字只画灰线，保留版面轮廓。
		y := b.Y
		for _, l := range lines {
			y += l.GapBefore * p.scale
			h := l.Height * p.scale
			if strings.TrimSpace(l.Content) != "" {
				dc.DrawRectangle(alignX(b, tb.Align, l.Width*p.scale), y+h*0.3, l.Width*p.scale, math.Max(h*0.4, 0.5))
				dc.Fill()
			}
			y += h
		}
		return nil
	}

	face, err := p.s.face(tb.Font, size)
	if err != nil {
		return err
	}
	dc.SetFontFace(face)
	ascent := float64(face.Metrics().Ascent.Round())
	y := b.Y
	for _, l := range lines {
		y += l.GapBefore * p.scale
		if strings.TrimSpace(l.Content) != "" {
			w, _ := dc.MeasureString(l.Content)
			dc.DrawString(l.Content, alignX(b, tb.Align, w), y+ascent)
		}
		y += l.Height * p.scale
	}
	return nil
}

func alignX(b layout.Bounds, align string, w float64) float64 {
	switch align {
	case "center":
		return b.X + (b.Width-w)/2
	case "right":
		return b.Right() - w
	default:
		return b.X
	}
}

// face 按字体名与屏幕字号缓存 truetype 字体面，字号按 0.5px 取整。
func (s *Surface) face(name string, size float64) (font.Face, error) {
	size = math.Round(size*2) / 2
	key := faceKey{name: name, size: size}
	if f, ok := s.faces[key]; ok {
		return f, nil
	}
	ttf, ok := s.parsed[name]
	if !ok {
		data, err := s.fonts.Bytes(name)
		if err != nil {
			return nil, err
		}
		ttf, err = truetype.Parse(data)
		if err != nil {
			return nil, fmt.Errorf("解析字体 %s 失败: %w", name, err)
		}
		s.parsed[name] = ttf
	}
	f := truetype.NewFace(ttf, &truetype.Options{Size: size, DPI: 72, Hinting: font.HintingFull})
	s.faces[key] = f
	return f, nil
}

func setColor(dc *gg.Context, c layout.Color) {
	dc.SetRGBA255(c.R, c.G, c.B, c.Alpha())
}
