package raster

import (
	"bytes"
	"image/png"
	"testing"

	"github.com/ByLCY/lessoncanvas/layout"
	"github.com/ByLCY/lessoncanvas/scene"
	"github.com/ByLCY/lessoncanvas/viewport"
)

func testStage() *scene.Stage {
	stage := scene.NewStage()
	red := layout.Color{R: 255}
	page := scene.NewGroup("page")
	page.X, page.Y = 100, 0
	page.AddChild(&scene.Rect{Shape: layout.Rect{X: 10, Y: 10, Width: 20, Height: 20, StrokeColor: red, FillColor: &red}})
	page.AddChild(&scene.Rect{Shape: layout.Rect{X: 250, Y: 300, Width: 20, Height: 20, FillColor: &red}})
	page.AddChild(&scene.Text{Box: layout.TextBox{
		Content: "Topic", X: 50, Y: 20, Width: 100, FontSize: 14, Height: 14, Font: layout.FontBold,
		Color: layout.ColorText, Lines: []layout.TextLine{{Content: "Topic", Width: 40, Height: 14}},
	}})
	stage.Content.AddChild(page)
	return stage
}

func TestDrawProjectsThroughViewport(t *testing.T) {
	s, err := New(200, 100, nil)
	if err != nil {
		t.Fatalf("创建表面失败: %v", err)
	}
	view := viewport.New(200, 100, 400, 400, viewport.Options{}, nil)
	if err := s.Draw(testStage(), view); err != nil {
		t.Fatalf("绘制失败: %v", err)
	}

	// 世界 (110,10) 对应屏幕 (10,10)。
	r, g, b, _ := s.Image().At(20, 20).RGBA()
	if r>>8 != 255 || g>>8 != 0 || b>>8 != 0 {
		t.Fatalf("矩形位置颜色不对: %d %d %d", r>>8, g>>8, b>>8)
	}
	r, g, b, _ = s.Image().At(190, 90).RGBA()
	if r>>8 != uint32(Background.R) || g>>8 != uint32(Background.G) || b>>8 != uint32(Background.B) {
		t.Fatalf("空白处应为背景色: %d %d %d", r>>8, g>>8, b>>8)
	}

	drawn, skipped := s.Stats()
	if drawn != 2 || skipped != 1 {
		t.Fatalf("可见性裁剪不符合预期: drawn=%d skipped=%d", drawn, skipped)
	}
}

func TestEncodePNGAndResize(t *testing.T) {
	s, err := New(64, 48, nil)
	if err != nil {
		t.Fatal(err)
	}
	if err := s.Resize(80, 60); err != nil {
		t.Fatalf("调整尺寸失败: %v", err)
	}
	view := viewport.New(80, 60, 400, 400, viewport.Options{}, nil)
	view.SetZoom(0.1, viewport.SourceAPI)
	if err := s.Draw(testStage(), view); err != nil {
		t.Fatalf("缩小后绘制失败: %v", err)
	}

	var buf bytes.Buffer
	if err := s.EncodePNG(&buf); err != nil {
		t.Fatalf("编码 PNG 失败: %v", err)
	}
	img, err := png.Decode(&buf)
	if err != nil {
		t.Fatalf("解码 PNG 失败: %v", err)
	}
	if img.Bounds().Dx() != 80 || img.Bounds().Dy() != 60 {
		t.Fatalf("快照尺寸不对: %v", img.Bounds())
	}

	if err := s.Resize(0, 10); err == nil {
		t.Fatalf("零尺寸应返回错误")
	}
	if _, err := New(0, 0, nil); err == nil {
		t.Fatalf("零尺寸应返回错误")
	}
}

func TestFactoryBuildsSurface(t *testing.T) {
	surface, err := Factory(nil)(32, 32)
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := surface.(*Surface); !ok {
		t.Fatalf("工厂应返回 *Surface，实际 %T", surface)
	}
}
