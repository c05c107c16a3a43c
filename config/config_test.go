package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/ByLCY/lessoncanvas/layout"
)

func TestDefaultMatchesPageModel(t *testing.T) {
	cfg := Default()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("默认配置应有效: %v", err)
	}
	pc := cfg.PagesConfig()
	if pc.PageWidth != 1273 || pc.PageHeight != 1800 || pc.Gap != 40 || pc.Padding != 24 || pc.Buffer != 600 || pc.MaxLoadedPages != 6 {
		t.Fatalf("页面参数不符合预期: %+v", pc)
	}
	if pc.AnimationDuration != 300*time.Millisecond {
		t.Fatalf("动画时长应为 300ms，实际 %v", pc.AnimationDuration)
	}
	if unit, _ := cfg.MarginUnit(); unit != layout.UnitMM || cfg.Margins.Top != 20 {
		t.Fatalf("默认边距应为 20mm: %+v", cfg.Margins)
	}
	if cfg.Scale() != layout.DefaultPixelsPerMM {
		t.Fatalf("默认比例错误: %g", cfg.Scale())
	}
	if z := cfg.ZoomOptions(); z.MinZoom != 0.1 || z.MaxZoom != 5 {
		t.Fatalf("缩放范围错误: %+v", z)
	}
}

func TestLoadMergesFileOverDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "canvas.yaml")
	data := []byte("margins:\n  unit: in\n  top: 1\nzoom:\n  max: 3\nrender:\n  labels:\n    teacher: Lehrkraft\n")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatal(err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("加载失败: %v", err)
	}
	if cfg.Margins.Unit != "in" || cfg.Margins.Top != 1 || cfg.Margins.Left != 20 {
		t.Fatalf("边距合并错误: %+v", cfg.Margins)
	}
	if cfg.Zoom.Max != 3 || cfg.Zoom.Min != 0.1 {
		t.Fatalf("缩放合并错误: %+v", cfg.Zoom)
	}
	if cfg.Render.Labels["teacher"] != "Lehrkraft" {
		t.Fatalf("标签未读取: %+v", cfg.Render.Labels)
	}
	if cfg.Page.Width != 1273 {
		t.Fatalf("未出现的字段应保持默认值")
	}
}

func TestLoadRejectsUnknownFieldsAndBadValues(t *testing.T) {
	dir := t.TempDir()
	cases := map[string]string{
		"unknown.yaml": "page:\n  colour: red\n",
		"zoom.yaml":    "zoom:\n  min: 2\n  max: 1\n",
		"unit.yaml":    "margins:\n  unit: furlong\n",
		"ts.yaml":      "render:\n  typesetter: magic\n",
	}
	for name, body := range cases {
		path := filepath.Join(dir, name)
		if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
			t.Fatal(err)
		}
		if _, err := Load(path); err == nil {
			t.Fatalf("%s 应加载失败", name)
		}
	}
	if _, err := Load(filepath.Join(dir, "missing.yaml")); err == nil {
		t.Fatalf("缺失的文件应返回错误")
	}
}

func TestApplyEnvOverrides(t *testing.T) {
	env := map[string]string{
		"LESSONCANVAS_LOG_LEVEL":     "debug",
		"LESSONCANVAS_SCREEN_WIDTH":  "1920",
		"LESSONCANVAS_ZOOM_MAX":      "4",
		"LESSONCANVAS_HTTP_ADDR":     "127.0.0.1:9090",
		"LESSONCANVAS_TYPESETTER":    "  ",
		"LESSONCANVAS_PIXELS_PER_MM": "4",
	}
	lookup := func(k string) (string, bool) { v, ok := env[k]; return v, ok }
	cfg := Default()
	if err := cfg.ApplyEnv(lookup); err != nil {
		t.Fatalf("应用环境变量失败: %v", err)
	}
	if cfg.Log.Level != "debug" || cfg.Screen.Width != 1920 || cfg.Zoom.Max != 4 || cfg.HTTP.Addr != "127.0.0.1:9090" {
		t.Fatalf("环境变量未生效: %+v", cfg)
	}
	if cfg.Render.Typesetter != "canvas" {
		t.Fatalf("空白值不应覆盖: %q", cfg.Render.Typesetter)
	}
	if cfg.Scale() != 4 {
		t.Fatalf("比例覆盖未生效: %g", cfg.Scale())
	}

	env["LESSONCANVAS_SCREEN_HEIGHT"] = "tall"
	if err := Default().ApplyEnv(lookup); err == nil {
		t.Fatalf("非整数应返回错误")
	}
}
