package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/ByLCY/lessoncanvas/config"
	"github.com/ByLCY/lessoncanvas/dsl"
	"github.com/ByLCY/lessoncanvas/engine"
	"github.com/ByLCY/lessoncanvas/fonts"
	"github.com/ByLCY/lessoncanvas/layout"
	"github.com/ByLCY/lessoncanvas/logger"
	canvasrenderer "github.com/ByLCY/lessoncanvas/renderer/canvas"
	"github.com/ByLCY/lessoncanvas/renderer/raster"
	"github.com/ByLCY/lessoncanvas/viewport"
)

type cliOptions struct {
	input    string
	config   string
	output   string
	snapshot string
	debug    string
	page     int
	zoom     float64
	width    int
	height   int
	serve    bool
	watch    bool
}

func main() {
	var opts cliOptions
	flag.StringVar(&opts.input, "in", "examples/fractions.lesson", "课时大纲（.lesson）或页面 JSON 路径")
	flag.StringVar(&opts.config, "config", "", "YAML 配置文件，留空使用内置默认值")
	flag.StringVar(&opts.output, "out", "output/lesson.pdf", "PDF 输出路径，留空则不导出")
	flag.StringVar(&opts.snapshot, "snapshot", "", "PNG 快照输出路径")
	flag.StringVar(&opts.debug, "debug", "", "布局调试 JSON 输出路径")
	flag.IntVar(&opts.page, "page", 0, "快照前跳转到的页码（从 1 开始）")
	flag.Float64Var(&opts.zoom, "zoom", 0, "快照缩放比例，0 表示适配屏幕")
	flag.IntVar(&opts.width, "width", 0, "屏幕宽度，覆盖配置")
	flag.IntVar(&opts.height, "height", 0, "屏幕高度，覆盖配置")
	flag.BoolVar(&opts.serve, "serve", false, "启动 HTTP 预览服务")
	flag.BoolVar(&opts.watch, "watch", false, "服务模式下监听输入文件并自动重载")
	flag.Parse()

	cfg, err := config.Load(opts.config)
	if err != nil {
		log.Fatalf("加载配置失败: %v", err)
	}
	if opts.width > 0 {
		cfg.Screen.Width = opts.width
	}
	if opts.height > 0 {
		cfg.Screen.Height = opts.height
	}
	lg, err := logger.New(cfg.Log.Mode, cfg.Log.Level)
	if err != nil {
		log.Fatalf("初始化日志失败: %v", err)
	}
	defer lg.Sync()

	if opts.serve {
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		if err := serve(ctx, cfg, opts, lg); err != nil && !errors.Is(err, context.Canceled) {
			lg.Error("服务退出", "error", err)
			os.Exit(1)
		}
		return
	}
	if err := run(cfg, opts, lg); err != nil {
		log.Fatalf("生成失败: %v", err)
	}
}

// newEngine 按配置组装字体、排版器、快照表面与 PDF 导出器。
func newEngine(cfg *config.Config, opts cliOptions, frames viewport.FrameScheduler, lg *logger.Logger) (*engine.Engine, error) {
	unit, err := cfg.MarginUnit()
	if err != nil {
		return nil, err
	}
	reg := fonts.NewRegistry(filepath.Dir(opts.input), cfg.Render.Fonts)
	pdf := canvasrenderer.NewRendererWithOptions(canvasrenderer.Options{
		Fonts:       reg,
		PixelsPerMM: cfg.Scale(),
		Info:        canvasrenderer.DocumentInfo{Creator: "lessoncanvas"},
		Logger:      lg,
	})

	var ts layout.Typesetter = pdf
	switch cfg.Render.Typesetter {
	case "estimate":
		ts = layout.EstimateTypesetter{}
	case "", "canvas":
	default:
		return nil, fmt.Errorf("未知排版器: %s", cfg.Render.Typesetter)
	}

	return engine.New(engine.Options{
		Pages:       cfg.PagesConfig(),
		PixelsPerMM: cfg.Scale(),
		Margins:     cfg.Margins.Margins,
		MarginUnit:  unit,
		Zoom:        cfg.ZoomOptions(),
		ZoomStep:    cfg.Zoom.Step,
		Render: layout.RenderOptions{
			Typesetter: ts,
			Logger:     lg,
			Labels:     cfg.Render.Labels,
		},
		NewSurface: raster.Factory(reg),
		Frames:     frames,
		Exporter:   pdf,
		Logger:     lg,
	}), nil
}

// run 串联加载、排版、快照与导出。
func run(cfg *config.Config, opts cliOptions, lg *logger.Logger) error {
	list, err := dsl.Load(opts.input)
	if err != nil {
		return err
	}
	eng, err := newEngine(cfg, opts, nil, lg)
	if err != nil {
		return err
	}
	defer eng.Destroy()

	if err := eng.SetPages(list); err != nil {
		return err
	}
	if err := eng.Init(cfg.Screen.Width, cfg.Screen.Height); err != nil {
		return fmt.Errorf("初始化画布失败: %w", err)
	}
	if opts.page > 0 {
		if err := eng.GoToPage(opts.page-1, false); err != nil {
			return fmt.Errorf("跳转到第 %d 页失败: %w", opts.page, err)
		}
	}
	if opts.zoom > 0 {
		if _, err := eng.ZoomTo(opts.zoom); err != nil {
			return err
		}
	}

	if opts.debug != "" {
		doc, err := eng.Document()
		if err != nil {
			return err
		}
		if err := layout.WriteDebugJSON(doc, opts.debug); err != nil {
			return fmt.Errorf("写入调试 JSON 失败: %w", err)
		}
		lg.Info("已写入布局调试信息", "path", opts.debug)
	}
	if opts.snapshot != "" {
		if err := writeFile(opts.snapshot, eng.Snapshot); err != nil {
			return fmt.Errorf("写入快照失败: %w", err)
		}
		fmt.Printf("已生成快照：%s\n", opts.snapshot)
	}
	if opts.output != "" {
		if err := writeFile(opts.output, eng.ExportPDF); err != nil {
			return fmt.Errorf("导出 PDF 失败: %w", err)
		}
		fmt.Printf("已生成 PDF：%s\n", opts.output)
	}
	return nil
}

func writeFile(path string, write func(io.Writer) error) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := write(f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
