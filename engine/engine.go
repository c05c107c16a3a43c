// Package engine 把边距管理、画布控制器与页面管理器组装成对外的单一入口。
// 引擎不是并发安全的，宿主需要在同一个 goroutine（见 host.Loop）中调用全部方法。
package engine

import (
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/ByLCY/lessoncanvas/internal/listeners"
	"github.com/ByLCY/lessoncanvas/layout"
	"github.com/ByLCY/lessoncanvas/logger"
	"github.com/ByLCY/lessoncanvas/pages"
	"github.com/ByLCY/lessoncanvas/viewport"
)

var (
	// ErrNoSnapshot 表示当前绘制表面不支持导出图片。
	ErrNoSnapshot = errors.New("engine: surface cannot produce snapshots")
	// ErrNoExporter 表示没有配置文档导出器。
	ErrNoExporter = errors.New("engine: no document exporter configured")
)

// Snapshotter 由能把最近一帧编码成 PNG 的表面实现。
type Snapshotter interface {
	EncodePNG(w io.Writer) error
}

// Exporter 把整份文档的排版结果写成外部格式（例如 PDF）。
type Exporter interface {
	Export(w io.Writer, doc *layout.Document) error
}

// Options 配置引擎。零值字段使用默认值。
type Options struct {
	Pages       pages.Config
	PixelsPerMM float64
	Margins     layout.Margins
	MarginUnit  layout.Unit
	Zoom        viewport.Options
	ZoomStep    float64
	Render      layout.RenderOptions
	NewSurface  viewport.SurfaceFactory
	Frames      viewport.FrameScheduler
	Exporter    Exporter
	Logger      *logger.Logger
}

// Status 是引擎当前状态的只读快照。
type Status struct {
	Ready          bool           `json:"ready"`
	CurrentIndex   int            `json:"currentIndex"`
	TotalPages     int            `json:"totalPages"`
	Scale          float64        `json:"scale"`
	Center         viewport.Point `json:"center"`
	TotalHeight    float64        `json:"totalHeight"`
	Animating      bool           `json:"animating"`
	UserInteracted bool           `json:"userInteracted"`
	LoadedPages    []int          `json:"loadedPages"`
	Margins        layout.Margins `json:"margins"`
	// Error 是最近一次建立页面布局失败的原因；成功后清空。
	Error string `json:"error,omitempty"`
}

// Engine 是分页画布的公共 API。
type Engine struct {
	opts    Options
	log     *logger.Logger
	margins *layout.MarginManager
	ctrl    *viewport.Controller
	manager *pages.Manager

	pending    []layout.PageMetadata
	pageSubs   listeners.List[int]
	heightSubs listeners.List[float64]
	unsubs     []func()
	initErr    error
	destroyed  bool
}

// New 创建引擎；调用 Init 之前所有导航操作都返回 viewport.ErrNotReady。
func New(opts Options) *Engine {
	def := pages.DefaultConfig()
	if opts.Pages == (pages.Config{}) {
		opts.Pages = def
	}
	if opts.Pages.PageWidth <= 0 {
		opts.Pages.PageWidth = def.PageWidth
	}
	if opts.Pages.PageHeight <= 0 {
		opts.Pages.PageHeight = def.PageHeight
	}
	if opts.PixelsPerMM <= 0 {
		opts.PixelsPerMM = layout.DefaultPixelsPerMM
	}
	if opts.MarginUnit == layout.UnitNone {
		opts.MarginUnit = layout.UnitMM
		if opts.Margins == (layout.Margins{}) {
			opts.Margins = layout.DefaultMargins
		}
	}
	if opts.Render.Logger == nil {
		opts.Render.Logger = opts.Logger
	}
	log := logger.OrNop(opts.Logger)
	margins := layout.NewMarginManager(opts.Margins, opts.MarginUnit, opts.PixelsPerMM, log)
	e := &Engine{
		opts:    opts,
		log:     log.With("component", "engine"),
		margins: margins,
		ctrl: viewport.NewController(viewport.ControllerOptions{
			PageWidth:  opts.Pages.PageWidth,
			PageHeight: opts.Pages.PageHeight,
			Zoom:       opts.Zoom,
			ZoomStep:   opts.ZoomStep,
			Margins:    margins,
			NewSurface: opts.NewSurface,
			Frames:     opts.Frames,
			Logger:     log,
		}),
	}
	return e
}

// Init 初始化画布；首次尺寸测量完成后创建页面管理器。
func (e *Engine) Init(width, height int) error {
	if e.destroyed {
		return viewport.ErrDestroyed
	}
	if err := e.ctrl.Init(width, height); err != nil {
		return err
	}
	e.ctrl.OnReady(e.onReady)
	return nil
}

func (e *Engine) onReady() {
	if e.destroyed || e.manager != nil {
		return
	}
	m, err := pages.NewManager(e.ctrl.Viewport(), e.ctrl.Stage(), e.margins, e.pending, e.opts.Pages, e.opts.Render)
	if err != nil {
		e.initErr = err
		e.log.Error("创建页面管理器失败，等待下一次 SetPages 重试", "error", err)
		return
	}
	e.initErr = nil
	e.manager = m
	e.unsubs = append(e.unsubs,
		m.OnPageChange(func(i int) { e.pageSubs.Emit(e.log, i) }),
		m.OnTotalHeightChange(func(h float64) {
			e.ctrl.SetPageFrames(m.PageFrames())
			e.heightSubs.Emit(e.log, h)
		}),
	)
	e.ctrl.SetPageFrames(m.PageFrames())
	e.heightSubs.Emit(e.log, m.TotalHeight())
	if m.CurrentIndex() >= 0 {
		e.pageSubs.Emit(e.log, m.CurrentIndex())
	}
	e.log.Info("画布已就绪", "pages", m.PageCount(), "scale", e.ctrl.Viewport().Scale())
}

// Ready reports whether pages can be navigated.
func (e *Engine) Ready() bool { return e.manager != nil && e.ctrl.Ready() }

// Controller exposes the canvas controller.
func (e *Engine) Controller() *viewport.Controller { return e.ctrl }

// Manager 返回页面管理器，就绪前为 nil。
func (e *Engine) Manager() *pages.Manager { return e.manager }

// MarginManager returns the margin source.
func (e *Engine) MarginManager() *layout.MarginManager { return e.margins }

func (e *Engine) ready() error {
	if e.destroyed {
		return viewport.ErrDestroyed
	}
	if !e.Ready() {
		return viewport.ErrNotReady
	}
	return nil
}

// GoToPage 跳到第 index 页（从 0 开始）。
func (e *Engine) GoToPage(index int, animated bool) error {
	if err := e.ready(); err != nil {
		return err
	}
	return e.manager.GoToPage(index, animated)
}

// NextPage 翻到下一页，最后一页时不做任何事。
func (e *Engine) NextPage(animated bool) error {
	if err := e.ready(); err != nil {
		return err
	}
	return e.manager.NextPage(animated)
}

// PreviousPage 翻到上一页，第一页时不做任何事。
func (e *Engine) PreviousPage(animated bool) error {
	if err := e.ready(); err != nil {
		return err
	}
	return e.manager.PreviousPage(animated)
}

func (e *Engine) ZoomIn(step float64) (float64, error)  { return e.ctrl.ZoomIn(step) }
func (e *Engine) ZoomOut(step float64) (float64, error) { return e.ctrl.ZoomOut(step) }
func (e *Engine) ZoomTo(scale float64) (float64, error) { return e.ctrl.ZoomTo(scale) }
func (e *Engine) ZoomBy(factor float64) (float64, error) {
	return e.ctrl.ZoomByFactor(factor)
}
func (e *Engine) ResetZoom() (float64, error) { return e.ctrl.ResetZoom() }
func (e *Engine) ResetView() (float64, error) { return e.ctrl.ResetView() }

// Scale 返回当前缩放比例，初始化前为 1。
func (e *Engine) Scale() float64 {
	if v := e.ctrl.Viewport(); v != nil {
		return v.Scale()
	}
	return 1
}

// CurrentIndex 返回当前页下标，未就绪或没有页面时为 -1。
func (e *Engine) CurrentIndex() int {
	if e.manager == nil {
		return -1
	}
	return e.manager.CurrentIndex()
}

// CurrentPage 返回当前页的元数据。
func (e *Engine) CurrentPage() (layout.PageMetadata, bool) {
	if e.manager == nil {
		return layout.PageMetadata{}, false
	}
	return e.manager.CurrentPage()
}

// TotalPages returns the page count, including pages queued before ready.
func (e *Engine) TotalPages() int {
	if e.manager != nil {
		return e.manager.PageCount()
	}
	return len(e.pending)
}

// TotalHeight 返回文档的世界高度。
func (e *Engine) TotalHeight() float64 {
	if e.manager == nil {
		return 0
	}
	return e.manager.TotalHeight()
}

// Margins 以指定单位返回当前边距。
func (e *Engine) Margins(unit layout.Unit) layout.Margins { return e.margins.MarginsIn(unit) }

// SetMargins 更新边距；已加载页面与边距参考框会同步重排。
func (e *Engine) SetMargins(m layout.Margins, unit layout.Unit) error {
	if e.destroyed {
		return viewport.ErrDestroyed
	}
	return e.margins.SetMargins(m, unit)
}

// SetPages 替换文档页面。就绪前只记录，就绪时一次性建立。
func (e *Engine) SetPages(list []layout.PageMetadata) error {
	if e.destroyed {
		return viewport.ErrDestroyed
	}
	e.pending = append([]layout.PageMetadata(nil), list...)
	if e.manager == nil {
		if !e.ctrl.Ready() {
			return nil
		}
		// 画布已就绪但上次建立布局失败，用新页面重试。
		e.onReady()
		if e.initErr != nil {
			return fmt.Errorf("建立页面布局失败: %w", e.initErr)
		}
		return nil
	}
	if err := e.manager.SetPages(e.pending); err != nil {
		return fmt.Errorf("更新页面失败: %w", err)
	}
	e.ctrl.SetPageFrames(e.manager.PageFrames())
	return nil
}

// Resize 转发宿主容器尺寸变化。
func (e *Engine) Resize(width, height int) {
	if !e.destroyed {
		e.ctrl.Resize(width, height)
	}
}

// HandleInput 转发指针、滚轮与捏合事件。
func (e *Engine) HandleInput(ev viewport.InputEvent) error { return e.ctrl.HandleInput(ev) }

// Tick 推进翻页动画，返回动画是否仍在进行。
func (e *Engine) Tick(dt time.Duration) bool {
	v := e.ctrl.Viewport()
	if e.destroyed || v == nil {
		return false
	}
	v.Tick(dt)
	return v.Animating()
}

// Animating reports whether a page transition is running.
func (e *Engine) Animating() bool {
	return e.manager != nil && e.manager.Animating()
}

// SetOverlayVisible 显示或隐藏边距参考框。
func (e *Engine) SetOverlayVisible(visible bool) { e.ctrl.SetOverlayVisible(visible) }

// Render 把当前视口绘制到表面上。
func (e *Engine) Render() error { return e.ctrl.Render() }

// Snapshot 绘制当前视口并以 PNG 写入 w。
func (e *Engine) Snapshot(w io.Writer) error {
	if err := e.ready(); err != nil {
		return err
	}
	s, ok := e.ctrl.Surface().(Snapshotter)
	if !ok {
		return ErrNoSnapshot
	}
	if err := e.ctrl.Render(); err != nil {
		return fmt.Errorf("绘制快照失败: %w", err)
	}
	return s.EncodePNG(w)
}

// Layouts 排版全部页面（包括未加载的页面）。
func (e *Engine) Layouts() ([]layout.PageLayout, error) {
	if err := e.ready(); err != nil {
		return nil, err
	}
	out := make([]layout.PageLayout, 0, e.manager.PageCount())
	for i := 0; i < e.manager.PageCount(); i++ {
		pl, err := e.manager.Layout(i)
		if err != nil {
			return nil, fmt.Errorf("排版第 %d 页失败: %w", i+1, err)
		}
		out = append(out, pl)
	}
	return out, nil
}

// Document 返回整份文档的排版结果。
func (e *Engine) Document() (*layout.Document, error) {
	list, err := e.Layouts()
	if err != nil {
		return nil, err
	}
	return &layout.Document{
		PixelsPerMM: e.margins.PixelsPerMM(),
		Margins:     e.margins.Margins().Margins,
		Pages:       list,
	}, nil
}

// ExportPDF 用配置的导出器把全部页面写入 w。
func (e *Engine) ExportPDF(w io.Writer) error {
	if e.opts.Exporter == nil {
		return ErrNoExporter
	}
	doc, err := e.Document()
	if err != nil {
		return err
	}
	if err := e.opts.Exporter.Export(w, doc); err != nil {
		return fmt.Errorf("导出文档失败: %w", err)
	}
	return nil
}

// Status 返回当前状态快照。
func (e *Engine) Status() Status {
	st := Status{
		Ready:          e.Ready(),
		CurrentIndex:   e.CurrentIndex(),
		TotalPages:     e.TotalPages(),
		Scale:          e.Scale(),
		TotalHeight:    e.TotalHeight(),
		Animating:      e.Animating(),
		UserInteracted: e.ctrl.UserInteracted(),
		Margins:        e.margins.Margins().Margins,
		LoadedPages:    []int{},
	}
	if e.initErr != nil {
		st.Error = e.initErr.Error()
	}
	if v := e.ctrl.Viewport(); v != nil {
		st.Center = v.Center()
	}
	if e.manager != nil {
		for _, lp := range e.manager.Loaded() {
			st.LoadedPages = append(st.LoadedPages, lp.Index)
		}
	}
	return st
}

// OnPageChange 订阅当前页变化。
func (e *Engine) OnPageChange(fn func(index int)) func() { return e.pageSubs.Add(fn) }

// OnZoomChange 订阅缩放变化。
func (e *Engine) OnZoomChange(fn func(scale float64)) func() { return e.ctrl.OnZoomChange(fn) }

// OnTotalHeightChange 订阅文档总高度变化。
func (e *Engine) OnTotalHeightChange(fn func(height float64)) func() {
	return e.heightSubs.Add(fn)
}

// Destroy 释放全部资源。可重复调用。
func (e *Engine) Destroy() {
	if e.destroyed {
		return
	}
	e.destroyed = true
	for _, unsub := range e.unsubs {
		unsub()
	}
	e.unsubs = nil
	if e.manager != nil {
		e.manager.Destroy()
		e.manager = nil
	}
	e.ctrl.Destroy()
	e.pageSubs.Clear()
	e.heightSubs.Clear()
	e.log.Debug("引擎已销毁")
}
