package viewport

import (
	"errors"
	"fmt"
	"math"

	"github.com/ByLCY/lessoncanvas/internal/listeners"
	"github.com/ByLCY/lessoncanvas/layout"
	"github.com/ByLCY/lessoncanvas/logger"
	"github.com/ByLCY/lessoncanvas/scene"
)

var (
	// ErrInvalidZoom 表示缩放参数不是有限正数。
	ErrInvalidZoom = errors.New("viewport: invalid zoom value")
	// ErrNotReady 表示控制器尚未完成第一次尺寸测量。
	ErrNotReady = errors.New("viewport: controller not ready")
	// ErrDestroyed 表示控制器已经销毁。
	ErrDestroyed = errors.New("viewport: controller destroyed")
)

// State 是控制器的就绪状态。
type State int

const (
	StateUninitialized State = iota
	StateInitializing
	StateReady
)

func (s State) String() string {
	switch s {
	case StateInitializing:
		return "initializing"
	case StateReady:
		return "ready"
	default:
		return "uninitialized"
	}
}

// Surface 是绘制目标，例如 raster 包里的位图画布。
type Surface interface {
	Resize(width, height int) error
	Draw(stage *scene.Stage, view *Viewport) error
}

// SurfaceFactory 按像素尺寸创建绘制目标。
type SurfaceFactory func(width, height int) (Surface, error)

// FrameScheduler 在下一帧执行回调。
type FrameScheduler interface {
	RequestFrame(fn func())
}

// ImmediateFrames 同步执行帧回调，适合命令行与测试。
type ImmediateFrames struct{}

func (ImmediateFrames) RequestFrame(fn func()) { fn() }

var (
	overlayFill   = layout.Color{R: 59, G: 130, B: 246, A: 24}
	overlayStroke = layout.Color{R: 59, G: 130, B: 246, A: 140}
)

// ControllerOptions 配置画布控制器。
type ControllerOptions struct {
	PageWidth  float64
	PageHeight float64
	Zoom       Options
	ZoomStep   float64
	Margins    *layout.MarginManager
	NewSurface SurfaceFactory
	Frames     FrameScheduler
	Logger     *logger.Logger
}

// Controller 拥有绘制表面、视口、三层舞台与边距参考框，并对外提供缩放接口。
// 状态机：uninitialized → initializing（表面、视口、图层已创建）→ ready（首次成功测量尺寸）。
type Controller struct {
	opts  ControllerOptions
	log   *logger.Logger
	state State

	surface Surface
	view    *Viewport
	stage   *scene.Stage

	readyQueue []func()
	zoomSubs   listeners.List[float64]
	unsubs     []func()

	pendingW, pendingH int
	framePending       bool
	userInteracted     bool
	pageFrames         []layout.Bounds
	destroyed          bool
}

// NewController 创建未初始化的控制器。
func NewController(opts ControllerOptions) *Controller {
	if opts.PageWidth <= 0 {
		opts.PageWidth = 1273
	}
	if opts.PageHeight <= 0 {
		opts.PageHeight = 1800
	}
	if opts.ZoomStep <= 0 {
		opts.ZoomStep = DefaultZoomStep
	}
	if opts.Frames == nil {
		opts.Frames = ImmediateFrames{}
	}
	opts.Zoom = opts.Zoom.normalized()
	return &Controller{opts: opts, log: logger.OrNop(opts.Logger).With("component", "canvas")}
}

// Init 创建表面、视口与图层，并安排第一次尺寸测量。
// 表面创建失败或尺寸为零时记录错误，控制器保持未初始化。
func (c *Controller) Init(width, height int) error {
	if c.destroyed {
		return ErrDestroyed
	}
	if c.state != StateUninitialized {
		return nil
	}
	if width <= 0 || height <= 0 {
		c.log.Error("宿主容器尺寸为零，无法初始化画布", "width", width, "height", height)
		return fmt.Errorf("初始化画布失败: 容器尺寸 %dx%d 无效", width, height)
	}
	if c.opts.NewSurface != nil {
		surface, err := c.opts.NewSurface(width, height)
		if err != nil {
			c.log.Error("创建绘制表面失败", "error", err)
			return fmt.Errorf("初始化画布失败: %w", err)
		}
		c.surface = surface
	}
	c.state = StateInitializing
	c.view = New(float64(width), float64(height), c.opts.PageWidth, c.opts.PageHeight, c.opts.Zoom, c.opts.Logger)
	c.stage = scene.NewStage()
	c.unsubs = append(c.unsubs, c.view.OnZoomed(func(ev ZoomEvent) {
		c.zoomSubs.Emit(c.log, ev.Scale)
	}))
	if c.opts.Margins != nil {
		c.unsubs = append(c.unsubs, c.opts.Margins.OnChange(func(layout.CanvasMarginState) {
			c.redrawOverlay()
		}))
	}
	c.Resize(width, height)
	return nil
}

// State returns the readiness state.
func (c *Controller) State() State { return c.state }

// Ready reports whether the first resize measurement has completed.
func (c *Controller) Ready() bool { return c.state == StateReady && !c.destroyed }

// Viewport returns the viewport, nil before Init.
func (c *Controller) Viewport() *Viewport { return c.view }

// Stage returns the layered scene, nil before Init.
func (c *Controller) Stage() *scene.Stage { return c.stage }

// Surface returns the drawing surface, possibly nil.
func (c *Controller) Surface() Surface { return c.surface }

// UserInteracted reports whether automatic fitting is disabled.
func (c *Controller) UserInteracted() bool { return c.userInteracted }

// OnReady 注册就绪回调：就绪前注册的回调排队，就绪时按顺序执行一次；之后注册的立即执行。
func (c *Controller) OnReady(fn func()) {
	if fn == nil || c.destroyed {
		return
	}
	if c.state == StateReady {
		fn()
		return
	}
	c.readyQueue = append(c.readyQueue, fn)
}

// OnZoomChange 订阅缩放变化（超过 1e-6 才通知）。
func (c *Controller) OnZoomChange(fn func(scale float64)) func() {
	return c.zoomSubs.Add(fn)
}

// Resize 记录新的容器尺寸；同一帧内的多次调用合并为一次处理。
func (c *Controller) Resize(width, height int) {
	if c.destroyed || c.state == StateUninitialized {
		return
	}
	c.pendingW, c.pendingH = width, height
	if c.framePending {
		return
	}
	c.framePending = true
	c.opts.Frames.RequestFrame(c.flushResize)
}

func (c *Controller) flushResize() {
	c.framePending = false
	if c.destroyed || c.view == nil {
		return
	}
	w, h := c.pendingW, c.pendingH
	if w <= 0 || h <= 0 {
		c.log.Warn("忽略零尺寸的容器测量", "width", w, "height", h)
		return
	}
	if c.surface != nil {
		if err := c.surface.Resize(w, h); err != nil {
			c.log.Error("调整绘制表面尺寸失败", "error", err)
			return
		}
	}
	c.view.Resize(float64(w), float64(h))
	if !c.userInteracted {
		c.fit(SourceResize)
	}
	if c.state == StateInitializing {
		c.state = StateReady
		c.log.Debug("画布就绪", "width", w, "height", h, "scale", c.view.Scale())
		queue := c.readyQueue
		c.readyQueue = nil
		for _, fn := range queue {
			fn()
		}
	}
}

// FitScale 返回让整页放进容器的缩放比例。
func (c *Controller) FitScale() float64 {
	if c.view == nil {
		return 1
	}
	s := math.Min(c.view.ScreenWidth()/c.opts.PageWidth, c.view.ScreenHeight()/c.opts.PageHeight)
	return math.Min(math.Max(s, c.opts.Zoom.MinZoom), c.opts.Zoom.MaxZoom)
}

func (c *Controller) fit(src Source) {
	c.view.SetZoom(c.FitScale(), src)
	center := c.view.Center()
	c.view.MoveCenter(c.view.WorldWidth()/2, center.Y, src)
}

func (c *Controller) checkReady() error {
	if c.destroyed {
		return ErrDestroyed
	}
	if c.state != StateReady {
		return ErrNotReady
	}
	return nil
}

// ZoomTo 设置绝对缩放比例，返回实际比例。
func (c *Controller) ZoomTo(scale float64) (float64, error) {
	if err := c.checkReady(); err != nil {
		return 0, err
	}
	if math.IsNaN(scale) || math.IsInf(scale, 0) || scale <= 0 {
		c.log.Warn("拒绝非法缩放比例", "scale", scale)
		return c.view.Scale(), ErrInvalidZoom
	}
	c.userInteracted = true
	return c.view.SetZoom(scale, SourceAPI), nil
}

// ZoomByFactor 在当前比例上乘以 factor。
func (c *Controller) ZoomByFactor(factor float64) (float64, error) {
	if err := c.checkReady(); err != nil {
		return 0, err
	}
	if math.IsNaN(factor) || math.IsInf(factor, 0) || factor <= 0 {
		c.log.Warn("拒绝非法缩放倍数", "factor", factor)
		return c.view.Scale(), ErrInvalidZoom
	}
	return c.ZoomTo(c.view.Scale() * factor)
}

// ZoomIn 放大 (1+step) 倍，step<=0 时使用默认步长。
func (c *Controller) ZoomIn(step float64) (float64, error) {
	if step <= 0 {
		step = c.opts.ZoomStep
	}
	return c.ZoomByFactor(1 + step)
}

// ZoomOut 缩小 (1+step) 倍，step<=0 时使用默认步长。
func (c *Controller) ZoomOut(step float64) (float64, error) {
	if step <= 0 {
		step = c.opts.ZoomStep
	}
	return c.ZoomByFactor(1 / (1 + step))
}

// ResetZoom 清除交互标记并恢复适配容器的比例。
func (c *Controller) ResetZoom() (float64, error) {
	if err := c.checkReady(); err != nil {
		return 0, err
	}
	c.userInteracted = false
	c.fit(SourceAPI)
	return c.view.Scale(), nil
}

// ResetView 恢复适配比例并回到文档顶部。
func (c *Controller) ResetView() (float64, error) {
	scale, err := c.ResetZoom()
	if err != nil {
		return scale, err
	}
	c.view.CancelAnimation()
	c.view.MoveCenter(c.view.WorldWidth()/2, 0, SourceAPI)
	return scale, nil
}

// HandleInput 处理宿主转发的指针/滚轮事件。
func (c *Controller) HandleInput(ev InputEvent) error {
	if err := c.checkReady(); err != nil {
		return err
	}
	interacted, err := applyInput(c.view, ev)
	if err != nil {
		c.log.Warn("忽略非法输入事件", "error", err)
		return err
	}
	if interacted {
		c.userInteracted = true
	}
	return nil
}

// SetPageFrames 记录每页在世界坐标中的矩形，用于绘制边距参考框。
func (c *Controller) SetPageFrames(frames []layout.Bounds) {
	c.pageFrames = append([]layout.Bounds(nil), frames...)
	c.redrawOverlay()
}

// redrawOverlay 在覆盖层为每页画出半透明的内容安全区。
func (c *Controller) redrawOverlay() {
	if c.stage == nil || c.destroyed {
		return
	}
	overlay := c.stage.Overlay
	overlay.RemoveChildren()
	var margins layout.Margins
	if c.opts.Margins != nil {
		margins = c.opts.Margins.Margins().Margins
	}
	fill := overlayFill
	for _, frame := range c.pageFrames {
		safe := frame.Inset(margins)
		overlay.AddChild(&scene.Rect{Shape: layout.Rect{
			X: safe.X, Y: safe.Y, Width: safe.Width, Height: safe.Height,
			StrokeColor: overlayStroke, StrokeWidth: 1, FillColor: &fill,
		}})
	}
}

// SetOverlayVisible 显示或隐藏边距参考框。
func (c *Controller) SetOverlayVisible(visible bool) {
	if c.stage != nil {
		c.stage.Overlay.Hidden = !visible
	}
}

// Render 把舞台绘制到表面上。
func (c *Controller) Render() error {
	if err := c.checkReady(); err != nil {
		return err
	}
	if c.surface == nil {
		return nil
	}
	return c.surface.Draw(c.stage, c.view)
}

// Destroy 释放表面、视口与图层并移除全部监听。可重复调用。
func (c *Controller) Destroy() {
	if c.destroyed {
		return
	}
	c.destroyed = true
	for _, unsub := range c.unsubs {
		unsub()
	}
	c.unsubs = nil
	c.zoomSubs.Clear()
	c.readyQueue = nil
	if c.view != nil {
		c.view.Destroy()
	}
	if c.stage != nil {
		c.stage.Destroy()
	}
	c.surface = nil
	c.state = StateUninitialized
}
