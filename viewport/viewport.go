// Package viewport 实现可平移、可缩放的二维视口，以及驱动它的画布控制器。
package viewport

import (
	"math"
	"time"

	"github.com/ByLCY/lessoncanvas/internal/listeners"
	"github.com/ByLCY/lessoncanvas/layout"
	"github.com/ByLCY/lessoncanvas/logger"
)

// 缩放范围与步长。
const (
	DefaultMinZoom  = 0.1
	DefaultMaxZoom  = 5.0
	DefaultZoomStep = 0.1

	// zoomEpsilon 以内的缩放变化视为没有变化。
	zoomEpsilon = 1e-6
	moveEpsilon = 1e-9
)

// Point 是世界或屏幕坐标中的点。
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Options 配置视口的缩放范围。
type Options struct {
	MinZoom float64
	MaxZoom float64
}

func (o Options) normalized() Options {
	if o.MinZoom <= 0 {
		o.MinZoom = DefaultMinZoom
	}
	if o.MaxZoom <= 0 {
		o.MaxZoom = DefaultMaxZoom
	}
	if o.MaxZoom < o.MinZoom {
		o.MinZoom, o.MaxZoom = o.MaxZoom, o.MinZoom
	}
	return o
}

// Viewport 把世界坐标映射到屏幕坐标：screen = (world - center) * scale + screen/2。
// 世界内容小于屏幕时该轴居中，大于屏幕时中心被限制在内容范围内。
type Viewport struct {
	screenW, screenH float64
	worldW, worldH   float64
	scale            float64
	center           Point
	opts             Options

	moved  listeners.List[MoveEvent]
	zoomed listeners.List[ZoomEvent]
	anim   *animation
	log    *logger.Logger
}

// New 创建视口，初始缩放为 1，中心位于世界顶部居中处。
func New(screenW, screenH, worldW, worldH float64, opts Options, log *logger.Logger) *Viewport {
	v := &Viewport{
		screenW: math.Max(screenW, 0),
		screenH: math.Max(screenH, 0),
		worldW:  math.Max(worldW, 0),
		worldH:  math.Max(worldH, 0),
		scale:   1,
		opts:    opts.normalized(),
		log:     logger.OrNop(log).With("component", "viewport"),
	}
	v.scale = v.clampScale(1)
	v.center = v.clampCenter(Point{X: v.worldW / 2, Y: 0})
	return v
}

func (v *Viewport) ScreenWidth() float64  { return v.screenW }
func (v *Viewport) ScreenHeight() float64 { return v.screenH }
func (v *Viewport) WorldWidth() float64   { return v.worldW }
func (v *Viewport) WorldHeight() float64  { return v.worldH }
func (v *Viewport) Scale() float64        { return v.scale }
func (v *Viewport) Center() Point         { return v.center }
func (v *Viewport) MinZoom() float64      { return v.opts.MinZoom }
func (v *Viewport) MaxZoom() float64      { return v.opts.MaxZoom }

// WorldScreenWidth 是屏幕宽度对应的世界宽度。
func (v *Viewport) WorldScreenWidth() float64 { return v.screenW / v.scale }

// WorldScreenHeight 是屏幕高度对应的世界高度。
func (v *Viewport) WorldScreenHeight() float64 { return v.screenH / v.scale }

func (v *Viewport) Left() float64   { return v.center.X - v.WorldScreenWidth()/2 }
func (v *Viewport) Right() float64  { return v.center.X + v.WorldScreenWidth()/2 }
func (v *Viewport) Top() float64    { return v.center.Y - v.WorldScreenHeight()/2 }
func (v *Viewport) Bottom() float64 { return v.center.Y + v.WorldScreenHeight()/2 }

// VisibleBounds 返回当前可见的世界矩形。
func (v *Viewport) VisibleBounds() layout.Bounds {
	return layout.Bounds{X: v.Left(), Y: v.Top(), Width: v.WorldScreenWidth(), Height: v.WorldScreenHeight()}
}

// ToScreen converts a world point to screen pixels.
func (v *Viewport) ToScreen(p Point) Point {
	return Point{
		X: (p.X-v.center.X)*v.scale + v.screenW/2,
		Y: (p.Y-v.center.Y)*v.scale + v.screenH/2,
	}
}

// ToWorld converts screen pixels to a world point.
func (v *Viewport) ToWorld(p Point) Point {
	return Point{
		X: (p.X-v.screenW/2)/v.scale + v.center.X,
		Y: (p.Y-v.screenH/2)/v.scale + v.center.Y,
	}
}

// OnMoved 订阅移动事件，返回的取消函数可重复调用。
func (v *Viewport) OnMoved(fn func(MoveEvent)) func() { return v.moved.Add(fn) }

// OnZoomed 订阅缩放事件，返回的取消函数可重复调用。
func (v *Viewport) OnZoomed(fn func(ZoomEvent)) func() { return v.zoomed.Add(fn) }

// ListenerCount 返回当前订阅者数量，用于确认销毁后没有残留监听。
func (v *Viewport) ListenerCount() int { return v.moved.Len() + v.zoomed.Len() }

// Resize 更新屏幕尺寸并保持中心不变（必要时重新限制）。
// 可见范围总会变化，所以无论中心是否移动都会发出移动事件。
func (v *Viewport) Resize(screenW, screenH float64) {
	v.screenW, v.screenH = math.Max(screenW, 0), math.Max(screenH, 0)
	v.center = v.clampCenter(v.center)
	v.moved.Emit(v.log, MoveEvent{Center: v.center, Source: SourceResize})
}

// SetWorldSize 更新世界尺寸（例如页面数量变化后总高度改变）。
func (v *Viewport) SetWorldSize(w, h float64) {
	v.worldW, v.worldH = math.Max(w, 0), math.Max(h, 0)
	v.setCenter(v.center, SourceAPI)
}

// MoveCenter 把视口中心移到世界坐标 (x, y)，结果会被限制在内容范围内。
func (v *Viewport) MoveCenter(x, y float64, src Source) {
	v.setCenter(Point{X: x, Y: y}, src)
}

// MoveBy 以世界单位平移视口。
func (v *Viewport) MoveBy(dx, dy float64, src Source) {
	v.setCenter(Point{X: v.center.X + dx, Y: v.center.Y + dy}, src)
}

// SetZoom 设置缩放比例（限制在 [MinZoom, MaxZoom]），保持中心点不变。
// 返回实际生效的比例；变化不超过 1e-6 时不发出事件。
func (v *Viewport) SetZoom(scale float64, src Source) float64 {
	return v.zoomAround(scale, v.center, Point{X: v.screenW / 2, Y: v.screenH / 2}, src)
}

// ZoomAt 以屏幕上的某点为锚点缩放，锚点下的世界坐标保持不动。
func (v *Viewport) ZoomAt(scale float64, screen Point, src Source) float64 {
	return v.zoomAround(scale, v.ToWorld(screen), screen, src)
}

func (v *Viewport) zoomAround(scale float64, anchorWorld, anchorScreen Point, src Source) float64 {
	if math.IsNaN(scale) || math.IsInf(scale, 0) || scale <= 0 {
		return v.scale
	}
	next := v.clampScale(scale)
	prev := v.scale
	if math.Abs(next-prev) <= zoomEpsilon {
		return prev
	}
	v.scale = next
	center := Point{
		X: anchorWorld.X - (anchorScreen.X-v.screenW/2)/next,
		Y: anchorWorld.Y - (anchorScreen.Y-v.screenH/2)/next,
	}
	v.center = v.clampCenter(center)
	v.zoomed.Emit(v.log, ZoomEvent{Scale: next, Previous: prev, Source: src})
	return next
}

func (v *Viewport) clampScale(s float64) float64 {
	return math.Min(math.Max(s, v.opts.MinZoom), v.opts.MaxZoom)
}

func (v *Viewport) setCenter(p Point, src Source) {
	next := v.clampCenter(p)
	if math.Abs(next.X-v.center.X) <= moveEpsilon && math.Abs(next.Y-v.center.Y) <= moveEpsilon {
		return
	}
	v.center = next
	v.moved.Emit(v.log, MoveEvent{Center: next, Source: src})
}

// clampCenter 对每个轴分别处理：内容放不满屏幕时居中（underflow），否则不允许露出内容外的空白。
func (v *Viewport) clampCenter(p Point) Point {
	return Point{
		X: clampAxis(p.X, v.worldW, v.WorldScreenWidth()),
		Y: clampAxis(p.Y, v.worldH, v.WorldScreenHeight()),
	}
}

func clampAxis(c, world, visible float64) float64 {
	if world <= visible {
		return world / 2
	}
	half := visible / 2
	return math.Min(math.Max(c, half), world-half)
}

// ClampedCenter 返回把 p 作为中心时实际会落到的位置。
func (v *Viewport) ClampedCenter(p Point) Point { return v.clampCenter(p) }

// EaseFunc 把 [0,1] 的进度映射到 [0,1]。
type EaseFunc func(t float64) float64

// EaseInOutCubic 是默认缓动曲线。
func EaseInOutCubic(t float64) float64 {
	if t < 0.5 {
		return 4 * t * t * t
	}
	f := -2*t + 2
	return 1 - f*f*f/2
}

type animation struct {
	from, to Point
	elapsed  time.Duration
	duration time.Duration
	ease     EaseFunc
	done     func()
}

// Animate 在 duration 内把中心缓动到 target，完成后调用 done。
// 新的动画会替换正在进行的动画（旧动画的 done 不会被调用）。
func (v *Viewport) Animate(target Point, duration time.Duration, ease EaseFunc, done func()) {
	if ease == nil {
		ease = EaseInOutCubic
	}
	to := v.clampCenter(target)
	if duration <= 0 {
		v.anim = nil
		v.setCenter(to, SourceAnimate)
		if done != nil {
			done()
		}
		return
	}
	v.anim = &animation{from: v.center, to: to, duration: duration, ease: ease, done: done}
}

// Animating reports whether an animation is in progress.
func (v *Viewport) Animating() bool { return v.anim != nil }

// CancelAnimation 停止当前动画，不调用完成回调。
func (v *Viewport) CancelAnimation() { v.anim = nil }

// Tick 推进动画 dt，由宿主的帧时钟驱动。
func (v *Viewport) Tick(dt time.Duration) {
	a := v.anim
	if a == nil {
		return
	}
	a.elapsed += dt
	t := 1.0
	if a.duration > 0 {
		t = math.Min(float64(a.elapsed)/float64(a.duration), 1)
	}
	k := a.ease(t)
	v.setCenter(Point{X: a.from.X + (a.to.X-a.from.X)*k, Y: a.from.Y + (a.to.Y-a.from.Y)*k}, SourceAnimate)
	if t >= 1 && v.anim == a {
		v.anim = nil
		if a.done != nil {
			a.done()
		}
	}
}

// Destroy 清除监听器与动画。
func (v *Viewport) Destroy() {
	v.anim = nil
	v.moved.Clear()
	v.zoomed.Clear()
}
