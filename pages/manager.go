package pages

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/ByLCY/lessoncanvas/internal/listeners"
	"github.com/ByLCY/lessoncanvas/layout"
	"github.com/ByLCY/lessoncanvas/logger"
	"github.com/ByLCY/lessoncanvas/scene"
	"github.com/ByLCY/lessoncanvas/viewport"
)

var (
	// ErrPageOutOfRange 表示页码超出 [0, 页数-1]。
	ErrPageOutOfRange = errors.New("pages: page index out of range")
	// ErrAnimating 表示上一次翻页动画尚未结束。
	ErrAnimating = errors.New("pages: navigation animation in progress")
	// ErrNoPages 表示文档没有页面。
	ErrNoPages = errors.New("pages: document has no pages")
)

// Config 是页面堆叠与虚拟化参数（世界像素）。
type Config struct {
	PageWidth         float64
	PageHeight        float64
	Gap               float64
	Padding           float64
	Buffer            float64
	MaxLoadedPages    int
	AnimationDuration time.Duration
}

// DefaultConfig 返回 A4 比例下的默认参数。
func DefaultConfig() Config {
	return Config{
		PageWidth:         1273,
		PageHeight:        1800,
		Gap:               40,
		Padding:           24,
		Buffer:            600,
		MaxLoadedPages:    6,
		AnimationDuration: 300 * time.Millisecond,
	}
}

// LoadedPage 是处于虚拟化窗口内的页面。
type LoadedPage struct {
	Index     int
	Container *Container
	Y         float64
}

// Manager 计算所有页面的纵向位置，按视口加载/卸载页面容器，并负责翻页与当前页追踪。
// 所有方法都应在同一个 goroutine 中调用。
type Manager struct {
	cfg     Config
	view    *viewport.Viewport
	stage   *scene.Stage
	margins *layout.MarginManager
	opts    layout.RenderOptions
	log     *logger.Logger

	pages       []layout.PageMetadata
	positions   []float64
	backgrounds *scene.Group
	content     *scene.Group
	loaded      map[int]*LoadedPage

	current   int
	animating bool
	destroyed bool

	pageSubs   listeners.List[int]
	heightSubs listeners.List[float64]
	unsubs     []func()
}

// NewManager 建立页面布局：计算位置、画出全部页面底色、加载初始可见页并定位到第一页。
func NewManager(view *viewport.Viewport, stage *scene.Stage, margins *layout.MarginManager, pages []layout.PageMetadata, cfg Config, opts layout.RenderOptions) (*Manager, error) {
	if view == nil || stage == nil {
		return nil, errors.New("pages: viewport and stage are required")
	}
	def := DefaultConfig()
	if cfg == (Config{}) {
		cfg = def
	}
	if cfg.PageWidth <= 0 {
		cfg.PageWidth = def.PageWidth
	}
	if cfg.PageHeight <= 0 {
		cfg.PageHeight = def.PageHeight
	}
	if cfg.MaxLoadedPages <= 0 {
		cfg.MaxLoadedPages = def.MaxLoadedPages
	}
	if cfg.Gap < 0 {
		cfg.Gap = 0
	}
	if cfg.Padding < 0 {
		cfg.Padding = 0
	}
	m := &Manager{
		cfg:         cfg,
		view:        view,
		stage:       stage,
		margins:     margins,
		opts:        opts,
		log:         logger.OrNop(opts.Logger).With("component", "pages"),
		backgrounds: scene.NewGroup("page-backgrounds"),
		content:     scene.NewGroup("pages"),
		loaded:      map[int]*LoadedPage{},
		current:     -1,
	}
	stage.Background.AddChild(m.backgrounds)
	stage.Content.AddChild(m.content)

	m.unsubs = append(m.unsubs,
		view.OnMoved(func(viewport.MoveEvent) { m.onViewChanged() }),
		view.OnZoomed(func(viewport.ZoomEvent) { m.onViewChanged() }),
	)
	if margins != nil {
		m.unsubs = append(m.unsubs, margins.OnChange(m.onMarginsChanged))
	}

	if err := m.build(pages); err != nil {
		m.Destroy()
		return nil, err
	}
	return m, nil
}

// build 重新计算位置与底色，加载可见页并回到第一页。
func (m *Manager) build(pages []layout.PageMetadata) error {
	m.unloadAll()
	m.pages = append([]layout.PageMetadata(nil), pages...)
	m.positions = make([]float64, len(m.pages))
	for i := range m.pages {
		m.positions[i] = m.cfg.Padding + float64(i)*(m.cfg.PageHeight+m.cfg.Gap)
	}
	m.drawBackgrounds()
	m.view.SetWorldSize(m.cfg.PageWidth, m.TotalHeight())
	m.emitTotalHeight()

	m.current = -1
	if err := m.virtualize(); err != nil {
		return err
	}
	if len(m.pages) == 0 {
		return nil
	}
	return m.GoToPage(0, false)
}

func (m *Manager) drawBackgrounds() {
	m.backgrounds.RemoveChildren()
	page := layout.ColorPage
	for _, y := range m.positions {
		m.backgrounds.AddChild(&scene.Rect{Shape: layout.Rect{
			X: 0, Y: y, Width: m.cfg.PageWidth, Height: m.cfg.PageHeight,
			StrokeColor: layout.ColorRule, StrokeWidth: 1, FillColor: &page,
		}})
	}
}

// PageY 返回第 i 页顶部的世界坐标。
func (m *Manager) PageY(i int) float64 {
	if i < 0 || i >= len(m.positions) {
		return 0
	}
	return m.positions[i]
}

// PageFrames 返回每页在世界坐标中的矩形。
func (m *Manager) PageFrames() []layout.Bounds {
	frames := make([]layout.Bounds, len(m.positions))
	for i, y := range m.positions {
		frames[i] = layout.Bounds{Y: y, Width: m.cfg.PageWidth, Height: m.cfg.PageHeight}
	}
	return frames
}

// TotalHeight 是最后一页底部加上边界留白；没有页面时为 0。
func (m *Manager) TotalHeight() float64 {
	if len(m.positions) == 0 {
		return 0
	}
	return m.positions[len(m.positions)-1] + m.cfg.PageHeight + m.cfg.Padding
}

// PageCount returns the number of pages.
func (m *Manager) PageCount() int { return len(m.pages) }

// CurrentIndex 返回当前页下标，没有页面时为 -1。
func (m *Manager) CurrentIndex() int { return m.current }

// CurrentPage 返回当前页的元数据。
func (m *Manager) CurrentPage() (layout.PageMetadata, bool) {
	if m.current < 0 || m.current >= len(m.pages) {
		return layout.PageMetadata{}, false
	}
	return m.pages[m.current], true
}

// Animating reports whether a page transition is running.
func (m *Manager) Animating() bool { return m.syncAnimating() }

// Loaded 返回按下标排序的已加载页面。
func (m *Manager) Loaded() []LoadedPage {
	out := make([]LoadedPage, 0, len(m.loaded))
	for _, lp := range m.loaded {
		out = append(out, *lp)
	}
	sort.Slice(out, func(a, b int) bool { return out[a].Index < out[b].Index })
	return out
}

// LoadedCount returns the number of live page containers.
func (m *Manager) LoadedCount() int { return len(m.loaded) }

// Container 返回已加载页面的容器。
func (m *Manager) Container(i int) (*Container, bool) {
	lp, ok := m.loaded[i]
	if !ok {
		return nil, false
	}
	return lp.Container, true
}

// Layout 渲染任意一页（不挂到舞台上），用于导出与调试输出。
func (m *Manager) Layout(i int) (layout.PageLayout, error) {
	if i < 0 || i >= len(m.pages) {
		return layout.PageLayout{}, ErrPageOutOfRange
	}
	if lp, ok := m.loaded[i]; ok {
		return lp.Container.Regions(), nil
	}
	c, err := NewContainer(i, m.pages[i], m.geometry(), m.opts)
	if err != nil {
		return layout.PageLayout{}, err
	}
	defer c.Destroy()
	return c.Regions(), nil
}

// OnPageChange 订阅当前页变化。
func (m *Manager) OnPageChange(fn func(index int)) func() {
	return m.pageSubs.Add(fn)
}

// OnTotalHeightChange 订阅总高度变化。
func (m *Manager) OnTotalHeightChange(fn func(height float64)) func() {
	return m.heightSubs.Add(fn)
}

func (m *Manager) geometry() Geometry {
	g := Geometry{Width: m.cfg.PageWidth, Height: m.cfg.PageHeight}
	if m.margins != nil {
		g.Margins = m.margins.Margins().Margins
	}
	return g
}

// GoToPage 把第 index 页的中心移到视口中心。
// 越界或动画进行中时记录警告并返回错误，状态不变。
func (m *Manager) GoToPage(index int, animated bool) error {
	if m.destroyed {
		return nil
	}
	if len(m.pages) == 0 {
		return ErrNoPages
	}
	if index < 0 || index >= len(m.pages) {
		m.log.Warn("拒绝越界的翻页请求", "index", index, "pages", len(m.pages))
		return fmt.Errorf("%w: %d not in [0, %d]", ErrPageOutOfRange, index, len(m.pages)-1)
	}
	if m.syncAnimating() {
		m.log.Warn("翻页动画进行中，忽略新的翻页请求", "index", index)
		return ErrAnimating
	}
	target := viewport.Point{X: m.cfg.PageWidth / 2, Y: m.positions[index] + m.cfg.PageHeight/2}
	if !animated || m.cfg.AnimationDuration <= 0 {
		m.view.MoveCenter(target.X, target.Y, viewport.SourceAPI)
		return m.virtualize()
	}
	m.animating = true
	m.view.Animate(target, m.cfg.AnimationDuration, viewport.EaseInOutCubic, func() {
		m.animating = false
		if err := m.virtualize(); err != nil {
			m.log.Error("翻页动画结束后加载页面失败", "error", err)
		}
	})
	return nil
}

// NextPage 翻到下一页，已是最后一页时不做任何事。
func (m *Manager) NextPage(animated bool) error {
	if m.current < 0 || m.current >= len(m.pages)-1 {
		return nil
	}
	return m.GoToPage(m.current+1, animated)
}

// PreviousPage 翻到上一页，已是第一页时不做任何事。
func (m *Manager) PreviousPage(animated bool) error {
	if m.current <= 0 {
		return nil
	}
	return m.GoToPage(m.current-1, animated)
}

// SetPages 替换页面数据：页数不变时只更新已加载页的元数据，否则整体重建。
func (m *Manager) SetPages(pages []layout.PageMetadata) error {
	if m.destroyed {
		return nil
	}
	if len(pages) != len(m.pages) {
		m.view.CancelAnimation()
		m.animating = false
		return m.build(pages)
	}
	m.pages = append([]layout.PageMetadata(nil), pages...)
	for i, lp := range m.loaded {
		if err := lp.Container.UpdateMetadata(m.pages[i]); err != nil {
			return err
		}
	}
	return nil
}

// syncAnimating 在视口动画被外部取消时清除动画标记。
func (m *Manager) syncAnimating() bool {
	if m.animating && !m.view.Animating() {
		m.animating = false
	}
	return m.animating
}

func (m *Manager) onViewChanged() {
	if m.destroyed || m.syncAnimating() {
		return
	}
	if err := m.virtualize(); err != nil {
		m.log.Error("视口变化后加载页面失败", "error", err)
	}
}

func (m *Manager) onMarginsChanged(state layout.CanvasMarginState) {
	if m.destroyed {
		return
	}
	for _, lp := range m.loaded {
		if err := lp.Container.SetMargins(state.Margins); err != nil {
			m.log.Error("边距变化后重排页面失败", "index", lp.Index, "error", err)
		}
	}
}

// virtualize 加载与缓冲视口相交的页面，卸载其余页面；超出上限时按页面中心到视口中心的距离从远到近淘汰。
// 与未扩展的视口相交的页面不会被淘汰。
func (m *Manager) virtualize() error {
	if m.destroyed {
		return nil
	}
	scale := m.view.Scale()
	buffer := m.cfg.Buffer / scale
	top, bottom := m.view.Top()-buffer, m.view.Bottom()+buffer

	for i, y := range m.positions {
		inRange := y < bottom && y+m.cfg.PageHeight > top
		_, isLoaded := m.loaded[i]
		switch {
		case inRange && !isLoaded:
			if err := m.load(i); err != nil {
				return err
			}
		case !inRange && isLoaded:
			m.unload(i)
		}
	}

	if len(m.loaded) > m.cfg.MaxLoadedPages {
		m.evict()
	}
	m.updateCurrent()
	return nil
}

func (m *Manager) evict() {
	viewTop, viewBottom := m.view.Top(), m.view.Bottom()
	centerY := m.view.Center().Y
	type candidate struct {
		index int
		dist  float64
	}
	var candidates []candidate
	for i, lp := range m.loaded {
		if lp.Y < viewBottom && lp.Y+m.cfg.PageHeight > viewTop {
			continue
		}
		candidates = append(candidates, candidate{index: i, dist: math.Abs(lp.Y + m.cfg.PageHeight/2 - centerY)})
	}
	sort.Slice(candidates, func(a, b int) bool {
		if candidates[a].dist != candidates[b].dist {
			return candidates[a].dist > candidates[b].dist
		}
		return candidates[a].index > candidates[b].index
	})
	for _, c := range candidates {
		if len(m.loaded) <= m.cfg.MaxLoadedPages {
			break
		}
		m.unload(c.index)
	}
}

func (m *Manager) load(i int) error {
	c, err := NewContainer(i, m.pages[i], m.geometry(), m.opts)
	if err != nil {
		return err
	}
	root := c.Root()
	root.X, root.Y = 0, m.positions[i]
	m.content.AddChild(root)
	m.loaded[i] = &LoadedPage{Index: i, Container: c, Y: m.positions[i]}
	return nil
}

func (m *Manager) unload(i int) {
	lp, ok := m.loaded[i]
	if !ok {
		return
	}
	lp.Container.Destroy()
	delete(m.loaded, i)
}

func (m *Manager) unloadAll() {
	for i := range m.loaded {
		m.unload(i)
	}
}

// updateCurrent 把页面中心最接近视口中心的页设为当前页，只在变化时通知。
func (m *Manager) updateCurrent() {
	if len(m.positions) == 0 {
		return
	}
	centerY := m.view.Center().Y
	best, bestDist := 0, math.Inf(1)
	for i, y := range m.positions {
		if d := math.Abs(y + m.cfg.PageHeight/2 - centerY); d < bestDist {
			best, bestDist = i, d
		}
	}
	if best == m.current {
		return
	}
	m.current = best
	m.pageSubs.Emit(m.log, best)
}

func (m *Manager) emitTotalHeight() {
	h := m.TotalHeight()
	m.heightSubs.Emit(m.log, h)
}

// Destroy 卸载全部页面并移除所有监听。可重复调用。
func (m *Manager) Destroy() {
	if m.destroyed {
		return
	}
	m.destroyed = true
	if m.animating {
		m.view.CancelAnimation()
		m.animating = false
	}
	for _, unsub := range m.unsubs {
		unsub()
	}
	m.unsubs = nil
	m.unloadAll()
	m.pageSubs.Clear()
	m.heightSubs.Clear()
	m.backgrounds.Destroy()
	m.content.Destroy()
}
