package pages

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ByLCY/lessoncanvas/layout"
	"github.com/ByLCY/lessoncanvas/scene"
	"github.com/ByLCY/lessoncanvas/viewport"
)

func samplePages(n int) []layout.PageMetadata {
	out := make([]layout.PageMetadata, n)
	for i := range out {
		out[i] = layout.PageMetadata{
			PageNumber:  i + 1,
			TotalPages:  n,
			LessonTitle: "Lesson",
			Teacher:     "Ms. Weber",
		}
	}
	return out
}

type fixture struct {
	view    *viewport.Viewport
	stage   *scene.Stage
	margins *layout.MarginManager
	mgr     *Manager
}

func newFixture(t *testing.T, n int) *fixture {
	t.Helper()
	f := &fixture{
		view:    viewport.New(800, 600, 0, 0, viewport.Options{}, nil),
		stage:   scene.NewStage(),
		margins: layout.NewMarginManager(layout.DefaultMargins, layout.UnitMM, layout.DefaultPixelsPerMM, nil),
	}
	mgr, err := NewManager(f.view, f.stage, f.margins, samplePages(n), DefaultConfig(), layout.RenderOptions{})
	require.NoError(t, err)
	f.mgr = mgr
	t.Cleanup(mgr.Destroy)
	return f
}

func TestPagePositionsAndTotalHeight(t *testing.T) {
	f := newFixture(t, 5)

	assert.InDelta(t, 9208.0, f.mgr.TotalHeight(), 1e-9)
	for i := 0; i < 5; i++ {
		assert.InDelta(t, 24+float64(i)*1840, f.mgr.PageY(i), 1e-9)
		if i > 0 {
			assert.GreaterOrEqual(t, f.mgr.PageY(i), f.mgr.PageY(i-1)+1800)
		}
	}
	assert.Equal(t, 9208.0, f.view.WorldHeight())
	assert.Len(t, f.mgr.PageFrames(), 5)
	assert.Equal(t, 0, f.mgr.CurrentIndex())
}

func TestGoToPageCentersPage(t *testing.T) {
	f := newFixture(t, 5)

	require.NoError(t, f.mgr.GoToPage(2, false))
	assert.InDelta(t, 4604.0, f.view.Center().Y, 1e-9)
	assert.InDelta(t, 636.5, f.view.Center().X, 1e-9)
	assert.Equal(t, 2, f.mgr.CurrentIndex())

	_, ok := f.mgr.Container(2)
	assert.True(t, ok, "目标页应已加载")
	page, ok := f.mgr.CurrentPage()
	require.True(t, ok)
	assert.Equal(t, 3, page.PageNumber)
}

func TestGoToPageOutOfRangeKeepsState(t *testing.T) {
	f := newFixture(t, 5)
	require.NoError(t, f.mgr.GoToPage(1, false))
	before := f.view.Center()

	for _, idx := range []int{-1, 5, 42} {
		err := f.mgr.GoToPage(idx, false)
		assert.ErrorIs(t, err, ErrPageOutOfRange)
	}
	assert.Equal(t, before, f.view.Center())
	assert.Equal(t, 1, f.mgr.CurrentIndex())
}

func TestGoToPageNoPages(t *testing.T) {
	f := newFixture(t, 0)
	assert.ErrorIs(t, f.mgr.GoToPage(0, false), ErrNoPages)
	assert.Equal(t, -1, f.mgr.CurrentIndex())
	assert.Zero(t, f.mgr.TotalHeight())
	assert.Zero(t, f.mgr.LoadedCount())
}

func TestAnimatedNavigationRejectsOverlap(t *testing.T) {
	f := newFixture(t, 5)

	require.NoError(t, f.mgr.GoToPage(3, true))
	assert.True(t, f.mgr.Animating())
	assert.ErrorIs(t, f.mgr.GoToPage(1, false), ErrAnimating)

	f.view.Tick(150 * time.Millisecond)
	assert.True(t, f.mgr.Animating())
	f.view.Tick(150 * time.Millisecond)
	assert.False(t, f.mgr.Animating())

	assert.InDelta(t, 24+3*1840+900.0, f.view.Center().Y, 1e-9)
	assert.Equal(t, 3, f.mgr.CurrentIndex())
	require.NoError(t, f.mgr.GoToPage(1, false))
}

func TestCancelledAnimationReleasesNavigation(t *testing.T) {
	f := newFixture(t, 5)
	require.NoError(t, f.mgr.GoToPage(4, true))
	f.view.CancelAnimation()
	assert.False(t, f.mgr.Animating())
	assert.NoError(t, f.mgr.GoToPage(2, false))
}

func TestPageChangeNotifiesOnlyOnChange(t *testing.T) {
	f := newFixture(t, 5)
	var got []int
	unsub := f.mgr.OnPageChange(func(i int) { got = append(got, i) })

	require.NoError(t, f.mgr.GoToPage(1, false))
	require.NoError(t, f.mgr.GoToPage(1, false))
	f.view.MoveBy(0, 10, viewport.SourceDrag)
	require.NoError(t, f.mgr.GoToPage(2, false))
	assert.Equal(t, []int{1, 2}, got)

	unsub()
	unsub()
	require.NoError(t, f.mgr.GoToPage(0, false))
	assert.Equal(t, []int{1, 2}, got)
}

func TestPageChangeListenerPanicIsContained(t *testing.T) {
	f := newFixture(t, 3)
	var got []int
	f.mgr.OnPageChange(func(int) { panic("boom") })
	f.mgr.OnPageChange(func(i int) { got = append(got, i) })

	assert.NotPanics(t, func() { require.NoError(t, f.mgr.GoToPage(2, false)) })
	assert.Equal(t, []int{2}, got)
}

func TestNextPreviousClampAtEdges(t *testing.T) {
	f := newFixture(t, 3)

	require.NoError(t, f.mgr.PreviousPage(false))
	assert.Equal(t, 0, f.mgr.CurrentIndex())

	require.NoError(t, f.mgr.NextPage(false))
	require.NoError(t, f.mgr.NextPage(false))
	assert.Equal(t, 2, f.mgr.CurrentIndex())
	require.NoError(t, f.mgr.NextPage(false))
	assert.Equal(t, 2, f.mgr.CurrentIndex())

	require.NoError(t, f.mgr.PreviousPage(false))
	assert.Equal(t, 1, f.mgr.CurrentIndex())
}

func TestVirtualizationRespectsLoadBound(t *testing.T) {
	f := newFixture(t, 20)
	assert.LessOrEqual(t, f.mgr.LoadedCount(), 6)

	f.view.SetZoom(viewport.DefaultMinZoom, viewport.SourceAPI)
	assert.LessOrEqual(t, f.mgr.LoadedCount(), 6)

	// 与可见区域相交的页面必须全部在场。
	visible := f.view.VisibleBounds()
	for i, frame := range f.mgr.PageFrames() {
		if frame.Y < visible.Bottom() && frame.Bottom() > visible.Y {
			_, ok := f.mgr.Container(i)
			assert.True(t, ok, "可见页 %d 未加载", i)
		}
	}

	for _, lp := range f.mgr.Loaded() {
		assert.Equal(t, f.mgr.PageY(lp.Index), lp.Y)
		assert.Equal(t, lp.Y, lp.Container.Root().Y)
	}
}

func TestVirtualizationUnloadsOffscreenPages(t *testing.T) {
	f := newFixture(t, 10)
	require.NoError(t, f.mgr.GoToPage(0, false))
	_, ok := f.mgr.Container(0)
	require.True(t, ok)
	first, _ := f.mgr.Container(0)

	require.NoError(t, f.mgr.GoToPage(9, false))
	_, ok = f.mgr.Container(0)
	assert.False(t, ok)
	assert.True(t, first.Destroyed())
	assert.Equal(t, f.mgr.LoadedCount(), f.stage.Content.Children()[0].(*scene.Group).Len())
}

func TestSetPagesSameCountUpdatesInPlace(t *testing.T) {
	f := newFixture(t, 3)
	before, ok := f.mgr.Container(0)
	require.True(t, ok)

	next := samplePages(3)
	next[0].Teacher = "Mr. Braun"
	require.NoError(t, f.mgr.SetPages(next))

	after, ok := f.mgr.Container(0)
	require.True(t, ok)
	assert.Same(t, before, after)
	assert.Equal(t, "Mr. Braun", after.Metadata().Teacher)
}

func TestSetPagesRebuildsOnCountChange(t *testing.T) {
	f := newFixture(t, 5)
	require.NoError(t, f.mgr.GoToPage(4, false))
	var heights []float64
	f.mgr.OnTotalHeightChange(func(h float64) { heights = append(heights, h) })

	require.NoError(t, f.mgr.SetPages(samplePages(3)))
	assert.Equal(t, 3, f.mgr.PageCount())
	assert.Equal(t, 0, f.mgr.CurrentIndex())
	assert.Equal(t, []float64{5528}, heights)
	assert.Equal(t, 5528.0, f.view.WorldHeight())
	assert.Len(t, f.stage.Background.Children()[0].(*scene.Group).Children(), 3)
}

func TestMarginChangeRelaysLoadedPages(t *testing.T) {
	f := newFixture(t, 2)
	require.NoError(t, f.margins.SetMargins(layout.Margins{Top: 10, Right: 10, Bottom: 10, Left: 10}, layout.UnitMM))

	c, ok := f.mgr.Container(0)
	require.True(t, ok)
	want := 10 * layout.DefaultPixelsPerMM
	body := c.Regions().Body.Bounds
	assert.InDelta(t, want, body.X, 1e-9)
	assert.InDelta(t, want, body.Y, 1e-9)
	assert.InDelta(t, 1273-2*want, body.Width, 1e-9)
}

func TestLayoutRendersUnloadedPages(t *testing.T) {
	f := newFixture(t, 10)
	_, loaded := f.mgr.Container(9)
	require.False(t, loaded)

	pl, err := f.mgr.Layout(9)
	require.NoError(t, err)
	assert.Equal(t, 9, pl.Index)
	assert.NotEmpty(t, pl.Body.Texts)

	_, err = f.mgr.Layout(10)
	assert.ErrorIs(t, err, ErrPageOutOfRange)
}

func TestDestroyIsIdempotentAndDetaches(t *testing.T) {
	f := newFixture(t, 4)
	calls := 0
	f.mgr.OnPageChange(func(int) { calls++ })
	require.Positive(t, f.mgr.LoadedCount())

	f.mgr.Destroy()
	f.mgr.Destroy()

	assert.Zero(t, f.view.ListenerCount())
	assert.Zero(t, f.mgr.LoadedCount())
	assert.Zero(t, f.stage.Content.Len())
	assert.Zero(t, f.stage.Background.Len())

	f.view.MoveBy(0, 2000, viewport.SourceDrag)
	assert.NoError(t, f.mgr.GoToPage(3, false))
	assert.Zero(t, calls)
}

func TestNewManagerRequiresViewAndStage(t *testing.T) {
	_, err := NewManager(nil, scene.NewStage(), nil, nil, DefaultConfig(), layout.RenderOptions{})
	assert.Error(t, err)
}
