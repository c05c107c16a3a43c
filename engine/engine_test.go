package engine

import (
	"bytes"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ByLCY/lessoncanvas/layout"
	"github.com/ByLCY/lessoncanvas/pages"
	"github.com/ByLCY/lessoncanvas/scene"
	"github.com/ByLCY/lessoncanvas/viewport"
)

type fakeSurface struct {
	draws int
}

func (f *fakeSurface) Resize(int, int) error { return nil }

func (f *fakeSurface) Draw(*scene.Stage, *viewport.Viewport) error {
	f.draws++
	return nil
}

func (f *fakeSurface) EncodePNG(w io.Writer) error {
	_, err := w.Write([]byte("png"))
	return err
}

type fakeExporter struct {
	doc *layout.Document
}

func (f *fakeExporter) Export(w io.Writer, doc *layout.Document) error {
	f.doc = doc
	_, err := w.Write([]byte("%PDF"))
	return err
}

type manualFrames struct{ queue []func() }

func (m *manualFrames) RequestFrame(fn func()) { m.queue = append(m.queue, fn) }

func (m *manualFrames) flush() {
	q := m.queue
	m.queue = nil
	for _, fn := range q {
		fn()
	}
}

// failingTypesetter 在 fail 为真时让所有排版失败，否则按估算排版。
type failingTypesetter struct{ fail bool }

func (f *failingTypesetter) LayoutLines(content string, width float64, font string, fontSize float64, lineHeight float64, wrap string) ([]layout.TextLine, error) {
	if f.fail {
		return nil, errors.New("typesetter unavailable")
	}
	return layout.EstimateTypesetter{}.LayoutLines(content, width, font, fontSize, lineHeight, wrap)
}

func lessonPages(n int) []layout.PageMetadata {
	out := make([]layout.PageMetadata, n)
	for i := range out {
		out[i] = layout.PageMetadata{PageNumber: i + 1, TotalPages: n, LessonTitle: "Lesson"}
	}
	return out
}

func threePages() []layout.PageMetadata {
	out := make([]layout.PageMetadata, 3)
	for i := range out {
		out[i] = layout.PageMetadata{PageNumber: i + 1, TotalPages: 3, LessonTitle: "Lesson"}
	}
	return out
}

func newEngine(t *testing.T, frames viewport.FrameScheduler) (*Engine, *fakeSurface, *fakeExporter) {
	t.Helper()
	surface := &fakeSurface{}
	exporter := &fakeExporter{}
	e := New(Options{
		NewSurface: func(int, int) (viewport.Surface, error) { return surface, nil },
		Frames:     frames,
		Exporter:   exporter,
	})
	t.Cleanup(e.Destroy)
	return e, surface, exporter
}

func TestEngineNotReadyBeforeInit(t *testing.T) {
	e, _, _ := newEngine(t, nil)
	require.NoError(t, e.SetPages(threePages()))

	assert.Equal(t, 3, e.TotalPages())
	assert.Equal(t, -1, e.CurrentIndex())
	assert.ErrorIs(t, e.GoToPage(0, false), viewport.ErrNotReady)
	assert.ErrorIs(t, e.NextPage(false), viewport.ErrNotReady)
	_, err := e.ZoomIn(0)
	assert.ErrorIs(t, err, viewport.ErrNotReady)
	assert.ErrorIs(t, e.Snapshot(io.Discard), viewport.ErrNotReady)
	assert.False(t, e.Tick(time.Second))
}

func TestEngineLifecycleAndNavigation(t *testing.T) {
	e, _, _ := newEngine(t, nil)
	var pagesSeen []int
	var heights, scales []float64
	e.OnPageChange(func(i int) { pagesSeen = append(pagesSeen, i) })
	e.OnTotalHeightChange(func(h float64) { heights = append(heights, h) })
	e.OnZoomChange(func(s float64) { scales = append(scales, s) })
	require.NoError(t, e.SetPages(threePages()))

	require.NoError(t, e.Init(1273, 900))
	require.True(t, e.Ready())
	assert.Equal(t, []float64{5528}, heights)
	assert.Equal(t, []int{0}, pagesSeen)
	require.Len(t, scales, 1)
	assert.InDelta(t, 0.5, scales[0], 1e-9)

	require.NoError(t, e.GoToPage(2, false))
	assert.Equal(t, 2, e.CurrentIndex())
	assert.ErrorIs(t, e.GoToPage(7, false), pages.ErrPageOutOfRange)
	assert.Equal(t, 2, e.CurrentIndex())

	require.NoError(t, e.PreviousPage(true))
	assert.True(t, e.Animating())
	assert.ErrorIs(t, e.GoToPage(0, false), pages.ErrAnimating)
	assert.False(t, e.Tick(300*time.Millisecond))
	assert.False(t, e.Animating())
	assert.Equal(t, 1, e.CurrentIndex())
	assert.Equal(t, []int{0, 2, 1}, pagesSeen)

	page, ok := e.CurrentPage()
	require.True(t, ok)
	assert.Equal(t, 2, page.PageNumber)
}

// TestEngineZeroOptionsUseDefaultGeometry 零值 Options 采用默认页面几何与翻页动画。
func TestEngineZeroOptionsUseDefaultGeometry(t *testing.T) {
	e := New(Options{})
	defer e.Destroy()
	require.NoError(t, e.SetPages(lessonPages(5)))
	require.NoError(t, e.Init(1273, 900))
	require.True(t, e.Ready())

	assert.InDelta(t, 9208.0, e.TotalHeight(), 1e-9)
	assert.InDelta(t, 0.5, e.Scale(), 1e-9)

	require.NoError(t, e.GoToPage(2, true))
	assert.True(t, e.Animating())
	assert.ErrorIs(t, e.NextPage(false), pages.ErrAnimating)

	assert.True(t, e.Tick(150*time.Millisecond))
	assert.False(t, e.Tick(150*time.Millisecond))
	assert.False(t, e.Animating())
	assert.Equal(t, 2, e.CurrentIndex())
	assert.InDelta(t, 24+2*1840+900.0, e.Controller().Viewport().Center().Y, 1e-6)
}

// TestEngineRetriesLayoutAfterFailure 首次建立布局失败时状态给出原因，之后的 SetPages 重新建立。
func TestEngineRetriesLayoutAfterFailure(t *testing.T) {
	ts := &failingTypesetter{fail: true}
	e := New(Options{Render: layout.RenderOptions{Typesetter: ts}})
	defer e.Destroy()
	require.NoError(t, e.SetPages(threePages()))
	require.NoError(t, e.Init(1273, 900))

	assert.False(t, e.Ready())
	st := e.Status()
	assert.False(t, st.Ready)
	assert.Contains(t, st.Error, "typesetter unavailable")
	assert.ErrorIs(t, e.GoToPage(1, false), viewport.ErrNotReady)

	assert.Error(t, e.SetPages(threePages()), "排版仍然失败")
	assert.False(t, e.Ready())

	ts.fail = false
	var heights []float64
	e.OnTotalHeightChange(func(h float64) { heights = append(heights, h) })
	require.NoError(t, e.SetPages(threePages()))
	require.True(t, e.Ready())
	assert.Empty(t, e.Status().Error)
	assert.Equal(t, []float64{5528}, heights)
	assert.Equal(t, 0, e.CurrentIndex())
	assert.NoError(t, e.GoToPage(1, false))
}

func TestEngineZoomAPI(t *testing.T) {
	e, _, _ := newEngine(t, nil)
	require.NoError(t, e.SetPages(threePages()))
	require.NoError(t, e.Init(1273, 900))

	scale, err := e.ZoomIn(0)
	require.NoError(t, err)
	assert.InDelta(t, 0.55, scale, 1e-9)
	assert.True(t, e.Status().UserInteracted)

	scale, err = e.ZoomTo(100)
	require.NoError(t, err)
	assert.Equal(t, viewport.DefaultMaxZoom, scale)

	_, err = e.ZoomTo(-1)
	assert.ErrorIs(t, err, viewport.ErrInvalidZoom)

	scale, err = e.ResetView()
	require.NoError(t, err)
	assert.InDelta(t, 0.5, scale, 1e-9)
	assert.False(t, e.Status().UserInteracted)
	assert.Equal(t, 0, e.CurrentIndex())
}

func TestEngineWaitsForFirstFrame(t *testing.T) {
	frames := &manualFrames{}
	e, _, _ := newEngine(t, frames)
	require.NoError(t, e.SetPages(threePages()))
	require.NoError(t, e.Init(800, 600))

	assert.False(t, e.Ready())
	assert.ErrorIs(t, e.GoToPage(1, false), viewport.ErrNotReady)

	frames.flush()
	require.True(t, e.Ready())
	assert.NoError(t, e.GoToPage(1, false))
}

func TestEngineSetPagesAfterReady(t *testing.T) {
	e, _, _ := newEngine(t, nil)
	require.NoError(t, e.Init(800, 600))
	assert.Equal(t, 0, e.TotalPages())
	assert.Zero(t, e.TotalHeight())

	var heights []float64
	e.OnTotalHeightChange(func(h float64) { heights = append(heights, h) })
	require.NoError(t, e.SetPages(threePages()))
	assert.Equal(t, 3, e.TotalPages())
	assert.Equal(t, []float64{5528}, heights)
	assert.Len(t, e.Controller().Stage().Overlay.Children(), 3)
}

func TestEngineMarginsRelayOverlay(t *testing.T) {
	e, _, _ := newEngine(t, nil)
	require.NoError(t, e.SetPages(threePages()))
	require.NoError(t, e.Init(1273, 900))

	require.NoError(t, e.SetMargins(layout.Margins{Top: 10, Right: 10, Bottom: 10, Left: 10}, layout.UnitMM))
	assert.Equal(t, layout.Margins{Top: 10, Right: 10, Bottom: 10, Left: 10}, e.Margins(layout.UnitMM))

	overlay := e.Controller().Stage().Overlay.Children()
	require.Len(t, overlay, 3)
	rect, ok := overlay[0].(*scene.Rect)
	require.True(t, ok)
	want := 10 * layout.DefaultPixelsPerMM
	assert.InDelta(t, 1273-2*want, rect.Shape.Width, 1e-9)

	c, ok := e.Manager().Container(0)
	require.True(t, ok)
	assert.InDelta(t, want, c.Regions().Body.Bounds.X, 1e-9)
}

func TestEngineSnapshotAndExport(t *testing.T) {
	e, surface, exporter := newEngine(t, nil)
	require.NoError(t, e.SetPages(threePages()))
	require.NoError(t, e.Init(1273, 900))

	var png bytes.Buffer
	require.NoError(t, e.Snapshot(&png))
	assert.Equal(t, "png", png.String())
	assert.Equal(t, 1, surface.draws)

	var pdf bytes.Buffer
	require.NoError(t, e.ExportPDF(&pdf))
	assert.Equal(t, "%PDF", pdf.String())
	require.NotNil(t, exporter.doc)
	assert.Len(t, exporter.doc.Pages, 3)
	assert.Equal(t, 2, exporter.doc.Pages[2].Index)
	assert.InDelta(t, layout.DefaultPixelsPerMM, exporter.doc.PixelsPerMM, 1e-12)
}

func TestEngineExportWithoutExporter(t *testing.T) {
	e := New(Options{})
	defer e.Destroy()
	require.NoError(t, e.Init(800, 600))
	assert.ErrorIs(t, e.ExportPDF(io.Discard), ErrNoExporter)
	assert.ErrorIs(t, e.Snapshot(io.Discard), ErrNoSnapshot)
}

func TestEngineStatus(t *testing.T) {
	e, _, _ := newEngine(t, nil)
	require.NoError(t, e.SetPages(threePages()))
	require.NoError(t, e.Init(1273, 900))

	st := e.Status()
	assert.True(t, st.Ready)
	assert.Equal(t, 3, st.TotalPages)
	assert.Equal(t, 0, st.CurrentIndex)
	assert.InDelta(t, 5528.0, st.TotalHeight, 1e-9)
	assert.Contains(t, st.LoadedPages, 0)
}

func TestEngineDestroyIdempotent(t *testing.T) {
	e, _, _ := newEngine(t, nil)
	require.NoError(t, e.SetPages(threePages()))
	require.NoError(t, e.Init(800, 600))
	view := e.Controller().Viewport()
	calls := 0
	e.OnPageChange(func(int) { calls++ })

	e.Destroy()
	e.Destroy()

	assert.Zero(t, view.ListenerCount())
	assert.Nil(t, e.Manager())
	assert.ErrorIs(t, e.GoToPage(1, false), viewport.ErrDestroyed)
	assert.ErrorIs(t, e.SetPages(nil), viewport.ErrDestroyed)
	assert.ErrorIs(t, e.Init(800, 600), viewport.ErrDestroyed)
	assert.Zero(t, calls)
}
