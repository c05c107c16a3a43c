package viewport

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestViewportClampAndUnderflow(t *testing.T) {
	v := New(800, 600, 1273, 9208, Options{}, nil)
	assert.InDelta(t, 1273/2.0, v.Center().X, 1e-9)
	assert.InDelta(t, 300, v.Center().Y, 1e-9, "中心应被限制在内容顶部")

	v.MoveCenter(0, 1e9, SourceAPI)
	assert.InDelta(t, 9208-300, v.Center().Y, 1e-9)
	assert.InDelta(t, 400, v.Center().X, 1e-9)

	// 缩小到内容比屏幕窄时，横向居中。
	v.SetZoom(0.5, SourceAPI)
	assert.InDelta(t, 1273/2.0, v.Center().X, 1e-9)

	// 整个世界都比屏幕小时，两个轴都居中。
	small := New(800, 600, 100, 100, Options{}, nil)
	assert.Equal(t, Point{X: 50, Y: 50}, small.Center())
}

func TestViewportZoomClampAndNotify(t *testing.T) {
	v := New(800, 600, 1273, 9208, Options{MinZoom: 0.1, MaxZoom: 5}, nil)
	var events []ZoomEvent
	unsub := v.OnZoomed(func(ev ZoomEvent) { events = append(events, ev) })

	assert.Equal(t, 5.0, v.SetZoom(50, SourceAPI))
	assert.Equal(t, 0.1, v.SetZoom(0.001, SourceAPI))
	v.SetZoom(0.1+1e-8, SourceAPI)
	v.SetZoom(math.NaN(), SourceAPI)
	require.Len(t, events, 2, "变化不超过 1e-6 或非法值不应通知")
	assert.Equal(t, 5.0, events[0].Scale)
	assert.Equal(t, 1.0, events[0].Previous)

	unsub()
	unsub()
	v.SetZoom(2, SourceAPI)
	assert.Len(t, events, 2)
	assert.Equal(t, 0, v.ListenerCount())
}

func TestViewportZoomAtKeepsAnchor(t *testing.T) {
	v := New(800, 600, 4000, 9208, Options{}, nil)
	v.MoveCenter(2000, 3000, SourceAPI)
	anchor := Point{X: 200, Y: 150}
	before := v.ToWorld(anchor)
	v.ZoomAt(2, anchor, SourceWheel)
	after := v.ToWorld(anchor)
	assert.InDelta(t, before.X, after.X, 1e-9)
	assert.InDelta(t, before.Y, after.Y, 1e-9)
}

func TestViewportAnimateTick(t *testing.T) {
	v := New(800, 600, 1273, 9208, Options{}, nil)
	done := 0
	var sources []Source
	v.OnMoved(func(ev MoveEvent) { sources = append(sources, ev.Source) })

	v.Animate(Point{X: 0, Y: 4604}, 300*time.Millisecond, nil, func() { done++ })
	require.True(t, v.Animating())
	v.Tick(150 * time.Millisecond)
	mid := v.Center().Y
	assert.Greater(t, mid, 300.0)
	assert.Less(t, mid, 4604.0)
	assert.Equal(t, 0, done)

	v.Tick(200 * time.Millisecond)
	assert.False(t, v.Animating())
	assert.Equal(t, 1, done)
	assert.InDelta(t, 4604, v.Center().Y, 1e-9)
	for _, s := range sources {
		assert.Equal(t, SourceAnimate, s)
	}

	v.Tick(time.Second)
	assert.Equal(t, 1, done, "完成回调只调用一次")
}

func TestEaseInOutCubic(t *testing.T) {
	assert.Equal(t, 0.0, EaseInOutCubic(0))
	assert.Equal(t, 1.0, EaseInOutCubic(1))
	assert.InDelta(t, 0.5, EaseInOutCubic(0.5), 1e-12)
}

func TestApplyInput(t *testing.T) {
	v := New(800, 600, 1273, 9208, Options{}, nil)
	start := v.Center()

	interacted, err := applyInput(v, InputEvent{Type: EventWheel, DY: 120})
	require.NoError(t, err)
	assert.False(t, interacted, "普通滚轮只是翻页")
	assert.InDelta(t, start.Y+120, v.Center().Y, 1e-9)
	assert.Equal(t, 1.0, v.Scale())

	interacted, err = applyInput(v, InputEvent{Type: EventWheel, DY: -100, Modifier: true, X: 400, Y: 300})
	require.NoError(t, err)
	assert.True(t, interacted)
	assert.Greater(t, v.Scale(), 1.0)

	interacted, err = applyInput(v, InputEvent{Type: EventDrag, DY: -50})
	require.NoError(t, err)
	assert.True(t, interacted)

	_, err = applyInput(v, InputEvent{Type: EventPinch, Factor: 0})
	assert.Error(t, err)
	_, err = applyInput(v, InputEvent{Type: "tap"})
	assert.Error(t, err)
	_, err = applyInput(v, InputEvent{Type: EventDrag, DX: math.Inf(1)})
	assert.Error(t, err)
}
