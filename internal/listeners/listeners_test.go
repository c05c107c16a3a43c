package listeners

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/ByLCY/lessoncanvas/logger"
)

func TestEmitInSubscriptionOrder(t *testing.T) {
	var l List[int]
	var got []string
	l.Add(func(v int) { got = append(got, "a") })
	l.Add(func(v int) { got = append(got, "b") })
	l.Add(nil)

	l.Emit(nil, 1)
	assert.Equal(t, []string{"a", "b"}, got)
	assert.Equal(t, 2, l.Len())
}

func TestUnsubscribeIsIdempotent(t *testing.T) {
	var l List[string]
	calls := 0
	off := l.Add(func(string) { calls++ })
	keep := 0
	l.Add(func(string) { keep++ })

	off()
	off()
	l.Emit(logger.NewNop(), "x")
	assert.Zero(t, calls)
	assert.Equal(t, 1, keep)
	assert.Equal(t, 1, l.Len())
}

func TestPanickingListenerDoesNotStopOthers(t *testing.T) {
	var l List[float64]
	var seen []float64
	l.Add(func(float64) { panic("boom") })
	l.Add(func(v float64) { seen = append(seen, v) })

	assert.NotPanics(t, func() { l.Emit(nil, 2.5) })
	assert.Equal(t, []float64{2.5}, seen)
}

func TestUnsubscribeDuringEmit(t *testing.T) {
	var l List[int]
	var off func()
	calls := 0
	off = l.Add(func(int) { off() })
	l.Add(func(int) { calls++ })

	l.Emit(nil, 0)
	assert.Equal(t, 1, calls, "本轮仍通知到第二个监听器")
	assert.Equal(t, 1, l.Len())

	l.Clear()
	l.Emit(nil, 0)
	assert.Equal(t, 1, calls)
	assert.Zero(t, l.Len())
}
