package host

import (
	"context"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func startLoop(t *testing.T) *Loop {
	t.Helper()
	l := NewLoop(nil)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = l.Run(ctx)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})
	return l
}

func TestLoopRunsTasksInOrder(t *testing.T) {
	l := startLoop(t)
	var got []int
	for i := 0; i < 5; i++ {
		require.True(t, l.Post(func() { got = append(got, i) }))
	}
	require.NoError(t, l.Do(context.Background(), func() {}))
	assert.Equal(t, []int{0, 1, 2, 3, 4}, got)
}

func TestLoopNestedFramesAndPanics(t *testing.T) {
	l := startLoop(t)
	var order []string
	require.NoError(t, l.Do(context.Background(), func() {
		l.RequestFrame(func() { order = append(order, "frame") })
		l.Post(func() { panic("boom") })
		order = append(order, "task")
	}))
	require.NoError(t, l.Do(context.Background(), func() {}))
	assert.Equal(t, []string{"task", "frame"}, order)
}

func TestLoopCloseRejectsWork(t *testing.T) {
	l := NewLoop(nil)
	l.Close()
	l.Close()
	assert.False(t, l.Post(func() {}))
	assert.ErrorIs(t, l.Do(context.Background(), func() {}), ErrClosed)
	assert.NoError(t, l.Run(context.Background()))
}

func TestLoopDoSkipsWorkAfterContextEnds(t *testing.T) {
	l := startLoop(t)
	release := make(chan struct{})
	require.True(t, l.Post(func() { <-release }))

	var ran atomic.Bool
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, l.Do(ctx, func() { ran.Store(true) }), context.DeadlineExceeded)

	expired, cancelExpired := context.WithCancel(context.Background())
	cancelExpired()
	assert.ErrorIs(t, l.Do(expired, func() { ran.Store(true) }), context.Canceled)

	close(release)
	require.NoError(t, l.Do(context.Background(), func() {}))
	assert.False(t, ran.Load(), "ctx 结束后排队中的闭包不应再执行")
}

func TestLoopDoWaitsForStartedWork(t *testing.T) {
	l := startLoop(t)
	ctx, cancel := context.WithCancel(context.Background())
	finished := false
	err := l.Do(ctx, func() {
		cancel()
		time.Sleep(10 * time.Millisecond)
		finished = true
	})
	require.NoError(t, err)
	assert.True(t, finished)
}

func TestLoopTicker(t *testing.T) {
	l := startLoop(t)
	var ticks atomic.Int32
	stop := l.Ticker(time.Millisecond, func(dt time.Duration) {
		if dt > 0 {
			ticks.Add(1)
		}
	})
	require.Eventually(t, func() bool { return ticks.Load() >= 3 }, 2*time.Second, 5*time.Millisecond)
	stop()
	stop()
}

func TestWatchFileDebouncesWrites(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "lesson.lesson")
	require.NoError(t, os.WriteFile(path, []byte("course \"A\" {}"), 0o644))

	var calls atomic.Int32
	w, err := WatchFile(path, 50*time.Millisecond, func() { calls.Add(1) }, nil)
	require.NoError(t, err)
	defer w.Close()

	for i := 0; i < 3; i++ {
		require.NoError(t, os.WriteFile(path, []byte("course \"B\" {}"), 0o644))
	}
	// 同目录的其他文件不会触发回调。
	require.NoError(t, os.WriteFile(filepath.Join(dir, "other.txt"), []byte("x"), 0o644))

	require.Eventually(t, func() bool { return calls.Load() == 1 }, 2*time.Second, 10*time.Millisecond)
	time.Sleep(150 * time.Millisecond)
	assert.Equal(t, int32(1), calls.Load())
	assert.NoError(t, w.Close())
	assert.NoError(t, w.Close())
}
