// Package host 提供引擎运行所需的“UI 线程”：一个按顺序执行闭包的 goroutine，
// 以及驱动动画的帧时钟与输入文件监听。
package host

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ByLCY/lessoncanvas/logger"
	"github.com/ByLCY/lessoncanvas/viewport"
)

// ErrClosed 表示事件循环已经停止。
var ErrClosed = errors.New("host: loop closed")

// Loop 在单个 goroutine 中依次执行投递的闭包。队列不设上限，循环内部投递不会阻塞。
type Loop struct {
	log *logger.Logger

	mu     sync.Mutex
	queue  []func()
	closed bool

	wake chan struct{}
	quit chan struct{}
	once sync.Once
}

var _ viewport.FrameScheduler = (*Loop)(nil)

// NewLoop creates a stopped loop; call Run to start it.
func NewLoop(log *logger.Logger) *Loop {
	return &Loop{
		log:  logger.OrNop(log).With("component", "loop"),
		wake: make(chan struct{}, 1),
		quit: make(chan struct{}),
	}
}

// Post 投递 fn，循环已关闭时返回 false。
func (l *Loop) Post(fn func()) bool {
	if fn == nil {
		return false
	}
	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		return false
	}
	l.queue = append(l.queue, fn)
	l.mu.Unlock()
	select {
	case l.wake <- struct{}{}:
	default:
	}
	return true
}

// RequestFrame 实现 viewport.FrameScheduler：回调在下一轮循环中执行。
func (l *Loop) RequestFrame(fn func()) { l.Post(fn) }

// Do 投递 fn 并等待其执行完毕。
// ctx 在 fn 开始前结束时 fn 不再执行并返回 ctx.Err()；fn 一旦开始，Do 等它结束后返回 nil。
func (l *Loop) Do(ctx context.Context, fn func()) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	var claimed atomic.Bool
	done := make(chan struct{})
	if !l.Post(func() {
		defer close(done)
		if claimed.CompareAndSwap(false, true) {
			fn()
		}
	}) {
		return ErrClosed
	}
	abandon := func(err error) error {
		if claimed.CompareAndSwap(false, true) {
			return err
		}
		<-done
		return nil
	}
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return abandon(ctx.Err())
	case <-l.quit:
		return abandon(ErrClosed)
	}
}

// Run 执行队列直到 ctx 结束或 Close 被调用。
func (l *Loop) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			l.Close()
			return ctx.Err()
		case <-l.quit:
			return nil
		case <-l.wake:
			l.drain()
		}
	}
}

func (l *Loop) drain() {
	for {
		l.mu.Lock()
		batch := l.queue
		l.queue = nil
		l.mu.Unlock()
		if len(batch) == 0 {
			return
		}
		for _, fn := range batch {
			select {
			case <-l.quit:
				return
			default:
			}
			l.run(fn)
		}
	}
}

func (l *Loop) run(fn func()) {
	defer func() {
		if r := recover(); r != nil {
			l.log.Error("loop task panicked", "panic", r)
		}
	}()
	fn()
}

// Close 停止循环并丢弃尚未执行的闭包。可重复调用。
func (l *Loop) Close() {
	l.once.Do(func() {
		l.mu.Lock()
		l.closed = true
		l.queue = nil
		l.mu.Unlock()
		close(l.quit)
	})
}

// Ticker 按 interval 向循环投递 fn(dt)。上一帧尚未执行时跳过本次投递。
// 返回的函数停止时钟。
func (l *Loop) Ticker(interval time.Duration, fn func(dt time.Duration)) (stop func()) {
	if interval <= 0 {
		interval = 16 * time.Millisecond
	}
	t := time.NewTicker(interval)
	stopped := make(chan struct{})
	var pending atomic.Bool
	go func() {
		defer t.Stop()
		last := time.Now()
		for {
			select {
			case <-stopped:
				return
			case <-l.quit:
				return
			case now := <-t.C:
				if !pending.CompareAndSwap(false, true) {
					continue
				}
				dt := now.Sub(last)
				last = now
				if !l.Post(func() {
					defer pending.Store(false)
					fn(dt)
				}) {
					return
				}
			}
		}
	}()
	var once sync.Once
	return func() { once.Do(func() { close(stopped) }) }
}
