// Package listeners 提供按订阅顺序同步通知的监听器列表。
// 列表不是并发安全的，和引擎其余部分一样只在 UI goroutine 上使用。
package listeners

import "github.com/ByLCY/lessoncanvas/logger"

type entry[T any] struct {
	id int
	fn func(T)
}

// List 的零值可直接使用。
type List[T any] struct {
	nextID int
	subs   []entry[T]
}

// Add 注册 fn，返回的取消函数可重复调用。fn 为 nil 时什么也不注册。
func (l *List[T]) Add(fn func(T)) func() {
	if fn == nil {
		return func() {}
	}
	l.nextID++
	id := l.nextID
	l.subs = append(l.subs, entry[T]{id: id, fn: fn})
	return func() {
		for i, s := range l.subs {
			if s.id == id {
				l.subs = append(l.subs[:i:i], l.subs[i+1:]...)
				return
			}
		}
	}
}

// Emit 依次调用所有监听器。单个监听器 panic 时记录日志并继续通知其余监听器；
// 监听器在回调中取消订阅不影响本轮遍历。
func (l *List[T]) Emit(log *logger.Logger, v T) {
	subs := append([]entry[T](nil), l.subs...)
	for _, s := range subs {
		call(log, s, v)
	}
}

func call[T any](log *logger.Logger, s entry[T], v T) {
	defer func() {
		if r := recover(); r != nil {
			logger.OrNop(log).Error("listener panicked", "listener", s.id, "panic", r)
		}
	}()
	s.fn(v)
}

// Len 返回当前订阅者数量。
func (l *List[T]) Len() int { return len(l.subs) }

// Clear 移除全部订阅者，已发出的取消函数随之失效。
func (l *List[T]) Clear() { l.subs = nil }
