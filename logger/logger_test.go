package logger

import (
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestOrNopHandlesNil(t *testing.T) {
	l := OrNop(nil)
	if l == nil || l.SugaredLogger == nil {
		t.Fatalf("OrNop(nil) 应返回可用的日志器")
	}
	l.Warn("ignored", "k", 1)
}

func TestWithKeepsFields(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	l := &Logger{SugaredLogger: zap.New(core).Sugar()}
	l.With("component", "margins").Warn("listener failed", "index", 2)

	entries := logs.All()
	if len(entries) != 1 {
		t.Fatalf("期望 1 条日志，实际 %d", len(entries))
	}
	ctx := entries[0].ContextMap()
	if ctx["component"] != "margins" {
		t.Fatalf("缺少 component 字段: %#v", ctx)
	}
	if ctx["index"] != int64(2) {
		t.Fatalf("index 字段错误: %#v", ctx["index"])
	}
}

func TestNewRejectsBadLevel(t *testing.T) {
	if _, err := New("dev", "verbose-ish"); err == nil {
		t.Fatalf("非法日志级别应返回错误")
	}
}
