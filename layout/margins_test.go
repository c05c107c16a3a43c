package layout

import (
	"math"
	"testing"
)

func TestMarginManagerDefaults(t *testing.T) {
	mm := NewMarginManager(DefaultMargins, UnitMM, DefaultPixelsPerMM, nil)
	state := mm.Margins()
	want := 20 * DefaultPixelsPerMM
	if math.Abs(state.Top-want) > 1e-9 || math.Abs(state.Left-want) > 1e-9 {
		t.Fatalf("默认边距换算错误: %+v", state)
	}
	if state.Space != UnitPX {
		t.Fatalf("边距状态应处于像素空间，实际 %s", state.Space)
	}
	if got := mm.MarginsIn(UnitMM); got != DefaultMargins {
		t.Fatalf("以毫米读取应得到 20mm，实际 %+v", got)
	}
}

func TestMarginManagerCopyAndClamp(t *testing.T) {
	mm := NewMarginManager(Margins{}, UnitPX, 1, nil)
	if err := mm.SetMargins(Margins{Top: 10, Right: -5, Bottom: 30, Left: 40}, UnitPX); err != nil {
		t.Fatalf("设置边距失败: %v", err)
	}
	got := mm.Margins()
	if got.Right != 0 {
		t.Fatalf("负边距应被钳制为 0，实际 %g", got.Right)
	}
	got.Top = 999
	if mm.Margins().Top != 10 {
		t.Fatalf("Margins 应返回副本")
	}
	if err := mm.SetMargins(Margins{Top: math.NaN()}, UnitPX); err == nil {
		t.Fatalf("NaN 边距应被拒绝")
	}
	if mm.Margins().Top != 10 {
		t.Fatalf("被拒绝的设置不应修改状态")
	}
}

func TestMarginListenersOrderPanicAndUnsubscribe(t *testing.T) {
	mm := NewMarginManager(Margins{}, UnitPX, 1, nil)
	var calls []string
	unsubA := mm.OnChange(func(CanvasMarginState) { calls = append(calls, "a") })
	mm.OnChange(func(CanvasMarginState) { panic("boom") })
	mm.OnChange(func(s CanvasMarginState) { calls = append(calls, "c") })

	if err := mm.SetMargins(Margins{Top: 1}, UnitPX); err != nil {
		t.Fatalf("设置边距失败: %v", err)
	}
	if len(calls) != 2 || calls[0] != "a" || calls[1] != "c" {
		t.Fatalf("监听器应按订阅顺序调用且不受 panic 影响: %v", calls)
	}

	unsubA()
	unsubA()
	calls = nil
	if err := mm.SetMargins(Margins{Top: 2}, UnitPX); err != nil {
		t.Fatalf("设置边距失败: %v", err)
	}
	if len(calls) != 1 || calls[0] != "c" {
		t.Fatalf("取消订阅后不应再收到通知: %v", calls)
	}
}
