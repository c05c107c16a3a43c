package viewport

import (
	"fmt"
	"math"
)

// EventType 是输入事件的种类。
type EventType string

const (
	EventDrag  EventType = "drag"
	EventPinch EventType = "pinch"
	EventWheel EventType = "wheel"
)

// wheelZoomSpeed 把滚轮增量换算成缩放倍率：deltaY=-100 大约放大 10%。
const wheelZoomSpeed = 0.001

// InputEvent 是宿主转发的指针/滚轮事件，坐标与增量均为屏幕像素。
type InputEvent struct {
	Type EventType `json:"type"`
	X    float64   `json:"x"`
	Y    float64   `json:"y"`
	DX   float64   `json:"dx"`
	DY   float64   `json:"dy"`
	// Factor 是捏合手势相对上一次事件的缩放倍数。
	Factor float64 `json:"factor,omitempty"`
	// Modifier 表示按下了 Ctrl/Cmd。
	Modifier bool `json:"modifier,omitempty"`
}

// applyInput 把事件作用到视口上，返回该事件是否算作用户主动调整视图。
// 普通滚轮只做纵向翻页，不算交互；拖拽、捏合与带修饰键的滚轮缩放会关闭自动适配。
func applyInput(v *Viewport, ev InputEvent) (bool, error) {
	for _, f := range []float64{ev.X, ev.Y, ev.DX, ev.DY, ev.Factor} {
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return false, fmt.Errorf("输入事件包含非法数值: %+v", ev)
		}
	}
	switch ev.Type {
	case EventDrag:
		v.MoveBy(-ev.DX/v.Scale(), -ev.DY/v.Scale(), SourceDrag)
		return true, nil
	case EventPinch:
		if ev.Factor <= 0 {
			return false, fmt.Errorf("捏合倍数必须为正: %g", ev.Factor)
		}
		v.ZoomAt(v.Scale()*ev.Factor, Point{X: ev.X, Y: ev.Y}, SourcePinch)
		return true, nil
	case EventWheel:
		if ev.Modifier {
			factor := math.Exp(-ev.DY * wheelZoomSpeed)
			v.ZoomAt(v.Scale()*factor, Point{X: ev.X, Y: ev.Y}, SourceWheel)
			return true, nil
		}
		v.MoveBy(0, ev.DY/v.Scale(), SourceWheel)
		return false, nil
	default:
		return false, fmt.Errorf("未知输入事件类型: %q", ev.Type)
	}
}
