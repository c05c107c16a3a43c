package layout

import (
	"fmt"
	"math"

	"github.com/ByLCY/lessoncanvas/internal/listeners"
	"github.com/ByLCY/lessoncanvas/logger"
)

// Margins 记录四个方向的边距，单位由上下文决定。
type Margins struct {
	Top    float64 `json:"top" yaml:"top"`
	Right  float64 `json:"right" yaml:"right"`
	Bottom float64 `json:"bottom" yaml:"bottom"`
	Left   float64 `json:"left" yaml:"left"`
}

// Horizontal returns Left+Right.
func (m Margins) Horizontal() float64 { return m.Left + m.Right }

// Vertical returns Top+Bottom.
func (m Margins) Vertical() float64 { return m.Top + m.Bottom }

// CanvasMarginState 是所有页面内容安全区的唯一来源（像素）。
type CanvasMarginState struct {
	Margins
	Space Unit `json:"space"`
}

// DefaultMargins 与 Word 的习惯一致：四边 20mm。
var DefaultMargins = Margins{Top: 20, Right: 20, Bottom: 20, Left: 20}

// MarginListener 在边距变化后被同步调用。
type MarginListener func(state CanvasMarginState)

// MarginManager 持有当前边距并在变化时通知订阅者。
// 所有调用都应来自同一个（UI）goroutine。
type MarginManager struct {
	pixelsPerMM float64
	state       CanvasMarginState
	subs        listeners.List[CanvasMarginState]
	log         *logger.Logger
}

// NewMarginManager 以物理单位的初始边距构建管理器。
func NewMarginManager(initial Margins, unit Unit, pixelsPerMM float64, log *logger.Logger) *MarginManager {
	if pixelsPerMM <= 0 {
		pixelsPerMM = DefaultPixelsPerMM
	}
	mm := &MarginManager{pixelsPerMM: pixelsPerMM, log: logger.OrNop(log).With("component", "margins")}
	mm.state = CanvasMarginState{Margins: sanitizeMargins(ConvertMargins(initial, unit, UnitPX, pixelsPerMM)), Space: UnitPX}
	return mm
}

// PixelsPerMM 返回换算比例。
func (m *MarginManager) PixelsPerMM() float64 { return m.pixelsPerMM }

// Margins 返回当前像素边距的副本。
func (m *MarginManager) Margins() CanvasMarginState { return m.state }

// MarginsIn 以指定单位返回当前边距，并做展示用取整。
func (m *MarginManager) MarginsIn(unit Unit) Margins {
	return RoundMargins(ConvertMargins(m.state.Margins, UnitPX, unit, m.pixelsPerMM), unit)
}

// SetMargins 换算并替换当前边距，然后同步通知所有订阅者。
func (m *MarginManager) SetMargins(margins Margins, unit Unit) error {
	for _, v := range []float64{margins.Top, margins.Right, margins.Bottom, margins.Left} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			m.log.Warn("rejecting non-finite margins", "margins", margins, "unit", unit.String())
			return fmt.Errorf("边距必须是有限数值: %+v", margins)
		}
	}
	px := ConvertMargins(margins, unit, UnitPX, m.pixelsPerMM)
	clean := sanitizeMargins(px)
	if clean != px {
		m.log.Warn("negative margins clamped to zero", "margins", margins, "unit", unit.String())
	}
	m.state = CanvasMarginState{Margins: clean, Space: UnitPX}
	m.notify()
	return nil
}

// OnChange 注册监听器，返回的取消函数可重复调用。
func (m *MarginManager) OnChange(fn MarginListener) func() {
	if fn == nil {
		return func() {}
	}
	return m.subs.Add(fn)
}

func (m *MarginManager) notify() { m.subs.Emit(m.log, m.state) }

func sanitizeMargins(m Margins) Margins {
	clamp := func(v float64) float64 {
		if v < 0 {
			return 0
		}
		return v
	}
	return Margins{Top: clamp(m.Top), Right: clamp(m.Right), Bottom: clamp(m.Bottom), Left: clamp(m.Left)}
}
