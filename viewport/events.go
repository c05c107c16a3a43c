package viewport

// Source 标记视口变化的来源。
type Source string

const (
	SourceAPI     Source = "api"
	SourceDrag    Source = "drag"
	SourceWheel   Source = "wheel"
	SourcePinch   Source = "pinch"
	SourceAnimate Source = "animate"
	SourceResize  Source = "resize"
)

// MoveEvent 在视口中心移动后发出。
type MoveEvent struct {
	Center Point
	Source Source
}

// ZoomEvent 在缩放比例变化后发出。
type ZoomEvent struct {
	Scale    float64
	Previous float64
	Source   Source
}
