package layout

import "github.com/ByLCY/lessoncanvas/logger"

// RenderOptions 配置页面渲染器所需的依赖，例如排版后端与日志。
type RenderOptions struct {
	Typesetter Typesetter
	Logger     *logger.Logger
	// Labels 允许替换页眉/页脚字段标签与占位文案，未设置的键使用默认值。
	Labels map[string]string
}

// Typesetter 负责根据字体与宽度约束将文本拆成可绘制的行。
// 所有长度均为世界像素。
type Typesetter interface {
	LayoutLines(content string, width float64, font string, fontSize float64, lineHeight float64, wrap string) ([]TextLine, error)
}

func (o RenderOptions) typesetter() Typesetter {
	if o.Typesetter == nil {
		return EstimateTypesetter{}
	}
	return o.Typesetter
}

func (o RenderOptions) logger() *logger.Logger {
	return logger.OrNop(o.Logger)
}

func (o RenderOptions) label(key, def string) string {
	if v, ok := o.Labels[key]; ok && v != "" {
		return v
	}
	return def
}
