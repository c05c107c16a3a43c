package layout

import (
	"encoding/json"
	"os"
)

// PageLayout 是一页排版后的三个区域，坐标相对页面左上角。
type PageLayout struct {
	Index  int     `json:"index"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
	Header Region  `json:"header"`
	Body   Region  `json:"body"`
	Footer Region  `json:"footer"`
}

// Document 是整份文档的排版结果，供调试输出与 PDF 导出使用。
type Document struct {
	PixelsPerMM float64      `json:"pixelsPerMM"`
	Margins     Margins      `json:"margins"`
	Pages       []PageLayout `json:"pages"`
}

// WriteDebugJSON 将布局结果输出为 JSON，便于调试或可视化。
func WriteDebugJSON(doc *Document, path string) error {
	if doc == nil {
		return nil
	}
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}
