// Package renderer 定义排版结果的输出后端。
package renderer

import (
	"io"

	"github.com/ByLCY/lessoncanvas/layout"
)

// Renderer 将整份文档的排版结果输出为最终文件，例如 PDF。
// Render 返回生成的二进制数据以及可能的错误。
type Renderer interface {
	Render(doc *layout.Document) ([]byte, error)
}

// Export 用 r 渲染 doc 并写入 w。
func Export(r Renderer, w io.Writer, doc *layout.Document) error {
	data, err := r.Render(doc)
	if err != nil {
		return err
	}
	_, err = w.Write(data)
	return err
}
