package dsl

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/ByLCY/lessoncanvas/layout"
)

// Load 读取页面输入：.json 为 []PageMetadata，其余按大纲文本编译。
func Load(path string) ([]layout.PageMetadata, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("读取输入文件失败: %w", err)
	}
	if strings.EqualFold(filepath.Ext(path), ".json") {
		return DecodePages(data)
	}
	pages, err := CompileString(string(data))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return pages, nil
}

// DecodePages 解码 JSON 页面列表，并补齐缺失的页码。
func DecodePages(data []byte) ([]layout.PageMetadata, error) {
	var pages []layout.PageMetadata
	if err := json.Unmarshal(data, &pages); err != nil {
		return nil, fmt.Errorf("解析页面 JSON 失败: %w", err)
	}
	for i := range pages {
		if pages[i].PageNumber <= 0 {
			pages[i].PageNumber = i + 1
		}
		if pages[i].TotalPages <= 0 {
			pages[i].TotalPages = len(pages)
		}
	}
	return pages, nil
}
