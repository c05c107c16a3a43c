// Package binding 负责页眉/页脚覆盖值中的 ${key} 模板插值。
package binding

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

var exprPattern = regexp.MustCompile(`\$\{([^}]+)\}`)

// Resolver 根据路径查找替换值。
type Resolver interface {
	Resolve(path string) (string, bool)
}

// Interpolate 将文本中的 ${path} 替换为 resolver 中的值。
// resolver 为空或路径不存在时保留原占位符。
func Interpolate(text string, r Resolver) string {
	if r == nil || !strings.Contains(text, "${") {
		return text
	}
	return exprPattern.ReplaceAllStringFunc(text, func(match string) string {
		groups := exprPattern.FindStringSubmatch(match)
		if len(groups) < 2 {
			return match
		}
		path := strings.TrimSpace(groups[1])
		if path == "" {
			return match
		}
		if val, ok := r.Resolve(path); ok {
			return val
		}
		return match
	})
}

// Map 是扁平的键值解析器，键匹配不区分大小写。
type Map map[string]string

func (m Map) Resolve(path string) (string, bool) {
	if v, ok := m[path]; ok {
		return v, true
	}
	for k, v := range m {
		if strings.EqualFold(k, path) {
			return v, true
		}
	}
	return "", false
}

// Data 按 a.b[0].c 形式的路径解析 JSON 风格的数据（map[string]any / []any）。
type Data struct {
	Value any
}

func (d Data) Resolve(path string) (string, bool) {
	if d.Value == nil {
		return "", false
	}
	val, ok := resolvePath(d.Value, path)
	if !ok || val == nil {
		return "", false
	}
	return fmt.Sprint(val), true
}

// Chain 依次尝试多个解析器，返回第一个命中的值。
type Chain []Resolver

func (c Chain) Resolve(path string) (string, bool) {
	for _, r := range c {
		if r == nil {
			continue
		}
		if v, ok := r.Resolve(path); ok {
			return v, true
		}
	}
	return "", false
}

func resolvePath(data any, path string) (any, bool) {
	current := data
	for _, segment := range strings.Split(path, ".") {
		name, indexes := parseSegment(segment)
		if name != "" {
			m, ok := current.(map[string]any)
			if !ok {
				return nil, false
			}
			if current, ok = m[name]; !ok {
				return nil, false
			}
		}
		for _, idxStr := range indexes {
			idx, err := strconv.Atoi(idxStr)
			if err != nil {
				return nil, false
			}
			arr, ok := current.([]any)
			if !ok || idx < 0 || idx >= len(arr) {
				return nil, false
			}
			current = arr[idx]
		}
	}
	return current, true
}

func parseSegment(segment string) (string, []string) {
	i := strings.Index(segment, "[")
	if i == -1 {
		return segment, nil
	}
	name := segment[:i]
	var indexes []string
	rest := segment[i:]
	for len(rest) > 0 && rest[0] == '[' {
		end := strings.IndexByte(rest, ']')
		if end == -1 {
			break
		}
		indexes = append(indexes, rest[1:end])
		rest = rest[end+1:]
	}
	return name, indexes
}
