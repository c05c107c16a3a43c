package layout

import (
	"fmt"
	"regexp"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"
)

// 模板样板文字（如 "Topic 1"）不应原样出现在页面上，这里统一识别并替换成编号标签。

var (
	placeholderPattern = regexp.MustCompile(`^(topic|objective|task|untitled|new topic|new objective|new task|competency|thema|ziel|lernziel|aufgabe)( *#? *\d+)?$`)
	genericBlockTitles = map[string]bool{
		"content":     true,
		"container":   true,
		"body":        true,
		"block":       true,
		"section":     true,
		"lesson body": true,
	}
	emptyMarkers = map[string]bool{"": true, "-": true, "—": true, "–": true, "…": true, "...": true, "tbd": true, "n/a": true, "null": true, "undefined": true}
)

// normalizeLabel 做 NFKC 规范化、大小写折叠并压缩空白，去掉尾部冒号。
func normalizeLabel(s string) string {
	s = norm.NFKC.String(s)
	s = cases.Fold().String(s) // Caser 有状态，不能跨 goroutine 共享
	s = strings.Join(strings.Fields(s), " ")
	return strings.TrimRight(s, ":：")
}

// IsPlaceholder 判断文本是否为空或模板占位文字。
func IsPlaceholder(s string) bool {
	n := normalizeLabel(s)
	if emptyMarkers[n] {
		return true
	}
	return placeholderPattern.MatchString(n)
}

// IsGenericTitle 判断块标题是否为 "Content"/"Container" 之类的通用标签。
func IsGenericTitle(s string) bool {
	n := normalizeLabel(s)
	return n == "" || genericBlockTitles[n]
}

// ResolveLabel 返回可展示的文本；缺失或占位时返回 "<kind> <n>"。
func ResolveLabel(value, kind string, n int) string {
	if IsPlaceholder(value) {
		return fmt.Sprintf("%s %d", kind, n)
	}
	return strings.TrimSpace(value)
}
