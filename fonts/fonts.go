// Package fonts 提供内置字体（Go 字体家族）以及按名称注册外部字体文件的能力。
package fonts

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"golang.org/x/image/font/gofont/gobold"
	"golang.org/x/image/font/gofont/goitalic"
	"golang.org/x/image/font/gofont/gomono"
	"golang.org/x/image/font/gofont/goregular"
)

// 排版使用的逻辑字体名。
const (
	Regular = "Body"
	Bold    = "Bold"
	Italic  = "Italic"
	Mono    = "Mono"
)

var builtin = map[string][]byte{
	Regular: goregular.TTF,
	Bold:    gobold.TTF,
	Italic:  goitalic.TTF,
	Mono:    gomono.TTF,
}

// Load 返回内置字体的字节数据，name 可写为 "embed:Bold" 或直接 "Bold"。
func Load(name string) ([]byte, error) {
	key := strings.TrimPrefix(strings.TrimSpace(name), "embed:")
	data, ok := builtin[key]
	if !ok {
		return nil, fmt.Errorf("找不到内置字体 %s", key)
	}
	return data, nil
}

// Registry 把逻辑字体名映射到字体数据。未注册的名称回退到内置字体，再回退到 Regular。
// 可被多个 goroutine 同时读取。
type Registry struct {
	baseDir string

	mu    sync.RWMutex
	paths map[string]string
	blobs map[string][]byte
}

// NewRegistry 以 name→path 的映射创建字体表；相对路径按 baseDir 解析。
// path 也可以写成 "embed:<内置名>"。
func NewRegistry(baseDir string, paths map[string]string) *Registry {
	r := &Registry{baseDir: baseDir, paths: map[string]string{}, blobs: map[string][]byte{}}
	for name, p := range paths {
		if name = strings.TrimSpace(name); name != "" && strings.TrimSpace(p) != "" {
			r.paths[name] = strings.TrimSpace(p)
		}
	}
	return r
}

// Names 返回全部可用的字体名（已注册与内置），按字母排序。
func (r *Registry) Names() []string {
	seen := map[string]bool{}
	for name := range builtin {
		seen[name] = true
	}
	if r != nil {
		r.mu.RLock()
		for name := range r.paths {
			seen[name] = true
		}
		r.mu.RUnlock()
	}
	out := make([]string, 0, len(seen))
	for name := range seen {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// Bytes 返回 name 对应的字体数据。
func (r *Registry) Bytes(name string) ([]byte, error) {
	if r == nil {
		return fallback(name), nil
	}
	r.mu.RLock()
	blob, ok := r.blobs[name]
	path, registered := r.paths[name]
	r.mu.RUnlock()
	if ok {
		return blob, nil
	}
	if !registered {
		return fallback(name), nil
	}

	data, err := r.read(path)
	if err != nil {
		return nil, fmt.Errorf("加载字体 %s 失败: %w", name, err)
	}
	r.mu.Lock()
	r.blobs[name] = data
	r.mu.Unlock()
	return data, nil
}

func (r *Registry) read(path string) ([]byte, error) {
	if strings.HasPrefix(path, "embed:") {
		return Load(path)
	}
	if !filepath.IsAbs(path) && r.baseDir != "" {
		path = filepath.Join(r.baseDir, path)
	}
	return os.ReadFile(path)
}

func fallback(name string) []byte {
	if data, ok := builtin[name]; ok {
		return data
	}
	return builtin[Regular]
}
