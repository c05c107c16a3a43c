package fonts

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"golang.org/x/image/font/gofont/gobold"
	"golang.org/x/image/font/gofont/goregular"
)

func TestLoadBuiltin(t *testing.T) {
	data, err := Load("embed:Bold")
	if err != nil {
		t.Fatalf("读取内置字体失败: %v", err)
	}
	if !bytes.Equal(data, gobold.TTF) {
		t.Fatalf("embed:Bold 应返回 Go Bold")
	}
	if _, err := Load("Missing"); err == nil {
		t.Fatalf("未知字体应返回错误")
	}
}

func TestRegistryFallbackAndOverride(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "custom.ttf"), []byte("fake"), 0o644); err != nil {
		t.Fatal(err)
	}
	r := NewRegistry(dir, map[string]string{"Custom": "custom.ttf", "Alias": "embed:Bold", "Broken": "nope.ttf"})

	data, err := r.Bytes("Custom")
	if err != nil || string(data) != "fake" {
		t.Fatalf("应按 baseDir 读取注册字体: %q %v", data, err)
	}
	if data, _ := r.Bytes("Alias"); !bytes.Equal(data, gobold.TTF) {
		t.Fatalf("embed: 路径应解析为内置字体")
	}
	if data, _ := r.Bytes("Unknown"); !bytes.Equal(data, goregular.TTF) {
		t.Fatalf("未注册字体应回退到 Regular")
	}
	if _, err := r.Bytes("Broken"); err == nil {
		t.Fatalf("缺失的字体文件应返回错误")
	}

	names := r.Names()
	if len(names) != 7 || names[0] != "Alias" {
		t.Fatalf("字体名列表不符合预期: %v", names)
	}

	var nilRegistry *Registry
	if data, _ := nilRegistry.Bytes(Bold); !bytes.Equal(data, gobold.TTF) {
		t.Fatalf("nil 注册表应使用内置字体")
	}
}
