// Package config 读取 YAML 配置：内置默认值 → 配置文件 → LESSONCANVAS_* 环境变量，后者覆盖前者。
package config

import (
	"bytes"
	_ "embed"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/ByLCY/lessoncanvas/layout"
	"github.com/ByLCY/lessoncanvas/pages"
	"github.com/ByLCY/lessoncanvas/viewport"
)

//go:embed default.yaml
var defaultYAML []byte

// EnvPrefix 是环境变量覆盖项的前缀。
const EnvPrefix = "LESSONCANVAS_"

type Config struct {
	Page    PageConfig   `yaml:"page"`
	Margins MarginConfig `yaml:"margins"`
	Zoom    ZoomConfig   `yaml:"zoom"`
	Screen  ScreenConfig `yaml:"screen"`
	Render  RenderConfig `yaml:"render"`
	Log     LogConfig    `yaml:"log"`
	HTTP    HTTPConfig   `yaml:"http"`
	Watch   WatchConfig  `yaml:"watch"`
	// PixelsPerMM 为 0 时使用 A4 高度对应 1800px 的默认比例。
	PixelsPerMM float64 `yaml:"pixelsPerMM"`
}

type PageConfig struct {
	Width          float64       `yaml:"width"`
	Height         float64       `yaml:"height"`
	Gap            float64       `yaml:"gap"`
	Padding        float64       `yaml:"padding"`
	Buffer         float64       `yaml:"buffer"`
	MaxLoadedPages int           `yaml:"maxLoadedPages"`
	Animation      time.Duration `yaml:"animation"`
}

// MarginConfig 以 Unit 指定的物理单位描述初始边距。
type MarginConfig struct {
	Unit           string `yaml:"unit"`
	layout.Margins `yaml:",inline"`
}

type ZoomConfig struct {
	Min  float64 `yaml:"min"`
	Max  float64 `yaml:"max"`
	Step float64 `yaml:"step"`
}

type ScreenConfig struct {
	Width  int `yaml:"width"`
	Height int `yaml:"height"`
}

type RenderConfig struct {
	Typesetter string            `yaml:"typesetter"`
	Fonts      map[string]string `yaml:"fonts"`
	Labels     map[string]string `yaml:"labels"`
}

type LogConfig struct {
	Mode  string `yaml:"mode"`
	Level string `yaml:"level"`
}

type HTTPConfig struct {
	Addr          string        `yaml:"addr"`
	FrameInterval time.Duration `yaml:"frameInterval"`
}

type WatchConfig struct {
	Debounce time.Duration `yaml:"debounce"`
}

// Default 返回内置默认配置。
func Default() *Config {
	cfg := &Config{}
	if err := yaml.Unmarshal(defaultYAML, cfg); err != nil {
		panic(fmt.Sprintf("内置配置无效: %v", err))
	}
	return cfg
}

// Load 读取 path（为空时只用默认值），再应用环境变量覆盖并校验。
func Load(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("读取配置文件 %s 失败: %w", path, err)
		}
		if err := Parse(data, cfg); err != nil {
			return nil, fmt.Errorf("解析配置文件 %s 失败: %w", path, err)
		}
	}
	if err := cfg.ApplyEnv(os.LookupEnv); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Parse 把 YAML 合并到 cfg 上，文件中没有出现的字段保持原值。
func Parse(data []byte, cfg *Config) error {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

// LookupFunc 与 os.LookupEnv 签名一致，便于测试注入。
type LookupFunc func(key string) (string, bool)

// ApplyEnv 应用 LESSONCANVAS_* 覆盖项。数值格式错误时返回错误。
func (c *Config) ApplyEnv(lookup LookupFunc) error {
	str := func(name string, dst *string) {
		if v, ok := lookup(EnvPrefix + name); ok && strings.TrimSpace(v) != "" {
			*dst = strings.TrimSpace(v)
		}
	}
	integer := func(name string, dst *int) error {
		v, ok := lookup(EnvPrefix + name)
		if !ok || strings.TrimSpace(v) == "" {
			return nil
		}
		i, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return fmt.Errorf("环境变量 %s%s 不是整数: %q", EnvPrefix, name, v)
		}
		*dst = i
		return nil
	}
	float := func(name string, dst *float64) error {
		v, ok := lookup(EnvPrefix + name)
		if !ok || strings.TrimSpace(v) == "" {
			return nil
		}
		f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil {
			return fmt.Errorf("环境变量 %s%s 不是数字: %q", EnvPrefix, name, v)
		}
		*dst = f
		return nil
	}

	str("LOG_MODE", &c.Log.Mode)
	str("LOG_LEVEL", &c.Log.Level)
	str("HTTP_ADDR", &c.HTTP.Addr)
	str("TYPESETTER", &c.Render.Typesetter)
	str("MARGIN_UNIT", &c.Margins.Unit)
	for _, err := range []error{
		integer("SCREEN_WIDTH", &c.Screen.Width),
		integer("SCREEN_HEIGHT", &c.Screen.Height),
		integer("MAX_LOADED_PAGES", &c.Page.MaxLoadedPages),
		float("ZOOM_MIN", &c.Zoom.Min),
		float("ZOOM_MAX", &c.Zoom.Max),
		float("PIXELS_PER_MM", &c.PixelsPerMM),
	} {
		if err != nil {
			return err
		}
	}
	return nil
}

// Validate 检查配置的取值范围。
func (c *Config) Validate() error {
	if c.Page.Width <= 0 || c.Page.Height <= 0 {
		return fmt.Errorf("页面尺寸必须为正: %gx%g", c.Page.Width, c.Page.Height)
	}
	if c.Page.Gap < 0 || c.Page.Padding < 0 || c.Page.Buffer < 0 {
		return fmt.Errorf("页面间距、留白与缓冲区不能为负")
	}
	if c.Page.MaxLoadedPages < 1 {
		return fmt.Errorf("maxLoadedPages 至少为 1，当前 %d", c.Page.MaxLoadedPages)
	}
	if c.Zoom.Min <= 0 || c.Zoom.Max < c.Zoom.Min {
		return fmt.Errorf("缩放范围无效: [%g, %g]", c.Zoom.Min, c.Zoom.Max)
	}
	if c.Zoom.Step <= 0 {
		return fmt.Errorf("缩放步长必须为正: %g", c.Zoom.Step)
	}
	if c.PixelsPerMM < 0 {
		return fmt.Errorf("pixelsPerMM 不能为负: %g", c.PixelsPerMM)
	}
	if _, err := c.MarginUnit(); err != nil {
		return err
	}
	switch c.Render.Typesetter {
	case "canvas", "estimate":
	default:
		return fmt.Errorf("未知的排版后端 %q（可选 canvas/estimate）", c.Render.Typesetter)
	}
	return nil
}

// MarginUnit 解析边距单位。
func (c *Config) MarginUnit() (layout.Unit, error) {
	u, err := layout.ParseUnit(c.Margins.Unit)
	if err != nil {
		return layout.UnitNone, fmt.Errorf("边距单位无效: %w", err)
	}
	return u, nil
}

// PagesConfig 转换为页面管理器参数。
func (c *Config) PagesConfig() pages.Config {
	return pages.Config{
		PageWidth:         c.Page.Width,
		PageHeight:        c.Page.Height,
		Gap:               c.Page.Gap,
		Padding:           c.Page.Padding,
		Buffer:            c.Page.Buffer,
		MaxLoadedPages:    c.Page.MaxLoadedPages,
		AnimationDuration: c.Page.Animation,
	}
}

// ZoomOptions 转换为视口缩放范围。
func (c *Config) ZoomOptions() viewport.Options {
	return viewport.Options{MinZoom: c.Zoom.Min, MaxZoom: c.Zoom.Max}
}

// Scale 返回像素/毫米比例。
func (c *Config) Scale() float64 {
	if c.PixelsPerMM > 0 {
		return c.PixelsPerMM
	}
	return layout.DefaultPixelsPerMM
}
