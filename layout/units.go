package layout

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// 本文件提供物理单位（mm/cm/in/pt）与设备像素之间的纯函数换算。

// Unit 表示长度的原始单位。
type Unit int

const (
	UnitNone Unit = iota // 无单位（倍数等）
	UnitMM               // 毫米
	UnitCM               // 厘米
	UnitIN               // 英寸
	UnitPT               // 点
	UnitPX               // 设备像素
)

// Conversion constants between pt/in and mm.
const (
	PtToMm = 0.352777
	MmToPt = 1.0 / PtToMm
	InToMm = 25.4
)

// DefaultPixelsPerMM 让 A4 纸高（297mm）恰好对应 1800 个世界像素。
const DefaultPixelsPerMM = 1800.0 / 297.0

// String returns a short string for a Unit value.
func (u Unit) String() string {
	switch u {
	case UnitMM:
		return "mm"
	case UnitCM:
		return "cm"
	case UnitIN:
		return "in"
	case UnitPT:
		return "pt"
	case UnitPX:
		return "px"
	default:
		return ""
	}
}

// ParseUnit 解析单位名称，支持 inch/inches 等别名。
func ParseUnit(s string) (Unit, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "mm", "millimeter", "millimeters":
		return UnitMM, nil
	case "cm", "centimeter", "centimeters":
		return UnitCM, nil
	case "in", "inch", "inches":
		return UnitIN, nil
	case "pt", "point", "points":
		return UnitPT, nil
	case "px", "pixel", "pixels":
		return UnitPX, nil
	case "":
		return UnitNone, nil
	default:
		return UnitNone, fmt.Errorf("未知单位：%s", s)
	}
}

// MarshalText lets units appear as "mm"/"px" in JSON and YAML.
func (u Unit) MarshalText() ([]byte, error) { return []byte(u.String()), nil }

// UnmarshalText parses unit names.
func (u *Unit) UnmarshalText(b []byte) error {
	v, err := ParseUnit(string(b))
	if err != nil {
		return err
	}
	*u = v
	return nil
}

// Length preserves a numeric value with its unit.
type Length struct {
	Value float64 `json:"value"`
	Unit  Unit    `json:"unit"`
}

// ToPixels 将给定单位的数值换算为像素。UnitNone 视为像素。
func ToPixels(value float64, unit Unit, pixelsPerMM float64) float64 {
	switch unit {
	case UnitPX, UnitNone:
		return value
	default:
		return ToMillimeters(value, unit, pixelsPerMM) * pixelsPerMM
	}
}

// ToMillimeters 将给定单位的数值换算为毫米；像素输入需要 pixelsPerMM。
func ToMillimeters(value float64, unit Unit, pixelsPerMM float64) float64 {
	switch unit {
	case UnitMM:
		return value
	case UnitCM:
		return value * 10
	case UnitIN:
		return value * InToMm
	case UnitPT:
		return value * PtToMm
	case UnitPX, UnitNone:
		if pixelsPerMM <= 0 {
			return 0
		}
		return value / pixelsPerMM
	}
	return value
}

// FromMillimeters 是 ToMillimeters 的逆运算。
func FromMillimeters(mm float64, unit Unit, pixelsPerMM float64) float64 {
	switch unit {
	case UnitMM:
		return mm
	case UnitCM:
		return mm / 10
	case UnitIN:
		return mm / InToMm
	case UnitPT:
		return mm * MmToPt
	case UnitPX, UnitNone:
		return mm * pixelsPerMM
	}
	return mm
}

// Convert 在任意两种单位之间换算。
func Convert(value float64, from, to Unit, pixelsPerMM float64) float64 {
	if from == to {
		return value
	}
	return FromMillimeters(ToMillimeters(value, from, pixelsPerMM), to, pixelsPerMM)
}

// ConvertMargins 对四个边距逐一换算。
func ConvertMargins(m Margins, from, to Unit, pixelsPerMM float64) Margins {
	return Margins{
		Top:    Convert(m.Top, from, to, pixelsPerMM),
		Right:  Convert(m.Right, from, to, pixelsPerMM),
		Bottom: Convert(m.Bottom, from, to, pixelsPerMM),
		Left:   Convert(m.Left, from, to, pixelsPerMM),
	}
}

// Round 按单位做展示用的取整：像素取整数，毫米保留两位，其余保留三位。
func Round(value float64, unit Unit) float64 {
	switch unit {
	case UnitPX, UnitNone:
		return math.Round(value)
	case UnitMM:
		return math.Round(value*100) / 100
	default:
		return math.Round(value*1000) / 1000
	}
}

// RoundMargins applies Round to every side.
func RoundMargins(m Margins, unit Unit) Margins {
	return Margins{
		Top:    Round(m.Top, unit),
		Right:  Round(m.Right, unit),
		Bottom: Round(m.Bottom, unit),
		Left:   Round(m.Left, unit),
	}
}

// ParseLength parses strings like "12mm", "0.5in" or "40px" preserving the unit.
// A bare number is returned with UnitNone.
func ParseLength(value string) (Length, error) {
	v := strings.ToLower(strings.TrimSpace(value))
	if v == "" {
		return Length{}, fmt.Errorf("长度为空")
	}
	unit := UnitNone
	num := v
	for _, suf := range []struct {
		s string
		u Unit
	}{{"mm", UnitMM}, {"cm", UnitCM}, {"in", UnitIN}, {"pt", UnitPT}, {"px", UnitPX}} {
		if strings.HasSuffix(v, suf.s) {
			unit = suf.u
			num = strings.TrimSpace(strings.TrimSuffix(v, suf.s))
			break
		}
	}
	f, err := strconv.ParseFloat(num, 64)
	if err != nil {
		return Length{}, fmt.Errorf("无法解析长度 %q: %w", value, err)
	}
	return Length{Value: f, Unit: unit}, nil
}

// Pixels converts the length with the given ratio.
func (l Length) Pixels(pixelsPerMM float64) float64 {
	return ToPixels(l.Value, l.Unit, pixelsPerMM)
}
