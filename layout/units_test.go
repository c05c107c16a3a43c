package layout

import (
	"math"
	"testing"
)

// TestPtMmRoundTrip 验证 pt↔mm 换算的往返精度（允许极小的浮点误差）。
func TestPtMmRoundTrip(t *testing.T) {
	samples := []float64{0, 0.001, 1, 12, 14.4, 72, 96, 144, 1000}
	for _, pt := range samples {
		mm := pt * PtToMm
		back := mm * MmToPt
		if diff := math.Abs(back - pt); diff > 1e-9 {
			t.Fatalf("pt→mm→pt 往返误差过大: in=%gpt mm=%g back=%g diff=%g", pt, mm, back, diff)
		}
	}
}

// TestConvertRoundTrip 覆盖任意两种单位之间 A→B→A 的往返。
func TestConvertRoundTrip(t *testing.T) {
	units := []Unit{UnitMM, UnitCM, UnitIN, UnitPT, UnitPX}
	values := []float64{0, 0.5, 1, 20, 25.4, 297, 1800}
	for _, from := range units {
		for _, to := range units {
			for _, v := range values {
				back := Convert(Convert(v, from, to, DefaultPixelsPerMM), to, from, DefaultPixelsPerMM)
				if diff := math.Abs(back - v); diff > 1e-9 {
					t.Fatalf("%s→%s→%s 往返误差过大: in=%g back=%g", from, to, from, v, back)
				}
			}
		}
	}
}

func TestToPixels(t *testing.T) {
	if got := ToPixels(297, UnitMM, DefaultPixelsPerMM); math.Abs(got-1800) > 1e-9 {
		t.Fatalf("297mm 应为 1800px，实际 %g", got)
	}
	if got := ToPixels(1, UnitIN, 10); math.Abs(got-254) > 1e-9 {
		t.Fatalf("1in@10px/mm 应为 254px，实际 %g", got)
	}
	if got := ToPixels(2.54, UnitCM, 1); math.Abs(got-25.4) > 1e-9 {
		t.Fatalf("2.54cm@1px/mm 应为 25.4px，实际 %g", got)
	}
	if got := ToPixels(42, UnitPX, 3); got != 42 {
		t.Fatalf("像素输入应原样返回，实际 %g", got)
	}
	if got := ToMillimeters(100, UnitPX, 0); got != 0 {
		t.Fatalf("比例为 0 时像素无法换算，应返回 0，实际 %g", got)
	}
}

func TestRoundByUnit(t *testing.T) {
	cases := []struct {
		in   float64
		unit Unit
		want float64
	}{
		{121.4999, UnitPX, 121},
		{121.5, UnitPX, 122},
		{20.004, UnitMM, 20},
		{20.006, UnitMM, 20.01},
		{0.78741, UnitIN, 0.787},
		{1.23456, UnitCM, 1.235},
	}
	for _, c := range cases {
		if got := Round(c.in, c.unit); math.Abs(got-c.want) > 1e-9 {
			t.Fatalf("Round(%g, %s) 期望 %g，实际 %g", c.in, c.unit, c.want, got)
		}
	}
}

func TestParseLength(t *testing.T) {
	cases := []struct {
		in   string
		want Length
	}{
		{"12mm", Length{12, UnitMM}},
		{" 0.5 cm", Length{0.5, UnitCM}},
		{"1in", Length{1, UnitIN}},
		{"10PX", Length{10, UnitPX}},
		{"11pt", Length{11, UnitPT}},
		{"3", Length{3, UnitNone}},
	}
	for _, c := range cases {
		got, err := ParseLength(c.in)
		if err != nil {
			t.Fatalf("解析 %q 失败: %v", c.in, err)
		}
		if got != c.want {
			t.Fatalf("解析 %q 期望 %+v，实际 %+v", c.in, c.want, got)
		}
	}
	for _, bad := range []string{"", "mm", "12furlong"} {
		if _, err := ParseLength(bad); err == nil {
			t.Fatalf("非法长度 %q 应报错", bad)
		}
	}
}

func TestUnitText(t *testing.T) {
	var u Unit
	if err := u.UnmarshalText([]byte("inches")); err != nil || u != UnitIN {
		t.Fatalf("inches 应解析为 in: %v %v", u, err)
	}
	if err := u.UnmarshalText([]byte("furlong")); err == nil {
		t.Fatalf("未知单位应报错")
	}
	b, _ := UnitMM.MarshalText()
	if string(b) != "mm" {
		t.Fatalf("MarshalText 期望 mm，实际 %s", b)
	}
}
