package layout

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/ByLCY/lessoncanvas/binding"
)

// 页眉/页脚渲染：按字段顺序把“标签 + 值”均匀铺开在区域宽度内。

// FieldPlacement 区分页眉与页脚。
type FieldPlacement int

const (
	PlacementHeader FieldPlacement = iota
	PlacementFooter
)

func (p FieldPlacement) String() string {
	if p == PlacementFooter {
		return "footer"
	}
	return "header"
}

// 默认字段顺序。
var (
	DefaultHeaderFields = []string{"lesson", "module", "course", "teacher", "date"}
	DefaultFooterFields = []string{"institution", "method", "socialForm", "duration", "copyright", "page"}
)

var defaultFieldLabels = map[string]string{
	"lesson":      "Lesson",
	"module":      "Module",
	"course":      "Course",
	"teacher":     "Teacher",
	"institution": "Institution",
	"date":        "Date",
	"method":      "Method",
	"socialForm":  "Social form",
	"duration":    "Duration",
	"structure":   "Structure",
	"copyright":   "Copyright",
	"page":        "Page",
}

const (
	fieldLabelGap   = 4.0
	fieldColumnGap  = 12.0
	fallbackFieldID = "page"
)

// FieldFormatter 把字段键与可选覆盖值转换成展示文本。
type FieldFormatter func(key, override string) string

// FieldValues 返回元数据中每个字段的展示值。
func FieldValues(meta *PageMetadata) map[string]string {
	values := map[string]string{}
	if meta == nil {
		return values
	}
	values["lesson"] = strings.TrimSpace(meta.LessonTitle)
	values["lessonId"] = strings.TrimSpace(meta.LessonID)
	values["module"] = strings.TrimSpace(meta.ModuleTitle)
	values["moduleId"] = strings.TrimSpace(meta.ModuleID)
	values["course"] = strings.TrimSpace(meta.CourseTitle)
	values["teacher"] = strings.TrimSpace(meta.Teacher)
	values["institution"] = strings.TrimSpace(meta.Institution)
	values["method"] = strings.TrimSpace(meta.Method)
	values["socialForm"] = strings.TrimSpace(meta.SocialForm)
	values["copyright"] = strings.TrimSpace(meta.Copyright)
	if !meta.Date.IsZero() {
		values["date"] = meta.Date.Format("02.01.2006")
	}
	if meta.Duration > 0 {
		values["duration"] = fmt.Sprintf("%d min", meta.Duration)
	}
	if meta.Structure != nil {
		values["structure"] = SummaryLine(*meta.Structure)
	}
	values["pageNumber"] = strconv.Itoa(meta.PageNumber)
	values["totalPages"] = strconv.Itoa(meta.TotalPages)
	values["page"] = pageLabel(meta.PageNumber, meta.TotalPages)
	return values
}

func pageLabel(n, total int) string {
	if n <= 0 {
		n = 1
	}
	if total >= n {
		return fmt.Sprintf("%d / %d", n, total)
	}
	return strconv.Itoa(n)
}

// NewFieldFormatter 返回基于元数据的格式化函数。
// 覆盖值优先，其中的 ${key} 依次按字段值与元数据 JSON 路径插值。
func NewFieldFormatter(meta *PageMetadata) FieldFormatter {
	values := FieldValues(meta)
	resolver := binding.Chain{binding.Map(values), metadataData(meta)}
	return func(key, override string) string {
		if strings.TrimSpace(override) != "" {
			return strings.TrimSpace(binding.Interpolate(override, resolver))
		}
		return values[key]
	}
}

// metadataData 把元数据转成 JSON 风格的 map，供 ${structure.topics} 这类路径使用。
func metadataData(meta *PageMetadata) binding.Resolver {
	if meta == nil {
		return nil
	}
	shallow := *meta
	shallow.Layout = nil
	raw, err := json.Marshal(shallow)
	if err != nil {
		return nil
	}
	var data map[string]any
	if err := json.Unmarshal(raw, &data); err != nil {
		return nil
	}
	return binding.Data{Value: data}
}

// ResolveFieldSpecs 决定字段顺序：元数据的 FieldConfig 非空时整体替换默认顺序，
// 否则看页眉/页脚节点的 FieldsData，最后回退到默认顺序。
func ResolveFieldSpecs(meta *PageMetadata, placement FieldPlacement) []FieldSpec {
	if meta != nil && meta.FieldConfig != nil {
		override := meta.FieldConfig.Header
		if placement == PlacementFooter {
			override = meta.FieldConfig.Footer
		}
		if specs := cleanSpecs(override); len(specs) > 0 {
			return specs
		}
	}
	if meta != nil {
		role := RoleHeader
		if placement == PlacementFooter {
			role = RoleFooter
		}
		if node := FindRole(meta.Layout, role); node != nil {
			if fd, ok := node.Data.(*FieldsData); ok {
				if specs := cleanSpecs(fd.Fields); len(specs) > 0 {
					return specs
				}
			}
		}
	}
	keys := DefaultHeaderFields
	if placement == PlacementFooter {
		keys = DefaultFooterFields
	}
	specs := make([]FieldSpec, len(keys))
	for i, k := range keys {
		specs[i] = FieldSpec{Key: k}
	}
	return specs
}

func cleanSpecs(in []FieldSpec) []FieldSpec {
	out := make([]FieldSpec, 0, len(in))
	for _, s := range in {
		s.Key = strings.TrimSpace(s.Key)
		if s.Key == "" && strings.TrimSpace(s.Value) == "" {
			continue
		}
		out = append(out, s)
	}
	return out
}

// RenderFields 在 bounds 内排版字段。inset 只使用左右两边，用于让字段与正文对齐。
// 值为空的字段被丢弃；全部为空时只画一个页码字段，保证区域不空白。
func RenderFields(bounds Bounds, inset Margins, specs []FieldSpec, format FieldFormatter, opts RenderOptions) (Region, error) {
	region := Region{Bounds: bounds}
	if bounds.Height <= 0 || bounds.Width <= 0 {
		return region, nil
	}
	if format == nil {
		format = func(string, string) string { return "" }
	}
	ts := opts.typesetter()

	type visibleField struct {
		label string
		value string
	}
	var fields []visibleField
	for _, spec := range specs {
		value := strings.TrimSpace(format(spec.Key, spec.Value))
		if value == "" {
			continue
		}
		label := spec.Label
		if label == "" {
			label = opts.label(spec.Key, defaultFieldLabels[spec.Key])
		}
		fields = append(fields, visibleField{label: label, value: value})
	}
	if len(fields) == 0 {
		value := strings.TrimSpace(format(fallbackFieldID, ""))
		if value == "" {
			value = "1"
		}
		fields = []visibleField{{label: opts.label(fallbackFieldID, defaultFieldLabels[fallbackFieldID]), value: value}}
	}

	left := bounds.X + inset.Left
	width := bounds.Width - inset.Left - inset.Right
	if width <= 0 {
		left, width = bounds.X, bounds.Width
	}
	colWidth := width / float64(len(fields))
	textWidth := colWidth - fieldColumnGap
	if textWidth <= 0 {
		textWidth = colWidth
	}

	for i, f := range fields {
		x := left + float64(i)*colWidth + (colWidth-textWidth)/2
		var labelBox TextBox
		labelH := 0.0
		if strings.TrimSpace(f.label) != "" {
			var err error
			labelBox, labelH, err = composeText(f.label, x, 0, textWidth, StyleFieldLabel, ts)
			if err != nil {
				return region, err
			}
		}
		valueBox, valueH, err := composeText(f.value, x, 0, textWidth, StyleFieldValue, ts)
		if err != nil {
			return region, err
		}
		gap := 0.0
		if labelH > 0 {
			gap = fieldLabelGap
		}
		blockH := labelH + gap + valueH
		top := bounds.Y + (bounds.Height-blockH)/2
		if top < bounds.Y {
			top = bounds.Y
		}
		if labelH > 0 {
			labelBox.Y = top
			region.appendText(labelBox)
		}
		valueBox.Y = top + labelH + gap
		region.appendText(valueBox)
	}
	return region, nil
}

// RenderHeader 渲染页眉区域。
func RenderHeader(meta *PageMetadata, bounds Bounds, inset Margins, opts RenderOptions) (Region, error) {
	return RenderFields(bounds, inset, ResolveFieldSpecs(meta, PlacementHeader), NewFieldFormatter(meta), opts)
}

// RenderFooter 渲染页脚区域。
func RenderFooter(meta *PageMetadata, bounds Bounds, inset Margins, opts RenderOptions) (Region, error) {
	return RenderFields(bounds, inset, ResolveFieldSpecs(meta, PlacementFooter), NewFieldFormatter(meta), opts)
}
