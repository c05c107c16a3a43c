package layout

import (
	"sort"
	"strings"

	"github.com/mattn/go-runewidth"
)

const (
	tableCellPadding  = 8.0
	tableHeaderHeight = 34.0
	minColumnWidth    = 56.0
	tableDepthIndent  = 24.0
	missingCellValue  = "—"
	// 文本长度参与列宽计算时的上下限，防止单列吞掉整张表。
	minObservedWidth = 4
	maxObservedWidth = 80
)

// columnWeights 为常见语义列设置默认权重，未列出的键权重为 1。
var columnWeights = map[string]float64{
	"objective":   2.2,
	"objectives":  2.2,
	"description": 2.0,
	"content":     2.0,
	"task":        1.8,
	"tasks":       1.8,
	"activity":    1.6,
	"topic":       1.6,
	"competency":  1.6,
	"materials":   1.3,
	"method":      1.2,
	"socialform":  1.0,
	"social_form": 1.0,
	"phase":       0.9,
	"time":        0.6,
	"duration":    0.6,
	"minutes":     0.6,
	"number":      0.4,
	"no":          0.4,
	"#":           0.4,
}

// ColumnWeight 返回列键对应的默认权重。
func ColumnWeight(key string) float64 {
	k := strings.ToLower(strings.TrimSpace(key))
	if w, ok := columnWeights[k]; ok {
		return w
	}
	return 1
}

// ComputeColumnWidths 计算内容感知的列宽：权重 × 观测到的最大文本宽度，
// 归一化到可用宽度；低于下限的列抬到下限，差额从最宽的列开始扣除。
// 返回值之和等于 available。
func ComputeColumnWidths(table *TableData, available float64) []float64 {
	if table == nil || len(table.Columns) == 0 {
		return nil
	}
	n := len(table.Columns)
	widths := make([]float64, n)
	if available <= 0 {
		return widths
	}

	floor := minColumnWidth
	if floor*float64(n) > available {
		floor = available / float64(n)
	}

	scores := make([]float64, n)
	total := 0.0
	for i, col := range table.Columns {
		observed := runewidth.StringWidth(strings.TrimSpace(col.Label))
		for _, row := range table.Rows {
			if w := runewidth.StringWidth(strings.TrimSpace(row[col.Key])); w > observed {
				observed = w
			}
		}
		observed = min(max(observed, minObservedWidth), maxObservedWidth)
		scores[i] = ColumnWeight(col.Key) * float64(observed)
		total += scores[i]
	}
	for i := range widths {
		widths[i] = available * scores[i] / total
	}

	deficit := 0.0
	for i, w := range widths {
		if w < floor {
			deficit += floor - w
			widths[i] = floor
		}
	}
	if deficit > 0 {
		order := make([]int, n)
		for i := range order {
			order[i] = i
		}
		sort.SliceStable(order, func(a, b int) bool { return widths[order[a]] > widths[order[b]] })
		for _, idx := range order {
			if deficit <= 0 {
				break
			}
			spare := widths[idx] - floor
			if spare <= 0 {
				continue
			}
			take := min(spare, deficit)
			widths[idx] -= take
			deficit -= take
		}
	}
	return widths
}

// layoutTable 排版表格。表格没有内容时返回 ok=false，由调用方改画空状态文案。
func layoutTable(table *TableData, x, y, width float64, ts Typesetter) (TableBox, float64, bool, error) {
	if !table.HasContent() {
		return TableBox{}, 0, false, nil
	}
	indent := float64(max(table.Depth, 0)) * tableDepthIndent
	if indent > width/2 {
		indent = width / 2
	}
	x += indent
	width -= indent

	box := TableBox{
		X:            x,
		Y:            y,
		Width:        width,
		ColumnWidths: ComputeColumnWidths(table, width),
		BorderColor:  ColorRule,
	}

	cursorY := y
	header := TableRow{Y: cursorY, Height: tableHeaderHeight, IsHeader: true}
	cellX := x
	for i, col := range table.Columns {
		colWidth := box.ColumnWidths[i]
		label := strings.TrimSpace(col.Label)
		if label == "" {
			label = col.Key
		}
		tb, h, err := composeText(label, cellX+tableCellPadding, cursorY, innerWidth(colWidth), StyleHeaderCell, ts)
		if err != nil {
			return TableBox{}, 0, false, err
		}
		tb.Y = cursorY + (tableHeaderHeight-h)/2
		header.Cells = append(header.Cells, TableCell{Text: tb})
		cellX += colWidth
	}
	box.Rows = append(box.Rows, header)
	cursorY += tableHeaderHeight

	for _, data := range table.Rows {
		row := TableRow{Y: cursorY}
		tallest := 0.0
		cellX = x
		for i, col := range table.Columns {
			colWidth := box.ColumnWidths[i]
			value := strings.TrimSpace(data[col.Key])
			if value == "" {
				value = missingCellValue
			}
			tb, h, err := composeText(value, cellX+tableCellPadding, cursorY+tableCellPadding, innerWidth(colWidth), WrapStyle(StyleCell, "anywhere"), ts)
			if err != nil {
				return TableBox{}, 0, false, err
			}
			tallest = max(tallest, h)
			row.Cells = append(row.Cells, TableCell{Text: tb})
			cellX += colWidth
		}
		row.Height = tallest + 2*tableCellPadding
		box.Rows = append(box.Rows, row)
		cursorY += row.Height
	}
	box.Height = cursorY - y
	return box, box.Height, true, nil
}

func innerWidth(colWidth float64) float64 {
	w := colWidth - 2*tableCellPadding
	if w <= 0 {
		return colWidth
	}
	return w
}
