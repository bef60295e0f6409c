package httpapi

import (
	"fmt"

	"github.com/Vintage-The-Gemini/space/internal/service"

	"github.com/xuri/excelize/v2"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// headerStyle 表头：加粗、浅蓝底、细边框、居中
func headerStyle() *excelize.Style {
	return &excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{"#DCE6F1"}},
		Border: []excelize.Border{
			{Type: "left", Color: "A6A6A6", Style: 1},
			{Type: "right", Color: "A6A6A6", Style: 1},
			{Type: "top", Color: "A6A6A6", Style: 1},
			{Type: "bottom", Color: "A6A6A6", Style: 1},
		},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
	}
}

// GenerateTableExcel renders an export table as xlsx with the stream writer,
// so large collections are not held cell by cell in memory.
func GenerateTableExcel(t *service.Table) (out []byte, err error) {
	f := excelize.NewFile()
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("failed to close workbook: %w", cerr)
		}
	}()

	// 默认的 Sheet1 改名为集合名
	if err := f.SetSheetName(f.GetSheetName(0), t.Sheet); err != nil {
		return nil, fmt.Errorf("failed to name sheet %q: %w", t.Sheet, err)
	}
	sw, err := f.NewStreamWriter(t.Sheet)
	if err != nil {
		return nil, fmt.Errorf("failed to open stream writer: %w", err)
	}

	// 列宽、冻结窗格必须在第一次 SetRow 之前设置
	for i, col := range t.Columns {
		if col.Width <= 0 {
			continue
		}
		if err := sw.SetColWidth(i+1, i+1, col.Width); err != nil {
			return nil, fmt.Errorf("failed to set width of column %q: %w", col.Header, err)
		}
	}
	if err := sw.SetPanes(&excelize.Panes{
		Freeze:      true,
		YSplit:      1,
		TopLeftCell: "A2",
		ActivePane:  "bottomLeft",
	}); err != nil {
		return nil, fmt.Errorf("failed to freeze header row: %w", err)
	}

	styleID, err := f.NewStyle(headerStyle())
	if err != nil {
		return nil, fmt.Errorf("failed to create header style: %w", err)
	}
	header := make([]any, len(t.Columns))
	for i, col := range t.Columns {
		header[i] = col.Header
	}
	if err := sw.SetRow("A1", header, excelize.RowOpts{StyleID: styleID}); err != nil {
		return nil, fmt.Errorf("failed to write header row: %w", err)
	}

	for r, row := range t.Rows {
		values := make([]any, len(row))
		for c, v := range row {
			if v != "" {
				values[c] = v
			}
		}
		cell, err := excelize.CoordinatesToCellName(1, r+2)
		if err != nil {
			return nil, err
		}
		if err := sw.SetRow(cell, values); err != nil {
			return nil, fmt.Errorf("failed to write row %d: %w", r+2, err)
		}
	}
	if err := sw.Flush(); err != nil {
		return nil, fmt.Errorf("failed to flush sheet: %w", err)
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("failed to render workbook: %w", err)
	}
	return buf.Bytes(), nil
}
