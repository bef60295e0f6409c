package service

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
)

// Column 导出列：表头 + 字段路径（点分隔）+ 列宽
type Column struct {
	Header string
	Field  string
	Width  float64
}

// Table 导出数据，由 HTTP 层渲染成 xlsx
type Table struct {
	Sheet   string
	Columns []Column
	Rows    [][]any
}

// Export returns every document matching the filters, ignoring pagination.
func (c *crud[T, P]) Export(ctx context.Context, req ListRequest) (*Table, error) {
	items, _, err := c.repo.List(ctx, req.Query(true))
	if err != nil {
		return nil, fmt.Errorf("failed to export %s: %w", c.collection, err)
	}
	table := &Table{Sheet: c.collection, Columns: c.columns, Rows: make([][]any, 0, len(items))}
	for _, item := range items {
		raw, err := json.Marshal(c.view(item))
		if err != nil {
			return nil, fmt.Errorf("failed to encode %s: %w", c.collection, err)
		}
		var doc map[string]any
		if err := json.Unmarshal(raw, &doc); err != nil {
			return nil, fmt.Errorf("failed to decode %s: %w", c.collection, err)
		}
		row := make([]any, len(c.columns))
		for i, col := range c.columns {
			row[i] = cellValue(lookup(doc, col.Field))
		}
		table.Rows = append(table.Rows, row)
	}
	return table, nil
}

func lookup(doc map[string]any, path string) any {
	var cur any = doc
	for _, part := range strings.Split(path, ".") {
		m, ok := cur.(map[string]any)
		if !ok {
			return nil
		}
		cur = m[part]
	}
	return cur
}

// cellValue flattens JSON values into something a spreadsheet cell can hold.
func cellValue(v any) any {
	switch t := v.(type) {
	case nil:
		return ""
	case []any:
		parts := make([]string, 0, len(t))
		for _, e := range t {
			parts = append(parts, fmt.Sprint(e))
		}
		return strings.Join(parts, ", ")
	case map[string]any:
		raw, _ := json.Marshal(t)
		return string(raw)
	}
	return v
}
