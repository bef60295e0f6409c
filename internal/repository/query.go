package repository

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"
)

// document 内存中解析后的文档，用于过滤与排序
type document struct {
	raw    json.RawMessage
	fields map[string]any
}

func parseDocument(raw json.RawMessage) (document, error) {
	var fields map[string]any
	if err := json.Unmarshal(raw, &fields); err != nil {
		return document{}, fmt.Errorf("failed to decode document: %w", err)
	}
	return document{raw: raw, fields: fields}, nil
}

func (d document) id() string {
	s, _ := d.fields["_id"].(string)
	return s
}

// scalarString renders a top-level value the way Postgres' ->> operator does.
func scalarString(v any) (string, bool) {
	switch val := v.(type) {
	case nil:
		return "", false
	case string:
		return val, true
	case float64, bool:
		return fmt.Sprint(val), true
	default:
		b, _ := json.Marshal(val)
		return string(b), true
	}
}

func matches(d document, filters map[string]string) bool {
	for k, want := range filters {
		got, ok := scalarString(d.fields[k])
		if !ok || got != want {
			return false
		}
	}
	return true
}

func compareValues(a, b any) int {
	switch {
	case a == nil && b == nil:
		return 0
	case a == nil:
		return -1
	case b == nil:
		return 1
	}
	if af, ok := a.(float64); ok {
		if bf, ok := b.(float64); ok {
			switch {
			case af < bf:
				return -1
			case af > bf:
				return 1
			}
			return 0
		}
	}
	as, _ := scalarString(a)
	bs, _ := scalarString(b)
	if at, err := time.Parse(time.RFC3339Nano, as); err == nil {
		if bt, err := time.Parse(time.RFC3339Nano, bs); err == nil {
			return at.Compare(bt)
		}
	}
	return strings.Compare(as, bs)
}

// applyQuery filters, sorts and paginates decoded documents in memory.
// Shared by the memory and bolt stores.
func applyQuery(docs []document, q Query) ([]json.RawMessage, int) {
	filtered := make([]document, 0, len(docs))
	for _, d := range docs {
		if matches(d, q.Filters) {
			filtered = append(filtered, d)
		}
	}

	keys := q.Sort
	if len(keys) == 0 {
		keys = []string{"createdAt"}
	}
	sort.SliceStable(filtered, func(i, j int) bool {
		for _, key := range keys {
			desc := strings.HasPrefix(key, "-")
			field := strings.TrimPrefix(key, "-")
			c := compareValues(filtered[i].fields[field], filtered[j].fields[field])
			if c == 0 {
				continue
			}
			if desc {
				return c > 0
			}
			return c < 0
		}
		return filtered[i].id() < filtered[j].id()
	})

	total := len(filtered)
	start, end := 0, total
	if q.Limit > 0 {
		start = q.Offset()
		if start > total {
			start = total
		}
		end = start + q.Limit
		if end > total {
			end = total
		}
	}

	out := make([]json.RawMessage, 0, end-start)
	for _, d := range filtered[start:end] {
		out = append(out, d.raw)
	}
	return out, total
}

func countBy(docs []document, field string) map[string]int {
	counts := map[string]int{}
	for _, d := range docs {
		key, _ := scalarString(d.fields[field])
		counts[key]++
	}
	return counts
}

// conflicts reports whether candidate collides with another document on a unique field.
func conflicts(docs []document, candidate document, unique []string) bool {
	for _, field := range unique {
		want, ok := scalarString(candidate.fields[field])
		if !ok {
			continue
		}
		for _, d := range docs {
			if d.id() == candidate.id() {
				continue
			}
			if got, ok := scalarString(d.fields[field]); ok && got == want {
				return true
			}
		}
	}
	return false
}

// keepFields copies the stored values of the named top-level fields into
// next. A field missing from stored is removed from next.
func keepFields(stored, next json.RawMessage, keep []string) (json.RawMessage, error) {
	if len(keep) == 0 {
		return next, nil
	}
	var old, doc map[string]json.RawMessage
	if err := json.Unmarshal(stored, &old); err != nil {
		return nil, fmt.Errorf("failed to decode stored document: %w", err)
	}
	if err := json.Unmarshal(next, &doc); err != nil {
		return nil, fmt.Errorf("failed to decode document: %w", err)
	}
	for _, k := range keep {
		if v, ok := old[k]; ok {
			doc[k] = v
		} else {
			delete(doc, k)
		}
	}
	return json.Marshal(doc)
}

func incrementField(raw json.RawMessage, field string, delta int) (json.RawMessage, error) {
	var fields map[string]any
	if err := json.Unmarshal(raw, &fields); err != nil {
		return nil, fmt.Errorf("failed to decode document: %w", err)
	}
	current, _ := fields[field].(float64)
	fields[field] = current + float64(delta)
	return json.Marshal(fields)
}
