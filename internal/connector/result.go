package connector

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
)

// Format controls how a column value is displayed.
type Format int

// Column formats.
const (
	Text Format = iota
	// Time renders epoch milliseconds, epoch seconds or RFC 3339 as a
	// relative time.
	Time
	// Bytes renders a byte count.
	Bytes
	// Count renders an integer with thousands separators.
	Count
)

// Column is a display column over a dotted path.
type Column struct {
	Header string
	Path   string
	Format Format
}

// Result is the outcome of one operation.
type Result struct {
	Target Target
	Status int

	// Body is the vendor body as returned. With --all it is a JSON array
	// of every item collected.
	Body json.RawMessage

	// Items holds list entries when the operation has a ListSpec.
	Items []json.RawMessage

	// ID is the created object's id when the vendor returns it in a
	// header.
	ID string

	Pages int
}

// IsList reports whether the result is a list.
func (r *Result) IsList() bool {
	return r.Target.Operation.List != nil
}

// Empty reports a 2xx with no body.
func (r *Result) Empty() bool {
	return len(bytes.TrimSpace(r.Body)) == 0
}

// Columns returns the operation's display columns.
func (r *Result) Columns() []Column {
	return r.Target.Operation.Columns
}

// Object decodes the body as a single object, nil if it is not one.
func (r *Result) Object() map[string]any {
	m, _ := decode(r.Body).(map[string]any)
	return m
}

// Rows renders each item through the columns.
func (r *Result) Rows() [][]string {
	rows := make([][]string, 0, len(r.Items))
	for _, item := range r.Items {
		v := decode(item)
		row := make([]string, 0, len(r.Columns()))
		for _, c := range r.Columns() {
			row = append(row, c.Render(v))
		}
		rows = append(rows, row)
	}
	return rows
}

// Summary is the {id, name} pair of a list item.
type Summary struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

var nameKeys = []string{"name", "title", "topic", "text", "properties.name", "properties.email", "properties.dealname", "username"}

// Summaries returns {id, name} for every list item.
func (r *Result) Summaries() []Summary {
	out := make([]Summary, 0, len(r.Items))
	for _, item := range r.Items {
		v := decode(item)
		s := Summary{ID: stringify(lookupOr(v, "id"))}
		for _, key := range nameKeys {
			if name := stringify(lookupOr(v, key)); name != "" {
				s.Name = name
				break
			}
		}
		out = append(out, s)
	}
	return out
}

// Render formats the column's value from a decoded item.
func (c Column) Render(item any) string {
	v, ok := Lookup(item, c.Path)
	if !ok || v == nil {
		return ""
	}
	switch c.Format {
	case Time:
		if t, ok := parseTime(v); ok {
			return humanize.Time(t)
		}
	case Bytes:
		if n, ok := toInt(v); ok && n >= 0 {
			return humanize.Bytes(uint64(n))
		}
	case Count:
		if n, ok := toInt(v); ok {
			return humanize.Comma(n)
		}
	}
	return stringify(v)
}

func decode(raw json.RawMessage) any {
	if len(bytes.TrimSpace(raw)) == 0 {
		return nil
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return nil
	}
	return v
}

func lookupOr(v any, path string) any {
	out, _ := Lookup(v, path)
	return out
}

func stringify(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case json.Number:
		return val.String()
	case bool:
		return strconv.FormatBool(val)
	case map[string]any, []any:
		b, err := json.Marshal(val)
		if err != nil {
			return ""
		}
		return string(b)
	default:
		return fmt.Sprint(val)
	}
}

func toInt(v any) (int64, bool) {
	switch val := v.(type) {
	case json.Number:
		if n, err := val.Int64(); err == nil {
			return n, true
		}
		if f, err := val.Float64(); err == nil {
			return int64(f), true
		}
	case string:
		if n, err := strconv.ParseInt(val, 10, 64); err == nil {
			return n, true
		}
	case float64:
		return int64(val), true
	}
	return 0, false
}

// parseTime accepts RFC 3339 strings and epoch numbers. Values above
// 1e11 are taken as milliseconds.
func parseTime(v any) (time.Time, bool) {
	if s, ok := v.(string); ok {
		if t, err := time.Parse(time.RFC3339, strings.TrimSpace(s)); err == nil {
			return t, true
		}
	}
	n, ok := toInt(v)
	if !ok || n <= 0 {
		return time.Time{}, false
	}
	if n > 1e11 {
		return time.UnixMilli(n), true
	}
	return time.Unix(n, 0), true
}
