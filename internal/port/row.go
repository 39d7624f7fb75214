package port

import (
	"encoding/json"
	"fmt"
	"strconv"
	"time"
)

// Str returns the column as a string. Missing or null columns yield "".
func (r Row) Str(col string) string {
	switch v := r[col].(type) {
	case nil:
		return ""
	case string:
		return v
	case []byte:
		return string(v)
	case json.RawMessage:
		return string(v)
	case json.Number:
		return v.String()
	case time.Time:
		return v.UTC().Format(time.RFC3339Nano)
	default:
		return fmt.Sprint(v)
	}
}

// StrPtr is Str but keeps SQL null as nil.
func (r Row) StrPtr(col string) *string {
	if r[col] == nil {
		return nil
	}
	s := r.Str(col)
	return &s
}

// Object decodes a JSON object column (jsonb). Anything else yields nil.
func (r Row) Object(col string) map[string]any {
	switch v := r[col].(type) {
	case map[string]any:
		return v
	case json.RawMessage, string, []byte:
		var m map[string]any
		if err := json.Unmarshal([]byte(r.Str(col)), &m); err == nil {
			return m
		}
	}
	return nil
}

// Int returns the column as an int. Non-numeric values yield 0.
func (r Row) Int(col string) int {
	switch v := r[col].(type) {
	case int:
		return v
	case int64:
		return int(v)
	case int32:
		return int(v)
	case float64:
		return int(v)
	case json.Number:
		if n, err := v.Int64(); err == nil {
			return int(n)
		}
		if f, err := v.Float64(); err == nil {
			return int(f)
		}
	case string:
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return 0
}

// Float returns the column as a float64 and whether it was present and numeric.
func (r Row) Float(col string) (float64, bool) {
	switch v := r[col].(type) {
	case float64:
		return v, true
	case float32:
		return float64(v), true
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	case json.Number:
		f, err := v.Float64()
		return f, err == nil
	case string:
		f, err := strconv.ParseFloat(v, 64)
		return f, err == nil
	}
	return 0, false
}

// FloatPtr is Float with nil for null or non-numeric values.
func (r Row) FloatPtr(col string) *float64 {
	f, ok := r.Float(col)
	if !ok {
		return nil
	}
	return &f
}

// Time parses the column as an ISO-8601 timestamp. Plain dates
// ("2006-01-02") are accepted too; anything else is an error.
func (r Row) Time(col string) (time.Time, error) {
	if t, ok := r[col].(time.Time); ok {
		return t.UTC(), nil
	}
	return ParseTimestamp(r.Str(col))
}

var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999Z07:00",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02",
}

// ParseTimestamp parses the ISO-8601 variants PostgREST and Postgres emit.
// Timestamps without offset are taken as UTC.
func ParseTimestamp(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, fmt.Errorf("empty timestamp")
	}
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	// Postgres pode devolver offset curto ("+00")
	if t, err := time.Parse("2006-01-02T15:04:05.999999999-07", s); err == nil {
		return t.UTC(), nil
	}
	return time.Time{}, fmt.Errorf("invalid ISO-8601 timestamp %q", s)
}
