package sqlsource

import (
	"fmt"
	"strconv"
	"time"
)

// Record is one result row, keyed by column name.
type Record struct {
	Columns []string
	Values  map[string]any
}

// Get returns the raw value of column, or nil.
func (r Record) Get(column string) any {
	return r.Values[column]
}

// String formats the value of column for display. NULL and missing columns
// are empty.
func (r Record) String(column string) string {
	switch v := r.Values[column].(type) {
	case nil:
		return ""
	case string:
		return v
	case []byte:
		return string(v)
	case int64:
		return strconv.FormatInt(v, 10)
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(v)
	case time.Time:
		return v.Format(time.RFC3339)
	default:
		return fmt.Sprint(v)
	}
}

// Key returns the identity used to track the record across refreshes.
func (r Record) Key(column string) string {
	if column == "" {
		return ""
	}
	return r.String(column)
}

func normalizeValue(v any) any {
	if b, ok := v.([]byte); ok {
		return string(b)
	}
	return v
}
