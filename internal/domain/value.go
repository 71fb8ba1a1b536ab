package domain

import (
	"fmt"
	"strconv"
	"strings"
)

// ValueKind enumerates the scalar kinds a cell value can carry.
type ValueKind int

const (
	KindNull ValueKind = iota
	KindInt
	KindFloat
	KindString
	KindBool
)

// String returns the kind name for logging and error messages.
func (k ValueKind) String() string {
	switch k {
	case KindNull:
		return "null"
	case KindInt:
		return "int"
	case KindFloat:
		return "float"
	case KindString:
		return "string"
	case KindBool:
		return "bool"
	default:
		return "unknown"
	}
}

// Value is a nullable scalar cell in a tabular dataset. The kind set is closed:
// null, int, float, string, bool. Conversions are explicit and fallible rather
// than implicit.
type Value struct {
	kind ValueKind
	i    int64
	f    float64
	s    string
	b    bool
}

// Null returns the null value.
func Null() Value {
	return Value{kind: KindNull}
}

// IntValue wraps an integer cell.
func IntValue(v int64) Value {
	return Value{kind: KindInt, i: v}
}

// FloatValue wraps a floating-point cell.
func FloatValue(v float64) Value {
	return Value{kind: KindFloat, f: v}
}

// StringValue wraps a string cell.
func StringValue(v string) Value {
	return Value{kind: KindString, s: v}
}

// BoolValue wraps a boolean cell.
func BoolValue(v bool) Value {
	return Value{kind: KindBool, b: v}
}

// Kind returns the scalar kind of the value.
func (v Value) Kind() ValueKind {
	return v.kind
}

// IsNull checks if the value is null. Empty and whitespace-only strings
// count as null for harmonization purposes.
func (v Value) IsNull() bool {
	if v.kind == KindNull {
		return true
	}
	if v.kind == KindString && strings.TrimSpace(v.s) == "" {
		return true
	}
	return false
}

// AsString renders the value as text. Null renders as the empty string.
func (v Value) AsString() string {
	switch v.kind {
	case KindNull:
		return ""
	case KindInt:
		return strconv.FormatInt(v.i, 10)
	case KindFloat:
		return strconv.FormatFloat(v.f, 'g', -1, 64)
	case KindString:
		return v.s
	case KindBool:
		return strconv.FormatBool(v.b)
	default:
		return ""
	}
}

// AsInt converts the value to an integer. Floats and numeric strings are
// truncated toward zero ("67.5" becomes 67). Returns an error for null,
// booleans, and non-numeric strings.
func (v Value) AsInt() (int64, error) {
	switch v.kind {
	case KindInt:
		return v.i, nil
	case KindFloat:
		return int64(v.f), nil
	case KindString:
		s := strings.TrimSpace(v.s)
		if s == "" {
			return 0, fmt.Errorf("cannot convert empty string to int")
		}
		if n, err := strconv.ParseInt(s, 10, 64); err == nil {
			return n, nil
		}
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return 0, fmt.Errorf("cannot convert %q to int: %w", v.s, err)
		}
		return int64(f), nil
	default:
		return 0, fmt.Errorf("cannot convert %s to int", v.kind)
	}
}

// AsFloat converts the value to a float. Returns an error for null, booleans,
// and non-numeric strings.
func (v Value) AsFloat() (float64, error) {
	switch v.kind {
	case KindInt:
		return float64(v.i), nil
	case KindFloat:
		return v.f, nil
	case KindString:
		s := strings.TrimSpace(v.s)
		if s == "" {
			return 0, fmt.Errorf("cannot convert empty string to float")
		}
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return 0, fmt.Errorf("cannot convert %q to float: %w", v.s, err)
		}
		return f, nil
	default:
		return 0, fmt.Errorf("cannot convert %s to float", v.kind)
	}
}

// Interface returns the native Go representation for JSON encoding.
func (v Value) Interface() interface{} {
	switch v.kind {
	case KindInt:
		return v.i
	case KindFloat:
		return v.f
	case KindString:
		return v.s
	case KindBool:
		return v.b
	default:
		return nil
	}
}

// ValueOf converts a native Go scalar into a Value. Unsupported types are
// rendered through fmt as strings so no cell content is lost.
func ValueOf(raw interface{}) Value {
	switch x := raw.(type) {
	case nil:
		return Null()
	case Value:
		return x
	case int:
		return IntValue(int64(x))
	case int32:
		return IntValue(int64(x))
	case int64:
		return IntValue(x)
	case float32:
		return FloatValue(float64(x))
	case float64:
		return FloatValue(x)
	case string:
		return StringValue(x)
	case bool:
		return BoolValue(x)
	default:
		return StringValue(fmt.Sprintf("%v", x))
	}
}

// Row maps column names to cell values.
type Row map[string]Value

// Get returns the value for a column, or null when the column is absent.
func (r Row) Get(column string) Value {
	if v, ok := r[column]; ok {
		return v
	}
	return Null()
}

// Table is an in-memory tabular dataset: an ordered list of column names plus rows.
// Column order is significant and preserved through harmonization.
type Table struct {
	Columns []string `json:"columns"`
	Rows    []Row    `json:"rows"`
}

// NewTable creates an empty table with the given column order.
func NewTable(columns ...string) *Table {
	return &Table{Columns: columns, Rows: make([]Row, 0)}
}

// Append adds a row to the table.
func (t *Table) Append(row Row) {
	t.Rows = append(t.Rows, row)
}

// Len returns the number of rows.
func (t *Table) Len() int {
	return len(t.Rows)
}

// IsEmpty checks if the table has no rows.
func (t *Table) IsEmpty() bool {
	return t == nil || len(t.Rows) == 0
}

// HasColumn checks if the named column is part of the table schema.
func (t *Table) HasColumn(name string) bool {
	for _, c := range t.Columns {
		if c == name {
			return true
		}
	}
	return false
}
