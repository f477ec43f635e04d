// Package frame implements the hierarchical column model: tables of value,
// group and frame columns addressed by paths.
package frame

import (
	"math"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// ColumnType is the element type of a value column.
type ColumnType int

const (
	TypeAny ColumnType = iota
	TypeString
	TypeInt
	TypeFloat
	// TypeNumber holds a mix of Int and Float values.
	TypeNumber
	TypeBool
	TypeTimestamp
	TypeBytes
	TypeDecimal
	TypeList
)

var typeNames = [...]string{
	TypeAny:       "any",
	TypeString:    "string",
	TypeInt:       "int",
	TypeFloat:     "float",
	TypeNumber:    "number",
	TypeBool:      "bool",
	TypeTimestamp: "timestamp",
	TypeBytes:     "bytes",
	TypeDecimal:   "decimal",
	TypeList:      "list",
}

func (t ColumnType) String() string {
	if t < 0 || int(t) >= len(typeNames) {
		return "any"
	}
	return typeNames[t]
}

// ParseColumnType maps a type name back to its ColumnType. Unknown names
// report false.
func ParseColumnType(s string) (ColumnType, bool) {
	s = strings.ToLower(strings.TrimSpace(s))
	for i, name := range typeNames {
		if name == s {
			return ColumnType(i), true
		}
	}
	return TypeAny, false
}

// Accepts reports whether a value of type other may be stored in a column
// of type t.
func (t ColumnType) Accepts(other ColumnType) bool {
	switch {
	case t == TypeAny || t == other:
		return true
	case t == TypeNumber:
		return other == TypeInt || other == TypeFloat
	default:
		return false
	}
}

// Kind discriminates the three column variants.
type Kind int

const (
	KindValue Kind = iota
	KindGroup
	KindFrame
)

func (k Kind) String() string {
	switch k {
	case KindValue:
		return "value"
	case KindGroup:
		return "group"
	case KindFrame:
		return "frame"
	default:
		return "unknown"
	}
}

// TypeOf returns the ColumnType of a single normalized value. Nil reports
// TypeAny.
func TypeOf(v any) ColumnType {
	switch v.(type) {
	case string:
		return TypeString
	case int64:
		return TypeInt
	case float64:
		return TypeFloat
	case bool:
		return TypeBool
	case time.Time:
		return TypeTimestamp
	case []byte:
		return TypeBytes
	case decimal.Decimal:
		return TypeDecimal
	case []any:
		return TypeList
	default:
		return TypeAny
	}
}

// MergeTypes returns the narrowest type able to hold values of both a and b.
func MergeTypes(a, b ColumnType) ColumnType {
	switch {
	case a == b:
		return a
	case isNumeric(a) && isNumeric(b):
		return TypeNumber
	default:
		return TypeAny
	}
}

func isNumeric(t ColumnType) bool {
	return t == TypeInt || t == TypeFloat || t == TypeNumber
}

// InferType derives a column type from values, ignoring nulls. A column of
// only nulls is TypeAny.
func InferType(values []any) ColumnType {
	typ, seen := TypeAny, false
	for _, v := range values {
		if v == nil {
			continue
		}
		t := TypeOf(v)
		if !seen {
			typ, seen = t, true
			continue
		}
		typ = MergeTypes(typ, t)
		if typ == TypeAny {
			break
		}
	}
	return typ
}

// Normalize converts Go values into the representation stored in value
// columns: sized integers become int64 (unsigned values above MaxInt64
// become float64), float32 becomes float64 and typed slices become []any.
func Normalize(v any) any {
	switch x := v.(type) {
	case int:
		return int64(x)
	case int8:
		return int64(x)
	case int16:
		return int64(x)
	case int32:
		return int64(x)
	case uint8:
		return int64(x)
	case uint16:
		return int64(x)
	case uint32:
		return int64(x)
	case uint:
		return normalizeUint(uint64(x))
	case uint64:
		return normalizeUint(x)
	case float32:
		return float64(x)
	case *decimal.Decimal:
		if x == nil {
			return nil
		}
		return *x
	case []string:
		return toAnySlice(x)
	case []int:
		return toAnySlice(x)
	case []int64:
		return toAnySlice(x)
	case []float64:
		return toAnySlice(x)
	case []bool:
		return toAnySlice(x)
	case []any:
		out := make([]any, len(x))
		for i, e := range x {
			out[i] = Normalize(e)
		}
		return out
	default:
		return v
	}
}

// normalizeUint keeps values beyond int64 as float64.
func normalizeUint(v uint64) any {
	if v > math.MaxInt64 {
		return float64(v)
	}
	return int64(v)
}

func toAnySlice[T any](in []T) []any {
	out := make([]any, len(in))
	for i, v := range in {
		out[i] = Normalize(v)
	}
	return out
}
