package frame

import (
	"encoding/hex"
	"fmt"
	"math"
	"slices"
	"strconv"
	"time"

	"github.com/shopspring/decimal"

	stringpool "github.com/ajitpratap0/nebulaframe/pkg/strings"
)

// Key renders values into a canonical string: two value sequences have the
// same key exactly when they are equal. NaN equals NaN, tables and rows
// compare by content, and map keys are order independent.
func Key(values ...any) string {
	b := stringpool.GetBuilder(stringpool.Small)
	defer stringpool.PutBuilder(b, stringpool.Small)
	for _, v := range values {
		writeKey(b, v)
	}
	return b.String()
}

// Equal reports whether two cell values are equal under Key semantics.
func Equal(a, b any) bool {
	return Key(a) == Key(b)
}

func writeKey(b *stringpool.Builder, v any) {
	switch x := Normalize(v).(type) {
	case nil:
		b.WriteString("n;")
	case bool:
		if x {
			b.WriteString("b1;")
		} else {
			b.WriteString("b0;")
		}
	case int64:
		b.WriteString("i")
		b.WriteString(strconv.FormatInt(x, 10))
		_ = b.WriteByte(';')
	case float64:
		b.WriteString("f")
		if math.IsNaN(x) {
			b.WriteString("NaN")
		} else {
			b.WriteString(strconv.FormatFloat(x, 'g', -1, 64))
		}
		_ = b.WriteByte(';')
	case string:
		writeSized(b, 's', x)
	case []byte:
		writeSized(b, 'x', hex.EncodeToString(x))
	case decimal.Decimal:
		b.WriteString("d")
		b.WriteString(x.String())
		_ = b.WriteByte(';')
	case time.Time:
		b.WriteString("t")
		b.WriteString(x.UTC().Format(time.RFC3339Nano))
		_ = b.WriteByte(';')
	case []any:
		b.WriteString("l")
		b.WriteString(strconv.Itoa(len(x)))
		_ = b.WriteByte('[')
		for _, e := range x {
			writeKey(b, e)
		}
		_ = b.WriteByte(']')
	case map[string]any:
		keys := make([]string, 0, len(x))
		for k := range x {
			keys = append(keys, k)
		}
		slices.Sort(keys)
		b.WriteString("m")
		b.WriteString(strconv.Itoa(len(x)))
		_ = b.WriteByte('{')
		for _, k := range keys {
			writeSized(b, 's', k)
			writeKey(b, x[k])
		}
		_ = b.WriteByte('}')
	case Row:
		b.WriteString("r{")
		for _, c := range x.table.columns {
			writeSized(b, 's', c.Name())
			writeKey(b, CellValue(c, x.index))
		}
		_ = b.WriteByte('}')
	case *Table:
		if x == nil {
			b.WriteString("n;")
			return
		}
		writeTableKey(b, x)
	default:
		writeSized(b, 'o', fmt.Sprintf("%T:%v", x, x))
	}
}

func writeSized(b *stringpool.Builder, tag byte, s string) {
	_ = b.WriteByte(tag)
	b.WriteString(strconv.Itoa(len(s)))
	_ = b.WriteByte(':')
	b.WriteString(s)
	_ = b.WriteByte(';')
}

func writeTableKey(b *stringpool.Builder, t *Table) {
	b.WriteString("T")
	b.WriteString(strconv.Itoa(t.nrow))
	_ = b.WriteByte('{')
	for _, c := range t.columns {
		writeSized(b, 'c', c.Name())
		b.WriteString(c.Kind().String())
		_ = b.WriteByte('[')
		for i := 0; i < c.Len(); i++ {
			writeKey(b, CellValue(c, i))
		}
		_ = b.WriteByte(']')
	}
	_ = b.WriteByte('}')
}

// CellValue is the value a column contributes at row i: the raw value for
// value columns, a nested Row for groups and the sub-table (nil when null)
// for frames.
func CellValue(c Column, i int) any {
	switch col := c.(type) {
	case *ValueColumn:
		return col.values[i]
	case *GroupColumn:
		return col.table.Row(i)
	case *FrameColumn:
		if t := col.tables[i]; t != nil {
			return t
		}
		return nil
	}
	return nil
}
