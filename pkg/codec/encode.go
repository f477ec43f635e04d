package codec

import (
	"bytes"
	"encoding/base64"
	"io"
	"maps"
	"math"
	"slices"
	"strconv"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/ajitpratap0/nebulaframe/pkg/frame"
	jsonpool "github.com/ajitpratap0/nebulaframe/pkg/json"
	stringpool "github.com/ajitpratap0/nebulaframe/pkg/strings"
)

// Encode renders t as a JSON array of row objects.
//
// Rows carry no column types. Timestamps, decimals and bytes decode back as
// strings, and a string column holding only "NaN" or "Infinity" spellings
// decodes as float. Use EncodeDocument to keep value types.
func Encode(t *frame.Table, opts Options) ([]byte, error) {
	var out bytes.Buffer
	if err := EncodeTo(&out, t, opts); err != nil {
		return nil, err
	}
	return out.Bytes(), nil
}

// EncodeTo writes the encoding of t to w.
func EncodeTo(w io.Writer, t *frame.Table, opts Options) error {
	e := newEncoder(opts.MetadataPreserving)
	defer jsonpool.PutBuffer(e.buf)
	e.rows(t)
	return e.flush(w, t, opts)
}

// EncodeDocument renders t inside a document envelope. Frame cells are
// always metadata-preserving.
func EncodeDocument(t *frame.Table, opts Options) ([]byte, error) {
	var out bytes.Buffer
	if err := EncodeDocumentTo(&out, t, opts); err != nil {
		return nil, err
	}
	return out.Bytes(), nil
}

// EncodeDocumentTo writes the document encoding of t to w.
func EncodeDocumentTo(w io.Writer, t *frame.Table, opts Options) error {
	e := newEncoder(true)
	defer jsonpool.PutBuffer(e.buf)
	e.buf.WriteByte('{')
	e.key(versionKey)
	jsonpool.AppendString(e.buf, opts.version())
	e.buf.WriteByte(',')
	e.key(metadataKey)
	e.value(metadataOf(t).toObject(""))
	e.buf.WriteByte(',')
	e.key(payloadKey)
	e.rows(t)
	e.buf.WriteByte('}')
	return e.flush(w, t, opts)
}

type encoder struct {
	buf      *bytes.Buffer
	metadata bool
	layouts  map[*frame.Table]layout
}

func newEncoder(metadata bool) *encoder {
	return &encoder{
		buf:      jsonpool.GetBuffer(),
		metadata: metadata,
		layouts:  make(map[*frame.Table]layout),
	}
}

func (e *encoder) flush(w io.Writer, t *frame.Table, opts Options) error {
	out := e.buf
	if opts.Indent != "" {
		indented := jsonpool.GetBuffer()
		defer jsonpool.PutBuffer(indented)
		if err := jsonpool.Indent(indented, e.buf.Bytes(), "", opts.Indent); err != nil {
			return err
		}
		out = indented
	}
	opts.logger().Debug("encoded table",
		zap.Int("rows", t.NumRows()),
		zap.Int("columns", t.NumColumns()),
		zap.Int("bytes", out.Len()))
	_, err := w.Write(out.Bytes())
	return err
}

func (e *encoder) layoutOf(t *frame.Table) layout {
	l, ok := e.layouts[t]
	if !ok {
		l = placeholderLayout(t)
		e.layouts[t] = l
	}
	return l
}

func (e *encoder) key(k string) {
	jsonpool.AppendString(e.buf, k)
	e.buf.WriteByte(':')
}

func (e *encoder) rows(t *frame.Table) {
	l := e.layoutOf(t)
	e.buf.WriteByte('[')
	for i := 0; i < t.NumRows(); i++ {
		if i > 0 {
			e.buf.WriteByte(',')
		}
		e.row(t, i, l)
	}
	e.buf.WriteByte(']')
}

// row writes row i, unwrapping placeholder columns when the layout allows.
func (e *encoder) row(t *frame.Table, i int, l layout) {
	if l.ok {
		if l.value >= 0 && !isNull(t.Column(l.value), i) {
			e.cell(t.Column(l.value), i, true)
			return
		}
		if l.array >= 0 && !isNull(t.Column(l.array), i) {
			e.cell(t.Column(l.array), i, true)
			return
		}
	}
	e.buf.WriteByte('{')
	first := true
	for j, c := range t.Columns() {
		if l.ok && (j == l.value || j == l.array) {
			continue
		}
		if !first {
			e.buf.WriteByte(',')
		}
		first = false
		e.key(c.Name())
		e.cell(c, i, false)
	}
	e.buf.WriteByte('}')
}

// cell writes column c at row i. Bare frame cells are never wrapped.
func (e *encoder) cell(c frame.Column, i int, bare bool) {
	switch col := c.(type) {
	case *frame.ValueColumn:
		e.value(col.Value(i))
	case *frame.GroupColumn:
		gt := col.Table()
		e.row(gt, i, e.layoutOf(gt))
	case *frame.FrameColumn:
		sub := col.Cell(i)
		switch {
		case sub == nil:
			e.buf.WriteString("null")
		case e.metadata && !bare:
			e.buf.WriteByte('{')
			e.key(dataKey)
			e.rows(sub)
			e.buf.WriteByte(',')
			e.key(metadataKey)
			e.value(metadataOf(sub).toObject(frameKind))
			e.buf.WriteByte('}')
		default:
			e.rows(sub)
		}
	}
}

func (e *encoder) value(v any) {
	switch x := v.(type) {
	case nil:
		e.buf.WriteString("null")
	case bool:
		e.buf.WriteString(strconv.FormatBool(x))
	case int64:
		e.buf.Write(strconv.AppendInt(e.buf.AvailableBuffer(), x, 10))
	case float64:
		e.float(x)
	case string:
		jsonpool.AppendString(e.buf, x)
	case time.Time:
		jsonpool.AppendString(e.buf, x.Format(time.RFC3339Nano))
	case []byte:
		jsonpool.AppendString(e.buf, base64.StdEncoding.EncodeToString(x))
	case decimal.Decimal:
		jsonpool.AppendString(e.buf, x.String())
	case []any:
		e.buf.WriteByte('[')
		for i, el := range x {
			if i > 0 {
				e.buf.WriteByte(',')
			}
			e.value(el)
		}
		e.buf.WriteByte(']')
	case map[string]any:
		e.buf.WriteByte('{')
		for i, k := range sortedKeys(x) {
			if i > 0 {
				e.buf.WriteByte(',')
			}
			e.key(k)
			e.value(x[k])
		}
		e.buf.WriteByte('}')
	case *object:
		e.buf.WriteByte('{')
		for i, k := range x.keys {
			if i > 0 {
				e.buf.WriteByte(',')
			}
			e.key(k)
			e.value(x.values[i])
		}
		e.buf.WriteByte('}')
	default:
		jsonpool.AppendString(e.buf, stringpool.ValueToString(v))
	}
}

// float writes NaN and infinities as strings and always includes a fraction
// or exponent so the value decodes as a float.
func (e *encoder) float(f float64) {
	switch {
	case math.IsNaN(f):
		e.buf.WriteString(`"NaN"`)
		return
	case math.IsInf(f, 1):
		e.buf.WriteString(`"Infinity"`)
		return
	case math.IsInf(f, -1):
		e.buf.WriteString(`"-Infinity"`)
		return
	}
	format := byte('f')
	if abs := math.Abs(f); abs != 0 && (abs < 1e-6 || abs >= 1e21) {
		format = 'e'
	}
	b := strconv.AppendFloat(e.buf.AvailableBuffer(), f, format, -1, 64)
	if !bytes.ContainsAny(b, ".e") {
		b = append(b, '.', '0')
	}
	e.buf.Write(b)
}

func sortedKeys[V any](m map[string]V) []string {
	return slices.Sorted(maps.Keys(m))
}

// layout records where the placeholder columns of a table sit. When ok,
// rows holding a placeholder value are written bare.
type layout struct {
	ok           bool
	value, array int
}

// placeholderLayout decides whether t is a disambiguated mix that decodes
// back to itself once unwrapped: "value" and/or "array" lead the columns,
// each row uses at most one placeholder with every other column null, and
// the unwrapped rows mix at least two shapes. A one-column table never
// qualifies.
func placeholderLayout(t *frame.Table) layout {
	l := layout{value: -1, array: -1}
	ncol := t.NumColumns()
	if ncol < 2 {
		return l
	}
	next := 0
	if c, ok := t.Column(0).(*frame.ValueColumn); ok && c.Name() == valuePlaceholder && c.Type() != frame.TypeList {
		l.value, next = 0, 1
	}
	if c := t.Column(next); c.Name() == arrayPlaceholder && isArrayColumn(c) {
		l.array, next = next, next+1
	}
	if l.value < 0 && l.array < 0 {
		return l
	}

	var shapes shape
	for i := 0; i < t.NumRows(); i++ {
		hasValue := l.value >= 0 && !isNull(t.Column(l.value), i)
		hasArray := l.array >= 0 && !isNull(t.Column(l.array), i)
		switch {
		case hasValue && hasArray:
			return l
		case hasValue:
			switch t.Column(l.value).(*frame.ValueColumn).Value(i).(type) {
			case []any, map[string]any:
				return l
			}
			shapes |= shapePrimitive
		case hasArray:
			shapes |= shapeArray
		default:
			shapes |= shapeObject
			continue
		}
		for j := next; j < ncol; j++ {
			if !isNull(t.Column(j), i) {
				return l
			}
		}
	}
	if popcount(shapes) < 2 || (next < ncol && shapes&shapeObject == 0) {
		return l
	}
	l.ok = true
	return l
}

// isArrayColumn accepts list columns and frame columns whose cells still
// read back as arrays of objects.
func isArrayColumn(c frame.Column) bool {
	switch col := c.(type) {
	case *frame.ValueColumn:
		return col.Type() == frame.TypeList
	case *frame.FrameColumn:
		for _, cell := range col.Cells() {
			if cell != nil && cell.NumRows() > 0 && !placeholderLayout(cell).ok {
				return true
			}
		}
	}
	return false
}

func isNull(c frame.Column, i int) bool {
	switch col := c.(type) {
	case *frame.ValueColumn:
		return col.Value(i) == nil
	case *frame.FrameColumn:
		return col.Cell(i) == nil
	case *frame.GroupColumn:
		for _, sub := range col.Table().Columns() {
			if !isNull(sub, i) {
				return false
			}
		}
		return true
	}
	return true
}

// placeholdersExclusive reports whether every row with a non-null
// placeholder has all sibling columns null.
func placeholdersExclusive(t *frame.Table) bool {
	for j, c := range t.Columns() {
		if c.Name() != valuePlaceholder && c.Name() != arrayPlaceholder {
			continue
		}
		for i := 0; i < t.NumRows(); i++ {
			if isNull(c, i) {
				continue
			}
			for k, other := range t.Columns() {
				if k != j && !isNull(other, i) {
					return false
				}
			}
		}
	}
	return true
}

func popcount(s shape) int {
	n := 0
	for ; s != 0; s &= s - 1 {
		n++
	}
	return n
}
