package arrowbridge

import (
	"bytes"
	"io"
	"math"
	"strings"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/ipc"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/ajitpratap0/nebulaframe/pkg/convert"
	"github.com/ajitpratap0/nebulaframe/pkg/errors"
	"github.com/ajitpratap0/nebulaframe/pkg/frame"
)

// Read decodes an Arrow IPC stream, concatenating its record batches.
func Read(r io.Reader, opts Options) (*frame.Table, Result, error) {
	s := newSession(opts)
	rdr, err := ipc.NewReader(r, ipc.WithAllocator(s.opts.Allocator))
	if err != nil {
		return nil, s.result(), errors.Wrap(err, errors.ErrorTypeParse, "open arrow stream")
	}
	defer rdr.Release()

	var parts []*frame.Table
	for rdr.Next() {
		t, err := s.table(rdr.Record())
		if err != nil {
			return nil, s.result(), err
		}
		parts = append(parts, t)
	}
	if err := rdr.Err(); err != nil && err != io.EOF {
		return nil, s.result(), errors.Wrap(err, errors.ErrorTypeParse, "read record batch")
	}

	var t *frame.Table
	if len(parts) == 0 {
		t, err = s.emptyTable(rdr.Schema())
	} else {
		t, err = frame.Concat(parts...)
	}
	if err != nil {
		return nil, s.result(), err
	}
	s.opts.Logger.Debug("read arrow stream",
		zap.Int("rows", t.NumRows()),
		zap.Int("columns", t.NumColumns()),
		zap.Int("batches", len(parts)),
		zap.Int("warnings", s.warnings.Len()))
	return t, s.result(), nil
}

// FromRecord converts a single record into a table.
func FromRecord(rec arrow.Record, opts Options) (*frame.Table, Result, error) {
	s := newSession(opts)
	t, err := s.table(rec)
	return t, s.result(), err
}

func (s *session) emptyTable(schema *arrow.Schema) (*frame.Table, error) {
	arrs := make([]arrow.Array, schema.NumFields())
	for i, f := range schema.Fields() {
		arrs[i] = array.MakeArrayOfNull(s.opts.Allocator, f.Type, 0)
	}
	rec := array.NewRecord(schema, arrs, 0)
	defer rec.Release()
	for _, a := range arrs {
		a.Release()
	}
	return s.table(rec)
}

func (s *session) table(rec arrow.Record) (*frame.Table, error) {
	cols := make([]frame.Column, rec.NumCols())
	for i, f := range rec.Schema().Fields() {
		c, err := s.column(f, rec.Column(i), frame.PathOf(f.Name))
		if err != nil {
			return nil, err
		}
		cols[i] = c
	}
	return frame.NewTableWithRows(int(rec.NumRows()), cols...)
}

func (s *session) structTable(st *arrow.StructType, arr *array.Struct, p frame.Path) (*frame.Table, error) {
	cols := make([]frame.Column, st.NumFields())
	for k, f := range st.Fields() {
		c, err := s.column(f, arr.Field(k), p.Child(f.Name))
		if err != nil {
			return nil, err
		}
		cols[k] = c
	}
	return frame.NewTableWithRows(arr.Len(), cols...)
}

func (s *session) column(f arrow.Field, arr arrow.Array, p frame.Path) (frame.Column, error) {
	switch dt := f.Type.(type) {
	case *arrow.StructType:
		sub, err := s.structTable(dt, arr.(*array.Struct), p)
		if err != nil {
			return nil, err
		}
		return frame.NewGroupColumn(f.Name, sub), nil

	case *arrow.ListType:
		l := arr.(*array.List)
		if st, ok := dt.Elem().(*arrow.StructType); ok {
			return s.frameColumn(f.Name, st, l, p)
		}
		values := make([]any, l.Len())
		for i := range values {
			if l.IsNull(i) {
				continue
			}
			start, end := l.ValueOffsets(i)
			elems := make([]any, 0, end-start)
			for j := start; j < end; j++ {
				elems = append(elems, valueAt(l.ListValues(), int(j)))
			}
			values[i] = elems
		}
		return frame.NewValueColumn(f.Name, values, frame.TypeList), nil
	}

	values := make([]any, arr.Len())
	for i := range values {
		values[i] = valueAt(arr, i)
	}
	return s.restore(frame.NewValueColumn(f.Name, values, columnTypeOf(f.Type)), fieldType(f), p)
}

func (s *session) frameColumn(name string, st *arrow.StructType, l *array.List, p frame.Path) (frame.Column, error) {
	cells := make([]*frame.Table, l.Len())
	for i := range cells {
		if l.IsNull(i) {
			continue
		}
		start, end := l.ValueOffsets(i)
		sub := array.NewSlice(l.ListValues(), start, end)
		cell, err := s.structTable(st, sub.(*array.Struct), p)
		sub.Release()
		if err != nil {
			return nil, err
		}
		cells[i] = cell
	}
	return frame.NewFrameColumnWithSchema(name, cells, schemaOf(st.Fields())), nil
}

// restore converts a column read at its storage type to its declared type.
func (s *session) restore(c *frame.ValueColumn, want frame.ColumnType, p frame.Path) (frame.Column, error) {
	if c.Type() == want {
		return c, nil
	}
	out, err := convert.Column(c, want, s.opts.Registry)
	if err == nil {
		return out, nil
	}
	if s.opts.StrictType {
		return nil, errors.Wrap(err, errors.ErrorTypeTypeMismatch, "restore declared type "+want.String()).
			WithDetail("path", p.String())
	}
	s.warn(errors.ErrorTypeTypeMismatch, p, "kept as "+c.Type().String()+": "+err.Error())
	return c, nil
}

// valueAt reads a cell as a normalized Go value. Strings and bytes are
// copied out of the Arrow buffers.
func valueAt(arr arrow.Array, i int) any {
	if arr.IsNull(i) {
		return nil
	}
	switch a := arr.(type) {
	case *array.Boolean:
		return a.Value(i)
	case *array.Int8:
		return int64(a.Value(i))
	case *array.Int16:
		return int64(a.Value(i))
	case *array.Int32:
		return int64(a.Value(i))
	case *array.Int64:
		return a.Value(i)
	case *array.Uint8:
		return int64(a.Value(i))
	case *array.Uint16:
		return int64(a.Value(i))
	case *array.Uint32:
		return int64(a.Value(i))
	case *array.Uint64:
		v := a.Value(i)
		if v > math.MaxInt64 {
			return float64(v)
		}
		return int64(v)
	case *array.Float32:
		return float64(a.Value(i))
	case *array.Float64:
		return a.Value(i)
	case *array.String:
		return strings.Clone(a.Value(i))
	case *array.LargeString:
		return strings.Clone(a.Value(i))
	case *array.Binary:
		return bytes.Clone(a.Value(i))
	case *array.LargeBinary:
		return bytes.Clone(a.Value(i))
	case *array.Timestamp:
		return a.Value(i).ToTime(a.DataType().(*arrow.TimestampType).Unit)
	case *array.Date32:
		return a.Value(i).ToTime()
	case *array.Date64:
		return a.Value(i).ToTime()
	case *array.Decimal128:
		scale := a.DataType().(*arrow.Decimal128Type).Scale
		return decimal.NewFromBigInt(a.Value(i).BigInt(), -scale)
	}
	return arr.ValueStr(i)
}
