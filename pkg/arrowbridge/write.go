package arrowbridge

import (
	"io"
	"math"
	"time"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/decimal128"
	"github.com/apache/arrow-go/v18/arrow/ipc"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/ajitpratap0/nebulaframe/pkg/convert"
	"github.com/ajitpratap0/nebulaframe/pkg/errors"
	"github.com/ajitpratap0/nebulaframe/pkg/frame"
)

// Write encodes t as an Arrow IPC stream.
func Write(w io.Writer, t *frame.Table, opts Options) (Result, error) {
	s := newSession(opts)
	rec, err := s.record(t)
	if err != nil {
		return s.result(), err
	}
	defer rec.Release()

	iw := ipc.NewWriter(w, ipc.WithSchema(rec.Schema()), ipc.WithAllocator(s.opts.Allocator))
	batches := split(rec, s.opts.BatchSize)
	for i, batch := range batches {
		err := iw.Write(batch)
		batch.Release()
		if err != nil {
			for _, rest := range batches[i+1:] {
				rest.Release()
			}
			_ = iw.Close()
			return s.result(), errors.Wrap(err, errors.ErrorTypeFile, "write record batch")
		}
	}
	if err := iw.Close(); err != nil {
		return s.result(), errors.Wrap(err, errors.ErrorTypeFile, "close arrow stream")
	}
	s.opts.Logger.Debug("wrote arrow stream",
		zap.Int("rows", t.NumRows()),
		zap.Int("fields", rec.Schema().NumFields()),
		zap.Int("batches", len(batches)),
		zap.Int("warnings", s.warnings.Len()))
	return s.result(), nil
}

// ToRecord converts t into a single record. The caller must release it.
func ToRecord(t *frame.Table, opts Options) (arrow.Record, Result, error) {
	s := newSession(opts)
	rec, err := s.record(t)
	return rec, s.result(), err
}

// split cuts rec into batches of at most size rows. Each batch must be
// released.
func split(rec arrow.Record, size int) []arrow.Record {
	n := rec.NumRows()
	if size <= 0 || n <= int64(size) {
		rec.Retain()
		return []arrow.Record{rec}
	}
	var out []arrow.Record
	for i := int64(0); i < n; i += int64(size) {
		out = append(out, rec.NewSlice(i, min(i+int64(size), n)))
	}
	return out
}

func (s *session) record(t *frame.Table) (arrow.Record, error) {
	schema := s.opts.Schema
	if schema == nil {
		schema = InferSchema(t)
	}
	b := &binder{session: s, bound: make(map[bindKey][]frame.Column), inferred: s.opts.Schema == nil}
	cols, err := b.bind(schema.Fields(), t, nil)
	if err != nil {
		return nil, err
	}

	arrs := make([]arrow.Array, 0, len(cols))
	defer func() {
		for _, a := range arrs {
			a.Release()
		}
	}()
	for j, f := range schema.Fields() {
		bldr := array.NewBuilder(s.opts.Allocator, f.Type)
		for i := 0; i < t.NumRows(); i++ {
			if err := b.append(bldr, f, cols[j], i, frame.PathOf(f.Name)); err != nil {
				bldr.Release()
				return nil, err
			}
		}
		arrs = append(arrs, bldr.NewArray())
		bldr.Release()
	}
	return array.NewRecord(schema, arrs, int64(t.NumRows())), nil
}

type bindKey struct {
	table  *frame.Table
	fields *arrow.StructType
}

// binder matches schema fields to table columns, caching the match per
// table so nested tables are bound once.
type binder struct {
	*session
	bound map[bindKey][]frame.Column
	// inferred schemas cover the union of frame cells, so a cell lacking a
	// column is null-filled without a warning.
	inferred bool
}

// bind returns the column for each field, nil where the table lacks it.
func (b *binder) bind(fields []arrow.Field, t *frame.Table, parent frame.Path) ([]frame.Column, error) {
	cols := make([]frame.Column, len(fields))
	used := make(map[string]bool, len(fields))
	for i, f := range fields {
		used[f.Name] = true
		if idx, ok := t.IndexOf(f.Name); ok {
			cols[i] = t.Column(idx)
			continue
		}
		if b.inferred {
			continue
		}
		w := errors.Warning{Type: errors.ErrorTypeSchemaMismatch, Path: parent.Child(f.Name).String(),
			Message: "column missing from table, filled with nulls"}
		if !b.opts.AllowWidening {
			return nil, w.AsError()
		}
		b.warn(w.Type, parent.Child(f.Name), w.Message)
	}
	for _, c := range t.Columns() {
		if used[c.Name()] {
			continue
		}
		w := errors.Warning{Type: errors.ErrorTypeSchemaMismatch, Path: parent.Child(c.Name()).String(),
			Message: "column not in target schema, dropped"}
		if !b.opts.AllowNarrowing {
			return nil, w.AsError()
		}
		b.warn(w.Type, parent.Child(c.Name()), w.Message)
	}
	return cols, nil
}

func (b *binder) bindStruct(st *arrow.StructType, t *frame.Table, p frame.Path) ([]frame.Column, error) {
	key := bindKey{table: t, fields: st}
	if cols, ok := b.bound[key]; ok {
		return cols, nil
	}
	cols, err := b.bind(st.Fields(), t, p)
	if err != nil {
		return nil, err
	}
	b.bound[key] = cols
	return cols, nil
}

// append writes row i of col into bldr as field f. A nil col is a column
// the table lacks.
func (b *binder) append(bldr array.Builder, f arrow.Field, col frame.Column, i int, p frame.Path) error {
	if col == nil || isNull(col, i) {
		return b.null(bldr, f, p)
	}
	switch dt := f.Type.(type) {
	case *arrow.StructType:
		g, ok := col.(*frame.GroupColumn)
		if !ok {
			return b.mismatch(bldr, f, p, col.Kind().String()+" column written to struct field")
		}
		cols, err := b.bindStruct(dt, g.Table(), p)
		if err != nil {
			return err
		}
		sb := bldr.(*array.StructBuilder)
		sb.Append(true)
		for k, cf := range dt.Fields() {
			if err := b.append(sb.FieldBuilder(k), cf, cols[k], i, p.Child(cf.Name)); err != nil {
				return err
			}
		}
		return nil

	case *arrow.ListType:
		lb := bldr.(*array.ListBuilder)
		if st, ok := dt.Elem().(*arrow.StructType); ok {
			fc, ok := col.(*frame.FrameColumn)
			if !ok {
				return b.mismatch(bldr, f, p, col.Kind().String()+" column written to list<struct> field")
			}
			cell := fc.Cell(i)
			cols, err := b.bindStruct(st, cell, p)
			if err != nil {
				return err
			}
			lb.Append(true)
			vb := lb.ValueBuilder().(*array.StructBuilder)
			for r := 0; r < cell.NumRows(); r++ {
				vb.Append(true)
				for k, cf := range st.Fields() {
					if err := b.append(vb.FieldBuilder(k), cf, cols[k], r, p.Child(cf.Name)); err != nil {
						return err
					}
				}
			}
			return nil
		}
		vc, ok := col.(*frame.ValueColumn)
		if !ok {
			return b.mismatch(bldr, f, p, col.Kind().String()+" column written to list field")
		}
		list, ok := vc.Value(i).([]any)
		if !ok {
			return b.mismatch(bldr, f, p, "non-list value written to list field")
		}
		lb.Append(true)
		vb := lb.ValueBuilder()
		for _, e := range list {
			if err := b.scalar(vb, dt.ElemField(), e, p); err != nil {
				return err
			}
		}
		return nil
	}

	vc, ok := col.(*frame.ValueColumn)
	if !ok {
		return b.mismatch(bldr, f, p, col.Kind().String()+" column written to "+f.Type.String()+" field")
	}
	return b.scalar(bldr, f, vc.Value(i), p)
}

func (b *binder) scalar(bldr array.Builder, f arrow.Field, v any, p frame.Path) error {
	if v == nil {
		return b.null(bldr, f, p)
	}
	cv, err := convert.Value(v, columnTypeOf(f.Type), b.opts.Registry)
	if err == nil {
		err = appendScalar(bldr, cv)
	}
	if err != nil {
		return b.mismatch(bldr, f, p, err.Error())
	}
	return nil
}

// null appends a null, checking the field's nullability.
func (b *binder) null(bldr array.Builder, f arrow.Field, p frame.Path) error {
	if !f.Nullable {
		w := errors.Warning{Type: errors.ErrorTypeSchemaMismatch, Path: p.String(),
			Message: "null written to non-nullable field"}
		if b.opts.StrictNullable {
			return w.AsError()
		}
		b.warn(w.Type, p, w.Message)
	}
	bldr.AppendNull()
	return nil
}

// mismatch handles a value that cannot be stored in its field: an error
// under StrictType, otherwise a warning and a null.
func (b *binder) mismatch(bldr array.Builder, f arrow.Field, p frame.Path, msg string) error {
	if b.opts.StrictType {
		return errors.New(errors.ErrorTypeTypeMismatch, msg).WithDetail("path", p.String())
	}
	b.warn(errors.ErrorTypeTypeMismatch, p, msg+", written as null")
	return b.null(bldr, f, p)
}

func isNull(c frame.Column, i int) bool {
	switch col := c.(type) {
	case *frame.ValueColumn:
		return col.Value(i) == nil
	case *frame.FrameColumn:
		return col.Cell(i) == nil
	}
	return false
}

func appendScalar(bldr array.Builder, v any) error {
	switch b := bldr.(type) {
	case *array.BooleanBuilder:
		if x, ok := v.(bool); ok {
			b.Append(x)
			return nil
		}
	case *array.Int8Builder:
		if n, ok := intIn(v, math.MinInt8, math.MaxInt8); ok {
			b.Append(int8(n))
			return nil
		}
	case *array.Int16Builder:
		if n, ok := intIn(v, math.MinInt16, math.MaxInt16); ok {
			b.Append(int16(n))
			return nil
		}
	case *array.Int32Builder:
		if n, ok := intIn(v, math.MinInt32, math.MaxInt32); ok {
			b.Append(int32(n))
			return nil
		}
	case *array.Int64Builder:
		if n, ok := v.(int64); ok {
			b.Append(n)
			return nil
		}
	case *array.Uint8Builder:
		if n, ok := intIn(v, 0, math.MaxUint8); ok {
			b.Append(uint8(n))
			return nil
		}
	case *array.Uint16Builder:
		if n, ok := intIn(v, 0, math.MaxUint16); ok {
			b.Append(uint16(n))
			return nil
		}
	case *array.Uint32Builder:
		if n, ok := intIn(v, 0, math.MaxUint32); ok {
			b.Append(uint32(n))
			return nil
		}
	case *array.Uint64Builder:
		if n, ok := intIn(v, 0, math.MaxInt64); ok {
			b.Append(uint64(n))
			return nil
		}
	case *array.Float32Builder:
		if x, ok := v.(float64); ok {
			b.Append(float32(x))
			return nil
		}
	case *array.Float64Builder:
		if x, ok := v.(float64); ok {
			b.Append(x)
			return nil
		}
	case *array.StringBuilder:
		if x, ok := v.(string); ok {
			b.Append(x)
			return nil
		}
	case *array.LargeStringBuilder:
		if x, ok := v.(string); ok {
			b.Append(x)
			return nil
		}
	case *array.BinaryBuilder:
		if x, ok := v.([]byte); ok {
			b.Append(x)
			return nil
		}
	case *array.TimestampBuilder:
		if x, ok := v.(time.Time); ok {
			ts, err := arrow.TimestampFromTime(x, b.Type().(*arrow.TimestampType).Unit)
			if err != nil {
				return errors.Wrap(err, errors.ErrorTypeTypeMismatch, "timestamp out of range")
			}
			b.Append(ts)
			return nil
		}
	case *array.Date32Builder:
		if x, ok := v.(time.Time); ok {
			b.Append(arrow.Date32FromTime(x))
			return nil
		}
	case *array.Date64Builder:
		if x, ok := v.(time.Time); ok {
			b.Append(arrow.Date64FromTime(x))
			return nil
		}
	case *array.Decimal128Builder:
		if x, ok := v.(decimal.Decimal); ok {
			scale := b.Type().(*arrow.Decimal128Type).Scale
			b.Append(decimal128.FromBigInt(x.Shift(scale).BigInt()))
			return nil
		}
	default:
		return errors.Newf(errors.ErrorTypeConverterNotFound, "unsupported arrow type %s", bldr.Type())
	}
	return errors.Newf(errors.ErrorTypeTypeMismatch, "%s value does not fit %s", frame.TypeOf(v), bldr.Type())
}

func intIn(v any, lo, hi int64) (int64, bool) {
	n, ok := v.(int64)
	return n, ok && n >= lo && n <= hi
}
