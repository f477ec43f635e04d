package codec

import (
	"bytes"
	"io"
	"math"

	"go.uber.org/zap"

	"github.com/ajitpratap0/nebulaframe/pkg/convert"
	"github.com/ajitpratap0/nebulaframe/pkg/errors"
	"github.com/ajitpratap0/nebulaframe/pkg/frame"
)

// Document is a decoded top-level document.
type Document struct {
	Version string
	Table   *frame.Table
}

// Decoder decodes JSON into tables and collects the warnings raised along
// the way. A Decoder is not safe for concurrent use.
type Decoder struct {
	opts     Options
	log      *zap.Logger
	warnings errors.Warnings
	declared *declared
}

// declared holds the types that the metadata of the table being decoded
// gives its columns, keyed by path relative to base.
type declared struct {
	base  frame.Path
	types map[string]string
}

func declaredTypes(base frame.Path, m metadata) *declared {
	d := &declared{base: base, types: make(map[string]string, len(m.Columns)+len(m.Nested))}
	for i, name := range m.Columns {
		if i < len(m.Types) {
			d.types[frame.PathOf(name).String()] = m.Types[i]
		}
	}
	for _, n := range m.Nested {
		d.types[n.path] = n.typ
	}
	return d
}

// declaredType is the type name the metadata in scope gives p.
func (d *Decoder) declaredType(p frame.Path) string {
	if d.declared == nil || !p.HasPrefix(d.declared.base) {
		return ""
	}
	return d.declared.types[p.TrimPrefix(d.declared.base).String()]
}

// declaresValue reports whether the metadata in scope types p as a value
// column.
func (d *Decoder) declaresValue(p frame.Path) bool {
	typ := d.declaredType(p)
	if typ == "" || typ == groupTypeName || typ == frameTypeName {
		return false
	}
	_, ok := frame.ParseColumnType(typ)
	return ok
}

// withMetadata decodes with m in scope for the columns under base.
func (d *Decoder) withMetadata(base frame.Path, m metadata, fn func() (*frame.Table, error)) (*frame.Table, error) {
	prev := d.declared
	d.declared = declaredTypes(base, m)
	defer func() { d.declared = prev }()
	return fn()
}

// NewDecoder creates a decoder.
func NewDecoder(opts Options) *Decoder {
	return &Decoder{opts: opts, log: opts.logger()}
}

// Warnings returns the warnings collected so far.
func (d *Decoder) Warnings() []errors.Warning {
	return d.warnings.List()
}

// Decode decodes a JSON array of rows, a single row object or a document.
func Decode(data []byte, opts Options) (*frame.Table, error) {
	return NewDecoder(opts).Decode(data)
}

// DecodeDocument decodes a document envelope.
func DecodeDocument(data []byte, opts Options) (*Document, error) {
	return NewDecoder(opts).DecodeDocument(data)
}

func (d *Decoder) Decode(data []byte) (*frame.Table, error) {
	return d.DecodeReader(bytes.NewReader(data))
}

// DecodeReader decodes a single JSON value read from r.
func (d *Decoder) DecodeReader(r io.Reader) (*frame.Table, error) {
	v, err := parse(r)
	if err != nil {
		return nil, err
	}
	var t *frame.Table
	switch x := v.(type) {
	case []any:
		t, err = d.fromList(nil, x)
	case *object:
		switch {
		case isDocument(x):
			var doc *Document
			if doc, err = d.document(x); err == nil {
				t = doc.Table
			}
		case isWrappedFrame(x):
			t, err = d.wrappedFrame(nil, x)
		default:
			t, err = d.fromList(nil, []any{x})
		}
	default:
		return nil, errors.New(errors.ErrorTypeParse, "top-level JSON value must be an array or an object")
	}
	if err != nil {
		return nil, err
	}
	d.log.Debug("decoded table",
		zap.Int("rows", t.NumRows()),
		zap.Int("columns", t.NumColumns()),
		zap.Int("warnings", d.warnings.Len()))
	return t, nil
}

func (d *Decoder) DecodeDocument(data []byte) (*Document, error) {
	return d.DecodeDocumentReader(bytes.NewReader(data))
}

// DecodeDocumentReader decodes a document envelope read from r.
func (d *Decoder) DecodeDocumentReader(r io.Reader) (*Document, error) {
	v, err := parse(r)
	if err != nil {
		return nil, err
	}
	obj, ok := v.(*object)
	if !ok || !isDocument(obj) {
		return nil, errors.Newf(errors.ErrorTypeParse, "document must be an object with a %q field", payloadKey)
	}
	return d.document(obj)
}

func isDocument(obj *object) bool {
	_, ok := obj.get(payloadKey)
	return ok
}

// isWrappedFrame matches {"data": [...], "metadata": {"kind": "Frame"}}.
func isWrappedFrame(obj *object) bool {
	if len(obj.keys) != 2 {
		return false
	}
	data, ok := obj.get(dataKey)
	if _, isArr := data.([]any); !ok || !isArr {
		return false
	}
	meta, ok := obj.get(metadataKey)
	m, isObj := meta.(*object)
	if !ok || !isObj {
		return false
	}
	kind, _ := m.get("kind")
	return kind == frameKind || kind == "FrameColumn"
}

func (d *Decoder) document(obj *object) (*Document, error) {
	doc := &Document{}
	if v, ok := obj.get(versionKey); ok {
		doc.Version, _ = v.(string)
	}
	payload, _ := obj.get(payloadKey)
	rows, ok := payload.([]any)
	if !ok && payload != nil {
		return nil, errors.Newf(errors.ErrorTypeParse, "%q must be an array", payloadKey)
	}
	var (
		t   *frame.Table
		err error
	)
	m, ok := obj.get(metadataKey)
	if mo, isObj := m.(*object); ok && isObj {
		meta := metadataFrom(mo)
		t, err = d.withMetadata(nil, meta, func() (*frame.Table, error) { return d.fromList(nil, rows) })
		if err == nil {
			t = d.applyMetadata(nil, t, meta)
		}
	} else {
		t, err = d.fromList(nil, rows)
	}
	if err != nil {
		return nil, err
	}
	doc.Table = t
	return doc, nil
}

func (d *Decoder) wrappedFrame(path frame.Path, obj *object) (*frame.Table, error) {
	data, _ := obj.get(dataKey)
	meta, _ := obj.get(metadataKey)
	m := metadataFrom(meta.(*object))
	t, err := d.withMetadata(path, m, func() (*frame.Table, error) { return d.fromList(path, data.([]any)) })
	if err != nil {
		return nil, err
	}
	return d.applyMetadata(path, t, m), nil
}

// applyMetadata restores what plain rows cannot carry: the row count of
// column-less tables, the layout of empty tables and declared value types.
func (d *Decoder) applyMetadata(path frame.Path, t *frame.Table, m metadata) *frame.Table {
	switch {
	case t.NumColumns() == 0 && len(m.Columns) == 0 && m.NRow > t.NumRows():
		return frame.Empty(m.NRow)
	case t.NumRows() == 0 && len(m.Columns) > 0:
		return m.schema().EmptyTable()
	}
	if m.NRow >= 0 && m.NRow != t.NumRows() {
		d.warn(errors.ErrorTypeValidation, path, "metadata nrow disagrees with the decoded row count")
	}
	for i, name := range m.Columns {
		if i < len(m.Types) {
			t = d.restoreType(path, t, frame.PathOf(name), m.Types[i])
		}
	}
	for _, n := range m.Nested {
		t = d.restoreType(path, t, frame.ParsePath(n.path), n.typ)
	}
	return t
}

func (d *Decoder) restoreType(base frame.Path, t *frame.Table, p frame.Path, typ string) *frame.Table {
	want, ok := frame.ParseColumnType(typ)
	if !ok {
		return t
	}
	c, found := t.Get(p)
	vc, isValue := c.(*frame.ValueColumn)
	if !found || !isValue || vc.Type() == want {
		return t
	}
	out, err := convert.Convert(t, p, want, d.opts.Registry)
	if err != nil {
		d.warn(errors.ErrorTypeTypeMismatch, base.Join(p), "cannot restore declared type "+typ+": "+err.Error())
		return t
	}
	return out
}

func (d *Decoder) warn(errType errors.ErrorType, path frame.Path, msg string) {
	d.warnings.Add(errType, path.String(), msg)
	d.log.Warn("decode warning",
		zap.String("type", string(errType)),
		zap.String("path", path.String()),
		zap.String("message", msg))
}

type shape uint8

const (
	shapePrimitive shape = 1 << iota
	shapeArray
	shapeObject
	shapeFrame
)

func classify(v any) shape {
	switch x := v.(type) {
	case nil:
		return 0
	case []any:
		return shapeArray
	case *object:
		if isWrappedFrame(x) {
			return shapeFrame
		}
		return shapeObject
	default:
		return shapePrimitive
	}
}

func shapesOf(vals []any) shape {
	var s shape
	for _, v := range vals {
		s |= classify(v)
	}
	if s&shapeFrame != 0 && s != shapeFrame {
		// Wrapped frames only keep their meaning when nothing else is mixed in.
		s = s&^shapeFrame | shapeObject
	}
	return s
}

// fromList decodes a JSON array whose elements are rows.
func (d *Decoder) fromList(path frame.Path, elems []any) (*frame.Table, error) {
	switch s := shapesOf(elems); s {
	case 0:
		return frame.Empty(len(elems)), nil
	case shapeObject, shapeFrame:
		return d.objectTable(path, elems)
	default:
		cols, ok, err := d.mixedColumns(path, elems)
		if err != nil {
			return nil, err
		}
		if !ok {
			cols = []frame.Column{rawColumn(valuePlaceholder, elems)}
		}
		return frame.NewTableWithRows(len(elems), cols...)
	}
}

// objectTable builds a table from row objects. Keys become columns in
// order of first appearance; missing keys and null rows are null.
func (d *Decoder) objectTable(path frame.Path, elems []any) (*frame.Table, error) {
	n := len(elems)
	var keys []string
	index := make(map[string]int)
	var values [][]any
	for i, e := range elems {
		obj, ok := e.(*object)
		if !ok {
			continue
		}
		for j, k := range obj.keys {
			c, seen := index[k]
			if !seen {
				c = len(keys)
				index[k] = c
				keys = append(keys, k)
				values = append(values, make([]any, n))
			}
			values[c][i] = obj.values[j]
		}
	}
	cols := make([]frame.Column, len(keys))
	for i, k := range keys {
		c, err := d.column(path, k, values[i])
		if err != nil {
			return nil, err
		}
		cols[i] = c
	}
	return frame.NewTableWithRows(n, cols...)
}

// column decodes the per-row JSON values of one column.
func (d *Decoder) column(path frame.Path, name string, vals []any) (frame.Column, error) {
	p := path.Child(name)
	s := shapesOf(vals)
	if (s&shapeObject != 0 || popcount(s) > 1) && d.declaresValue(p) {
		// Maps and mixed values written from an untyped value column.
		return rawColumn(name, vals), nil
	}
	switch s {
	case 0:
		return frame.NewValueColumn(name, vals, frame.TypeAny), nil
	case shapePrimitive:
		if d.declaredType(p) == frame.TypeString.String() {
			return frame.InferColumn(name, vals...), nil
		}
		return primitiveColumn(name, vals), nil
	case shapeObject:
		t, err := d.objectTable(p, vals)
		if err != nil {
			return nil, err
		}
		return frame.NewGroupColumn(name, t), nil
	case shapeFrame:
		return d.wrappedColumn(p, name, vals)
	case shapeArray:
		return d.arrayColumn(p, name, vals)
	default:
		cols, ok, err := d.mixedColumns(p, vals)
		if err != nil {
			return nil, err
		}
		if !ok {
			return rawColumn(name, vals), nil
		}
		t, err := frame.NewTableWithRows(len(vals), cols...)
		if err != nil {
			return nil, err
		}
		return frame.NewGroupColumn(name, t), nil
	}
}

// mixedColumns splits heterogeneous values into the "value" and "array"
// placeholders followed by the object-derived columns. It reports false
// when the placeholders cannot be told apart from real columns, after
// recording an AmbiguousJsonShape warning.
func (d *Decoder) mixedColumns(path frame.Path, vals []any) ([]frame.Column, bool, error) {
	n := len(vals)
	prims, arrays, objs := make([]any, n), make([]any, n), make([]any, n)
	var s shape
	for i, v := range vals {
		switch c := classify(v); c {
		case shapePrimitive:
			prims[i] = v
			s |= c
		case shapeArray:
			arrays[i] = v
			s |= c
		case shapeObject, shapeFrame:
			objs[i] = v
			s |= shapeObject
		}
	}

	var cols []frame.Column
	if s&shapePrimitive != 0 {
		cols = append(cols, primitiveColumn(valuePlaceholder, prims))
	}
	if s&shapeArray != 0 {
		c, err := d.arrayColumn(path.Child(arrayPlaceholder), arrayPlaceholder, arrays)
		if err != nil {
			return nil, false, err
		}
		cols = append(cols, c)
	}
	if s&shapeObject != 0 {
		t, err := d.objectTable(path, objs)
		if err != nil {
			return nil, false, err
		}
		for _, c := range t.Columns() {
			if c.Name() == valuePlaceholder || c.Name() == arrayPlaceholder {
				d.warn(errors.ErrorTypeAmbiguousJSONShape, path,
					"object key "+c.Name()+" collides with a placeholder column; keeping raw values")
				return nil, false, nil
			}
		}
		cols = append(cols, t.Columns()...)
	}

	t, err := frame.NewTableWithRows(n, cols...)
	if err != nil {
		return nil, false, err
	}
	if !placeholdersExclusive(t) {
		d.warn(errors.ErrorTypeAmbiguousJSONShape, path, "placeholder column shares a row with other values; keeping raw values")
		return nil, false, nil
	}
	return cols, true, nil
}

// arrayColumn decodes a column whose non-null values are all arrays. Arrays
// of primitives become a list column; anything holding objects becomes a
// frame column.
func (d *Decoder) arrayColumn(path frame.Path, name string, vals []any) (frame.Column, error) {
	structured := false
	for _, v := range vals {
		arr, _ := v.([]any)
		for _, e := range arr {
			if s := classify(e); s == shapeObject || s == shapeFrame {
				structured = true
			}
		}
	}
	if !structured {
		out := make([]any, len(vals))
		for i, v := range vals {
			if v != nil {
				out[i] = listValue(v.([]any))
			}
		}
		return frame.NewValueColumn(name, out, frame.TypeList), nil
	}
	cells := make([]*frame.Table, len(vals))
	for i, v := range vals {
		if v == nil {
			continue
		}
		t, err := d.fromList(path, v.([]any))
		if err != nil {
			return nil, err
		}
		cells[i] = t
	}
	return frameColumn(name, cells), nil
}

func (d *Decoder) wrappedColumn(path frame.Path, name string, vals []any) (frame.Column, error) {
	cells := make([]*frame.Table, len(vals))
	for i, v := range vals {
		if v == nil {
			continue
		}
		t, err := d.wrappedFrame(path, v.(*object))
		if err != nil {
			return nil, err
		}
		cells[i] = t
	}
	return frameColumn(name, cells), nil
}

// frameColumn gives empty column-less cells the layout of their siblings.
func frameColumn(name string, cells []*frame.Table) *frame.FrameColumn {
	schema := frame.NewFrameColumn(name, cells).Schema()
	if len(schema.Columns) > 0 {
		for i, c := range cells {
			if c != nil && c.NumRows() == 0 && c.NumColumns() == 0 {
				cells[i] = schema.EmptyTable()
			}
		}
	}
	return frame.NewFrameColumnWithSchema(name, cells, schema)
}

func primitiveColumn(name string, vals []any) *frame.ValueColumn {
	return frame.InferColumn(name, resolveSpecialFloats(vals, false)...)
}

// rawColumn keeps values as plain Go values in an Any column.
func rawColumn(name string, vals []any) *frame.ValueColumn {
	out := make([]any, len(vals))
	for i, v := range vals {
		out[i] = native(v)
	}
	return frame.NewValueColumn(name, out, frame.TypeAny)
}

func listValue(arr []any) []any {
	out := make([]any, len(arr))
	for i, e := range arr {
		if nested, ok := e.([]any); ok {
			out[i] = listValue(nested)
			continue
		}
		out[i] = e
	}
	return resolveSpecialFloats(out, true)
}

// resolveSpecialFloats turns "NaN", "Infinity" and "-Infinity" into floats
// when every other non-null value is numeric. List elements carry no type,
// so inside lists a float literal must also be present.
func resolveSpecialFloats(vals []any, needFloat bool) []any {
	special, float := false, false
	for _, v := range vals {
		switch x := v.(type) {
		case nil, int64:
		case float64:
			float = true
		case string:
			if _, ok := specialFloat(x); !ok {
				return vals
			}
			special = true
		default:
			return vals
		}
	}
	if !special || (needFloat && !float) {
		return vals
	}
	out := make([]any, len(vals))
	for i, v := range vals {
		if s, ok := v.(string); ok {
			out[i], _ = specialFloat(s)
			continue
		}
		out[i] = v
	}
	return out
}

func specialFloat(s string) (float64, bool) {
	switch s {
	case "NaN":
		return math.NaN(), true
	case "Infinity":
		return math.Inf(1), true
	case "-Infinity":
		return math.Inf(-1), true
	}
	return 0, false
}
