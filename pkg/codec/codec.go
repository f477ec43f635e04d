// Package codec maps tables to and from nested JSON.
//
// A table encodes as an array of row objects. Group columns become nested
// objects and frame columns become arrays of row objects, optionally wrapped
// as {"data": [...], "metadata": {"kind": "Frame", ...}} so that empty and
// column-less cells keep their shape. A document wraps the rows with a
// version and top-level metadata:
//
//	{"$version": "0.15.0",
//	 "metadata": {"columns": ["a"], "types": ["int"], "nrow": 2, "ncol": 1},
//	 "kotlin_dataframe": [{"a": 1}, {"a": 2}]}
//
// Decoding accepts any JSON array or object. Heterogeneous arrays mixing
// primitives, arrays and objects decode into a group holding "value" and
// "array" placeholder columns next to the object-derived columns.
package codec

import (
	"go.uber.org/zap"

	"github.com/ajitpratap0/nebulaframe/pkg/config"
	"github.com/ajitpratap0/nebulaframe/pkg/convert"
	"github.com/ajitpratap0/nebulaframe/pkg/frame"
	"github.com/ajitpratap0/nebulaframe/pkg/logger"
)

// DefaultVersion is written as $version when Options.Version is empty.
const DefaultVersion = "0.15.0"

const (
	versionKey  = "$version"
	metadataKey = "metadata"
	payloadKey  = "kotlin_dataframe"
	dataKey     = "data"
	frameKind   = "Frame"

	valuePlaceholder = "value"
	arrayPlaceholder = "array"
)

// Options configures encoding and decoding.
type Options struct {
	// MetadataPreserving wraps frame cells with their metadata. Documents
	// always do so.
	MetadataPreserving bool
	Version            string
	// Indent pretty-prints output when non-empty.
	Indent   string
	Logger   *zap.Logger
	Registry *convert.Registry
}

// DefaultOptions returns metadata-preserving compact output.
func DefaultOptions() Options {
	return Options{MetadataPreserving: true, Version: DefaultVersion}
}

// FromConfig builds options from the codec configuration section.
func FromConfig(cfg config.CodecConfig) Options {
	return Options{
		MetadataPreserving: cfg.MetadataPreserving,
		Version:            cfg.Version,
		Indent:             cfg.Indent,
	}
}

func (o Options) logger() *zap.Logger {
	if o.Logger != nil {
		return o.Logger
	}
	return logger.Get()
}

func (o Options) version() string {
	if o.Version == "" {
		return DefaultVersion
	}
	return o.Version
}

// metadata describes one table level: the top-level columns with their
// kinds or value types, the row and column counts, and the types of the
// columns nested in groups in depth-first order.
type metadata struct {
	Columns []string
	Types   []string
	Nested  []nestedType
	NRow    int
	NCol    int
}

type nestedType struct {
	path string
	typ  string
}

const (
	groupTypeName = "group"
	frameTypeName = "frame"
)

func typeName(c frame.Column) string {
	switch col := c.(type) {
	case *frame.GroupColumn:
		return groupTypeName
	case *frame.FrameColumn:
		return frameTypeName
	case *frame.ValueColumn:
		return col.Type().String()
	}
	return frame.TypeAny.String()
}

func metadataOf(t *frame.Table) metadata {
	m := metadata{
		Columns: t.ColumnNames(),
		Types:   make([]string, t.NumColumns()),
		NRow:    t.NumRows(),
		NCol:    t.NumColumns(),
	}
	for i, c := range t.Columns() {
		m.Types[i] = typeName(c)
	}
	for p, c := range t.All() {
		if len(p) > 1 {
			m.Nested = append(m.Nested, nestedType{path: p.String(), typ: typeName(c)})
		}
	}
	return m
}

// toObject renders metadata in wire form. kind is set for frame cells.
func (m metadata) toObject(kind string) *object {
	obj := &object{}
	if kind != "" {
		obj.set("kind", kind)
	}
	cols := make([]any, len(m.Columns))
	for i, c := range m.Columns {
		cols[i] = c
	}
	types := make([]any, len(m.Types))
	for i, t := range m.Types {
		types[i] = t
	}
	obj.set("columns", cols)
	obj.set("types", types)
	if len(m.Nested) > 0 {
		nested := &object{}
		for _, n := range m.Nested {
			nested.set(n.path, n.typ)
		}
		obj.set("nested_types", nested)
	}
	obj.set("nrow", int64(m.NRow))
	obj.set("ncol", int64(m.NCol))
	return obj
}

// metadataFrom reads whatever metadata fields are present. Missing counts
// are reported as -1.
func metadataFrom(obj *object) metadata {
	m := metadata{NRow: -1, NCol: -1}
	if v, ok := obj.get("columns"); ok {
		m.Columns = stringsOf(v)
	}
	if v, ok := obj.get("types"); ok {
		m.Types = stringsOf(v)
	}
	if v, ok := obj.get("nested_types"); ok {
		if nested, ok := v.(*object); ok {
			for i, k := range nested.keys {
				if s, ok := nested.values[i].(string); ok {
					m.Nested = append(m.Nested, nestedType{path: k, typ: s})
				}
			}
		}
	}
	if v, ok := obj.get("nrow"); ok {
		if n, ok := v.(int64); ok {
			m.NRow = int(n)
		}
	}
	if v, ok := obj.get("ncol"); ok {
		if n, ok := v.(int64); ok {
			m.NCol = int(n)
		}
	}
	return m
}

func stringsOf(v any) []string {
	arr, ok := v.([]any)
	if !ok {
		return nil
	}
	out := make([]string, 0, len(arr))
	for _, e := range arr {
		if s, ok := e.(string); ok {
			out = append(out, s)
		}
	}
	return out
}

// schema rebuilds the column layout described by m. Value columns whose
// type name is unknown become TypeAny.
func (m metadata) schema() *frame.Schema {
	root := &frame.Schema{}
	add := func(p frame.Path, typ string) {
		s := root
		for _, name := range p.Parent() {
			var next *frame.Schema
			for i := range s.Columns {
				if s.Columns[i].Name == name && s.Columns[i].Kind == frame.KindGroup {
					next = s.Columns[i].Children
					break
				}
			}
			if next == nil {
				return
			}
			s = next
		}
		cs := frame.ColumnSchema{Name: p.Name(), Nullable: true}
		switch typ {
		case groupTypeName:
			cs.Kind, cs.Children = frame.KindGroup, &frame.Schema{}
		case frameTypeName:
			cs.Kind, cs.Children = frame.KindFrame, &frame.Schema{}
		default:
			cs.Kind = frame.KindValue
			cs.Type, _ = frame.ParseColumnType(typ)
		}
		s.Columns = append(s.Columns, cs)
	}
	for i, name := range m.Columns {
		typ := ""
		if i < len(m.Types) {
			typ = m.Types[i]
		}
		add(frame.PathOf(name), typ)
	}
	for _, n := range m.Nested {
		add(frame.ParsePath(n.path), n.typ)
	}
	return root
}
