package arrowbridge

import (
	"github.com/apache/arrow-go/v18/arrow"

	"github.com/ajitpratap0/nebulaframe/pkg/frame"
)

// TypeKey is the field metadata key holding the column type name.
const TypeKey = "nebulaframe.type"

var timestampType = &arrow.TimestampType{Unit: arrow.Nanosecond, TimeZone: "UTC"}

// InferSchema derives an Arrow schema from t.
func InferSchema(t *frame.Table) *arrow.Schema {
	return arrow.NewSchema(inferFields(t), nil)
}

func inferFields(t *frame.Table) []arrow.Field {
	fields := make([]arrow.Field, t.NumColumns())
	for i, c := range t.Columns() {
		fields[i] = inferField(c)
	}
	return fields
}

func inferField(c frame.Column) arrow.Field {
	switch col := c.(type) {
	case *frame.GroupColumn:
		return arrow.Field{Name: col.Name(), Type: arrow.StructOf(inferFields(col.Table())...), Nullable: true}
	case *frame.FrameColumn:
		return arrow.Field{
			Name:     col.Name(),
			Type:     arrow.ListOf(arrow.StructOf(inferFields(cellUnion(col))...)),
			Nullable: col.Nullable(),
		}
	case *frame.ValueColumn:
		f := arrow.Field{
			Name:     col.Name(),
			Nullable: col.Nullable(),
			Metadata: arrow.NewMetadata([]string{TypeKey}, []string{col.Type().String()}),
		}
		if col.Type() == frame.TypeList {
			f.Type = arrow.ListOf(elementType(col.Values()))
		} else {
			f.Type = dataType(col.Type())
		}
		return f
	}
	return arrow.Field{Name: c.Name(), Type: arrow.Null, Nullable: true}
}

// cellUnion stacks the non-null cells of a frame column so that every
// nested column and its nullability are visible in one table.
func cellUnion(c *frame.FrameColumn) *frame.Table {
	var cells []*frame.Table
	for _, t := range c.Cells() {
		if t != nil {
			cells = append(cells, t)
		}
	}
	if len(cells) == 0 {
		return c.Schema().EmptyTable()
	}
	u, err := frame.Concat(cells...)
	if err != nil {
		return c.Schema().EmptyTable()
	}
	return u
}

// dataType maps a column type to its Arrow storage type. Types without a
// lossless Arrow counterpart are stored as strings.
func dataType(t frame.ColumnType) arrow.DataType {
	switch t {
	case frame.TypeInt:
		return arrow.PrimitiveTypes.Int64
	case frame.TypeFloat, frame.TypeNumber:
		return arrow.PrimitiveTypes.Float64
	case frame.TypeBool:
		return arrow.FixedWidthTypes.Boolean
	case frame.TypeTimestamp:
		return timestampType
	case frame.TypeBytes:
		return arrow.BinaryTypes.Binary
	default:
		return arrow.BinaryTypes.String
	}
}

// elementType picks the list element type from every element of every list.
// Mixed or nested elements fall back to strings.
func elementType(values []any) arrow.DataType {
	var elems []any
	for _, v := range values {
		if list, ok := v.([]any); ok {
			elems = append(elems, list...)
		}
	}
	switch typ := frame.InferType(elems); typ {
	case frame.TypeInt, frame.TypeFloat, frame.TypeNumber, frame.TypeBool,
		frame.TypeTimestamp, frame.TypeBytes:
		return dataType(typ)
	}
	return arrow.BinaryTypes.String
}

// columnTypeOf maps an Arrow type to the column type its values read as.
func columnTypeOf(dt arrow.DataType) frame.ColumnType {
	switch dt.ID() {
	case arrow.BOOL:
		return frame.TypeBool
	case arrow.INT8, arrow.INT16, arrow.INT32, arrow.INT64,
		arrow.UINT8, arrow.UINT16, arrow.UINT32, arrow.UINT64:
		return frame.TypeInt
	case arrow.FLOAT32, arrow.FLOAT64:
		return frame.TypeFloat
	case arrow.STRING, arrow.LARGE_STRING:
		return frame.TypeString
	case arrow.BINARY, arrow.LARGE_BINARY:
		return frame.TypeBytes
	case arrow.TIMESTAMP, arrow.DATE32, arrow.DATE64:
		return frame.TypeTimestamp
	case arrow.DECIMAL128:
		return frame.TypeDecimal
	case arrow.LIST:
		return frame.TypeList
	}
	return frame.TypeAny
}

// fieldType is the declared column type of f, falling back to the type its
// storage reads as.
func fieldType(f arrow.Field) frame.ColumnType {
	if i := f.Metadata.FindKey(TypeKey); i >= 0 {
		if t, ok := frame.ParseColumnType(f.Metadata.Values()[i]); ok {
			return t
		}
	}
	return columnTypeOf(f.Type)
}

func frameList(dt arrow.DataType) (*arrow.StructType, bool) {
	lt, ok := dt.(*arrow.ListType)
	if !ok {
		return nil, false
	}
	st, ok := lt.Elem().(*arrow.StructType)
	return st, ok
}

// TableSchema describes the table that reading data of schema s produces.
func TableSchema(s *arrow.Schema) *frame.Schema {
	return schemaOf(s.Fields())
}

func schemaOf(fields []arrow.Field) *frame.Schema {
	out := &frame.Schema{Columns: make([]frame.ColumnSchema, len(fields))}
	for i, f := range fields {
		cs := frame.ColumnSchema{Name: f.Name, Nullable: f.Nullable}
		if st, ok := f.Type.(*arrow.StructType); ok {
			cs.Kind, cs.Children = frame.KindGroup, schemaOf(st.Fields())
		} else if st, ok := frameList(f.Type); ok {
			cs.Kind, cs.Children = frame.KindFrame, schemaOf(st.Fields())
		} else {
			cs.Kind, cs.Type = frame.KindValue, fieldType(f)
		}
		out.Columns[i] = cs
	}
	return out
}
