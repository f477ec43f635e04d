package frame

import (
	"math"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestKeyEquality(t *testing.T) {
	ts := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	tests := []struct {
		name  string
		a, b  any
		equal bool
	}{
		{"nan equals nan", math.NaN(), math.NaN(), true},
		{"int widths", 1, int64(1), true},
		{"int is not float", int64(1), 1.0, false},
		{"string vs int", "1", int64(1), false},
		{"nil", nil, nil, true},
		{"nil vs empty string", nil, "", false},
		{"times across zones", ts, ts.In(time.FixedZone("x", 3600)), true},
		{"decimals", decimal.RequireFromString("1.5"), decimal.RequireFromString("1.5"), true},
		{"lists", []any{1, "a"}, []string{"1", "a"}, false},
		{"equal lists", []any{int64(1), nil}, []any{1, nil}, true},
		{"maps ignore order", map[string]any{"a": 1, "b": 2}, map[string]any{"b": 2, "a": 1}, true},
		{"bytes", []byte{1, 2}, []byte{1, 2}, true},
		{"string framing", []any{"a;", "b"}, []any{"a", ";b"}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.equal, Equal(tt.a, tt.b))
		})
	}
}

func TestKeyTuples(t *testing.T) {
	assert.Equal(t, Key(1, "a"), Key(int64(1), "a"))
	assert.NotEqual(t, Key("ab", "c"), Key("a", "bc"))
}

func TestInferType(t *testing.T) {
	tests := []struct {
		values []any
		want   ColumnType
	}{
		{[]any{nil, nil}, TypeAny},
		{[]any{int64(1), nil}, TypeInt},
		{[]any{int64(1), 2.5}, TypeNumber},
		{[]any{"a", int64(1)}, TypeAny},
		{[]any{[]any{1}}, TypeList},
		{[]any{decimal.Zero}, TypeDecimal},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, InferType(tt.values), "%v", tt.values)
	}
}

func TestNormalize(t *testing.T) {
	tests := []struct {
		in   any
		want any
	}{
		{int(7), int64(7)},
		{uint32(7), int64(7)},
		{uint64(math.MaxInt64), int64(math.MaxInt64)},
		{uint64(math.MaxUint64), float64(math.MaxUint64)},
		{uint(math.MaxInt64) + 1, float64(math.MaxInt64) + 1},
		{float32(0.5), 0.5},
		{[]int{1, 2}, []any{int64(1), int64(2)}},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Normalize(tt.in), "%T %v", tt.in, tt.in)
	}
}

func TestParseColumnType(t *testing.T) {
	for _, typ := range []ColumnType{TypeAny, TypeString, TypeInt, TypeFloat, TypeNumber, TypeBool, TypeTimestamp, TypeBytes, TypeDecimal, TypeList} {
		got, ok := ParseColumnType(typ.String())
		assert.True(t, ok)
		assert.Equal(t, typ, got)
	}
	_, ok := ParseColumnType("matrix")
	assert.False(t, ok)
}

func TestAccepts(t *testing.T) {
	assert.True(t, TypeAny.Accepts(TypeString))
	assert.True(t, TypeNumber.Accepts(TypeInt))
	assert.False(t, TypeInt.Accepts(TypeFloat))
}
