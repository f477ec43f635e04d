package strings

import (
	"math"
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func TestBuilder(t *testing.T) {
	builder := NewBuilder(32)

	builder.WriteString("hello")
	_ = builder.WriteByte(' ')
	builder.WriteString("world")

	if result := builder.String(); result != "hello world" {
		t.Errorf("expected 'hello world', got '%s'", result)
	}
	if builder.Len() != 11 {
		t.Errorf("expected length 11, got %d", builder.Len())
	}

	builder.Reset()
	if builder.Len() != 0 {
		t.Errorf("expected length 0 after reset, got %d", builder.Len())
	}
}

func TestPooledBuilder(t *testing.T) {
	for _, size := range []BuilderSize{Small, Medium, Large, BuilderSize(42)} {
		b := GetBuilder(size)
		if b.Len() != 0 {
			t.Fatalf("pooled builder not reset for size %d", size)
		}
		b.WriteString("x")
		PutBuilder(b, size)
	}
	PutBuilder(nil, Small)
}

func TestSprintf(t *testing.T) {
	if got := Sprintf("plain"); got != "plain" {
		t.Errorf("expected 'plain', got %q", got)
	}
	if got := Sprintf("%s=%d", "a", 1); got != "a=1" {
		t.Errorf("expected 'a=1', got %q", got)
	}
}

func TestValueToString(t *testing.T) {
	ts := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	tests := []struct {
		in   interface{}
		want string
	}{
		{nil, ""},
		{"s", "s"},
		{42, "42"},
		{int64(-7), "-7"},
		{1.5, "1.5"},
		{math.NaN(), "NaN"},
		{math.Inf(-1), "-Infinity"},
		{true, "true"},
		{ts, "2024-01-02T03:04:05Z"},
		{decimal.RequireFromString("1.25"), "1.25"},
		{[]int{1, 2}, "[1 2]"},
	}
	for _, tt := range tests {
		if got := ValueToString(tt.in); got != tt.want {
			t.Errorf("ValueToString(%v) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestJoinValues(t *testing.T) {
	values := []interface{}{1, "b", nil, 2.5}

	if got := JoinValues(values, DefaultJoinOptions()); got != "1, b, , 2.5" {
		t.Errorf("unexpected default join %q", got)
	}

	opts := JoinOptions{Separator: "|", Prefix: "<", Postfix: ">", Limit: 2, Truncated: "~"}
	if got := JoinValues(values, opts); got != "<1|b|~>" {
		t.Errorf("unexpected limited join %q", got)
	}

	opts.Limit = 0
	if got := JoinValues(values, opts); got != "<~>" {
		t.Errorf("unexpected zero-limit join %q", got)
	}

	if got := JoinValues(nil, DefaultJoinOptions()); got != "" {
		t.Errorf("expected empty join, got %q", got)
	}
}

func TestSplitAny(t *testing.T) {
	tests := []struct {
		in    string
		delim []string
		want  []string
	}{
		{"a,b,c", nil, []string{"a", "b", "c"}},
		{"a b;c", []string{" ", ";"}, []string{"a", "b", "c"}},
		{"a::b", []string{"::"}, []string{"a", "b"}},
		{"", []string{","}, []string{""}},
		{"a,", []string{","}, []string{"a", ""}},
	}
	for _, tt := range tests {
		got := SplitAny(tt.in, tt.delim...)
		if len(got) != len(tt.want) {
			t.Fatalf("SplitAny(%q) = %v, want %v", tt.in, got, tt.want)
		}
		for i := range got {
			if got[i] != tt.want[i] {
				t.Errorf("SplitAny(%q)[%d] = %q, want %q", tt.in, i, got[i], tt.want[i])
			}
		}
	}
}
