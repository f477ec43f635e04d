// Package strings provides pooled string building utilities used by the
// reshaping operations and error formatting.
package strings

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"
)

// Builder provides efficient string building over a reusable byte buffer
type Builder struct {
	buf []byte
}

// NewBuilder creates a new string builder
func NewBuilder(capacity int) *Builder {
	return &Builder{
		buf: make([]byte, 0, capacity),
	}
}

// WriteString appends a string to the builder
func (b *Builder) WriteString(s string) {
	b.buf = append(b.buf, s...)
}

// WriteByte appends a single byte
func (b *Builder) WriteByte(c byte) error {
	b.buf = append(b.buf, c)
	return nil
}

// Write implements io.Writer interface
func (b *Builder) Write(p []byte) (n int, err error) {
	b.buf = append(b.buf, p...)
	return len(p), nil
}

// String returns a copy of the built string
func (b *Builder) String() string {
	return string(b.buf)
}

// Len returns the length of the built string
func (b *Builder) Len() int {
	return len(b.buf)
}

// Reset resets the builder for reuse
func (b *Builder) Reset() {
	b.buf = b.buf[:0]
}

// BuilderSize represents different builder sizes
type BuilderSize int

const (
	Small  BuilderSize = iota // < 1KB
	Medium                    // 1KB - 16KB
	Large                     // 16KB+
)

var builderPools = [...]*sync.Pool{
	Small:  {New: func() interface{} { return NewBuilder(1024) }},
	Medium: {New: func() interface{} { return NewBuilder(16 * 1024) }},
	Large:  {New: func() interface{} { return NewBuilder(64 * 1024) }},
}

func poolFor(size BuilderSize) *sync.Pool {
	if size < Small || size > Large {
		return builderPools[Small]
	}
	return builderPools[size]
}

// GetBuilder retrieves a pooled builder of the specified size
func GetBuilder(size BuilderSize) *Builder {
	builder := poolFor(size).Get().(*Builder)
	builder.Reset()
	return builder
}

// PutBuilder returns a builder to the appropriate pool
func PutBuilder(builder *Builder, size BuilderSize) {
	if builder == nil {
		return
	}
	builder.Reset()
	poolFor(size).Put(builder)
}

func sizeFor(n int) BuilderSize {
	switch {
	case n > 16*1024:
		return Large
	case n > 1024:
		return Medium
	default:
		return Small
	}
}

// Sprintf provides a pooled alternative to fmt.Sprintf
func Sprintf(format string, args ...interface{}) string {
	if len(args) == 0 {
		return format
	}

	size := sizeFor(len(format) + len(args)*16)
	builder := GetBuilder(size)
	defer PutBuilder(builder, size)

	fmt.Fprintf(builder, format, args...)
	return builder.String()
}

// ValueToString converts a cell value to its display string.
// Nil becomes the empty string; NaN and infinities use their JSON spellings.
func ValueToString(value interface{}) string {
	if value == nil {
		return ""
	}

	switch v := value.(type) {
	case string:
		return v
	case int:
		return strconv.Itoa(v)
	case int32:
		return strconv.FormatInt(int64(v), 10)
	case int64:
		return strconv.FormatInt(v, 10)
	case float32:
		return FormatFloat(float64(v))
	case float64:
		return FormatFloat(v)
	case bool:
		return strconv.FormatBool(v)
	case []byte:
		return string(v)
	case time.Time:
		return v.Format(time.RFC3339Nano)
	case decimal.Decimal:
		return v.String()
	case fmt.Stringer:
		return v.String()
	default:
		return Sprintf("%v", value)
	}
}

// FormatFloat renders a float in its shortest round-trip form.
func FormatFloat(f float64) string {
	switch {
	case math.IsNaN(f):
		return "NaN"
	case math.IsInf(f, 1):
		return "Infinity"
	case math.IsInf(f, -1):
		return "-Infinity"
	}
	return strconv.FormatFloat(f, 'g', -1, 64)
}

// JoinOptions controls how JoinValues renders a sequence.
type JoinOptions struct {
	Separator string
	Prefix    string
	Postfix   string
	// Limit caps the number of rendered elements; negative means no limit.
	Limit     int
	Truncated string
}

// DefaultJoinOptions returns ", " separated output with no limit.
func DefaultJoinOptions() JoinOptions {
	return JoinOptions{Separator: ", ", Limit: -1, Truncated: "..."}
}

// JoinValues renders values with separator, prefix and postfix. When Limit is
// reached the Truncated marker is appended in place of the remaining elements.
func JoinValues(values []interface{}, opts JoinOptions) string {
	total := len(opts.Prefix) + len(opts.Postfix)
	for range values {
		total += 8 + len(opts.Separator)
	}

	size := sizeFor(total)
	builder := GetBuilder(size)
	defer PutBuilder(builder, size)

	builder.WriteString(opts.Prefix)
	for i, v := range values {
		if opts.Limit >= 0 && i >= opts.Limit {
			if i > 0 {
				builder.WriteString(opts.Separator)
			}
			builder.WriteString(opts.Truncated)
			break
		}
		if i > 0 {
			builder.WriteString(opts.Separator)
		}
		builder.WriteString(ValueToString(v))
	}
	builder.WriteString(opts.Postfix)

	return builder.String()
}

// SplitAny splits s on any of the given delimiters, in the order they occur.
// With no delimiters s is split on ",".
func SplitAny(s string, delimiters ...string) []string {
	if len(delimiters) == 0 {
		delimiters = []string{","}
	}

	var result []string
	start := 0
	for i := 0; i <= len(s); {
		matched := ""
		for _, d := range delimiters {
			if d != "" && strings.HasPrefix(s[i:], d) {
				matched = d
				break
			}
		}
		if matched == "" {
			i++
			continue
		}
		result = append(result, s[start:i])
		i += len(matched)
		start = i
	}
	return append(result, s[start:])
}
