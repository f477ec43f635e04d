// Package convert re-types value columns through a registry of per-value
// conversion rules.
package convert

import (
	"encoding/base64"
	"fmt"
	"math"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/ajitpratap0/nebulaframe/pkg/frame"
	stringpool "github.com/ajitpratap0/nebulaframe/pkg/strings"
)

// Converter turns a single non-null value into the target type.
type Converter func(v any) (any, error)

type pair struct{ from, to frame.ColumnType }

// Registry holds conversion rules keyed by (from, to). A rule registered with
// from = TypeAny applies to every source type without its own rule.
// Registry is safe for concurrent use.
type Registry struct {
	mu        sync.RWMutex
	rules     map[pair]Converter
	fallbacks map[pair]Converter
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		rules:     make(map[pair]Converter),
		fallbacks: make(map[pair]Converter),
	}
}

// DefaultRegistry returns a registry preloaded with the built-in rules.
func DefaultRegistry() *Registry {
	r := NewRegistry()
	r.registerDefaults()
	return r
}

var (
	sharedOnce sync.Once
	shared     *Registry
)

func defaultRegistry() *Registry {
	sharedOnce.Do(func() { shared = DefaultRegistry() })
	return shared
}

// Register adds or replaces the rule for from → to.
func (r *Registry) Register(from, to frame.ColumnType, fn Converter) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rules[pair{from, to}] = fn
}

// RegisterFallback adds a rule tried when the primary rule for from → to
// fails on a value.
func (r *Registry) RegisterFallback(from, to frame.ColumnType, fn Converter) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.fallbacks[pair{from, to}] = fn
}

// Lookup returns the rule for from → to, falling back to the TypeAny rule
// for the target.
func (r *Registry) Lookup(from, to frame.ColumnType) (Converter, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if fn, ok := r.rules[pair{from, to}]; ok {
		return fn, true
	}
	fn, ok := r.rules[pair{frame.TypeAny, to}]
	return fn, ok
}

func (r *Registry) fallback(from, to frame.ColumnType) (Converter, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if fn, ok := r.fallbacks[pair{from, to}]; ok {
		return fn, true
	}
	fn, ok := r.fallbacks[pair{frame.TypeAny, to}]
	return fn, ok
}

var timeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

func (r *Registry) registerDefaults() {
	r.Register(frame.TypeString, frame.TypeInt, func(v any) (any, error) {
		return strconv.ParseInt(strings.TrimSpace(v.(string)), 10, 64)
	})
	r.Register(frame.TypeString, frame.TypeFloat, func(v any) (any, error) {
		return parseFloat(v.(string))
	})
	r.Register(frame.TypeString, frame.TypeNumber, func(v any) (any, error) {
		s := strings.TrimSpace(v.(string))
		if i, err := strconv.ParseInt(s, 10, 64); err == nil {
			return i, nil
		}
		return parseFloat(s)
	})
	r.Register(frame.TypeString, frame.TypeBool, func(v any) (any, error) {
		return strconv.ParseBool(strings.TrimSpace(v.(string)))
	})
	r.Register(frame.TypeString, frame.TypeTimestamp, func(v any) (any, error) {
		return parseTime(v.(string))
	})
	r.Register(frame.TypeString, frame.TypeDecimal, func(v any) (any, error) {
		return decimal.NewFromString(strings.TrimSpace(v.(string)))
	})
	r.Register(frame.TypeString, frame.TypeBytes, func(v any) (any, error) {
		return base64.StdEncoding.DecodeString(v.(string))
	})

	r.Register(frame.TypeInt, frame.TypeFloat, func(v any) (any, error) { return float64(v.(int64)), nil })
	r.Register(frame.TypeInt, frame.TypeNumber, func(v any) (any, error) { return v, nil })
	r.Register(frame.TypeInt, frame.TypeBool, func(v any) (any, error) { return v.(int64) != 0, nil })
	r.Register(frame.TypeInt, frame.TypeDecimal, func(v any) (any, error) { return decimal.NewFromInt(v.(int64)), nil })
	r.Register(frame.TypeInt, frame.TypeTimestamp, func(v any) (any, error) { return time.UnixMilli(v.(int64)).UTC(), nil })

	r.Register(frame.TypeFloat, frame.TypeInt, func(v any) (any, error) { return floatToInt(v.(float64)) })
	r.Register(frame.TypeFloat, frame.TypeNumber, func(v any) (any, error) { return v, nil })
	r.Register(frame.TypeFloat, frame.TypeDecimal, func(v any) (any, error) {
		f := v.(float64)
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return nil, fmt.Errorf("%v has no decimal form", f)
		}
		return decimal.NewFromFloat(f), nil
	})

	r.Register(frame.TypeBool, frame.TypeInt, func(v any) (any, error) {
		if v.(bool) {
			return int64(1), nil
		}
		return int64(0), nil
	})

	r.Register(frame.TypeDecimal, frame.TypeFloat, func(v any) (any, error) {
		f, _ := v.(decimal.Decimal).Float64()
		return f, nil
	})
	r.Register(frame.TypeDecimal, frame.TypeInt, func(v any) (any, error) {
		d := v.(decimal.Decimal)
		if !d.IsInteger() {
			return nil, fmt.Errorf("%s is not integral", d)
		}
		return d.IntPart(), nil
	})

	r.Register(frame.TypeTimestamp, frame.TypeInt, func(v any) (any, error) { return v.(time.Time).UnixMilli(), nil })

	r.Register(frame.TypeAny, frame.TypeString, func(v any) (any, error) { return toString(v), nil })
	r.Register(frame.TypeAny, frame.TypeList, func(v any) (any, error) { return []any{v}, nil })
}

func parseFloat(s string) (any, error) {
	s = strings.TrimSpace(s)
	switch s {
	case "NaN":
		return math.NaN(), nil
	case "Infinity":
		return math.Inf(1), nil
	case "-Infinity":
		return math.Inf(-1), nil
	}
	return strconv.ParseFloat(s, 64)
}

func parseTime(s string) (any, error) {
	s = strings.TrimSpace(s)
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return nil, fmt.Errorf("unable to parse timestamp: %s", s)
}

func floatToInt(f float64) (any, error) {
	if f != math.Trunc(f) || math.IsInf(f, 0) || f > math.MaxInt64 || f < math.MinInt64 {
		return nil, fmt.Errorf("%v is not integral", f)
	}
	return int64(f), nil
}

func toString(v any) string {
	switch x := v.(type) {
	case []byte:
		return base64.StdEncoding.EncodeToString(x)
	case []any:
		return stringpool.JoinValues(x, stringpool.JoinOptions{Separator: ", ", Prefix: "[", Postfix: "]", Limit: -1})
	default:
		return stringpool.ValueToString(v)
	}
}
