package codec

import (
	"io"
	"strconv"
	"strings"

	"github.com/ajitpratap0/nebulaframe/pkg/errors"
	jsonpool "github.com/ajitpratap0/nebulaframe/pkg/json"
)

// object is a JSON object that remembers key order. Column order follows
// first appearance, so map[string]any cannot be used here.
type object struct {
	keys   []string
	values []any
}

func (o *object) get(key string) (any, bool) {
	for i, k := range o.keys {
		if k == key {
			return o.values[i], true
		}
	}
	return nil, false
}

func (o *object) set(key string, v any) {
	for i, k := range o.keys {
		if k == key {
			o.values[i] = v
			return
		}
	}
	o.keys = append(o.keys, key)
	o.values = append(o.values, v)
}

// native converts a parsed tree into plain Go values, objects becoming
// map[string]any.
func native(v any) any {
	switch x := v.(type) {
	case *object:
		m := make(map[string]any, len(x.keys))
		for i, k := range x.keys {
			m[k] = native(x.values[i])
		}
		return m
	case []any:
		out := make([]any, len(x))
		for i, e := range x {
			out[i] = native(e)
		}
		return out
	default:
		return v
	}
}

// parse reads one JSON value from r into a tree of nil, string, int64,
// float64, bool, []any and *object.
func parse(r io.Reader) (any, error) {
	dec := jsonpool.GetDecoder(r)
	v, err := readValue(dec)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeParse, "malformed JSON")
	}
	return v, nil
}

func readValue(dec *jsonpool.Decoder) (any, error) {
	tok, err := dec.Token()
	if err != nil {
		return nil, err
	}
	switch x := tok.(type) {
	case jsonpool.Delim:
		switch x {
		case '[':
			return readArray(dec)
		case '{':
			return readObject(dec)
		default:
			return nil, errors.Newf(errors.ErrorTypeParse, "unexpected delimiter %q", rune(x))
		}
	case jsonpool.Number:
		return parseNumber(string(x))
	case float64:
		return x, nil
	case string:
		return strings.Clone(x), nil
	case bool:
		return x, nil
	case nil:
		return nil, nil
	default:
		return nil, errors.Newf(errors.ErrorTypeParse, "unexpected token %v", tok)
	}
}

func readArray(dec *jsonpool.Decoder) (any, error) {
	out := []any{}
	for dec.More() {
		v, err := readValue(dec)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	if _, err := dec.Token(); err != nil {
		return nil, err
	}
	return out, nil
}

func readObject(dec *jsonpool.Decoder) (any, error) {
	obj := &object{}
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, err
		}
		key, ok := tok.(string)
		if !ok {
			return nil, errors.Newf(errors.ErrorTypeParse, "object key must be a string, got %v", tok)
		}
		v, err := readValue(dec)
		if err != nil {
			return nil, err
		}
		obj.set(strings.Clone(key), v)
	}
	if _, err := dec.Token(); err != nil {
		return nil, err
	}
	return obj, nil
}

// parseNumber keeps integer literals as int64 and everything with a
// fraction or exponent as float64. Integers beyond int64 fall back to float.
func parseNumber(s string) (any, error) {
	if !strings.ContainsAny(s, ".eE") {
		if i, err := strconv.ParseInt(s, 10, 64); err == nil {
			return i, nil
		}
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeParse, "invalid number "+s)
	}
	return f, nil
}
