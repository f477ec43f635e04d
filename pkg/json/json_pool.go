// Package json provides goccy/go-json helpers with pooled buffers
package json

import (
	"bytes"
	"io"
	"sync"

	gojson "github.com/goccy/go-json"
)

// Number is re-exported so callers do not need to import goccy directly.
type Number = gojson.Number

// Delim is a JSON structural delimiter: one of [ ] { }.
type Delim = gojson.Delim

// Decoder reads JSON values and tokens from a stream.
type Decoder = gojson.Decoder

const maxPooledBuffer = 1024 * 1024

var bufferPool = sync.Pool{
	New: func() interface{} {
		return bytes.NewBuffer(make([]byte, 0, 4096))
	},
}

// GetBuffer gets a pooled bytes.Buffer
func GetBuffer() *bytes.Buffer {
	buf := bufferPool.Get().(*bytes.Buffer)
	buf.Reset()
	return buf
}

// PutBuffer returns a buffer to the pool
func PutBuffer(buf *bytes.Buffer) {
	if buf == nil || buf.Cap() > maxPooledBuffer {
		return
	}
	bufferPool.Put(buf)
}

// Indent appends an indented form of src to dst.
func Indent(dst *bytes.Buffer, src []byte, prefix, indent string) error {
	return gojson.Indent(dst, src, prefix, indent)
}

// NewEncoder returns an encoder that does not escape HTML.
func NewEncoder(w io.Writer) *gojson.Encoder {
	enc := gojson.NewEncoder(w)
	enc.SetEscapeHTML(false)
	return enc
}

// GetDecoder returns a decoder that keeps numbers as Number.
func GetDecoder(r io.Reader) *Decoder {
	dec := gojson.NewDecoder(r)
	dec.UseNumber()
	return dec
}

// AppendString appends s as a quoted JSON string to dst.
func AppendString(dst *bytes.Buffer, s string) {
	// Marshal of a string cannot fail.
	data, _ := gojson.Marshal(s)
	dst.Write(data)
}
