package compression

import (
	"bytes"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var sample = []byte(strings.Repeat(`{"name":"Alice","age":15,"city":"London"},`, 64))

func roundTrip(t *testing.T, algo Algorithm, level Level) []byte {
	t.Helper()
	var buf bytes.Buffer
	w, err := NewWriter(&buf, algo, level)
	require.NoError(t, err)
	_, err = w.Write(sample)
	require.NoError(t, err)
	require.NoError(t, w.Close())
	packed := len(buf.Bytes())

	r, err := NewReader(&buf, algo)
	require.NoError(t, err)
	out, err := io.ReadAll(r)
	require.NoError(t, err)
	require.NoError(t, r.Close())
	if algo != None {
		assert.Less(t, packed, len(sample))
	}
	return out
}

func TestWriterReader(t *testing.T) {
	for _, algo := range []Algorithm{None, Gzip, Snappy, LZ4, Zstd, S2} {
		t.Run(string(algo), func(t *testing.T) {
			for _, level := range []Level{Fastest, Default, Better, Best} {
				assert.Equal(t, sample, roundTrip(t, algo, level))
			}
		})
	}
}

func TestUnsupportedAlgorithm(t *testing.T) {
	_, err := NewWriter(&bytes.Buffer{}, "brotli", Default)
	assert.Error(t, err)
	_, err = NewReader(strings.NewReader(""), "brotli")
	assert.Error(t, err)

	r, err := NewReader(strings.NewReader("not zstd"), Zstd)
	if err == nil {
		_, err = io.ReadAll(r)
	}
	assert.Error(t, err)
}

func TestForPath(t *testing.T) {
	tests := []struct {
		path string
		want Algorithm
		trim string
	}{
		{"frame.json", None, "frame.json"},
		{"frame.json.gz", Gzip, "frame.json"},
		{"frame.json.ZST", Zstd, "frame.json"},
		{"frame.arrow.lz4", LZ4, "frame.arrow"},
		{"dir/frame.json.sz", Snappy, "dir/frame.json"},
		{"frame.json.s2", S2, "frame.json"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ForPath(tt.path), tt.path)
		assert.Equal(t, tt.trim, TrimExtension(tt.path), tt.path)
	}
}
