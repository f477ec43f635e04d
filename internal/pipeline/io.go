package pipeline

import (
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/ajitpratap0/nebulaframe/pkg/arrowbridge"
	"github.com/ajitpratap0/nebulaframe/pkg/codec"
	"github.com/ajitpratap0/nebulaframe/pkg/compression"
	"github.com/ajitpratap0/nebulaframe/pkg/config"
	"github.com/ajitpratap0/nebulaframe/pkg/errors"
	"github.com/ajitpratap0/nebulaframe/pkg/frame"
)

// Format is a table file format.
type Format int

const (
	FormatJSON Format = iota
	FormatArrow
)

func (f Format) String() string {
	if f == FormatArrow {
		return "arrow"
	}
	return "json"
}

var arrowExtensions = map[string]bool{
	".arrow":  true,
	".arrows": true,
	".ipc":    true,
}

// FormatOf picks the format from the file extension, ignoring a trailing
// compression extension. Anything that is not Arrow is read as JSON.
func FormatOf(path string) Format {
	ext := strings.ToLower(filepath.Ext(compression.TrimExtension(path)))
	if arrowExtensions[ext] {
		return FormatArrow
	}
	return FormatJSON
}

// Files reads and writes tables in either format.
type Files struct {
	Codec codec.Options
	Arrow arrowbridge.Options
}

// FilesFromConfig builds file options from the codec and arrow sections.
func FilesFromConfig(cfg *config.Config) (Files, error) {
	arrow, err := arrowbridge.FromConfig(cfg.Arrow)
	if err != nil {
		return Files{}, err
	}
	return Files{Codec: codec.FromConfig(cfg.Codec), Arrow: arrow}, nil
}

// WithLogger returns a copy logging to l.
func (f Files) WithLogger(l *zap.Logger) Files {
	f.Codec.Logger = l
	f.Arrow.Logger = l
	return f
}

// Read loads the table at path.
func (f Files) Read(path string) (*frame.Table, []errors.Warning, error) {
	if FormatOf(path) == FormatArrow {
		t, res, err := arrowbridge.ReadFile(path, f.Arrow)
		return t, res.Warnings, err
	}
	dec := codec.NewDecoder(f.Codec)
	t, err := dec.ReadFile(path)
	return t, dec.Warnings(), err
}

// Write stores t at path.
func (f Files) Write(path string, t *frame.Table) ([]errors.Warning, error) {
	if FormatOf(path) == FormatArrow {
		res, err := arrowbridge.WriteFile(path, t, f.Arrow)
		return res.Warnings, err
	}
	return nil, codec.WriteFile(path, t, f.Codec)
}
