// Package arrowbridge moves tables in and out of Apache Arrow IPC streams.
//
// Group columns map to struct fields, frame columns to list<struct> fields
// and list value columns to list<primitive> fields. Each value field carries
// its column type in the "nebulaframe.type" metadata key so that types with
// no direct Arrow counterpart (decimal, number, any) are restored on read.
//
// When writing against an explicit target schema, mismatches are handled by
// the mode flags: missing and extra columns by AllowWidening and
// AllowNarrowing, unconvertible values by StrictType and nulls in
// non-nullable fields by StrictNullable. Tolerated mismatches are reported
// as warnings in the Result.
package arrowbridge

import (
	"strings"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/memory"
	"go.uber.org/zap"

	"github.com/ajitpratap0/nebulaframe/pkg/config"
	"github.com/ajitpratap0/nebulaframe/pkg/convert"
	"github.com/ajitpratap0/nebulaframe/pkg/errors"
	"github.com/ajitpratap0/nebulaframe/pkg/frame"
	"github.com/ajitpratap0/nebulaframe/pkg/logger"
)

// Mode selects how schema mismatches are treated.
type Mode string

const (
	ModeLenient Mode = "lenient"
	// ModeStrict fails on any mismatch regardless of the individual flags.
	ModeStrict Mode = "strict"
)

// ParseMode accepts "lenient" or "strict", case-insensitively.
func ParseMode(s string) (Mode, error) {
	switch m := Mode(strings.ToLower(strings.TrimSpace(s))); m {
	case ModeLenient, ModeStrict:
		return m, nil
	case "":
		return ModeLenient, nil
	}
	return "", errors.Newf(errors.ErrorTypeConfig, "unknown arrow mode %q", s)
}

// Options configures conversion in both directions.
type Options struct {
	Mode Mode
	// AllowWidening null-fills target fields the table lacks.
	AllowWidening bool
	// AllowNarrowing drops table columns the target schema lacks.
	AllowNarrowing bool
	// StrictType fails on values that cannot be converted to the field
	// type instead of writing null.
	StrictType bool
	// StrictNullable fails on nulls in non-nullable fields.
	StrictNullable bool

	// Schema is the target schema for writing. Nil infers one from the table.
	Schema *arrow.Schema
	// BatchSize caps the rows per record batch; 0 writes one batch.
	BatchSize int

	Registry  *convert.Registry
	Logger    *zap.Logger
	Allocator memory.Allocator
}

// DefaultOptions is lenient with widening and narrowing allowed.
func DefaultOptions() Options {
	return Options{
		Mode:           ModeLenient,
		AllowWidening:  true,
		AllowNarrowing: true,
	}
}

// FromConfig builds options from the arrow configuration section.
func FromConfig(cfg config.ArrowConfig) (Options, error) {
	mode, err := ParseMode(cfg.Mode)
	if err != nil {
		return Options{}, err
	}
	return Options{
		Mode:           mode,
		AllowWidening:  cfg.AllowWidening,
		AllowNarrowing: cfg.AllowNarrowing,
		StrictType:     cfg.StrictType,
		StrictNullable: cfg.StrictNullable,
		BatchSize:      cfg.BatchSize,
	}, nil
}

// resolve applies ModeStrict and fills defaults.
func (o Options) resolve() Options {
	if o.Mode == ModeStrict {
		o.AllowWidening = false
		o.AllowNarrowing = false
		o.StrictType = true
		o.StrictNullable = true
	}
	if o.Registry == nil {
		o.Registry = convert.DefaultRegistry()
	}
	if o.Logger == nil {
		o.Logger = logger.Get()
	}
	if o.Allocator == nil {
		o.Allocator = memory.NewGoAllocator()
	}
	return o
}

// Result reports the warnings raised by a conversion.
type Result struct {
	Warnings []errors.Warning
}

// session carries the warnings of one conversion. Each distinct warning is
// recorded and logged once even when many rows trigger it.
type session struct {
	opts     Options
	warnings errors.Warnings
	seen     map[errors.Warning]bool
}

func newSession(opts Options) *session {
	return &session{opts: opts.resolve(), seen: make(map[errors.Warning]bool)}
}

func (s *session) warn(errType errors.ErrorType, p frame.Path, msg string) {
	w := errors.Warning{Type: errType, Path: p.String(), Message: msg}
	if s.seen[w] {
		return
	}
	s.seen[w] = true
	s.warnings.Add(errType, w.Path, msg)
	s.opts.Logger.Warn("arrow conversion warning",
		zap.String("type", string(errType)),
		zap.String("path", w.Path),
		zap.String("message", msg))
}

func (s *session) result() Result {
	return Result{Warnings: s.warnings.List()}
}
