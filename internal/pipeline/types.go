// Package pipeline defines the plan format and the report produced by a run
package pipeline

import (
	"strings"
	"time"

	"github.com/ajitpratap0/nebulaframe/pkg/config"
	"github.com/ajitpratap0/nebulaframe/pkg/errors"
)

// Step operations.
const (
	OpExplode = "explode"
	OpImplode = "implode"
	OpJoin    = "join"
	OpSplit   = "split"
	OpMerge   = "merge"
	OpConvert = "convert"
	OpParse   = "parse"
	OpSelect  = "select"
)

// Split modes.
const (
	SplitColumns = "columns"
	SplitInward  = "inward"
	SplitRows    = "rows"
)

// Plan is a YAML-described run: named inputs, a sequence of steps and an
// output file.
//
//	inputs:
//	  orders: orders.json
//	  customers: customers.arrow.zst
//	steps:
//	  - op: explode
//	    input: orders
//	    columns: [lines]
//	  - op: join
//	    right: customers
//	    on: [customer_id]
//	    type: left
//	output: out.json.gz
type Plan struct {
	Name   string            `yaml:"name" json:"name"`
	Inputs map[string]string `yaml:"inputs" json:"inputs"`
	Steps  []Step            `yaml:"steps" json:"steps"`
	Output string            `yaml:"output" json:"output"`
}

// Step is one operation of a plan. Input names a plan input or the As name
// of an earlier step; empty means the previous step's result.
type Step struct {
	Op    string `yaml:"op" json:"op"`
	Input string `yaml:"input,omitempty" json:"input,omitempty"`
	// As stores the result under a name later steps can refer to.
	As string `yaml:"as,omitempty" json:"as,omitempty"`

	Columns []string `yaml:"columns,omitempty" json:"columns,omitempty"`

	// join
	Right   string   `yaml:"right,omitempty" json:"right,omitempty"`
	On      []string `yaml:"on,omitempty" json:"on,omitempty"`
	RightOn []string `yaml:"right_on,omitempty" json:"right_on,omitempty"`
	Type    string   `yaml:"type,omitempty" json:"type,omitempty"`

	// explode, implode, split
	DropEmpty *bool `yaml:"drop_empty,omitempty" json:"drop_empty,omitempty"`
	DropNulls bool  `yaml:"drop_nulls,omitempty" json:"drop_nulls,omitempty"`

	// split
	Delimiters []string `yaml:"delimiters,omitempty" json:"delimiters,omitempty"`
	Into       []string `yaml:"into,omitempty" json:"into,omitempty"`
	Mode       string   `yaml:"mode,omitempty" json:"mode,omitempty"`
	Trim       bool     `yaml:"trim,omitempty" json:"trim,omitempty"`

	// merge
	Target    string  `yaml:"target,omitempty" json:"target,omitempty"`
	Separator *string `yaml:"separator,omitempty" json:"separator,omitempty"`

	// convert
	To string `yaml:"to,omitempty" json:"to,omitempty"`

	// ContinueOnError passes the input through when the step fails with a
	// recoverable error.
	ContinueOnError bool `yaml:"continue_on_error,omitempty" json:"continue_on_error,omitempty"`
}

// LoadPlan reads and validates a plan file. ${VAR} references are
// replaced with environment values.
func LoadPlan(path string) (*Plan, error) {
	var p Plan
	if err := config.LoadYAML(path, &p); err != nil {
		return nil, err
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return &p, nil
}

// ParsePlan is LoadPlan over an in-memory document.
func ParsePlan(data []byte) (*Plan, error) {
	var p Plan
	if err := config.DecodeYAML(data, &p); err != nil {
		return nil, err
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return &p, nil
}

// Validate checks that every step names a known operation with the
// arguments it needs and that step inputs refer to known tables.
func (p *Plan) Validate() error {
	if len(p.Inputs) == 0 {
		return errors.New(errors.ErrorTypeValidation, "plan has no inputs")
	}
	known := make(map[string]bool, len(p.Inputs))
	for name, path := range p.Inputs {
		if strings.TrimSpace(path) == "" {
			return errors.Newf(errors.ErrorTypeValidation, "input %q has no path", name)
		}
		known[name] = true
	}

	for i, s := range p.Steps {
		fail := func(msg string) error {
			return errors.New(errors.ErrorTypeValidation, msg).
				WithDetail("step", i).
				WithDetail("op", s.Op)
		}
		if i == 0 && s.Input == "" && len(p.Inputs) != 1 {
			return fail("first step must name its input")
		}
		if s.Input != "" && !known[s.Input] {
			return fail("unknown input " + s.Input)
		}

		switch s.Op {
		case OpExplode, OpImplode, OpSelect, OpParse:
		case OpJoin:
			if s.Right == "" || !known[s.Right] {
				return fail("join needs a known right table")
			}
			if len(s.On) == 0 {
				return fail("join needs at least one key")
			}
			if len(s.RightOn) != 0 && len(s.RightOn) != len(s.On) {
				return fail("right_on must pair with on")
			}
		case OpSplit:
			switch s.Mode {
			case "", SplitColumns, SplitInward, SplitRows:
			default:
				return fail("unknown split mode " + s.Mode)
			}
		case OpMerge:
			if s.Target == "" {
				return fail("merge needs a target")
			}
		case OpConvert:
			if s.To == "" {
				return fail("convert needs a target type")
			}
		default:
			return fail("unknown op " + s.Op)
		}

		switch s.Op {
		case OpExplode, OpImplode, OpSelect, OpSplit, OpMerge, OpConvert:
			if len(s.Columns) == 0 {
				return fail(s.Op + " needs columns")
			}
		}
		if s.As != "" {
			known[s.As] = true
		}
	}
	return nil
}

// StepReport describes one executed step.
type StepReport struct {
	Index    int              `json:"index"`
	Op       string           `json:"op"`
	Input    string           `json:"input,omitempty"`
	RowsIn   int              `json:"rows_in"`
	RowsOut  int              `json:"rows_out"`
	Duration time.Duration    `json:"duration"`
	Skipped  bool             `json:"skipped,omitempty"`
	Warnings []errors.Warning `json:"warnings,omitempty"`
}

// Report summarizes a plan run.
type Report struct {
	RunID    string           `json:"run_id"`
	Plan     string           `json:"plan,omitempty"`
	Started  time.Time        `json:"started"`
	Duration time.Duration    `json:"duration"`
	Inputs   map[string]int   `json:"inputs"`
	Steps    []StepReport     `json:"steps"`
	Output   string           `json:"output,omitempty"`
	Rows     int              `json:"rows"`
	Columns  int              `json:"columns"`
	Warnings []errors.Warning `json:"warnings,omitempty"`
}

// AllWarnings returns the run warnings followed by every step's warnings.
func (r *Report) AllWarnings() []errors.Warning {
	out := append([]errors.Warning(nil), r.Warnings...)
	for _, s := range r.Steps {
		out = append(out, s.Warnings...)
	}
	return out
}
