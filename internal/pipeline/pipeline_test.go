package pipeline

import (
	"bytes"
	"testing"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	promtest "github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/ajitpratap0/nebulaframe/pkg/arrowbridge"
	"github.com/ajitpratap0/nebulaframe/pkg/codec"
	"github.com/ajitpratap0/nebulaframe/pkg/config"
	"github.com/ajitpratap0/nebulaframe/pkg/errors"
	"github.com/ajitpratap0/nebulaframe/pkg/frame"
	"github.com/ajitpratap0/nebulaframe/pkg/metrics"
	"github.com/ajitpratap0/nebulaframe/pkg/observability"
	"github.com/ajitpratap0/nebulaframe/pkg/testutil"
)

type RunnerSuite struct {
	testutil.IntegrationTestSuite
}

func TestRunnerSuite(t *testing.T) {
	suite.Run(t, new(RunnerSuite))
}

func (s *RunnerSuite) runner(opts ...Option) *Runner {
	opts = append([]Option{WithLogger(testutil.TestLogger(s.T()))}, opts...)
	r, err := NewRunner(nil, opts...)
	s.Require().NoError(err)
	return r
}

func (s *RunnerSuite) TestExplodeToArrow() {
	in := s.CreateTempFile("explode.json", []byte(`[{"a":1,"b":[10,20]},{"a":2,"b":[30]}]`))
	out := s.Path("explode.arrow.zst")
	plan := &Plan{
		Inputs: map[string]string{"t": in},
		Steps:  []Step{{Op: OpExplode, Columns: []string{"b"}}},
		Output: out,
	}

	report, err := s.runner().Run(s.Context(), plan)
	s.Require().NoError(err)

	_, err = uuid.Parse(report.RunID)
	s.NoError(err)
	s.Equal(map[string]int{"t": 2}, report.Inputs)
	s.Require().Len(report.Steps, 1)
	s.Equal(2, report.Steps[0].RowsIn)
	s.Equal(3, report.Steps[0].RowsOut)
	s.Equal(3, report.Rows)
	s.Equal(out, report.Output)
	s.Empty(report.AllWarnings())

	got, _, err := arrowbridge.ReadFile(out, arrowbridge.DefaultOptions())
	s.Require().NoError(err)
	testutil.RequireTableEqual(s.T(), frame.MustNewTable(
		frame.InferColumn("a", 1, 1, 2),
		frame.InferColumn("b", 10, 20, 30),
	), got)
}

func (s *RunnerSuite) TestInnerJoin() {
	left := s.CreateTempFile("left.json", []byte(`[{"k":1,"a":"p"},{"k":2,"a":"q"}]`))
	right := s.CreateTempFile("right.json.gz", nil)
	s.Require().NoError(codec.WriteFile(right, frame.MustNewTable(
		frame.InferColumn("k", 2, 3),
		frame.InferColumn("b", "r", "s"),
	), codec.DefaultOptions()))
	out := s.Path("joined.json")

	plan := &Plan{
		Inputs: map[string]string{"left": left, "right": right},
		Steps:  []Step{{Op: OpJoin, Input: "left", Right: "right", On: []string{"k"}, Type: "inner"}},
		Output: out,
	}
	report, err := s.runner().Run(s.Context(), plan)
	s.Require().NoError(err)
	s.Equal(map[string]int{"left": 2, "right": 2}, report.Inputs)

	got, err := codec.ReadFile(out, codec.DefaultOptions())
	s.Require().NoError(err)
	testutil.RequireTableEqual(s.T(), frame.MustNewTable(
		frame.InferColumn("k", 2),
		frame.InferColumn("a", "q"),
		frame.InferColumn("b", "r"),
	), got)
}

func (s *RunnerSuite) TestPlanFileWithNamedResults() {
	s.T().Setenv("NEBULAFRAME_TEST_DIR", s.TempDir())
	s.CreateTempFile("people.json", []byte(`[{"name":"Ada Lovelace","n":"1"},{"name":"Alan Turing","n":"2"}]`))
	plan := s.CreateTempFile("plan.yaml", []byte(`
name: people
inputs:
  people: ${NEBULAFRAME_TEST_DIR}/people.json
steps:
  - op: parse
    columns: [n]
    as: parsed
  - op: split
    columns: [name]
    delimiters: [" "]
    into: [first, last]
  - op: select
    columns: [first, n]
    as: firsts
  - op: merge
    input: parsed
    columns: [name, n]
    separator: "#"
    target: tag
output: ${NEBULAFRAME_TEST_DIR}/people.out.json
`))

	report, err := s.runner().RunFile(s.Context(), plan)
	s.Require().NoError(err)
	s.Equal("people", report.Plan)
	s.Require().Len(report.Steps, 4)
	for _, st := range report.Steps {
		s.Equal(2, st.RowsOut, st.Op)
	}
	s.Equal(1, report.Columns)

	got, err := codec.ReadFile(s.Path("people.out.json"), codec.DefaultOptions())
	s.Require().NoError(err)
	s.Equal([]any{"Ada Lovelace#1", "Alan Turing#2"}, testutil.Values(s.T(), got, "tag"))
}

func (s *RunnerSuite) TestContinueOnError() {
	in := s.CreateTempFile("bad.json", []byte(`[{"x":"abc"},{"x":"1"}]`))
	step := Step{Op: OpConvert, Columns: []string{"x"}, To: "int"}

	_, err := s.runner().Run(s.Context(), &Plan{Inputs: map[string]string{"t": in}, Steps: []Step{step}})
	s.Require().Error(err)
	s.True(errors.IsType(err, errors.ErrorTypeTypeMismatch))

	step.ContinueOnError = true
	report, err := s.runner().Run(s.Context(), &Plan{Inputs: map[string]string{"t": in}, Steps: []Step{step}})
	s.Require().NoError(err)
	s.Require().Len(report.Steps, 1)
	s.True(report.Steps[0].Skipped)
	s.Require().Len(report.Steps[0].Warnings, 1)
	s.Equal(errors.ErrorTypeTypeMismatch, report.Steps[0].Warnings[0].Type)
	s.Equal("steps[0].convert", report.Steps[0].Warnings[0].Path)
	s.Equal(2, report.Rows)
}

func (s *RunnerSuite) TestStructuralErrorsAbort() {
	in := s.CreateTempFile("plain.json", []byte(`[{"x":1}]`))
	plan := &Plan{
		Inputs: map[string]string{"t": in},
		Steps:  []Step{{Op: OpExplode, Columns: []string{"missing"}, ContinueOnError: true}},
	}
	report, err := s.runner().Run(s.Context(), plan)
	s.Require().Error(err)
	s.True(errors.IsType(err, errors.ErrorTypeInvalidPath))
	s.Require().NotNil(report)
	s.Len(report.Steps, 1)
}

func (s *RunnerSuite) TestMissingInput() {
	plan := &Plan{
		Inputs: map[string]string{"t": s.Path("nope.json")},
		Steps:  []Step{{Op: OpParse}},
	}
	_, err := s.runner().Run(s.Context(), plan)
	s.True(errors.IsType(err, errors.ErrorTypeFile))
}

func (s *RunnerSuite) TestInstrumentation() {
	in := s.CreateTempFile("inst.json", []byte(`[{"a":1,"b":[10,20]},{"a":2,"b":[30]}]`))
	plan := &Plan{
		Inputs: map[string]string{"t": in},
		Steps:  []Step{{Op: OpExplode, Columns: []string{"b"}}},
		Output: s.Path("inst.arrow"),
	}

	reg := prometheus.NewRegistry()
	collector, err := metrics.NewCollector("test", reg)
	s.Require().NoError(err)

	var spans bytes.Buffer
	tracer, err := observability.New(observability.Config{
		Enabled:      true,
		ServiceName:  "nebulaframe-test",
		SamplingRate: 1,
		Writer:       &spans,
	})
	s.Require().NoError(err)

	log, logs := testutil.ObservedLogger(zapcore.DebugLevel)
	report, err := s.runner(WithMetrics(collector), WithTracer(tracer), WithLogger(log)).Run(s.Context(), plan)
	s.Require().NoError(err)
	s.Require().NoError(tracer.Shutdown(s.Context()))

	count, err := promtest.GatherAndCount(reg, "test_steps_total")
	s.Require().NoError(err)
	s.Equal(3, count) // read, explode, write
	count, err = promtest.GatherAndCount(reg, "test_runs_total")
	s.Require().NoError(err)
	s.Equal(1, count)

	s.Contains(spans.String(), "step.explode")
	s.Contains(spans.String(), report.RunID)

	completed := logs.FilterMessage("step completed").All()
	s.Require().Len(completed, 1)
	fields := completed[0].ContextMap()
	s.Equal(report.RunID, fields["run_id"])
	s.Equal("explode", fields["step"])
	s.Contains(fields, "trace_id")
	s.Equal(1, logs.FilterMessage("plan run completed").Len())
}

func TestPlanValidate(t *testing.T) {
	one := map[string]string{"t": "t.json"}
	two := map[string]string{"l": "l.json", "r": "r.json"}
	tests := []struct {
		name string
		plan Plan
		ok   bool
	}{
		{"no inputs", Plan{}, false},
		{"empty input path", Plan{Inputs: map[string]string{"t": " "}}, false},
		{"inputs only", Plan{Inputs: one}, true},
		{"unknown op", Plan{Inputs: one, Steps: []Step{{Op: "pivot"}}}, false},
		{"explode without columns", Plan{Inputs: one, Steps: []Step{{Op: OpExplode}}}, false},
		{"parse without columns", Plan{Inputs: one, Steps: []Step{{Op: OpParse}}}, true},
		{"first step needs input", Plan{Inputs: two, Steps: []Step{{Op: OpParse}}}, false},
		{"unknown input", Plan{Inputs: one, Steps: []Step{{Op: OpParse, Input: "x"}}}, false},
		{"join", Plan{Inputs: two, Steps: []Step{{Op: OpJoin, Input: "l", Right: "r", On: []string{"k"}}}}, true},
		{"join without keys", Plan{Inputs: two, Steps: []Step{{Op: OpJoin, Input: "l", Right: "r"}}}, false},
		{"join unknown right", Plan{Inputs: two, Steps: []Step{{Op: OpJoin, Input: "l", Right: "x", On: []string{"k"}}}}, false},
		{"unpaired right_on", Plan{Inputs: two, Steps: []Step{{Op: OpJoin, Input: "l", Right: "r", On: []string{"k"}, RightOn: []string{"a", "b"}}}}, false},
		{"bad split mode", Plan{Inputs: one, Steps: []Step{{Op: OpSplit, Columns: []string{"a"}, Mode: "diagonal"}}}, false},
		{"merge without target", Plan{Inputs: one, Steps: []Step{{Op: OpMerge, Columns: []string{"a"}}}}, false},
		{"convert without type", Plan{Inputs: one, Steps: []Step{{Op: OpConvert, Columns: []string{"a"}}}}, false},
		{"named result", Plan{Inputs: one, Steps: []Step{
			{Op: OpParse, As: "p"},
			{Op: OpSelect, Input: "p", Columns: []string{"a"}},
		}}, true},
		{"named result used too early", Plan{Inputs: one, Steps: []Step{
			{Op: OpSelect, Input: "p", Columns: []string{"a"}},
			{Op: OpParse, As: "p"},
		}}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.plan.Validate()
			if tt.ok {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.True(t, errors.IsType(err, errors.ErrorTypeValidation))
		})
	}
}

func TestParsePlan(t *testing.T) {
	t.Setenv("NEBULAFRAME_PLAN_INPUT", "orders.json")
	p, err := ParsePlan([]byte(`
inputs:
  orders: ${NEBULAFRAME_PLAN_INPUT}
steps:
  - op: explode
    columns: [lines]
    drop_empty: false
  - op: merge
    columns: [a, b]
    separator: ""
    target: ab
output: out.arrow
`))
	require.NoError(t, err)
	assert.Equal(t, "orders.json", p.Inputs["orders"])
	require.Len(t, p.Steps, 2)
	require.NotNil(t, p.Steps[0].DropEmpty)
	assert.False(t, p.Steps[0].dropEmpty(true))
	require.NotNil(t, p.Steps[1].Separator)
	assert.Equal(t, "", *p.Steps[1].Separator)

	_, err = ParsePlan([]byte("inputs: [unclosed"))
	assert.True(t, errors.IsType(err, errors.ErrorTypeConfig))
}

func TestFormatOf(t *testing.T) {
	tests := map[string]Format{
		"a.json":      FormatJSON,
		"a.json.gz":   FormatJSON,
		"a":           FormatJSON,
		"a.arrow":     FormatArrow,
		"a.ARROW":     FormatArrow,
		"a.arrow.zst": FormatArrow,
		"dir.arrow/a": FormatJSON,
		"a.ipc.lz4":   FormatArrow,
		"a.arrows.gz": FormatArrow,
	}
	for path, want := range tests {
		assert.Equal(t, want, FormatOf(path), path)
	}
	assert.Equal(t, "arrow", FormatArrow.String())
}

func TestErrorHandler(t *testing.T) {
	h := NewErrorHandler(zap.NewNop())
	mismatch := errors.New(errors.ErrorTypeTypeMismatch, "bad value")
	structural := errors.New(errors.ErrorTypeInvalidPath, "no column")

	rec, _ := h.Handle(0, Step{Op: OpConvert}, mismatch)
	assert.Equal(t, Abort, rec)

	rec, w := h.Handle(1, Step{Op: OpConvert, ContinueOnError: true}, mismatch)
	assert.Equal(t, Skip, rec)
	assert.Equal(t, "steps[1].convert", w.Path)

	rec, _ = h.Handle(2, Step{Op: OpExplode, ContinueOnError: true}, structural)
	assert.Equal(t, Abort, rec)

	failed, recovered := h.Stats()
	assert.Equal(t, 3, failed)
	assert.Equal(t, 1, recovered)

	err := StepError(2, Step{Op: OpExplode}, structural)
	assert.True(t, errors.IsType(err, errors.ErrorTypeInvalidPath))
	assert.Contains(t, err.Error(), "steps[2].explode")
}

func TestNewRunnerRejectsInvalidConfig(t *testing.T) {
	cfg := config.Default()
	cfg.Join.Type = "sideways"
	_, err := NewRunner(cfg)
	assert.True(t, errors.IsType(err, errors.ErrorTypeConfig))
}
