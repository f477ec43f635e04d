// Package pipeline runs plans: it loads the named input tables, applies a
// sequence of frame operations and writes the result.
//
// # Overview
//
// A plan is a YAML file listing inputs, steps and an output path. Inputs
// and output are JSON documents or Arrow streams, picked by extension, and
// may be compressed (.gz, .zst, .snappy, .lz4, ...).
//
// Every read, step and write is
//   - timed into the Prometheus collector,
//   - wrapped in an OpenTelemetry span,
//   - logged with the run id and step name.
//
// # Basic Usage
//
//	plan, err := pipeline.LoadPlan("plan.yaml")
//	if err != nil {
//	    return err
//	}
//	runner, err := pipeline.NewRunner(cfg, pipeline.WithMetrics(collector))
//	if err != nil {
//	    return err
//	}
//	report, err := runner.Run(ctx, plan)
package pipeline

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/ajitpratap0/nebulaframe/pkg/config"
	"github.com/ajitpratap0/nebulaframe/pkg/convert"
	"github.com/ajitpratap0/nebulaframe/pkg/errors"
	"github.com/ajitpratap0/nebulaframe/pkg/frame"
	"github.com/ajitpratap0/nebulaframe/pkg/logger"
	"github.com/ajitpratap0/nebulaframe/pkg/metrics"
	"github.com/ajitpratap0/nebulaframe/pkg/observability"
)

// Units of work that are not plan steps.
const (
	opRead  = "read"
	opWrite = "write"
)

// Runner executes plans. A Runner holds no per-run state and may run
// several plans concurrently.
type Runner struct {
	cfg      *config.Config
	files    Files
	registry *convert.Registry
	metrics  *metrics.Collector
	tracer   *observability.Tracer
	logger   *zap.Logger
}

// Option customizes a Runner.
type Option func(*Runner)

// WithMetrics records runs and steps into c.
func WithMetrics(c *metrics.Collector) Option {
	return func(r *Runner) { r.metrics = c }
}

// WithTracer traces runs and steps with t.
func WithTracer(t *observability.Tracer) Option {
	return func(r *Runner) { r.tracer = t }
}

// WithLogger overrides the logger.
func WithLogger(l *zap.Logger) Option {
	return func(r *Runner) { r.logger = l }
}

// WithRegistry sets the converter registry used by convert and parse
// steps.
func WithRegistry(reg *convert.Registry) Option {
	return func(r *Runner) { r.registry = reg }
}

// NewRunner creates a runner. A nil cfg uses config.Default. Without
// WithTracer spans are discarded.
func NewRunner(cfg *config.Config, opts ...Option) (*Runner, error) {
	if cfg == nil {
		cfg = config.Default()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	files, err := FilesFromConfig(cfg)
	if err != nil {
		return nil, err
	}

	r := &Runner{cfg: cfg, files: files}
	for _, opt := range opts {
		opt(r)
	}
	if r.logger == nil {
		r.logger = logger.Get()
	}
	if r.tracer == nil {
		if r.tracer, err = observability.New(observability.DefaultConfig()); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// RunFile loads the plan at path and runs it.
func (r *Runner) RunFile(ctx context.Context, path string) (*Report, error) {
	plan, err := LoadPlan(path)
	if err != nil {
		return nil, err
	}
	if plan.Name == "" {
		plan.Name = path
	}
	return r.Run(ctx, plan)
}

// Run executes plan. Inputs are read in name order, then steps run in plan
// order, then the last result is written to the plan output if one is
// set. The report is returned even when the run fails, covering the work
// done so far.
func (r *Runner) Run(ctx context.Context, plan *Plan) (report *Report, err error) {
	if err := plan.Validate(); err != nil {
		return nil, err
	}

	runID := uuid.NewString()
	ctx = logger.ContextWithRun(ctx, runID)
	report = &Report{
		RunID:   runID,
		Plan:    plan.Name,
		Started: time.Now(),
		Inputs:  make(map[string]int, len(plan.Inputs)),
	}
	log := logger.FromContext(ctx, r.logger)
	log.Info("starting plan run",
		zap.String("plan", plan.Name),
		zap.Int("inputs", len(plan.Inputs)),
		zap.Int("steps", len(plan.Steps)))

	done := r.metrics.StartRun()
	ctx, span := r.tracer.Start(ctx, "run")
	span.SetAttribute(observability.AttrRunID, runID)
	defer func() {
		report.Duration = time.Since(report.Started)
		span.Finish(err)
		done(err)
		if err != nil {
			log.Error("plan run failed", zap.Duration("duration", report.Duration), zap.Error(err))
			return
		}
		log.Info("plan run completed",
			zap.Int("rows", report.Rows),
			zap.Int("warnings", len(report.AllWarnings())),
			zap.Duration("duration", report.Duration))
	}()

	in := &instrumentation{runID: runID, metrics: r.metrics, tracer: r.tracer, logger: r.logger}
	index := 0

	tables, err := r.readInputs(ctx, in, &index, plan, report)
	if err != nil {
		return report, err
	}

	env := &stepEnv{
		tables:   tables,
		registry: r.registry,
		defaults: defaults{
			joinType:  r.cfg.Join.Type,
			dropEmpty: r.cfg.Explode.DropEmpty,
		},
	}
	handler := NewErrorHandler(log)

	var current *frame.Table
	if len(plan.Inputs) == 1 {
		for name := range plan.Inputs {
			current = tables[name]
		}
	}
	for i, step := range plan.Steps {
		if err := ctx.Err(); err != nil {
			return report, errors.Wrap(err, errors.ErrorTypeInternal, "plan run cancelled")
		}
		input := current
		if step.Input != "" {
			input = tables[step.Input]
		}
		if current, err = r.runStep(ctx, in, index, i, step, input, env, handler, report); err != nil {
			return report, err
		}
		if step.As != "" {
			tables[step.As] = current
		}
		index++
	}

	if current == nil {
		return report, errors.New(errors.ErrorTypeValidation, "plan has no steps and several inputs")
	}
	report.Rows, report.Columns = current.NumRows(), current.NumColumns()
	if plan.Output != "" {
		if err := r.writeOutput(ctx, in, index, plan.Output, current, report); err != nil {
			return report, err
		}
	}
	return report, nil
}

func (r *Runner) readInputs(ctx context.Context, in *instrumentation, index *int, plan *Plan, report *Report) (map[string]*frame.Table, error) {
	names := make([]string, 0, len(plan.Inputs))
	for name := range plan.Inputs {
		names = append(names, name)
	}
	sort.Strings(names)

	tables := make(map[string]*frame.Table, len(names))
	for _, name := range names {
		path := plan.Inputs[name]
		_, _, err := in.observe(ctx, *index, opRead, func(ctx context.Context, log *zap.Logger) (observation, error) {
			t, warnings, err := r.files.WithLogger(log).Read(path)
			if err != nil {
				return observation{}, err
			}
			tables[name] = t
			report.Inputs[name] = t.NumRows()
			report.Warnings = append(report.Warnings, warnings...)
			log.Debug("read input",
				zap.String("input", name),
				zap.String("path", path),
				zap.String("format", FormatOf(path).String()),
				zap.Int("rows", t.NumRows()))
			return observation{rowsOut: t.NumRows(), warnings: warnings}, nil
		})
		if err != nil {
			return nil, errors.Wrap(err, errorType(err), "failed to read input "+name).WithDetail("path", path)
		}
		*index++
	}
	return tables, nil
}

func (r *Runner) runStep(ctx context.Context, in *instrumentation, index, i int, step Step, input *frame.Table, env *stepEnv, handler *ErrorHandler, report *Report) (*frame.Table, error) {
	sr := StepReport{Index: i, Op: step.Op, Input: step.Input, RowsIn: input.NumRows()}

	var out *frame.Table
	obs, d, err := in.observe(ctx, index, step.Op, func(ctx context.Context, log *zap.Logger) (observation, error) {
		senv := *env
		senv.log = log
		var err error
		out, err = operations[step.Op](input, step, &senv)
		if err != nil {
			return observation{rowsIn: input.NumRows()}, err
		}
		log.Debug("step completed",
			zap.Int("rows_in", input.NumRows()),
			zap.Int("rows_out", out.NumRows()),
			zap.Int("columns", out.NumColumns()))
		return observation{rowsIn: input.NumRows(), rowsOut: out.NumRows()}, nil
	})
	sr.Duration = d
	sr.Warnings = obs.warnings

	if err != nil {
		recovery, w := handler.Handle(i, step, err)
		if recovery == Abort {
			report.Steps = append(report.Steps, sr)
			return nil, StepError(i, step, err)
		}
		in.metrics.Warning(step.Op, string(w.Type))
		sr.Skipped = true
		sr.Warnings = append(sr.Warnings, w)
		out = input
	}
	sr.RowsOut = out.NumRows()
	report.Steps = append(report.Steps, sr)
	return out, nil
}

func (r *Runner) writeOutput(ctx context.Context, in *instrumentation, index int, path string, t *frame.Table, report *Report) error {
	_, _, err := in.observe(ctx, index, opWrite, func(ctx context.Context, log *zap.Logger) (observation, error) {
		warnings, err := r.files.WithLogger(log).Write(path, t)
		if err != nil {
			return observation{rowsIn: t.NumRows()}, err
		}
		report.Output = path
		report.Warnings = append(report.Warnings, warnings...)
		log.Debug("wrote output",
			zap.String("path", path),
			zap.String("format", FormatOf(path).String()),
			zap.Int("rows", t.NumRows()))
		return observation{rowsIn: t.NumRows(), rowsOut: t.NumRows(), warnings: warnings}, nil
	})
	if err != nil {
		return errors.Wrap(err, errorType(err), "failed to write output").WithDetail("path", path)
	}
	return nil
}
