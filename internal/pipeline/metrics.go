package pipeline

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/ajitpratap0/nebulaframe/pkg/errors"
	"github.com/ajitpratap0/nebulaframe/pkg/logger"
	"github.com/ajitpratap0/nebulaframe/pkg/metrics"
	"github.com/ajitpratap0/nebulaframe/pkg/observability"
)

// instrumentation reports every unit of work of a run to the metrics
// collector, the tracer and the log.
type instrumentation struct {
	runID   string
	metrics *metrics.Collector
	tracer  *observability.Tracer
	logger  *zap.Logger
}

// observation is what a unit of work reports.
type observation struct {
	rowsIn   int
	rowsOut  int
	warnings []errors.Warning
}

// observe runs fn as unit index of the run. The context passed to fn
// carries the run id, the step name and the span.
func (in *instrumentation) observe(ctx context.Context, index int, op string, fn func(context.Context, *zap.Logger) (observation, error)) (observation, time.Duration, error) {
	ctx = logger.ContextWithStep(ctx, op)
	timer := metrics.NewTimer(op)

	var obs observation
	_, err := in.tracer.TraceStep(ctx, in.runID, index, op, func(ctx context.Context) (observability.StepResult, error) {
		log := observability.LoggerWithSpan(ctx, logger.FromContext(ctx, in.logger)).With(zap.Int("index", index))
		var err error
		obs, err = fn(ctx, log)
		return observability.StepResult{
			RowsIn:   obs.rowsIn,
			RowsOut:  obs.rowsOut,
			Warnings: len(obs.warnings),
		}, err
	})

	d := timer.Stop()
	in.metrics.ObserveStep(op, d, obs.rowsIn, obs.rowsOut, err)
	for _, w := range obs.warnings {
		in.metrics.Warning(op, string(w.Type))
	}
	return obs, d, err
}
