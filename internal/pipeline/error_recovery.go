package pipeline

import (
	stderrors "errors"
	"strconv"

	"go.uber.org/zap"

	"github.com/ajitpratap0/nebulaframe/pkg/errors"
)

// Recovery is what the runner does with a failed step.
type Recovery int

const (
	// Abort stops the run.
	Abort Recovery = iota
	// Skip passes the step input through unchanged and records a warning.
	Skip
)

func (r Recovery) String() string {
	if r == Skip {
		return "skip"
	}
	return "abort"
}

// ErrorHandler decides how the runner reacts to step errors.
type ErrorHandler struct {
	logger *zap.Logger

	failed    int
	recovered int
}

// NewErrorHandler creates a handler logging to logger.
func NewErrorHandler(logger *zap.Logger) *ErrorHandler {
	return &ErrorHandler{logger: logger.With(zap.String("component", "error_handler"))}
}

// Handle classifies err raised by step. Only recoverable errors of steps
// that opted in with continue_on_error are skipped; structural errors
// always abort.
func (h *ErrorHandler) Handle(index int, step Step, err error) (Recovery, errors.Warning) {
	h.failed++
	if !step.ContinueOnError || !errors.IsRecoverable(err) {
		h.logger.Error("step failed",
			zap.Int("step", index),
			zap.String("op", step.Op),
			zap.String("error_type", string(errorType(err))),
			zap.Error(err))
		return Abort, errors.Warning{}
	}

	h.recovered++
	w := errors.Warning{
		Type:    errorType(err),
		Path:    stepPath(index, step),
		Message: "step skipped: " + err.Error(),
	}
	h.logger.Warn("step skipped after recoverable error",
		zap.Int("step", index),
		zap.String("op", step.Op),
		zap.Error(err))
	return Skip, w
}

// Stats returns the number of failed steps and how many of them were
// skipped.
func (h *ErrorHandler) Stats() (failed, recovered int) {
	return h.failed, h.recovered
}

// StepError wraps the error of the step that aborted a run.
func StepError(index int, step Step, err error) error {
	t := errorType(err)
	return errors.Wrap(err, t, "step "+stepPath(index, step)+" failed").
		WithDetail("step", index).
		WithDetail("op", step.Op)
}

func errorType(err error) errors.ErrorType {
	var e *errors.Error
	if stderrors.As(err, &e) {
		return e.Type
	}
	return errors.ErrorTypeInternal
}

func stepPath(index int, step Step) string {
	return "steps[" + strconv.Itoa(index) + "]." + step.Op
}
