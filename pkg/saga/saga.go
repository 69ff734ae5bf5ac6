package saga

import (
	"context"
	"fmt"

	"tienda/pkg/logger"

	"go.uber.org/multierr"
)

// Step is a single unit of work. Compensate undoes a successful Execute.
type Step interface {
	Name() string
	Execute(ctx context.Context) error
	Compensate(ctx context.Context) error
}

// Func adapts a pair of closures to Step. A nil Undo means nothing to compensate.
type Func struct {
	StepName string
	Do       func(ctx context.Context) error
	Undo     func(ctx context.Context) error
}

func (f Func) Name() string { return f.StepName }

func (f Func) Execute(ctx context.Context) error { return f.Do(ctx) }

func (f Func) Compensate(ctx context.Context) error {
	if f.Undo == nil {
		return nil
	}
	return f.Undo(ctx)
}

// Orchestrator runs steps in order and compensates completed ones, last first,
// when a later step fails.
type Orchestrator struct {
	steps []Step
	log   *logger.Logger
}

func NewOrchestrator(log *logger.Logger, steps ...Step) *Orchestrator {
	if log == nil {
		log = logger.Nop()
	}
	return &Orchestrator{steps: steps, log: log}
}

// Run returns the failing step's error. Compensation failures are appended to it.
func (o *Orchestrator) Run(ctx context.Context) error {
	done := make([]Step, 0, len(o.steps))
	for _, step := range o.steps {
		stepCtx := o.log.WithField(ctx, "saga_step", step.Name())
		o.log.Debug(stepCtx, "executing saga step")
		if err := step.Execute(ctx); err != nil {
			o.log.Warn(stepCtx, "saga step failed, compensating", err)
			return multierr.Append(err, o.rollback(ctx, done))
		}
		done = append(done, step)
	}
	return nil
}

func (o *Orchestrator) rollback(ctx context.Context, done []Step) error {
	var errs error
	for i := len(done) - 1; i >= 0; i-- {
		step := done[i]
		if err := step.Compensate(ctx); err != nil {
			o.log.Error(o.log.WithField(ctx, "saga_step", step.Name()), "compensation failed", err)
			errs = multierr.Append(errs, fmt.Errorf("compensate %s: %w", step.Name(), err))
		}
	}
	return errs
}
