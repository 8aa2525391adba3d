// Package saga runs ordered steps and undoes completed ones when a later step fails.
package saga

import (
	"context"
	"fmt"

	"go.uber.org/multierr"
)

// Step is one forward action with an optional compensation.
type Step struct {
	Name       string
	Action     func(ctx context.Context) error
	Compensate func(ctx context.Context) error
}

// StepError reports which step failed and what compensation left behind.
type StepError struct {
	Step string
	Err  error
	// CompensationErr aggregates every compensation that failed, nil when rollback was clean.
	CompensationErr error
	// Compensated lists the steps undone, in the order they ran.
	Compensated []string
}

func (e *StepError) Error() string {
	if e.CompensationErr != nil {
		return fmt.Sprintf("saga step %q failed: %v (compensation: %v)", e.Step, e.Err, e.CompensationErr)
	}
	return fmt.Sprintf("saga step %q failed: %v", e.Step, e.Err)
}

func (e *StepError) Unwrap() error {
	return e.Err
}

// Saga executes steps sequentially.
type Saga struct {
	steps []Step
}

func New(steps ...Step) *Saga {
	return &Saga{steps: steps}
}

// Add appends a step and returns the saga for chaining.
func (s *Saga) Add(step Step) *Saga {
	s.steps = append(s.steps, step)
	return s
}

// Run executes every step. On the first failure, completed steps are compensated in
// reverse order and a *StepError is returned. Compensation runs on a context that
// ignores cancellation of ctx so a cancelled request still cleans up.
func (s *Saga) Run(ctx context.Context) error {
	completed := make([]Step, 0, len(s.steps))
	for _, step := range s.steps {
		if err := ctx.Err(); err != nil {
			return s.fail(ctx, step.Name, err, completed)
		}
		if err := step.Action(ctx); err != nil {
			return s.fail(ctx, step.Name, err, completed)
		}
		completed = append(completed, step)
	}
	return nil
}

func (s *Saga) fail(ctx context.Context, name string, cause error, completed []Step) error {
	compCtx := context.WithoutCancel(ctx)
	stepErr := &StepError{Step: name, Err: cause}
	for i := len(completed) - 1; i >= 0; i-- {
		step := completed[i]
		if step.Compensate == nil {
			continue
		}
		if err := step.Compensate(compCtx); err != nil {
			stepErr.CompensationErr = multierr.Append(stepErr.CompensationErr, fmt.Errorf("compensate %s: %w", step.Name, err))
			continue
		}
		stepErr.Compensated = append(stepErr.Compensated, step.Name)
	}
	return stepErr
}
