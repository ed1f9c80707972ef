package pipeline

import (
	"context"
	"fmt"
	"log/slog"
)

// Step is one stage of request processing.
// Steps run in sequence over the same Context.
type Step interface {
	// Do runs the step. A non-nil error stops the pipeline.
	Do(ctx context.Context, pc *Context) error

	// Name returns the step's name for logging and error wrapping.
	Name() string
}

// Pipeline runs its steps in order over one Context.
type Pipeline struct {
	steps  []Step
	logger *slog.Logger
}

// Option is a function that configures a Pipeline.
type Option func(*Pipeline)

// WithLogger sets a custom logger for the pipeline.
// If not set, slog.Default is used.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Pipeline) {
		p.logger = logger
	}
}

// New creates an empty Pipeline.
// Steps should be added using AddStep after creation.
func New(opts ...Option) *Pipeline {
	p := &Pipeline{
		steps: make([]Step, 0),
	}

	for _, opt := range opts {
		opt(p)
	}

	if p.logger == nil {
		p.logger = slog.Default()
	}

	return p
}

// AddStep appends a step to the pipeline.
func (p *Pipeline) AddStep(step Step) {
	p.steps = append(p.steps, step)
}

// AddSteps appends multiple steps to the pipeline.
func (p *Pipeline) AddSteps(steps ...Step) {
	p.steps = append(p.steps, steps...)
}

// Execute runs all steps in sequence.
// Cancellation is checked before each step. The first step error aborts the
// run and is returned wrapped with the step name, so errors.Is and errors.As
// still see the original error.
func (p *Pipeline) Execute(ctx context.Context, pc *Context) error {
	for _, step := range p.steps {
		select {
		case <-ctx.Done():
			p.logger.Debug("pipeline cancelled",
				"step", step.Name(),
				"url", pc.Request.URL(),
				"reason", ctx.Err(),
			)
			return ctx.Err()
		default:
		}

		if err := step.Do(ctx, pc); err != nil {
			p.logger.Debug("step failed",
				"step", step.Name(),
				"url", pc.Request.URL(),
				"error", err,
			)
			return fmt.Errorf("%s: %w", step.Name(), err)
		}
	}

	return nil
}

// StepCount returns the number of steps in the pipeline.
func (p *Pipeline) StepCount() int {
	return len(p.steps)
}

// StepNames returns the names of all steps in execution order.
func (p *Pipeline) StepNames() []string {
	names := make([]string, len(p.steps))
	for i, step := range p.steps {
		names[i] = step.Name()
	}
	return names
}
