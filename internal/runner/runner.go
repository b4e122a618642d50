// Package runner executes pipeline steps strictly in order. The first
// failure halts everything downstream except steps whose condition exempts
// them; cancellation halts everything except always() steps.
package runner

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"marketpages/internal/pipeline"
	"marketpages/internal/report"
)

// BuiltinFunc runs a builtin step in-process. The returned string is the
// step's captured output; a non-nil error fails the step.
type BuiltinFunc func(ctx context.Context, step pipeline.Step, log io.Writer) (string, error)

// Options configure how the runner executes steps.
type Options struct {
	Root      string
	Stdout    io.Writer
	Stderr    io.Writer
	Verbose   bool
	DryRun    bool
	TailLines int
	Env       []string
	Now       func() time.Time
	// Builtins maps pipeline uses names to in-process implementations.
	Builtins map[string]BuiltinFunc
}

// Runner executes pipeline steps sequentially.
type Runner struct {
	opts Options
}

// New creates a runner with the supplied options.
func New(opts Options) *Runner {
	if opts.Stdout == nil {
		opts.Stdout = io.Discard
	}
	if opts.Stderr == nil {
		opts.Stderr = io.Discard
	}
	if opts.TailLines <= 0 {
		opts.TailLines = 20
	}
	if opts.Env == nil {
		opts.Env = os.Environ()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Runner{opts: opts}
}

// Run executes the pipeline's steps returning per-step results and a summary.
func (r *Runner) Run(ctx context.Context, p pipeline.Pipeline) ([]report.StepResult, report.Summary, error) {
	summary := report.Summary{Pipeline: p.Name}
	results := make([]report.StepResult, 0, len(p.Steps))

	failed := false
	for _, step := range p.Steps {
		summary.TotalSteps++

		result := report.StepResult{
			StepName: step.Name,
			Uses:     step.Uses,
			Run:      step.Run,
			DryRun:   r.opts.DryRun,
		}

		cancelled := ctx.Err() != nil
		if !shouldRun(step.If, failed, cancelled) {
			result.Status = report.StatusSkipped
			result.Stderr = skipReason(failed, cancelled)
			summary.Skipped++
			results = append(results, result)
			continue
		}

		if r.opts.DryRun {
			result.Status = report.StatusSkipped
			summary.Skipped++
			results = append(results, result)
			continue
		}

		// always() steps still run after cancellation, so give them a
		// context that is not already done.
		stepCtx := ctx
		if step.If == pipeline.CondAlways && cancelled {
			stepCtx = context.WithoutCancel(ctx)
		}

		start := r.opts.Now()
		err := r.runStep(stepCtx, p, step, &result)
		result.Duration = r.opts.Now().Sub(start)
		result.DurationMS = result.Duration.Milliseconds()

		if err != nil {
			failed = true
			result.Status = report.StatusFailed
			result.Stdout = tailLines(result.Stdout, r.opts.TailLines)
			result.Stderr = tailLines(result.Stderr, r.opts.TailLines)
			summary.Failed++
			summary.ExitCode = 1
		} else {
			result.Status = report.StatusPassed
			summary.Passed++
		}

		summary.Duration += result.Duration
		results = append(results, result)
	}

	summary.Cancelled = ctx.Err() != nil
	summary.DurationMS = summary.Duration.Milliseconds()
	return results, summary, nil
}

// shouldRun applies the step condition against the run state.
func shouldRun(cond pipeline.Condition, failed, cancelled bool) bool {
	switch cond {
	case pipeline.CondAlways:
		return true
	case pipeline.CondNotCancelled:
		return !cancelled
	default:
		return !failed && !cancelled
	}
}

func skipReason(failed, cancelled bool) string {
	if cancelled {
		return "skipped: run cancelled"
	}
	if failed {
		return "skipped: earlier step failed"
	}
	return ""
}

func (r *Runner) runStep(ctx context.Context, p pipeline.Pipeline, step pipeline.Step, result *report.StepResult) error {
	if step.Uses != "" {
		return r.runBuiltin(ctx, step, result)
	}
	return r.runShell(ctx, p, step, result)
}

func (r *Runner) runBuiltin(ctx context.Context, step pipeline.Step, result *report.StepResult) error {
	fn, ok := r.opts.Builtins[step.Uses]
	if !ok {
		result.Stderr = fmt.Sprintf("builtin %q is not available", step.Uses)
		result.ExitCode = 127
		return fmt.Errorf("builtin %q is not available", step.Uses)
	}

	log := io.Discard
	if r.opts.Verbose {
		log = r.opts.Stdout
	}
	out, err := fn(ctx, step, log)
	result.Stdout = out
	if err != nil {
		result.Stderr = err.Error()
		result.ExitCode = 1
		return err
	}
	return nil
}
