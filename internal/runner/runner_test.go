package runner

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"marketpages/internal/pipeline"
	"marketpages/internal/report"
)

func runPipeline(steps ...pipeline.Step) pipeline.Pipeline {
	return pipeline.Pipeline{Name: "test", Steps: steps}
}

func TestRunnerDryRun(t *testing.T) {
	r := New(Options{DryRun: true})
	p := runPipeline(pipeline.Step{Name: "hello", Run: "echo hi"})

	results, summary, err := r.Run(context.Background(), p)
	if err != nil {
		t.Fatalf("runner Run: %v", err)
	}
	if len(results) != 1 {
		t.Fatalf("expected 1 result, got %d", len(results))
	}
	if results[0].Status != report.StatusSkipped || !results[0].DryRun {
		t.Fatalf("expected skipped dry run, got %+v", results[0])
	}
	if summary.Skipped != 1 || summary.TotalSteps != 1 {
		t.Fatalf("unexpected summary: %+v", summary)
	}
}

func TestRunnerShellSuccess(t *testing.T) {
	root := t.TempDir()
	stdout := &bytes.Buffer{}
	r := New(Options{Root: root, Stdout: stdout})
	p := runPipeline(pipeline.Step{Name: "hello", Run: "echo hi"})

	results, summary, err := r.Run(context.Background(), p)
	if err != nil {
		t.Fatalf("runner Run: %v", err)
	}
	if summary.Passed != 1 || summary.ExitCode != 0 {
		t.Fatalf("unexpected summary: %+v", summary)
	}
	if strings.TrimSpace(results[0].Stdout) != "hi" {
		t.Fatalf("expected stdout 'hi', got %q", results[0].Stdout)
	}
}

func TestRunnerFailureHaltsLaterSteps(t *testing.T) {
	root := t.TempDir()
	r := New(Options{Root: root})
	p := runPipeline(
		pipeline.Step{Name: "boom", Run: "exit 3"},
		pipeline.Step{Name: "after", Run: "echo nope"},
	)

	results, summary, err := r.Run(context.Background(), p)
	if err != nil {
		t.Fatalf("runner Run: %v", err)
	}
	if results[0].Status != report.StatusFailed || results[0].ExitCode != 3 {
		t.Fatalf("unexpected failed result: %+v", results[0])
	}
	if results[1].Status != report.StatusSkipped {
		t.Fatalf("later step should be skipped, got %+v", results[1])
	}
	if summary.ExitCode != 1 || summary.Failed != 1 || summary.Skipped != 1 {
		t.Fatalf("unexpected summary: %+v", summary)
	}
}

func TestRunnerNotCancelledStepRunsAfterFailure(t *testing.T) {
	root := t.TempDir()
	r := New(Options{Root: root})
	p := runPipeline(
		pipeline.Step{Name: "boom", Run: "exit 1"},
		pipeline.Step{Name: "capture", Run: "echo captured", If: pipeline.CondNotCancelled},
		pipeline.Step{Name: "publish", Run: "echo published"},
	)

	results, _, err := r.Run(context.Background(), p)
	if err != nil {
		t.Fatalf("runner Run: %v", err)
	}
	if results[1].Status != report.StatusPassed {
		t.Fatalf("exempt step should run after failure, got %+v", results[1])
	}
	if results[2].Status != report.StatusSkipped {
		t.Fatalf("ordinary step should stay skipped, got %+v", results[2])
	}
}

func TestRunnerCancellationSkipsExemptSteps(t *testing.T) {
	root := t.TempDir()
	r := New(Options{Root: root})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	p := runPipeline(
		pipeline.Step{Name: "work", Run: "echo hi"},
		pipeline.Step{Name: "capture", Run: "echo captured", If: pipeline.CondNotCancelled},
		pipeline.Step{Name: "cleanup", Run: "true", If: pipeline.CondAlways},
	)

	results, summary, err := r.Run(ctx, p)
	if err != nil {
		t.Fatalf("runner Run: %v", err)
	}
	if !summary.Cancelled {
		t.Fatal("summary should record cancellation")
	}
	if results[0].Status != report.StatusSkipped {
		t.Fatalf("ordinary step should be skipped on cancel, got %+v", results[0])
	}
	if results[1].Status != report.StatusSkipped {
		t.Fatalf("!cancelled() step should be skipped on cancel, got %+v", results[1])
	}
	if results[2].Status != report.StatusPassed {
		t.Fatalf("always() step should still run, got %+v", results[2])
	}
}

func TestRunnerBuiltinDispatch(t *testing.T) {
	called := false
	builtins := map[string]BuiltinFunc{
		pipeline.UsesAnalyze: func(ctx context.Context, step pipeline.Step, log io.Writer) (string, error) {
			called = true
			return "analyzed\n", nil
		},
	}
	r := New(Options{Builtins: builtins})
	p := runPipeline(pipeline.Step{Name: "analysis", Uses: pipeline.UsesAnalyze})

	results, summary, err := r.Run(context.Background(), p)
	if err != nil {
		t.Fatalf("runner Run: %v", err)
	}
	if !called {
		t.Fatal("builtin was not invoked")
	}
	if summary.Passed != 1 {
		t.Fatalf("unexpected summary: %+v", summary)
	}
	if results[0].Stdout != "analyzed\n" {
		t.Fatalf("builtin output not captured: %+v", results[0])
	}
}

func TestRunnerBuiltinFailure(t *testing.T) {
	builtins := map[string]BuiltinFunc{
		pipeline.UsesAnalyze: func(ctx context.Context, step pipeline.Step, log io.Writer) (string, error) {
			return "", errors.New("no usable rows")
		},
	}
	r := New(Options{Builtins: builtins})
	p := runPipeline(
		pipeline.Step{Name: "analysis", Uses: pipeline.UsesAnalyze},
		pipeline.Step{Name: "publish", Uses: pipeline.UsesPublish},
	)

	results, summary, err := r.Run(context.Background(), p)
	if err != nil {
		t.Fatalf("runner Run: %v", err)
	}
	if results[0].Status != report.StatusFailed {
		t.Fatalf("expected failed builtin, got %+v", results[0])
	}
	if results[1].Status != report.StatusSkipped {
		t.Fatalf("publish must not run after analysis failure, got %+v", results[1])
	}
	if summary.ExitCode != 1 {
		t.Fatalf("unexpected summary: %+v", summary)
	}
}

func TestRunnerUnknownBuiltin(t *testing.T) {
	r := New(Options{})
	p := runPipeline(pipeline.Step{Name: "mystery", Uses: "teleport"})

	results, _, err := r.Run(context.Background(), p)
	if err != nil {
		t.Fatalf("runner Run: %v", err)
	}
	if results[0].Status != report.StatusFailed || results[0].ExitCode != 127 {
		t.Fatalf("unexpected result: %+v", results[0])
	}
}

func TestRunnerStepEnvOverridesPipelineEnv(t *testing.T) {
	root := t.TempDir()
	r := New(Options{Root: root})
	p := pipeline.Pipeline{
		Name: "env",
		Env:  map[string]string{"GREETING": "pipeline"},
		Steps: []pipeline.Step{
			{Name: "inherited", Run: "echo $GREETING"},
			{Name: "overridden", Run: "echo $GREETING", Env: map[string]string{"GREETING": "step"}},
		},
	}

	results, _, err := r.Run(context.Background(), p)
	if err != nil {
		t.Fatalf("runner Run: %v", err)
	}
	if strings.TrimSpace(results[0].Stdout) != "pipeline" {
		t.Fatalf("pipeline env not applied: %q", results[0].Stdout)
	}
	if strings.TrimSpace(results[1].Stdout) != "step" {
		t.Fatalf("step env should win: %q", results[1].Stdout)
	}
}

func TestTailLines(t *testing.T) {
	input := "1\n2\n3\n4\n5\n"
	if got := tailLines(input, 2); got != "4\n5" {
		t.Fatalf("tailLines = %q", got)
	}
	if got := tailLines("short", 10); got != "short" {
		t.Fatalf("tailLines = %q", got)
	}
}
