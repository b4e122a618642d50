package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

const workspacePipeline = `name: Deploy market dashboard
on:
  push:
    branches: [main]
  workflow_dispatch:
steps:
  - name: Analyze history
    uses: analyze
  - name: Inspect output
    uses: inspect
`

const workspaceHistory = `Game Name,Acted On,Type,Market Name,Price in Cents
Counter-Strike 2,12 Mar,purchase,Dreams & Nightmares Case,150
Counter-Strike 2,13 Mar,sale,Sticker | Crown (Foil),2500
Counter-Strike 2,14 Mar,bought,AK-47 | Redline,900
`

func scratchWorkspace(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "deploy.yml"), []byte(workspacePipeline), 0o644); err != nil {
		t.Fatalf("write pipeline: %v", err)
	}
	if err := os.MkdirAll(filepath.Join(dir, "input"), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "input", "market_history.csv"), []byte(workspaceHistory), 0o644); err != nil {
		t.Fatalf("write history: %v", err)
	}
	return dir
}

func chdir(t *testing.T, dir string) {
	t.Helper()
	prev, err := os.Getwd()
	if err != nil {
		t.Fatalf("getwd: %v", err)
	}
	if err := os.Chdir(dir); err != nil {
		t.Fatalf("chdir %q: %v", dir, err)
	}
	t.Cleanup(func() {
		if err := os.Chdir(prev); err != nil {
			t.Fatalf("restore dir: %v", err)
		}
	})
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	cmd.SetArgs(args)

	buf := &bytes.Buffer{}
	cmd.SetOut(buf)
	cmd.SetErr(buf)

	err := cmd.Execute()
	return buf.String(), err
}

func TestPlanCommand(t *testing.T) {
	chdir(t, scratchWorkspace(t))

	out, err := execute(t, "plan")
	if err != nil {
		t.Fatalf("command execute: %v\n%s", err, out)
	}
	for _, want := range []string{
		"Deploy market dashboard",
		"on: push to [main]",
		"on: manual dispatch",
		"Analyze history",
		"uses inspect",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("plan output missing %q:\n%s", want, out)
		}
	}
}

func TestRunCommandExecutesPipeline(t *testing.T) {
	dir := scratchWorkspace(t)
	chdir(t, dir)

	out, err := execute(t, "run", "--event", "push", "--event-branch", "main")
	if err != nil {
		t.Fatalf("command execute: %v\n%s", err, out)
	}
	if !strings.Contains(out, "2 steps: 2 passed, 0 failed, 0 skipped") {
		t.Fatalf("unexpected summary:\n%s", out)
	}

	for _, name := range []string{"summary.json", "bar_data.json", "line_data.json", "pie_data.json", "index.html"} {
		if _, err := os.Stat(filepath.Join(dir, "output", name)); err != nil {
			t.Errorf("missing output file %s: %v", name, err)
		}
	}
}

func TestRunCommandTriggerMismatch(t *testing.T) {
	chdir(t, scratchWorkspace(t))

	out, err := execute(t, "run", "--event", "push", "--event-branch", "feature/x")
	if err != nil {
		t.Fatalf("command execute: %v\n%s", err, out)
	}
	if !strings.Contains(out, "Trigger does not match; nothing to do") {
		t.Fatalf("unexpected output:\n%s", out)
	}
}

func TestRunCommandPushRequiresBranch(t *testing.T) {
	chdir(t, scratchWorkspace(t))

	_, err := execute(t, "run", "--event", "push")
	if err == nil || !strings.Contains(err.Error(), "--event-branch") {
		t.Fatalf("expected branch requirement error, got %v", err)
	}
}

func TestRunCommandDryRun(t *testing.T) {
	dir := scratchWorkspace(t)
	chdir(t, dir)

	out, err := execute(t, "run", "--dry-run")
	if err != nil {
		t.Fatalf("command execute: %v\n%s", err, out)
	}
	if !strings.Contains(out, "2 steps: 0 passed, 0 failed, 2 skipped") {
		t.Fatalf("unexpected summary:\n%s", out)
	}
	if _, err := os.Stat(filepath.Join(dir, "output")); !os.IsNotExist(err) {
		t.Fatalf("dry run should not create output: %v", err)
	}
}

func TestRunCommandStepFilter(t *testing.T) {
	chdir(t, scratchWorkspace(t))

	out, err := execute(t, "run", "--only-step", "Analyze")
	if err != nil {
		t.Fatalf("command execute: %v\n%s", err, out)
	}
	if !strings.Contains(out, "1 steps: 1 passed") {
		t.Fatalf("unexpected summary:\n%s", out)
	}
	if strings.Contains(out, "Inspect output") {
		t.Fatalf("filtered step still present:\n%s", out)
	}
}

func TestRunCommandFailurePropagates(t *testing.T) {
	dir := scratchWorkspace(t)
	chdir(t, dir)
	// Remove the history so the analyze builtin fails.
	if err := os.Remove(filepath.Join(dir, "input", "market_history.csv")); err != nil {
		t.Fatal(err)
	}

	out, err := execute(t, "run")
	if err == nil || !strings.Contains(err.Error(), "one or more steps failed") {
		t.Fatalf("expected failure error, got %v\n%s", err, out)
	}
	if !strings.Contains(out, "2 steps: 0 passed, 1 failed, 1 skipped") {
		t.Fatalf("unexpected summary:\n%s", out)
	}
}

func TestRunCommandJSONFormat(t *testing.T) {
	chdir(t, scratchWorkspace(t))

	out, err := execute(t, "run", "--format", "json")
	if err != nil {
		t.Fatalf("command execute: %v\n%s", err, out)
	}
	for _, want := range []string{`"pipeline"`, `"steps"`, `"summary"`} {
		if !strings.Contains(out, want) {
			t.Errorf("json output missing %s:\n%s", want, out)
		}
	}
}

func TestRunCommandMissingPipeline(t *testing.T) {
	chdir(t, t.TempDir())

	_, err := execute(t, "run")
	if err == nil || !strings.Contains(err.Error(), "no pipeline file found") {
		t.Fatalf("expected discovery error, got %v", err)
	}
}
