package output

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/fatih/color"

	"marketpages/internal/pipeline"
	"marketpages/internal/report"
)

// PrettyRenderer renders execution results in a human-friendly format.
type PrettyRenderer struct {
	out io.Writer
}

// NewPretty creates a PrettyRenderer writing to the provided writer.
func NewPretty(out io.Writer) *PrettyRenderer {
	return &PrettyRenderer{out: out}
}

var (
	passMark = color.New(color.FgGreen).SprintFunc()
	failMark = color.New(color.FgRed).SprintFunc()
	skipMark = color.New(color.FgYellow).SprintFunc()
	dimText  = color.New(color.Faint).SprintFunc()
)

func statusGlyph(status string) string {
	switch status {
	case report.StatusPassed:
		return passMark("✓")
	case report.StatusFailed:
		return failMark("✗")
	default:
		return skipMark("-")
	}
}

// RenderPlan renders the pipeline's trigger and steps without executing.
func (p *PrettyRenderer) RenderPlan(pl pipeline.Pipeline) error {
	if _, err := fmt.Fprintf(p.out, "Pipeline %s %s\n", pl.Name, dimText("("+pl.Path+")")); err != nil {
		return err
	}
	if len(pl.On.Push.Branches) > 0 {
		if _, err := fmt.Fprintf(p.out, "  on: push to %v\n", pl.On.Push.Branches); err != nil {
			return err
		}
	}
	if pl.On.Dispatch {
		if _, err := fmt.Fprintln(p.out, "  on: manual dispatch"); err != nil {
			return err
		}
	}
	for _, step := range pl.Steps {
		detail := step.Run
		if step.Uses != "" {
			detail = "uses " + step.Uses
		}
		suffix := ""
		if step.If != pipeline.CondSuccess {
			suffix = dimText(" [if " + string(step.If) + "]")
		}
		if _, err := fmt.Fprintf(p.out, "  • %s %s%s\n", step.Name, dimText(detail), suffix); err != nil {
			return err
		}
	}
	return nil
}

// RenderResults shows execution outcomes for steps with a summary.
func (p *PrettyRenderer) RenderResults(results []report.StepResult, summary report.Summary) error {
	for _, result := range results {
		line := fmt.Sprintf("%s %s", statusGlyph(result.Status), result.StepName)
		if result.Status != report.StatusSkipped {
			line += dimText(fmt.Sprintf(" (%s)", result.Duration.Truncate(time.Millisecond)))
		}
		if _, err := fmt.Fprintln(p.out, line); err != nil {
			return err
		}
		if result.Status == report.StatusFailed {
			if result.Stderr != "" {
				if err := indent(p.out, result.Stderr); err != nil {
					return err
				}
			} else if result.Stdout != "" {
				if err := indent(p.out, result.Stdout); err != nil {
					return err
				}
			}
		}
	}

	if _, err := fmt.Fprintf(p.out, "\n%d steps: %d passed, %d failed, %d skipped (%s)\n",
		summary.TotalSteps, summary.Passed, summary.Failed, summary.Skipped,
		summary.Duration.Truncate(time.Millisecond)); err != nil {
		return err
	}
	if summary.Cancelled {
		if _, err := fmt.Fprintln(p.out, skipMark("run cancelled")); err != nil {
			return err
		}
	}
	return nil
}

func indent(w io.Writer, text string) error {
	for _, line := range strings.Split(strings.TrimRight(text, "\n"), "\n") {
		if _, err := fmt.Fprintf(w, "    %s\n", line); err != nil {
			return err
		}
	}
	return nil
}
