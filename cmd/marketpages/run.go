package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"marketpages/internal/config"
	"marketpages/internal/output"
	"marketpages/internal/pipeline"
	"marketpages/internal/runner"
)

func newRunCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Execute the deployment pipeline",
		RunE:  runExecute,
	}
	flags := cmd.Flags()
	flags.String("event", "dispatch", "trigger event (push|dispatch)")
	flags.String("event-branch", "", "branch the push event refers to")
	flags.Bool("force", false, "run even when the trigger does not match")
	flags.String("token", "", "GitHub token for the api backend")
	flags.String("message", "", "publish commit message")
	return cmd
}

func runExecute(cmd *cobra.Command, args []string) error {
	cfg, root, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	data, err := loadPipeline(root, cfg)
	if err != nil {
		return err
	}

	fires, err := evaluateTrigger(cmd, data.pipeline)
	if err != nil {
		return err
	}
	if !fires {
		fmt.Fprintln(cmd.OutOrStdout(), "Trigger does not match; nothing to do")
		return nil
	}

	filtered, err := applyStepFilters(data, cfg)
	if err != nil {
		return err
	}
	if len(filtered.pipeline.Steps) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "No matching steps")
		return nil
	}

	token, _ := cmd.Flags().GetString("token")
	message, _ := cmd.Flags().GetString("message")
	builtins := newBuiltins(root, cfg, publishOptions{
		token:   token,
		message: message,
		verbose: cfg.Verbose,
		logTo:   cmd.ErrOrStderr(),
	})

	execRunner := runner.New(runner.Options{
		Root:      root,
		Stdout:    cmd.OutOrStdout(),
		Stderr:    cmd.ErrOrStderr(),
		Verbose:   cfg.Verbose,
		DryRun:    cfg.DryRun,
		TailLines: 20,
		Builtins:  builtins,
	})
	results, summary, err := execRunner.Run(cmd.Context(), filtered.pipeline)
	if err != nil {
		return err
	}

	warnings := collapseWarnings(filtered.warnings)

	switch strings.ToLower(cfg.Format) {
	case config.FormatPretty:
		renderer := output.NewPretty(cmd.OutOrStdout())
		if err := renderer.RenderResults(results, summary); err != nil {
			return err
		}
		for _, msg := range warnings {
			fmt.Fprintf(cmd.ErrOrStderr(), "warning: %s\n", msg)
		}
	case config.FormatJSON:
		renderer := output.NewJSON(cmd.OutOrStdout())
		if err := renderer.Render(output.Report{
			Pipeline: filtered.pipeline,
			Steps:    results,
			Summary:  summary,
			Warnings: warnings,
		}); err != nil {
			return err
		}
	default:
		return fmt.Errorf("unsupported format %q", cfg.Format)
	}

	if summary.ExitCode != 0 {
		return fmt.Errorf("one or more steps failed")
	}
	return nil
}

func evaluateTrigger(cmd *cobra.Command, p pipeline.Pipeline) (bool, error) {
	force, _ := cmd.Flags().GetBool("force")
	if force {
		return true, nil
	}

	eventName, _ := cmd.Flags().GetString("event")
	branch, _ := cmd.Flags().GetString("event-branch")

	var ev pipeline.Event
	switch eventName {
	case "push":
		if branch == "" {
			return false, fmt.Errorf("--event push requires --event-branch")
		}
		ev = pipeline.Event{Kind: pipeline.EventPush, Branch: branch}
	case "dispatch":
		ev = pipeline.Event{Kind: pipeline.EventDispatch}
	default:
		return false, fmt.Errorf("unsupported event %q", eventName)
	}

	return p.On.Fires(ev), nil
}
