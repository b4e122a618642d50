package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"marketpages/internal/config"
	"marketpages/internal/output"
	"marketpages/internal/report"
)

func newPlanCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "plan",
		Short: "Show the pipeline's trigger and steps without executing",
		RunE:  runPlan,
	}
}

func runPlan(cmd *cobra.Command, args []string) error {
	cfg, root, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	data, err := loadPipeline(root, cfg)
	if err != nil {
		return err
	}

	filtered, err := applyStepFilters(data, cfg)
	if err != nil {
		return err
	}
	if len(filtered.pipeline.Steps) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "No matching steps")
		return nil
	}

	warnings := collapseWarnings(filtered.warnings)

	switch strings.ToLower(cfg.Format) {
	case config.FormatPretty:
		renderer := output.NewPretty(cmd.OutOrStdout())
		if err := renderer.RenderPlan(filtered.pipeline); err != nil {
			return err
		}
		for _, msg := range warnings {
			fmt.Fprintf(cmd.ErrOrStderr(), "warning: %s\n", msg)
		}
	case config.FormatJSON:
		renderer := output.NewJSON(cmd.OutOrStdout())
		if err := renderer.Render(output.Report{
			Pipeline: filtered.pipeline,
			Summary:  report.Summary{Pipeline: filtered.pipeline.Name, TotalSteps: len(filtered.pipeline.Steps)},
			Warnings: warnings,
		}); err != nil {
			return err
		}
	default:
		return fmt.Errorf("unsupported format %q", cfg.Format)
	}

	return nil
}
