package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"marketpages/internal/config"
	"marketpages/internal/pipeline"
)

// pipelineData bundles the parsed pipeline with warnings.
type pipelineData struct {
	pipeline pipeline.Pipeline
	warnings []pipeline.Warning
}

func loadConfig(cmd *cobra.Command) (config.Config, string, error) {
	root, err := os.Getwd()
	if err != nil {
		return config.Config{}, "", fmt.Errorf("determine working directory: %w", err)
	}

	cfg, err := config.Load(root)
	if err != nil {
		return config.Config{}, "", err
	}

	flags, err := gatherFlags(cmd)
	if err != nil {
		return config.Config{}, "", err
	}
	config.ApplyFlags(&cfg, flags)

	return cfg, root, nil
}

func loadPipeline(root string, cfg config.Config) (pipelineData, error) {
	path, err := pipeline.Discover(root, cfg.Pipeline)
	if err != nil {
		if errors.Is(err, pipeline.ErrNoPipeline) {
			return pipelineData{}, fmt.Errorf("no pipeline file found; specify --pipeline or add deploy.yml")
		}
		return pipelineData{}, err
	}

	full := path
	if !filepath.IsAbs(full) {
		full = filepath.Join(root, path)
	}
	p, warnings, err := pipeline.Parse(full, path)
	if err != nil {
		return pipelineData{}, err
	}
	return pipelineData{pipeline: p, warnings: warnings}, nil
}

func applyStepFilters(data pipelineData, cfg config.Config) (pipelineData, error) {
	only, err := pipeline.CompilePatterns(cfg.OnlySteps)
	if err != nil {
		return pipelineData{}, err
	}
	skip, err := pipeline.CompilePatterns(cfg.SkipSteps)
	if err != nil {
		return pipelineData{}, err
	}

	filtered := data.pipeline
	filtered.Steps = pipeline.FilterSteps(data.pipeline.Steps, only, skip)
	return pipelineData{pipeline: filtered, warnings: data.warnings}, nil
}

func collapseWarnings(warnings []pipeline.Warning) []string {
	if len(warnings) == 0 {
		return nil
	}
	out := make([]string, 0, len(warnings))
	for _, w := range warnings {
		if w.Step != "" {
			out = append(out, fmt.Sprintf("%s:%s: %s", w.Pipeline, w.Step, w.Message))
			continue
		}
		out = append(out, fmt.Sprintf("%s: %s", w.Pipeline, w.Message))
	}
	return out
}
