package main

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"path/filepath"
	"time"

	"marketpages/internal/analysis"
	"marketpages/internal/artifact"
	"marketpages/internal/config"
	"marketpages/internal/inspect"
	"marketpages/internal/pipeline"
	"marketpages/internal/publish"
	"marketpages/internal/runner"
)

// publishOptions carry run-time publish settings that never live in the
// config file.
type publishOptions struct {
	token   string
	message string
	verbose bool
	logTo   io.Writer
}

// newBuiltins wires the in-process step implementations the runner
// dispatches to.
func newBuiltins(root string, cfg config.Config, pub publishOptions) map[string]runner.BuiltinFunc {
	outputDir := cfg.OutputDir
	if !filepath.IsAbs(outputDir) {
		outputDir = filepath.Join(root, outputDir)
	}
	artifactDir := cfg.ArtifactDir
	if !filepath.IsAbs(artifactDir) {
		artifactDir = filepath.Join(root, artifactDir)
	}

	return map[string]runner.BuiltinFunc{
		pipeline.UsesAnalyze: func(ctx context.Context, step pipeline.Step, log io.Writer) (string, error) {
			var buf bytes.Buffer
			input := cfg.Input
			if !filepath.IsAbs(input) {
				input = filepath.Join(root, input)
			}
			report, err := analysis.Run(analysis.Options{
				Input:     input,
				OutputDir: outputDir,
				Game:      cfg.Game,
				Year:      cfg.Year,
				Log:       io.MultiWriter(&buf, log),
			})
			if err != nil {
				return buf.String(), err
			}
			fmt.Fprintf(&buf, "analyzed %d purchases and %d sales into %s\n",
				report.Summary.PurchaseCount, report.Summary.SaleCount, cfg.OutputDir)
			return buf.String(), nil
		},

		pipeline.UsesInspect: func(ctx context.Context, step pipeline.Step, log io.Writer) (string, error) {
			listing, err := inspect.Dir(ctx, outputDir)
			if err != nil {
				return "", err
			}
			var buf bytes.Buffer
			if err := inspect.Render(&buf, listing); err != nil {
				return buf.String(), err
			}
			return buf.String(), nil
		},

		pipeline.UsesArtifact: func(ctx context.Context, step pipeline.Step, log io.Writer) (string, error) {
			var buf bytes.Buffer
			retention := step.RetentionDays
			if retention <= 0 {
				retention = cfg.RetentionDays
			}
			manifest, err := artifact.Capture(outputDir, artifactDir, artifact.Options{
				Name:          "site",
				RetentionDays: retention,
			})
			if err != nil {
				return buf.String(), err
			}
			fmt.Fprintf(&buf, "captured %s (%d files, %d bytes, kept %d days)\n",
				manifest.Archive, manifest.FileCount, manifest.TotalBytes, manifest.RetentionDays)

			removed, err := artifact.Prune(artifactDir, time.Now().UTC())
			if err != nil {
				return buf.String(), err
			}
			for _, name := range removed {
				fmt.Fprintf(&buf, "pruned expired artifact %s\n", name)
			}
			return buf.String(), nil
		},

		pipeline.UsesPublish: func(ctx context.Context, step pipeline.Step, log io.Writer) (string, error) {
			publisher, err := newPublisher(ctx, root, cfg, pub)
			if err != nil {
				return "", err
			}
			message := pub.message
			if message == "" {
				message = "Deploy market dashboard"
			}
			result, err := publisher.Publish(ctx, outputDir, message)
			if err != nil {
				return "", err
			}
			var buf bytes.Buffer
			if result.Committed {
				fmt.Fprintf(&buf, "published %d files to %s (%s)\n", result.Files, result.Branch, shortSHA(result.Commit))
			} else {
				fmt.Fprintf(&buf, "%s already up to date (%s)\n", result.Branch, shortSHA(result.Commit))
			}
			return buf.String(), nil
		},
	}
}

func newPublisher(ctx context.Context, root string, cfg config.Config, pub publishOptions) (publish.Publisher, error) {
	switch cfg.Backend {
	case config.BackendGit:
		return &publish.GitPublisher{
			RepoDir: root,
			Remote:  cfg.Remote,
			Branch:  cfg.Branch,
			Log:     pub.logTo,
		}, nil
	case config.BackendAPI:
		token, _, err := publish.ResolveAuthToken(ctx, pub.token)
		if err != nil {
			return nil, err
		}
		var opts []publish.APIOption
		if pub.verbose {
			opts = append(opts, publish.WithVerbose(true, pub.logTo))
		}
		return publish.NewAPIPublisher(ctx, token, cfg.Owner, cfg.Repo, cfg.Branch, opts...)
	default:
		return nil, fmt.Errorf("unsupported publish backend %q", cfg.Backend)
	}
}

func shortSHA(sha string) string {
	if len(sha) > 12 {
		return sha[:12]
	}
	return sha
}
