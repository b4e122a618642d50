package pipeline

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// Parse reads the pipeline file at path and produces a Pipeline plus
// non-fatal warnings. displayPath is used in messages; when empty, path is
// used.
func Parse(path, displayPath string) (Pipeline, []Warning, error) {
	if displayPath == "" {
		displayPath = path
	}
	f, err := os.Open(path)
	if err != nil {
		return Pipeline{}, nil, fmt.Errorf("open pipeline %q: %w", displayPath, err)
	}
	defer f.Close()
	return Decode(f, displayPath)
}

// Decode parses pipeline YAML from r.
func Decode(r io.Reader, displayPath string) (Pipeline, []Warning, error) {
	decoder := yaml.NewDecoder(r)

	var doc pipelineDocument
	if err := decoder.Decode(&doc); err != nil {
		return Pipeline{}, nil, fmt.Errorf("parse pipeline %q: %w", displayPath, err)
	}

	p := Pipeline{
		Path: displayPath,
		Name: doc.Name,
		Env:  convertEnv(doc.Env),
		On: Trigger{
			Push:     PushTrigger{Branches: append([]string{}, doc.On.Push.Branches...)},
			Dispatch: doc.On.Dispatch.Kind != 0,
		},
		Permissions: Permissions{
			Contents: doc.Permissions.Contents,
			IDToken:  doc.Permissions.IDToken,
			Pages:    doc.Permissions.Pages,
		},
		Defaults: Defaults{
			RunShell:         doc.Defaults.Run.Shell,
			WorkingDirectory: doc.Defaults.Run.WorkingDirectory,
		},
	}

	if p.Name == "" {
		p.Name = filepath.Base(displayPath)
	}

	warnings := make([]Warning, 0)

	p.Steps = make([]Step, 0, len(doc.Steps))
	for idx, stepDoc := range doc.Steps {
		step := Step{
			Name:             stepDoc.Name,
			Uses:             strings.TrimSpace(stepDoc.Uses),
			Run:              stepDoc.Run,
			Shell:            stepDoc.Shell,
			WorkingDirectory: stepDoc.WorkingDirectory,
			Env:              convertEnv(stepDoc.Env),
			RetentionDays:    stepDoc.RetentionDays,
		}
		if step.Name == "" {
			step.Name = fmt.Sprintf("step %d", idx+1)
		}

		cond, ok := parseCondition(stepDoc.If)
		if !ok {
			warnings = append(warnings, Warning{
				Pipeline: displayPath,
				Step:     step.Name,
				Message:  fmt.Sprintf("unsupported if condition %q; treating as success()", stepDoc.If),
			})
		}
		step.If = cond

		switch {
		case step.Uses != "" && step.Run != "":
			return Pipeline{}, nil, fmt.Errorf("pipeline %q: step %q sets both uses and run", displayPath, step.Name)
		case step.Uses == "" && step.Run == "":
			return Pipeline{}, nil, fmt.Errorf("pipeline %q: step %q sets neither uses nor run", displayPath, step.Name)
		case step.Uses != "" && !KnownBuiltin(step.Uses):
			warnings = append(warnings, Warning{
				Pipeline: displayPath,
				Step:     step.Name,
				Message:  fmt.Sprintf("unknown builtin %q; step will be skipped", step.Uses),
			})
		}

		if step.RetentionDays != 0 && step.Uses != UsesArtifact {
			warnings = append(warnings, Warning{
				Pipeline: displayPath,
				Step:     step.Name,
				Message:  "retention-days only applies to artifact steps",
			})
		}

		p.Steps = append(p.Steps, step)
	}

	if len(p.Steps) == 0 {
		return Pipeline{}, nil, fmt.Errorf("pipeline %q: no steps defined", displayPath)
	}

	return p, warnings, nil
}

func parseCondition(raw string) (Condition, bool) {
	switch strings.ReplaceAll(strings.TrimSpace(raw), " ", "") {
	case "", "success()":
		return CondSuccess, true
	case "!cancelled()", "!canceled()":
		return CondNotCancelled, true
	case "always()":
		return CondAlways, true
	default:
		return CondSuccess, false
	}
}

type pipelineDocument struct {
	Name        string                 `yaml:"name"`
	On          triggerDocument        `yaml:"on"`
	Permissions permissionsDocument    `yaml:"permissions"`
	Env         map[string]interface{} `yaml:"env"`
	Defaults    defaultsDocument       `yaml:"defaults"`
	Steps       []stepDocument         `yaml:"steps"`
}

type triggerDocument struct {
	Push pushDocument `yaml:"push"`
	// Dispatch is a raw node so a bare `workflow_dispatch:` key still
	// counts as present even though its value is null.
	Dispatch yaml.Node `yaml:"workflow_dispatch"`
}

type pushDocument struct {
	Branches []string `yaml:"branches"`
}

type permissionsDocument struct {
	Contents string `yaml:"contents"`
	IDToken  string `yaml:"id-token"`
	Pages    string `yaml:"pages"`
}

type defaultsDocument struct {
	Run runDefaults `yaml:"run"`
}

type runDefaults struct {
	Shell            string `yaml:"shell"`
	WorkingDirectory string `yaml:"working-directory"`
}

type stepDocument struct {
	Name             string                 `yaml:"name"`
	Uses             string                 `yaml:"uses"`
	Run              string                 `yaml:"run"`
	Shell            string                 `yaml:"shell"`
	WorkingDirectory string                 `yaml:"working-directory"`
	Env              map[string]interface{} `yaml:"env"`
	If               string                 `yaml:"if"`
	RetentionDays    int                    `yaml:"retention-days"`
}

func convertEnv(input map[string]interface{}) map[string]string {
	if len(input) == 0 {
		return nil
	}
	out := make(map[string]string, len(input))
	keys := make([]string, 0, len(input))
	for k := range input {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		out[k] = fmt.Sprint(input[k])
	}
	return out
}
