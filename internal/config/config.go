package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Config captures CLI options sourced from config files or flags.
type Config struct {
	Pipeline string `yaml:"pipeline"`

	Input     string `yaml:"input"`
	OutputDir string `yaml:"output_dir"`
	Game      string `yaml:"game"`
	Year      int    `yaml:"year"`

	Branch  string `yaml:"branch"`
	Remote  string `yaml:"remote"`
	Backend string `yaml:"backend"`
	Owner   string `yaml:"owner"`
	Repo    string `yaml:"repo"`

	ArtifactDir   string `yaml:"artifact_dir"`
	RetentionDays int    `yaml:"retention_days"`

	OnlySteps []string `yaml:"only_step"`
	SkipSteps []string `yaml:"skip_step"`

	DryRun  bool   `yaml:"dry_run"`
	Verbose bool   `yaml:"verbose"`
	Format  string `yaml:"format"`
}

const (
	// BackendGit publishes through the local git executable.
	BackendGit = "git"
	// BackendAPI publishes through the GitHub REST API.
	BackendAPI = "api"

	// FormatPretty renders human readable output.
	FormatPretty = "pretty"
	// FormatJSON renders machine readable output.
	FormatJSON = "json"
)

// Default returns the baseline configuration used when no flags or config file specify values.
func Default() Config {
	return Config{
		Input:         filepath.Join("input", "market_history.csv"),
		OutputDir:     "output",
		Game:          "Counter-Strike 2",
		Branch:        "gh-pages",
		Remote:        "origin",
		Backend:       BackendGit,
		ArtifactDir:   ".marketpages/artifacts",
		RetentionDays: 30,
		Format:        FormatPretty,
	}
}

// Load reads .marketpages.yml from the repository root when present. Missing files are ignored.
func Load(root string) (Config, error) {
	cfg := Default()
	path := filepath.Join(root, ".marketpages.yml")
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("read config %q: %w", path, err)
	}

	var fileCfg Config
	if err := yaml.Unmarshal(data, &fileCfg); err != nil {
		return cfg, fmt.Errorf("parse config %q: %w", path, err)
	}

	cfg = merge(cfg, fileCfg)
	return cfg, nil
}

func merge(base, override Config) Config {
	out := base

	if override.Pipeline != "" {
		out.Pipeline = override.Pipeline
	}
	if override.Input != "" {
		out.Input = override.Input
	}
	if override.OutputDir != "" {
		out.OutputDir = override.OutputDir
	}
	if override.Game != "" {
		out.Game = override.Game
	}
	if override.Year != 0 {
		out.Year = override.Year
	}
	if override.Branch != "" {
		out.Branch = override.Branch
	}
	if override.Remote != "" {
		out.Remote = override.Remote
	}
	if override.Backend != "" {
		out.Backend = override.Backend
	}
	if override.Owner != "" {
		out.Owner = override.Owner
	}
	if override.Repo != "" {
		out.Repo = override.Repo
	}
	if override.ArtifactDir != "" {
		out.ArtifactDir = override.ArtifactDir
	}
	if override.RetentionDays != 0 {
		out.RetentionDays = override.RetentionDays
	}
	if len(override.OnlySteps) > 0 {
		out.OnlySteps = append([]string{}, override.OnlySteps...)
	}
	if len(override.SkipSteps) > 0 {
		out.SkipSteps = append([]string{}, override.SkipSteps...)
	}
	if override.Format != "" {
		out.Format = override.Format
	}
	if override.DryRun {
		out.DryRun = true
	}
	if override.Verbose {
		out.Verbose = true
	}

	return out
}

// ApplyFlags mutates cfg by applying values from CLI flags when they are present.
func ApplyFlags(cfg *Config, flags FlagValues) {
	if flags.Pipeline.Set {
		cfg.Pipeline = flags.Pipeline.Value
	}
	if flags.Input.Set {
		cfg.Input = flags.Input.Value
	}
	if flags.OutputDir.Set {
		cfg.OutputDir = flags.OutputDir.Value
	}
	if flags.Branch.Set {
		cfg.Branch = flags.Branch.Value
	}
	if flags.Remote.Set {
		cfg.Remote = flags.Remote.Value
	}
	if flags.Backend.Set {
		cfg.Backend = flags.Backend.Value
	}
	if len(flags.OnlySteps.Values) > 0 {
		cfg.OnlySteps = append([]string{}, flags.OnlySteps.Values...)
	}
	if len(flags.SkipSteps.Values) > 0 {
		cfg.SkipSteps = append([]string{}, flags.SkipSteps.Values...)
	}
	if flags.Format.Set {
		cfg.Format = flags.Format.Value
	}
	if flags.DryRun.Set {
		cfg.DryRun = flags.DryRun.Value
	}
	if flags.Verbose.Set {
		cfg.Verbose = flags.Verbose.Value
	}
}

// FlagValues captures CLI flag state with knowledge of whether each flag was set explicitly.
type FlagValues struct {
	Pipeline  StringFlag
	Input     StringFlag
	OutputDir StringFlag
	Branch    StringFlag
	Remote    StringFlag
	Backend   StringFlag
	OnlySteps SliceFlag
	SkipSteps SliceFlag
	Format    StringFlag
	DryRun    BoolFlag
	Verbose   BoolFlag
}

// StringFlag represents a string flag and whether it was set.
type StringFlag struct {
	Value string
	Set   bool
}

// SliceFlag represents a slice flag and whether it captured values via CLI.
type SliceFlag struct {
	Values []string
}

// BoolFlag represents a bool flag and whether it was set.
type BoolFlag struct {
	Value bool
	Set   bool
}
