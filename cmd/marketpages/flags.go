package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"marketpages/internal/config"
)

func gatherFlags(cmd *cobra.Command) (config.FlagValues, error) {
	flags := cmd.Flags()
	var values config.FlagValues

	stringFlag := func(name string, dest *config.StringFlag) error {
		if !flags.Changed(name) {
			return nil
		}
		v, err := flags.GetString(name)
		if err != nil {
			return fmt.Errorf("parse --%s: %w", name, err)
		}
		*dest = config.StringFlag{Value: v, Set: true}
		return nil
	}

	for _, f := range []struct {
		name string
		dest *config.StringFlag
	}{
		{"pipeline", &values.Pipeline},
		{"input", &values.Input},
		{"output-dir", &values.OutputDir},
		{"branch", &values.Branch},
		{"remote", &values.Remote},
		{"backend", &values.Backend},
		{"format", &values.Format},
	} {
		if err := stringFlag(f.name, f.dest); err != nil {
			return values, err
		}
	}

	if flags.Changed("only-step") {
		v, err := flags.GetStringArray("only-step")
		if err != nil {
			return values, fmt.Errorf("parse --only-step: %w", err)
		}
		values.OnlySteps = config.SliceFlag{Values: append([]string{}, v...)}
	}

	if flags.Changed("skip-step") {
		v, err := flags.GetStringArray("skip-step")
		if err != nil {
			return values, fmt.Errorf("parse --skip-step: %w", err)
		}
		values.SkipSteps = config.SliceFlag{Values: append([]string{}, v...)}
	}

	if flags.Changed("dry-run") {
		v, err := flags.GetBool("dry-run")
		if err != nil {
			return values, fmt.Errorf("parse --dry-run: %w", err)
		}
		values.DryRun = config.BoolFlag{Value: v, Set: true}
	}

	if flags.Changed("verbose") {
		v, err := flags.GetBool("verbose")
		if err != nil {
			return values, fmt.Errorf("parse --verbose: %w", err)
		}
		values.Verbose = config.BoolFlag{Value: v, Set: true}
	}

	return values, nil
}
