package main

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"
)

func newPublishCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "publish",
		Short: "Mirror the output directory onto the hosting branch",
		RunE:  runPublish,
	}
	cmd.Flags().String("token", "", "GitHub token for the api backend")
	cmd.Flags().String("message", "", "publish commit message")
	return cmd
}

func runPublish(cmd *cobra.Command, args []string) error {
	cfg, root, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	token, _ := cmd.Flags().GetString("token")
	message, _ := cmd.Flags().GetString("message")
	if message == "" {
		message = "Deploy market dashboard"
	}

	publisher, err := newPublisher(cmd.Context(), root, cfg, publishOptions{
		token:   token,
		verbose: cfg.Verbose,
		logTo:   cmd.ErrOrStderr(),
	})
	if err != nil {
		return err
	}

	outputDir := cfg.OutputDir
	if !filepath.IsAbs(outputDir) {
		outputDir = filepath.Join(root, outputDir)
	}

	result, err := publisher.Publish(cmd.Context(), outputDir, message)
	if err != nil {
		return err
	}

	if result.Committed {
		fmt.Fprintf(cmd.OutOrStdout(), "published %d files to %s (%s)\n", result.Files, result.Branch, shortSHA(result.Commit))
	} else {
		fmt.Fprintf(cmd.OutOrStdout(), "%s already up to date (%s)\n", result.Branch, shortSHA(result.Commit))
	}
	return nil
}
