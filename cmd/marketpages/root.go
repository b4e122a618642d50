package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "marketpages",
		Short:         "Marketpages analyzes Steam market history and deploys the dashboard",
		SilenceErrors: true,
		SilenceUsage:  true,
	}

	persistent := cmd.PersistentFlags()
	persistent.String("pipeline", "", "pipeline file to use (default deploy.yml)")
	persistent.String("input", "", "market history CSV path")
	persistent.String("output-dir", "", "directory receiving the generated site")
	persistent.String("branch", "", "hosting branch to publish to")
	persistent.String("remote", "", "git remote to push to")
	persistent.String("backend", "", "publish backend (git|api)")
	persistent.StringArray("only-step", nil, "include only matching steps")
	persistent.StringArray("skip-step", nil, "exclude matching steps")
	persistent.Bool("dry-run", false, "print steps without executing them")
	persistent.BoolP("verbose", "v", false, "stream step output in real time")
	persistent.String("format", "", "output format (pretty|json)")

	cmd.AddCommand(newRunCmd())
	cmd.AddCommand(newPlanCmd())
	cmd.AddCommand(newAnalyzeCmd())
	cmd.AddCommand(newPublishCmd())
	cmd.AddCommand(newVersionCmd())

	return cmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "marketpages %s\n", buildVersion)
		},
	}
}
