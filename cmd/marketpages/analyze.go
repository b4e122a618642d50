package main

import (
	"fmt"
	"io"
	"path/filepath"

	"github.com/spf13/cobra"

	"marketpages/internal/analysis"
)

func newAnalyzeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "analyze",
		Short: "Run the market-history analysis step on its own",
		RunE:  runAnalyze,
	}
	cmd.Flags().String("game", "", "game name to filter transactions to")
	cmd.Flags().Int("year", 0, "reference year for day-month dates")
	return cmd
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	cfg, root, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if game, _ := cmd.Flags().GetString("game"); game != "" {
		cfg.Game = game
	}
	if year, _ := cmd.Flags().GetInt("year"); year != 0 {
		cfg.Year = year
	}

	input := cfg.Input
	if !filepath.IsAbs(input) {
		input = filepath.Join(root, input)
	}
	outputDir := cfg.OutputDir
	if !filepath.IsAbs(outputDir) {
		outputDir = filepath.Join(root, outputDir)
	}

	var log io.Writer = io.Discard
	if cfg.Verbose {
		log = cmd.ErrOrStderr()
	}

	report, err := analysis.Run(analysis.Options{
		Input:     input,
		OutputDir: outputDir,
		Game:      cfg.Game,
		Year:      cfg.Year,
		Log:       log,
	})
	if err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "analyzed %d purchases and %d sales; wrote %s\n",
		report.Summary.PurchaseCount, report.Summary.SaleCount, cfg.OutputDir)
	return nil
}
