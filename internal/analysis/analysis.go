// Package analysis turns a Steam Community Market transaction-history
// export into the JSON datasets and static dashboard page served by the
// published site.
package analysis

import (
	"fmt"
	"io"
)

// Options configure an analysis run.
type Options struct {
	// Input is the path to the market-history CSV export.
	Input string
	// OutputDir receives the datasets and dashboard page.
	OutputDir string
	// Game filters rows to one game. Empty keeps everything.
	Game string
	// Year anchors day-month dates that carry no year. Zero means the
	// current year.
	Year int
	// Log receives progress lines. Nil discards them.
	Log io.Writer
}

// Run loads the history, aggregates it, and writes all output files.
func Run(opts Options) (Report, error) {
	log := opts.Log
	if log == nil {
		log = io.Discard
	}

	txs, stats, err := LoadHistory(opts.Input, LoadOptions{Game: opts.Game, Year: opts.Year})
	if err != nil {
		return Report{}, err
	}
	fmt.Fprintf(log, "rows read: %d, matching game: %d, usable: %d\n", stats.Read, stats.GameMatched, stats.Usable)

	report, err := Aggregate(txs)
	if err != nil {
		return Report{}, err
	}
	fmt.Fprintf(log, "items: %d, categories: %d, daily points: %d\n",
		len(report.Summary.ItemDetails), len(report.Bar), len(report.Line))

	if err := WriteDatasets(opts.OutputDir, report, opts.Game); err != nil {
		return Report{}, err
	}
	return report, nil
}
