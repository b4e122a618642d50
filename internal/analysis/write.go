package analysis

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// Dataset file names written under the output directory. The dashboard
// fetches them by these names, so they are part of the published contract.
const (
	SummaryFile = "summary.json"
	BarFile     = "bar_data.json"
	LineFile    = "line_data.json"
	PieFile     = "pie_data.json"
	IndexFile   = "index.html"
)

// WriteDatasets writes the four JSON datasets and the dashboard page into
// dir, creating it when absent.
func WriteDatasets(dir string, report Report, game string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create output dir %q: %w", dir, err)
	}

	files := []struct {
		name string
		data interface{}
	}{
		{SummaryFile, report.Summary},
		{BarFile, report.Bar},
		{LineFile, report.Line},
		{PieFile, report.Pie},
	}
	for _, f := range files {
		if err := writeJSON(filepath.Join(dir, f.name), f.data); err != nil {
			return err
		}
	}

	return writeDashboard(filepath.Join(dir, IndexFile), game)
}

func writeJSON(path string, v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("encode %q: %w", filepath.Base(path), err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write %q: %w", path, err)
	}
	return nil
}
