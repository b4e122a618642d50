package analysis

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestWriteDatasets(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "output")
	report, err := Aggregate(sampleTransactions())
	if err != nil {
		t.Fatalf("aggregate: %v", err)
	}

	if err := WriteDatasets(dir, report, "Counter-Strike 2"); err != nil {
		t.Fatalf("write: %v", err)
	}

	for _, name := range []string{SummaryFile, BarFile, LineFile, PieFile, IndexFile} {
		if _, err := os.Stat(filepath.Join(dir, name)); err != nil {
			t.Errorf("missing %s: %v", name, err)
		}
	}

	data, err := os.ReadFile(filepath.Join(dir, SummaryFile))
	if err != nil {
		t.Fatal(err)
	}
	var decoded map[string]interface{}
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("summary.json is not valid JSON: %v", err)
	}
	for _, key := range []string{"total_spent", "total_earned", "net_flow", "purchase_count", "sale_count", "most_purchased_item", "highest_transaction", "item_details"} {
		if _, ok := decoded[key]; !ok {
			t.Errorf("summary.json missing key %q", key)
		}
	}

	page, err := os.ReadFile(filepath.Join(dir, IndexFile))
	if err != nil {
		t.Fatal(err)
	}
	html := string(page)
	if !strings.Contains(html, "Counter-Strike 2 Market Transaction Analysis") {
		t.Error("dashboard title missing game name")
	}
	// The page loads its datasets from sibling files.
	for _, name := range []string{SummaryFile, BarFile, LineFile, PieFile} {
		if !strings.Contains(html, `fetch("`+name+`")`) {
			t.Errorf("dashboard does not fetch %s", name)
		}
	}
}

func TestRunEndToEnd(t *testing.T) {
	root := t.TempDir()
	input := filepath.Join(root, "market_history.csv")
	if err := os.WriteFile(input, []byte(sampleHistory), 0o644); err != nil {
		t.Fatal(err)
	}
	outputDir := filepath.Join(root, "output")

	report, err := Run(Options{
		Input:     input,
		OutputDir: outputDir,
		Game:      "Counter-Strike 2",
		Year:      2024,
	})
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if report.Summary.PurchaseCount == 0 {
		t.Fatalf("unexpected summary: %+v", report.Summary)
	}

	entries, err := os.ReadDir(outputDir)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 5 {
		t.Fatalf("expected 5 output files, got %d", len(entries))
	}
}

func TestRunMissingInput(t *testing.T) {
	_, err := Run(Options{
		Input:     filepath.Join(t.TempDir(), "absent.csv"),
		OutputDir: t.TempDir(),
	})
	if err == nil {
		t.Fatal("expected error for missing input")
	}
}
