package inspect

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestDir(t *testing.T) {
	root := t.TempDir()
	files := map[string]string{
		"summary.json":    `{"total_spent": 10}`,
		"index.html":      "<html></html>",
		"nested/pie.json": `[]`,
	}
	for name, contents := range files {
		full := filepath.Join(root, filepath.FromSlash(name))
		if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(full, []byte(contents), 0o644); err != nil {
			t.Fatal(err)
		}
	}

	listing, err := Dir(context.Background(), root)
	if err != nil {
		t.Fatalf("inspect: %v", err)
	}
	if len(listing.Files) != 3 {
		t.Fatalf("expected 3 files, got %d", len(listing.Files))
	}

	// Sorted by slash path.
	wantOrder := []string{"index.html", "nested/pie.json", "summary.json"}
	for i, want := range wantOrder {
		if listing.Files[i].Path != want {
			t.Fatalf("file %d = %q, want %q", i, listing.Files[i].Path, want)
		}
	}

	sum := sha256.Sum256([]byte(files["index.html"]))
	if listing.Files[0].SHA256 != hex.EncodeToString(sum[:]) {
		t.Fatalf("hash mismatch for index.html: %s", listing.Files[0].SHA256)
	}

	var total int64
	for _, f := range listing.Files {
		total += f.Size
	}
	if listing.TotalBytes != total {
		t.Fatalf("total bytes = %d, want %d", listing.TotalBytes, total)
	}
}

func TestDirEmpty(t *testing.T) {
	_, err := Dir(context.Background(), t.TempDir())
	if !errors.Is(err, ErrEmptyDir) {
		t.Fatalf("expected ErrEmptyDir, got %v", err)
	}
}

func TestDirMissing(t *testing.T) {
	_, err := Dir(context.Background(), filepath.Join(t.TempDir(), "absent"))
	if err == nil {
		t.Fatal("expected error for missing directory")
	}
}

func TestRender(t *testing.T) {
	root := t.TempDir()
	if err := os.WriteFile(filepath.Join(root, "a.txt"), []byte("hello"), 0o644); err != nil {
		t.Fatal(err)
	}
	listing, err := Dir(context.Background(), root)
	if err != nil {
		t.Fatal(err)
	}

	var buf bytes.Buffer
	if err := Render(&buf, listing); err != nil {
		t.Fatalf("render: %v", err)
	}
	out := buf.String()
	if !strings.Contains(out, "a.txt") {
		t.Fatalf("listing missing file name: %q", out)
	}
	if !strings.Contains(out, "1 files, 5 bytes total") {
		t.Fatalf("listing missing totals: %q", out)
	}
}
