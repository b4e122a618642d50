package artifact

import (
	"archive/tar"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/klauspost/compress/zstd"
)

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

func writeTree(t *testing.T, root string, files map[string]string) {
	t.Helper()
	for name, contents := range files {
		full := filepath.Join(root, filepath.FromSlash(name))
		if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(full, []byte(contents), 0o644); err != nil {
			t.Fatal(err)
		}
	}
}

func TestCaptureAndExtract(t *testing.T) {
	src := t.TempDir()
	dest := t.TempDir()
	files := map[string]string{
		"summary.json":    `{"net_flow": 1.5}`,
		"index.html":      "<html></html>",
		"nested/pie.json": "[]",
	}
	writeTree(t, src, files)

	created := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	manifest, err := Capture(src, dest, Options{
		Name:          "site",
		RetentionDays: 14,
		Now:           fixedClock(created),
	})
	if err != nil {
		t.Fatalf("capture: %v", err)
	}

	if manifest.Name != "site-20240601-120000" {
		t.Fatalf("manifest name = %q", manifest.Name)
	}
	if manifest.Archive != "site-20240601-120000.tar.zst" {
		t.Fatalf("archive name = %q", manifest.Archive)
	}
	if manifest.RetentionDays != 14 {
		t.Fatalf("retention = %d, want 14", manifest.RetentionDays)
	}
	if want := created.AddDate(0, 0, 14); !manifest.ExpiresAt.Equal(want) {
		t.Fatalf("expires = %v, want %v", manifest.ExpiresAt, want)
	}
	if manifest.FileCount != 3 {
		t.Fatalf("file count = %d, want 3", manifest.FileCount)
	}
	if manifest.TotalBytes == 0 {
		t.Fatal("total bytes should be non-zero")
	}
	if _, err := os.Stat(filepath.Join(dest, manifest.Archive)); err != nil {
		t.Fatalf("archive missing: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dest, manifest.Name+".json")); err != nil {
		t.Fatalf("manifest sidecar missing: %v", err)
	}

	restored := t.TempDir()
	if err := Extract(filepath.Join(dest, manifest.Archive), restored); err != nil {
		t.Fatalf("extract: %v", err)
	}
	for name, want := range files {
		got, err := os.ReadFile(filepath.Join(restored, filepath.FromSlash(name)))
		if err != nil {
			t.Fatalf("restored file %q: %v", name, err)
		}
		if string(got) != want {
			t.Fatalf("restored %q = %q, want %q", name, got, want)
		}
	}
}

func TestCaptureDefaults(t *testing.T) {
	src := t.TempDir()
	writeTree(t, src, map[string]string{"a.txt": "a"})

	manifest, err := Capture(src, t.TempDir(), Options{
		Now: fixedClock(time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)),
	})
	if err != nil {
		t.Fatalf("capture: %v", err)
	}
	if manifest.RetentionDays != DefaultRetentionDays {
		t.Fatalf("retention = %d, want %d", manifest.RetentionDays, DefaultRetentionDays)
	}
	if manifest.Name != "output-20240601-000000" {
		t.Fatalf("default name = %q", manifest.Name)
	}
}

func TestPruneRemovesExpired(t *testing.T) {
	src := t.TempDir()
	writeTree(t, src, map[string]string{"a.txt": "a"})
	dest := t.TempDir()

	created := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	expired, err := Capture(src, dest, Options{Name: "old", RetentionDays: 7, Now: fixedClock(created)})
	if err != nil {
		t.Fatal(err)
	}
	fresh, err := Capture(src, dest, Options{Name: "new", RetentionDays: 7, Now: fixedClock(created.AddDate(0, 0, 5))})
	if err != nil {
		t.Fatal(err)
	}

	// Foreign json is left alone.
	foreign := filepath.Join(dest, "notes.json")
	if err := os.WriteFile(foreign, []byte(`{"hello": true}`), 0o644); err != nil {
		t.Fatal(err)
	}

	removed, err := Prune(dest, created.AddDate(0, 0, 8))
	if err != nil {
		t.Fatalf("prune: %v", err)
	}
	if len(removed) != 1 || removed[0] != expired.Name {
		t.Fatalf("removed = %v, want [%s]", removed, expired.Name)
	}
	if _, err := os.Stat(filepath.Join(dest, expired.Archive)); !os.IsNotExist(err) {
		t.Fatalf("expired archive still present: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dest, fresh.Archive)); err != nil {
		t.Fatalf("fresh archive removed: %v", err)
	}
	if _, err := os.Stat(foreign); err != nil {
		t.Fatalf("foreign json removed: %v", err)
	}
}

func TestPruneMissingDir(t *testing.T) {
	removed, err := Prune(filepath.Join(t.TempDir(), "absent"), time.Now())
	if err != nil {
		t.Fatalf("prune: %v", err)
	}
	if removed != nil {
		t.Fatalf("removed = %v, want nil", removed)
	}
}

func TestExtractRejectsTraversal(t *testing.T) {
	archivePath := filepath.Join(t.TempDir(), "evil.tar.zst")
	out, err := os.Create(archivePath)
	if err != nil {
		t.Fatal(err)
	}
	zw, err := zstd.NewWriter(out)
	if err != nil {
		t.Fatal(err)
	}
	tw := tar.NewWriter(zw)
	payload := []byte("owned")
	if err := tw.WriteHeader(&tar.Header{Name: "../escape.txt", Mode: 0o644, Size: int64(len(payload))}); err != nil {
		t.Fatal(err)
	}
	if _, err := tw.Write(payload); err != nil {
		t.Fatal(err)
	}
	if err := tw.Close(); err != nil {
		t.Fatal(err)
	}
	if err := zw.Close(); err != nil {
		t.Fatal(err)
	}
	if err := out.Close(); err != nil {
		t.Fatal(err)
	}

	dest := t.TempDir()
	if err := Extract(archivePath, dest); err == nil {
		t.Fatal("expected error for path traversal entry")
	}
	if _, err := os.Stat(filepath.Join(filepath.Dir(dest), "escape.txt")); err == nil {
		t.Fatal("traversal entry was written outside dest")
	}
}
