// Package artifact captures point-in-time snapshots of the output
// directory as zstd-compressed tar archives with a retention window.
package artifact

import (
	"archive/tar"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/klauspost/compress/zstd"
)

// DefaultRetentionDays applies when a capture does not name its own window.
const DefaultRetentionDays = 30

// Suffixes of the files a capture produces.
const (
	archiveSuffix  = ".tar.zst"
	manifestSuffix = ".json"
)

// Manifest is the sidecar record written next to every archive.
type Manifest struct {
	Name          string    `json:"name"`
	Archive       string    `json:"archive"`
	CreatedAt     time.Time `json:"created_at"`
	ExpiresAt     time.Time `json:"expires_at"`
	RetentionDays int       `json:"retention_days"`
	FileCount     int       `json:"file_count"`
	TotalBytes    int64     `json:"total_bytes"`
}

// Options configure a capture.
type Options struct {
	// Name prefixes the archive file name.
	Name string
	// RetentionDays bounds how long the artifact is kept. Zero means
	// DefaultRetentionDays.
	RetentionDays int
	// Now overrides the clock in tests.
	Now func() time.Time
}

// Capture archives srcDir into destDir and writes the manifest. Entries
// are added in sorted path order so identical trees produce identical
// archive layouts.
func Capture(srcDir, destDir string, opts Options) (Manifest, error) {
	if opts.Name == "" {
		opts.Name = "output"
	}
	if opts.RetentionDays <= 0 {
		opts.RetentionDays = DefaultRetentionDays
	}
	now := time.Now
	if opts.Now != nil {
		now = opts.Now
	}

	var paths []string
	err := filepath.WalkDir(srcDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(srcDir, path)
		if err != nil {
			return err
		}
		paths = append(paths, filepath.ToSlash(rel))
		return nil
	})
	if err != nil {
		return Manifest{}, fmt.Errorf("walk %q: %w", srcDir, err)
	}
	sort.Strings(paths)

	if err := os.MkdirAll(destDir, 0o755); err != nil {
		return Manifest{}, fmt.Errorf("create artifact dir %q: %w", destDir, err)
	}

	created := now().UTC()
	stamp := created.Format("20060102-150405")
	base := fmt.Sprintf("%s-%s", opts.Name, stamp)
	archivePath := filepath.Join(destDir, base+archiveSuffix)

	manifest := Manifest{
		Name:          base,
		Archive:       filepath.Base(archivePath),
		CreatedAt:     created,
		ExpiresAt:     created.AddDate(0, 0, opts.RetentionDays),
		RetentionDays: opts.RetentionDays,
	}

	if err := writeArchive(archivePath, srcDir, paths, &manifest); err != nil {
		os.Remove(archivePath)
		return Manifest{}, err
	}

	manifestPath := filepath.Join(destDir, base+manifestSuffix)
	data, err := json.MarshalIndent(manifest, "", "  ")
	if err != nil {
		return Manifest{}, fmt.Errorf("encode manifest: %w", err)
	}
	if err := os.WriteFile(manifestPath, data, 0o644); err != nil {
		return Manifest{}, fmt.Errorf("write manifest %q: %w", manifestPath, err)
	}

	return manifest, nil
}

func writeArchive(archivePath, srcDir string, paths []string, manifest *Manifest) error {
	out, err := os.Create(archivePath)
	if err != nil {
		return fmt.Errorf("create archive %q: %w", archivePath, err)
	}
	defer out.Close()

	zw, err := zstd.NewWriter(out)
	if err != nil {
		return fmt.Errorf("init zstd: %w", err)
	}
	tw := tar.NewWriter(zw)

	for _, rel := range paths {
		full := filepath.Join(srcDir, filepath.FromSlash(rel))
		info, err := os.Stat(full)
		if err != nil {
			return fmt.Errorf("stat %q: %w", full, err)
		}
		hdr := &tar.Header{
			Name:    rel,
			Mode:    0o644,
			Size:    info.Size(),
			ModTime: info.ModTime().UTC(),
		}
		if err := tw.WriteHeader(hdr); err != nil {
			return fmt.Errorf("write header %q: %w", rel, err)
		}
		f, err := os.Open(full)
		if err != nil {
			return fmt.Errorf("open %q: %w", full, err)
		}
		n, err := io.Copy(tw, f)
		f.Close()
		if err != nil {
			return fmt.Errorf("archive %q: %w", rel, err)
		}
		manifest.FileCount++
		manifest.TotalBytes += n
	}

	if err := tw.Close(); err != nil {
		return fmt.Errorf("finish tar: %w", err)
	}
	if err := zw.Close(); err != nil {
		return fmt.Errorf("finish zstd: %w", err)
	}
	return out.Close()
}

// Extract unpacks an archive produced by Capture into destDir.
func Extract(archivePath, destDir string) error {
	f, err := os.Open(archivePath)
	if err != nil {
		return fmt.Errorf("open archive %q: %w", archivePath, err)
	}
	defer f.Close()

	zr, err := zstd.NewReader(f)
	if err != nil {
		return fmt.Errorf("init zstd: %w", err)
	}
	defer zr.Close()

	tr := tar.NewReader(zr)
	for {
		hdr, err := tr.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return fmt.Errorf("read archive %q: %w", archivePath, err)
		}
		rel := filepath.FromSlash(hdr.Name)
		if strings.Contains(hdr.Name, "..") || filepath.IsAbs(rel) {
			return fmt.Errorf("archive %q: unsafe entry %q", archivePath, hdr.Name)
		}
		target := filepath.Join(destDir, rel)
		if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
			return fmt.Errorf("create dir for %q: %w", target, err)
		}
		out, err := os.Create(target)
		if err != nil {
			return fmt.Errorf("create %q: %w", target, err)
		}
		if _, err := io.Copy(out, tr); err != nil {
			out.Close()
			return fmt.Errorf("extract %q: %w", hdr.Name, err)
		}
		if err := out.Close(); err != nil {
			return fmt.Errorf("close %q: %w", target, err)
		}
	}
	return nil
}

// Prune removes archives whose manifests record an expiry at or before
// now, returning the names of removed artifacts.
func Prune(dir string, now time.Time) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("read artifact dir %q: %w", dir, err)
	}

	var removed []string
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasSuffix(name, manifestSuffix) || strings.HasSuffix(name, archiveSuffix) {
			continue
		}
		manifestPath := filepath.Join(dir, name)
		data, err := os.ReadFile(manifestPath)
		if err != nil {
			return removed, fmt.Errorf("read manifest %q: %w", manifestPath, err)
		}
		var m Manifest
		if err := json.Unmarshal(data, &m); err != nil {
			// Skip foreign json files rather than failing the prune.
			continue
		}
		if m.ExpiresAt.IsZero() || m.ExpiresAt.After(now) {
			continue
		}
		if err := os.Remove(filepath.Join(dir, m.Archive)); err != nil && !errors.Is(err, os.ErrNotExist) {
			return removed, fmt.Errorf("remove archive %q: %w", m.Archive, err)
		}
		if err := os.Remove(manifestPath); err != nil {
			return removed, fmt.Errorf("remove manifest %q: %w", manifestPath, err)
		}
		removed = append(removed, m.Name)
	}
	sort.Strings(removed)
	return removed, nil
}
