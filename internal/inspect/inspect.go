// Package inspect measures the output directory before it is captured or
// published. It has no side effects on the pipeline outcome.
package inspect

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"
	"sort"

	"golang.org/x/sync/errgroup"
)

// ErrEmptyDir indicates the directory exists but holds no regular files.
var ErrEmptyDir = errors.New("directory contains no files")

// FileInfo describes one file in the inspected tree.
type FileInfo struct {
	Path   string `json:"path"`
	Size   int64  `json:"size"`
	SHA256 string `json:"sha256"`
}

// Listing is the full measurement of a directory tree.
type Listing struct {
	Dir        string     `json:"dir"`
	Files      []FileInfo `json:"files"`
	TotalBytes int64      `json:"total_bytes"`
}

// Dir walks root and returns per-file sizes and content hashes, sorted by
// path. Hashing runs concurrently; results are deterministic regardless.
func Dir(ctx context.Context, root string) (Listing, error) {
	var paths []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		paths = append(paths, filepath.ToSlash(rel))
		return nil
	})
	if err != nil {
		return Listing{}, fmt.Errorf("walk %q: %w", root, err)
	}
	if len(paths) == 0 {
		return Listing{}, fmt.Errorf("%w: %q", ErrEmptyDir, root)
	}
	sort.Strings(paths)

	files := make([]FileInfo, len(paths))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.NumCPU())
	for i, rel := range paths {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			info, err := hashFile(root, rel)
			if err != nil {
				return err
			}
			files[i] = info
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return Listing{}, err
	}

	listing := Listing{Dir: root, Files: files}
	for _, f := range files {
		listing.TotalBytes += f.Size
	}
	return listing, nil
}

func hashFile(root, rel string) (FileInfo, error) {
	full := filepath.Join(root, filepath.FromSlash(rel))
	f, err := os.Open(full)
	if err != nil {
		return FileInfo{}, fmt.Errorf("open %q: %w", full, err)
	}
	defer f.Close()

	h := sha256.New()
	size, err := io.Copy(h, f)
	if err != nil {
		return FileInfo{}, fmt.Errorf("hash %q: %w", full, err)
	}
	return FileInfo{
		Path:   rel,
		Size:   size,
		SHA256: hex.EncodeToString(h.Sum(nil)),
	}, nil
}

// Render writes the listing as human readable table lines.
func Render(w io.Writer, listing Listing) error {
	for _, f := range listing.Files {
		if _, err := fmt.Fprintf(w, "%10d  %s  %s\n", f.Size, f.SHA256[:12], f.Path); err != nil {
			return err
		}
	}
	_, err := fmt.Fprintf(w, "%d files, %d bytes total\n", len(listing.Files), listing.TotalBytes)
	return err
}
