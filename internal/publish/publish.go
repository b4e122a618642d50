// Package publish mirrors the output directory onto a hosting branch.
// Two backends exist: the local git executable and the GitHub REST API.
// Both guarantee the branch ends up holding exactly the directory's
// contents, and neither creates a commit when nothing changed.
package publish

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
)

// Result reports what a publish did.
type Result struct {
	// Committed is false when the branch already matched the directory.
	Committed bool
	// Commit is the branch head after publishing.
	Commit string
	// Branch is the hosting branch name.
	Branch string
	// Files is the number of files mirrored.
	Files int
}

// Publisher pushes a directory's contents to a hosting branch.
type Publisher interface {
	Publish(ctx context.Context, srcDir, message string) (Result, error)
}

// listFiles returns the relative slash-separated paths of all regular
// files under dir, sorted.
func listFiles(dir string) ([]string, error) {
	var paths []string
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(dir, path)
		if err != nil {
			return err
		}
		paths = append(paths, filepath.ToSlash(rel))
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk %q: %w", dir, err)
	}
	if len(paths) == 0 {
		return nil, fmt.Errorf("nothing to publish: %q is empty", dir)
	}
	sort.Strings(paths)
	return paths, nil
}

func readFile(dir, rel string) ([]byte, error) {
	full := filepath.Join(dir, filepath.FromSlash(rel))
	data, err := os.ReadFile(full)
	if err != nil {
		return nil, fmt.Errorf("read %q: %w", full, err)
	}
	return data, nil
}
