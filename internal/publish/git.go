package publish

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"marketpages/internal/version"
)

// MinGitVersion is the oldest git the publisher is exercised against.
// Older versions lack `update-index --cacheinfo` with the mode,sha,path
// form used here.
const MinGitVersion = "2.1.0"

// GitPublisher publishes through the local git executable using plumbing
// commands, so the checked-out branch is never touched.
type GitPublisher struct {
	// RepoDir is the repository the hosting branch lives in.
	RepoDir string
	// Remote is pushed to after committing. Empty skips the push and
	// only moves the local branch ref.
	Remote string
	// Branch is the hosting branch.
	Branch string
	// AuthorName and AuthorEmail stamp the publish commits.
	AuthorName  string
	AuthorEmail string
	// Log receives one line per git invocation when non-nil.
	Log io.Writer
}

// Publish builds a tree from srcDir in a temporary index, commits it on
// top of the branch head when the tree differs, and pushes.
func (g *GitPublisher) Publish(ctx context.Context, srcDir, message string) (Result, error) {
	if g.Branch == "" {
		return Result{}, errors.New("publish: branch not set")
	}
	info, err := version.DetectGit()
	if err != nil {
		if version.Missing(err) {
			return Result{}, errors.New("publish: git executable not found")
		}
		return Result{}, fmt.Errorf("publish: detect git: %w", err)
	}
	if !version.AtLeast(MinGitVersion, info.Version) {
		return Result{}, fmt.Errorf("publish: git %s is too old, need %s or newer", info.Version, MinGitVersion)
	}

	paths, err := listFiles(srcDir)
	if err != nil {
		return Result{}, err
	}

	if g.Remote != "" {
		// A failed fetch is fine on the first publish; the branch may
		// not exist yet.
		_, _ = g.git(ctx, nil, "fetch", g.Remote, g.Branch)
	}

	base := g.resolveBase(ctx)

	indexFile, err := os.CreateTemp("", "marketpages-index-*")
	if err != nil {
		return Result{}, fmt.Errorf("publish: temp index: %w", err)
	}
	indexPath := indexFile.Name()
	indexFile.Close()
	os.Remove(indexPath)
	defer os.Remove(indexPath)

	env := []string{"GIT_INDEX_FILE=" + indexPath}
	if _, err := g.git(ctx, env, "read-tree", "--empty"); err != nil {
		return Result{}, err
	}

	for _, rel := range paths {
		full := filepath.Join(srcDir, filepath.FromSlash(rel))
		oid, err := g.git(ctx, nil, "hash-object", "-w", "--", full)
		if err != nil {
			return Result{}, err
		}
		cacheinfo := fmt.Sprintf("100644,%s,%s", oid, rel)
		if _, err := g.git(ctx, env, "update-index", "--add", "--cacheinfo", cacheinfo); err != nil {
			return Result{}, err
		}
	}

	tree, err := g.git(ctx, env, "write-tree")
	if err != nil {
		return Result{}, err
	}

	result := Result{Branch: g.Branch, Files: len(paths)}

	if base != "" {
		baseTree, err := g.git(ctx, nil, "rev-parse", base+"^{tree}")
		if err != nil {
			return Result{}, err
		}
		if baseTree == tree {
			result.Commit = base
			return result, nil
		}
	}

	commitEnv := []string{
		"GIT_AUTHOR_NAME=" + g.authorName(),
		"GIT_AUTHOR_EMAIL=" + g.authorEmail(),
		"GIT_COMMITTER_NAME=" + g.authorName(),
		"GIT_COMMITTER_EMAIL=" + g.authorEmail(),
	}
	args := []string{"commit-tree", tree, "-m", message}
	if base != "" {
		args = append(args, "-p", base)
	}
	commit, err := g.git(ctx, commitEnv, args...)
	if err != nil {
		return Result{}, err
	}

	branchRef := "refs/heads/" + g.Branch
	if _, err := g.git(ctx, nil, "update-ref", branchRef, commit); err != nil {
		return Result{}, err
	}
	if g.Remote != "" {
		if _, err := g.git(ctx, nil, "push", g.Remote, commit+":"+branchRef); err != nil {
			return Result{}, err
		}
	}

	result.Committed = true
	result.Commit = commit
	return result, nil
}

// resolveBase finds the current branch head, preferring the remote
// tracking ref so a stale local branch is not extended.
func (g *GitPublisher) resolveBase(ctx context.Context) string {
	if g.Remote != "" {
		if sha, err := g.git(ctx, nil, "rev-parse", "--verify", "--quiet",
			fmt.Sprintf("refs/remotes/%s/%s", g.Remote, g.Branch)); err == nil {
			return sha
		}
		if sha, err := g.git(ctx, nil, "rev-parse", "--verify", "--quiet", "FETCH_HEAD"); err == nil {
			return sha
		}
	}
	if sha, err := g.git(ctx, nil, "rev-parse", "--verify", "--quiet", "refs/heads/"+g.Branch); err == nil {
		return sha
	}
	return ""
}

func (g *GitPublisher) authorName() string {
	if g.AuthorName != "" {
		return g.AuthorName
	}
	return "marketpages"
}

func (g *GitPublisher) authorEmail() string {
	if g.AuthorEmail != "" {
		return g.AuthorEmail
	}
	return "marketpages@localhost"
}

func (g *GitPublisher) git(ctx context.Context, extraEnv []string, args ...string) (string, error) {
	cmd := exec.CommandContext(ctx, "git", args...)
	cmd.Dir = g.RepoDir
	cmd.Env = append(os.Environ(), extraEnv...)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if g.Log != nil {
		fmt.Fprintf(g.Log, "git %s\n", strings.Join(args, " "))
	}
	if err := cmd.Run(); err != nil {
		msg := strings.TrimSpace(stderr.String())
		if msg == "" {
			msg = err.Error()
		}
		return "", fmt.Errorf("git %s: %s", args[0], msg)
	}
	return strings.TrimSpace(stdout.String()), nil
}
