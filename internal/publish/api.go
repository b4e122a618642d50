package publish

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/google/go-github/v81/github"
	"golang.org/x/oauth2"
)

// APIPublisher publishes through the GitHub Git Data API: blobs, a tree,
// a commit, and a ref update. No local git checkout is required.
type APIPublisher struct {
	client *github.Client

	// Owner and Repo identify the target repository.
	Owner string
	Repo  string
	// Branch is the hosting branch.
	Branch string
}

// APIOption customizes the API client.
type APIOption func(*apiOptions)

type apiOptions struct {
	verbose bool
	// writer controls where verbose HTTP logs are written (typically
	// stderr) so structured output on stdout stays clean.
	writer io.Writer
}

// WithVerbose enables one log line per API request and response.
func WithVerbose(enabled bool, writer io.Writer) APIOption {
	return func(o *apiOptions) {
		o.verbose = enabled
		o.writer = writer
	}
}

// loggingRoundTripper wraps an underlying transport and emits one line per
// request and response (including latency) when verbose logging is enabled.
type loggingRoundTripper struct {
	base http.RoundTripper
	w    io.Writer
}

func (t *loggingRoundTripper) RoundTrip(req *http.Request) (*http.Response, error) {
	start := time.Now()
	if t.w != nil {
		fmt.Fprintf(t.w, "[verbose] github api: %s %s\n", req.Method, req.URL.String())
	}
	resp, err := t.base.RoundTrip(req)
	dur := time.Since(start)
	if t.w != nil {
		if err != nil {
			fmt.Fprintf(t.w, "[verbose] github api: error after %s: %v\n", dur.Truncate(time.Millisecond), err)
		} else {
			fmt.Fprintf(t.w, "[verbose] github api: %d %s (%s)\n", resp.StatusCode, http.StatusText(resp.StatusCode), dur.Truncate(time.Millisecond))
		}
	}
	return resp, err
}

// NewAPIPublisher builds an APIPublisher authenticated with token.
func NewAPIPublisher(ctx context.Context, token, owner, repo, branch string, opts ...APIOption) (*APIPublisher, error) {
	if token == "" {
		return nil, errors.New("publish: no GitHub token available")
	}
	if owner == "" || repo == "" {
		return nil, errors.New("publish: owner and repo are required")
	}

	o := &apiOptions{}
	for _, apply := range opts {
		if apply != nil {
			apply(o)
		}
	}

	transport := http.DefaultTransport
	if o.verbose {
		transport = &loggingRoundTripper{base: transport, w: o.writer}
	}

	ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token})
	httpClient := oauth2.NewClient(
		context.WithValue(ctx, oauth2.HTTPClient, &http.Client{Transport: transport}), ts)

	return &APIPublisher{
		client: github.NewClient(httpClient),
		Owner:  owner,
		Repo:   repo,
		Branch: branch,
	}, nil
}

// Publish mirrors srcDir onto the branch. The tree is built without a base
// tree so files removed locally disappear from the branch as well.
func (p *APIPublisher) Publish(ctx context.Context, srcDir, message string) (Result, error) {
	paths, err := listFiles(srcDir)
	if err != nil {
		return Result{}, err
	}

	branchRef := "heads/" + p.Branch
	var parentSHA, parentTreeSHA string
	ref, _, err := p.client.Git.GetRef(ctx, p.Owner, p.Repo, branchRef)
	switch {
	case err == nil:
		parentSHA = ref.GetObject().GetSHA()
		commit, _, err := p.client.Git.GetCommit(ctx, p.Owner, p.Repo, parentSHA)
		if err != nil {
			return Result{}, fmt.Errorf("publish: get commit %s: %w", parentSHA, err)
		}
		parentTreeSHA = commit.GetTree().GetSHA()
	case isNotFound(err):
		// First publish to this branch.
	default:
		return Result{}, fmt.Errorf("publish: get ref %s: %w", branchRef, err)
	}

	entries := make([]*github.TreeEntry, 0, len(paths))
	for _, rel := range paths {
		data, err := readFile(srcDir, rel)
		if err != nil {
			return Result{}, err
		}
		blob, _, err := p.client.Git.CreateBlob(ctx, p.Owner, p.Repo, github.Blob{
			Content:  github.Ptr(base64.StdEncoding.EncodeToString(data)),
			Encoding: github.Ptr("base64"),
		})
		if err != nil {
			return Result{}, fmt.Errorf("publish: create blob %q: %w", rel, err)
		}
		entries = append(entries, &github.TreeEntry{
			Path: github.Ptr(rel),
			Mode: github.Ptr("100644"),
			Type: github.Ptr("blob"),
			SHA:  blob.SHA,
		})
	}

	tree, _, err := p.client.Git.CreateTree(ctx, p.Owner, p.Repo, "", entries)
	if err != nil {
		return Result{}, fmt.Errorf("publish: create tree: %w", err)
	}

	result := Result{Branch: p.Branch, Files: len(paths)}

	if parentTreeSHA != "" && tree.GetSHA() == parentTreeSHA {
		result.Commit = parentSHA
		return result, nil
	}

	newCommit := github.Commit{
		Message: github.Ptr(message),
		Tree:    tree,
	}
	if parentSHA != "" {
		newCommit.Parents = []*github.Commit{{SHA: github.Ptr(parentSHA)}}
	}
	commit, _, err := p.client.Git.CreateCommit(ctx, p.Owner, p.Repo, newCommit, nil)
	if err != nil {
		return Result{}, fmt.Errorf("publish: create commit: %w", err)
	}

	if parentSHA == "" {
		newRef := github.CreateRef{
			Ref: "refs/" + branchRef,
			SHA: commit.GetSHA(),
		}
		if _, _, err := p.client.Git.CreateRef(ctx, p.Owner, p.Repo, newRef); err != nil {
			return Result{}, fmt.Errorf("publish: create ref: %w", err)
		}
	} else {
		updateRef := github.UpdateRef{
			SHA:   commit.GetSHA(),
			Force: github.Ptr(false),
		}
		if _, _, err := p.client.Git.UpdateRef(ctx, p.Owner, p.Repo, "refs/"+branchRef, updateRef); err != nil {
			return Result{}, fmt.Errorf("publish: update ref: %w", err)
		}
	}

	result.Committed = true
	result.Commit = commit.GetSHA()
	return result, nil
}

func isNotFound(err error) bool {
	var ghErr *github.ErrorResponse
	return errors.As(err, &ghErr) && ghErr.Response != nil && ghErr.Response.StatusCode == http.StatusNotFound
}
