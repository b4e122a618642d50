package publish

import (
	"context"
	"testing"
)

func TestResolveAuthTokenExplicit(t *testing.T) {
	t.Setenv("GITHUB_TOKEN", "env-token")

	tok, source, err := ResolveAuthToken(context.Background(), "  explicit-token  ")
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if tok != "explicit-token" {
		t.Fatalf("token = %q", tok)
	}
	if source != AuthTokenSourceExplicit {
		t.Fatalf("source = %q", source)
	}
}

func TestResolveAuthTokenEnv(t *testing.T) {
	t.Setenv("GITHUB_TOKEN", "env-token")

	tok, source, err := ResolveAuthToken(context.Background(), "")
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if tok != "env-token" {
		t.Fatalf("token = %q", tok)
	}
	if source != AuthTokenSourceEnv {
		t.Fatalf("source = %q", source)
	}
}

func TestResolveAuthTokenWhitespaceEnv(t *testing.T) {
	t.Setenv("GITHUB_TOKEN", "   ")
	t.Setenv("PATH", t.TempDir()) // keep gh out of the fallback chain

	tok, source, err := ResolveAuthToken(context.Background(), "")
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if tok != "" || source != "" {
		t.Fatalf("expected no token, got %q from %q", tok, source)
	}
}
