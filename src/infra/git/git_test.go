package git

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"testing"
)

func requireGit(t *testing.T) {
	t.Helper()
	if _, err := exec.LookPath("git"); err != nil {
		t.Skip("git not installed")
	}
	t.Setenv("GIT_AUTHOR_NAME", "test")
	t.Setenv("GIT_AUTHOR_EMAIL", "test@example.com")
	t.Setenv("GIT_COMMITTER_NAME", "test")
	t.Setenv("GIT_COMMITTER_EMAIL", "test@example.com")
	t.Setenv("GIT_CONFIG_GLOBAL", os.DevNull)
}

func TestCLIRoundTrip(t *testing.T) {
	requireGit(t)
	ctx := context.Background()
	g := NewCLI("")

	remote := filepath.Join(t.TempDir(), "remote.git")
	if out, err := exec.Command("git", "init", "--bare", remote).CombinedOutput(); err != nil {
		t.Fatalf("init bare: %v: %s", err, out)
	}

	clone := filepath.Join(t.TempDir(), "clone")
	if err := g.Clone(ctx, remote, clone); err != nil {
		t.Fatalf("Clone() error = %v", err)
	}
	if !g.IsRepository(ctx, clone) {
		t.Fatal("expected clone to be a repository")
	}
	if g.IsRepository(ctx, t.TempDir()) {
		t.Error("expected plain directory not to be a repository")
	}

	clean, err := g.Clean(ctx, clone)
	if err != nil || !clean {
		t.Fatalf("expected fresh clone clean, got %v (%v)", clean, err)
	}
	if ahead, err := g.Ahead(ctx, clone); err != nil || ahead {
		t.Fatalf("expected fresh clone not ahead, got %v (%v)", ahead, err)
	}

	committed, err := g.Commit(ctx, clone, "empty")
	if err != nil || committed {
		t.Fatalf("expected nothing to commit, got %v (%v)", committed, err)
	}

	if err := os.WriteFile(filepath.Join(clone, "metadata.csv"), []byte("key\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if clean, _ := g.Clean(ctx, clone); clean {
		t.Fatal("expected dirty tree after write")
	}
	if err := g.Add(ctx, clone, "metadata.csv"); err != nil {
		t.Fatalf("Add() error = %v", err)
	}
	committed, err = g.Commit(ctx, clone, "Update metadata")
	if err != nil || !committed {
		t.Fatalf("expected commit, got %v (%v)", committed, err)
	}
	if ahead, err := g.Ahead(ctx, clone); err != nil || !ahead {
		t.Fatalf("expected unpushed commit to be ahead, got %v (%v)", ahead, err)
	}
	if err := g.Push(ctx, clone); err != nil {
		t.Fatalf("Push() error = %v", err)
	}
	if ahead, err := g.Ahead(ctx, clone); err != nil || ahead {
		t.Fatalf("expected nothing ahead after push, got %v (%v)", ahead, err)
	}

	other := filepath.Join(t.TempDir(), "other")
	if err := g.Clone(ctx, remote, other); err != nil {
		t.Fatal(err)
	}
	if _, err := os.Stat(filepath.Join(other, "metadata.csv")); err != nil {
		t.Errorf("expected pushed file in second clone: %v", err)
	}
	if err := g.Pull(ctx, other); err != nil {
		t.Errorf("Pull() error = %v", err)
	}
}

func TestCLIReportsStderr(t *testing.T) {
	requireGit(t)
	err := NewCLI("").Pull(context.Background(), t.TempDir())
	if err == nil {
		t.Fatal("expected pull outside a repository to fail")
	}
}

func TestIsRepositoryIgnoresParentWorkTree(t *testing.T) {
	requireGit(t)
	home := t.TempDir()
	if out, err := exec.Command("git", "init", home).CombinedOutput(); err != nil {
		t.Fatalf("init: %v: %s", err, out)
	}
	nested := filepath.Join(home, ".config", "song-classifier", "metadata-repo")
	if err := os.MkdirAll(nested, 0o755); err != nil {
		t.Fatal(err)
	}

	g := NewCLI("")
	if g.IsRepository(context.Background(), nested) {
		t.Error("expected directory nested in another work tree not to be a repository")
	}
	if !g.IsRepository(context.Background(), home) {
		t.Error("expected work tree root to be a repository")
	}
}

func TestAheadAfterFailedPush(t *testing.T) {
	requireGit(t)
	ctx := context.Background()
	g := NewCLI("")

	base := t.TempDir()
	remote := filepath.Join(base, "remote.git")
	if out, err := exec.Command("git", "init", "--bare", remote).CombinedOutput(); err != nil {
		t.Fatalf("init bare: %v: %s", err, out)
	}
	clone := filepath.Join(base, "clone")
	if err := g.Clone(ctx, remote, clone); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(clone, "albums.csv"), []byte("name\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := g.Add(ctx, clone, "albums.csv"); err != nil {
		t.Fatal(err)
	}
	if _, err := g.Commit(ctx, clone, "Update metadata"); err != nil {
		t.Fatal(err)
	}

	moved := filepath.Join(base, "moved.git")
	if err := os.Rename(remote, moved); err != nil {
		t.Fatal(err)
	}
	if err := g.Push(ctx, clone); err == nil {
		t.Fatal("expected push to a missing remote to fail")
	}
	if err := os.Rename(moved, remote); err != nil {
		t.Fatal(err)
	}

	ahead, err := g.Ahead(ctx, clone)
	if err != nil || !ahead {
		t.Fatalf("expected commit from failed push to be ahead, got %v (%v)", ahead, err)
	}
	if err := g.Push(ctx, clone); err != nil {
		t.Fatalf("retry Push() error = %v", err)
	}
	if ahead, _ := g.Ahead(ctx, clone); ahead {
		t.Error("expected nothing ahead after retry")
	}
}
