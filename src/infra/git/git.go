package git

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/contre95/song-classifier/src/features/syncing"
)

// commandContext builds every git invocation.
var commandContext = exec.CommandContext

// CLI drives the git executable.
type CLI struct {
	binary string
}

// NewCLI creates a git client that runs binary, or "git" when empty.
func NewCLI(binary string) syncing.Git {
	if binary == "" {
		binary = "git"
	}
	return &CLI{binary: binary}
}

// IsRepository is true only when dir is the top level of a work tree.
// A plain directory nested inside some other checkout does not count.
func (g *CLI) IsRepository(ctx context.Context, dir string) bool {
	out, err := g.run(ctx, dir, "rev-parse", "--show-toplevel")
	if err != nil {
		return false
	}
	want, err := canonicalPath(dir)
	if err != nil {
		return false
	}
	got, err := canonicalPath(strings.TrimSpace(out))
	return err == nil && got == want
}

func canonicalPath(path string) (string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", err
	}
	return filepath.EvalSymlinks(abs)
}

func (g *CLI) Clone(ctx context.Context, url, dir string) error {
	_, err := g.run(ctx, "", "clone", url, dir)
	return err
}

func (g *CLI) Pull(ctx context.Context, dir string) error {
	_, err := g.run(ctx, dir, "pull", "--rebase")
	return err
}

func (g *CLI) Clean(ctx context.Context, dir string) (bool, error) {
	out, err := g.run(ctx, dir, "status", "--porcelain")
	if err != nil {
		return false, err
	}
	return strings.TrimSpace(out) == "", nil
}

func (g *CLI) Add(ctx context.Context, dir string, paths ...string) error {
	if len(paths) == 0 {
		return nil
	}
	args := append([]string{"add", "--"}, paths...)
	_, err := g.run(ctx, dir, args...)
	return err
}

// Commit uses the exit code of diff --cached to tell an empty index from a failure.
func (g *CLI) Commit(ctx context.Context, dir, message string) (bool, error) {
	_, err := g.run(ctx, dir, "diff", "--cached", "--quiet")
	if err == nil {
		return false, nil
	}
	var exitErr *exec.ExitError
	if !errors.As(err, &exitErr) || exitErr.ExitCode() != 1 {
		return false, err
	}
	if _, err := g.run(ctx, dir, "commit", "-m", message); err != nil {
		return false, err
	}
	return true, nil
}

// Ahead reports whether the current branch has commits its upstream lacks.
// A branch whose upstream ref does not exist yet counts as ahead once it
// has a commit of its own.
func (g *CLI) Ahead(ctx context.Context, dir string) (bool, error) {
	out, err := g.run(ctx, dir, "status", "--porcelain=v2", "--branch")
	if err != nil {
		return false, err
	}
	var oid string
	var hasUpstream bool
	for _, line := range strings.Split(out, "\n") {
		fields := strings.Fields(line)
		if len(fields) < 3 || fields[0] != "#" {
			continue
		}
		switch fields[1] {
		case "branch.oid":
			oid = fields[2]
		case "branch.upstream":
			hasUpstream = true
		case "branch.ab":
			ahead, err := strconv.Atoi(strings.TrimPrefix(fields[2], "+"))
			if err != nil {
				return false, fmt.Errorf("git status: parse %q: %w", line, err)
			}
			return ahead > 0, nil
		}
	}
	return hasUpstream && oid != "" && oid != "(initial)", nil
}

func (g *CLI) Push(ctx context.Context, dir string) error {
	_, err := g.run(ctx, dir, "push")
	return err
}

func (g *CLI) run(ctx context.Context, dir string, args ...string) (string, error) {
	cmd := commandContext(ctx, g.binary, args...)
	if dir != "" {
		cmd.Dir = dir
	}
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	slog.Debug("Running git", "args", args, "dir", dir)
	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		if msg := strings.TrimSpace(stderr.String()); msg != "" {
			return stdout.String(), fmt.Errorf("git %s: %w: %s", args[0], err, msg)
		}
		return stdout.String(), fmt.Errorf("git %s: %w", args[0], err)
	}
	return stdout.String(), nil
}
