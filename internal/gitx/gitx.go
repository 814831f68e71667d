// Package gitx provides helpers for executing git commands and the
// small set of git verbs the syncer needs. It shells out to the
// installed git binary.
package gitx

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// Runner executes a git command in a given repo directory.
// This interface allows mocking in tests.
type Runner interface {
	// Run executes a git command in the given directory and returns
	// trimmed combined stdout/stderr output.
	Run(ctx context.Context, dir string, args ...string) (string, error)
}

// GitRunner is the default Runner implementation that shells out to git.
type GitRunner struct {
	// GitBin is the path to the git binary. Defaults to "git".
	GitBin string
}

// Run executes a git command through the shared subprocess helper.
func (g *GitRunner) Run(ctx context.Context, dir string, args ...string) (string, error) {
	bin := g.GitBin
	if bin == "" {
		bin = "git"
	}
	return RunCommand(ctx, dir, bin, args...)
}

// IsRepo reports whether path contains git metadata. It checks the
// filesystem rather than invoking git so it also works on paths that
// are not repositories at all.
func IsRepo(path string) bool {
	info, err := os.Stat(filepath.Join(path, ".git"))
	if err != nil {
		return false
	}
	// Submodules and worktrees use a .git file instead of a directory.
	return info.IsDir() || info.Mode().IsRegular()
}

// Clone clones url into dest.
func Clone(ctx context.Context, r Runner, url, dest string) error {
	if _, err := r.Run(ctx, "", "clone", url, dest); err != nil {
		return fmt.Errorf("git clone: %w", err)
	}
	return nil
}

// PullRebase runs a rebase-style pull in dir.
func PullRebase(ctx context.Context, r Runner, dir string) error {
	if _, err := r.Run(ctx, dir, "pull", "--rebase"); err != nil {
		return fmt.Errorf("git pull --rebase: %w", err)
	}
	return nil
}

// StashPush stashes local changes, including untracked files. It
// returns false without error when the working tree is clean, so
// callers never create empty stash entries.
func StashPush(ctx context.Context, r Runner, dir string) (bool, error) {
	out, err := StatusPorcelain(ctx, r, dir)
	if err != nil {
		return false, err
	}
	if strings.TrimSpace(out) == "" {
		return false, nil
	}
	msg := fmt.Sprintf("autostash-%d", time.Now().Unix())
	if _, err := r.Run(ctx, dir, "stash", "push", "-u", "-m", msg); err != nil {
		return false, fmt.Errorf("git stash push: %w", err)
	}
	return true, nil
}

// StashPop restores the most recent stash entry.
func StashPop(ctx context.Context, r Runner, dir string) error {
	if _, err := r.Run(ctx, dir, "stash", "pop"); err != nil {
		return fmt.Errorf("git stash pop: %w", err)
	}
	return nil
}

// StatusPorcelain returns the porcelain working-tree status for dir.
func StatusPorcelain(ctx context.Context, r Runner, dir string) (string, error) {
	return r.Run(ctx, dir, "status", "--porcelain")
}

// UnpushedCommits returns the one-line log of commits present locally
// but not on the configured upstream. The query errors when no
// upstream is configured; callers decide whether that matters.
func UnpushedCommits(ctx context.Context, r Runner, dir string) (string, error) {
	return r.Run(ctx, dir, "log", "@{u}..HEAD", "--oneline")
}

// StashList returns the stash list output for dir.
func StashList(ctx context.Context, r Runner, dir string) (string, error) {
	return r.Run(ctx, dir, "stash", "list")
}
