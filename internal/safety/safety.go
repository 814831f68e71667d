// Package safety inspects a local clone for work that a destructive
// operation could lose, and makes emergency backups.
package safety

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/skaphos/reposync/internal/gitx"
	"github.com/skaphos/reposync/internal/model"
)

// CheckUnpushedChanges inspects repoPath for uncommitted changes,
// unpushed commits, and stash entries. It is a best-effort warning
// mechanism: any failure from the underlying git invocation collapses
// to "no issues" for that check rather than propagating an error.
func CheckUnpushedChanges(ctx context.Context, r gitx.Runner, repoPath string) model.SafetyReport {
	var report model.SafetyReport
	if !gitx.IsRepo(repoPath) {
		return report
	}

	if out, err := gitx.StatusPorcelain(ctx, r, repoPath); err == nil && strings.TrimSpace(out) != "" {
		report.Issues = append(report.Issues, model.IssueUncommitted)
	}

	// The log query fails when no upstream is configured; that is an
	// expected branch, not an error, and means nothing to report.
	if out, err := gitx.UnpushedCommits(ctx, r, repoPath); err == nil && strings.TrimSpace(out) != "" {
		report.Issues = append(report.Issues, model.IssueUnpushed)
	}

	if out, err := gitx.StashList(ctx, r, repoPath); err == nil && strings.TrimSpace(out) != "" {
		report.Issues = append(report.Issues, model.IssueStash)
	}

	return report
}

// EmergencyBackup copies repoPath to a timestamped sibling directory
// before a user continues past a safety warning. It returns the backup
// path. Callers treat failures as non-blocking.
func EmergencyBackup(repoPath string) (string, error) {
	name := fmt.Sprintf("%s.backup.%d", filepath.Base(repoPath), time.Now().Unix())
	backupPath := filepath.Join(filepath.Dir(repoPath), name)
	if err := copyTree(repoPath, backupPath); err != nil {
		return "", err
	}
	return backupPath, nil
}

func copyTree(src, dst string) error {
	return filepath.WalkDir(src, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(src, path)
		if err != nil {
			return err
		}
		target := filepath.Join(dst, rel)
		info, err := d.Info()
		if err != nil {
			return err
		}
		switch {
		case d.IsDir():
			return os.MkdirAll(target, info.Mode().Perm())
		case info.Mode()&os.ModeSymlink != 0:
			link, err := os.Readlink(path)
			if err != nil {
				return err
			}
			return os.Symlink(link, target)
		default:
			return copyFile(path, target, info.Mode().Perm())
		}
	})
}

func copyFile(src, dst string, perm os.FileMode) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer func() { _ = in.Close() }()
	out, err := os.OpenFile(dst, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, perm)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		_ = out.Close()
		return err
	}
	return out.Close()
}
