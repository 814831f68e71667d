// SPDX-License-Identifier: MIT
package bootstrap

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"
)

// TemplateRoot returns the directory holding per-platform editor
// configuration templates. Users populate it; a missing root simply
// disables the applier.
func TemplateRoot() string {
	base, err := os.UserConfigDir()
	if err != nil {
		return ""
	}
	return filepath.Join(base, "reposync", "vscode-templates")
}

// EditorTemplate copies the platform's editor template directory into
// the repository's .vscode, backing up any pre-existing directory to a
// timestamped sibling first. A missing template is a successful no-op.
func EditorTemplate(out io.Writer, repoPath, platformName string, dryRun bool) bool {
	root := TemplateRoot()
	if root == "" {
		return true
	}
	template := filepath.Join(root, platformName)
	if _, err := os.Stat(template); err != nil {
		template = filepath.Join(root, "linux")
		if _, err := os.Stat(template); err != nil {
			return true
		}
	}

	target := filepath.Join(repoPath, ".vscode")
	if dryRun {
		fmt.Fprintf(out, "   editor: would apply template %s\n", template)
		return true
	}

	if _, err := os.Stat(target); err == nil {
		backup := filepath.Join(repoPath, fmt.Sprintf(".vscode.bak.%d", time.Now().Unix()))
		if err := os.Rename(target, backup); err != nil {
			fmt.Fprintf(out, "   editor: cannot back up %s: %v\n", target, err)
			return false
		}
		fmt.Fprintf(out, "   editor: backed up existing config to %s\n", filepath.Base(backup))
	}

	if err := copyDir(template, target); err != nil {
		fmt.Fprintf(out, "   editor: cannot apply template: %v\n", err)
		return false
	}
	return true
}

func copyDir(src, dst string) error {
	return filepath.WalkDir(src, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(src, path)
		if err != nil {
			return err
		}
		target := filepath.Join(dst, rel)
		if d.IsDir() {
			return os.MkdirAll(target, 0o755)
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		return os.WriteFile(target, data, 0o644)
	})
}
