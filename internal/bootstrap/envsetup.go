package bootstrap

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"

	"github.com/skaphos/reposync/internal/gitx"
)

// lookPath is overridable in tests.
var lookPath = exec.LookPath

// EnvSetup provisions an isolated language environment for recognized
// project types. Repositories that are not a recognized type are a
// successful no-op. Python is provisioned through uv when available,
// falling back to the standard venv module.
func EnvSetup(ctx context.Context, out io.Writer, repoPath string, dryRun bool) bool {
	if !HasProjectType(repoPath, "python") {
		return true
	}
	if dryRun {
		fmt.Fprintf(out, "   env: would set up python environment in %s\n", repoPath)
		return true
	}

	if _, err := lookPath("uv"); err == nil {
		if setupWithUV(ctx, repoPath) {
			return true
		}
		fmt.Fprintf(out, "   env: uv setup failed, falling back to venv\n")
	}
	return setupWithVenv(ctx, out, repoPath)
}

func setupWithUV(ctx context.Context, repoPath string) bool {
	hasPyproject := fileExists(filepath.Join(repoPath, "pyproject.toml"))
	if hasPyproject {
		if !fileExists(filepath.Join(repoPath, "uv.lock")) {
			if _, err := gitx.RunCommand(ctx, repoPath, "uv", "lock"); err != nil {
				return false
			}
		}
		if _, err := gitx.RunCommand(ctx, repoPath, "uv", "venv"); err != nil {
			return false
		}
		_, err := gitx.RunCommand(ctx, repoPath, "uv", "sync")
		return err == nil
	}
	if fileExists(filepath.Join(repoPath, "requirements.txt")) {
		if _, err := gitx.RunCommand(ctx, repoPath, "uv", "venv"); err != nil {
			return false
		}
		_, err := gitx.RunCommand(ctx, repoPath, "uv", "pip", "install", "-r", "requirements.txt")
		return err == nil
	}
	return true
}

func setupWithVenv(ctx context.Context, out io.Writer, repoPath string) bool {
	if fileExists(filepath.Join(repoPath, ".venv")) {
		return true
	}
	if _, err := gitx.RunCommand(ctx, repoPath, "python3", "-m", "venv", ".venv"); err != nil {
		fmt.Fprintf(out, "   env: venv creation failed: %v\n", err)
		return false
	}
	return true
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
