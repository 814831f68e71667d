// Package bootstrap applies per-repository setup steps after a
// successful sync: gitignore hygiene, editor templates, and language
// environment provisioning. Every applier is best-effort; failures are
// reported through the return value and never abort the run.
package bootstrap

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// recommendedGitignore entries merged into every synced repository.
var recommendedGitignore = []string{
	"config.local.json",
	"config.local.yaml",
	".env",
	".env.local",
	"*.log",
	"logs/",
	"__pycache__/",
	"*.py[cod]",
	"build/",
	"dist/",
	"*.egg-info/",
	".venv/",
	"venv/",
	".pytest_cache/",
	".coverage",
	"htmlcov/",
	".DS_Store",
	"Thumbs.db",
	".idea/",
	"*.swp",
	"uv.lock",
}

const gitignoreMarker = "# added by reposync"

// Gitignore ensures repoPath has a .gitignore containing the
// recommended entries, merging with existing content rather than
// overwriting. Idempotent.
func Gitignore(out io.Writer, repoPath string, dryRun bool) bool {
	target := filepath.Join(repoPath, ".gitignore")

	existing, err := os.ReadFile(target)
	if err != nil && !os.IsNotExist(err) {
		fmt.Fprintf(out, "   gitignore: cannot read %s: %v\n", target, err)
		return false
	}

	missing := missingEntries(string(existing), recommendedGitignore)
	if len(missing) == 0 {
		return true
	}
	if dryRun {
		fmt.Fprintf(out, "   gitignore: would add %d entries to %s\n", len(missing), target)
		return true
	}

	var b strings.Builder
	b.Write(existing)
	if len(existing) > 0 && !strings.HasSuffix(string(existing), "\n") {
		b.WriteString("\n")
	}
	if len(existing) > 0 {
		b.WriteString("\n" + gitignoreMarker + "\n")
	}
	for _, entry := range missing {
		b.WriteString(entry + "\n")
	}
	if err := os.WriteFile(target, []byte(b.String()), 0o644); err != nil {
		fmt.Fprintf(out, "   gitignore: cannot write %s: %v\n", target, err)
		return false
	}
	return true
}

func missingEntries(content string, wanted []string) []string {
	present := make(map[string]struct{})
	for _, line := range strings.Split(content, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		present[line] = struct{}{}
	}
	var missing []string
	for _, entry := range wanted {
		if _, ok := present[entry]; !ok {
			missing = append(missing, entry)
		}
	}
	return missing
}
