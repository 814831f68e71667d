package bootstrap

import (
	"os"
	"path/filepath"

	"github.com/bmatcuk/doublestar/v4"
)

// markerPatterns maps a project type to the top-level marker files
// that identify it. Entries are doublestar globs so wildcard markers
// like *.csproj work.
var markerPatterns = map[string][]string{
	"python": {"pyproject.toml", "setup.py", "setup.cfg", "requirements.txt", "Pipfile", "poetry.lock"},
	"node":   {"package.json", "yarn.lock", "pnpm-lock.yaml"},
	"rust":   {"Cargo.toml"},
	"go":     {"go.mod"},
	"java":   {"pom.xml", "build.gradle", "build.gradle.kts"},
	"csharp": {"*.csproj", "*.sln"},
}

// DetectProjectTypes returns the project types whose marker files are
// present at the top level of repoPath.
func DetectProjectTypes(repoPath string) []string {
	entries, err := os.ReadDir(repoPath)
	if err != nil {
		return nil
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, e.Name())
	}

	var types []string
	for _, kind := range []string{"python", "node", "rust", "go", "java", "csharp"} {
		if matchesAny(names, markerPatterns[kind]) {
			types = append(types, kind)
		}
	}
	return types
}

// HasProjectType reports whether repoPath contains markers for kind.
func HasProjectType(repoPath, kind string) bool {
	patterns, ok := markerPatterns[kind]
	if !ok {
		return false
	}
	entries, err := os.ReadDir(repoPath)
	if err != nil {
		return false
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, e.Name())
	}
	return matchesAny(names, patterns)
}

func matchesAny(names, patterns []string) bool {
	for _, pattern := range patterns {
		for _, name := range names {
			if ok, err := doublestar.Match(pattern, filepath.Base(name)); err == nil && ok {
				return true
			}
		}
	}
	return false
}
