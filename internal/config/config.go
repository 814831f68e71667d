// Package config handles loading and resolving the layered reposync
// configuration: defaults, environment, config file, local override
// file, then CLI flags (applied by the command layer).
package config

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"go.yaml.in/yaml/v3"

	"github.com/skaphos/reposync/internal/gitx"
	"github.com/skaphos/reposync/internal/lock"
)

const (
	// LocalConfigFilename overrides config.yaml field-by-field when it
	// sits next to it.
	LocalConfigFilename = "config.local.yaml"
	// EnvConfig overrides the config file location.
	EnvConfig = "REPOSYNC_CONFIG"
	// EnvOwner supplies the GitHub owner.
	EnvOwner = "GITHUB_USER"
	// EnvToken supplies the GitHub API token.
	EnvToken = "GITHUB_TOKEN"

	defaultMaxRetries = 2
)

// Config is the resolved set of options governing one sync run.
// It is built once per invocation and immutable thereafter.
type Config struct {
	// Owner is the GitHub account whose repositories are synchronized.
	Owner string `yaml:"owner"`
	// Dest is the destination directory for clones.
	Dest string `yaml:"dest"`
	// Token authenticates API requests. Empty means public-only.
	Token string `yaml:"github_token,omitempty"`
	// UseHTTPS forces HTTPS clone URLs, skipping SSH probing.
	UseHTTPS bool `yaml:"use_https"`
	// DryRun reports intended operations without mutating anything.
	DryRun bool `yaml:"dry_run"`
	// Force skips safety checks on existing clones.
	Force bool `yaml:"force"`
	// MaxRetries bounds sync attempts per repository. Minimum 1.
	MaxRetries int `yaml:"max_retries"`
	// AutoStash stashes local changes around pulls and pops after.
	AutoStash bool `yaml:"auto_stash"`
	// SyncOnly updates existing clones only, skipping new clones.
	SyncOnly bool `yaml:"sync_only"`
	// SkipArchived excludes archived repositories from the run.
	SkipArchived bool `yaml:"skip_archived"`
	// SkipForks excludes forks from the run.
	SkipForks bool `yaml:"skip_forks"`
	// Exclude holds glob patterns matched against "owner/name".
	Exclude []string `yaml:"exclude"`
	// LockFile is the process-lock path. Defaults to a per-destination
	// file under the system temp directory.
	LockFile string `yaml:"lock_file"`
	// LogFile receives a copy of progress output when set.
	LogFile string `yaml:"log_file"`
}

// Default returns a Config with defaults applied. Dest falls back to
// ~/workspace, matching the original tool's convention.
func Default() Config {
	cfg := Config{MaxRetries: defaultMaxRetries}
	if home, err := os.UserHomeDir(); err == nil {
		cfg.Dest = filepath.Join(home, "workspace")
	}
	return cfg
}

// Resolve builds the effective configuration from defaults, detected
// environment values, and the config file chain. CLI flags are layered
// on top by the caller. The returned path is the config file used, or
// empty when none was found.
func Resolve(ctx context.Context, override string) (*Config, string, error) {
	cfg := Default()
	cfg.Owner = DetectOwner(ctx)
	cfg.Token = DetectToken(ctx)

	path, err := resolvePath(override)
	if err != nil {
		return nil, "", err
	}
	if path != "" {
		if err := mergeFile(&cfg, path); err != nil {
			if !os.IsNotExist(err) {
				return nil, "", err
			}
			path = ""
		} else {
			localPath := filepath.Join(filepath.Dir(path), LocalConfigFilename)
			if err := mergeFile(&cfg, localPath); err != nil && !os.IsNotExist(err) {
				return nil, "", err
			}
		}
	}

	cfg.normalize()
	return &cfg, path, nil
}

// DetectOwner finds the GitHub owner from the environment, falling
// back to the global git user name.
func DetectOwner(ctx context.Context) string {
	if owner := strings.TrimSpace(os.Getenv(EnvOwner)); owner != "" {
		return owner
	}
	out, err := gitx.RunCommand(ctx, "", "git", "config", "--global", "user.name")
	if err != nil {
		return ""
	}
	return strings.TrimSpace(out)
}

// DetectToken finds a GitHub token from the environment, falling back
// to the gh CLI's stored credentials.
func DetectToken(ctx context.Context) string {
	if token := strings.TrimSpace(os.Getenv(EnvToken)); token != "" {
		return token
	}
	out, err := gitx.RunCommand(ctx, "", "gh", "auth", "token")
	if err != nil {
		return ""
	}
	return strings.TrimSpace(out)
}

// Excluded reports whether the repository full name matches any
// configured exclude glob.
func (c *Config) Excluded(fullName string) bool {
	for _, pattern := range c.Exclude {
		pattern = strings.TrimSpace(pattern)
		if pattern == "" {
			continue
		}
		if ok, err := doublestar.Match(pattern, fullName); err == nil && ok {
			return true
		}
	}
	return false
}

// Normalize clamps and defaults derived fields. Exported for the
// command layer to re-apply after layering flag values.
func (c *Config) Normalize() { c.normalize() }

func (c *Config) normalize() {
	if c.MaxRetries < 1 {
		c.MaxRetries = defaultMaxRetries
	}
	if strings.TrimSpace(c.LockFile) == "" && strings.TrimSpace(c.Dest) != "" {
		c.LockFile = lock.DefaultPath(c.Dest)
	}
}

func resolvePath(override string) (string, error) {
	if override != "" {
		return override, nil
	}
	if env := os.Getenv(EnvConfig); env != "" {
		return env, nil
	}
	base, err := os.UserConfigDir()
	if err != nil {
		return "", nil
	}
	candidate := filepath.Join(base, "reposync", "config.yaml")
	if _, err := os.Stat(candidate); err != nil {
		return "", nil
	}
	return candidate, nil
}

// mergeFile unmarshals path over cfg. YAML only overwrites fields that
// appear in the document, which gives per-field precedence for free.
func mergeFile(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return yaml.Unmarshal(data, cfg)
}
