// SPDX-License-Identifier: MIT
package reposync

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/skaphos/reposync/internal/bootstrap"
	"github.com/skaphos/reposync/internal/cliio"
	"github.com/skaphos/reposync/internal/cloneurl"
	"github.com/skaphos/reposync/internal/config"
	"github.com/skaphos/reposync/internal/engine"
	"github.com/skaphos/reposync/internal/hosting"
	"github.com/skaphos/reposync/internal/lock"
	"github.com/skaphos/reposync/internal/model"
	"github.com/skaphos/reposync/internal/platform"
)

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Clone or update every repository of a GitHub account",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		cfg, cfgPath, err := config.Resolve(ctx, flagConfig)
		if err != nil {
			return err
		}
		if cfgPath != "" {
			debugf(cmd, "using config %s", cfgPath)
		}
		applyFlagOverrides(cmd, cfg)
		cfg.Normalize()

		host := platform.Detect()
		infof(cmd, "platform:    %s", host.DisplayName)
		infof(cmd, "owner:       %s", orPlaceholder(cfg.Owner))
		infof(cmd, "destination: %s", cfg.Dest)
		if cfg.Token == "" {
			infof(cmd, "token:       none (private repositories will not be listed)")
		}

		rep, closeLog := newReporter(cmd, cfg)
		defer closeLog()

		eng := engine.New(cfg, engine.Deps{
			Lister: hosting.NewGitHubLister(ctx, cfg.Token),
			Selector: &cloneurl.Selector{
				PreferHTTPS: cfg.UseHTTPS,
				Debugf:      func(format string, args ...any) { debugf(cmd, format, args...) },
			},
			Lock:     lock.New(cfg.LockFile),
			Reporter: rep,
			Prompt:   newPrompter(cmd),
			Appliers: engine.Appliers{
				Gitignore: func(repoPath string, dryRun bool) bool {
					return bootstrap.Gitignore(cmd.ErrOrStderr(), repoPath, dryRun)
				},
				Editor: func(repoPath string, dryRun bool) bool {
					return bootstrap.EditorTemplate(cmd.ErrOrStderr(), repoPath, host.Name, dryRun)
				},
				Env: func(envCtx context.Context, repoPath string, dryRun bool) bool {
					return bootstrap.EnvSetup(envCtx, cmd.ErrOrStderr(), repoPath, dryRun)
				},
			},
		})

		outcome := eng.Sync(ctx)
		writeOutcome(cmd, outcome)
		if !outcome.Success {
			raiseExitCode(2)
		} else if len(outcome.Errors) > 0 {
			raiseExitCode(1)
		}
		return nil
	},
}

func init() {
	registerSyncFlags(syncCmd.Flags())
	rootCmd.AddCommand(syncCmd)
}

func registerSyncFlags(flags *pflag.FlagSet) {
	flags.String("owner", "", "GitHub owner whose repositories are synchronized")
	flags.String("dest", "", "destination directory for clones")
	flags.String("token", "", "GitHub API token (defaults to GITHUB_TOKEN or gh auth token)")
	flags.Bool("dry-run", false, "report intended operations without executing them")
	flags.Bool("force", false, "skip safety checks on existing clones")
	flags.Bool("use-https", false, "always clone over HTTPS, never probe SSH")
	flags.Int("max-retries", 0, "sync attempts per repository (minimum 1, default 2)")
	flags.Bool("sync-only", false, "only update existing clones, skip new clones")
	flags.Bool("auto-stash", false, "stash local changes before pulls and restore after")
	flags.Bool("skip-archived", false, "skip archived repositories")
	flags.Bool("skip-forks", false, "skip forked repositories")
	flags.String("lock-file", "", "override the process lock file path")
}

// applyFlagOverrides layers explicitly set flags over the file/env
// configuration. Flags the user did not touch leave the resolved
// values alone.
func applyFlagOverrides(cmd *cobra.Command, cfg *config.Config) {
	flags := cmd.Flags()
	if flags.Changed("owner") {
		cfg.Owner, _ = flags.GetString("owner")
	}
	if flags.Changed("dest") {
		cfg.Dest, _ = flags.GetString("dest")
	}
	if flags.Changed("token") {
		cfg.Token, _ = flags.GetString("token")
	}
	if flags.Changed("dry-run") {
		cfg.DryRun, _ = flags.GetBool("dry-run")
	}
	if flags.Changed("force") {
		cfg.Force, _ = flags.GetBool("force")
	}
	if flags.Changed("use-https") {
		cfg.UseHTTPS, _ = flags.GetBool("use-https")
	}
	if flags.Changed("max-retries") {
		cfg.MaxRetries, _ = flags.GetInt("max-retries")
	}
	if flags.Changed("sync-only") {
		cfg.SyncOnly, _ = flags.GetBool("sync-only")
	}
	if flags.Changed("auto-stash") {
		cfg.AutoStash, _ = flags.GetBool("auto-stash")
	}
	if flags.Changed("skip-archived") {
		cfg.SkipArchived, _ = flags.GetBool("skip-archived")
	}
	if flags.Changed("skip-forks") {
		cfg.SkipForks, _ = flags.GetBool("skip-forks")
	}
	if flags.Changed("lock-file") {
		cfg.LockFile, _ = flags.GetString("lock-file")
	}
}

// newPrompter returns the safety-decision seam. Without a terminal the
// prompt cannot be answered, so issues resolve to skip.
func newPrompter(cmd *cobra.Command) engine.PromptFunc {
	if !stdinIsTerminal(cmd) {
		return func(repoName string, issues []string) (cliio.SafetyAction, error) {
			infof(cmd, "   %s: unsaved work detected and no terminal to ask, skipping", repoName)
			return cliio.ActionSkip, nil
		}
	}
	return func(repoName string, issues []string) (cliio.SafetyAction, error) {
		return cliio.PromptSafetyAction(cmd.ErrOrStderr(), cmd.InOrStdin(), repoName, issues)
	}
}

// newReporter builds the engine reporter, teeing progress to the
// configured log file when one is set and the run is not a dry run.
func newReporter(cmd *cobra.Command, cfg *config.Config) (engine.Reporter, func()) {
	var logW io.Writer
	closeLog := func() {}
	if cfg.LogFile != "" && !cfg.DryRun {
		if f, err := os.OpenFile(cfg.LogFile, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644); err == nil {
			logW = f
			closeLog = func() { _ = f.Close() }
		} else {
			debugf(cmd, "log file unavailable: %v", err)
		}
	}
	return &cmdReporter{cmd: cmd, log: logW}, closeLog
}

type cmdReporter struct {
	cmd *cobra.Command
	log io.Writer
}

func (r *cmdReporter) Infof(format string, args ...any) {
	infof(r.cmd, format, args...)
	if r.log != nil {
		fmt.Fprintf(r.log, format+"\n", args...)
	}
}

func (r *cmdReporter) Debugf(format string, args ...any) {
	debugf(r.cmd, format, args...)
	if r.log != nil {
		fmt.Fprintf(r.log, format+"\n", args...)
	}
}

func writeOutcome(cmd *cobra.Command, outcome *model.SyncOutcome) {
	if len(outcome.Errors) > 0 {
		_, _ = fmt.Fprintln(cmd.ErrOrStderr(), "Failures:")
		rows := make([][]string, 0, len(outcome.Errors))
		for _, re := range outcome.Errors {
			name := re.Name
			if name == "" {
				name = "-"
			}
			rows = append(rows, []string{name, re.Err.Error()})
		}
		_ = cliio.WriteTable(cmd.ErrOrStderr(), false, []string{"REPO", "ERROR"}, rows)
	}
	infof(cmd, "synced %d repositories, %d errors", len(outcome.Synced), len(outcome.Errors))
}

func orPlaceholder(s string) string {
	if s == "" {
		return "(not detected)"
	}
	return s
}
