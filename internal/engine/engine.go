// Package engine orchestrates the sync run: it resolves the repository
// list, walks it sequentially, applies safety checks and retries, and
// aggregates results. It coordinates between the hosting, gitx,
// cloneurl, safety, lock, and bootstrap packages.
package engine

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/skaphos/reposync/internal/cliio"
	"github.com/skaphos/reposync/internal/cloneurl"
	"github.com/skaphos/reposync/internal/config"
	"github.com/skaphos/reposync/internal/gitx"
	"github.com/skaphos/reposync/internal/hosting"
	"github.com/skaphos/reposync/internal/model"
	"github.com/skaphos/reposync/internal/safety"
)

// retryDelay is the pause between failed attempts. The dominant
// failure mode is a partial clone from an interrupted transfer, so the
// target directory is removed first and the next attempt starts clean.
const retryDelay = time.Second

// Reporter receives operator-facing progress lines.
type Reporter interface {
	Infof(format string, args ...any)
	Debugf(format string, args ...any)
}

// Locker is the process-lock surface the engine needs.
type Locker interface {
	Acquire() bool
	Release()
	Path() string
}

// PromptFunc resolves a safety-check decision for one repository.
type PromptFunc func(repoName string, issues []string) (cliio.SafetyAction, error)

// Appliers are the per-repository side-effect steps invoked after a
// successful sync. Each is best-effort: a false return is logged and
// never revokes the synced status.
type Appliers struct {
	Gitignore func(repoPath string, dryRun bool) bool
	Editor    func(repoPath string, dryRun bool) bool
	Env       func(ctx context.Context, repoPath string, dryRun bool) bool
}

// Deps bundles the engine's collaborators. Zero-value fields get
// working defaults in New; tests inject fakes.
type Deps struct {
	Lister   hosting.Lister
	Runner   gitx.Runner
	Selector *cloneurl.Selector
	Lock     Locker
	Reporter Reporter
	Prompt   PromptFunc
	Appliers Appliers

	// Sleep, RemoveAll, MkdirAll, and Backup are filesystem/time seams
	// so tests can assert on mutations without touching disk.
	Sleep     func(d time.Duration)
	RemoveAll func(path string) error
	MkdirAll  func(path string, perm os.FileMode) error
	Backup    func(repoPath string) (string, error)
}

// Engine drives one sync run.
type Engine struct {
	cfg  *config.Config
	deps Deps
}

// New creates an Engine for the given resolved configuration.
func New(cfg *config.Config, deps Deps) *Engine {
	if deps.Runner == nil {
		deps.Runner = &gitx.GitRunner{}
	}
	if deps.Selector == nil {
		deps.Selector = &cloneurl.Selector{PreferHTTPS: cfg.UseHTTPS}
	}
	if deps.Reporter == nil {
		deps.Reporter = noopReporter{}
	}
	if deps.Prompt == nil {
		deps.Prompt = func(string, []string) (cliio.SafetyAction, error) {
			return cliio.ActionSkip, nil
		}
	}
	if deps.Sleep == nil {
		deps.Sleep = time.Sleep
	}
	if deps.RemoveAll == nil {
		deps.RemoveAll = os.RemoveAll
	}
	if deps.MkdirAll == nil {
		deps.MkdirAll = os.MkdirAll
	}
	if deps.Backup == nil {
		deps.Backup = safety.EmergencyBackup
	}
	return &Engine{cfg: cfg, deps: deps}
}

// Sync runs the whole synchronization state machine and returns the
// aggregate outcome. Success reflects whether the run itself
// completed; per-repository failures are recorded but non-fatal.
func (e *Engine) Sync(ctx context.Context) *model.SyncOutcome {
	outcome := model.NewSyncOutcome()
	cfg := e.cfg

	if cfg.Owner == "" {
		e.deps.Reporter.Infof("owner is not configured (set GITHUB_USER, git config user.name, or --owner)")
		return outcome.Fail(errors.New("owner is not configured"))
	}

	if !cfg.DryRun && e.deps.Lock != nil {
		if !e.deps.Lock.Acquire() {
			return outcome.Fail(fmt.Errorf("another sync run is already active (lock %s)", e.deps.Lock.Path()))
		}
		defer e.deps.Lock.Release()
	}

	e.deps.Reporter.Infof("listing repositories for %s", cfg.Owner)
	repos, err := e.deps.Lister.List(ctx, cfg.Owner)
	if err != nil {
		return outcome.Fail(fmt.Errorf("repository listing failed: %w", err))
	}
	if len(repos) == 0 {
		// Almost always a wrong owner or an auth failure, so this is a
		// configuration error rather than a successful no-op.
		return outcome.Fail(fmt.Errorf("no repositories found for %q", cfg.Owner))
	}
	e.deps.Reporter.Infof("found %d repositories", len(repos))

	if !cfg.DryRun {
		if err := e.deps.MkdirAll(cfg.Dest, 0o755); err != nil {
			return outcome.Fail(fmt.Errorf("creating destination %s: %w", cfg.Dest, err))
		}
	}

	for _, repo := range repos {
		if err := repo.Validate(); err != nil {
			e.deps.Reporter.Infof("   skipping invalid repository descriptor: %v", err)
			outcome.AddError(repo.Name, err)
			continue
		}
		if skip, reason := e.filtered(repo); skip {
			e.deps.Reporter.Debugf("   %s: skipped (%s)", repo.Name, reason)
			continue
		}

		repoPath := filepath.Join(cfg.Dest, repo.Name)
		if pathExists(repoPath) && !cfg.DryRun && !cfg.Force {
			abort, skipRepo := e.runSafetyGate(ctx, repo.Name, repoPath)
			if abort {
				e.deps.Reporter.Infof("aborted by user")
				outcome.Success = true
				return outcome
			}
			if skipRepo {
				continue
			}
		}

		if e.SyncWithRetries(ctx, repo) {
			outcome.Synced = append(outcome.Synced, repo.Name)
			e.applyBootstrap(ctx, repo.Name, repoPath)
			continue
		}
		outcome.AddError(repo.Name, fmt.Errorf("sync failed after %d attempts", e.maxRetries()))
	}

	outcome.Success = true
	e.deps.Reporter.Infof("done: %d/%d repositories synced", len(outcome.Synced), len(repos))
	return outcome
}

// runSafetyGate checks an existing clone for unsaved work and resolves
// the user's decision. It returns (abort, skip).
func (e *Engine) runSafetyGate(ctx context.Context, name, repoPath string) (bool, bool) {
	report := safety.CheckUnpushedChanges(ctx, e.deps.Runner, repoPath)
	if !report.HasBlockingIssues() {
		return false, false
	}
	action, err := e.deps.Prompt(name, report.Issues)
	if err != nil {
		e.deps.Reporter.Infof("   %s: prompt failed (%v), skipping", name, err)
		return false, true
	}
	switch action {
	case cliio.ActionQuit:
		return true, false
	case cliio.ActionSkip:
		e.deps.Reporter.Infof("   %s: skipped", name)
		return false, true
	default:
		// Continuing anyway: make a best-effort backup first. A backup
		// failure must not block — the user chose to proceed at risk.
		if backup, err := e.deps.Backup(repoPath); err != nil {
			e.deps.Reporter.Infof("   %s: emergency backup failed: %v", name, err)
		} else {
			e.deps.Reporter.Infof("   %s: emergency backup created at %s", name, backup)
		}
		return false, false
	}
}

func (e *Engine) filtered(repo model.Repo) (bool, string) {
	if e.cfg.Excluded(repo.FullName) {
		return true, "excluded by pattern"
	}
	if e.cfg.SkipArchived && repo.Archived {
		return true, "archived"
	}
	if e.cfg.SkipForks && repo.Fork {
		return true, "fork"
	}
	return false, ""
}

// SyncWithRetries attempts SyncOnce up to maxRetries times, removing
// the target directory and pausing between failed attempts.
func (e *Engine) SyncWithRetries(ctx context.Context, repo model.Repo) bool {
	max := e.maxRetries()
	repoPath := filepath.Join(e.cfg.Dest, repo.Name)

	for attempt := 1; attempt <= max; attempt++ {
		e.deps.Reporter.Infof("   %s: syncing (attempt %d/%d)", repo.Name, attempt, max)
		if e.SyncOnce(ctx, repo) {
			return true
		}
		if attempt < max {
			e.deps.Reporter.Infof("   %s: attempt %d failed, retrying", repo.Name, attempt)
			if !e.cfg.DryRun && pathExists(repoPath) {
				if err := e.deps.RemoveAll(repoPath); err != nil {
					e.deps.Reporter.Debugf("   %s: cleanup failed: %v", repo.Name, err)
				}
			}
			e.deps.Sleep(retryDelay)
		}
	}
	e.deps.Reporter.Infof("   %s: unrecoverable, all %d attempts failed", repo.Name, max)
	return false
}

// SyncOnce performs one idempotent clone-or-update for repo. It always
// returns a boolean; diagnostics go to the reporter.
func (e *Engine) SyncOnce(ctx context.Context, repo model.Repo) bool {
	repoPath := filepath.Join(e.cfg.Dest, repo.Name)
	if gitx.IsRepo(repoPath) {
		return e.update(ctx, repo.Name, repoPath)
	}
	if e.cfg.SyncOnly {
		e.deps.Reporter.Infof("   %s: not present locally, skipping clone (sync-only)", repo.Name)
		return true
	}
	return e.clone(ctx, repo, repoPath)
}

func (e *Engine) clone(ctx context.Context, repo model.Repo, repoPath string) bool {
	url := e.deps.Selector.Choose(ctx, repo)
	if url == "" {
		e.deps.Reporter.Infof("   %s: no clone URL resolvable", repo.Name)
		return false
	}
	if e.cfg.DryRun {
		e.deps.Reporter.Infof("   %s: would clone from %s", repo.Name, url)
		return true
	}
	e.deps.Reporter.Infof("   %s: cloning from %s", repo.Name, url)
	if err := gitx.Clone(ctx, e.deps.Runner, url, repoPath); err != nil {
		e.deps.Reporter.Infof("   %s: clone failed: %v", repo.Name, err)
		return false
	}
	e.deps.Reporter.Infof("   %s: clone complete", repo.Name)
	return true
}

func (e *Engine) update(ctx context.Context, name, repoPath string) bool {
	if e.cfg.DryRun {
		e.deps.Reporter.Infof("   %s: would update", name)
		return true
	}
	e.deps.Reporter.Infof("   %s: updating", name)

	stashed := false
	if e.cfg.AutoStash {
		created, err := gitx.StashPush(ctx, e.deps.Runner, repoPath)
		if err != nil {
			// Best-effort: a stash failure degrades to a plain pull.
			e.deps.Reporter.Debugf("   %s: auto-stash failed: %v", name, err)
		}
		stashed = created
	}

	if err := gitx.PullRebase(ctx, e.deps.Runner, repoPath); err != nil {
		// A failed pull must never silently strand stashed work.
		if stashed {
			e.popStash(ctx, name, repoPath)
		}
		e.deps.Reporter.Infof("   %s: update failed: %v", name, err)
		return false
	}
	if stashed {
		e.popStash(ctx, name, repoPath)
	}
	e.deps.Reporter.Infof("   %s: update complete", name)
	return true
}

func (e *Engine) popStash(ctx context.Context, name, repoPath string) {
	if err := gitx.StashPop(ctx, e.deps.Runner, repoPath); err != nil {
		e.deps.Reporter.Infof("   %s: stash restore failed, local changes remain stashed: %v", name, err)
	}
}

func (e *Engine) applyBootstrap(ctx context.Context, name, repoPath string) {
	a := e.deps.Appliers
	if a.Gitignore != nil && !a.Gitignore(repoPath, e.cfg.DryRun) {
		e.deps.Reporter.Debugf("   %s: gitignore setup failed", name)
	}
	if a.Editor != nil && !a.Editor(repoPath, e.cfg.DryRun) {
		e.deps.Reporter.Debugf("   %s: editor template failed", name)
	}
	if a.Env != nil && !a.Env(ctx, repoPath, e.cfg.DryRun) {
		e.deps.Reporter.Debugf("   %s: environment setup failed", name)
	}
}

func (e *Engine) maxRetries() int {
	if e.cfg.MaxRetries < 1 {
		return 1
	}
	return e.cfg.MaxRetries
}

func pathExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

type noopReporter struct{}

func (noopReporter) Infof(string, ...any)  {}
func (noopReporter) Debugf(string, ...any) {}
