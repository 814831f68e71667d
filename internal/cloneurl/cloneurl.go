// Package cloneurl decides the actual clone URL for a repository,
// probing SSH connectivity and falling back to HTTPS on any failure.
package cloneurl

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/skaphos/reposync/internal/gitx"
	"github.com/skaphos/reposync/internal/model"
)

const (
	// probeTimeout bounds the whole SSH handshake probe.
	probeTimeout = 5 * time.Second
	sshEndpoint  = "git@github.com"
)

// defaultKeyFiles are the private key files whose presence indicates
// local SSH key material.
var defaultKeyFiles = []string{"id_rsa", "id_ed25519"}

// Selector chooses between HTTPS and SSH clone URLs. The SSH probe
// result is memoized: connectivity cannot change mid-run and the probe
// would otherwise cost up to five seconds per repository.
type Selector struct {
	// PreferHTTPS short-circuits all SSH handling.
	PreferHTTPS bool
	// SSHDir is the directory holding key material. Defaults to ~/.ssh.
	SSHDir string
	// SSHBin is the ssh binary. Defaults to "ssh".
	SSHBin string
	// Debugf receives best-effort diagnostics. May be nil.
	Debugf func(format string, args ...any)

	// Probe is overridable in tests. It reports whether SSH to the
	// hosting endpoint is usable.
	Probe func(ctx context.Context) bool

	once   sync.Once
	usable bool
}

// Choose returns the clone URL to use for repo. It never fails: any
// problem during SSH detection degrades to the HTTPS URL.
func (s *Selector) Choose(ctx context.Context, repo model.Repo) string {
	https := strings.TrimSpace(repo.CloneURLHTTPS)
	if s.PreferHTTPS {
		return https
	}
	if !s.hasSSHKeys() {
		return https
	}
	if !s.probeUsable(ctx) {
		return https
	}
	if ssh := strings.TrimSpace(repo.CloneURLSSH); ssh != "" {
		return ssh
	}
	if full := strings.TrimSpace(repo.FullName); full != "" {
		return fmt.Sprintf("%s:%s.git", sshEndpoint, full)
	}
	return https
}

func (s *Selector) hasSSHKeys() bool {
	dir := s.SSHDir
	if dir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return false
		}
		dir = filepath.Join(home, ".ssh")
	}
	for _, name := range defaultKeyFiles {
		if _, err := os.Stat(filepath.Join(dir, name)); err == nil {
			return true
		}
	}
	return false
}

func (s *Selector) probeUsable(ctx context.Context) bool {
	s.once.Do(func() {
		probe := s.Probe
		if probe == nil {
			probe = s.runProbe
		}
		s.usable = probe(ctx)
	})
	return s.usable
}

// runProbe performs a bounded, non-interactive SSH handshake against
// the hosting endpoint. Exit code 0 means auth succeeded; exit code 1
// means the handshake was reached but rejected, which still proves
// network-level SSH works. Anything else is unusable.
func (s *Selector) runProbe(ctx context.Context) bool {
	bin := s.SSHBin
	if bin == "" {
		bin = "ssh"
	}
	probeCtx, cancel := context.WithTimeout(ctx, probeTimeout)
	defer cancel()

	_, err := gitx.RunCommand(probeCtx, "", bin,
		"-o", "BatchMode=yes",
		"-o", "ConnectTimeout=3",
		sshEndpoint)
	if err == nil {
		return true
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) && exitErr.ExitCode() == 1 {
		return true
	}
	s.debugf("ssh probe failed, falling back to https: %v", err)
	return false
}

func (s *Selector) debugf(format string, args ...any) {
	if s.Debugf != nil {
		s.Debugf(format, args...)
	}
}
