package gitx_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/skaphos/reposync/internal/gitx"
)

var _ = Describe("IsRepo", func() {
	It("recognizes a directory with .git metadata", func() {
		dir := GinkgoT().TempDir()
		Expect(os.Mkdir(filepath.Join(dir, ".git"), 0o755)).To(Succeed())
		Expect(gitx.IsRepo(dir)).To(BeTrue())
	})

	It("recognizes a worktree-style .git file", func() {
		dir := GinkgoT().TempDir()
		Expect(os.WriteFile(filepath.Join(dir, ".git"), []byte("gitdir: ../real\n"), 0o644)).To(Succeed())
		Expect(gitx.IsRepo(dir)).To(BeTrue())
	})

	It("rejects a plain directory", func() {
		Expect(gitx.IsRepo(GinkgoT().TempDir())).To(BeFalse())
	})

	It("rejects a missing path", func() {
		Expect(gitx.IsRepo(filepath.Join(GinkgoT().TempDir(), "nope"))).To(BeFalse())
	})
})

var _ = Describe("Clone", func() {
	It("invokes git clone with url and destination", func() {
		mock := &MockRunner{Responses: map[string]MockResponse{
			":clone https://example.com/a.git /tmp/dst": {},
		}}
		Expect(gitx.Clone(context.Background(), mock, "https://example.com/a.git", "/tmp/dst")).To(Succeed())
		Expect(mock.Calls).To(HaveLen(1))
	})

	It("wraps runner failures", func() {
		mock := &MockRunner{Responses: map[string]MockResponse{
			":clone u d": {Err: errors.New("fatal: repository not found")},
		}}
		err := gitx.Clone(context.Background(), mock, "u", "d")
		Expect(err).To(MatchError(ContainSubstring("git clone")))
	})
})

var _ = Describe("PullRebase", func() {
	It("runs pull --rebase in the repository directory", func() {
		mock := &MockRunner{Responses: map[string]MockResponse{
			"/repos/a:pull --rebase": {Output: "Already up to date."},
		}}
		Expect(gitx.PullRebase(context.Background(), mock, "/repos/a")).To(Succeed())
	})

	It("surfaces rebase conflicts as errors", func() {
		mock := &MockRunner{Responses: map[string]MockResponse{
			"/repos/a:pull --rebase": {Err: errors.New("CONFLICT (content)")},
		}}
		err := gitx.PullRebase(context.Background(), mock, "/repos/a")
		Expect(err).To(MatchError(ContainSubstring("git pull --rebase")))
	})
})

var _ = Describe("StashPush", func() {
	It("does nothing when the working tree is clean", func() {
		mock := &MockRunner{Responses: map[string]MockResponse{
			"/repos/a:status --porcelain": {Output: ""},
		}}
		created, err := gitx.StashPush(context.Background(), mock, "/repos/a")
		Expect(err).NotTo(HaveOccurred())
		Expect(created).To(BeFalse())
		Expect(mock.Calls).To(HaveLen(1))
	})

	It("stashes untracked files when the tree is dirty", func() {
		mock := &MockRunner{
			Responses: map[string]MockResponse{
				"/repos/a:status --porcelain": {Output: "?? new.txt\n M old.txt"},
			},
			Default: &MockResponse{},
		}
		created, err := gitx.StashPush(context.Background(), mock, "/repos/a")
		Expect(err).NotTo(HaveOccurred())
		Expect(created).To(BeTrue())
		Expect(mock.Calls).To(HaveLen(2))
		Expect(mock.Calls[1]).To(HavePrefix("/repos/a:stash push -u -m autostash-"))
	})

	It("propagates status failures without stashing", func() {
		mock := &MockRunner{Responses: map[string]MockResponse{
			"/repos/a:status --porcelain": {Err: errors.New("not a git repository")},
		}}
		created, err := gitx.StashPush(context.Background(), mock, "/repos/a")
		Expect(err).To(HaveOccurred())
		Expect(created).To(BeFalse())
		Expect(mock.Calls).To(HaveLen(1))
	})
})

var _ = Describe("UnpushedCommits", func() {
	It("returns the oneline log against the upstream", func() {
		mock := &MockRunner{Responses: map[string]MockResponse{
			"/repos/a:log @{u}..HEAD --oneline": {Output: "abc1234 wip"},
		}}
		out, err := gitx.UnpushedCommits(context.Background(), mock, "/repos/a")
		Expect(err).NotTo(HaveOccurred())
		Expect(out).To(Equal("abc1234 wip"))
	})

	It("errors when no upstream is configured", func() {
		mock := &MockRunner{Responses: map[string]MockResponse{
			"/repos/a:log @{u}..HEAD --oneline": {Err: errors.New("no upstream configured")},
		}}
		_, err := gitx.UnpushedCommits(context.Background(), mock, "/repos/a")
		Expect(err).To(HaveOccurred())
	})
})

var _ = Describe("RunCommand", func() {
	It("returns trimmed stdout on success", func() {
		out, err := gitx.RunCommand(context.Background(), "", "echo", "hello")
		Expect(err).NotTo(HaveOccurred())
		Expect(out).To(Equal("hello"))
	})

	It("reports missing binaries", func() {
		_, err := gitx.RunCommand(context.Background(), "", "reposync-no-such-binary")
		Expect(err).To(HaveOccurred())
	})

	It("honors context cancellation", func() {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		_, err := gitx.RunCommand(ctx, "", "sleep", "5")
		Expect(err).To(HaveOccurred())
	})
})

var _ = Describe("GitRunner", func() {
	It("defaults the binary to git", func() {
		r := &gitx.GitRunner{}
		out, err := r.Run(context.Background(), "", "version")
		if err != nil {
			Skip("git is not installed: " + err.Error())
		}
		Expect(strings.HasPrefix(out, "git version")).To(BeTrue())
	})
})
