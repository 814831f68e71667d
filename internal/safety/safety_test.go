package safety_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/skaphos/reposync/internal/model"
	"github.com/skaphos/reposync/internal/safety"
)

// scriptRunner answers git invocations from a map keyed by the joined
// argument list, ignoring the directory.
type scriptRunner struct {
	out map[string]string
	err map[string]error
}

func (s *scriptRunner) Run(_ context.Context, _ string, args ...string) (string, error) {
	key := strings.Join(args, " ")
	if err, ok := s.err[key]; ok {
		return "", err
	}
	return s.out[key], nil
}

func gitDir() string {
	dir := GinkgoT().TempDir()
	Expect(os.Mkdir(filepath.Join(dir, ".git"), 0o755)).To(Succeed())
	return dir
}

var _ = Describe("CheckUnpushedChanges", func() {
	It("returns no issues for a path that is not a repository", func() {
		r := &scriptRunner{out: map[string]string{"status --porcelain": " M x"}}
		report := safety.CheckUnpushedChanges(context.Background(), r, GinkgoT().TempDir())
		Expect(report.HasBlockingIssues()).To(BeFalse())
	})

	It("returns no issues for a clean repository", func() {
		r := &scriptRunner{out: map[string]string{}}
		report := safety.CheckUnpushedChanges(context.Background(), r, gitDir())
		Expect(report.Issues).To(BeEmpty())
	})

	It("reports uncommitted changes", func() {
		r := &scriptRunner{out: map[string]string{"status --porcelain": " M main.go"}}
		report := safety.CheckUnpushedChanges(context.Background(), r, gitDir())
		Expect(report.Issues).To(ConsistOf(model.IssueUncommitted))
	})

	It("reports unpushed commits", func() {
		r := &scriptRunner{out: map[string]string{"log @{u}..HEAD --oneline": "abc1234 wip"}}
		report := safety.CheckUnpushedChanges(context.Background(), r, gitDir())
		Expect(report.Issues).To(ConsistOf(model.IssueUnpushed))
	})

	It("reports stash entries", func() {
		r := &scriptRunner{out: map[string]string{"stash list": "stash@{0}: WIP"}}
		report := safety.CheckUnpushedChanges(context.Background(), r, gitDir())
		Expect(report.Issues).To(ConsistOf(model.IssueStash))
	})

	It("accumulates all three issues", func() {
		r := &scriptRunner{out: map[string]string{
			"status --porcelain":       "?? new.txt",
			"log @{u}..HEAD --oneline": "abc1234 wip",
			"stash list":               "stash@{0}: WIP",
		}}
		report := safety.CheckUnpushedChanges(context.Background(), r, gitDir())
		Expect(report.Issues).To(Equal([]string{
			model.IssueUncommitted,
			model.IssueUnpushed,
			model.IssueStash,
		}))
	})

	It("treats a missing upstream as nothing to report", func() {
		r := &scriptRunner{
			out: map[string]string{},
			err: map[string]error{"log @{u}..HEAD --oneline": errors.New("no upstream configured")},
		}
		report := safety.CheckUnpushedChanges(context.Background(), r, gitDir())
		Expect(report.Issues).To(BeEmpty())
	})
})

var _ = Describe("EmergencyBackup", func() {
	It("copies the tree to a timestamped sibling", func() {
		parent := GinkgoT().TempDir()
		repo := filepath.Join(parent, "widget")
		Expect(os.MkdirAll(filepath.Join(repo, "sub"), 0o755)).To(Succeed())
		Expect(os.WriteFile(filepath.Join(repo, "a.txt"), []byte("a"), 0o644)).To(Succeed())
		Expect(os.WriteFile(filepath.Join(repo, "sub", "b.txt"), []byte("b"), 0o644)).To(Succeed())

		backup, err := safety.EmergencyBackup(repo)
		Expect(err).NotTo(HaveOccurred())
		Expect(filepath.Dir(backup)).To(Equal(parent))
		Expect(filepath.Base(backup)).To(HavePrefix("widget.backup."))

		data, err := os.ReadFile(filepath.Join(backup, "sub", "b.txt"))
		Expect(err).NotTo(HaveOccurred())
		Expect(string(data)).To(Equal("b"))
	})

	It("fails for a missing source", func() {
		_, err := safety.EmergencyBackup(filepath.Join(GinkgoT().TempDir(), "absent"))
		Expect(err).To(HaveOccurred())
	})
})
