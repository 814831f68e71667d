// SPDX-License-Identifier: MIT
package cloneurl_test

import (
	"context"
	"os"
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/skaphos/reposync/internal/cloneurl"
	"github.com/skaphos/reposync/internal/model"
)

func sshDirWithKey() string {
	dir := GinkgoT().TempDir()
	Expect(os.WriteFile(filepath.Join(dir, "id_ed25519"), []byte("key"), 0o600)).To(Succeed())
	return dir
}

var _ = Describe("Selector.Choose", func() {
	repo := model.Repo{
		Name:          "widget",
		FullName:      "acme/widget",
		CloneURLHTTPS: "https://github.com/acme/widget.git",
		CloneURLSSH:   "git@github.com:acme/widget.git",
	}

	It("returns HTTPS when HTTPS is preferred, without probing", func() {
		probed := false
		s := &cloneurl.Selector{
			PreferHTTPS: true,
			SSHDir:      sshDirWithKey(),
			Probe:       func(context.Context) bool { probed = true; return true },
		}
		Expect(s.Choose(context.Background(), repo)).To(Equal(repo.CloneURLHTTPS))
		Expect(probed).To(BeFalse())
	})

	It("returns HTTPS when no SSH keys exist, without probing", func() {
		probed := false
		s := &cloneurl.Selector{
			SSHDir: GinkgoT().TempDir(),
			Probe:  func(context.Context) bool { probed = true; return true },
		}
		Expect(s.Choose(context.Background(), repo)).To(Equal(repo.CloneURLHTTPS))
		Expect(probed).To(BeFalse())
	})

	It("returns HTTPS when the SSH probe fails", func() {
		s := &cloneurl.Selector{
			SSHDir: sshDirWithKey(),
			Probe:  func(context.Context) bool { return false },
		}
		Expect(s.Choose(context.Background(), repo)).To(Equal(repo.CloneURLHTTPS))
	})

	It("returns the SSH URL when keys exist and the probe succeeds", func() {
		s := &cloneurl.Selector{
			SSHDir: sshDirWithKey(),
			Probe:  func(context.Context) bool { return true },
		}
		Expect(s.Choose(context.Background(), repo)).To(Equal(repo.CloneURLSSH))
	})

	It("synthesizes an SSH URL from the full name when the API gave none", func() {
		bare := repo
		bare.CloneURLSSH = ""
		s := &cloneurl.Selector{
			SSHDir: sshDirWithKey(),
			Probe:  func(context.Context) bool { return true },
		}
		Expect(s.Choose(context.Background(), bare)).To(Equal("git@github.com:acme/widget.git"))
	})

	It("probes at most once per selector", func() {
		probes := 0
		s := &cloneurl.Selector{
			SSHDir: sshDirWithKey(),
			Probe:  func(context.Context) bool { probes++; return true },
		}
		for i := 0; i < 5; i++ {
			s.Choose(context.Background(), repo)
		}
		Expect(probes).To(Equal(1))
	})

	It("falls back to HTTPS when neither SSH URL nor full name exist", func() {
		bare := model.Repo{Name: "widget", CloneURLHTTPS: "https://github.com/acme/widget.git"}
		s := &cloneurl.Selector{
			SSHDir: sshDirWithKey(),
			Probe:  func(context.Context) bool { return true },
		}
		Expect(s.Choose(context.Background(), bare)).To(Equal(bare.CloneURLHTTPS))
	})
})
