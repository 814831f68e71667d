// SPDX-License-Identifier: MIT
//go:build !windows

package lock

import (
	"os"
	"syscall"
)

func flockExclusive(fd *os.File) error {
	return syscall.Flock(int(fd.Fd()), syscall.LOCK_EX|syscall.LOCK_NB)
}

func funlock(fd *os.File) error {
	return syscall.Flock(int(fd.Fd()), syscall.LOCK_UN)
}
