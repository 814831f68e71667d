// SPDX-License-Identifier: MIT
//go:build windows

package lock

import (
	"os"

	"golang.org/x/sys/windows"
)

func flockExclusive(fd *os.File) error {
	ol := new(windows.Overlapped)
	return windows.LockFileEx(windows.Handle(fd.Fd()),
		windows.LOCKFILE_EXCLUSIVE_LOCK|windows.LOCKFILE_FAIL_IMMEDIATELY,
		0, 1, 0, ol)
}

func funlock(fd *os.File) error {
	ol := new(windows.Overlapped)
	return windows.UnlockFileEx(windows.Handle(fd.Fd()), 0, 1, 0, ol)
}
