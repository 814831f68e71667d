// Package platform identifies the host platform once at startup so the
// rest of the program can thread a plain value instead of re-sensing
// the environment in deep call chains.
package platform

import (
	"os"
	"runtime"
	"strings"
)

// Info describes the detected host platform.
type Info struct {
	// Name is the short platform identifier: windows, wsl, macos, linux.
	Name string
	// DisplayName is the human-readable platform name.
	DisplayName string
}

// Detect returns the current platform. WSL reports itself as linux to
// the Go runtime, so it is distinguished by the kernel banner.
func Detect() Info {
	switch runtime.GOOS {
	case "windows":
		return Info{Name: "windows", DisplayName: "Windows"}
	case "darwin":
		return Info{Name: "macos", DisplayName: "macOS"}
	}
	if isWSL() {
		return Info{Name: "wsl", DisplayName: "WSL (Windows Subsystem for Linux)"}
	}
	return Info{Name: "linux", DisplayName: "Linux"}
}

func isWSL() bool {
	data, err := os.ReadFile("/proc/version")
	if err != nil {
		return false
	}
	return strings.Contains(strings.ToLower(string(data)), "microsoft")
}
