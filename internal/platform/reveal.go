// Package platform wraps the OS-specific shell integrations: revealing a
// file in the system file manager and opening it with the default
// application.
package platform

import (
	"fmt"
	"os/exec"
	"path/filepath"
	"runtime"
)

// File managers probed on Linux when xdg-open is unavailable
var linuxFileManagers = []string{"nautilus", "dolphin", "thunar", "nemo", "pcmanfm"}

// Reveal opens the system file manager with the given file highlighted.
// Linux file managers have no standard selection protocol, so the parent
// directory opens instead.
func Reveal(path string) error {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("resolve path: %w", err)
	}

	switch runtime.GOOS {
	case "darwin":
		return exec.Command("open", "-R", absPath).Run()
	case "windows":
		return exec.Command("explorer", "/select,", absPath).Run()
	case "linux":
		return openDirLinux(filepath.Dir(absPath))
	default:
		return fmt.Errorf("unsupported operating system: %s", runtime.GOOS)
	}
}

// OpenWithDefaultApp opens the file with whatever application the OS
// associates with it
func OpenWithDefaultApp(path string) error {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("resolve path: %w", err)
	}

	switch runtime.GOOS {
	case "darwin":
		return exec.Command("open", absPath).Run()
	case "windows":
		return exec.Command("cmd", "/c", "start", "", absPath).Run()
	case "linux":
		return exec.Command("xdg-open", absPath).Run()
	default:
		return fmt.Errorf("unsupported operating system: %s", runtime.GOOS)
	}
}

func openDirLinux(dir string) error {
	if err := exec.Command("xdg-open", dir).Run(); err == nil {
		return nil
	}

	for _, fm := range linuxFileManagers {
		if _, err := exec.LookPath(fm); err == nil {
			return exec.Command(fm, dir).Run()
		}
	}
	return fmt.Errorf("no suitable file manager found")
}
