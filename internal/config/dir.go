// Package config resolves patchbay's configuration directory and settings.
package config

import (
	"os"
	"path/filepath"
	"runtime"
)

// Dir returns the patchbay configuration directory.
//
// Resolution:
//   - $PATCHBAY_CONFIG_HOME if set (explicit override)
//   - $XDG_CONFIG_HOME/patchbay if set (respects XDG on any platform)
//   - %AppData%/patchbay on Windows
//   - ~/.config/patchbay on macOS and Linux
func Dir() string {
	// Explicit override
	if dir := os.Getenv("PATCHBAY_CONFIG_HOME"); dir != "" {
		return dir
	}

	// XDG override (works on any platform)
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "patchbay")
	}

	// Windows: use AppData
	if runtime.GOOS == "windows" {
		if appData := os.Getenv("APPDATA"); appData != "" {
			return filepath.Join(appData, "patchbay")
		}
	}

	// macOS and Linux: ~/.config/patchbay
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".config", "patchbay")
}

// EnvFile returns the path of the global env file for non-secret settings.
func EnvFile() string {
	dir := Dir()
	if dir == "" {
		return ""
	}
	return filepath.Join(dir, "env")
}
