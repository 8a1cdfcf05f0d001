package strategies

import (
	"os"
	"path/filepath"
	"runtime"
	"strings"
)

// ChromeUserDataDir returns the Chrome user data directory for goos, or "" when unknown.
func ChromeUserDataDir(goos string, getenv func(string) string, home string) string {
	switch goos {
	case "windows":
		local := getenv("LOCALAPPDATA")
		if local == "" {
			return ""
		}
		return filepath.Join(local, "Google", "Chrome", "User Data")
	case "darwin":
		return filepath.Join(home, "Library", "Application Support", "Google", "Chrome")
	case "linux":
		return filepath.Join(home, ".config", "google-chrome")
	default:
		return ""
	}
}

// HasChromeProfile reports whether dir holds a Default or Profile* directory.
func HasChromeProfile(dir string) bool {
	if dir == "" {
		return false
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		return false
	}
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		if e.Name() == "Default" || strings.HasPrefix(e.Name(), "Profile") {
			return true
		}
	}
	return false
}

// ChromeProfileAvailable reports whether a local Chrome profile can supply cookies.
func ChromeProfileAvailable() bool {
	home, err := os.UserHomeDir()
	if err != nil {
		return false
	}
	return HasChromeProfile(ChromeUserDataDir(runtime.GOOS, os.Getenv, home))
}
