package config

import (
	"os"
	"path/filepath"
)

// UserConfigDir returns ~/.ttyplay, where config.yaml, the index cache
// database, and any bookmark files live.
func UserConfigDir() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(homeDir, ".ttyplay"), nil
}

// EnsureUserConfigDir creates the user config directory if it doesn't
// already exist.
func EnsureUserConfigDir() (string, error) {
	dir, err := UserConfigDir()
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}
	return dir, nil
}
