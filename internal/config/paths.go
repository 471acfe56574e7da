package config

import (
	"os"
	"path/filepath"
	"runtime"
)

// LogDirectory returns the directory used for mediasink log files.
//
// Locations:
//   - Windows: %LOCALAPPDATA%\mediasink\logs
//   - Unix: ~/.config/mediasink/logs
func LogDirectory() string {
	if runtime.GOOS == "windows" {
		localAppData := os.Getenv("LOCALAPPDATA")
		if localAppData == "" {
			homeDir, err := os.UserHomeDir()
			if err != nil {
				return filepath.Join(os.TempDir(), "mediasink-logs")
			}
			localAppData = filepath.Join(homeDir, "AppData", "Local")
		}
		return filepath.Join(localAppData, "mediasink", "logs")
	}

	configDir, err := os.UserConfigDir()
	if err != nil {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return filepath.Join(os.TempDir(), "mediasink-logs")
		}
		return filepath.Join(homeDir, ".config", "mediasink", "logs")
	}
	return filepath.Join(configDir, "mediasink", "logs")
}

// EnsureLogDirectory creates the log directory if it doesn't exist.
// Uses 0700 permissions to restrict log access to the owner.
func EnsureLogDirectory() error {
	return os.MkdirAll(LogDirectory(), 0700)
}
