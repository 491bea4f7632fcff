package config

import (
	"os"
	"path/filepath"
)

// appDirName is the directory under the user config dir holding slidecast
// state (config file, token, artifact ledger).
const appDirName = "slidecast"

// baseDir returns the slidecast directory under the user config dir.
// Falls back to the current directory if the config dir cannot be resolved
// (HOME unset in minimal environments).
func baseDir() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "." + appDirName
	}

	return filepath.Join(dir, appDirName)
}

// DefaultConfigPath is where Load looks for the config file by default.
func DefaultConfigPath() string {
	return filepath.Join(baseDir(), "config.toml")
}

// TokenPath is where the saved OAuth2 token lives.
func TokenPath() string {
	return filepath.Join(baseDir(), "token.json")
}

// LedgerPath is where the artifact ledger database lives.
func LedgerPath() string {
	return filepath.Join(baseDir(), "artifacts.db")
}

// DefaultStagingDir is the local staging directory for downloaded
// presentations: "Input folder" under the user's Downloads directory.
func DefaultStagingDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join("Downloads", "Input folder")
	}

	return filepath.Join(home, "Downloads", "Input folder")
}
