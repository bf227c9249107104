package config

import (
	"os"
	"path/filepath"
)

// defaultDBPath returns the default journal database path.
//
// Returns: ~/.config/cobble/journal.db.
func defaultDBPath() string {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "./journal.db"
	}

	return filepath.Join(homeDir, ".config", "cobble", "journal.db")
}

// DefaultPath returns the user configuration file path.
//
// Returns: ~/.config/cobble/config.yaml.
func DefaultPath() string {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "./cobble.yaml"
	}

	return filepath.Join(homeDir, ".config", "cobble", "config.yaml")
}
