package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/hugo-lorenzo-mato/splitmind/internal/fsutil"
)

// UserConfigPath returns the per-user configuration path searched by Load.
func UserConfigPath() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("cannot determine home directory: %w", err)
	}
	return filepath.Join(homeDir, ".config", "splitmind", ".splitmind.yaml"), nil
}

// EnsureConfigFile writes DefaultConfigYAML to path unless a file already
// exists there. It reports whether the file was created.
func EnsureConfigFile(path string) (bool, error) {
	if _, statErr := os.Stat(path); statErr == nil {
		return false, nil
	} else if !os.IsNotExist(statErr) {
		return false, fmt.Errorf("checking config: %w", statErr)
	}

	if err := fsutil.WriteFileAtomic(path, []byte(DefaultConfigYAML), 0o600); err != nil {
		return false, fmt.Errorf("creating config: %w", err)
	}
	return true, nil
}
