package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	"github.com/ipdata/ipdata/internal/constants"
)

// ConfigDirectory is ~/.config/ipdata on every platform. On Windows the home
// directory is %USERPROFILE%.
func ConfigDirectory() (string, error) {
	home, err := homeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", constants.AppName), nil
}

func homeDir() (string, error) {
	if runtime.GOOS == "windows" {
		if p := os.Getenv("USERPROFILE"); p != "" {
			return p, nil
		}
		return "", errors.New("USERPROFILE is not set")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("locating home directory: %w", err)
	}
	return home, nil
}

// DefaultSettingsPath is where the credential override is persisted.
func DefaultSettingsPath() (string, error) {
	dir, err := ConfigDirectory()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, constants.SettingsFileName), nil
}
