package config

import (
	"os"
	"path/filepath"
	"runtime"
)

// DefaultConfigPath returns the default path for the config file.
//   - Windows: %APPDATA%\imghub\config
//   - Unix: ~/.config/imghub/config
func DefaultConfigPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		home, herr := os.UserHomeDir()
		if herr != nil {
			return filepath.Join(".imghub", "config")
		}
		dir = filepath.Join(home, ".config")
	}
	return filepath.Join(dir, "imghub", "config")
}

// DefaultDataDir returns the directory that holds persisted history.
//   - Windows: %LOCALAPPDATA%\imghub
//   - Unix: $XDG_DATA_HOME/imghub or ~/.local/share/imghub
func DefaultDataDir() string {
	if runtime.GOOS == "windows" {
		if local := os.Getenv("LOCALAPPDATA"); local != "" {
			return filepath.Join(local, "imghub")
		}
	}
	if xdg := os.Getenv("XDG_DATA_HOME"); xdg != "" {
		return filepath.Join(xdg, "imghub")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(os.TempDir(), "imghub")
	}
	return filepath.Join(home, ".local", "share", "imghub")
}
