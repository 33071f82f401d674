package config

import (
	"os"
	"path/filepath"
)

const (
	ProjectsFile = "projects.json"
	SettingFile  = "setting.json"
	HistoryFile  = "history.db"
	LogFile      = "beequen.log"
)

// DefaultDataDir returns $XDG_CONFIG_HOME/beequen, or the platform
// equivalent. It falls back to ./.beequen when no config dir is known.
func DefaultDataDir() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return ".beequen"
	}
	return filepath.Join(dir, "beequen")
}

// ProjectsPath returns the location of the project store.
func (c *Config) ProjectsPath() string {
	return filepath.Join(c.Data.Dir, ProjectsFile)
}

// SettingPath returns the location of the settings store.
func (c *Config) SettingPath() string {
	return filepath.Join(c.Data.Dir, SettingFile)
}

// HistoryPath returns the location of the history database.
func (c *Config) HistoryPath() string {
	if c.History.Path != "" {
		return c.History.Path
	}
	return filepath.Join(c.Data.Dir, HistoryFile)
}

// LogPath returns the log file used by the terminal UI.
func (c *Config) LogPath() string {
	if c.Log.File != "" {
		return c.Log.File
	}
	return filepath.Join(c.Data.Dir, LogFile)
}
