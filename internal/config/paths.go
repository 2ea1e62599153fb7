package config

import (
	"os"
	"path/filepath"
)

// Paths locates the profile directory and its files.
type Paths struct {
	Dir    string // profile directory, default ~/.concierge
	Config string // config file path
	State  string // sqlite kv store path
}

// ResolvePaths determines the profile paths, honoring CONCIERGE_HOME.
func ResolvePaths() (Paths, error) {
	dir := os.Getenv("CONCIERGE_HOME")
	if dir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return Paths{}, err
		}
		dir = filepath.Join(home, ".concierge")
	}
	return Paths{
		Dir:    dir,
		Config: filepath.Join(dir, "config.yaml"),
		State:  filepath.Join(dir, "state.db"),
	}, nil
}
