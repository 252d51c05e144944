package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
)

const appName = "rsvp"

// ErrUnsupportedOS is returned when no standard directories are known for the platform.
var ErrUnsupportedOS = errors.New("unsupported operating system")

// Paths are the per-user directories the reader writes to.
type Paths struct {
	Config string
	Data   string
	Cache  string
	State  string
}

// DefaultPaths returns the platform directories for the current user.
func DefaultPaths() (Paths, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return Paths{}, fmt.Errorf("failed to find home directory: %w", err)
	}
	return pathsFor(runtime.GOOS, os.Getenv, home)
}

func pathsFor(goos string, getenv func(string) string, home string) (Paths, error) {
	env := func(key, fallback string) string {
		if dir := getenv(key); dir != "" {
			return dir
		}
		return fallback
	}

	switch goos {
	case "linux", "freebsd", "openbsd", "netbsd", "dragonfly":
		return Paths{
			Config: filepath.Join(env("XDG_CONFIG_HOME", filepath.Join(home, ".config")), appName),
			Data:   filepath.Join(env("XDG_DATA_HOME", filepath.Join(home, ".local", "share")), appName),
			Cache:  filepath.Join(env("XDG_CACHE_HOME", filepath.Join(home, ".cache")), appName),
			State:  filepath.Join(env("XDG_STATE_HOME", filepath.Join(home, ".local", "state")), appName),
		}, nil
	case "darwin":
		support := filepath.Join(home, "Library", "Application Support", appName)
		return Paths{
			Config: support,
			Data:   support,
			Cache:  filepath.Join(home, "Library", "Caches", appName),
			State:  support,
		}, nil
	case "windows":
		roaming := env("APPDATA", filepath.Join(home, "AppData", "Roaming"))
		local := env("LOCALAPPDATA", filepath.Join(home, "AppData", "Local"))
		return Paths{
			Config: filepath.Join(roaming, appName),
			Data:   filepath.Join(roaming, appName),
			Cache:  filepath.Join(local, appName, "cache"),
			State:  filepath.Join(local, appName),
		}, nil
	}
	return Paths{}, fmt.Errorf("%w: %s", ErrUnsupportedOS, goos)
}

func (p Paths) ConfigFile() string { return filepath.Join(p.Config, "config.yaml") }
func (p Paths) TextsDir() string   { return filepath.Join(p.Data, "texts") }
func (p Paths) FontsDir() string   { return filepath.Join(p.Data, "fonts") }
func (p Paths) BoltFile() string   { return filepath.Join(p.Cache, "texts.db") }
func (p Paths) LogFile() string    { return filepath.Join(p.State, appName+".log") }

// Ensure creates all directories.
func (p Paths) Ensure() error {
	for _, dir := range []string{p.Config, p.Data, p.Cache, p.State} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create %s: %w", dir, err)
		}
	}
	return nil
}
