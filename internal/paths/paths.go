// Package paths resolves the kindstore configuration directory, data
// directory and kind schema file.
package paths

import (
	"os"
	"path/filepath"
	"runtime"
)

// CWD-relative directory names.
const (
	DefaultConfigDirName = ".kindstore"
	DefaultDataDirName   = ".kindstore-db"
	DefaultSchemaFile    = "kinds.yaml"
	appDirName           = "kindstore"
)

// Environment variable names for overrides.
const (
	EnvConfigDir = "KINDSTORE_CONFIG_DIR"
	EnvDataDir   = "KINDSTORE_DATA_DIR"
	EnvSchema    = "KINDSTORE_SCHEMA"
)

// platformDir holds platform lookups that tests may replace.
var platformDir = struct {
	homeDir       func() (string, error)
	userConfigDir func() (string, error)
}{
	homeDir:       os.UserHomeDir,
	userConfigDir: os.UserConfigDir,
}

// DefaultConfigDir returns the platform-specific configuration directory.
//
// Linux:   $XDG_CONFIG_HOME/kindstore (fallback ~/.config/kindstore)
// macOS:   ~/Library/Application Support/kindstore
// Windows: %APPDATA%/kindstore
func DefaultConfigDir() (string, error) {
	return platformPath("XDG_CONFIG_HOME", ".config")
}

// DefaultDataDir returns the platform-specific data directory.
//
// Linux:   $XDG_DATA_HOME/kindstore (fallback ~/.local/share/kindstore)
// macOS and Windows: same as the config directory.
func DefaultDataDir() (string, error) {
	return platformPath("XDG_DATA_HOME", filepath.Join(".local", "share"))
}

func platformPath(xdgEnv, homeFallback string) (string, error) {
	if runtime.GOOS != "linux" {
		dir, err := platformDir.userConfigDir()
		if err != nil {
			return "", err
		}
		return filepath.Join(dir, appDirName), nil
	}
	if xdg := os.Getenv(xdgEnv); xdg != "" {
		return filepath.Join(xdg, appDirName), nil
	}
	home, err := platformDir.homeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, homeFallback, appDirName), nil
}

// ResolveConfigDir returns the configuration directory:
// flag > KINDSTORE_CONFIG_DIR > $(CWD)/.kindstore.
func ResolveConfigDir(flag string) (string, error) {
	return firstAbs(DefaultConfigDirName, flag, os.Getenv(EnvConfigDir))
}

// ResolveDataDir returns the data directory:
// flag > config.yaml data_dir > KINDSTORE_DATA_DIR > $(CWD)/.kindstore-db.
func ResolveDataDir(flag, configValue string) (string, error) {
	return firstAbs(DefaultDataDirName, flag, configValue, os.Getenv(EnvDataDir))
}

// ResolveSchemaFile returns the kind schema path: flag > config.yaml schema >
// KINDSTORE_SCHEMA > <configDir>/kinds.yaml. Relative flag and environment
// values resolve against the working directory; a relative config value
// resolves against configDir.
func ResolveSchemaFile(flag, configValue, configDir string) (string, error) {
	if flag != "" {
		return filepath.Abs(flag)
	}
	if configValue != "" {
		if filepath.IsAbs(configValue) {
			return configValue, nil
		}
		return filepath.Join(configDir, configValue), nil
	}
	if env := os.Getenv(EnvSchema); env != "" {
		return filepath.Abs(env)
	}
	return filepath.Join(configDir, DefaultSchemaFile), nil
}

// firstAbs returns the first non-empty candidate made absolute, or the
// CWD-relative fallback.
func firstAbs(fallback string, candidates ...string) (string, error) {
	for _, c := range candidates {
		if c != "" {
			return filepath.Abs(c)
		}
	}
	cwd, err := os.Getwd()
	if err != nil {
		return "", err
	}
	return filepath.Join(cwd, fallback), nil
}
