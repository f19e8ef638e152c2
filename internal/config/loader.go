package config

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// DefaultConfigFile is the default configuration file name.
const DefaultConfigFile = ".lyricsmaster"

// XDGConfigFile is the file name looked up in XDGConfigDir.
const XDGConfigFile = "config.yaml"

// ErrConfigNotFound is returned when the configuration file does not exist.
var ErrConfigNotFound = errors.New("configuration file not found")

// ErrConfigExists is returned by WriteTemplate when the file already exists.
var ErrConfigExists = errors.New("configuration file already exists")

// Template is the commented configuration written by "lyricsmaster init".
//
//go:embed template.yaml
var Template []byte

// File represents the structure of the .lyricsmaster configuration file.
// Zero values leave the defaults in place.
type File struct {
	Provider string        `yaml:"provider,omitempty"`
	Folder   string        `yaml:"folder,omitempty"`
	Workers  int           `yaml:"workers,omitempty"`
	Timeout  time.Duration `yaml:"timeout,omitempty"`
	Tor      TorFile       `yaml:"tor,omitempty"`
}

// TorFile is the tor section of the configuration file.
type TorFile struct {
	Enabled    bool   `yaml:"enabled,omitempty"`
	Socks      string `yaml:"socks,omitempty"`
	Control    string `yaml:"control,omitempty"`
	Password   string `yaml:"password,omitempty"`
	CookieFile string `yaml:"cookieFile,omitempty"`
}

// LoadConfigFile loads a YAML configuration file.
// If the file does not exist, it returns ErrConfigNotFound.
// Callers should handle this error appropriately based on whether
// the config file path was explicitly specified by the user.
func LoadConfigFile(path string) (*File, error) {
	data, err := os.ReadFile(path) //nolint:gosec // User-provided config path is intentional
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrConfigNotFound
		}
		return nil, err
	}

	var cf File
	if err := yaml.Unmarshal(data, &cf); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	return &cf, nil
}

// FindConfigFile searches for the configuration file in the following order:
// 1. If configPath is specified, use it directly
// 2. Look for .lyricsmaster in the current directory
// 3. Look for .lyricsmaster in the user's home directory
// 4. Look for config.yaml in XDGConfigDir
//
// Returns the path to the configuration file if found, or empty string if not found.
func FindConfigFile(configPath string) string {
	if configPath != "" {
		if _, err := os.Stat(configPath); err == nil {
			return configPath
		}
		return ""
	}

	var candidates []string
	if cwd, err := os.Getwd(); err == nil {
		candidates = append(candidates, filepath.Join(cwd, DefaultConfigFile))
	}
	if home, err := os.UserHomeDir(); err == nil {
		candidates = append(candidates, filepath.Join(home, DefaultConfigFile))
	}
	candidates = append(candidates, filepath.Join(XDGConfigDir(), XDGConfigFile))

	for _, path := range candidates {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}

// Flag names whose values the configuration file may supply.
const (
	FlagProvider        = "provider"
	FlagFolder          = "folder"
	FlagWorkers         = "workers"
	FlagTimeout         = "timeout"
	FlagTor             = "tor"
	FlagSocksAddress    = "socks-addr"
	FlagControlAddress  = "control-addr"
	FlagControlPassword = "control-password"
	FlagCookieFile      = "cookie-file"
)

// Apply copies the values set in cf into c, except for those whose flag
// was given on the command line. changed reports whether a flag was given
// and may be nil.
func (c *Config) Apply(cf *File, changed func(flag string) bool) {
	if cf == nil {
		return
	}
	if changed == nil {
		changed = func(string) bool { return false }
	}

	setString := func(flag string, dst *string, v string) {
		if v != "" && !changed(flag) {
			*dst = v
		}
	}

	setString(FlagProvider, &c.Provider, cf.Provider)
	setString(FlagFolder, &c.SaveDir, cf.Folder)
	if cf.Workers != 0 && !changed(FlagWorkers) {
		c.Workers = cf.Workers
	}
	if cf.Timeout != 0 && !changed(FlagTimeout) {
		c.Timeout = cf.Timeout
	}

	if cf.Tor.Enabled && !changed(FlagTor) {
		c.Tor = true
	}
	setString(FlagSocksAddress, &c.SocksAddress, cf.Tor.Socks)
	setString(FlagControlAddress, &c.ControlAddress, cf.Tor.Control)
	setString(FlagControlPassword, &c.ControlPassword, cf.Tor.Password)
	setString(FlagCookieFile, &c.CookieFile, cf.Tor.CookieFile)
}

// WriteTemplate writes Template to path. It refuses to replace an existing
// file unless force is set.
func WriteTemplate(path string, force bool) error {
	if !force {
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("%w: %s", ErrConfigExists, path)
		}
	}
	if err := os.MkdirAll(filepath.Dir(path), 0750); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	if err := os.WriteFile(path, Template, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}
