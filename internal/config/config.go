// Package config loads and stores the mfatfm configuration file: connection
// parameters and browser preferences. Credentials setup beyond these fields
// (passwords, agent state) is the host's concern and is never written to
// disk here.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Config holds connection parameters and UI preferences.
type Config struct {
	Host    string `yaml:"host"`
	Port    int    `yaml:"port"`
	User    string `yaml:"user"`
	KeyFile string `yaml:"key_file,omitempty"`

	LocalDir   string `yaml:"local_dir,omitempty"`  // Starting directory for the local pane
	RemoteDir  string `yaml:"remote_dir,omitempty"` // Starting directory for the remote pane
	ShowHidden bool   `yaml:"show_hidden"`
}

// Default returns the configuration used when no file exists yet.
func Default() *Config {
	return &Config{
		Port:      22,
		LocalDir:  "~",
		RemoteDir: "~",
	}
}

// Path returns the location of the config file, creating the parent
// directory if needed.
func Path() (string, error) {
	base, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("resolve config dir: %w", err)
	}
	dir := filepath.Join(base, "mfatfm")
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return "", fmt.Errorf("create config dir: %w", err)
	}
	return filepath.Join(dir, "config.yaml"), nil
}

// Load reads the config file at path. A missing file yields defaults, not an
// error.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return Default(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if cfg.Port <= 0 {
		cfg.Port = 22
	}
	return cfg, nil
}

// Save writes the config to path with owner-only permissions.
func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("encode config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}
