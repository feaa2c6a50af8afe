package config

import (
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

// Config holds keyman configuration.
type Config struct {
	Store StoreConfig `toml:"store"`
	UI    UIConfig    `toml:"ui"`
}

// StoreConfig says where the key file lives. Empty values fall back
// to the hidden directory in the user's home.
type StoreConfig struct {
	Dir  string `toml:"dir"`
	File string `toml:"file"`
}

// UIConfig controls display options.
type UIConfig struct {
	Color bool `toml:"color"`
	Emoji bool `toml:"emoji"`
}

// DefaultFile is the key file name used when none is configured.
const DefaultFile = "access_keys.json"

// hidden directory keeping the key file out of casual view
const defaultStoreDir = ".apikey_manager"

// Default returns the default configuration.
func Default() *Config {
	return &Config{
		Store: StoreConfig{Dir: "", File: DefaultFile},
		UI:    UIConfig{Color: true, Emoji: true},
	}
}

// StoreDir resolves the directory holding the key file.
func (c *Config) StoreDir() string {
	if c.Store.Dir != "" {
		return c.Store.Dir
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, defaultStoreDir)
}

// StoreFile resolves the key file name.
func (c *Config) StoreFile() string {
	if c.Store.File != "" {
		return c.Store.File
	}
	return DefaultFile
}

// ConfigDir returns the keyman config directory path.
func ConfigDir() string {
	dir := os.Getenv("XDG_CONFIG_HOME")
	if dir == "" {
		home, _ := os.UserHomeDir()
		dir = filepath.Join(home, ".config")
	}
	return filepath.Join(dir, "keyman")
}

func configPath() string {
	return filepath.Join(ConfigDir(), "config.toml")
}

// Load reads the config file, falling back to defaults if it doesn't
// exist or doesn't parse.
func Load() *Config {
	cfg := Default()

	data, err := os.ReadFile(configPath())
	if err != nil {
		return cfg
	}

	_ = toml.Unmarshal(data, cfg)
	return cfg
}

// Save writes the config to disk.
func Save(cfg *Config) error {
	path := configPath()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	return toml.NewEncoder(f).Encode(cfg)
}

// EnsureExists creates the config file with defaults if it doesn't exist.
func EnsureExists() error {
	path := configPath()
	if _, err := os.Stat(path); err == nil {
		return nil // already exists
	}
	return Save(Default())
}
