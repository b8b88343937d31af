// Package config loads player settings from ~/.ttyplay/config.yaml,
// following the same single-file, os.IsNotExist-tolerant YAML pattern the
// teacher's wing.yaml loader uses: a missing file yields defaults rather
// than an error, and every field is optional so old config files keep
// loading after new ones are added.
package config

import (
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// PlayerConfig holds persisted player defaults. CLI flags always override
// these; these override the zero-value built-in defaults applied by
// Defaults.
type PlayerConfig struct {
	DefaultSpeed   float64 `yaml:"default_speed,omitempty"`
	Charset        string  `yaml:"charset,omitempty"` // "utf8" or "eightbit"
	CacheDir       string  `yaml:"cache_dir,omitempty"`
	NoCache        bool    `yaml:"no_cache,omitempty"`
	ServeAddr      string  `yaml:"serve_addr,omitempty"`
	ServeSecret    string  `yaml:"serve_secret,omitempty"`
	BookmarkPass   string  `yaml:"bookmark_passphrase,omitempty"`
	MetricsAddr    string  `yaml:"metrics_addr,omitempty"`
}

// Defaults returns the built-in defaults applied when config.yaml is
// absent or a field is left unset.
func Defaults() PlayerConfig {
	return PlayerConfig{
		DefaultSpeed: 1.0,
		Charset:      "utf8",
	}
}

// Load reads config.yaml from dir. A missing file is not an error; it
// returns the built-in defaults.
func Load(dir string) (PlayerConfig, error) {
	cfg := Defaults()
	path := filepath.Join(dir, "config.yaml")

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return PlayerConfig{}, err
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return PlayerConfig{}, err
	}
	return cfg, nil
}

// Save writes cfg to dir/config.yaml, creating dir if needed.
func Save(dir string, cfg PlayerConfig) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(dir, "config.yaml"), data, 0o644)
}
