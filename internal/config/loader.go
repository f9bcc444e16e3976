package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"
)

// candidateNames are tried in order inside the config directory
var candidateNames = []string{"config.toml", "config.yaml", "config.yml"}

// LoadFile reads a config file, choosing the decoder by extension.
// Keys absent from the file keep their defaults.
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	cfg := Default()
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".toml":
		if _, err := toml.Decode(string(data), cfg); err != nil {
			return nil, fmt.Errorf("parse %s: %w", filepath.Base(path), err)
		}
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse %s: %w", filepath.Base(path), err)
		}
	default:
		return nil, fmt.Errorf("unsupported config format %q", ext)
	}
	return cfg, nil
}

// Load finds the first config file in dir and returns it with environment
// overrides applied and values validated. A missing file yields defaults.
// The returned path is empty when no file was found.
func Load(dir string) (*Config, string, *ValidationError, error) {
	cfg := Default()
	var found string

	for _, name := range candidateNames {
		path := filepath.Join(dir, name)
		loaded, err := LoadFile(path)
		if errors.Is(err, os.ErrNotExist) {
			continue
		}
		if err != nil {
			return nil, path, nil, err
		}
		cfg = loaded
		found = path
		break
	}

	cfg.ApplyEnvOverrides()
	return cfg, found, cfg.Validate(), nil
}
