package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

// ConfigFileName is the name of the PartFlow configuration file.
const ConfigFileName = "partflow.toml"

// FindConfigFile walks up from the given directory to find partflow.toml.
// Returns the absolute path to the config file, or an empty string if not found.
// Stops at the filesystem root.
func FindConfigFile(startDir string) (string, error) {
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return "", fmt.Errorf("resolving path: %w", err)
	}
	for {
		candidate := filepath.Join(dir, ConfigFileName)
		if info, err := os.Stat(candidate); err == nil && !info.IsDir() {
			return candidate, nil
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			// Reached filesystem root.
			return "", nil
		}
		dir = parent
	}
}

// LoadFromFile parses the TOML file at the given path and returns the
// configuration and TOML metadata. The metadata can be used to detect
// unknown keys via MetaData.Undecoded().
func LoadFromFile(path string) (*Config, toml.MetaData, error) {
	var cfg Config
	md, err := toml.DecodeFile(path, &cfg)
	if err != nil {
		return nil, md, fmt.Errorf("loading config %s: %w", path, err)
	}
	return &cfg, md, nil
}

// Load finds and parses the configuration for dir. When explicitPath is set
// it is loaded directly and must exist; otherwise partflow.toml is searched
// for upward from dir, and its absence is not an error. The returned path is
// empty when no file was used.
func Load(dir, explicitPath string) (*Config, *toml.MetaData, string, error) {
	path := explicitPath
	if path == "" {
		found, err := FindConfigFile(dir)
		if err != nil {
			return nil, nil, "", err
		}
		if found == "" {
			return nil, nil, "", nil
		}
		path = found
	}

	cfg, md, err := LoadFromFile(path)
	if err != nil {
		return nil, nil, path, err
	}
	return cfg, &md, path, nil
}
