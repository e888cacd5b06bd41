package config

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
	"github.com/charmbracelet/log"
)

// ErrConfigExists is returned by WriteFile when the target exists and force
// is false.
var ErrConfigExists = errors.New("config file already exists")

const fileHeader = `# PartFlow workflow configuration.
#
# Steps run level by level: a step starts once every step it depends on has
# finished. Durations use Go syntax ("90s", "10m", "1h30m"); a step timeout
# of "0" disables the default_timeout for that step.

`

// Marshal encodes cfg as TOML.
func Marshal(cfg *Config) ([]byte, error) {
	var buf bytes.Buffer
	enc := toml.NewEncoder(&buf)
	enc.Indent = ""
	if err := enc.Encode(cfg); err != nil {
		return nil, fmt.Errorf("encoding config: %w", err)
	}
	return buf.Bytes(), nil
}

// WriteFile writes cfg to path as a commented partflow.toml. Parent
// directories are created as needed. An existing file is only replaced when
// force is true.
func WriteFile(path string, cfg *Config, force bool) error {
	if _, err := os.Stat(path); err == nil {
		if !force {
			return fmt.Errorf("%w: %s", ErrConfigExists, path)
		}
		log.Debug("overwriting existing config", "path", path)
	}

	body, err := Marshal(cfg)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating directory for %s: %w", path, err)
	}

	content := append([]byte(fileHeader), body...)
	if err := os.WriteFile(path, content, 0o644); err != nil {
		return fmt.Errorf("writing config %s: %w", path, err)
	}

	log.Debug("wrote config", "path", path)
	return nil
}
