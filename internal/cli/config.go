package cli

import (
	"bytes"
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config holds per-project defaults for flags the user would otherwise
// repeat on every invocation. Flags always win over config values.
type Config struct {
	Database string `yaml:"database"`
	User     string `yaml:"user"`
	UserName string `yaml:"user_name"`
}

// DefaultConfigPath is looked up when --config is not given. A missing
// default config is fine; a missing explicit one is an error.
const DefaultConfigPath = "quilt.yaml"

// LoadConfig reads and parses a config file. Unknown fields are
// rejected so typos fail loudly.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	var cfg Config
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	return &cfg, nil
}

// applyConfig fills unset options from the config file, if any.
func applyConfig(opts *RootOptions) error {
	path := opts.Config
	explicit := path != ""
	if !explicit {
		path = DefaultConfigPath
	}

	cfg, err := LoadConfig(path)
	if err != nil {
		if !explicit && errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return err
	}

	if opts.Database == "" {
		opts.Database = cfg.Database
	}
	if opts.User == "" {
		opts.User = cfg.User
	}
	if opts.UserName == "" {
		opts.UserName = cfg.UserName
	}
	return nil
}
