// Package config loads and validates steiger project configuration.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

// DefaultFile is read when no --config flag is given.
const DefaultFile = "steiger.yml"

// Config is the top-level steiger configuration.
type Config struct {
	Services Services       `yaml:"services"`
	Deploy   Releases       `yaml:"deploy"`
	Registry RegistryConfig `yaml:"registry"`
}

// RegistryConfig controls where and how images are published.
type RegistryConfig struct {
	// Repo is the default destination prefix, e.g. ghcr.io/acme.
	Repo string `yaml:"repo"`
	// Tag is a tag template; see gitver.ExpandTag.
	Tag string `yaml:"tag"`
	// Insecure lists registry hosts reached over plain HTTP.
	Insecure []string `yaml:"insecure"`
	// Credentials is an env var prefix; PREFIX_USER and PREFIX_PASS
	// take precedence over the docker credential store.
	Credentials string `yaml:"credentials"`
}

// Load reads and validates configuration from path. Files ending in
// .toml are parsed as TOML, everything else as YAML.
func Load(path string) (*Config, error) {
	if path == "" {
		path = DefaultFile
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	cfg, err := Parse(data, strings.EqualFold(filepath.Ext(path), ".toml"))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// Parse decodes a configuration document without validating it.
// TOML tables carry no key order, so services and releases from a TOML
// document are ordered by name.
func Parse(data []byte, isTOML bool) (*Config, error) {
	if isTOML {
		var doc map[string]any
		if err := toml.Unmarshal(data, &doc); err != nil {
			return nil, fmt.Errorf("parsing toml: %w", err)
		}
		converted, err := yaml.Marshal(doc)
		if err != nil {
			return nil, fmt.Errorf("converting toml: %w", err)
		}
		data = converted
	}

	cfg := defaults()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func defaults() *Config {
	return &Config{
		Registry: RegistryConfig{Tag: "{tag}"},
	}
}
