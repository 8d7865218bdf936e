package main

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"go.uber.org/zap/zapcore"
	"gopkg.in/yaml.v3"
)

// Config is the CLI configuration. It is read from an optional YAML
// file and then overridden by any flags given on the command line.
type Config struct {
	Path       string `yaml:"path"`
	Compress   bool   `yaml:"compress"`
	LogLevel   string `yaml:"log_level"`
	Listen     string `yaml:"listen"`
	AutoCommit bool   `yaml:"auto_commit"`
}

// DefaultConfig returns the configuration used when nothing is set.
func DefaultConfig() Config {
	return Config{
		Path:     "cowdb.db",
		LogLevel: "warn",
		Listen:   ":3000",
	}
}

// LoadConfig reads a YAML config file on top of the defaults. Unknown
// fields are rejected.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	b, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("failed to read config file: %w", err)
	}
	dec := yaml.NewDecoder(bytes.NewReader(b))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return cfg, fmt.Errorf("failed to parse config file %q: %w", path, err)
	}
	return cfg, nil
}

// Validate checks the configuration for unusable values.
func (c Config) Validate() error {
	if c.Path == "" {
		return errors.New("config: path is required")
	}
	if _, err := zapcore.ParseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	return nil
}
