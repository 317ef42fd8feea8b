package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/tidwall/jsonc"
	"gopkg.in/yaml.v3"

	"github.com/chenyanfei-m/iconfont-updater/internal/types"
)

// File names searched in the working directory, in order.
const (
	JSONFile = ".iconfontrc.json"
	YAMLFile = ".iconfontrc.yaml"
)

// fileConfig mirrors types.UserConfig with pointer fields so that keys the
// file leaves out can be told apart from keys set to a zero value.
type fileConfig struct {
	Output   *string             `json:"output" yaml:"output"`
	Includes *[]string           `json:"includes" yaml:"includes"`
	Flatten  *bool               `json:"flatten" yaml:"flatten"`
	Mirror   *types.MirrorConfig `json:"mirror" yaml:"mirror"`
}

// Load returns the effective configuration for dir. The returned config is
// always usable: a missing file yields the defaults, and a malformed one
// yields the defaults together with a non-nil error describing why, which
// callers report as a warning.
func Load(dir string) (*types.UserConfig, error) {
	cfg := types.DefaultUserConfig()

	path, data, err := readConfigFile(dir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return cfg, nil
		}
		return cfg, err
	}

	fc, err := parse(path, data)
	if err != nil {
		return cfg, fmt.Errorf("parsing %s: %w", filepath.Base(path), err)
	}

	merge(cfg, fc)

	if err := applyDefaults(cfg); err != nil {
		return types.DefaultUserConfig(), fmt.Errorf("applying defaults: %w", err)
	}

	if err := validate(cfg); err != nil {
		cfg.Mirror = types.MirrorConfig{}
		return cfg, fmt.Errorf("mirror disabled: %w", err)
	}

	return cfg, nil
}

// readConfigFile returns the first config file found in dir.
func readConfigFile(dir string) (string, []byte, error) {
	for _, name := range []string{JSONFile, YAMLFile} {
		path := filepath.Join(dir, name)
		data, err := os.ReadFile(path)
		if err == nil {
			return path, data, nil
		}
		if !errors.Is(err, os.ErrNotExist) {
			return path, nil, fmt.Errorf("reading config file %s: %w", path, err)
		}
	}
	return "", nil, os.ErrNotExist
}

func parse(path string, data []byte) (*fileConfig, error) {
	var fc fileConfig
	if strings.HasSuffix(path, ".json") {
		if err := json.Unmarshal(jsonc.ToJSON(data), &fc); err != nil {
			return nil, err
		}
		return &fc, nil
	}
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return nil, err
	}
	return &fc, nil
}

// merge overrides cfg key by key. Nested values replace the default
// wholesale; nothing is merged below the top level.
func merge(cfg *types.UserConfig, fc *fileConfig) {
	if fc.Output != nil {
		cfg.Output = *fc.Output
	}
	if fc.Includes != nil {
		cfg.Includes = append([]string{}, (*fc.Includes)...)
	}
	if fc.Flatten != nil {
		cfg.Flatten = *fc.Flatten
	}
	if fc.Mirror != nil {
		cfg.Mirror = *fc.Mirror
	}
}

// applyDefaults fills values a present-but-empty key leaves blank.
func applyDefaults(cfg *types.UserConfig) error {
	if cfg.Output == "" {
		cfg.Output = types.DefaultOutput
	}

	expanded, err := expandTilde(cfg.Output)
	if err != nil {
		return fmt.Errorf("expanding output: %w", err)
	}
	cfg.Output = expanded

	// Ensure prefix has trailing slash for consistent key building
	if cfg.Mirror.Prefix != "" && !strings.HasSuffix(cfg.Mirror.Prefix, "/") {
		cfg.Mirror.Prefix += "/"
	}

	return nil
}

// validate checks the mirror settings when a bucket is configured.
func validate(cfg *types.UserConfig) error {
	if !cfg.Mirror.Enabled() {
		return nil
	}
	if cfg.Mirror.Region == "" {
		return fmt.Errorf("mirror.region is required")
	}
	return nil
}

// expandTilde replaces ~ at the start of a path with the user's home directory.
func expandTilde(path string) (string, error) {
	if !strings.HasPrefix(path, "~") {
		return path, nil
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("getting home directory: %w", err)
	}

	if path == "~" {
		return homeDir, nil
	}

	if strings.HasPrefix(path, "~/") {
		return filepath.Join(homeDir, path[2:]), nil
	}

	return path, nil
}

// Locate returns the config file Load reads for dir, or "" when there is none.
func Locate(dir string) string {
	for _, name := range []string{JSONFile, YAMLFile} {
		path := filepath.Join(dir, name)
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}
