// Copyright 2026 The Handforge Authors
// SPDX-License-Identifier: Apache-2.0

// Package config provides configuration loading for the handforge CLI.
//
// Configuration comes from a single YAML file named by the
// HANDFORGE_CONFIG environment variable or the --config flag. With
// neither set, built-in defaults apply — there is no search path and
// no hidden override, so a build is always reproducible from the named
// file alone.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// EnvVar names the environment variable holding the config file path.
const EnvVar = "HANDFORGE_CONFIG"

// Config is the full tool configuration.
type Config struct {
	// Paths configures file locations.
	Paths PathsConfig `yaml:"paths"`

	// Compiler configures the external geometry compiler.
	Compiler CompilerConfig `yaml:"compiler"`
}

// PathsConfig configures file and directory locations.
type PathsConfig struct {
	// Assets is the directory holding the auxiliary .scad modules and
	// font files preloaded into the compiler session.
	Assets string `yaml:"assets"`

	// Output is where generated meshes and archives are written.
	Output string `yaml:"output"`

	// Cache is the compile-cache directory.
	Cache string `yaml:"cache"`

	// HistoryDB is the SQLite build-history database file.
	HistoryDB string `yaml:"history_db"`

	// Layout optionally names a JSONC placement-override file for the
	// combined assembly. Empty means built-in placements.
	Layout string `yaml:"layout"`
}

// CompilerConfig configures the external compiler.
type CompilerConfig struct {
	// Candidates is the ordered list of compiler locations to try;
	// the first that resolves wins.
	Candidates []string `yaml:"candidates"`
}

// Default returns the built-in configuration: per-user data and cache
// directories, ./output for artifacts.
func Default() *Config {
	dataDir := userDir(os.UserHomeDir, filepath.Join(".local", "share", "handforge"))
	cacheDir := userDir(os.UserCacheDir, "handforge")
	return &Config{
		Paths: PathsConfig{
			Assets:    filepath.Join(dataDir, "assets"),
			Output:    "output",
			Cache:     cacheDir,
			HistoryDB: filepath.Join(dataDir, "builds.db"),
		},
		Compiler: CompilerConfig{
			Candidates: []string{"openscad", "openscad-nightly"},
		},
	}
}

func userDir(base func() (string, error), suffix string) string {
	root, err := base()
	if err != nil {
		root = "."
	}
	return filepath.Join(root, suffix)
}

// Load reads the configuration. An explicit path wins; otherwise the
// HANDFORGE_CONFIG environment variable; otherwise Default(). Fields
// omitted from the file keep their default values.
func Load(path string) (*Config, error) {
	if path == "" {
		path = os.Getenv(EnvVar)
	}
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: reading %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("config: parsing %s: %w", path, err)
	}
	if len(cfg.Compiler.Candidates) == 0 {
		cfg.Compiler.Candidates = Default().Compiler.Candidates
	}
	return cfg, nil
}
