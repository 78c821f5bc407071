// Copyright 2026 The Handforge Authors
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefault(t *testing.T) {
	cfg := Default()
	if cfg.Paths.Output != "output" {
		t.Errorf("default output = %q, want output", cfg.Paths.Output)
	}
	if len(cfg.Compiler.Candidates) == 0 || cfg.Compiler.Candidates[0] != "openscad" {
		t.Errorf("default candidates = %v", cfg.Compiler.Candidates)
	}
	if cfg.Paths.HistoryDB == "" || cfg.Paths.Cache == "" {
		t.Error("default paths should be populated")
	}
}

func TestLoad_NoPathUsesDefaults(t *testing.T) {
	orig := os.Getenv(EnvVar)
	defer os.Setenv(EnvVar, orig)
	os.Unsetenv(EnvVar)

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Paths.Output != Default().Paths.Output {
		t.Error("no path should mean defaults")
	}
}

func TestLoad_FileOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "handforge.yaml")
	content := `
paths:
  output: /tmp/prosthetics
  layout: /etc/handforge/layout.jsonc
compiler:
  candidates: ["/opt/openscad/bin/openscad"]
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Paths.Output != "/tmp/prosthetics" {
		t.Errorf("output = %q", cfg.Paths.Output)
	}
	if cfg.Paths.Layout != "/etc/handforge/layout.jsonc" {
		t.Errorf("layout = %q", cfg.Paths.Layout)
	}
	if len(cfg.Compiler.Candidates) != 1 || cfg.Compiler.Candidates[0] != "/opt/openscad/bin/openscad" {
		t.Errorf("candidates = %v", cfg.Compiler.Candidates)
	}
	// Unset fields keep defaults.
	if cfg.Paths.HistoryDB != Default().Paths.HistoryDB {
		t.Error("omitted history_db should keep its default")
	}
}

func TestLoad_EnvVariable(t *testing.T) {
	orig := os.Getenv(EnvVar)
	defer os.Setenv(EnvVar, orig)

	path := filepath.Join(t.TempDir(), "handforge.yaml")
	if err := os.WriteFile(path, []byte("paths:\n  output: via-env\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	os.Setenv(EnvVar, path)

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Paths.Output != "via-env" {
		t.Errorf("output = %q, want via-env", cfg.Paths.Output)
	}
}

func TestLoad_MissingFileFails(t *testing.T) {
	if _, err := Load("/nonexistent/handforge.yaml"); err == nil {
		t.Fatal("expected error for missing explicit config file")
	}
}
