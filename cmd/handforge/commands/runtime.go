// Copyright 2026 The Handforge Authors
// SPDX-License-Identifier: Apache-2.0

// Package commands builds the handforge CLI command tree: assembling
// program text, compiling build targets, exporting artifacts, browsing
// parameters and build history, and the interactive tuner.
package commands

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/pflag"

	"github.com/handforge-project/handforge/cmd/handforge/cli"
	"github.com/handforge-project/handforge/lib/cache"
	"github.com/handforge-project/handforge/lib/config"
	"github.com/handforge-project/handforge/lib/forge"
	"github.com/handforge-project/handforge/lib/history"
	"github.com/handforge-project/handforge/lib/params"
	"github.com/handforge-project/handforge/lib/scene"
	"github.com/handforge-project/handforge/lib/session"
)

// commonFlags are shared by every leaf command.
type commonFlags struct {
	configPath string
	verbose    bool
}

func (c *commonFlags) register(fs *pflag.FlagSet) {
	fs.StringVar(&c.configPath, "config", "", "config file path (default: $HANDFORGE_CONFIG, then built-in defaults)")
	fs.BoolVarP(&c.verbose, "verbose", "v", false, "enable debug logging")
}

// paramFlags are the parameter surfaces shared by build-producing
// commands: repeated --set assignments and an optional snapshot file.
// Both feed the process-wide override layer; --set wins over the file
// because it is applied last.
type paramFlags struct {
	assignments []string
	file        string
}

func (p *paramFlags) register(fs *pflag.FlagSet) {
	fs.StringArrayVar(&p.assignments, "set", nil, "parameter assignment name=value (repeatable)")
	fs.StringVar(&p.file, "params", "", "parameter snapshot file (JSON, comments tolerated)")
}

// apply layers the snapshot file and then the --set assignments onto
// the override set, returning the fresh base parameter set for this
// build.
func (p *paramFlags) apply(overrides *params.Overrides) (*params.Set, error) {
	if p.file != "" {
		data, err := os.ReadFile(p.file)
		if err != nil {
			return nil, fmt.Errorf("reading parameter file: %w", err)
		}
		values, err := params.Load(data)
		if err != nil {
			return nil, err
		}
		for name, value := range values {
			overrides.Apply(name, value)
		}
	}
	for _, assignment := range p.assignments {
		name, value, err := parseAssignment(assignment)
		if err != nil {
			return nil, err
		}
		overrides.Apply(name, value)
	}
	return params.NewSet(), nil
}

// parseAssignment splits "name=value" and converts the value according
// to the schema kind of the named field.
func parseAssignment(assignment string) (string, params.Value, error) {
	name, raw, found := strings.Cut(assignment, "=")
	if !found {
		return "", params.Value{}, fmt.Errorf("malformed --set %q: want name=value", assignment)
	}
	field, ok := params.FieldByName(name)
	if !ok {
		return "", params.Value{}, fmt.Errorf("unknown parameter %q (run 'handforge params list')", name)
	}
	switch field.Kind {
	case params.KindBool:
		b, err := strconv.ParseBool(raw)
		if err != nil {
			return "", params.Value{}, fmt.Errorf("parameter %q wants a boolean, got %q", name, raw)
		}
		return name, params.BoolValue(b), nil
	case params.KindNumber:
		f, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return "", params.Value{}, fmt.Errorf("parameter %q wants a number, got %q", name, raw)
		}
		return name, params.NumberValue(f), nil
	default:
		return name, params.TextValue(raw), nil
	}
}

// runtime bundles the per-invocation services every command builds
// from configuration.
type runtime struct {
	cfg    *config.Config
	logger *slog.Logger
	forge  *forge.Forge
}

func newRuntime(flags commonFlags) (*runtime, error) {
	cfg, err := config.Load(flags.configPath)
	if err != nil {
		return nil, err
	}
	logger := cli.NewLogger(flags.verbose)

	store, err := cache.Open(cfg.Paths.Cache, logger)
	if err != nil {
		// A broken cache directory degrades to compile-every-time.
		logger.Warn("compile cache disabled", "error", err)
		store = nil
	}

	sess := session.New(session.Config{
		Candidates: cfg.Compiler.Candidates,
		Assets:     session.Dir{Root: cfg.Paths.Assets},
		Logger:     logger,
	})

	return &runtime{
		cfg:    cfg,
		logger: logger,
		forge: &forge.Forge{
			Session:   sess,
			Cache:     store,
			Overrides: params.NewOverrides(),
			Logger:    logger,
		},
	}, nil
}

// openHistory opens the build history database.
func (r *runtime) openHistory() (*history.Store, error) {
	return history.Open(r.cfg.Paths.HistoryDB, r.logger)
}

// loadLayout reads the assembly layout override file when one is
// configured and present. Absence is not an error.
func (r *runtime) loadLayout() (*scene.Layout, error) {
	path := r.cfg.Paths.Layout
	if path == "" {
		return nil, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading layout file: %w", err)
	}
	return scene.LoadLayout(data)
}
