// Copyright 2026 The Handforge Authors
// SPDX-License-Identifier: Apache-2.0

package commands

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/pflag"

	"github.com/handforge-project/handforge/cmd/handforge/cli"
	"github.com/handforge-project/handforge/lib/assemble"
	"github.com/handforge-project/handforge/lib/export"
	"github.com/handforge-project/handforge/lib/forge"
	"github.com/handforge-project/handforge/lib/mesh"
	"github.com/handforge-project/handforge/lib/params"
	"github.com/handforge-project/handforge/lib/scene"
)

func newCompileCommand() *cli.Command {
	var (
		common     commonFlags
		paramSet   paramFlags
		targetName string
		outputPath string
		noCache    bool
		offline    bool
	)
	return &cli.Command{
		Name:    "compile",
		Summary: "Compile a build target to an STL file",
		Description: `Compile a build target through the geometry engine and write the
resulting mesh as an ASCII STL file. The output lands in the
configured output directory under a timestamped name unless --output
names a specific file. Every successful write is recorded in the
build history.

With --offline no engine is used: the device is built from primitive
geometry instead, which is coarser but works without an engine
install.`,
		Examples: []cli.Example{
			{Command: "handforge compile --set palm_width=72 --set left_hand=true"},
			{Command: "handforge compile --target gauntlet -o gauntlet.stl"},
		},
		Flags: func() *pflag.FlagSet {
			fs := pflag.NewFlagSet("compile", pflag.ContinueOnError)
			common.register(fs)
			paramSet.register(fs)
			fs.StringVar(&targetName, "target", "full", "build target: full, gauntlet, or palm")
			fs.StringVarP(&outputPath, "output", "o", "", "output file (default: timestamped name in the output directory)")
			fs.BoolVar(&noCache, "no-cache", false, "bypass the compile cache")
			fs.BoolVar(&offline, "offline", false, "build from primitive geometry without the engine")
			return fs
		},
		Run: func(args []string) error {
			rt, err := newRuntime(common)
			if err != nil {
				return err
			}
			target, ok := assemble.ParseTarget(targetName)
			if !ok {
				return fmt.Errorf("unknown target %q: want full, gauntlet, or palm", targetName)
			}
			set, err := paramSet.apply(rt.forge.Overrides)
			if err != nil {
				return err
			}
			if noCache {
				rt.forge.Cache = nil
			}

			m, result, err := buildMesh(rt, set, target, offline)
			if err != nil {
				return err
			}
			if result.Placeholder {
				fmt.Fprintln(os.Stderr, "warning: engine build failed, wrote placeholder geometry")
			}

			path := outputPath
			if path == "" {
				path = filepath.Join(rt.cfg.Paths.Output, export.Filename(target.String(), time.Now()))
			}
			if err := writeMeshFile(path, m, target.String()); err != nil {
				return err
			}
			recordBuild(rt, target, set, path)

			fmt.Println(path)
			return nil
		},
	}
}

// buildMesh produces the target mesh through the engine, or from
// primitive geometry when offline is set.
func buildMesh(rt *runtime, set *params.Set, target assemble.Target, offline bool) (*mesh.Mesh, forge.Result, error) {
	if offline {
		layout, err := rt.loadLayout()
		if err != nil {
			return nil, forge.Result{}, err
		}
		merged := rt.forge.Overrides.Merge(set)
		return scene.Flatten(forge.OfflineAssembly(merged, layout)), forge.Result{}, nil
	}
	return rt.forge.Generate(context.Background(), set, target)
}

// writeMeshFile writes one combined ASCII STL, creating the parent
// directory as needed.
func writeMeshFile(path string, m *mesh.Mesh, name string) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("creating output directory: %w", err)
		}
	}
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating output file: %w", err)
	}
	if err := export.WriteCombined(file, m, name); err != nil {
		file.Close()
		return err
	}
	if err := file.Close(); err != nil {
		return fmt.Errorf("closing output file: %w", err)
	}
	return nil
}

// recordBuild appends the build to history. History failures never
// fail the build that produced a perfectly good file.
func recordBuild(rt *runtime, target assemble.Target, set *params.Set, path string) {
	store, err := rt.openHistory()
	if err != nil {
		rt.logger.Warn("build history unavailable", "error", err)
		return
	}
	defer store.Close()

	snapshot, err := params.Snapshot(rt.forge.Overrides.Merge(set))
	if err != nil {
		rt.logger.Warn("snapshot failed, history entry skipped", "error", err)
		return
	}
	if _, err := store.Add(context.Background(), target.String(), string(snapshot), filepath.Base(path)); err != nil {
		rt.logger.Warn("history write failed", "error", err)
	}
}
