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
	"github.com/handforge-project/handforge/lib/params"
	"github.com/handforge-project/handforge/lib/scene"
)

func newExportCommand() *cli.Command {
	var (
		common      commonFlags
		paramSet    paramFlags
		targetName  string
		outputPath  string
		layoutPath  string
		format      string
		partitioned bool
		offline     bool
	)
	return &cli.Command{
		Name:    "export",
		Summary: "Export print-ready meshes",
		Description: `Export the device as print-ready geometry. The default is one
combined ASCII STL of the chosen target. With --partitioned the
printable parts are compiled separately and written as one zip
archive with a "<part>.stl" entry per part, which is what most
slicers want for multi-part plates.

With --offline the parts come from primitive geometry instead of the
engine, arranged by the assembly layout.`,
		Examples: []cli.Example{
			{Command: "handforge export -o hand.stl"},
			{Command: "handforge export --partitioned -o parts.zip"},
			{Command: "handforge export --offline --partitioned --layout layout.json"},
		},
		Flags: func() *pflag.FlagSet {
			fs := pflag.NewFlagSet("export", pflag.ContinueOnError)
			common.register(fs)
			paramSet.register(fs)
			fs.StringVar(&targetName, "target", "full", "build target for combined export")
			fs.StringVarP(&outputPath, "output", "o", "", "output file (default: timestamped name in the output directory)")
			fs.StringVar(&layoutPath, "layout", "", "assembly layout override file")
			fs.StringVar(&format, "format", "stl", "output format (only stl is supported)")
			fs.BoolVar(&partitioned, "partitioned", false, "write a zip archive with one STL per part")
			fs.BoolVar(&offline, "offline", false, "build from primitive geometry without the engine")
			return fs
		},
		Run: func(args []string) error {
			switch format {
			case "stl":
			case "step":
				return fmt.Errorf("STEP export is not supported")
			default:
				return fmt.Errorf("unknown format %q (only stl is supported)", format)
			}
			rt, err := newRuntime(common)
			if err != nil {
				return err
			}
			if layoutPath != "" {
				rt.cfg.Paths.Layout = layoutPath
			}
			set, err := paramSet.apply(rt.forge.Overrides)
			if err != nil {
				return err
			}

			if !partitioned {
				target, ok := assemble.ParseTarget(targetName)
				if !ok {
					return fmt.Errorf("unknown target %q: want full, gauntlet, or palm", targetName)
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
			}

			groups, err := partGroups(rt, set, offline)
			if err != nil {
				return err
			}
			path := outputPath
			if path == "" {
				name := fmt.Sprintf("parts_%s.zip", time.Now().UTC().Format("20060102-150405"))
				path = filepath.Join(rt.cfg.Paths.Output, name)
			}
			if err := writeArchiveFile(path, groups); err != nil {
				return err
			}
			fmt.Println(path)
			return nil
		},
	}
}

// partGroups produces the per-part component groups for a partitioned
// export. Offline builds partition the primitive assembly; engine
// builds compile each printable part target on its own so every part
// is a standalone mesh in its native print orientation.
func partGroups(rt *runtime, set *params.Set, offline bool) ([]scene.ComponentGroup, error) {
	layout, err := rt.loadLayout()
	if err != nil {
		return nil, err
	}
	if offline {
		merged := rt.forge.Overrides.Merge(set)
		groups := scene.FlattenPartitioned(forge.OfflineAssembly(merged, layout))
		if len(groups) == 0 {
			return nil, fmt.Errorf("offline assembly produced no geometry")
		}
		return groups, nil
	}

	var groups []scene.ComponentGroup
	for _, target := range []assemble.Target{assemble.TargetGauntlet, assemble.TargetPalm} {
		m, result, err := rt.forge.Generate(context.Background(), set, target)
		if err != nil {
			return nil, err
		}
		if result.Placeholder {
			fmt.Fprintf(os.Stderr, "warning: %s build failed, archived placeholder geometry\n", target)
		}
		groups = append(groups, scene.ComponentGroup{Name: target.String(), Mesh: m})
	}
	return groups, nil
}

// writeArchiveFile writes the partitioned zip, creating the parent
// directory as needed.
func writeArchiveFile(path string, groups []scene.ComponentGroup) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("creating output directory: %w", err)
		}
	}
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating archive file: %w", err)
	}
	if err := export.WriteArchive(file, groups); err != nil {
		file.Close()
		return err
	}
	if err := file.Close(); err != nil {
		return fmt.Errorf("closing archive file: %w", err)
	}
	return nil
}
