// Copyright 2026 The Handforge Authors
// SPDX-License-Identifier: Apache-2.0

package commands

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/pflag"
	"golang.org/x/term"

	"github.com/handforge-project/handforge/cmd/handforge/cli"
	"github.com/handforge-project/handforge/lib/assemble"
	"github.com/handforge-project/handforge/lib/export"
	"github.com/handforge-project/handforge/lib/params"
	"github.com/handforge-project/handforge/lib/tuneui"
)

func newTuneCommand() *cli.Command {
	var (
		common     commonFlags
		paramSet   paramFlags
		targetName string
		offline    bool
	)
	return &cli.Command{
		Name:    "tune",
		Summary: "Tune parameters interactively, then build",
		Description: `Open the interactive parameter tuner. Values are edited against a
live preview of the assembled program text; on build-and-exit the
tuned values are compiled exactly like 'handforge compile' and the
snapshot is printed so a fitting session can be saved.`,
		Examples: []cli.Example{
			{Command: "handforge tune --params measured.json"},
		},
		Flags: func() *pflag.FlagSet {
			fs := pflag.NewFlagSet("tune", pflag.ContinueOnError)
			common.register(fs)
			paramSet.register(fs)
			fs.StringVar(&targetName, "target", "full", "build target: full, gauntlet, or palm")
			fs.BoolVar(&offline, "offline", false, "build from primitive geometry without the engine")
			return fs
		},
		Run: func(args []string) error {
			if !term.IsTerminal(int(os.Stdin.Fd())) {
				return fmt.Errorf("tune needs an interactive terminal")
			}
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

			model := tuneui.New(rt.forge.Overrides.Merge(set), target, rt.forge.AssembleOptions())
			final, err := tea.NewProgram(model, tea.WithAltScreen()).Run()
			if err != nil {
				return fmt.Errorf("running tuner: %w", err)
			}
			tuned, ok := final.(tuneui.Model)
			if !ok || !tuned.Accepted() {
				return nil
			}

			// The tuned values become the sticky overrides for the
			// build, so a subsequent target change keeps them.
			edited := tuned.Set()
			values := make(map[string]params.Value, len(params.Schema))
			for _, field := range params.Schema {
				if v, present := edited.Get(field.Name); present {
					values[field.Name] = v
				}
			}
			rt.forge.Overrides.Replace(values)

			m, result, err := buildMesh(rt, params.NewSet(), target, offline)
			if err != nil {
				return err
			}
			if result.Placeholder {
				fmt.Fprintln(os.Stderr, "warning: engine build failed, wrote placeholder geometry")
			}
			path := filepath.Join(rt.cfg.Paths.Output, export.Filename(target.String(), time.Now()))
			if err := writeMeshFile(path, m, target.String()); err != nil {
				return err
			}
			recordBuild(rt, target, params.NewSet(), path)

			snapshot, err := params.Snapshot(edited)
			if err == nil {
				os.Stdout.Write(snapshot)
			}
			fmt.Println(path)
			return nil
		},
	}
}
