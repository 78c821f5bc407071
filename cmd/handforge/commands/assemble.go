// Copyright 2026 The Handforge Authors
// SPDX-License-Identifier: Apache-2.0

package commands

import (
	"fmt"
	"os"

	"github.com/alecthomas/chroma/v2/quick"
	"github.com/muesli/termenv"
	"github.com/spf13/pflag"
	"golang.org/x/term"

	"github.com/handforge-project/handforge/cmd/handforge/cli"
	"github.com/handforge-project/handforge/lib/assemble"
)

func newAssembleCommand() *cli.Command {
	var (
		common     commonFlags
		paramSet   paramFlags
		targetName string
		highlight  string
	)
	return &cli.Command{
		Name:    "assemble",
		Summary: "Print the assembled program text for a build target",
		Description: `Assemble the solid-modeling program for a build target and print it
to stdout without compiling anything. Useful for inspecting exactly
what a parameter change does to the emitted source.`,
		Examples: []cli.Example{
			{Command: "handforge assemble --target palm --set palm_width=70"},
			{Command: "handforge assemble --highlight=never > model.scad"},
		},
		Flags: func() *pflag.FlagSet {
			fs := pflag.NewFlagSet("assemble", pflag.ContinueOnError)
			common.register(fs)
			paramSet.register(fs)
			fs.StringVar(&targetName, "target", "full", "build target: full, gauntlet, or palm")
			fs.StringVar(&highlight, "highlight", "auto", "syntax highlighting: auto, always, never")
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

			text := assemble.Assemble(rt.forge.Overrides.Merge(set), target, rt.forge.AssembleOptions())
			if formatter := highlightFormatter(highlight); formatter != "" {
				// Chroma ships an OpenSCAD lexer; fall back to plain
				// output rather than failing the command over colors.
				if err := quick.Highlight(os.Stdout, text, "openscad", formatter, "monokai"); err == nil {
					return nil
				}
			}
			_, err = os.Stdout.WriteString(text)
			return err
		},
	}
}

// highlightFormatter resolves the highlight mode against stdout and
// the terminal's color capabilities. An empty result means plain
// output.
func highlightFormatter(mode string) string {
	if mode == "never" {
		return ""
	}
	if mode != "always" && !term.IsTerminal(int(os.Stdout.Fd())) {
		return ""
	}
	switch termenv.ColorProfile() {
	case termenv.TrueColor:
		return "terminal16m"
	case termenv.ANSI256:
		return "terminal256"
	case termenv.ANSI:
		return "terminal8"
	default:
		if mode == "always" {
			return "terminal256"
		}
		return ""
	}
}
