// Copyright 2026 The Handforge Authors
// SPDX-License-Identifier: Apache-2.0

package commands

import (
	"fmt"

	"github.com/handforge-project/handforge/cmd/handforge/cli"
)

// Version is stamped at build time via -ldflags.
var Version = "dev"

// Root builds the complete handforge CLI command tree.
func Root() *cli.Command {
	return &cli.Command{
		Name: "handforge",
		Description: `Handforge: parametric 3D-printable hand device builder.

Assemble solid-modeling programs from measured parameters, compile
them through an external geometry engine, and export print-ready
meshes.`,
		Subcommands: []*cli.Command{
			newAssembleCommand(),
			newCompileCommand(),
			newExportCommand(),
			newParamsCommand(),
			newHistoryCommand(),
			newTuneCommand(),
			{
				Name:    "version",
				Summary: "Print version information",
				Run: func(args []string) error {
					fmt.Printf("handforge %s\n", Version)
					return nil
				},
			},
		},
		Examples: []cli.Example{
			{
				Description: "Compile the full device with a wider palm",
				Command:     "handforge compile --set palm_width=72",
			},
			{
				Description: "Inspect the program text without compiling",
				Command:     "handforge assemble --target gauntlet",
			},
			{
				Description: "Export every part as a separate STL in one archive",
				Command:     "handforge export --partitioned -o parts.zip",
			},
			{
				Description: "Tune parameters interactively before building",
				Command:     "handforge tune",
			},
		},
	}
}
