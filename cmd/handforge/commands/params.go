// Copyright 2026 The Handforge Authors
// SPDX-License-Identifier: Apache-2.0

package commands

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/pflag"

	"github.com/handforge-project/handforge/cmd/handforge/cli"
	"github.com/handforge-project/handforge/lib/params"
)

func newParamsCommand() *cli.Command {
	return &cli.Command{
		Name:    "params",
		Summary: "Inspect build parameters",
		Subcommands: []*cli.Command{
			newParamsListCommand(),
			newParamsSnapshotCommand(),
		},
	}
}

func newParamsListCommand() *cli.Command {
	return &cli.Command{
		Name:    "list",
		Summary: "List every build parameter with its kind and default",
		Run: func(args []string) error {
			tw := tabwriter.NewWriter(os.Stdout, 2, 0, 3, ' ', 0)
			fmt.Fprintln(tw, "NAME\tKIND\tDEFAULT\tDESCRIPTION")
			for _, field := range params.Schema {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n",
					field.Name, field.Kind, formatDefault(field.Default), field.Doc)
			}
			return tw.Flush()
		},
	}
}

func newParamsSnapshotCommand() *cli.Command {
	var (
		common   commonFlags
		paramSet paramFlags
	)
	return &cli.Command{
		Name:    "snapshot",
		Summary: "Print the effective parameter values as a snapshot document",
		Description: `Resolve the effective value of every parameter (defaults, snapshot
file, --set assignments) and print the result as a JSON document that
can be fed back via --params.`,
		Examples: []cli.Example{
			{Command: "handforge params snapshot --set palm_width=72 > measured.json"},
		},
		Flags: func() *pflag.FlagSet {
			fs := pflag.NewFlagSet("snapshot", pflag.ContinueOnError)
			common.register(fs)
			paramSet.register(fs)
			return fs
		},
		Run: func(args []string) error {
			overrides := params.NewOverrides()
			set, err := paramSet.apply(overrides)
			if err != nil {
				return err
			}
			doc, err := params.Snapshot(overrides.Merge(set))
			if err != nil {
				return err
			}
			_, err = os.Stdout.Write(doc)
			return err
		},
	}
}

// formatDefault renders a default value for the listing.
func formatDefault(v params.Value) string {
	switch v.Kind {
	case params.KindBool:
		return fmt.Sprintf("%t", v.Bool)
	case params.KindNumber:
		return fmt.Sprintf("%g", v.Number)
	default:
		if v.Text == "" {
			return `""`
		}
		return fmt.Sprintf("%q", v.Text)
	}
}
