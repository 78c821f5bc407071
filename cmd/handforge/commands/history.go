// Copyright 2026 The Handforge Authors
// SPDX-License-Identifier: Apache-2.0

package commands

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"text/tabwriter"

	"github.com/spf13/pflag"

	"github.com/handforge-project/handforge/cmd/handforge/cli"
)

func newHistoryCommand() *cli.Command {
	return &cli.Command{
		Name:    "history",
		Summary: "Browse past builds",
		Subcommands: []*cli.Command{
			newHistoryListCommand(),
			newHistoryShowCommand(),
		},
	}
}

func newHistoryListCommand() *cli.Command {
	var common commonFlags
	return &cli.Command{
		Name:    "list",
		Summary: "List recorded builds, newest first",
		Flags: func() *pflag.FlagSet {
			fs := pflag.NewFlagSet("list", pflag.ContinueOnError)
			common.register(fs)
			return fs
		},
		Run: func(args []string) error {
			rt, err := newRuntime(common)
			if err != nil {
				return err
			}
			store, err := rt.openHistory()
			if err != nil {
				return err
			}
			defer store.Close()

			records, err := store.List(context.Background())
			if err != nil {
				return err
			}
			tw := tabwriter.NewWriter(os.Stdout, 2, 0, 3, ' ', 0)
			fmt.Fprintln(tw, "ID\tCREATED\tTARGET\tFILE")
			for _, record := range records {
				fmt.Fprintf(tw, "%d\t%s\t%s\t%s\n",
					record.ID, record.CreatedAt.Format("2006-01-02 15:04:05"), record.Target, record.Filename)
			}
			return tw.Flush()
		},
	}
}

func newHistoryShowCommand() *cli.Command {
	var common commonFlags
	return &cli.Command{
		Name:    "show",
		Summary: "Show one build record with its full parameter snapshot",
		Usage:   "handforge history show <id> [flags]",
		Flags: func() *pflag.FlagSet {
			fs := pflag.NewFlagSet("show", pflag.ContinueOnError)
			common.register(fs)
			return fs
		},
		Run: func(args []string) error {
			if len(args) != 1 {
				return fmt.Errorf("want exactly one build id argument")
			}
			id, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid build id %q", args[0])
			}
			rt, err := newRuntime(common)
			if err != nil {
				return err
			}
			store, err := rt.openHistory()
			if err != nil {
				return err
			}
			defer store.Close()

			record, err := store.Get(context.Background(), id)
			if err != nil {
				return err
			}
			fmt.Printf("build %d\n", record.ID)
			fmt.Printf("created: %s\n", record.CreatedAt.Format("2006-01-02 15:04:05 MST"))
			fmt.Printf("target:  %s\n", record.Target)
			fmt.Printf("file:    %s\n", record.Filename)
			fmt.Printf("parameters:\n%s", record.Snapshot)
			return nil
		},
	}
}
