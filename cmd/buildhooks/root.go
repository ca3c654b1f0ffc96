// root.go: Command tree of the demo host
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira library
// SPDX-License-Identifier: MPL-2.0

package main

import (
	"fmt"
	"io"
	"text/tabwriter"

	buildhooks "github.com/agilira/go-buildhooks"
	"github.com/spf13/cobra"
)

type rootOptions struct {
	debug     bool
	logFormat string
	out       io.Writer
	errOut    io.Writer
}

func newCmdRoot(out, errOut io.Writer) *cobra.Command {
	opts := &rootOptions{out: out, errOut: errOut}

	cmd := &cobra.Command{
		Use:   "buildhooks",
		Short: "Drive build lifecycle hooks through a set of demo plugins",
		Long: `buildhooks hosts a hook registry the way a build tool would.

Quick start:
  buildhooks hooks                                 # list lifecycle hooks
  buildhooks build --build-config build.yaml       # run one simulated build
  buildhooks build --build-config build.yaml -w    # rebuild on config change`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.SetOut(out)
	cmd.SetErr(errOut)

	cmd.PersistentFlags().BoolVarP(&opts.debug, "debug", "D", false, "Enable debug logging")
	cmd.PersistentFlags().StringVar(&opts.logFormat, "log-format", "", "Log format: console or json (overrides the host config)")

	cmd.AddCommand(newCmdHooks(opts))
	cmd.AddCommand(newCmdBuild(opts))
	return cmd
}

func newCmdHooks(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "hooks",
		Short: "List lifecycle hooks and how they run their taps",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			registry := buildhooks.NewRegistry(buildhooks.RegistryConfig{})
			defer registry.Close()

			w := tabwriter.NewWriter(opts.out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "HOOK\tKIND")
			for _, name := range registry.HookNames() {
				h, err := registry.HookFor(string(name))
				if err != nil {
					return err
				}
				fmt.Fprintf(w, "%s\t%s\n", h.Name(), h.Kind())
			}
			return w.Flush()
		},
	}
}
