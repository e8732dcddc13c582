package main

import (
	"github.com/spf13/cobra"

	"termssh/backend/internal/theme"
)

func colorsCmd(opts *rootOptions) *cobra.Command {
	var fromConfig bool

	cmd := &cobra.Command{
		Use:   "colors <target>",
		Short: "Show the terminal colors resolved for a target",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, _, err := opts.load()
			if err != nil {
				return err
			}
			resolved := opts.manager(s).ResolveTarget(args[0], fromConfig)
			colors := theme.Resolve(resolved, s.DefaultColors, s.HostColors)

			return writeJSON(cmd.OutOrStdout(), map[string]any{
				"target":     resolved,
				"candidates": theme.Candidates(resolved),
				"colors":     colors,
			})
		},
	}

	cmd.Flags().BoolVarP(&fromConfig, "from-config", "c", false, "target is a Host alias from the ssh config")
	return cmd
}
