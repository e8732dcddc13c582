package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"termssh/backend/internal/diagnostics"
)

func diagnoseCmd(opts *rootOptions) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "diagnose [target]",
		Short: "Print environment information for troubleshooting connections",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, store, err := opts.load()
			if err != nil {
				return err
			}

			dopts := diagnostics.Options{
				Settings:     s,
				SettingsPath: store.Path(),
				Manager:      opts.manager(s),
				ListenAddr:   s.Addr(),
			}
			if len(args) == 1 {
				dopts.Target = args[0]
			}

			report := diagnostics.Collect(cmd.Context(), dopts)
			if asJSON {
				return writeJSON(cmd.OutOrStdout(), report)
			}
			_, err = fmt.Fprint(cmd.OutOrStdout(), report.String())
			return err
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "print as JSON")
	return cmd
}
