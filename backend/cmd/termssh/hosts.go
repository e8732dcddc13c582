package main

import (
	"encoding/json"
	"fmt"
	"io"
	"log"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

// quietLogger 命令行输出只保留结果，组件日志丢弃
func quietLogger() *log.Logger {
	return log.New(io.Discard, "", 0)
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func hostsCmd(opts *rootOptions) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "hosts",
		Short: "List hosts declared in the ssh config",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, _, err := opts.load()
			if err != nil {
				return err
			}
			mgr := opts.manager(s)
			if nf := mgr.ConfigNotFound(); nf != nil {
				return nf
			}

			hosts, err := mgr.GetSSHHosts()
			if err != nil {
				return err
			}
			if asJSON {
				return writeJSON(cmd.OutOrStdout(), hosts)
			}

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			for _, h := range hosts {
				fmt.Fprintf(tw, "%s\t%s\n", h.Alias, h.DisplayAddress)
			}
			return tw.Flush()
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "print as JSON")
	return cmd
}
