package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"termssh/backend/internal/sshproc"
	"termssh/backend/pkg/pathx"
)

func argsCmd(opts *rootOptions) *cobra.Command {
	var (
		fromConfig bool
		keyPath    string
	)

	cmd := &cobra.Command{
		Use:   "args <target>",
		Short: "Print the ssh command line used for a target",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, _, err := opts.load()
			if err != nil {
				return err
			}

			configPath := ""
			if fromConfig {
				configPath = opts.manager(s).Location().Effective
			}
			if keyPath != "" {
				keyPath = pathx.Expand(keyPath)
			}

			argv := sshproc.BuildArgs(strings.TrimSpace(args[0]), fromConfig, configPath, keyPath)
			_, err = fmt.Fprintln(cmd.OutOrStdout(), strings.Join(append([]string{s.SSHBinary()}, argv...), " "))
			return err
		},
	}

	cmd.Flags().BoolVarP(&fromConfig, "from-config", "c", false, "target is a Host alias from the ssh config")
	cmd.Flags().StringVarP(&keyPath, "identity", "i", "", "private key file")
	return cmd
}
