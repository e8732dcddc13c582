package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"termssh/backend/internal/settings"
	"termssh/backend/internal/sshmanager"
)

var version = "0.0.0"

// rootOptions 所有子命令共享的参数，非空时覆盖设置文件
type rootOptions struct {
	settingsPath string
	sshConfig    string
	sshPath      string
}

// load 读取设置文件并应用命令行覆盖
func (o *rootOptions) load() (settings.Settings, *settings.Store, error) {
	path := o.settingsPath
	if path == "" {
		p, err := settings.DefaultPath()
		if err != nil {
			return settings.Settings{}, nil, err
		}
		path = p
	}
	store := settings.NewStore(path)
	s, err := store.Load()
	if err != nil {
		return settings.Settings{}, store, err
	}
	if o.sshConfig != "" {
		s.SSHConfigPath = o.sshConfig
	}
	if o.sshPath != "" {
		s.SSHPath = o.sshPath
	}
	return s, store, nil
}

func (o *rootOptions) manager(s settings.Settings) *sshmanager.Manager {
	return sshmanager.NewManager(s.SSHConfigPath, quietLogger())
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:           "termssh",
		Short:         "Open ssh sessions in a terminal bridge",
		Long:          "termssh lists hosts from your ssh config, resolves per-host terminal colors and bridges an ssh client process to a WebSocket terminal.",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().StringVar(&opts.settingsPath, "settings", "", "settings file (.json, .yaml or .yml)")
	cmd.PersistentFlags().StringVar(&opts.sshConfig, "ssh-config", "", "ssh config file (default ~/.ssh/config)")
	cmd.PersistentFlags().StringVar(&opts.sshPath, "ssh", "", "ssh client binary (default ssh)")

	cmd.AddCommand(
		hostsCmd(opts),
		colorsCmd(opts),
		argsCmd(opts),
		diagnoseCmd(opts),
		serveCmd(opts),
	)
	return cmd
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
