package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"termssh/backend/internal/sshmanager"
	"termssh/backend/internal/sshproc"
	"termssh/backend/internal/theme"
	"termssh/backend/internal/types"
	"termssh/backend/pkg/pathx"
	"termssh/backend/service/terminal"
)

func serveCmd(opts *rootOptions) *cobra.Command {
	var (
		fromConfig bool
		keyPath    string
		listen     string
		usePty     bool
	)

	cmd := &cobra.Command{
		Use:   "serve <target>",
		Short: "Start a WebSocket terminal session for a target and wait until it ends",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, _, err := opts.load()
			if err != nil {
				return err
			}
			if listen != "" {
				s.ListenAddr = listen
			}
			if cmd.Flags().Changed("pty") {
				s.UsePty = usePty
			}

			logger := log.New(cmd.ErrOrStderr(), "", log.LstdFlags)
			mgr := sshmanager.NewManager(s.SSHConfigPath, logger)
			if fromConfig {
				if nf := mgr.ConfigNotFound(); nf != nil {
					return nf
				}
			}
			if keyPath != "" {
				keyPath = pathx.Expand(keyPath)
				if err := sshmanager.CheckPrivateKey(keyPath); err != nil {
					logger.Printf("[connect] warning: %v", err)
				}
			}

			resolved := mgr.ResolveTarget(args[0], fromConfig)
			cfg := types.SessionConfig{
				Host:           resolved.TargetHost,
				UseConfigFile:  fromConfig,
				PrivateKeyPath: keyPath,
				Colors:         theme.Resolve(resolved, s.DefaultColors, s.HostColors),
			}
			if fromConfig {
				cfg.ConfigPath = mgr.Location().Effective
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return serve(ctx, cmd, s.Addr(), cfg, sshproc.Options{Binary: s.SSHBinary(), UsePty: s.UsePty, Logger: logger}, logger)
		},
	}

	cmd.Flags().BoolVarP(&fromConfig, "from-config", "c", false, "target is a Host alias from the ssh config")
	cmd.Flags().StringVarP(&keyPath, "identity", "i", "", "private key file")
	cmd.Flags().StringVar(&listen, "listen", "", "WebSocket listen address (default from settings or 127.0.0.1:45678)")
	cmd.Flags().BoolVar(&usePty, "pty", false, "run ssh inside a local pseudo-terminal")
	return cmd
}

// serve 启动服务并创建会话，会话结束或收到信号时返回
func serve(ctx context.Context, cmd *cobra.Command, addr string, cfg types.SessionConfig, procOpts sshproc.Options, logger *log.Logger) error {
	exits := make(chan types.ConnectionExit, 1)
	svc := terminal.NewService(terminal.Options{
		Addr:           addr,
		ProcessOptions: func() sshproc.Options { return procOpts },
		OnExit:         func(e types.ConnectionExit) { exits <- e },
		Logger:         logger,
	})
	if err := svc.Startup(ctx); err != nil {
		return err
	}
	defer svc.Shutdown()

	info := svc.StartSession(cfg)
	if err := writeJSON(cmd.OutOrStdout(), info); err != nil {
		return err
	}

	select {
	case <-ctx.Done():
		return nil
	case exit := <-exits:
		if exit.Canceled {
			fmt.Fprintln(cmd.ErrOrStderr(), "display closed before the session started")
			return nil
		}
		if exit.Error != "" {
			return fmt.Errorf("%s", exit.Error)
		}
		if terminal.ShouldOfferRetry(exit) {
			fmt.Fprintf(cmd.ErrOrStderr(), "public key authentication to %s failed, retry with: termssh serve %s -i <private key>\n",
				exit.Target, strings.TrimSpace(exit.Target))
		}
		if exit.Code != nil && *exit.Code != 0 {
			return fmt.Errorf("ssh exited with code %d", *exit.Code)
		}
		return nil
	}
}
