package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/andy6609/roomchat/internal/client"
	applog "github.com/andy6609/roomchat/internal/log"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var (
		addr        string
		room        string
		user        string
		downloadDir string
		logLevel    string
	)

	cmd := &cobra.Command{
		Use:          "roomchat-client",
		Short:        "Join a chat room from the terminal",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			logger := applog.NewWithWriter(cmd.ErrOrStderr(), logLevel, "console")

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			dialCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
			defer cancel()

			c, err := client.Dial(dialCtx, addr, room, user)
			if err != nil {
				logger.Error().Err(err).Str("addr", addr).Msg("서버 연결 실패")
				return err
			}
			logger.Debug().Str("room", room).Str("user", user).Msg("connected")

			term := &client.Terminal{
				Client:      c,
				In:          cmd.InOrStdin(),
				Out:         cmd.OutOrStdout(),
				DownloadDir: downloadDir,
			}
			if err := term.Run(ctx); err != nil {
				logger.Error().Err(err).Msg("서버와 연결이 끊어졌습니다")
				return err
			}
			return nil
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&addr, "addr", "127.0.0.1:12345", "chat server address")
	flags.StringVar(&room, "room", "", "room to join")
	flags.StringVar(&user, "user", "", "user name")
	flags.StringVar(&downloadDir, "download-dir", "", "save files sent by others into this directory")
	flags.StringVar(&logLevel, "log-level", "warn", "log level")
	_ = cmd.MarkFlagRequired("room")
	_ = cmd.MarkFlagRequired("user")

	return cmd
}
