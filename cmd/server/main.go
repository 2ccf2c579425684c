package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync/atomic"
	"time"

	gfshutdown "github.com/gelmium/graceful-shutdown"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/andy6609/roomchat/internal/app"
	"github.com/andy6609/roomchat/internal/config"
	applog "github.com/andy6609/roomchat/internal/log"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var configPath string
	def := config.Default()

	root := &cobra.Command{
		Use:          "roomchat-server",
		Short:        "Multi-room line chat relay",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(configPath, cmd.Flags())
			if err != nil {
				return err
			}
			return serve(cfg)
		},
	}

	flags := root.PersistentFlags()
	flags.StringVar(&configPath, "config", "", "path to a YAML config file")
	flags.String("addr", def.Addr, "chat listen address")
	flags.String("admin-addr", def.AdminAddr, "admin HTTP listen address, empty to disable")
	flags.String("log-level", def.LogLevel, "log level (debug, info, warn, error)")
	flags.String("log-format", def.LogFormat, "log format (console, json)")
	flags.Int("outbound-buffer", def.OutboundBuffer, "queued outbound lines per session")
	flags.Int("max-line-bytes", def.MaxLineBytes, "longest accepted inbound line")
	flags.Duration("write-timeout", def.WriteTimeout, "per-line write deadline, 0 disables")
	flags.Duration("shutdown-timeout", def.ShutdownTimeout, "graceful shutdown timeout")

	root.AddCommand(&cobra.Command{
		Use:   "config",
		Short: "Print the effective configuration as YAML",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(configPath, cmd.Flags())
			if err != nil {
				return err
			}
			out, err := cfg.YAML()
			if err != nil {
				return err
			}
			_, err = cmd.OutOrStdout().Write(out)
			return err
		},
	})

	return root
}

func serve(cfg config.Config) error {
	logger := applog.New(cfg.LogLevel, cfg.LogFormat)

	application := app.New(cfg, logger)
	if err := application.Start(); err != nil {
		logger.Error().Err(err).Msg("failed to start server")
		return err
	}
	return run(context.Background(), cfg.ShutdownTimeout, application, logger)
}

// run serves until a signal arrives or trigger is cancelled, then shuts the
// app down within timeout. It returns an error only when the app stopped on
// its own or the shutdown did not finish cleanly.
func run(trigger context.Context, timeout time.Duration, application *app.App, logger *zerolog.Logger) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var (
		runErr   error
		stopping atomic.Bool
	)
	done := make(chan struct{})
	go func() {
		runErr = application.Run(ctx)
		close(done)
	}()

	wait := gfshutdown.GracefulShutdown(trigger, timeout, map[string]gfshutdown.Operation{
		"roomchat": func(ctx context.Context) error {
			stopping.Store(true)
			cancel()
			select {
			case <-done:
				return runErr
			case <-ctx.Done():
				return ctx.Err()
			}
		},
	})

	select {
	case <-done:
		if stopping.Load() {
			return finish(<-wait, runErr, logger)
		}
		// listener failure before any shutdown request
		err := runErr
		if err == nil {
			err = errors.New("server stopped unexpectedly")
		}
		logger.Error().Err(err).Msg("server exited with error")
		return err
	case code := <-wait:
		return finish(code, nil, logger)
	}
}

func finish(code int, runErr error, logger *zerolog.Logger) error {
	if code != 0 {
		return fmt.Errorf("shutdown finished with exit code %d", code)
	}
	if runErr != nil {
		logger.Error().Err(runErr).Msg("shutdown finished with error")
		return runErr
	}
	logger.Info().Msg("server stopped")
	return nil
}
