package app

import (
	"context"
	"errors"
	"fmt"
	"net"
	stdhttp "net/http"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/andy6609/roomchat/internal/admin"
	"github.com/andy6609/roomchat/internal/chat"
	"github.com/andy6609/roomchat/internal/config"
	applog "github.com/andy6609/roomchat/internal/log"
)

// App wires the chat listener and the admin HTTP server together.
type App struct {
	chat            *chat.Server
	admin           *stdhttp.Server
	adminLn         net.Listener
	shutdownTimeout time.Duration
	log             *zerolog.Logger
}

// New constructs the application. An empty AdminAddr disables the admin server.
func New(cfg config.Config, logger *zerolog.Logger) *App {
	cfg.Sanitize()
	if logger == nil {
		logger = applog.Nop()
	}

	srv := chat.NewServer(cfg, logger)
	a := &App{
		chat:            srv,
		shutdownTimeout: cfg.ShutdownTimeout,
		log:             logger,
	}
	if cfg.AdminAddr != "" {
		a.admin = admin.NewServer(cfg.AdminAddr, srv.Directory(), logger)
	}
	return a
}

// Start binds every listener. Bind failures are returned before anything
// starts serving.
func (a *App) Start() error {
	if err := a.chat.Start(); err != nil {
		return err
	}
	if a.admin == nil {
		return nil
	}

	ln, err := net.Listen("tcp", a.admin.Addr)
	if err != nil {
		_ = a.chat.Stop(context.Background())
		return fmt.Errorf("listen admin %s: %w", a.admin.Addr, err)
	}
	a.adminLn = ln
	a.log.Info().Str("addr", ln.Addr().String()).Msg("admin server started")
	return nil
}

func (a *App) ChatAddr() net.Addr { return a.chat.Addr() }

// AdminAddr returns nil when the admin server is disabled.
func (a *App) AdminAddr() net.Addr {
	if a.adminLn == nil {
		return nil
	}
	return a.adminLn.Addr()
}

// Run serves until ctx is cancelled or a listener fails, then shuts both
// servers down within the configured timeout.
func (a *App) Run(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		select {
		case err := <-a.chat.Err():
			return err
		case <-gctx.Done():
			return nil
		}
	})

	if a.adminLn != nil {
		g.Go(func() error {
			if err := a.admin.Serve(a.adminLn); err != nil && !errors.Is(err, stdhttp.ErrServerClosed) {
				return fmt.Errorf("admin server: %w", err)
			}
			return nil
		})
	}

	g.Go(func() error {
		<-gctx.Done()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), a.shutdownTimeout)
		defer cancel()

		var errs []error
		if a.adminLn != nil {
			a.log.Info().Msg("shutting down admin server")
			if err := a.admin.Shutdown(shutdownCtx); err != nil {
				errs = append(errs, fmt.Errorf("admin shutdown: %w", err))
			}
		}
		if err := a.chat.Stop(shutdownCtx); err != nil {
			errs = append(errs, fmt.Errorf("chat shutdown: %w", err))
		}
		return errors.Join(errs...)
	})

	return g.Wait()
}
