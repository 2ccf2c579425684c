package chat

import (
	"context"
	"fmt"
	"net"
	"sync"
	"sync/atomic"

	"github.com/rs/zerolog"

	"github.com/andy6609/roomchat/internal/config"
)

type Server struct {
	addr     string
	opts     SessionOptions
	logger   *zerolog.Logger
	dir      *Directory
	bc       *Broadcaster
	listener net.Listener

	stopping atomic.Bool
	errCh    chan error

	mu       sync.Mutex
	sessions map[*Session]struct{}
	wg       sync.WaitGroup
}

func NewServer(cfg config.Config, logger *zerolog.Logger) *Server {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	cfg.Sanitize()

	dir := NewDirectory()
	return &Server{
		addr: cfg.Addr,
		opts: SessionOptions{
			OutboundBuffer: cfg.OutboundBuffer,
			MaxLineBytes:   cfg.MaxLineBytes,
			WriteTimeout:   cfg.WriteTimeout,
		},
		logger:   logger,
		dir:      dir,
		bc:       NewBroadcaster(dir, logger),
		errCh:    make(chan error, 1),
		sessions: make(map[*Session]struct{}),
	}
}

// Start binds the listener and begins accepting in the background.
func (s *Server) Start() error {
	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", s.addr, err)
	}
	s.listener = ln

	go s.acceptLoop(ln)

	s.logger.Info().Str("addr", ln.Addr().String()).Msg("chat server started")
	return nil
}

// Addr returns the bound address; valid after Start.
func (s *Server) Addr() net.Addr {
	if s.listener == nil {
		return nil
	}
	return s.listener.Addr()
}

func (s *Server) Directory() *Directory { return s.dir }

// Err delivers an accept failure that happened outside of Stop. Such failures
// are fatal for the process.
func (s *Server) Err() <-chan error { return s.errCh }

// Stop closes the listener and every live connection, then waits for the
// session goroutines until ctx expires.
func (s *Server) Stop(ctx context.Context) error {
	s.logger.Info().Msg("shutting down chat server")
	s.stopping.Store(true)

	if s.listener != nil {
		_ = s.listener.Close()
	}

	s.mu.Lock()
	live := make([]*Session, 0, len(s.sessions))
	for sess := range s.sessions {
		live = append(live, sess)
	}
	s.mu.Unlock()

	for _, sess := range live {
		_ = sess.conn.Close()
	}

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		s.logger.Info().Int("sessions", len(live)).Msg("shutdown complete")
		return nil
	case <-ctx.Done():
		s.logger.Warn().Msg("shutdown timed out with sessions still running")
		return ctx.Err()
	}
}

func (s *Server) acceptLoop(ln net.Listener) {
	for {
		conn, err := ln.Accept()
		if err != nil {
			if s.stopping.Load() {
				// listener가 닫히면 여기로 옴, 정상 종료
				return
			}
			s.logger.Error().Err(err).Msg("accept failed")
			s.errCh <- fmt.Errorf("accept: %w", err)
			return
		}

		sess := NewSession(conn, s.dir, s.bc, s.opts, s.logger)
		sess.logger.Info().Msg("client connected")

		s.mu.Lock()
		if s.stopping.Load() {
			s.mu.Unlock()
			_ = conn.Close()
			return
		}
		s.sessions[sess] = struct{}{}
		s.wg.Add(1)
		s.mu.Unlock()

		go func() {
			defer func() {
				s.mu.Lock()
				delete(s.sessions, sess)
				s.mu.Unlock()
				s.wg.Done()
			}()
			sess.Run()
		}()
	}
}
