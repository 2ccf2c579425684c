package chat

import (
	"errors"
	"io"
	"net"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/andy6609/roomchat/internal/protocol"
)

// closeFlushTimeout bounds how long a closing session waits for its writer to
// push already queued lines before the connection is torn down.
const closeFlushTimeout = time.Second

func NewSession(conn net.Conn, dir *Directory, bc *Broadcaster, opts SessionOptions, logger *zerolog.Logger) *Session {
	if opts.OutboundBuffer <= 0 {
		opts.OutboundBuffer = 256
	}
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}

	id := uuid.NewString()
	lctx := logger.With().Str("session", id)
	if conn != nil {
		lctx = lctx.Str("remote", conn.RemoteAddr().String())
	}

	return &Session{
		ID:     id,
		conn:   conn,
		opts:   opts,
		dir:    dir,
		bc:     bc,
		logger: lctx.Logger(),
		out:    make(chan string, opts.OutboundBuffer),
	}
}

// Run serves the connection until the peer disconnects, a read fails, or the
// client sends LEAVE. It always releases room membership before returning.
func (s *Session) Run() {
	ConnectedSessions.Inc()
	defer ConnectedSessions.Dec()

	writerDone := StartOutboundWriter(s.conn, s.out, s.opts.WriteTimeout, func(err error) {
		if !isExpectedCloseError(err) {
			s.logger.Warn().Err(err).Msg("write failed")
		}
		// unblock the reader so the session tears down
		_ = s.conn.Close()
	})

	defer func() {
		s.leave()
		s.setState(StateClosed)
		s.closeOutbound()

		select {
		case <-writerDone:
		case <-time.After(closeFlushTimeout):
			s.logger.Warn().Msg("writer did not flush before close")
		}
		_ = s.conn.Close()
		s.logger.Info().Msg("session closed")
	}()

	reader := protocol.NewLineReader(s.conn, s.opts.MaxLineBytes)
	for {
		line, err := reader.ReadLine()
		if err != nil {
			if errors.Is(err, protocol.ErrLineTooLong) {
				MalformedFrames.Inc()
				s.logger.Warn().Err(err).Int("max_bytes", s.opts.MaxLineBytes).Msg("discarded frame")
				continue
			}
			if !errors.Is(err, io.EOF) && !isExpectedCloseError(err) {
				s.logger.Warn().Err(err).Msg("read failed")
			}
			return
		}
		if line == "" {
			continue
		}

		req, err := protocol.Decode(line)
		if err != nil {
			MalformedFrames.Inc()
			s.logger.Warn().Err(err).Msg("discarded frame")
			continue
		}

		if stop := s.handle(req); stop {
			return
		}
	}
}

// handle applies one request. It reports true when the session should close.
func (s *Session) handle(req protocol.Request) bool {
	start := time.Now()
	kind := req.Type.String()
	defer func() {
		FramesTotal.WithLabelValues(kind).Inc()
		FrameProcessingDuration.WithLabelValues(kind).Observe(time.Since(start).Seconds())
	}()

	switch req.Type {
	case protocol.RequestEnter:
		s.enter(req.Room, req.User)
	case protocol.RequestMessage:
		s.bc.Chat(req.Room, req.User, req.Text)
	case protocol.RequestFile:
		n := s.bc.File(req.Room, req.User, req.Filename, req.Payload)
		s.logger.Info().
			Str("room", req.Room).
			Str("user", req.User).
			Str("file", req.Filename).
			Int("payload_bytes", len(req.Payload)).
			Int("members", n).
			Msg("file relayed")
	case protocol.RequestLeave:
		if s.State() != StateInRoom {
			s.logger.Debug().Str("state", s.State().String()).Msg("leave outside a room ignored")
			return false
		}
		return true
	}
	return false
}

// enter joins room as user. Switching rooms is silent in the old room; only
// the new room sees a join notice.
func (s *Session) enter(room, user string) {
	prev := s.dir.Join(room, user, s)
	s.setState(StateInRoom)

	ev := s.logger.Info().Str("room", room).Str("user", user)
	if prev != "" && prev != room {
		ev = ev.Str("previous_room", prev)
	}
	ev.Msg("entered room")

	s.bc.System(room, protocol.EnterNotice(user))
}

// leave releases room membership and tells the remaining members.
func (s *Session) leave() {
	user := s.user
	room, ok := s.dir.Leave(s)
	if !ok {
		return
	}
	s.logger.Info().Str("room", room).Str("user", user).Msg("left room")
	s.bc.System(room, protocol.LeaveNotice(user))
}
