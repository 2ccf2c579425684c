package chat

import (
	"net"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
)

type State int32

const (
	StateConnected State = iota
	StateInRoom
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateConnected:
		return "connected"
	case StateInRoom:
		return "in_room"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// SessionOptions tunes per-connection I/O.
type SessionOptions struct {
	OutboundBuffer int
	MaxLineBytes   int
	WriteTimeout   time.Duration
}

// Session is the server-side state of one client connection.
type Session struct {
	ID     string
	conn   net.Conn
	opts   SessionOptions
	dir    *Directory
	bc     *Broadcaster
	logger zerolog.Logger

	// user and room are written only by the session's own goroutine, always
	// while holding Directory.mu. Other goroutines read them under that lock.
	user string
	room string

	state atomic.Int32

	outMu  sync.Mutex
	out    chan string // outbound lines drained by the writer goroutine
	closed bool
}

func (s *Session) State() State { return State(s.state.Load()) }

func (s *Session) setState(st State) { s.state.Store(int32(st)) }

// deliver queues a line for the writer. It never blocks: a closed session or
// a full queue drops the line and reports false.
func (s *Session) deliver(line string) bool {
	s.outMu.Lock()
	defer s.outMu.Unlock()

	if s.closed {
		return false
	}
	select {
	case s.out <- line:
		return true
	default:
		return false
	}
}

func (s *Session) closeOutbound() {
	s.outMu.Lock()
	defer s.outMu.Unlock()

	if !s.closed {
		s.closed = true
		close(s.out)
	}
}

// isExpectedCloseError reports errors that only mean the peer went away.
func isExpectedCloseError(err error) bool {
	if err == nil {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "use of closed network connection") ||
		strings.Contains(msg, "broken pipe") ||
		strings.Contains(msg, "connection reset by peer") ||
		strings.Contains(msg, "io: read/write on closed pipe")
}
