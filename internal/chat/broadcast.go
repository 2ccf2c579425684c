package chat

import (
	"time"

	"github.com/rs/zerolog"

	"github.com/andy6609/roomchat/internal/protocol"
)

// Broadcaster formats room events and hands them to every member session.
// Membership is snapshotted under the directory lock; delivery happens after
// the lock is released.
type Broadcaster struct {
	dir    *Directory
	logger zerolog.Logger
}

func NewBroadcaster(dir *Directory, logger *zerolog.Logger) *Broadcaster {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	return &Broadcaster{dir: dir, logger: logger.With().Str("component", "broadcast").Logger()}
}

// Chat sends "<sender>: <text>" with the read suffix to every member of room,
// the sender included. It returns the number of members the line was queued for.
func (b *Broadcaster) Chat(room, sender, text string) int {
	start := time.Now()
	defer observeBroadcast("chat", start)

	members, readers := b.dir.Snapshot(room, sender)
	return b.deliver(room, members, protocol.FormatChat(sender, text, readers))
}

// System sends a notice from the reserved system identity, without read suffix.
func (b *Broadcaster) System(room, text string) int {
	start := time.Now()
	defer observeBroadcast("system", start)

	members, _ := b.dir.Snapshot(room, protocol.SystemSender)
	return b.deliver(room, members, protocol.FormatSystem(text))
}

// File relays the FILE frame verbatim and then a notice line, in that order,
// to the same member snapshot.
func (b *Broadcaster) File(room, sender, filename, payload string) int {
	start := time.Now()
	defer observeBroadcast("file", start)

	members, readers := b.dir.Snapshot(room, sender)
	return b.deliver(room, members,
		protocol.FormatFile(room, sender, filename, payload),
		protocol.FormatFileNotice(sender, filename, readers),
	)
}

// deliver queues the lines for every member in order. A member that cannot
// take a line gets none of the lines after it; the rest still get them all.
func (b *Broadcaster) deliver(room string, members []*Session, lines ...string) int {
	if len(members) == 0 {
		b.logger.Debug().Str("room", room).Msg("broadcast to empty room")
		return 0
	}

	delivered := 0
	for _, s := range members {
		sent := 0
		for _, line := range lines {
			if !s.deliver(line) {
				break
			}
			sent++
		}
		DeliveredLines.Add(float64(sent))
		if sent == len(lines) {
			delivered++
			continue
		}
		DroppedLines.Add(float64(len(lines) - sent))
		b.logger.Warn().
			Str("room", room).
			Str("session", s.ID).
			Int("dropped", len(lines)-sent).
			Msg("dropped lines for member")
	}
	return delivered
}

func observeBroadcast(kind string, start time.Time) {
	BroadcastDuration.WithLabelValues(kind).Observe(time.Since(start).Seconds())
}
