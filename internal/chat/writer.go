package chat

import (
	"bufio"
	"net"
	"time"
)

// StartOutboundWriter drains out onto conn until out is closed or a write
// fails. onError is called once with the failing error. The returned channel
// is closed when the writer goroutine exits.
func StartOutboundWriter(conn net.Conn, out <-chan string, writeTimeout time.Duration, onError func(error)) <-chan struct{} {
	done := make(chan struct{})
	go func() {
		defer close(done)
		w := bufio.NewWriter(conn)
		for msg := range out {
			if writeTimeout > 0 {
				_ = conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			}
			if _, err := w.WriteString(msg + "\n"); err != nil {
				onError(err)
				return
			}
			if err := w.Flush(); err != nil {
				onError(err)
				return
			}
		}
	}()
	return done
}
