package client

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/andy6609/roomchat/internal/protocol"
)

const (
	cmdLeave = "/leave"
	cmdFile  = "/file "
)

// Terminal drives a Client from a line-oriented input such as stdin.
//
// Plain lines are posted as chat text, "/file <path>" uploads a file and
// "/leave" (or end of input) leaves the room. Files relayed from other users
// are written to DownloadDir when it is set.
type Terminal struct {
	Client      *Client
	In          io.Reader
	Out         io.Writer
	DownloadDir string

	outMu sync.Mutex
}

// Run returns when the server closes the connection or ctx is cancelled.
func (t *Terminal) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		defer cancel()
		return t.receive(gctx)
	})
	g.Go(func() error {
		<-gctx.Done()
		_ = t.Client.Close()
		return nil
	})

	// Reading the input may block forever, so it stays outside the group.
	go func() {
		if err := t.send(); err != nil {
			t.printf("전송 실패: %v\n", err)
			cancel()
		}
	}()

	return g.Wait()
}

func (t *Terminal) send() error {
	sc := bufio.NewScanner(t.In)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		switch {
		case line == "":
			continue
		case line == cmdLeave:
			return t.Client.Leave()
		case strings.HasPrefix(line, cmdFile):
			path := strings.TrimSpace(strings.TrimPrefix(line, cmdFile))
			data, err := os.ReadFile(path)
			if err != nil {
				t.printf("파일 전송 실패: %v\n", err)
				continue
			}
			if err := t.Client.SendFile(filepath.Base(path), data); err != nil {
				return err
			}
			t.printf("나: 파일을 전송했습니다. (%s)\n", filepath.Base(path))
		default:
			if err := t.Client.Send(line); err != nil {
				return err
			}
		}
	}
	if err := sc.Err(); err != nil {
		return fmt.Errorf("read input: %w", err)
	}
	return t.Client.Leave()
}

func (t *Terminal) receive(ctx context.Context) error {
	for {
		ev, err := t.Client.Next()
		if err != nil {
			if errors.Is(err, io.EOF) || ctx.Err() != nil {
				return nil
			}
			return err
		}

		if ev.Kind != protocol.EventFile {
			t.printf("%s\n", ev.Line)
			continue
		}

		file := ev.File
		if file.User == t.Client.User {
			// own echo
			continue
		}
		if t.DownloadDir == "" {
			t.printf("%s님이 파일을 보냈습니다: %s\n", file.User, file.Filename)
			continue
		}
		if _, err := SaveFile(t.DownloadDir, file); err != nil {
			t.printf("파일 저장 실패: %v\n", err)
			continue
		}
		t.printf("%s: 파일이 저장되었습니다. (%s)\n", file.User, file.Filename)
	}
}

func (t *Terminal) printf(format string, args ...any) {
	t.outMu.Lock()
	defer t.outMu.Unlock()
	_, _ = fmt.Fprintf(t.Out, format, args...)
}
