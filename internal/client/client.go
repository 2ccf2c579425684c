// Package client is a protocol peer for the chat relay: it joins one room on
// connect and exposes the line protocol as method calls.
package client

import (
	"bufio"
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/andy6609/roomchat/internal/protocol"
)

var ErrInvalidFilename = errors.New("invalid filename")

type Client struct {
	Room string
	User string

	conn   net.Conn
	reader *protocol.LineReader

	mu sync.Mutex
	w  *bufio.Writer
}

// Dial connects to addr and enters room as user.
func Dial(ctx context.Context, addr, room, user string) (*Client, error) {
	var d net.Dialer
	conn, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", addr, err)
	}

	c := New(conn, room, user)
	if err := c.Enter(room, user); err != nil {
		_ = conn.Close()
		return nil, err
	}
	return c, nil
}

// New wraps an established connection without sending anything.
func New(conn net.Conn, room, user string) *Client {
	return &Client{
		Room:   room,
		User:   user,
		conn:   conn,
		reader: protocol.NewLineReader(conn, 0),
		w:      bufio.NewWriter(conn),
	}
}

// Enter switches the client to room as user.
func (c *Client) Enter(room, user string) error {
	c.Room, c.User = room, user
	return c.send(protocol.Request{Type: protocol.RequestEnter, Room: room, User: user})
}

func (c *Client) Send(text string) error {
	return c.send(protocol.Request{Type: protocol.RequestMessage, Room: c.Room, User: c.User, Text: text})
}

// SendFile base64-encodes data and posts it under name.
func (c *Client) SendFile(name string, data []byte) error {
	if name == "" {
		return ErrInvalidFilename
	}
	return c.send(protocol.Request{
		Type:     protocol.RequestFile,
		Room:     c.Room,
		User:     c.User,
		Filename: name,
		Payload:  base64.StdEncoding.EncodeToString(data),
	})
}

func (c *Client) Leave() error {
	return c.send(protocol.Request{Type: protocol.RequestLeave})
}

// SendRaw writes line as-is. Useful for probing how the server treats
// malformed frames.
func (c *Client) SendRaw(line string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, err := c.w.WriteString(line + "\n"); err != nil {
		return fmt.Errorf("write: %w", err)
	}
	if err := c.w.Flush(); err != nil {
		return fmt.Errorf("flush: %w", err)
	}
	return nil
}

func (c *Client) send(req protocol.Request) error {
	return c.SendRaw(req.Encode())
}

// Next blocks until the server sends a line.
func (c *Client) Next() (protocol.Event, error) {
	line, err := c.reader.ReadLine()
	if err != nil {
		return protocol.Event{}, err
	}
	return protocol.ParseOutbound(line), nil
}

func (c *Client) SetDeadline(t time.Time) error {
	return c.conn.SetDeadline(t)
}

func (c *Client) Close() error {
	return c.conn.Close()
}

// SaveFile decodes a relayed FILE frame into dir and returns the written path.
// Only the base name of the sender-supplied filename is used.
func SaveFile(dir string, file *protocol.Request) (string, error) {
	if file == nil {
		return "", ErrInvalidFilename
	}
	name := filepath.Base(filepath.Clean("/" + file.Filename))
	if name == "/" || name == "." || name == ".." {
		return "", fmt.Errorf("%w: %q", ErrInvalidFilename, file.Filename)
	}

	data, err := base64.StdEncoding.DecodeString(file.Payload)
	if err != nil {
		return "", fmt.Errorf("decode %s: %w", name, err)
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create %s: %w", dir, err)
	}
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("write %s: %w", path, err)
	}
	return path, nil
}
