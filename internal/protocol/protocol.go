// Package protocol implements the pipe-delimited line protocol spoken between
// chat clients and the relay server.
//
// Inbound requests and outbound broadcasts are intentionally asymmetric: only
// the FILE frame has the same shape in both directions.
package protocol

import (
	"errors"
	"fmt"
	"strings"
)

const (
	TagEnter   = "ENTER"
	TagMessage = "MESSAGE"
	TagFile    = "FILE"
	TagLeave   = "LEAVE"

	Separator = "|"

	// SystemSender is the reserved identity used for join/leave/file notices.
	SystemSender = "SERVER"
)

type RequestType int

const (
	RequestEnter RequestType = iota + 1
	RequestMessage
	RequestFile
	RequestLeave
)

func (t RequestType) String() string {
	switch t {
	case RequestEnter:
		return "enter"
	case RequestMessage:
		return "message"
	case RequestFile:
		return "file"
	case RequestLeave:
		return "leave"
	default:
		return "unknown"
	}
}

// Request is one decoded inbound frame. Which fields are set depends on Type.
type Request struct {
	Type     RequestType
	Room     string
	User     string
	Text     string
	Filename string
	Payload  string // base64, relayed verbatim
}

var (
	ErrEmptyLine     = errors.New("empty line")
	ErrUnknownType   = errors.New("unknown frame type")
	ErrMissingFields = errors.New("missing fields")
	ErrLineTooLong   = errors.New("line too long")
)

// DecodeError reports a frame that could not be decoded. The connection that
// produced it stays usable.
type DecodeError struct {
	Tag string
	Err error
}

func (e *DecodeError) Error() string {
	if e.Tag == "" {
		return "decode frame: " + e.Err.Error()
	}
	return fmt.Sprintf("decode %s frame: %v", e.Tag, e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }

// fieldCount is the number of pipe-separated fields each tag needs. The last
// field absorbs any remaining separators.
var fieldCount = map[string]int{
	TagEnter:   3,
	TagMessage: 4,
	TagFile:    5,
	TagLeave:   1,
}

// Decode parses a single inbound line (without its newline).
func Decode(line string) (Request, error) {
	line = strings.TrimRight(line, "\r\n")
	if line == "" {
		return Request{}, &DecodeError{Err: ErrEmptyLine}
	}

	tag, _, _ := strings.Cut(line, Separator)
	n, ok := fieldCount[tag]
	if !ok {
		return Request{}, &DecodeError{Tag: tag, Err: ErrUnknownType}
	}

	parts := strings.SplitN(line, Separator, n)
	if len(parts) < n {
		return Request{}, &DecodeError{Tag: tag, Err: ErrMissingFields}
	}

	var req Request
	switch tag {
	case TagEnter:
		req = Request{Type: RequestEnter, Room: parts[1], User: parts[2]}
	case TagMessage:
		req = Request{Type: RequestMessage, Room: parts[1], User: parts[2], Text: parts[3]}
	case TagFile:
		req = Request{Type: RequestFile, Room: parts[1], User: parts[2], Filename: parts[3], Payload: parts[4]}
	case TagLeave:
		return Request{Type: RequestLeave}, nil
	}

	if req.Room == "" || req.User == "" || (req.Type == RequestFile && req.Filename == "") {
		return Request{}, &DecodeError{Tag: tag, Err: ErrMissingFields}
	}
	return req, nil
}

// Encode renders the request as an inbound line without the trailing newline.
func (r Request) Encode() string {
	switch r.Type {
	case RequestEnter:
		return join(TagEnter, r.Room, r.User)
	case RequestMessage:
		return join(TagMessage, r.Room, r.User, r.Text)
	case RequestFile:
		return FormatFile(r.Room, r.User, r.Filename, r.Payload)
	case RequestLeave:
		return TagLeave
	default:
		return ""
	}
}

func join(fields ...string) string {
	return strings.Join(fields, Separator)
}
