package protocol

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
)

// LineReader reads newline-terminated frames. Lines longer than max bytes are
// discarded and reported as ErrLineTooLong so the caller can keep reading.
type LineReader struct {
	br  *bufio.Reader
	max int
}

func NewLineReader(r io.Reader, max int) *LineReader {
	return &LineReader{br: bufio.NewReader(r), max: max}
}

func (r *LineReader) ReadLine() (string, error) {
	var buf []byte
	tooLong := false

	for {
		chunk, err := r.br.ReadSlice('\n')
		if !tooLong {
			buf = append(buf, chunk...)
			if r.max > 0 && len(bytes.TrimRight(buf, "\r\n")) > r.max {
				tooLong = true
				buf = nil
			}
		}

		switch {
		case err == nil:
			if tooLong {
				return "", ErrLineTooLong
			}
			return string(bytes.TrimRight(buf, "\r\n")), nil
		case errors.Is(err, bufio.ErrBufferFull):
			continue
		case errors.Is(err, io.EOF):
			if tooLong {
				return "", ErrLineTooLong
			}
			if len(buf) > 0 {
				// last line without newline
				return string(bytes.TrimRight(buf, "\r\n")), nil
			}
			return "", io.EOF
		default:
			return "", fmt.Errorf("read: %w", err)
		}
	}
}
