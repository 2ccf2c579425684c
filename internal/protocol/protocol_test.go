package protocol

import (
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecode_ValidFrames(t *testing.T) {
	tests := []struct {
		name string
		line string
		want Request
	}{
		{
			name: "enter",
			line: "ENTER|R|alice",
			want: Request{Type: RequestEnter, Room: "R", User: "alice"},
		},
		{
			name: "message",
			line: "MESSAGE|R|alice|hi there",
			want: Request{Type: RequestMessage, Room: "R", User: "alice", Text: "hi there"},
		},
		{
			name: "message keeps separators in text",
			line: "MESSAGE|R|alice|a|b",
			want: Request{Type: RequestMessage, Room: "R", User: "alice", Text: "a|b"},
		},
		{
			name: "message with empty text",
			line: "MESSAGE|R|alice|",
			want: Request{Type: RequestMessage, Room: "R", User: "alice"},
		},
		{
			name: "file",
			line: "FILE|R|alice|f.txt|aGVsbG8=",
			want: Request{Type: RequestFile, Room: "R", User: "alice", Filename: "f.txt", Payload: "aGVsbG8="},
		},
		{
			name: "leave",
			line: "LEAVE",
			want: Request{Type: RequestLeave},
		},
		{
			name: "crlf stripped",
			line: "ENTER|R|bob\r\n",
			want: Request{Type: RequestEnter, Room: "R", User: "bob"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Decode(tt.line)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestDecode_Malformed(t *testing.T) {
	tests := []struct {
		line string
		want error
	}{
		{"", ErrEmptyLine},
		{"HELLO|R|alice", ErrUnknownType},
		{"enter|R|alice", ErrUnknownType},
		{"MESSAGE|R", ErrMissingFields},
		{"MESSAGE|R|alice", ErrMissingFields},
		{"ENTER|R", ErrMissingFields},
		{"ENTER||alice", ErrMissingFields},
		{"ENTER|R|", ErrMissingFields},
		{"FILE|R|alice|f.txt", ErrMissingFields},
		{"FILE|R|alice||abc", ErrMissingFields},
	}

	for _, tt := range tests {
		t.Run(tt.line, func(t *testing.T) {
			_, err := Decode(tt.line)
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.want)

			var de *DecodeError
			assert.True(t, errors.As(err, &de))
		})
	}
}

func TestRequestEncode_RoundTripsThroughDecode(t *testing.T) {
	reqs := []Request{
		{Type: RequestEnter, Room: "lobby", User: "alice"},
		{Type: RequestMessage, Room: "lobby", User: "alice", Text: "안녕하세요"},
		{Type: RequestFile, Room: "lobby", User: "alice", Filename: "a.png", Payload: "AAEC"},
		{Type: RequestLeave},
	}
	for _, req := range reqs {
		got, err := Decode(req.Encode())
		require.NoError(t, err, req.Type.String())
		assert.Equal(t, req, got)
	}
}

func TestFormatChat(t *testing.T) {
	assert.Equal(t, "alice: hi", FormatChat("alice", "hi", nil))
	assert.Equal(t, "alice: hi (bob 읽음)", FormatChat("alice", "hi", []string{"bob"}))
	assert.Equal(t, "alice: hi (bob carol 읽음)", FormatChat("alice", "hi", []string{"bob", "carol"}))
}

func TestFormatSystemAndNotices(t *testing.T) {
	assert.Equal(t, "SERVER: bob님이 입장하셨습니다.", FormatSystem(EnterNotice("bob")))
	assert.Equal(t, "SERVER: bob님이 퇴장하셨습니다.", FormatSystem(LeaveNotice("bob")))
	assert.Equal(t, "FILE|R|alice|f.txt|abc", FormatFile("R", "alice", "f.txt", "abc"))
	assert.Equal(t,
		"SERVER: alice님이 파일을 전송했습니다: f.txt (bob 읽음)",
		FormatFileNotice("alice", "f.txt", []string{"bob"}))
	assert.Equal(t,
		"SERVER: alice님이 파일을 전송했습니다: f.txt",
		FormatFileNotice("alice", "f.txt", nil))
}

func TestParseOutbound(t *testing.T) {
	ev := ParseOutbound("FILE|R|alice|f.txt|abc")
	require.Equal(t, EventFile, ev.Kind)
	require.NotNil(t, ev.File)
	assert.Equal(t, "alice", ev.File.User)
	assert.Equal(t, "f.txt", ev.File.Filename)
	assert.Equal(t, "abc", ev.File.Payload)

	ev = ParseOutbound("alice: hi (bob 읽음)")
	assert.Equal(t, EventText, ev.Kind)
	assert.Nil(t, ev.File)

	ev = ParseOutbound("FILE|broken")
	assert.Equal(t, EventText, ev.Kind)
}

func TestLineReader(t *testing.T) {
	in := "ENTER|R|alice\r\n" +
		strings.Repeat("x", 64) + "\n" +
		"MESSAGE|R|alice|hi\n" +
		"LEAVE"
	r := NewLineReader(strings.NewReader(in), 32)

	line, err := r.ReadLine()
	require.NoError(t, err)
	assert.Equal(t, "ENTER|R|alice", line)

	_, err = r.ReadLine()
	assert.ErrorIs(t, err, ErrLineTooLong)

	line, err = r.ReadLine()
	require.NoError(t, err)
	assert.Equal(t, "MESSAGE|R|alice|hi", line)

	line, err = r.ReadLine()
	require.NoError(t, err)
	assert.Equal(t, "LEAVE", line)

	_, err = r.ReadLine()
	assert.ErrorIs(t, err, io.EOF)
}

func TestLineReader_LongLineAcrossBufferBoundary(t *testing.T) {
	long := strings.Repeat("a", 10000)
	r := NewLineReader(strings.NewReader(long+"\nok\n"), 0)

	line, err := r.ReadLine()
	require.NoError(t, err)
	assert.Len(t, line, 10000)

	line, err = r.ReadLine()
	require.NoError(t, err)
	assert.Equal(t, "ok", line)
}
