package protocol

import "strings"

const readMark = "읽음"

// ReadSuffix renders the read-receipt annotation, or "" when nobody else is
// in the room.
func ReadSuffix(readers []string) string {
	if len(readers) == 0 {
		return ""
	}
	return " (" + strings.Join(readers, " ") + " " + readMark + ")"
}

// FormatChat renders "<sender>: <text>" followed by the read suffix.
func FormatChat(sender, text string, readers []string) string {
	return sender + ": " + text + ReadSuffix(readers)
}

// FormatSystem renders a notice from the reserved system identity. System
// notices never carry a read suffix.
func FormatSystem(text string) string {
	return SystemSender + ": " + text
}

// FormatFile renders the FILE relay frame, identical to the inbound request.
func FormatFile(room, sender, filename, payload string) string {
	return join(TagFile, room, sender, filename, payload)
}

func FormatFileNotice(sender, filename string, readers []string) string {
	return FormatSystem(sender + "님이 파일을 전송했습니다: " + filename + ReadSuffix(readers))
}

func EnterNotice(user string) string { return user + "님이 입장하셨습니다." }

func LeaveNotice(user string) string { return user + "님이 퇴장하셨습니다." }

type EventKind int

const (
	EventText EventKind = iota
	EventFile
)

// Event is an outbound line as seen by a client.
type Event struct {
	Kind EventKind
	Line string
	// File is set for EventFile.
	File *Request
}

// ParseOutbound classifies a line received from the server. A line that
// starts with the FILE tag but lacks fields is treated as plain text.
func ParseOutbound(line string) Event {
	line = strings.TrimRight(line, "\r\n")
	if strings.HasPrefix(line, TagFile+Separator) {
		if req, err := Decode(line); err == nil {
			return Event{Kind: EventFile, Line: line, File: &req}
		}
	}
	return Event{Kind: EventText, Line: line}
}
