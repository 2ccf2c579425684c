package chat

import (
	"sort"
	"sync"
)

// Directory tracks which sessions are in which room and which room each user
// name currently resolves to. One mutex guards both relations; nothing here
// performs I/O while holding it.
type Directory struct {
	mu    sync.Mutex
	rooms map[string]map[*Session]struct{}
	// user name -> room -> number of sessions with that name in the room.
	// Names are not unique, so a single name may resolve to several rooms.
	// Always derivable from rooms; lookups read the session's own fields.
	userRooms map[string]map[string]int
}

// RoomInfo is a point-in-time view of one room.
type RoomInfo struct {
	Name    string   `json:"name"`
	Members []string `json:"members"`
}

func NewDirectory() *Directory {
	return &Directory{
		rooms:     make(map[string]map[*Session]struct{}),
		userRooms: make(map[string]map[string]int),
	}
}

// Join moves s into room under the given user name, leaving any prior room
// first. It returns the room s was in before, or "".
func (d *Directory) Join(room, user string, s *Session) string {
	d.mu.Lock()
	defer d.mu.Unlock()

	prev := d.removeLocked(s)

	members, ok := d.rooms[room]
	if !ok {
		members = make(map[*Session]struct{})
		d.rooms[room] = members
	}
	members[s] = struct{}{}

	byRoom, ok := d.userRooms[user]
	if !ok {
		byRoom = make(map[string]int)
		d.userRooms[user] = byRoom
	}
	byRoom[room]++

	s.user = user
	s.room = room

	ActiveRooms.Set(float64(len(d.rooms)))
	return prev
}

// Leave removes s from its current room. It returns the room left and false
// when s was not in any room.
func (d *Directory) Leave(s *Session) (string, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()

	room := d.removeLocked(s)
	ActiveRooms.Set(float64(len(d.rooms)))
	return room, room != ""
}

func (d *Directory) removeLocked(s *Session) string {
	room := s.room
	if room == "" {
		return ""
	}

	if members, ok := d.rooms[room]; ok {
		delete(members, s)
		if len(members) == 0 {
			delete(d.rooms, room)
		}
	}

	if byRoom, ok := d.userRooms[s.user]; ok {
		byRoom[room]--
		if byRoom[room] <= 0 {
			delete(byRoom, room)
		}
		if len(byRoom) == 0 {
			delete(d.userRooms, s.user)
		}
	}

	s.room = ""
	return room
}

// MembersExcluding returns the sorted names of users joined to room, other
// than excluded. Duplicate names appear once per session.
func (d *Directory) MembersExcluding(room, excluded string) []string {
	d.mu.Lock()
	defer d.mu.Unlock()

	_, names := d.snapshotLocked(room, excluded)
	return names
}

// Snapshot returns the sessions to deliver to and the read-receipt names for
// room, both taken in the same critical section.
func (d *Directory) Snapshot(room, excluded string) ([]*Session, []string) {
	d.mu.Lock()
	defer d.mu.Unlock()

	return d.snapshotLocked(room, excluded)
}

func (d *Directory) snapshotLocked(room, excluded string) ([]*Session, []string) {
	members := d.rooms[room]
	if len(members) == 0 {
		return nil, nil
	}

	sessions := make([]*Session, 0, len(members))
	var names []string
	for s := range members {
		sessions = append(sessions, s)
		if s.user != excluded {
			names = append(names, s.user)
		}
	}
	sort.Strings(names)
	return sessions, names
}

// Rooms lists every non-empty room with its member names, sorted by room name.
func (d *Directory) Rooms() []RoomInfo {
	d.mu.Lock()
	defer d.mu.Unlock()

	out := make([]RoomInfo, 0, len(d.rooms))
	for name, members := range d.rooms {
		info := RoomInfo{Name: name, Members: make([]string, 0, len(members))}
		for s := range members {
			info.Members = append(info.Members, s.user)
		}
		sort.Strings(info.Members)
		out = append(out, info)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}
