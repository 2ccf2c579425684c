package chat

import (
	"fmt"
	"math/rand"
	"reflect"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestSession(dir *Directory, bc *Broadcaster, buffer int) *Session {
	return NewSession(nil, dir, bc, SessionOptions{OutboundBuffer: buffer}, nil)
}

// requireConsistent checks that both relations agree and that no session sits
// in more than one room.
func requireConsistent(t *testing.T, d *Directory, sessions ...*Session) {
	t.Helper()
	require.NoError(t, checkRelations(d))

	d.mu.Lock()
	defer d.mu.Unlock()

	for _, s := range sessions {
		in := 0
		for _, members := range d.rooms {
			if _, ok := members[s]; ok {
				in++
			}
		}
		require.LessOrEqual(t, in, 1)
		if s.room == "" {
			require.Zero(t, in)
		} else {
			require.Equal(t, 1, in)
		}
	}
}

// checkRelations reports the first disagreement between the room membership
// and the per-user room counts.
func checkRelations(d *Directory) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	want := make(map[string]map[string]int)
	for room, members := range d.rooms {
		if len(members) == 0 {
			return fmt.Errorf("empty room %q should be pruned", room)
		}
		for s := range members {
			if s.room != room {
				return fmt.Errorf("session in %q records room %q", room, s.room)
			}
			if want[s.user] == nil {
				want[s.user] = make(map[string]int)
			}
			want[s.user][room]++
		}
	}
	if !reflect.DeepEqual(want, d.userRooms) {
		return fmt.Errorf("user rooms %v, derived from membership %v", d.userRooms, want)
	}
	return nil
}

func TestDirectory_JoinAndLeave(t *testing.T) {
	d := NewDirectory()
	alice := newTestSession(d, nil, 1)
	bob := newTestSession(d, nil, 1)

	assert.Equal(t, "", d.Join("R", "alice", alice))
	assert.Equal(t, "", d.Join("R", "bob", bob))
	requireConsistent(t, d, alice, bob)

	assert.Equal(t, []string{"bob"}, d.MembersExcluding("R", "alice"))
	assert.Equal(t, []string{"alice"}, d.MembersExcluding("R", "bob"))
	assert.Equal(t, []string{"alice", "bob"}, d.MembersExcluding("R", ""))

	room, ok := d.Leave(bob)
	assert.True(t, ok)
	assert.Equal(t, "R", room)
	requireConsistent(t, d, alice, bob)
	assert.Empty(t, d.MembersExcluding("R", "alice"))

	_, ok = d.Leave(bob)
	assert.False(t, ok, "second leave is a no-op")
}

func TestDirectory_SwitchRoomLeavesPrevious(t *testing.T) {
	d := NewDirectory()
	alice := newTestSession(d, nil, 1)
	bob := newTestSession(d, nil, 1)

	d.Join("R", "alice", alice)
	d.Join("R", "bob", bob)

	prev := d.Join("S", "bob", bob)
	assert.Equal(t, "R", prev)
	requireConsistent(t, d, alice, bob)

	assert.Empty(t, d.MembersExcluding("R", "alice"))
	assert.Equal(t, []string{"bob"}, d.MembersExcluding("S", "alice"))
}

func TestDirectory_PrunesEmptyRooms(t *testing.T) {
	d := NewDirectory()
	alice := newTestSession(d, nil, 1)

	d.Join("R", "alice", alice)
	require.Len(t, d.Rooms(), 1)

	d.Leave(alice)
	assert.Empty(t, d.Rooms())
	requireConsistent(t, d, alice)
}

func TestDirectory_DuplicateNamesArePermitted(t *testing.T) {
	d := NewDirectory()
	bob1 := newTestSession(d, nil, 1)
	bob2 := newTestSession(d, nil, 1)
	alice := newTestSession(d, nil, 1)

	d.Join("R", "alice", alice)
	d.Join("R", "bob", bob1)
	d.Join("R", "bob", bob2)
	requireConsistent(t, d, alice, bob1, bob2)
	assert.Equal(t, []string{"bob", "bob"}, d.MembersExcluding("R", "alice"))

	// One bob moving away must not hide the other from receipts.
	d.Join("S", "bob", bob2)
	requireConsistent(t, d, alice, bob1, bob2)
	assert.Equal(t, []string{"bob"}, d.MembersExcluding("R", "alice"))
	assert.Equal(t, []string{"bob"}, d.MembersExcluding("S", "alice"))

	// The sender's name is excluded even when it belongs to another session.
	assert.Equal(t, []string{"alice"}, d.MembersExcluding("R", "bob"))
}

func TestDirectory_Rooms(t *testing.T) {
	d := NewDirectory()
	d.Join("b-room", "carol", newTestSession(d, nil, 1))
	d.Join("a-room", "bob", newTestSession(d, nil, 1))
	d.Join("a-room", "alice", newTestSession(d, nil, 1))

	assert.Equal(t, []RoomInfo{
		{Name: "a-room", Members: []string{"alice", "bob"}},
		{Name: "b-room", Members: []string{"carol"}},
	}, d.Rooms())
}

func TestDirectory_ConcurrentJoinLeaveKeepsInvariants(t *testing.T) {
	d := NewDirectory()
	rooms := []string{"R1", "R2", "R3"}
	names := []string{"alice", "bob", "alice"} // duplicate on purpose

	sessions := make([]*Session, 12)
	for i := range sessions {
		sessions[i] = newTestSession(d, nil, 1)
	}

	stop := make(chan struct{})
	checked := make(chan error, 1)
	go func() {
		for {
			select {
			case <-stop:
				checked <- nil
				return
			default:
			}
			if err := checkRelations(d); err != nil {
				checked <- err
				return
			}
		}
	}()

	var wg sync.WaitGroup
	for i, s := range sessions {
		wg.Add(1)
		go func(i int, s *Session) {
			defer wg.Done()
			rng := rand.New(rand.NewSource(int64(i)))
			name := fmt.Sprintf("%s-%d", names[i%len(names)], i%4)
			for n := 0; n < 500; n++ {
				switch rng.Intn(3) {
				case 0, 1:
					d.Join(rooms[rng.Intn(len(rooms))], name, s)
				default:
					d.Leave(s)
				}
				_ = d.MembersExcluding(rooms[rng.Intn(len(rooms))], name)
			}
		}(i, s)
	}
	wg.Wait()
	close(stop)
	require.NoError(t, <-checked)

	requireConsistent(t, d, sessions...)
}
