package server

import (
	"slices"
	"sync"
)

// TypingTracker holds the ephemeral set of usernames currently typing in
// each room. Entries are added and removed by client typing events; the
// session additionally clears a user's entry on disconnect and room switch.
// Nothing here is persisted.
type TypingTracker struct {
	mu    sync.Mutex
	rooms map[int][]string
}

func NewTypingTracker() *TypingTracker {
	return &TypingTracker{
		rooms: make(map[int][]string),
	}
}

// MarkTyping adds username to the room's typing set, keeping insertion
// order. Marking an already present user is a no-op.
func (t *TypingTracker) MarkTyping(roomId int, username string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if slices.Contains(t.rooms[roomId], username) {
		return
	}
	t.rooms[roomId] = append(t.rooms[roomId], username)
}

// ClearTyping removes username from the room's typing set and reports
// whether an entry was removed.
func (t *TypingTracker) ClearTyping(roomId int, username string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	users, ok := t.rooms[roomId]
	if !ok {
		return false
	}

	i := slices.Index(users, username)
	if i < 0 {
		return false
	}

	users = slices.Delete(users, i, i+1)
	if len(users) == 0 {
		delete(t.rooms, roomId)
	} else {
		t.rooms[roomId] = users
	}

	return true
}

// ListTyping returns a snapshot of the room's typing usernames in insertion
// order.
func (t *TypingTracker) ListTyping(roomId int) []string {
	t.mu.Lock()
	defer t.mu.Unlock()

	return slices.Clone(t.rooms[roomId])
}
