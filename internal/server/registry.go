package server

import "sync"

// Registry tracks the live set of connections joined to each room. All
// operations are safe under concurrent callers. A connection belongs to at
// most one room at a time; moving rooms is an unregister followed by a
// register, driven by the session.
type Registry struct {
	mu    sync.RWMutex
	rooms map[int]map[*Client]struct{}
}

func NewRegistry() *Registry {
	return &Registry{
		rooms: make(map[int]map[*Client]struct{}),
	}
}

// Register adds c to the room's set. Registering an already present
// connection is a no-op.
func (r *Registry) Register(roomId int, c *Client) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.rooms[roomId] == nil {
		r.rooms[roomId] = make(map[*Client]struct{})
	}
	r.rooms[roomId][c] = struct{}{}
}

// Unregister removes c from the room's set. Removing an absent connection
// is a no-op.
func (r *Registry) Unregister(roomId int, c *Client) {
	r.mu.Lock()
	defer r.mu.Unlock()

	clients, ok := r.rooms[roomId]
	if !ok {
		return
	}

	delete(clients, c)
	if len(clients) == 0 {
		delete(r.rooms, roomId)
	}
}

// CountOf returns the number of connections currently in the room, zero for
// an unknown room.
func (r *Registry) CountOf(roomId int) int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return len(r.rooms[roomId])
}

// AllIn returns a snapshot of the room's connections. The caller may iterate
// it while registrations race; deliveries to individual connections never
// hold the registry lock.
func (r *Registry) AllIn(roomId int) []*Client {
	r.mu.RLock()
	defer r.mu.RUnlock()

	clients := make([]*Client, 0, len(r.rooms[roomId]))
	for c := range r.rooms[roomId] {
		clients = append(clients, c)
	}

	return clients
}
