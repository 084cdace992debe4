package server

import (
	"context"
	"encoding/json"
	"log"
	"sync"

	"github.com/parleychat/parley/internal/database"
	"github.com/parleychat/parley/internal/stats"
	"github.com/parleychat/parley/internal/types"
)

// ChatServer owns the broadcast engine and the shared room state: the
// connection registry and the typing tracker. Both are constructed once at
// server start and torn down with it.
type ChatServer struct {
	log      *log.Logger
	db       database.Repository
	stats    stats.StatsProvider
	registry *Registry
	typing   *TypingTracker

	clients     map[*Client]struct{}
	clientsLock sync.Mutex
	wg          sync.WaitGroup
}

func NewChatServer(logger *log.Logger, db database.Repository, su stats.StatsProvider) (*ChatServer, error) {
	cs := &ChatServer{
		log:      logger,
		db:       db,
		stats:    su,
		registry: NewRegistry(),
		typing:   NewTypingTracker(),
		clients:  make(map[*Client]struct{}),
	}

	for _, name := range []string{"NumConnections", "MessagesSent", "TypingEvents", "BroadcastDrops"} {
		su.RegisterMetric(name)
	}

	return cs, nil
}

// RegisterClient starts tracking a connection for shutdown.
func (cs *ChatServer) RegisterClient(c *Client) {
	cs.clientsLock.Lock()
	defer cs.clientsLock.Unlock()

	if _, ok := cs.clients[c]; ok {
		return
	}

	cs.clients[c] = struct{}{}
	cs.wg.Add(1)
	cs.stats.Incr("NumConnections")
	cs.log.Printf("connection %s registered", c.id)
}

func (cs *ChatServer) DeregisterClient(c *Client) {
	cs.clientsLock.Lock()
	defer cs.clientsLock.Unlock()

	if _, ok := cs.clients[c]; !ok {
		return
	}

	delete(cs.clients, c)
	cs.wg.Done()
	cs.stats.Decr("NumConnections")
	cs.log.Printf("connection %s deregistered", c.id)
}

// Broadcast serializes event once and enqueues the frame to every connection
// in the room except skip. A full send buffer on one connection is counted
// and skipped without affecting delivery to the rest.
func (cs *ChatServer) Broadcast(roomId int, event any, skip *Client) {
	frame, err := json.Marshal(event)
	if err != nil {
		cs.log.Println("marshal broadcast event:", err)
		return
	}

	for _, c := range cs.registry.AllIn(roomId) {
		if c == skip {
			continue
		}

		if !c.queueFrame(frame) {
			cs.stats.Incr("BroadcastDrops")
		}
	}
}

// PublishMembershipCount broadcasts the room's current connection count to
// the whole room.
func (cs *ChatServer) PublishMembershipCount(roomId int) {
	cs.Broadcast(roomId, newUserCountEvent(cs.registry.CountOf(roomId)), nil)
}

// CreateMessage persists a message and returns the enriched read model. The
// write has completed before the caller broadcasts, so a message seen live
// is always retrievable through the history read path.
func (cs *ChatServer) CreateMessage(content string, userId, roomId int, replyToId *int) (types.MessageWithUser, error) {
	return cs.db.CreateMessage(database.CreateMessageParams{
		Content:   content,
		UserId:    userId,
		RoomId:    roomId,
		ReplyToId: replyToId,
	})
}

// Shutdown stops every tracked connection and waits for their sessions to
// finish cleaning up, or for ctx to expire.
func (cs *ChatServer) Shutdown(ctx context.Context) error {
	cs.log.Println("shutting down chat server")

	cs.clientsLock.Lock()
	for c := range cs.clients {
		c.stopClient()
	}
	cs.clientsLock.Unlock()

	done := make(chan struct{})
	go func() {
		cs.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
