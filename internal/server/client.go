package server

import (
	"encoding/json"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/parleychat/parley/internal/stats"
	"github.com/parleychat/parley/internal/types"
	"github.com/teris-io/shortid"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingInterval   = (pongWait * 9) / 10
	maxMessageSize = 1024
)

// Client is the per-connection session. It starts unauthenticated; an auth
// event attaches the user identity and joins the initial room. Session state
// (user, roomId, authed) is only touched from the Read goroutine.
type Client struct {
	id         string
	conn       *websocket.Conn
	chatServer *ChatServer
	log        *log.Logger
	stats      stats.StatsProvider
	user       types.User
	roomId     int
	authed     bool
	send       chan []byte
	stop       chan struct{}
	stopOnce   sync.Once
}

func NewClient(conn *websocket.Conn, cs *ChatServer, l *log.Logger, su stats.StatsProvider) *Client {
	id, err := shortid.Generate()
	if err != nil {
		id = "conn"
	}

	return &Client{
		id:         id,
		conn:       conn,
		chatServer: cs,
		log:        l,
		stats:      su,
		send:       make(chan []byte, 256),
		stop:       make(chan struct{}),
	}
}

func (c *Client) Write() {
	ticker := time.NewTicker(pingInterval)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case frame, ok := <-c.send:
			if !ok {
				return
			}

			if !c.writeFrame(websocket.TextMessage, frame) {
				return
			}
		case <-c.stop:
			return
		case <-ticker.C:
			if !c.writeFrame(websocket.PingMessage, nil) {
				return
			}
		}
	}
}

func (c *Client) Read() {
	defer func() {
		c.conn.Close()
		c.cleanup()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(appData string) error { c.conn.SetReadDeadline(time.Now().Add(pongWait)); return nil })
	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure,
				websocket.CloseNormalClosure) {
				c.log.Printf("ws: read %s: %v", c.id, err)
			}
			break
		}

		c.handleFrame(raw)
	}
}

// handleFrame decodes one inbound frame and dispatches it. A malformed or
// unknown frame yields an error reply and leaves all state untouched.
func (c *Client) handleFrame(raw []byte) {
	ev, err := decodeClientEvent(raw)
	if err != nil {
		c.log.Printf("connection %s: %v", c.id, err)
		c.queueEvent(newErrorEvent("invalid message format"))
		return
	}

	if _, ok := ev.(AuthEvent); !ok && !c.authed {
		c.queueEvent(newErrorEvent("not authenticated"))
		return
	}

	switch ev := ev.(type) {
	case AuthEvent:
		c.handleAuth(ev)
	case MessageEvent:
		c.handleMessage(ev)
	case TypingEvent:
		c.handleTyping(ev)
	case JoinRoomEvent:
		c.handleJoinRoom(ev)
	}
}

func (c *Client) handleAuth(ev AuthEvent) {
	if c.authed {
		c.queueEvent(newErrorEvent("already authenticated"))
		return
	}

	if ev.UserId <= 0 || ev.Username == "" || ev.RoomId <= 0 {
		c.queueEvent(newErrorEvent("invalid auth event"))
		return
	}

	// identity was established by the session layer, trust it here
	c.user = types.User{Id: ev.UserId, Username: ev.Username}
	c.roomId = ev.RoomId
	c.authed = true

	c.chatServer.registry.Register(c.roomId, c)
	c.chatServer.PublishMembershipCount(c.roomId)
	c.queueEvent(newAuthSuccessEvent(c.roomId))

	c.log.Printf("connection %s authenticated as %q in room %d", c.id, c.user.Username, c.roomId)
}

func (c *Client) handleMessage(ev MessageEvent) {
	if strings.TrimSpace(ev.Content) == "" {
		c.queueEvent(newErrorEvent("message content cannot be empty"))
		return
	}

	msg, err := c.chatServer.CreateMessage(ev.Content, c.user.Id, c.roomId, ev.ReplyToId)
	if err != nil {
		c.log.Printf("connection %s: create message: %v", c.id, err)
		c.queueEvent(newErrorEvent("failed to save message"))
		return
	}

	c.stats.Incr("MessagesSent")
	// the sender receives the broadcast too and reconciles by message id
	c.chatServer.Broadcast(c.roomId, newMessageEvent(msg), nil)
}

func (c *Client) handleTyping(ev TypingEvent) {
	if ev.IsTyping {
		c.chatServer.typing.MarkTyping(c.roomId, ev.Username)
	} else {
		c.chatServer.typing.ClearTyping(c.roomId, ev.Username)
	}

	c.stats.Incr("TypingEvents")
	c.chatServer.Broadcast(c.roomId, newTypingStatusEvent(c.user.Id, ev.Username, ev.IsTyping), c)
}

func (c *Client) handleJoinRoom(ev JoinRoomEvent) {
	if ev.RoomId <= 0 {
		c.queueEvent(newErrorEvent("invalid joinRoom event"))
		return
	}

	oldRoom := c.roomId
	c.chatServer.registry.Unregister(oldRoom, c)
	c.clearTypingState(oldRoom)
	c.chatServer.PublishMembershipCount(oldRoom)

	c.roomId = ev.RoomId
	c.chatServer.registry.Register(c.roomId, c)
	c.chatServer.PublishMembershipCount(c.roomId)

	c.log.Printf("connection %s moved from room %d to room %d", c.id, oldRoom, ev.RoomId)
}

// clearTypingState drops the user's typing entry for roomId and, if one was
// present, tells the room the user stopped typing.
func (c *Client) clearTypingState(roomId int) {
	if c.chatServer.typing.ClearTyping(roomId, c.user.Username) {
		c.chatServer.Broadcast(roomId, newTypingStatusEvent(c.user.Id, c.user.Username, false), c)
	}
}

// queueFrame enqueues a pre-encoded frame for the write pump. It never
// blocks; a full channel drops the frame and reports false.
func (c *Client) queueFrame(frame []byte) bool {
	select {
	case c.send <- frame:
	default:
		c.log.Printf("send buffer full for connection %s, dropping frame", c.id)
		return false
	}

	return true
}

func (c *Client) queueEvent(event any) bool {
	frame, err := json.Marshal(event)
	if err != nil {
		c.log.Printf("connection %s: marshal event: %v", c.id, err)
		return false
	}

	return c.queueFrame(frame)
}

func (c *Client) writeFrame(msgType int, frame []byte) bool {
	c.conn.SetWriteDeadline(time.Now().Add(writeWait))

	if err := c.conn.WriteMessage(msgType, frame); err != nil {
		if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure,
			websocket.CloseNormalClosure) {
			c.log.Printf("ws: write %s: %v", c.id, err)
		}
		return false
	}

	return true
}

func (c *Client) stopClient() {
	c.stopOnce.Do(func() {
		close(c.stop)
	})
}

func (c *Client) cleanup() {
	if c.authed {
		c.chatServer.registry.Unregister(c.roomId, c)
		c.clearTypingState(c.roomId)
		c.chatServer.PublishMembershipCount(c.roomId)
	}

	c.chatServer.DeregisterClient(c)
	c.stopClient()
}
