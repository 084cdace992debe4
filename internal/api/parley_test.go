package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/parleychat/parley/internal/config"
	"github.com/parleychat/parley/internal/database"
	"github.com/parleychat/parley/internal/server"
	"github.com/parleychat/parley/internal/stats"
	"github.com/parleychat/parley/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// startTestApp runs the full app against an in-memory repository and returns
// the test server hosting it.
func startTestApp(t *testing.T, repo database.Repository) *httptest.Server {
	t.Helper()

	mux := http.NewServeMux()
	su := stats.NewStatsUpdater(mux)
	su.Run()

	logger := testutil.TestLogger(t)
	cs, err := server.NewChatServer(logger, repo, su)
	require.NoError(t, err)
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		cs.Shutdown(ctx)
	})

	cfg := &config.Config{
		ServerAddr:     "localhost:0",
		SigningKey:     []byte("test-signing-key"),
		HistoryLimit:   50,
		AllowedOrigins: []string{"http://chat.test"},
	}
	app := NewParleyApp(mux, logger, cs, repo, su, cfg)

	ts := httptest.NewServer(app.mux.Handler)
	t.Cleanup(ts.Close)

	return ts
}

func dialWs(t *testing.T, ts *httptest.Server) *websocket.Conn {
	t.Helper()

	wsUrl := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws"
	conn, resp, err := websocket.DefaultDialer.Dial(wsUrl, nil)
	require.NoError(t, err, "failed to dial websocket")
	if resp != nil {
		resp.Body.Close()
	}
	t.Cleanup(func() { conn.Close() })

	return conn
}

func readWsEvent(t *testing.T, conn *websocket.Conn) map[string]any {
	t.Helper()

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, raw, err := conn.ReadMessage()
	require.NoError(t, err, "failed to read frame")

	var ev map[string]any
	require.NoError(t, json.Unmarshal(raw, &ev))

	return ev
}

func TestChatSession(t *testing.T) {
	repo := database.NewMemoryRepository()
	require.NoError(t, repo.EnsureDefaultRooms())

	alice, err := repo.CreateAccount(database.CreateAccountParams{Username: "alice", PasswordHash: "x"})
	require.NoError(t, err)
	bob, err := repo.CreateAccount(database.CreateAccountParams{Username: "bob", PasswordHash: "x"})
	require.NoError(t, err)

	ts := startTestApp(t, repo)

	c1 := dialWs(t, ts)
	require.NoError(t, c1.WriteJSON(map[string]any{
		"type": "auth", "userId": alice.Id, "username": alice.Username, "roomId": 1,
	}))

	ev := readWsEvent(t, c1)
	assert.Equal(t, "userCount", ev["type"])
	assert.Equal(t, float64(1), ev["count"])

	ev = readWsEvent(t, c1)
	assert.Equal(t, "authSuccess", ev["type"])
	assert.Equal(t, float64(1), ev["roomId"])

	c2 := dialWs(t, ts)
	require.NoError(t, c2.WriteJSON(map[string]any{
		"type": "auth", "userId": bob.Id, "username": bob.Username, "roomId": 1,
	}))

	// both ends see the membership grow before bob's ack
	ev = readWsEvent(t, c2)
	assert.Equal(t, "userCount", ev["type"])
	assert.Equal(t, float64(2), ev["count"])
	ev = readWsEvent(t, c2)
	assert.Equal(t, "authSuccess", ev["type"])

	ev = readWsEvent(t, c1)
	assert.Equal(t, "userCount", ev["type"])
	assert.Equal(t, float64(2), ev["count"])

	// a message from alice reaches everyone in the room, sender included
	require.NoError(t, c1.WriteJSON(map[string]any{"type": "message", "content": "hello everyone"}))

	for _, conn := range []*websocket.Conn{c1, c2} {
		ev = readWsEvent(t, conn)
		require.Equal(t, "newMessage", ev["type"])
		msg, ok := ev["message"].(map[string]any)
		require.True(t, ok, "expected a message payload")
		assert.Equal(t, "hello everyone", msg["content"])
		assert.Equal(t, "alice", msg["user"].(map[string]any)["username"])
	}

	// typing indicators skip the sender
	require.NoError(t, c2.WriteJSON(map[string]any{"type": "typing", "isTyping": true, "username": "bob"}))

	ev = readWsEvent(t, c1)
	assert.Equal(t, "typing", ev["type"])
	assert.Equal(t, "bob", ev["username"])
	assert.Equal(t, true, ev["isTyping"])

	// the message is durable and readable through the history endpoint
	resp, err := http.Get(ts.URL + "/api/rooms/1/messages")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var history []map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&history))
	require.Len(t, history, 1)
	assert.Equal(t, "hello everyone", history[0]["content"])

	// alice disconnecting shrinks the count bob sees; nothing was queued to
	// bob in between, typing echoes never reach their sender
	require.NoError(t, c1.Close())

	ev = readWsEvent(t, c2)
	assert.Equal(t, "userCount", ev["type"])
	assert.Equal(t, float64(1), ev["count"])
}

func TestJoinRoomSession(t *testing.T) {
	repo := database.NewMemoryRepository()
	require.NoError(t, repo.EnsureDefaultRooms())

	alice, err := repo.CreateAccount(database.CreateAccountParams{Username: "alice", PasswordHash: "x"})
	require.NoError(t, err)

	ts := startTestApp(t, repo)

	conn := dialWs(t, ts)
	require.NoError(t, conn.WriteJSON(map[string]any{
		"type": "auth", "userId": alice.Id, "username": alice.Username, "roomId": 1,
	}))

	readWsEvent(t, conn) // userCount for room 1
	readWsEvent(t, conn) // authSuccess

	require.NoError(t, conn.WriteJSON(map[string]any{"type": "joinRoom", "roomId": 2}))

	// the mover has already left room 1 when its count is announced, so the
	// only count it hears is the new room filling
	ev := readWsEvent(t, conn)
	assert.Equal(t, "userCount", ev["type"])
	assert.Equal(t, float64(1), ev["count"])

	// messages now land in room 2
	require.NoError(t, conn.WriteJSON(map[string]any{"type": "message", "content": "moved"}))
	ev = readWsEvent(t, conn)
	require.Equal(t, "newMessage", ev["type"])
	assert.Equal(t, float64(2), ev["message"].(map[string]any)["roomId"])
}

func TestServeWsOriginCheck(t *testing.T) {
	repo := database.NewMemoryRepository()
	require.NoError(t, repo.EnsureDefaultRooms())

	ts := startTestApp(t, repo)
	wsUrl := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws"

	t.Run("rejects an unlisted origin", func(t *testing.T) {
		header := http.Header{"Origin": []string{"http://evil.test"}}
		conn, resp, err := websocket.DefaultDialer.Dial(wsUrl, header)
		require.Error(t, err, "expected the handshake to fail")
		if resp != nil {
			resp.Body.Close()
		}
		if conn != nil {
			conn.Close()
		}
	})

	t.Run("accepts a listed origin", func(t *testing.T) {
		header := http.Header{"Origin": []string{"http://chat.test"}}
		conn, resp, err := websocket.DefaultDialer.Dial(wsUrl, header)
		require.NoError(t, err)
		if resp != nil {
			resp.Body.Close()
		}
		conn.Close()
	})
}
