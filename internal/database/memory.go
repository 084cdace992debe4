package database

import (
	"sort"
	"sync"
	"time"

	"github.com/parleychat/parley/internal/types"
)

// MemoryRepository is a map-backed Repository used when no database DSN is
// configured, and as the backing store for end-to-end tests.
type MemoryRepository struct {
	mu       sync.RWMutex
	users    map[int]User
	rooms    map[int]types.Room
	messages map[int]types.Message
	nextUser int
	nextRoom int
	nextMsg  int
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		users:    make(map[int]User),
		rooms:    make(map[int]types.Room),
		messages: make(map[int]types.Message),
		nextUser: 1,
		nextRoom: 1,
		nextMsg:  1,
	}
}

func (m *MemoryRepository) Ping() error { return nil }

func (m *MemoryRepository) CreateAccount(params CreateAccountParams) (User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, u := range m.users {
		if u.Username == params.Username {
			return User{}, ErrDuplicateUser
		}
	}

	u := User{
		Id:           m.nextUser,
		Username:     params.Username,
		PasswordHash: params.PasswordHash,
		CreatedAt:    time.Now().UTC(),
	}
	m.users[u.Id] = u
	m.nextUser++

	return u, nil
}

func (m *MemoryRepository) GetAccountByUsername(username string) (User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, u := range m.users {
		if u.Username == username {
			return u, nil
		}
	}

	return User{}, ErrNotFound
}

func (m *MemoryRepository) GetAccountById(id int) (User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	u, ok := m.users[id]
	if !ok {
		return User{}, ErrNotFound
	}

	return u, nil
}

func (m *MemoryRepository) GetAllRooms() ([]types.Room, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	rooms := make([]types.Room, 0, len(m.rooms))
	for _, r := range m.rooms {
		rooms = append(rooms, r)
	}
	sort.Slice(rooms, func(i, j int) bool { return rooms[i].Id < rooms[j].Id })

	return rooms, nil
}

func (m *MemoryRepository) GetRoomById(id int) (types.Room, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	r, ok := m.rooms[id]
	if !ok {
		return types.Room{}, ErrNotFound
	}

	return r, nil
}

func (m *MemoryRepository) EnsureDefaultRooms() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if len(m.rooms) > 0 {
		return nil
	}

	for _, seed := range defaultRooms {
		r := types.Room{Id: m.nextRoom, Name: seed.name, Description: seed.description}
		m.rooms[r.Id] = r
		m.nextRoom++
	}

	return nil
}

// withUser builds the read model for msg without resolving its reply target.
func (m *MemoryRepository) withUser(msg types.Message) (types.MessageWithUser, error) {
	u, ok := m.users[msg.UserId]
	if !ok {
		return types.MessageWithUser{}, ErrNotFound
	}

	return types.MessageWithUser{
		Message: msg,
		User:    types.UserRef{Id: u.Id, Username: u.Username},
	}, nil
}

func (m *MemoryRepository) resolveReply(msg *types.MessageWithUser) {
	if msg.ReplyToId == nil {
		return
	}

	parent, ok := m.messages[*msg.ReplyToId]
	if !ok {
		return
	}

	if enriched, err := m.withUser(parent); err == nil {
		msg.ReplyTo = &enriched
	}
}

func (m *MemoryRepository) GetMessagesByRoom(roomId, limit int) ([]types.MessageWithUser, error) {
	if limit <= 0 {
		limit = 50
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	var roomMessages []types.Message
	for _, msg := range m.messages {
		if msg.RoomId == roomId {
			roomMessages = append(roomMessages, msg)
		}
	}
	sort.Slice(roomMessages, func(i, j int) bool { return roomMessages[i].Id < roomMessages[j].Id })

	if len(roomMessages) > limit {
		roomMessages = roomMessages[len(roomMessages)-limit:]
	}

	messages := make([]types.MessageWithUser, 0, len(roomMessages))
	for _, msg := range roomMessages {
		enriched, err := m.withUser(msg)
		if err != nil {
			continue
		}
		m.resolveReply(&enriched)
		messages = append(messages, enriched)
	}

	return messages, nil
}

func (m *MemoryRepository) GetMessageById(id int) (types.MessageWithUser, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	msg, ok := m.messages[id]
	if !ok {
		return types.MessageWithUser{}, ErrNotFound
	}

	enriched, err := m.withUser(msg)
	if err != nil {
		return types.MessageWithUser{}, err
	}
	m.resolveReply(&enriched)

	return enriched, nil
}

func (m *MemoryRepository) CreateMessage(params CreateMessageParams) (types.MessageWithUser, error) {
	m.mu.Lock()

	msg := types.Message{
		Id:        m.nextMsg,
		Content:   params.Content,
		UserId:    params.UserId,
		RoomId:    params.RoomId,
		ReplyToId: params.ReplyToId,
		CreatedAt: time.Now().UTC(),
	}
	m.messages[msg.Id] = msg
	m.nextMsg++
	m.mu.Unlock()

	return m.GetMessageById(msg.Id)
}

func (m *MemoryRepository) DeleteMessage(id, userId int) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	msg, ok := m.messages[id]
	if !ok || msg.UserId != userId {
		return false, nil
	}

	delete(m.messages, id)
	return true, nil
}
