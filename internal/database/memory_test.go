package database

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newSeededRepo(t *testing.T) (*MemoryRepository, User, User) {
	t.Helper()

	repo := NewMemoryRepository()
	require.NoError(t, repo.EnsureDefaultRooms())

	alice, err := repo.CreateAccount(CreateAccountParams{Username: "alice", PasswordHash: "x"})
	require.NoError(t, err)
	bob, err := repo.CreateAccount(CreateAccountParams{Username: "bob", PasswordHash: "x"})
	require.NoError(t, err)

	return repo, alice, bob
}

func TestEnsureDefaultRooms(t *testing.T) {
	repo := NewMemoryRepository()

	assert.NoError(t, repo.EnsureDefaultRooms())
	rooms, err := repo.GetAllRooms()
	assert.NoError(t, err)
	assert.Len(t, rooms, 2, "expected two seeded rooms")
	assert.Equal(t, "General", rooms[0].Name)
	assert.Equal(t, "Random", rooms[1].Name)

	// seeding is skipped when the catalog is non-empty
	assert.NoError(t, repo.EnsureDefaultRooms())
	rooms, err = repo.GetAllRooms()
	assert.NoError(t, err)
	assert.Len(t, rooms, 2, "expected seeding to be idempotent")
}

func TestCreateAccount_duplicateUsername(t *testing.T) {
	repo := NewMemoryRepository()

	_, err := repo.CreateAccount(CreateAccountParams{Username: "alice", PasswordHash: "x"})
	assert.NoError(t, err)

	_, err = repo.CreateAccount(CreateAccountParams{Username: "alice", PasswordHash: "y"})
	assert.ErrorIs(t, err, ErrDuplicateUser, "expected duplicate username to be rejected")
}

func TestCreateMessage_resolvesAuthorAndReply(t *testing.T) {
	repo, alice, bob := newSeededRepo(t)

	parent, err := repo.CreateMessage(CreateMessageParams{Content: "hello", UserId: alice.Id, RoomId: 1})
	require.NoError(t, err)
	assert.Equal(t, "alice", parent.User.Username, "expected author to be resolved")
	assert.Nil(t, parent.ReplyTo, "expected no reply target on a top-level message")

	reply, err := repo.CreateMessage(CreateMessageParams{Content: "hi back", UserId: bob.Id, RoomId: 1, ReplyToId: &parent.Id})
	require.NoError(t, err)
	require.NotNil(t, reply.ReplyTo, "expected reply target to be resolved")
	assert.Equal(t, parent.Id, reply.ReplyTo.Id)
	assert.Equal(t, "alice", reply.ReplyTo.User.Username)
}

func TestGetMessagesByRoom_oneLevelReplyResolution(t *testing.T) {
	repo, alice, bob := newSeededRepo(t)

	grandparent, err := repo.CreateMessage(CreateMessageParams{Content: "first", UserId: alice.Id, RoomId: 1})
	require.NoError(t, err)
	parent, err := repo.CreateMessage(CreateMessageParams{Content: "second", UserId: bob.Id, RoomId: 1, ReplyToId: &grandparent.Id})
	require.NoError(t, err)
	_, err = repo.CreateMessage(CreateMessageParams{Content: "third", UserId: alice.Id, RoomId: 1, ReplyToId: &parent.Id})
	require.NoError(t, err)

	messages, err := repo.GetMessagesByRoom(1, 50)
	require.NoError(t, err)
	require.Len(t, messages, 3)

	last := messages[2]
	require.NotNil(t, last.ReplyTo, "expected parent to be resolved")
	assert.Equal(t, parent.Id, last.ReplyTo.Id)
	assert.Nil(t, last.ReplyTo.ReplyTo, "expected grandparent to not be resolved")
}

func TestGetMessagesByRoom_orderAndLimit(t *testing.T) {
	repo, alice, _ := newSeededRepo(t)

	for i := 0; i < 5; i++ {
		_, err := repo.CreateMessage(CreateMessageParams{Content: "msg", UserId: alice.Id, RoomId: 1})
		require.NoError(t, err)
	}

	messages, err := repo.GetMessagesByRoom(1, 3)
	require.NoError(t, err)
	require.Len(t, messages, 3, "expected result capped at limit")

	// oldest first, and capped to the most recent messages
	assert.Less(t, messages[0].Id, messages[1].Id)
	assert.Less(t, messages[1].Id, messages[2].Id)
	assert.Equal(t, 5, messages[2].Id, "expected the newest message to be included")
}

func TestGetMessagesByRoom_filtersByRoom(t *testing.T) {
	repo, alice, _ := newSeededRepo(t)

	_, err := repo.CreateMessage(CreateMessageParams{Content: "room one", UserId: alice.Id, RoomId: 1})
	require.NoError(t, err)
	_, err = repo.CreateMessage(CreateMessageParams{Content: "room two", UserId: alice.Id, RoomId: 2})
	require.NoError(t, err)

	messages, err := repo.GetMessagesByRoom(2, 50)
	require.NoError(t, err)
	require.Len(t, messages, 1)
	assert.Equal(t, "room two", messages[0].Content)
}

func TestDeleteMessage(t *testing.T) {
	repo, alice, bob := newSeededRepo(t)

	msg, err := repo.CreateMessage(CreateMessageParams{Content: "mine", UserId: alice.Id, RoomId: 1})
	require.NoError(t, err)

	t.Run("non-author cannot delete", func(t *testing.T) {
		ok, err := repo.DeleteMessage(msg.Id, bob.Id)
		assert.NoError(t, err)
		assert.False(t, ok, "expected deletion by non-author to fail")

		messages, err := repo.GetMessagesByRoom(1, 50)
		require.NoError(t, err)
		assert.Len(t, messages, 1, "expected message to remain after failed deletion")
	})

	t.Run("author deletes", func(t *testing.T) {
		ok, err := repo.DeleteMessage(msg.Id, alice.Id)
		assert.NoError(t, err)
		assert.True(t, ok, "expected deletion by author to succeed")

		messages, err := repo.GetMessagesByRoom(1, 50)
		require.NoError(t, err)
		assert.Empty(t, messages, "expected message to be gone after deletion")
	})

	t.Run("missing message", func(t *testing.T) {
		ok, err := repo.DeleteMessage(999, alice.Id)
		assert.NoError(t, err)
		assert.False(t, ok)
	})
}

func TestGetAccountLookups(t *testing.T) {
	repo, alice, _ := newSeededRepo(t)

	u, err := repo.GetAccountByUsername("alice")
	assert.NoError(t, err)
	assert.Equal(t, alice.Id, u.Id)

	u, err = repo.GetAccountById(alice.Id)
	assert.NoError(t, err)
	assert.Equal(t, "alice", u.Username)

	_, err = repo.GetAccountByUsername("nobody")
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = repo.GetRoomById(99)
	assert.ErrorIs(t, err, ErrNotFound)
}
