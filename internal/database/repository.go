package database

import (
	"errors"

	"github.com/parleychat/parley/internal/types"
)

var (
	ErrNotFound      = errors.New("not found")
	ErrDuplicateUser = errors.New("username already taken")
)

// Repository is the durable store for users, rooms and messages. Message
// reads return wire-shaped read models with the author attached and reply
// targets resolved exactly one level deep.
type Repository interface {
	Ping() error
	CreateAccount(params CreateAccountParams) (User, error)
	GetAccountByUsername(username string) (User, error)
	GetAccountById(id int) (User, error)
	GetAllRooms() ([]types.Room, error)
	GetRoomById(id int) (types.Room, error)
	EnsureDefaultRooms() error
	GetMessagesByRoom(roomId, limit int) ([]types.MessageWithUser, error)
	GetMessageById(id int) (types.MessageWithUser, error)
	CreateMessage(params CreateMessageParams) (types.MessageWithUser, error)
	DeleteMessage(id, userId int) (bool, error)
}
