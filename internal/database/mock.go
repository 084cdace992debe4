package database

import (
	"github.com/parleychat/parley/internal/types"
	"github.com/stretchr/testify/mock"
)

type MockRepository struct {
	mock.Mock
}

func (m *MockRepository) Ping() error {
	args := m.Called()
	return args.Error(0)
}

func (m *MockRepository) CreateAccount(params CreateAccountParams) (User, error) {
	args := m.Called(params)
	return args.Get(0).(User), args.Error(1)
}

func (m *MockRepository) GetAccountByUsername(username string) (User, error) {
	args := m.Called(username)
	return args.Get(0).(User), args.Error(1)
}

func (m *MockRepository) GetAccountById(id int) (User, error) {
	args := m.Called(id)
	return args.Get(0).(User), args.Error(1)
}

func (m *MockRepository) GetAllRooms() ([]types.Room, error) {
	args := m.Called()
	return args.Get(0).([]types.Room), args.Error(1)
}

func (m *MockRepository) GetRoomById(id int) (types.Room, error) {
	args := m.Called(id)
	return args.Get(0).(types.Room), args.Error(1)
}

func (m *MockRepository) EnsureDefaultRooms() error {
	args := m.Called()
	return args.Error(0)
}

func (m *MockRepository) GetMessagesByRoom(roomId, limit int) ([]types.MessageWithUser, error) {
	args := m.Called(roomId, limit)
	return args.Get(0).([]types.MessageWithUser), args.Error(1)
}

func (m *MockRepository) GetMessageById(id int) (types.MessageWithUser, error) {
	args := m.Called(id)
	return args.Get(0).(types.MessageWithUser), args.Error(1)
}

func (m *MockRepository) CreateMessage(params CreateMessageParams) (types.MessageWithUser, error) {
	args := m.Called(params)
	return args.Get(0).(types.MessageWithUser), args.Error(1)
}

func (m *MockRepository) DeleteMessage(id, userId int) (bool, error) {
	args := m.Called(id, userId)
	return args.Bool(0), args.Error(1)
}
