package database

import "time"

type User struct {
	Id           int
	Username     string
	PasswordHash string
	CreatedAt    time.Time
}

type CreateAccountParams struct {
	Username     string
	PasswordHash string
}

type CreateMessageParams struct {
	Content   string
	UserId    int
	RoomId    int
	ReplyToId *int
}

type roomSeed struct {
	name        string
	description string
}

// defaultRooms is the catalog seeded into an empty store.
var defaultRooms = []roomSeed{
	{name: "General", description: "General discussion"},
	{name: "Random", description: "Random topics"},
}
