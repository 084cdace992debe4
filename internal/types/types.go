package types

import (
	"time"
)

type User struct {
	Id        int       `json:"id"`
	Username  string    `json:"username"`
	CreatedAt time.Time `json:"createdAt,omitempty"`
}

// UserRef is the author shape embedded in message read models.
type UserRef struct {
	Id       int    `json:"id"`
	Username string `json:"username"`
}

type Room struct {
	Id          int    `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
}

type Message struct {
	Id        int       `json:"id"`
	Content   string    `json:"content"`
	UserId    int       `json:"userId"`
	RoomId    int       `json:"roomId"`
	ReplyToId *int      `json:"replyToId"`
	CreatedAt time.Time `json:"createdAt"`
}

// MessageWithUser is a message enriched with its author and, when the
// message is a reply, the parent resolved exactly one level deep. The
// parent's own ReplyTo is always nil regardless of whether the parent
// was itself a reply.
type MessageWithUser struct {
	Message
	User    UserRef          `json:"user"`
	ReplyTo *MessageWithUser `json:"replyTo,omitempty"`
}
