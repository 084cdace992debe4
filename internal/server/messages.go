package server

import (
	"encoding/json"
	"fmt"

	"github.com/parleychat/parley/internal/types"
)

// Inbound event kinds. Any other tag is rejected.
const (
	kindAuth     = "auth"
	kindMessage  = "message"
	kindTyping   = "typing"
	kindJoinRoom = "joinRoom"
)

// Outbound event kinds.
const (
	kindAuthSuccess = "authSuccess"
	kindNewMessage  = "newMessage"
	kindUserCount   = "userCount"
	kindError       = "error"
)

type AuthEvent struct {
	UserId   int    `json:"userId"`
	Username string `json:"username"`
	RoomId   int    `json:"roomId"`
}

type MessageEvent struct {
	Content   string `json:"content"`
	ReplyToId *int   `json:"replyToId"`
}

type TypingEvent struct {
	IsTyping bool   `json:"isTyping"`
	Username string `json:"username"`
}

type JoinRoomEvent struct {
	RoomId int `json:"roomId"`
}

// decodeClientEvent parses a frame into exactly one of the inbound event
// types, keyed by the "type" discriminator.
func decodeClientEvent(raw []byte) (any, error) {
	var env struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, fmt.Errorf("parse frame: %w", err)
	}

	switch env.Type {
	case kindAuth:
		var ev AuthEvent
		if err := json.Unmarshal(raw, &ev); err != nil {
			return nil, fmt.Errorf("parse auth event: %w", err)
		}
		return ev, nil
	case kindMessage:
		var ev MessageEvent
		if err := json.Unmarshal(raw, &ev); err != nil {
			return nil, fmt.Errorf("parse message event: %w", err)
		}
		return ev, nil
	case kindTyping:
		var ev TypingEvent
		if err := json.Unmarshal(raw, &ev); err != nil {
			return nil, fmt.Errorf("parse typing event: %w", err)
		}
		return ev, nil
	case kindJoinRoom:
		var ev JoinRoomEvent
		if err := json.Unmarshal(raw, &ev); err != nil {
			return nil, fmt.Errorf("parse joinRoom event: %w", err)
		}
		return ev, nil
	default:
		return nil, fmt.Errorf("unknown event kind %q", env.Type)
	}
}

type AuthSuccessEvent struct {
	Type   string `json:"type"`
	RoomId int    `json:"roomId"`
}

func newAuthSuccessEvent(roomId int) AuthSuccessEvent {
	return AuthSuccessEvent{Type: kindAuthSuccess, RoomId: roomId}
}

type NewMessageEvent struct {
	Type    string                `json:"type"`
	Message types.MessageWithUser `json:"message"`
}

func newMessageEvent(msg types.MessageWithUser) NewMessageEvent {
	return NewMessageEvent{Type: kindNewMessage, Message: msg}
}

type UserCountEvent struct {
	Type  string `json:"type"`
	Count int    `json:"count"`
}

func newUserCountEvent(count int) UserCountEvent {
	return UserCountEvent{Type: kindUserCount, Count: count}
}

type TypingStatusEvent struct {
	Type     string `json:"type"`
	UserId   int    `json:"userId"`
	Username string `json:"username"`
	IsTyping bool   `json:"isTyping"`
}

func newTypingStatusEvent(userId int, username string, isTyping bool) TypingStatusEvent {
	return TypingStatusEvent{Type: kindTyping, UserId: userId, Username: username, IsTyping: isTyping}
}

type ErrorEvent struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

func newErrorEvent(message string) ErrorEvent {
	return ErrorEvent{Type: kindError, Message: message}
}
