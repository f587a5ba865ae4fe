package core

import "time"

// EventKind is a notification the core emits to connections.
type EventKind int

const (
	// EventRoomList delivers the room catalogue to a single connection.
	EventRoomList EventKind = iota
	// EventOnlineUsers notifies a room about its distinct present users.
	EventOnlineUsers
	// EventNewMessage notifies a room about a persisted chat message.
	EventNewMessage
	// EventNewPrivateMessage notifies sender and recipient connections about
	// a persisted direct message.
	EventNewPrivateMessage
	// EventPrivateHistory delivers a conversation to a single connection.
	EventPrivateHistory
	// EventErrorMessage reports a failure to the originating connection only.
	EventErrorMessage
)

// UserView is the sender projection attached to outbound events.
type UserView struct {
	ID       int64
	Username string
	Email    string
}

// RoomView describes a room in the catalogue.
type RoomView struct {
	ID          int64
	Name        string
	Description string
}

// MessageView is a persisted room message enriched with its author.
type MessageView struct {
	ID        int64
	RoomID    int64
	Content   string
	Author    UserView
	CreatedAt time.Time
}

// PrivateMessageView is a persisted direct message enriched with both parties.
type PrivateMessageView struct {
	ID        int64
	Content   string
	From      UserView
	To        UserView
	CreatedAt time.Time
}

// Event is sent to connections to describe what happened in the system.
// Events are ephemeral: constructed, fanned out, and dropped.
type Event struct {
	Kind    EventKind
	Room    int64
	Rooms   []RoomView
	Users   []UserView
	Message *MessageView
	Private *PrivateMessageView
	History []PrivateMessageView
	Error   *CoreError
}
