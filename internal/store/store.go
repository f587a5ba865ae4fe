package store

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = errors.New("record not found")

// Role defines the user role.
type Role string

const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

// User represents a registered user.
type User struct {
	ID           int64
	Username     string
	Email        string
	PasswordHash string
	Photo        string
	Bio          string
	Role         Role
	IsBanned     bool
	Reports      int
	CreatedAt    time.Time
}

// Room represents a chat room.
type Room struct {
	ID          int64
	Name        string
	Description string
	CreatedAt   time.Time
}

// Message represents a persisted room message.
type Message struct {
	ID        int64
	RoomID    int64
	AuthorID  int64
	Content   string
	CreatedAt time.Time
}

// PrivateMessage represents a persisted direct message between two users.
type PrivateMessage struct {
	ID         int64
	FromUserID int64
	ToUserID   int64
	Content    string
	CreatedAt  time.Time
}

// UserStore handles user persistence.
type UserStore interface {
	// CreateUser creates a new user with hashed password.
	CreateUser(ctx context.Context, username, email, passwordHash string) (*User, error)

	// GetUserByID retrieves a user by ID.
	GetUserByID(ctx context.Context, id int64) (*User, error)

	// GetUserByEmail retrieves a user by email.
	GetUserByEmail(ctx context.Context, email string) (*User, error)

	// GetUserByUsername retrieves a user by username.
	GetUserByUsername(ctx context.Context, username string) (*User, error)

	// GetUsersByIDs retrieves the users matching the given IDs, username-ordered.
	GetUsersByIDs(ctx context.Context, ids []int64) ([]*User, error)

	// ListUsers lists all users.
	ListUsers(ctx context.Context) ([]*User, error)

	// UpdateProfile updates a user's username and email.
	UpdateProfile(ctx context.Context, id int64, username, email string) error

	// BlockUser records that blocker has blocked blocked. Idempotent.
	BlockUser(ctx context.Context, blockerID, blockedID int64) error

	// UnblockUser removes a block relation. Unknown relation is a no-op.
	UnblockUser(ctx context.Context, blockerID, blockedID int64) error

	// ListBlockedUsers lists the users blocked by the given user.
	ListBlockedUsers(ctx context.Context, userID int64) ([]*User, error)

	// HasBlocked reports whether blocker has blocked blocked.
	HasBlocked(ctx context.Context, blockerID, blockedID int64) (bool, error)

	// BanUser flags a user as banned.
	BanUser(ctx context.Context, id int64) error

	// ReportUser increments a user's report counter atomically and bans the
	// user once the counter reaches the auto-ban threshold. Returns the
	// updated record.
	ReportUser(ctx context.Context, id int64) (*User, error)
}

// RoomStore handles room persistence.
type RoomStore interface {
	// CreateRoom creates a new room. Name must be unique.
	CreateRoom(ctx context.Context, name, description string) (*Room, error)

	// GetRoomByID retrieves a room by ID.
	GetRoomByID(ctx context.Context, id int64) (*Room, error)

	// GetRoomByName retrieves a room by name.
	GetRoomByName(ctx context.Context, name string) (*Room, error)

	// ListRooms lists all rooms, newest first.
	ListRooms(ctx context.Context) ([]*Room, error)
}

// MessageStore handles room message persistence.
type MessageStore interface {
	// SaveMessage persists a room message. The store assigns ID and timestamp.
	SaveMessage(ctx context.Context, roomID, authorID int64, content string) (*Message, error)

	// ListRoomMessages retrieves a room's messages, oldest first.
	ListRoomMessages(ctx context.Context, roomID int64) ([]*Message, error)
}

// PrivateMessageStore handles direct message persistence.
type PrivateMessageStore interface {
	// SavePrivateMessage persists a direct message. The store assigns ID and timestamp.
	SavePrivateMessage(ctx context.Context, fromUserID, toUserID int64, content string) (*PrivateMessage, error)

	// ListConversation retrieves all messages exchanged between two users in
	// either direction, oldest first.
	ListConversation(ctx context.Context, userA, userB int64) ([]*PrivateMessage, error)
}

// Store aggregates all storage interfaces.
type Store interface {
	UserStore
	RoomStore
	MessageStore
	PrivateMessageStore

	// Close closes the underlying database connection.
	Close() error
}
