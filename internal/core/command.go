package core

// CommandKind describes what the client wants to do.
type CommandKind int

const (
	// CommandGetRooms requests the room list.
	CommandGetRooms CommandKind = iota
	// CommandJoinRoom subscribes the connection to a room.
	CommandJoinRoom
	// CommandLeaveRoom unsubscribes the connection from a room.
	CommandLeaveRoom
	// CommandSendRoomMessage delivers a chat message to room participants.
	CommandSendRoomMessage
	// CommandSendPrivateMessage delivers a direct message to a user.
	CommandSendPrivateMessage
	// CommandGetPrivateHistory requests the conversation with a user.
	CommandGetPrivateHistory
)

// Command represents an action requested by a connection, decoded once at the
// transport boundary.
type Command struct {
	Kind       CommandKind
	Room       int64
	ToUserID   int64
	WithUserID int64
	Content    string
}
