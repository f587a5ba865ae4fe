package proto

import "encoding/json"

// Event names and payload shapes below are the wire contract with existing
// clients and must not change.

// Inbound is the envelope for messages coming from the client.
type Inbound struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// Outbound is the envelope for messages sent to the client.
type Outbound struct {
	Event string `json:"event"`
	Data  any    `json:"data"`
}

const (
	InboundGetRooms           = "getRooms"
	InboundJoinRoom           = "joinRoom"
	InboundLeaveRoom          = "leaveRoom"
	InboundSendMessage        = "sendMessage"
	InboundSendPrivateMessage = "sendPrivateMessage"
	InboundGetPrivateMessages = "getPrivateMessages"

	OutboundRoomList              = "roomList"
	OutboundOnlineUsers           = "onlineUsers"
	OutboundNewMessage            = "newMessage"
	OutboundNewPrivateMessage     = "newPrivateMessage"
	OutboundPrivateMessageHistory = "privateMessageHistory"
	OutboundErrorMessage          = "errorMessage"
)

// SendMessageData is the payload of a sendMessage event.
type SendMessageData struct {
	RoomID  int64  `json:"roomId"`
	Content string `json:"content"`
}

// SendPrivateMessageData is the payload of a sendPrivateMessage event.
type SendPrivateMessageData struct {
	ToUserID int64  `json:"toUserId"`
	Content  string `json:"content"`
}

// GetPrivateMessagesData is the payload of a getPrivateMessages event.
type GetPrivateMessagesData struct {
	WithUserID int64 `json:"withUserId"`
}

// RoomItem is one entry of a roomList payload.
type RoomItem struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

// UserItem is the user projection used by onlineUsers and message authors.
type UserItem struct {
	ID       int64  `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email"`
}

// MessagePayload is the newMessage payload.
type MessagePayload struct {
	ID        int64    `json:"id"`
	RoomID    int64    `json:"roomId"`
	Content   string   `json:"content"`
	Author    UserItem `json:"author"`
	CreatedAt string   `json:"createdAt"`
}

// PrivateMessagePayload is the newPrivateMessage payload and one entry of
// privateMessageHistory.
type PrivateMessagePayload struct {
	ID        int64    `json:"id"`
	Content   string   `json:"content"`
	From      UserItem `json:"from"`
	To        UserItem `json:"to"`
	CreatedAt string   `json:"createdAt"`
}
