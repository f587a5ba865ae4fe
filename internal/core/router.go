package core

import (
	"context"
	"errors"
	"strings"

	"github.com/rs/zerolog"

	"github.com/causerie-chat/server/internal/store"
)

// Store is the slice of persistence the router needs. Satisfied by
// store.Store; tests substitute an in-memory fake.
type Store interface {
	GetUserByID(ctx context.Context, id int64) (*store.User, error)
	GetUsersByIDs(ctx context.Context, ids []int64) ([]*store.User, error)
	HasBlocked(ctx context.Context, blockerID, blockedID int64) (bool, error)
	ListRooms(ctx context.Context) ([]*store.Room, error)
	GetRoomByID(ctx context.Context, id int64) (*store.Room, error)
	SaveMessage(ctx context.Context, roomID, authorID int64, content string) (*store.Message, error)
	SavePrivateMessage(ctx context.Context, fromUserID, toUserID int64, content string) (*store.PrivateMessage, error)
	ListConversation(ctx context.Context, userA, userB int64) ([]*store.PrivateMessage, error)
}

// Router validates inbound commands against the presence registry and the
// store, persists side effects, and computes fan-out target sets. Each
// connection invokes it from its own read loop, so commands from one
// connection are processed in arrival order while independent connections
// proceed concurrently.
type Router struct {
	store    Store
	presence *Presence
	hub      *Hub
	log      *zerolog.Logger
}

// NewRouter wires the router with its collaborators.
func NewRouter(st Store, presence *Presence, hub *Hub, logger *zerolog.Logger) *Router {
	return &Router{
		store:    st,
		presence: presence,
		hub:      hub,
		log:      logger,
	}
}

// Presence exposes the registry (transport tests inspect it).
func (r *Router) Presence() *Presence {
	return r.presence
}

// Connect registers an authenticated connection with the registry and hub.
func (r *Router) Connect(client *Client) {
	r.presence.Register(client.ID, client.Identity)
	r.hub.Register(client)
}

// Disconnect tears a connection down: removal from every joined room, then
// identity drop, then one presence broadcast per formerly joined room. It is
// the last writer to this connection's registry entries; a join racing with
// it cannot re-add the connection.
func (r *Router) Disconnect(ctx context.Context, client *Client) {
	left := r.presence.RemoveConnection(client.ID)
	r.hub.Unregister(client.ID)
	client.Close()

	for _, roomID := range left {
		r.broadcastOnlineUsers(ctx, roomID)
	}
}

// Handle dispatches one inbound command for the given connection.
func (r *Router) Handle(ctx context.Context, client *Client, cmd *Command) {
	switch cmd.Kind {
	case CommandGetRooms:
		r.handleGetRooms(ctx, client)
	case CommandJoinRoom:
		r.handleJoin(ctx, client, cmd.Room)
	case CommandLeaveRoom:
		r.handleLeave(ctx, client, cmd.Room)
	case CommandSendRoomMessage:
		r.handleSendRoomMessage(ctx, client, cmd.Room, cmd.Content)
	case CommandSendPrivateMessage:
		r.handleSendPrivateMessage(ctx, client, cmd.ToUserID, cmd.Content)
	case CommandGetPrivateHistory:
		r.handleGetPrivateHistory(ctx, client, cmd.WithUserID)
	}
}

func (r *Router) handleGetRooms(ctx context.Context, client *Client) {
	views := []RoomView{}
	rooms, err := r.store.ListRooms(ctx)
	if err != nil {
		// Degrade to an empty catalogue rather than failing the connection.
		r.log.Error().Err(err).Str("conn_id", client.ID).Msg("list rooms")
	} else {
		for _, room := range rooms {
			views = append(views, RoomView{ID: room.ID, Name: room.Name, Description: room.Description})
		}
	}
	r.hub.Deliver(&Event{Kind: EventRoomList, Rooms: views}, []string{client.ID})
}

func (r *Router) handleJoin(ctx context.Context, client *Client, roomID int64) {
	if roomID == 0 {
		r.sendError(client, coreError(ErrCodeValidation, MsgMissingRoomID))
		return
	}
	if !r.presence.Join(roomID, client.ID) {
		// Connection already torn down; nothing to do.
		return
	}
	r.broadcastOnlineUsers(ctx, roomID)
}

func (r *Router) handleLeave(ctx context.Context, client *Client, roomID int64) {
	r.presence.Leave(roomID, client.ID)
	r.broadcastOnlineUsers(ctx, roomID)
}

func (r *Router) handleSendRoomMessage(ctx context.Context, client *Client, roomID int64, content string) {
	if roomID == 0 {
		r.sendError(client, coreError(ErrCodeValidation, MsgMissingRoomID))
		return
	}
	if strings.TrimSpace(content) == "" {
		r.sendError(client, coreError(ErrCodeValidation, MsgEmptyMessage))
		return
	}

	if _, err := r.store.GetRoomByID(ctx, roomID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			r.sendError(client, coreError(ErrCodeNotFound, MsgRoomNotFound))
			return
		}
		r.persistenceFailure(client, err, "load room")
		return
	}

	author, err := r.store.GetUserByID(ctx, client.Identity.UserID)
	if err != nil {
		r.persistenceFailure(client, err, "load author")
		return
	}
	if author.IsBanned {
		r.sendError(client, coreError(ErrCodePolicy, MsgUserBanned))
		return
	}

	msg, err := r.store.SaveMessage(ctx, roomID, author.ID, content)
	if err != nil {
		r.persistenceFailure(client, err, "save message")
		return
	}

	event := &Event{
		Kind: EventNewMessage,
		Room: roomID,
		Message: &MessageView{
			ID:        msg.ID,
			RoomID:    msg.RoomID,
			Content:   msg.Content,
			Author:    userView(author),
			CreatedAt: msg.CreatedAt,
		},
	}
	r.hub.Deliver(event, r.presence.Connections(roomID))
}

func (r *Router) handleSendPrivateMessage(ctx context.Context, client *Client, toUserID int64, content string) {
	if toUserID == 0 {
		r.sendError(client, coreError(ErrCodeValidation, MsgMissingRecipient))
		return
	}
	if strings.TrimSpace(content) == "" {
		r.sendError(client, coreError(ErrCodeValidation, MsgEmptyMessage))
		return
	}

	sender, err := r.store.GetUserByID(ctx, client.Identity.UserID)
	if err != nil {
		r.persistenceFailure(client, err, "load sender")
		return
	}
	recipient, err := r.store.GetUserByID(ctx, toUserID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			r.sendError(client, coreError(ErrCodeNotFound, MsgUserNotFound))
			return
		}
		r.persistenceFailure(client, err, "load recipient")
		return
	}

	// Policy checks take precedence over persistence: a blocked relationship
	// in either direction means nothing is written.
	blocked, err := r.store.HasBlocked(ctx, sender.ID, recipient.ID)
	if err != nil {
		r.persistenceFailure(client, err, "check block")
		return
	}
	if blocked {
		r.sendError(client, coreError(ErrCodePolicy, MsgBlockedByYou))
		return
	}
	blocked, err = r.store.HasBlocked(ctx, recipient.ID, sender.ID)
	if err != nil {
		r.persistenceFailure(client, err, "check block")
		return
	}
	if blocked {
		r.sendError(client, coreError(ErrCodePolicy, MsgBlockedByOther))
		return
	}

	msg, err := r.store.SavePrivateMessage(ctx, sender.ID, recipient.ID, content)
	if err != nil {
		r.persistenceFailure(client, err, "save private message")
		return
	}

	event := &Event{
		Kind: EventNewPrivateMessage,
		Private: &PrivateMessageView{
			ID:        msg.ID,
			Content:   msg.Content,
			From:      userView(sender),
			To:        userView(recipient),
			CreatedAt: msg.CreatedAt,
		},
	}
	// Every connection of either party: multi-device delivery plus
	// sender-side echo.
	r.hub.Deliver(event, r.presence.ConnectionsOfUsers(sender.ID, recipient.ID))
}

func (r *Router) handleGetPrivateHistory(ctx context.Context, client *Client, withUserID int64) {
	history := []PrivateMessageView{}

	// Read-path isolation: any failure degrades to an empty history instead
	// of destabilizing the connection.
	views, ok := r.loadConversation(ctx, client.Identity.UserID, withUserID)
	if ok {
		history = views
	}
	r.hub.Deliver(&Event{Kind: EventPrivateHistory, History: history}, []string{client.ID})
}

func (r *Router) loadConversation(ctx context.Context, userID, withUserID int64) ([]PrivateMessageView, bool) {
	if withUserID == 0 {
		return nil, false
	}

	messages, err := r.store.ListConversation(ctx, userID, withUserID)
	if err != nil {
		r.log.Error().Err(err).Int64("user_id", userID).Int64("with_user_id", withUserID).Msg("load conversation")
		return nil, false
	}

	users, err := r.store.GetUsersByIDs(ctx, []int64{userID, withUserID})
	if err != nil {
		r.log.Error().Err(err).Msg("load conversation parties")
		return nil, false
	}
	byID := make(map[int64]UserView, len(users))
	for _, u := range users {
		byID[u.ID] = userView(u)
	}

	views := make([]PrivateMessageView, 0, len(messages))
	for _, msg := range messages {
		views = append(views, PrivateMessageView{
			ID:        msg.ID,
			Content:   msg.Content,
			From:      byID[msg.FromUserID],
			To:        byID[msg.ToUserID],
			CreatedAt: msg.CreatedAt,
		})
	}
	return views, true
}

// broadcastOnlineUsers sends the distinct identities present in a room to
// every connection in that room.
func (r *Router) broadcastOnlineUsers(ctx context.Context, roomID int64) {
	members := r.presence.Members(roomID)
	ids := make([]int64, 0, len(members))
	for _, identity := range members {
		ids = append(ids, identity.UserID)
	}

	users, err := r.store.GetUsersByIDs(ctx, ids)
	if err != nil {
		r.log.Error().Err(err).Int64("room_id", roomID).Msg("load online users")
		return
	}
	views := make([]UserView, 0, len(users))
	for _, u := range users {
		views = append(views, userView(u))
	}

	event := &Event{Kind: EventOnlineUsers, Room: roomID, Users: views}
	r.hub.Deliver(event, r.presence.Connections(roomID))
}

func (r *Router) sendError(client *Client, e *CoreError) {
	r.log.Debug().Str("conn_id", client.ID).Str("code", e.Code).Str("msg", e.Message).Msg("command rejected")
	r.hub.Deliver(&Event{Kind: EventErrorMessage, Error: e}, []string{client.ID})
}

func (r *Router) persistenceFailure(client *Client, err error, op string) {
	r.log.Error().Err(err).Str("conn_id", client.ID).Msg(op)
	r.sendError(client, coreError(ErrCodePersistence, MsgServerError))
}

func userView(u *store.User) UserView {
	return UserView{ID: u.ID, Username: u.Username, Email: u.Email}
}
