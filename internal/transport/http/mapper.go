package http

import (
	"encoding/json"

	"github.com/causerie-chat/server/internal/core"
	"github.com/causerie-chat/server/internal/proto"
)

const timeFormat = "2006-01-02T15:04:05Z07:00"

// inboundToCommand decodes one wire envelope into a core command. A nil
// command with a nil error means the event is unknown and silently ignored,
// matching the behavior clients already rely on.
func inboundToCommand(inbound proto.Inbound) (*core.Command, *core.CoreError, error) {
	switch inbound.Event {
	case proto.InboundGetRooms:
		return &core.Command{Kind: core.CommandGetRooms}, nil, nil

	case proto.InboundJoinRoom, proto.InboundLeaveRoom:
		// The payload is the raw room id, not an object.
		var roomID int64
		if err := json.Unmarshal(inbound.Data, &roomID); err != nil || roomID == 0 {
			return nil, &core.CoreError{Code: core.ErrCodeValidation, Message: core.MsgMissingRoomID}, nil
		}
		kind := core.CommandJoinRoom
		if inbound.Event == proto.InboundLeaveRoom {
			kind = core.CommandLeaveRoom
		}
		return &core.Command{Kind: kind, Room: roomID}, nil, nil

	case proto.InboundSendMessage:
		var data proto.SendMessageData
		if err := json.Unmarshal(inbound.Data, &data); err != nil {
			return nil, nil, err
		}
		return &core.Command{
			Kind:    core.CommandSendRoomMessage,
			Room:    data.RoomID,
			Content: data.Content,
		}, nil, nil

	case proto.InboundSendPrivateMessage:
		var data proto.SendPrivateMessageData
		if err := json.Unmarshal(inbound.Data, &data); err != nil {
			return nil, nil, err
		}
		return &core.Command{
			Kind:     core.CommandSendPrivateMessage,
			ToUserID: data.ToUserID,
			Content:  data.Content,
		}, nil, nil

	case proto.InboundGetPrivateMessages:
		var data proto.GetPrivateMessagesData
		if err := json.Unmarshal(inbound.Data, &data); err != nil {
			return nil, nil, err
		}
		return &core.Command{
			Kind:       core.CommandGetPrivateHistory,
			WithUserID: data.WithUserID,
		}, nil, nil

	default:
		return nil, nil, nil
	}
}

func outboundFromEvent(event *core.Event) proto.Outbound {
	switch event.Kind {
	case core.EventRoomList:
		rooms := make([]proto.RoomItem, 0, len(event.Rooms))
		for _, room := range event.Rooms {
			rooms = append(rooms, proto.RoomItem{ID: room.ID, Name: room.Name, Description: room.Description})
		}
		return proto.Outbound{Event: proto.OutboundRoomList, Data: rooms}

	case core.EventOnlineUsers:
		users := make([]proto.UserItem, 0, len(event.Users))
		for _, user := range event.Users {
			users = append(users, userItem(user))
		}
		return proto.Outbound{Event: proto.OutboundOnlineUsers, Data: users}

	case core.EventNewMessage:
		return proto.Outbound{Event: proto.OutboundNewMessage, Data: messagePayload(event.Message)}

	case core.EventNewPrivateMessage:
		return proto.Outbound{Event: proto.OutboundNewPrivateMessage, Data: privateMessagePayload(event.Private)}

	case core.EventPrivateHistory:
		history := make([]proto.PrivateMessagePayload, 0, len(event.History))
		for i := range event.History {
			history = append(history, privateMessagePayload(&event.History[i]))
		}
		return proto.Outbound{Event: proto.OutboundPrivateMessageHistory, Data: history}

	case core.EventErrorMessage:
		msg := core.MsgServerError
		if event.Error != nil {
			msg = event.Error.Message
		}
		return proto.Outbound{Event: proto.OutboundErrorMessage, Data: msg}

	default:
		return proto.Outbound{Event: proto.OutboundErrorMessage, Data: core.MsgServerError}
	}
}

func userItem(user core.UserView) proto.UserItem {
	return proto.UserItem{ID: user.ID, Username: user.Username, Email: user.Email}
}

func messagePayload(msg *core.MessageView) proto.MessagePayload {
	return proto.MessagePayload{
		ID:        msg.ID,
		RoomID:    msg.RoomID,
		Content:   msg.Content,
		Author:    userItem(msg.Author),
		CreatedAt: msg.CreatedAt.Format(timeFormat),
	}
}

func privateMessagePayload(msg *core.PrivateMessageView) proto.PrivateMessagePayload {
	return proto.PrivateMessagePayload{
		ID:        msg.ID,
		Content:   msg.Content,
		From:      userItem(msg.From),
		To:        userItem(msg.To),
		CreatedAt: msg.CreatedAt.Format(timeFormat),
	}
}
