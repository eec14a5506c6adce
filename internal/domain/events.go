package domain

import (
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
)

// Формат кадра на проводе: {"event": "<имя>", "data": {...}}
type frame struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

const (
	EventRegisterUser = "register-user"
	EventJoinRoom     = "join-room"
	EventLeaveRoom    = "leave-room"
	EventSendMessage  = "send-message"
	EventMarkRead     = "mark-read"

	EventRoomJoined      = "room-joined"
	EventRoomError       = "room-error"
	EventReceiveMessage  = "receive-message"
	EventMessageSent     = "message-sent"
	EventMessageError    = "message-error"
	EventNewNotification = "new-notification"
)

// ClientEvent - закрытое множество входящих событий.
// Новый вид события добавляется сюда и в DecodeClientEvent,
// switch по типу проверяется компилятором.
type ClientEvent interface {
	clientEvent()
}

type RegisterUser struct {
	UserID uuid.UUID `json:"user_id"`
}

type JoinRoom struct {
	UserID         uuid.UUID `json:"user_id"`
	Role           Role      `json:"role"`
	ConversationID string    `json:"conversation_id"`
}

type LeaveRoom struct {
	ConversationID string `json:"conversation_id"`
}

type SendMessage struct {
	ConversationID string    `json:"conversation_id"`
	SenderID       uuid.UUID `json:"sender_id"`
	SenderRole     Role      `json:"sender_role"`
	Body           string    `json:"body"`
}

type MarkRead struct {
	MessageIDs []int64 `json:"message_ids"`
}

func (RegisterUser) clientEvent() {}
func (JoinRoom) clientEvent()     {}
func (LeaveRoom) clientEvent()    {}
func (SendMessage) clientEvent()  {}
func (MarkRead) clientEvent()     {}

// DecodeClientEvent разбирает кадр в типизированное событие.
// Неизвестное имя события - ошибка, кадр отбрасывается на границе.
func DecodeClientEvent(raw []byte) (ClientEvent, error) {
	var f frame
	if err := json.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("malformed frame: %w", err)
	}

	var ev ClientEvent
	switch f.Event {
	case EventRegisterUser:
		ev = &RegisterUser{}
	case EventJoinRoom:
		ev = &JoinRoom{}
	case EventLeaveRoom:
		ev = &LeaveRoom{}
	case EventSendMessage:
		ev = &SendMessage{}
	case EventMarkRead:
		ev = &MarkRead{}
	default:
		return nil, fmt.Errorf("unknown event %q", f.Event)
	}

	if err := json.Unmarshal(f.Data, ev); err != nil {
		return nil, fmt.Errorf("malformed %s payload: %w", f.Event, err)
	}
	return ev, nil
}

// EncodeClientEvent собирает кадр для отправки на сервер (клиентская
// сторона, pkg/chatclient)
func EncodeClientEvent(ev ClientEvent) ([]byte, error) {
	var name string
	switch ev.(type) {
	case *RegisterUser, RegisterUser:
		name = EventRegisterUser
	case *JoinRoom, JoinRoom:
		name = EventJoinRoom
	case *LeaveRoom, LeaveRoom:
		name = EventLeaveRoom
	case *SendMessage, SendMessage:
		name = EventSendMessage
	case *MarkRead, MarkRead:
		name = EventMarkRead
	default:
		return nil, fmt.Errorf("unknown client event %T", ev)
	}

	data, err := json.Marshal(ev)
	if err != nil {
		return nil, err
	}
	return json.Marshal(frame{Event: name, Data: data})
}

// ServerEvent - события, уходящие клиенту
type ServerEvent interface {
	EventName() string
}

type RoomJoined struct {
	ConversationID string `json:"conversation_id"`
}

type RoomError struct {
	Error string `json:"error"`
}

type ReceiveMessage struct {
	Message
}

type MessageSent struct {
	MessageID int64 `json:"message_id"`
}

type MessageError struct {
	Error string `json:"error"`
}

type NewNotification struct {
	ID               int64  `json:"id"`
	Kind             string `json:"kind"`
	RelatedMessageID int64  `json:"related_message_id"`
	CreatedAt        string `json:"created_at"`
}

func (RoomJoined) EventName() string      { return EventRoomJoined }
func (RoomError) EventName() string       { return EventRoomError }
func (ReceiveMessage) EventName() string  { return EventReceiveMessage }
func (MessageSent) EventName() string     { return EventMessageSent }
func (MessageError) EventName() string    { return EventMessageError }
func (NewNotification) EventName() string { return EventNewNotification }

func EncodeServerEvent(ev ServerEvent) ([]byte, error) {
	data, err := json.Marshal(ev)
	if err != nil {
		return nil, err
	}
	return json.Marshal(frame{Event: ev.EventName(), Data: data})
}

// DecodeServerEvent - обратная сторона для клиента (pkg/chatclient)
func DecodeServerEvent(raw []byte) (ServerEvent, error) {
	var f frame
	if err := json.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("malformed frame: %w", err)
	}

	var ev ServerEvent
	switch f.Event {
	case EventRoomJoined:
		ev = &RoomJoined{}
	case EventRoomError:
		ev = &RoomError{}
	case EventReceiveMessage:
		ev = &ReceiveMessage{}
	case EventMessageSent:
		ev = &MessageSent{}
	case EventMessageError:
		ev = &MessageError{}
	case EventNewNotification:
		ev = &NewNotification{}
	default:
		return nil, fmt.Errorf("unknown event %q", f.Event)
	}

	if err := json.Unmarshal(f.Data, ev); err != nil {
		return nil, fmt.Errorf("malformed %s payload: %w", f.Event, err)
	}
	return ev, nil
}
