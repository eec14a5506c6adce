package relay

import (
	"context"
	"errors"

	"github.com/Rimee2005/CareConnect-sub000/internal/domain"
	"github.com/Rimee2005/CareConnect-sub000/internal/service"
	apperrors "github.com/Rimee2005/CareConnect-sub000/pkg/errors"
	"github.com/Rimee2005/CareConnect-sub000/pkg/logger"
)

// Relay - ядро чата: принимает события соединений, пишет сообщения,
// рассылает их по комнатам и запускает fan-out уведомлений. Владеет
// реестром соединений и комнатами; транспортный слой получает relay
// явным значением, глобального состояния нет.
type Relay struct {
	registry *ConnectionRegistry
	rooms    *RoomManager
	notifier *Notifier

	chat      service.ChatService
	rateLimit service.RateLimitService
	log       logger.Logger
}

func New(services *service.Services, log logger.Logger) *Relay {
	registry := NewConnectionRegistry()
	return &Relay{
		registry:  registry,
		rooms:     NewRoomManager(),
		notifier:  NewNotifier(services.Notification, registry, log),
		chat:      services.Chat,
		rateLimit: services.RateLimit,
		log:       log,
	}
}

// Disconnect убирает все следы соединения. Вызывается на закрытие
// транспорта и обязан вызываться ровно там - других механизмов
// очистки нет.
func (r *Relay) Disconnect(connID string) {
	r.rooms.DropConnection(connID)
	r.registry.Unregister(connID)
}

// Dispatch обрабатывает одно входящее событие соединения
func (r *Relay) Dispatch(ctx context.Context, session Session, event domain.ClientEvent) {
	switch ev := event.(type) {
	case *domain.RegisterUser:
		r.registry.Register(session, ev.UserID)

	case *domain.JoinRoom:
		r.handleJoin(session, ev)

	case *domain.LeaveRoom:
		r.rooms.Leave(session.ID(), ev.ConversationID)

	case *domain.SendMessage:
		r.handleSend(ctx, session, ev)

	case *domain.MarkRead:
		// fire-and-forget: ошибка клиенту не возвращается
		if err := r.chat.MarkRead(ctx, ev.MessageIDs); err != nil {
			r.log.Warn("Mark read failed", "error", err)
		}

	default:
		r.log.Warn("Unhandled client event", "connection_id", session.ID())
	}
}

func (r *Relay) handleJoin(session Session, ev *domain.JoinRoom) {
	if !domain.ValidConversationID(ev.ConversationID) {
		session.Send(&domain.RoomError{Error: "missing or malformed conversation id"})
		return
	}

	// join-room несет идентичность пользователя: регистрируем попутно,
	// чтобы уведомления доходили и без отдельного register-user
	r.registry.Register(session, ev.UserID)
	r.rooms.Join(session, ev.ConversationID)
	session.Send(&domain.RoomJoined{ConversationID: ev.ConversationID})
}

func (r *Relay) handleSend(ctx context.Context, session Session, ev *domain.SendMessage) {
	if !r.rateLimit.AllowSend(ctx, ev.SenderID) {
		session.Send(&domain.MessageError{Error: "too many messages, slow down"})
		return
	}

	message, err := r.chat.SendMessage(ctx, ev.ConversationID, ev.SenderID, ev.SenderRole, ev.Body)
	if err != nil {
		// Отправитель всегда узнает об отказе, чтобы откатить
		// оптимистичную запись. Broadcast при ошибке не происходит.
		r.log.Error("Send failed",
			"conversation_id", ev.ConversationID,
			"sender_id", ev.SenderID,
			"error", err,
		)
		session.Send(&domain.MessageError{Error: sendErrorText(err)})
		return
	}

	// Рассылка только после подтверждения записи, включая отправителя:
	// его клиент сверяет echo по серверному id
	for _, member := range r.rooms.MembersOf(message.ConversationID) {
		if !member.Send(&domain.ReceiveMessage{Message: *message}) {
			r.log.Debug("Broadcast frame dropped", "connection_id", member.ID())
		}
	}

	session.Send(&domain.MessageSent{MessageID: message.ID})

	// Уведомление отцеплено от пути отправки
	r.notifier.Dispatch(*message)
}

// sendErrorText - текст для клиента без внутренних деталей
func sendErrorText(err error) string {
	switch {
	case errors.Is(err, apperrors.ErrValidation):
		return "message is empty or malformed"
	case errors.Is(err, apperrors.ErrStorage):
		return "message could not be saved, try again"
	default:
		return "internal error"
	}
}

// Drain дожидается хвоста асинхронных уведомлений (graceful shutdown)
func (r *Relay) Drain() {
	r.notifier.Drain()
}
