package relay

import (
	"context"
	"sync"
	"time"

	"github.com/Rimee2005/CareConnect-sub000/internal/domain"
	"github.com/Rimee2005/CareConnect-sub000/internal/service"
	"github.com/Rimee2005/CareConnect-sub000/pkg/logger"
)

// Notifier - асинхронный fan-out уведомлений. Запускается отдельной
// горутиной после записи сообщения и никогда не влияет на путь отправки:
// чат обязан работать, даже если уведомления сломаны.
type Notifier struct {
	notifications service.NotificationService
	registry      *ConnectionRegistry
	log           logger.Logger

	wg sync.WaitGroup
}

func NewNotifier(notifications service.NotificationService, registry *ConnectionRegistry, log logger.Logger) *Notifier {
	return &Notifier{
		notifications: notifications,
		registry:      registry,
		log:           log,
	}
}

// Dispatch отцеплен от контекста запроса намеренно: закрытие соединения
// отправителя не должно отменять durable-уведомление получателю.
func (n *Notifier) Dispatch(message domain.Message) {
	n.wg.Add(1)
	go func() {
		defer n.wg.Done()
		defer func() {
			if rec := recover(); rec != nil {
				n.log.Error("Notification dispatch panicked", "panic", rec)
			}
		}()
		n.deliver(message)
	}()
}

func (n *Notifier) deliver(message domain.Message) {
	notification, err := n.notifications.CreateForMessage(context.Background(), &message)
	if err != nil {
		// ErrResolution / ErrStorage: логируем и выходим, отправителю
		// об этом не сообщается
		n.log.Warn("Notification skipped",
			"conversation_id", message.ConversationID,
			"message_id", message.ID,
			"error", err,
		)
		return
	}

	event := &domain.NewNotification{
		ID:               notification.ID,
		Kind:             notification.Kind,
		RelatedMessageID: notification.RelatedMessageID,
		CreatedAt:        notification.CreatedAt.Format(time.RFC3339Nano),
	}

	// Пустой набор соединений - не ошибка: запись уже durable,
	// получатель увидит ее при следующем входе
	for _, session := range n.registry.ConnectionsFor(notification.RecipientUserID) {
		if !session.Send(event) {
			n.log.Debug("Notification frame dropped", "connection_id", session.ID())
		}
	}
}

// Drain дожидается завершения всех запущенных fan-out горутин
func (n *Notifier) Drain() {
	n.wg.Wait()
}
