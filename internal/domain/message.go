package domain

import (
	"time"

	"github.com/google/uuid"
)

// Message - сообщение переписки. После записи в БД неизменяемо,
// кроме флага Read. ID и CreatedAt назначает сервер.
type Message struct {
	ID             int64     `json:"id"`
	ConversationID string    `json:"conversation_id"`
	SenderID       uuid.UUID `json:"sender_id"`
	SenderRole     Role      `json:"sender_role"`
	Body           string    `json:"body"`
	Read           bool      `json:"read"`
	CreatedAt      time.Time `json:"created_at"`
}

const (
	NotificationKindNewMessage = "new-message"
)

// Notification создается строго после записи сообщения:
// RelatedMessageID ссылается на уже существующий id.
type Notification struct {
	ID               int64     `json:"id"`
	RecipientUserID  uuid.UUID `json:"recipient_user_id"`
	Kind             string    `json:"kind"`
	RelatedMessageID int64     `json:"related_message_id"`
	Read             bool      `json:"read"`
	CreatedAt        time.Time `json:"created_at"`
}
