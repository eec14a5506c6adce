package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Rimee2005/CareConnect-sub000/internal/domain"
	"github.com/Rimee2005/CareConnect-sub000/pkg/logger"
)

type MessageRepository interface {
	Create(ctx context.Context, message *domain.Message) error
	ListByConversation(ctx context.Context, conversationID string) ([]*domain.Message, error)
	MarkRead(ctx context.Context, messageIDs []int64) error
}

type messageRepository struct {
	db  *pgxpool.Pool
	log logger.Logger
}

func NewMessageRepository(db *pgxpool.Pool, log logger.Logger) MessageRepository {
	return &messageRepository{db: db, log: log}
}

func (r *messageRepository) Create(ctx context.Context, message *domain.Message) error {
	// created_at назначает БД - серверное время авторитетно
	query := `
		INSERT INTO chat_messages (conversation_id, sender_id, sender_role, body)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at
	`

	err := r.db.QueryRow(ctx, query,
		message.ConversationID, message.SenderID, message.SenderRole, message.Body,
	).Scan(&message.ID, &message.CreatedAt)

	if err != nil {
		r.log.Error("Failed to create message", "error", err)
		return err
	}

	return nil
}

func (r *messageRepository) ListByConversation(ctx context.Context, conversationID string) ([]*domain.Message, error) {
	// Порядок по id: bigserial растет в порядке вставки
	query := `
		SELECT id, conversation_id, sender_id, sender_role, body, read, created_at
		FROM chat_messages
		WHERE conversation_id = $1
		ORDER BY id ASC
	`

	rows, err := r.db.Query(ctx, query, conversationID)
	if err != nil {
		r.log.Error("Failed to list messages", "error", err)
		return nil, err
	}
	defer rows.Close()

	var messages []*domain.Message
	for rows.Next() {
		message := &domain.Message{}
		err := rows.Scan(
			&message.ID, &message.ConversationID, &message.SenderID, &message.SenderRole,
			&message.Body, &message.Read, &message.CreatedAt,
		)
		if err != nil {
			r.log.Error("Failed to scan message", "error", err)
			return nil, err
		}
		messages = append(messages, message)
	}

	return messages, rows.Err()
}

func (r *messageRepository) MarkRead(ctx context.Context, messageIDs []int64) error {
	if len(messageIDs) == 0 {
		return nil
	}

	query := `
		UPDATE chat_messages
		SET read = TRUE
		WHERE id = ANY($1)
	`

	_, err := r.db.Exec(ctx, query, messageIDs)
	if err != nil {
		r.log.Error("Failed to mark messages read", "error", err)
		return err
	}

	return nil
}
