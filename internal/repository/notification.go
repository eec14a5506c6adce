package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Rimee2005/CareConnect-sub000/internal/domain"
	"github.com/Rimee2005/CareConnect-sub000/pkg/logger"
)

type NotificationRepository interface {
	Create(ctx context.Context, notification *domain.Notification) error
	ListForUser(ctx context.Context, userID uuid.UUID, onlyUnread bool) ([]*domain.Notification, error)
	MarkRead(ctx context.Context, notificationID int64, userID uuid.UUID) error
}

type notificationRepository struct {
	db  *pgxpool.Pool
	log logger.Logger
}

func NewNotificationRepository(db *pgxpool.Pool, log logger.Logger) NotificationRepository {
	return &notificationRepository{db: db, log: log}
}

func (r *notificationRepository) Create(ctx context.Context, notification *domain.Notification) error {
	query := `
		INSERT INTO notifications (recipient_user_id, kind, related_message_id)
		VALUES ($1, $2, $3)
		RETURNING id, created_at
	`

	err := r.db.QueryRow(ctx, query,
		notification.RecipientUserID, notification.Kind, notification.RelatedMessageID,
	).Scan(&notification.ID, &notification.CreatedAt)

	if err != nil {
		r.log.Error("Failed to create notification", "error", err)
		return err
	}

	return nil
}

func (r *notificationRepository) ListForUser(ctx context.Context, userID uuid.UUID, onlyUnread bool) ([]*domain.Notification, error) {
	query := `
		SELECT id, recipient_user_id, kind, related_message_id, read, created_at
		FROM notifications
		WHERE recipient_user_id = $1 AND ($2 = FALSE OR read = FALSE)
		ORDER BY id DESC
	`

	rows, err := r.db.Query(ctx, query, userID, onlyUnread)
	if err != nil {
		r.log.Error("Failed to list notifications", "error", err)
		return nil, err
	}
	defer rows.Close()

	var notifications []*domain.Notification
	for rows.Next() {
		notification := &domain.Notification{}
		err := rows.Scan(
			&notification.ID, &notification.RecipientUserID, &notification.Kind,
			&notification.RelatedMessageID, &notification.Read, &notification.CreatedAt,
		)
		if err != nil {
			r.log.Error("Failed to scan notification", "error", err)
			return nil, err
		}
		notifications = append(notifications, notification)
	}

	return notifications, rows.Err()
}

func (r *notificationRepository) MarkRead(ctx context.Context, notificationID int64, userID uuid.UUID) error {
	// recipient_user_id в условии: читать чужое уведомление нельзя
	query := `
		UPDATE notifications
		SET read = TRUE
		WHERE id = $1 AND recipient_user_id = $2
	`

	_, err := r.db.Exec(ctx, query, notificationID, userID)
	if err != nil {
		r.log.Error("Failed to mark notification read", "error", err)
		return err
	}

	return nil
}
