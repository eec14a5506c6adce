package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/Rimee2005/CareConnect-sub000/internal/domain"
	"github.com/Rimee2005/CareConnect-sub000/internal/repository"
	apperrors "github.com/Rimee2005/CareConnect-sub000/pkg/errors"
	"github.com/Rimee2005/CareConnect-sub000/pkg/logger"
)

type NotificationService interface {
	// CreateForMessage определяет получателя сообщения (второго участника
	// переписки), пишет durable-уведомление и возвращает его вместе с
	// user id получателя для fan-out по живым соединениям.
	CreateForMessage(ctx context.Context, message *domain.Message) (*domain.Notification, error)
	ListForUser(ctx context.Context, userID uuid.UUID, onlyUnread bool) ([]*domain.Notification, error)
	MarkRead(ctx context.Context, notificationID int64, userID uuid.UUID) error
}

type notificationService struct {
	notificationRepo repository.NotificationRepository
	profileRepo      repository.ProfileRepository
	lookupTimeout    time.Duration
	storageTimeout   time.Duration
	log              logger.Logger
}

func NewNotificationService(
	notificationRepo repository.NotificationRepository,
	profileRepo repository.ProfileRepository,
	lookupTimeout, storageTimeout time.Duration,
	log logger.Logger,
) NotificationService {
	return &notificationService{
		notificationRepo: notificationRepo,
		profileRepo:      profileRepo,
		lookupTimeout:    lookupTimeout,
		storageTimeout:   storageTimeout,
		log:              log,
	}
}

func (s *notificationService) CreateForMessage(ctx context.Context, message *domain.Message) (*domain.Notification, error) {
	vitalID, guardianID, err := domain.ParseConversationID(message.ConversationID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", apperrors.ErrResolution, err)
	}

	// Получатель - участник, который НЕ отправлял сообщение
	recipientRole := message.SenderRole.Other()
	recipientProfileID := vitalID
	if recipientRole == domain.RoleGuardian {
		recipientProfileID = guardianID
	}

	// Поиск владельца профиля некритичен, таймаут короче, чем у записи
	lookupCtx, cancel := context.WithTimeout(ctx, s.lookupTimeout)
	defer cancel()

	recipientUserID, err := s.profileRepo.OwningUserID(lookupCtx, recipientProfileID, recipientRole)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", apperrors.ErrResolution, err)
	}

	notification := &domain.Notification{
		RecipientUserID:  recipientUserID,
		Kind:             domain.NotificationKindNewMessage,
		RelatedMessageID: message.ID,
	}

	storeCtx, cancel := context.WithTimeout(ctx, s.storageTimeout)
	defer cancel()

	if err := s.notificationRepo.Create(storeCtx, notification); err != nil {
		return nil, fmt.Errorf("%w: %v", apperrors.ErrStorage, err)
	}

	return notification, nil
}

func (s *notificationService) ListForUser(ctx context.Context, userID uuid.UUID, onlyUnread bool) ([]*domain.Notification, error) {
	return s.notificationRepo.ListForUser(ctx, userID, onlyUnread)
}

func (s *notificationService) MarkRead(ctx context.Context, notificationID int64, userID uuid.UUID) error {
	return s.notificationRepo.MarkRead(ctx, notificationID, userID)
}
