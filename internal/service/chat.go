package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/Rimee2005/CareConnect-sub000/internal/domain"
	"github.com/Rimee2005/CareConnect-sub000/internal/repository"
	apperrors "github.com/Rimee2005/CareConnect-sub000/pkg/errors"
	"github.com/Rimee2005/CareConnect-sub000/pkg/logger"
)

type ChatService interface {
	SendMessage(ctx context.Context, conversationID string, senderID uuid.UUID, senderRole domain.Role, body string) (*domain.Message, error)
	// GetMessages отдает историю только участнику переписки: requesterID
	// должен владеть одним из двух профилей в ключе
	GetMessages(ctx context.Context, conversationID string, requesterID uuid.UUID) ([]*domain.Message, error)
	MarkRead(ctx context.Context, messageIDs []int64) error
}

type chatService struct {
	messageRepo    repository.MessageRepository
	profileRepo    repository.ProfileRepository
	storageTimeout time.Duration
	log            logger.Logger
}

func NewChatService(messageRepo repository.MessageRepository, profileRepo repository.ProfileRepository, storageTimeout time.Duration, log logger.Logger) ChatService {
	return &chatService{
		messageRepo:    messageRepo,
		profileRepo:    profileRepo,
		storageTimeout: storageTimeout,
		log:            log,
	}
}

// SendMessage валидирует и записывает сообщение. До записи - никаких
// побочных эффектов: пустое тело отклоняется сразу.
func (s *chatService) SendMessage(ctx context.Context, conversationID string, senderID uuid.UUID, senderRole domain.Role, body string) (*domain.Message, error) {
	body = strings.TrimSpace(body)
	if body == "" {
		return nil, fmt.Errorf("%w: empty message body", apperrors.ErrValidation)
	}
	if !domain.ValidConversationID(conversationID) {
		return nil, fmt.Errorf("%w: malformed conversation id", apperrors.ErrValidation)
	}
	if _, err := domain.ParseRole(string(senderRole)); err != nil {
		return nil, fmt.Errorf("%w: %v", apperrors.ErrValidation, err)
	}

	message := &domain.Message{
		ConversationID: conversationID,
		SenderID:       senderID,
		SenderRole:     senderRole,
		Body:           body,
	}

	// Запись ограничена таймаутом: зависшая БД не должна держать соединение
	ctx, cancel := context.WithTimeout(ctx, s.storageTimeout)
	defer cancel()

	if err := s.messageRepo.Create(ctx, message); err != nil {
		return nil, fmt.Errorf("%w: %v", apperrors.ErrStorage, err)
	}

	return message, nil
}

func (s *chatService) GetMessages(ctx context.Context, conversationID string, requesterID uuid.UUID) ([]*domain.Message, error) {
	vitalID, guardianID, err := domain.ParseConversationID(conversationID)
	if err != nil {
		return nil, fmt.Errorf("%w: malformed conversation id", apperrors.ErrValidation)
	}

	ok, err := s.isParticipant(ctx, vitalID, guardianID, requesterID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, apperrors.ErrForbidden
	}

	return s.messageRepo.ListByConversation(ctx, conversationID)
}

// isParticipant проверяет, что пользователь владеет одним из двух
// профилей переписки. Отсутствующий профиль - не ошибка, просто отказ.
func (s *chatService) isParticipant(ctx context.Context, vitalID, guardianID, requesterID uuid.UUID) (bool, error) {
	owner, err := s.profileRepo.OwningUserID(ctx, vitalID, domain.RoleVital)
	if err == nil && owner == requesterID {
		return true, nil
	}
	if err != nil && !errors.Is(err, apperrors.ErrProfileNotFound) {
		return false, fmt.Errorf("%w: %v", apperrors.ErrStorage, err)
	}

	owner, err = s.profileRepo.OwningUserID(ctx, guardianID, domain.RoleGuardian)
	if err == nil && owner == requesterID {
		return true, nil
	}
	if err != nil && !errors.Is(err, apperrors.ErrProfileNotFound) {
		return false, fmt.Errorf("%w: %v", apperrors.ErrStorage, err)
	}

	return false, nil
}

// MarkRead - best effort: клиент не ждет подтверждения
func (s *chatService) MarkRead(ctx context.Context, messageIDs []int64) error {
	ctx, cancel := context.WithTimeout(ctx, s.storageTimeout)
	defer cancel()

	return s.messageRepo.MarkRead(ctx, messageIDs)
}
