package service

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/Rimee2005/CareConnect-sub000/internal/repository"
	"github.com/Rimee2005/CareConnect-sub000/pkg/logger"
)

type RateLimitService interface {
	// AllowSend проверяет и учитывает отправку сообщения пользователем.
	// При недоступном redis отправка разрешается: лимит - защита от
	// флуда, а не гарантия.
	AllowSend(ctx context.Context, senderID uuid.UUID) bool
}

type rateLimitService struct {
	rateLimitRepo repository.RateLimitRepository
	limit         int
	window        time.Duration
	log           logger.Logger
}

func NewRateLimitService(rateLimitRepo repository.RateLimitRepository, messagesPerMinute int, log logger.Logger) RateLimitService {
	return &rateLimitService{
		rateLimitRepo: rateLimitRepo,
		limit:         messagesPerMinute,
		window:        time.Minute,
		log:           log,
	}
}

func (s *rateLimitService) AllowSend(ctx context.Context, senderID uuid.UUID) bool {
	if s.limit <= 0 {
		return true
	}

	count, err := s.rateLimitRepo.SendCount(ctx, senderID)
	if err != nil {
		s.log.Warn("Rate limit check failed, allowing send", "error", err, "sender_id", senderID)
		return true
	}
	if count >= int64(s.limit) {
		return false
	}

	if _, err := s.rateLimitRepo.CountSend(ctx, senderID, s.window); err != nil {
		s.log.Warn("Rate limit count failed", "error", err, "sender_id", senderID)
	}
	return true
}
