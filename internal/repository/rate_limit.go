package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/Rimee2005/CareConnect-sub000/pkg/logger"
)

// Ключ лимита живет в redis под "chat:send:<sender profile id>":
// счетчик отправок за окно с TTL. Репозиторий владеет ключом целиком,
// выше этой границы redis-строк не существует.
const sendQuotaKeyPrefix = "chat:send:"

type RateLimitRepository interface {
	// SendCount возвращает текущий счетчик окна отправителя
	SendCount(ctx context.Context, senderID uuid.UUID) (int64, error)
	// CountSend учитывает одну отправку и возвращает накопленный
	// счетчик. Первая отправка открывает окно.
	CountSend(ctx context.Context, senderID uuid.UUID, window time.Duration) (int64, error)
}

type rateLimitRepository struct {
	redis *redis.Client
	log   logger.Logger
}

func NewRateLimitRepository(redis *redis.Client, log logger.Logger) RateLimitRepository {
	return &rateLimitRepository{redis: redis, log: log}
}

func (r *rateLimitRepository) SendCount(ctx context.Context, senderID uuid.UUID) (int64, error) {
	count, err := r.redis.Get(ctx, sendQuotaKeyPrefix+senderID.String()).Int64()
	if err == redis.Nil {
		return 0, nil
	}
	if err != nil {
		r.log.Error("Failed to read send quota", "error", err, "sender_id", senderID)
		return 0, err
	}
	return count, nil
}

func (r *rateLimitRepository) CountSend(ctx context.Context, senderID uuid.UUID, window time.Duration) (int64, error) {
	key := sendQuotaKeyPrefix + senderID.String()

	count, err := r.redis.Incr(ctx, key).Result()
	if err != nil {
		r.log.Error("Failed to count send", "error", err, "sender_id", senderID)
		return 0, err
	}

	if count == 1 {
		r.redis.Expire(ctx, key, window)
	}

	return count, nil
}
