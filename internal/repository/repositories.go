package repository

import (
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/Rimee2005/CareConnect-sub000/pkg/logger"
)

type Repositories struct {
	Message      MessageRepository
	Notification NotificationRepository
	Profile      ProfileRepository
	RateLimit    RateLimitRepository
}

func NewRepositories(db *pgxpool.Pool, redis *redis.Client, log logger.Logger) *Repositories {
	return &Repositories{
		Message:      NewMessageRepository(db, log),
		Notification: NewNotificationRepository(db, log),
		Profile:      NewProfileRepository(db, log),
		RateLimit:    NewRateLimitRepository(redis, log),
	}
}
