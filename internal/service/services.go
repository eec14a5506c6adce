package service

import (
	"github.com/Rimee2005/CareConnect-sub000/internal/config"
	"github.com/Rimee2005/CareConnect-sub000/internal/repository"
	"github.com/Rimee2005/CareConnect-sub000/pkg/logger"
)

type Services struct {
	Chat         ChatService
	Notification NotificationService
	RateLimit    RateLimitService
}

func NewServices(repos *repository.Repositories, cfg *config.Config, log logger.Logger) *Services {
	return &Services{
		Chat: NewChatService(repos.Message, repos.Profile, cfg.Relay.StorageTimeout, log),
		Notification: NewNotificationService(
			repos.Notification, repos.Profile,
			cfg.Relay.LookupTimeout, cfg.Relay.StorageTimeout,
			log,
		),
		RateLimit: NewRateLimitService(repos.RateLimit, cfg.Relay.MessagesPerMinute, log),
	}
}
