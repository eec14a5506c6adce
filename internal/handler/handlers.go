package handler

import (
	"github.com/Rimee2005/CareConnect-sub000/internal/config"
	"github.com/Rimee2005/CareConnect-sub000/internal/relay"
	"github.com/Rimee2005/CareConnect-sub000/internal/service"
	"github.com/Rimee2005/CareConnect-sub000/pkg/logger"
)

type Handlers struct {
	Health       *HealthHandler
	Chat         *ChatHandler
	Notification *NotificationHandler
	WebSocket    *WebSocketHandler
}

func NewHandlers(services *service.Services, chatRelay *relay.Relay, cfg *config.Config, log logger.Logger) *Handlers {
	return &Handlers{
		Health:       NewHealthHandler(),
		Chat:         NewChatHandler(services.Chat, log),
		Notification: NewNotificationHandler(services.Notification, log),
		WebSocket:    NewWebSocketHandler(chatRelay, cfg.Relay.SendBufferSize, log),
	}
}
