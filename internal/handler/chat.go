package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Rimee2005/CareConnect-sub000/internal/domain"
	"github.com/Rimee2005/CareConnect-sub000/internal/service"
	apperrors "github.com/Rimee2005/CareConnect-sub000/pkg/errors"
	"github.com/Rimee2005/CareConnect-sub000/pkg/logger"
)

type ChatHandler struct {
	chatService service.ChatService
	log         logger.Logger
}

func NewChatHandler(chatService service.ChatService, log logger.Logger) *ChatHandler {
	return &ChatHandler{
		chatService: chatService,
		log:         log,
	}
}

// GetMessages - полная история переписки. Клиент вызывает ее после
// reconnect и замещает локальный список целиком. Историю отдаем только
// участнику: токен валиден для любого пользователя, участие - нет.
func (h *ChatHandler) GetMessages(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "user not authenticated"})
		return
	}

	conversationID := c.Param("id")
	if !domain.ValidConversationID(conversationID) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid conversation ID"})
		return
	}

	messages, err := h.chatService.GetMessages(c.Request.Context(), conversationID, userID)
	if err != nil {
		if errors.Is(err, apperrors.ErrForbidden) {
			c.JSON(http.StatusForbidden, gin.H{"error": "not a conversation participant"})
			return
		}
		c.JSON(apperrors.HTTPStatusFromError(err), gin.H{"error": "failed to load messages"})
		return
	}

	if messages == nil {
		messages = []*domain.Message{}
	}
	c.JSON(http.StatusOK, messages)
}

type MarkReadRequest struct {
	MessageIDs []int64 `json:"message_ids" binding:"required"`
}

// MarkRead - REST-запасной путь для mark-read, когда сокет закрыт
func (h *ChatHandler) MarkRead(c *gin.Context) {
	var req MarkReadRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.chatService.MarkRead(c.Request.Context(), req.MessageIDs); err != nil {
		c.JSON(apperrors.HTTPStatusFromError(err), gin.H{"error": "failed to mark messages read"})
		return
	}

	c.Status(http.StatusNoContent)
}
