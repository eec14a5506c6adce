package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/Rimee2005/CareConnect-sub000/internal/domain"
	"github.com/Rimee2005/CareConnect-sub000/internal/service"
	apperrors "github.com/Rimee2005/CareConnect-sub000/pkg/errors"
	"github.com/Rimee2005/CareConnect-sub000/pkg/logger"
)

type NotificationHandler struct {
	notificationService service.NotificationService
	log                 logger.Logger
}

func NewNotificationHandler(notificationService service.NotificationService, log logger.Logger) *NotificationHandler {
	return &NotificationHandler{
		notificationService: notificationService,
		log:                 log,
	}
}

// List возвращает уведомления текущего пользователя; ?unread=1 - только
// непрочитанные. Сюда попадает все, что не удалось доставить по сокету.
func (h *NotificationHandler) List(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "user not authenticated"})
		return
	}

	onlyUnread := c.Query("unread") == "1"

	notifications, err := h.notificationService.ListForUser(c.Request.Context(), userID, onlyUnread)
	if err != nil {
		c.JSON(apperrors.HTTPStatusFromError(err), gin.H{"error": "failed to load notifications"})
		return
	}

	if notifications == nil {
		notifications = []*domain.Notification{}
	}
	c.JSON(http.StatusOK, notifications)
}

func (h *NotificationHandler) MarkRead(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "user not authenticated"})
		return
	}

	notificationID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid notification ID"})
		return
	}

	if err := h.notificationService.MarkRead(c.Request.Context(), notificationID, userID); err != nil {
		c.JSON(apperrors.HTTPStatusFromError(err), gin.H{"error": "failed to mark notification read"})
		return
	}

	c.Status(http.StatusNoContent)
}

func currentUserID(c *gin.Context) (uuid.UUID, bool) {
	value, exists := c.Get("user_id")
	if !exists {
		return uuid.Nil, false
	}
	userID, ok := value.(uuid.UUID)
	return userID, ok
}
