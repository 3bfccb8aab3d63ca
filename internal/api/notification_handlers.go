package api

import (
	"github.com/gin-gonic/gin"

	"github.com/DheeruBhaiAmbani/kisan-ai/internal/services"
)

// NotificationHandlers contains notification handlers
type NotificationHandlers struct {
	notificationService *services.NotificationService
}

// NewNotificationHandlers creates new notification handlers
func NewNotificationHandlers(notificationService *services.NotificationService) *NotificationHandlers {
	return &NotificationHandlers{notificationService: notificationService}
}

// GetNotifications lists the caller's notifications
func (h *NotificationHandlers) GetNotifications(c *gin.Context) {
	userID := c.GetString("userID")
	limit, offset := paginationParams(c)

	notifications, err := h.notificationService.GetUserNotifications(userID, limit, offset)
	if err != nil {
		respondError(c, err)
		return
	}

	respondOK(c, gin.H{"notifications": notifications})
}

// GetUnreadCount returns the caller's unread notification count
func (h *NotificationHandlers) GetUnreadCount(c *gin.Context) {
	userID := c.GetString("userID")

	count, err := h.notificationService.UnreadCount(userID)
	if err != nil {
		respondError(c, err)
		return
	}

	respondOK(c, gin.H{"unreadCount": count})
}

// MarkAsRead marks one notification as read
func (h *NotificationHandlers) MarkAsRead(c *gin.Context) {
	userID := c.GetString("userID")

	if err := h.notificationService.MarkAsRead(c.Param("id"), userID); err != nil {
		respondError(c, err)
		return
	}

	respondOK(c, gin.H{"message": "Notification marked as read"})
}

// MarkAllAsRead marks all of the caller's notifications as read
func (h *NotificationHandlers) MarkAllAsRead(c *gin.Context) {
	userID := c.GetString("userID")

	if err := h.notificationService.MarkAllAsRead(userID); err != nil {
		respondError(c, err)
		return
	}

	respondOK(c, gin.H{"message": "All notifications marked as read"})
}
