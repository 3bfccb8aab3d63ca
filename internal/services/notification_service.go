package services

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/DheeruBhaiAmbani/kisan-ai/internal/models"
)

// NotificationService stores in-app notifications and pushes them to
// connected clients. Delivery is fire-and-forget.
type NotificationService struct {
	db *sql.DB
	ws *WebSocketService // optional real-time push
}

// NewNotificationService creates a new notification service
func NewNotificationService(db *sql.DB, ws *WebSocketService) *NotificationService {
	return &NotificationService{db: db, ws: ws}
}

// CreateNotification creates a new notification
func (s *NotificationService) CreateNotification(userID string, notifType models.NotificationType, title, message string, data map[string]interface{}) (*models.Notification, error) {
	dataJSON := "{}"
	if data != nil {
		dataBytes, err := json.Marshal(data)
		if err != nil {
			return nil, fmt.Errorf("failed to serialize notification data: %w", err)
		}
		dataJSON = string(dataBytes)
	}

	notification := &models.Notification{
		ID:        uuid.New().String(),
		UserID:    userID,
		Type:      notifType,
		Title:     title,
		Message:   message,
		Data:      dataJSON,
		IsRead:    false,
		CreatedAt: time.Now(),
	}

	query := `
		INSERT INTO notifications (id, user_id, type, title, message, data, is_read, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err := s.db.Exec(query,
		notification.ID, notification.UserID, notification.Type, notification.Title,
		notification.Message, notification.Data, notification.IsRead, notification.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to create notification: %w", err)
	}

	if s.ws != nil {
		s.ws.SendToUser(userID, WebSocketMessage{
			Type: "notification",
			Data: notification,
		})
	}
	return notification, nil
}

// Notify is the fire-and-forget variant used from background work: failures
// are logged, never propagated.
func (s *NotificationService) Notify(userID string, notifType models.NotificationType, title, message string, data map[string]interface{}) {
	if _, err := s.CreateNotification(userID, notifType, title, message, data); err != nil {
		log.Printf("Warning: failed to notify user %s: %v", userID, err)
	}
}

// GetUserNotifications retrieves a user's notifications, newest first
func (s *NotificationService) GetUserNotifications(userID string, limit, offset int) ([]models.Notification, error) {
	rows, err := s.db.Query(`
		SELECT id, user_id, type, title, message, data, is_read, read_at, created_at
		FROM notifications
		WHERE user_id = ?
		ORDER BY created_at DESC
		LIMIT ? OFFSET ?`, userID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to get notifications: %w", err)
	}
	defer rows.Close()

	var notifications []models.Notification
	for rows.Next() {
		var n models.Notification
		err := rows.Scan(&n.ID, &n.UserID, &n.Type, &n.Title, &n.Message, &n.Data,
			&n.IsRead, &n.ReadAt, &n.CreatedAt)
		if err != nil {
			return nil, fmt.Errorf("failed to scan notification: %w", err)
		}
		notifications = append(notifications, n)
	}
	return notifications, rows.Err()
}

// UnreadCount returns the number of unread notifications for a user
func (s *NotificationService) UnreadCount(userID string) (int, error) {
	var count int
	err := s.db.QueryRow(`SELECT COUNT(*) FROM notifications WHERE user_id = ? AND is_read = FALSE`, userID).
		Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count unread notifications: %w", err)
	}
	return count, nil
}

// MarkAsRead marks one notification as read
func (s *NotificationService) MarkAsRead(notificationID, userID string) error {
	result, err := s.db.Exec(`
		UPDATE notifications SET is_read = TRUE, read_at = ?
		WHERE id = ? AND user_id = ?`, time.Now(), notificationID, userID)
	if err != nil {
		return fmt.Errorf("failed to mark notification as read: %w", err)
	}
	affected, _ := result.RowsAffected()
	if affected == 0 {
		return models.NewValidationError("notification not found")
	}
	return nil
}

// MarkAllAsRead marks all of a user's notifications as read
func (s *NotificationService) MarkAllAsRead(userID string) error {
	_, err := s.db.Exec(`
		UPDATE notifications SET is_read = TRUE, read_at = ?
		WHERE user_id = ? AND is_read = FALSE`, time.Now(), userID)
	if err != nil {
		return fmt.Errorf("failed to mark notifications as read: %w", err)
	}
	return nil
}
