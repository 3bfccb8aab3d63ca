package models

import "time"

// NotificationType represents notification types
type NotificationType string

const (
	NotificationTypeInfo      NotificationType = "info"
	NotificationTypeGroup     NotificationType = "group"
	NotificationTypeOffer     NotificationType = "offer"
	NotificationTypeVote      NotificationType = "vote"
	NotificationTypeLogistics NotificationType = "logistics"
)

// Notification represents an in-app notification
type Notification struct {
	ID        string           `json:"id" db:"id"`
	UserID    string           `json:"userId" db:"user_id"`
	Type      NotificationType `json:"type" db:"type"`
	Title     string           `json:"title" db:"title"`
	Message   string           `json:"message" db:"message"`
	Data      string           `json:"data" db:"data"`
	IsRead    bool             `json:"isRead" db:"is_read"`
	CreatedAt time.Time        `json:"createdAt" db:"created_at"`
	ReadAt    *time.Time       `json:"readAt,omitempty" db:"read_at"`
}
