package models

import "time"

type Notification struct {
	ID        string            `json:"id"`
	UserID    string            `json:"user_id"`
	Type      NotificationType  `json:"type"`
	Title     string            `json:"title"`
	Message   string            `json:"message"`
	Read      bool              `json:"read"`
	ActionURL string            `json:"action_url,omitempty"`
	Metadata  map[string]string `json:"metadata,omitempty"`
	ExpiresAt *time.Time        `json:"expires_at,omitempty"`
	CreatedAt time.Time         `json:"created_at"`
}

type NotificationType string

const (
	NotificationRentalRequest  NotificationType = "rental_request"
	NotificationReturnReminder NotificationType = "return_reminder"
	NotificationMessage        NotificationType = "message"
	NotificationSystem         NotificationType = "system"
)

type UnreadCounts struct {
	Messages      int `json:"messages"`
	Notifications int `json:"notifications"`
}
