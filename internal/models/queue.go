package models

import "time"

// Queue entry statuses. Transitions are monotonic:
// pending -> processing -> sent. Nothing in this system moves a row backward.
const (
	QueueStatusPending    = "pending"
	QueueStatusProcessing = "processing"
	QueueStatusSent       = "sent"
)

// QueueEntry is one row of the notification queue: a single notification
// addressed to one user, possibly delivered to multiple devices.
type QueueEntry struct {
	ID           int64                  `json:"id"`
	UserID       string                 `json:"user_id"`
	Title        string                 `json:"title"`
	Body         string                 `json:"body"`
	Data         map[string]interface{} `json:"data,omitempty"`
	Priority     int                    `json:"priority"`
	Category     string                 `json:"category,omitempty"`
	Status       string                 `json:"status"`
	ScheduledFor time.Time              `json:"scheduled_for"`
	SentAt       *time.Time             `json:"sent_at,omitempty"`
}
