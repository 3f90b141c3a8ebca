package domain

import "time"

// SystemAlertsTitle names the session the deadline monitor creates when a
// user has no chat history yet.
const SystemAlertsTitle = "System Alerts"

type ChatSession struct {
	ID        string
	UserID    string
	Title     string
	CreatedAt time.Time
	UpdatedAt time.Time
}

type ChatMessage struct {
	ID        string
	SessionID string
	Role      ChatRole
	Content   string
	CreatedAt time.Time
}
