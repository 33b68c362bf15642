package models

import "time"

// Event represents a loggable action in a user's activity feed.
type Event struct {
	ID        string    `json:"id"`
	Username  string    `json:"-"`
	Type      string    `json:"type"`  // e.g. "auth.login", "record.create"
	Level     string    `json:"level"` // e.g. "info", "warn"
	Message   string    `json:"message"`
	CreatedAt time.Time `json:"createdAt"`
}
