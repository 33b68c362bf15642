package services

import (
	"database/sql"
	"encoding/json"

	"github.com/google/uuid"
	"github.com/isdelr/octopus-budget-be/internal/models"
	"github.com/rs/zerolog/log"
)

// EventBroadcaster pushes a message to live clients of one user.
type EventBroadcaster interface {
	BroadcastTo(username string, message []byte)
}

// ActivityServiceProvider defines the interface for activity events.
type ActivityServiceProvider interface {
	Record(username, eventType, level, message string)
	RecentEvents(username string, limit int) ([]models.Event, error)
}

// ActivityService logs per-user activity events to the shared database
// and pushes them to that user's websocket clients.
type ActivityService struct {
	db  *sql.DB
	hub EventBroadcaster
}

// NewActivityService creates a new ActivityService.
func NewActivityService(db *sql.DB, hub EventBroadcaster) *ActivityService {
	return &ActivityService{db: db, hub: hub}
}

// Record logs a new event. Failures are logged and swallowed: the feed
// is best-effort and must never fail the request that produced it.
func (s *ActivityService) Record(username, eventType, level, message string) {
	event := models.Event{
		ID:       uuid.New().String(),
		Username: username,
		Type:     eventType,
		Level:    level,
		Message:  message,
	}

	stmt, err := s.db.Prepare("INSERT INTO events (id, username, type, level, message) VALUES (?, ?, ?, ?, ?)")
	if err != nil {
		log.Error().Err(err).Msg("Failed to prepare event insert")
		return
	}
	defer stmt.Close()

	if _, err := stmt.Exec(event.ID, event.Username, event.Type, event.Level, event.Message); err != nil {
		log.Error().Err(err).Str("type", eventType).Msg("Failed to record event")
		return
	}

	if s.hub != nil {
		if payload, err := json.Marshal(map[string]interface{}{
			"action":  "event",
			"payload": event,
		}); err == nil {
			s.hub.BroadcastTo(username, payload)
		}
	}
}

// RecentEvents retrieves the most recent events for one user.
func (s *ActivityService) RecentEvents(username string, limit int) ([]models.Event, error) {
	rows, err := s.db.Query("SELECT id, username, type, level, message, created_at FROM events WHERE username = ? ORDER BY created_at DESC LIMIT ?", username, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []models.Event
	for rows.Next() {
		var event models.Event
		if err := rows.Scan(&event.ID, &event.Username, &event.Type, &event.Level, &event.Message, &event.CreatedAt); err != nil {
			return nil, err
		}
		events = append(events, event)
	}
	return events, rows.Err()
}
