package handlers

import (
	"net/http"
	"strconv"

	"github.com/isdelr/octopus-budget-be/internal/services"
	"github.com/rs/zerolog/log"
)

// EventHandler serves the caller's recent activity feed.
type EventHandler struct {
	service services.ActivityServiceProvider
}

// NewEventHandler creates a new EventHandler.
func NewEventHandler(service services.ActivityServiceProvider) *EventHandler {
	return &EventHandler{service: service}
}

// GetRecent returns the most recent events for the authenticated user.
func (h *EventHandler) GetRecent(w http.ResponseWriter, r *http.Request) {
	username, ok := caller(w, r)
	if !ok {
		return
	}

	limit := 50
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 && n <= 200 {
			limit = n
		}
	}

	events, err := h.service.RecentEvents(username, limit)
	if err != nil {
		log.Error().Err(err).Str("username", username).Msg("Failed to fetch events")
		respondError(w, http.StatusInternalServerError, "Failed to fetch events")
		return
	}
	respondData(w, http.StatusOK, events)
}
