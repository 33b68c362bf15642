package websocket

import "github.com/rs/zerolog/log"

// userMessage is an event addressed to every client of one user.
type userMessage struct {
	username string
	payload  []byte
}

// Hub maintains the set of active clients and routes activity events to
// the clients of the user they belong to. All map mutation happens on
// the Run goroutine.
type Hub struct {
	// Registered clients.
	clients map[*Client]bool

	// Register requests from the clients.
	Register chan *Client

	// Unregister requests from clients.
	Unregister chan *Client

	// Targeted messages from services.
	broadcasts chan userMessage

	// A map of usernames to the set of clients logged in as that user.
	subscriptions map[string]map[*Client]bool
}

// NewHub creates a new Hub.
func NewHub() *Hub {
	return &Hub{
		Register:      make(chan *Client),
		Unregister:    make(chan *Client),
		broadcasts:    make(chan userMessage, 64),
		clients:       make(map[*Client]bool),
		subscriptions: make(map[string]map[*Client]bool),
	}
}

// Run starts the Hub's message processing loop.
func (h *Hub) Run() {
	for {
		select {
		case client := <-h.Register:
			h.clients[client] = true
			h.addSubscription(client)
			log.Info().Int("total_clients", len(h.clients)).Str("username", client.Username).Msg("Client connected")
		case client := <-h.Unregister:
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.Send)
				h.removeSubscription(client)
				log.Info().Int("total_clients", len(h.clients)).Msg("Client disconnected")
			}
		case msg := <-h.broadcasts:
			h.deliver(msg)
		}
	}
}

// BroadcastTo queues a message for all clients logged in as username.
// Drops the message when the hub itself is backed up.
func (h *Hub) BroadcastTo(username string, message []byte) {
	select {
	case h.broadcasts <- userMessage{username: username, payload: message}:
	default:
		log.Warn().Str("username", username).Msg("Hub broadcast queue full, dropping event")
	}
}

// deliver fans a message out to the target user's clients. Clients that
// cannot keep up are dropped.
func (h *Hub) deliver(msg userMessage) {
	for client := range h.subscriptions[msg.username] {
		select {
		case client.Send <- msg.payload:
		default:
			delete(h.clients, client)
			close(client.Send)
			h.removeSubscription(client)
		}
	}
}

func (h *Hub) addSubscription(client *Client) {
	if h.subscriptions[client.Username] == nil {
		h.subscriptions[client.Username] = make(map[*Client]bool)
	}
	h.subscriptions[client.Username][client] = true
}

func (h *Hub) removeSubscription(client *Client) {
	if subs, ok := h.subscriptions[client.Username]; ok {
		delete(subs, client)
		if len(subs) == 0 {
			delete(h.subscriptions, client.Username)
		}
	}
}
