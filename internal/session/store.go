// Package session implements the server-side cookie session store used
// by the web UI. Sessions are process-local; the mobile client uses
// stateless bearer tokens instead.
package session

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// CookieName is the cookie carrying the opaque session identifier.
const CookieName = "budget_session"

// Session identifies one logged-in browser.
type Session struct {
	ID        string
	Username  string
	ExpiresAt time.Time
}

// Store holds active sessions in memory.
type Store struct {
	ttl time.Duration
	now func() time.Time

	mu       sync.Mutex
	sessions map[string]Session
}

// NewStore creates a Store whose sessions expire after ttl.
func NewStore(ttl time.Duration) *Store {
	return &Store{
		ttl:      ttl,
		now:      time.Now,
		sessions: make(map[string]Session),
	}
}

// Create starts a new session for username and returns it.
func (s *Store) Create(username string) Session {
	sess := Session{
		ID:        uuid.New().String(),
		Username:  username,
		ExpiresAt: s.now().Add(s.ttl),
	}

	s.mu.Lock()
	s.sessions[sess.ID] = sess
	s.mu.Unlock()
	return sess
}

// Get returns the session for id. Expired sessions are removed lazily
// and reported as missing.
func (s *Store) Get(id string) (Session, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[id]
	if !ok {
		return Session{}, false
	}
	if s.now().After(sess.ExpiresAt) {
		delete(s.sessions, id)
		return Session{}, false
	}
	return sess, true
}

// Destroy removes the session with the given id.
func (s *Store) Destroy(id string) {
	s.mu.Lock()
	delete(s.sessions, id)
	s.mu.Unlock()
}

// DestroyAllFor removes every session belonging to username. Called
// when the account is deleted.
func (s *Store) DestroyAllFor(username string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, sess := range s.sessions {
		if sess.Username == username {
			delete(s.sessions, id)
		}
	}
}

// Sweep removes expired sessions and returns how many were dropped.
func (s *Store) Sweep() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	removed := 0
	for id, sess := range s.sessions {
		if now.After(sess.ExpiresAt) {
			delete(s.sessions, id)
			removed++
		}
	}
	return removed
}
