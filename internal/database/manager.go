package database

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sync"

	"github.com/rs/zerolog/log"
)

// usernamePattern restricts usernames to characters that are safe to embed
// in a database file name. Enforced at registration; Resolve rejects
// anything else so a handle can never escape the data directory.
var usernamePattern = regexp.MustCompile(`^[A-Za-z0-9_.-]{3,32}$`)

// ValidUsername reports whether a username may be mapped to a store.
func ValidUsername(username string) bool {
	return usernamePattern.MatchString(username)
}

// Manager resolves usernames to isolated per-user budget databases.
// Each username maps deterministically to one SQLite file under the data
// directory; handles are cached so repeated resolves share one connection
// pool. Cross-user isolation depends on callers passing only authenticated
// usernames in here, never request-body input.
type Manager struct {
	dataDir string

	mu      sync.Mutex
	handles map[string]*UserStore
}

// NewManager creates a Manager rooted at dataDir.
func NewManager(dataDir string) *Manager {
	return &Manager{
		dataDir: dataDir,
		handles: make(map[string]*UserStore),
	}
}

// Path returns the database file path for a username.
func (m *Manager) Path(username string) string {
	return filepath.Join(m.dataDir, username+"_budget.db")
}

// Resolve returns the store for username, opening and migrating it on
// first use. Idempotent: repeated calls return the same handle.
func (m *Manager) Resolve(username string) (*UserStore, error) {
	if !ValidUsername(username) {
		return nil, fmt.Errorf("invalid username %q", username)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if store, ok := m.handles[username]; ok {
		return store, nil
	}

	db, err := sql.Open("sqlite", m.Path(username))
	if err != nil {
		return nil, fmt.Errorf("failed to open store for %s: %w", username, err)
	}
	if err := migrateUserStore(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate store for %s: %w", username, err)
	}

	store := &UserStore{db: db, username: username}
	m.handles[username] = store
	return store, nil
}

// Destroy closes and deletes username's database file. Called when an
// account is deleted; subsequent resolves start from an empty store.
func (m *Manager) Destroy(username string) error {
	if !ValidUsername(username) {
		return fmt.Errorf("invalid username %q", username)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if store, ok := m.handles[username]; ok {
		if err := store.db.Close(); err != nil {
			log.Warn().Err(err).Str("username", username).Msg("Failed to close user store")
		}
		delete(m.handles, username)
	}

	if err := os.Remove(m.Path(username)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove store for %s: %w", username, err)
	}
	return nil
}

// Close closes all open user stores.
func (m *Manager) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	for username, store := range m.handles {
		if err := store.db.Close(); err != nil {
			log.Warn().Err(err).Str("username", username).Msg("Failed to close user store")
		}
		delete(m.handles, username)
	}
}

// migrateUserStore sets up the per-user budget schema.
func migrateUserStore(db *sql.DB) error {
	const sqlStmt = `
	CREATE TABLE IF NOT EXISTS subscriptions (
		id TEXT NOT NULL PRIMARY KEY,
		name TEXT NOT NULL,
		amount REAL NOT NULL,
		frequency TEXT NOT NULL,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	CREATE TABLE IF NOT EXISTS accounts (
		id TEXT NOT NULL PRIMARY KEY,
		name TEXT NOT NULL UNIQUE,
		balance REAL NOT NULL,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	CREATE TABLE IF NOT EXISTS income (
		id TEXT NOT NULL PRIMARY KEY,
		amount REAL NOT NULL,
		frequency TEXT NOT NULL,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	CREATE TABLE IF NOT EXISTS debts (
		id TEXT NOT NULL PRIMARY KEY,
		name TEXT NOT NULL UNIQUE,
		balance REAL NOT NULL,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);
	`
	_, err := db.Exec(sqlStmt)
	return err
}
