package models

import "time"

// User represents an account in the shared credential database.
type User struct {
	Username     string    `json:"username"`
	PasswordHash string    `json:"-"` // Never expose this to the client
	CreatedAt    time.Time `json:"createdAt"`
}
