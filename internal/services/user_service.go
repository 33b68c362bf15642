package services

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/isdelr/octopus-budget-be/internal/models"
	"golang.org/x/crypto/bcrypt"
)

// Credential store errors.
var (
	ErrDuplicateUsername  = errors.New("username already exists")
	ErrUserNotFound       = errors.New("user not found")
	ErrInvalidCredentials = errors.New("invalid credentials")
)

// UserServiceProvider defines the interface for the credential store.
type UserServiceProvider interface {
	GetUser(username string) (models.User, error)
	CreateUser(username, password string) (models.User, error)
	VerifyPassword(username, password string) error
	ChangePassword(username, currentPassword, newPassword string) error
	DeleteUser(username string) error
}

// UserService manages account credentials in the shared database.
// Passwords are stored only as bcrypt hashes; comparison goes through
// bcrypt.CompareHashAndPassword, which is constant-time over the hash.
type UserService struct {
	db *sql.DB
}

// NewUserService creates a new UserService.
func NewUserService(db *sql.DB) *UserService {
	return &UserService{db: db}
}

// GetUser retrieves a user by username, including the password hash.
func (s *UserService) GetUser(username string) (models.User, error) {
	var user models.User
	row := s.db.QueryRow("SELECT username, password_hash, created_at FROM users WHERE username = ?", username)
	err := row.Scan(&user.Username, &user.PasswordHash, &user.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.User{}, ErrUserNotFound
		}
		return models.User{}, err
	}
	return user, nil
}

// CreateUser creates a new user, hashing their password. Fails with
// ErrDuplicateUsername when the username is taken; the existing
// credential is never overwritten.
func (s *UserService) CreateUser(username, password string) (models.User, error) {
	var exists int
	if err := s.db.QueryRow("SELECT COUNT(1) FROM users WHERE username = ?", username).Scan(&exists); err != nil {
		return models.User{}, err
	}
	if exists > 0 {
		return models.User{}, ErrDuplicateUsername
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return models.User{}, fmt.Errorf("failed to hash password: %w", err)
	}

	stmt, err := s.db.Prepare("INSERT INTO users(username, password_hash) VALUES(?, ?)")
	if err != nil {
		return models.User{}, err
	}
	defer stmt.Close()

	if _, err = stmt.Exec(username, string(hashedPassword)); err != nil {
		return models.User{}, err
	}

	return models.User{Username: username}, nil
}

// VerifyPassword checks a plaintext password against the stored hash.
// Returns ErrUserNotFound or ErrInvalidCredentials; callers decide how
// much of that distinction to surface.
func (s *UserService) VerifyPassword(username, password string) error {
	user, err := s.GetUser(username)
	if err != nil {
		return err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return ErrInvalidCredentials
	}
	return nil
}

// ChangePassword verifies the current password, then hashes and stores
// the new one.
func (s *UserService) ChangePassword(username, currentPassword, newPassword string) error {
	if err := s.VerifyPassword(username, currentPassword); err != nil {
		return err
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("failed to hash new password: %w", err)
	}

	_, err = s.db.Exec("UPDATE users SET password_hash = ? WHERE username = ?", string(hashedPassword), username)
	return err
}

// DeleteUser removes a user's credential row. The caller is
// responsible for destroying the user's budget store and sessions.
func (s *UserService) DeleteUser(username string) error {
	res, err := s.db.Exec("DELETE FROM users WHERE username = ?", username)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrUserNotFound
	}
	return nil
}
