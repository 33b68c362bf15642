package services

import (
	"context"
	"errors"
	"time"

	"github.com/isdelr/octopus-budget-be/internal/auth"
	"github.com/isdelr/octopus-budget-be/internal/database"
	"github.com/rs/zerolog/log"
)

// LoginKind classifies the outcome of a login attempt. The web and API
// adapters render the same kinds differently: the web form re-renders
// with an error string, the API maps them to status codes.
type LoginKind int

const (
	LoginOK LoginKind = iota
	LoginBadInput
	LoginUserNotFound
	LoginBadPassword
	LoginLocked
	LoginChallengeFailed
	LoginError
)

// LoginResult is the single internal outcome type for both login paths.
type LoginResult struct {
	Kind     LoginKind
	Username string
	// Retry holds the remaining lockout time when Kind is LoginLocked.
	Retry time.Duration
}

// LoginInput carries a login attempt through the auth flow.
type LoginInput struct {
	Username     string
	Password     string
	CaptchaToken string
	// RequireCaptcha is set on browser paths. The mobile client never
	// solves a challenge.
	RequireCaptcha bool
}

// StoreResolver maps an authenticated username to its isolated store.
type StoreResolver interface {
	Resolve(username string) (*database.UserStore, error)
	Destroy(username string) error
}

// AuthServiceProvider defines the interface for the auth flow.
type AuthServiceProvider interface {
	Login(ctx context.Context, in LoginInput) LoginResult
	Register(ctx context.Context, username, password string) error
	DeleteAccount(ctx context.Context, username, password string) error
}

// AuthService runs the login and registration flows: challenge check,
// lockout check, credential verification, tracker reset and store
// initialization, in that order.
type AuthService struct {
	users    UserServiceProvider
	tracker  *auth.Tracker
	captcha  auth.ChallengeVerifier
	resolver StoreResolver
	activity ActivityServiceProvider
}

// NewAuthService creates a new AuthService.
func NewAuthService(users UserServiceProvider, tracker *auth.Tracker, captcha auth.ChallengeVerifier, resolver StoreResolver, activity ActivityServiceProvider) *AuthService {
	return &AuthService{
		users:    users,
		tracker:  tracker,
		captcha:  captcha,
		resolver: resolver,
		activity: activity,
	}
}

// Login processes one login attempt. Failed verifications increment the
// lockout tracker for the attempted username, including usernames that
// do not exist.
func (s *AuthService) Login(ctx context.Context, in LoginInput) LoginResult {
	if in.Username == "" || in.Password == "" {
		return LoginResult{Kind: LoginBadInput}
	}

	// Challenge runs before anything touches the credential store, and
	// a missing response fails without a network round trip.
	if in.RequireCaptcha && !s.captcha.Verify(ctx, in.CaptchaToken) {
		return LoginResult{Kind: LoginChallengeFailed}
	}

	if locked, remaining := s.tracker.Locked(in.Username); locked {
		return LoginResult{Kind: LoginLocked, Retry: remaining}
	}

	if err := s.users.VerifyPassword(in.Username, in.Password); err != nil {
		kind := LoginBadPassword
		switch {
		case errors.Is(err, ErrUserNotFound):
			kind = LoginUserNotFound
		case errors.Is(err, ErrInvalidCredentials):
			kind = LoginBadPassword
		default:
			log.Error().Err(err).Str("username", in.Username).Msg("Credential verification failed")
			return LoginResult{Kind: LoginError}
		}

		if tripped := s.tracker.RecordFailure(in.Username); tripped {
			_, remaining := s.tracker.Locked(in.Username)
			return LoginResult{Kind: LoginLocked, Retry: remaining}
		}
		return LoginResult{Kind: kind}
	}

	s.tracker.Reset(in.Username)

	// Re-initialize the user's store on every login. The resolver is
	// idempotent and cached, so after the first login this is a map hit.
	if _, err := s.resolver.Resolve(in.Username); err != nil {
		log.Error().Err(err).Str("username", in.Username).Msg("Failed to resolve user store")
		return LoginResult{Kind: LoginError}
	}

	s.activity.Record(in.Username, "auth.login", "info", "Logged in")
	return LoginResult{Kind: LoginOK, Username: in.Username}
}

// Register validates input, creates the credential and initializes the
// user's store.
func (s *AuthService) Register(ctx context.Context, username, password string) error {
	if username == "" || password == "" {
		return ErrMissingFields
	}
	if !database.ValidUsername(username) {
		return ErrBadUsername
	}
	if len(password) < 6 {
		return ErrPasswordTooShort
	}

	if _, err := s.users.CreateUser(username, password); err != nil {
		return err
	}

	if _, err := s.resolver.Resolve(username); err != nil {
		log.Error().Err(err).Str("username", username).Msg("Failed to initialize user store after registration")
		return err
	}

	s.activity.Record(username, "auth.register", "info", "Account created")
	return nil
}

// DeleteAccount re-verifies the password, then removes the credential
// and the user's entire budget store.
func (s *AuthService) DeleteAccount(ctx context.Context, username, password string) error {
	if err := s.users.VerifyPassword(username, password); err != nil {
		return err
	}
	if err := s.resolver.Destroy(username); err != nil {
		return err
	}
	if err := s.users.DeleteUser(username); err != nil {
		return err
	}

	// The events table lives in the shared database, so the trail
	// outlives the destroyed budget store.
	s.activity.Record(username, "account.delete", "warn", "Account deleted")
	return nil
}

// Registration validation errors.
var (
	ErrMissingFields    = errors.New("username and password are required")
	ErrBadUsername      = errors.New("username must be 3-32 letters, digits, dot, dash or underscore")
	ErrPasswordTooShort = errors.New("password must be at least 6 characters")
)
