package services

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/isdelr/octopus-budget-be/internal/auth"
	"github.com/isdelr/octopus-budget-be/internal/database"
	"github.com/isdelr/octopus-budget-be/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stubVerifier accepts or rejects every challenge.
type stubVerifier struct {
	ok bool
}

func (v stubVerifier) Verify(ctx context.Context, response string) bool { return v.ok }

// recordingActivity captures event types without a database.
type recordingActivity struct {
	types []string
}

func (a *recordingActivity) Record(username, eventType, level, message string) {
	a.types = append(a.types, eventType)
}

func (a *recordingActivity) RecentEvents(username string, limit int) ([]models.Event, error) {
	return nil, nil
}

type authFixture struct {
	svc      *AuthService
	tracker  *auth.Tracker
	manager  *database.Manager
	activity *recordingActivity
}

func newAuthFixture(t *testing.T, captchaOK bool) *authFixture {
	t.Helper()
	users := NewUserService(newTestDB(t))
	tracker := auth.NewTracker(5, 15*time.Minute)
	manager := database.NewManager(t.TempDir())
	t.Cleanup(func() { manager.Close() })
	activity := &recordingActivity{}
	svc := NewAuthService(users, tracker, stubVerifier{ok: captchaOK}, manager, activity)
	return &authFixture{svc: svc, tracker: tracker, manager: manager, activity: activity}
}

func TestLoginSuccess(t *testing.T) {
	f := newAuthFixture(t, true)
	require.NoError(t, f.svc.Register(context.Background(), "alice", "secret1"))

	res := f.svc.Login(context.Background(), LoginInput{Username: "alice", Password: "secret1"})
	assert.Equal(t, LoginOK, res.Kind)
	assert.Equal(t, "alice", res.Username)
	assert.Contains(t, f.activity.types, "auth.login")

	// The store exists on disk after login.
	_, err := os.Stat(f.manager.Path("alice"))
	assert.NoError(t, err)
}

func TestLoginOutcomes(t *testing.T) {
	f := newAuthFixture(t, true)
	require.NoError(t, f.svc.Register(context.Background(), "alice", "secret1"))

	tests := []struct {
		name string
		in   LoginInput
		want LoginKind
	}{
		{"empty username", LoginInput{Password: "secret1"}, LoginBadInput},
		{"empty password", LoginInput{Username: "alice"}, LoginBadInput},
		{"unknown user", LoginInput{Username: "ghost", Password: "secret1"}, LoginUserNotFound},
		{"wrong password", LoginInput{Username: "alice", Password: "nope"}, LoginBadPassword},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := f.svc.Login(context.Background(), tt.in)
			assert.Equal(t, tt.want, res.Kind)
		})
	}
}

func TestLoginChallengeRequired(t *testing.T) {
	f := newAuthFixture(t, false)
	require.NoError(t, f.svc.Register(context.Background(), "alice", "secret1"))

	// Correct credentials still fail when the challenge is required and
	// the verifier rejects it.
	res := f.svc.Login(context.Background(), LoginInput{
		Username: "alice", Password: "secret1", RequireCaptcha: true,
	})
	assert.Equal(t, LoginChallengeFailed, res.Kind)

	// A failed challenge does not count toward lockout.
	assert.Zero(t, f.tracker.Failures("alice"))

	// The mobile path skips the challenge entirely.
	res = f.svc.Login(context.Background(), LoginInput{Username: "alice", Password: "secret1"})
	assert.Equal(t, LoginOK, res.Kind)
}

func TestLockoutAfterRepeatedFailures(t *testing.T) {
	f := newAuthFixture(t, true)
	require.NoError(t, f.svc.Register(context.Background(), "alice", "secret1"))

	for i := 0; i < 4; i++ {
		res := f.svc.Login(context.Background(), LoginInput{Username: "alice", Password: "wrong"})
		require.Equal(t, LoginBadPassword, res.Kind, "attempt %d", i+1)
	}

	// The fifth failure trips the lockout.
	res := f.svc.Login(context.Background(), LoginInput{Username: "alice", Password: "wrong"})
	assert.Equal(t, LoginLocked, res.Kind)
	assert.Greater(t, res.Retry, time.Duration(0))

	// Even the correct password is rejected while locked.
	res = f.svc.Login(context.Background(), LoginInput{Username: "alice", Password: "secret1"})
	assert.Equal(t, LoginLocked, res.Kind)

	// After the lockout window passes the correct password works again.
	f.tracker.SetClock(func() time.Time { return time.Now().Add(16 * time.Minute) })
	res = f.svc.Login(context.Background(), LoginInput{Username: "alice", Password: "secret1"})
	assert.Equal(t, LoginOK, res.Kind)
}

func TestLockoutCountsUnknownUsernames(t *testing.T) {
	f := newAuthFixture(t, true)

	for i := 0; i < 5; i++ {
		f.svc.Login(context.Background(), LoginInput{Username: "ghost", Password: "wrong"})
	}
	locked, _ := f.tracker.Locked("ghost")
	assert.True(t, locked)
}

func TestSuccessfulLoginResetsTracker(t *testing.T) {
	f := newAuthFixture(t, true)
	require.NoError(t, f.svc.Register(context.Background(), "alice", "secret1"))

	for i := 0; i < 3; i++ {
		f.svc.Login(context.Background(), LoginInput{Username: "alice", Password: "wrong"})
	}
	require.Equal(t, 3, f.tracker.Failures("alice"))

	res := f.svc.Login(context.Background(), LoginInput{Username: "alice", Password: "secret1"})
	require.Equal(t, LoginOK, res.Kind)
	assert.Zero(t, f.tracker.Failures("alice"))
}

func TestRegisterValidation(t *testing.T) {
	f := newAuthFixture(t, true)

	tests := []struct {
		name     string
		username string
		password string
		want     error
	}{
		{"missing username", "", "secret1", ErrMissingFields},
		{"missing password", "alice", "", ErrMissingFields},
		{"username too short", "ab", "secret1", ErrBadUsername},
		{"username with slash", "a/b/c", "secret1", ErrBadUsername},
		{"username with traversal", "../etc", "secret1", ErrBadUsername},
		{"password too short", "alice", "12345", ErrPasswordTooShort},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := f.svc.Register(context.Background(), tt.username, tt.password)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestRegisterDuplicate(t *testing.T) {
	f := newAuthFixture(t, true)
	require.NoError(t, f.svc.Register(context.Background(), "alice", "secret1"))
	assert.ErrorIs(t, f.svc.Register(context.Background(), "alice", "other66"), ErrDuplicateUsername)
}

func TestDeleteAccount(t *testing.T) {
	f := newAuthFixture(t, true)
	require.NoError(t, f.svc.Register(context.Background(), "alice", "secret1"))

	// Wrong password leaves everything in place and records nothing.
	err := f.svc.DeleteAccount(context.Background(), "alice", "wrong")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	_, statErr := os.Stat(f.manager.Path("alice"))
	assert.NoError(t, statErr)
	assert.NotContains(t, f.activity.types, "account.delete")

	require.NoError(t, f.svc.DeleteAccount(context.Background(), "alice", "secret1"))
	assert.Contains(t, f.activity.types, "account.delete")

	// Credential, store file and any later login are all gone.
	_, statErr = os.Stat(f.manager.Path("alice"))
	assert.True(t, os.IsNotExist(statErr))
	res := f.svc.Login(context.Background(), LoginInput{Username: "alice", Password: "secret1"})
	assert.Equal(t, LoginUserNotFound, res.Kind)
}
