package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	gorilla "github.com/gorilla/websocket"
	"github.com/isdelr/octopus-budget-be/internal/auth"
	"github.com/isdelr/octopus-budget-be/internal/database"
	"github.com/isdelr/octopus-budget-be/internal/services"
	"github.com/isdelr/octopus-budget-be/internal/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type acceptAllVerifier struct{}

func (acceptAllVerifier) Verify(ctx context.Context, response string) bool { return true }

type apiFixture struct {
	srv  *httptest.Server
	auth *services.AuthService
}

// newTestServer stands up the whole API over temp stores. The captcha
// verifier accepts everything so login flows can run offline.
func newTestServer(t *testing.T) *apiFixture {
	t.Helper()

	db, err := database.New(filepath.Join(t.TempDir(), "auth.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, database.Migrate(db))

	manager := database.NewManager(t.TempDir())
	t.Cleanup(func() { manager.Close() })

	hub := websocket.NewHub()
	go hub.Run()

	tokens := auth.NewTokenService("test-secret", time.Hour)
	tracker := auth.NewTracker(5, 15*time.Minute)

	users := services.NewUserService(db)
	activity := services.NewActivityService(db, hub)
	authService := services.NewAuthService(users, tracker, acceptAllVerifier{}, manager, activity)
	budget := services.NewBudgetService(manager, activity)

	srv := httptest.NewServer(NewRouter(hub, tokens, authService, budget, activity))
	t.Cleanup(srv.Close)
	return &apiFixture{srv: srv, auth: authService}
}

func request(t *testing.T, srv *httptest.Server, method, path, token, body string) (int, map[string]json.RawMessage) {
	t.Helper()
	req, err := http.NewRequest(method, srv.URL+path, strings.NewReader(body))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := srv.Client().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	var envelope map[string]json.RawMessage
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&envelope))
	return resp.StatusCode, envelope
}

func registerUser(t *testing.T, srv *httptest.Server, username, password string) string {
	t.Helper()
	status, body := request(t, srv, http.MethodPost, "/api/v1/auth/register", "",
		`{"username":"`+username+`","password":"`+password+`"}`)
	require.Equal(t, http.StatusCreated, status)

	var token string
	require.NoError(t, json.Unmarshal(body["token"], &token))
	require.NotEmpty(t, token)
	return token
}

func TestFullAPIFlow(t *testing.T) {
	f := newTestServer(t)
	token := registerUser(t, f.srv, "alice", "secret1")

	// Protected routes reject requests without a bearer token.
	status, _ := request(t, f.srv, http.MethodGet, "/api/v1/budget/summary", "", "")
	assert.Equal(t, http.StatusUnauthorized, status)

	status, body := request(t, f.srv, http.MethodPost, "/api/v1/budget/subscriptions", token,
		`{"name":"Netflix","amount":15.99,"frequency":"monthly"}`)
	require.Equal(t, http.StatusCreated, status)

	var created struct {
		ID string `json:"id"`
	}
	require.NoError(t, json.Unmarshal(body["data"], &created))
	require.NotEmpty(t, created.ID)

	status, body = request(t, f.srv, http.MethodGet, "/api/v1/budget/summary", token, "")
	require.Equal(t, http.StatusOK, status)
	var summary struct {
		Subscriptions []json.RawMessage `json:"subscriptions"`
	}
	require.NoError(t, json.Unmarshal(body["data"], &summary))
	assert.Len(t, summary.Subscriptions, 1)

	// The mutation shows up in the activity feed alongside the
	// registration event.
	status, body = request(t, f.srv, http.MethodGet, "/api/v1/events", token, "")
	require.Equal(t, http.StatusOK, status)
	var events []struct {
		Type string `json:"type"`
	}
	require.NoError(t, json.Unmarshal(body["data"], &events))
	types := make([]string, 0, len(events))
	for _, ev := range events {
		types = append(types, ev.Type)
	}
	assert.Contains(t, types, "auth.register")
	assert.Contains(t, types, "record.create")
}

func TestAPIUsersAreIsolated(t *testing.T) {
	f := newTestServer(t)
	aliceToken := registerUser(t, f.srv, "alice", "secret1")
	bobToken := registerUser(t, f.srv, "bob", "secret2")

	status, body := request(t, f.srv, http.MethodPost, "/api/v1/budget/accounts", aliceToken,
		`{"name":"Checking","balance":100}`)
	require.Equal(t, http.StatusCreated, status)
	var account struct {
		ID string `json:"id"`
	}
	require.NoError(t, json.Unmarshal(body["data"], &account))

	status, body = request(t, f.srv, http.MethodGet, "/api/v1/budget/accounts/", bobToken, "")
	require.Equal(t, http.StatusOK, status)
	var accounts []json.RawMessage
	require.NoError(t, json.Unmarshal(body["data"], &accounts))
	assert.Empty(t, accounts)

	status, _ = request(t, f.srv, http.MethodDelete, "/api/v1/budget/accounts/"+account.ID, bobToken, "")
	assert.Equal(t, http.StatusNotFound, status)
}

func TestLoginLockoutOverAPI(t *testing.T) {
	f := newTestServer(t)
	registerUser(t, f.srv, "alice", "secret1")

	// Four bad attempts are plain rejections.
	for i := 0; i < 4; i++ {
		status, _ := request(t, f.srv, http.MethodPost, "/api/v1/auth/login", "",
			`{"username":"alice","password":"wrong","captchaToken":"tok"}`)
		require.Equal(t, http.StatusUnauthorized, status, "attempt %d", i+1)
	}

	// The fifth trips the lockout.
	status, _ := request(t, f.srv, http.MethodPost, "/api/v1/auth/login", "",
		`{"username":"alice","password":"wrong","captchaToken":"tok"}`)
	assert.Equal(t, http.StatusTooManyRequests, status)

	// The correct password is refused while the lock holds.
	status, _ = request(t, f.srv, http.MethodPost, "/api/v1/auth/login", "",
		`{"username":"alice","password":"secret1","captchaToken":"tok"}`)
	assert.Equal(t, http.StatusTooManyRequests, status)
}

func TestDeletedAccountCannotAuthenticate(t *testing.T) {
	f := newTestServer(t)
	registerUser(t, f.srv, "alice", "secret1")

	status, _ := request(t, f.srv, http.MethodPost, "/api/v1/auth/mobile-login", "",
		`{"username":"alice","password":"secret1"}`)
	require.Equal(t, http.StatusOK, status)

	// Remove the account through the same service the settings page
	// uses, then confirm the old credential reads as unknown rather
	// than locked out.
	require.NoError(t, f.auth.DeleteAccount(context.Background(), "alice", "secret1"))

	status, _ = request(t, f.srv, http.MethodPost, "/api/v1/auth/login", "",
		`{"username":"alice","password":"secret1","captchaToken":"tok"}`)
	assert.Equal(t, http.StatusUnauthorized, status)
}

func TestWebSocketReceivesActivity(t *testing.T) {
	f := newTestServer(t)
	token := registerUser(t, f.srv, "alice", "secret1")

	wsURL := "ws" + strings.TrimPrefix(f.srv.URL, "http") + "/api/v1/ws"
	header := http.Header{"Authorization": {"Bearer " + token}}
	conn, resp, err := gorilla.DefaultDialer.Dial(wsURL, header)
	require.NoError(t, err)
	defer resp.Body.Close()
	defer conn.Close()

	// Give the hub a moment to register the client before mutating.
	time.Sleep(50 * time.Millisecond)

	status, _ := request(t, f.srv, http.MethodPost, "/api/v1/budget/debts", token,
		`{"name":"Car loan","balance":12000}`)
	require.Equal(t, http.StatusCreated, status)

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, frame, err := conn.ReadMessage()
	require.NoError(t, err)

	var msg struct {
		Action  string `json:"action"`
		Payload struct {
			Type string `json:"type"`
		} `json:"payload"`
	}
	require.NoError(t, json.Unmarshal(frame, &msg))
	assert.Equal(t, "event", msg.Action)
	assert.Equal(t, "record.create", msg.Payload.Type)

	// A connection with a garbage token never upgrades.
	_, resp2, err := gorilla.DefaultDialer.Dial(wsURL, http.Header{"Authorization": {"Bearer junk"}})
	require.Error(t, err)
	if resp2 != nil {
		assert.Equal(t, http.StatusUnauthorized, resp2.StatusCode)
		resp2.Body.Close()
	}
}
