package web

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/isdelr/octopus-budget-be/internal/auth"
	"github.com/isdelr/octopus-budget-be/internal/database"
	"github.com/isdelr/octopus-budget-be/internal/models"
	"github.com/isdelr/octopus-budget-be/internal/services"
	"github.com/isdelr/octopus-budget-be/internal/session"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubVerifier struct {
	ok bool
}

func (v stubVerifier) Verify(ctx context.Context, response string) bool { return v.ok }

type noopActivity struct{}

func (noopActivity) Record(username, eventType, level, message string) {}
func (noopActivity) RecentEvents(username string, limit int) ([]models.Event, error) {
	return nil, nil
}

type webFixture struct {
	srv      *httptest.Server
	sessions *session.Store
	auth     *services.AuthService
}

// newWebFixture stands up the full web stack over temp stores with a
// captcha verifier that always accepts.
func newWebFixture(t *testing.T) *webFixture {
	t.Helper()

	db, err := database.New(filepath.Join(t.TempDir(), "auth.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, database.Migrate(db))

	manager := database.NewManager(t.TempDir())
	t.Cleanup(func() { manager.Close() })

	users := services.NewUserService(db)
	tracker := auth.NewTracker(5, 15*time.Minute)
	authService := services.NewAuthService(users, tracker, stubVerifier{ok: true}, manager, noopActivity{})
	budget := services.NewBudgetService(manager, noopActivity{})
	sessions := session.NewStore(time.Hour)

	handler, err := NewHandler(sessions, authService, users, budget, "", false)
	require.NoError(t, err)

	r := chi.NewRouter()
	handler.Register(r)
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)

	return &webFixture{srv: srv, sessions: sessions, auth: authService}
}

func (f *webFixture) register(t *testing.T, username, password string) {
	t.Helper()
	require.NoError(t, f.auth.Register(context.Background(), username, password))
}

// postForm submits a form without following redirects, so tests can
// observe Location headers and Set-Cookie directly.
func postForm(t *testing.T, srv *httptest.Server, path string, form url.Values) *http.Response {
	t.Helper()
	client := &http.Client{
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}
	resp, err := client.Post(srv.URL+path, "application/x-www-form-urlencoded", strings.NewReader(form.Encode()))
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func readBody(t *testing.T, resp *http.Response) string {
	t.Helper()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return string(body)
}

func sessionCookie(resp *http.Response) *http.Cookie {
	for _, c := range resp.Cookies() {
		if c.Name == session.CookieName {
			return c
		}
	}
	return nil
}

func TestWebLoginSuccess(t *testing.T) {
	f := newWebFixture(t)
	f.register(t, "alice", "secret1")

	resp := postForm(t, f.srv, "/login", url.Values{
		"username":             {"alice"},
		"password":             {"secret1"},
		"g-recaptcha-response": {"tok"},
	})

	assert.Equal(t, http.StatusSeeOther, resp.StatusCode)
	assert.Equal(t, "/", resp.Header.Get("Location"))

	cookie := sessionCookie(resp)
	require.NotNil(t, cookie)
	assert.True(t, cookie.HttpOnly)

	sess, ok := f.sessions.Get(cookie.Value)
	require.True(t, ok)
	assert.Equal(t, "alice", sess.Username)
}

func TestWebLoginErrorMessages(t *testing.T) {
	f := newWebFixture(t)
	f.register(t, "alice", "secret1")

	tests := []struct {
		name string
		form url.Values
		want string
	}{
		{
			"unknown user",
			url.Values{"username": {"ghost"}, "password": {"x1"}, "g-recaptcha-response": {"tok"}},
			"User not found",
		},
		{
			"wrong password",
			url.Values{"username": {"alice"}, "password": {"wrong"}, "g-recaptcha-response": {"tok"}},
			"Invalid password",
		},
		{
			"missing fields",
			url.Values{"g-recaptcha-response": {"tok"}},
			"Username and password are required",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := postForm(t, f.srv, "/login", tt.form)
			assert.Equal(t, http.StatusOK, resp.StatusCode)
			assert.Contains(t, readBody(t, resp), tt.want)
			assert.Nil(t, sessionCookie(resp))
		})
	}
}

func TestWebRegisterFlow(t *testing.T) {
	f := newWebFixture(t)

	resp := postForm(t, f.srv, "/register", url.Values{
		"username":        {"alice"},
		"password":        {"secret1"},
		"confirmPassword": {"different"},
	})
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, readBody(t, resp), "Passwords do not match")

	resp = postForm(t, f.srv, "/register", url.Values{
		"username":        {"alice"},
		"password":        {"secret1"},
		"confirmPassword": {"secret1"},
	})
	assert.Equal(t, http.StatusSeeOther, resp.StatusCode)
	assert.Equal(t, "/", resp.Header.Get("Location"))
	require.NotNil(t, sessionCookie(resp))

	// The name is now taken.
	resp = postForm(t, f.srv, "/register", url.Values{
		"username":        {"alice"},
		"password":        {"other66"},
		"confirmPassword": {"other66"},
	})
	assert.Contains(t, readBody(t, resp), "Username already exists")
}

func TestDashboardRequiresSession(t *testing.T) {
	f := newWebFixture(t)

	client := &http.Client{
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}
	resp, err := client.Get(f.srv.URL + "/")
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusSeeOther, resp.StatusCode)
	assert.Equal(t, "/login", resp.Header.Get("Location"))
}

func TestDashboardWithSession(t *testing.T) {
	f := newWebFixture(t)
	f.register(t, "alice", "secret1")
	sess := f.sessions.Create("alice")

	req, err := http.NewRequest(http.MethodGet, f.srv.URL+"/", nil)
	require.NoError(t, err)
	req.AddCookie(&http.Cookie{Name: session.CookieName, Value: sess.ID})

	resp, err := f.srv.Client().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, readBody(t, resp), "alice")
}

func TestLogoutDestroysSession(t *testing.T) {
	f := newWebFixture(t)
	sess := f.sessions.Create("alice")

	client := &http.Client{
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}
	req, err := http.NewRequest(http.MethodGet, f.srv.URL+"/logout", nil)
	require.NoError(t, err)
	req.AddCookie(&http.Cookie{Name: session.CookieName, Value: sess.ID})

	resp, err := client.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusSeeOther, resp.StatusCode)
	assert.Equal(t, "/login", resp.Header.Get("Location"))

	_, ok := f.sessions.Get(sess.ID)
	assert.False(t, ok)
}

func TestSubscriptionFormFlow(t *testing.T) {
	f := newWebFixture(t)
	f.register(t, "alice", "secret1")
	sess := f.sessions.Create("alice")

	client := &http.Client{
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}
	post := func(path string, form url.Values) *http.Response {
		req, err := http.NewRequest(http.MethodPost, f.srv.URL+path, strings.NewReader(form.Encode()))
		require.NoError(t, err)
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		req.AddCookie(&http.Cookie{Name: session.CookieName, Value: sess.ID})
		resp, err := client.Do(req)
		require.NoError(t, err)
		t.Cleanup(func() { resp.Body.Close() })
		return resp
	}

	resp := post("/subscriptions", url.Values{
		"name": {"Netflix"}, "amount": {"15.99"}, "frequency": {"monthly"},
	})
	assert.Equal(t, http.StatusSeeOther, resp.StatusCode)

	// A non-numeric amount re-renders the dashboard with an error.
	resp = post("/subscriptions", url.Values{
		"name": {"Gym"}, "amount": {"abc"}, "frequency": {"monthly"},
	})
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, readBody(t, resp), "Amount must be a number")
}
