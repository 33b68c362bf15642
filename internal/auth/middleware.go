package auth

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/isdelr/octopus-budget-be/internal/session"
)

type contextKey string

// usernameKey is the context key for the authenticated username.
const usernameKey = contextKey("authUsername")

// UsernameFromContext returns the username resolved by one of the auth
// gates. Downstream handlers must take the caller identity from here,
// never from request input.
func UsernameFromContext(ctx context.Context) (string, bool) {
	username, ok := ctx.Value(usernameKey).(string)
	return username, ok && username != ""
}

// WithUsername returns a context carrying the authenticated username.
// Exported for handler tests.
func WithUsername(ctx context.Context, username string) context.Context {
	return context.WithValue(ctx, usernameKey, username)
}

// JWTMiddleware gates API routes with an Authorization: Bearer header.
// Failures get a structured JSON 401, never a redirect.
func JWTMiddleware(tokens *TokenService) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				unauthorizedJSON(w, "Authentication token required")
				return
			}

			tokenStr, ok := strings.CutPrefix(authHeader, "Bearer ")
			if !ok || tokenStr == "" {
				unauthorizedJSON(w, "Authentication token required")
				return
			}

			username, err := tokens.Verify(tokenStr)
			if err != nil {
				unauthorizedJSON(w, "Invalid or expired token")
				return
			}

			next.ServeHTTP(w, r.WithContext(WithUsername(r.Context(), username)))
		})
	}
}

// SessionMiddleware gates web UI routes with a server-side session
// cookie. Unauthenticated browsers are redirected to the login page.
func SessionMiddleware(sessions *session.Store) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			cookie, err := r.Cookie(session.CookieName)
			if err != nil || cookie.Value == "" {
				http.Redirect(w, r, "/login", http.StatusSeeOther)
				return
			}

			sess, ok := sessions.Get(cookie.Value)
			if !ok {
				http.Redirect(w, r, "/login", http.StatusSeeOther)
				return
			}

			next.ServeHTTP(w, r.WithContext(WithUsername(r.Context(), sess.Username)))
		})
	}
}

func unauthorizedJSON(w http.ResponseWriter, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	json.NewEncoder(w).Encode(map[string]interface{}{"success": false, "error": message})
}
