// Package web serves the server-rendered browser UI. It is a thin
// adapter over the same services the JSON API uses: auth outcomes are
// rendered as form errors and redirects instead of status codes.
package web

import (
	"embed"
	"errors"
	"fmt"
	"html/template"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/isdelr/octopus-budget-be/internal/auth"
	"github.com/isdelr/octopus-budget-be/internal/models"
	"github.com/isdelr/octopus-budget-be/internal/services"
	"github.com/isdelr/octopus-budget-be/internal/session"
	"github.com/rs/zerolog/log"
)

//go:embed templates/*.html
var templatesFS embed.FS

//go:embed static
var staticFS embed.FS

// Handler renders the web UI and manages cookie sessions.
type Handler struct {
	sessions *session.Store
	auth     services.AuthServiceProvider
	users    services.UserServiceProvider
	budget   services.BudgetServiceProvider

	captchaSiteKey string
	secureCookies  bool
	tmpl           *template.Template
}

// NewHandler creates the web Handler, parsing the embedded templates.
func NewHandler(sessions *session.Store, authService services.AuthServiceProvider, users services.UserServiceProvider, budget services.BudgetServiceProvider, captchaSiteKey string, secureCookies bool) (*Handler, error) {
	tmpl, err := template.ParseFS(templatesFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("failed to parse templates: %w", err)
	}

	return &Handler{
		sessions:       sessions,
		auth:           authService,
		users:          users,
		budget:         budget,
		captchaSiteKey: captchaSiteKey,
		secureCookies:  secureCookies,
		tmpl:           tmpl,
	}, nil
}

// Register wires the web routes onto the router.
func (h *Handler) Register(r chi.Router) {
	r.Handle("/static/*", http.FileServer(http.FS(staticFS)))

	r.Get("/login", h.LoginForm)
	r.Post("/login", h.Login)
	r.Get("/register", h.RegisterForm)
	r.Post("/register", h.RegisterUser)
	r.Get("/logout", h.Logout)

	// Everything below requires an active session.
	r.Group(func(r chi.Router) {
		r.Use(auth.SessionMiddleware(h.sessions))

		r.Get("/", h.Dashboard)

		r.Post("/subscriptions", h.CreateSubscription)
		r.Get("/subscriptions/edit/{id}", h.EditSubscriptionForm)
		r.Post("/subscriptions/edit/{id}", h.EditSubscription)
		r.Get("/subscriptions/delete/{id}", h.DeleteSubscription)

		r.Post("/accounts", h.UpsertAccount)
		r.Get("/accounts/delete/{id}", h.DeleteAccount)

		r.Post("/income", h.SetIncome)

		r.Post("/debts", h.UpsertDebt)
		r.Get("/debts/delete/{id}", h.DeleteDebt)

		r.Get("/settings", h.SettingsForm)
		r.Post("/settings/change-password", h.ChangePassword)
		r.Post("/settings/delete-account", h.DeleteAccountSettings)
	})
}

func (h *Handler) render(w http.ResponseWriter, name string, data interface{}) {
	if err := h.tmpl.ExecuteTemplate(w, name, data); err != nil {
		log.Error().Err(err).Str("template", name).Msg("Failed to render template")
		http.Error(w, "Internal server error", http.StatusInternalServerError)
	}
}

type loginPage struct {
	Title          string
	Mode           string
	Error          string
	CaptchaSiteKey string
}

func (h *Handler) renderLogin(w http.ResponseWriter, mode, errMsg string) {
	title := "Login"
	if mode == "register" {
		title = "Register"
	}
	h.render(w, "login.html", loginPage{
		Title:          title,
		Mode:           mode,
		Error:          errMsg,
		CaptchaSiteKey: h.captchaSiteKey,
	})
}

// LoginForm renders the login page.
func (h *Handler) LoginForm(w http.ResponseWriter, r *http.Request) {
	h.renderLogin(w, "login", "")
}

// Login processes a browser login. The form always carries a captcha
// response; its absence is a challenge failure, not a skipped check.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		h.renderLogin(w, "login", "Invalid form submission")
		return
	}

	result := h.auth.Login(r.Context(), services.LoginInput{
		Username:       r.PostFormValue("username"),
		Password:       r.PostFormValue("password"),
		CaptchaToken:   r.PostFormValue("g-recaptcha-response"),
		RequireCaptcha: true,
	})

	switch result.Kind {
	case services.LoginOK:
		h.startSession(w, result.Username)
		http.Redirect(w, r, "/", http.StatusSeeOther)
	case services.LoginBadInput:
		h.renderLogin(w, "login", "Username and password are required")
	case services.LoginChallengeFailed:
		h.renderLogin(w, "login", "CAPTCHA verification failed")
	case services.LoginLocked:
		h.renderLogin(w, "login", "Account locked due to too many failed attempts. Please try again later.")
	case services.LoginUserNotFound:
		// The web form historically names the failing half; the API
		// does not. Kept as-is pending a product decision.
		h.renderLogin(w, "login", "User not found")
	case services.LoginBadPassword:
		h.renderLogin(w, "login", "Invalid password")
	default:
		h.renderLogin(w, "login", "Login failed")
	}
}

// RegisterForm renders the registration page.
func (h *Handler) RegisterForm(w http.ResponseWriter, r *http.Request) {
	h.renderLogin(w, "register", "")
}

// RegisterUser processes a browser registration.
func (h *Handler) RegisterUser(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		h.renderLogin(w, "register", "Invalid form submission")
		return
	}

	username := r.PostFormValue("username")
	password := r.PostFormValue("password")
	confirm := r.PostFormValue("confirmPassword")

	if username == "" || password == "" || confirm == "" {
		h.renderLogin(w, "register", "All fields required")
		return
	}
	if password != confirm {
		h.renderLogin(w, "register", "Passwords do not match")
		return
	}

	if err := h.auth.Register(r.Context(), username, password); err != nil {
		switch {
		case errors.Is(err, services.ErrDuplicateUsername):
			h.renderLogin(w, "register", "Username already exists")
		case errors.Is(err, services.ErrBadUsername),
			errors.Is(err, services.ErrPasswordTooShort),
			errors.Is(err, services.ErrMissingFields):
			h.renderLogin(w, "register", err.Error())
		default:
			log.Error().Err(err).Str("username", username).Msg("Registration failed")
			h.renderLogin(w, "register", "Registration failed")
		}
		return
	}

	h.startSession(w, username)
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// Logout destroys the session and sends the browser back to login.
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	if cookie, err := r.Cookie(session.CookieName); err == nil {
		h.sessions.Destroy(cookie.Value)
	}
	h.clearSessionCookie(w)
	http.Redirect(w, r, "/login", http.StatusSeeOther)
}

func (h *Handler) startSession(w http.ResponseWriter, username string) {
	sess := h.sessions.Create(username)
	http.SetCookie(w, &http.Cookie{
		Name:     session.CookieName,
		Value:    sess.ID,
		Expires:  sess.ExpiresAt,
		HttpOnly: true,
		Secure:   h.secureCookies,
		SameSite: http.SameSiteStrictMode,
		Path:     "/",
	})
}

func (h *Handler) clearSessionCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     session.CookieName,
		Value:    "",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.secureCookies,
		SameSite: http.SameSiteStrictMode,
		Path:     "/",
	})
}

type dashboardPage struct {
	Title   string
	User    string
	Error   string
	Summary models.BudgetSummary
}

// Dashboard renders the authenticated landing page.
func (h *Handler) Dashboard(w http.ResponseWriter, r *http.Request) {
	h.renderDashboard(w, r, "")
}

func (h *Handler) renderDashboard(w http.ResponseWriter, r *http.Request, errMsg string) {
	username, _ := auth.UsernameFromContext(r.Context())

	summary, err := h.budget.Summary(username)
	if err != nil {
		log.Error().Err(err).Str("username", username).Msg("Failed to load budget summary")
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	h.render(w, "index.html", dashboardPage{
		Title:   "Budget Tracker",
		User:    username,
		Error:   errMsg,
		Summary: summary,
	})
}

// CreateSubscription handles the dashboard add-subscription form.
func (h *Handler) CreateSubscription(w http.ResponseWriter, r *http.Request) {
	username, _ := auth.UsernameFromContext(r.Context())

	amount, err := strconv.ParseFloat(r.PostFormValue("amount"), 64)
	if err != nil {
		h.renderDashboard(w, r, "Amount must be a number")
		return
	}

	if _, err := h.budget.CreateSubscription(username, r.PostFormValue("name"), amount, r.PostFormValue("frequency")); err != nil {
		h.renderDashboard(w, r, formError(err, "Failed to add subscription"))
		return
	}
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

type editSubscriptionPage struct {
	Title        string
	Error        string
	Subscription models.Subscription
}

// EditSubscriptionForm renders the edit form for one subscription.
func (h *Handler) EditSubscriptionForm(w http.ResponseWriter, r *http.Request) {
	username, _ := auth.UsernameFromContext(r.Context())
	id := chi.URLParam(r, "id")

	subs, err := h.budget.ListSubscriptions(username)
	if err != nil {
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	for _, sub := range subs {
		if sub.ID == id {
			h.render(w, "edit_subscription.html", editSubscriptionPage{Title: "Edit Subscription", Subscription: sub})
			return
		}
	}
	http.NotFound(w, r)
}

// EditSubscription applies the edit form.
func (h *Handler) EditSubscription(w http.ResponseWriter, r *http.Request) {
	username, _ := auth.UsernameFromContext(r.Context())
	id := chi.URLParam(r, "id")

	amount, err := strconv.ParseFloat(r.PostFormValue("amount"), 64)
	if err != nil {
		h.renderDashboard(w, r, "Amount must be a number")
		return
	}
	name := r.PostFormValue("name")
	frequency := r.PostFormValue("frequency")

	if _, err := h.budget.UpdateSubscription(username, id, &name, &amount, &frequency); err != nil {
		h.renderDashboard(w, r, formError(err, "Failed to update subscription"))
		return
	}
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// DeleteSubscription removes a subscription via dashboard link.
func (h *Handler) DeleteSubscription(w http.ResponseWriter, r *http.Request) {
	username, _ := auth.UsernameFromContext(r.Context())
	if err := h.budget.DeleteSubscription(username, chi.URLParam(r, "id")); err != nil {
		log.Warn().Err(err).Str("username", username).Msg("Failed to delete subscription")
	}
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// UpsertAccount creates an account or updates the balance of the one
// with the same name, matching the original form behavior.
func (h *Handler) UpsertAccount(w http.ResponseWriter, r *http.Request) {
	username, _ := auth.UsernameFromContext(r.Context())

	balance, err := strconv.ParseFloat(r.PostFormValue("balance"), 64)
	if err != nil {
		h.renderDashboard(w, r, "Balance must be a number")
		return
	}

	if _, err := h.budget.UpsertAccount(username, r.PostFormValue("name"), balance); err != nil {
		h.renderDashboard(w, r, formError(err, "Failed to save account"))
		return
	}
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// DeleteAccount removes an account via dashboard link.
func (h *Handler) DeleteAccount(w http.ResponseWriter, r *http.Request) {
	username, _ := auth.UsernameFromContext(r.Context())
	if err := h.budget.DeleteAccount(username, chi.URLParam(r, "id")); err != nil {
		log.Warn().Err(err).Str("username", username).Msg("Failed to delete account")
	}
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// SetIncome updates the single income entry the dashboard form keeps.
func (h *Handler) SetIncome(w http.ResponseWriter, r *http.Request) {
	username, _ := auth.UsernameFromContext(r.Context())

	amount, err := strconv.ParseFloat(r.PostFormValue("amount"), 64)
	if err != nil {
		h.renderDashboard(w, r, "Amount must be a number")
		return
	}

	if _, err := h.budget.SetIncome(username, amount, r.PostFormValue("frequency")); err != nil {
		h.renderDashboard(w, r, formError(err, "Failed to save income"))
		return
	}
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// UpsertDebt creates a debt or updates the balance of the one with the
// same name.
func (h *Handler) UpsertDebt(w http.ResponseWriter, r *http.Request) {
	username, _ := auth.UsernameFromContext(r.Context())

	balance, err := strconv.ParseFloat(r.PostFormValue("balance"), 64)
	if err != nil {
		h.renderDashboard(w, r, "Balance must be a number")
		return
	}

	if _, err := h.budget.UpsertDebt(username, r.PostFormValue("name"), balance); err != nil {
		h.renderDashboard(w, r, formError(err, "Failed to save debt"))
		return
	}
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// DeleteDebt removes a debt via dashboard link.
func (h *Handler) DeleteDebt(w http.ResponseWriter, r *http.Request) {
	username, _ := auth.UsernameFromContext(r.Context())
	if err := h.budget.DeleteDebt(username, chi.URLParam(r, "id")); err != nil {
		log.Warn().Err(err).Str("username", username).Msg("Failed to delete debt")
	}
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// formError picks a user-facing message for a service error.
func formError(err error, fallback string) string {
	if errors.Is(err, services.ErrValidation) {
		return err.Error()
	}
	log.Error().Err(err).Msg(fallback)
	return fallback
}
