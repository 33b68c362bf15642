package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/isdelr/octopus-budget-be/internal/auth"
	"github.com/isdelr/octopus-budget-be/internal/services"
	"github.com/rs/zerolog/log"
)

// AuthHandler handles the JSON authentication endpoints.
type AuthHandler struct {
	service services.AuthServiceProvider
	tokens  *auth.TokenService
}

// NewAuthHandler creates a new AuthHandler.
func NewAuthHandler(service services.AuthServiceProvider, tokens *auth.TokenService) *AuthHandler {
	return &AuthHandler{service: service, tokens: tokens}
}

// LoginPayload defines the structure for login requests.
type LoginPayload struct {
	Username     string `json:"username"`
	Password     string `json:"password"`
	CaptchaToken string `json:"captchaToken"`
}

// RegisterPayload defines the structure for registration requests.
type RegisterPayload struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// Register handles new user registration.
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var payload RegisterPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if err := h.service.Register(r.Context(), payload.Username, payload.Password); err != nil {
		switch {
		case errors.Is(err, services.ErrDuplicateUsername):
			respondError(w, http.StatusBadRequest, "Username already exists")
		case errors.Is(err, services.ErrMissingFields),
			errors.Is(err, services.ErrBadUsername),
			errors.Is(err, services.ErrPasswordTooShort):
			respondError(w, http.StatusBadRequest, err.Error())
		default:
			log.Error().Err(err).Str("username", payload.Username).Msg("Failed to register user")
			respondError(w, http.StatusInternalServerError, "Registration failed")
		}
		return
	}

	token, err := h.tokens.Issue(payload.Username)
	if err != nil {
		log.Error().Err(err).Str("username", payload.Username).Msg("Failed to issue token")
		respondError(w, http.StatusInternalServerError, "Registration failed")
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(map[string]interface{}{
		"success":  true,
		"token":    token,
		"username": payload.Username,
	})
}

// Login handles the browser JSON login path. A captcha is always
// required here; the mobile client uses MobileLogin instead.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	h.login(w, r, true)
}

// MobileLogin handles the programmatic login path, without a captcha.
func (h *AuthHandler) MobileLogin(w http.ResponseWriter, r *http.Request) {
	h.login(w, r, false)
}

func (h *AuthHandler) login(w http.ResponseWriter, r *http.Request, requireCaptcha bool) {
	var payload LoginPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	result := h.service.Login(r.Context(), services.LoginInput{
		Username:       payload.Username,
		Password:       payload.Password,
		CaptchaToken:   payload.CaptchaToken,
		RequireCaptcha: requireCaptcha,
	})

	switch result.Kind {
	case services.LoginOK:
		// fall through to token issuance below
	case services.LoginBadInput:
		respondError(w, http.StatusBadRequest, "Username and password are required")
		return
	case services.LoginChallengeFailed:
		respondError(w, http.StatusForbidden, "CAPTCHA verification failed")
		return
	case services.LoginLocked:
		respondError(w, http.StatusTooManyRequests, "Account locked due to too many failed attempts. Please try again later.")
		return
	case services.LoginUserNotFound, services.LoginBadPassword:
		// The API deliberately does not reveal which of the two it was.
		log.Warn().Str("username", payload.Username).Msg("Failed authentication attempt")
		respondError(w, http.StatusUnauthorized, "Invalid credentials")
		return
	default:
		respondError(w, http.StatusInternalServerError, "Login failed")
		return
	}

	token, err := h.tokens.Issue(result.Username)
	if err != nil {
		log.Error().Err(err).Str("username", result.Username).Msg("Failed to issue token")
		respondError(w, http.StatusInternalServerError, "Login failed")
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"success":  true,
		"token":    token,
		"username": result.Username,
	})
}
