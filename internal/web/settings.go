package web

import (
	"errors"
	"net/http"

	"github.com/isdelr/octopus-budget-be/internal/auth"
	"github.com/isdelr/octopus-budget-be/internal/services"
	"github.com/rs/zerolog/log"
)

type settingsPage struct {
	Title   string
	User    string
	Error   string
	Success string
}

func (h *Handler) renderSettings(w http.ResponseWriter, username, errMsg, success string) {
	h.render(w, "settings.html", settingsPage{
		Title:   "Account Settings",
		User:    username,
		Error:   errMsg,
		Success: success,
	})
}

// SettingsForm renders the account settings page.
func (h *Handler) SettingsForm(w http.ResponseWriter, r *http.Request) {
	username, _ := auth.UsernameFromContext(r.Context())
	h.renderSettings(w, username, "", "")
}

// ChangePassword processes the change-password form.
func (h *Handler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	username, _ := auth.UsernameFromContext(r.Context())

	current := r.PostFormValue("currentPassword")
	newPassword := r.PostFormValue("newPassword")
	confirm := r.PostFormValue("confirmPassword")

	if newPassword != confirm {
		h.renderSettings(w, username, "New passwords do not match", "")
		return
	}
	if len(newPassword) < 6 {
		h.renderSettings(w, username, "Password must be at least 6 characters", "")
		return
	}

	if err := h.users.ChangePassword(username, current, newPassword); err != nil {
		switch {
		case errors.Is(err, services.ErrInvalidCredentials), errors.Is(err, services.ErrUserNotFound):
			h.renderSettings(w, username, "Current password is incorrect", "")
		default:
			log.Error().Err(err).Str("username", username).Msg("Password change failed")
			h.renderSettings(w, username, "Failed to change password", "")
		}
		return
	}

	h.renderSettings(w, username, "", "Password changed successfully")
}

// DeleteAccountSettings processes the delete-account form. Requires the
// current password, then removes the credential, the user's budget
// store and all of their sessions.
func (h *Handler) DeleteAccountSettings(w http.ResponseWriter, r *http.Request) {
	username, _ := auth.UsernameFromContext(r.Context())

	if err := h.auth.DeleteAccount(r.Context(), username, r.PostFormValue("password")); err != nil {
		switch {
		case errors.Is(err, services.ErrInvalidCredentials), errors.Is(err, services.ErrUserNotFound):
			h.renderSettings(w, username, "Incorrect password", "")
		default:
			log.Error().Err(err).Str("username", username).Msg("Account deletion failed")
			h.renderSettings(w, username, "Failed to delete account", "")
		}
		return
	}

	h.sessions.DestroyAllFor(username)
	h.clearSessionCookie(w)
	http.Redirect(w, r, "/login", http.StatusSeeOther)
}
