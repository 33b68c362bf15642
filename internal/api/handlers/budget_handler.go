package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/isdelr/octopus-budget-be/internal/auth"
	"github.com/isdelr/octopus-budget-be/internal/database"
	"github.com/isdelr/octopus-budget-be/internal/services"
	"github.com/rs/zerolog/log"
)

// BudgetHandler handles the JSON record endpoints. Every method scopes
// its work to the username resolved by the bearer gate.
type BudgetHandler struct {
	service services.BudgetServiceProvider
}

// NewBudgetHandler creates a new BudgetHandler.
func NewBudgetHandler(service services.BudgetServiceProvider) *BudgetHandler {
	return &BudgetHandler{service: service}
}

// caller extracts the authenticated username or fails the request.
func caller(w http.ResponseWriter, r *http.Request) (string, bool) {
	username, ok := auth.UsernameFromContext(r.Context())
	if !ok {
		log.Error().Msg("Budget handler reached without an authenticated identity")
		respondError(w, http.StatusUnauthorized, "Authentication required")
		return "", false
	}
	return username, true
}

// writeServiceError maps service errors to API status codes.
func writeServiceError(w http.ResponseWriter, err error, resource string) {
	switch {
	case errors.Is(err, services.ErrValidation):
		respondError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, database.ErrNotFound):
		respondError(w, http.StatusNotFound, resource+" not found")
	case errors.Is(err, database.ErrDuplicateName):
		respondError(w, http.StatusBadRequest, resource+" with this name already exists")
	default:
		log.Error().Err(err).Str("resource", resource).Msg("Budget operation failed")
		respondError(w, http.StatusInternalServerError, "Failed to process "+resource)
	}
}

// Summary returns all budget collections in one call.
func (h *BudgetHandler) Summary(w http.ResponseWriter, r *http.Request) {
	username, ok := caller(w, r)
	if !ok {
		return
	}

	summary, err := h.service.Summary(username)
	if err != nil {
		writeServiceError(w, err, "summary")
		return
	}
	respondData(w, http.StatusOK, summary)
}

// Subscriptions

type subscriptionPayload struct {
	Name      *string  `json:"name"`
	Amount    *float64 `json:"amount"`
	Frequency *string  `json:"frequency"`
}

func (h *BudgetHandler) ListSubscriptions(w http.ResponseWriter, r *http.Request) {
	username, ok := caller(w, r)
	if !ok {
		return
	}

	subs, err := h.service.ListSubscriptions(username)
	if err != nil {
		writeServiceError(w, err, "subscriptions")
		return
	}
	respondData(w, http.StatusOK, subs)
}

func (h *BudgetHandler) CreateSubscription(w http.ResponseWriter, r *http.Request) {
	username, ok := caller(w, r)
	if !ok {
		return
	}

	var payload subscriptionPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if payload.Name == nil || payload.Amount == nil || payload.Frequency == nil {
		respondError(w, http.StatusBadRequest, "Name, amount, and frequency are required")
		return
	}

	sub, err := h.service.CreateSubscription(username, *payload.Name, *payload.Amount, *payload.Frequency)
	if err != nil {
		writeServiceError(w, err, "subscription")
		return
	}
	respondData(w, http.StatusCreated, sub)
}

func (h *BudgetHandler) UpdateSubscription(w http.ResponseWriter, r *http.Request) {
	username, ok := caller(w, r)
	if !ok {
		return
	}

	var payload subscriptionPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	sub, err := h.service.UpdateSubscription(username, chi.URLParam(r, "id"), payload.Name, payload.Amount, payload.Frequency)
	if err != nil {
		writeServiceError(w, err, "subscription")
		return
	}
	respondData(w, http.StatusOK, sub)
}

func (h *BudgetHandler) DeleteSubscription(w http.ResponseWriter, r *http.Request) {
	username, ok := caller(w, r)
	if !ok {
		return
	}

	if err := h.service.DeleteSubscription(username, chi.URLParam(r, "id")); err != nil {
		writeServiceError(w, err, "subscription")
		return
	}
	respondData(w, http.StatusOK, map[string]string{"message": "Subscription deleted"})
}

// Accounts

type accountPayload struct {
	Name    *string  `json:"name"`
	Balance *float64 `json:"balance"`
}

func (h *BudgetHandler) ListAccounts(w http.ResponseWriter, r *http.Request) {
	username, ok := caller(w, r)
	if !ok {
		return
	}

	accounts, err := h.service.ListAccounts(username)
	if err != nil {
		writeServiceError(w, err, "accounts")
		return
	}
	respondData(w, http.StatusOK, accounts)
}

func (h *BudgetHandler) CreateAccount(w http.ResponseWriter, r *http.Request) {
	username, ok := caller(w, r)
	if !ok {
		return
	}

	var payload accountPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if payload.Name == nil || payload.Balance == nil {
		respondError(w, http.StatusBadRequest, "Name and balance are required")
		return
	}

	account, err := h.service.CreateAccount(username, *payload.Name, *payload.Balance)
	if err != nil {
		writeServiceError(w, err, "account")
		return
	}
	respondData(w, http.StatusCreated, account)
}

func (h *BudgetHandler) UpdateAccount(w http.ResponseWriter, r *http.Request) {
	username, ok := caller(w, r)
	if !ok {
		return
	}

	var payload accountPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	account, err := h.service.UpdateAccount(username, chi.URLParam(r, "id"), payload.Name, payload.Balance)
	if err != nil {
		writeServiceError(w, err, "account")
		return
	}
	respondData(w, http.StatusOK, account)
}

func (h *BudgetHandler) DeleteAccount(w http.ResponseWriter, r *http.Request) {
	username, ok := caller(w, r)
	if !ok {
		return
	}

	if err := h.service.DeleteAccount(username, chi.URLParam(r, "id")); err != nil {
		writeServiceError(w, err, "account")
		return
	}
	respondData(w, http.StatusOK, map[string]string{"message": "Account deleted"})
}

// Income

type incomePayload struct {
	Amount    *float64 `json:"amount"`
	Frequency *string  `json:"frequency"`
}

func (h *BudgetHandler) ListIncome(w http.ResponseWriter, r *http.Request) {
	username, ok := caller(w, r)
	if !ok {
		return
	}

	income, err := h.service.ListIncome(username)
	if err != nil {
		writeServiceError(w, err, "income")
		return
	}
	respondData(w, http.StatusOK, income)
}

func (h *BudgetHandler) CreateIncome(w http.ResponseWriter, r *http.Request) {
	username, ok := caller(w, r)
	if !ok {
		return
	}

	var payload incomePayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if payload.Amount == nil || payload.Frequency == nil {
		respondError(w, http.StatusBadRequest, "Amount and frequency are required")
		return
	}

	income, err := h.service.CreateIncome(username, *payload.Amount, *payload.Frequency)
	if err != nil {
		writeServiceError(w, err, "income")
		return
	}
	respondData(w, http.StatusCreated, income)
}

func (h *BudgetHandler) UpdateIncome(w http.ResponseWriter, r *http.Request) {
	username, ok := caller(w, r)
	if !ok {
		return
	}

	var payload incomePayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	income, err := h.service.UpdateIncome(username, chi.URLParam(r, "id"), payload.Amount, payload.Frequency)
	if err != nil {
		writeServiceError(w, err, "income")
		return
	}
	respondData(w, http.StatusOK, income)
}

func (h *BudgetHandler) DeleteIncome(w http.ResponseWriter, r *http.Request) {
	username, ok := caller(w, r)
	if !ok {
		return
	}

	if err := h.service.DeleteIncome(username, chi.URLParam(r, "id")); err != nil {
		writeServiceError(w, err, "income")
		return
	}
	respondData(w, http.StatusOK, map[string]string{"message": "Income deleted"})
}

// Debts

type debtPayload struct {
	Name    *string  `json:"name"`
	Balance *float64 `json:"balance"`
}

func (h *BudgetHandler) ListDebts(w http.ResponseWriter, r *http.Request) {
	username, ok := caller(w, r)
	if !ok {
		return
	}

	debts, err := h.service.ListDebts(username)
	if err != nil {
		writeServiceError(w, err, "debts")
		return
	}
	respondData(w, http.StatusOK, debts)
}

func (h *BudgetHandler) CreateDebt(w http.ResponseWriter, r *http.Request) {
	username, ok := caller(w, r)
	if !ok {
		return
	}

	var payload debtPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if payload.Name == nil || payload.Balance == nil {
		respondError(w, http.StatusBadRequest, "Name and balance are required")
		return
	}

	debt, err := h.service.CreateDebt(username, *payload.Name, *payload.Balance)
	if err != nil {
		writeServiceError(w, err, "debt")
		return
	}
	respondData(w, http.StatusCreated, debt)
}

func (h *BudgetHandler) UpdateDebt(w http.ResponseWriter, r *http.Request) {
	username, ok := caller(w, r)
	if !ok {
		return
	}

	var payload debtPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	debt, err := h.service.UpdateDebt(username, chi.URLParam(r, "id"), payload.Name, payload.Balance)
	if err != nil {
		writeServiceError(w, err, "debt")
		return
	}
	respondData(w, http.StatusOK, debt)
}

func (h *BudgetHandler) DeleteDebt(w http.ResponseWriter, r *http.Request) {
	username, ok := caller(w, r)
	if !ok {
		return
	}

	if err := h.service.DeleteDebt(username, chi.URLParam(r, "id")); err != nil {
		writeServiceError(w, err, "debt")
		return
	}
	respondData(w, http.StatusOK, map[string]string{"message": "Debt deleted"})
}
