package services

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/isdelr/octopus-budget-be/internal/database"
	"github.com/isdelr/octopus-budget-be/internal/models"
)

// ErrValidation wraps input validation failures so handlers can map
// them to 400 responses.
var ErrValidation = errors.New("validation error")

func validationErr(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}

// BudgetServiceProvider defines the interface for budget record CRUD.
// Every method takes the authenticated username and operates strictly
// inside that user's store.
type BudgetServiceProvider interface {
	Summary(username string) (models.BudgetSummary, error)

	ListSubscriptions(username string) ([]models.Subscription, error)
	CreateSubscription(username, name string, amount float64, frequency string) (models.Subscription, error)
	UpdateSubscription(username, id string, name *string, amount *float64, frequency *string) (models.Subscription, error)
	DeleteSubscription(username, id string) error

	ListAccounts(username string) ([]models.Account, error)
	CreateAccount(username, name string, balance float64) (models.Account, error)
	UpsertAccount(username, name string, balance float64) (models.Account, error)
	UpdateAccount(username, id string, name *string, balance *float64) (models.Account, error)
	DeleteAccount(username, id string) error

	ListIncome(username string) ([]models.Income, error)
	CreateIncome(username string, amount float64, frequency string) (models.Income, error)
	SetIncome(username string, amount float64, frequency string) (models.Income, error)
	UpdateIncome(username, id string, amount *float64, frequency *string) (models.Income, error)
	DeleteIncome(username, id string) error

	ListDebts(username string) ([]models.Debt, error)
	CreateDebt(username, name string, balance float64) (models.Debt, error)
	UpsertDebt(username, name string, balance float64) (models.Debt, error)
	UpdateDebt(username, id string, name *string, balance *float64) (models.Debt, error)
	DeleteDebt(username, id string) error
}

// BudgetService provides business logic for budget records. It resolves
// the caller's store on every call; the resolver caches handles so this
// is cheap after first use.
type BudgetService struct {
	resolver StoreResolver
	activity ActivityServiceProvider
}

// NewBudgetService creates a new BudgetService.
func NewBudgetService(resolver StoreResolver, activity ActivityServiceProvider) *BudgetService {
	return &BudgetService{resolver: resolver, activity: activity}
}

func (s *BudgetService) store(username string) (*database.UserStore, error) {
	return s.resolver.Resolve(username)
}

// Summary collects all four record collections in one call.
func (s *BudgetService) Summary(username string) (models.BudgetSummary, error) {
	store, err := s.store(username)
	if err != nil {
		return models.BudgetSummary{}, err
	}

	var summary models.BudgetSummary
	if summary.Subscriptions, err = store.ListSubscriptions(); err != nil {
		return models.BudgetSummary{}, err
	}
	if summary.Accounts, err = store.ListAccounts(); err != nil {
		return models.BudgetSummary{}, err
	}
	if summary.Income, err = store.ListIncome(); err != nil {
		return models.BudgetSummary{}, err
	}
	if summary.Debts, err = store.ListDebts(); err != nil {
		return models.BudgetSummary{}, err
	}
	return summary, nil
}

// Subscriptions

func (s *BudgetService) ListSubscriptions(username string) ([]models.Subscription, error) {
	store, err := s.store(username)
	if err != nil {
		return nil, err
	}
	return store.ListSubscriptions()
}

func (s *BudgetService) CreateSubscription(username, name string, amount float64, frequency string) (models.Subscription, error) {
	if name == "" {
		return models.Subscription{}, validationErr("name is required")
	}
	if !models.ValidFrequency(frequency, models.SubscriptionFrequencies) {
		return models.Subscription{}, validationErr("invalid frequency, must be daily, weekly, monthly, or yearly")
	}

	store, err := s.store(username)
	if err != nil {
		return models.Subscription{}, err
	}

	sub := models.Subscription{
		ID:        uuid.New().String(),
		Name:      name,
		Amount:    amount,
		Frequency: frequency,
	}
	if err := store.CreateSubscription(sub); err != nil {
		return models.Subscription{}, err
	}

	s.activity.Record(username, "record.create", "info", fmt.Sprintf("Subscription '%s' added", name))
	return store.GetSubscription(sub.ID)
}

func (s *BudgetService) UpdateSubscription(username, id string, name *string, amount *float64, frequency *string) (models.Subscription, error) {
	store, err := s.store(username)
	if err != nil {
		return models.Subscription{}, err
	}

	sub, err := store.GetSubscription(id)
	if err != nil {
		return models.Subscription{}, err
	}

	if name != nil {
		sub.Name = *name
	}
	if amount != nil {
		sub.Amount = *amount
	}
	if frequency != nil {
		if !models.ValidFrequency(*frequency, models.SubscriptionFrequencies) {
			return models.Subscription{}, validationErr("invalid frequency, must be daily, weekly, monthly, or yearly")
		}
		sub.Frequency = *frequency
	}

	if err := store.UpdateSubscription(sub); err != nil {
		return models.Subscription{}, err
	}
	s.activity.Record(username, "record.update", "info", fmt.Sprintf("Subscription '%s' updated", sub.Name))
	return store.GetSubscription(id)
}

func (s *BudgetService) DeleteSubscription(username, id string) error {
	store, err := s.store(username)
	if err != nil {
		return err
	}
	if err := store.DeleteSubscription(id); err != nil {
		return err
	}
	s.activity.Record(username, "record.delete", "info", "Subscription removed")
	return nil
}

// Accounts

func (s *BudgetService) ListAccounts(username string) ([]models.Account, error) {
	store, err := s.store(username)
	if err != nil {
		return nil, err
	}
	return store.ListAccounts()
}

func (s *BudgetService) CreateAccount(username, name string, balance float64) (models.Account, error) {
	if name == "" {
		return models.Account{}, validationErr("name is required")
	}

	store, err := s.store(username)
	if err != nil {
		return models.Account{}, err
	}

	acc := models.Account{ID: uuid.New().String(), Name: name, Balance: balance}
	if err := store.CreateAccount(acc); err != nil {
		return models.Account{}, err
	}
	s.activity.Record(username, "record.create", "info", fmt.Sprintf("Account '%s' added", name))
	return store.GetAccount(acc.ID)
}

// UpsertAccount updates the balance of an existing account with the
// same name, or creates a new one. Lookup and write are two separate
// statements, not a transaction; an interleaved request can lose one of
// the updates.
func (s *BudgetService) UpsertAccount(username, name string, balance float64) (models.Account, error) {
	if name == "" {
		return models.Account{}, validationErr("name is required")
	}

	store, err := s.store(username)
	if err != nil {
		return models.Account{}, err
	}

	existing, err := store.GetAccountByName(name)
	if err == nil {
		existing.Balance = balance
		if err := store.UpdateAccount(existing); err != nil {
			return models.Account{}, err
		}
		s.activity.Record(username, "record.update", "info", fmt.Sprintf("Account '%s' balance updated", name))
		return store.GetAccount(existing.ID)
	}
	if !errors.Is(err, database.ErrNotFound) {
		return models.Account{}, err
	}
	return s.CreateAccount(username, name, balance)
}

func (s *BudgetService) UpdateAccount(username, id string, name *string, balance *float64) (models.Account, error) {
	store, err := s.store(username)
	if err != nil {
		return models.Account{}, err
	}

	acc, err := store.GetAccount(id)
	if err != nil {
		return models.Account{}, err
	}
	if name != nil {
		acc.Name = *name
	}
	if balance != nil {
		acc.Balance = *balance
	}

	if err := store.UpdateAccount(acc); err != nil {
		return models.Account{}, err
	}
	s.activity.Record(username, "record.update", "info", fmt.Sprintf("Account '%s' updated", acc.Name))
	return store.GetAccount(id)
}

func (s *BudgetService) DeleteAccount(username, id string) error {
	store, err := s.store(username)
	if err != nil {
		return err
	}
	if err := store.DeleteAccount(id); err != nil {
		return err
	}
	s.activity.Record(username, "record.delete", "info", "Account removed")
	return nil
}

// Income

func (s *BudgetService) ListIncome(username string) ([]models.Income, error) {
	store, err := s.store(username)
	if err != nil {
		return nil, err
	}
	return store.ListIncome()
}

func (s *BudgetService) CreateIncome(username string, amount float64, frequency string) (models.Income, error) {
	if !models.ValidFrequency(frequency, models.IncomeFrequencies) {
		return models.Income{}, validationErr("invalid frequency, must be weekly, biweekly, or monthly")
	}

	store, err := s.store(username)
	if err != nil {
		return models.Income{}, err
	}

	inc := models.Income{ID: uuid.New().String(), Amount: amount, Frequency: frequency}
	if err := store.CreateIncome(inc); err != nil {
		return models.Income{}, err
	}
	s.activity.Record(username, "record.create", "info", "Income entry added")
	return store.GetIncome(inc.ID)
}

// SetIncome updates the single income entry the web form maintains, or
// creates it if none exists yet.
func (s *BudgetService) SetIncome(username string, amount float64, frequency string) (models.Income, error) {
	if !models.ValidFrequency(frequency, models.IncomeFrequencies) {
		return models.Income{}, validationErr("invalid frequency, must be weekly, biweekly, or monthly")
	}

	store, err := s.store(username)
	if err != nil {
		return models.Income{}, err
	}

	existing, err := store.FirstIncome()
	if err == nil {
		existing.Amount = amount
		existing.Frequency = frequency
		if err := store.UpdateIncome(existing); err != nil {
			return models.Income{}, err
		}
		s.activity.Record(username, "record.update", "info", "Income updated")
		return store.GetIncome(existing.ID)
	}
	if !errors.Is(err, database.ErrNotFound) {
		return models.Income{}, err
	}
	return s.CreateIncome(username, amount, frequency)
}

func (s *BudgetService) UpdateIncome(username, id string, amount *float64, frequency *string) (models.Income, error) {
	store, err := s.store(username)
	if err != nil {
		return models.Income{}, err
	}

	inc, err := store.GetIncome(id)
	if err != nil {
		return models.Income{}, err
	}
	if amount != nil {
		inc.Amount = *amount
	}
	if frequency != nil {
		if !models.ValidFrequency(*frequency, models.IncomeFrequencies) {
			return models.Income{}, validationErr("invalid frequency, must be weekly, biweekly, or monthly")
		}
		inc.Frequency = *frequency
	}

	if err := store.UpdateIncome(inc); err != nil {
		return models.Income{}, err
	}
	s.activity.Record(username, "record.update", "info", "Income updated")
	return store.GetIncome(id)
}

func (s *BudgetService) DeleteIncome(username, id string) error {
	store, err := s.store(username)
	if err != nil {
		return err
	}
	if err := store.DeleteIncome(id); err != nil {
		return err
	}
	s.activity.Record(username, "record.delete", "info", "Income entry removed")
	return nil
}

// Debts

func (s *BudgetService) ListDebts(username string) ([]models.Debt, error) {
	store, err := s.store(username)
	if err != nil {
		return nil, err
	}
	return store.ListDebts()
}

func (s *BudgetService) CreateDebt(username, name string, balance float64) (models.Debt, error) {
	if name == "" {
		return models.Debt{}, validationErr("name is required")
	}

	store, err := s.store(username)
	if err != nil {
		return models.Debt{}, err
	}

	debt := models.Debt{ID: uuid.New().String(), Name: name, Balance: balance}
	if err := store.CreateDebt(debt); err != nil {
		return models.Debt{}, err
	}
	s.activity.Record(username, "record.create", "info", fmt.Sprintf("Debt '%s' added", name))
	return store.GetDebt(debt.ID)
}

// UpsertDebt updates the balance of an existing debt with the same
// name, or creates a new one. Same two-step caveat as UpsertAccount.
func (s *BudgetService) UpsertDebt(username, name string, balance float64) (models.Debt, error) {
	if name == "" {
		return models.Debt{}, validationErr("name is required")
	}

	store, err := s.store(username)
	if err != nil {
		return models.Debt{}, err
	}

	existing, err := store.GetDebtByName(name)
	if err == nil {
		existing.Balance = balance
		if err := store.UpdateDebt(existing); err != nil {
			return models.Debt{}, err
		}
		s.activity.Record(username, "record.update", "info", fmt.Sprintf("Debt '%s' balance updated", name))
		return store.GetDebt(existing.ID)
	}
	if !errors.Is(err, database.ErrNotFound) {
		return models.Debt{}, err
	}
	return s.CreateDebt(username, name, balance)
}

func (s *BudgetService) UpdateDebt(username, id string, name *string, balance *float64) (models.Debt, error) {
	store, err := s.store(username)
	if err != nil {
		return models.Debt{}, err
	}

	debt, err := store.GetDebt(id)
	if err != nil {
		return models.Debt{}, err
	}
	if name != nil {
		debt.Name = *name
	}
	if balance != nil {
		debt.Balance = *balance
	}

	if err := store.UpdateDebt(debt); err != nil {
		return models.Debt{}, err
	}
	s.activity.Record(username, "record.update", "info", fmt.Sprintf("Debt '%s' updated", debt.Name))
	return store.GetDebt(id)
}

func (s *BudgetService) DeleteDebt(username, id string) error {
	store, err := s.store(username)
	if err != nil {
		return err
	}
	if err := store.DeleteDebt(id); err != nil {
		return err
	}
	s.activity.Record(username, "record.delete", "info", "Debt removed")
	return nil
}
