package database

import (
	"database/sql"
	"errors"

	"github.com/isdelr/octopus-budget-be/internal/models"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

// ErrNotFound is returned when a record id does not exist in this store.
var ErrNotFound = errors.New("record not found")

// ErrDuplicateName is returned when a unique record name already exists.
var ErrDuplicateName = errors.New("name already exists")

// UserStore is a handle to one user's isolated budget database.
type UserStore struct {
	db       *sql.DB
	username string
}

// Username returns the owner of this store.
func (s *UserStore) Username() string {
	return s.username
}

// isUniqueViolation reports whether err is a SQLite unique-constraint error.
func isUniqueViolation(err error) bool {
	var serr *sqlite.Error
	if errors.As(err, &serr) {
		code := serr.Code()
		return code == sqlite3.SQLITE_CONSTRAINT_UNIQUE || code == sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY
	}
	return false
}

// Subscriptions

func (s *UserStore) ListSubscriptions() ([]models.Subscription, error) {
	rows, err := s.db.Query("SELECT id, name, amount, frequency, created_at FROM subscriptions ORDER BY created_at")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var subs []models.Subscription
	for rows.Next() {
		var sub models.Subscription
		if err := rows.Scan(&sub.ID, &sub.Name, &sub.Amount, &sub.Frequency, &sub.CreatedAt); err != nil {
			return nil, err
		}
		subs = append(subs, sub)
	}
	return subs, rows.Err()
}

func (s *UserStore) GetSubscription(id string) (models.Subscription, error) {
	var sub models.Subscription
	row := s.db.QueryRow("SELECT id, name, amount, frequency, created_at FROM subscriptions WHERE id = ?", id)
	err := row.Scan(&sub.ID, &sub.Name, &sub.Amount, &sub.Frequency, &sub.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.Subscription{}, ErrNotFound
		}
		return models.Subscription{}, err
	}
	return sub, nil
}

func (s *UserStore) CreateSubscription(sub models.Subscription) error {
	_, err := s.db.Exec("INSERT INTO subscriptions (id, name, amount, frequency) VALUES (?, ?, ?, ?)",
		sub.ID, sub.Name, sub.Amount, sub.Frequency)
	return err
}

func (s *UserStore) UpdateSubscription(sub models.Subscription) error {
	res, err := s.db.Exec("UPDATE subscriptions SET name = ?, amount = ?, frequency = ? WHERE id = ?",
		sub.Name, sub.Amount, sub.Frequency, sub.ID)
	if err != nil {
		return err
	}
	return requireRow(res)
}

func (s *UserStore) DeleteSubscription(id string) error {
	res, err := s.db.Exec("DELETE FROM subscriptions WHERE id = ?", id)
	if err != nil {
		return err
	}
	return requireRow(res)
}

// Accounts

func (s *UserStore) ListAccounts() ([]models.Account, error) {
	rows, err := s.db.Query("SELECT id, name, balance, created_at FROM accounts ORDER BY created_at")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var accounts []models.Account
	for rows.Next() {
		var acc models.Account
		if err := rows.Scan(&acc.ID, &acc.Name, &acc.Balance, &acc.CreatedAt); err != nil {
			return nil, err
		}
		accounts = append(accounts, acc)
	}
	return accounts, rows.Err()
}

func (s *UserStore) GetAccount(id string) (models.Account, error) {
	var acc models.Account
	row := s.db.QueryRow("SELECT id, name, balance, created_at FROM accounts WHERE id = ?", id)
	err := row.Scan(&acc.ID, &acc.Name, &acc.Balance, &acc.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.Account{}, ErrNotFound
		}
		return models.Account{}, err
	}
	return acc, nil
}

// GetAccountByName looks an account up by its unique name.
func (s *UserStore) GetAccountByName(name string) (models.Account, error) {
	var acc models.Account
	row := s.db.QueryRow("SELECT id, name, balance, created_at FROM accounts WHERE name = ?", name)
	err := row.Scan(&acc.ID, &acc.Name, &acc.Balance, &acc.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.Account{}, ErrNotFound
		}
		return models.Account{}, err
	}
	return acc, nil
}

func (s *UserStore) CreateAccount(acc models.Account) error {
	_, err := s.db.Exec("INSERT INTO accounts (id, name, balance) VALUES (?, ?, ?)",
		acc.ID, acc.Name, acc.Balance)
	if err != nil && isUniqueViolation(err) {
		return ErrDuplicateName
	}
	return err
}

func (s *UserStore) UpdateAccount(acc models.Account) error {
	res, err := s.db.Exec("UPDATE accounts SET name = ?, balance = ? WHERE id = ?",
		acc.Name, acc.Balance, acc.ID)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicateName
		}
		return err
	}
	return requireRow(res)
}

func (s *UserStore) DeleteAccount(id string) error {
	res, err := s.db.Exec("DELETE FROM accounts WHERE id = ?", id)
	if err != nil {
		return err
	}
	return requireRow(res)
}

// Income

func (s *UserStore) ListIncome() ([]models.Income, error) {
	rows, err := s.db.Query("SELECT id, amount, frequency, created_at FROM income ORDER BY created_at")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []models.Income
	for rows.Next() {
		var inc models.Income
		if err := rows.Scan(&inc.ID, &inc.Amount, &inc.Frequency, &inc.CreatedAt); err != nil {
			return nil, err
		}
		entries = append(entries, inc)
	}
	return entries, rows.Err()
}

func (s *UserStore) GetIncome(id string) (models.Income, error) {
	var inc models.Income
	row := s.db.QueryRow("SELECT id, amount, frequency, created_at FROM income WHERE id = ?", id)
	err := row.Scan(&inc.ID, &inc.Amount, &inc.Frequency, &inc.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.Income{}, ErrNotFound
		}
		return models.Income{}, err
	}
	return inc, nil
}

// FirstIncome returns the oldest income entry, or ErrNotFound when none
// exists. The web form treats income as a single entry.
func (s *UserStore) FirstIncome() (models.Income, error) {
	var inc models.Income
	row := s.db.QueryRow("SELECT id, amount, frequency, created_at FROM income ORDER BY created_at LIMIT 1")
	err := row.Scan(&inc.ID, &inc.Amount, &inc.Frequency, &inc.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.Income{}, ErrNotFound
		}
		return models.Income{}, err
	}
	return inc, nil
}

func (s *UserStore) CreateIncome(inc models.Income) error {
	_, err := s.db.Exec("INSERT INTO income (id, amount, frequency) VALUES (?, ?, ?)",
		inc.ID, inc.Amount, inc.Frequency)
	return err
}

func (s *UserStore) UpdateIncome(inc models.Income) error {
	res, err := s.db.Exec("UPDATE income SET amount = ?, frequency = ? WHERE id = ?",
		inc.Amount, inc.Frequency, inc.ID)
	if err != nil {
		return err
	}
	return requireRow(res)
}

func (s *UserStore) DeleteIncome(id string) error {
	res, err := s.db.Exec("DELETE FROM income WHERE id = ?", id)
	if err != nil {
		return err
	}
	return requireRow(res)
}

// Debts

func (s *UserStore) ListDebts() ([]models.Debt, error) {
	rows, err := s.db.Query("SELECT id, name, balance, created_at FROM debts ORDER BY created_at")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var debts []models.Debt
	for rows.Next() {
		var debt models.Debt
		if err := rows.Scan(&debt.ID, &debt.Name, &debt.Balance, &debt.CreatedAt); err != nil {
			return nil, err
		}
		debts = append(debts, debt)
	}
	return debts, rows.Err()
}

func (s *UserStore) GetDebt(id string) (models.Debt, error) {
	var debt models.Debt
	row := s.db.QueryRow("SELECT id, name, balance, created_at FROM debts WHERE id = ?", id)
	err := row.Scan(&debt.ID, &debt.Name, &debt.Balance, &debt.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.Debt{}, ErrNotFound
		}
		return models.Debt{}, err
	}
	return debt, nil
}

// GetDebtByName looks a debt up by its unique name.
func (s *UserStore) GetDebtByName(name string) (models.Debt, error) {
	var debt models.Debt
	row := s.db.QueryRow("SELECT id, name, balance, created_at FROM debts WHERE name = ?", name)
	err := row.Scan(&debt.ID, &debt.Name, &debt.Balance, &debt.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.Debt{}, ErrNotFound
		}
		return models.Debt{}, err
	}
	return debt, nil
}

func (s *UserStore) CreateDebt(debt models.Debt) error {
	_, err := s.db.Exec("INSERT INTO debts (id, name, balance) VALUES (?, ?, ?)",
		debt.ID, debt.Name, debt.Balance)
	if err != nil && isUniqueViolation(err) {
		return ErrDuplicateName
	}
	return err
}

func (s *UserStore) UpdateDebt(debt models.Debt) error {
	res, err := s.db.Exec("UPDATE debts SET name = ?, balance = ? WHERE id = ?",
		debt.Name, debt.Balance, debt.ID)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicateName
		}
		return err
	}
	return requireRow(res)
}

func (s *UserStore) DeleteDebt(id string) error {
	res, err := s.db.Exec("DELETE FROM debts WHERE id = ?", id)
	if err != nil {
		return err
	}
	return requireRow(res)
}

// requireRow converts a zero-row write into ErrNotFound.
func requireRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
