package models

import "time"

// Subscription is a recurring payment tracked by the user.
type Subscription struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Amount    float64   `json:"amount"`
	Frequency string    `json:"frequency"` // daily, weekly, monthly, yearly
	CreatedAt time.Time `json:"createdAt"`
}

// Account is a bank or cash account with a current balance.
// Account names are unique within one user's store.
type Account struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Balance   float64   `json:"balance"`
	CreatedAt time.Time `json:"createdAt"`
}

// Income is a recurring income source.
type Income struct {
	ID        string    `json:"id"`
	Amount    float64   `json:"amount"`
	Frequency string    `json:"frequency"` // weekly, biweekly, monthly
	CreatedAt time.Time `json:"createdAt"`
}

// Debt is an outstanding balance owed by the user.
// Debt names are unique within one user's store.
type Debt struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Balance   float64   `json:"balance"`
	CreatedAt time.Time `json:"createdAt"`
}

// BudgetSummary bundles all of a user's collections for the dashboard
// and the mobile summary endpoint.
type BudgetSummary struct {
	Subscriptions []Subscription `json:"subscriptions"`
	Accounts      []Account      `json:"accounts"`
	Income        []Income       `json:"income"`
	Debts         []Debt         `json:"debts"`
}

// SubscriptionFrequencies lists the accepted subscription billing intervals.
var SubscriptionFrequencies = []string{"daily", "weekly", "monthly", "yearly"}

// IncomeFrequencies lists the accepted income intervals.
var IncomeFrequencies = []string{"weekly", "biweekly", "monthly"}

// ValidFrequency reports whether value is one of the allowed frequencies.
func ValidFrequency(value string, allowed []string) bool {
	for _, f := range allowed {
		if value == f {
			return true
		}
	}
	return false
}
