// Package models defines data structures for finsight
package models

import "time"

// TransactionKind categorizes a ledger transaction.
type TransactionKind string

const (
	TxIncome       TransactionKind = "income"
	TxExpense      TransactionKind = "expense"
	TxContribution TransactionKind = "contribution"
	TxTransfer     TransactionKind = "transfer"
)

// validTransactionKinds lists all accepted transaction kinds.
var validTransactionKinds = map[TransactionKind]bool{
	TxIncome:       true,
	TxExpense:      true,
	TxContribution: true,
	TxTransfer:     true,
}

// ValidTransactionKind returns true if k is a valid transaction kind.
func ValidTransactionKind(k TransactionKind) bool {
	return validTransactionKinds[k]
}

// IsCategorizable returns true for kinds that carry a spending/income category.
// Contributions and transfers are exempt from categorization.
func IsCategorizable(k TransactionKind) bool {
	return k == TxIncome || k == TxExpense
}

// Transaction is a single ledger entry. Amounts are non-negative; the kind
// determines direction. Analysis code only reads snapshots; creation and
// updates happen through the ledger service.
type Transaction struct {
	ID          string          `json:"id"`
	UserID      string          `json:"user_id" badgerhold:"index"`
	Amount      float64         `json:"amount"`
	Date        time.Time       `json:"date"`
	Kind        TransactionKind `json:"kind"`
	CategoryID  string          `json:"category_id,omitempty"`
	Account     string          `json:"account"`
	Description string          `json:"description,omitempty"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

// DayKey returns the calendar-day key ("2006-01-02") of the transaction date.
func (t *Transaction) DayKey() string {
	return t.Date.Format("2006-01-02")
}

// MonthKey returns the calendar-month key ("2006-01") of the transaction date.
func (t *Transaction) MonthKey() string {
	return t.Date.Format("2006-01")
}

// Category is a user-visible spending/income category.
type Category struct {
	ID     string `json:"id"`
	UserID string `json:"user_id" badgerhold:"index"`
	Name   string `json:"name"`
	Color  string `json:"color,omitempty"`
}

// UncategorizedName is the synthetic bucket name for transactions whose
// category reference is absent or unresolvable.
const UncategorizedName = "Uncategorized"

// DateRange bounds a transaction query. Zero values mean unbounded.
type DateRange struct {
	From time.Time `json:"from,omitempty"`
	To   time.Time `json:"to,omitempty"`
}

// Contains reports whether t falls within the range (inclusive bounds).
func (r DateRange) Contains(t time.Time) bool {
	if !r.From.IsZero() && t.Before(r.From) {
		return false
	}
	if !r.To.IsZero() && t.After(r.To) {
		return false
	}
	return true
}
