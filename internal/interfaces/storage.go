// Package interfaces defines service contracts for finsight
package interfaces

import (
	"context"
	"time"

	"github.com/budgetme/finsight/internal/models"
)

// StorageManager coordinates all storage backends
type StorageManager interface {
	// Storage accessors
	InternalStore() InternalStore
	LedgerStore() LedgerStore
	InsightStore() InsightStore

	// DataPath returns the base data directory path (e.g. /app/data).
	DataPath() string

	// Lifecycle
	Close() error
}

// InternalStore manages system-level KV (API keys, operational flags).
type InternalStore interface {
	GetSystemKV(ctx context.Context, key string) (string, error)
	SetSystemKV(ctx context.Context, key, value string) error
	DeleteSystemKV(ctx context.Context, key string) error

	Close() error
}

// LedgerStore persists transactions and categories, and notifies
// subscribers when a user's ledger changes.
type LedgerStore interface {
	// Transactions
	GetTransaction(ctx context.Context, userID, txID string) (*models.Transaction, error)
	SaveTransaction(ctx context.Context, tx *models.Transaction) error
	DeleteTransaction(ctx context.Context, userID, txID string) error
	ListTransactions(ctx context.Context, userID string, r models.DateRange) ([]*models.Transaction, error)

	// Categories
	GetCategory(ctx context.Context, userID, categoryID string) (*models.Category, error)
	SaveCategory(ctx context.Context, userID string, cat *models.Category) error
	DeleteCategory(ctx context.Context, userID, categoryID string) error
	ListCategories(ctx context.Context, userID string) ([]*models.Category, error)

	// Subscribe registers fn to run after every mutation of the user's
	// ledger. The returned func removes the subscription.
	Subscribe(userID string, fn func()) (unsubscribe func())

	Close() error
}

// InsightStore is the TTL cache for generated insight batches.
type InsightStore interface {
	// Insert stores a new entry. Entries are immutable once written.
	Insert(ctx context.Context, entry *models.InsightCacheEntry) error

	// QueryLatestUnexpired returns the newest entry for the key that has not
	// passed its expiry, or nil when none exists.
	QueryLatestUnexpired(ctx context.Context, userID string, kind models.ReportKind, g models.Granularity, now time.Time) (*models.InsightCacheEntry, error)

	// IncrementAccess bumps the access counter and last-accessed time.
	IncrementAccess(ctx context.Context, entryID string, now time.Time) error

	// PurgeExpired deletes entries past their expiry, returning the count.
	PurgeExpired(ctx context.Context, now time.Time) (int, error)

	Close() error
}
