// Package ledgerdb implements LedgerStore using BadgerHold.
// It persists transactions and categories, and fans out change
// notifications to subscribers after every mutation.
package ledgerdb

import (
	"context"
	"fmt"
	"os"
	"sort"
	"sync"

	"github.com/timshannon/badgerhold/v4"

	"github.com/budgetme/finsight/internal/common"
	"github.com/budgetme/finsight/internal/models"
)

// keySep is the composite key separator. Using a null byte prevents
// collisions when userID or record IDs contain ":" characters.
const keySep = "\x00"

// Store implements interfaces.LedgerStore using BadgerHold.
type Store struct {
	db     *badgerhold.Store
	logger *common.Logger

	mu      sync.Mutex
	nextSub int
	subs    map[string]map[int]func()
}

// NewStore creates a new LedgerStore backed by BadgerHold.
func NewStore(logger *common.Logger, path string) (*Store, error) {
	if err := os.MkdirAll(path, 0755); err != nil {
		return nil, fmt.Errorf("failed to create ledger db path %s: %w", path, err)
	}
	opts := badgerhold.DefaultOptions
	opts.Dir = path
	opts.ValueDir = path
	opts.Logger = nil
	db, err := badgerhold.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open ledger db at %s: %w", path, err)
	}
	logger.Info().Str("path", path).Msg("LedgerDB opened")
	return &Store{
		db:     db,
		logger: logger,
		subs:   make(map[string]map[int]func()),
	}, nil
}

// compositeKey builds the storage key: user_id + \x00 + record_id
func compositeKey(userID, id string) string {
	return userID + keySep + id
}

// --- Transactions ---

func (s *Store) GetTransaction(_ context.Context, userID, txID string) (*models.Transaction, error) {
	var tx models.Transaction
	if err := s.db.Get(compositeKey(userID, txID), &tx); err != nil {
		if err == badgerhold.ErrNotFound {
			return nil, fmt.Errorf("transaction '%s' not found", txID)
		}
		return nil, fmt.Errorf("failed to get transaction '%s': %w", txID, err)
	}
	return &tx, nil
}

func (s *Store) SaveTransaction(_ context.Context, tx *models.Transaction) error {
	if tx.ID == "" || tx.UserID == "" {
		return fmt.Errorf("transaction requires ID and UserID")
	}
	if err := s.db.Upsert(compositeKey(tx.UserID, tx.ID), tx); err != nil {
		return fmt.Errorf("failed to save transaction '%s': %w", tx.ID, err)
	}
	s.logger.Debug().Str("tx_id", tx.ID).Str("user_id", tx.UserID).Msg("Transaction saved")
	s.notify(tx.UserID)
	return nil
}

func (s *Store) DeleteTransaction(_ context.Context, userID, txID string) error {
	err := s.db.Delete(compositeKey(userID, txID), models.Transaction{})
	if err == badgerhold.ErrNotFound {
		return fmt.Errorf("transaction '%s' not found", txID)
	}
	if err != nil {
		return fmt.Errorf("failed to delete transaction '%s': %w", txID, err)
	}
	s.notify(userID)
	return nil
}

// ListTransactions returns the user's transactions within the range,
// sorted by date ascending.
func (s *Store) ListTransactions(_ context.Context, userID string, r models.DateRange) ([]*models.Transaction, error) {
	var all []models.Transaction
	if err := s.db.Find(&all, badgerhold.Where("UserID").Eq(userID).Index("UserID")); err != nil {
		return nil, fmt.Errorf("failed to list transactions for user '%s': %w", userID, err)
	}

	result := make([]*models.Transaction, 0, len(all))
	for i := range all {
		if r.Contains(all[i].Date) {
			tx := all[i]
			result = append(result, &tx)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].Date.Equal(result[j].Date) {
			return result[i].ID < result[j].ID
		}
		return result[i].Date.Before(result[j].Date)
	})
	return result, nil
}

// --- Categories ---

func (s *Store) GetCategory(_ context.Context, userID, categoryID string) (*models.Category, error) {
	var cat models.Category
	if err := s.db.Get(compositeKey(userID, categoryID), &cat); err != nil {
		if err == badgerhold.ErrNotFound {
			return nil, fmt.Errorf("category '%s' not found", categoryID)
		}
		return nil, fmt.Errorf("failed to get category '%s': %w", categoryID, err)
	}
	return &cat, nil
}

func (s *Store) SaveCategory(_ context.Context, userID string, cat *models.Category) error {
	if cat.ID == "" {
		return fmt.Errorf("category requires ID")
	}
	cat.UserID = userID
	if err := s.db.Upsert(compositeKey(userID, cat.ID), cat); err != nil {
		return fmt.Errorf("failed to save category '%s': %w", cat.ID, err)
	}
	s.notify(userID)
	return nil
}

func (s *Store) DeleteCategory(_ context.Context, userID, categoryID string) error {
	err := s.db.Delete(compositeKey(userID, categoryID), models.Category{})
	if err == badgerhold.ErrNotFound {
		return fmt.Errorf("category '%s' not found", categoryID)
	}
	if err != nil {
		return fmt.Errorf("failed to delete category '%s': %w", categoryID, err)
	}
	s.notify(userID)
	return nil
}

func (s *Store) ListCategories(_ context.Context, userID string) ([]*models.Category, error) {
	var all []models.Category
	if err := s.db.Find(&all, badgerhold.Where("UserID").Eq(userID).Index("UserID")); err != nil {
		return nil, fmt.Errorf("failed to list categories for user '%s': %w", userID, err)
	}
	result := make([]*models.Category, 0, len(all))
	for i := range all {
		cat := all[i]
		result = append(result, &cat)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Name < result[j].Name })
	return result, nil
}

// --- Change notification ---

// Subscribe registers fn to run after every mutation of the user's ledger.
// Callbacks run synchronously on the mutating goroutine and must be quick;
// heavy work belongs on the subscriber's own goroutine.
func (s *Store) Subscribe(userID string, fn func()) func() {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.nextSub
	s.nextSub++
	if s.subs[userID] == nil {
		s.subs[userID] = make(map[int]func())
	}
	s.subs[userID][id] = fn
	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.subs[userID], id)
	}
}

func (s *Store) notify(userID string) {
	s.mu.Lock()
	fns := make([]func(), 0, len(s.subs[userID]))
	for _, fn := range s.subs[userID] {
		fns = append(fns, fn)
	}
	s.mu.Unlock()
	for _, fn := range fns {
		fn()
	}
}

// Close shuts down the BadgerHold database.
func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}
