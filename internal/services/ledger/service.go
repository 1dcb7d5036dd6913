// Package ledger provides transaction and category management
package ledger

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/budgetme/finsight/internal/common"
	"github.com/budgetme/finsight/internal/interfaces"
	"github.com/budgetme/finsight/internal/models"
)

// Compile-time interface check
var _ interfaces.LedgerService = (*Service)(nil)

// Service implements LedgerService
type Service struct {
	storage interfaces.StorageManager
	logger  *common.Logger
}

// NewService creates a new ledger service
func NewService(storage interfaces.StorageManager, logger *common.Logger) *Service {
	return &Service{
		storage: storage,
		logger:  logger,
	}
}

// generateID returns a unique ID with the given prefix + 8 hex chars.
func generateID(prefix string) string {
	b := make([]byte, 4)
	if _, err := rand.Read(b); err != nil {
		return prefix + "_00000000"
	}
	return prefix + "_" + hex.EncodeToString(b)
}

// validateInput checks that caller-supplied transaction fields are valid.
func validateInput(input interfaces.TransactionInput) error {
	if !models.ValidTransactionKind(input.Kind) {
		return fmt.Errorf("invalid kind %q; must be income, expense, contribution, or transfer", input.Kind)
	}
	if math.IsInf(input.Amount, 0) || math.IsNaN(input.Amount) {
		return fmt.Errorf("amount must be finite")
	}
	if input.Amount < 0 {
		return fmt.Errorf("amount must not be negative; the kind determines direction")
	}
	if input.Amount >= 1e15 {
		return fmt.Errorf("amount exceeds maximum (1e15)")
	}
	if input.Date.IsZero() {
		return fmt.Errorf("date is required")
	}
	if input.Date.After(time.Now().Add(24 * time.Hour)) {
		return fmt.Errorf("date cannot be in the future")
	}
	if strings.TrimSpace(input.Account) == "" {
		return fmt.Errorf("account is required")
	}
	if len(input.Account) > 100 {
		return fmt.Errorf("account name exceeds 100 characters")
	}
	if len(input.Description) > 500 {
		return fmt.Errorf("description exceeds 500 characters")
	}
	if input.CategoryID != "" && !models.IsCategorizable(input.Kind) {
		return fmt.Errorf("kind %q does not take a category", input.Kind)
	}
	return nil
}

// AddTransaction validates and stores a new transaction.
func (s *Service) AddTransaction(ctx context.Context, input interfaces.TransactionInput) (*models.Transaction, error) {
	if err := validateInput(input); err != nil {
		return nil, fmt.Errorf("invalid transaction: %w", err)
	}

	userID := common.ResolveUserID(ctx)
	now := time.Now()
	tx := &models.Transaction{
		ID:          generateID("tx"),
		UserID:      userID,
		Amount:      input.Amount,
		Date:        input.Date,
		Kind:        input.Kind,
		CategoryID:  input.CategoryID,
		Account:     strings.TrimSpace(input.Account),
		Description: strings.TrimSpace(input.Description),
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := s.storage.LedgerStore().SaveTransaction(ctx, tx); err != nil {
		return nil, err
	}
	s.logger.Info().
		Str("tx_id", tx.ID).
		Str("kind", string(tx.Kind)).
		Float64("amount", tx.Amount).
		Msg("Transaction added")
	return tx, nil
}

// UpdateTransaction applies input to an existing transaction, preserving
// its identity and creation time.
func (s *Service) UpdateTransaction(ctx context.Context, txID string, input interfaces.TransactionInput) (*models.Transaction, error) {
	if err := validateInput(input); err != nil {
		return nil, fmt.Errorf("invalid transaction: %w", err)
	}

	userID := common.ResolveUserID(ctx)
	existing, err := s.storage.LedgerStore().GetTransaction(ctx, userID, txID)
	if err != nil {
		return nil, err
	}

	existing.Amount = input.Amount
	existing.Date = input.Date
	existing.Kind = input.Kind
	existing.CategoryID = input.CategoryID
	existing.Account = strings.TrimSpace(input.Account)
	existing.Description = strings.TrimSpace(input.Description)
	existing.UpdatedAt = time.Now()

	if err := s.storage.LedgerStore().SaveTransaction(ctx, existing); err != nil {
		return nil, err
	}
	s.logger.Info().Str("tx_id", txID).Msg("Transaction updated")
	return existing, nil
}

// DeleteTransaction removes a transaction.
func (s *Service) DeleteTransaction(ctx context.Context, txID string) error {
	userID := common.ResolveUserID(ctx)
	if err := s.storage.LedgerStore().DeleteTransaction(ctx, userID, txID); err != nil {
		return err
	}
	s.logger.Info().Str("tx_id", txID).Msg("Transaction deleted")
	return nil
}

// GetTransaction retrieves a single transaction.
func (s *Service) GetTransaction(ctx context.Context, txID string) (*models.Transaction, error) {
	userID := common.ResolveUserID(ctx)
	return s.storage.LedgerStore().GetTransaction(ctx, userID, txID)
}

// FetchTransactions returns the user's transactions within the range,
// sorted by date ascending.
func (s *Service) FetchTransactions(ctx context.Context, r models.DateRange) ([]*models.Transaction, error) {
	userID := common.ResolveUserID(ctx)
	return s.storage.LedgerStore().ListTransactions(ctx, userID, r)
}

// AddCategory creates a category.
func (s *Service) AddCategory(ctx context.Context, name, color string) (*models.Category, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("category name is required")
	}
	if len(name) > 100 {
		return nil, fmt.Errorf("category name exceeds 100 characters")
	}
	if strings.EqualFold(name, models.UncategorizedName) {
		return nil, fmt.Errorf("%q is a reserved category name", models.UncategorizedName)
	}

	userID := common.ResolveUserID(ctx)
	cat := &models.Category{
		ID:    generateID("cat"),
		Name:  name,
		Color: color,
	}
	if err := s.storage.LedgerStore().SaveCategory(ctx, userID, cat); err != nil {
		return nil, err
	}
	s.logger.Info().Str("category_id", cat.ID).Str("name", name).Msg("Category added")
	return cat, nil
}

// defaultCategories is the starter set seeded for a user with no categories.
var defaultCategories = []models.Category{
	{Name: "Housing", Color: "#e74c3c"},
	{Name: "Food & Dining", Color: "#e67e22"},
	{Name: "Transportation", Color: "#f1c40f"},
	{Name: "Utilities", Color: "#1abc9c"},
	{Name: "Healthcare", Color: "#9b59b6"},
	{Name: "Entertainment", Color: "#3498db"},
	{Name: "Shopping", Color: "#fd79a8"},
	{Name: "Salary", Color: "#2ecc71"},
}

// SeedDefaultCategories creates the starter category set when the user has
// none. Existing categories, even a partial set, are left untouched.
func (s *Service) SeedDefaultCategories(ctx context.Context) error {
	existing, err := s.ListCategories(ctx)
	if err != nil {
		return err
	}
	if len(existing) > 0 {
		return nil
	}

	userID := common.ResolveUserID(ctx)
	for _, def := range defaultCategories {
		cat := &models.Category{
			ID:    generateID("cat"),
			Name:  def.Name,
			Color: def.Color,
		}
		if err := s.storage.LedgerStore().SaveCategory(ctx, userID, cat); err != nil {
			return fmt.Errorf("failed to seed category %q: %w", def.Name, err)
		}
	}
	s.logger.Info().Int("count", len(defaultCategories)).Msg("Default categories seeded")
	return nil
}

// ListCategories returns the user's categories.
func (s *Service) ListCategories(ctx context.Context) ([]*models.Category, error) {
	userID := common.ResolveUserID(ctx)
	return s.storage.LedgerStore().ListCategories(ctx, userID)
}

// DeleteCategory removes a category. Transactions referencing it are left
// untouched and fall back to the uncategorized bucket on aggregation.
func (s *Service) DeleteCategory(ctx context.Context, categoryID string) error {
	userID := common.ResolveUserID(ctx)
	if err := s.storage.LedgerStore().DeleteCategory(ctx, userID, categoryID); err != nil {
		return err
	}
	s.logger.Info().Str("category_id", categoryID).Msg("Category deleted")
	return nil
}

// CategoryIndex returns categories keyed by ID for resolution.
func (s *Service) CategoryIndex(ctx context.Context) (map[string]*models.Category, error) {
	cats, err := s.ListCategories(ctx)
	if err != nil {
		return nil, err
	}
	index := make(map[string]*models.Category, len(cats))
	for _, cat := range cats {
		index[cat.ID] = cat
	}
	return index, nil
}
