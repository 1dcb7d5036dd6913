// Package interfaces defines service contracts for finsight
package interfaces

import (
	"context"
	"time"

	"github.com/budgetme/finsight/internal/models"
)

// LedgerService manages transactions and categories
type LedgerService interface {
	// AddTransaction validates and stores a new transaction
	AddTransaction(ctx context.Context, input TransactionInput) (*models.Transaction, error)

	// UpdateTransaction applies input to an existing transaction
	UpdateTransaction(ctx context.Context, txID string, input TransactionInput) (*models.Transaction, error)

	// DeleteTransaction removes a transaction
	DeleteTransaction(ctx context.Context, txID string) error

	// GetTransaction retrieves a single transaction
	GetTransaction(ctx context.Context, txID string) (*models.Transaction, error)

	// FetchTransactions returns the user's transactions within the range,
	// sorted by date ascending
	FetchTransactions(ctx context.Context, r models.DateRange) ([]*models.Transaction, error)

	// AddCategory creates a category
	AddCategory(ctx context.Context, name, color string) (*models.Category, error)

	// ListCategories returns the user's categories
	ListCategories(ctx context.Context) ([]*models.Category, error)

	// DeleteCategory removes a category; transactions referencing it fall
	// back to the uncategorized bucket on aggregation
	DeleteCategory(ctx context.Context, categoryID string) error

	// CategoryIndex returns categories keyed by ID for resolution
	CategoryIndex(ctx context.Context) (map[string]*models.Category, error)
}

// TransactionInput carries the caller-supplied fields of a transaction.
type TransactionInput struct {
	Amount      float64                `json:"amount"`
	Date        time.Time              `json:"date"`
	Kind        models.TransactionKind `json:"kind"`
	CategoryID  string                 `json:"category_id,omitempty"`
	Account     string                 `json:"account"`
	Description string                 `json:"description,omitempty"`
}

// AnalyticsService derives aggregates from the ledger. All results are
// computed on call from transaction snapshots, never persisted.
type AnalyticsService interface {
	// SpendingBreakdown sums expenses per category over the granularity window
	SpendingBreakdown(ctx context.Context, g models.Granularity) (*models.SpendingData, error)

	// PeriodAggregates buckets income, expenses, and contributions per
	// calendar month over the granularity window
	PeriodAggregates(ctx context.Context, g models.Granularity) ([]models.PeriodAggregate, error)

	// SavingsOverview returns period aggregates plus the latest savings rate
	SavingsOverview(ctx context.Context, g models.Granularity) (*models.SavingsData, error)

	// Trends compares per-category expenses between the current window and
	// the preceding window of equal length
	Trends(ctx context.Context, g models.Granularity) (*models.TrendData, error)
}

// AnomalyService runs detection passes over the ledger
type AnomalyService interface {
	// DetectAnomalies runs all passes over the granularity window and returns
	// findings sorted by severity. Fewer than five transactions yields an
	// empty result.
	DetectAnomalies(ctx context.Context, g models.Granularity) ([]models.Anomaly, error)
}

// InsightService generates or retrieves cached insight batches
type InsightService interface {
	// GetInsights returns cached insights when a live entry exists, otherwise
	// generates a fresh batch. Refresh forces regeneration.
	GetInsights(ctx context.Context, kind models.ReportKind, g models.Granularity, refresh bool) (*InsightResult, error)
}

// InsightResult is an insight batch plus its provenance.
type InsightResult struct {
	Insights    []models.Insight `json:"insights"`
	Fallback    bool             `json:"fallback"`
	Cached      bool             `json:"cached"`
	GeneratedAt time.Time        `json:"generated_at"`
}

// ReportService is the read facade the transports call into
type ReportService interface {
	// GetSpending returns the spending breakdown
	GetSpending(ctx context.Context, g models.Granularity) (*models.SpendingData, error)

	// GetPeriods returns per-month aggregates
	GetPeriods(ctx context.Context, g models.Granularity) ([]models.PeriodAggregate, error)

	// GetSavings returns the savings overview
	GetSavings(ctx context.Context, g models.Granularity) (*models.SavingsData, error)

	// GetTrends returns category trend comparisons
	GetTrends(ctx context.Context, g models.Granularity) (*models.TrendData, error)

	// GetAnomalies runs anomaly detection
	GetAnomalies(ctx context.Context, g models.Granularity) ([]models.Anomaly, error)

	// GetInsights returns cached or freshly generated insights
	GetInsights(ctx context.Context, kind models.ReportKind, g models.Granularity, refresh bool) (*InsightResult, error)

	// BuildReportData assembles the tagged aggregate for one report kind
	BuildReportData(ctx context.Context, kind models.ReportKind, g models.Granularity) (*models.ReportData, error)
}
