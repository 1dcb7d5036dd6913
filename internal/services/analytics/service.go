// Package analytics derives spending, savings, and trend aggregates from
// ledger snapshots. All results are computed on call, never persisted.
package analytics

import (
	"context"
	"time"

	"github.com/budgetme/finsight/internal/common"
	"github.com/budgetme/finsight/internal/interfaces"
	"github.com/budgetme/finsight/internal/models"
)

// Compile-time interface check
var _ interfaces.AnalyticsService = (*Service)(nil)

// Service implements AnalyticsService
type Service struct {
	ledger interfaces.LedgerService
	logger *common.Logger
}

// NewService creates a new analytics service
func NewService(ledger interfaces.LedgerService, logger *common.Logger) *Service {
	return &Service{
		ledger: ledger,
		logger: logger,
	}
}

// windowStart returns the first day of the earliest calendar month in a
// trailing n-month window ending at now.
func windowStart(now time.Time, n int) time.Time {
	first := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())
	return first.AddDate(0, -(n - 1), 0)
}

// resolveCategoryName maps a transaction to its display category. Absent or
// dangling category references fall back to the uncategorized bucket.
func resolveCategoryName(tx *models.Transaction, cats map[string]*models.Category) (name, color string) {
	if tx.CategoryID == "" {
		return models.UncategorizedName, ""
	}
	cat, ok := cats[tx.CategoryID]
	if !ok {
		return models.UncategorizedName, ""
	}
	return cat.Name, cat.Color
}

// SpendingBreakdown sums expenses per category over the granularity window.
func (s *Service) SpendingBreakdown(ctx context.Context, g models.Granularity) (*models.SpendingData, error) {
	now := time.Now()
	txs, err := s.ledger.FetchTransactions(ctx, models.DateRange{From: windowStart(now, g.BucketCount())})
	if err != nil {
		return nil, err
	}
	cats, err := s.ledger.CategoryIndex(ctx)
	if err != nil {
		return nil, err
	}
	return buildSpending(txs, cats), nil
}

// buildSpending groups expense amounts by resolved category. Buckets keep
// first-seen order; the uncategorized bucket always sorts last.
func buildSpending(txs []*models.Transaction, cats map[string]*models.Category) *models.SpendingData {
	totals := make(map[string]float64)
	colors := make(map[string]string)
	var order []string
	var total float64

	for _, tx := range txs {
		if tx.Kind != models.TxExpense {
			continue
		}
		name, color := resolveCategoryName(tx, cats)
		if _, seen := totals[name]; !seen && name != models.UncategorizedName {
			order = append(order, name)
		}
		totals[name] += tx.Amount
		if color != "" {
			colors[name] = color
		}
		total += tx.Amount
	}
	if _, ok := totals[models.UncategorizedName]; ok {
		order = append(order, models.UncategorizedName)
	}

	buckets := make([]models.CategoryBucket, 0, len(order))
	for _, name := range order {
		buckets = append(buckets, models.CategoryBucket{
			Category: name,
			Total:    totals[name],
			Color:    colors[name],
		})
	}
	return &models.SpendingData{Buckets: buckets, Total: total}
}

// PeriodAggregates buckets income, expenses, and contributions per calendar
// month over the granularity window.
func (s *Service) PeriodAggregates(ctx context.Context, g models.Granularity) ([]models.PeriodAggregate, error) {
	now := time.Now()
	txs, err := s.ledger.FetchTransactions(ctx, models.DateRange{From: windowStart(now, g.BucketCount())})
	if err != nil {
		return nil, err
	}
	return buildPeriods(txs, g, now), nil
}

// buildPeriods emits one aggregate per calendar month in the window,
// including empty months, in chronological order.
func buildPeriods(txs []*models.Transaction, g models.Granularity, now time.Time) []models.PeriodAggregate {
	n := g.BucketCount()
	start := windowStart(now, n)

	periods := make([]models.PeriodAggregate, n)
	index := make(map[string]int, n)
	for i := 0; i < n; i++ {
		key := start.AddDate(0, i, 0).Format("2006-01")
		periods[i] = models.PeriodAggregate{Period: key}
		index[key] = i
	}

	for _, tx := range txs {
		i, ok := index[tx.MonthKey()]
		if !ok {
			continue
		}
		switch tx.Kind {
		case models.TxIncome:
			periods[i].Income += tx.Amount
		case models.TxExpense:
			periods[i].Expenses += tx.Amount
		case models.TxContribution:
			periods[i].Contributions += tx.Amount
		}
	}
	return periods
}

// SavingsRate returns (income - expenses) / income as a percentage.
// Zero or negative income yields 0, never a division error.
func SavingsRate(income, expenses float64) float64 {
	if income <= 0 {
		return 0
	}
	return (income - expenses) / income * 100
}

// SavingsOverview returns period aggregates plus the latest period's
// savings rate. Contributions are excluded from the rate.
func (s *Service) SavingsOverview(ctx context.Context, g models.Granularity) (*models.SavingsData, error) {
	periods, err := s.PeriodAggregates(ctx, g)
	if err != nil {
		return nil, err
	}
	var latest float64
	if len(periods) > 0 {
		last := periods[len(periods)-1]
		latest = SavingsRate(last.Income, last.Expenses)
	}
	return &models.SavingsData{Periods: periods, LatestRate: latest}, nil
}
