package analytics

import (
	"context"
	"math"
	"sort"
	"time"

	"github.com/budgetme/finsight/internal/models"
)

// percentChange compares two period totals. A category appearing from
// nothing reads as +100%; two empty periods read as no change.
func percentChange(previous, current float64) float64 {
	if previous == 0 {
		if current > 0 {
			return 100
		}
		return 0
	}
	return (current - previous) / previous * 100
}

// periodStart returns the first day of the calendar period containing now:
// the month, the quarter, or the year depending on granularity.
func periodStart(now time.Time, g models.Granularity) time.Time {
	switch g {
	case models.GranularityQuarter:
		qm := time.Month((int(now.Month())-1)/3*3 + 1)
		return time.Date(now.Year(), qm, 1, 0, 0, 0, 0, now.Location())
	case models.GranularityYear:
		return time.Date(now.Year(), time.January, 1, 0, 0, 0, 0, now.Location())
	default:
		return time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())
	}
}

// Trends compares per-category expenses between the current calendar period
// and the immediately preceding one, month vs month, quarter vs quarter, or
// year vs year depending on granularity.
func (s *Service) Trends(ctx context.Context, g models.Granularity) (*models.TrendData, error) {
	now := time.Now()
	curFrom := periodStart(now, g)
	prevFrom := curFrom.AddDate(0, -g.PeriodMonths(), 0)

	txs, err := s.ledger.FetchTransactions(ctx, models.DateRange{From: prevFrom})
	if err != nil {
		return nil, err
	}
	cats, err := s.ledger.CategoryIndex(ctx)
	if err != nil {
		return nil, err
	}
	return buildTrends(txs, cats, curFrom), nil
}

// buildTrends splits transactions at curFrom into previous and current
// windows, totals expenses per category in each, and ranks the comparison
// by movement magnitude. Ties keep first-seen order.
func buildTrends(txs []*models.Transaction, cats map[string]*models.Category, curFrom time.Time) *models.TrendData {
	previous := make(map[string]float64)
	current := make(map[string]float64)
	var order []string
	seen := make(map[string]bool)

	for _, tx := range txs {
		if tx.Kind != models.TxExpense {
			continue
		}
		name, _ := resolveCategoryName(tx, cats)
		if !seen[name] {
			seen[name] = true
			order = append(order, name)
		}
		if tx.Date.Before(curFrom) {
			previous[name] += tx.Amount
		} else {
			current[name] += tx.Amount
		}
	}

	entries := make([]models.TrendEntry, 0, len(order))
	for _, name := range order {
		entries = append(entries, models.TrendEntry{
			Category:      name,
			Previous:      previous[name],
			Current:       current[name],
			PercentChange: percentChange(previous[name], current[name]),
		})
	}
	sort.SliceStable(entries, func(i, j int) bool {
		return math.Abs(entries[i].PercentChange) > math.Abs(entries[j].PercentChange)
	})
	return &models.TrendData{Entries: entries}
}
