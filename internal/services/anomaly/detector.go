// Package anomaly runs statistical and integrity detection passes over
// ledger snapshots. Findings are transient; every call recomputes from
// scratch so the detector stays stateless and side-effect free.
package anomaly

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/budgetme/finsight/internal/common"
	"github.com/budgetme/finsight/internal/interfaces"
	"github.com/budgetme/finsight/internal/models"
)

const (
	// minTransactions is the insufficient-data guard; fewer yields no findings.
	minTransactions = 5

	// uncategorizedRatioThreshold flags a pattern when more than 30% of
	// categorizable transactions carry no category.
	uncategorizedRatioThreshold = 0.30

	// frequencyMultiplier flags days busier than 3x the mean.
	frequencyMultiplier = 3.0

	// maxDataErrors bounds the data-error pass output.
	maxDataErrors = 10
)

// Compile-time interface check
var _ interfaces.AnomalyService = (*Service)(nil)

// Service implements AnomalyService
type Service struct {
	ledger interfaces.LedgerService
	logger *common.Logger
}

// NewService creates a new anomaly detection service
func NewService(ledger interfaces.LedgerService, logger *common.Logger) *Service {
	return &Service{
		ledger: ledger,
		logger: logger,
	}
}

// DetectAnomalies runs all passes over the granularity window.
func (s *Service) DetectAnomalies(ctx context.Context, g models.Granularity) ([]models.Anomaly, error) {
	now := time.Now()
	first := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())
	from := first.AddDate(0, -(g.BucketCount() - 1), 0)

	txs, err := s.ledger.FetchTransactions(ctx, models.DateRange{From: from})
	if err != nil {
		return nil, err
	}

	anomalies := Detect(txs, now)
	s.logger.Debug().
		Int("transactions", len(txs)).
		Int("anomalies", len(anomalies)).
		Str("granularity", string(g)).
		Msg("Anomaly detection complete")
	return anomalies, nil
}

// Detect runs the five detection passes over the snapshot and returns
// findings sorted by severity, stable within equal severity. Fewer than
// five transactions yields an empty result.
func Detect(txs []*models.Transaction, now time.Time) []models.Anomaly {
	if len(txs) < minTransactions {
		return []models.Anomaly{}
	}

	var anomalies []models.Anomaly
	anomalies = append(anomalies, detectSpikes(txs)...)
	anomalies = append(anomalies, detectDuplicates(txs)...)
	anomalies = append(anomalies, detectUncategorized(txs)...)
	anomalies = append(anomalies, detectFrequencyOutliers(txs)...)
	anomalies = append(anomalies, detectDataErrors(txs, now)...)

	sort.SliceStable(anomalies, func(i, j int) bool {
		return models.SeverityRank(anomalies[i].Severity) < models.SeverityRank(anomalies[j].Severity)
	})
	return anomalies
}

// detectSpikes flags expenses above mu + 2 sigma (population stddev).
// Degenerate distributions with sigma 0 produce no flags.
func detectSpikes(txs []*models.Transaction) []models.Anomaly {
	var expenses []*models.Transaction
	for _, tx := range txs {
		if tx.Kind == models.TxExpense {
			expenses = append(expenses, tx)
		}
	}
	if len(expenses) == 0 {
		return nil
	}

	var sum float64
	for _, tx := range expenses {
		sum += tx.Amount
	}
	mean := sum / float64(len(expenses))

	var sumSq float64
	for _, tx := range expenses {
		d := tx.Amount - mean
		sumSq += d * d
	}
	sigma := math.Sqrt(sumSq / float64(len(expenses)))
	if sigma == 0 {
		return nil
	}

	var result []models.Anomaly
	for _, tx := range expenses {
		if tx.Amount <= mean+2*sigma {
			continue
		}
		severity := models.SeverityMedium
		if tx.Amount > mean+3*sigma {
			severity = models.SeverityHigh
		}
		result = append(result, models.Anomaly{
			ID:             uuid.NewString(),
			Kind:           models.AnomalyStatisticalSpike,
			Severity:       severity,
			TransactionIDs: []string{tx.ID},
			Message:        fmt.Sprintf("Expense of %.2f is well above your typical %.2f", tx.Amount, mean),
			Suggestion:     "Verify this charge is expected",
		})
	}
	return result
}

// normalizeDescription lowercases and collapses whitespace so near-identical
// descriptions group together.
func normalizeDescription(desc string) string {
	return strings.Join(strings.Fields(strings.ToLower(desc)), " ")
}

// detectDuplicates groups income and expense transactions by
// (amount, calendar day, normalized description). Contributions and
// transfers legitimately repeat and are never flagged.
func detectDuplicates(txs []*models.Transaction) []models.Anomaly {
	groups := make(map[string][]*models.Transaction)
	var order []string
	for _, tx := range txs {
		if !models.IsCategorizable(tx.Kind) {
			continue
		}
		key := fmt.Sprintf("%.2f\x00%s\x00%s", tx.Amount, tx.DayKey(), normalizeDescription(tx.Description))
		if _, seen := groups[key]; !seen {
			order = append(order, key)
		}
		groups[key] = append(groups[key], tx)
	}

	var result []models.Anomaly
	for _, key := range order {
		group := groups[key]
		if len(group) < 2 {
			continue
		}
		ids := make([]string, len(group))
		for i, tx := range group {
			ids[i] = tx.ID
		}
		result = append(result, models.Anomaly{
			ID:             uuid.NewString(),
			Kind:           models.AnomalyDuplicate,
			Severity:       models.SeverityMedium,
			TransactionIDs: ids,
			Message:        fmt.Sprintf("%d transactions of %.2f on %s look identical", len(group), group[0].Amount, group[0].DayKey()),
			Suggestion:     "Check for an accidental double entry",
		})
	}
	return result
}

// detectUncategorized emits one finding when the uncategorized share of
// categorizable transactions exceeds the threshold.
func detectUncategorized(txs []*models.Transaction) []models.Anomaly {
	var categorizable, uncategorized int
	var ids []string
	for _, tx := range txs {
		if !models.IsCategorizable(tx.Kind) {
			continue
		}
		categorizable++
		if tx.CategoryID == "" {
			uncategorized++
			ids = append(ids, tx.ID)
		}
	}
	if categorizable == 0 {
		return nil
	}
	ratio := float64(uncategorized) / float64(categorizable)
	if ratio <= uncategorizedRatioThreshold {
		return nil
	}
	return []models.Anomaly{{
		ID:             uuid.NewString(),
		Kind:           models.AnomalyUncategorized,
		Severity:       models.SeverityMedium,
		TransactionIDs: ids,
		Message:        fmt.Sprintf("%.0f%% of your transactions have no category", ratio*100),
		Suggestion:     "Categorize transactions to improve reporting accuracy",
	}}
}

// detectFrequencyOutliers flags days with more than 3x the mean number of
// transactions per active day.
func detectFrequencyOutliers(txs []*models.Transaction) []models.Anomaly {
	days := make(map[string][]*models.Transaction)
	var order []string
	for _, tx := range txs {
		key := tx.DayKey()
		if _, seen := days[key]; !seen {
			order = append(order, key)
		}
		days[key] = append(days[key], tx)
	}
	if len(days) == 0 {
		return nil
	}
	mean := float64(len(txs)) / float64(len(days))

	var result []models.Anomaly
	for _, key := range order {
		group := days[key]
		if float64(len(group)) <= frequencyMultiplier*mean {
			continue
		}
		ids := make([]string, len(group))
		for i, tx := range group {
			ids[i] = tx.ID
		}
		result = append(result, models.Anomaly{
			ID:             uuid.NewString(),
			Kind:           models.AnomalyFrequencyOutlier,
			Severity:       models.SeverityLow,
			TransactionIDs: ids,
			Message:        fmt.Sprintf("%d transactions on %s, far above your daily average", len(group), key),
			Suggestion:     "Review this day for unexpected activity",
		})
	}
	return result
}

// detectDataErrors flags negative amounts, dates more than a day in the
// future, and missing accounts. The negative and future checks are
// independent, so one transaction can yield two findings. Output is capped
// to bound list size.
func detectDataErrors(txs []*models.Transaction, now time.Time) []models.Anomaly {
	cutoff := now.Add(24 * time.Hour)
	var result []models.Anomaly

	add := func(tx *models.Transaction, msg string) {
		if len(result) >= maxDataErrors {
			return
		}
		result = append(result, models.Anomaly{
			ID:             uuid.NewString(),
			Kind:           models.AnomalyDataError,
			Severity:       models.SeverityError,
			TransactionIDs: []string{tx.ID},
			Message:        msg,
			Suggestion:     "Correct or remove this entry",
		})
	}

	for _, tx := range txs {
		if len(result) >= maxDataErrors {
			break
		}
		if tx.Amount < 0 {
			add(tx, fmt.Sprintf("Transaction %s has a negative amount", tx.ID))
		}
		if tx.Date.After(cutoff) {
			add(tx, fmt.Sprintf("Transaction %s is dated in the future", tx.ID))
		}
		if strings.TrimSpace(tx.Account) == "" {
			add(tx, fmt.Sprintf("Transaction %s has no account", tx.ID))
		}
	}
	return result
}
