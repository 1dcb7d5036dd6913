// Package insight generates textual recommendations from report
// aggregates, with a cached AI path and a deterministic heuristic
// fallback. A generation failure is never surfaced to the caller.
package insight

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/budgetme/finsight/internal/common"
	"github.com/budgetme/finsight/internal/interfaces"
	"github.com/budgetme/finsight/internal/models"
)

// Compile-time interface check
var _ interfaces.InsightService = (*Service)(nil)

// Service implements InsightService
type Service struct {
	storage   interfaces.StorageManager
	analytics interfaces.AnalyticsService
	ledger    interfaces.LedgerService
	client    interfaces.TextGenClient // nil runs fallback-only
	config    common.InsightsConfig
	replacer  *strings.Replacer
	logger    *common.Logger
}

// NewService creates a new insight service. A nil client is valid and
// forces the heuristic fallback on every generation.
func NewService(
	storage interfaces.StorageManager,
	analytics interfaces.AnalyticsService,
	ledger interfaces.LedgerService,
	client interfaces.TextGenClient,
	config common.InsightsConfig,
	logger *common.Logger,
) *Service {
	return &Service{
		storage:   storage,
		analytics: analytics,
		ledger:    ledger,
		client:    client,
		config:    config,
		replacer:  newCurrencyReplacer(config.CurrencySymbol, config.CurrencyCode, config.CurrencyWord),
		logger:    logger,
	}
}

// GetInsights returns cached insights when a live entry exists, otherwise
// generates a fresh batch and stores it. Refresh skips the cache read but
// still writes the new entry.
func (s *Service) GetInsights(ctx context.Context, kind models.ReportKind, g models.Granularity, refresh bool) (*interfaces.InsightResult, error) {
	if !models.ValidReportKind(kind) {
		return nil, fmt.Errorf("invalid report kind %q", kind)
	}
	if !models.ValidGranularity(g) {
		return nil, fmt.Errorf("invalid granularity %q", g)
	}

	userID := common.ResolveUserID(ctx)
	now := time.Now()

	if !refresh {
		entry, err := s.storage.InsightStore().QueryLatestUnexpired(ctx, userID, kind, g, now)
		if err != nil {
			return nil, err
		}
		if entry != nil {
			if err := s.storage.InsightStore().IncrementAccess(ctx, entry.ID, now); err != nil {
				s.logger.Warn().Err(err).Str("entry_id", entry.ID).Msg("Failed to record cache access")
			}
			return &interfaces.InsightResult{
				Insights:    entry.Insights,
				Fallback:    entry.Fallback,
				Cached:      true,
				GeneratedAt: entry.GeneratedAt,
			}, nil
		}
	}

	data, stats, err := s.buildContext(ctx, kind, g)
	if err != nil {
		return nil, err
	}

	insights, usedFallback := s.generate(ctx, kind, data, stats)

	entry := &models.InsightCacheEntry{
		ID:          uuid.NewString(),
		UserID:      userID,
		ReportKind:  kind,
		Granularity: g,
		Insights:    insights,
		Fallback:    usedFallback,
		GeneratedAt: now,
		ExpiresAt:   now.Add(s.config.GetCacheTTL()),
	}
	if err := s.storage.InsightStore().Insert(ctx, entry); err != nil {
		// The batch is still good; serve it uncached.
		s.logger.Warn().Err(err).Msg("Failed to cache insight batch")
	}

	return &interfaces.InsightResult{
		Insights:    insights,
		Fallback:    usedFallback,
		Cached:      false,
		GeneratedAt: now,
	}, nil
}

// buildContext assembles the tagged report aggregate plus the shared stats
// every prompt and fallback branch needs.
func (s *Service) buildContext(ctx context.Context, kind models.ReportKind, g models.Granularity) (*models.ReportData, contextStats, error) {
	data := &models.ReportData{Kind: kind}
	var stats contextStats

	switch kind {
	case models.ReportSpending:
		spending, err := s.analytics.SpendingBreakdown(ctx, g)
		if err != nil {
			return nil, stats, err
		}
		data.Spending = spending
		stats.TotalExpenses = spending.Total
	case models.ReportSavings:
		savings, err := s.analytics.SavingsOverview(ctx, g)
		if err != nil {
			return nil, stats, err
		}
		data.Savings = savings
		stats.SavingsRate = savings.LatestRate
	case models.ReportTrends:
		trends, err := s.analytics.Trends(ctx, g)
		if err != nil {
			return nil, stats, err
		}
		data.Trends = trends
	}

	// Every prompt carries the savings rate, not just the savings report.
	if kind != models.ReportSavings {
		if savings, err := s.analytics.SavingsOverview(ctx, g); err == nil && savings != nil {
			stats.SavingsRate = savings.LatestRate
		} else {
			s.logger.Warn().Err(err).Msg("Savings rate unavailable for insight context")
		}
	}

	now := time.Now()
	first := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())
	from := first.AddDate(0, -(g.BucketCount() - 1), 0)
	txs, err := s.ledger.FetchTransactions(ctx, models.DateRange{From: from})
	if err != nil {
		return nil, stats, err
	}
	stats.TransactionCount = len(txs)
	for _, tx := range txs {
		if !models.IsCategorizable(tx.Kind) {
			continue
		}
		stats.CategorizableCount++
		if tx.CategoryID == "" {
			stats.UncategorizedCount++
		}
	}
	return data, stats, nil
}

// generate runs the AI path and degrades to the heuristic fallback on any
// failure. The returned bool reports whether the fallback ran.
func (s *Service) generate(ctx context.Context, kind models.ReportKind, data *models.ReportData, stats contextStats) ([]models.Insight, bool) {
	if s.client != nil {
		prompt := buildPrompt(kind, data, stats, s.config.CurrencySymbol)
		text, err := s.client.Generate(ctx, prompt)
		if err == nil {
			insights, perr := s.parseInsights(text)
			if perr == nil {
				return insights, false
			}
			s.logger.Warn().Err(perr).Str("report_kind", string(kind)).Msg("Unparseable generation response, using fallback")
		} else {
			s.logger.Warn().Err(err).Str("report_kind", string(kind)).Msg("Text generation failed, using fallback")
		}
	}
	return fallbackInsights(kind, data, stats, s.config.CurrencySymbol, s.config.SavingsBenchmark), true
}

// rawInsight is the wire shape expected from the model, minus id and icon.
type rawInsight struct {
	Category    models.InsightCategory `json:"category"`
	Title       string                 `json:"title"`
	Description string                 `json:"description"`
	Actionable  bool                   `json:"actionable"`
	ActionText  string                 `json:"action_text"`
}

// parseInsights extracts a strict JSON array from the response, assigns
// ids and icons, and sanitizes currency markers in every text field.
func (s *Service) parseInsights(text string) ([]models.Insight, error) {
	start := strings.Index(text, "[")
	end := strings.LastIndex(text, "]")
	if start < 0 || end <= start {
		return nil, fmt.Errorf("no JSON array in response")
	}

	var raw []rawInsight
	if err := json.Unmarshal([]byte(text[start:end+1]), &raw); err != nil {
		return nil, fmt.Errorf("failed to parse insight array: %w", err)
	}
	if len(raw) == 0 {
		return nil, fmt.Errorf("empty insight array")
	}

	insights := make([]models.Insight, 0, len(raw))
	for _, r := range raw {
		if strings.TrimSpace(r.Title) == "" || strings.TrimSpace(r.Description) == "" {
			continue
		}
		category := r.Category
		if !models.ValidInsightCategory(category) {
			category = models.InsightInfo
		}
		insights = append(insights, models.Insight{
			ID:          uuid.NewString(),
			Category:    category,
			Icon:        categoryIcons[category],
			Title:       sanitizeText(s.replacer, r.Title),
			Description: sanitizeText(s.replacer, r.Description),
			Actionable:  r.Actionable,
			ActionText:  sanitizeText(s.replacer, r.ActionText),
		})
	}
	if len(insights) == 0 {
		return nil, fmt.Errorf("no usable insights in response")
	}
	return insights, nil
}
