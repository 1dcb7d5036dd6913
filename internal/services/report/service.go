// Package report is the read facade the transports call into. It validates
// the query dimensions once, then delegates to the analytics, anomaly, and
// insight services.
package report

import (
	"context"
	"fmt"

	"github.com/budgetme/finsight/internal/common"
	"github.com/budgetme/finsight/internal/interfaces"
	"github.com/budgetme/finsight/internal/models"
)

// Compile-time interface check
var _ interfaces.ReportService = (*Service)(nil)

// Service implements ReportService
type Service struct {
	analytics interfaces.AnalyticsService
	anomaly   interfaces.AnomalyService
	insight   interfaces.InsightService
	logger    *common.Logger
}

// NewService creates a new report service
func NewService(
	analytics interfaces.AnalyticsService,
	anomaly interfaces.AnomalyService,
	insight interfaces.InsightService,
	logger *common.Logger,
) *Service {
	return &Service{
		analytics: analytics,
		anomaly:   anomaly,
		insight:   insight,
		logger:    logger,
	}
}

func validateGranularity(g models.Granularity) error {
	if !models.ValidGranularity(g) {
		return fmt.Errorf("invalid granularity %q; must be month, quarter, or year", g)
	}
	return nil
}

// GetSpending returns the spending breakdown.
func (s *Service) GetSpending(ctx context.Context, g models.Granularity) (*models.SpendingData, error) {
	if err := validateGranularity(g); err != nil {
		return nil, err
	}
	return s.analytics.SpendingBreakdown(ctx, g)
}

// GetPeriods returns per-month aggregates.
func (s *Service) GetPeriods(ctx context.Context, g models.Granularity) ([]models.PeriodAggregate, error) {
	if err := validateGranularity(g); err != nil {
		return nil, err
	}
	return s.analytics.PeriodAggregates(ctx, g)
}

// GetSavings returns the savings overview.
func (s *Service) GetSavings(ctx context.Context, g models.Granularity) (*models.SavingsData, error) {
	if err := validateGranularity(g); err != nil {
		return nil, err
	}
	return s.analytics.SavingsOverview(ctx, g)
}

// GetTrends returns category trend comparisons.
func (s *Service) GetTrends(ctx context.Context, g models.Granularity) (*models.TrendData, error) {
	if err := validateGranularity(g); err != nil {
		return nil, err
	}
	return s.analytics.Trends(ctx, g)
}

// GetAnomalies runs anomaly detection.
func (s *Service) GetAnomalies(ctx context.Context, g models.Granularity) ([]models.Anomaly, error) {
	if err := validateGranularity(g); err != nil {
		return nil, err
	}
	return s.anomaly.DetectAnomalies(ctx, g)
}

// GetInsights returns cached or freshly generated insights.
func (s *Service) GetInsights(ctx context.Context, kind models.ReportKind, g models.Granularity, refresh bool) (*interfaces.InsightResult, error) {
	if !models.ValidReportKind(kind) {
		return nil, fmt.Errorf("invalid report kind %q; must be spending, savings, or trends", kind)
	}
	if err := validateGranularity(g); err != nil {
		return nil, err
	}
	return s.insight.GetInsights(ctx, kind, g, refresh)
}

// BuildReportData assembles the tagged aggregate for one report kind.
// Consumers switch on Kind instead of probing shapes.
func (s *Service) BuildReportData(ctx context.Context, kind models.ReportKind, g models.Granularity) (*models.ReportData, error) {
	if err := validateGranularity(g); err != nil {
		return nil, err
	}
	data := &models.ReportData{Kind: kind}
	switch kind {
	case models.ReportSpending:
		spending, err := s.analytics.SpendingBreakdown(ctx, g)
		if err != nil {
			return nil, err
		}
		data.Spending = spending
	case models.ReportSavings:
		savings, err := s.analytics.SavingsOverview(ctx, g)
		if err != nil {
			return nil, err
		}
		data.Savings = savings
	case models.ReportTrends:
		trends, err := s.analytics.Trends(ctx, g)
		if err != nil {
			return nil, err
		}
		data.Trends = trends
	default:
		return nil, fmt.Errorf("invalid report kind %q", kind)
	}
	return data, nil
}
