package insight

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/budgetme/finsight/internal/models"
)

const (
	// topCategoryShareThreshold flags a spending report when one category
	// dominates more than half of expenses.
	topCategoryShareThreshold = 0.50

	// defaultSavingsBenchmark is the benchmark savings rate in percent.
	defaultSavingsBenchmark = 20.0

	// uncategorizedNudgeRatio triggers the universal categorization warning.
	uncategorizedNudgeRatio = 0.10
)

// categoryIcons maps insight categories to display icons.
var categoryIcons = map[models.InsightCategory]string{
	models.InsightSuccess: "✅",
	models.InsightWarning: "⚠️",
	models.InsightInfo:    "ℹ️",
	models.InsightTip:     "💡",
}

// closingTips is the per-report generic closer appended on every fallback run.
var closingTips = map[models.ReportKind]string{
	models.ReportSpending: "Review your largest category each month and set a soft limit for it.",
	models.ReportSavings:  "Automating a transfer on payday makes a savings rate easier to hold.",
	models.ReportTrends:   "A rising category two windows in a row is worth a closer look.",
}

// fallbackInsights runs the deterministic heuristics for one report kind.
// It has no external failure modes: absent data simply omits that branch,
// and the closing tip guarantees a non-empty result.
func fallbackInsights(kind models.ReportKind, data *models.ReportData, stats contextStats, symbol string, benchmark float64) []models.Insight {
	if benchmark <= 0 {
		benchmark = defaultSavingsBenchmark
	}
	var insights []models.Insight

	switch kind {
	case models.ReportSpending:
		insights = append(insights, spendingFallback(data.Spending, symbol)...)
	case models.ReportSavings:
		insights = append(insights, savingsFallback(data.Savings, benchmark)...)
	case models.ReportTrends:
		insights = append(insights, trendsFallback(data.Trends)...)
	}

	if stats.UncategorizedRatio() > uncategorizedNudgeRatio {
		insights = append(insights, newInsight(models.InsightWarning,
			"Uncategorized transactions",
			fmt.Sprintf("%.0f%% of your transactions have no category, which blurs every report.", stats.UncategorizedRatio()*100),
			true, "Categorize recent transactions"))
	}

	insights = append(insights, newInsight(models.InsightTip, "Keep it up", closingTips[kind], false, ""))
	return insights
}

func spendingFallback(data *models.SpendingData, symbol string) []models.Insight {
	if data == nil || len(data.Buckets) == 0 || data.Total <= 0 {
		return nil
	}
	top := data.Buckets[0]
	for _, b := range data.Buckets[1:] {
		if b.Total > top.Total {
			top = b
		}
	}
	share := top.Total / data.Total
	if share > topCategoryShareThreshold {
		return []models.Insight{newInsight(models.InsightWarning,
			fmt.Sprintf("%s dominates your spending", top.Category),
			fmt.Sprintf("%s accounts for %.0f%% of your expenses (%s%.2f of %s%.2f).",
				top.Category, share*100, symbol, top.Total, symbol, data.Total),
			true, fmt.Sprintf("Set a budget for %s", top.Category))}
	}
	return []models.Insight{newInsight(models.InsightInfo,
		"Spending is well distributed",
		fmt.Sprintf("Your largest category, %s, is %.0f%% of total expenses. No single category dominates.",
			top.Category, share*100),
		false, "")}
}

// savingsFallback classifies the latest rate against the benchmark; half
// the benchmark separates "getting there" from "needs attention".
func savingsFallback(data *models.SavingsData, benchmark float64) []models.Insight {
	if data == nil || len(data.Periods) == 0 {
		return nil
	}
	rate := data.LatestRate
	fair := benchmark / 2
	switch {
	case rate >= benchmark:
		return []models.Insight{newInsight(models.InsightSuccess,
			"Strong savings rate",
			fmt.Sprintf("You saved %.1f%% of your income this period, above the %.0f%% benchmark.", rate, benchmark),
			false, "")}
	case rate >= fair:
		return []models.Insight{newInsight(models.InsightInfo,
			"Savings rate is getting there",
			fmt.Sprintf("You saved %.1f%% of your income this period. The common benchmark is %.0f%%.", rate, benchmark),
			true, "Trim one recurring expense")}
	default:
		return []models.Insight{newInsight(models.InsightWarning,
			"Savings rate needs attention",
			fmt.Sprintf("You saved %.1f%% of your income this period, below the %.0f%% mark.", rate, fair),
			true, "Review this period's largest expenses")}
	}
}

func trendsFallback(data *models.TrendData) []models.Insight {
	if data == nil || len(data.Entries) == 0 {
		return nil
	}
	var biggestUp, biggestDown *models.TrendEntry
	for i := range data.Entries {
		e := &data.Entries[i]
		if e.PercentChange > 0 && (biggestUp == nil || e.PercentChange > biggestUp.PercentChange) {
			biggestUp = e
		}
		if e.PercentChange < 0 && (biggestDown == nil || e.PercentChange < biggestDown.PercentChange) {
			biggestDown = e
		}
	}

	var insights []models.Insight
	if biggestUp != nil {
		insights = append(insights, newInsight(models.InsightWarning,
			fmt.Sprintf("%s is climbing", biggestUp.Category),
			fmt.Sprintf("%s spending rose %.0f%% compared to the previous window.", biggestUp.Category, biggestUp.PercentChange),
			true, fmt.Sprintf("Review recent %s charges", biggestUp.Category)))
	}
	if biggestDown != nil {
		insights = append(insights, newInsight(models.InsightSuccess,
			fmt.Sprintf("%s is down", biggestDown.Category),
			fmt.Sprintf("%s spending fell %.0f%% compared to the previous window.", biggestDown.Category, -biggestDown.PercentChange),
			false, ""))
	}
	return insights
}

func newInsight(category models.InsightCategory, title, description string, actionable bool, actionText string) models.Insight {
	return models.Insight{
		ID:          uuid.NewString(),
		Category:    category,
		Icon:        categoryIcons[category],
		Title:       title,
		Description: description,
		Actionable:  actionable,
		ActionText:  actionText,
	}
}
