package insight

import (
	"fmt"
	"strings"

	"github.com/budgetme/finsight/internal/models"
)

// contextStats carries the derived numbers every prompt and fallback
// branch shares.
type contextStats struct {
	TransactionCount   int
	CategorizableCount int
	UncategorizedCount int
	SavingsRate        float64
	TotalExpenses      float64
}

// UncategorizedRatio returns the uncategorized share of categorizable
// transactions, or 0 when there are none.
func (c contextStats) UncategorizedRatio() float64 {
	if c.CategorizableCount == 0 {
		return 0
	}
	return float64(c.UncategorizedCount) / float64(c.CategorizableCount)
}

// healthLevel labels financial stability from the savings rate.
func healthLevel(savingsRate float64) string {
	switch {
	case savingsRate >= 20:
		return "excellent"
	case savingsRate >= 10:
		return "good"
	case savingsRate >= 0:
		return "fair"
	default:
		return "poor"
	}
}

// buildPrompt assembles the report-kind-specific prompt. The model is asked
// for a strict JSON array so parsing can stay unforgiving; anything else
// degrades to the heuristic fallback.
func buildPrompt(kind models.ReportKind, data *models.ReportData, stats contextStats, symbol string) string {
	var sb strings.Builder

	sb.WriteString("You are a personal finance assistant. Analyze the data below and respond with ")
	sb.WriteString("ONLY a JSON array of 2 to 4 insight objects, no prose before or after. ")
	sb.WriteString("Each object has the fields: ")
	sb.WriteString(`"category" (one of "success", "warning", "info", "tip"), "title", "description", "actionable" (boolean), "action_text". `)
	fmt.Fprintf(&sb, "All monetary amounts must use the %s symbol.\n\n", symbol)

	fmt.Fprintf(&sb, "Transactions analyzed: %d\n", stats.TransactionCount)
	fmt.Fprintf(&sb, "Savings rate: %.1f%%\n", stats.SavingsRate)
	fmt.Fprintf(&sb, "Financial health: %s\n", healthLevel(stats.SavingsRate))
	fmt.Fprintf(&sb, "Uncategorized share: %.0f%%\n\n", stats.UncategorizedRatio()*100)

	switch kind {
	case models.ReportSpending:
		sb.WriteString("Spending by category:\n")
		if data.Spending != nil {
			for _, b := range data.Spending.Buckets {
				fmt.Fprintf(&sb, "- %s: %s%.2f\n", b.Category, symbol, b.Total)
			}
			fmt.Fprintf(&sb, "Total expenses: %s%.2f\n", symbol, data.Spending.Total)
		}
		sb.WriteString("\nFocus on spending distribution and the dominant categories.")
	case models.ReportSavings:
		sb.WriteString("Income and expenses per month:\n")
		if data.Savings != nil {
			for _, p := range data.Savings.Periods {
				fmt.Fprintf(&sb, "- %s: income %s%.2f, expenses %s%.2f\n", p.Period, symbol, p.Income, symbol, p.Expenses)
			}
			fmt.Fprintf(&sb, "Latest savings rate: %.1f%%\n", data.Savings.LatestRate)
		}
		sb.WriteString("\nFocus on the savings rate against a 20% benchmark and its direction.")
	case models.ReportTrends:
		sb.WriteString("Category movement between the previous and current window:\n")
		if data.Trends != nil {
			for _, e := range data.Trends.Entries {
				fmt.Fprintf(&sb, "- %s: %s%.2f -> %s%.2f (%+.1f%%)\n", e.Category, symbol, e.Previous, symbol, e.Current, e.PercentChange)
			}
		}
		sb.WriteString("\nFocus on the biggest increases and decreases.")
	}

	return sb.String()
}
