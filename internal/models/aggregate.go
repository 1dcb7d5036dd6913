package models

// Granularity is the calendar window size used for periodization.
type Granularity string

const (
	GranularityMonth   Granularity = "month"
	GranularityQuarter Granularity = "quarter"
	GranularityYear    Granularity = "year"
)

var validGranularities = map[Granularity]bool{
	GranularityMonth:   true,
	GranularityQuarter: true,
	GranularityYear:    true,
}

// ValidGranularity returns true if g is a supported granularity.
func ValidGranularity(g Granularity) bool {
	return validGranularities[g]
}

// BucketCount returns how many trailing calendar-month buckets a period
// aggregation keeps for this granularity.
func (g Granularity) BucketCount() int {
	switch g {
	case GranularityQuarter:
		return 12
	case GranularityYear:
		return 36
	default:
		return 6
	}
}

// PeriodMonths returns the calendar length in months of a single
// comparison period for this granularity.
func (g Granularity) PeriodMonths() int {
	switch g {
	case GranularityQuarter:
		return 3
	case GranularityYear:
		return 12
	default:
		return 1
	}
}

// ReportKind selects which derived view a report or insight covers.
type ReportKind string

const (
	ReportSpending ReportKind = "spending"
	ReportSavings  ReportKind = "savings"
	ReportTrends   ReportKind = "trends"
)

var validReportKinds = map[ReportKind]bool{
	ReportSpending: true,
	ReportSavings:  true,
	ReportTrends:   true,
}

// ValidReportKind returns true if k is a supported report kind.
func ValidReportKind(k ReportKind) bool {
	return validReportKinds[k]
}

// CategoryBucket is an aggregated expense sum for one category.
// Derived on every aggregation call, never persisted.
type CategoryBucket struct {
	Category string  `json:"category"`
	Total    float64 `json:"total"`
	Color    string  `json:"color,omitempty"`
}

// PeriodAggregate sums income, expenses, and contributions for one
// calendar-month bucket. Contributions are tracked but excluded from
// savings-rate math.
type PeriodAggregate struct {
	Period        string  `json:"period"`
	Income        float64 `json:"income"`
	Expenses      float64 `json:"expenses"`
	Contributions float64 `json:"contributions"`
}

// TrendEntry compares one category across two adjacent periods.
type TrendEntry struct {
	Category      string  `json:"category"`
	Previous      float64 `json:"previous"`
	Current       float64 `json:"current"`
	PercentChange float64 `json:"percent_change"`
}

// ReportData is the tagged aggregate variant handed to the insight
// generator. Exactly one of the pointer fields is set, matching Kind,
// so consumers switch on the tag instead of probing shapes.
type ReportData struct {
	Kind     ReportKind    `json:"kind"`
	Spending *SpendingData `json:"spending,omitempty"`
	Savings  *SavingsData  `json:"savings,omitempty"`
	Trends   *TrendData    `json:"trends,omitempty"`
}

// SpendingData is the spending-report subset of derived data.
type SpendingData struct {
	Buckets []CategoryBucket `json:"buckets"`
	Total   float64          `json:"total"`
}

// SavingsData is the savings-report subset of derived data.
type SavingsData struct {
	Periods    []PeriodAggregate `json:"periods"`
	LatestRate float64           `json:"latest_rate"`
}

// TrendData is the trends-report subset of derived data.
type TrendData struct {
	Entries []TrendEntry `json:"entries"`
}
