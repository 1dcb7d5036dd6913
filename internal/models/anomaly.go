package models

// AnomalyKind identifies which detection pass produced a finding.
type AnomalyKind string

const (
	AnomalyStatisticalSpike AnomalyKind = "statistical-spike"
	AnomalyDuplicate        AnomalyKind = "duplicate"
	AnomalyUncategorized    AnomalyKind = "uncategorized-pattern"
	AnomalyFrequencyOutlier AnomalyKind = "frequency-outlier"
	AnomalyDataError        AnomalyKind = "data-error"
)

// Severity ranks a finding. Error outranks high; low sorts last.
type Severity string

const (
	SeverityError  Severity = "error"
	SeverityHigh   Severity = "high"
	SeverityMedium Severity = "medium"
	SeverityLow    Severity = "low"
)

// severityRank orders severities for sorting (lower sorts first).
var severityRank = map[Severity]int{
	SeverityError:  0,
	SeverityHigh:   1,
	SeverityMedium: 2,
	SeverityLow:    3,
}

// SeverityRank returns the sort rank of s; unknown severities sort last.
func SeverityRank(s Severity) int {
	if r, ok := severityRank[s]; ok {
		return r
	}
	return len(severityRank)
}

// Anomaly is a transient finding from one detection run. Findings are never
// persisted; dismissal state belongs to the caller.
type Anomaly struct {
	ID             string      `json:"id"`
	Kind           AnomalyKind `json:"kind"`
	Severity       Severity    `json:"severity"`
	TransactionIDs []string    `json:"transaction_ids,omitempty"`
	Message        string      `json:"message"`
	Suggestion     string      `json:"suggestion,omitempty"`
}
