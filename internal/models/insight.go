package models

import (
	"encoding/gob"
	"time"
)

func init() {
	gob.Register(InsightCacheEntry{})
	gob.Register(Insight{})
}

// InsightCategory classifies the tone of a generated insight.
type InsightCategory string

const (
	InsightSuccess InsightCategory = "success"
	InsightWarning InsightCategory = "warning"
	InsightInfo    InsightCategory = "info"
	InsightTip     InsightCategory = "tip"
)

var validInsightCategories = map[InsightCategory]bool{
	InsightSuccess: true,
	InsightWarning: true,
	InsightInfo:    true,
	InsightTip:     true,
}

// ValidInsightCategory returns true if c is a supported insight category.
func ValidInsightCategory(c InsightCategory) bool {
	return validInsightCategories[c]
}

// Insight is one human-readable recommendation.
type Insight struct {
	ID          string          `json:"id"`
	Category    InsightCategory `json:"category"`
	Icon        string          `json:"icon,omitempty"`
	Title       string          `json:"title"`
	Description string          `json:"description"`
	Actionable  bool            `json:"actionable"`
	ActionText  string          `json:"action_text,omitempty"`
}

// InsightCacheEntry is a stored insight batch for one
// (user, report kind, granularity) key. Entries are immutable once written;
// invalidation is by TTL expiry or by a newer entry superseding this one.
type InsightCacheEntry struct {
	ID             string      `json:"id" badgerhold:"key"`
	UserID         string      `json:"user_id" badgerhold:"index"`
	ReportKind     ReportKind  `json:"report_kind"`
	Granularity    Granularity `json:"granularity"`
	Insights       []Insight   `json:"insights"`
	Fallback       bool        `json:"fallback"`
	GeneratedAt    time.Time   `json:"generated_at" badgerhold:"index"`
	ExpiresAt      time.Time   `json:"expires_at"`
	AccessCount    int         `json:"access_count"`
	LastAccessedAt time.Time   `json:"last_accessed_at"`
}

// Live reports whether the entry is still valid at the given instant.
func (e *InsightCacheEntry) Live(now time.Time) bool {
	return now.Before(e.ExpiresAt)
}
