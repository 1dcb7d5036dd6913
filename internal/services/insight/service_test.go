package insight

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/budgetme/finsight/internal/common"
	"github.com/budgetme/finsight/internal/interfaces"
	"github.com/budgetme/finsight/internal/models"
)

// --- Mocks ---

type mockInsightStore struct {
	entries map[string]*models.InsightCacheEntry
	access  map[string]int
}

func newMockInsightStore() *mockInsightStore {
	return &mockInsightStore{
		entries: make(map[string]*models.InsightCacheEntry),
		access:  make(map[string]int),
	}
}

func (m *mockInsightStore) Insert(_ context.Context, e *models.InsightCacheEntry) error {
	cp := *e
	m.entries[e.ID] = &cp
	return nil
}

func (m *mockInsightStore) QueryLatestUnexpired(_ context.Context, userID string, kind models.ReportKind, g models.Granularity, now time.Time) (*models.InsightCacheEntry, error) {
	var latest *models.InsightCacheEntry
	for _, e := range m.entries {
		if e.UserID != userID || e.ReportKind != kind || e.Granularity != g || !e.Live(now) {
			continue
		}
		if latest == nil || e.GeneratedAt.After(latest.GeneratedAt) {
			latest = e
		}
	}
	return latest, nil
}

func (m *mockInsightStore) IncrementAccess(_ context.Context, entryID string, _ time.Time) error {
	m.access[entryID]++
	return nil
}

func (m *mockInsightStore) PurgeExpired(_ context.Context, _ time.Time) (int, error) { return 0, nil }
func (m *mockInsightStore) Close() error                                             { return nil }

type mockStorageManager struct {
	insight *mockInsightStore
}

func (m *mockStorageManager) InternalStore() interfaces.InternalStore { return nil }
func (m *mockStorageManager) LedgerStore() interfaces.LedgerStore     { return nil }
func (m *mockStorageManager) InsightStore() interfaces.InsightStore   { return m.insight }
func (m *mockStorageManager) DataPath() string                        { return "" }
func (m *mockStorageManager) Close() error                            { return nil }

type mockAnalytics struct {
	spending *models.SpendingData
	savings  *models.SavingsData
	trends   *models.TrendData
}

func (m *mockAnalytics) SpendingBreakdown(_ context.Context, _ models.Granularity) (*models.SpendingData, error) {
	return m.spending, nil
}
func (m *mockAnalytics) PeriodAggregates(_ context.Context, _ models.Granularity) ([]models.PeriodAggregate, error) {
	return nil, nil
}
func (m *mockAnalytics) SavingsOverview(_ context.Context, _ models.Granularity) (*models.SavingsData, error) {
	return m.savings, nil
}
func (m *mockAnalytics) Trends(_ context.Context, _ models.Granularity) (*models.TrendData, error) {
	return m.trends, nil
}

type mockLedgerService struct {
	txs []*models.Transaction
}

func (m *mockLedgerService) AddTransaction(_ context.Context, _ interfaces.TransactionInput) (*models.Transaction, error) {
	return nil, nil
}
func (m *mockLedgerService) UpdateTransaction(_ context.Context, _ string, _ interfaces.TransactionInput) (*models.Transaction, error) {
	return nil, nil
}
func (m *mockLedgerService) DeleteTransaction(_ context.Context, _ string) error { return nil }
func (m *mockLedgerService) GetTransaction(_ context.Context, _ string) (*models.Transaction, error) {
	return nil, nil
}
func (m *mockLedgerService) FetchTransactions(_ context.Context, _ models.DateRange) ([]*models.Transaction, error) {
	return m.txs, nil
}
func (m *mockLedgerService) AddCategory(_ context.Context, _, _ string) (*models.Category, error) {
	return nil, nil
}
func (m *mockLedgerService) ListCategories(_ context.Context) ([]*models.Category, error) {
	return nil, nil
}
func (m *mockLedgerService) DeleteCategory(_ context.Context, _ string) error { return nil }
func (m *mockLedgerService) CategoryIndex(_ context.Context) (map[string]*models.Category, error) {
	return nil, nil
}

type mockTextGen struct {
	response string
	err      error
	calls    int
}

func (m *mockTextGen) Generate(_ context.Context, _ string) (string, error) {
	m.calls++
	return m.response, m.err
}
func (m *mockTextGen) Model() string { return "mock-model" }

// --- Helpers ---

func testConfig() common.InsightsConfig {
	return common.InsightsConfig{
		CacheTTL:         "168h",
		CurrencySymbol:   "₱",
		CurrencyCode:     "PHP",
		CurrencyWord:     "pesos",
		SavingsBenchmark: 20,
	}
}

func sampleTxs(n int) []*models.Transaction {
	date := time.Now().AddDate(0, 0, -7)
	txs := make([]*models.Transaction, n)
	for i := 0; i < n; i++ {
		txs[i] = &models.Transaction{
			ID: fmt.Sprintf("tx_%d", i), UserID: "default", Amount: 10,
			Date: date, Kind: models.TxExpense, CategoryID: "cat_1", Account: "a",
		}
	}
	return txs
}

func newTestService(client interfaces.TextGenClient) (*Service, *mockInsightStore) {
	store := newMockInsightStore()
	analytics := &mockAnalytics{
		spending: &models.SpendingData{
			Buckets: []models.CategoryBucket{
				{Category: "Food", Total: 80},
				{Category: "Bills", Total: 20},
			},
			Total: 100,
		},
		savings: &models.SavingsData{
			Periods:    []models.PeriodAggregate{{Period: "2025-06", Income: 1000, Expenses: 750}},
			LatestRate: 25,
		},
		trends: &models.TrendData{Entries: []models.TrendEntry{
			{Category: "Food", Previous: 100, Current: 150, PercentChange: 50},
			{Category: "Bills", Previous: 100, Current: 80, PercentChange: -20},
		}},
	}
	svc := NewService(
		&mockStorageManager{insight: store},
		analytics,
		&mockLedgerService{txs: sampleTxs(8)},
		client,
		testConfig(),
		common.NewSilentLogger(),
	)
	return svc, store
}

// --- Tests ---

func TestSanitizeCurrency(t *testing.T) {
	r := newCurrencyReplacer("₱", "PHP", "pesos")
	got := sanitizeText(r, "Save $500 USD now")
	if strings.Contains(got, "$") || strings.Contains(got, "USD") {
		t.Errorf("residual currency markers in %q", got)
	}
	if got != "Save ₱500 PHP now" {
		t.Errorf("got %q", got)
	}

	if got := sanitizeText(r, "That is US$20 or twenty dollars"); strings.Contains(got, "$") || strings.Contains(got, "dollars") {
		t.Errorf("residual markers in %q", got)
	}
}

func TestFallbackNeverEmpty(t *testing.T) {
	client := &mockTextGen{err: fmt.Errorf("network down")}
	svc, _ := newTestService(client)

	for _, kind := range []models.ReportKind{models.ReportSpending, models.ReportSavings, models.ReportTrends} {
		result, err := svc.GetInsights(context.Background(), kind, models.GranularityMonth, true)
		if err != nil {
			t.Fatalf("GetInsights(%s): %v", kind, err)
		}
		if !result.Fallback {
			t.Errorf("%s: expected fallback", kind)
		}
		if len(result.Insights) == 0 {
			t.Errorf("%s: fallback returned no insights", kind)
		}
	}
}

func TestNilClientUsesFallback(t *testing.T) {
	svc, _ := newTestService(nil)
	result, err := svc.GetInsights(context.Background(), models.ReportSpending, models.GranularityMonth, false)
	if err != nil {
		t.Fatalf("GetInsights: %v", err)
	}
	if !result.Fallback || len(result.Insights) == 0 {
		t.Errorf("result = %+v", result)
	}
}

func TestCacheHitSkipsGeneration(t *testing.T) {
	client := &mockTextGen{response: `[{"category":"tip","title":"T","description":"D","actionable":false}]`}
	svc, store := newTestService(client)
	ctx := context.Background()

	first, err := svc.GetInsights(ctx, models.ReportSpending, models.GranularityMonth, false)
	if err != nil {
		t.Fatalf("GetInsights: %v", err)
	}
	if first.Cached || first.Fallback {
		t.Errorf("first result = %+v", first)
	}
	if client.calls != 1 {
		t.Errorf("client calls = %d, want 1", client.calls)
	}

	second, err := svc.GetInsights(ctx, models.ReportSpending, models.GranularityMonth, false)
	if err != nil {
		t.Fatalf("GetInsights: %v", err)
	}
	if !second.Cached {
		t.Error("second call should hit the cache")
	}
	if client.calls != 1 {
		t.Errorf("client calls = %d, cache hit should not regenerate", client.calls)
	}

	var total int
	for _, n := range store.access {
		total += n
	}
	if total != 1 {
		t.Errorf("access increments = %d, want 1", total)
	}

	// Different granularity is a different cache key
	if _, err := svc.GetInsights(ctx, models.ReportSpending, models.GranularityYear, false); err != nil {
		t.Fatalf("GetInsights: %v", err)
	}
	if client.calls != 2 {
		t.Errorf("client calls = %d, want 2", client.calls)
	}
}

func TestRefreshBypassesCache(t *testing.T) {
	client := &mockTextGen{response: `[{"category":"info","title":"T","description":"D"}]`}
	svc, _ := newTestService(client)
	ctx := context.Background()

	if _, err := svc.GetInsights(ctx, models.ReportSavings, models.GranularityMonth, false); err != nil {
		t.Fatalf("GetInsights: %v", err)
	}
	if _, err := svc.GetInsights(ctx, models.ReportSavings, models.GranularityMonth, true); err != nil {
		t.Fatalf("GetInsights refresh: %v", err)
	}
	if client.calls != 2 {
		t.Errorf("client calls = %d, refresh should regenerate", client.calls)
	}
}

func TestParseInsights(t *testing.T) {
	svc, _ := newTestService(nil)

	// Prose around the array is tolerated; markers inside are sanitized
	text := "Here you go:\n[{\"category\":\"warning\",\"title\":\"Spending up\",\"description\":\"You spent $200 more\",\"actionable\":true,\"action_text\":\"Cut back\"}]\nHope that helps."
	insights, err := svc.parseInsights(text)
	if err != nil {
		t.Fatalf("parseInsights: %v", err)
	}
	if len(insights) != 1 {
		t.Fatalf("got %d insights, want 1", len(insights))
	}
	if insights[0].ID == "" || insights[0].Icon == "" {
		t.Error("id and icon should be assigned")
	}
	if strings.Contains(insights[0].Description, "$") {
		t.Errorf("description not sanitized: %q", insights[0].Description)
	}

	// Unknown categories normalize to info
	insights, err = svc.parseInsights(`[{"category":"celebration","title":"T","description":"D"}]`)
	if err != nil {
		t.Fatalf("parseInsights: %v", err)
	}
	if insights[0].Category != models.InsightInfo {
		t.Errorf("category = %s, want info", insights[0].Category)
	}

	for _, bad := range []string{"no array here", "[]", `[{"category":"tip"}]`, "[{broken"} {
		if _, err := svc.parseInsights(bad); err == nil {
			t.Errorf("parseInsights(%q) should fail", bad)
		}
	}
}

func TestSpendingFallbackDominantCategory(t *testing.T) {
	data := &models.SpendingData{
		Buckets: []models.CategoryBucket{{Category: "Rent", Total: 600}, {Category: "Food", Total: 400}},
		Total:   1000,
	}
	got := spendingFallback(data, "₱")
	if len(got) != 1 || got[0].Category != models.InsightWarning {
		t.Fatalf("got %+v, want single warning", got)
	}
	if !strings.Contains(got[0].Title, "Rent") {
		t.Errorf("title = %q", got[0].Title)
	}

	balanced := &models.SpendingData{
		Buckets: []models.CategoryBucket{{Category: "Rent", Total: 400}, {Category: "Food", Total: 600}},
		Total:   1200,
	}
	got = spendingFallback(balanced, "₱")
	if len(got) != 1 || got[0].Category != models.InsightInfo {
		t.Fatalf("got %+v, want single info", got)
	}

	if got := spendingFallback(nil, "₱"); got != nil {
		t.Errorf("nil data should omit the branch, got %+v", got)
	}
}

func TestSavingsFallbackClassification(t *testing.T) {
	cases := []struct {
		rate float64
		want models.InsightCategory
	}{
		{25, models.InsightSuccess},
		{20, models.InsightSuccess},
		{15, models.InsightInfo},
		{5, models.InsightWarning},
		{-10, models.InsightWarning},
	}
	for _, tc := range cases {
		data := &models.SavingsData{
			Periods:    []models.PeriodAggregate{{Period: "2025-06"}},
			LatestRate: tc.rate,
		}
		got := savingsFallback(data, 20)
		if len(got) != 1 || got[0].Category != tc.want {
			t.Errorf("rate %v: got %+v, want %s", tc.rate, got, tc.want)
		}
	}
}

func TestTrendsFallbackBiggestMovers(t *testing.T) {
	data := &models.TrendData{Entries: []models.TrendEntry{
		{Category: "Food", PercentChange: 50},
		{Category: "Fun", PercentChange: 80},
		{Category: "Bills", PercentChange: -30},
	}}
	got := trendsFallback(data)
	if len(got) != 2 {
		t.Fatalf("got %d insights, want 2", len(got))
	}
	if !strings.Contains(got[0].Title, "Fun") {
		t.Errorf("biggest increase = %q", got[0].Title)
	}
	if !strings.Contains(got[1].Title, "Bills") {
		t.Errorf("biggest decrease = %q", got[1].Title)
	}
}

func TestUniversalUncategorizedWarning(t *testing.T) {
	stats := contextStats{CategorizableCount: 10, UncategorizedCount: 2}
	data := &models.ReportData{Kind: models.ReportSpending}
	insights := fallbackInsights(models.ReportSpending, data, stats, "₱", 20)

	var found bool
	for _, in := range insights {
		if strings.Contains(in.Title, "Uncategorized") {
			found = true
		}
	}
	if !found {
		t.Error("20% uncategorized should trigger the warning")
	}

	// At or below 10% stays quiet
	stats.UncategorizedCount = 1
	insights = fallbackInsights(models.ReportSpending, data, stats, "₱", 20)
	for _, in := range insights {
		if strings.Contains(in.Title, "Uncategorized") {
			t.Error("10% uncategorized should not trigger the warning")
		}
	}
}
