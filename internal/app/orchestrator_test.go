package app

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/budgetme/finsight/internal/common"
	"github.com/budgetme/finsight/internal/interfaces"
	"github.com/budgetme/finsight/internal/models"
)

// --- Mock ledger store (subscription only) ---

type mockLedgerStore struct {
	mu  sync.Mutex
	fns map[int]func()
	n   int
}

func newMockLedgerStore() *mockLedgerStore {
	return &mockLedgerStore{fns: make(map[int]func())}
}

func (m *mockLedgerStore) Subscribe(_ string, fn func()) func() {
	m.mu.Lock()
	defer m.mu.Unlock()
	id := m.n
	m.n++
	m.fns[id] = fn
	return func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		delete(m.fns, id)
	}
}

func (m *mockLedgerStore) fire() {
	m.mu.Lock()
	fns := make([]func(), 0, len(m.fns))
	for _, fn := range m.fns {
		fns = append(fns, fn)
	}
	m.mu.Unlock()
	for _, fn := range fns {
		fn()
	}
}

func (m *mockLedgerStore) GetTransaction(_ context.Context, _, _ string) (*models.Transaction, error) {
	return nil, nil
}
func (m *mockLedgerStore) SaveTransaction(_ context.Context, _ *models.Transaction) error { return nil }
func (m *mockLedgerStore) DeleteTransaction(_ context.Context, _, _ string) error         { return nil }
func (m *mockLedgerStore) ListTransactions(_ context.Context, _ string, _ models.DateRange) ([]*models.Transaction, error) {
	return nil, nil
}
func (m *mockLedgerStore) GetCategory(_ context.Context, _, _ string) (*models.Category, error) {
	return nil, nil
}
func (m *mockLedgerStore) SaveCategory(_ context.Context, _ string, _ *models.Category) error {
	return nil
}
func (m *mockLedgerStore) DeleteCategory(_ context.Context, _, _ string) error { return nil }
func (m *mockLedgerStore) ListCategories(_ context.Context, _ string) ([]*models.Category, error) {
	return nil, nil
}
func (m *mockLedgerStore) Close() error { return nil }

// --- Mock report service ---

type mockReportService struct {
	mu           sync.Mutex
	buildCalls   int
	insightCalls int

	block   chan struct{} // when set, GetInsights waits on it
	cached  bool
	onEnter func() // runs inside GetInsights before returning
}

func (m *mockReportService) GetSpending(_ context.Context, _ models.Granularity) (*models.SpendingData, error) {
	return nil, nil
}
func (m *mockReportService) GetPeriods(_ context.Context, _ models.Granularity) ([]models.PeriodAggregate, error) {
	return nil, nil
}
func (m *mockReportService) GetSavings(_ context.Context, _ models.Granularity) (*models.SavingsData, error) {
	return nil, nil
}
func (m *mockReportService) GetTrends(_ context.Context, _ models.Granularity) (*models.TrendData, error) {
	return nil, nil
}
func (m *mockReportService) GetAnomalies(_ context.Context, _ models.Granularity) ([]models.Anomaly, error) {
	return nil, nil
}

func (m *mockReportService) GetInsights(_ context.Context, _ models.ReportKind, _ models.Granularity, _ bool) (*interfaces.InsightResult, error) {
	m.mu.Lock()
	m.insightCalls++
	calls := m.insightCalls
	block := m.block
	onEnter := m.onEnter
	m.mu.Unlock()

	if onEnter != nil && calls == 1 {
		onEnter()
	}
	if block != nil && calls == 1 {
		<-block
	}
	return &interfaces.InsightResult{
		Insights: []models.Insight{{Title: "T"}},
		Cached:   m.cached || calls > 1,
	}, nil
}

func (m *mockReportService) BuildReportData(_ context.Context, kind models.ReportKind, _ models.Granularity) (*models.ReportData, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.buildCalls++
	return &models.ReportData{Kind: kind}, nil
}

func (m *mockReportService) calls() (int, int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.buildCalls, m.insightCalls
}

func newTestOrchestrator() (*Orchestrator, *mockLedgerStore, *mockReportService) {
	store := newMockLedgerStore()
	reports := &mockReportService{}
	return NewOrchestrator(store, reports, common.NewSilentLogger()), store, reports
}

func TestChangeNotificationTriggersRecompute(t *testing.T) {
	o, store, reports := newTestOrchestrator()
	o.Start("default")
	defer o.Stop()

	store.fire()

	deadline := time.After(2 * time.Second)
	for {
		builds, _ := reports.calls()
		if builds >= 3 { // one per report kind
			break
		}
		select {
		case <-deadline:
			t.Fatalf("recompute did not run, builds = %d", builds)
		case <-time.After(10 * time.Millisecond):
		}
	}
}

func TestStopUnsubscribes(t *testing.T) {
	o, store, reports := newTestOrchestrator()
	o.Start("default")
	o.Stop()

	store.fire()
	time.Sleep(50 * time.Millisecond)
	if builds, _ := reports.calls(); builds != 0 {
		t.Errorf("recompute ran after Stop, builds = %d", builds)
	}
}

func TestInFlightMarkerBlocksConcurrentGeneration(t *testing.T) {
	o, _, reports := newTestOrchestrator()
	reports.block = make(chan struct{})

	started := make(chan struct{})
	reports.onEnter = func() { close(started) }

	done := make(chan error, 1)
	go func() {
		_, err := o.GetOrGenerateInsights(context.Background(), models.ReportSpending, models.GranularityMonth, false)
		done <- err
	}()

	<-started
	// Second request for the same key is refused while the first runs
	_, err := o.GetOrGenerateInsights(context.Background(), models.ReportSpending, models.GranularityMonth, false)
	if !errors.Is(err, ErrGenerationInFlight) {
		t.Errorf("err = %v, want ErrGenerationInFlight", err)
	}

	// A different key is not blocked
	if _, err := o.GetOrGenerateInsights(context.Background(), models.ReportSavings, models.GranularityMonth, false); err != nil {
		t.Errorf("different key blocked: %v", err)
	}

	close(reports.block)
	if err := <-done; err != nil {
		t.Fatalf("first generation failed: %v", err)
	}

	// Marker is released after completion
	if _, err := o.GetOrGenerateInsights(context.Background(), models.ReportSpending, models.GranularityMonth, false); err != nil {
		t.Errorf("marker not released: %v", err)
	}
}

func TestSupersededGenerationServesLatest(t *testing.T) {
	o, store, reports := newTestOrchestrator()
	o.Start("default")
	defer o.Stop()

	reports.block = make(chan struct{})
	started := make(chan struct{})
	reports.onEnter = func() { close(started) }

	done := make(chan *interfaces.InsightResult, 1)
	go func() {
		result, err := o.GetOrGenerateInsights(context.Background(), models.ReportSpending, models.GranularityMonth, true)
		if err != nil {
			t.Errorf("GetOrGenerateInsights: %v", err)
		}
		done <- result
	}()

	<-started
	// A ledger change lands while generation is in flight
	store.fire()
	close(reports.block)

	result := <-done
	if result == nil {
		t.Fatal("no result")
	}
	// The stale in-flight result is discarded; the follow-up read serves
	// the newest cache entry.
	if !result.Cached {
		t.Error("superseded generation should be replaced by a cache read")
	}
	if _, insights := reports.calls(); insights != 2 {
		t.Errorf("insight calls = %d, want 2 (generation + re-read)", insights)
	}
}
