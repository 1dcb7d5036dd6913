package server

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/budgetme/finsight/internal/app"
	"github.com/budgetme/finsight/internal/common"
	"github.com/budgetme/finsight/internal/interfaces"
	"github.com/budgetme/finsight/internal/models"
)

// --- Mocks ---

type mockLedgerService struct {
	transactions map[string]*models.Transaction
	categories   map[string]*models.Category
}

func newMockLedgerService() *mockLedgerService {
	return &mockLedgerService{
		transactions: make(map[string]*models.Transaction),
		categories:   make(map[string]*models.Category),
	}
}

func (m *mockLedgerService) AddTransaction(_ context.Context, input interfaces.TransactionInput) (*models.Transaction, error) {
	if !models.ValidTransactionKind(input.Kind) {
		return nil, fmt.Errorf("invalid transaction kind %q", input.Kind)
	}
	if input.Account == "" {
		return nil, fmt.Errorf("account is required")
	}
	tx := &models.Transaction{
		ID:          fmt.Sprintf("tx_%d", len(m.transactions)+1),
		UserID:      "default",
		Amount:      input.Amount,
		Date:        input.Date,
		Kind:        input.Kind,
		CategoryID:  input.CategoryID,
		Account:     input.Account,
		Description: input.Description,
	}
	m.transactions[tx.ID] = tx
	return tx, nil
}

func (m *mockLedgerService) UpdateTransaction(_ context.Context, txID string, input interfaces.TransactionInput) (*models.Transaction, error) {
	tx, ok := m.transactions[txID]
	if !ok {
		return nil, fmt.Errorf("transaction %s not found", txID)
	}
	tx.Amount = input.Amount
	tx.Description = input.Description
	return tx, nil
}

func (m *mockLedgerService) DeleteTransaction(_ context.Context, txID string) error {
	if _, ok := m.transactions[txID]; !ok {
		return fmt.Errorf("transaction %s not found", txID)
	}
	delete(m.transactions, txID)
	return nil
}

func (m *mockLedgerService) GetTransaction(_ context.Context, txID string) (*models.Transaction, error) {
	tx, ok := m.transactions[txID]
	if !ok {
		return nil, fmt.Errorf("transaction %s not found", txID)
	}
	return tx, nil
}

func (m *mockLedgerService) FetchTransactions(_ context.Context, r models.DateRange) ([]*models.Transaction, error) {
	var out []*models.Transaction
	for _, tx := range m.transactions {
		if r.Contains(tx.Date) {
			out = append(out, tx)
		}
	}
	return out, nil
}

func (m *mockLedgerService) AddCategory(_ context.Context, name, color string) (*models.Category, error) {
	if name == "" {
		return nil, fmt.Errorf("category name is required")
	}
	cat := &models.Category{ID: fmt.Sprintf("cat_%d", len(m.categories)+1), Name: name, Color: color}
	m.categories[cat.ID] = cat
	return cat, nil
}

func (m *mockLedgerService) ListCategories(_ context.Context) ([]*models.Category, error) {
	var out []*models.Category
	for _, cat := range m.categories {
		out = append(out, cat)
	}
	return out, nil
}

func (m *mockLedgerService) DeleteCategory(_ context.Context, categoryID string) error {
	if _, ok := m.categories[categoryID]; !ok {
		return fmt.Errorf("category %s not found", categoryID)
	}
	delete(m.categories, categoryID)
	return nil
}

func (m *mockLedgerService) CategoryIndex(ctx context.Context) (map[string]*models.Category, error) {
	return m.categories, nil
}

type mockReportService struct {
	spendingErr error
}

func (m *mockReportService) GetSpending(_ context.Context, g models.Granularity) (*models.SpendingData, error) {
	if m.spendingErr != nil {
		return nil, m.spendingErr
	}
	if !models.ValidGranularity(g) {
		return nil, fmt.Errorf("invalid granularity %q", g)
	}
	return &models.SpendingData{Total: 120.50}, nil
}

func (m *mockReportService) GetPeriods(_ context.Context, _ models.Granularity) ([]models.PeriodAggregate, error) {
	return []models.PeriodAggregate{{Period: "2026-01"}}, nil
}

func (m *mockReportService) GetSavings(_ context.Context, _ models.Granularity) (*models.SavingsData, error) {
	return &models.SavingsData{LatestRate: 25}, nil
}

func (m *mockReportService) GetTrends(_ context.Context, _ models.Granularity) (*models.TrendData, error) {
	return &models.TrendData{}, nil
}

func (m *mockReportService) GetAnomalies(_ context.Context, _ models.Granularity) ([]models.Anomaly, error) {
	return nil, nil
}

func (m *mockReportService) GetInsights(_ context.Context, kind models.ReportKind, _ models.Granularity, _ bool) (*interfaces.InsightResult, error) {
	if !models.ValidReportKind(kind) {
		return nil, fmt.Errorf("invalid report kind %q", kind)
	}
	return &interfaces.InsightResult{
		Insights: []models.Insight{{Title: "Savings ahead of target"}},
		Cached:   true,
	}, nil
}

func (m *mockReportService) BuildReportData(_ context.Context, kind models.ReportKind, _ models.Granularity) (*models.ReportData, error) {
	return &models.ReportData{Kind: kind}, nil
}

type mockInternalStore struct {
	kv map[string]string
}

func (m *mockInternalStore) GetSystemKV(_ context.Context, key string) (string, error) {
	return m.kv[key], nil
}

func (m *mockInternalStore) SetSystemKV(_ context.Context, key, value string) error {
	m.kv[key] = value
	return nil
}

func (m *mockInternalStore) DeleteSystemKV(_ context.Context, key string) error {
	delete(m.kv, key)
	return nil
}

func (m *mockInternalStore) Close() error { return nil }

type mockStorageManager struct {
	internal *mockInternalStore
}

func (m *mockStorageManager) InternalStore() interfaces.InternalStore { return m.internal }
func (m *mockStorageManager) LedgerStore() interfaces.LedgerStore    { return nil }
func (m *mockStorageManager) InsightStore() interfaces.InsightStore  { return nil }
func (m *mockStorageManager) DataPath() string                       { return "/tmp/finsight-test" }
func (m *mockStorageManager) Close() error                           { return nil }

type stubLedgerStore struct{}

func (s *stubLedgerStore) GetTransaction(_ context.Context, _, _ string) (*models.Transaction, error) {
	return nil, nil
}
func (s *stubLedgerStore) SaveTransaction(_ context.Context, _ *models.Transaction) error { return nil }
func (s *stubLedgerStore) DeleteTransaction(_ context.Context, _, _ string) error         { return nil }
func (s *stubLedgerStore) ListTransactions(_ context.Context, _ string, _ models.DateRange) ([]*models.Transaction, error) {
	return nil, nil
}
func (s *stubLedgerStore) GetCategory(_ context.Context, _, _ string) (*models.Category, error) {
	return nil, nil
}
func (s *stubLedgerStore) SaveCategory(_ context.Context, _ string, _ *models.Category) error {
	return nil
}
func (s *stubLedgerStore) DeleteCategory(_ context.Context, _, _ string) error { return nil }
func (s *stubLedgerStore) ListCategories(_ context.Context, _ string) ([]*models.Category, error) {
	return nil, nil
}
func (s *stubLedgerStore) Subscribe(_ string, _ func()) func() { return func() {} }
func (s *stubLedgerStore) Close() error                        { return nil }

func newTestServer(t *testing.T) (*Server, *mockLedgerService) {
	t.Helper()
	logger := common.NewSilentLogger()
	ledger := newMockLedgerService()
	reports := &mockReportService{}

	a := &app.App{
		Config: &common.Config{
			Environment: "development",
			Server:      common.ServerConfig{Host: "localhost", Port: 0},
		},
		Logger:        logger,
		Storage:       &mockStorageManager{internal: &mockInternalStore{kv: make(map[string]string)}},
		LedgerService: ledger,
		ReportService: reports,
		Orchestrator:  app.NewOrchestrator(&stubLedgerStore{}, reports, logger),
		MCPServer:     mcpserver.NewMCPServer("finsight", "test"),
		StartupTime:   time.Now(),
	}
	return NewServer(a), ledger
}

func doRequest(t *testing.T, srv *Server, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	rr := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rr, req)
	return rr
}

// --- Tests ---

func TestHandleHealth(t *testing.T) {
	srv, _ := newTestServer(t)
	rr := doRequest(t, srv, http.MethodGet, "/api/health", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", rr.Code)
	}
}

func TestHandleVersion(t *testing.T) {
	srv, _ := newTestServer(t)
	rr := doRequest(t, srv, http.MethodGet, "/api/version", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", rr.Code)
	}
	var resp map[string]string
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp["version"] == "" {
		t.Error("Expected version in response")
	}
}

func TestTransactionLifecycle(t *testing.T) {
	srv, _ := newTestServer(t)

	rr := doRequest(t, srv, http.MethodPost, "/api/transactions", transactionRequest{
		Amount:  45.90,
		Date:    "2026-08-01",
		Kind:    "expense",
		Account: "everyday",
	})
	if rr.Code != http.StatusCreated {
		t.Fatalf("Expected 201, got %d: %s", rr.Code, rr.Body.String())
	}
	var tx models.Transaction
	if err := json.NewDecoder(rr.Body).Decode(&tx); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if tx.ID == "" {
		t.Fatal("Expected transaction ID")
	}

	rr = doRequest(t, srv, http.MethodGet, "/api/transactions/"+tx.ID, nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", rr.Code)
	}

	rr = doRequest(t, srv, http.MethodPut, "/api/transactions/"+tx.ID, transactionRequest{
		Amount:  50,
		Date:    "2026-08-01",
		Kind:    "expense",
		Account: "everyday",
	})
	if rr.Code != http.StatusOK {
		t.Fatalf("Expected 200 on update, got %d: %s", rr.Code, rr.Body.String())
	}

	rr = doRequest(t, srv, http.MethodDelete, "/api/transactions/"+tx.ID, nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("Expected 200 on delete, got %d", rr.Code)
	}

	rr = doRequest(t, srv, http.MethodGet, "/api/transactions/"+tx.ID, nil)
	if rr.Code != http.StatusNotFound {
		t.Fatalf("Expected 404 after delete, got %d", rr.Code)
	}
}

func TestTransactionCreate_InvalidKind(t *testing.T) {
	srv, _ := newTestServer(t)
	rr := doRequest(t, srv, http.MethodPost, "/api/transactions", transactionRequest{
		Amount:  10,
		Date:    "2026-08-01",
		Kind:    "refund",
		Account: "everyday",
	})
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("Expected 400, got %d", rr.Code)
	}
}

func TestTransactionCreate_BadDate(t *testing.T) {
	srv, _ := newTestServer(t)
	rr := doRequest(t, srv, http.MethodPost, "/api/transactions", transactionRequest{
		Amount:  10,
		Date:    "01/08/2026",
		Kind:    "expense",
		Account: "everyday",
	})
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("Expected 400, got %d", rr.Code)
	}
}

func TestTransactionList_DateFilter(t *testing.T) {
	srv, ledger := newTestServer(t)
	for _, day := range []string{"2026-06-15", "2026-07-15", "2026-08-15"} {
		date, _ := time.Parse("2006-01-02", day)
		ledger.AddTransaction(context.Background(), interfaces.TransactionInput{
			Amount: 10, Date: date, Kind: models.TxExpense, Account: "everyday",
		})
	}

	rr := doRequest(t, srv, http.MethodGet, "/api/transactions?from=2026-07-01&to=2026-07-31", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", rr.Code)
	}
	var resp struct {
		Count int `json:"count"`
	}
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Count != 1 {
		t.Errorf("Expected 1 transaction in July, got %d", resp.Count)
	}
}

func TestCategoryLifecycle(t *testing.T) {
	srv, _ := newTestServer(t)

	rr := doRequest(t, srv, http.MethodPost, "/api/categories", map[string]string{
		"name":  "Groceries",
		"color": "#2ecc71",
	})
	if rr.Code != http.StatusCreated {
		t.Fatalf("Expected 201, got %d: %s", rr.Code, rr.Body.String())
	}
	var cat models.Category
	if err := json.NewDecoder(rr.Body).Decode(&cat); err != nil {
		t.Fatalf("decode: %v", err)
	}

	rr = doRequest(t, srv, http.MethodGet, "/api/categories", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", rr.Code)
	}

	rr = doRequest(t, srv, http.MethodDelete, "/api/categories/"+cat.ID, nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("Expected 200 on delete, got %d", rr.Code)
	}
}

func TestReportSpending(t *testing.T) {
	srv, _ := newTestServer(t)
	rr := doRequest(t, srv, http.MethodGet, "/api/reports/spending?granularity=quarter", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", rr.Code, rr.Body.String())
	}
}

func TestReportSpending_InvalidGranularity(t *testing.T) {
	srv, _ := newTestServer(t)
	rr := doRequest(t, srv, http.MethodGet, "/api/reports/spending?granularity=decade", nil)
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("Expected 400, got %d", rr.Code)
	}
}

func TestReportInsights_MissingKind(t *testing.T) {
	srv, _ := newTestServer(t)
	rr := doRequest(t, srv, http.MethodGet, "/api/reports/insights", nil)
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("Expected 400, got %d", rr.Code)
	}
}

func TestReportInsights(t *testing.T) {
	srv, _ := newTestServer(t)
	rr := doRequest(t, srv, http.MethodGet, "/api/reports/insights?report_kind=spending", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", rr.Code, rr.Body.String())
	}
	var result interfaces.InsightResult
	if err := json.NewDecoder(rr.Body).Decode(&result); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(result.Insights) != 1 {
		t.Errorf("Expected 1 insight, got %d", len(result.Insights))
	}
}

func TestTextGenKeyStoreAndClear(t *testing.T) {
	srv, _ := newTestServer(t)
	kv := srv.app.Storage.(*mockStorageManager).internal.kv

	rr := doRequest(t, srv, http.MethodPut, "/api/config/textgen-key", map[string]string{
		"api_key": "sk-live-123",
	})
	if rr.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", rr.Code, rr.Body.String())
	}
	if kv["textgen_api_key"] != "sk-live-123" {
		t.Errorf("stored key = %q, want sk-live-123", kv["textgen_api_key"])
	}

	rr = doRequest(t, srv, http.MethodDelete, "/api/config/textgen-key", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("Expected 200 on delete, got %d", rr.Code)
	}
	if _, ok := kv["textgen_api_key"]; ok {
		t.Error("key should be removed after delete")
	}
}

func TestTextGenKeyRejectsEmpty(t *testing.T) {
	srv, _ := newTestServer(t)
	rr := doRequest(t, srv, http.MethodPut, "/api/config/textgen-key", map[string]string{
		"api_key": "  ",
	})
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("Expected 400, got %d", rr.Code)
	}
}

func TestMethodNotAllowed(t *testing.T) {
	srv, _ := newTestServer(t)
	rr := doRequest(t, srv, http.MethodPost, "/api/reports/spending", nil)
	if rr.Code != http.StatusMethodNotAllowed {
		t.Fatalf("Expected 405, got %d", rr.Code)
	}
}
