// Package app wires configuration, storage, clients, and services into a
// running core shared by every transport.
package app

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/mark3labs/mcp-go/server"

	"github.com/budgetme/finsight/internal/clients/textgen"
	"github.com/budgetme/finsight/internal/common"
	"github.com/budgetme/finsight/internal/interfaces"
	"github.com/budgetme/finsight/internal/services/analytics"
	"github.com/budgetme/finsight/internal/services/anomaly"
	"github.com/budgetme/finsight/internal/services/insight"
	"github.com/budgetme/finsight/internal/services/ledger"
	"github.com/budgetme/finsight/internal/services/report"
	"github.com/budgetme/finsight/internal/storage"
)

// App holds all initialized services, clients, and the MCP server.
type App struct {
	Config           *common.Config
	Logger           *common.Logger
	Storage          interfaces.StorageManager
	TextGenClient    interfaces.TextGenClient
	LedgerService    interfaces.LedgerService
	AnalyticsService interfaces.AnalyticsService
	AnomalyService   interfaces.AnomalyService
	InsightService   interfaces.InsightService
	ReportService    interfaces.ReportService
	Orchestrator     *Orchestrator
	MCPServer        *server.MCPServer
	StartupTime      time.Time

	gcCancel context.CancelFunc
}

// getBinaryDir returns the directory containing the executable.
func getBinaryDir() string {
	exe, err := os.Executable()
	if err != nil {
		return "."
	}
	return filepath.Dir(exe)
}

// NewApp initializes storage, clients, services, and the MCP server.
// configPath may be empty, in which case the default resolution logic is used.
func NewApp(configPath string) (*App, error) {
	startupStart := time.Now()

	binDir := getBinaryDir()

	// Resolve config: provided path, FINSIGHT_CONFIG, binary dir, then dev fallback
	if configPath == "" {
		configPath = os.Getenv("FINSIGHT_CONFIG")
	}
	if configPath == "" {
		configPath = filepath.Join(binDir, "finsight.toml")
		if _, err := os.Stat(configPath); os.IsNotExist(err) {
			configPath = "config/finsight.toml"
		}
	}

	config, err := common.LoadConfig(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	logger := common.NewLoggerFromConfig(config.Logging)

	storageManager, err := storage.NewManager(logger, config)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}

	ctx := context.Background()

	// Resolve the text generation API key; without it insights run on the
	// heuristic fallback only.
	var textGenClient interfaces.TextGenClient
	apiKey, err := common.ResolveAPIKey(ctx, storageManager.InternalStore(), "textgen_api_key", config.Clients.TextGen.APIKey)
	if err != nil {
		logger.Warn().Msg("Text generation API key not configured - insights will use heuristic fallback")
	} else {
		client, cerr := textgen.NewClient(ctx, apiKey,
			textgen.WithLogger(logger),
			textgen.WithModel(config.Clients.TextGen.Model),
			textgen.WithTemperature(config.Clients.TextGen.Temperature),
			textgen.WithMaxTokens(config.Clients.TextGen.MaxTokens),
			textgen.WithRateLimit(config.Clients.TextGen.RateLimit),
			textgen.WithTimeout(config.Clients.TextGen.GetTimeout()),
		)
		if cerr != nil {
			logger.Warn().Err(cerr).Msg("Failed to initialize text generation client")
		} else {
			textGenClient = client
		}
	}

	// Initialize services
	ledgerService := ledger.NewService(storageManager, logger)
	if err := ledgerService.SeedDefaultCategories(ctx); err != nil {
		logger.Warn().Err(err).Msg("Failed to seed default categories")
	}
	analyticsService := analytics.NewService(ledgerService, logger)
	anomalyService := anomaly.NewService(ledgerService, logger)
	insightService := insight.NewService(storageManager, analyticsService, ledgerService, textGenClient, config.Insights, logger)
	reportService := report.NewService(analyticsService, anomalyService, insightService, logger)

	orchestrator := NewOrchestrator(storageManager.LedgerStore(), reportService, logger)

	mcpServer := server.NewMCPServer(
		"finsight",
		common.GetVersion(),
		server.WithToolCapabilities(true),
	)

	a := &App{
		Config:           config,
		Logger:           logger,
		Storage:          storageManager,
		TextGenClient:    textGenClient,
		LedgerService:    ledgerService,
		AnalyticsService: analyticsService,
		AnomalyService:   anomalyService,
		InsightService:   insightService,
		ReportService:    reportService,
		Orchestrator:     orchestrator,
		MCPServer:        mcpServer,
		StartupTime:      startupStart,
	}

	a.registerTools()

	logger.Info().Dur("startup", time.Since(startupStart)).Msg("App initialized")

	return a, nil
}

// Start launches the orchestrator and the insight cache GC.
func (a *App) Start() {
	a.Orchestrator.Start("default")

	gcCtx, gcCancel := context.WithCancel(context.Background())
	a.gcCancel = gcCancel
	go startInsightGC(gcCtx, a.Storage.InsightStore(), a.Logger, insightGCInterval)
}

// Close releases all resources held by the App.
// Shutdown order: stop orchestrator, cancel GC, close storage.
func (a *App) Close() {
	if a.Orchestrator != nil {
		a.Orchestrator.Stop()
	}
	if a.gcCancel != nil {
		a.gcCancel()
		a.gcCancel = nil
	}
	if a.Storage != nil {
		a.Storage.Close()
		a.Storage = nil
	}
}

// registerTools registers all MCP tools on the App's MCPServer.
func (a *App) registerTools() {
	s := a.MCPServer
	logger := a.Logger

	s.AddTool(createGetVersionTool(), handleGetVersion())
	s.AddTool(createGetSpendingTool(), handleGetSpending(a.ReportService, logger))
	s.AddTool(createGetPeriodsTool(), handleGetPeriods(a.ReportService, logger))
	s.AddTool(createGetSavingsTool(), handleGetSavings(a.ReportService, logger))
	s.AddTool(createGetTrendsTool(), handleGetTrends(a.ReportService, logger))
	s.AddTool(createGetAnomaliesTool(), handleGetAnomalies(a.ReportService, logger))
	s.AddTool(createGetInsightsTool(), handleGetInsights(a.Orchestrator, logger))
	s.AddTool(createAddTransactionTool(), handleAddTransaction(a.LedgerService, logger))
	s.AddTool(createListTransactionsTool(), handleListTransactions(a.LedgerService, logger))
	s.AddTool(createAddCategoryTool(), handleAddCategory(a.LedgerService, logger))
	s.AddTool(createListCategoriesTool(), handleListCategories(a.LedgerService, logger))
}
