package server

import (
	"net/http"
	"runtime"
	"strings"
	"time"

	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/budgetme/finsight/internal/common"
)

// registerRoutes sets up all REST API routes on the mux.
func (s *Server) registerRoutes(mux *http.ServeMux) {
	// MCP over Streamable HTTP
	mux.Handle("/mcp", mcpserver.NewStreamableHTTPServer(s.app.MCPServer,
		mcpserver.WithStateLess(true),
	))

	// System
	mux.HandleFunc("/api/health", s.handleHealth)
	mux.HandleFunc("/api/version", s.handleVersion)
	mux.HandleFunc("/api/config", s.handleConfig)
	mux.HandleFunc("/api/config/textgen-key", s.handleTextGenKey)
	mux.HandleFunc("/api/shutdown", s.handleShutdown)
	mux.HandleFunc("/debug/memstats", s.handleMemstats)

	// Ledger
	mux.HandleFunc("/api/transactions/", s.handleTransactionByID)
	mux.HandleFunc("/api/transactions", s.handleTransactions)
	mux.HandleFunc("/api/categories/", s.handleCategoryByID)
	mux.HandleFunc("/api/categories", s.handleCategories)

	// Reports
	mux.HandleFunc("/api/reports/spending", s.handleReportSpending)
	mux.HandleFunc("/api/reports/periods", s.handleReportPeriods)
	mux.HandleFunc("/api/reports/savings", s.handleReportSavings)
	mux.HandleFunc("/api/reports/trends", s.handleReportTrends)
	mux.HandleFunc("/api/reports/anomalies", s.handleReportAnomalies)
	mux.HandleFunc("/api/reports/insights", s.handleReportInsights)
}

// --- System handlers ---

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet, http.MethodHead) {
		return
	}
	WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleVersion(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet, http.MethodHead) {
		return
	}
	WriteJSON(w, http.StatusOK, map[string]string{
		"version": common.GetVersion(),
		"build":   common.GetBuild(),
		"commit":  common.GetGitCommit(),
	})
}

func (s *Server) handleConfig(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}

	uptime := time.Since(s.app.StartupTime).Round(time.Second)

	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"environment":        s.app.Config.Environment,
		"uptime":             uptime.String(),
		"started_at":         s.app.StartupTime,
		"data_path":          s.app.Storage.DataPath(),
		"logging_level":      s.app.Config.Logging.Level,
		"currency_symbol":    s.app.Config.Insights.CurrencySymbol,
		"currency_code":      s.app.Config.Insights.CurrencyCode,
		"insight_cache_ttl":  s.app.Config.Insights.GetCacheTTL().String(),
		"textgen_configured": s.app.TextGenClient != nil,
	})
}

// handleTextGenKey handles PUT and DELETE /api/config/textgen-key. The key
// persists in the system KV so it survives restarts without living in the
// config file; the running client keeps the key it resolved at startup, so a
// stored change takes effect on the next start.
func (s *Server) handleTextGenKey(w http.ResponseWriter, r *http.Request) {
	store := s.app.Storage.InternalStore()

	switch r.Method {
	case http.MethodPut:
		var req struct {
			APIKey string `json:"api_key"`
		}
		if !DecodeJSON(w, r, &req) {
			return
		}
		if strings.TrimSpace(req.APIKey) == "" {
			WriteError(w, http.StatusBadRequest, "api_key is required")
			return
		}
		if err := store.SetSystemKV(r.Context(), "textgen_api_key", req.APIKey); err != nil {
			s.logger.Error().Err(err).Msg("Failed to store text generation API key")
			WriteError(w, http.StatusInternalServerError, "Failed to store API key")
			return
		}
		s.logger.Info().Msg("Text generation API key stored")
		WriteJSON(w, http.StatusOK, map[string]interface{}{
			"stored": true,
			"active": s.app.TextGenClient != nil,
		})
	case http.MethodDelete:
		if err := store.DeleteSystemKV(r.Context(), "textgen_api_key"); err != nil {
			s.logger.Error().Err(err).Msg("Failed to delete text generation API key")
			WriteError(w, http.StatusInternalServerError, "Failed to delete API key")
			return
		}
		WriteJSON(w, http.StatusOK, map[string]interface{}{"stored": false})
	default:
		RequireMethod(w, r, http.MethodPut, http.MethodDelete)
	}
}

// handleShutdown handles POST /api/shutdown (dev mode only).
func (s *Server) handleShutdown(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodPost) {
		return
	}

	if s.app.Config.IsProduction() {
		WriteError(w, http.StatusForbidden, "Shutdown endpoint disabled in production")
		return
	}

	s.logger.Info().Msg("Shutdown requested via HTTP endpoint")

	w.WriteHeader(http.StatusOK)
	w.Write([]byte("Shutting down gracefully...\n"))

	if flusher, ok := w.(http.Flusher); ok {
		flusher.Flush()
	}

	if s.shutdownChan != nil {
		go func() {
			time.Sleep(100 * time.Millisecond)
			s.shutdownChan <- struct{}{}
		}()
	}
}

func (s *Server) handleMemstats(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}
	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"heap_alloc_bytes": m.HeapAlloc,
		"heap_inuse_bytes": m.HeapInuse,
		"sys_bytes":        m.Sys,
		"num_gc":           m.NumGC,
		"heap_alloc_mb":    float64(m.HeapAlloc) / 1024 / 1024,
		"heap_inuse_mb":    float64(m.HeapInuse) / 1024 / 1024,
		"sys_mb":           float64(m.Sys) / 1024 / 1024,
	})
}
