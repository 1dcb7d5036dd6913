package server

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/budgetme/finsight/internal/app"
	"github.com/budgetme/finsight/internal/models"
)

// granularityParam reads the optional granularity query parameter,
// defaulting to month. Validation happens in the report facade.
func granularityParam(r *http.Request) models.Granularity {
	if g := r.URL.Query().Get("granularity"); g != "" {
		return models.Granularity(g)
	}
	return models.GranularityMonth
}

func (s *Server) handleReportSpending(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}
	data, err := s.app.ReportService.GetSpending(r.Context(), granularityParam(r))
	if err != nil {
		WriteError(w, http.StatusBadRequest, fmt.Sprintf("Spending report error: %v", err))
		return
	}
	WriteJSON(w, http.StatusOK, data)
}

func (s *Server) handleReportPeriods(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}
	periods, err := s.app.ReportService.GetPeriods(r.Context(), granularityParam(r))
	if err != nil {
		WriteError(w, http.StatusBadRequest, fmt.Sprintf("Period report error: %v", err))
		return
	}
	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"periods": periods,
		"count":   len(periods),
	})
}

func (s *Server) handleReportSavings(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}
	data, err := s.app.ReportService.GetSavings(r.Context(), granularityParam(r))
	if err != nil {
		WriteError(w, http.StatusBadRequest, fmt.Sprintf("Savings report error: %v", err))
		return
	}
	WriteJSON(w, http.StatusOK, data)
}

func (s *Server) handleReportTrends(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}
	data, err := s.app.ReportService.GetTrends(r.Context(), granularityParam(r))
	if err != nil {
		WriteError(w, http.StatusBadRequest, fmt.Sprintf("Trend report error: %v", err))
		return
	}
	WriteJSON(w, http.StatusOK, data)
}

func (s *Server) handleReportAnomalies(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}
	anomalies, err := s.app.ReportService.GetAnomalies(r.Context(), granularityParam(r))
	if err != nil {
		WriteError(w, http.StatusBadRequest, fmt.Sprintf("Anomaly scan error: %v", err))
		return
	}
	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"anomalies": anomalies,
		"count":     len(anomalies),
	})
}

// handleReportInsights serves GET /api/reports/insights?report_kind=...&granularity=...&refresh=...
// Generation goes through the orchestrator so concurrent requests for the
// same key do not race.
func (s *Server) handleReportInsights(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}

	kindStr := r.URL.Query().Get("report_kind")
	if kindStr == "" {
		WriteError(w, http.StatusBadRequest, "report_kind query parameter is required")
		return
	}
	refresh := r.URL.Query().Get("refresh") == "true"

	result, err := s.app.Orchestrator.GetOrGenerateInsights(r.Context(), models.ReportKind(kindStr), granularityParam(r), refresh)
	if errors.Is(err, app.ErrGenerationInFlight) {
		WriteErrorWithCode(w, http.StatusConflict, "Insight generation already in progress for this report; retry shortly", "generation_in_flight")
		return
	}
	if err != nil {
		WriteError(w, http.StatusBadRequest, fmt.Sprintf("Insight error: %v", err))
		return
	}
	WriteJSON(w, http.StatusOK, result)
}
