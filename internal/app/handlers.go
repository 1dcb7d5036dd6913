package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/budgetme/finsight/internal/common"
	"github.com/budgetme/finsight/internal/interfaces"
	"github.com/budgetme/finsight/internal/models"
)

// parseGranularity reads the optional granularity parameter, defaulting to
// month. Validation happens in the report facade.
func parseGranularity(request mcp.CallToolRequest) models.Granularity {
	return models.Granularity(request.GetString("granularity", string(models.GranularityMonth)))
}

// parseDate accepts RFC 3339 or bare YYYY-MM-DD dates.
func parseDate(value string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, value); err == nil {
		return t, nil
	}
	if t, err := time.Parse("2006-01-02", value); err == nil {
		return t, nil
	}
	return time.Time{}, fmt.Errorf("unrecognized date %q", value)
}

// handleGetVersion implements the get_version tool
func handleGetVersion() server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		result := fmt.Sprintf("finsight server\nVersion: %s\nBuild: %s\nCommit: %s\nStatus: OK",
			common.GetVersion(), common.GetBuild(), common.GetGitCommit())
		return textResult(result), nil
	}
}

// handleGetSpending implements the get_spending tool
func handleGetSpending(reports interfaces.ReportService, logger *common.Logger) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		g := parseGranularity(request)
		data, err := reports.GetSpending(ctx, g)
		if err != nil {
			logger.Error().Err(err).Msg("Spending report failed")
			return errorResult(fmt.Sprintf("Spending error: %v", err)), nil
		}
		return jsonResult(data), nil
	}
}

// handleGetPeriods implements the get_periods tool
func handleGetPeriods(reports interfaces.ReportService, logger *common.Logger) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		g := parseGranularity(request)
		periods, err := reports.GetPeriods(ctx, g)
		if err != nil {
			logger.Error().Err(err).Msg("Period report failed")
			return errorResult(fmt.Sprintf("Periods error: %v", err)), nil
		}
		return jsonResult(periods), nil
	}
}

// handleGetSavings implements the get_savings tool
func handleGetSavings(reports interfaces.ReportService, logger *common.Logger) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		g := parseGranularity(request)
		data, err := reports.GetSavings(ctx, g)
		if err != nil {
			logger.Error().Err(err).Msg("Savings report failed")
			return errorResult(fmt.Sprintf("Savings error: %v", err)), nil
		}
		return jsonResult(data), nil
	}
}

// handleGetTrends implements the get_trends tool
func handleGetTrends(reports interfaces.ReportService, logger *common.Logger) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		g := parseGranularity(request)
		data, err := reports.GetTrends(ctx, g)
		if err != nil {
			logger.Error().Err(err).Msg("Trend report failed")
			return errorResult(fmt.Sprintf("Trends error: %v", err)), nil
		}
		return jsonResult(data), nil
	}
}

// handleGetAnomalies implements the get_anomalies tool
func handleGetAnomalies(reports interfaces.ReportService, logger *common.Logger) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		g := parseGranularity(request)
		anomalies, err := reports.GetAnomalies(ctx, g)
		if err != nil {
			logger.Error().Err(err).Msg("Anomaly scan failed")
			return errorResult(fmt.Sprintf("Anomaly error: %v", err)), nil
		}
		return jsonResult(anomalies), nil
	}
}

// handleGetInsights implements the get_insights tool
func handleGetInsights(orchestrator *Orchestrator, logger *common.Logger) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		kindStr, err := request.RequireString("report_kind")
		if err != nil || kindStr == "" {
			return errorResult("Error: report_kind parameter is required"), nil
		}
		g := parseGranularity(request)
		refresh := request.GetBool("refresh", false)

		result, err := orchestrator.GetOrGenerateInsights(ctx, models.ReportKind(kindStr), g, refresh)
		if errors.Is(err, ErrGenerationInFlight) {
			return errorResult("Insight generation already in progress for this report; retry shortly"), nil
		}
		if err != nil {
			logger.Error().Err(err).Str("report_kind", kindStr).Msg("Insight request failed")
			return errorResult(fmt.Sprintf("Insight error: %v", err)), nil
		}
		return jsonResult(result), nil
	}
}

// handleAddTransaction implements the add_transaction tool
func handleAddTransaction(ledger interfaces.LedgerService, logger *common.Logger) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		amount := request.GetFloat("amount", -1)
		dateStr, err := request.RequireString("date")
		if err != nil || dateStr == "" {
			return errorResult("Error: date parameter is required"), nil
		}
		date, err := parseDate(dateStr)
		if err != nil {
			return errorResult(fmt.Sprintf("Error: %v", err)), nil
		}
		kind, err := request.RequireString("kind")
		if err != nil || kind == "" {
			return errorResult("Error: kind parameter is required"), nil
		}
		account, err := request.RequireString("account")
		if err != nil || account == "" {
			return errorResult("Error: account parameter is required"), nil
		}

		tx, err := ledger.AddTransaction(ctx, interfaces.TransactionInput{
			Amount:      amount,
			Date:        date,
			Kind:        models.TransactionKind(kind),
			CategoryID:  request.GetString("category_id", ""),
			Account:     account,
			Description: request.GetString("description", ""),
		})
		if err != nil {
			logger.Error().Err(err).Msg("Add transaction failed")
			return errorResult(fmt.Sprintf("Transaction error: %v", err)), nil
		}
		return jsonResult(tx), nil
	}
}

// handleListTransactions implements the list_transactions tool
func handleListTransactions(ledger interfaces.LedgerService, logger *common.Logger) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		var r models.DateRange
		if from := request.GetString("from", ""); from != "" {
			t, err := parseDate(from)
			if err != nil {
				return errorResult(fmt.Sprintf("Error: %v", err)), nil
			}
			r.From = t
		}
		if to := request.GetString("to", ""); to != "" {
			t, err := parseDate(to)
			if err != nil {
				return errorResult(fmt.Sprintf("Error: %v", err)), nil
			}
			r.To = t
		}

		txs, err := ledger.FetchTransactions(ctx, r)
		if err != nil {
			logger.Error().Err(err).Msg("List transactions failed")
			return errorResult(fmt.Sprintf("Transaction error: %v", err)), nil
		}
		return jsonResult(txs), nil
	}
}

// handleAddCategory implements the add_category tool
func handleAddCategory(ledger interfaces.LedgerService, logger *common.Logger) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		name, err := request.RequireString("name")
		if err != nil || name == "" {
			return errorResult("Error: name parameter is required"), nil
		}
		cat, err := ledger.AddCategory(ctx, name, request.GetString("color", ""))
		if err != nil {
			logger.Error().Err(err).Msg("Add category failed")
			return errorResult(fmt.Sprintf("Category error: %v", err)), nil
		}
		return jsonResult(cat), nil
	}
}

// handleListCategories implements the list_categories tool
func handleListCategories(ledger interfaces.LedgerService, logger *common.Logger) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		cats, err := ledger.ListCategories(ctx)
		if err != nil {
			logger.Error().Err(err).Msg("List categories failed")
			return errorResult(fmt.Sprintf("Category error: %v", err)), nil
		}
		return jsonResult(cats), nil
	}
}

// textResult wraps plain text in a tool result
func textResult(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.NewTextContent(text),
		},
	}
}

// jsonResult marshals a value into a text tool result
func jsonResult(v any) *mcp.CallToolResult {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return errorResult(fmt.Sprintf("Encoding error: %v", err))
	}
	return textResult(string(data))
}

// errorResult wraps an error message in a tool result
func errorResult(message string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.NewTextContent(message),
		},
		IsError: true,
	}
}
