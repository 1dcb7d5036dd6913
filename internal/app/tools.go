package app

import (
	"github.com/mark3labs/mcp-go/mcp"
)

// createGetVersionTool returns the get_version tool definition
func createGetVersionTool() mcp.Tool {
	return mcp.NewTool("get_version",
		mcp.WithDescription("Get the finsight server version and status. Use this to verify connectivity."),
	)
}

// createGetSpendingTool returns the get_spending tool definition
func createGetSpendingTool() mcp.Tool {
	return mcp.NewTool("get_spending",
		mcp.WithDescription("Get spending totals grouped by category over the selected window. Uncategorized expenses are reported as their own bucket."),
		mcp.WithString("granularity",
			mcp.Description("Window size: 'month' (6 months), 'quarter' (12 months), or 'year' (36 months). Default: month"),
		),
	)
}

// createGetPeriodsTool returns the get_periods tool definition
func createGetPeriodsTool() mcp.Tool {
	return mcp.NewTool("get_periods",
		mcp.WithDescription("Get per-month income, expense, and contribution totals over the selected window."),
		mcp.WithString("granularity",
			mcp.Description("Window size: 'month', 'quarter', or 'year'. Default: month"),
		),
	)
}

// createGetSavingsTool returns the get_savings tool definition
func createGetSavingsTool() mcp.Tool {
	return mcp.NewTool("get_savings",
		mcp.WithDescription("Get per-month aggregates plus the latest savings rate (income minus expenses over income)."),
		mcp.WithString("granularity",
			mcp.Description("Window size: 'month', 'quarter', or 'year'. Default: month"),
		),
	)
}

// createGetTrendsTool returns the get_trends tool definition
func createGetTrendsTool() mcp.Tool {
	return mcp.NewTool("get_trends",
		mcp.WithDescription("Compare per-category spending between the current window and the previous window of equal length, biggest movers first."),
		mcp.WithString("granularity",
			mcp.Description("Window size: 'month', 'quarter', or 'year'. Default: month"),
		),
	)
}

// createGetAnomaliesTool returns the get_anomalies tool definition
func createGetAnomaliesTool() mcp.Tool {
	return mcp.NewTool("get_anomalies",
		mcp.WithDescription("Scan transactions for statistical spikes, duplicates, uncategorized patterns, frequency outliers, and data errors. Needs at least 5 transactions."),
		mcp.WithString("granularity",
			mcp.Description("Window size: 'month', 'quarter', or 'year'. Default: month"),
		),
	)
}

// createGetInsightsTool returns the get_insights tool definition
func createGetInsightsTool() mcp.Tool {
	return mcp.NewTool("get_insights",
		mcp.WithDescription("Get textual insights for a report. Served from a 7-day cache when available; otherwise generated (AI with heuristic fallback)."),
		mcp.WithString("report_kind",
			mcp.Required(),
			mcp.Description("Report to analyze: 'spending', 'savings', or 'trends'"),
		),
		mcp.WithString("granularity",
			mcp.Description("Window size: 'month', 'quarter', or 'year'. Default: month"),
		),
		mcp.WithBoolean("refresh",
			mcp.Description("Force regeneration, bypassing the cache (default: false)"),
		),
	)
}

// createAddTransactionTool returns the add_transaction tool definition
func createAddTransactionTool() mcp.Tool {
	return mcp.NewTool("add_transaction",
		mcp.WithDescription("Record a transaction in the ledger."),
		mcp.WithNumber("amount",
			mcp.Required(),
			mcp.Description("Non-negative amount; the kind determines direction"),
		),
		mcp.WithString("date",
			mcp.Required(),
			mcp.Description("Transaction date in RFC 3339 or YYYY-MM-DD form"),
		),
		mcp.WithString("kind",
			mcp.Required(),
			mcp.Description("Transaction kind: 'income', 'expense', 'contribution', or 'transfer'"),
		),
		mcp.WithString("account",
			mcp.Required(),
			mcp.Description("Account the transaction belongs to (e.g. 'everyday', 'savings')"),
		),
		mcp.WithString("category_id",
			mcp.Description("Category ID; only valid for income and expense kinds"),
		),
		mcp.WithString("description",
			mcp.Description("Free-text description (max 500 characters)"),
		),
	)
}

// createListTransactionsTool returns the list_transactions tool definition
func createListTransactionsTool() mcp.Tool {
	return mcp.NewTool("list_transactions",
		mcp.WithDescription("List transactions sorted by date ascending, optionally bounded by a date range."),
		mcp.WithString("from",
			mcp.Description("Inclusive lower bound, RFC 3339 or YYYY-MM-DD"),
		),
		mcp.WithString("to",
			mcp.Description("Inclusive upper bound, RFC 3339 or YYYY-MM-DD"),
		),
	)
}

// createAddCategoryTool returns the add_category tool definition
func createAddCategoryTool() mcp.Tool {
	return mcp.NewTool("add_category",
		mcp.WithDescription("Create a spending/income category."),
		mcp.WithString("name",
			mcp.Required(),
			mcp.Description("Category name (max 100 characters; 'Uncategorized' is reserved)"),
		),
		mcp.WithString("color",
			mcp.Description("Display color as a hex string (e.g. '#e74c3c')"),
		),
	)
}

// createListCategoriesTool returns the list_categories tool definition
func createListCategoriesTool() mcp.Tool {
	return mcp.NewTool("list_categories",
		mcp.WithDescription("List categories sorted by name."),
	)
}
