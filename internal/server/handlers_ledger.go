package server

import (
	"fmt"
	"net/http"
	"time"

	"github.com/budgetme/finsight/internal/interfaces"
	"github.com/budgetme/finsight/internal/models"
)

// transactionRequest is the JSON body for transaction create/update.
type transactionRequest struct {
	Amount      float64 `json:"amount"`
	Date        string  `json:"date"`
	Kind        string  `json:"kind"`
	CategoryID  string  `json:"category_id,omitempty"`
	Account     string  `json:"account"`
	Description string  `json:"description,omitempty"`
}

// toInput converts the wire request to a service input, parsing the date.
func (req *transactionRequest) toInput() (interfaces.TransactionInput, error) {
	date, err := parseDateParam(req.Date)
	if err != nil {
		return interfaces.TransactionInput{}, err
	}
	return interfaces.TransactionInput{
		Amount:      req.Amount,
		Date:        date,
		Kind:        models.TransactionKind(req.Kind),
		CategoryID:  req.CategoryID,
		Account:     req.Account,
		Description: req.Description,
	}, nil
}

// parseDateParam accepts RFC 3339 or bare YYYY-MM-DD dates.
func parseDateParam(value string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, value); err == nil {
		return t, nil
	}
	if t, err := time.Parse("2006-01-02", value); err == nil {
		return t, nil
	}
	return time.Time{}, fmt.Errorf("unrecognized date %q", value)
}

// handleTransactions handles GET (list) and POST (create) on /api/transactions.
func (s *Server) handleTransactions(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		s.handleTransactionList(w, r)
	case http.MethodPost:
		s.handleTransactionCreate(w, r)
	default:
		RequireMethod(w, r, http.MethodGet, http.MethodPost)
	}
}

func (s *Server) handleTransactionList(w http.ResponseWriter, r *http.Request) {
	var dateRange models.DateRange
	if from := r.URL.Query().Get("from"); from != "" {
		t, err := parseDateParam(from)
		if err != nil {
			WriteError(w, http.StatusBadRequest, fmt.Sprintf("Invalid from date: %v", err))
			return
		}
		dateRange.From = t
	}
	if to := r.URL.Query().Get("to"); to != "" {
		t, err := parseDateParam(to)
		if err != nil {
			WriteError(w, http.StatusBadRequest, fmt.Sprintf("Invalid to date: %v", err))
			return
		}
		dateRange.To = t
	}

	txs, err := s.app.LedgerService.FetchTransactions(r.Context(), dateRange)
	if err != nil {
		WriteError(w, http.StatusInternalServerError, fmt.Sprintf("Error listing transactions: %v", err))
		return
	}

	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"transactions": txs,
		"count":        len(txs),
	})
}

func (s *Server) handleTransactionCreate(w http.ResponseWriter, r *http.Request) {
	var req transactionRequest
	if !DecodeJSON(w, r, &req) {
		return
	}
	input, err := req.toInput()
	if err != nil {
		WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	tx, err := s.app.LedgerService.AddTransaction(r.Context(), input)
	if err != nil {
		WriteError(w, http.StatusBadRequest, fmt.Sprintf("Transaction rejected: %v", err))
		return
	}

	WriteJSON(w, http.StatusCreated, tx)
}

// handleTransactionByID handles GET, PUT, and DELETE on /api/transactions/{id}.
func (s *Server) handleTransactionByID(w http.ResponseWriter, r *http.Request) {
	txID := PathParam(r, "/api/transactions/", "")
	if txID == "" {
		s.handleTransactions(w, r)
		return
	}

	switch r.Method {
	case http.MethodGet:
		tx, err := s.app.LedgerService.GetTransaction(r.Context(), txID)
		if err != nil {
			WriteError(w, http.StatusNotFound, fmt.Sprintf("Transaction not found: %v", err))
			return
		}
		WriteJSON(w, http.StatusOK, tx)

	case http.MethodPut:
		var req transactionRequest
		if !DecodeJSON(w, r, &req) {
			return
		}
		input, err := req.toInput()
		if err != nil {
			WriteError(w, http.StatusBadRequest, err.Error())
			return
		}
		tx, err := s.app.LedgerService.UpdateTransaction(r.Context(), txID, input)
		if err != nil {
			WriteError(w, http.StatusBadRequest, fmt.Sprintf("Update rejected: %v", err))
			return
		}
		WriteJSON(w, http.StatusOK, tx)

	case http.MethodDelete:
		if err := s.app.LedgerService.DeleteTransaction(r.Context(), txID); err != nil {
			WriteError(w, http.StatusNotFound, fmt.Sprintf("Delete failed: %v", err))
			return
		}
		WriteJSON(w, http.StatusOK, map[string]string{"status": "deleted", "id": txID})

	default:
		RequireMethod(w, r, http.MethodGet, http.MethodPut, http.MethodDelete)
	}
}

// handleCategories handles GET (list) and POST (create) on /api/categories.
func (s *Server) handleCategories(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		cats, err := s.app.LedgerService.ListCategories(r.Context())
		if err != nil {
			WriteError(w, http.StatusInternalServerError, fmt.Sprintf("Error listing categories: %v", err))
			return
		}
		WriteJSON(w, http.StatusOK, map[string]interface{}{
			"categories": cats,
			"count":      len(cats),
		})

	case http.MethodPost:
		var req struct {
			Name  string `json:"name"`
			Color string `json:"color,omitempty"`
		}
		if !DecodeJSON(w, r, &req) {
			return
		}
		cat, err := s.app.LedgerService.AddCategory(r.Context(), req.Name, req.Color)
		if err != nil {
			WriteError(w, http.StatusBadRequest, fmt.Sprintf("Category rejected: %v", err))
			return
		}
		WriteJSON(w, http.StatusCreated, cat)

	default:
		RequireMethod(w, r, http.MethodGet, http.MethodPost)
	}
}

// handleCategoryByID handles DELETE on /api/categories/{id}.
func (s *Server) handleCategoryByID(w http.ResponseWriter, r *http.Request) {
	catID := PathParam(r, "/api/categories/", "")
	if catID == "" {
		s.handleCategories(w, r)
		return
	}

	if !RequireMethod(w, r, http.MethodDelete) {
		return
	}

	if err := s.app.LedgerService.DeleteCategory(r.Context(), catID); err != nil {
		WriteError(w, http.StatusNotFound, fmt.Sprintf("Delete failed: %v", err))
		return
	}
	WriteJSON(w, http.StatusOK, map[string]string{"status": "deleted", "id": catID})
}
