package handler

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/viagemapp/tripledger/internal/domain"
)

// createExpenseRequest is the body for POST /trips/{tripID}/expenses.
type createExpenseRequest struct {
	Title       string       `json:"title"`
	Description string       `json:"description,omitempty"`
	Total       domain.Money `json:"total"`
}

// createPaymentRequest is the body for POST .../expenses/{expenseID}/payments.
type createPaymentRequest struct {
	Amount domain.Money `json:"amount"`
}

// expenseResponse is the JSON representation of an expense.
type expenseResponse struct {
	ID          string       `json:"id"`
	TripID      string       `json:"trip_id"`
	Title       string       `json:"title"`
	Description string       `json:"description"`
	Total       domain.Money `json:"total"`
	Paid        domain.Money `json:"paid"`
	Status      string       `json:"status"`
	CreatorID   string       `json:"creator_id"`
	CreatorName string       `json:"creator_name"`
	CreatedAt   time.Time    `json:"created_at"`
	UpdatedAt   time.Time    `json:"updated_at"`
}

type paymentResponse struct {
	ID        string       `json:"id"`
	ExpenseID string       `json:"expense_id"`
	Amount    domain.Money `json:"amount"`
	PayerID   string       `json:"payer_id"`
	PayerName string       `json:"payer_name"`
	CreatedAt time.Time    `json:"created_at"`
}

// paymentResult is returned by the payment endpoint: the recorded payment
// plus the expense state it produced, so clients update in one round trip.
type paymentResult struct {
	Expense expenseResponse `json:"expense"`
	Payment paymentResponse `json:"payment"`
}

type paginationResponse struct {
	Page  int   `json:"page"`
	Limit int   `json:"limit"`
	Total int64 `json:"total"`
}

// handleCreateExpense handles POST /trips/{tripID}/expenses. Creator only.
func (s *Server) handleCreateExpense(w http.ResponseWriter, r *http.Request) {
	tripID, ok := pathUUID(r, "tripID")
	if !ok {
		writeError(w, r, domain.ErrNotFound)
		return
	}

	var req createExpenseRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeRequestError(w, "invalid request body")
		return
	}

	created, err := s.expenses.Create(r.Context(), actor(r), tripID, req.Title, req.Description, req.Total)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, expenseToResponse(created))
}

// handleListExpenses handles GET /trips/{tripID}/expenses.
func (s *Server) handleListExpenses(w http.ResponseWriter, r *http.Request) {
	tripID, ok := pathUUID(r, "tripID")
	if !ok {
		writeError(w, r, domain.ErrNotFound)
		return
	}

	expenses, err := s.expenses.ListByTrip(r.Context(), tripID)
	if err != nil {
		writeError(w, r, err)
		return
	}

	data := make([]expenseResponse, len(expenses))
	for i, e := range expenses {
		data[i] = expenseToResponse(e)
	}
	writeJSON(w, http.StatusOK, map[string]any{"data": data})
}

// handleGetExpense handles GET /trips/{tripID}/expenses/{expenseID}.
func (s *Server) handleGetExpense(w http.ResponseWriter, r *http.Request) {
	tripID, ok := pathUUID(r, "tripID")
	if !ok {
		writeError(w, r, domain.ErrNotFound)
		return
	}
	expenseID, ok := pathUUID(r, "expenseID")
	if !ok {
		writeError(w, r, domain.ErrNotFound)
		return
	}

	expense, err := s.expenses.GetByID(r.Context(), tripID, expenseID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, expenseToResponse(expense))
}

// handleCreatePayment handles POST .../expenses/{expenseID}/payments.
// Any trip member may pay; the ledger applies the payment atomically.
func (s *Server) handleCreatePayment(w http.ResponseWriter, r *http.Request) {
	tripID, ok := pathUUID(r, "tripID")
	if !ok {
		writeError(w, r, domain.ErrNotFound)
		return
	}
	expenseID, ok := pathUUID(r, "expenseID")
	if !ok {
		writeError(w, r, domain.ErrNotFound)
		return
	}

	var req createPaymentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeRequestError(w, "invalid request body")
		return
	}

	expense, payment, err := s.expenses.Pay(r.Context(), actor(r), tripID, expenseID, req.Amount)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, paymentResult{
		Expense: expenseToResponse(expense),
		Payment: paymentToResponse(payment),
	})
}

// handleListPayments handles GET .../expenses/{expenseID}/payments.
// Supports ?page= and ?limit= query parameters.
func (s *Server) handleListPayments(w http.ResponseWriter, r *http.Request) {
	tripID, ok := pathUUID(r, "tripID")
	if !ok {
		writeError(w, r, domain.ErrNotFound)
		return
	}
	expenseID, ok := pathUUID(r, "expenseID")
	if !ok {
		writeError(w, r, domain.ErrNotFound)
		return
	}

	params := domain.NewPaginationParams(queryInt(r, "page"), queryInt(r, "limit"))
	payments, total, err := s.expenses.ListPayments(r.Context(), tripID, expenseID, params)
	if err != nil {
		writeError(w, r, err)
		return
	}

	data := make([]paymentResponse, len(payments))
	for i, p := range payments {
		data[i] = paymentToResponse(p)
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"data":       data,
		"pagination": paginationResponse{Page: params.Page, Limit: params.Limit, Total: total},
	})
}

// queryInt parses an optional integer query parameter, returning nil when the
// parameter is absent or malformed.
func queryInt(r *http.Request, name string) *int {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return nil
	}
	return &n
}

func expenseToResponse(e domain.Expense) expenseResponse {
	return expenseResponse{
		ID:          e.ID.String(),
		TripID:      e.TripID.String(),
		Title:       e.Title,
		Description: e.Description,
		Total:       e.Total,
		Paid:        e.Paid,
		Status:      string(e.Status),
		CreatorID:   e.CreatorID,
		CreatorName: e.CreatorName,
		CreatedAt:   e.CreatedAt,
		UpdatedAt:   e.UpdatedAt,
	}
}

func paymentToResponse(p domain.Payment) paymentResponse {
	return paymentResponse{
		ID:        p.ID.String(),
		ExpenseID: p.ExpenseID.String(),
		Amount:    p.Amount,
		PayerID:   p.PayerID,
		PayerName: p.PayerName,
		CreatedAt: p.CreatedAt,
	}
}
