// Expense report export: a flat table of every expense and payment in a trip.
// Supports content negotiation via ?format=csv (CSV) or default (JSON).
package handler

import (
	"bytes"
	"encoding/csv"
	"net/http"
	"strconv"
	"time"

	"github.com/viagemapp/tripledger/internal/domain"
)

// csvHeaders defines the column names written as the first row of any CSV export.
var csvHeaders = []string{
	"expense_id", "expense_title", "expense_total", "expense_paid",
	"expense_status", "payment_id", "payment_amount", "payer_name", "paid_at",
}

// reportRowResponse is the JSON shape of one export row. Payment fields are
// omitted for expenses without payments.
type reportRowResponse struct {
	ExpenseID     string        `json:"expense_id"`
	ExpenseTitle  string        `json:"expense_title"`
	ExpenseTotal  domain.Money  `json:"expense_total"`
	ExpensePaid   domain.Money  `json:"expense_paid"`
	ExpenseStatus string        `json:"expense_status"`
	PaymentID     string        `json:"payment_id,omitempty"`
	PaymentAmount *domain.Money `json:"payment_amount,omitempty"`
	PayerName     string        `json:"payer_name,omitempty"`
	PaidAt        *time.Time    `json:"paid_at,omitempty"`
}

// handleExport handles GET /trips/{tripID}/export.
// It returns a flat table of every expense and payment combination.
// Use ?format=csv to receive CSV; default is JSON.
func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	tripID, ok := pathUUID(r, "tripID")
	if !ok {
		writeError(w, r, domain.ErrNotFound)
		return
	}

	rows, err := s.reports.Export(r.Context(), tripID)
	if err != nil {
		writeError(w, r, err)
		return
	}

	if r.URL.Query().Get("format") == "csv" {
		writeCSVReport(w, rows)
		return
	}
	writeJSONReport(w, rows)
}

func writeJSONReport(w http.ResponseWriter, rows []domain.ReportRow) {
	out := make([]reportRowResponse, 0, len(rows))
	for _, row := range rows {
		resp := reportRowResponse{
			ExpenseID:     row.ExpenseID,
			ExpenseTitle:  row.ExpenseTitle,
			ExpenseTotal:  row.ExpenseTotal,
			ExpensePaid:   row.ExpensePaid,
			ExpenseStatus: string(row.ExpenseStatus),
			PayerName:     row.PayerName,
			PaidAt:        row.PaidAt,
		}
		if row.PaymentID != "" {
			resp.PaymentID = row.PaymentID
			amount := row.PaymentAmount
			resp.PaymentAmount = &amount
		}
		out = append(out, resp)
	}
	writeJSON(w, http.StatusOK, out)
}

// writeCSVReport encodes rows as CSV. The buffer is assembled first so a
// mid-encode failure cannot truncate a 200 response.
func writeCSVReport(w http.ResponseWriter, rows []domain.ReportRow) {
	var buf bytes.Buffer
	cw := csv.NewWriter(&buf)

	//nolint:errcheck — bytes.Buffer.Write never returns an error.
	cw.Write(csvHeaders)
	for _, row := range rows {
		//nolint:errcheck
		cw.Write(reportRowToCSVRecord(row))
	}
	cw.Flush()

	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf.Bytes())
}

// reportRowToCSVRecord encodes one report row as a flat string slice.
// Zero payment fields are encoded as empty strings.
func reportRowToCSVRecord(row domain.ReportRow) []string {
	paymentAmount := ""
	paidAt := ""
	if row.PaymentID != "" {
		paymentAmount = row.PaymentAmount.String()
	}
	if row.PaidAt != nil {
		paidAt = row.PaidAt.UTC().Format(time.RFC3339)
	}
	return []string{
		row.ExpenseID,
		row.ExpenseTitle,
		row.ExpenseTotal.String(),
		row.ExpensePaid.String(),
		string(row.ExpenseStatus),
		row.PaymentID,
		paymentAmount,
		row.PayerName,
		paidAt,
	}
}
