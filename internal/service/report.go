package service

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/viagemapp/tripledger/internal/domain"
	"github.com/viagemapp/tripledger/internal/repo"
)

// ReportService assembles a flat export of a trip's expenses and payments.
type ReportService struct {
	trips    repo.TripRepo
	expenses repo.ExpenseRepo
}

// NewReportService constructs a ReportService backed by the provided repos.
func NewReportService(trips repo.TripRepo, expenses repo.ExpenseRepo) *ReportService {
	return &ReportService{trips: trips, expenses: expenses}
}

// reportPageLimit is the page size Export walks payment history with. Export
// keeps paging until the repo's total count is reached, so the report is
// complete regardless of how many payments an expense has.
const reportPageLimit = 100

// Export returns one ReportRow per payment across all of the trip's expenses.
// Expenses with no payments contribute one row with empty payment fields.
// Returns domain.ErrNotFound if the trip does not exist.
func (s *ReportService) Export(ctx context.Context, tripID uuid.UUID) ([]domain.ReportRow, error) {
	if _, err := s.trips.GetByID(ctx, tripID); err != nil {
		return nil, fmt.Errorf("service.ReportService.Export: %w", err)
	}

	expenses, err := s.expenses.ListByTrip(ctx, tripID)
	if err != nil {
		return nil, fmt.Errorf("service.ReportService.Export: %w", err)
	}

	rows := []domain.ReportRow{}
	for _, e := range expenses {
		base := domain.ReportRow{
			ExpenseID:     e.ID.String(),
			ExpenseTitle:  e.Title,
			ExpenseTotal:  e.Total,
			ExpensePaid:   e.Paid,
			ExpenseStatus: e.Status,
		}

		payments, err := s.allPayments(ctx, e.ID)
		if err != nil {
			return nil, fmt.Errorf("service.ReportService.Export: %w", err)
		}

		if len(payments) == 0 {
			rows = append(rows, base)
			continue
		}
		for _, p := range payments {
			row := base
			row.PaymentID = p.ID.String()
			row.PaymentAmount = p.Amount
			row.PayerName = p.PayerName
			paidAt := p.CreatedAt
			row.PaidAt = &paidAt
			rows = append(rows, row)
		}
	}
	return rows, nil
}

// allPayments drains an expense's payment history page by page.
func (s *ReportService) allPayments(ctx context.Context, expenseID uuid.UUID) ([]domain.Payment, error) {
	page := domain.PaginationParams{Page: 1, Limit: reportPageLimit}
	payments := []domain.Payment{}
	for {
		batch, total, err := s.expenses.ListPayments(ctx, expenseID, page)
		if err != nil {
			return nil, err
		}
		payments = append(payments, batch...)
		// The empty-batch check guards against looping forever if rows
		// disappear between the count and a later page read.
		if int64(len(payments)) >= total || len(batch) == 0 {
			return payments, nil
		}
		page.Page++
	}
}
