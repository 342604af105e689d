package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/viagemapp/tripledger/internal/domain"
	"github.com/viagemapp/tripledger/internal/repo"
)

// ExpenseService implements the expense ledger: expense creation and the
// settlement state machine. It holds both repos because every operation is
// scoped to a trip and gated on that trip's membership or creator.
type ExpenseService struct {
	trips    repo.TripRepo
	expenses repo.ExpenseRepo
}

// NewExpenseService constructs an ExpenseService backed by the provided repos.
func NewExpenseService(trips repo.TripRepo, expenses repo.ExpenseRepo) *ExpenseService {
	return &ExpenseService{trips: trips, expenses: expenses}
}

// Create validates and persists a new expense under the trip.
// Only the trip's creator may add expenses — a deliberately narrow rule, not
// a general ACL. Returns domain.ErrUnauthorized for anyone else,
// domain.ErrValidation for a blank title or non-positive total, and
// domain.ErrNotFound if the trip does not exist.
func (s *ExpenseService) Create(ctx context.Context, actor domain.Actor, tripID uuid.UUID, title, description string, total domain.Money) (domain.Expense, error) {
	trip, err := s.trips.GetByID(ctx, tripID)
	if err != nil {
		return domain.Expense{}, fmt.Errorf("service.ExpenseService.Create: %w", err)
	}
	if trip.CreatorID != actor.ID {
		return domain.Expense{}, fmt.Errorf("service.ExpenseService.Create: only the trip creator may add expenses: %w", domain.ErrUnauthorized)
	}

	if strings.TrimSpace(title) == "" {
		return domain.Expense{}, fmt.Errorf("%w: title is required", domain.ErrValidation)
	}
	if !total.Positive() {
		return domain.Expense{}, fmt.Errorf("%w: total must be positive", domain.ErrValidation)
	}

	description = strings.TrimSpace(description)
	if description == "" {
		description = domain.DefaultExpenseDescription
	}

	expense := domain.Expense{
		TripID:      tripID,
		Title:       strings.TrimSpace(title),
		Description: description,
		Total:       total,
		CreatorID:   actor.ID,
		CreatorName: actor.DisplayName,
	}

	created, err := s.expenses.Create(ctx, expense)
	if err != nil {
		return domain.Expense{}, fmt.Errorf("service.ExpenseService.Create: %w", err)
	}
	return created, nil
}

// Pay records a payment by the actor against an expense. Any trip member may
// pay; the amount must be positive. The repo applies the payment atomically:
// aggregate update and payment record commit together or not at all.
//
// Returns domain.ErrValidation for a non-positive amount,
// domain.ErrUnauthorized if the actor is not a member of the trip,
// domain.ErrExpenseSettled if the expense is already settled, and
// domain.ErrConcurrency if the ledger stayed contended past bounded retries.
func (s *ExpenseService) Pay(ctx context.Context, actor domain.Actor, tripID, expenseID uuid.UUID, amount domain.Money) (domain.Expense, domain.Payment, error) {
	if !amount.Positive() {
		return domain.Expense{}, domain.Payment{}, fmt.Errorf("%w: amount must be positive", domain.ErrValidation)
	}

	trip, err := s.trips.GetByID(ctx, tripID)
	if err != nil {
		return domain.Expense{}, domain.Payment{}, fmt.Errorf("service.ExpenseService.Pay: %w", err)
	}
	if !trip.HasMember(actor.ID) {
		return domain.Expense{}, domain.Payment{}, fmt.Errorf("service.ExpenseService.Pay: only trip members may pay: %w", domain.ErrUnauthorized)
	}

	expense, payment, err := s.expenses.ApplyPayment(ctx, tripID, expenseID, actor, amount)
	if err != nil {
		return domain.Expense{}, domain.Payment{}, fmt.Errorf("service.ExpenseService.Pay: %w", err)
	}
	return expense, payment, nil
}

// GetByID returns a single expense scoped to its trip.
func (s *ExpenseService) GetByID(ctx context.Context, tripID, expenseID uuid.UUID) (domain.Expense, error) {
	expense, err := s.expenses.GetByID(ctx, tripID, expenseID)
	if err != nil {
		return domain.Expense{}, fmt.Errorf("service.ExpenseService.GetByID: %w", err)
	}
	return expense, nil
}

// ListByTrip returns all expenses for a trip, newest first.
// Always returns a non-nil slice so callers can safely range over it.
func (s *ExpenseService) ListByTrip(ctx context.Context, tripID uuid.UUID) ([]domain.Expense, error) {
	if _, err := s.trips.GetByID(ctx, tripID); err != nil {
		return nil, fmt.Errorf("service.ExpenseService.ListByTrip: %w", err)
	}
	expenses, err := s.expenses.ListByTrip(ctx, tripID)
	if err != nil {
		return nil, fmt.Errorf("service.ExpenseService.ListByTrip: %w", err)
	}
	if expenses == nil {
		return []domain.Expense{}, nil
	}
	return expenses, nil
}

// ListPayments returns one page of an expense's payment history in creation
// order, plus the total count. Ordering is for display only — settlement
// correctness rests on the atomic aggregate, never on read order.
func (s *ExpenseService) ListPayments(ctx context.Context, tripID, expenseID uuid.UUID, p domain.PaginationParams) ([]domain.Payment, int64, error) {
	// Verify the expense exists under this trip before reading its history,
	// so a valid expense ID under the wrong trip 404s instead of leaking.
	if _, err := s.expenses.GetByID(ctx, tripID, expenseID); err != nil {
		return nil, 0, fmt.Errorf("service.ExpenseService.ListPayments: %w", err)
	}

	payments, total, err := s.expenses.ListPayments(ctx, expenseID, p)
	if err != nil {
		return nil, 0, fmt.Errorf("service.ExpenseService.ListPayments: %w", err)
	}
	if payments == nil {
		payments = []domain.Payment{}
	}
	return payments, total, nil
}
