package domain

import (
	"time"

	"github.com/google/uuid"
)

// ExpenseStatus is the settlement state of an expense. It is a closed
// three-value enumeration derived from (paid, total) — it is never set
// independently of a payment application, and there is no "unknown" fallback.
type ExpenseStatus string

const (
	// StatusOpen means nothing has been paid yet (paid == 0).
	StatusOpen ExpenseStatus = "open"
	// StatusPartial means something but not everything has been paid
	// (0 < paid < total).
	StatusPartial ExpenseStatus = "partial"
	// StatusSettled means the paid amount reached or exceeded the total.
	// Settled is terminal: no further payments are accepted.
	StatusSettled ExpenseStatus = "settled"
)

// StatusFor derives the settlement status from the paid and total amounts.
// This is the single source of truth for the state machine; the stored
// status column is only a cached projection of this function.
func StatusFor(paid, total Money) ExpenseStatus {
	switch {
	case paid <= 0:
		return StatusOpen
	case paid < total:
		return StatusPartial
	default:
		return StatusSettled
	}
}

// DefaultExpenseDescription fills the free-text description when the creator
// leaves it blank.
const DefaultExpenseDescription = "No description"

// Expense is a shared cost item within a trip, tracked against a total
// amount. Paid and Status only ever change through atomic payment
// application; expenses are never edited or deleted by members.
type Expense struct {
	ID     uuid.UUID
	TripID uuid.UUID

	Title       string
	Description string

	// Total is the full amount owed, always > 0.
	Total Money

	// Paid is the running sum of all recorded payments. It may exceed Total
	// on the settling payment (overpayment sticks), never afterwards.
	Paid Money

	// Status is always StatusFor(Paid, Total).
	Status ExpenseStatus

	CreatorID   string
	CreatorName string

	CreatedAt time.Time
	UpdatedAt time.Time
}

// Settled reports whether the expense has reached its terminal state.
func (e Expense) Settled() bool { return e.Status == StatusSettled }
