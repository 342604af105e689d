package domain

import (
	"time"

	"github.com/google/uuid"
)

// Payment is one immutable contribution toward an expense. Payments are
// append-only audit records: created exactly once inside the same
// transaction that updates the owning expense's aggregate, never edited or
// removed afterwards.
type Payment struct {
	ID        uuid.UUID
	ExpenseID uuid.UUID

	// Amount is always > 0.
	Amount Money

	PayerID   string
	PayerName string

	CreatedAt time.Time
}
