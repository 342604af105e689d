// Package notify carries ledger change events from the database to read
// projections over Postgres LISTEN/NOTIFY. Delivery is best-effort by design:
// settlement correctness depends only on the ledger transaction itself, and
// observers that miss an event simply re-read the current state.
package notify

import (
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
)

// Channel is the Postgres notification channel ledger events are published on.
const Channel = "ledger_events"

// Event kinds published by the repo layer.
const (
	KindExpenseCreated = "expense_created"
	KindPaymentApplied = "payment_applied"
	KindMemberJoined   = "member_joined"
)

// Event is one ledger change, serialized as the NOTIFY payload.
// Postgres caps payloads at 8000 bytes; this struct stays far under.
type Event struct {
	Kind      string    `json:"kind"`
	TripID    uuid.UUID `json:"trip_id"`
	ExpenseID uuid.UUID `json:"expense_id,omitzero"`

	// Status is the expense status after the change. Empty for membership
	// events.
	Status string `json:"status,omitempty"`

	// MemberID is set only on member_joined events.
	MemberID string `json:"member_id,omitempty"`
}

// Payload renders the event as the JSON string passed to pg_notify.
func (e Event) Payload() (string, error) {
	b, err := json.Marshal(e)
	if err != nil {
		return "", fmt.Errorf("notify.Event.Payload: %w", err)
	}
	return string(b), nil
}

// ParseEvent decodes a NOTIFY payload produced by Payload.
func ParseEvent(payload string) (Event, error) {
	var e Event
	if err := json.Unmarshal([]byte(payload), &e); err != nil {
		return Event{}, fmt.Errorf("notify.ParseEvent: %w", err)
	}
	return e, nil
}
