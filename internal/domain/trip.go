// Package domain contains the core data types for the trip-expense ledger.
// This package has no dependencies beyond uuid and is imported by every other
// internal package (repo, service, handler).
package domain

import (
	"time"

	"github.com/google/uuid"
)

// Trip is the top-level aggregate: a named group context that scopes
// expenses and membership. Anyone holding the join code can become a member;
// the creator is always the first member and the only one who may add
// expenses.
type Trip struct {
	ID          uuid.UUID
	Name        string
	Description string

	// Budget is the optional initial budget. nil means unset; when present
	// it is always >= 0.
	Budget *Money

	// JoinCode is the public 6-character token that grants membership.
	// Immutable once the trip is created, unique among trips.
	JoinCode string

	CreatorID   string
	CreatorName string

	// Members holds every participant in join order. The creator is always
	// present; membership only grows.
	Members []Member

	CreatedAt time.Time
	UpdatedAt time.Time
}

// Member is one participant of a trip.
type Member struct {
	ID          string
	DisplayName string
	JoinedAt    time.Time
}

// HasMember reports whether the actor with the given ID participates in the trip.
func (t Trip) HasMember(actorID string) bool {
	for _, m := range t.Members {
		if m.ID == actorID {
			return true
		}
	}
	return false
}
