// Package service contains the business logic for the trip-expense ledger.
// Services validate inputs, enforce the authorization rules, and orchestrate
// repo calls. No SQL lives here — services depend on repo interfaces, not
// implementations.
package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/viagemapp/tripledger/internal/domain"
	"github.com/viagemapp/tripledger/internal/repo"
)

// joinCodeAttempts bounds regeneration when a freshly generated join code
// collides with an existing one. Collisions are vanishingly rare in a 36^6
// space, but uniqueness is the store's guarantee, not randomness's.
const joinCodeAttempts = 5

// TripService implements business logic for trip and membership operations.
type TripService struct {
	trips repo.TripRepo
}

// NewTripService constructs a TripService backed by the provided TripRepo.
func NewTripService(trips repo.TripRepo) *TripService {
	return &TripService{trips: trips}
}

// Create validates and persists a new trip. The actor becomes the creator and
// sole initial member, and a fresh join code is generated — regenerated on
// the unlikely collision, a bounded number of times.
// Returns domain.ErrValidation if the name is blank or the budget negative.
func (s *TripService) Create(ctx context.Context, actor domain.Actor, name, description string, budget *domain.Money) (domain.Trip, error) {
	if strings.TrimSpace(name) == "" {
		return domain.Trip{}, fmt.Errorf("%w: name is required", domain.ErrValidation)
	}
	if budget != nil && *budget < 0 {
		return domain.Trip{}, fmt.Errorf("%w: budget must not be negative", domain.ErrValidation)
	}

	trip := domain.Trip{
		Name:        strings.TrimSpace(name),
		Description: strings.TrimSpace(description),
		Budget:      budget,
		CreatorID:   actor.ID,
		CreatorName: actor.DisplayName,
	}

	for attempt := 0; attempt < joinCodeAttempts; attempt++ {
		code, err := domain.GenerateJoinCode()
		if err != nil {
			return domain.Trip{}, fmt.Errorf("service.TripService.Create: %w", err)
		}
		trip.JoinCode = code

		created, err := s.trips.Create(ctx, trip)
		if err == nil {
			return created, nil
		}
		if !errors.Is(err, domain.ErrDuplicateJoinCode) {
			return domain.Trip{}, fmt.Errorf("service.TripService.Create: %w", err)
		}
	}
	return domain.Trip{}, fmt.Errorf("service.TripService.Create: exhausted join code attempts: %w", domain.ErrConcurrency)
}

// Join adds the actor to the trip identified by code. The code is normalized
// (trimmed, uppercased) before lookup.
// Returns domain.ErrNotFound if no trip has that code, and
// domain.ErrAlreadyMember — a benign outcome — if the actor already
// participates. The membership append is a set-union insert, so two
// concurrent joins by different actors both survive.
func (s *TripService) Join(ctx context.Context, actor domain.Actor, code string) (domain.Trip, error) {
	code = domain.NormalizeJoinCode(code)
	if !domain.ValidJoinCode(code) {
		return domain.Trip{}, fmt.Errorf("service.TripService.Join: %w", domain.ErrNotFound)
	}

	trip, err := s.trips.GetByJoinCode(ctx, code)
	if err != nil {
		return domain.Trip{}, fmt.Errorf("service.TripService.Join: %w", err)
	}
	if trip.HasMember(actor.ID) {
		return domain.Trip{}, fmt.Errorf("service.TripService.Join: %w", domain.ErrAlreadyMember)
	}

	member := domain.Member{ID: actor.ID, DisplayName: actor.DisplayName}
	if err := s.trips.AddMember(ctx, trip.ID, member); err != nil {
		return domain.Trip{}, fmt.Errorf("service.TripService.Join: %w", err)
	}

	// Re-read so the returned trip reflects the new membership.
	joined, err := s.trips.GetByID(ctx, trip.ID)
	if err != nil {
		return domain.Trip{}, fmt.Errorf("service.TripService.Join: %w", err)
	}
	return joined, nil
}

// ListForActor returns all trips the actor is a member of, newest first.
// Always returns a non-nil slice so callers can safely range over it.
func (s *TripService) ListForActor(ctx context.Context, actor domain.Actor) ([]domain.Trip, error) {
	trips, err := s.trips.ListByMember(ctx, actor.ID)
	if err != nil {
		return nil, fmt.Errorf("service.TripService.ListForActor: %w", err)
	}
	if trips == nil {
		return []domain.Trip{}, nil
	}
	return trips, nil
}

// GetByID returns a single trip with its member list.
func (s *TripService) GetByID(ctx context.Context, id uuid.UUID) (domain.Trip, error) {
	trip, err := s.trips.GetByID(ctx, id)
	if err != nil {
		return domain.Trip{}, fmt.Errorf("service.TripService.GetByID: %w", err)
	}
	return trip, nil
}

// Delete removes a trip and everything under it. Admin only — ordinary
// members, the creator included, cannot delete a shared ledger out from
// under each other.
// Returns domain.ErrUnauthorized for non-admin actors.
func (s *TripService) Delete(ctx context.Context, actor domain.Actor, id uuid.UUID) error {
	if !actor.Admin {
		return fmt.Errorf("service.TripService.Delete: %w", domain.ErrUnauthorized)
	}
	if err := s.trips.Delete(ctx, id); err != nil {
		return fmt.Errorf("service.TripService.Delete: %w", err)
	}
	return nil
}
