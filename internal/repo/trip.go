// Package repo contains all database access logic for the trip-expense ledger.
// Each resource has its own file with an interface and a Postgres implementation.
// No business logic lives here — only SQL, transactions, and type mapping.
package repo

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/viagemapp/tripledger/internal/domain"
	"github.com/viagemapp/tripledger/internal/notify"
)

// db is the minimal interface satisfied by *pgxpool.Pool, *pgx.Conn, and pgx.Tx.
// Accepting this interface instead of *pgxpool.Pool directly allows integration
// tests to pass a transaction that is rolled back after each test, giving free
// per-test isolation without any manual cleanup. Begin on a pgx.Tx opens a
// savepoint, so transactional repo methods still work inside test transactions.
type db interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Begin(ctx context.Context) (pgx.Tx, error)
}

// Postgres error codes matched by the repos.
const (
	uniqueViolation     = "23505"
	foreignKeyViolation = "23503"
)

// TripRepo defines the persistence operations for Trips and their membership.
// The service layer depends on this interface, not the concrete Postgres
// implementation, which allows the service to be unit-tested with a mock.
type TripRepo interface {
	// Create inserts a new trip and its creator as the first member, in one
	// transaction, and returns the persisted record. Returns
	// domain.ErrDuplicateJoinCode if the generated code is already taken.
	Create(ctx context.Context, trip domain.Trip) (domain.Trip, error)

	// GetByID retrieves a single trip with its full member list.
	// Returns domain.ErrNotFound if no trip with that ID exists.
	GetByID(ctx context.Context, id uuid.UUID) (domain.Trip, error)

	// GetByJoinCode retrieves a trip by its canonical join code.
	// Returns domain.ErrNotFound if no trip has that code.
	GetByJoinCode(ctx context.Context, code string) (domain.Trip, error)

	// AddMember appends a member to a trip's membership set. The insert is a
	// set-union (ON CONFLICT DO NOTHING): concurrent joins by different
	// actors both survive, and re-adding an existing member is a no-op.
	// A genuinely new membership publishes a member_joined event.
	AddMember(ctx context.Context, tripID uuid.UUID, member domain.Member) error

	// ListByMember returns all trips the given actor participates in,
	// resolved by an indexed membership query — never by scanning all trips.
	// Ordered by creation time descending.
	ListByMember(ctx context.Context, memberID string) ([]domain.Trip, error)

	// Delete removes a trip by ID; members, expenses, and payments cascade.
	// Returns domain.ErrNotFound if it does not exist.
	Delete(ctx context.Context, id uuid.UUID) error
}

// pgTripRepo is the Postgres implementation of TripRepo.
type pgTripRepo struct {
	db db
}

// NewTripRepo constructs a TripRepo backed by the provided db connection.
// In production pass *pgxpool.Pool; in tests pass a pgx.Tx for rollback isolation.
func NewTripRepo(db db) TripRepo {
	return &pgTripRepo{db: db}
}

// Create inserts the trip row and the creator membership row in one transaction.
func (r *pgTripRepo) Create(ctx context.Context, trip domain.Trip) (domain.Trip, error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return domain.Trip{}, fmt.Errorf("repo.TripRepo.Create: begin: %w", err)
	}
	defer tx.Rollback(ctx)

	const insertTrip = `
		INSERT INTO trips (name, description, budget_cents, join_code, creator_id, creator_name)
		VALUES (@name, @description, @budget_cents, @join_code, @creator_id, @creator_name)
		RETURNING id, name, description, budget_cents, join_code, creator_id, creator_name, created_at, updated_at`

	args := pgx.NamedArgs{
		"name":         trip.Name,
		"description":  trip.Description,
		"budget_cents": budgetCents(trip.Budget), // nil becomes NULL
		"join_code":    trip.JoinCode,
		"creator_id":   trip.CreatorID,
		"creator_name": trip.CreatorName,
	}

	created, err := scanTrip(tx.QueryRow(ctx, insertTrip, args))
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return domain.Trip{}, fmt.Errorf("repo.TripRepo.Create: %w", domain.ErrDuplicateJoinCode)
		}
		return domain.Trip{}, fmt.Errorf("repo.TripRepo.Create: %w", err)
	}

	const insertCreator = `
		INSERT INTO trip_members (trip_id, member_id, member_name)
		VALUES (@trip_id, @member_id, @member_name)
		RETURNING joined_at`

	var joinedAt pgtype.Timestamptz
	err = tx.QueryRow(ctx, insertCreator, pgx.NamedArgs{
		"trip_id":     created.ID,
		"member_id":   trip.CreatorID,
		"member_name": trip.CreatorName,
	}).Scan(&joinedAt)
	if err != nil {
		return domain.Trip{}, fmt.Errorf("repo.TripRepo.Create: insert creator: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return domain.Trip{}, fmt.Errorf("repo.TripRepo.Create: commit: %w", err)
	}

	created.Members = []domain.Member{{
		ID:          trip.CreatorID,
		DisplayName: trip.CreatorName,
		JoinedAt:    joinedAt.Time,
	}}
	return created, nil
}

// GetByID retrieves a trip by primary key, members included.
func (r *pgTripRepo) GetByID(ctx context.Context, id uuid.UUID) (domain.Trip, error) {
	const q = `
		SELECT id, name, description, budget_cents, join_code, creator_id, creator_name, created_at, updated_at
		FROM trips
		WHERE id = @id`

	trip, err := scanTrip(r.db.QueryRow(ctx, q, pgx.NamedArgs{"id": id}))
	if err != nil {
		return domain.Trip{}, fmt.Errorf("repo.TripRepo.GetByID: %w", err)
	}

	if trip.Members, err = r.listMembers(ctx, trip.ID); err != nil {
		return domain.Trip{}, fmt.Errorf("repo.TripRepo.GetByID: %w", err)
	}
	return trip, nil
}

// GetByJoinCode retrieves a trip by its unique join code, members included.
// The caller is expected to have normalized the code already.
func (r *pgTripRepo) GetByJoinCode(ctx context.Context, code string) (domain.Trip, error) {
	const q = `
		SELECT id, name, description, budget_cents, join_code, creator_id, creator_name, created_at, updated_at
		FROM trips
		WHERE join_code = @join_code`

	trip, err := scanTrip(r.db.QueryRow(ctx, q, pgx.NamedArgs{"join_code": code}))
	if err != nil {
		return domain.Trip{}, fmt.Errorf("repo.TripRepo.GetByJoinCode: %w", err)
	}

	if trip.Members, err = r.listMembers(ctx, trip.ID); err != nil {
		return domain.Trip{}, fmt.Errorf("repo.TripRepo.GetByJoinCode: %w", err)
	}
	return trip, nil
}

// AddMember appends a member via set-union insert. ON CONFLICT DO NOTHING
// makes the append idempotent and safe under concurrent joins — no existing
// row is ever read and rewritten, so no join can overwrite another.
func (r *pgTripRepo) AddMember(ctx context.Context, tripID uuid.UUID, member domain.Member) error {
	const q = `
		INSERT INTO trip_members (trip_id, member_id, member_name)
		VALUES (@trip_id, @member_id, @member_name)
		ON CONFLICT (trip_id, member_id) DO NOTHING`

	tag, err := r.db.Exec(ctx, q, pgx.NamedArgs{
		"trip_id":     tripID,
		"member_id":   member.ID,
		"member_name": member.DisplayName,
	})
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == foreignKeyViolation {
			// The trip vanished between lookup and join.
			return fmt.Errorf("repo.TripRepo.AddMember: %w", domain.ErrNotFound)
		}
		return fmt.Errorf("repo.TripRepo.AddMember: %w", err)
	}

	// Re-adding an existing member hits the conflict clause and inserts
	// nothing, so it also announces nothing.
	if tag.RowsAffected() > 0 {
		publish(ctx, r.db, notify.Event{
			Kind:     notify.KindMemberJoined,
			TripID:   tripID,
			MemberID: member.ID,
		})
	}
	return nil
}

// ListByMember resolves the actor's trips through the trip_members index.
func (r *pgTripRepo) ListByMember(ctx context.Context, memberID string) ([]domain.Trip, error) {
	const q = `
		SELECT t.id, t.name, t.description, t.budget_cents, t.join_code, t.creator_id, t.creator_name, t.created_at, t.updated_at
		FROM trips t
		JOIN trip_members tm ON tm.trip_id = t.id
		WHERE tm.member_id = @member_id
		ORDER BY t.created_at DESC`

	rows, err := r.db.Query(ctx, q, pgx.NamedArgs{"member_id": memberID})
	if err != nil {
		return nil, fmt.Errorf("repo.TripRepo.ListByMember: %w", err)
	}
	defer rows.Close()

	trips := []domain.Trip{}
	for rows.Next() {
		t, err := scanTrip(rows)
		if err != nil {
			return nil, fmt.Errorf("repo.TripRepo.ListByMember: scan: %w", err)
		}
		trips = append(trips, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("repo.TripRepo.ListByMember: rows: %w", err)
	}

	for i := range trips {
		if trips[i].Members, err = r.listMembers(ctx, trips[i].ID); err != nil {
			return nil, fmt.Errorf("repo.TripRepo.ListByMember: %w", err)
		}
	}
	return trips, nil
}

// Delete removes a trip by primary key. trip_members, expenses, and payments
// rows cascade via foreign keys.
func (r *pgTripRepo) Delete(ctx context.Context, id uuid.UUID) error {
	const q = `DELETE FROM trips WHERE id = @id`

	tag, err := r.db.Exec(ctx, q, pgx.NamedArgs{"id": id})
	if err != nil {
		return fmt.Errorf("repo.TripRepo.Delete: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("repo.TripRepo.Delete: %w", domain.ErrNotFound)
	}
	return nil
}

// listMembers returns a trip's members in join order.
func (r *pgTripRepo) listMembers(ctx context.Context, tripID uuid.UUID) ([]domain.Member, error) {
	const q = `
		SELECT member_id, member_name, joined_at
		FROM trip_members
		WHERE trip_id = @trip_id
		ORDER BY joined_at, member_id`

	rows, err := r.db.Query(ctx, q, pgx.NamedArgs{"trip_id": tripID})
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	members := []domain.Member{}
	for rows.Next() {
		var m domain.Member
		if err := rows.Scan(&m.ID, &m.DisplayName, &m.JoinedAt); err != nil {
			return nil, err
		}
		members = append(members, m)
	}
	return members, rows.Err()
}

// scanner is satisfied by both pgx.Row and pgx.Rows, allowing scan helpers to
// be reused for both QueryRow and Query calls.
type scanner interface {
	Scan(dest ...any) error
}

// scanTrip maps a single database row into a domain.Trip (without members).
// It handles the UUID and nullable budget conversions.
func scanTrip(s scanner) (domain.Trip, error) {
	var (
		t      domain.Trip
		id     pgtype.UUID
		budget pgtype.Int8
	)

	err := s.Scan(&id, &t.Name, &t.Description, &budget, &t.JoinCode,
		&t.CreatorID, &t.CreatorName, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Trip{}, domain.ErrNotFound
		}
		return domain.Trip{}, err
	}

	t.ID = uuid.UUID(id.Bytes)
	if budget.Valid {
		b := domain.Money(budget.Int64)
		t.Budget = &b
	}
	return t, nil
}

// budgetCents converts an optional Money to a nullable SQL argument.
func budgetCents(m *domain.Money) any {
	if m == nil {
		return nil
	}
	return m.Cents()
}
