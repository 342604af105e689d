package repo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/sethvargo/go-retry"

	"github.com/viagemapp/tripledger/internal/domain"
	"github.com/viagemapp/tripledger/internal/notify"
)

// Payment application retries on transient transaction conflicts a small,
// fixed number of times before surfacing domain.ErrConcurrency.
const (
	paymentMaxRetries   = 3
	paymentRetryBackoff = 10 * time.Millisecond
)

// ExpenseRepo defines the persistence operations for Expenses and their
// Payments. ApplyPayment is the only write path that touches an existing
// expense — the paid amount and status never change any other way.
type ExpenseRepo interface {
	// Create inserts a new expense (paid=0, status=open) and returns the
	// persisted record.
	Create(ctx context.Context, expense domain.Expense) (domain.Expense, error)

	// GetByID retrieves a single expense by its UUID, scoped to the given
	// tripID. Returns domain.ErrNotFound if no expense with that ID exists
	// under that trip.
	GetByID(ctx context.Context, tripID, expenseID uuid.UUID) (domain.Expense, error)

	// ListByTrip returns all expenses for a trip, newest first.
	ListByTrip(ctx context.Context, tripID uuid.UUID) ([]domain.Expense, error)

	// ApplyPayment atomically records a payment against an expense: it reads
	// the current aggregate under a row lock, derives the new paid amount and
	// status, appends the immutable payment record, and updates the expense —
	// all in one transaction. Two concurrent payments on the same expense can
	// never both read the same paid amount.
	//
	// Returns domain.ErrNotFound if the expense does not exist under the
	// trip, domain.ErrExpenseSettled if it is already settled, and
	// domain.ErrConcurrency if the transaction kept conflicting after
	// bounded retries.
	ApplyPayment(ctx context.Context, tripID, expenseID uuid.UUID, payer domain.Actor, amount domain.Money) (domain.Expense, domain.Payment, error)

	// ListPayments returns one page of an expense's payments ordered by
	// creation time ascending, plus the total payment count.
	ListPayments(ctx context.Context, expenseID uuid.UUID, p domain.PaginationParams) ([]domain.Payment, int64, error)
}

// pgExpenseRepo is the Postgres implementation of ExpenseRepo.
type pgExpenseRepo struct {
	db db
}

// NewExpenseRepo constructs an ExpenseRepo backed by the provided db connection.
// In production pass *pgxpool.Pool; in tests pass a pgx.Tx for rollback isolation.
func NewExpenseRepo(db db) ExpenseRepo {
	return &pgExpenseRepo{db: db}
}

// Create inserts a new expense row and publishes an expense_created event.
func (r *pgExpenseRepo) Create(ctx context.Context, expense domain.Expense) (domain.Expense, error) {
	const q = `
		INSERT INTO expenses (trip_id, title, description, total_cents, creator_id, creator_name)
		VALUES (@trip_id, @title, @description, @total_cents, @creator_id, @creator_name)
		RETURNING id, trip_id, title, description, total_cents, paid_cents, status, creator_id, creator_name, created_at, updated_at`

	args := pgx.NamedArgs{
		"trip_id":      expense.TripID,
		"title":        expense.Title,
		"description":  expense.Description,
		"total_cents":  expense.Total.Cents(),
		"creator_id":   expense.CreatorID,
		"creator_name": expense.CreatorName,
	}

	created, err := scanExpense(r.db.QueryRow(ctx, q, args))
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == foreignKeyViolation {
			return domain.Expense{}, fmt.Errorf("repo.ExpenseRepo.Create: %w", domain.ErrNotFound)
		}
		return domain.Expense{}, fmt.Errorf("repo.ExpenseRepo.Create: %w", err)
	}

	publish(ctx, r.db, notify.Event{
		Kind:      notify.KindExpenseCreated,
		TripID:    created.TripID,
		ExpenseID: created.ID,
		Status:    string(created.Status),
	})
	return created, nil
}

// GetByID retrieves an expense scoped to its trip.
func (r *pgExpenseRepo) GetByID(ctx context.Context, tripID, expenseID uuid.UUID) (domain.Expense, error) {
	const q = `
		SELECT id, trip_id, title, description, total_cents, paid_cents, status, creator_id, creator_name, created_at, updated_at
		FROM expenses
		WHERE id = @id AND trip_id = @trip_id`

	expense, err := scanExpense(r.db.QueryRow(ctx, q, pgx.NamedArgs{"id": expenseID, "trip_id": tripID}))
	if err != nil {
		return domain.Expense{}, fmt.Errorf("repo.ExpenseRepo.GetByID: %w", err)
	}
	return expense, nil
}

// ListByTrip returns all expenses for a trip ordered by created_at descending.
func (r *pgExpenseRepo) ListByTrip(ctx context.Context, tripID uuid.UUID) ([]domain.Expense, error) {
	const q = `
		SELECT id, trip_id, title, description, total_cents, paid_cents, status, creator_id, creator_name, created_at, updated_at
		FROM expenses
		WHERE trip_id = @trip_id
		ORDER BY created_at DESC, id`

	rows, err := r.db.Query(ctx, q, pgx.NamedArgs{"trip_id": tripID})
	if err != nil {
		return nil, fmt.Errorf("repo.ExpenseRepo.ListByTrip: %w", err)
	}
	defer rows.Close()

	expenses := []domain.Expense{}
	for rows.Next() {
		e, err := scanExpense(rows)
		if err != nil {
			return nil, fmt.Errorf("repo.ExpenseRepo.ListByTrip: scan: %w", err)
		}
		expenses = append(expenses, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("repo.ExpenseRepo.ListByTrip: rows: %w", err)
	}
	return expenses, nil
}

// ApplyPayment wraps applyPaymentOnce in a bounded retry loop. Row locking
// serializes writers on the same expense, so retries only fire on deadlocks
// or serialization failures — both transient.
func (r *pgExpenseRepo) ApplyPayment(ctx context.Context, tripID, expenseID uuid.UUID, payer domain.Actor, amount domain.Money) (domain.Expense, domain.Payment, error) {
	var (
		expense domain.Expense
		payment domain.Payment
	)

	backoff := retry.WithMaxRetries(paymentMaxRetries, retry.NewExponential(paymentRetryBackoff))
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		var err error
		expense, payment, err = r.applyPaymentOnce(ctx, tripID, expenseID, payer, amount)
		if err != nil && isTransientTxError(err) {
			return retry.RetryableError(err)
		}
		return err
	})
	if err != nil {
		if isTransientTxError(err) {
			// Retries exhausted while the conflict persisted.
			return domain.Expense{}, domain.Payment{}, fmt.Errorf("repo.ExpenseRepo.ApplyPayment: %w", domain.ErrConcurrency)
		}
		return domain.Expense{}, domain.Payment{}, fmt.Errorf("repo.ExpenseRepo.ApplyPayment: %w", err)
	}
	return expense, payment, nil
}

// applyPaymentOnce performs one attempt of the atomic read-modify-write.
func (r *pgExpenseRepo) applyPaymentOnce(ctx context.Context, tripID, expenseID uuid.UUID, payer domain.Actor, amount domain.Money) (domain.Expense, domain.Payment, error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return domain.Expense{}, domain.Payment{}, fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback(ctx)

	// FOR UPDATE pins the aggregate: a concurrent payment on the same
	// expense blocks here until this transaction commits or aborts, so both
	// writers always see each other's result. Payments on other expenses are
	// unaffected — the contention scope is exactly one row.
	const lockQ = `
		SELECT paid_cents, total_cents, status
		FROM expenses
		WHERE id = @id AND trip_id = @trip_id
		FOR UPDATE`

	var (
		paid, total int64
		status      string
	)
	err = tx.QueryRow(ctx, lockQ, pgx.NamedArgs{"id": expenseID, "trip_id": tripID}).
		Scan(&paid, &total, &status)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Expense{}, domain.Payment{}, domain.ErrNotFound
		}
		return domain.Expense{}, domain.Payment{}, fmt.Errorf("lock expense: %w", err)
	}

	if domain.ExpenseStatus(status) == domain.StatusSettled {
		// Terminal state: reject, never clamp. The settling payment itself
		// may have overshot the total; that overshoot sticks, but nothing
		// further is accepted.
		return domain.Expense{}, domain.Payment{}, domain.ErrExpenseSettled
	}

	newPaid := domain.Money(paid) + amount
	newStatus := domain.StatusFor(newPaid, domain.Money(total))

	const insertPayment = `
		INSERT INTO payments (expense_id, amount_cents, payer_id, payer_name)
		VALUES (@expense_id, @amount_cents, @payer_id, @payer_name)
		RETURNING id, expense_id, amount_cents, payer_id, payer_name, created_at`

	payment, err := scanPayment(tx.QueryRow(ctx, insertPayment, pgx.NamedArgs{
		"expense_id":   expenseID,
		"amount_cents": amount.Cents(),
		"payer_id":     payer.ID,
		"payer_name":   payer.DisplayName,
	}))
	if err != nil {
		return domain.Expense{}, domain.Payment{}, fmt.Errorf("insert payment: %w", err)
	}

	const updateExpense = `
		UPDATE expenses
		SET paid_cents = @paid_cents,
		    status     = @status,
		    updated_at = now()
		WHERE id = @id
		RETURNING id, trip_id, title, description, total_cents, paid_cents, status, creator_id, creator_name, created_at, updated_at`

	expense, err := scanExpense(tx.QueryRow(ctx, updateExpense, pgx.NamedArgs{
		"id":         expenseID,
		"paid_cents": newPaid.Cents(),
		"status":     string(newStatus),
	}))
	if err != nil {
		return domain.Expense{}, domain.Payment{}, fmt.Errorf("update expense: %w", err)
	}

	// NOTIFY fires only if this transaction commits, so observers never see
	// phantom events from aborted attempts.
	if err := publishTx(ctx, tx, notify.Event{
		Kind:      notify.KindPaymentApplied,
		TripID:    expense.TripID,
		ExpenseID: expense.ID,
		Status:    string(expense.Status),
	}); err != nil {
		return domain.Expense{}, domain.Payment{}, err
	}

	if err := tx.Commit(ctx); err != nil {
		return domain.Expense{}, domain.Payment{}, fmt.Errorf("commit: %w", err)
	}
	return expense, payment, nil
}

// ListPayments returns a page of payments in creation order plus the total count.
func (r *pgExpenseRepo) ListPayments(ctx context.Context, expenseID uuid.UUID, p domain.PaginationParams) ([]domain.Payment, int64, error) {
	const countQ = `SELECT count(*) FROM payments WHERE expense_id = @expense_id`

	var total int64
	if err := r.db.QueryRow(ctx, countQ, pgx.NamedArgs{"expense_id": expenseID}).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("repo.ExpenseRepo.ListPayments: count: %w", err)
	}

	const q = `
		SELECT id, expense_id, amount_cents, payer_id, payer_name, created_at
		FROM payments
		WHERE expense_id = @expense_id
		ORDER BY created_at, id
		LIMIT @limit OFFSET @offset`

	rows, err := r.db.Query(ctx, q, pgx.NamedArgs{
		"expense_id": expenseID,
		"limit":      p.Limit,
		"offset":     p.Offset(),
	})
	if err != nil {
		return nil, 0, fmt.Errorf("repo.ExpenseRepo.ListPayments: %w", err)
	}
	defer rows.Close()

	payments := []domain.Payment{}
	for rows.Next() {
		pay, err := scanPayment(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("repo.ExpenseRepo.ListPayments: scan: %w", err)
		}
		payments = append(payments, pay)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("repo.ExpenseRepo.ListPayments: rows: %w", err)
	}
	return payments, total, nil
}

// publish sends an event outside any caller transaction. Failures are
// swallowed: event delivery is best-effort and must never fail a write
// that already committed.
func publish(ctx context.Context, db db, event notify.Event) {
	payload, err := event.Payload()
	if err != nil {
		return
	}
	_, _ = db.Exec(ctx, "SELECT pg_notify(@channel, @payload)",
		pgx.NamedArgs{"channel": notify.Channel, "payload": payload})
}

// publishTx queues an event inside tx so it is delivered only on commit.
func publishTx(ctx context.Context, tx pgx.Tx, event notify.Event) error {
	payload, err := event.Payload()
	if err != nil {
		return err
	}
	_, err = tx.Exec(ctx, "SELECT pg_notify(@channel, @payload)",
		pgx.NamedArgs{"channel": notify.Channel, "payload": payload})
	if err != nil {
		return fmt.Errorf("notify: %w", err)
	}
	return nil
}

// isTransientTxError reports whether err is a Postgres deadlock or
// serialization failure — the two conflict classes worth retrying.
func isTransientTxError(err error) bool {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return false
	}
	return pgErr.Code == "40001" || pgErr.Code == "40P01"
}

// scanExpense maps a single database row into a domain.Expense.
func scanExpense(s scanner) (domain.Expense, error) {
	var (
		e           domain.Expense
		id, tripID  pgtype.UUID
		total, paid int64
		status      string
	)

	err := s.Scan(&id, &tripID, &e.Title, &e.Description, &total, &paid, &status,
		&e.CreatorID, &e.CreatorName, &e.CreatedAt, &e.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Expense{}, domain.ErrNotFound
		}
		return domain.Expense{}, err
	}

	e.ID = uuid.UUID(id.Bytes)
	e.TripID = uuid.UUID(tripID.Bytes)
	e.Total = domain.Money(total)
	e.Paid = domain.Money(paid)
	e.Status = domain.ExpenseStatus(status)
	return e, nil
}

// scanPayment maps a single database row into a domain.Payment.
func scanPayment(s scanner) (domain.Payment, error) {
	var (
		p             domain.Payment
		id, expenseID pgtype.UUID
		amount        int64
	)

	err := s.Scan(&id, &expenseID, &amount, &p.PayerID, &p.PayerName, &p.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Payment{}, domain.ErrNotFound
		}
		return domain.Payment{}, err
	}

	p.ID = uuid.UUID(id.Bytes)
	p.ExpenseID = uuid.UUID(expenseID.Bytes)
	p.Amount = domain.Money(amount)
	return p, nil
}
