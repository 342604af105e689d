package handler_test

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/viagemapp/tripledger/internal/domain"
	"github.com/viagemapp/tripledger/internal/handler"
)

// mockExpenseServicer is a test double for handler.ExpenseServicer.
type mockExpenseServicer struct {
	create       func(ctx context.Context, actor domain.Actor, tripID uuid.UUID, title, description string, total domain.Money) (domain.Expense, error)
	pay          func(ctx context.Context, actor domain.Actor, tripID, expenseID uuid.UUID, amount domain.Money) (domain.Expense, domain.Payment, error)
	getByID      func(ctx context.Context, tripID, expenseID uuid.UUID) (domain.Expense, error)
	listByTrip   func(ctx context.Context, tripID uuid.UUID) ([]domain.Expense, error)
	listPayments func(ctx context.Context, tripID, expenseID uuid.UUID, p domain.PaginationParams) ([]domain.Payment, int64, error)
}

func (m *mockExpenseServicer) Create(ctx context.Context, actor domain.Actor, tripID uuid.UUID, title, description string, total domain.Money) (domain.Expense, error) {
	return m.create(ctx, actor, tripID, title, description, total)
}
func (m *mockExpenseServicer) Pay(ctx context.Context, actor domain.Actor, tripID, expenseID uuid.UUID, amount domain.Money) (domain.Expense, domain.Payment, error) {
	return m.pay(ctx, actor, tripID, expenseID, amount)
}
func (m *mockExpenseServicer) GetByID(ctx context.Context, tripID, expenseID uuid.UUID) (domain.Expense, error) {
	return m.getByID(ctx, tripID, expenseID)
}
func (m *mockExpenseServicer) ListByTrip(ctx context.Context, tripID uuid.UUID) ([]domain.Expense, error) {
	return m.listByTrip(ctx, tripID)
}
func (m *mockExpenseServicer) ListPayments(ctx context.Context, tripID, expenseID uuid.UUID, p domain.PaginationParams) ([]domain.Payment, int64, error) {
	return m.listPayments(ctx, tripID, expenseID, p)
}

var _ handler.ExpenseServicer = (*mockExpenseServicer)(nil)

func expenseFixture(tripID uuid.UUID) domain.Expense {
	return domain.Expense{
		ID:          uuid.New(),
		TripID:      tripID,
		Title:       "Gas",
		Description: "Fuel for the drive down",
		Total:       domain.Money(10000),
		Paid:        domain.Money(4000),
		Status:      domain.StatusPartial,
		CreatorID:   "uid-alice",
		CreatorName: "Alice",
		CreatedAt:   time.Now().UTC(),
		UpdatedAt:   time.Now().UTC(),
	}
}

// ---- POST /trips/{tripID}/expenses -----------------------------------------

func TestCreateExpense_201(t *testing.T) {
	tripID := uuid.New()
	fixture := expenseFixture(tripID)
	svc := &mockExpenseServicer{
		create: func(_ context.Context, actor domain.Actor, gotTrip uuid.UUID, title, _ string, total domain.Money) (domain.Expense, error) {
			assert.Equal(t, "uid-alice", actor.ID)
			assert.Equal(t, tripID, gotTrip)
			assert.Equal(t, "Gas", title)
			assert.Equal(t, domain.Money(10000), total)
			return fixture, nil
		},
	}
	h := newHTTPHandler(nil, svc, nil, nil)

	rec := do(t, h, http.MethodPost, "/trips/"+tripID.String()+"/expenses", jsonBody(t, map[string]any{
		"title": "Gas",
		"total": "100.00",
	}))

	require.Equal(t, http.StatusCreated, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, fixture.ID.String(), body["id"])
	assert.Equal(t, "100.00", body["total"])
	assert.Equal(t, "40.00", body["paid"])
	assert.Equal(t, "partial", body["status"])
}

func TestCreateExpense_NonCreator_403(t *testing.T) {
	svc := &mockExpenseServicer{
		create: func(context.Context, domain.Actor, uuid.UUID, string, string, domain.Money) (domain.Expense, error) {
			return domain.Expense{}, domain.ErrUnauthorized
		},
	}
	h := newHTTPHandler(nil, svc, nil, nil)

	rec := do(t, h, http.MethodPost, "/trips/"+uuid.NewString()+"/expenses", jsonBody(t, map[string]any{
		"title": "Gas",
		"total": "100.00",
	}))

	require.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, "forbidden", errorCode(t, rec))
}

func TestCreateExpense_NegativeTotal_422(t *testing.T) {
	// A negative amount fails Money unmarshalling, so the request is rejected
	// before the service runs.
	h := newHTTPHandler(nil, &mockExpenseServicer{}, nil, nil)

	rec := do(t, h, http.MethodPost, "/trips/"+uuid.NewString()+"/expenses", jsonBody(t, map[string]any{
		"title": "Gas",
		"total": "-5.00",
	}))

	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Equal(t, "validation_error", errorCode(t, rec))
}

// ---- GET /trips/{tripID}/expenses ------------------------------------------

func TestListExpenses_200(t *testing.T) {
	tripID := uuid.New()
	svc := &mockExpenseServicer{
		listByTrip: func(_ context.Context, gotTrip uuid.UUID) ([]domain.Expense, error) {
			assert.Equal(t, tripID, gotTrip)
			return []domain.Expense{expenseFixture(tripID)}, nil
		},
	}
	h := newHTTPHandler(nil, svc, nil, nil)

	rec := do(t, h, http.MethodGet, "/trips/"+tripID.String()+"/expenses", nil)

	require.Equal(t, http.StatusOK, rec.Code)
	data, ok := decodeBody(t, rec)["data"].([]any)
	require.True(t, ok)
	require.Len(t, data, 1)
}

// ---- GET /trips/{tripID}/expenses/{expenseID} ------------------------------

func TestGetExpense_WrongTrip_404(t *testing.T) {
	svc := &mockExpenseServicer{
		getByID: func(context.Context, uuid.UUID, uuid.UUID) (domain.Expense, error) {
			return domain.Expense{}, domain.ErrNotFound
		},
	}
	h := newHTTPHandler(nil, svc, nil, nil)

	rec := do(t, h, http.MethodGet, "/trips/"+uuid.NewString()+"/expenses/"+uuid.NewString(), nil)

	require.Equal(t, http.StatusNotFound, rec.Code)
}

// ---- POST .../payments -----------------------------------------------------

func TestCreatePayment_201(t *testing.T) {
	tripID := uuid.New()
	fixture := expenseFixture(tripID)
	fixture.Paid = domain.Money(10000)
	fixture.Status = domain.StatusSettled

	svc := &mockExpenseServicer{
		pay: func(_ context.Context, actor domain.Actor, gotTrip, gotExpense uuid.UUID, amount domain.Money) (domain.Expense, domain.Payment, error) {
			assert.Equal(t, "uid-alice", actor.ID)
			assert.Equal(t, tripID, gotTrip)
			assert.Equal(t, fixture.ID, gotExpense)
			assert.Equal(t, domain.Money(6000), amount)
			payment := domain.Payment{
				ID:        uuid.New(),
				ExpenseID: fixture.ID,
				Amount:    amount,
				PayerID:   actor.ID,
				PayerName: actor.DisplayName,
				CreatedAt: time.Now().UTC(),
			}
			return fixture, payment, nil
		},
	}
	h := newHTTPHandler(nil, svc, nil, nil)

	rec := do(t, h, http.MethodPost,
		"/trips/"+tripID.String()+"/expenses/"+fixture.ID.String()+"/payments",
		jsonBody(t, map[string]string{"amount": "60.00"}))

	require.Equal(t, http.StatusCreated, rec.Code)
	body := decodeBody(t, rec)
	expense, ok := body["expense"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "settled", expense["status"])
	payment, ok := body["payment"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "60.00", payment["amount"])
}

func TestCreatePayment_Settled_409(t *testing.T) {
	svc := &mockExpenseServicer{
		pay: func(context.Context, domain.Actor, uuid.UUID, uuid.UUID, domain.Money) (domain.Expense, domain.Payment, error) {
			return domain.Expense{}, domain.Payment{}, domain.ErrExpenseSettled
		},
	}
	h := newHTTPHandler(nil, svc, nil, nil)

	rec := do(t, h, http.MethodPost,
		"/trips/"+uuid.NewString()+"/expenses/"+uuid.NewString()+"/payments",
		jsonBody(t, map[string]string{"amount": "10.00"}))

	require.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "expense_settled", errorCode(t, rec))
}

func TestCreatePayment_Contention_409(t *testing.T) {
	svc := &mockExpenseServicer{
		pay: func(context.Context, domain.Actor, uuid.UUID, uuid.UUID, domain.Money) (domain.Expense, domain.Payment, error) {
			return domain.Expense{}, domain.Payment{}, domain.ErrConcurrency
		},
	}
	h := newHTTPHandler(nil, svc, nil, nil)

	rec := do(t, h, http.MethodPost,
		"/trips/"+uuid.NewString()+"/expenses/"+uuid.NewString()+"/payments",
		jsonBody(t, map[string]string{"amount": "10.00"}))

	require.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "concurrency_conflict", errorCode(t, rec))
}

func TestCreatePayment_NegativeAmount_422(t *testing.T) {
	// Rejected at Money unmarshalling, before the service runs.
	h := newHTTPHandler(nil, &mockExpenseServicer{}, nil, nil)

	rec := do(t, h, http.MethodPost,
		"/trips/"+uuid.NewString()+"/expenses/"+uuid.NewString()+"/payments",
		jsonBody(t, map[string]string{"amount": "-5.00"}))

	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

// ---- GET .../payments ------------------------------------------------------

func TestListPayments_200_WithPagination(t *testing.T) {
	tripID := uuid.New()
	expenseID := uuid.New()
	svc := &mockExpenseServicer{
		listPayments: func(_ context.Context, gotTrip, gotExpense uuid.UUID, p domain.PaginationParams) ([]domain.Payment, int64, error) {
			assert.Equal(t, tripID, gotTrip)
			assert.Equal(t, expenseID, gotExpense)
			assert.Equal(t, 2, p.Page)
			assert.Equal(t, 10, p.Limit)
			return []domain.Payment{{
				ID:        uuid.New(),
				ExpenseID: expenseID,
				Amount:    domain.Money(4000),
				PayerID:   "uid-bob",
				PayerName: "Bob",
				CreatedAt: time.Now().UTC(),
			}}, 11, nil
		},
	}
	h := newHTTPHandler(nil, svc, nil, nil)

	rec := do(t, h, http.MethodGet,
		"/trips/"+tripID.String()+"/expenses/"+expenseID.String()+"/payments?page=2&limit=10", nil)

	require.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody(t, rec)
	pagination, ok := body["pagination"].(map[string]any)
	require.True(t, ok)
	assert.EqualValues(t, 2, pagination["page"])
	assert.EqualValues(t, 11, pagination["total"])
}
