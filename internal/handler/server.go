// Package handler implements the HTTP layer of the trip-expense ledger API.
// All handlers are methods on Server. Methods are split into domain-specific
// files (trip.go, expense.go, etc.) but all share the same Server struct so
// they can access its dependencies.
package handler

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/viagemapp/tripledger/internal/domain"
	"github.com/viagemapp/tripledger/internal/middleware"
	"github.com/viagemapp/tripledger/internal/notify"
	"github.com/viagemapp/tripledger/spec"
)

// TripServicer defines the business operations the trip handlers depend on.
// Defining the interface here (in the consumer package) follows the Go
// convention: "accept interfaces, return concrete types". It lets handler
// tests inject a mock without touching the database or service layer.
type TripServicer interface {
	Create(ctx context.Context, actor domain.Actor, name, description string, budget *domain.Money) (domain.Trip, error)
	Join(ctx context.Context, actor domain.Actor, code string) (domain.Trip, error)
	ListForActor(ctx context.Context, actor domain.Actor) ([]domain.Trip, error)
	GetByID(ctx context.Context, id uuid.UUID) (domain.Trip, error)
	Delete(ctx context.Context, actor domain.Actor, id uuid.UUID) error
}

// ExpenseServicer defines the business operations the expense handlers depend on.
type ExpenseServicer interface {
	Create(ctx context.Context, actor domain.Actor, tripID uuid.UUID, title, description string, total domain.Money) (domain.Expense, error)
	Pay(ctx context.Context, actor domain.Actor, tripID, expenseID uuid.UUID, amount domain.Money) (domain.Expense, domain.Payment, error)
	GetByID(ctx context.Context, tripID, expenseID uuid.UUID) (domain.Expense, error)
	ListByTrip(ctx context.Context, tripID uuid.UUID) ([]domain.Expense, error)
	ListPayments(ctx context.Context, tripID, expenseID uuid.UUID, p domain.PaginationParams) ([]domain.Payment, int64, error)
}

// ReportServicer defines the export operation the report handler depends on.
type ReportServicer interface {
	Export(ctx context.Context, tripID uuid.UUID) ([]domain.ReportRow, error)
}

// EventSubscriber is the fan-out surface the SSE handler depends on,
// satisfied by *notify.Hub.
type EventSubscriber interface {
	Subscribe() (<-chan notify.Event, func())
}

// Server holds the handler dependencies for all API endpoints.
type Server struct {
	trips    TripServicer
	expenses ExpenseServicer
	reports  ReportServicer
	events   EventSubscriber
}

// NewServer constructs the Server with all its dependencies. events may be
// nil, in which case the event stream endpoint responds 503.
func NewServer(trips TripServicer, expenses ExpenseServicer, reports ReportServicer, events EventSubscriber) *Server {
	return &Server{trips: trips, expenses: expenses, reports: reports, events: events}
}

// Routes returns the full API router. Health and the OpenAPI document are
// public; everything under /trips requires the X-Actor-* identity headers.
func (s *Server) Routes() chi.Router {
	r := chi.NewRouter()

	r.Get("/healthz", s.handleHealth)
	r.Get("/openapi.yaml", s.handleOpenAPI)

	r.Route("/trips", func(r chi.Router) {
		r.Use(middleware.NewIdentityHandler())

		r.Post("/", s.handleCreateTrip)
		r.Get("/", s.handleListTrips)
		r.Post("/join", s.handleJoinTrip)

		r.Route("/{tripID}", func(r chi.Router) {
			r.Get("/", s.handleGetTrip)
			r.Delete("/", s.handleDeleteTrip)
			r.Get("/export", s.handleExport)
			r.Get("/events", s.handleEvents)

			r.Route("/expenses", func(r chi.Router) {
				r.Post("/", s.handleCreateExpense)
				r.Get("/", s.handleListExpenses)
				r.Get("/{expenseID}", s.handleGetExpense)
				r.Post("/{expenseID}/payments", s.handleCreatePayment)
				r.Get("/{expenseID}/payments", s.handleListPayments)
			})
		})
	})

	return r
}

// handleHealth handles GET /healthz.
// It returns HTTP 200 with {"status":"ok"} when the server is running.
func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleOpenAPI serves the embedded OpenAPI document.
func (s *Server) handleOpenAPI(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/yaml")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(spec.OpenAPI)
}

// actor returns the identity placed in context by the identity middleware.
// The middleware guards every route that calls this, so a missing actor is a
// wiring bug, not a client error.
func actor(r *http.Request) domain.Actor {
	a, _ := middleware.ActorFromContext(r.Context())
	return a
}

// pathUUID parses the named chi URL parameter as a UUID.
func pathUUID(r *http.Request, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, name))
	return id, err == nil
}
