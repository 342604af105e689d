package domain

import "errors"

// ErrNotFound is returned by repo and service functions when the requested
// resource (trip, expense, payment, or join code) does not exist.
// Handlers should map this to HTTP 404.
var ErrNotFound = errors.New("not found")

// ErrValidation is returned by service functions when input fails business
// rule validation (e.g. blank trip name, non-positive amount).
// Handlers should map this to HTTP 422 Unprocessable Entity.
var ErrValidation = errors.New("validation error")

// ErrUnauthorized is returned when the acting user lacks the narrow role a
// creator-only or admin-only operation requires.
// Handlers should map this to HTTP 403.
var ErrUnauthorized = errors.New("unauthorized")

// ErrAlreadyMember is returned by the join flow when the actor is already a
// member of the trip. It is a benign outcome, not a failure: nothing was
// written, and the caller should tell the user so without implying a
// duplicate join happened.
var ErrAlreadyMember = errors.New("already a member")

// ErrExpenseSettled is returned when a payment is attempted against an
// expense whose status is already settled. Settled is terminal — the ledger
// rejects the payment rather than clamping or silently accepting it.
var ErrExpenseSettled = errors.New("expense already settled")

// ErrConcurrency is returned when an atomic operation could not be committed
// after bounded retries due to contention. It is transient: the caller may
// safely retry the whole operation.
var ErrConcurrency = errors.New("concurrent update conflict")

// ErrDuplicateJoinCode is returned by the trip repo when an insert collides
// with an existing join code. The service layer regenerates the code and
// retries; this error never escapes to handlers.
var ErrDuplicateJoinCode = errors.New("join code already in use")
