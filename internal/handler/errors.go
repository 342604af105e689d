package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/viagemapp/tripledger/internal/domain"
)

// ErrorResponse is the JSON body returned for every non-2xx outcome.
type ErrorResponse struct {
	Error ErrorDetail `json:"error"`
}

// ErrorDetail carries a stable machine-readable code and a human message.
type ErrorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// writeJSON encodes v as the response body with the given status.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("handler: encode response", "error", err)
	}
}

// writeError maps a service error to its HTTP status and error body.
// Unknown errors become 500 with a generic message; the detail is logged, not
// leaked.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, domain.ErrValidation):
		writeJSON(w, http.StatusUnprocessableEntity,
			ErrorResponse{Error: ErrorDetail{Code: "validation_error", Message: unwrapMessage(err)}})
	case errors.Is(err, domain.ErrNotFound):
		writeJSON(w, http.StatusNotFound,
			ErrorResponse{Error: ErrorDetail{Code: "not_found", Message: "not found"}})
	case errors.Is(err, domain.ErrUnauthorized):
		writeJSON(w, http.StatusForbidden,
			ErrorResponse{Error: ErrorDetail{Code: "forbidden", Message: "operation not allowed for this actor"}})
	case errors.Is(err, domain.ErrAlreadyMember):
		writeJSON(w, http.StatusConflict,
			ErrorResponse{Error: ErrorDetail{Code: "already_member", Message: "you already participate in this trip"}})
	case errors.Is(err, domain.ErrExpenseSettled):
		writeJSON(w, http.StatusConflict,
			ErrorResponse{Error: ErrorDetail{Code: "expense_settled", Message: "expense is already settled"}})
	case errors.Is(err, domain.ErrConcurrency):
		writeJSON(w, http.StatusConflict,
			ErrorResponse{Error: ErrorDetail{Code: "concurrency_conflict", Message: "concurrent update conflict, retry the request"}})
	default:
		slog.ErrorContext(r.Context(), "handler: internal error",
			"method", r.Method, "path", r.URL.Path, "error", err)
		writeJSON(w, http.StatusInternalServerError,
			ErrorResponse{Error: ErrorDetail{Code: "internal_error", Message: "internal server error"}})
	}
}

// writeRequestError rejects a request before it reaches the service layer
// (missing body, malformed JSON, bad path parameter).
func writeRequestError(w http.ResponseWriter, message string) {
	writeJSON(w, http.StatusUnprocessableEntity,
		ErrorResponse{Error: ErrorDetail{Code: "validation_error", Message: message}})
}

// unwrapMessage extracts the human-readable part from a wrapped sentinel error.
// e.g. "service.TripService.Create: validation error: name is required" →
// "name is required".
func unwrapMessage(err error) string {
	if err == nil {
		return ""
	}
	msg := err.Error()
	if i := strings.LastIndex(msg, domain.ErrValidation.Error()+": "); i >= 0 {
		return msg[i+len(domain.ErrValidation.Error())+2:]
	}
	return msg
}
