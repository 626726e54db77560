// Package apperrors maps ledger error kinds to API error bodies and HTTP
// status codes.
package apperrors

import (
	"errors"
	"net/http"
)

// Sentinel error kinds, checked with errors.Is by callers across the
// aggregate, service and projector.
var (
	ErrInvalidAmount     = errors.New("invalid amount")
	ErrInsufficientFunds = errors.New("insufficient funds")
	ErrNotFound          = errors.New("account not found")
	ErrConflict          = errors.New("conflict")
	ErrBackend           = errors.New("backend error")
)

// APIError is the JSON body returned to HTTP clients on failure.
type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Status  int    `json:"-"`
}

func (e APIError) Error() string {
	return e.Message
}

const (
	CodeInvalidAmount     = "INVALID_AMOUNT"
	CodeInsufficientFunds = "INSUFFICIENT_FUNDS"
	CodeNotFound          = "NOT_FOUND"
	CodeConflict          = "CONFLICT"
	CodeInternal          = "INTERNAL_SERVER_ERROR"
	CodeValidation        = "VALIDATION_ERROR"
)

// FromKind maps one of the sentinel kinds above (or any other error, as a
// Backend failure) to the APIError spec.md §7 prescribes.
func FromKind(err error) APIError {
	switch {
	case errors.Is(err, ErrInvalidAmount):
		return APIError{Code: CodeInvalidAmount, Message: err.Error(), Status: http.StatusBadRequest}
	case errors.Is(err, ErrInsufficientFunds):
		return APIError{Code: CodeInsufficientFunds, Message: err.Error(), Status: http.StatusBadRequest}
	case errors.Is(err, ErrNotFound):
		return APIError{Code: CodeNotFound, Message: err.Error(), Status: http.StatusNotFound}
	case errors.Is(err, ErrConflict):
		return APIError{Code: CodeConflict, Message: err.Error(), Status: http.StatusBadRequest}
	default:
		return APIError{Code: CodeInternal, Message: "internal server error", Status: http.StatusInternalServerError}
	}
}

// NewValidationError reports a malformed request body, independent of the
// domain error kinds above (this never reaches the aggregate).
func NewValidationError(message string) APIError {
	return APIError{Code: CodeValidation, Message: message, Status: http.StatusBadRequest}
}

// NewMutationConflict reports that a deposit/withdraw lost the log's
// optimistic version check — a transient same-id race, distinct from
// Create's duplicate-id conflict (FromKind(ErrConflict), 400): the
// client is expected to retry, so this maps to 409, not 400.
func NewMutationConflict(id string) APIError {
	return APIError{Code: CodeConflict, Message: "account " + id + " was modified concurrently, retry", Status: http.StatusConflict}
}
