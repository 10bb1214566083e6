// Package httpx carries the JSON envelope conventions shared by every
// handler: request ids, strict decoding, and the error body shape.
package httpx

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/google/uuid"

	"dexsta/pkg/domain"
)

func NewRequestID() string { return "req_" + uuid.NewString() }

func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("content-type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func ReadJSON(r *http.Request, dst any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(dst)
}

func WriteError(w http.ResponseWriter, status int, code, message string, details any) {
	resp := map[string]any{
		"request_id": NewRequestID(),
		"error": map[string]any{
			"code": code, "message": message, "details": details,
		},
	}
	WriteJSON(w, status, resp)
}

// WriteDomainError maps an engine error onto its wire code and HTTP status.
func WriteDomainError(w http.ResponseWriter, err error) {
	WriteError(w, StatusFor(err), domain.ErrorCode(err), err.Error(), nil)
}

// StatusFor picks the HTTP status for an engine error. Authorization
// failures are 403, missing records 404, rule violations 409, malformed
// inputs 400, anything unclassified 500.
func StatusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrUnauthorized):
		return http.StatusForbidden
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrInvalidSettings),
		errors.Is(err, domain.ErrInvalidQuantity),
		errors.Is(err, domain.ErrInvalidPrice),
		errors.Is(err, domain.ErrInvalidXftType):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrListingNotActive),
		errors.Is(err, domain.ErrInsufficientQuantity),
		errors.Is(err, domain.ErrInsufficientFunds),
		errors.Is(err, domain.ErrParentAccountMismatch),
		errors.Is(err, domain.ErrWithdrawTooSoon),
		errors.Is(err, domain.ErrWithdrawTooMuch),
		errors.Is(err, domain.ErrTitleAlreadyExists):
		return http.StatusConflict
	}
	return http.StatusInternalServerError
}
