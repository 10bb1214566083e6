package domain

import "errors"

// Every operation fails with exactly one of these kinds. They abort the
// enclosing atomic unit; retry is the caller's business.
var (
	ErrUnauthorized          = errors.New("unauthorized")
	ErrInvalidSettings       = errors.New("invalid settings")
	ErrInvalidQuantity       = errors.New("invalid quantity")
	ErrInvalidPrice          = errors.New("invalid price")
	ErrListingNotActive      = errors.New("listing not active")
	ErrInsufficientQuantity  = errors.New("insufficient quantity")
	ErrParentAccountMismatch = errors.New("parent account mismatch")
	ErrWithdrawTooSoon       = errors.New("withdraw too soon")
	ErrWithdrawTooMuch       = errors.New("withdraw too much")
	ErrTitleAlreadyExists    = errors.New("title already exists")
	ErrInvalidXftType        = errors.New("invalid xft type")
	ErrNotFound              = errors.New("not found")
	ErrInsufficientFunds     = errors.New("insufficient funds")
)

// ErrorCode maps an error to the wire code the HTTP layer reports.
func ErrorCode(err error) string {
	switch {
	case errors.Is(err, ErrUnauthorized):
		return "UNAUTHORIZED"
	case errors.Is(err, ErrInvalidSettings):
		return "INVALID_SETTINGS"
	case errors.Is(err, ErrInvalidQuantity):
		return "INVALID_QUANTITY"
	case errors.Is(err, ErrInvalidPrice):
		return "INVALID_PRICE"
	case errors.Is(err, ErrListingNotActive):
		return "LISTING_NOT_ACTIVE"
	case errors.Is(err, ErrInsufficientQuantity):
		return "INSUFFICIENT_QUANTITY"
	case errors.Is(err, ErrParentAccountMismatch):
		return "PARENT_ACCOUNT_MISMATCH"
	case errors.Is(err, ErrWithdrawTooSoon):
		return "WITHDRAW_TOO_SOON"
	case errors.Is(err, ErrWithdrawTooMuch):
		return "WITHDRAW_TOO_MUCH"
	case errors.Is(err, ErrTitleAlreadyExists):
		return "TITLE_ALREADY_EXISTS"
	case errors.Is(err, ErrInvalidXftType):
		return "INVALID_XFT_TYPE"
	case errors.Is(err, ErrNotFound):
		return "NOT_FOUND"
	case errors.Is(err, ErrInsufficientFunds):
		return "INSUFFICIENT_FUNDS"
	}
	return "INTERNAL"
}
