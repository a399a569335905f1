package domain

import "errors"

// Typed failures raised by the marketplace core. Callers match them with errors.Is;
// wrapped messages carry the offending identifiers.
var (
	ErrNotFound          = errors.New("not found")
	ErrInsufficientFunds = errors.New("insufficient funds")
	ErrInvalidTransition = errors.New("invalid transition")
	ErrAlreadyProcessed  = errors.New("already processed")
	ErrForbidden         = errors.New("forbidden")
	ErrAccountBanned     = errors.New("account is banned")
	ErrValidation        = errors.New("validation failed")
	ErrQuoteChanged      = errors.New("quoted total no longer matches current prices")
)
