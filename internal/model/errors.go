package model

import "errors"

// Error kinds returned by the ledger. Callers classify with errors.Is; the
// concrete error carries the detail.
var (
	ErrNotFound     = errors.New("not found")
	ErrValidation   = errors.New("validation failed")
	ErrInvalidState = errors.New("invalid state")
	ErrAccessDenied = errors.New("access denied")
	ErrConflict     = errors.New("conflict")
)
