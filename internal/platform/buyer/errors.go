package buyer

import "errors"

var (
	// Validation errors
	ErrMissingName         = errors.New("buyer name is required")
	ErrNameTooLong         = errors.New("buyer name exceeds 200 characters")
	ErrMissingAccountingID = errors.New("accounting id is required")
	ErrInvalidPhone        = errors.New("invalid phone number")
	ErrDuplicateAccounting = errors.New("another buyer already uses this accounting id")

	// Repository errors
	ErrBuyerNotFound = errors.New("buyer not found")
	ErrBuyerInUse    = errors.New("buyer still has tickets or visa entries")
)
