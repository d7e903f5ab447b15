package visa

import "errors"

// Visa entry validation errors
var (
	ErrMissingApplicant  = errors.New("applicant name is required")
	ErrInvalidPassport   = errors.New("passport number must be 5 to 12 letters or digits")
	ErrMissingCountry    = errors.New("country is required")
	ErrInvalidStatus     = errors.New("unknown visa status")
	ErrMissingBuyer      = errors.New("buyer is required")
	ErrNegativeAmount    = errors.New("price and cost cannot be negative")
	ErrInvalidTransition = errors.New("status transition not allowed")
	ErrEntryNotFound     = errors.New("visa entry not found")
)
