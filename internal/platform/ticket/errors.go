package ticket

import "errors"

var (
	// Validation errors
	ErrInvalidKind      = errors.New("kind must be ticket, refund or change")
	ErrMissingPassenger = errors.New("passenger name is required")
	ErrInvalidPNR       = errors.New("pnr must be exactly 6 letters or digits")
	ErrMissingBuyer     = errors.New("buyer is required")
	ErrNegativePrice    = errors.New("prices cannot be negative")
	ErrMissingIssueDate = errors.New("issue date is required")
	ErrInvalidDateRange = errors.New("from date must not be after to date")
	ErrMissingAuditor   = errors.New("auditor is required")

	// Business rule errors
	ErrTicketAudited = errors.New("ticket is audited and can no longer be changed")

	// Repository errors
	ErrTicketNotFound = errors.New("ticket not found")
)
