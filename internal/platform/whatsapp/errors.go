package whatsapp

import "errors"

var (
	// Validation errors
	ErrMissingName       = errors.New("account name is required")
	ErrMissingInstanceID = errors.New("instance id is required")
	ErrMissingToken      = errors.New("token is required")
	ErrInvalidPhone      = errors.New("invalid phone number")
	ErrMissingDocument   = errors.New("document url is required")
	ErrMissingFile       = errors.New("file is required")

	// Business rule errors
	ErrAccountInactive   = errors.New("whatsapp account is inactive")
	ErrNoActiveAccount   = errors.New("no active whatsapp account")
	ErrDuplicateInstance = errors.New("another account already uses this instance id")

	// Repository errors
	ErrAccountNotFound = errors.New("whatsapp account not found")
)
