package broadcast

import "errors"

var (
	ErrNoRecipients    = errors.New("no valid recipients")
	ErrEmptyMessage    = errors.New("message body is required")
	ErrMissingMedia    = errors.New("media url is required for image and document messages")
	ErrUnsupportedKind = errors.New("message kind must be chat, image or document")
	ErrAccountBusy     = errors.New("account already has a broadcast running")
	ErrJobNotFound     = errors.New("broadcast job not found")
	ErrJobFinished     = errors.New("broadcast job already finished")
	ErrRunnerClosed    = errors.New("broadcast runner is shutting down")
)
