package statement

import (
	"errors"
	"fmt"
)

var (
	ErrMissingAccount = errors.New("buyer has no accounting id")
	ErrInvalidDate    = errors.New("dates must use yyyy-mm-dd")
	ErrInvalidRange   = errors.New("from date is after to date")
	ErrInvalidPage    = errors.New("page must be positive")
	ErrNoSummary      = errors.New("accounting response carried no summary")
)

// FetchError reports a page that still failed after every retry. The records
// fetched before it are returned alongside the error.
type FetchError struct {
	Page     int
	Attempts int
	Fetched  int
	Err      error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("statement fetch failed on page %d after %d attempts (%d records fetched): %v",
		e.Page, e.Attempts, e.Fetched, e.Err)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

// AsFetchError extracts a FetchError from err
func AsFetchError(err error) (*FetchError, bool) {
	var fe *FetchError
	if errors.As(err, &fe) {
		return fe, true
	}
	return nil, false
}
