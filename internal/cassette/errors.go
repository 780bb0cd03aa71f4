package cassette

import (
	"errors"
	"fmt"
)

var (
	// ErrInteractionNotFound is returned in replay-only mode when no recorded interaction matches.
	ErrInteractionNotFound = errors.New("no matching interaction")
	// ErrCorrupt is returned when a cassette file cannot be decoded.
	ErrCorrupt = errors.New("corrupt cassette")
	// ErrStopped is returned for requests made after Stop.
	ErrStopped = errors.New("recorder stopped")
)

// Error describes a cassette failure. Any error surfacing from the network layer
// during a case can be tested with errors.As to attribute it to the cassette store.
type Error struct {
	Op     string // load, save, match, record
	Path   string
	Method string
	URL    string
	Err    error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.URL != "" {
		return fmt.Sprintf("cassette %s %s: %s %s: %v", e.Op, e.Path, e.Method, e.URL, e.Err)
	}
	return fmt.Sprintf("cassette %s %s: %v", e.Op, e.Path, e.Err)
}

// Unwrap returns the underlying error.
func (e *Error) Unwrap() error {
	return e.Err
}

// IsCassetteError reports whether err originated in the cassette store.
func IsCassetteError(err error) bool {
	var ce *Error
	return errors.As(err, &ce)
}
