package reader

import (
	"errors"
	"fmt"
	"time"
)

var (
	ErrNoViews     = errors.New("reader: spine has no reflowable items")
	ErrNoFactory   = errors.New("reader: renderer factory is required")
	ErrLoadTimeout = errors.New("reader: content documents did not load in time")
)

// LoadTimeoutError reports views whose content document had not signalled
// completion when the load timeout elapsed.
type LoadTimeoutError struct {
	Outstanding int
	Total       int
	Timeout     time.Duration
}

func (e *LoadTimeoutError) Error() string {
	return fmt.Sprintf("reader: %d of %d content documents not loaded after %s", e.Outstanding, e.Total, e.Timeout)
}

// Is makes errors.Is(err, ErrLoadTimeout) match.
func (e *LoadTimeoutError) Is(target error) bool {
	return target == ErrLoadTimeout
}
