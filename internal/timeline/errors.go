package timeline

import "errors"

var (
	// ErrNotStarted is returned when a channel has no timeline anchor yet;
	// the first start event sets it
	ErrNotStarted = errors.New("channel broadcast has not started")
)

// IsNotStarted checks if the error is a not-started error
func IsNotStarted(err error) bool {
	return errors.Is(err, ErrNotStarted)
}
