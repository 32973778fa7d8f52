package builder

import "errors"

var (
	// ErrConfiguration marks missing or unreadable project configuration.
	ErrConfiguration = errors.New("configuration error")
	// ErrBackendUnavailable aborts a pass before anything is dispatched.
	ErrBackendUnavailable = errors.New("backend unavailable")
	// ErrCanceled is returned when a pass stopped on request. It is not a failure.
	ErrCanceled = errors.New("build canceled")
)
