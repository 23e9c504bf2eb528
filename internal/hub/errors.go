package hub

import "errors"

// Sentinel errors shared across subsystems.
var (
	// ErrFrontierFull is returned when the frontier rejects a push.
	ErrFrontierFull = errors.New("frontier at capacity")
	// ErrNotRunning is returned for operations that require a running controller.
	ErrNotRunning = errors.New("controller is not running")
	// ErrGazetteerEmpty aborts startup when no reference entities are available.
	ErrGazetteerEmpty = errors.New("gazetteer has no entities")
)

// TransientError marks a fetch failure worth retrying with backoff.
type TransientError struct {
	Err error
}

func (e *TransientError) Error() string { return "transient: " + e.Err.Error() }

// Unwrap exposes the wrapped error for errors.Is/As.
func (e *TransientError) Unwrap() error { return e.Err }

// IsTransient reports whether err is (or wraps) a TransientError.
func IsTransient(err error) bool {
	var te *TransientError
	return errors.As(err, &te)
}
