package notes

import "errors"

// Failure taxonomy for note mutations. PermissionDenied and Validation are
// surfaced to the user and fully undone; Transient is recovered via a
// delayed reconciliation fetch; NotFound triggers silent cleanup.
var (
	ErrPermissionDenied = errors.New("permission denied")
	ErrValidation       = errors.New("validation failed")
	ErrNotFound         = errors.New("note not found")
)

// TransientError marks a remote write that could not complete and gave no
// authoritative answer. The write may still have landed server-side, so
// callers must never roll back on it.
type TransientError struct {
	Err error
}

func (e *TransientError) Error() string {
	return "transient failure: " + e.Err.Error()
}

func (e *TransientError) Unwrap() error {
	return e.Err
}

// IsTransient reports whether err is a transient remote failure.
func IsTransient(err error) bool {
	var te *TransientError
	return errors.As(err, &te)
}
