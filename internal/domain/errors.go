package domain

import "errors"

// PreconditionError is returned for turns rejected before the upstream call.
type PreconditionError struct {
	msg string
}

func (e *PreconditionError) Error() string { return e.msg }

var (
	ErrMissingAPIKey   = &PreconditionError{msg: "api key is required"}
	ErrSessionNotFound = &PreconditionError{msg: "session not found"}
	ErrEmptyInput      = &PreconditionError{msg: "message or image is required"}
	ErrInvalidMedia    = &PreconditionError{msg: "invalid image data"}
)

// IsPrecondition reports whether err is, or wraps, a PreconditionError.
func IsPrecondition(err error) bool {
	var pe *PreconditionError
	return errors.As(err, &pe)
}
