package invoice

import "errors"

// ErrNotFound is returned when no invoice exists for the given id.
var ErrNotFound = errors.New("invoice not found")

// BadRequestError marks a request rejected before any pipeline work runs:
// a missing required field or an unsupported model name.
type BadRequestError struct {
	Message string
}

func (e *BadRequestError) Error() string {
	return e.Message
}
