package domain

import "errors"

var (
	ErrCompletionUnavailable = errors.New("completion service unavailable")
	ErrInvalidCompletion     = errors.New("completion response does not match schema")
)
