package llm

import (
	"errors"
	"fmt"

	"github.com/actuallystonmai/course-recommender/internal/domain"
)

// CompletionError is a failed round trip to the completion service.
type CompletionError struct {
	StatusCode int
	Body       string
	// Retryable marks transport failures, 429 and 5xx responses.
	Retryable bool
	Err       error
}

func (e *CompletionError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("completion http %d: %s", e.StatusCode, e.Body)
	}
	return fmt.Sprintf("completion transport: %v", e.Err)
}

func (e *CompletionError) Unwrap() error {
	return e.Err
}

// Is lets callers match retryable failures against domain.ErrCompletionUnavailable.
func (e *CompletionError) Is(target error) bool {
	return target == domain.ErrCompletionUnavailable && e.Retryable
}

func IsCompletionError(err error) bool {
	var target *CompletionError
	return errors.As(err, &target)
}

func isRetryable(err error) bool {
	var target *CompletionError
	return errors.As(err, &target) && target.Retryable
}
