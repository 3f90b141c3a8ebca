package llm

import "errors"

var (
	// ErrConfig indicates the provider cannot be addressed with the given settings.
	ErrConfig = errors.New("invalid llm configuration")

	// ErrUnavailable indicates the provider could not be reached.
	ErrUnavailable = errors.New("llm provider unavailable")

	// ErrTimeout indicates the request exceeded its configured timeout.
	ErrTimeout = errors.New("llm request timed out")

	// ErrBadStatus indicates the provider answered with a non-2xx status.
	ErrBadStatus = errors.New("llm provider returned an error status")

	// ErrEmptyResponse indicates a 2xx reply that carried no completion.
	ErrEmptyResponse = errors.New("llm provider returned no completion")

	// ErrInvalidOutput indicates the completion could not be parsed into
	// the expected structured format.
	ErrInvalidOutput = errors.New("invalid llm output format")

	// ErrRetryExhausted indicates all retry attempts failed.
	ErrRetryExhausted = errors.New("llm retry attempts exhausted")
)

// IsTransport reports whether err means the provider could not produce a
// completion, as opposed to producing one we could not use.
func IsTransport(err error) bool {
	return errors.Is(err, ErrUnavailable) ||
		errors.Is(err, ErrTimeout) ||
		errors.Is(err, ErrBadStatus) ||
		errors.Is(err, ErrEmptyResponse) ||
		errors.Is(err, ErrRetryExhausted)
}

func errorCode(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrTimeout):
		return "TIMEOUT"
	case errors.Is(err, ErrUnavailable):
		return "UNAVAILABLE"
	case errors.Is(err, ErrBadStatus):
		return "BAD_STATUS"
	case errors.Is(err, ErrEmptyResponse):
		return "EMPTY"
	case errors.Is(err, ErrInvalidOutput):
		return "INVALID_OUTPUT"
	default:
		return "UNKNOWN"
	}
}
