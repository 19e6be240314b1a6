package client

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/carbonx-dev/carbonx/internal/common"
)

// ErrUnavailable is returned when the server cannot be reached in time or
// reports itself unavailable.
var ErrUnavailable = errors.New("server unavailable")

// APIError is a non-2xx answer decoded from the server's {code, msg} body.
// It matches the shared sentinels in package common with errors.Is.
type APIError struct {
	StatusCode int
	Code       string
	Msg        string
}

func (e *APIError) Error() string {
	if e.Msg != "" {
		return e.Msg
	}
	return fmt.Sprintf("server returned %d", e.StatusCode)
}

// Unwrap picks the sentinel by error code first and by status otherwise.
func (e *APIError) Unwrap() error {
	switch e.Code {
	case "validation_error", "bad_request":
		return common.ErrValidation
	case "duplicate_email":
		return common.ErrDuplicateEmail
	case "invalid_credentials":
		return common.ErrorUnauthorized
	case "unauthenticated":
		return common.ErrUnauthenticated
	case "forbidden":
		return common.ErrForbidden
	case "rate_limited":
		return common.ErrRateLimited
	case "store_unavailable":
		return ErrUnavailable
	}

	switch e.StatusCode {
	case http.StatusBadRequest:
		return common.ErrValidation
	case http.StatusUnauthorized:
		return common.ErrUnauthenticated
	case http.StatusForbidden:
		return common.ErrForbidden
	case http.StatusTooManyRequests:
		return common.ErrRateLimited
	case http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout:
		return ErrUnavailable
	}
	return nil
}
