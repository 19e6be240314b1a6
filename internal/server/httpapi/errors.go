package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/carbonx-dev/carbonx/internal/common"
)

// errorResponse is the body of every non-2xx response.
type errorResponse struct {
	Code string `json:"code"`
	Msg  string `json:"msg"`
}

// Error codes.
const (
	codeValidation       = "validation_error"
	codeDuplicateEmail   = "duplicate_email"
	codeInvalidCreds     = "invalid_credentials"
	codeUnauthenticated  = "unauthenticated"
	codeForbidden        = "forbidden"
	codeRateLimited      = "rate_limited"
	codeStoreUnavailable = "store_unavailable"
	codeInternal         = "internal_error"
	codeNotFound         = "not_found"
	codeMethodNotAllowed = "method_not_allowed"
	codeBadRequest       = "bad_request"
)

// writeJSON writes a JSON response with the given status code and payload.
// The body is encoded before the header is sent so that an unencodable value
// turns into a 500 instead of an empty success.
func writeJSON(w http.ResponseWriter, status int, v any) {
	var body []byte
	if v != nil {
		b, err := json.Marshal(v)
		if err != nil {
			status = http.StatusInternalServerError
			b, _ = json.Marshal(errorResponse{Code: codeInternal, Msg: "Server error"})
		}
		body = append(b, '\n')
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if body != nil {
		//nolint:errcheck // best effort, the client may be gone
		w.Write(body)
	}
}

func writeError(w http.ResponseWriter, status int, code, msg string) {
	writeJSON(w, status, errorResponse{Code: code, Msg: msg})
}

// writeServiceError maps service and gate errors onto the HTTP taxonomy.
// Unknown errors become a bare 500 so internals never reach the client.
func writeServiceError(w http.ResponseWriter, err error) {
	var ve *common.ValidationError
	switch {
	case errors.As(err, &ve):
		writeError(w, http.StatusBadRequest, codeValidation, ve.Message)
	case errors.Is(err, common.ErrDuplicateEmail):
		writeError(w, http.StatusBadRequest, codeDuplicateEmail, "User already exists")
	case errors.Is(err, common.ErrorUnauthorized):
		writeError(w, http.StatusUnauthorized, codeInvalidCreds, "Invalid credentials")
	case errors.Is(err, common.ErrUnauthenticated):
		writeError(w, http.StatusUnauthorized, codeUnauthenticated, "Authentication required")
	case errors.Is(err, common.ErrForbidden):
		writeError(w, http.StatusForbidden, codeForbidden, "Access denied")
	case errors.Is(err, common.ErrRateLimited):
		writeError(w, http.StatusTooManyRequests, codeRateLimited, "Too many attempts, try again later")
	case errors.Is(err, common.ErrStoreUnavailable):
		writeError(w, http.StatusServiceUnavailable, codeStoreUnavailable, "Service temporarily unavailable")
	default:
		writeError(w, http.StatusInternalServerError, codeInternal, "Server error")
	}
}
