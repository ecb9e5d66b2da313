package httpx

import (
	"errors"
	"net/http"

	"github.com/paylite-technologies/payng/internal/shared"
)

// RespondError maps domain errors to RFC7807 responses. Unknown errors are
// reported as opaque 500s so internals never leak to the client.
func RespondError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, shared.ErrNotFound):
		Problem(w, http.StatusNotFound, "Not Found", "")
	case errors.Is(err, shared.ErrDuplicateEmail):
		Problem(w, http.StatusConflict, "Duplicate", "email already registered")
	case errors.Is(err, shared.ErrInvalidCredentials):
		Problem(w, http.StatusUnauthorized, "Unauthorized", "invalid credentials")
	case errors.Is(err, shared.ErrConflict):
		Problem(w, http.StatusConflict, "Conflict", "record state has changed")
	default:
		Problem(w, http.StatusInternalServerError, "Internal Error", "")
	}
}
