package pkg

import (
	"errors"
	"net/http"

	"github.com/appetiteclub/fulfillment/pkg/saga"
)

// StatusFor maps saga errors to HTTP status codes. Service-specific errors
// such as not found must be checked by the caller first.
func StatusFor(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case errors.Is(err, saga.ErrInvalidTransition), errors.Is(err, saga.ErrDuplicateResource):
		return http.StatusConflict
	case errors.Is(err, saga.ErrDownstreamUnavailable):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
