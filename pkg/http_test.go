package pkg

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/appetiteclub/fulfillment/pkg/saga"
)

func TestStatusFor(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"nilError", nil, http.StatusOK},
		{"invalidTransition", fmt.Errorf("x: %w", saga.ErrInvalidTransition), http.StatusConflict},
		{"duplicateResource", saga.ErrDuplicateResource, http.StatusConflict},
		{"downstreamUnavailable", fmt.Errorf("%w: courier", saga.ErrDownstreamUnavailable), http.StatusServiceUnavailable},
		{"unknown", errors.New("boom"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := StatusFor(tt.err); got != tt.want {
				t.Errorf("StatusFor() = %d, want %d", got, tt.want)
			}
		})
	}
}
