package order

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/appetiteclub/fulfillment/pkg/enums/orderstatus"
	"github.com/appetiteclub/fulfillment/pkg/saga"
	"github.com/aquamarinepk/aqm"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

func newTestRouter(repo *MockOrderRepo, resolver AddressResolver) chi.Router {
	svc := newTestService(repo, saga.NewMemoryOutbox(), resolver)
	h := NewHandler(svc, aqm.NewConfig(), aqm.NewNoopLogger())
	r := chi.NewRouter()
	h.RegisterRoutes(r)
	return r
}

func TestHandlerCreateOrder(t *testing.T) {
	tests := []struct {
		name           string
		body           string
		expectedStatus int
	}{
		{
			name:           "validOrder",
			body:           `{"customer_id":"c1","cook_id":"k1","items":[{"dish_id":"d1","quantity":2,"price":"4.50"}],"delivery_address":{"street":"1 Main","city":"X"}}`,
			expectedStatus: http.StatusCreated,
		},
		{
			name:           "missingAddress",
			body:           `{"customer_id":"c1","cook_id":"k1","items":[{"dish_id":"d1","quantity":1,"price":"1"}]}`,
			expectedStatus: http.StatusBadRequest,
		},
		{
			name:           "invalidJSON",
			body:           `{`,
			expectedStatus: http.StatusBadRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := newTestRouter(NewMockOrderRepo(), &MockAddressResolver{})
			req := httptest.NewRequest(http.MethodPost, "/orders", bytes.NewBufferString(tt.body))
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)

			if w.Code != tt.expectedStatus {
				t.Errorf("status = %d, want %d: %s", w.Code, tt.expectedStatus, w.Body.String())
			}
		})
	}
}

func TestHandlerStatusChanges(t *testing.T) {
	tests := []struct {
		name           string
		seedStatus     string
		path           string
		expectedStatus int
	}{
		{"readyFromPlaced", orderstatus.Statuses.Placed.Code(), "/ready", http.StatusOK},
		{"readyFromCancelled", orderstatus.Statuses.Cancelled.Code(), "/ready", http.StatusConflict},
		{"cancelFromReady", orderstatus.Statuses.Ready.Code(), "/cancel", http.StatusOK},
		{"cancelFromDelivered", orderstatus.Statuses.Delivered.Code(), "/cancel", http.StatusConflict},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := NewMockOrderRepo()
			o := seedOrder(repo, tt.seedStatus)
			r := newTestRouter(repo, nil)

			req := httptest.NewRequest(http.MethodPatch, "/orders/"+o.ID.String()+tt.path, nil)
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)

			if w.Code != tt.expectedStatus {
				t.Errorf("status = %d, want %d: %s", w.Code, tt.expectedStatus, w.Body.String())
			}
		})
	}
}

func TestHandlerGetOrder(t *testing.T) {
	repo := NewMockOrderRepo()
	o := seedOrder(repo, orderstatus.Statuses.Placed.Code())
	r := newTestRouter(repo, nil)

	tests := []struct {
		name           string
		id             string
		expectedStatus int
	}{
		{"found", o.ID.String(), http.StatusOK},
		{"notFound", uuid.New().String(), http.StatusNotFound},
		{"invalidID", "nope", http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/orders/"+tt.id, nil)
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)
			if w.Code != tt.expectedStatus {
				t.Errorf("status = %d, want %d", w.Code, tt.expectedStatus)
			}
		})
	}
}
