package payment

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/appetiteclub/fulfillment/pkg/provider"
	"github.com/appetiteclub/fulfillment/pkg/saga"
	"github.com/shopspring/decimal"
)

func testProviderClient(url string) *ProviderClient {
	return NewProviderClient(ProviderConfig{
		URL:    url,
		APIKey: "sk_test",
		Retry:  provider.RetryConfig{RetryMax: 2, RetryWaitMin: time.Millisecond, RetryWaitMax: time.Millisecond},
	}, nil)
}

func TestProviderClientCreateIntent(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/payment_intents" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer sk_test" {
			t.Errorf("Authorization = %q", got)
		}
		if got := r.Header.Get("Idempotency-Key"); got != "7" {
			t.Errorf("Idempotency-Key = %q", got)
		}
		var req IntentRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode: %v", err)
		}
		if !req.Amount.Equal(decimal.RequireFromString("49.99")) {
			t.Errorf("amount = %s", req.Amount)
		}
		_, _ = w.Write([]byte(`{"id":"pi_7","status":"requires_payment_method","client_secret":"cs"}`))
	}))
	defer srv.Close()

	intent, err := testProviderClient(srv.URL).CreateIntent(context.Background(), IntentRequest{
		OrderID:  "7",
		Amount:   decimal.RequireFromString("49.99"),
		Currency: "eur",
	})
	if err != nil {
		t.Fatalf("CreateIntent() error = %v", err)
	}
	if intent.ID != "pi_7" || intent.ClientSecret != "cs" {
		t.Errorf("intent = %+v", intent)
	}
}

func TestProviderClientRetrieveRetries(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) == 1 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		if r.URL.Path != "/payment_intents/pi_7" {
			t.Errorf("path = %s", r.URL.Path)
		}
		_, _ = w.Write([]byte(`{"id":"pi_7","status":"succeeded"}`))
	}))
	defer srv.Close()

	intent, err := testProviderClient(srv.URL).RetrieveIntent(context.Background(), "pi_7")
	if err != nil {
		t.Fatalf("RetrieveIntent() error = %v", err)
	}
	if intent.Status != IntentSucceeded {
		t.Errorf("status = %s", intent.Status)
	}
	if atomic.LoadInt32(&calls) != 2 {
		t.Errorf("calls = %d, want 2", calls)
	}
}

func TestProviderClientCancelErrors(t *testing.T) {
	tests := []struct {
		name      string
		status    int
		rejection bool
		downErr   bool
	}{
		{"rejected", http.StatusBadRequest, true, false},
		{"unavailable", http.StatusServiceUnavailable, false, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if r.URL.Path != "/payment_intents/pi_7/cancel" {
					t.Errorf("path = %s", r.URL.Path)
				}
				w.WriteHeader(tt.status)
			}))
			defer srv.Close()

			_, err := testProviderClient(srv.URL).CancelIntent(context.Background(), "pi_7")
			if err == nil {
				t.Fatal("expected error")
			}
			if got := provider.IsRejection(err); got != tt.rejection {
				t.Errorf("IsRejection = %v, want %v", got, tt.rejection)
			}
			if got := errors.Is(err, saga.ErrDownstreamUnavailable); got != tt.downErr {
				t.Errorf("downstream = %v, want %v: %v", got, tt.downErr, err)
			}
		})
	}
}
