package delivery

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/appetiteclub/fulfillment/pkg/event"
	"github.com/appetiteclub/fulfillment/pkg/provider"
)

func TestCourierClientRequestJob(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/oauth/token", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"access_token":"tok-1","token_type":"Bearer","expires_in":3600}`))
	})
	mux.HandleFunc("/jobs", func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bearer tok-1" {
			t.Errorf("Authorization = %q", got)
		}
		if got := r.Header.Get("Idempotency-Key"); got != "order-1" {
			t.Errorf("Idempotency-Key = %q", got)
		}
		var req JobRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Dropoff.City != "Springfield" {
			t.Errorf("unexpected job request %+v: %v", req, err)
		}
		_, _ = w.Write([]byte(`{"id":"job-42","status":"assigned"}`))
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	c := NewCourierClient(CourierConfig{
		URL:          srv.URL,
		TokenURL:     srv.URL + "/oauth/token",
		ClientID:     "id",
		ClientSecret: "secret",
		Retry:        provider.RetryConfig{RetryMax: 1, RetryWaitMin: time.Millisecond, RetryWaitMax: time.Millisecond},
	}, nil)

	job, err := c.RequestJob(context.Background(), JobRequest{
		OrderID: "order-1",
		Dropoff: event.Address{Street: "1 Main", City: "Springfield"},
	})
	if err != nil {
		t.Fatalf("RequestJob() error = %v", err)
	}
	if job.ID != "job-42" {
		t.Errorf("job id = %s", job.ID)
	}
}

func TestCourierClientRejection(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "outside zone", http.StatusUnprocessableEntity)
	}))
	defer srv.Close()

	c := NewCourierClient(CourierConfig{URL: srv.URL}, nil)
	_, err := c.RequestJob(context.Background(), JobRequest{OrderID: "order-1"})
	if !provider.IsRejection(err) {
		t.Errorf("error = %v, want rejection", err)
	}
}
