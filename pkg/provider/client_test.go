package provider

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/appetiteclub/fulfillment/pkg/saga"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fastRetry = RetryConfig{RetryMax: 2, RetryWaitMin: time.Millisecond, RetryWaitMax: 2 * time.Millisecond, Timeout: time.Second}

func TestClientRetriesServerErrors(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		assert.Equal(t, "secret", r.Header.Get("Authorization"))
		_, _ = w.Write([]byte(`{"id":"job-1"}`))
	}))
	defer srv.Close()

	c := New(srv.URL, NewRetryClient(fastRetry, nil), map[string]string{"Authorization": "secret"})

	var out struct {
		ID string `json:"id"`
	}
	require.NoError(t, c.Do(context.Background(), http.MethodPost, "/jobs", map[string]string{"a": "b"}, nil, &out))
	assert.Equal(t, "job-1", out.ID)
	assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
}

func TestClientGivesUpAsDownstreamUnavailable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	c := New(srv.URL, NewRetryClient(fastRetry, nil), nil)
	err := c.Do(context.Background(), http.MethodGet, "/jobs/1", nil, nil, nil)
	assert.ErrorIs(t, err, saga.ErrDownstreamUnavailable)
	assert.False(t, IsRejection(err))
}

func TestClientReportsRejection(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "address outside zone", http.StatusUnprocessableEntity)
	}))
	defer srv.Close()

	c := New(srv.URL, NewRetryClient(fastRetry, nil), nil)
	err := c.Do(context.Background(), http.MethodPost, "/jobs", struct{}{}, nil, nil)
	require.Error(t, err)
	assert.True(t, IsRejection(err))
	assert.NotErrorIs(t, err, saga.ErrDownstreamUnavailable)
}
