package delivery

import (
	"context"
	"fmt"
	"net/http"

	"github.com/appetiteclub/fulfillment/pkg"
	"github.com/appetiteclub/fulfillment/pkg/event"
	"github.com/appetiteclub/fulfillment/pkg/provider"
	"github.com/aquamarinepk/aqm"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"
)

type JobRequest struct {
	OrderID    string        `json:"order_id"`
	PickupRef  string        `json:"pickup_ref"`
	CustomerID string        `json:"customer_id"`
	Dropoff    event.Address `json:"dropoff"`
}

type Job struct {
	ID     string `json:"id"`
	Status string `json:"status,omitempty"`
}

// Courier books pickups with the external courier network. Errors wrapping
// saga.ErrDownstreamUnavailable are transient; provider.IsRejection errors
// are final.
type Courier interface {
	RequestJob(ctx context.Context, req JobRequest) (*Job, error)
}

type CourierConfig struct {
	URL          string
	TokenURL     string
	ClientID     string
	ClientSecret string
	Retry        provider.RetryConfig
}

func CourierConfigFrom(config *aqm.Config) CourierConfig {
	return CourierConfig{
		URL:          pkg.StringOr(config, "courier.url", "http://localhost:8090"),
		TokenURL:     pkg.StringOr(config, "courier.token.url", ""),
		ClientID:     pkg.StringOr(config, "courier.client.id", ""),
		ClientSecret: pkg.StringOr(config, "courier.client.secret", ""),
		Retry:        provider.RetryConfigFrom(config),
	}
}

type CourierClient struct {
	api *provider.Client
}

// NewCourierClient authenticates with OAuth client credentials when a token
// URL is configured. Token and API calls share the retrying transport.
func NewCourierClient(cfg CourierConfig, logger aqm.Logger) *CourierClient {
	base := provider.NewRetryClient(cfg.Retry, logger)
	return &CourierClient{api: provider.New(cfg.URL, authenticated(cfg, base), nil)}
}

func authenticated(cfg CourierConfig, base *http.Client) *http.Client {
	if cfg.TokenURL == "" {
		return base
	}
	cc := &clientcredentials.Config{
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		TokenURL:     cfg.TokenURL,
	}
	ctx := context.WithValue(context.Background(), oauth2.HTTPClient, base)
	return cc.Client(ctx)
}

func (c *CourierClient) RequestJob(ctx context.Context, req JobRequest) (*Job, error) {
	var job Job
	headers := map[string]string{"Idempotency-Key": req.OrderID}
	if err := c.api.Do(ctx, http.MethodPost, "/jobs", headers, req, &job); err != nil {
		return nil, err
	}
	if job.ID == "" {
		return nil, fmt.Errorf("courier returned a job without id")
	}
	return &job, nil
}
