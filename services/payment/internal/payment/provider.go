package payment

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"github.com/appetiteclub/fulfillment/pkg"
	"github.com/appetiteclub/fulfillment/pkg/provider"
	"github.com/aquamarinepk/aqm"
	"github.com/shopspring/decimal"
)

const (
	IntentSucceeded = "succeeded"
	IntentCanceled  = "canceled"
)

type IntentRequest struct {
	OrderID  string          `json:"order_id"`
	Amount   decimal.Decimal `json:"amount"`
	Currency string          `json:"currency"`
}

type Intent struct {
	ID           string `json:"id"`
	Status       string `json:"status"`
	ClientSecret string `json:"client_secret,omitempty"`
}

// Provider is the external payment processor.
type Provider interface {
	CreateIntent(ctx context.Context, req IntentRequest) (*Intent, error)
	RetrieveIntent(ctx context.Context, intentID string) (*Intent, error)
	CancelIntent(ctx context.Context, intentID string) (*Intent, error)
}

type ProviderConfig struct {
	URL    string
	APIKey string
	Retry  provider.RetryConfig
}

// ProviderConfigFrom reads payment.url, payment.api.key and the shared
// provider retry settings.
func ProviderConfigFrom(config *aqm.Config) ProviderConfig {
	return ProviderConfig{
		URL:    pkg.StringOr(config, "payment.url", "http://localhost:8091"),
		APIKey: pkg.StringOr(config, "payment.api.key", ""),
		Retry:  provider.RetryConfigFrom(config),
	}
}

type ProviderClient struct {
	api *provider.Client
}

func NewProviderClient(cfg ProviderConfig, logger aqm.Logger) *ProviderClient {
	headers := map[string]string{}
	if cfg.APIKey != "" {
		headers["Authorization"] = "Bearer " + cfg.APIKey
	}
	return &ProviderClient{
		api: provider.New(cfg.URL, provider.NewRetryClient(cfg.Retry, logger), headers),
	}
}

func (c *ProviderClient) CreateIntent(ctx context.Context, req IntentRequest) (*Intent, error) {
	var intent Intent
	headers := map[string]string{"Idempotency-Key": req.OrderID}
	if err := c.api.Do(ctx, http.MethodPost, "/payment_intents", headers, req, &intent); err != nil {
		return nil, err
	}
	if intent.ID == "" {
		return nil, fmt.Errorf("provider returned an intent without id")
	}
	return &intent, nil
}

func (c *ProviderClient) RetrieveIntent(ctx context.Context, intentID string) (*Intent, error) {
	var intent Intent
	if err := c.api.Do(ctx, http.MethodGet, "/payment_intents/"+url.PathEscape(intentID), nil, nil, &intent); err != nil {
		return nil, err
	}
	return &intent, nil
}

func (c *ProviderClient) CancelIntent(ctx context.Context, intentID string) (*Intent, error) {
	var intent Intent
	path := "/payment_intents/" + url.PathEscape(intentID) + "/cancel"
	if err := c.api.Do(ctx, http.MethodPost, path, nil, nil, &intent); err != nil {
		return nil, err
	}
	return &intent, nil
}
