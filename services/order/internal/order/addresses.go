package order

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"

	"github.com/appetiteclub/fulfillment/pkg/event"
	"github.com/aquamarinepk/aqm"
)

// AddressResolver returns a customer's default delivery address, or nil
// when none is set.
type AddressResolver interface {
	DefaultAddress(ctx context.Context, customerID string) (*event.Address, error)
}

// UserClient resolves addresses through the user service.
type UserClient struct {
	client *aqm.ServiceClient
	logger aqm.Logger
}

func NewUserClient(client *aqm.ServiceClient, logger aqm.Logger) *UserClient {
	if logger == nil {
		logger = aqm.NewNoopLogger()
	}
	return &UserClient{client: client, logger: logger}
}

func (c *UserClient) DefaultAddress(ctx context.Context, customerID string) (*event.Address, error) {
	if c.client == nil {
		return nil, nil
	}

	path := fmt.Sprintf("/users/%s/addresses/default", url.PathEscape(customerID))
	resp, err := c.client.Request(ctx, "GET", path, nil)
	if err != nil {
		c.logger.Info("default address lookup failed", "customer_id", customerID, "error", err)
		return nil, nil
	}
	if resp == nil || resp.Data == nil {
		return nil, nil
	}

	var addr event.Address
	if err := rehydrate(resp.Data, &addr); err != nil {
		return nil, fmt.Errorf("cannot decode default address: %w", err)
	}
	if addr.IsZero() {
		return nil, nil
	}
	return &addr, nil
}

func rehydrate(data interface{}, out interface{}) error {
	bytes, err := json.Marshal(data)
	if err != nil {
		return err
	}
	return json.Unmarshal(bytes, out)
}
