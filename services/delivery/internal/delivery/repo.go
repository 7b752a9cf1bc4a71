package delivery

import (
	"context"

	"github.com/google/uuid"
)

// DeliveryRepo lookups return (nil, nil) when nothing matches. Create
// returns saga.ErrDuplicateResource when the order already has a delivery.
type DeliveryRepo interface {
	Create(ctx context.Context, d *Delivery) error
	Get(ctx context.Context, id uuid.UUID) (*Delivery, error)
	FindByOrderID(ctx context.Context, orderID string) (*Delivery, error)
	FindByJobID(ctx context.Context, jobID string) (*Delivery, error)
	Update(ctx context.Context, d *Delivery) error
}
