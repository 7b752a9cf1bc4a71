package order

import (
	"context"

	"github.com/google/uuid"
)

// OrderRepo returns (nil, nil) from Get when the order does not exist.
type OrderRepo interface {
	Create(ctx context.Context, o *Order) error
	Get(ctx context.Context, id uuid.UUID) (*Order, error)
	Update(ctx context.Context, o *Order) error
}
