package payment

import (
	"context"

	"github.com/google/uuid"
)

// PaymentRepo lookups return (nil, nil) when nothing matches. Create
// returns saga.ErrDuplicateResource when the order already has a payment.
type PaymentRepo interface {
	Create(ctx context.Context, p *Payment) error
	Get(ctx context.Context, id uuid.UUID) (*Payment, error)
	FindByOrderID(ctx context.Context, orderID string) (*Payment, error)
	FindByIntentID(ctx context.Context, intentID string) (*Payment, error)
	Update(ctx context.Context, p *Payment) error
}
