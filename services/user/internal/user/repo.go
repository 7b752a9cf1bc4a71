package user

import (
	"context"

	"github.com/google/uuid"
)

// AddressRepo lookups return (nil, nil) when nothing matches.
type AddressRepo interface {
	Create(ctx context.Context, a *Address) error
	Get(ctx context.Context, id uuid.UUID) (*Address, error)
	ListByUser(ctx context.Context, userID string) ([]*Address, error)
	FindDefault(ctx context.Context, userID string) (*Address, error)
	// ClearDefaults unsets the default flag on every address of the user
	// except keep.
	ClearDefaults(ctx context.Context, userID string, keep uuid.UUID) error
	Update(ctx context.Context, a *Address) error
}
