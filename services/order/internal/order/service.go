package order

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/appetiteclub/fulfillment/pkg/enums/orderstatus"
	"github.com/appetiteclub/fulfillment/pkg/event"
	"github.com/appetiteclub/fulfillment/pkg/saga"
	"github.com/aquamarinepk/aqm"
	"github.com/google/uuid"
)

const Producer = "order"

var (
	ErrNotFound     = errors.New("order not found")
	ErrInvalidOrder = errors.New("invalid order")
)

type ServiceDeps struct {
	Repo       OrderRepo
	Outbox     saga.Outbox
	Transactor saga.Transactor
	Addresses  AddressResolver
}

// Service owns every order state change. Each change and the event it emits
// are written in one unit of work.
type Service struct {
	repo      OrderRepo
	outbox    saga.Outbox
	tx        saga.Transactor
	addresses AddressResolver
	logger    aqm.Logger
}

func NewService(deps ServiceDeps, logger aqm.Logger) *Service {
	if logger == nil {
		logger = aqm.NewNoopLogger()
	}
	tx := deps.Transactor
	if tx == nil {
		tx = saga.NoopTransactor{}
	}
	return &Service{
		repo:      deps.Repo,
		outbox:    deps.Outbox,
		tx:        tx,
		addresses: deps.Addresses,
		logger:    logger.With("component", "OrderService"),
	}
}

type PlaceRequest struct {
	CustomerID      string         `json:"customer_id"`
	CookID          string         `json:"cook_id"`
	Items           []Item         `json:"items"`
	DeliveryAddress *event.Address `json:"delivery_address,omitempty"`
}

func (s *Service) Place(ctx context.Context, req PlaceRequest) (*Order, error) {
	var address event.Address
	if req.DeliveryAddress != nil {
		address = *req.DeliveryAddress
	}

	if address.IsZero() && req.CustomerID != "" && s.addresses != nil {
		def, err := s.addresses.DefaultAddress(ctx, req.CustomerID)
		if err != nil {
			return nil, fmt.Errorf("cannot resolve default address: %w", err)
		}
		if def != nil {
			address = *def
		}
	}

	o := NewOrder(req.CustomerID, req.CookID, req.Items, address)
	if err := o.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrInvalidOrder, err.Error())
	}
	if o.DeliveryAddress.IsZero() {
		return nil, fmt.Errorf("%w: no delivery address", ErrInvalidOrder)
	}

	err := s.tx.Exec(ctx, func(ctx context.Context) error {
		if err := s.repo.Create(ctx, o); err != nil {
			return err
		}
		return saga.Enqueue(ctx, s.outbox, Producer, event.OrderTopic, event.EventOrderPlaced, placedEvent(o))
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("order placed", "order_id", o.ID.String(), "total", o.TotalAmount.String())
	return o, nil
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*Order, error) {
	o, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if o == nil {
		return nil, ErrNotFound
	}
	return o, nil
}

// MarkReady triggers the delivery leg through order.ready.
func (s *Service) MarkReady(ctx context.Context, id uuid.UUID) (*Order, error) {
	return s.transition(ctx, id, orderstatus.Statuses.Ready.Code(), func(o *Order) (string, interface{}) {
		return event.EventOrderReady, event.OrderReady{
			OrderID:         o.ID.String(),
			CustomerID:      o.CustomerID,
			CookID:          o.CookID,
			DeliveryAddress: o.DeliveryAddress,
			ReadyAt:         o.UpdatedAt,
		}
	})
}

func (s *Service) Cancel(ctx context.Context, id uuid.UUID, reason string) (*Order, error) {
	return s.transition(ctx, id, orderstatus.Statuses.Cancelled.Code(), func(o *Order) (string, interface{}) {
		o.CancelReason = reason
		return event.EventOrderCancelled, event.OrderCancelled{
			OrderID:     o.ID.String(),
			Reason:      reason,
			CancelledAt: o.UpdatedAt,
		}
	})
}

// Advance applies a status reported by another service. It emits nothing.
func (s *Service) Advance(ctx context.Context, id uuid.UUID, status string) (*Order, error) {
	return s.transition(ctx, id, status, nil)
}

func (s *Service) transition(ctx context.Context, id uuid.UUID, status string, emit func(*Order) (string, interface{})) (*Order, error) {
	var result *Order
	err := s.tx.Exec(ctx, func(ctx context.Context) error {
		o, err := s.repo.Get(ctx, id)
		if err != nil {
			return err
		}
		if o == nil {
			return ErrNotFound
		}

		previous := o.Status
		if err := o.TransitionTo(status); err != nil {
			return err
		}

		var routingKey string
		var payload interface{}
		if emit != nil {
			routingKey, payload = emit(o)
		}

		if err := s.repo.Update(ctx, o); err != nil {
			return err
		}
		if emit != nil {
			if err := saga.Enqueue(ctx, s.outbox, Producer, event.OrderTopic, routingKey, payload); err != nil {
				return err
			}
		}

		s.logger.Info("order status changed", "order_id", o.ID.String(), "from", previous, "to", o.Status)
		result = o
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func placedEvent(o *Order) event.OrderPlaced {
	lines := make([]event.OrderLine, 0, len(o.Items))
	for _, it := range o.Items {
		lines = append(lines, event.OrderLine{DishID: it.DishID, Quantity: it.Quantity, Price: it.Price})
	}
	return event.OrderPlaced{
		OrderID:         o.ID.String(),
		CustomerID:      o.CustomerID,
		CookID:          o.CookID,
		Items:           lines,
		TotalAmount:     o.TotalAmount,
		DeliveryAddress: o.DeliveryAddress,
		PlacedAt:        time.Now().UTC(),
	}
}
