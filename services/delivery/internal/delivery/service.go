package delivery

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/appetiteclub/fulfillment/pkg/enums/deliverystatus"
	"github.com/appetiteclub/fulfillment/pkg/event"
	"github.com/appetiteclub/fulfillment/pkg/provider"
	"github.com/appetiteclub/fulfillment/pkg/saga"
	"github.com/aquamarinepk/aqm"
	"github.com/google/uuid"
)

const Producer = "delivery"

var ErrNotFound = errors.New("delivery not found")

type ServiceDeps struct {
	Repo       DeliveryRepo
	Outbox     saga.Outbox
	Transactor saga.Transactor
	Courier    Courier
}

type Service struct {
	repo    DeliveryRepo
	outbox  saga.Outbox
	tx      saga.Transactor
	courier Courier
	logger  aqm.Logger
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
		repo:    deps.Repo,
		outbox:  deps.Outbox,
		tx:      tx,
		courier: deps.Courier,
		logger:  logger.With("component", "DeliveryService"),
	}
}

// StartForOrder creates the order's delivery and books a courier. A second
// call for the same order returns saga.ErrDuplicateResource. A courier that
// cannot be reached leaves nothing behind so the caller can retry.
func (s *Service) StartForOrder(ctx context.Context, p event.OrderReady) (*Delivery, error) {
	if p.OrderID == "" {
		return nil, fmt.Errorf("order ready without order id")
	}

	var result *Delivery
	err := s.tx.Exec(ctx, func(ctx context.Context) error {
		existing, err := s.repo.FindByOrderID(ctx, p.OrderID)
		if err != nil {
			return err
		}
		if existing != nil {
			return fmt.Errorf("%w: delivery %s for order %s", saga.ErrDuplicateResource, existing.ID, p.OrderID)
		}

		d := NewDelivery(p)
		job, err := s.courier.RequestJob(ctx, JobRequest{
			OrderID:    p.OrderID,
			PickupRef:  p.CookID,
			CustomerID: p.CustomerID,
			Dropoff:    p.DeliveryAddress,
		})

		routingKey := event.EventDeliveryStarted
		var payload interface{}
		switch {
		case err == nil:
			if err := d.Start(job.ID); err != nil {
				return err
			}
			payload = event.DeliveryStarted{DeliveryEventMetadata: d.metadata(), StartedAt: d.UpdatedAt}
		case provider.IsRejection(err):
			if err := d.Fail(err.Error()); err != nil {
				return err
			}
			routingKey = event.EventDeliveryFailed
			payload = event.DeliveryFailed{DeliveryEventMetadata: d.metadata(), Reason: d.FailureReason, FailedAt: d.UpdatedAt}
		default:
			return fmt.Errorf("cannot book courier for order %s: %w", p.OrderID, err)
		}

		if err := s.repo.Create(ctx, d); err != nil {
			return err
		}
		if err := saga.Enqueue(ctx, s.outbox, Producer, event.DeliveryTopic, routingKey, payload); err != nil {
			return err
		}

		s.logger.Info("delivery created", "delivery_id", d.ID.String(), "order_id", d.OrderID, "status", d.Status)
		result = d
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// CourierEvent is the courier webhook payload.
type CourierEvent struct {
	EventID string `json:"event_id"`
	JobID   string `json:"job_id"`
	Status  string `json:"status"`
	Reason  string `json:"reason,omitempty"`
}

var courierStatuses = map[string]string{
	"picked_up": deliverystatus.Statuses.PickedUp.Code(),
	"delivered": deliverystatus.Statuses.Delivered.Code(),
	"failed":    deliverystatus.Statuses.Failed.Code(),
}

// ApplyCourierEvent moves the delivery tracked by the courier job.
func (s *Service) ApplyCourierEvent(ctx context.Context, evt CourierEvent) (*Delivery, error) {
	status, ok := courierStatuses[strings.ToLower(evt.Status)]
	if !ok {
		return nil, fmt.Errorf("%w: unknown courier status %q", saga.ErrInvalidTransition, evt.Status)
	}

	var result *Delivery
	err := s.tx.Exec(ctx, func(ctx context.Context) error {
		d, err := s.repo.FindByJobID(ctx, evt.JobID)
		if err != nil {
			return err
		}
		if d == nil {
			return ErrNotFound
		}

		previous := d.Status
		if err := d.TransitionTo(status); err != nil {
			return err
		}

		now := time.Now().UTC()
		var routingKey string
		var payload interface{}
		switch status {
		case deliverystatus.Statuses.PickedUp.Code():
			routingKey = event.EventDeliveryPickedUp
			payload = event.DeliveryPickedUp{DeliveryEventMetadata: d.metadata(), PickedUpAt: now}
		case deliverystatus.Statuses.Delivered.Code():
			routingKey = event.EventDeliveryDelivered
			payload = event.DeliveryDelivered{DeliveryEventMetadata: d.metadata(), DeliveredAt: now}
		default:
			d.FailureReason = evt.Reason
			routingKey = event.EventDeliveryFailed
			payload = event.DeliveryFailed{DeliveryEventMetadata: d.metadata(), Reason: evt.Reason, FailedAt: now}
		}

		if err := s.repo.Update(ctx, d); err != nil {
			return err
		}
		if err := saga.Enqueue(ctx, s.outbox, Producer, event.DeliveryTopic, routingKey, payload); err != nil {
			return err
		}

		s.logger.Info("delivery status changed", "delivery_id", d.ID.String(), "from", previous, "to", d.Status)
		result = d
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*Delivery, error) {
	d, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if d == nil {
		return nil, ErrNotFound
	}
	return d, nil
}

func (s *Service) FindByOrderID(ctx context.Context, orderID string) (*Delivery, error) {
	d, err := s.repo.FindByOrderID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if d == nil {
		return nil, ErrNotFound
	}
	return d, nil
}
