package payment

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/appetiteclub/fulfillment/pkg/enums/paymentstatus"
	"github.com/appetiteclub/fulfillment/pkg/event"
	"github.com/appetiteclub/fulfillment/pkg/saga"
	"github.com/aquamarinepk/aqm"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const Producer = "payment"

var (
	ErrNotFound       = errors.New("payment not found")
	ErrInvalidPayment = errors.New("invalid payment")

	// ErrNotConfirmed means the provider has not captured the intent yet.
	ErrNotConfirmed = errors.New("payment intent not confirmed by provider")

	// ErrUnsupportedEvent marks provider events this service does not track.
	ErrUnsupportedEvent = errors.New("unsupported provider event")
)

type ServiceDeps struct {
	Repo            PaymentRepo
	Outbox          saga.Outbox
	Transactor      saga.Transactor
	Provider        Provider
	DefaultCurrency string
}

type Service struct {
	repo     PaymentRepo
	outbox   saga.Outbox
	tx       saga.Transactor
	provider Provider
	currency string
	logger   aqm.Logger
}

func NewService(deps ServiceDeps, logger aqm.Logger) *Service {
	if logger == nil {
		logger = aqm.NewNoopLogger()
	}
	tx := deps.Transactor
	if tx == nil {
		tx = saga.NoopTransactor{}
	}
	currency := deps.DefaultCurrency
	if currency == "" {
		currency = "eur"
	}
	return &Service{
		repo:     deps.Repo,
		outbox:   deps.Outbox,
		tx:       tx,
		provider: deps.Provider,
		currency: currency,
		logger:   logger.With("component", "PaymentService"),
	}
}

type CreateRequest struct {
	OrderID    string          `json:"order_id"`
	CustomerID string          `json:"customer_id"`
	CookID     string          `json:"cook_id"`
	Amount     decimal.Decimal `json:"amount"`
	Currency   string          `json:"currency,omitempty"`
}

func (r CreateRequest) Validate() error {
	var problems []string
	if r.OrderID == "" {
		problems = append(problems, "order_id is required")
	}
	if r.CustomerID == "" {
		problems = append(problems, "customer_id is required")
	}
	if r.CookID == "" {
		problems = append(problems, "cook_id is required")
	}
	if !r.Amount.IsPositive() {
		problems = append(problems, "amount must be positive")
	}
	if len(problems) > 0 {
		return fmt.Errorf("%w: %s", ErrInvalidPayment, strings.Join(problems, ", "))
	}
	return nil
}

// Create opens a provider intent for the order. An order owns at most one
// payment; a second request returns saga.ErrDuplicateResource.
func (s *Service) Create(ctx context.Context, req CreateRequest) (*Payment, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	currency := req.Currency
	if currency == "" {
		currency = s.currency
	}

	var result *Payment
	err := s.tx.Exec(ctx, func(ctx context.Context) error {
		existing, err := s.repo.FindByOrderID(ctx, req.OrderID)
		if err != nil {
			return err
		}
		if existing != nil {
			return fmt.Errorf("%w: payment %s for order %s", saga.ErrDuplicateResource, existing.ID, req.OrderID)
		}

		intent, err := s.provider.CreateIntent(ctx, IntentRequest{
			OrderID:  req.OrderID,
			Amount:   req.Amount,
			Currency: currency,
		})
		if err != nil {
			return fmt.Errorf("cannot create intent for order %s: %w", req.OrderID, err)
		}

		p := NewPayment(req.OrderID, req.CustomerID, req.CookID, req.Amount, currency)
		p.IntentID = intent.ID
		p.ClientSecret = intent.ClientSecret
		if err := s.repo.Create(ctx, p); err != nil {
			return err
		}

		s.logger.Info("payment created", "payment_id", p.ID.String(), "order_id", p.OrderID, "intent_id", p.IntentID)
		result = p
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*Payment, error) {
	p, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, ErrNotFound
	}
	return p, nil
}

// Cancel voids the provider intent and moves the payment to CANCELLED.
func (s *Service) Cancel(ctx context.Context, id uuid.UUID) (*Payment, error) {
	return s.command(ctx, id, paymentstatus.Statuses.Cancelled.Code(), func(ctx context.Context, p *Payment) error {
		_, err := s.provider.CancelIntent(ctx, p.IntentID)
		return err
	})
}

// Confirm checks the intent with the provider and settles the payment when
// the provider reports it succeeded. Confirming twice is an invalid
// transition and emits nothing.
func (s *Service) Confirm(ctx context.Context, id uuid.UUID) (*Payment, error) {
	return s.command(ctx, id, paymentstatus.Statuses.Succeeded.Code(), func(ctx context.Context, p *Payment) error {
		intent, err := s.provider.RetrieveIntent(ctx, p.IntentID)
		if err != nil {
			return err
		}
		if intent.Status != IntentSucceeded {
			return fmt.Errorf("%w: intent %s is %s", ErrNotConfirmed, p.IntentID, intent.Status)
		}
		return nil
	})
}

// command re-reads the payment, rejects illegal targets before calling the
// provider, then commits the transition with its outbound event.
func (s *Service) command(ctx context.Context, id uuid.UUID, target string, call func(ctx context.Context, p *Payment) error) (*Payment, error) {
	var result *Payment
	err := s.tx.Exec(ctx, func(ctx context.Context) error {
		p, err := s.repo.Get(ctx, id)
		if err != nil {
			return err
		}
		if p == nil {
			return ErrNotFound
		}
		if !Machine.Can(p.Status, target) {
			_, err := Machine.Transition(p.Status, target)
			return err
		}
		if err := call(ctx, p); err != nil {
			return err
		}
		if err := s.settle(ctx, p, target, ""); err != nil {
			return err
		}
		result = p
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// ProviderEvent is the payment provider webhook payload.
type ProviderEvent struct {
	ID   string `json:"id"`
	Type string `json:"type"`
	Data struct {
		IntentID      string `json:"intent_id"`
		FailureReason string `json:"failure_reason,omitempty"`
	} `json:"data"`
}

var providerEvents = map[string]string{
	"payment_intent.succeeded":      paymentstatus.Statuses.Succeeded.Code(),
	"payment_intent.payment_failed": paymentstatus.Statuses.Failed.Code(),
	"charge.refunded":               paymentstatus.Statuses.Refunded.Code(),
}

// ApplyProviderEvent moves the payment that owns the event's intent.
func (s *Service) ApplyProviderEvent(ctx context.Context, evt ProviderEvent) (*Payment, error) {
	status, ok := providerEvents[evt.Type]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedEvent, evt.Type)
	}

	var result *Payment
	err := s.tx.Exec(ctx, func(ctx context.Context) error {
		p, err := s.repo.FindByIntentID(ctx, evt.Data.IntentID)
		if err != nil {
			return err
		}
		if p == nil {
			return ErrNotFound
		}
		if err := s.settle(ctx, p, status, evt.Data.FailureReason); err != nil {
			return err
		}
		result = p
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (s *Service) settle(ctx context.Context, p *Payment, status, reason string) error {
	previous := p.Status
	if err := p.TransitionTo(status); err != nil {
		return err
	}
	if reason != "" {
		p.FailureReason = reason
	}
	if err := s.repo.Update(ctx, p); err != nil {
		return err
	}

	payload := event.PaymentStatusChanged{
		PaymentID:      p.ID.String(),
		OrderID:        p.OrderID,
		CustomerID:     p.CustomerID,
		Amount:         p.Amount,
		Currency:       p.Currency,
		Status:         p.Status,
		PreviousStatus: previous,
		Reason:         reason,
		OccurredAt:     time.Now().UTC(),
	}
	if err := saga.Enqueue(ctx, s.outbox, Producer, event.PaymentTopic, routingKeyFor(p.Status), payload); err != nil {
		return err
	}

	s.logger.Info("payment status changed", "payment_id", p.ID.String(), "from", previous, "to", p.Status)
	return nil
}

func routingKeyFor(status string) string {
	switch status {
	case paymentstatus.Statuses.Succeeded.Code():
		return event.EventPaymentSucceeded
	case paymentstatus.Statuses.Failed.Code():
		return event.EventPaymentFailed
	case paymentstatus.Statuses.Cancelled.Code():
		return event.EventPaymentCancelled
	default:
		return event.EventPaymentRefunded
	}
}
