package user

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/appetiteclub/fulfillment/pkg/event"
	"github.com/appetiteclub/fulfillment/pkg/saga"
	"github.com/aquamarinepk/aqm"
	"github.com/google/uuid"
)

const Producer = "user"

var (
	ErrNotFound       = errors.New("address not found")
	ErrInvalidAddress = errors.New("invalid address")
)

type ServiceDeps struct {
	Repo       AddressRepo
	Outbox     saga.Outbox
	Transactor saga.Transactor
}

type Service struct {
	repo   AddressRepo
	outbox saga.Outbox
	tx     saga.Transactor
	logger aqm.Logger
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
		repo:   deps.Repo,
		outbox: deps.Outbox,
		tx:     tx,
		logger: logger.With("component", "AddressService"),
	}
}

type AddRequest struct {
	Label      string `json:"label,omitempty"`
	Street     string `json:"street"`
	City       string `json:"city"`
	PostalCode string `json:"postal_code,omitempty"`
	Country    string `json:"country,omitempty"`
	Notes      string `json:"notes,omitempty"`
	Default    bool   `json:"is_default,omitempty"`
}

func (r AddRequest) Validate() error {
	var problems []string
	if strings.TrimSpace(r.Street) == "" {
		problems = append(problems, "street is required")
	}
	if strings.TrimSpace(r.City) == "" {
		problems = append(problems, "city is required")
	}
	if len(problems) > 0 {
		return fmt.Errorf("%w: %s", ErrInvalidAddress, strings.Join(problems, ", "))
	}
	return nil
}

// Add stores a new address. The user's first address becomes the default,
// as does any address added with is_default set.
func (s *Service) Add(ctx context.Context, userID string, req AddRequest) (*Address, error) {
	if userID == "" {
		return nil, fmt.Errorf("%w: user id is required", ErrInvalidAddress)
	}
	if err := req.Validate(); err != nil {
		return nil, err
	}

	a := &Address{
		UserID:     userID,
		Label:      req.Label,
		Street:     req.Street,
		City:       req.City,
		PostalCode: req.PostalCode,
		Country:    req.Country,
		Notes:      req.Notes,
	}
	a.BeforeCreate()

	err := s.tx.Exec(ctx, func(ctx context.Context) error {
		current, err := s.repo.FindDefault(ctx, userID)
		if err != nil {
			return err
		}
		if err := s.repo.Create(ctx, a); err != nil {
			return err
		}
		if current == nil || req.Default {
			return s.makeDefault(ctx, a)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("address added", "user_id", userID, "address_id", a.ID.String(), "default", a.IsDefault)
	return a, nil
}

func (s *Service) List(ctx context.Context, userID string) ([]*Address, error) {
	return s.repo.ListByUser(ctx, userID)
}

func (s *Service) Default(ctx context.Context, userID string) (*Address, error) {
	a, err := s.repo.FindDefault(ctx, userID)
	if err != nil {
		return nil, err
	}
	if a == nil {
		return nil, ErrNotFound
	}
	return a, nil
}

// SetDefault makes the address the user's only default. Clearing the others
// and flagging the target commit together.
func (s *Service) SetDefault(ctx context.Context, userID string, id uuid.UUID) (*Address, error) {
	var result *Address
	err := s.tx.Exec(ctx, func(ctx context.Context) error {
		a, err := s.repo.Get(ctx, id)
		if err != nil {
			return err
		}
		if a == nil || a.UserID != userID {
			return ErrNotFound
		}
		result = a
		if a.IsDefault {
			return nil
		}
		return s.makeDefault(ctx, a)
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (s *Service) makeDefault(ctx context.Context, a *Address) error {
	if err := s.repo.ClearDefaults(ctx, a.UserID, a.ID); err != nil {
		return err
	}
	a.IsDefault = true
	a.BeforeUpdate()
	if err := s.repo.Update(ctx, a); err != nil {
		return err
	}

	snapshot := a.Snapshot()
	payload := event.UserUpdated{
		UserID:           a.UserID,
		DefaultAddressID: a.ID.String(),
		DefaultAddress:   &snapshot,
		UpdatedAt:        time.Now().UTC(),
	}
	if err := saga.Enqueue(ctx, s.outbox, Producer, event.UserTopic, event.EventUserUpdated, payload); err != nil {
		return err
	}

	s.logger.Info("default address changed", "user_id", a.UserID, "address_id", a.ID.String())
	return nil
}
