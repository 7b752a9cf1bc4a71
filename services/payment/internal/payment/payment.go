package payment

import (
	"time"

	"github.com/appetiteclub/fulfillment/pkg/enums/paymentstatus"
	"github.com/appetiteclub/fulfillment/pkg/saga"
	"github.com/aquamarinepk/aqm"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

var Machine = saga.NewStateMachine("payment", map[string][]string{
	paymentstatus.Statuses.Created.Code(): {
		paymentstatus.Statuses.Succeeded.Code(),
		paymentstatus.Statuses.Failed.Code(),
		paymentstatus.Statuses.Cancelled.Code(),
	},
	paymentstatus.Statuses.Failed.Code(): {
		paymentstatus.Statuses.Succeeded.Code(),
		paymentstatus.Statuses.Cancelled.Code(),
	},
	paymentstatus.Statuses.Succeeded.Code(): {
		paymentstatus.Statuses.Refunded.Code(),
	},
})

// Payment mirrors one provider payment intent. There is at most one per order.
type Payment struct {
	ID            uuid.UUID       `json:"id" bson:"_id"`
	OrderID       string          `json:"order_id" bson:"order_id"`
	CustomerID    string          `json:"customer_id" bson:"customer_id"`
	CookID        string          `json:"cook_id" bson:"cook_id"`
	Amount        decimal.Decimal `json:"amount" bson:"amount"`
	Currency      string          `json:"currency" bson:"currency"`
	Status        string          `json:"status" bson:"status"`
	IntentID      string          `json:"intent_id" bson:"intent_id"`
	ClientSecret  string          `json:"client_secret,omitempty" bson:"client_secret,omitempty"`
	FailureReason string          `json:"failure_reason,omitempty" bson:"failure_reason,omitempty"`
	CreatedAt     time.Time       `json:"created_at" bson:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at" bson:"updated_at"`
}

func (p *Payment) GetID() uuid.UUID {
	return p.ID
}

func (p *Payment) ResourceType() string {
	return "payment"
}

func NewPayment(orderID, customerID, cookID string, amount decimal.Decimal, currency string) *Payment {
	now := time.Now().UTC()
	return &Payment{
		ID:         aqm.GenerateNewID(),
		OrderID:    orderID,
		CustomerID: customerID,
		CookID:     cookID,
		Amount:     amount,
		Currency:   currency,
		Status:     paymentstatus.Statuses.Created.Code(),
		CreatedAt:  now,
		UpdatedAt:  now,
	}
}

func (p *Payment) TransitionTo(status string) error {
	next, err := Machine.Transition(p.Status, status)
	if err != nil {
		return err
	}
	p.Status = next
	p.UpdatedAt = time.Now().UTC()
	return nil
}
