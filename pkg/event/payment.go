package event

import (
	"time"

	"github.com/shopspring/decimal"
)

const (
	PaymentTopic = "payment"

	EventPaymentSucceeded = "payment.succeeded"
	EventPaymentFailed    = "payment.failed"
	EventPaymentCancelled = "payment.cancelled"
	EventPaymentRefunded  = "payment.refunded"
)

// PaymentStatusChanged is published for every settled payment transition.
type PaymentStatusChanged struct {
	PaymentID      string          `json:"payment_id"`
	OrderID        string          `json:"order_id"`
	CustomerID     string          `json:"customer_id"`
	Amount         decimal.Decimal `json:"amount"`
	Currency       string          `json:"currency"`
	Status         string          `json:"status"`
	PreviousStatus string          `json:"previous_status"`
	Reason         string          `json:"reason,omitempty"`
	OccurredAt     time.Time       `json:"occurred_at"`
}
