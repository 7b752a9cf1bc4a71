package event

import (
	"time"

	"github.com/shopspring/decimal"
)

const (
	OrderTopic = "order"

	EventOrderPlaced    = "order.placed"
	EventOrderReady     = "order.ready"
	EventOrderCancelled = "order.cancelled"
)

// Address is the delivery address snapshot carried by order events.
type Address struct {
	Street     string `json:"street" bson:"street"`
	City       string `json:"city" bson:"city"`
	PostalCode string `json:"postal_code,omitempty" bson:"postal_code,omitempty"`
	Country    string `json:"country,omitempty" bson:"country,omitempty"`
	Notes      string `json:"notes,omitempty" bson:"notes,omitempty"`
}

// IsZero reports whether the snapshot carries no usable location.
func (a Address) IsZero() bool {
	return a.Street == "" && a.City == ""
}

type OrderLine struct {
	DishID   string          `json:"dish_id"`
	Quantity int             `json:"quantity"`
	Price    decimal.Decimal `json:"price"`
}

// OrderPlaced is consumed by the Dish and User services.
type OrderPlaced struct {
	OrderID         string          `json:"order_id"`
	CustomerID      string          `json:"customer_id"`
	CookID          string          `json:"cook_id"`
	Items           []OrderLine     `json:"items"`
	TotalAmount     decimal.Decimal `json:"total_amount"`
	DeliveryAddress Address         `json:"delivery_address"`
	PlacedAt        time.Time       `json:"placed_at"`
}

// OrderReady starts the delivery leg of the saga.
type OrderReady struct {
	OrderID         string    `json:"order_id"`
	CustomerID      string    `json:"customer_id"`
	CookID          string    `json:"cook_id"`
	DeliveryAddress Address   `json:"delivery_address"`
	ReadyAt         time.Time `json:"ready_at"`
}

type OrderCancelled struct {
	OrderID     string    `json:"order_id"`
	Reason      string    `json:"reason,omitempty"`
	CancelledAt time.Time `json:"cancelled_at"`
}
