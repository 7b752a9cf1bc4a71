package order

import (
	"fmt"
	"time"

	"github.com/appetiteclub/fulfillment/pkg/enums/orderstatus"
	"github.com/appetiteclub/fulfillment/pkg/event"
	"github.com/appetiteclub/fulfillment/pkg/saga"
	"github.com/aquamarinepk/aqm"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Machine holds the legal order status changes.
var Machine = saga.NewStateMachine("order", map[string][]string{
	orderstatus.Statuses.Placed.Code(): {
		orderstatus.Statuses.Ready.Code(),
		orderstatus.Statuses.Cancelled.Code(),
	},
	orderstatus.Statuses.Ready.Code(): {
		orderstatus.Statuses.Cancelled.Code(),
		orderstatus.Statuses.InDelivery.Code(),
		orderstatus.Statuses.Delivered.Code(),
	},
	orderstatus.Statuses.InDelivery.Code(): {
		orderstatus.Statuses.Delivered.Code(),
	},
})

type Item struct {
	DishID   string          `json:"dish_id" bson:"dish_id"`
	Quantity int             `json:"quantity" bson:"quantity"`
	Price    decimal.Decimal `json:"price" bson:"price"`
}

type Order struct {
	ID              uuid.UUID       `json:"id" bson:"_id"`
	CustomerID      string          `json:"customer_id" bson:"customer_id"`
	CookID          string          `json:"cook_id" bson:"cook_id"`
	Items           []Item          `json:"items" bson:"items"`
	TotalAmount     decimal.Decimal `json:"total_amount" bson:"total_amount"`
	DeliveryAddress event.Address   `json:"delivery_address" bson:"delivery_address"`
	Status          string          `json:"status" bson:"status"`
	CancelReason    string          `json:"cancel_reason,omitempty" bson:"cancel_reason,omitempty"`
	CreatedAt       time.Time       `json:"created_at" bson:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at" bson:"updated_at"`
}

func (o *Order) GetID() uuid.UUID {
	return o.ID
}

func (o *Order) ResourceType() string {
	return "order"
}

func NewOrder(customerID, cookID string, items []Item, address event.Address) *Order {
	o := &Order{
		ID:              aqm.GenerateNewID(),
		CustomerID:      customerID,
		CookID:          cookID,
		Items:           items,
		DeliveryAddress: address,
		Status:          orderstatus.Statuses.Placed.Code(),
	}
	o.TotalAmount = Total(items)
	o.BeforeCreate()
	return o
}

// Total sums quantity times unit price over every line.
func Total(items []Item) decimal.Decimal {
	total := decimal.Zero
	for _, it := range items {
		total = total.Add(it.Price.Mul(decimal.NewFromInt(int64(it.Quantity))))
	}
	return total
}

func (o *Order) EnsureID() {
	if o.ID == uuid.Nil {
		o.ID = aqm.GenerateNewID()
	}
}

func (o *Order) BeforeCreate() {
	o.EnsureID()
	o.CreatedAt = time.Now().UTC()
	o.UpdatedAt = o.CreatedAt
}

func (o *Order) BeforeUpdate() {
	o.UpdatedAt = time.Now().UTC()
}

// TransitionTo moves the order to status or leaves it untouched and
// returns saga.ErrInvalidTransition.
func (o *Order) TransitionTo(status string) error {
	next, err := Machine.Transition(o.Status, status)
	if err != nil {
		return err
	}
	o.Status = next
	o.BeforeUpdate()
	return nil
}

func (o *Order) Validate() error {
	if o.CustomerID == "" {
		return fmt.Errorf("customer_id is required")
	}
	if o.CookID == "" {
		return fmt.Errorf("cook_id is required")
	}
	if len(o.Items) == 0 {
		return fmt.Errorf("at least one item is required")
	}
	for _, it := range o.Items {
		if it.DishID == "" {
			return fmt.Errorf("dish_id is required")
		}
		if it.Quantity <= 0 {
			return fmt.Errorf("quantity must be positive")
		}
		if it.Price.IsNegative() {
			return fmt.Errorf("price cannot be negative")
		}
	}
	return nil
}
