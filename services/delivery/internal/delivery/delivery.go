package delivery

import (
	"time"

	"github.com/appetiteclub/fulfillment/pkg/enums/deliverystatus"
	"github.com/appetiteclub/fulfillment/pkg/event"
	"github.com/appetiteclub/fulfillment/pkg/saga"
	"github.com/aquamarinepk/aqm"
	"github.com/google/uuid"
)

var Machine = saga.NewStateMachine("delivery", map[string][]string{
	deliverystatus.Statuses.Created.Code(): {
		deliverystatus.Statuses.Started.Code(),
		deliverystatus.Statuses.Failed.Code(),
	},
	deliverystatus.Statuses.Started.Code(): {
		deliverystatus.Statuses.PickedUp.Code(),
		deliverystatus.Statuses.Failed.Code(),
	},
	deliverystatus.Statuses.PickedUp.Code(): {
		deliverystatus.Statuses.Delivered.Code(),
		deliverystatus.Statuses.Failed.Code(),
	},
})

// Delivery is unique per order.
type Delivery struct {
	ID            uuid.UUID     `json:"id" bson:"_id"`
	OrderID       string        `json:"order_id" bson:"order_id"`
	CustomerID    string        `json:"customer_id" bson:"customer_id"`
	CookID        string        `json:"cook_id" bson:"cook_id"`
	Dropoff       event.Address `json:"dropoff" bson:"dropoff"`
	Status        string        `json:"status" bson:"status"`
	CourierJobID  string        `json:"courier_job_id,omitempty" bson:"courier_job_id,omitempty"`
	FailureReason string        `json:"failure_reason,omitempty" bson:"failure_reason,omitempty"`
	CreatedAt     time.Time     `json:"created_at" bson:"created_at"`
	UpdatedAt     time.Time     `json:"updated_at" bson:"updated_at"`
}

func (d *Delivery) GetID() uuid.UUID {
	return d.ID
}

func (d *Delivery) ResourceType() string {
	return "delivery"
}

func NewDelivery(p event.OrderReady) *Delivery {
	now := time.Now().UTC()
	return &Delivery{
		ID:         aqm.GenerateNewID(),
		OrderID:    p.OrderID,
		CustomerID: p.CustomerID,
		CookID:     p.CookID,
		Dropoff:    p.DeliveryAddress,
		Status:     deliverystatus.Statuses.Created.Code(),
		CreatedAt:  now,
		UpdatedAt:  now,
	}
}

func (d *Delivery) TransitionTo(status string) error {
	next, err := Machine.Transition(d.Status, status)
	if err != nil {
		return err
	}
	d.Status = next
	d.UpdatedAt = time.Now().UTC()
	return nil
}

// Start records the courier job and moves CREATED to STARTED.
func (d *Delivery) Start(jobID string) error {
	if err := d.TransitionTo(deliverystatus.Statuses.Started.Code()); err != nil {
		return err
	}
	d.CourierJobID = jobID
	return nil
}

func (d *Delivery) Fail(reason string) error {
	if err := d.TransitionTo(deliverystatus.Statuses.Failed.Code()); err != nil {
		return err
	}
	d.FailureReason = reason
	return nil
}

func (d *Delivery) metadata() event.DeliveryEventMetadata {
	return event.DeliveryEventMetadata{
		DeliveryID:   d.ID.String(),
		OrderID:      d.OrderID,
		CourierJobID: d.CourierJobID,
	}
}
