package event

import "time"

const (
	DeliveryTopic = "delivery"

	EventDeliveryStarted   = "delivery.started"
	EventDeliveryPickedUp  = "delivery.picked_up"
	EventDeliveryDelivered = "delivery.delivered"
	EventDeliveryFailed    = "delivery.failed"
)

// DeliveryEventMetadata is shared by every delivery status event.
type DeliveryEventMetadata struct {
	DeliveryID   string `json:"delivery_id"`
	OrderID      string `json:"order_id"`
	CourierJobID string `json:"courier_job_id,omitempty"`
}

type DeliveryStarted struct {
	DeliveryEventMetadata
	StartedAt time.Time `json:"started_at"`
}

type DeliveryPickedUp struct {
	DeliveryEventMetadata
	PickedUpAt time.Time `json:"picked_up_at"`
}

type DeliveryDelivered struct {
	DeliveryEventMetadata
	DeliveredAt time.Time `json:"delivered_at"`
}

type DeliveryFailed struct {
	DeliveryEventMetadata
	Reason   string    `json:"reason"`
	FailedAt time.Time `json:"failed_at"`
}
