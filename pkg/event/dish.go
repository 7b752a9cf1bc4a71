package event

// Dish events are produced and consumed outside this repository; the keys are
// kept here so bus topology (streams, dead-letter subjects) covers them.
const (
	DishTopic = "dish"

	EventDishCreated             = "dish.created"
	EventDishUpdated             = "dish.updated"
	EventDishDeleted             = "dish.deleted"
	EventDishAvailabilityChanged = "dish.availability_changed"
)

// Topics lists every exchange the platform declares.
var Topics = []string{OrderTopic, DeliveryTopic, PaymentTopic, UserTopic, DishTopic}
