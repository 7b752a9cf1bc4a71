package orderstatus

type Status struct {
	Name string
}

func (s Status) Code() string {
	return s.Name
}

// Label returns the human readable name shown to customers.
func (s Status) Label() string {
	if label, ok := labels[s.Name]; ok {
		return label
	}
	return s.Name
}

type Enum struct {
	Placed     Status
	Ready      Status
	InDelivery Status
	Delivered  Status
	Cancelled  Status
}

var Statuses = Enum{
	Placed:     Status{Name: "PLACED"},
	Ready:      Status{Name: "READY"},
	InDelivery: Status{Name: "IN_DELIVERY"},
	Delivered:  Status{Name: "DELIVERED"},
	Cancelled:  Status{Name: "CANCELLED"},
}

var All = []Status{
	Statuses.Placed,
	Statuses.Ready,
	Statuses.InDelivery,
	Statuses.Delivered,
	Statuses.Cancelled,
}

var labels = map[string]string{
	"PLACED":      "Placed",
	"READY":       "Ready for pickup",
	"IN_DELIVERY": "On the way",
	"DELIVERED":   "Delivered",
	"CANCELLED":   "Cancelled",
}

// ByName returns the status for a given name, or nil if not found
func ByName(name string) *Status {
	for _, s := range All {
		if s.Name == name {
			return &s
		}
	}
	return nil
}
