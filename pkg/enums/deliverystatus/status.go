package deliverystatus

type Status struct {
	Name string
}

func (s Status) Code() string {
	return s.Name
}

func (s Status) Label() string {
	if label, ok := labels[s.Name]; ok {
		return label
	}
	return s.Name
}

type Enum struct {
	Created   Status
	Started   Status
	PickedUp  Status
	Delivered Status
	Failed    Status
}

var Statuses = Enum{
	Created:   Status{Name: "CREATED"},
	Started:   Status{Name: "STARTED"},
	PickedUp:  Status{Name: "PICKED_UP"},
	Delivered: Status{Name: "DELIVERED"},
	Failed:    Status{Name: "FAILED"},
}

var All = []Status{
	Statuses.Created,
	Statuses.Started,
	Statuses.PickedUp,
	Statuses.Delivered,
	Statuses.Failed,
}

var labels = map[string]string{
	"CREATED":   "Awaiting courier",
	"STARTED":   "Courier assigned",
	"PICKED_UP": "Picked up",
	"DELIVERED": "Delivered",
	"FAILED":    "Delivery failed",
}

func ByName(name string) *Status {
	for _, s := range All {
		if s.Name == name {
			return &s
		}
	}
	return nil
}
