package paymentstatus

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

// IsTerminal reports whether no further transition can leave this status.
func (s Status) IsTerminal() bool {
	return s == Statuses.Cancelled || s == Statuses.Refunded
}

type Enum struct {
	Created   Status
	Succeeded Status
	Failed    Status
	Cancelled Status
	Refunded  Status
}

var Statuses = Enum{
	Created:   Status{Name: "CREATED"},
	Succeeded: Status{Name: "SUCCEEDED"},
	Failed:    Status{Name: "FAILED"},
	Cancelled: Status{Name: "CANCELLED"},
	Refunded:  Status{Name: "REFUNDED"},
}

var All = []Status{
	Statuses.Created,
	Statuses.Succeeded,
	Statuses.Failed,
	Statuses.Cancelled,
	Statuses.Refunded,
}

var labels = map[string]string{
	"CREATED":   "Awaiting payment",
	"SUCCEEDED": "Paid",
	"FAILED":    "Payment failed",
	"CANCELLED": "Cancelled",
	"REFUNDED":  "Refunded",
}

func ByName(name string) *Status {
	for _, s := range All {
		if s.Name == name {
			return &s
		}
	}
	return nil
}
