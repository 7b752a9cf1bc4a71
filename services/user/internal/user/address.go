package user

import (
	"time"

	"github.com/appetiteclub/fulfillment/pkg/event"
	"github.com/aquamarinepk/aqm"
	"github.com/google/uuid"
)

// Address is a saved delivery address. A user has at most one default.
type Address struct {
	ID         uuid.UUID `json:"id" bson:"_id"`
	UserID     string    `json:"user_id" bson:"user_id"`
	Label      string    `json:"label,omitempty" bson:"label,omitempty"`
	Street     string    `json:"street" bson:"street"`
	City       string    `json:"city" bson:"city"`
	PostalCode string    `json:"postal_code,omitempty" bson:"postal_code,omitempty"`
	Country    string    `json:"country,omitempty" bson:"country,omitempty"`
	Notes      string    `json:"notes,omitempty" bson:"notes,omitempty"`
	IsDefault  bool      `json:"is_default" bson:"is_default"`
	CreatedAt  time.Time `json:"created_at" bson:"created_at"`
	UpdatedAt  time.Time `json:"updated_at" bson:"updated_at"`
}

func (a *Address) GetID() uuid.UUID {
	return a.ID
}

func (a *Address) ResourceType() string {
	return "address"
}

func (a *Address) EnsureID() {
	if a.ID == uuid.Nil {
		a.ID = aqm.GenerateNewID()
	}
}

func (a *Address) BeforeCreate() {
	a.EnsureID()
	now := time.Now().UTC()
	a.CreatedAt = now
	a.UpdatedAt = now
}

func (a *Address) BeforeUpdate() {
	a.UpdatedAt = time.Now().UTC()
}

// Snapshot is the copy orders keep of the address.
func (a *Address) Snapshot() event.Address {
	return event.Address{
		Street:     a.Street,
		City:       a.City,
		PostalCode: a.PostalCode,
		Country:    a.Country,
		Notes:      a.Notes,
	}
}
