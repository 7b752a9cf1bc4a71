package event

import "time"

const (
	UserTopic = "user"

	EventUserUpdated = "user.updated"
)

type UserUpdated struct {
	UserID           string    `json:"user_id"`
	DefaultAddressID string    `json:"default_address_id,omitempty"`
	DefaultAddress   *Address  `json:"default_address,omitempty"`
	UpdatedAt        time.Time `json:"updated_at"`
}
