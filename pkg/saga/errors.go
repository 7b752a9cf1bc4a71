package saga

import "errors"

var (
	// ErrAlreadyProcessed signals that the ledger already holds the event ID.
	ErrAlreadyProcessed = errors.New("event already processed")

	// ErrInvalidTransition signals a status change the state machine forbids.
	ErrInvalidTransition = errors.New("invalid status transition")

	// ErrPublishFailure wraps transport errors raised while publishing.
	ErrPublishFailure = errors.New("publish failure")

	// ErrDuplicateResource signals that a delivery or payment already exists for the order.
	ErrDuplicateResource = errors.New("resource already exists for order")

	// ErrDownstreamUnavailable signals that a courier or payment provider could not be reached.
	ErrDownstreamUnavailable = errors.New("downstream provider unavailable")
)

// IsSettled reports whether a domain error means the event needs no further
// attempts: redelivering it can never change the outcome.
func IsSettled(err error) bool {
	return errors.Is(err, ErrDuplicateResource) || errors.Is(err, ErrInvalidTransition)
}
