package saga

import "context"

// Transactor runs fn as one unit of work. Implementations backed by a store
// with transactions commit when fn returns nil and roll back otherwise.
type Transactor interface {
	Exec(ctx context.Context, fn func(ctx context.Context) error) error
}

// NoopTransactor runs fn directly. Writes made before a failure stay applied,
// so effects run under it must tolerate being repeated.
type NoopTransactor struct{}

func (NoopTransactor) Exec(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}
