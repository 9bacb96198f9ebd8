package engine

import (
	"context"

	"hanzikit/core"
)

// Store abstracts durable per-user progress records.
//
// Load reports found=false with a nil error when the user has no record yet.
// Implementations return an error wrapping core.ErrMalformedRecord when stored
// data cannot be decoded. Save must replace the whole record atomically.
type Store interface {
	Load(ctx context.Context, user core.UserID) (rec core.Record, found bool, err error)
	Save(ctx context.Context, rec core.Record) error
}

// Enumerator is implemented by stores that can list the users they hold.
type Enumerator interface {
	Users(ctx context.Context) ([]core.UserID, error)
}

// RuleEngine evaluates rules and emits derived events.
type RuleEngine interface {
	Evaluate(ctx context.Context, state core.Record, trigger core.Event) []core.Event
}
