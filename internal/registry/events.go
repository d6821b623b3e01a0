package registry

import (
	"context"
	"time"

	"github.com/iliyamo/parking-rental/internal/model"
)

// EventKind names a registry notification.
type EventKind string

const (
	SpotAdded      EventKind = "SpotAdded"
	SpotReserved   EventKind = "SpotReserved"
	SpotReleased   EventKind = "SpotReleased"
	FundsWithdrawn EventKind = "FundsWithdrawn"
)

// Event is emitted after a state-changing operation commits.  Only the
// fields relevant to Kind are populated:
//
//	SpotAdded      SpotID, Location, PricePerHour
//	SpotReserved   SpotID, Renter
//	SpotReleased   SpotID
//	FundsWithdrawn Amount, To
type Event struct {
	Kind         EventKind
	SpotID       uint64
	Location     string
	PricePerHour uint64
	Renter       model.Identity
	Amount       uint64
	To           model.Identity
	At           time.Time
}

// EventSink observes registry events.  Publish is called in commit
// order while the registry lock is held, so implementations should not
// block for long.  A returned error is logged and otherwise ignored.
type EventSink interface {
	Publish(ctx context.Context, ev Event) error
}

// SinkFunc adapts a plain function to EventSink.
type SinkFunc func(ctx context.Context, ev Event) error

func (f SinkFunc) Publish(ctx context.Context, ev Event) error { return f(ctx, ev) }
