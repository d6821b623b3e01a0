// Package queue defines the registry event envelope carried over RabbitMQ
// and the consumer that turns those messages into an audit log.
package queue

import (
	"time"

	"github.com/google/uuid"

	"github.com/iliyamo/parking-rental/internal/registry"
)

// ParkingEvent is the JSON form of a registry.Event.  Consumers use ID to
// detect redelivered messages.  PricePerHour is set for SpotAdded only, so
// a free spot still carries "price_per_hour":0.
type ParkingEvent struct {
	ID           string    `json:"id"`
	Kind         string    `json:"kind"`
	SpotID       uint64    `json:"spot_id,omitempty"`
	Location     string    `json:"location,omitempty"`
	PricePerHour *uint64   `json:"price_per_hour,omitempty"`
	Renter       string    `json:"renter,omitempty"`
	Amount       uint64    `json:"amount,omitempty"`
	To           string    `json:"to,omitempty"`
	OccurredAt   time.Time `json:"occurred_at"`
}

// FromRegistry wraps ev in an envelope with a fresh id.
func FromRegistry(ev registry.Event) ParkingEvent {
	out := ParkingEvent{
		ID:         uuid.NewString(),
		Kind:       string(ev.Kind),
		SpotID:     ev.SpotID,
		Location:   ev.Location,
		Renter:     ev.Renter.String(),
		Amount:     ev.Amount,
		To:         ev.To.String(),
		OccurredAt: ev.At.UTC(),
	}
	if ev.Kind == registry.SpotAdded {
		price := ev.PricePerHour
		out.PricePerHour = &price
	}
	return out
}

// Price returns the hourly price carried by a SpotAdded event, or zero.
func (e ParkingEvent) Price() uint64 {
	if e.PricePerHour == nil {
		return 0
	}
	return *e.PricePerHour
}
