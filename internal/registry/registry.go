// Package registry implements the parking-spot registry: the single
// authority that owns spot records, validates payments and decides who
// may add, reserve and release spots.
//
// All state-changing calls are serialized by the Registry and applied
// inside one Store transaction, so a rejected call never leaves a
// partial write or a partially captured payment behind.  Events are
// delivered to the configured sinks after the transaction commits, in
// the same order the operations were applied.
package registry

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/iliyamo/parking-rental/internal/model"
)

// Registry is the parking-spot registry.  The owner is fixed at
// construction and cannot be changed afterwards.
type Registry struct {
	mu    sync.Mutex
	store Store
	owner model.Identity
	sinks []EventSink
	now   func() time.Time
}

// New returns a Registry backed by store and owned by owner.  The first
// Registry created on a store claims it; later calls must pass the same
// owner or ErrOwnerMismatch is returned.
func New(ctx context.Context, store Store, owner model.Identity, sinks ...EventSink) (*Registry, error) {
	if store == nil {
		return nil, errors.New("registry: nil store")
	}
	if owner.IsEmpty() {
		return nil, errors.New("registry: owner identity is required")
	}
	stored, err := store.ClaimOwner(ctx, owner)
	if err != nil {
		return nil, fmt.Errorf("claim owner: %w", err)
	}
	if stored != owner {
		return nil, fmt.Errorf("%w: stored %q, configured %q", ErrOwnerMismatch, stored, owner)
	}
	return &Registry{
		store: store,
		owner: owner,
		sinks: sinks,
		now:   func() time.Time { return time.Now().UTC() },
	}, nil
}

// Owner returns the identity allowed to add spots and withdraw funds.
func (r *Registry) Owner() model.Identity { return r.owner }

// MaxLocationLen is the longest location label, in characters, a spot
// may carry.  It matches the width of the spots.location column.
const MaxLocationLen = 255

// AddSpot registers a new available spot.  Only the owner may call it.
// The location is stored exactly as given; it must not be blank and may
// hold at most MaxLocationLen characters.
func (r *Registry) AddSpot(ctx context.Context, caller model.Identity, id uint64, location string, pricePerHour uint64) (model.Spot, error) {
	if caller != r.owner {
		return model.Spot{}, ErrUnauthorized
	}
	if id == 0 || strings.TrimSpace(location) == "" || utf8.RuneCountInString(location) > MaxLocationLen {
		return model.Spot{}, ErrInvalidSpot
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	spot := model.Spot{
		ID:           id,
		Location:     location,
		PricePerHour: pricePerHour,
		IsAvailable:  true,
		Renter:       model.NoRenter,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	err := r.store.InTx(ctx, func(tx Tx) error {
		return tx.InsertSpot(ctx, spot)
	})
	if err != nil {
		return model.Spot{}, err
	}
	r.emit(ctx, Event{Kind: SpotAdded, SpotID: id, Location: location, PricePerHour: pricePerHour, At: now})
	return spot, nil
}

// Reserve hands an available spot to caller.  payment must equal the
// spot's hourly price exactly; it is captured into the registry ledger
// in the same transaction that marks the spot reserved.
func (r *Registry) Reserve(ctx context.Context, caller model.Identity, id uint64, payment uint64) (model.Spot, error) {
	if caller.IsEmpty() {
		return model.Spot{}, ErrUnauthorized
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	var spot model.Spot
	err := r.store.InTx(ctx, func(tx Tx) error {
		s, err := tx.SpotForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if !s.IsAvailable {
			return ErrNotAvailable
		}
		if payment != s.PricePerHour {
			return ErrIncorrectPayment
		}
		s.IsAvailable = false
		s.Renter = caller
		s.UpdatedAt = now
		if err := tx.UpdateHolder(ctx, s); err != nil {
			return err
		}
		entry := model.LedgerEntry{SpotID: id, Party: caller, Amount: payment, Kind: model.LedgerCapture, CreatedAt: now}
		if err := tx.AppendLedger(ctx, &entry); err != nil {
			return err
		}
		spot = s
		return nil
	})
	if err != nil {
		return model.Spot{}, err
	}
	r.emit(ctx, Event{Kind: SpotReserved, SpotID: id, Renter: caller, At: now})
	return spot, nil
}

// Release returns a reserved spot to the pool.  Only the current renter
// may release; releasing an available spot is always unauthorized.  The
// payment captured by Reserve is kept.
func (r *Registry) Release(ctx context.Context, caller model.Identity, id uint64) (model.Spot, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	var spot model.Spot
	err := r.store.InTx(ctx, func(tx Tx) error {
		s, err := tx.SpotForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if !s.HeldBy(caller) {
			return ErrUnauthorized
		}
		s.IsAvailable = true
		s.Renter = model.NoRenter
		s.UpdatedAt = now
		if err := tx.UpdateHolder(ctx, s); err != nil {
			return err
		}
		spot = s
		return nil
	})
	if err != nil {
		return model.Spot{}, err
	}
	r.emit(ctx, Event{Kind: SpotReleased, SpotID: id, At: now})
	return spot, nil
}

// GetSpot returns the current record for id or ErrNotFound.
func (r *Registry) GetSpot(ctx context.Context, id uint64) (model.Spot, error) {
	return r.store.Spot(ctx, id)
}

// ListSpots returns all spots in creation order.
func (r *Registry) ListSpots(ctx context.Context) ([]model.Spot, error) {
	return r.store.Spots(ctx)
}

// Ledger returns every ledger entry and the balance currently held.
func (r *Registry) Ledger(ctx context.Context) ([]model.LedgerEntry, uint64, error) {
	entries, err := r.store.LedgerEntries(ctx)
	if err != nil {
		return nil, 0, err
	}
	return entries, model.Balance(entries), nil
}

// HeldFunds returns the balance of captured payments not yet withdrawn.
func (r *Registry) HeldFunds(ctx context.Context) (uint64, error) {
	_, held, err := r.Ledger(ctx)
	return held, err
}

// Withdraw pays the whole held balance out to the owner.
func (r *Registry) Withdraw(ctx context.Context, caller model.Identity) (model.LedgerEntry, error) {
	if caller != r.owner {
		return model.LedgerEntry{}, ErrUnauthorized
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	var entry model.LedgerEntry
	err := r.store.InTx(ctx, func(tx Tx) error {
		held, err := tx.HeldFunds(ctx)
		if err != nil {
			return err
		}
		if held == 0 {
			return ErrNothingToWithdraw
		}
		entry = model.LedgerEntry{Party: r.owner, Amount: held, Kind: model.LedgerWithdraw, CreatedAt: now}
		return tx.AppendLedger(ctx, &entry)
	})
	if err != nil {
		return model.LedgerEntry{}, err
	}
	r.emit(ctx, Event{Kind: FundsWithdrawn, Amount: entry.Amount, To: r.owner, At: now})
	return entry, nil
}

// emit must be called with r.mu held.
func (r *Registry) emit(ctx context.Context, ev Event) {
	for _, s := range r.sinks {
		if err := s.Publish(ctx, ev); err != nil {
			log.Printf("registry: deliver %s for spot %d: %v", ev.Kind, ev.SpotID, err)
		}
	}
}
