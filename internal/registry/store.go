package registry

import (
	"context"

	"github.com/iliyamo/parking-rental/internal/model"
)

// Store persists spots, the registry owner and the funds ledger.
// Reads outside InTx observe only committed state.
type Store interface {
	// ClaimOwner records owner if no owner is stored yet and returns the
	// owner that is stored after the call.
	ClaimOwner(ctx context.Context, owner model.Identity) (model.Identity, error)
	// Spot returns the spot with id or ErrNotFound.
	Spot(ctx context.Context, id uint64) (model.Spot, error)
	// Spots returns every spot in creation order.
	Spots(ctx context.Context) ([]model.Spot, error)
	// LedgerEntries returns every ledger entry in write order.
	LedgerEntries(ctx context.Context) ([]model.LedgerEntry, error)
	// InTx runs fn in a transaction.  When fn returns an error nothing
	// fn did is kept.
	InTx(ctx context.Context, fn func(tx Tx) error) error
}

// Tx is the write side of a Store, valid only inside InTx.
type Tx interface {
	// SpotForUpdate loads a spot and locks it until the transaction
	// ends.  It returns ErrNotFound when absent.
	SpotForUpdate(ctx context.Context, id uint64) (model.Spot, error)
	// InsertSpot stores a new spot or returns ErrDuplicateID.
	InsertSpot(ctx context.Context, s model.Spot) error
	// UpdateHolder writes IsAvailable, Renter and UpdatedAt of s.
	UpdateHolder(ctx context.Context, s model.Spot) error
	// AppendLedger stores e and fills in its ID.
	AppendLedger(ctx context.Context, e *model.LedgerEntry) error
	// HeldFunds returns the balance currently held by the registry.
	HeldFunds(ctx context.Context) (uint64, error)
}
