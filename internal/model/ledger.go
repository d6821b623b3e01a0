package model

import "time"

// Ledger entry kinds.
const (
	LedgerCapture  = "CAPTURE"  // payment taken in by a reservation
	LedgerWithdraw = "WITHDRAW" // held funds paid out to the owner
)

// LedgerEntry records a movement of funds held by the registry.  A
// CAPTURE is written in the same transaction as the reservation it
// pays for; a WITHDRAW moves the full held balance to the owner.
//
// Fields:
//  ID        – primary key identifier.
//  SpotID    – spot the payment belongs to (0 for withdrawals).
//  Party     – payer for captures, payee for withdrawals.
//  Amount    – amount in the smallest currency unit.
//  Kind      – CAPTURE or WITHDRAW.
//  CreatedAt – when the entry was written.
type LedgerEntry struct {
	ID        uint64    // ledger_entries.id
	SpotID    uint64    // ledger_entries.spot_id
	Party     Identity  // ledger_entries.party
	Amount    uint64    // ledger_entries.amount
	Kind      string    // ledger_entries.kind
	CreatedAt time.Time // ledger_entries.created_at
}

// Balance folds entries into the amount currently held.
func Balance(entries []LedgerEntry) uint64 {
	var held uint64
	for _, e := range entries {
		switch e.Kind {
		case LedgerCapture:
			held += e.Amount
		case LedgerWithdraw:
			if e.Amount > held {
				held = 0
				continue
			}
			held -= e.Amount
		}
	}
	return held
}
