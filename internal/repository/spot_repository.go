// Package repository contains data access logic separated from HTTP handlers.
// This file defines SpotRepo, the MySQL implementation of registry.Store.
// Spots, the registry owner and the funds ledger live in three tables that
// are always written inside one transaction per registry operation.
package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/go-sql-driver/mysql"

	"github.com/iliyamo/parking-rental/internal/model"
	"github.com/iliyamo/parking-rental/internal/registry"
)

// mysqlDuplicateEntry is the server error number for a unique key violation.
const mysqlDuplicateEntry = 1062

const spotColumns = "id, location, price_per_hour, is_available, renter, created_at, updated_at"

// SpotRepo persists registry state in MySQL.
type SpotRepo struct {
	db *sql.DB
}

var _ registry.Store = (*SpotRepo)(nil)

// NewSpotRepo constructs a SpotRepo given a DB handle.
func NewSpotRepo(db *sql.DB) *SpotRepo { return &SpotRepo{db: db} }

// DB exposes the underlying handle for health checks.
func (r *SpotRepo) DB() *sql.DB { return r.db }

// ClaimOwner stores owner in the single registry_owner row unless a row
// already exists, then returns whatever owner is stored.
func (r *SpotRepo) ClaimOwner(ctx context.Context, owner model.Identity) (model.Identity, error) {
	if _, err := r.db.ExecContext(ctx, "INSERT IGNORE INTO registry_owner (id, owner) VALUES (1, ?)", string(owner)); err != nil {
		return "", err
	}
	var stored string
	if err := r.db.QueryRowContext(ctx, "SELECT owner FROM registry_owner WHERE id = 1").Scan(&stored); err != nil {
		return "", err
	}
	return model.Identity(stored), nil
}

// Spot fetches a spot by id.  It returns registry.ErrNotFound if no row matches.
func (r *SpotRepo) Spot(ctx context.Context, id uint64) (model.Spot, error) {
	row := r.db.QueryRowContext(ctx, "SELECT "+spotColumns+" FROM spots WHERE id = ?", id)
	return scanSpot(row)
}

// Spots returns all spots ordered by insertion.
func (r *SpotRepo) Spots(ctx context.Context) ([]model.Spot, error) {
	rows, err := r.db.QueryContext(ctx, "SELECT "+spotColumns+" FROM spots ORDER BY seq")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []model.Spot{}
	for rows.Next() {
		s, err := scanSpot(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// LedgerEntries returns all ledger rows ordered by id.
func (r *SpotRepo) LedgerEntries(ctx context.Context) ([]model.LedgerEntry, error) {
	rows, err := r.db.QueryContext(ctx, "SELECT id, spot_id, party, amount, kind, created_at FROM ledger_entries ORDER BY id")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []model.LedgerEntry{}
	for rows.Next() {
		var (
			e     model.LedgerEntry
			party string
		)
		if err := rows.Scan(&e.ID, &e.SpotID, &party, &e.Amount, &e.Kind, &e.CreatedAt); err != nil {
			return nil, err
		}
		e.Party = model.Identity(party)
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// InTx runs fn inside a database transaction.  The transaction is
// committed only when fn returns nil and rolled back otherwise.
func (r *SpotRepo) InTx(ctx context.Context, fn func(tx registry.Tx) error) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()
	if err := fn(&spotTx{tx: tx}); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	committed = true
	return nil
}

type spotTx struct {
	tx *sql.Tx
}

// SpotForUpdate locks the spot row until the transaction ends so that
// concurrent reserves from other processes are serialized.
func (t *spotTx) SpotForUpdate(ctx context.Context, id uint64) (model.Spot, error) {
	row := t.tx.QueryRowContext(ctx, "SELECT "+spotColumns+" FROM spots WHERE id = ? FOR UPDATE", id)
	return scanSpot(row)
}

func (t *spotTx) InsertSpot(ctx context.Context, s model.Spot) error {
	const q = "INSERT INTO spots (id, location, price_per_hour, is_available, renter, created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?, ?)"
	_, err := t.tx.ExecContext(ctx, q, s.ID, s.Location, s.PricePerHour, s.IsAvailable, string(s.Renter), s.CreatedAt, s.UpdatedAt)
	if isDuplicate(err) {
		return registry.ErrDuplicateID
	}
	return err
}

func (t *spotTx) UpdateHolder(ctx context.Context, s model.Spot) error {
	const q = "UPDATE spots SET is_available = ?, renter = ?, updated_at = ? WHERE id = ?"
	res, err := t.tx.ExecContext(ctx, q, s.IsAvailable, string(s.Renter), s.UpdatedAt, s.ID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return registry.ErrNotFound
	}
	return nil
}

func (t *spotTx) AppendLedger(ctx context.Context, e *model.LedgerEntry) error {
	const q = "INSERT INTO ledger_entries (spot_id, party, amount, kind, created_at) VALUES (?, ?, ?, ?, ?)"
	res, err := t.tx.ExecContext(ctx, q, e.SpotID, string(e.Party), e.Amount, e.Kind, e.CreatedAt)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	e.ID = uint64(id)
	return nil
}

// HeldFunds locks the owner row first so that two withdrawals from
// different processes cannot both read the same balance.
func (t *spotTx) HeldFunds(ctx context.Context) (uint64, error) {
	var owner string
	if err := t.tx.QueryRowContext(ctx, "SELECT owner FROM registry_owner WHERE id = 1 FOR UPDATE").Scan(&owner); err != nil {
		return 0, err
	}
	rows, err := t.tx.QueryContext(ctx, "SELECT kind, COALESCE(SUM(amount), 0) FROM ledger_entries GROUP BY kind")
	if err != nil {
		return 0, err
	}
	defer rows.Close()

	var captured, withdrawn uint64
	for rows.Next() {
		var (
			kind  string
			total uint64
		)
		if err := rows.Scan(&kind, &total); err != nil {
			return 0, err
		}
		switch kind {
		case model.LedgerCapture:
			captured += total
		case model.LedgerWithdraw:
			withdrawn += total
		}
	}
	if err := rows.Err(); err != nil {
		return 0, err
	}
	if withdrawn > captured {
		return 0, nil
	}
	return captured - withdrawn, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSpot(row rowScanner) (model.Spot, error) {
	var (
		s       model.Spot
		renter  string
		created time.Time
		updated time.Time
	)
	err := row.Scan(&s.ID, &s.Location, &s.PricePerHour, &s.IsAvailable, &renter, &created, &updated)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.Spot{}, registry.ErrNotFound
		}
		return model.Spot{}, err
	}
	s.Renter = model.Identity(renter)
	s.CreatedAt = created.UTC()
	s.UpdatedAt = updated.UTC()
	return s, nil
}

func isDuplicate(err error) bool {
	var me *mysql.MySQLError
	return errors.As(err, &me) && me.Number == mysqlDuplicateEntry
}
