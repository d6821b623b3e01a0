package repository

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/go-sql-driver/mysql"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/parking-rental/internal/model"
	"github.com/iliyamo/parking-rental/internal/registry"
)

var spotRowColumns = []string{"id", "location", "price_per_hour", "is_available", "renter", "created_at", "updated_at"}

// A helper function to create a SpotRepo on top of a mock connection.
func newTestRepo(t *testing.T) (*SpotRepo, sqlmock.Sqlmock) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewSpotRepo(db), mock
}

func expectClaimOwner(mock sqlmock.Sqlmock, stored string) {
	mock.ExpectExec(regexp.QuoteMeta("INSERT IGNORE INTO registry_owner (id, owner) VALUES (1, ?)")).
		WithArgs(stored).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT owner FROM registry_owner WHERE id = 1")).
		WillReturnRows(sqlmock.NewRows([]string{"owner"}).AddRow(stored))
}

func TestSpotRepo_Spot(t *testing.T) {
	created := time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)

	testCases := []struct {
		name      string
		id        uint64
		rows      *sqlmock.Rows
		want      model.Spot
		wantErrIs error
	}{
		{
			name: "available spot",
			id:   1,
			rows: sqlmock.NewRows(spotRowColumns).AddRow(1, "Level 1", 100, true, "", created, created),
			want: model.Spot{ID: 1, Location: "Level 1", PricePerHour: 100, IsAvailable: true, Renter: model.NoRenter, CreatedAt: created, UpdatedAt: created},
		},
		{
			name: "reserved spot",
			id:   2,
			rows: sqlmock.NewRows(spotRowColumns).AddRow(2, "Level 2", 50, false, "user:7", created, created),
			want: model.Spot{ID: 2, Location: "Level 2", PricePerHour: 50, IsAvailable: false, Renter: "user:7", CreatedAt: created, UpdatedAt: created},
		},
		{
			name:      "missing spot",
			id:        3,
			rows:      sqlmock.NewRows(spotRowColumns),
			wantErrIs: registry.ErrNotFound,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			repo, mock := newTestRepo(t)
			mock.ExpectQuery(regexp.QuoteMeta("FROM spots WHERE id = ?")).
				WithArgs(tc.id).
				WillReturnRows(tc.rows)

			got, err := repo.Spot(context.Background(), tc.id)
			if tc.wantErrIs != nil {
				assert.ErrorIs(t, err, tc.wantErrIs)
			} else {
				require.NoError(t, err)
				assert.Equal(t, tc.want, got)
			}
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestSpotRepo_SpotsOrderedBySeq(t *testing.T) {
	repo, mock := newTestRepo(t)
	now := time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)
	mock.ExpectQuery(regexp.QuoteMeta("FROM spots ORDER BY seq")).
		WillReturnRows(sqlmock.NewRows(spotRowColumns).
			AddRow(5, "A", 10, true, "", now, now).
			AddRow(2, "B", 20, false, "user:3", now, now))

	spots, err := repo.Spots(context.Background())
	require.NoError(t, err)
	require.Len(t, spots, 2)
	assert.Equal(t, uint64(5), spots[0].ID)
	assert.Equal(t, model.Identity("user:3"), spots[1].Renter)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSpotRepo_ReserveCommitsSpotAndCapture(t *testing.T) {
	ctx := context.Background()
	repo, mock := newTestRepo(t)
	now := time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)

	expectClaimOwner(mock, "user:1")
	reg, err := registry.New(ctx, repo, "user:1")
	require.NoError(t, err)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("FROM spots WHERE id = ? FOR UPDATE")).
		WithArgs(1).
		WillReturnRows(sqlmock.NewRows(spotRowColumns).AddRow(1, "L", 100, true, "", now, now))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE spots SET is_available = ?, renter = ?, updated_at = ? WHERE id = ?")).
		WithArgs(false, "user:2", sqlmock.AnyArg(), 1).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO ledger_entries (spot_id, party, amount, kind, created_at)")).
		WithArgs(1, "user:2", 100, model.LedgerCapture, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(11, 1))
	mock.ExpectCommit()

	spot, err := reg.Reserve(ctx, "user:2", 1, 100)
	require.NoError(t, err)
	assert.False(t, spot.IsAvailable)
	assert.Equal(t, model.Identity("user:2"), spot.Renter)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSpotRepo_RejectedReserveRollsBack(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)

	testCases := []struct {
		name      string
		available bool
		renter    string
		payment   uint64
		wantErr   error
	}{
		{name: "wrong payment", available: true, payment: 99, wantErr: registry.ErrIncorrectPayment},
		{name: "already held", available: false, renter: "user:9", payment: 100, wantErr: registry.ErrNotAvailable},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			repo, mock := newTestRepo(t)
			expectClaimOwner(mock, "user:1")
			reg, err := registry.New(ctx, repo, "user:1")
			require.NoError(t, err)

			mock.ExpectBegin()
			mock.ExpectQuery(regexp.QuoteMeta("FROM spots WHERE id = ? FOR UPDATE")).
				WithArgs(1).
				WillReturnRows(sqlmock.NewRows(spotRowColumns).AddRow(1, "L", 100, tc.available, tc.renter, now, now))
			mock.ExpectRollback()

			_, err = reg.Reserve(ctx, "user:2", 1, tc.payment)
			assert.ErrorIs(t, err, tc.wantErr)
			assert.NoError(t, mock.ExpectationsWereMet(), "no UPDATE or ledger INSERT may run")
		})
	}
}

func TestSpotRepo_AddSpotDuplicate(t *testing.T) {
	ctx := context.Background()
	repo, mock := newTestRepo(t)
	expectClaimOwner(mock, "user:1")
	reg, err := registry.New(ctx, repo, "user:1")
	require.NoError(t, err)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO spots (id, location, price_per_hour, is_available, renter, created_at, updated_at)")).
		WithArgs(1, "L", 100, true, "", sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnError(&mysql.MySQLError{Number: 1062, Message: "Duplicate entry '1' for key 'id'"})
	mock.ExpectRollback()

	_, err = reg.AddSpot(ctx, "user:1", 1, "L", 100)
	assert.ErrorIs(t, err, registry.ErrDuplicateID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSpotRepo_ReleaseByRenter(t *testing.T) {
	ctx := context.Background()
	repo, mock := newTestRepo(t)
	now := time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)
	expectClaimOwner(mock, "user:1")
	reg, err := registry.New(ctx, repo, "user:1")
	require.NoError(t, err)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("FROM spots WHERE id = ? FOR UPDATE")).
		WithArgs(1).
		WillReturnRows(sqlmock.NewRows(spotRowColumns).AddRow(1, "L", 100, false, "user:2", now, now))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE spots SET is_available = ?, renter = ?, updated_at = ? WHERE id = ?")).
		WithArgs(true, "", sqlmock.AnyArg(), 1).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	spot, err := reg.Release(ctx, "user:2", 1)
	require.NoError(t, err)
	assert.True(t, spot.IsAvailable)
	assert.Equal(t, model.NoRenter, spot.Renter)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSpotRepo_Withdraw(t *testing.T) {
	ctx := context.Background()
	repo, mock := newTestRepo(t)
	expectClaimOwner(mock, "user:1")
	reg, err := registry.New(ctx, repo, "user:1")
	require.NoError(t, err)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("SELECT owner FROM registry_owner WHERE id = 1 FOR UPDATE")).
		WillReturnRows(sqlmock.NewRows([]string{"owner"}).AddRow("user:1"))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT kind, COALESCE(SUM(amount), 0) FROM ledger_entries GROUP BY kind")).
		WillReturnRows(sqlmock.NewRows([]string{"kind", "total"}).
			AddRow(model.LedgerCapture, 300).
			AddRow(model.LedgerWithdraw, 100))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO ledger_entries")).
		WithArgs(0, "user:1", 200, model.LedgerWithdraw, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(4, 1))
	mock.ExpectCommit()

	entry, err := reg.Withdraw(ctx, "user:1")
	require.NoError(t, err)
	assert.Equal(t, uint64(4), entry.ID)
	assert.Equal(t, uint64(200), entry.Amount)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSpotRepo_OwnerMismatch(t *testing.T) {
	repo, mock := newTestRepo(t)
	mock.ExpectExec(regexp.QuoteMeta("INSERT IGNORE INTO registry_owner")).
		WithArgs("user:5").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT owner FROM registry_owner WHERE id = 1")).
		WillReturnRows(sqlmock.NewRows([]string{"owner"}).AddRow("user:1"))

	_, err := registry.New(context.Background(), repo, "user:5")
	assert.ErrorIs(t, err, registry.ErrOwnerMismatch)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSpotRepo_BeginFailure(t *testing.T) {
	repo, mock := newTestRepo(t)
	mock.ExpectBegin().WillReturnError(errors.New("too many connections"))

	err := repo.InTx(context.Background(), func(registry.Tx) error { return nil })
	require.Error(t, err)
	assert.Contains(t, err.Error(), "begin tx")
}
