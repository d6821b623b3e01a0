package repository

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/go-sql-driver/mysql"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/parking-rental/internal/model"
)

func newMockDB(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db, mock
}

func TestUserRepo_CreateNormalizesEmail(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewUserRepo(db)

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO users (email, password_hash, role) VALUES (?,?,?)")).
		WithArgs("ann@example.com", sqlmock.AnyArg(), model.RoleCustomer).
		WillReturnResult(sqlmock.NewResult(12, 1))

	id, err := repo.Create(context.Background(), "  Ann@Example.com ", "pw", model.RoleCustomer, 4)
	require.NoError(t, err)
	assert.Equal(t, uint64(12), id)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepo_CreateDuplicate(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewUserRepo(db)

	mock.ExpectExec("INSERT INTO users").
		WillReturnError(&mysql.MySQLError{Number: 1062, Message: "Duplicate entry"})

	_, err := repo.Create(context.Background(), "ann@example.com", "pw", model.RoleCustomer, 4)
	assert.ErrorIs(t, err, ErrEmailExists)
}

func TestUserRepo_GetByIDMissing(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewUserRepo(db)

	mock.ExpectQuery(regexp.QuoteMeta("FROM users WHERE id=?")).
		WithArgs(9).
		WillReturnRows(sqlmock.NewRows([]string{"id", "email", "password_hash", "role", "is_active", "created_at", "updated_at"}))

	_, err := repo.GetByID(context.Background(), 9)
	assert.ErrorIs(t, err, ErrUserNotFound)
}

func TestTokenRepo_ValidateRefresh(t *testing.T) {
	now := time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)
	revokedAt := now.Add(-time.Hour)
	cols := []string{"id", "user_id", "token_hash", "expires_at", "revoked_at"}

	testCases := []struct {
		name    string
		rows    *sqlmock.Rows
		wantID  uint64
		wantErr error
	}{
		{
			name:   "usable",
			rows:   sqlmock.NewRows(cols).AddRow(1, 5, "h", now.Add(time.Hour), nil),
			wantID: 5,
		},
		{
			name:    "expired",
			rows:    sqlmock.NewRows(cols).AddRow(1, 5, "h", now.Add(-time.Minute), nil),
			wantErr: ErrRefreshInvalid,
		},
		{
			name:    "revoked",
			rows:    sqlmock.NewRows(cols).AddRow(1, 5, "h", now.Add(time.Hour), revokedAt),
			wantErr: ErrRefreshInvalid,
		},
		{
			name:    "unknown",
			rows:    sqlmock.NewRows(cols),
			wantErr: ErrRefreshInvalid,
		},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			db, mock := newMockDB(t)
			repo := NewTokenRepo(db)
			repo.now = func() time.Time { return now }
			mock.ExpectQuery(regexp.QuoteMeta("FROM refresh_tokens WHERE token_hash=?")).
				WithArgs("h").
				WillReturnRows(tc.rows)

			id, err := repo.ValidateRefresh(context.Background(), "h")
			if tc.wantErr != nil {
				assert.ErrorIs(t, err, tc.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.wantID, id)
		})
	}
}

func TestTokenRepo_PurgeExpired(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewTokenRepo(db)
	cutoff := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)

	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM refresh_tokens WHERE expires_at < ?")).
		WithArgs(cutoff).
		WillReturnResult(sqlmock.NewResult(0, 3))

	n, err := repo.PurgeExpired(context.Background(), cutoff)
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)
}

func TestMemoryAccounts(t *testing.T) {
	ctx := context.Background()
	m := NewMemoryAccounts()

	id, err := m.Create(ctx, "Bob@Example.com", "pw", model.RoleOwner, 4)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), id)
	_, err = m.Create(ctx, "bob@example.com", "other", model.RoleCustomer, 4)
	assert.ErrorIs(t, err, ErrEmailExists)

	u, err := m.GetByEmail(ctx, "BOB@example.com")
	require.NoError(t, err)
	assert.Equal(t, model.Identity("user:1"), u.Identity())

	require.NoError(t, m.StoreRefresh(ctx, id, "h1", time.Now().Add(time.Hour)))
	require.NoError(t, m.StoreRefresh(ctx, id, "h2", time.Now().Add(time.Hour)))
	got, err := m.ValidateRefresh(ctx, "h1")
	require.NoError(t, err)
	assert.Equal(t, id, got)

	require.NoError(t, m.RevokeByHash(ctx, "h1"))
	_, err = m.ValidateRefresh(ctx, "h1")
	assert.ErrorIs(t, err, ErrRefreshInvalid)

	require.NoError(t, m.RevokeAllForUser(ctx, id))
	_, err = m.ValidateRefresh(ctx, "h2")
	assert.ErrorIs(t, err, ErrRefreshInvalid)
}
