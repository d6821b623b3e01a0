package database

import (
	"testing"

	"github.com/go-sql-driver/mysql"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParamsDSN(t *testing.T) {
	p := Params{User: "parking", Pass: "s3cret", Host: "db.local", Port: "3307", Name: "parking"}

	cfg, err := mysql.ParseDSN(p.DSN())
	require.NoError(t, err)
	assert.Equal(t, "parking", cfg.User)
	assert.Equal(t, "s3cret", cfg.Passwd)
	assert.Equal(t, "tcp", cfg.Net)
	assert.Equal(t, "db.local:3307", cfg.Addr)
	assert.Equal(t, "parking", cfg.DBName)
	assert.True(t, cfg.ParseTime)
	assert.Equal(t, "UTC", cfg.Loc.String())
}

func TestParamsDSNWithoutPassword(t *testing.T) {
	p := Params{User: "root", Host: "localhost", Port: "3306", Name: "parking"}

	cfg, err := mysql.ParseDSN(p.DSN())
	require.NoError(t, err)
	assert.Equal(t, "root", cfg.User)
	assert.Empty(t, cfg.Passwd)
}
