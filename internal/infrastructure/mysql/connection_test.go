package mysql

import (
	"context"
	"testing"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tiffin/internal/config"
)

func testDatabaseConfig() config.DatabaseConfig {
	return config.DatabaseConfig{
		Host:     "db.internal",
		Port:     3307,
		User:     "tiffin",
		Password: "p@ss:word",
		Name:     "orders",
		Timeout:  2 * time.Second,
	}
}

func TestDSN_RoundTrips(t *testing.T) {
	parsed, err := mysql.ParseDSN(DSN(testDatabaseConfig()))
	require.NoError(t, err)

	assert.Equal(t, "tiffin", parsed.User)
	assert.Equal(t, "p@ss:word", parsed.Passwd)
	assert.Equal(t, "tcp", parsed.Net)
	assert.Equal(t, "db.internal:3307", parsed.Addr)
	assert.Equal(t, "orders", parsed.DBName)
	assert.Equal(t, 2*time.Second, parsed.Timeout)
}

func TestDSN_ReadsUTCAndCountsMatchedRows(t *testing.T) {
	parsed, err := mysql.ParseDSN(DSN(testDatabaseConfig()))
	require.NoError(t, err)

	assert.True(t, parsed.ParseTime)
	assert.Equal(t, time.UTC, parsed.Loc)
	assert.True(t, parsed.ClientFoundRows)
}

func TestNewConnection_UnreachableServer(t *testing.T) {
	cfg := testDatabaseConfig()
	cfg.Host = "127.0.0.1"
	cfg.Port = 1
	cfg.Timeout = 200 * time.Millisecond

	db, err := NewConnection(context.Background(), cfg)

	assert.Nil(t, db)
	assert.ErrorContains(t, err, "pinging database")
}
