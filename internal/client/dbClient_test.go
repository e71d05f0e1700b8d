package client

import (
	"content-storefront/internal/config"
	"content-storefront/internal/model"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInitDBClientSQLite(t *testing.T) {
	db, err := InitDBClient(&config.Database{Driver: "sqlite", URL: "file::memory:", MaxIdleConns: 1, MaxOpenConns: 4})
	require.NoError(t, err)
	t.Cleanup(func() { CloseDB(db) })

	require.NoError(t, Migrate(db))
	for _, m := range model.Models() {
		assert.True(t, db.Migrator().HasTable(m), "missing table for %T", m)
	}
}

func TestInitDBClientRejectsUnknownDriver(t *testing.T) {
	_, err := InitDBClient(&config.Database{Driver: "oracle", URL: "x"})
	assert.Error(t, err)

	_, err = InitDBClient(&config.Database{Driver: "sqlite"})
	assert.Error(t, err)
}
