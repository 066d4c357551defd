package dbclient

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpenSqliteInMemory(t *testing.T) {
	db, err := Open(&Config{Dialect: "sqlite", DSN: "file:dbclient?mode=memory&cache=shared"})
	require.NoError(t, err)

	var one int
	require.NoError(t, db.Raw("SELECT 1").Scan(&one).Error)
	assert.Equal(t, 1, one)
}

func TestOpenUnknownDialect(t *testing.T) {
	_, err := Open(&Config{Dialect: "oracle"})
	assert.ErrorIs(t, err, ErrUnknownDialect)
}
