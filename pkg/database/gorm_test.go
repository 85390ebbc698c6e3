package database

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpen_UnsupportedDriver(t *testing.T) {
	_, err := Open("mysql", "x")
	assert.Error(t, err)
}

func TestOpen_PostgresNeedsDSN(t *testing.T) {
	_, err := Open("postgres", "")
	assert.Error(t, err)
}

func TestOpenInMemory_Migrates(t *testing.T) {
	db, err := OpenInMemory(t.Name())
	require.NoError(t, err)

	for _, table := range []string{"sessions", "turns", "parameter_snapshots", "financial_facts", "calc_results", "report_artifacts", "retrieval_documents", "retrieval_terms"} {
		assert.True(t, db.Migrator().HasTable(table), table)
	}
}
