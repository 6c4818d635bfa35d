package scheduler

import (
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"

	testutil "github.com/flexinvest/platform/internal/testing"
)

type brokenDB struct{}

func (brokenDB) Name() string                      { return "ledger" }
func (brokenDB) HealthCheck(context.Context) error { return errors.New("row 7 missing from index") }
func (brokenDB) WALCheckpoint(string) error        { return errors.New("database is locked") }

func TestCheckDatabaseJob_Name(t *testing.T) {
	assert.Equal(t, "check_database", NewCheckDatabaseJob(nil, zerolog.Nop()).Name())
}

func TestCheckDatabaseJob_Run(t *testing.T) {
	db, cleanup := testutil.NewTestDB(t)
	defer cleanup()

	assert.NoError(t, NewCheckDatabaseJob(db, zerolog.Nop()).Run(context.Background()))
}

func TestCheckDatabaseJob_Corruption(t *testing.T) {
	err := NewCheckDatabaseJob(brokenDB{}, zerolog.Nop()).Run(context.Background())
	assert.ErrorContains(t, err, "database ledger is corrupted")
}

func TestCheckDatabaseJob_NilDatabase(t *testing.T) {
	assert.NoError(t, NewCheckDatabaseJob(nil, zerolog.Nop()).Run(context.Background()))
}
