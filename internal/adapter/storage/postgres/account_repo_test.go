package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func accountColumns() []string {
	return []string{"id", "external_id", "created_at"}
}

func TestAccountRepo_Resolve_CreatesThenSelects(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewAccountRepo(mock)
	accountID := uuid.New()
	now := time.Now().UTC()

	mock.ExpectExec("INSERT INTO accounts").
		WithArgs(pgxmock.AnyArg(), "user-7", pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectQuery("SELECT id, external_id, created_at FROM accounts").
		WithArgs("user-7").
		WillReturnRows(pgxmock.NewRows(accountColumns()).AddRow(accountID, "user-7", now))

	a, err := repo.Resolve(context.Background(), "user-7")
	require.NoError(t, err)
	assert.Equal(t, accountID, a.ID)
	assert.Equal(t, "user-7", a.ExternalID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAccountRepo_Resolve_ExistingRowSurvivesConflict(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewAccountRepo(mock)
	existingID := uuid.New()
	created := time.Now().UTC().Add(-time.Hour)

	// ON CONFLICT DO NOTHING: zero rows inserted, select returns the old row.
	mock.ExpectExec("INSERT INTO accounts").
		WithArgs(pgxmock.AnyArg(), "user-7", pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 0))
	mock.ExpectQuery("SELECT id, external_id, created_at FROM accounts").
		WithArgs("user-7").
		WillReturnRows(pgxmock.NewRows(accountColumns()).AddRow(existingID, "user-7", created))

	a, err := repo.Resolve(context.Background(), "user-7")
	require.NoError(t, err)
	assert.Equal(t, existingID, a.ID)
	assert.Equal(t, created, a.CreatedAt)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAccountRepo_GetByExternalID_Missing(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewAccountRepo(mock)

	mock.ExpectQuery("SELECT id, external_id, created_at FROM accounts").
		WithArgs("ghost").
		WillReturnRows(pgxmock.NewRows(accountColumns()))

	a, err := repo.GetByExternalID(context.Background(), "ghost")
	require.NoError(t, err)
	assert.Nil(t, a)
	assert.NoError(t, mock.ExpectationsWereMet())
}
