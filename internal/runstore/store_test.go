package runstore

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/require"
)

func setupMockStore(t *testing.T) (pgxmock.PgxPoolIface, *Store) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	return mock, NewStore(mock)
}

func TestStoreCreate(t *testing.T) {
	mock, store := setupMockStore(t)
	defer mock.Close()

	mock.ExpectExec(`INSERT INTO pywr_runs`).
		WithArgs(pgxmock.AnyArg(), StatusQueued, pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	id, err := store.Create(context.Background())
	require.NoError(t, err)
	require.NotEqual(t, uuid.Nil, id)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestStoreCompleteThenGet(t *testing.T) {
	mock, store := setupMockStore(t)
	defer mock.Close()

	id := uuid.New()
	results := map[string]float64{"total_delivered": 3650}

	mock.ExpectExec(`UPDATE pywr_runs SET status`).
		WithArgs(id, StatusComplete, pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	require.NoError(t, store.Complete(context.Background(), id, results))

	now := time.Now()
	rows := pgxmock.NewRows([]string{"id", "status", "submitted_at", "finished_at", "error", "results"}).
		AddRow(id, StatusComplete, now, &now, (*string)(nil), []byte(`{"total_delivered":3650}`))

	mock.ExpectQuery(`SELECT id, status, submitted_at, finished_at, error, results FROM pywr_runs`).
		WithArgs(id).
		WillReturnRows(rows)

	m, err := store.Get(context.Background(), id)
	require.NoError(t, err)
	require.Equal(t, StatusComplete, m.Status)
	require.InDelta(t, 3650, m.Results["total_delivered"], 1e-9)
	require.NoError(t, mock.ExpectationsWereMet())
}
