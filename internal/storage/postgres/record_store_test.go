package postgres

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JakeFAU/listing-crawler/internal/crawler"
)

func sampleRecords() []crawler.Record {
	now := time.Unix(1700000000, 0).UTC()
	return crawler.Promote([]crawler.RecordCandidate{{Name: "Sea Breeze Bistro"}, {Name: "Harbor"}}, now, crawler.DataSourceMobile, "run-1")
}

func TestReplaceDeletesThenCopiesInOneTransaction(t *testing.T) {
	t.Parallel()

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	store, err := NewRecordStoreWithPool(mock, "records")
	require.NoError(t, err)

	mock.ExpectBegin()
	mock.ExpectExec("DELETE FROM records WHERE data_source").
		WithArgs("mobile").
		WillReturnResult(pgxmock.NewResult("DELETE", 5))
	mock.ExpectCopyFrom(pgx.Identifier{"records"}, Columns).WillReturnResult(2)
	mock.ExpectCommit()

	n, err := store.Replace(context.Background(), sampleRecords(), crawler.DataSourceMobile)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestReplaceWithNoRecordsOnlyDeletes(t *testing.T) {
	t.Parallel()

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	store, err := NewRecordStoreWithPool(mock, "")
	require.NoError(t, err)

	mock.ExpectBegin()
	mock.ExpectExec("DELETE FROM records").
		WithArgs("primary").
		WillReturnResult(pgxmock.NewResult("DELETE", 0))
	mock.ExpectCommit()

	n, err := store.Replace(context.Background(), nil, crawler.DataSourcePrimary)
	require.NoError(t, err)
	assert.Zero(t, n)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestReplaceRollsBackOnCopyFailure(t *testing.T) {
	t.Parallel()

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	store, err := NewRecordStoreWithPool(mock, "records")
	require.NoError(t, err)

	boom := errors.New("copy failed")
	mock.ExpectBegin()
	mock.ExpectExec("DELETE FROM records").
		WithArgs("mobile").
		WillReturnResult(pgxmock.NewResult("DELETE", 1))
	mock.ExpectCopyFrom(pgx.Identifier{"records"}, Columns).WillReturnError(boom)
	mock.ExpectRollback()

	_, err = store.Replace(context.Background(), sampleRecords(), crawler.DataSourceMobile)
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestReplaceRollsBackOnDeleteFailure(t *testing.T) {
	t.Parallel()

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	store, err := NewRecordStoreWithPool(mock, "records")
	require.NoError(t, err)

	mock.ExpectBegin()
	mock.ExpectExec("DELETE FROM records").
		WithArgs("alternate").
		WillReturnError(errors.New("relation does not exist"))
	mock.ExpectRollback()

	_, err = store.Replace(context.Background(), sampleRecords(), crawler.DataSourceAlternate)
	require.ErrorContains(t, err, "relation does not exist")
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCount(t *testing.T) {
	t.Parallel()

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	store, err := NewRecordStoreWithPool(mock, "records")
	require.NoError(t, err)

	mock.ExpectQuery("SELECT COUNT\\(\\*\\) FROM records").
		WithArgs("primary").
		WillReturnRows(pgxmock.NewRows([]string{"count"}).AddRow(3))

	n, err := store.Count(context.Background(), crawler.DataSourcePrimary)
	require.NoError(t, err)
	assert.Equal(t, 3, n)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestEnsureSchema(t *testing.T) {
	t.Parallel()

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	store, err := NewRecordStoreWithPool(mock, "records")
	require.NoError(t, err)

	mock.ExpectExec("CREATE TABLE IF NOT EXISTS records").WillReturnResult(pgxmock.NewResult("CREATE", 0))
	require.NoError(t, store.EnsureSchema(context.Background()))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestTableNameValidation(t *testing.T) {
	t.Parallel()

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	_, err = NewRecordStoreWithPool(mock, "records; DROP TABLE x")
	require.Error(t, err)
	_, err = NewRecordStoreWithPool(nil, "records")
	require.Error(t, err)
	_, err = NewRecordStore(context.Background(), RecordStoreConfig{})
	require.Error(t, err)
}
