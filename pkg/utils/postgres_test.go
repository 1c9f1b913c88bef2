package utils

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/require"
)

func TestWithTx_CommitsOnSuccess(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectCommit()

	err = WithTx(context.Background(), db, nil, func(ctx context.Context, tx *sql.Tx) error {
		return nil
	})
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestWithTx_RollsBackOnError(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectRollback()

	boom := errors.New("boom")
	err = WithTx(context.Background(), db, nil, func(ctx context.Context, tx *sql.Tx) error {
		return boom
	})
	require.ErrorIs(t, err, boom)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestWithTx_RollsBackAndRethrowsOnPanic(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectRollback()

	require.Panics(t, func() {
		_ = WithTx(context.Background(), db, nil, func(ctx context.Context, tx *sql.Tx) error {
			panic("unexpected state")
		})
	})
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestHealthCheck_WrapsPingError(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectPing().WillReturnError(errors.New("connection refused"))

	err = HealthCheck(context.Background(), db, time.Second)
	require.Error(t, err)
	require.Contains(t, err.Error(), "db ping failed")
}

func TestPoolConfigDefaults(t *testing.T) {
	c := PostgresPoolConfig{}.withDefaults()
	require.Equal(t, 25, c.MaxOpenConns)
	require.Equal(t, 30*time.Minute, c.ConnMaxLifetime)
	require.Equal(t, 5*time.Second, c.PingTimeout)

	tuned := PostgresPoolConfig{MaxOpenConns: 10, ConnMaxLifetime: time.Minute, PingTimeout: time.Second}.withDefaults()
	require.Equal(t, 10, tuned.MaxOpenConns)
	require.Equal(t, time.Minute, tuned.ConnMaxLifetime)
	require.Equal(t, time.Second, tuned.PingTimeout)
}
