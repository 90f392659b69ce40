package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/elonfeng/mindshare/pkg/source"
)

func TestConnectWithRetries_NoSleepAfterLastAttempt(t *testing.T) {
	const sleep = 300 * time.Millisecond
	calls := 0
	refused := errors.New("connection refused")

	start := time.Now()
	_, err := connectWithRetriesFunc(context.Background(), nil, sleep,
		func(context.Context, *pgxpool.Config) (*pgxpool.Pool, error) {
			calls++
			return nil, refused
		})
	elapsed := time.Since(start)

	require.ErrorIs(t, err, refused)
	assert.Equal(t, pgConnectRetries, calls)
	assert.GreaterOrEqual(t, elapsed, time.Duration(pgConnectRetries-1)*sleep)
	assert.Less(t, elapsed, time.Duration(pgConnectRetries)*sleep-50*time.Millisecond)
}

func TestConnectWithRetries_StopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	calls := 0
	_, err := connectWithRetriesFunc(ctx, nil, time.Hour,
		func(context.Context, *pgxpool.Config) (*pgxpool.Pool, error) {
			calls++
			return nil, errors.New("connection refused")
		})

	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, calls)
}

func TestNewPostgres_EmptyDSN(t *testing.T) {
	_, err := NewPostgres(context.Background(), "", nil)
	assert.ErrorIs(t, err, source.ErrSourceUnavailable)
}
