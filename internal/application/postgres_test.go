package application

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"thirdcoast.systems/reelgrab/internal/config"
)

func TestBackoffGrowsByGoldenRatio(t *testing.T) {
	require.Equal(t, time.Second, backoff(0))
	require.InDelta(t, float64(1618*time.Millisecond), float64(backoff(1)), float64(time.Millisecond))
	require.Greater(t, backoff(5), backoff(4))
}

func TestOpenDBPoolWithRetry_BadDSN(t *testing.T) {
	_, err := OpenDBPoolWithRetry(context.Background(), config.Config{DatabaseDSN: "://not a dsn", DatabaseRetries: 1})
	require.ErrorContains(t, err, "failed to parse DSN")
}

func TestOpenDBPoolWithRetry_GivesUpOnCancel(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()

	// Nothing listens on port 1.
	conf := config.Config{DatabaseDSN: "postgres://u:p@127.0.0.1:1/db?connect_timeout=1", DatabaseRetries: 5}
	_, err := OpenDBPoolWithRetry(ctx, conf)
	require.Error(t, err)
}
