package db

import (
	"context"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"

	"thirdcoast.systems/reelgrab/internal/i18n"
)

func newTestStore(t *testing.T) (*Store, *DatabaseConnection) {
	t.Helper()
	if testing.Short() {
		t.Skip("postgres container test skipped in -short mode")
	}
	testcontainers.SkipIfProviderIsNotHealthy(t)

	ctx := context.Background()
	ctr, err := postgres.Run(ctx, "postgres:17-alpine",
		postgres.WithDatabase("reelgrab"),
		postgres.WithUsername("reelgrab"),
		postgres.WithPassword("reelgrab"),
		postgres.BasicWaitStrategies(),
	)
	testcontainers.CleanupContainer(t, ctr)
	require.NoError(t, err)

	dsn, err := ctr.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	pool, err := pgxpool.New(ctx, dsn)
	require.NoError(t, err)
	t.Cleanup(pool.Close)

	dbc, err := NewDatabaseConnection(ctx, pool)
	require.NoError(t, err)
	require.NoError(t, dbc.Migrate(ctx))

	return NewStore(dbc), dbc
}

func TestStore(t *testing.T) {
	store, dbc := newTestStore(t)
	ctx := context.Background()

	t.Run("unknown user gets default language", func(t *testing.T) {
		lang, err := store.Language(ctx, 1)
		require.NoError(t, err)
		require.Equal(t, i18n.Default, lang)
	})

	t.Run("register is idempotent", func(t *testing.T) {
		created, err := store.Register(ctx, 2)
		require.NoError(t, err)
		require.True(t, created)

		created, err = store.Register(ctx, 2)
		require.NoError(t, err)
		require.False(t, created)
	})

	t.Run("language round trip", func(t *testing.T) {
		require.NoError(t, store.SetLanguage(ctx, 3, i18n.EN))
		lang, err := store.Language(ctx, 3)
		require.NoError(t, err)
		require.Equal(t, i18n.EN, lang)

		require.NoError(t, store.SetLanguage(ctx, 3, i18n.RU))
		lang, err = store.Language(ctx, 3)
		require.NoError(t, err)
		require.Equal(t, i18n.RU, lang)

		require.Error(t, store.SetLanguage(ctx, 3, i18n.Lang("de")))
	})

	t.Run("activity keeps language", func(t *testing.T) {
		require.NoError(t, store.SetLanguage(ctx, 4, i18n.EN))
		require.NoError(t, store.RecordActivity(ctx, 4))
		lang, err := store.Language(ctx, 4)
		require.NoError(t, err)
		require.Equal(t, i18n.EN, lang)
	})

	t.Run("daily stats", func(t *testing.T) {
		_, err := dbc.Exec(ctx, "TRUNCATE users, videos")
		require.NoError(t, err)

		for _, id := range []int64{10, 11, 12} {
			require.NoError(t, store.RecordActivity(ctx, id))
		}
		require.NoError(t, store.RecordActivity(ctx, 10))
		require.NoError(t, store.RecordDelivery(ctx, 10))
		require.NoError(t, store.RecordDelivery(ctx, 11))

		// A user last seen yesterday does not count today.
		_, err = dbc.Exec(ctx, "INSERT INTO users (user_id, last_active) VALUES (99, now() - interval '2 days')")
		require.NoError(t, err)

		stats, err := store.Stats(ctx, time.Now())
		require.NoError(t, err)
		require.Equal(t, int64(3), stats.ActiveUsers)
		require.Equal(t, int64(2), stats.Videos)

		stats, err = store.Stats(ctx, time.Now().AddDate(0, 0, -7))
		require.NoError(t, err)
		require.Zero(t, stats.ActiveUsers)
		require.Zero(t, stats.Videos)
	})

	t.Run("ping", func(t *testing.T) {
		require.NoError(t, store.Ping(ctx))
	})
}

func TestDayBounds(t *testing.T) {
	loc := time.FixedZone("MSK", 3*60*60)
	since, until := DayBounds(time.Date(2025, 3, 9, 23, 59, 0, 0, loc))
	require.Equal(t, time.Date(2025, 3, 9, 0, 0, 0, 0, loc), since.Time)
	require.Equal(t, time.Date(2025, 3, 10, 0, 0, 0, 0, loc), until.Time)
	require.True(t, since.Valid)
	require.True(t, until.Valid)
}
