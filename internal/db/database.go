package db

import (
	"context"
	"embed"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
)

type DatabaseConnection struct {
	*pgxpool.Pool
}

const DBRetryCount = 15

// NewDatabaseConnection pings pool until it answers, backing off by the
// golden ratio.
func NewDatabaseConnection(ctx context.Context, pool *pgxpool.Pool) (*DatabaseConnection, error) {
	for i := range DBRetryCount {
		err := pool.Ping(ctx)
		if err == nil {
			return &DatabaseConnection{pool}, nil
		}

		fib := 1.61803398875
		sleep := time.Duration(float64(i)*fib) * time.Second
		slog.Warn("could not ping the database, retrying", "error", err, "retry_in", sleep)

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(sleep):
		}
	}

	return nil, fmt.Errorf("could not connect to database after %d retries", DBRetryCount)
}

// Close closes the database connection
func (db *DatabaseConnection) Close() {
	db.Pool.Close()
}

func (db *DatabaseConnection) Queries(ctx context.Context) *Queries {
	return New(db)
}

func (db *DatabaseConnection) NewWithTX(ctx context.Context) (*Queries, pgx.Tx, error) {
	tx, err := db.Pool.Begin(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to begin transaction: %w", err)
	}

	return New(tx), tx, nil
}

//go:embed sql/migrations/*.sql
var embedMigrations embed.FS

// Migrate runs the goose migrations. GOOSE_DOWN_TO and GOOSE_UP_TO pin a
// target version.
func (db *DatabaseConnection) Migrate(ctx context.Context) error {
	goose.SetBaseFS(embedMigrations)

	if err := goose.SetDialect("postgres"); err != nil {
		return err
	}

	stdDb := stdlib.OpenDBFromPool(db.Pool)
	defer stdDb.Close()

	currentVersion, err := goose.GetDBVersionContext(ctx, stdDb)
	if err != nil {
		return err
	}

	migrations, err := goose.CollectMigrations("sql/migrations", 0, goose.MaxVersion)
	if err != nil {
		return err
	}
	for _, m := range migrations {
		slog.Info("Migration embedded", "source", m.Source, "version", m.Version, "applied", m.Version <= currentVersion)
	}

	var targetVersion int64
	if down, ok := os.LookupEnv("GOOSE_DOWN_TO"); ok {
		targetVersion, err = strconv.ParseInt(down, 10, 64)
		if err != nil {
			return fmt.Errorf("failed to parse GOOSE_DOWN_TO version: %w", err)
		}
		return goose.DownToContext(ctx, stdDb, "sql/migrations", targetVersion)
	}

	targetVersion = goose.MaxVersion
	if up, ok := os.LookupEnv("GOOSE_UP_TO"); ok {
		targetVersion, err = strconv.ParseInt(up, 10, 64)
		if err != nil {
			return fmt.Errorf("failed to parse GOOSE_UP_TO version: %w", err)
		}
	}
	return goose.UpToContext(ctx, stdDb, "sql/migrations", targetVersion)
}
