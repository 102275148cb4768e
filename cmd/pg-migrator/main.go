package main

import (
	"context"
	"log/slog"
	"os"
	"time"

	"thirdcoast.systems/reelgrab/internal/application"
	"thirdcoast.systems/reelgrab/internal/config"
	"thirdcoast.systems/reelgrab/internal/db"
)

func main() {
	slog.Info("Starting database migrator")

	startupCtx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	config.LoadDotEnv()
	conf, err := config.LoadConfig(startupCtx)
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	pool, err := application.OpenDBPoolWithRetry(startupCtx, *conf)
	if err != nil {
		slog.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer pool.Close()

	dbc, err := db.NewDatabaseConnection(startupCtx, pool)
	if err != nil {
		slog.Error("failed to create database connection", "error", err)
		os.Exit(1)
	}
	defer dbc.Close()

	if err := dbc.Migrate(startupCtx); err != nil {
		slog.Error("failed to run PostgreSQL migrations", "error", err)
		os.Exit(1)
	}

	slog.Info("Database migrations completed successfully")
}
