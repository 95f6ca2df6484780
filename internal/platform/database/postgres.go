package database

import (
	"context"
	"database/sql"
	"time"

	"problem_solver/internal/platform/config"
	"problem_solver/internal/platform/logger"

	_ "github.com/jackc/pgx/v5/stdlib" // PostgreSQL driver
)

var DB *sql.DB

func Connect() {
	var err error
	DB, err = sql.Open("pgx", config.AppConfig.DBConnStr)
	if err != nil {
		logger.Fatal().Err(err).Msg("Error opening database")
	}

	DB.SetMaxOpenConns(25)
	DB.SetMaxIdleConns(25)
	DB.SetConnMaxLifetime(5 * time.Minute)

	if err = DB.Ping(); err != nil {
		logger.Fatal().Err(err).Msg("Error connecting to database")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := Migrate(ctx, DB); err != nil {
		logger.Fatal().Err(err).Msg("Error applying database schema")
	}

	logger.Info().Str("db", config.AppConfig.DBName).Msg("Successfully connected to PostgreSQL database")
}

func Close() {
	if DB != nil {
		DB.Close()
		logger.Info().Msg("Database connection closed")
	}
}
