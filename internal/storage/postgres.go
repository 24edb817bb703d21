package storage

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	_ "github.com/lib/pq"
)

// PostgresHistory keeps published titles in PostgreSQL.
type PostgresHistory struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewPostgresHistory connects, pings and creates the schema.
func NewPostgresHistory(ctx context.Context, connectionString string, logger *slog.Logger) (*PostgresHistory, error) {
	if logger == nil {
		logger = slog.Default()
	}

	db, err := sql.Open("postgres", connectionString)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// Test connection
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	ph := &PostgresHistory{db: db, logger: logger}
	if err := ph.initSchema(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	logger.Info("PostgreSQL history connected")
	return ph, nil
}

// initSchema creates the necessary tables if they don't exist
func (ph *PostgresHistory) initSchema(ctx context.Context) error {
	schema := `
	CREATE TABLE IF NOT EXISTS published_titles (
		id SERIAL PRIMARY KEY,
		hash VARCHAR(64) UNIQUE NOT NULL,
		title TEXT NOT NULL,
		link TEXT NOT NULL DEFAULT '',
		published_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	);

	CREATE INDEX IF NOT EXISTS idx_published_titles_published_at ON published_titles(published_at);
	`

	if _, err := ph.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}
	return nil
}

func (ph *PostgresHistory) Load(ctx context.Context) ([]PublishedItem, error) {
	rows, err := ph.db.QueryContext(ctx, `
		SELECT hash, title, link, published_at
		FROM published_titles
		ORDER BY published_at ASC, id ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to load history: %w", err)
	}
	defer rows.Close()

	var items []PublishedItem
	for rows.Next() {
		var item PublishedItem
		if err := rows.Scan(&item.Hash, &item.Title, &item.Link, &item.PublishedAt); err != nil {
			ph.logger.Warn("error scanning history row", "error", err)
			continue
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

// Record inserts a title; an existing hash is left untouched.
func (ph *PostgresHistory) Record(ctx context.Context, title, link string) error {
	query := `
		INSERT INTO published_titles (hash, title, link, published_at)
		VALUES ($1, $2, $3, NOW())
		ON CONFLICT (hash) DO NOTHING
	`

	if _, err := ph.db.ExecContext(ctx, query, TitleHash(title), title, link); err != nil {
		return fmt.Errorf("failed to record title: %w", err)
	}
	return nil
}

// Close closes the database connection
func (ph *PostgresHistory) Close() error {
	if ph.db != nil {
		return ph.db.Close()
	}
	return nil
}
