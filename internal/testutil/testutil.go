// Package testutil provides test utilities for memorykeep
package testutil

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// TestDB wraps a PostgreSQL connection pool for testing
type TestDB struct {
	Pool *pgxpool.Pool
}

// NewTestDB creates a test database connection from the DATABASE_URL env var.
// The test is skipped when DATABASE_URL is not set.
func NewTestDB(t *testing.T) *TestDB {
	t.Helper()

	dbURL := RequireIntegration(t)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := pgxpool.New(ctx, dbURL)
	if err != nil {
		t.Fatalf("Failed to connect to database: %v", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		t.Fatalf("Failed to ping database: %v", err)
	}

	return &TestDB{Pool: pool}
}

// Close closes the database connection
func (db *TestDB) Close() {
	if db.Pool != nil {
		db.Pool.Close()
	}
}

// RequireIntegration skips the test unless DATABASE_URL is set, and returns it.
func RequireIntegration(t *testing.T) string {
	t.Helper()
	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" || testing.Short() {
		t.Skip("Skipping integration test: DATABASE_URL not set")
	}
	return dbURL
}
