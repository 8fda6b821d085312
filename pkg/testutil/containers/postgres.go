//go:build integration

package containers

import (
	"context"
	"database/sql"
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	_ "github.com/lib/pq"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

// PostgresContainer wraps a testcontainers Postgres instance with the schema
// applied.
type PostgresContainer struct {
	Container testcontainers.Container
	DSN       string
	DB        *sql.DB
}

// NewPostgresContainer starts a Postgres container and applies the schema.
func NewPostgresContainer(t *testing.T) *PostgresContainer {
	t.Helper()

	ctx := context.Background()

	container, err := tcpostgres.Run(ctx, "postgres:16-alpine",
		tcpostgres.WithDatabase("attestor_test"),
		tcpostgres.WithUsername("attestor"),
		tcpostgres.WithPassword("attestor"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second)),
	)
	if err != nil {
		t.Fatalf("failed to start postgres container: %v", err)
	}

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		_ = container.Terminate(ctx)
		t.Fatalf("failed to get postgres connection string: %v", err)
	}

	db, err := sql.Open("postgres", dsn)
	if err != nil {
		_ = container.Terminate(ctx)
		t.Fatalf("failed to open postgres connection: %v", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		_ = container.Terminate(ctx)
		t.Fatalf("failed to ping postgres: %v", err)
	}

	pc := &PostgresContainer{Container: container, DSN: dsn, DB: db}
	pc.applySchema(t)
	return pc
}

// applySchema runs the init migration against the container.
func (p *PostgresContainer) applySchema(t *testing.T) {
	t.Helper()

	_, thisFile, _, _ := runtime.Caller(0)
	schemaPath := filepath.Join(filepath.Dir(thisFile), "..", "..", "..", "migrations", "0001_init.sql")
	schema, err := os.ReadFile(schemaPath)
	if err != nil {
		t.Fatalf("failed to read schema: %v", err)
	}
	if _, err := p.DB.Exec(string(schema)); err != nil {
		t.Fatalf("failed to apply schema: %v", err)
	}
}

// TruncateAll resets every table. Use between tests for isolation.
func (p *PostgresContainer) TruncateAll(ctx context.Context) error {
	_, err := p.DB.ExecContext(ctx, `
		TRUNCATE authority, issuers, ledger_config, audit_outbox RESTART IDENTITY;
		TRUNCATE credentials RESTART IDENTITY;
	`)
	return err
}

// Close tears down the connection and the container.
func (p *PostgresContainer) Close(ctx context.Context) {
	_ = p.DB.Close()
	_ = p.Container.Terminate(ctx)
}
