// Package testdb runs the back-office schema in a disposable Postgres
// container for integration tests.
package testdb

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/alsaadxx12/fly1234/migrations"
)

const image = "postgres:16-alpine"

// TestDB is a container with every migration applied
type TestDB struct {
	Container *postgres.PostgresContainer
	Pool      *pgxpool.Pool
	ConnStr   string

	// tables created by the migrations, truncated by Reset
	tables []string
}

// NewTestDB starts the container and migrates it
func NewTestDB(ctx context.Context) (*TestDB, error) {
	container, err := postgres.Run(ctx, image,
		postgres.WithDatabase("backoffice_test"),
		postgres.WithUsername("test"),
		postgres.WithPassword("test"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(2*time.Minute),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to start postgres container: %w", err)
	}

	db := &TestDB{Container: container}
	if err := db.open(ctx); err != nil {
		_ = db.Close(ctx)
		return nil, err
	}
	return db, nil
}

func (db *TestDB) open(ctx context.Context) error {
	connStr, err := db.Container.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		return fmt.Errorf("failed to get connection string: %w", err)
	}
	pool, err := pgxpool.New(ctx, connStr)
	if err != nil {
		return fmt.Errorf("failed to create connection pool: %w", err)
	}
	db.Pool, db.ConnStr = pool, connStr

	if err := db.migrate(ctx); err != nil {
		return err
	}
	db.tables, err = db.userTables(ctx)
	return err
}

// migrate applies the embedded up scripts in order. Exec without arguments
// uses the simple protocol, so a file may hold several statements.
func (db *TestDB) migrate(ctx context.Context) error {
	scripts, err := migrations.Up()
	if err != nil {
		return fmt.Errorf("failed to load migrations: %w", err)
	}
	for _, s := range scripts {
		if _, err := db.Pool.Exec(ctx, s.SQL); err != nil {
			return fmt.Errorf("migration %s failed: %w", s.Name, err)
		}
	}
	return nil
}

func (db *TestDB) userTables(ctx context.Context) ([]string, error) {
	rows, err := db.Pool.Query(ctx,
		`SELECT tablename FROM pg_tables WHERE schemaname = 'public' ORDER BY tablename`)
	if err != nil {
		return nil, fmt.Errorf("failed to list tables: %w", err)
	}
	tables, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, fmt.Errorf("failed to list tables: %w", err)
	}
	return tables, nil
}

// Reset empties every table in one statement, so foreign keys need no order
func (db *TestDB) Reset(ctx context.Context) error {
	if len(db.tables) == 0 {
		return nil
	}
	idents := make([]string, len(db.tables))
	for i, t := range db.tables {
		idents[i] = pgx.Identifier{t}.Sanitize()
	}
	if _, err := db.Pool.Exec(ctx, "TRUNCATE TABLE "+strings.Join(idents, ", ")+" CASCADE"); err != nil {
		return fmt.Errorf("failed to truncate tables: %w", err)
	}
	return nil
}

// Close drops the pool and the container
func (db *TestDB) Close(ctx context.Context) error {
	if db.Pool != nil {
		db.Pool.Close()
	}
	if db.Container != nil {
		return db.Container.Terminate(ctx)
	}
	return nil
}
