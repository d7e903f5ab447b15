package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/alsaadxx12/fly1234/internal/platform/broadcast"
)

// BroadcastRepository keeps broadcast job snapshots
type BroadcastRepository struct {
	pool *pgxpool.Pool
}

// Compile-time check that BroadcastRepository implements broadcast.Store
var _ broadcast.Store = (*BroadcastRepository)(nil)

// NewBroadcastRepository creates a new PostgreSQL broadcast job repository
func NewBroadcastRepository(pool *pgxpool.Pool) *BroadcastRepository {
	return &BroadcastRepository{pool: pool}
}

// SaveJob upserts the latest snapshot of a job
func (r *BroadcastRepository) SaveJob(ctx context.Context, job *broadcast.Job) error {
	query := `
		INSERT INTO broadcast_jobs (
			id, account_id, message, recipients, invalid, sent, failed, failures,
			state, status, created_at, updated_at, finished_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		ON CONFLICT (id) DO UPDATE SET
			sent = EXCLUDED.sent,
			failed = EXCLUDED.failed,
			failures = EXCLUDED.failures,
			state = EXCLUDED.state,
			status = EXCLUDED.status,
			updated_at = EXCLUDED.updated_at,
			finished_at = EXCLUDED.finished_at
	`

	// pgx encodes the struct and slice arguments as JSON for jsonb columns
	_, err := r.pool.Exec(ctx, query,
		job.ID,
		job.AccountID,
		job.Message,
		nonNil(job.Recipients),
		nonNil(job.Invalid),
		job.Sent,
		job.Failed,
		nonNil(job.Failures),
		job.State,
		job.Status,
		job.CreatedAt,
		job.UpdatedAt,
		job.FinishedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to save broadcast job: %w", err)
	}
	return nil
}

// GetJob loads a job snapshot
func (r *BroadcastRepository) GetJob(ctx context.Context, id uuid.UUID) (*broadcast.Job, error) {
	query := `
		SELECT id, account_id, message, recipients, invalid, sent, failed, failures,
			state, status, created_at, updated_at, finished_at
		FROM broadcast_jobs
		WHERE id = $1
	`

	job := &broadcast.Job{}
	err := r.pool.QueryRow(ctx, query, id).Scan(
		&job.ID,
		&job.AccountID,
		&job.Message,
		&job.Recipients,
		&job.Invalid,
		&job.Sent,
		&job.Failed,
		&job.Failures,
		&job.State,
		&job.Status,
		&job.CreatedAt,
		&job.UpdatedAt,
		&job.FinishedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, broadcast.ErrJobNotFound
		}
		return nil, fmt.Errorf("failed to get broadcast job: %w", err)
	}
	return job, nil
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
