package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/alsaadxx12/fly1234/internal/platform/whatsapp"
)

// WhatsAppAccountRepository stores messaging gateway accounts
type WhatsAppAccountRepository struct {
	pool *pgxpool.Pool
}

// NewWhatsAppAccountRepository creates a new PostgreSQL account repository
func NewWhatsAppAccountRepository(pool *pgxpool.Pool) *WhatsAppAccountRepository {
	return &WhatsAppAccountRepository{pool: pool}
}

const whatsappColumns = `id, name, instance_id, token, is_active, is_default, created_at, updated_at`

func scanWhatsAppAccount(row pgx.Row) (*whatsapp.Account, error) {
	a := &whatsapp.Account{}
	err := row.Scan(&a.ID, &a.Name, &a.InstanceID, &a.Token, &a.IsActive, &a.IsDefault, &a.CreatedAt, &a.UpdatedAt)
	return a, err
}

// Create inserts an account. The default flag is only ever set through SetDefault.
func (r *WhatsAppAccountRepository) Create(ctx context.Context, a *whatsapp.Account) error {
	query := `
		INSERT INTO whatsapp_accounts (` + whatsappColumns + `)
		VALUES ($1, $2, $3, $4, $5, FALSE, $6, $7)
	`

	_, err := r.pool.Exec(ctx, query, a.ID, a.Name, a.InstanceID, a.Token, a.IsActive, a.CreatedAt, a.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return whatsapp.ErrDuplicateInstance
		}
		return fmt.Errorf("failed to create whatsapp account: %w", err)
	}
	return nil
}

// GetByID retrieves an account by ID
func (r *WhatsAppAccountRepository) GetByID(ctx context.Context, id uuid.UUID) (*whatsapp.Account, error) {
	a, err := scanWhatsAppAccount(r.pool.QueryRow(ctx, `SELECT `+whatsappColumns+` FROM whatsapp_accounts WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, whatsapp.ErrAccountNotFound
		}
		return nil, fmt.Errorf("failed to get whatsapp account: %w", err)
	}
	return a, nil
}

// List returns all accounts, oldest first
func (r *WhatsAppAccountRepository) List(ctx context.Context) ([]*whatsapp.Account, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+whatsappColumns+` FROM whatsapp_accounts ORDER BY created_at, id`)
	if err != nil {
		return nil, fmt.Errorf("failed to query whatsapp accounts: %w", err)
	}
	defer rows.Close()

	var accounts []*whatsapp.Account
	for rows.Next() {
		a, err := scanWhatsAppAccount(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan whatsapp account: %w", err)
		}
		accounts = append(accounts, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating whatsapp accounts: %w", err)
	}
	return accounts, nil
}

// Update rewrites an account. Clearing is_default is allowed, setting it is not.
func (r *WhatsAppAccountRepository) Update(ctx context.Context, a *whatsapp.Account) error {
	query := `
		UPDATE whatsapp_accounts
		SET name = $2, instance_id = $3, token = $4, is_active = $5, is_default = is_default AND $6, updated_at = $7
		WHERE id = $1
	`

	result, err := r.pool.Exec(ctx, query, a.ID, a.Name, a.InstanceID, a.Token, a.IsActive, a.IsDefault, a.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return whatsapp.ErrDuplicateInstance
		}
		return fmt.Errorf("failed to update whatsapp account: %w", err)
	}
	if result.RowsAffected() == 0 {
		return whatsapp.ErrAccountNotFound
	}
	return nil
}

// Delete removes an account
func (r *WhatsAppAccountRepository) Delete(ctx context.Context, id uuid.UUID) error {
	result, err := r.pool.Exec(ctx, `DELETE FROM whatsapp_accounts WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete whatsapp account: %w", err)
	}
	if result.RowsAffected() == 0 {
		return whatsapp.ErrAccountNotFound
	}
	return nil
}

// ExistsByInstanceID checks whether an account other than exclude uses instanceID
func (r *WhatsAppAccountRepository) ExistsByInstanceID(ctx context.Context, instanceID string, exclude uuid.UUID) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx,
		`SELECT EXISTS(SELECT 1 FROM whatsapp_accounts WHERE instance_id = $1 AND id <> $2)`,
		instanceID, exclude,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check instance id: %w", err)
	}
	return exists, nil
}

// SetDefault clears the current default and marks id, in one transaction
func (r *WhatsAppAccountRepository) SetDefault(ctx context.Context, id uuid.UUID) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	if _, err := tx.Exec(ctx, `UPDATE whatsapp_accounts SET is_default = FALSE WHERE is_default AND id <> $1`, id); err != nil {
		return fmt.Errorf("failed to clear default account: %w", err)
	}

	result, err := tx.Exec(ctx, `UPDATE whatsapp_accounts SET is_default = TRUE, updated_at = NOW() WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to set default account: %w", err)
	}
	if result.RowsAffected() == 0 {
		return whatsapp.ErrAccountNotFound
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit default account: %w", err)
	}
	return nil
}
