package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/alsaadxx12/fly1234/internal/platform/buyer"
)

// BuyerRepository stores buyers
type BuyerRepository struct {
	pool *pgxpool.Pool
}

// NewBuyerRepository creates a new PostgreSQL buyer repository
func NewBuyerRepository(pool *pgxpool.Pool) *BuyerRepository {
	return &BuyerRepository{pool: pool}
}

const buyerColumns = `id, name, phone, accounting_id, currency, balance, balance_synced_at, created_at, updated_at`

func scanBuyer(row pgx.Row) (*buyer.Buyer, error) {
	b := &buyer.Buyer{}
	err := row.Scan(
		&b.ID,
		&b.Name,
		&b.Phone,
		&b.AccountingID,
		&b.Currency,
		&b.Balance,
		&b.BalanceSyncedAt,
		&b.CreatedAt,
		&b.UpdatedAt,
	)
	return b, err
}

// Create inserts a buyer
func (r *BuyerRepository) Create(ctx context.Context, b *buyer.Buyer) error {
	query := `
		INSERT INTO buyers (` + buyerColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`

	_, err := r.pool.Exec(ctx, query,
		b.ID,
		b.Name,
		b.Phone,
		b.AccountingID,
		b.Currency,
		b.Balance,
		b.BalanceSyncedAt,
		b.CreatedAt,
		b.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return buyer.ErrDuplicateAccounting
		}
		return fmt.Errorf("failed to create buyer: %w", err)
	}
	return nil
}

// GetByID retrieves a buyer by ID
func (r *BuyerRepository) GetByID(ctx context.Context, id uuid.UUID) (*buyer.Buyer, error) {
	b, err := scanBuyer(r.pool.QueryRow(ctx, `SELECT `+buyerColumns+` FROM buyers WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, buyer.ErrBuyerNotFound
		}
		return nil, fmt.Errorf("failed to get buyer: %w", err)
	}
	return b, nil
}

// List returns buyers ordered by name, optionally matching a search term
// against name, phone and accounting id
func (r *BuyerRepository) List(ctx context.Context, f buyer.ListFilter) ([]*buyer.Buyer, error) {
	query := `SELECT ` + buyerColumns + ` FROM buyers`
	args := []any{}
	if f.Search != "" {
		args = append(args, likePattern(f.Search))
		query += ` WHERE name ILIKE $1 OR phone ILIKE $1 OR accounting_id ILIKE $1`
	}
	args = append(args, f.Limit, f.Offset)
	query += fmt.Sprintf(` ORDER BY name, id LIMIT $%d OFFSET $%d`, len(args)-1, len(args))

	return r.query(ctx, query, args...)
}

// ListForSync returns buyers least recently synced first
func (r *BuyerRepository) ListForSync(ctx context.Context) ([]*buyer.Buyer, error) {
	query := `
		SELECT ` + buyerColumns + `
		FROM buyers
		WHERE accounting_id <> ''
		ORDER BY balance_synced_at NULLS FIRST, name
	`
	return r.query(ctx, query)
}

func (r *BuyerRepository) query(ctx context.Context, query string, args ...any) ([]*buyer.Buyer, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query buyers: %w", err)
	}
	defer rows.Close()

	var buyers []*buyer.Buyer
	for rows.Next() {
		b, err := scanBuyer(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan buyer: %w", err)
		}
		buyers = append(buyers, b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating buyers: %w", err)
	}
	return buyers, nil
}

// Update updates the editable fields of a buyer
func (r *BuyerRepository) Update(ctx context.Context, b *buyer.Buyer) error {
	query := `
		UPDATE buyers
		SET name = $2, phone = $3, accounting_id = $4, currency = $5, updated_at = $6
		WHERE id = $1
	`

	result, err := r.pool.Exec(ctx, query, b.ID, b.Name, b.Phone, b.AccountingID, b.Currency, b.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return buyer.ErrDuplicateAccounting
		}
		return fmt.Errorf("failed to update buyer: %w", err)
	}
	if result.RowsAffected() == 0 {
		return buyer.ErrBuyerNotFound
	}
	return nil
}

// Delete deletes a buyer without bookkeeping records
func (r *BuyerRepository) Delete(ctx context.Context, id uuid.UUID) error {
	result, err := r.pool.Exec(ctx, `DELETE FROM buyers WHERE id = $1`, id)
	if err != nil {
		if isForeignKeyViolation(err) {
			return buyer.ErrBuyerInUse
		}
		return fmt.Errorf("failed to delete buyer: %w", err)
	}
	if result.RowsAffected() == 0 {
		return buyer.ErrBuyerNotFound
	}
	return nil
}

// ExistsByAccountingID checks whether a buyer other than exclude uses accountingID
func (r *BuyerRepository) ExistsByAccountingID(ctx context.Context, accountingID string, exclude uuid.UUID) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx,
		`SELECT EXISTS(SELECT 1 FROM buyers WHERE accounting_id = $1 AND id <> $2)`,
		accountingID, exclude,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check accounting id: %w", err)
	}
	return exists, nil
}

// SetBalance stores the balance read from the accounting system
func (r *BuyerRepository) SetBalance(ctx context.Context, id uuid.UUID, balance decimal.Decimal, syncedAt time.Time) error {
	result, err := r.pool.Exec(ctx,
		`UPDATE buyers SET balance = $2, balance_synced_at = $3 WHERE id = $1`,
		id, balance, syncedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to set buyer balance: %w", err)
	}
	if result.RowsAffected() == 0 {
		return buyer.ErrBuyerNotFound
	}
	return nil
}
