package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/alsaadxx12/fly1234/internal/platform/buyer"
	"github.com/alsaadxx12/fly1234/internal/platform/visa"
)

// VisaRepository stores visa entries
type VisaRepository struct {
	pool *pgxpool.Pool
}

// NewVisaRepository creates a new PostgreSQL visa repository
func NewVisaRepository(pool *pgxpool.Pool) *VisaRepository {
	return &VisaRepository{pool: pool}
}

const visaColumns = `id, applicant_name, passport_no, country, visa_type, status, buyer_id, price, cost,
	currency, submitted_at, notes, created_at, updated_at`

func scanVisa(row pgx.Row) (*visa.Entry, error) {
	e := &visa.Entry{}
	err := row.Scan(
		&e.ID,
		&e.ApplicantName,
		&e.PassportNo,
		&e.Country,
		&e.VisaType,
		&e.Status,
		&e.BuyerID,
		&e.Price,
		&e.Cost,
		&e.Currency,
		&e.SubmittedAt,
		&e.Notes,
		&e.CreatedAt,
		&e.UpdatedAt,
	)
	return e, err
}

// Create inserts a visa entry
func (r *VisaRepository) Create(ctx context.Context, e *visa.Entry) error {
	query := `
		INSERT INTO visa_entries (` + visaColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
	`

	_, err := r.pool.Exec(ctx, query,
		e.ID, e.ApplicantName, e.PassportNo, e.Country, e.VisaType, e.Status, e.BuyerID,
		e.Price, e.Cost, e.Currency, e.SubmittedAt, e.Notes, e.CreatedAt, e.UpdatedAt,
	)
	if err != nil {
		if isForeignKeyViolation(err) {
			return buyer.ErrBuyerNotFound
		}
		return fmt.Errorf("failed to create visa entry: %w", err)
	}
	return nil
}

// GetByID retrieves a visa entry by ID
func (r *VisaRepository) GetByID(ctx context.Context, id uuid.UUID) (*visa.Entry, error) {
	e, err := scanVisa(r.pool.QueryRow(ctx, `SELECT `+visaColumns+` FROM visa_entries WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, visa.ErrEntryNotFound
		}
		return nil, fmt.Errorf("failed to get visa entry: %w", err)
	}
	return e, nil
}

// List returns visa entries matching f, newest first
func (r *VisaRepository) List(ctx context.Context, f visa.ListFilter) ([]*visa.Entry, error) {
	var (
		where []string
		args  []any
	)
	add := func(cond string, v any) {
		args = append(args, v)
		where = append(where, fmt.Sprintf(cond, len(args)))
	}

	if f.Status != "" {
		add("status = $%d", f.Status)
	}
	if f.BuyerID != uuid.Nil {
		add("buyer_id = $%d", f.BuyerID)
	}
	if f.Country != "" {
		add("country ILIKE $%d", f.Country)
	}
	if f.Search != "" {
		add("(applicant_name ILIKE $%[1]d OR passport_no ILIKE $%[1]d)", likePattern(f.Search))
	}

	query := `SELECT ` + visaColumns + ` FROM visa_entries`
	if len(where) > 0 {
		query += ` WHERE ` + strings.Join(where, " AND ")
	}
	args = append(args, f.Limit, f.Offset)
	query += fmt.Sprintf(` ORDER BY created_at DESC LIMIT $%d OFFSET $%d`, len(args)-1, len(args))

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query visa entries: %w", err)
	}
	defer rows.Close()

	var entries []*visa.Entry
	for rows.Next() {
		e, err := scanVisa(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan visa entry: %w", err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating visa entries: %w", err)
	}
	return entries, nil
}

// Update rewrites the editable fields of an entry; status is left alone
func (r *VisaRepository) Update(ctx context.Context, e *visa.Entry) error {
	query := `
		UPDATE visa_entries
		SET applicant_name = $2, passport_no = $3, country = $4, visa_type = $5, buyer_id = $6,
			price = $7, cost = $8, currency = $9, notes = $10, updated_at = $11
		WHERE id = $1
	`

	result, err := r.pool.Exec(ctx, query,
		e.ID, e.ApplicantName, e.PassportNo, e.Country, e.VisaType, e.BuyerID,
		e.Price, e.Cost, e.Currency, e.Notes, e.UpdatedAt,
	)
	if err != nil {
		if isForeignKeyViolation(err) {
			return buyer.ErrBuyerNotFound
		}
		return fmt.Errorf("failed to update visa entry: %w", err)
	}
	if result.RowsAffected() == 0 {
		return visa.ErrEntryNotFound
	}
	return nil
}

// SetStatus moves an entry from status from to e.Status
func (r *VisaRepository) SetStatus(ctx context.Context, e *visa.Entry, from visa.Status) error {
	query := `
		UPDATE visa_entries
		SET status = $2, submitted_at = $3, updated_at = $4
		WHERE id = $1 AND status = $5
	`

	result, err := r.pool.Exec(ctx, query, e.ID, e.Status, e.SubmittedAt, e.UpdatedAt, from)
	if err != nil {
		return fmt.Errorf("failed to set visa status: %w", err)
	}
	if result.RowsAffected() == 0 {
		var exists bool
		if err := r.pool.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM visa_entries WHERE id = $1)`, e.ID).Scan(&exists); err != nil {
			return fmt.Errorf("failed to read visa entry: %w", err)
		}
		if !exists {
			return visa.ErrEntryNotFound
		}
		return fmt.Errorf("%w: status changed concurrently", visa.ErrInvalidTransition)
	}
	return nil
}

// Delete removes an entry
func (r *VisaRepository) Delete(ctx context.Context, id uuid.UUID) error {
	result, err := r.pool.Exec(ctx, `DELETE FROM visa_entries WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete visa entry: %w", err)
	}
	if result.RowsAffected() == 0 {
		return visa.ErrEntryNotFound
	}
	return nil
}
