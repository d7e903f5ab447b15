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
	"github.com/alsaadxx12/fly1234/internal/platform/ticket"
)

// TicketRepository stores ticket, refund and change records
type TicketRepository struct {
	pool *pgxpool.Pool
}

// NewTicketRepository creates a new PostgreSQL ticket repository
func NewTicketRepository(pool *pgxpool.Pool) *TicketRepository {
	return &TicketRepository{pool: pool}
}

const ticketColumns = `id, kind, pnr, passenger_name, route, airline, buyer_id, sale_price, purchase_price,
	currency, issue_date, notes, created_by, audited, audited_by, audited_at, created_at, updated_at`

func scanTicket(row pgx.Row) (*ticket.Ticket, error) {
	t := &ticket.Ticket{}
	err := row.Scan(
		&t.ID,
		&t.Kind,
		&t.PNR,
		&t.PassengerName,
		&t.Route,
		&t.Airline,
		&t.BuyerID,
		&t.SalePrice,
		&t.PurchasePrice,
		&t.Currency,
		&t.IssueDate,
		&t.Notes,
		&t.CreatedBy,
		&t.Audited,
		&t.AuditedBy,
		&t.AuditedAt,
		&t.CreatedAt,
		&t.UpdatedAt,
	)
	return t, err
}

// Create inserts a ticket
func (r *TicketRepository) Create(ctx context.Context, t *ticket.Ticket) error {
	query := `
		INSERT INTO tickets (` + ticketColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18)
	`

	_, err := r.pool.Exec(ctx, query,
		t.ID, t.Kind, t.PNR, t.PassengerName, t.Route, t.Airline, t.BuyerID,
		t.SalePrice, t.PurchasePrice, t.Currency, t.IssueDate, t.Notes, t.CreatedBy,
		t.Audited, t.AuditedBy, t.AuditedAt, t.CreatedAt, t.UpdatedAt,
	)
	if err != nil {
		if isForeignKeyViolation(err) {
			return buyer.ErrBuyerNotFound
		}
		return fmt.Errorf("failed to create ticket: %w", err)
	}
	return nil
}

// GetByID retrieves a ticket by ID
func (r *TicketRepository) GetByID(ctx context.Context, id uuid.UUID) (*ticket.Ticket, error) {
	t, err := scanTicket(r.pool.QueryRow(ctx, `SELECT `+ticketColumns+` FROM tickets WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ticket.ErrTicketNotFound
		}
		return nil, fmt.Errorf("failed to get ticket: %w", err)
	}
	return t, nil
}

// List returns tickets matching f, newest issue date first
func (r *TicketRepository) List(ctx context.Context, f ticket.ListFilter) ([]*ticket.Ticket, error) {
	var (
		where []string
		args  []any
	)
	add := func(cond string, v any) {
		args = append(args, v)
		where = append(where, fmt.Sprintf(cond, len(args)))
	}

	if f.Kind != "" {
		add("kind = $%d", f.Kind)
	}
	if f.BuyerID != uuid.Nil {
		add("buyer_id = $%d", f.BuyerID)
	}
	if f.Audited != nil {
		add("audited = $%d", *f.Audited)
	}
	if !f.From.IsZero() {
		add("issue_date >= $%d", f.From)
	}
	if !f.To.IsZero() {
		add("issue_date <= $%d", f.To)
	}
	if f.Search != "" {
		add("(pnr ILIKE $%[1]d OR passenger_name ILIKE $%[1]d OR route ILIKE $%[1]d)", likePattern(f.Search))
	}

	query := `SELECT ` + ticketColumns + ` FROM tickets`
	if len(where) > 0 {
		query += ` WHERE ` + strings.Join(where, " AND ")
	}
	args = append(args, f.Limit, f.Offset)
	query += fmt.Sprintf(` ORDER BY issue_date DESC, created_at DESC LIMIT $%d OFFSET $%d`, len(args)-1, len(args))

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query tickets: %w", err)
	}
	defer rows.Close()

	var tickets []*ticket.Ticket
	for rows.Next() {
		t, err := scanTicket(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan ticket: %w", err)
		}
		tickets = append(tickets, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating tickets: %w", err)
	}
	return tickets, nil
}

// Update rewrites an unaudited ticket
func (r *TicketRepository) Update(ctx context.Context, t *ticket.Ticket) error {
	query := `
		UPDATE tickets
		SET kind = $2, pnr = $3, passenger_name = $4, route = $5, airline = $6, buyer_id = $7,
			sale_price = $8, purchase_price = $9, currency = $10, issue_date = $11, notes = $12,
			updated_at = $13
		WHERE id = $1 AND NOT audited
	`

	result, err := r.pool.Exec(ctx, query,
		t.ID, t.Kind, t.PNR, t.PassengerName, t.Route, t.Airline, t.BuyerID,
		t.SalePrice, t.PurchasePrice, t.Currency, t.IssueDate, t.Notes, t.UpdatedAt,
	)
	if err != nil {
		if isForeignKeyViolation(err) {
			return buyer.ErrBuyerNotFound
		}
		return fmt.Errorf("failed to update ticket: %w", err)
	}
	if result.RowsAffected() == 0 {
		return r.whyUnchanged(ctx, t.ID)
	}
	return nil
}

// Delete removes an unaudited ticket
func (r *TicketRepository) Delete(ctx context.Context, id uuid.UUID) error {
	result, err := r.pool.Exec(ctx, `DELETE FROM tickets WHERE id = $1 AND NOT audited`, id)
	if err != nil {
		return fmt.Errorf("failed to delete ticket: %w", err)
	}
	if result.RowsAffected() == 0 {
		return r.whyUnchanged(ctx, id)
	}
	return nil
}

// MarkAudited sets the audit fields once
func (r *TicketRepository) MarkAudited(ctx context.Context, t *ticket.Ticket) error {
	query := `
		UPDATE tickets
		SET audited = TRUE, audited_by = $2, audited_at = $3, updated_at = $4
		WHERE id = $1 AND NOT audited
	`

	result, err := r.pool.Exec(ctx, query, t.ID, t.AuditedBy, t.AuditedAt, t.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to audit ticket: %w", err)
	}
	if result.RowsAffected() == 0 {
		return r.whyUnchanged(ctx, t.ID)
	}
	return nil
}

// whyUnchanged tells a missing ticket from an audited one after a guarded write matched no row
func (r *TicketRepository) whyUnchanged(ctx context.Context, id uuid.UUID) error {
	var audited bool
	err := r.pool.QueryRow(ctx, `SELECT audited FROM tickets WHERE id = $1`, id).Scan(&audited)
	if errors.Is(err, pgx.ErrNoRows) {
		return ticket.ErrTicketNotFound
	}
	if err != nil {
		return fmt.Errorf("failed to read ticket: %w", err)
	}
	if audited {
		return ticket.ErrTicketAudited
	}
	return ticket.ErrTicketNotFound
}
