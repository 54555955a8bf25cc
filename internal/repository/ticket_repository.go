package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/spec-kit/voucher-service/internal/domain"
)

// Sentinel errors the lifecycle manager branches on.
var (
	ErrNotFound    = errors.New("ticket not found")
	ErrDuplicateID = errors.New("duplicate ticket id")
)

const pgUniqueViolation = "23505"

// TicketRepository encapsulates voucher persistence.
type TicketRepository interface {
	// Create inserts a new ticket. Returns ErrDuplicateID when the id
	// collides with an existing primary key.
	Create(ctx context.Context, ticket *domain.Ticket) error
	// GetByID fetches a ticket. Returns ErrNotFound when absent.
	GetByID(ctx context.Context, id string) (*domain.Ticket, error)
	// MarkRedeemed flips status issued -> redeemed as a single conditional
	// update. Returns false when the ticket was not in the issued state,
	// which is how a concurrent redemption race resolves to one winner.
	MarkRedeemed(ctx context.Context, id string) (bool, error)
}

type ticketRepository struct {
	pool *pgxpool.Pool
}

// NewTicketRepository instantiates repository.
func NewTicketRepository(pool *pgxpool.Pool) TicketRepository {
	return &ticketRepository{pool: pool}
}

func (r *ticketRepository) Create(ctx context.Context, ticket *domain.Ticket) error {
	itemsJSON, err := json.Marshal(ticket.Items)
	if err != nil {
		return fmt.Errorf("marshal items: %w", err)
	}
	unitTotalsJSON, err := json.Marshal(ticket.UnitTotals)
	if err != nil {
		return fmt.Errorf("marshal unit totals: %w", err)
	}

	const query = `
        INSERT INTO tickets (id, issued_at, employee_id, items_json, unit_totals_json, total_amount, status, expires_at, hash)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)`
	_, err = r.pool.Exec(ctx, query,
		ticket.ID,
		ticket.IssuedAt,
		ticket.EmployeeID,
		string(itemsJSON),
		string(unitTotalsJSON),
		ticket.TotalAmount.String(),
		ticket.Status,
		ticket.ExpiresAt,
		ticket.Hash,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
			return ErrDuplicateID
		}
		return err
	}
	return nil
}

func (r *ticketRepository) GetByID(ctx context.Context, id string) (*domain.Ticket, error) {
	const query = `
        SELECT id, issued_at, employee_id, items_json, unit_totals_json, total_amount::text, status, expires_at, hash
        FROM tickets WHERE id=$1`

	var (
		ticket         domain.Ticket
		itemsJSON      string
		unitTotalsJSON string
		totalAmount    string
	)
	if err := r.pool.QueryRow(ctx, query, id).Scan(
		&ticket.ID,
		&ticket.IssuedAt,
		&ticket.EmployeeID,
		&itemsJSON,
		&unitTotalsJSON,
		&totalAmount,
		&ticket.Status,
		&ticket.ExpiresAt,
		&ticket.Hash,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	if err := json.Unmarshal([]byte(itemsJSON), &ticket.Items); err != nil {
		return nil, fmt.Errorf("unmarshal items: %w", err)
	}
	if err := json.Unmarshal([]byte(unitTotalsJSON), &ticket.UnitTotals); err != nil {
		return nil, fmt.Errorf("unmarshal unit totals: %w", err)
	}
	total, err := decimal.NewFromString(totalAmount)
	if err != nil {
		return nil, fmt.Errorf("parse total_amount: %w", err)
	}
	ticket.TotalAmount = total
	return &ticket, nil
}

func (r *ticketRepository) MarkRedeemed(ctx context.Context, id string) (bool, error) {
	const query = `UPDATE tickets SET status=$1 WHERE id=$2 AND status=$3`
	cmd, err := r.pool.Exec(ctx, query, domain.TicketStatusRedeemed, id, domain.TicketStatusIssued)
	if err != nil {
		return false, err
	}
	return cmd.RowsAffected() == 1, nil
}
