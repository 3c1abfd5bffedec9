package repository

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/sla-engine/internal/domain"
)

// TicketRepository encapsulates ticket persistence.
type TicketRepository interface {
	Create(ctx context.Context, ticket *domain.Ticket) error
	// Update performs an optimistic write guarded by the ticket's version;
	// a lost race returns ErrVersionConflict.
	Update(ctx context.Context, ticket *domain.Ticket) error
	GetByID(ctx context.Context, id string) (*domain.Ticket, error)
	GetByNumber(ctx context.Context, number string) (*domain.Ticket, error)
	// ListActive returns tickets whose status is not terminal.
	ListActive(ctx context.Context) ([]domain.Ticket, error)
	CountCreatedBetween(ctx context.Context, from, to time.Time) (int, error)
}

type ticketRepository struct {
	pool *pgxpool.Pool
}

// NewTicketRepository instantiates repository.
func NewTicketRepository(pool *pgxpool.Pool) TicketRepository {
	return &ticketRepository{pool: pool}
}

const ticketColumns = `id, number, company_id, department_id, customer_id, creator_id, assignee_agent_id,
       title, description, category, status, priority, approval_stage, pre_resolution_status,
       resolution_summary, escalation_level, satisfaction_rating, version, created_at, last_activity_at, closed_at`

func (r *ticketRepository) Create(ctx context.Context, ticket *domain.Ticket) error {
	const query = `
        INSERT INTO tickets (number, company_id, department_id, customer_id, creator_id, assignee_agent_id,
            title, description, category, status, priority, approval_stage, pre_resolution_status,
            resolution_summary, escalation_level, last_activity_at)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16)
        RETURNING id, version, created_at`
	return r.pool.QueryRow(ctx, query,
		ticket.Number,
		ticket.CompanyID,
		ticket.DepartmentID,
		ticket.CustomerID,
		ticket.CreatorID,
		ticket.AssigneeID,
		ticket.Title,
		ticket.Description,
		ticket.Category,
		ticket.Status,
		ticket.Priority,
		ticket.ApprovalStage,
		ticket.PreResolutionStatus,
		ticket.ResolutionSummary,
		ticket.EscalationLevel,
		ticket.LastActivityAt,
	).Scan(&ticket.ID, &ticket.Version, &ticket.CreatedAt)
}

func (r *ticketRepository) Update(ctx context.Context, ticket *domain.Ticket) error {
	const query = `
        UPDATE tickets SET department_id=$1, assignee_agent_id=$2, title=$3, description=$4, category=$5,
            status=$6, priority=$7, approval_stage=$8, pre_resolution_status=$9, resolution_summary=$10,
            escalation_level=$11, satisfaction_rating=$12, last_activity_at=$13, closed_at=$14,
            version=version+1
        WHERE id=$15 AND version=$16`
	cmd, err := r.pool.Exec(ctx, query,
		ticket.DepartmentID,
		ticket.AssigneeID,
		ticket.Title,
		ticket.Description,
		ticket.Category,
		ticket.Status,
		ticket.Priority,
		ticket.ApprovalStage,
		ticket.PreResolutionStatus,
		ticket.ResolutionSummary,
		ticket.EscalationLevel,
		ticket.SatisfactionRating,
		ticket.LastActivityAt,
		ticket.ClosedAt,
		ticket.ID,
		ticket.Version,
	)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrVersionConflict
	}
	ticket.Version++
	return nil
}

func (r *ticketRepository) GetByID(ctx context.Context, id string) (*domain.Ticket, error) {
	return r.fetchSingle(ctx, `SELECT `+ticketColumns+` FROM tickets WHERE id=$1`, id)
}

func (r *ticketRepository) GetByNumber(ctx context.Context, number string) (*domain.Ticket, error) {
	return r.fetchSingle(ctx, `SELECT `+ticketColumns+` FROM tickets WHERE number=$1`, number)
}

func (r *ticketRepository) fetchSingle(ctx context.Context, query string, arg any) (*domain.Ticket, error) {
	var ticket domain.Ticket
	if err := scanTicket(r.pool.QueryRow(ctx, query, arg), &ticket); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &ticket, nil
}

func (r *ticketRepository) ListActive(ctx context.Context) ([]domain.Ticket, error) {
	query := `SELECT ` + ticketColumns + ` FROM tickets WHERE status <> $1 ORDER BY created_at`
	rows, err := r.pool.Query(ctx, query, domain.TicketStatusClosed)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.Ticket
	for rows.Next() {
		var ticket domain.Ticket
		if err := scanTicket(rows, &ticket); err != nil {
			return nil, err
		}
		result = append(result, ticket)
	}
	return result, rows.Err()
}

func (r *ticketRepository) CountCreatedBetween(ctx context.Context, from, to time.Time) (int, error) {
	const query = `SELECT COUNT(*) FROM tickets WHERE created_at >= $1 AND created_at < $2`
	var count int
	if err := r.pool.QueryRow(ctx, query, from, to).Scan(&count); err != nil {
		return 0, err
	}
	return count, nil
}

func scanTicket(row pgx.Row, ticket *domain.Ticket) error {
	return row.Scan(
		&ticket.ID,
		&ticket.Number,
		&ticket.CompanyID,
		&ticket.DepartmentID,
		&ticket.CustomerID,
		&ticket.CreatorID,
		&ticket.AssigneeID,
		&ticket.Title,
		&ticket.Description,
		&ticket.Category,
		&ticket.Status,
		&ticket.Priority,
		&ticket.ApprovalStage,
		&ticket.PreResolutionStatus,
		&ticket.ResolutionSummary,
		&ticket.EscalationLevel,
		&ticket.SatisfactionRating,
		&ticket.Version,
		&ticket.CreatedAt,
		&ticket.LastActivityAt,
		&ticket.ClosedAt,
	)
}
