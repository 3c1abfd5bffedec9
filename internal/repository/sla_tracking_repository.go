package repository

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/sla-engine/internal/domain"
)

// SlaTrackingRepository encapsulates per-ticket SLA tracking persistence.
type SlaTrackingRepository interface {
	Create(ctx context.Context, tracking *domain.SlaTracking) error
	Update(ctx context.Context, tracking *domain.SlaTracking) error
	GetByTicketID(ctx context.Context, ticketID string) (*domain.SlaTracking, error)
	// CountViolatedBetween counts tracked tickets created in the window
	// with at least one violated milestone.
	CountViolatedBetween(ctx context.Context, from, to time.Time) (int, error)
}

type slaTrackingRepository struct {
	pool *pgxpool.Pool
}

// NewSlaTrackingRepository instantiates repository.
func NewSlaTrackingRepository(pool *pgxpool.Pool) SlaTrackingRepository {
	return &slaTrackingRepository{pool: pool}
}

const trackingColumns = `id, ticket_id, policy_id, first_response_deadline, resolution_deadline,
       first_response_at, resolved_at, first_response_violated, resolution_violated,
       escalation_level, created_at, updated_at`

func (r *slaTrackingRepository) Create(ctx context.Context, tracking *domain.SlaTracking) error {
	const query = `
        INSERT INTO sla_tracking (ticket_id, policy_id, first_response_deadline, resolution_deadline,
            first_response_at, resolved_at, first_response_violated, resolution_violated, escalation_level)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
        ON CONFLICT (ticket_id) DO UPDATE SET
            policy_id=EXCLUDED.policy_id,
            first_response_deadline=EXCLUDED.first_response_deadline,
            resolution_deadline=EXCLUDED.resolution_deadline,
            first_response_violated=EXCLUDED.first_response_violated,
            resolution_violated=EXCLUDED.resolution_violated,
            updated_at=NOW()
        RETURNING id, created_at, updated_at`
	return r.pool.QueryRow(ctx, query,
		tracking.TicketID,
		tracking.PolicyID,
		tracking.FirstResponseDeadline,
		tracking.ResolutionDeadline,
		tracking.FirstResponseAt,
		tracking.ResolvedAt,
		tracking.FirstResponseViolated,
		tracking.ResolutionViolated,
		tracking.EscalationLevel,
	).Scan(&tracking.ID, &tracking.CreatedAt, &tracking.UpdatedAt)
}

func (r *slaTrackingRepository) Update(ctx context.Context, tracking *domain.SlaTracking) error {
	const query = `
        UPDATE sla_tracking SET first_response_deadline=$1, resolution_deadline=$2, first_response_at=$3,
            resolved_at=$4, first_response_violated=$5, resolution_violated=$6, escalation_level=$7,
            updated_at=NOW()
        WHERE ticket_id=$8`
	cmd, err := r.pool.Exec(ctx, query,
		tracking.FirstResponseDeadline,
		tracking.ResolutionDeadline,
		tracking.FirstResponseAt,
		tracking.ResolvedAt,
		tracking.FirstResponseViolated,
		tracking.ResolutionViolated,
		tracking.EscalationLevel,
		tracking.TicketID,
	)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *slaTrackingRepository) GetByTicketID(ctx context.Context, ticketID string) (*domain.SlaTracking, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+trackingColumns+` FROM sla_tracking WHERE ticket_id=$1`, ticketID)
	var tracking domain.SlaTracking
	if err := row.Scan(
		&tracking.ID,
		&tracking.TicketID,
		&tracking.PolicyID,
		&tracking.FirstResponseDeadline,
		&tracking.ResolutionDeadline,
		&tracking.FirstResponseAt,
		&tracking.ResolvedAt,
		&tracking.FirstResponseViolated,
		&tracking.ResolutionViolated,
		&tracking.EscalationLevel,
		&tracking.CreatedAt,
		&tracking.UpdatedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &tracking, nil
}

func (r *slaTrackingRepository) CountViolatedBetween(ctx context.Context, from, to time.Time) (int, error) {
	const query = `
        SELECT COUNT(*) FROM sla_tracking st
        JOIN tickets t ON t.id = st.ticket_id
        WHERE t.created_at >= $1 AND t.created_at < $2
          AND (st.first_response_violated OR st.resolution_violated)`
	var count int
	if err := r.pool.QueryRow(ctx, query, from, to).Scan(&count); err != nil {
		return 0, err
	}
	return count, nil
}
