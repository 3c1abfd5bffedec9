package repository

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/sla-engine/internal/domain"
)

// SlaPolicyRepository encapsulates SLA policy persistence.
type SlaPolicyRepository interface {
	Create(ctx context.Context, policy *domain.SlaPolicy) error
	Update(ctx context.Context, policy *domain.SlaPolicy) error
	GetByID(ctx context.Context, id string) (*domain.SlaPolicy, error)
	ListByCompany(ctx context.Context, companyID string) ([]domain.SlaPolicy, error)
	// FindScoped matches the exact (company, department-or-null, priority)
	// scope; it does not apply precedence, the resolver does.
	FindScoped(ctx context.Context, companyID string, departmentID *string, priority domain.TicketPriority) (*domain.SlaPolicy, error)
}

type slaPolicyRepository struct {
	pool *pgxpool.Pool
}

// NewSlaPolicyRepository instantiates repository.
func NewSlaPolicyRepository(pool *pgxpool.Pool) SlaPolicyRepository {
	return &slaPolicyRepository{pool: pool}
}

const policyColumns = `id, company_id, department_id, priority, first_response_hours, resolution_hours,
       business_hours_only, business_start_hour, business_end_hour, weekend_days, holiday_calendar,
       active, created_at, updated_at`

func (r *slaPolicyRepository) Create(ctx context.Context, policy *domain.SlaPolicy) error {
	const query = `
        INSERT INTO sla_policies (company_id, department_id, priority, first_response_hours, resolution_hours,
            business_hours_only, business_start_hour, business_end_hour, weekend_days, holiday_calendar, active)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)
        RETURNING id, created_at, updated_at`
	return r.pool.QueryRow(ctx, query,
		policy.CompanyID,
		policy.DepartmentID,
		policy.Priority,
		policy.FirstResponseHours,
		policy.ResolutionHours,
		policy.BusinessHoursOnly,
		policy.BusinessStartHour,
		policy.BusinessEndHour,
		weekdaysToInts(policy.WeekendDays),
		policy.HolidayCalendar,
		policy.Active,
	).Scan(&policy.ID, &policy.CreatedAt, &policy.UpdatedAt)
}

func (r *slaPolicyRepository) Update(ctx context.Context, policy *domain.SlaPolicy) error {
	const query = `
        UPDATE sla_policies SET first_response_hours=$1, resolution_hours=$2, business_hours_only=$3,
            business_start_hour=$4, business_end_hour=$5, weekend_days=$6, holiday_calendar=$7,
            active=$8, updated_at=NOW()
        WHERE id=$9`
	cmd, err := r.pool.Exec(ctx, query,
		policy.FirstResponseHours,
		policy.ResolutionHours,
		policy.BusinessHoursOnly,
		policy.BusinessStartHour,
		policy.BusinessEndHour,
		weekdaysToInts(policy.WeekendDays),
		policy.HolidayCalendar,
		policy.Active,
		policy.ID,
	)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *slaPolicyRepository) GetByID(ctx context.Context, id string) (*domain.SlaPolicy, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+policyColumns+` FROM sla_policies WHERE id=$1`, id)
	return scanPolicy(row)
}

func (r *slaPolicyRepository) ListByCompany(ctx context.Context, companyID string) ([]domain.SlaPolicy, error) {
	query := `SELECT ` + policyColumns + ` FROM sla_policies WHERE company_id=$1 ORDER BY priority, department_id NULLS LAST`
	rows, err := r.pool.Query(ctx, query, companyID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.SlaPolicy
	for rows.Next() {
		policy, err := scanPolicy(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *policy)
	}
	return result, rows.Err()
}

func (r *slaPolicyRepository) FindScoped(ctx context.Context, companyID string, departmentID *string, priority domain.TicketPriority) (*domain.SlaPolicy, error) {
	query := `SELECT ` + policyColumns + ` FROM sla_policies
        WHERE company_id=$1 AND priority=$2 AND active AND department_id IS NULL`
	args := []any{companyID, priority}
	if departmentID != nil {
		query = `SELECT ` + policyColumns + ` FROM sla_policies
            WHERE company_id=$1 AND priority=$2 AND active AND department_id=$3`
		args = append(args, *departmentID)
	}
	return scanPolicy(r.pool.QueryRow(ctx, query, args...))
}

func scanPolicy(row pgx.Row) (*domain.SlaPolicy, error) {
	var policy domain.SlaPolicy
	var weekend []int32
	if err := row.Scan(
		&policy.ID,
		&policy.CompanyID,
		&policy.DepartmentID,
		&policy.Priority,
		&policy.FirstResponseHours,
		&policy.ResolutionHours,
		&policy.BusinessHoursOnly,
		&policy.BusinessStartHour,
		&policy.BusinessEndHour,
		&weekend,
		&policy.HolidayCalendar,
		&policy.Active,
		&policy.CreatedAt,
		&policy.UpdatedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	policy.WeekendDays = intsToWeekdays(weekend)
	return &policy, nil
}

func weekdaysToInts(days []time.Weekday) []int32 {
	out := make([]int32, 0, len(days))
	for _, d := range days {
		out = append(out, int32(d))
	}
	return out
}

func intsToWeekdays(values []int32) []time.Weekday {
	out := make([]time.Weekday, 0, len(values))
	for _, v := range values {
		out = append(out, time.Weekday(v))
	}
	return out
}
