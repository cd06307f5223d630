package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"dialflow_backend/internal/leads/domain"
)

var ErrNotFound = errors.New("lead not found")

const leadColumns = `
	id, user_id, name, phone, project_name, call_connection_status,
	auto_call_attempts, last_call_time, call_cycle_start_time,
	last_auto_call_id, deleted_at, created_at, updated_at`

// Lead is a prospective contact to be called.
type Lead struct {
	ID                   uuid.UUID
	UserID               uuid.UUID
	Name                 string
	Phone                string
	ProjectName          string
	CallConnectionStatus string
	AutoCallAttempts     int
	LastCallTime         *time.Time
	CallCycleStartTime   *time.Time
	LastAutoCallID       *string
	DeletedAt            *time.Time
	CreatedAt            time.Time
	UpdatedAt            time.Time
}

// CallState projects the lead onto the attempt-cycle rules.
func (l *Lead) CallState() domain.CallState {
	return domain.CallState{
		Status:         l.CallConnectionStatus,
		Attempts:       l.AutoCallAttempts,
		LastCallTime:   l.LastCallTime,
		CycleStartTime: l.CallCycleStartTime,
	}
}

type Repository struct {
	pool *pgxpool.Pool
}

func New(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

type CreateLeadParams struct {
	UserID      uuid.UUID
	Name        string
	Phone       string
	ProjectName string
}

// Create inserts a new lead in the pending state.
func (r *Repository) Create(ctx context.Context, params CreateLeadParams) (Lead, error) {
	row := r.pool.QueryRow(ctx, `
		INSERT INTO leads (user_id, name, phone, project_name, call_connection_status)
		VALUES ($1, $2, $3, $4, 'pending')
		RETURNING`+leadColumns,
		params.UserID, params.Name, params.Phone, params.ProjectName)

	return scanLead(row)
}

// GetByID fetches a lead regardless of soft-delete state.
func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (Lead, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT`+leadColumns+`
		FROM leads
		WHERE id = $1`, id)

	lead, err := scanLead(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return Lead{}, ErrNotFound
	}
	return lead, err
}

// List returns non-deleted leads for a user, newest first.
func (r *Repository) List(ctx context.Context, userID uuid.UUID, limit int) ([]Lead, error) {
	if limit <= 0 {
		limit = 50
	}

	rows, err := r.pool.Query(ctx, `
		SELECT`+leadColumns+`
		FROM leads
		WHERE user_id = $1 AND deleted_at IS NULL
		ORDER BY created_at DESC
		LIMIT $2`, userID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return collectLeads(rows)
}

// FindEligible returns leads satisfying the auto-call eligibility predicate,
// oldest first. The in-memory dedup filter is applied by the caller.
func (r *Repository) FindEligible(ctx context.Context, limit int) ([]Lead, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT`+leadColumns+`
		FROM leads
		WHERE deleted_at IS NULL
		  AND call_connection_status IN ('pending', 'failed')
		  AND length(regexp_replace(phone, '\D', '', 'g')) >= 10
		  AND project_name <> ''
		  AND (
			auto_call_attempts = 0
			OR (auto_call_attempts = 1 AND last_call_time <= now() - interval '5 minutes')
			OR (auto_call_attempts >= 2 AND last_call_time <= now() - interval '60 minutes')
		  )
		ORDER BY created_at ASC
		LIMIT $1`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return collectLeads(rows)
}

// FindByPhoneVariants resolves a lead by trying each phone spelling in order.
// The first variant with a match wins; ties within a variant go to the most
// recently created lead.
func (r *Repository) FindByPhoneVariants(ctx context.Context, variants []string) (Lead, error) {
	for _, variant := range variants {
		if variant == "" {
			continue
		}

		row := r.pool.QueryRow(ctx, `
			SELECT`+leadColumns+`
			FROM leads
			WHERE deleted_at IS NULL AND (phone = $1 OR regexp_replace(phone, '\D', '', 'g') = $1)
			ORDER BY created_at DESC
			LIMIT 1`, variant)

		lead, err := scanLead(row)
		if err == nil {
			return lead, nil
		}
		if !errors.Is(err, pgx.ErrNoRows) {
			return Lead{}, err
		}
	}

	return Lead{}, ErrNotFound
}

// RecordDispatchParams is the attempt bookkeeping persisted on a successful
// call dispatch.
type RecordDispatchParams struct {
	LeadID         uuid.UUID
	Attempts       int
	FreshCycle     bool
	DispatchedAt   time.Time
	ProviderCallID string
}

// RecordDispatch applies the dispatch bookkeeping: new attempt count, last
// call time, cycle start (opened when fresh or missing), in-progress status
// and the provider call correlation id.
func (r *Repository) RecordDispatch(ctx context.Context, params RecordDispatchParams) (Lead, error) {
	row := r.pool.QueryRow(ctx, `
		UPDATE leads
		SET call_connection_status = 'in-progress',
		    auto_call_attempts = $2,
		    last_call_time = $3,
		    call_cycle_start_time = CASE
		        WHEN $4 OR call_cycle_start_time IS NULL THEN $3
		        ELSE call_cycle_start_time
		    END,
		    last_auto_call_id = $5,
		    updated_at = now()
		WHERE id = $1
		RETURNING`+leadColumns,
		params.LeadID, params.Attempts, params.DispatchedAt, params.FreshCycle, params.ProviderCallID)

	lead, err := scanLead(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return Lead{}, ErrNotFound
	}
	return lead, err
}

// ApplyOutcomeParams carries a reconciled call outcome onto the lead.
type ApplyOutcomeParams struct {
	LeadID         uuid.UUID
	Status         string
	OutcomeAt      time.Time
	ProviderCallID string
	ResetCycle     bool
}

// ApplyOutcome writes the reconciled connection status. Successful contact
// additionally zeroes the attempt counter and closes the cycle.
func (r *Repository) ApplyOutcome(ctx context.Context, params ApplyOutcomeParams) (Lead, error) {
	row := r.pool.QueryRow(ctx, `
		UPDATE leads
		SET call_connection_status = $2,
		    last_call_time = $3,
		    last_auto_call_id = COALESCE(NULLIF($4, ''), last_auto_call_id),
		    auto_call_attempts = CASE WHEN $5 THEN 0 ELSE auto_call_attempts END,
		    call_cycle_start_time = CASE WHEN $5 THEN NULL ELSE call_cycle_start_time END,
		    updated_at = now()
		WHERE id = $1
		RETURNING`+leadColumns,
		params.LeadID, params.Status, params.OutcomeAt, params.ProviderCallID, params.ResetCycle)

	lead, err := scanLead(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return Lead{}, ErrNotFound
	}
	return lead, err
}

// SoftDelete marks a lead as deleted without dropping history.
func (r *Repository) SoftDelete(ctx context.Context, id, userID uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE leads
		SET deleted_at = now(), updated_at = now()
		WHERE id = $1 AND user_id = $2 AND deleted_at IS NULL`, id, userID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func scanLead(row pgx.Row) (Lead, error) {
	var lead Lead
	err := row.Scan(
		&lead.ID,
		&lead.UserID,
		&lead.Name,
		&lead.Phone,
		&lead.ProjectName,
		&lead.CallConnectionStatus,
		&lead.AutoCallAttempts,
		&lead.LastCallTime,
		&lead.CallCycleStartTime,
		&lead.LastAutoCallID,
		&lead.DeletedAt,
		&lead.CreatedAt,
		&lead.UpdatedAt,
	)
	if err != nil {
		return Lead{}, err
	}
	return lead, nil
}

func collectLeads(rows pgx.Rows) ([]Lead, error) {
	leads := make([]Lead, 0)
	for rows.Next() {
		lead, err := scanLead(rows)
		if err != nil {
			return nil, fmt.Errorf("scan lead: %w", err)
		}
		leads = append(leads, lead)
	}

	if rows.Err() != nil {
		return nil, rows.Err()
	}

	return leads, nil
}
