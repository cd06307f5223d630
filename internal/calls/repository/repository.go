// Package repository persists call records keyed by the provider's call id.
package repository

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrNotFound is returned when a call record does not exist.
var ErrNotFound = errors.New("call record not found")

const callColumns = `
	id, provider_call_id, assistant_id, lead_id, phone_number, status,
	ended_reason, started_at, ended_at, duration_seconds, cost,
	recording_url, transcript, created_at, updated_at`

// CallRecord mirrors a row in call_records. The provider call id is the
// natural key used by webhook and poll reconciliation.
type CallRecord struct {
	ID              uuid.UUID
	ProviderCallID  string
	AssistantID     *uuid.UUID
	LeadID          *uuid.UUID
	PhoneNumber     string
	Status          string
	EndedReason     *string
	StartedAt       *time.Time
	EndedAt         *time.Time
	DurationSeconds *int
	Cost            *float64
	RecordingURL    *string
	Transcript      *string
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

type Repository struct {
	pool *pgxpool.Pool
}

func New(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

type CreateCallParams struct {
	ProviderCallID string
	AssistantID    *uuid.UUID
	LeadID         *uuid.UUID
	PhoneNumber    string
	Status         string
	StartedAt      *time.Time
}

// Create inserts a call record. Inserting an already known provider call id
// updates the mutable fields instead, so webhook deliveries that race the
// dispatch insert stay idempotent.
func (r *Repository) Create(ctx context.Context, params CreateCallParams) (CallRecord, error) {
	row := r.pool.QueryRow(ctx, `
		INSERT INTO call_records (provider_call_id, assistant_id, lead_id, phone_number, status, started_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (provider_call_id) DO UPDATE SET
			status = EXCLUDED.status,
			started_at = COALESCE(call_records.started_at, EXCLUDED.started_at),
			lead_id = COALESCE(call_records.lead_id, EXCLUDED.lead_id),
			updated_at = now()
		RETURNING`+callColumns,
		params.ProviderCallID, params.AssistantID, params.LeadID,
		params.PhoneNumber, params.Status, params.StartedAt)

	return scanCallRecord(row)
}

// GetByProviderCallID looks up a record by the provider's call id.
func (r *Repository) GetByProviderCallID(ctx context.Context, providerCallID string) (CallRecord, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT`+callColumns+`
		FROM call_records
		WHERE provider_call_id = $1`, providerCallID)

	record, err := scanCallRecord(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return CallRecord{}, ErrNotFound
	}
	return record, err
}

type OutcomeParams struct {
	Status          string
	EndedReason     *string
	EndedAt         *time.Time
	DurationSeconds *int
	Cost            *float64
	RecordingURL    *string
	Transcript      *string
}

// ApplyOutcome writes the derived outcome onto the record. Outcome fields
// only ever move forward: COALESCE keeps values already captured by an
// earlier webhook or poll delivery.
func (r *Repository) ApplyOutcome(ctx context.Context, providerCallID string, params OutcomeParams) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE call_records SET
			status = $2,
			ended_reason = COALESCE($3, ended_reason),
			ended_at = COALESCE($4, ended_at),
			duration_seconds = COALESCE($5, duration_seconds),
			cost = COALESCE($6, cost),
			recording_url = COALESCE($7, recording_url),
			transcript = COALESCE($8, transcript),
			updated_at = now()
		WHERE provider_call_id = $1`,
		providerCallID, params.Status, params.EndedReason, params.EndedAt,
		params.DurationSeconds, params.Cost, params.RecordingURL, params.Transcript)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// ListByLead returns a lead's calls, most recent first.
func (r *Repository) ListByLead(ctx context.Context, leadID uuid.UUID) ([]CallRecord, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT`+callColumns+`
		FROM call_records
		WHERE lead_id = $1
		ORDER BY created_at DESC`, leadID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []CallRecord
	for rows.Next() {
		record, err := scanCallRecord(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, record)
	}
	return records, rows.Err()
}

func scanCallRecord(row pgx.Row) (CallRecord, error) {
	var c CallRecord
	err := row.Scan(
		&c.ID, &c.ProviderCallID, &c.AssistantID, &c.LeadID, &c.PhoneNumber,
		&c.Status, &c.EndedReason, &c.StartedAt, &c.EndedAt,
		&c.DurationSeconds, &c.Cost, &c.RecordingURL, &c.Transcript,
		&c.CreatedAt, &c.UpdatedAt)
	return c, err
}
