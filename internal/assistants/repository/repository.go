package repository

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var ErrNotFound = errors.New("assistant not found")

// Sync statuses reflect whether the local assistant row matches the provider.
const (
	SyncStatusSynced    = "synced"
	SyncStatusOutOfSync = "out-of-sync"
	SyncStatusPending   = "pending"
	SyncStatusError     = "error"
)

// Lifecycle statuses of an assistant configuration.
const (
	StatusActive   = "active"
	StatusInactive = "inactive"
	StatusTesting  = "testing"
	StatusArchived = "archived"
)

const assistantColumns = `
	id, provider_assistant_id, name, project, sync_status, sync_error,
	status, created_at, updated_at`

// Assistant is a configured calling agent registered with the provider.
type Assistant struct {
	ID                  uuid.UUID
	ProviderAssistantID string
	Name                string
	Project             string
	SyncStatus          string
	SyncError           *string
	Status              string
	CreatedAt           time.Time
	UpdatedAt           time.Time
}

type Repository struct {
	pool *pgxpool.Pool
}

func New(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

type CreateAssistantParams struct {
	ProviderAssistantID string
	Name                string
	Project             string
}

// Create registers an assistant configuration; sync begins as pending until
// the first provider verification.
func (r *Repository) Create(ctx context.Context, params CreateAssistantParams) (Assistant, error) {
	row := r.pool.QueryRow(ctx, `
		INSERT INTO assistants (provider_assistant_id, name, project, sync_status, status)
		VALUES ($1, $2, $3, 'pending', 'active')
		RETURNING`+assistantColumns,
		params.ProviderAssistantID, params.Name, params.Project)

	return scanAssistant(row)
}

// List returns all non-archived assistants, most recently updated first.
func (r *Repository) List(ctx context.Context) ([]Assistant, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT`+assistantColumns+`
		FROM assistants
		WHERE status <> 'archived'
		ORDER BY updated_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return collectAssistants(rows)
}

// FindByProjectExact returns the most recently updated synced, non-archived
// assistant whose project tag equals the given name.
func (r *Repository) FindByProjectExact(ctx context.Context, projectName string) (*Assistant, error) {
	return r.findOne(ctx, `
		SELECT`+assistantColumns+`
		FROM assistants
		WHERE project = $1 AND sync_status = 'synced' AND status <> 'archived'
		ORDER BY updated_at DESC
		LIMIT 1`, projectName)
}

// FindByProjectFuzzy returns the most recently updated synced, non-archived
// assistant whose name or project contains the given name case-insensitively.
// The pattern argument must already be escaped for LIKE matching.
func (r *Repository) FindByProjectFuzzy(ctx context.Context, pattern string) (*Assistant, error) {
	return r.findOne(ctx, `
		SELECT`+assistantColumns+`
		FROM assistants
		WHERE (name ILIKE '%' || $1 || '%' OR project ILIKE '%' || $1 || '%')
		  AND sync_status = 'synced' AND status <> 'archived'
		ORDER BY updated_at DESC
		LIMIT 1`, pattern)
}

// FindSyncedFallback returns the most recently updated synced, non-archived
// assistant, optionally excluding specific ids.
func (r *Repository) FindSyncedFallback(ctx context.Context, exclude []uuid.UUID) (*Assistant, error) {
	return r.findOne(ctx, `
		SELECT`+assistantColumns+`
		FROM assistants
		WHERE sync_status = 'synced' AND status <> 'archived'
		  AND NOT (id = ANY($1))
		ORDER BY updated_at DESC
		LIMIT 1`, excludeIDs(exclude))
}

// FindAnyFallback is the last resort: any non-archived assistant regardless
// of sync state.
func (r *Repository) FindAnyFallback(ctx context.Context, exclude []uuid.UUID) (*Assistant, error) {
	return r.findOne(ctx, `
		SELECT`+assistantColumns+`
		FROM assistants
		WHERE status <> 'archived'
		  AND NOT (id = ANY($1))
		ORDER BY updated_at DESC
		LIMIT 1`, excludeIDs(exclude))
}

// MarkOutOfSync records a failed provider verification with its diagnostic.
func (r *Repository) MarkOutOfSync(ctx context.Context, id uuid.UUID, reason string) error {
	_, err := r.pool.Exec(ctx, `
		UPDATE assistants
		SET sync_status = 'out-of-sync', sync_error = $2, updated_at = now()
		WHERE id = $1`, id, reason)
	return err
}

// MarkSynced records a successful provider verification.
func (r *Repository) MarkSynced(ctx context.Context, id uuid.UUID) error {
	_, err := r.pool.Exec(ctx, `
		UPDATE assistants
		SET sync_status = 'synced', sync_error = NULL, updated_at = now()
		WHERE id = $1`, id)
	return err
}

func (r *Repository) findOne(ctx context.Context, query string, arg any) (*Assistant, error) {
	row := r.pool.QueryRow(ctx, query, arg)

	assistant, err := scanAssistant(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &assistant, nil
}

func excludeIDs(ids []uuid.UUID) []uuid.UUID {
	if ids == nil {
		return []uuid.UUID{}
	}
	return ids
}

func scanAssistant(row pgx.Row) (Assistant, error) {
	var a Assistant
	err := row.Scan(
		&a.ID,
		&a.ProviderAssistantID,
		&a.Name,
		&a.Project,
		&a.SyncStatus,
		&a.SyncError,
		&a.Status,
		&a.CreatedAt,
		&a.UpdatedAt,
	)
	if err != nil {
		return Assistant{}, err
	}
	return a, nil
}

func collectAssistants(rows pgx.Rows) ([]Assistant, error) {
	assistants := make([]Assistant, 0)
	for rows.Next() {
		a, err := scanAssistant(rows)
		if err != nil {
			return nil, err
		}
		assistants = append(assistants, a)
	}

	if rows.Err() != nil {
		return nil, rows.Err()
	}

	return assistants, nil
}
