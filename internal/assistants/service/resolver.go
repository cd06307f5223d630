// Package service implements assistant resolution for the auto-call engine.
// Resolution picks the best locally known assistant for a project and proves
// it still exists on the calling provider before anyone dials with it.
package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"dialflow_backend/internal/assistants/repository"
	"dialflow_backend/internal/provider"
	"dialflow_backend/platform/logger"
)

// Store is the assistant persistence surface the resolver needs.
type Store interface {
	FindByProjectExact(ctx context.Context, projectName string) (*repository.Assistant, error)
	FindByProjectFuzzy(ctx context.Context, pattern string) (*repository.Assistant, error)
	FindSyncedFallback(ctx context.Context, exclude []uuid.UUID) (*repository.Assistant, error)
	FindAnyFallback(ctx context.Context, exclude []uuid.UUID) (*repository.Assistant, error)
	MarkOutOfSync(ctx context.Context, id uuid.UUID, reason string) error
	MarkSynced(ctx context.Context, id uuid.UUID) error
}

// Verifier checks an assistant against the provider.
type Verifier interface {
	GetAssistant(ctx context.Context, providerAssistantID string) (*provider.Assistant, error)
}

// Resolver selects and verifies calling assistants per project.
type Resolver struct {
	store    Store
	verifier Verifier
	log      *logger.Logger
}

// NewResolver creates a Resolver.
func NewResolver(store Store, verifier Verifier, log *logger.Logger) *Resolver {
	return &Resolver{store: store, verifier: verifier, log: log}
}

// Resolve picks an assistant for the project. Selection walks from exact
// project match through fuzzy and generic fallbacks; the selected candidate
// must pass provider verification. A failed verification marks the candidate
// out-of-sync and tries exactly one alternative. Returns (nil, nil) when no
// candidate verifies; callers skip the lead for this cycle.
func (r *Resolver) Resolve(ctx context.Context, projectName string) (*repository.Assistant, error) {
	candidate, err := r.selectCandidate(ctx, projectName)
	if err != nil {
		return nil, err
	}
	if candidate == nil {
		r.log.Debug("no assistant candidate for project", "project", projectName)
		return nil, nil
	}

	if r.verify(ctx, candidate) {
		return candidate, nil
	}

	// Exactly one alternative: the next most recently updated synced
	// assistant, excluding the one that just failed.
	alternative, err := r.store.FindSyncedFallback(ctx, []uuid.UUID{candidate.ID})
	if err != nil {
		return nil, err
	}
	if alternative == nil {
		return nil, nil
	}

	if r.verify(ctx, alternative) {
		return alternative, nil
	}
	return nil, nil
}

func (r *Resolver) selectCandidate(ctx context.Context, projectName string) (*repository.Assistant, error) {
	projectName = strings.TrimSpace(projectName)

	if projectName != "" {
		exact, err := r.store.FindByProjectExact(ctx, projectName)
		if err != nil {
			return nil, err
		}
		if exact != nil {
			return exact, nil
		}

		fuzzy, err := r.store.FindByProjectFuzzy(ctx, escapeLikePattern(projectName))
		if err != nil {
			return nil, err
		}
		if fuzzy != nil {
			return fuzzy, nil
		}
	}

	generic, err := r.store.FindSyncedFallback(ctx, nil)
	if err != nil {
		return nil, err
	}
	if generic != nil {
		return generic, nil
	}

	return r.store.FindAnyFallback(ctx, nil)
}

// verify checks the candidate against the provider and persists the sync
// outcome either way.
func (r *Resolver) verify(ctx context.Context, candidate *repository.Assistant) bool {
	remote, err := r.verifier.GetAssistant(ctx, candidate.ProviderAssistantID)
	if err != nil {
		reason := fmt.Sprintf("provider verification failed: %v", err)
		if markErr := r.store.MarkOutOfSync(ctx, candidate.ID, reason); markErr != nil {
			r.log.DatabaseError("assistants.mark_out_of_sync", markErr)
		}
		r.log.Warn("assistant failed provider verification",
			"assistantId", candidate.ID,
			"providerAssistantId", candidate.ProviderAssistantID,
			"error", err)
		return false
	}

	if remote == nil || remote.ID == "" {
		reason := "provider returned no assistant for id " + candidate.ProviderAssistantID
		if markErr := r.store.MarkOutOfSync(ctx, candidate.ID, reason); markErr != nil {
			r.log.DatabaseError("assistants.mark_out_of_sync", markErr)
		}
		return false
	}

	if err := r.store.MarkSynced(ctx, candidate.ID); err != nil {
		r.log.DatabaseError("assistants.mark_synced", err)
	}
	return true
}

// escapeLikePattern neutralizes LIKE wildcards so the project name is matched
// literally inside the fuzzy pattern.
func escapeLikePattern(input string) string {
	replacer := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return replacer.Replace(input)
}
