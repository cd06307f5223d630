// Package service implements lead management on top of the repository.
package service

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"dialflow_backend/internal/leads/repository"
	"dialflow_backend/internal/leads/transport"
	"dialflow_backend/platform/apperr"
	"dialflow_backend/platform/logger"
	"dialflow_backend/platform/phone"
)

// Service provides lead CRUD operations.
type Service struct {
	repo *repository.Repository
	log  *logger.Logger
}

// New creates a leads Service.
func New(repo *repository.Repository, log *logger.Logger) *Service {
	return &Service{repo: repo, log: log}
}

// Create stores a new lead. The phone number is normalized to E.164 when it
// parses; a number with fewer than ten digits is rejected because the
// auto-call engine would never pick it up.
func (s *Service) Create(ctx context.Context, userID uuid.UUID, req transport.CreateLeadRequest) (repository.Lead, error) {
	normalized := phone.NormalizeE164(req.Phone)
	if !phone.Plausible(normalized) {
		return repository.Lead{}, apperr.Validation("phone number must have at least 10 digits")
	}

	lead, err := s.repo.Create(ctx, repository.CreateLeadParams{
		UserID:      userID,
		Name:        req.Name,
		Phone:       normalized,
		ProjectName: req.ProjectName,
	})
	if err != nil {
		s.log.DatabaseError("leads.create", err)
		return repository.Lead{}, err
	}
	return lead, nil
}

// Get fetches a lead owned by the user.
func (s *Service) Get(ctx context.Context, userID, leadID uuid.UUID) (repository.Lead, error) {
	lead, err := s.repo.GetByID(ctx, leadID)
	if errors.Is(err, repository.ErrNotFound) {
		return repository.Lead{}, apperr.NotFound("lead not found")
	}
	if err != nil {
		return repository.Lead{}, err
	}
	if lead.UserID != userID || lead.DeletedAt != nil {
		return repository.Lead{}, apperr.NotFound("lead not found")
	}
	return lead, nil
}

// List returns the user's leads, newest first.
func (s *Service) List(ctx context.Context, userID uuid.UUID, limit int) ([]repository.Lead, error) {
	return s.repo.List(ctx, userID, limit)
}

// Delete soft-deletes a lead, removing it from auto-call eligibility.
func (s *Service) Delete(ctx context.Context, userID, leadID uuid.UUID) error {
	err := s.repo.SoftDelete(ctx, leadID, userID)
	if errors.Is(err, repository.ErrNotFound) {
		return apperr.NotFound("lead not found")
	}
	return err
}
