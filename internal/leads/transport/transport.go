// Package transport defines the request and response DTOs for the leads API.
package transport

import (
	"time"

	"github.com/google/uuid"

	"dialflow_backend/internal/leads/repository"
)

// CreateLeadRequest registers a new lead.
type CreateLeadRequest struct {
	Name        string `json:"name" validate:"required,min=1,max=200"`
	Phone       string `json:"phone" validate:"required,min=7,max=32"`
	ProjectName string `json:"projectName" validate:"required,min=1,max=200"`
}

// ListLeadsRequest filters the lead listing.
type ListLeadsRequest struct {
	Limit int `form:"limit" validate:"omitempty,min=1,max=200"`
}

// LeadResponse is the API representation of a lead.
type LeadResponse struct {
	ID                   uuid.UUID  `json:"id"`
	Name                 string     `json:"name"`
	Phone                string     `json:"phone"`
	ProjectName          string     `json:"projectName"`
	CallConnectionStatus string     `json:"callConnectionStatus"`
	AutoCallAttempts     int        `json:"autoCallAttempts"`
	LastCallTime         *time.Time `json:"lastCallTime,omitempty"`
	CallCycleStartTime   *time.Time `json:"callCycleStartTime,omitempty"`
	LastAutoCallID       *string    `json:"lastAutoCallId,omitempty"`
	CreatedAt            time.Time  `json:"createdAt"`
	UpdatedAt            time.Time  `json:"updatedAt"`
}

// ToLeadResponse maps a stored lead to its API shape.
func ToLeadResponse(l repository.Lead) LeadResponse {
	return LeadResponse{
		ID:                   l.ID,
		Name:                 l.Name,
		Phone:                l.Phone,
		ProjectName:          l.ProjectName,
		CallConnectionStatus: l.CallConnectionStatus,
		AutoCallAttempts:     l.AutoCallAttempts,
		LastCallTime:         l.LastCallTime,
		CallCycleStartTime:   l.CallCycleStartTime,
		LastAutoCallID:       l.LastAutoCallID,
		CreatedAt:            l.CreatedAt,
		UpdatedAt:            l.UpdatedAt,
	}
}

// ToLeadResponses maps a slice of leads.
func ToLeadResponses(items []repository.Lead) []LeadResponse {
	out := make([]LeadResponse, 0, len(items))
	for _, l := range items {
		out = append(out, ToLeadResponse(l))
	}
	return out
}
