// Package transport defines the request and response DTOs for the
// assistants HTTP API.
package transport

import (
	"time"

	"github.com/google/uuid"

	"dialflow_backend/internal/assistants/repository"
)

// CreateAssistantRequest registers a provider assistant locally.
type CreateAssistantRequest struct {
	ProviderAssistantID string `json:"providerAssistantId" validate:"required,min=1,max=128"`
	Name                string `json:"name" validate:"required,min=1,max=200"`
	Project             string `json:"project" validate:"max=200"`
}

// AssistantResponse is the API representation of an assistant.
type AssistantResponse struct {
	ID                  uuid.UUID `json:"id"`
	ProviderAssistantID string    `json:"providerAssistantId"`
	Name                string    `json:"name"`
	Project             string    `json:"project"`
	SyncStatus          string    `json:"syncStatus"`
	SyncError           *string   `json:"syncError,omitempty"`
	Status              string    `json:"status"`
	CreatedAt           time.Time `json:"createdAt"`
	UpdatedAt           time.Time `json:"updatedAt"`
}

// ToAssistantResponse maps a stored assistant to its API shape.
func ToAssistantResponse(a repository.Assistant) AssistantResponse {
	return AssistantResponse{
		ID:                  a.ID,
		ProviderAssistantID: a.ProviderAssistantID,
		Name:                a.Name,
		Project:             a.Project,
		SyncStatus:          a.SyncStatus,
		SyncError:           a.SyncError,
		Status:              a.Status,
		CreatedAt:           a.CreatedAt,
		UpdatedAt:           a.UpdatedAt,
	}
}

// ToAssistantResponses maps a slice of assistants.
func ToAssistantResponses(items []repository.Assistant) []AssistantResponse {
	out := make([]AssistantResponse, 0, len(items))
	for _, a := range items {
		out = append(out, ToAssistantResponse(a))
	}
	return out
}
