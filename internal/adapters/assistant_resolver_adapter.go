// Package adapters contains small translation types for cross-module wiring.
// Each adapter keeps one module's interface satisfied by another module's
// service without coupling their types.
package adapters

import (
	"context"

	assistantsvc "dialflow_backend/internal/assistants/service"
	"dialflow_backend/internal/autocall"
)

// AssistantResolverAdapter adapts the assistants resolver for the auto-call
// engine, which only needs the provider-facing assistant identity.
type AssistantResolverAdapter struct {
	resolver *assistantsvc.Resolver
}

// NewAssistantResolverAdapter creates a new resolver adapter.
func NewAssistantResolverAdapter(resolver *assistantsvc.Resolver) *AssistantResolverAdapter {
	return &AssistantResolverAdapter{resolver: resolver}
}

// Resolve picks and verifies an assistant for a project.
func (a *AssistantResolverAdapter) Resolve(ctx context.Context, projectName string) (*autocall.ResolvedAssistant, error) {
	assistant, err := a.resolver.Resolve(ctx, projectName)
	if err != nil || assistant == nil {
		return nil, err
	}
	return &autocall.ResolvedAssistant{
		ID:                  assistant.ID,
		ProviderAssistantID: assistant.ProviderAssistantID,
		Name:                assistant.Name,
	}, nil
}

// Compile-time check that the adapter implements autocall.AssistantResolver.
var _ autocall.AssistantResolver = (*AssistantResolverAdapter)(nil)
