package repositories

import (
	"context"

	"github.com/velvethub/backend/internal/models"
)

// PersonaRepository exposes data access for companion personas.
type PersonaRepository interface {
	GetByID(ctx context.Context, id string) (models.Persona, error)
	GetBySlug(ctx context.Context, slug string) (models.Persona, error)
	List(ctx context.Context, contentRating string) ([]models.Persona, error)
}

// ScenarioRepository exposes data access for persona scenarios.
type ScenarioRepository interface {
	ListForPersona(ctx context.Context, personaID string) ([]models.Scenario, error)
}

// ClientSessionRepository registers browser-generated session identifiers.
type ClientSessionRepository interface {
	Register(ctx context.Context, sessionID string) error
}
