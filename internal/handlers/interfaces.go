package handlers

import (
	"context"

	"github.com/velvethub/backend/internal/chat"
	"github.com/velvethub/backend/internal/models"
	"github.com/velvethub/backend/internal/reconcile"
	"github.com/velvethub/backend/internal/storage"
	"github.com/velvethub/backend/internal/stream"
)

// VideoStore captures persistence operations required by the catalog handlers.
type VideoStore interface {
	Create(ctx context.Context, video models.Video) error
	GetByID(ctx context.Context, id string) (models.Video, error)
	List(ctx context.Context, limit int) ([]models.Video, error)
	ListByCategory(ctx context.Context, categoryID string, limit int) ([]models.Video, error)
	LinkCategory(ctx context.Context, videoID, categoryID string) error
}

// CategoryStore captures read access for category browsing.
type CategoryStore interface {
	GetByID(ctx context.Context, id string) (models.Category, error)
	List(ctx context.Context) ([]models.Category, error)
}

// PersonaStore captures read access for companion personas.
type PersonaStore interface {
	GetByID(ctx context.Context, id string) (models.Persona, error)
	GetBySlug(ctx context.Context, slug string) (models.Persona, error)
	List(ctx context.Context, contentRating string) ([]models.Persona, error)
}

// ScenarioStore captures read access for persona scenarios.
type ScenarioStore interface {
	ListForPersona(ctx context.Context, personaID string) ([]models.Scenario, error)
}

// ClientSessionStore registers browser session identifiers.
type ClientSessionStore interface {
	Register(ctx context.Context, sessionID string) error
}

// UploadSessionCreator initiates resumable upload sessions on the stream provider.
type UploadSessionCreator interface {
	CreateDirectUpload(ctx context.Context, size int64, filename string) (stream.DirectUpload, error)
}

// AssetStatusProvider resolves transcode state and provider URL patterns.
type AssetStatusProvider interface {
	GetVideo(ctx context.Context, uid string) (stream.VideoStatus, error)
	PlaybackURL(uid string) string
	ThumbnailURL(uid string) string
}

// SpeechSynthesizer converts reply text to a playable audio URL.
type SpeechSynthesizer interface {
	Synthesize(ctx context.Context, text, voiceID, modelID string) (string, error)
}

// DurationReconciler runs the duration reconciliation sweep.
type DurationReconciler interface {
	Sweep(ctx context.Context) (reconcile.Summary, error)
}

// RateLimiter controls how frequently a caller may hit an endpoint.
type RateLimiter interface {
	Allow(key string) bool
}

// Dependencies aggregates collaborators required by HTTP handlers.
type Dependencies struct {
	Videos     VideoStore
	Categories CategoryStore
	Personas   PersonaStore
	Scenarios  ScenarioStore
	Sessions   ClientSessionStore

	Uploads     UploadSessionCreator
	AssetStatus AssetStatusProvider
	Images      storage.ImageStore
	Completer   chat.Completer
	Speech      SpeechSynthesizer
	Reconciler  DurationReconciler

	ChatLimiter RateLimiter
	TTSLimiter  RateLimiter

	// AdminKeyHash guards mutating endpoints; empty disables the check.
	AdminKeyHash string
}
