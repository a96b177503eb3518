package app

import (
	"context"
	"log/slog"
	"time"

	"github.com/velvethub/backend/internal/chat"
	"github.com/velvethub/backend/internal/config"
	"github.com/velvethub/backend/internal/db"
	"github.com/velvethub/backend/internal/handlers"
	"github.com/velvethub/backend/internal/middleware"
	"github.com/velvethub/backend/internal/reconcile"
	"github.com/velvethub/backend/internal/repositories"
	"github.com/velvethub/backend/internal/storage"
	"github.com/velvethub/backend/internal/stream"
	"github.com/velvethub/backend/internal/tts"
)

const personaCacheTTL = 5 * time.Minute

// buildDependencies wires together concrete implementations used by the HTTP handlers.
func buildDependencies(ctx context.Context, pool db.Pool, cfg config.Config, logger *slog.Logger) (handlers.Dependencies, error) {
	videoRepo := repositories.NewPostgresVideoRepository(pool)
	personaRepo := repositories.NewCachingPersonaRepository(repositories.NewPostgresPersonaRepository(pool), personaCacheTTL)

	streamClient := stream.NewClient(cfg.Stream)

	var images storage.ImageStore
	if cfg.ObjectStore.Bucket != "" {
		store, err := storage.NewS3Storage(ctx, cfg.ObjectStore)
		if err != nil {
			return handlers.Dependencies{}, err
		}
		images = store
	} else {
		logger.Warn("media bucket not configured, video creation disabled")
	}

	return handlers.Dependencies{
		Videos:     videoRepo,
		Categories: repositories.NewPostgresCategoryRepository(pool),
		Personas:   personaRepo,
		Scenarios:  repositories.NewPostgresScenarioRepository(pool),
		Sessions:   repositories.NewPostgresClientSessionRepository(pool),

		Uploads:     streamClient,
		AssetStatus: streamClient,
		Images:      images,
		Completer:   chat.NewCompletionClient(cfg.Chat),
		Speech:      tts.NewClient(cfg.TTS),
		Reconciler: &reconcile.Sweeper{
			Videos: videoRepo,
			Status: streamClient,
			Logger: logger,
			Delay:  cfg.ReconcileDelay,
		},

		ChatLimiter: middleware.NewIPRateLimiter(cfg.ChatRatePerMinute, time.Minute, 5, 10*time.Minute),
		TTSLimiter:  middleware.NewIPRateLimiter(cfg.TTSRatePerMinute, time.Minute, 3, 10*time.Minute),

		AdminKeyHash: cfg.AdminKeyHash,
	}, nil
}
