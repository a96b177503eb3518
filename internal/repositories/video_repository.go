package repositories

import (
	"context"

	"github.com/velvethub/backend/internal/models"
)

// VideoRepository exposes data access for catalog videos.
type VideoRepository interface {
	Create(ctx context.Context, video models.Video) error
	GetByID(ctx context.Context, id string) (models.Video, error)
	List(ctx context.Context, limit int) ([]models.Video, error)
	ListByCategory(ctx context.Context, categoryID string, limit int) ([]models.Video, error)
	LinkCategory(ctx context.Context, videoID, categoryID string) error
}

// DurationUpdater covers the subset of video persistence the reconciliation
// sweep needs.
type DurationUpdater interface {
	ListUnresolvedDuration(ctx context.Context) ([]models.Video, error)
	UpdateDuration(ctx context.Context, videoID string, seconds int) error
}

// CategoryRepository exposes data access for categories.
type CategoryRepository interface {
	Create(ctx context.Context, category models.Category) error
	GetByID(ctx context.Context, id string) (models.Category, error)
	List(ctx context.Context) ([]models.Category, error)
}
