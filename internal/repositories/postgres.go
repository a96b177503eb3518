package repositories

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/velvethub/backend/internal/db"
	"github.com/velvethub/backend/internal/models"
)

// PostgresVideoRepository provides PostgreSQL-backed persistence for catalog videos.
type PostgresVideoRepository struct {
	pool db.Pool
}

// NewPostgresVideoRepository constructs a video repository backed by PostgreSQL.
func NewPostgresVideoRepository(pool db.Pool) *PostgresVideoRepository {
	return &PostgresVideoRepository{pool: pool}
}

// Create stores a new catalog video record.
func (r *PostgresVideoRepository) Create(ctx context.Context, video models.Video) error {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	_, err = conn.Exec(ctx, `
        INSERT INTO videos (id, title, thumbnail_url, slider_url, stream_uid, playback_url, duration_seconds, created_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
    `, video.ID, video.Title, video.ThumbnailURL, video.SliderURL, video.StreamUID, video.PlaybackURL, video.DurationSeconds, video.CreatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return ErrConflict
		}
		return fmt.Errorf("insert video: %w", err)
	}

	return nil
}

// GetByID fetches a single catalog video.
func (r *PostgresVideoRepository) GetByID(ctx context.Context, id string) (models.Video, error) {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return models.Video{}, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	row := conn.QueryRow(ctx, `
        SELECT id, title, thumbnail_url, slider_url, stream_uid, playback_url, duration_seconds, created_at
        FROM videos
        WHERE id = $1
    `, id)

	var video models.Video
	if err := row.Scan(&video.ID, &video.Title, &video.ThumbnailURL, &video.SliderURL, &video.StreamUID, &video.PlaybackURL, &video.DurationSeconds, &video.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.Video{}, ErrNotFound
		}
		return models.Video{}, fmt.Errorf("select video: %w", err)
	}

	return video, nil
}

// List returns catalog videos in reverse chronological order.
func (r *PostgresVideoRepository) List(ctx context.Context, limit int) ([]models.Video, error) {
	if limit <= 0 {
		limit = 100
	}

	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return nil, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	rows, err := conn.Query(ctx, `
        SELECT id, title, thumbnail_url, slider_url, stream_uid, playback_url, duration_seconds, created_at
        FROM videos
        ORDER BY created_at DESC
        LIMIT $1
    `, limit)
	if err != nil {
		return nil, fmt.Errorf("query videos: %w", err)
	}
	defer rows.Close()

	return scanVideos(rows)
}

// ListByCategory returns videos linked to the provided category.
func (r *PostgresVideoRepository) ListByCategory(ctx context.Context, categoryID string, limit int) ([]models.Video, error) {
	if limit <= 0 {
		limit = 100
	}

	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return nil, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	rows, err := conn.Query(ctx, `
        SELECT v.id, v.title, v.thumbnail_url, v.slider_url, v.stream_uid, v.playback_url, v.duration_seconds, v.created_at
        FROM videos v
        JOIN video_categories vc ON vc.video_id = v.id
        WHERE vc.category_id = $1
        ORDER BY v.created_at DESC
        LIMIT $2
    `, categoryID, limit)
	if err != nil {
		return nil, fmt.Errorf("query videos by category: %w", err)
	}
	defer rows.Close()

	return scanVideos(rows)
}

// LinkCategory inserts one join row. A missing video or category surfaces as
// ErrNotFound; a duplicate link as ErrConflict.
func (r *PostgresVideoRepository) LinkCategory(ctx context.Context, videoID, categoryID string) error {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	_, err = conn.Exec(ctx, `
        INSERT INTO video_categories (video_id, category_id)
        VALUES ($1, $2)
    `, videoID, categoryID)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) {
			switch pgErr.Code {
			case "23505":
				return ErrConflict
			case "23503":
				return ErrNotFound
			}
		}
		return fmt.Errorf("insert video category link: %w", err)
	}

	return nil
}

// ListUnresolvedDuration returns videos whose duration has not been
// reconciled with the stream provider yet.
func (r *PostgresVideoRepository) ListUnresolvedDuration(ctx context.Context) ([]models.Video, error) {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return nil, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	rows, err := conn.Query(ctx, `
        SELECT id, title, thumbnail_url, slider_url, stream_uid, playback_url, duration_seconds, created_at
        FROM videos
        WHERE duration_seconds = 0
        ORDER BY created_at ASC
    `)
	if err != nil {
		return nil, fmt.Errorf("query unresolved durations: %w", err)
	}
	defer rows.Close()

	return scanVideos(rows)
}

// UpdateDuration records the authoritative duration reported by the provider.
func (r *PostgresVideoRepository) UpdateDuration(ctx context.Context, videoID string, seconds int) error {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	tag, err := conn.Exec(ctx, `
        UPDATE videos
        SET duration_seconds = $2
        WHERE id = $1
    `, videoID, seconds)
	if err != nil {
		return fmt.Errorf("update video duration: %w", err)
	}

	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}

	return nil
}

func scanVideos(rows pgx.Rows) ([]models.Video, error) {
	var videos []models.Video
	for rows.Next() {
		var video models.Video
		if err := rows.Scan(&video.ID, &video.Title, &video.ThumbnailURL, &video.SliderURL, &video.StreamUID, &video.PlaybackURL, &video.DurationSeconds, &video.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan video: %w", err)
		}
		videos = append(videos, video)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate videos: %w", err)
	}

	return videos, nil
}

// PostgresCategoryRepository provides PostgreSQL-backed persistence for categories.
type PostgresCategoryRepository struct {
	pool db.Pool
}

// NewPostgresCategoryRepository constructs a category repository backed by PostgreSQL.
func NewPostgresCategoryRepository(pool db.Pool) *PostgresCategoryRepository {
	return &PostgresCategoryRepository{pool: pool}
}

// Create persists a new category.
func (r *PostgresCategoryRepository) Create(ctx context.Context, category models.Category) error {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	_, err = conn.Exec(ctx, `
        INSERT INTO categories (id, name)
        VALUES ($1, $2)
    `, category.ID, category.Name)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return ErrConflict
		}
		return fmt.Errorf("insert category: %w", err)
	}

	return nil
}

// GetByID fetches a single category.
func (r *PostgresCategoryRepository) GetByID(ctx context.Context, id string) (models.Category, error) {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return models.Category{}, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	row := conn.QueryRow(ctx, `SELECT id, name FROM categories WHERE id = $1`, id)

	var category models.Category
	if err := row.Scan(&category.ID, &category.Name); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.Category{}, ErrNotFound
		}
		return models.Category{}, fmt.Errorf("select category: %w", err)
	}

	return category, nil
}

// List returns all categories ordered by name.
func (r *PostgresCategoryRepository) List(ctx context.Context) ([]models.Category, error) {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return nil, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	rows, err := conn.Query(ctx, `SELECT id, name FROM categories ORDER BY name ASC`)
	if err != nil {
		return nil, fmt.Errorf("query categories: %w", err)
	}
	defer rows.Close()

	var categories []models.Category
	for rows.Next() {
		var category models.Category
		if err := rows.Scan(&category.ID, &category.Name); err != nil {
			return nil, fmt.Errorf("scan category: %w", err)
		}
		categories = append(categories, category)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate categories: %w", err)
	}

	return categories, nil
}

var _ VideoRepository = (*PostgresVideoRepository)(nil)
var _ DurationUpdater = (*PostgresVideoRepository)(nil)
var _ CategoryRepository = (*PostgresCategoryRepository)(nil)
